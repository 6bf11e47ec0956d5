package selector

import (
	"sort"

	"github.com/aeonforge/generation-engine/services/catalog"
	"github.com/aeonforge/generation-engine/services/profile"
	"github.com/aeonforge/generation-engine/services/providers"
)

// Hints carries the routing inputs for scoring
type Hints struct {
	Profile profile.Profile

	// ExpectedInputTokens and ExpectedOutputTokens bound the context-window
	// fit check; zero values fall back to conservative defaults
	ExpectedInputTokens  int
	ExpectedOutputTokens int
}

// Candidate is one (backend, model) pair eligible to serve a request
type Candidate struct {
	Model catalog.ModelDescriptor
	Score float64
}

// Selector scores and ranks catalog models against a classified profile
type Selector struct {
	// MaxAttempts bounds the shortlist length (echo not counted)
	MaxAttempts int

	// AllowReasoning rewards reasoning-capable models; when unset they are
	// heavily penalized to keep costs down
	AllowReasoning bool
}

// NewSelector creates a candidate selector
func NewSelector(maxAttempts int, allowReasoning bool) *Selector {
	if maxAttempts < 1 {
		maxAttempts = 4
	}
	return &Selector{MaxAttempts: maxAttempts, AllowReasoning: allowReasoning}
}

// Shortlist returns the top-N chat-capable candidates sorted by descending
// score, with the zero-cost echo pseudo-candidate always appended as the
// terminal fallback. The result is therefore never empty.
func (s *Selector) Shortlist(descriptors []catalog.ModelDescriptor, hints Hints) []Candidate {
	scored := make([]Candidate, 0, len(descriptors))
	for _, m := range descriptors {
		if m.Modality != catalog.ModalityChat {
			continue
		}
		scored = append(scored, Candidate{Model: m, Score: s.score(m, hints)})
	}

	// Ties resolve deterministically: free first, then cheaper, then model id
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		// secondary: free-then-cheaper among ties
		if scored[i].Model.Free != scored[j].Model.Free {
			return scored[i].Model.Free
		}
		pi := scored[i].Model.PriceIn + scored[i].Model.PriceOut
		pj := scored[j].Model.PriceIn + scored[j].Model.PriceOut
		if pi != pj {
			return pi < pj
		}
		return scored[i].Model.ID < scored[j].Model.ID
	})

	if len(scored) > s.MaxAttempts {
		scored = scored[:s.MaxAttempts]
	}

	return append(scored, Candidate{
		Model: catalog.ModelDescriptor{Backend: providers.EchoBackend, Free: true},
	})
}

const (
	freeBonus          = 1000.0
	priceWeight        = 100.0
	contextFitBonus    = 10.0
	contextMissPenalty = 50.0

	defaultPricePerTok = 5e-6
	defaultContext     = 8000
	defaultInputToks   = 1000
	defaultOutputToks  = 800
)

// score implements the profile-aware fit function. Insufficient context
// degrades rank rather than disqualifying: the cascade may still need the
// model when nothing better is available.
func (s *Selector) score(m catalog.ModelDescriptor, hints Hints) float64 {
	var score float64

	if m.Free {
		score += freeBonus
	}

	priceIn := m.PriceIn
	if priceIn == 0 && !m.Free {
		priceIn = defaultPricePerTok
	}
	priceOut := m.PriceOut
	if priceOut == 0 && !m.Free {
		priceOut = defaultPricePerTok
	}
	score -= priceWeight * (priceIn + priceOut) * perMillion

	ctx := m.ContextWindow
	if ctx == 0 {
		ctx = defaultContext
	}
	need := hints.ExpectedInputTokens + hints.ExpectedOutputTokens
	if need == 0 {
		need = defaultInputToks + defaultOutputToks
	}
	if ctx >= need {
		score += contextFitBonus
	} else {
		score -= contextMissPenalty
	}

	if hints.Profile == profile.Multilingual {
		if m.Multilingual || m.Family == catalog.FamilyQwen {
			score += 6
		} else {
			score -= 10
		}
	}

	if hints.Profile == profile.Deliberative {
		if s.AllowReasoning && m.Reasoning {
			score += 8
		} else if !s.AllowReasoning && m.Reasoning {
			score -= 20
		}
	} else if m.Reasoning {
		// avoid unnecessary expensive reasoning
		score -= 4
	}

	switch m.Family {
	case catalog.FamilyLlama:
		score += 3
	case catalog.FamilyQwen:
		score += 2
	case catalog.FamilyMixtral:
		score += 1
	}

	return score
}

// perMillion rescales per-token prices so the price weight operates on the
// same magnitude as the published per-1M price sheets
const perMillion = 1_000_000
