// Package generation orchestrates the full pipeline for one request:
// moderation gate, context retrieval, profile classification, candidate
// selection, the cascade, incremental delivery, long-form segmentation, and
// the cost ledger. Requests always resolve to some response; hard failures
// are absorbed internally.
package generation

import (
	"context"
	"strings"
	"time"

	"github.com/aeonforge/generation-engine/config"
	"github.com/aeonforge/generation-engine/models"
	"github.com/aeonforge/generation-engine/services/cascade"
	"github.com/aeonforge/generation-engine/services/catalog"
	"github.com/aeonforge/generation-engine/services/ledger"
	"github.com/aeonforge/generation-engine/services/moderation"
	"github.com/aeonforge/generation-engine/services/profile"
	"github.com/aeonforge/generation-engine/services/prompt"
	"github.com/aeonforge/generation-engine/services/providers"
	"github.com/aeonforge/generation-engine/services/retrieval"
	"github.com/aeonforge/generation-engine/services/segment"
	"github.com/aeonforge/generation-engine/services/selector"
	"github.com/aeonforge/generation-engine/services/stream"
	"go.uber.org/zap"
)

// Request is one inbound generation request
type Request struct {
	UserID  string
	History []models.Message
	Text    string

	// Mode is an optional explicit profile hint
	Mode string

	// TargetWords, when at or above the long-form threshold, turns the
	// request into a segmented long-form generation
	TargetWords int
}

// Result is the outcome of a one-shot generation
type Result struct {
	Text     string
	Backend  string
	Profile  profile.Profile
	Segments int
}

// Service ties the pipeline together
type Service struct {
	classifier *profile.Classifier
	catalog    *catalog.Cache
	selector   *selector.Selector
	cascade    *cascade.Cascade
	moderation *moderation.Service
	retrieval  *retrieval.Service
	prompts    *prompt.Builder
	ledger     *ledger.Service
	engine     config.EngineConfig
	logger     *zap.Logger
}

// NewService creates the generation service
func NewService(
	classifier *profile.Classifier,
	cat *catalog.Cache,
	sel *selector.Selector,
	casc *cascade.Cascade,
	mod *moderation.Service,
	ret *retrieval.Service,
	prompts *prompt.Builder,
	led *ledger.Service,
	engine config.EngineConfig,
	logger *zap.Logger,
) *Service {
	return &Service{
		classifier: classifier,
		catalog:    cat,
		selector:   sel,
		cascade:    casc,
		moderation: mod,
		retrieval:  ret,
		prompts:    prompts,
		ledger:     led,
		engine:     engine,
		logger:     logger,
	}
}

// Complete resolves a request to a single synchronous result
func (s *Service) Complete(ctx context.Context, req *Request) *Result {
	start := time.Now()

	if !s.moderation.Check(ctx, req.Text).Allowed {
		s.recordBlocked(ctx, req, start)
		return &Result{Text: moderation.SafeReply, Backend: providers.EchoBackend}
	}

	p, candidates, system := s.prepare(ctx, req)

	if s.isLongForm(req) {
		return s.completeLongForm(ctx, req, p, candidates, start)
	}

	genReq := &providers.Request{
		System:   system,
		History:  req.History,
		UserText: req.Text,
	}
	result := s.cascade.Generate(ctx, genReq, candidates)
	text := strings.TrimSpace(stream.StripReasoning(result.Text))

	s.ledger.Record(ctx, ledger.Entry{
		UserID:     req.UserID,
		Backend:    result.Backend,
		ModelID:    result.Model,
		TokensIn:   result.TokensIn,
		TokensOut:  result.TokensOut,
		InputText:  system + req.Text,
		OutputText: text,
		Latency:    time.Since(start),
		Success:    result.Success,
	})

	return &Result{
		Text:     text,
		Backend:  result.Backend,
		Profile:  p,
		Segments: 1,
	}
}

// Stream resolves a request over the incremental delivery protocol. The sink
// always receives a terminal done status, even on internal failure;
// cancellation stops forwarding but final bookkeeping is still recorded with
// whatever partial text was produced.
func (s *Service) Stream(ctx context.Context, req *Request, sink stream.Sink) {
	start := time.Now()
	defer sink.Done()

	if !s.moderation.Check(ctx, req.Text).Allowed {
		sink.Status(stream.PhaseBlocked)
		sink.Data(moderation.SafeReply)
		s.recordBlocked(ctx, req, start)
		return
	}

	sink.Status(stream.PhaseRetrieving)
	p, candidates, system := s.prepare(ctx, req)
	sink.Status(stream.PhaseGenerating)

	session := &stream.Session{}
	backend := providers.EchoBackend
	modelID := ""

	defer func() {
		s.ledger.Record(ctx, ledger.Entry{
			UserID:     req.UserID,
			Backend:    backend,
			ModelID:    modelID,
			InputText:  system + req.Text,
			OutputText: session.Text(),
			Latency:    time.Since(start),
			Success:    session.Text() != "",
		})
	}()

	if s.isLongForm(req) {
		backend, modelID = s.streamLongForm(ctx, req, candidates, session, sink)
		return
	}

	genReq := &providers.Request{
		System:   system,
		History:  req.History,
		UserText: req.Text,
	}
	src := s.cascade.OpenStream(ctx, genReq, candidates)
	backend, modelID = src.Backend, src.Model
	s.pump(ctx, src, session, sink)

	s.logger.Info("stream completed",
		zap.String("backend", backend),
		zap.String("profile", string(p)),
		zap.Int("words", session.Words()))
}

// prepare runs retrieval and classification and builds the ranked shortlist
func (s *Service) prepare(ctx context.Context, req *Request) (profile.Profile, []selector.Candidate, string) {
	retrieved := s.retrieval.Context(ctx, req.UserID, req.Text)
	system := s.prompts.WithContext(s.prompts.Brief(), retrieved)

	conversation := flatten(req.History) + req.Text
	p := s.classifier.Classify(conversation, profile.Hints{
		Mode:        req.Mode,
		TargetWords: req.TargetWords,
	})

	expectedOut := 800
	if req.TargetWords > 0 {
		expectedOut = req.TargetWords * 2
	}
	candidates := s.selector.Shortlist(s.catalog.Get(ctx, false), selector.Hints{
		Profile:              p,
		ExpectedInputTokens:  ledger.EstimateTokens(system + conversation),
		ExpectedOutputTokens: expectedOut,
	})

	return p, candidates, system
}

// completeLongForm issues bounded continuation segments until the target is
// met or the segment ceiling is hit
func (s *Service) completeLongForm(ctx context.Context, req *Request, p profile.Profile, candidates []selector.Candidate, start time.Time) *Result {
	plan := s.newPlan(req)
	var accumulated strings.Builder
	backend := providers.EchoBackend
	modelID := ""

	for !plan.Done() && ctx.Err() == nil {
		genReq := s.segmentRequest(req, plan, accumulated.String())
		result := s.cascade.Generate(ctx, genReq, candidates)
		text := strings.TrimSpace(stream.StripReasoning(result.Text))

		backend, modelID = result.Backend, result.Model
		if accumulated.Len() > 0 && text != "" {
			accumulated.WriteString("\n\n")
		}
		accumulated.WriteString(text)
		plan.Record(len(strings.Fields(text)))

		if text == "" {
			// degenerate outputs make no progress; stop rather than loop
			// to the ceiling
			break
		}
		if result.Backend == providers.EchoBackend {
			// cascade exhaustion: one degraded answer, not one per segment
			break
		}
	}

	text := accumulated.String()
	s.ledger.Record(ctx, ledger.Entry{
		UserID:     req.UserID,
		Backend:    backend,
		ModelID:    modelID,
		InputText:  req.Text,
		OutputText: text,
		Latency:    time.Since(start),
		Success:    text != "",
	})

	return &Result{
		Text:     text,
		Backend:  backend,
		Profile:  p,
		Segments: plan.SegmentsIssued(),
	}
}

// streamLongForm streams each segment in turn, reporting segment-N phases
func (s *Service) streamLongForm(ctx context.Context, req *Request, candidates []selector.Candidate, session *stream.Session, sink stream.Sink) (backend, modelID string) {
	plan := s.newPlan(req)
	backend = providers.EchoBackend

	for !plan.Done() && ctx.Err() == nil {
		sink.Status(stream.SegmentPhase(plan.SegmentsIssued() + 1))

		wordsBefore := session.Words()
		genReq := s.segmentRequest(req, plan, session.Text())
		src := s.cascade.OpenStream(ctx, genReq, candidates)
		backend, modelID = src.Backend, src.Model
		s.pump(ctx, src, session, sink)

		produced := session.Words() - wordsBefore
		plan.Record(produced)
		if produced == 0 {
			break
		}
		if backend == providers.EchoBackend {
			// cascade exhaustion: one degraded answer, not one per segment
			break
		}
	}
	return backend, modelID
}

// pump forwards one backend stream through the session into the sink. On
// cancellation it stops forwarding within one select round; the session
// keeps whatever was already committed. Mid-stream source failures end the
// stream normally from the caller's point of view.
func (s *Service) pump(ctx context.Context, src *providers.Stream, session *stream.Session, sink stream.Sink) {
	for {
		select {
		case chunk, ok := <-src.Chunks:
			if !ok {
				if err := src.Err(); err != nil {
					s.logger.Warn("stream ended with error; partial output preserved",
						zap.String("backend", src.Backend),
						zap.Error(err))
				}
				sink.Data(session.Finish())
				return
			}
			sink.Data(session.Ingest(chunk))
		case <-ctx.Done():
			return
		}
	}
}

func (s *Service) segmentRequest(req *Request, plan *segment.Plan, accumulated string) *providers.Request {
	var system string
	var userText string
	if plan.SegmentsIssued() == 0 {
		system = s.prompts.LongForm(plan.OpeningPrompt())
		userText = req.Text
	} else {
		system = s.prompts.LongForm(plan.ContinuationPrompt(accumulated))
		userText = req.Text
	}
	return &providers.Request{
		System:    system,
		UserText:  userText,
		MaxTokens: maxTokensForWords(plan.NextBudget()),
	}
}

func (s *Service) newPlan(req *Request) *segment.Plan {
	return segment.NewPlan(
		req.TargetWords,
		s.engine.MaxSegmentWords,
		s.engine.MaxSegments,
		s.engine.SegmentAnchorChars,
	)
}

func (s *Service) isLongForm(req *Request) bool {
	return req.TargetWords >= s.engine.LongFormThreshold && req.TargetWords > 0
}

func (s *Service) recordBlocked(ctx context.Context, req *Request, start time.Time) {
	// Blocked requests record a zero-cost, zero-token entry; no generation
	// backend ran, so the entry carries the same family the safe reply
	// reports
	s.ledger.Record(ctx, ledger.Entry{
		UserID:  req.UserID,
		Backend: providers.EchoBackend,
		Latency: time.Since(start),
		Success: true,
	})
}

func flatten(history []models.Message) string {
	var b strings.Builder
	for _, m := range history {
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	return b.String()
}

// maxTokensForWords sizes the per-segment token cap from a word budget;
// roughly two tokens per word leaves headroom for markup
func maxTokensForWords(words int) int {
	tokens := words * 2
	if tokens < 256 {
		tokens = 256
	}
	if tokens > 4096 {
		tokens = 4096
	}
	return tokens
}
