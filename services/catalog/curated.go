package catalog

// curatedEntry patches a live catalog entry. Zero-valued fields defer to the
// live data; set fields win. Prices are dollars per 1M tokens here and are
// normalized to per-token on overlay, which keeps the table readable against
// the provider's published price sheets.
type curatedEntry struct {
	Family        Family
	Modality      Modality
	ContextWindow int
	PricePerMIn   float64
	PricePerMOut  float64
	Multilingual  bool
	Reasoning     bool
	Free          bool
}

// curatedLibrary is the manually maintained table of known-good models.
// The live catalog fills gaps; these entries take precedence for the fields
// they define.
var curatedLibrary = map[string]curatedEntry{
	// Free tiers first
	"meta-llama/Meta-Llama-3.3-70B-Instruct-Turbo-Free": {
		Modality: ModalityChat, Family: FamilyLlama, Free: true,
	},
	"deepseek-ai/DeepSeek-R1-Distill-Llama-70B-Free": {
		Modality: ModalityChat, Family: FamilyDeepseek, Free: true, Reasoning: true,
	},

	// Efficient baselines
	"meta-llama/Meta-Llama-3.1-8B-Instruct-Turbo": {
		Modality: ModalityChat, Family: FamilyLlama, PricePerMIn: 0.18, PricePerMOut: 0.18,
	},
	"meta-llama/Meta-Llama-3.1-70B-Instruct-Turbo": {
		Modality: ModalityChat, Family: FamilyLlama, PricePerMIn: 0.88, PricePerMOut: 0.88,
	},
	"mistralai/Mistral-7B-Instruct-v0.3": {
		Modality: ModalityChat, Family: FamilyMixtral, PricePerMIn: 0.20, PricePerMOut: 0.20,
	},
	"mistralai/Mixtral-8x7B-Instruct-v0.1": {
		Modality: ModalityChat, Family: FamilyMixtral, PricePerMIn: 0.60, PricePerMOut: 0.60,
	},
	"Qwen/Qwen2.5-7B-Instruct-Turbo": {
		Modality: ModalityChat, Family: FamilyQwen, PricePerMIn: 0.30, PricePerMOut: 0.30, Multilingual: true,
	},
	"Qwen/Qwen2.5-72B-Instruct-Turbo": {
		Modality: ModalityChat, Family: FamilyQwen, PricePerMIn: 1.20, PricePerMOut: 1.20, Multilingual: true,
	},

	// Reasoning lines
	"deepseek-ai/DeepSeek-R1-0528": {
		Modality: ModalityChat, Family: FamilyDeepseek, Reasoning: true, PricePerMIn: 3.00, PricePerMOut: 7.00,
	},
	"Qwen/Qwen3-235B-A22B-Thinking-2507-FP8": {
		Modality: ModalityChat, Family: FamilyQwen, Reasoning: true, PricePerMIn: 0.65, PricePerMOut: 3.00,
	},

	// Moderation
	"meta-llama/Llama-Guard-3-8B": {
		Modality: ModalityModeration, Family: FamilyLlama, PricePerMIn: 0.20,
	},
	"meta-llama/Llama-Guard-4-12B": {
		Modality: ModalityModeration, Family: FamilyLlama, PricePerMIn: 0.20,
	},
}

const perMillion = 1_000_000

// overlayCurated merges the curated library over live entries. Curated fields
// win; live data fills the gaps. Models present only in the curated table are
// added outright so routing works even when the live fetch returned nothing.
func overlayCurated(live []ModelDescriptor) []ModelDescriptor {
	byID := make(map[string]ModelDescriptor, len(live))
	order := make([]string, 0, len(live))
	for _, m := range live {
		if _, seen := byID[m.ID]; !seen {
			order = append(order, m.ID)
		}
		byID[m.ID] = m
	}

	for id, patch := range curatedLibrary {
		base, ok := byID[id]
		if !ok {
			base = ModelDescriptor{ID: id, Backend: "remote"}
			order = append(order, id)
		}
		if patch.Family != "" {
			base.Family = patch.Family
		} else if base.Family == "" {
			base.Family = familyFromID(id)
		}
		if patch.Modality != "" {
			base.Modality = patch.Modality
		} else if base.Modality == "" {
			base.Modality = modalityFromID(id)
		}
		if patch.ContextWindow > 0 {
			base.ContextWindow = patch.ContextWindow
		}
		if patch.PricePerMIn > 0 {
			base.PriceIn = patch.PricePerMIn / perMillion
		}
		if patch.PricePerMOut > 0 {
			base.PriceOut = patch.PricePerMOut / perMillion
		}
		base.Multilingual = base.Multilingual || patch.Multilingual
		base.Reasoning = base.Reasoning || patch.Reasoning
		base.Free = base.Free || patch.Free
		byID[id] = base
	}

	merged := make([]ModelDescriptor, 0, len(order))
	for _, id := range order {
		merged = append(merged, byID[id])
	}
	return merged
}
