package catalog

import "strings"

// Family groups models by architecture lineage for routing nudges
type Family string

const (
	FamilyLlama    Family = "llama"
	FamilyQwen     Family = "qwen"
	FamilyMixtral  Family = "mixtral"
	FamilyGemma    Family = "gemma"
	FamilyDeepseek Family = "deepseek"
	FamilyOther    Family = "other"
)

// Modality is the coarse capability class of a model
type Modality string

const (
	ModalityChat       Modality = "chat"
	ModalityEmbed      Modality = "embed"
	ModalityModeration Modality = "moderation"
	ModalityImage      Modality = "image"
	ModalityAudio      Modality = "audio"
	ModalityOther      Modality = "other"
)

// ModelDescriptor is the read-only metadata for one backend model.
// Prices are dollars per token. A zero ContextWindow means unknown; the
// selector substitutes a conservative default.
type ModelDescriptor struct {
	ID            string
	Backend       string // backend family that serves it ("remote", "local")
	Family        Family
	Modality      Modality
	ContextWindow int
	PriceIn       float64
	PriceOut      float64
	Multilingual  bool
	Reasoning     bool
	Free          bool
}

// familyFromID guesses the family from the model id
func familyFromID(id string) Family {
	s := strings.ToLower(id)
	switch {
	case strings.Contains(s, "llama"):
		return FamilyLlama
	case strings.Contains(s, "qwen"):
		return FamilyQwen
	case strings.Contains(s, "mixtral") || strings.Contains(s, "mistral"):
		return FamilyMixtral
	case strings.Contains(s, "gemma"):
		return FamilyGemma
	case strings.Contains(s, "deepseek"):
		return FamilyDeepseek
	default:
		return FamilyOther
	}
}

// modalityFromID guesses the modality from the model id
func modalityFromID(id string) Modality {
	s := strings.ToLower(id)
	switch {
	case strings.Contains(s, "embed") || strings.Contains(s, "bge") || strings.Contains(s, "retrieval"):
		return ModalityEmbed
	case strings.Contains(s, "guard") || strings.Contains(s, "moderation"):
		return ModalityModeration
	case strings.Contains(s, "whisper") || strings.Contains(s, "audio") || strings.Contains(s, "sonic"):
		return ModalityAudio
	case strings.Contains(s, "flux") || strings.Contains(s, "image") || strings.Contains(s, "diffusion"):
		return ModalityImage
	case strings.Contains(s, "llama") || strings.Contains(s, "qwen") ||
		strings.Contains(s, "mixtral") || strings.Contains(s, "mistral") ||
		strings.Contains(s, "deepseek") || strings.Contains(s, "gemma"):
		return ModalityChat
	default:
		return ModalityOther
	}
}
