package handlers

import (
	"net/http"

	"github.com/aeonforge/generation-engine/services/catalog"
	"github.com/aeonforge/generation-engine/services/profile"
	"github.com/aeonforge/generation-engine/utils"
	"go.uber.org/zap"
)

// ModelAlias is a routable generation mode. Concrete model identifiers stay
// internal; clients only ever see aliases and coarse backend families.
type ModelAlias struct {
	Alias       string `json:"alias"`
	Description string `json:"description"`
}

// ModelsResponse lists the aliases clients may request
type ModelsResponse struct {
	Aliases        []ModelAlias `json:"aliases"`
	CloudAvailable bool         `json:"cloud_available"`
}

// ModelsHandler serves the alias listing
type ModelsHandler struct {
	catalog *catalog.Cache
	logger  *zap.Logger
}

// NewModelsHandler creates a new ModelsHandler
func NewModelsHandler(cat *catalog.Cache, logger *zap.Logger) *ModelsHandler {
	return &ModelsHandler{
		catalog: cat,
		logger:  logger,
	}
}

// HandleListModels handles GET /v1/models
func (h *ModelsHandler) HandleListModels(w http.ResponseWriter, r *http.Request) {
	descriptors := h.catalog.Get(r.Context(), false)

	cloud := false
	for _, d := range descriptors {
		if d.Backend == "remote" {
			cloud = true
			break
		}
	}

	_ = utils.WriteOK(w, ModelsResponse{
		Aliases: []ModelAlias{
			{Alias: string(profile.General), Description: "Balanced default for everyday questions"},
			{Alias: string(profile.LongForm), Description: "Segmented long-form writing"},
			{Alias: string(profile.Deliberative), Description: "Step-by-step reasoning"},
			{Alias: string(profile.Coding), Description: "Code generation and review"},
			{Alias: string(profile.Multilingual), Description: "Non-English and translation work"},
		},
		CloudAvailable: cloud,
	})
}
