package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aeonforge/generation-engine/config"
	"go.uber.org/zap"
)

// Source lists the authoritative model catalog.
// Implementations must be safe for concurrent use.
type Source interface {
	Fetch(ctx context.Context) ([]ModelDescriptor, error)
}

// RemoteSource fetches the catalog from the managed provider's /models
// endpoint. Absence of credentials yields an empty list, not an error.
type RemoteSource struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewRemoteSource creates a catalog source for the remote provider
func NewRemoteSource(cfg config.RemoteConfig, logger *zap.Logger) *RemoteSource {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &RemoteSource{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// catalogModel mirrors the provider's /models payload
type catalogModel struct {
	ID            string `json:"id"`
	ContextLength int    `json:"context_length"`
	Pricing       *struct {
		Prompt     *float64 `json:"prompt"`
		Completion *float64 `json:"completion"`
	} `json:"pricing"`
}

// Fetch lists available models with pricing and capability metadata.
// The curated overlay is applied by the cache, not here.
func (s *RemoteSource) Fetch(ctx context.Context) ([]ModelDescriptor, error) {
	if s.apiKey == "" {
		s.logger.Debug("no remote credentials; catalog is curated-only")
		return nil, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog endpoint returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog response: %w", err)
	}

	// The endpoint returns either a bare array or {"data": [...]}
	var raw []catalogModel
	if err := json.Unmarshal(body, &raw); err != nil {
		var wrapped struct {
			Data []catalogModel `json:"data"`
		}
		if err2 := json.Unmarshal(body, &wrapped); err2 != nil {
			return nil, fmt.Errorf("failed to decode catalog response: %w", err)
		}
		raw = wrapped.Data
	}

	models := make([]ModelDescriptor, 0, len(raw))
	for _, m := range raw {
		if m.ID == "" {
			continue
		}
		desc := ModelDescriptor{
			ID:            m.ID,
			Backend:       "remote",
			Family:        familyFromID(m.ID),
			Modality:      modalityFromID(m.ID),
			ContextWindow: m.ContextLength,
			Multilingual:  strings.Contains(strings.ToLower(m.ID), "qwen"),
			Reasoning: strings.Contains(strings.ToLower(m.ID), "r1") ||
				strings.Contains(strings.ToLower(m.ID), "think"),
		}
		if m.Pricing != nil {
			if m.Pricing.Prompt != nil {
				desc.PriceIn = *m.Pricing.Prompt / perMillion
			}
			if m.Pricing.Completion != nil {
				desc.PriceOut = *m.Pricing.Completion / perMillion
			}
			// an explicit zero price means a free tier
			if (m.Pricing.Prompt != nil && *m.Pricing.Prompt == 0) ||
				(m.Pricing.Completion != nil && *m.Pricing.Completion == 0) {
				desc.Free = true
			}
		}
		models = append(models, desc)
	}

	return models, nil
}
