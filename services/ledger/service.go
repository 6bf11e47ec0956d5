// Package ledger records per-request cost bookkeeping: token counts, chosen
// backend family, latency, and success. Figures are best-effort estimates;
// persistence failure is logged and never surfaced to the caller.
package ledger

import (
	"context"
	"math"
	"time"

	"github.com/aeonforge/generation-engine/models"
	"github.com/aeonforge/generation-engine/repositories"
	"github.com/aeonforge/generation-engine/services/catalog"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Entry is one completed generation request to record
type Entry struct {
	UserID string

	// Backend is the backend family; recorded as-is except "remote", which
	// is stored as "cloud" so exact providers stay opaque downstream
	Backend string

	// ModelID is used only for price lookup and is never persisted
	ModelID string

	// TokensIn/TokensOut are the backend-reported counts; zero means
	// unreported and the service estimates from text lengths
	TokensIn  int
	TokensOut int

	// InputText/OutputText back the token estimates
	InputText  string
	OutputText string

	Latency time.Duration
	Success bool
}

// Service computes costs and persists request logs
type Service struct {
	repo    repositories.RequestLogRepository
	catalog *catalog.Cache
	logger  *zap.Logger
}

// NewService creates a ledger service
func NewService(repo repositories.RequestLogRepository, cat *catalog.Cache, logger *zap.Logger) *Service {
	return &Service{
		repo:    repo,
		catalog: cat,
		logger:  logger,
	}
}

// persistTimeout bounds the detached ledger write
const persistTimeout = 5 * time.Second

// Record persists one ledger entry. It never returns an error: the ledger is
// a collaborator whose failure must not affect the generation path. The write
// runs on a context detached from the caller's cancellation, so a cancelled
// stream still books its partial output.
func (s *Service) Record(ctx context.Context, entry Entry) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	tokensIn := entry.TokensIn
	if tokensIn == 0 {
		tokensIn = EstimateTokens(entry.InputText)
	}
	tokensOut := entry.TokensOut
	if tokensOut == 0 {
		tokensOut = EstimateTokens(entry.OutputText)
	}

	var cost float64
	if entry.ModelID != "" && s.catalog != nil {
		priceIn, priceOut := s.catalog.PriceFor(ctx, entry.ModelID)
		cost = CostFromTokens(tokensIn, tokensOut, priceIn, priceOut)
	}

	log := &models.RequestLog{
		ID:        uuid.New(),
		UserID:    entry.UserID,
		Backend:   opaqueBackend(entry.Backend),
		TokensIn:  tokensIn,
		TokensOut: tokensOut,
		LatencyMs: int(entry.Latency.Milliseconds()),
		Success:   entry.Success,
		CostUSD:   cost,
		CreatedAt: time.Now().UTC(),
	}

	if s.repo == nil {
		return
	}
	if err := s.repo.Insert(ctx, log); err != nil {
		s.logger.Warn("failed to persist request log",
			zap.String("backend", log.Backend),
			zap.Error(err))
	}
}

// EstimateTokens approximates token count as ~4 characters per token, fast
// and good enough for guardrails.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + 3) / 4
}

// CostFromTokens computes dollar cost from per-token prices, rounded to six
// decimals to avoid long floats in storage.
func CostFromTokens(tokensIn, tokensOut int, priceIn, priceOut float64) float64 {
	if tokensIn < 0 {
		tokensIn = 0
	}
	if tokensOut < 0 {
		tokensOut = 0
	}
	cost := float64(tokensIn)*priceIn + float64(tokensOut)*priceOut
	return math.Round(cost*1e6) / 1e6
}

// opaqueBackend maps the remote family to "cloud" for storage
func opaqueBackend(backend string) string {
	if backend == "remote" {
		return "cloud"
	}
	return backend
}
