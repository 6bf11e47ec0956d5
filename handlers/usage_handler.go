package handlers

import (
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/aeonforge/generation-engine/middleware"
	"github.com/aeonforge/generation-engine/repositories"
	"github.com/aeonforge/generation-engine/utils"
)

const (
	defaultUsageLimit = 50
	maxUsageLimit     = 200
)

// UsageEntry is one cost-ledger row as exposed to the requesting user.
// Backend carries only the backend family, never a model id.
type UsageEntry struct {
	Backend   string    `json:"backend"`
	TokensIn  int       `json:"tokens_in"`
	TokensOut int       `json:"tokens_out"`
	CostUSD   float64   `json:"cost_usd"`
	LatencyMs int       `json:"latency_ms"`
	Success   bool      `json:"success"`
	CreatedAt time.Time `json:"created_at"`
}

// UsageResponse summarizes a user's recent generation history and spend
type UsageResponse struct {
	Entries      []UsageEntry `json:"entries"`
	TotalCostUSD float64      `json:"total_cost_usd"`
}

// UsageHandler serves per-user request-log history
type UsageHandler struct {
	repo   repositories.RequestLogRepository
	logger *zap.Logger
}

// NewUsageHandler creates a usage handler. A nil repository means persistence
// is disabled and the endpoint serves an empty history.
func NewUsageHandler(repo repositories.RequestLogRepository, logger *zap.Logger) *UsageHandler {
	return &UsageHandler{
		repo:   repo,
		logger: logger,
	}
}

// HandleUsage returns the caller's recent ledger entries, newest first
func (h *UsageHandler) HandleUsage(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestIDFromContext(r.Context())

	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		_ = utils.WriteUnauthorized(w, "")
		return
	}

	if h.repo == nil {
		_ = utils.WriteOK(w, UsageResponse{Entries: []UsageEntry{}})
		return
	}

	limit := defaultUsageLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			_ = utils.WriteBadRequest(w, "limit must be a positive integer", nil)
			return
		}
		limit = parsed
	}
	if limit > maxUsageLimit {
		limit = maxUsageLimit
	}

	logs, err := h.repo.ListByUser(r.Context(), userID, limit)
	if err != nil {
		h.logger.Error("failed to list request logs",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteInternalServerError(w, "")
		return
	}

	response := UsageResponse{Entries: make([]UsageEntry, 0, len(logs))}
	for _, log := range logs {
		response.Entries = append(response.Entries, UsageEntry{
			Backend:   log.Backend,
			TokensIn:  log.TokensIn,
			TokensOut: log.TokensOut,
			CostUSD:   log.CostUSD,
			LatencyMs: log.LatencyMs,
			Success:   log.Success,
			CreatedAt: log.CreatedAt,
		})
		response.TotalCostUSD += log.CostUSD
	}

	_ = utils.WriteOK(w, response)
}
