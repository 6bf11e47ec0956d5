package models

import (
	"time"

	"github.com/google/uuid"
)

// RequestLog is one cost-ledger entry per generation request.
// Backend carries only the backend family ("cloud", "local", "echo"), never
// the exact model id, so model choices stay opaque to downstream consumers.
type RequestLog struct {
	ID        uuid.UUID `json:"id"`
	UserID    string    `json:"user_id"`
	Backend   string    `json:"backend"`
	TokensIn  int       `json:"tokens_in"`
	TokensOut int       `json:"tokens_out"`
	LatencyMs int       `json:"latency_ms"`
	Success   bool      `json:"success"`
	CostUSD   float64   `json:"cost_usd"`
	CreatedAt time.Time `json:"created_at"`
}
