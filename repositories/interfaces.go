package repositories

import (
	"context"

	"github.com/aeonforge/generation-engine/models"
)

// RequestLogRepository persists cost-ledger entries
type RequestLogRepository interface {
	// Insert stores one request-log entry
	Insert(ctx context.Context, log *models.RequestLog) error

	// ListByUser returns the most recent entries for a user, newest first
	ListByUser(ctx context.Context, userID string, limit int) ([]*models.RequestLog, error)
}
