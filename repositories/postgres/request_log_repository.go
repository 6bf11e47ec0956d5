package postgres

import (
	"context"
	"fmt"

	"github.com/aeonforge/generation-engine/models"
	"github.com/aeonforge/generation-engine/repositories"
	"go.uber.org/zap"
)

// RequestLogRepository implements repositories.RequestLogRepository
type RequestLogRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewRequestLogRepository creates a new request-log repository
func NewRequestLogRepository(db *DB, logger *zap.Logger) repositories.RequestLogRepository {
	return &RequestLogRepository{
		db:     db,
		logger: logger,
	}
}

// Insert stores one request-log entry
func (r *RequestLogRepository) Insert(ctx context.Context, log *models.RequestLog) error {
	query := `
		INSERT INTO request_logs (
			id, user_id, backend, tokens_in, tokens_out, latency_ms, success, cost_usd, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
	`

	_, err := r.db.ExecContext(ctx, query,
		log.ID,
		log.UserID,
		log.Backend,
		log.TokensIn,
		log.TokensOut,
		log.LatencyMs,
		log.Success,
		log.CostUSD,
		log.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert request log: %w", err)
	}

	r.logger.Debug("request log inserted",
		zap.String("id", log.ID.String()),
		zap.String("backend", log.Backend))
	return nil
}

// ListByUser returns the most recent entries for a user, newest first
func (r *RequestLogRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*models.RequestLog, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, user_id, backend, tokens_in, tokens_out, latency_ms, success, cost_usd, created_at
		FROM request_logs
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list request logs: %w", err)
	}
	defer rows.Close()

	var logs []*models.RequestLog
	for rows.Next() {
		log := &models.RequestLog{}
		if err := rows.Scan(
			&log.ID,
			&log.UserID,
			&log.Backend,
			&log.TokensIn,
			&log.TokensOut,
			&log.LatencyMs,
			&log.Success,
			&log.CostUSD,
			&log.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan request log: %w", err)
		}
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate request logs: %w", err)
	}

	return logs, nil
}
