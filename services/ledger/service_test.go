package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aeonforge/generation-engine/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// capturingRepo records inserted logs in memory
type capturingRepo struct {
	inserted []*models.RequestLog
	err      error
}

func (r *capturingRepo) Insert(ctx context.Context, log *models.RequestLog) error {
	if r.err != nil {
		return r.err
	}
	r.inserted = append(r.inserted, log)
	return nil
}

func (r *capturingRepo) ListByUser(ctx context.Context, userID string, limit int) ([]*models.RequestLog, error) {
	return r.inserted, nil
}

// strictRepo refuses inserts under an expired context, the way a real driver
// does
type strictRepo struct {
	inserted []*models.RequestLog
}

func (r *strictRepo) Insert(ctx context.Context, log *models.RequestLog) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.inserted = append(r.inserted, log)
	return nil
}

func (r *strictRepo) ListByUser(ctx context.Context, userID string, limit int) ([]*models.RequestLog, error) {
	return r.inserted, nil
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("abc"))
	assert.Equal(t, 1, EstimateTokens("abcd"))
	assert.Equal(t, 2, EstimateTokens("abcde"))
	assert.Equal(t, 25, EstimateTokens(string(make([]byte, 100))))
}

func TestCostFromTokens(t *testing.T) {
	// 1000 in at $2/1M plus 500 out at $6/1M
	cost := CostFromTokens(1000, 500, 2e-6, 6e-6)
	assert.Equal(t, 0.005, cost)

	assert.Zero(t, CostFromTokens(0, 0, 1e-6, 1e-6))
	assert.Zero(t, CostFromTokens(-5, -5, 1e-6, 1e-6))

	// rounding holds to six decimals
	assert.Equal(t, 0.000001, CostFromTokens(1, 0, 1.4e-6, 0))
}

func TestService_Record(t *testing.T) {
	t.Run("persists with estimated tokens", func(t *testing.T) {
		repo := &capturingRepo{}
		s := NewService(repo, nil, zap.NewNop())

		s.Record(context.Background(), Entry{
			UserID:     "user-1",
			Backend:    "local",
			InputText:  "12345678",     // 2 tokens
			OutputText: "123456789012", // 3 tokens
			Latency:    1500 * time.Millisecond,
			Success:    true,
		})

		require.Len(t, repo.inserted, 1)
		log := repo.inserted[0]
		assert.Equal(t, "user-1", log.UserID)
		assert.Equal(t, "local", log.Backend)
		assert.Equal(t, 2, log.TokensIn)
		assert.Equal(t, 3, log.TokensOut)
		assert.Equal(t, 1500, log.LatencyMs)
		assert.True(t, log.Success)
		assert.NotEqual(t, "", log.ID.String())
	})

	t.Run("reported token counts win over estimates", func(t *testing.T) {
		repo := &capturingRepo{}
		s := NewService(repo, nil, zap.NewNop())

		s.Record(context.Background(), Entry{
			Backend:   "local",
			TokensIn:  42,
			TokensOut: 7,
			InputText: "this text is ignored when counts are reported",
		})

		require.Len(t, repo.inserted, 1)
		assert.Equal(t, 42, repo.inserted[0].TokensIn)
		assert.Equal(t, 7, repo.inserted[0].TokensOut)
	})

	t.Run("remote backend stored as cloud", func(t *testing.T) {
		repo := &capturingRepo{}
		s := NewService(repo, nil, zap.NewNop())

		s.Record(context.Background(), Entry{Backend: "remote"})

		require.Len(t, repo.inserted, 1)
		assert.Equal(t, "cloud", repo.inserted[0].Backend)
	})

	t.Run("echo backend stored as-is", func(t *testing.T) {
		repo := &capturingRepo{}
		s := NewService(repo, nil, zap.NewNop())

		s.Record(context.Background(), Entry{Backend: "echo"})

		require.Len(t, repo.inserted, 1)
		assert.Equal(t, "echo", repo.inserted[0].Backend)
	})

	t.Run("nil repository tolerated", func(t *testing.T) {
		s := NewService(nil, nil, zap.NewNop())
		assert.NotPanics(t, func() {
			s.Record(context.Background(), Entry{Backend: "local"})
		})
	})

	t.Run("insert failure swallowed", func(t *testing.T) {
		repo := &capturingRepo{err: errors.New("db down")}
		s := NewService(repo, nil, zap.NewNop())
		assert.NotPanics(t, func() {
			s.Record(context.Background(), Entry{Backend: "local"})
		})
	})

	t.Run("cancelled caller context still persists", func(t *testing.T) {
		repo := &strictRepo{}
		s := NewService(repo, nil, zap.NewNop())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		s.Record(ctx, Entry{UserID: "u1", Backend: "echo", OutputText: "partial output"})

		require.Len(t, repo.inserted, 1)
		assert.Equal(t, EstimateTokens("partial output"), repo.inserted[0].TokensOut)
	})
}
