// Package cascade drives generation attempts over a ranked candidate list
// with per-attempt deadlines, exponential backoff, and a terminal echo
// fallback. A generation request can never dead-end here: exhausting every
// candidate still yields a successful echo result.
package cascade

import (
	"context"
	"strings"
	"time"

	"github.com/aeonforge/generation-engine/services/providers"
	"github.com/aeonforge/generation-engine/services/selector"
	"go.uber.org/zap"
)

// Config holds cascade tunables
type Config struct {
	// AttemptTimeout is the per-candidate deadline
	AttemptTimeout time.Duration

	// BackoffBase is the base delay; attempt k waits base·2^k
	BackoffBase time.Duration
}

// Cascade executes ranked candidates against registered backend clients
type Cascade struct {
	registry *providers.Registry
	config   Config
	logger   *zap.Logger
}

// New creates a cascade over the given client registry
func New(registry *providers.Registry, config Config, logger *zap.Logger) *Cascade {
	if config.AttemptTimeout == 0 {
		config.AttemptTimeout = 15 * time.Second
	}
	if config.BackoffBase == 0 {
		config.BackoffBase = 250 * time.Millisecond
	}
	return &Cascade{
		registry: registry,
		config:   config,
		logger:   logger,
	}
}

// Generate runs the one-shot cascade: each candidate gets one bounded
// attempt; timeout, transport failure, non-2xx, and empty text all advance to
// the next candidate. The echo fallback guarantees a successful result.
func (c *Cascade) Generate(ctx context.Context, req *providers.Request, candidates []selector.Candidate) *providers.Result {
	for k, cand := range candidates {
		if k > 0 && !c.backoff(ctx, k-1) {
			break
		}

		result, err := c.attempt(ctx, req, cand)
		if err != nil {
			c.logger.Warn("candidate attempt failed",
				zap.String("backend", cand.Model.Backend),
				zap.String("model", cand.Model.ID),
				zap.Error(err))
			continue
		}
		if strings.TrimSpace(result.Text) == "" {
			c.logger.Warn("candidate returned empty text",
				zap.String("backend", cand.Model.Backend),
				zap.String("model", cand.Model.ID))
			continue
		}
		return result
	}

	// Exhausted (or cancelled before the terminal candidate ran): synthesize
	// the echo response directly so the caller still gets an answer.
	echoResult, _ := providers.NewEcho().Generate(ctx, req)
	return echoResult
}

// OpenStream runs the streaming cascade. Retries cover only the connection
// establishment step; once a candidate's stream is open, mid-stream failures
// belong to the framer, because partial output may already be visible.
func (c *Cascade) OpenStream(ctx context.Context, req *providers.Request, candidates []selector.Candidate) *providers.Stream {
	for k, cand := range candidates {
		if k > 0 && !c.backoff(ctx, k-1) {
			break
		}

		client, err := c.registry.Get(backendOf(cand))
		if err != nil {
			continue
		}

		stream, err := client.GenerateStream(ctx, c.requestFor(req, cand))
		if err != nil {
			c.logger.Warn("stream connection failed",
				zap.String("backend", cand.Model.Backend),
				zap.String("model", cand.Model.ID),
				zap.Error(err))
			continue
		}
		return stream
	}

	stream, _ := providers.NewEcho().GenerateStream(ctx, req)
	return stream
}

// attempt executes one bounded call against one candidate
func (c *Cascade) attempt(ctx context.Context, req *providers.Request, cand selector.Candidate) (*providers.Result, error) {
	client, err := c.registry.Get(backendOf(cand))
	if err != nil {
		return nil, err
	}

	attemptCtx, cancel := context.WithTimeout(ctx, c.config.AttemptTimeout)
	defer cancel()

	return client.Generate(attemptCtx, c.requestFor(req, cand))
}

// backoff waits base·2^k between attempts; it reports false when the caller
// has cancelled, which skips both the wait and any further attempts.
func (c *Cascade) backoff(ctx context.Context, k int) bool {
	if ctx.Err() != nil {
		return false
	}
	delay := c.config.BackoffBase * (1 << k)
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (c *Cascade) requestFor(req *providers.Request, cand selector.Candidate) *providers.Request {
	r := *req
	r.Model = cand.Model.ID
	return &r
}

func backendOf(cand selector.Candidate) string {
	if cand.Model.Backend == "" {
		return providers.EchoBackend
	}
	return cand.Model.Backend
}
