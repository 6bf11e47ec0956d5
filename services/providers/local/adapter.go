// Package local implements the providers.Client contract for a locally
// hosted inference backend speaking the Ollama generate API.
package local

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aeonforge/generation-engine/config"
	"github.com/aeonforge/generation-engine/services/providers"
	"go.uber.org/zap"
)

// Backend is the backend family name of this client
const Backend = "local"

// Adapter implements providers.Client for the local backend
type Adapter struct {
	config     config.LocalConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewAdapter creates a local-inference adapter
func NewAdapter(cfg config.LocalConfig, logger *zap.Logger) *Adapter {
	if cfg.Timeout == 0 {
		cfg.Timeout = 12 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Adapter{
		config:     cfg,
		httpClient: &http.Client{},
		logger:     logger,
	}
}

// Name returns the backend family name
func (a *Adapter) Name() string {
	return Backend
}

type generateRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	Stream      bool    `json:"stream"`
	Temperature float64 `json:"temperature,omitempty"`
}

// generateResponse covers both the non-streaming response and the JSONL
// stream frames, which share field names
type generateResponse struct {
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

// Generate performs a one-shot generation call
func (a *Adapter) Generate(ctx context.Context, req *providers.Request) (*providers.Result, error) {
	resp, err := a.post(ctx, generateRequest{
		Model:       a.modelFor(req),
		Prompt:      flattenPrompt(req),
		Stream:      false,
		Temperature: req.Temperature,
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, a.statusError(resp)
	}

	var parsed generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, providers.NewProviderError(Backend, "UNMARSHAL_ERROR", "failed to decode response", resp.StatusCode, false, err)
	}

	return &providers.Result{
		Success:   true,
		Text:      parsed.Response,
		Backend:   Backend,
		Model:     a.modelFor(req),
		TokensIn:  parsed.PromptEvalCount,
		TokensOut: parsed.EvalCount,
	}, nil
}

// GenerateStream starts a streaming generation. The local backend streams
// JSON objects separated by newlines; only incremental response text is
// forwarded downstream.
func (a *Adapter) GenerateStream(ctx context.Context, req *providers.Request) (*providers.Stream, error) {
	resp, err := a.post(ctx, generateRequest{
		Model:       a.modelFor(req),
		Prompt:      flattenPrompt(req),
		Stream:      true,
		Temperature: req.Temperature,
	})
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, a.statusError(resp)
	}

	chunks := make(chan string)
	stream := providers.NewStream(Backend, a.modelFor(req), chunks)

	go func() {
		defer close(chunks)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			var frame generateResponse
			if err := json.Unmarshal([]byte(line), &frame); err != nil {
				continue
			}
			if frame.Response != "" {
				select {
				case chunks <- frame.Response:
				case <-ctx.Done():
					stream.SetErr(ctx.Err())
					return
				}
			}
			if frame.Done {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			stream.SetErr(providers.NewProviderError(Backend, "STREAM_ERROR", "stream read failed", 0, false, err))
		}
	}()

	return stream, nil
}

func (a *Adapter) modelFor(req *providers.Request) string {
	if req.Model != "" {
		return req.Model
	}
	return a.config.Model
}

// flattenPrompt renders the chat exchange as a single prompt; the generate
// endpoint is prompt-based for maximum compatibility across local models
func flattenPrompt(req *providers.Request) string {
	var b strings.Builder
	if req.System != "" {
		b.WriteString(req.System)
		b.WriteString("\n\n")
	}
	for _, m := range req.History {
		b.WriteString(string(m.Role))
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	b.WriteString("user: ")
	b.WriteString(req.UserText)
	b.WriteString("\nassistant:")
	return b.String()
}

func (a *Adapter) post(ctx context.Context, body generateRequest) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, providers.NewProviderError(Backend, "MARSHAL_ERROR", "failed to marshal request", 0, false, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.BaseURL+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return nil, providers.NewProviderError(Backend, "REQUEST_ERROR", "failed to create request", 0, false, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, providers.NewProviderError(Backend, "HTTP_ERROR", "HTTP request failed", 0, true, err)
	}
	return resp, nil
}

func (a *Adapter) statusError(resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return providers.NewProviderError(
		Backend,
		"HTTP_STATUS",
		fmt.Sprintf("local backend returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))),
		resp.StatusCode,
		resp.StatusCode >= 500,
		nil,
	)
}
