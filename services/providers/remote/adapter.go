// Package remote implements the providers.Client contract for the managed
// remote-inference backend, an OpenAI-compatible chat completions API.
package remote

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
	"github.com/aeonforge/generation-engine/models"
	"github.com/aeonforge/generation-engine/services/providers"
	"go.uber.org/zap"
)

// Backend is the backend family name of this client
const Backend = "remote"

// Adapter implements providers.Client for the remote backend
type Adapter struct {
	config     config.RemoteConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewAdapter creates a remote-inference adapter
func NewAdapter(cfg config.RemoteConfig, logger *zap.Logger) *Adapter {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Adapter{
		config: cfg,
		// No client-level timeout: streaming responses outlive any fixed
		// deadline, and one-shot callers bound calls via context.
		httpClient: &http.Client{},
		logger:     logger,
	}
}

// Name returns the backend family name
func (a *Adapter) Name() string {
	return Backend
}

// chatRequest mirrors the provider's chat completions payload
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	TopP        float64       `json:"top_p"`
	MaxTokens   int           `json:"max_tokens"`
	Stream      bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *chatUsage `json:"usage"`
}

type streamEvent struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		Text string `json:"text"`
	} `json:"choices"`
}

// Generate performs a one-shot chat completion
func (a *Adapter) Generate(ctx context.Context, req *providers.Request) (*providers.Result, error) {
	resp, err := a.post(ctx, a.buildRequest(req, false))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, a.statusError(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, providers.NewProviderError(Backend, "READ_ERROR", "failed to read response", resp.StatusCode, true, err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, providers.NewProviderError(Backend, "UNMARSHAL_ERROR", "failed to decode response", resp.StatusCode, false, err)
	}

	result := &providers.Result{
		Success: true,
		Backend: Backend,
		Model:   parsed.Model,
	}
	if result.Model == "" {
		result.Model = req.Model
	}
	if len(parsed.Choices) > 0 {
		result.Text = parsed.Choices[0].Message.Content
	}
	if parsed.Usage != nil {
		result.TokensIn = parsed.Usage.PromptTokens
		result.TokensOut = parsed.Usage.CompletionTokens
	}

	return result, nil
}

// GenerateStream starts a streaming chat completion. The returned stream
// yields raw text deltas; SSE framing and the [DONE] terminator are consumed
// here so downstream sees plain content only.
func (a *Adapter) GenerateStream(ctx context.Context, req *providers.Request) (*providers.Stream, error) {
	resp, err := a.post(ctx, a.buildRequest(req, true))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, a.statusError(resp)
	}

	chunks := make(chan string)
	stream := providers.NewStream(Backend, req.Model, chunks)

	go func() {
		defer close(chunks)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, ":") {
				continue
			}
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if payload == "" || payload == "[DONE]" {
				continue
			}

			var event streamEvent
			if err := json.Unmarshal([]byte(payload), &event); err != nil {
				// malformed frame; skip rather than kill the stream
				continue
			}
			for _, choice := range event.Choices {
				piece := choice.Delta.Content
				if piece == "" {
					piece = choice.Text
				}
				if piece == "" {
					continue
				}
				select {
				case chunks <- piece:
				case <-ctx.Done():
					stream.SetErr(ctx.Err())
					return
				}
			}
		}
		if err := scanner.Err(); err != nil {
			stream.SetErr(providers.NewProviderError(Backend, "STREAM_ERROR", "stream read failed", 0, false, err))
		}
	}()

	return stream, nil
}

func (a *Adapter) buildRequest(req *providers.Request, stream bool) chatRequest {
	msgs := make([]chatMessage, 0, len(req.History)+2)
	if req.System != "" {
		msgs = append(msgs, chatMessage{Role: string(models.RoleSystem), Content: req.System})
	}
	for _, m := range req.History {
		msgs = append(msgs, chatMessage{Role: string(m.Role), Content: m.Content})
	}
	msgs = append(msgs, chatMessage{Role: string(models.RoleUser), Content: req.UserText})

	out := chatRequest{
		Model:       req.Model,
		Messages:    msgs,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		MaxTokens:   req.MaxTokens,
		Stream:      stream,
	}
	if out.Temperature == 0 {
		out.Temperature = 0.2
	}
	if out.TopP == 0 {
		out.TopP = 0.95
	}
	if out.MaxTokens == 0 {
		out.MaxTokens = 1024
	}
	return out
}

func (a *Adapter) post(ctx context.Context, body chatRequest) (*http.Response, error) {
	if a.config.APIKey == "" {
		return nil, providers.NewProviderError(Backend, "NO_CREDENTIALS", "remote API key not configured", 0, false, nil)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, providers.NewProviderError(Backend, "MARSHAL_ERROR", "failed to marshal request", 0, false, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, providers.NewProviderError(Backend, "REQUEST_ERROR", "failed to create request", 0, false, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+a.config.APIKey)

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, providers.NewProviderError(Backend, "HTTP_ERROR", "HTTP request failed", 0, true, err)
	}
	return resp, nil
}

func (a *Adapter) statusError(resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	retryable := resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
	return providers.NewProviderError(
		Backend,
		"HTTP_STATUS",
		fmt.Sprintf("remote backend returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))),
		resp.StatusCode,
		retryable,
		nil,
	)
}
