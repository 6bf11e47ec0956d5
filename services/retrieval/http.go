package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// HTTPRetriever queries an external context service over HTTP
type HTTPRetriever struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHTTPRetriever creates a retriever against the given endpoint
func NewHTTPRetriever(baseURL string, logger *zap.Logger) *HTTPRetriever {
	return &HTTPRetriever{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 2 * time.Second,
		},
		logger: logger,
	}
}

type retrieveRequest struct {
	UserID string `json:"user_id"`
	Query  string `json:"query"`
}

type retrieveResponse struct {
	Context string `json:"context"`
}

// Retrieve implements Retriever
func (r *HTTPRetriever) Retrieve(ctx context.Context, userID, query string) (string, error) {
	body, err := json.Marshal(retrieveRequest{UserID: userID, Query: query})
	if err != nil {
		return "", fmt.Errorf("failed to encode retrieval request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/retrieve", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create retrieval request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("retrieval request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("retrieval returned status %d", resp.StatusCode)
	}

	var parsed retrieveResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode retrieval response: %w", err)
	}
	return parsed.Context, nil
}
