package intent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultHuggingFaceURL = "https://router.huggingface.co/hf-inference/models/sentinet/suicidality"
	suicidalLabel         = "LABEL_1"
)

// HuggingFaceClassifier calls a hosted text-classification model whose
// positive label marks suicidal text.
type HuggingFaceClassifier struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// HuggingFaceOption configures a HuggingFaceClassifier.
type HuggingFaceOption func(*HuggingFaceClassifier)

// WithHuggingFaceEndpoint overrides the inference URL.
func WithHuggingFaceEndpoint(endpoint string) HuggingFaceOption {
	return func(c *HuggingFaceClassifier) {
		if strings.TrimSpace(endpoint) != "" {
			c.endpoint = endpoint
		}
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) HuggingFaceOption {
	return func(c *HuggingFaceClassifier) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewHuggingFaceClassifier creates a classifier for the inference router.
func NewHuggingFaceClassifier(apiKey string, opts ...HuggingFaceOption) *HuggingFaceClassifier {
	c := &HuggingFaceClassifier{
		endpoint:   defaultHuggingFaceURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type labelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Classify posts the text and maps the top label to a verdict. A 503 (model
// loading or overloaded) is reported as VerdictUnavailable without an error.
func (c *HuggingFaceClassifier) Classify(ctx context.Context, text string) (Verdict, error) {
	payload, err := json.Marshal(map[string]string{"inputs": text})
	if err != nil {
		return VerdictUnavailable, fmt.Errorf("intent: marshal hf request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return VerdictUnavailable, fmt.Errorf("intent: build hf request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return VerdictUnavailable, fmt.Errorf("intent: hf request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return VerdictUnavailable, fmt.Errorf("intent: read hf response: %w", err)
	}
	if resp.StatusCode == http.StatusServiceUnavailable || resp.StatusCode == http.StatusTooManyRequests {
		return VerdictUnavailable, nil
	}
	if resp.StatusCode >= 400 {
		return VerdictUnavailable, fmt.Errorf("intent: hf returned status %d", resp.StatusCode)
	}

	top, err := topLabel(body)
	if err != nil {
		return VerdictUnavailable, err
	}
	if top.Label == suicidalLabel {
		return VerdictSuicidal, nil
	}
	return VerdictNotSuicidal, nil
}

// topLabel accepts both the nested ([[...]]) and flat ([...]) response shapes.
func topLabel(body []byte) (labelScore, error) {
	var scores []labelScore
	var nested [][]labelScore
	if err := json.Unmarshal(body, &nested); err == nil && len(nested) > 0 {
		scores = nested[0]
	} else if err := json.Unmarshal(body, &scores); err != nil {
		return labelScore{}, fmt.Errorf("intent: decode hf response: %w", err)
	}
	if len(scores) == 0 {
		return labelScore{}, fmt.Errorf("intent: hf response had no labels")
	}
	best := scores[0]
	for _, s := range scores[1:] {
		if s.Score > best.Score {
			best = s
		}
	}
	return best, nil
}
