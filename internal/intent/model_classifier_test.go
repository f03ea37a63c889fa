package intent

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/namdevyakhya-17/psycare/internal/conversation"
)

type stubLLM struct {
	text    string
	err     error
	lastReq conversation.LLMRequest
}

func (s *stubLLM) Complete(ctx context.Context, req conversation.LLMRequest) (conversation.LLMResponse, error) {
	s.lastReq = req
	return conversation.LLMResponse{Text: s.text}, s.err
}

func TestLLMClassifier(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		err     error
		want    Verdict
		wantErr bool
	}{
		{name: "suicidal", text: "Suicidal", want: VerdictSuicidal},
		{name: "not suicidal", text: "not suicidal", want: VerdictNotSuicidal},
		{name: "yes", text: "Yes.", want: VerdictSuicidal},
		{name: "no", text: "No", want: VerdictNotSuicidal},
		{name: "unparseable", text: "maybe", want: VerdictUnavailable},
		{name: "overloaded", err: fmt.Errorf("gemini: %w", conversation.ErrProviderOverloaded), want: VerdictUnavailable},
		{name: "hard failure", err: errors.New("invalid api key"), want: VerdictUnavailable, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &stubLLM{text: tt.text, err: tt.err}
			got, err := NewLLMClassifier(llm).Classify(context.Background(), "I want to die")
			if (err != nil) != tt.wantErr {
				t.Fatalf("unexpected error state: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
			if len(llm.lastReq.Messages) != 1 || llm.lastReq.Messages[0].Role != conversation.ChatRoleUser {
				t.Fatalf("expected a single user message, got %#v", llm.lastReq.Messages)
			}
			if llm.lastReq.MaxTokens < 256 {
				t.Fatalf("output budget %d too small for reasoning models", llm.lastReq.MaxTokens)
			}
		})
	}
}

func TestHuggingFaceClassifier(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    Verdict
		wantErr bool
	}{
		{name: "nested positive", status: 200, body: `[[{"label":"LABEL_1","score":0.97},{"label":"LABEL_0","score":0.03}]]`, want: VerdictSuicidal},
		{name: "flat negative", status: 200, body: `[{"label":"LABEL_0","score":0.8},{"label":"LABEL_1","score":0.2}]`, want: VerdictNotSuicidal},
		{name: "model loading", status: 503, body: `{"error":"Model is currently loading"}`, want: VerdictUnavailable},
		{name: "server error", status: 500, body: `{}`, want: VerdictUnavailable, wantErr: true},
		{name: "garbage", status: 200, body: `"nope"`, want: VerdictUnavailable, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("Authorization") != "Bearer hf-key" {
					t.Errorf("expected bearer token, got %q", r.Header.Get("Authorization"))
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewHuggingFaceClassifier("hf-key", WithHuggingFaceEndpoint(srv.URL), WithHTTPClient(srv.Client()))
			got, err := c.Classify(context.Background(), "I want to die")
			if (err != nil) != tt.wantErr {
				t.Fatalf("unexpected error state: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}
