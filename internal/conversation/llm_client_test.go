package conversation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type stubConverse struct {
	out   *bedrockruntime.ConverseOutput
	err   error
	input *bedrockruntime.ConverseInput
}

func (s *stubConverse) Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	s.input = params
	return s.out, s.err
}

func TestBedrockLLMClient_Complete(t *testing.T) {
	api := &stubConverse{out: &bedrockruntime.ConverseOutput{
		Output: &brtypes.ConverseOutputMemberMessage{Value: brtypes.Message{
			Role:    brtypes.ConversationRoleAssistant,
			Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: " You are not alone. "}},
		}},
		StopReason: brtypes.StopReasonEndTurn,
		Usage:      &brtypes.TokenUsage{InputTokens: aws.Int32(10), OutputTokens: aws.Int32(4), TotalTokens: aws.Int32(14)},
	}}
	client := NewBedrockLLMClient(api, "anthropic.claude-3-haiku")

	resp, err := client.Complete(context.Background(), LLMRequest{
		System: []string{PersonaPrompt},
		Messages: []ChatMessage{
			{Role: ChatRoleUser, Content: "hi"},
			{Role: ChatRoleAssistant, Content: "hello"},
			{Role: ChatRoleUser, Content: "I feel low"},
		},
		MaxTokens: 100,
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if resp.Text != "You are not alone." {
		t.Fatalf("unexpected text %q", resp.Text)
	}
	if resp.Usage.TotalTokens != 14 {
		t.Fatalf("unexpected usage %#v", resp.Usage)
	}
	if aws.ToString(api.input.ModelId) != "anthropic.claude-3-haiku" {
		t.Fatalf("unexpected model %q", aws.ToString(api.input.ModelId))
	}
	if len(api.input.Messages) != 3 || len(api.input.System) != 1 {
		t.Fatalf("unexpected request shape: %d messages, %d system", len(api.input.Messages), len(api.input.System))
	}
}

func TestBedrockLLMClient_ThrottlingIsOverload(t *testing.T) {
	api := &stubConverse{err: &brtypes.ThrottlingException{Message: aws.String("slow down")}}
	client := NewBedrockLLMClient(api, "model")

	_, err := client.Complete(context.Background(), LLMRequest{Messages: []ChatMessage{{Role: ChatRoleUser, Content: "hi"}}})
	if !errors.Is(err, ErrProviderOverloaded) {
		t.Fatalf("expected overload, got %v", err)
	}

	api.err = errors.New("access denied")
	_, err = client.Complete(context.Background(), LLMRequest{Messages: []ChatMessage{{Role: ChatRoleUser, Content: "hi"}}})
	if err == nil || errors.Is(err, ErrProviderOverloaded) {
		t.Fatalf("expected plain failure, got %v", err)
	}
}

func TestIsGeminiOverloaded(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "503", err: &googleapi.Error{Code: http.StatusServiceUnavailable}, want: true},
		{name: "429 wrapped", err: fmt.Errorf("send: %w", &googleapi.Error{Code: http.StatusTooManyRequests}), want: true},
		{name: "400", err: &googleapi.Error{Code: http.StatusBadRequest}, want: false},
		{name: "grpc unavailable", err: status.Error(codes.Unavailable, "overloaded"), want: true},
		{name: "grpc exhausted", err: status.Error(codes.ResourceExhausted, "quota"), want: true},
		{name: "grpc invalid", err: status.Error(codes.InvalidArgument, "bad"), want: false},
		{name: "plain", err: errors.New("boom"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isGeminiOverloaded(tt.err); got != tt.want {
				t.Fatalf("isGeminiOverloaded(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestGeminiHistory_MapsRoles(t *testing.T) {
	history := geminiHistory([]ChatMessage{
		{Role: ChatRoleSystem, Content: "ignored"},
		{Role: ChatRoleUser, Content: "hi"},
		{Role: ChatRoleAssistant, Content: "hello"},
		{Role: ChatRoleUser, Content: "  "},
	})
	if len(history) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(history))
	}
	if history[0].Role != "user" || history[1].Role != "model" {
		t.Fatalf("unexpected roles %q %q", history[0].Role, history[1].Role)
	}
}

func TestFallbackLLMClient(t *testing.T) {
	req := LLMRequest{Messages: []ChatMessage{{Role: ChatRoleUser, Content: "hi"}}}

	t.Run("primary succeeds", func(t *testing.T) {
		fallback := &scriptedLLM{reply: "fallback"}
		client := NewFallbackLLMClient(&scriptedLLM{reply: "primary"}, fallback, nil)
		resp, err := client.Complete(context.Background(), req)
		if err != nil || resp.Text != "primary" {
			t.Fatalf("unexpected result %q %v", resp.Text, err)
		}
		if len(fallback.calls) != 0 {
			t.Fatal("fallback should not be called")
		}
	})

	t.Run("fallback succeeds", func(t *testing.T) {
		client := NewFallbackLLMClient(&scriptedLLM{err: errors.New("down")}, &scriptedLLM{reply: "fallback"}, nil)
		resp, err := client.Complete(context.Background(), req)
		if err != nil || resp.Text != "fallback" {
			t.Fatalf("unexpected result %q %v", resp.Text, err)
		}
	})

	t.Run("both overloaded stays overloaded", func(t *testing.T) {
		overloaded := fmt.Errorf("gemini: %w", ErrProviderOverloaded)
		client := NewFallbackLLMClient(&scriptedLLM{err: overloaded}, &scriptedLLM{err: errors.New("bedrock down")}, nil)
		_, err := client.Complete(context.Background(), req)
		if !errors.Is(err, ErrProviderOverloaded) {
			t.Fatalf("expected overload to survive join, got %v", err)
		}
	})

	t.Run("no fallback", func(t *testing.T) {
		client := NewFallbackLLMClient(&scriptedLLM{err: errors.New("down")}, nil, nil)
		if _, err := client.Complete(context.Background(), req); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestBedrockLLMClient_NormalizesRoleOrder(t *testing.T) {
	api := &stubConverse{out: &bedrockruntime.ConverseOutput{
		Output: &brtypes.ConverseOutputMemberMessage{Value: brtypes.Message{
			Role:    brtypes.ConversationRoleAssistant,
			Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: "ok"}},
		}},
	}}
	client := NewBedrockLLMClient(api, "model")

	_, err := client.Complete(context.Background(), LLMRequest{Messages: []ChatMessage{
		{Role: ChatRoleAssistant, Content: "welcome back"},
		{Role: ChatRoleUser, Content: "exams tomorrow"},
		{Role: ChatRoleUser, Content: "cannot sleep"},
	}})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if len(api.input.Messages) != 1 {
		t.Fatalf("expected one merged user message, got %d", len(api.input.Messages))
	}
	if api.input.Messages[0].Role != brtypes.ConversationRoleUser || len(api.input.Messages[0].Content) != 2 {
		t.Fatalf("unexpected merged message %+v", api.input.Messages[0])
	}

	_, err = client.Complete(context.Background(), LLMRequest{Messages: []ChatMessage{{Role: ChatRoleAssistant, Content: "hello"}}})
	if err == nil {
		t.Fatal("expected error without a user message")
	}
}
