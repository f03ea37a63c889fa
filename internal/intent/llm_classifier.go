package intent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/namdevyakhya-17/psycare/internal/conversation"
)

const classifierInstruction = `You are a safety classifier for a student mental-health service. ` +
	`Answer with exactly one of: "suicidal" or "not suicidal". Do not explain.`

// classifierMaxTokens leaves room for models that spend output tokens on
// internal reasoning before the one-word answer.
const classifierMaxTokens = 1024

// LLMClassifier asks the reply provider to confirm a phrase match.
type LLMClassifier struct {
	client conversation.LLMClient
}

// NewLLMClassifier wraps an LLM client as a suicidality classifier.
func NewLLMClassifier(client conversation.LLMClient) *LLMClassifier {
	if client == nil {
		panic("intent: llm client required")
	}
	return &LLMClassifier{client: client}
}

// Classify returns VerdictUnavailable without an error when the provider is
// overloaded, so callers treat it as a degraded confirmation.
func (c *LLMClassifier) Classify(ctx context.Context, text string) (Verdict, error) {
	resp, err := c.client.Complete(ctx, conversation.LLMRequest{
		System: []string{classifierInstruction},
		Messages: []conversation.ChatMessage{{
			Role:    conversation.ChatRoleUser,
			Content: fmt.Sprintf("Classify as \"suicidal\" or \"not suicidal\": %q", text),
		}},
		MaxTokens:   classifierMaxTokens,
		Temperature: 0,
	})
	if err != nil {
		if errors.Is(err, conversation.ErrProviderOverloaded) {
			return VerdictUnavailable, nil
		}
		return VerdictUnavailable, fmt.Errorf("intent: llm classify: %w", err)
	}
	return parseVerdict(resp.Text), nil
}

func parseVerdict(answer string) Verdict {
	answer = strings.ToLower(strings.TrimSpace(answer))
	switch {
	case answer == "":
		return VerdictUnavailable
	case strings.Contains(answer, "not suicidal"), strings.Contains(answer, "not_suicidal"), strings.HasPrefix(answer, "no"):
		return VerdictNotSuicidal
	case strings.Contains(answer, "suicid"), strings.HasPrefix(answer, "yes"):
		return VerdictSuicidal
	default:
		return VerdictUnavailable
	}
}
