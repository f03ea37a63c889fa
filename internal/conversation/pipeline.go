package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/namdevyakhya-17/psycare/pkg/logging"
)

// ErrReplyUnavailable is returned when a reply could not be produced for a
// reason other than provider overload.
var ErrReplyUnavailable = errors.New("conversation: reply unavailable")

var pipelineTracer = otel.Tracer("psycare.internal.conversation.pipeline")

// Localizer translates outbound text, returning the input unchanged on failure.
type Localizer interface {
	Translate(ctx context.Context, text, lang string) string
}

// PipelineMetrics is the subset of chat metrics the pipeline records.
type PipelineMetrics interface {
	ObserveProviderLatency(provider string, seconds float64)
	ObservePersistenceError(record string)
}

// ChatResult is the outcome of the default chat path.
type ChatResult struct {
	Reply string
	// Busy is set when the provider was overloaded and BusyReply was returned.
	Busy bool
}

// Pipeline produces persona replies grounded in the user's conversation log.
type Pipeline struct {
	llm       LLMClient
	turns     TurnStore
	localizer Localizer
	timeout   time.Duration
	maxTokens int32
	metrics   PipelineMetrics
	logger    *logging.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithLocalizer sets the reply translator.
func WithLocalizer(l Localizer) PipelineOption {
	return func(p *Pipeline) { p.localizer = l }
}

// WithProviderTimeout bounds the reply provider call.
func WithProviderTimeout(d time.Duration) PipelineOption {
	return func(p *Pipeline) { p.timeout = d }
}

// WithPipelineMetrics sets the metrics sink.
func WithPipelineMetrics(m PipelineMetrics) PipelineOption {
	return func(p *Pipeline) { p.metrics = m }
}

// NewPipeline wires the chat pipeline.
func NewPipeline(llm LLMClient, turns TurnStore, logger *logging.Logger, opts ...PipelineOption) *Pipeline {
	if llm == nil {
		panic("conversation: llm client required")
	}
	if turns == nil {
		panic("conversation: turn store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	p := &Pipeline{
		llm:       llm,
		turns:     turns,
		maxTokens: 1024,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Reply generates, persists and localizes a reply to text. Overload yields
// BusyReply with no persisted turn and a nil error.
func (p *Pipeline) Reply(ctx context.Context, userID, text, lang string) (ChatResult, error) {
	ctx, span := pipelineTracer.Start(ctx, "conversation.reply")
	defer span.End()
	span.SetAttributes(attribute.String("chat.lang", lang))

	history, err := p.turns.ListOrdered(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return ChatResult{}, fmt.Errorf("%w: load history: %w", ErrReplyUnavailable, err)
	}

	req := LLMRequest{
		System:      []string{PersonaPrompt},
		Messages:    historyMessages(history, text),
		MaxTokens:   p.maxTokens,
		Temperature: 0.7,
	}

	callCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	started := time.Now()
	resp, err := p.llm.Complete(callCtx, req)
	if p.metrics != nil {
		p.metrics.ObserveProviderLatency("reply", time.Since(started).Seconds())
	}
	if err != nil {
		if errors.Is(err, ErrProviderOverloaded) {
			p.logger.Warn("reply provider overloaded", "user_id", userID, "error", err)
			span.SetAttributes(attribute.Bool("chat.busy", true))
			return ChatResult{Reply: BusyReply, Busy: true}, nil
		}
		span.RecordError(err)
		return ChatResult{}, fmt.Errorf("%w: %w", ErrReplyUnavailable, err)
	}

	reply := strings.TrimSpace(resp.Text)
	if reply == "" {
		return ChatResult{}, fmt.Errorf("%w: empty reply", ErrReplyUnavailable)
	}

	if _, err := p.turns.Append(ctx, Turn{UserID: userID, Message: text, Reply: reply}); err != nil {
		if p.metrics != nil {
			p.metrics.ObservePersistenceError("chat_turn")
		}
		span.RecordError(err)
		return ChatResult{}, fmt.Errorf("%w: persist turn: %w", ErrReplyUnavailable, err)
	}

	if p.localizer != nil {
		reply = p.localizer.Translate(ctx, reply, lang)
	}
	return ChatResult{Reply: reply}, nil
}

// historyMessages maps stored turns to alternating user/assistant messages,
// followed by the new user message.
func historyMessages(history []Turn, text string) []ChatMessage {
	msgs := make([]ChatMessage, 0, len(history)*2+1)
	for _, t := range history {
		if t.Message != "" {
			msgs = append(msgs, ChatMessage{Role: ChatRoleUser, Content: t.Message})
		}
		if t.Reply != "" {
			msgs = append(msgs, ChatMessage{Role: ChatRoleAssistant, Content: t.Reply})
		}
	}
	return append(msgs, ChatMessage{Role: ChatRoleUser, Content: text})
}
