package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/namdevyakhya-17/psycare/internal/config"
	"github.com/namdevyakhya-17/psycare/internal/conversation"
	"github.com/namdevyakhya-17/psycare/internal/intent"
	"github.com/namdevyakhya-17/psycare/internal/localize"
	"github.com/namdevyakhya-17/psycare/pkg/logging"
)

// unavailableLLM stands in when no reply provider is configured. Every call
// reports overload so callers answer with the busy reply.
type unavailableLLM struct{}

func (unavailableLLM) Complete(context.Context, conversation.LLMRequest) (conversation.LLMResponse, error) {
	return conversation.LLMResponse{}, fmt.Errorf("bootstrap: no reply provider configured: %w", conversation.ErrProviderOverloaded)
}

// BuildReplyClient wires Gemini as primary and Bedrock as fallback. Either may
// be absent. The returned closer releases provider connections.
func BuildReplyClient(ctx context.Context, cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) (conversation.LLMClient, func() error, error) {
	if cfg == nil {
		return nil, nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	noop := func() error { return nil }

	var primary, fallback conversation.LLMClient
	closer := noop
	if strings.TrimSpace(cfg.GeminiAPIKey) != "" {
		gemini, err := conversation.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap: gemini client: %w", err)
		}
		primary = gemini
		closer = gemini.Close
	}
	if modelID := strings.TrimSpace(cfg.BedrockModelID); modelID != "" {
		fallback = conversation.NewBedrockLLMClient(bedrockruntime.NewFromConfig(awsCfg), modelID)
	}

	switch {
	case primary != nil && fallback != nil:
		logger.Info("reply provider configured", "primary", "gemini", "fallback", "bedrock")
		return conversation.NewFallbackLLMClient(primary, fallback, logger), closer, nil
	case primary != nil:
		logger.Info("reply provider configured", "primary", "gemini")
		return primary, closer, nil
	case fallback != nil:
		logger.Info("reply provider configured", "primary", "bedrock")
		return fallback, closer, nil
	default:
		logger.Warn("no reply provider configured; chat replies will report busy")
		return unavailableLLM{}, closer, nil
	}
}

// BuildCrisisClassifier returns the second-tier crisis model, or nil when
// confirmation is disabled.
func BuildCrisisClassifier(cfg *appconfig.Config, reply conversation.LLMClient, logger *logging.Logger) intent.ModelClassifier {
	if cfg == nil || !cfg.ConfirmWithModel {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}

	if cfg.CrisisClassifier == "huggingface" {
		if strings.TrimSpace(cfg.HuggingFaceAPIKey) != "" {
			logger.Info("crisis confirmation enabled", "classifier", "huggingface")
			return intent.NewHuggingFaceClassifier(cfg.HuggingFaceAPIKey, intent.WithHuggingFaceEndpoint(cfg.HuggingFaceURL))
		}
		logger.Warn("HF_API_KEY not set; confirming crises with the reply model")
	}
	if reply == nil {
		return nil
	}
	logger.Info("crisis confirmation enabled", "classifier", "llm")
	return intent.NewLLMClassifier(reply)
}

// BuildLocalizer wires Google Translate behind the best-effort adapter. With
// no API key every message passes through untranslated.
func BuildLocalizer(ctx context.Context, cfg *appconfig.Config, redisClient *redis.Client, metrics localize.FallbackObserver, logger *logging.Logger) *localize.Adapter {
	if logger == nil {
		logger = logging.Default()
	}
	opts := []localize.AdapterOption{localize.WithMetrics(metrics)}
	if cfg != nil && cfg.ProviderTimeout > 0 {
		opts = append(opts, localize.WithTimeout(cfg.ProviderTimeout))
	}
	if redisClient != nil && cfg != nil && cfg.TranslationCacheTTL > 0 {
		opts = append(opts, localize.WithCache(localize.NewRedisCache(redisClient, cfg.TranslationCacheTTL)))
	}

	var translator localize.Translator
	if cfg != nil && strings.TrimSpace(cfg.GoogleTranslateAPIKey) != "" {
		google, err := localize.NewGoogleTranslator(ctx, cfg.GoogleTranslateAPIKey)
		if err != nil {
			logger.Warn("translation disabled", "error", err)
		} else {
			translator = google
		}
	} else {
		logger.Warn("GOOGLE_TRANSLATE_API_KEY not set; replies stay in English")
	}
	return localize.NewAdapter(translator, logger, opts...)
}
