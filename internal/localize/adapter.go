package localize

import (
	"context"
	"strings"
	"time"

	"github.com/namdevyakhya-17/psycare/pkg/logging"
)

// DefaultLang is the language replies are authored in.
const DefaultLang = "en"

// FallbackObserver records that translation was skipped after a failure.
type FallbackObserver interface {
	ObserveFallback(provider string)
}

// Adapter is a best-effort translator: failures return the original text.
type Adapter struct {
	translator Translator
	cache      Cache
	timeout    time.Duration
	metrics    FallbackObserver
	logger     *logging.Logger
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithCache enables caching of successful translations.
func WithCache(cache Cache) AdapterOption {
	return func(a *Adapter) { a.cache = cache }
}

// WithTimeout bounds each provider call.
func WithTimeout(timeout time.Duration) AdapterOption {
	return func(a *Adapter) { a.timeout = timeout }
}

// WithMetrics records fallbacks.
func WithMetrics(metrics FallbackObserver) AdapterOption {
	return func(a *Adapter) { a.metrics = metrics }
}

// NewAdapter creates an Adapter. A nil translator makes every call a no-op.
func NewAdapter(translator Translator, logger *logging.Logger, opts ...AdapterOption) *Adapter {
	if logger == nil {
		logger = logging.Default()
	}
	a := &Adapter{translator: translator, logger: logger}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Translate returns text in lang, or text unchanged when lang is unset, the
// default, or the provider fails. It never returns an error.
func (a *Adapter) Translate(ctx context.Context, text, lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if a == nil || lang == "" || lang == DefaultLang || strings.TrimSpace(text) == "" {
		return text
	}
	if a.translator == nil {
		a.fallback("translator not configured", nil, lang)
		return text
	}

	if a.cache != nil {
		if cached, ok, err := a.cache.Get(ctx, lang, text); err != nil {
			a.logger.Debug("translation cache read failed", "error", err)
		} else if ok {
			return cached
		}
	}

	callCtx := ctx
	if a.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	translated, err := a.translator.Translate(callCtx, text, lang)
	if err != nil || strings.TrimSpace(translated) == "" {
		a.fallback("translation failed, returning original text", err, lang)
		return text
	}

	if a.cache != nil {
		if err := a.cache.Set(ctx, lang, text, translated); err != nil {
			a.logger.Debug("translation cache write failed", "error", err)
		}
	}
	return translated
}

func (a *Adapter) fallback(msg string, err error, lang string) {
	if err != nil {
		a.logger.Warn(msg, "lang", lang, "error", err)
	} else {
		a.logger.Warn(msg, "lang", lang)
	}
	if a.metrics != nil {
		a.metrics.ObserveFallback("translate")
	}
}
