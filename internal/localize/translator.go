package localize

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"google.golang.org/api/option"
	translate "google.golang.org/api/translate/v2"
)

// Translator converts text into the target language.
type Translator interface {
	Translate(ctx context.Context, text, lang string) (string, error)
}

// GoogleTranslator uses the Cloud Translation v2 API.
type GoogleTranslator struct {
	svc *translate.Service
}

// NewGoogleTranslator creates a translator authenticated with an API key.
func NewGoogleTranslator(ctx context.Context, apiKey string) (*GoogleTranslator, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("localize: google translate api key is required")
	}
	svc, err := translate.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("localize: create translate service: %w", err)
	}
	return &GoogleTranslator{svc: svc}, nil
}

// Translate sends one string and returns the first translation.
func (g *GoogleTranslator) Translate(ctx context.Context, text, lang string) (string, error) {
	resp, err := g.svc.Translations.List([]string{text}, lang).Format("text").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("localize: google translate: %w", err)
	}
	if resp == nil || len(resp.Translations) == 0 {
		return "", errors.New("localize: google translate returned no translations")
	}
	return html.UnescapeString(resp.Translations[0].TranslatedText), nil
}
