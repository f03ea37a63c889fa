package intent

import (
	"context"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/namdevyakhya-17/psycare/pkg/logging"
)

var intentTracer = otel.Tracer("psycare/intent")

// CrisisLevel is the final crisis classification of a message.
type CrisisLevel string

const (
	CrisisNone CrisisLevel = "none"
	// CrisisCertain means the phrase match fired and was confirmed (or confirmation is off).
	CrisisCertain CrisisLevel = "certain"
	// CrisisDegraded means the phrase match fired but the confirming model could not answer.
	CrisisDegraded CrisisLevel = "degraded"
)

// Verdict is the answer of a binary suicidality classifier.
type Verdict string

const (
	VerdictSuicidal    Verdict = "suicidal"
	VerdictNotSuicidal Verdict = "not_suicidal"
	VerdictUnavailable Verdict = "unavailable"
)

// ModelClassifier confirms a phrase match with an external model.
type ModelClassifier interface {
	Classify(ctx context.Context, text string) (Verdict, error)
}

var bookingGate = regexp.MustCompile(`(?i)book|appointment|schedule|slot|reserve`)

// IsBookingRequest is the cheap keyword pre-filter for booking requests.
func IsBookingRequest(text string) bool {
	return bookingGate.MatchString(text)
}

var (
	curlyQuotes   = strings.NewReplacer("‘", "'", "’", "'", "“", "'", "”", "'")
	nonWordChars  = regexp.MustCompile(`[^\w\s'"]`)
	runsOfSpaces  = regexp.MustCompile(`\s+`)
	crisisPhrases = []*regexp.Regexp{
		regexp.MustCompile(`\bkill(ing)?\s+my\s*self\b`),
		regexp.MustCompile(`\bkill\s+myself\b`),
		regexp.MustCompile(`\bi\s+feel\s+like\s+killing\s+my\s*self\b`),
		regexp.MustCompile(`\bi\s+want\s+to\s+die\b`),
		regexp.MustCompile(`\bi\s+want\s+to\s+kill\s+myself\b`),
		regexp.MustCompile(`\bi('?m| i am)\s+going\s+to\s+kill\s+myself\b`),
		regexp.MustCompile(`\bend\s+my\s+life\b`),
		regexp.MustCompile(`\bi\s+can('?t| not)\s+go\s+on\b`),
		regexp.MustCompile(`\bsuicidal\b`),
		regexp.MustCompile(`\bi\s+wish\s+i\s+was\s+dead\b`),
		regexp.MustCompile(`\bi\s+want\s+to\s+end\s+it\b`),
		regexp.MustCompile(`\bwant\s+to\s+die\b`),
		regexp.MustCompile(`\bcommit\s+suicide\b`),
		regexp.MustCompile(`\bi\s+want\s+to\s+commit\s+suicide\b`),
	}
)

// Normalize lowercases text, folds curly quotes, blanks punctuation other than
// apostrophes and collapses whitespace.
func Normalize(text string) string {
	text = strings.ToLower(text)
	text = curlyQuotes.Replace(text)
	text = nonWordChars.ReplaceAllString(text, " ")
	text = runsOfSpaces.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// MatchesCrisisPhrase reports whether text contains one of the curated
// self-harm phrasings.
func MatchesCrisisPhrase(text string) bool {
	normalized := Normalize(text)
	if normalized == "" {
		return false
	}
	for _, re := range crisisPhrases {
		if re.MatchString(normalized) {
			return true
		}
	}
	return false
}

// FallbackObserver records that a non-critical provider was skipped.
type FallbackObserver interface {
	ObserveFallback(provider string)
}

// Detector runs the two crisis tiers. A nil model disables confirmation.
type Detector struct {
	model   ModelClassifier
	timeout time.Duration
	metrics FallbackObserver
	logger  *logging.Logger
}

// NewDetector creates a crisis detector.
func NewDetector(model ModelClassifier, timeout time.Duration, metrics FallbackObserver, logger *logging.Logger) *Detector {
	if logger == nil {
		logger = logging.Default()
	}
	return &Detector{model: model, timeout: timeout, metrics: metrics, logger: logger}
}

// Detect classifies text. The model is never consulted unless the phrase
// match fired.
func (d *Detector) Detect(ctx context.Context, text string) CrisisLevel {
	ctx, span := intentTracer.Start(ctx, "intent.detect_crisis")
	defer span.End()

	if !MatchesCrisisPhrase(text) {
		span.SetAttributes(attribute.String("crisis.level", string(CrisisNone)))
		return CrisisNone
	}
	level := d.confirm(ctx, text)
	span.SetAttributes(attribute.String("crisis.level", string(level)))
	return level
}

func (d *Detector) confirm(ctx context.Context, text string) CrisisLevel {
	if d.model == nil {
		return CrisisCertain
	}
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	verdict, err := d.model.Classify(ctx, text)
	if err != nil {
		d.logger.Warn("crisis classifier failed, using phrase match", "error", err)
		verdict = VerdictUnavailable
	}

	switch verdict {
	case VerdictSuicidal:
		return CrisisCertain
	case VerdictNotSuicidal:
		// Known risk: a model false negative suppresses escalation entirely.
		d.logger.Warn("crisis classifier overruled phrase match")
		return CrisisNone
	default:
		if d.metrics != nil {
			d.metrics.ObserveFallback("crisis_classifier")
		}
		return CrisisDegraded
	}
}
