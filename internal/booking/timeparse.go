package booking

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

var isoTimestampPattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}(?::\d{2}(?:\.\d+)?)?(?:Z|[+-]\d{2}:?\d{2})?`)

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// TimeParser extracts the first appointment time mentioned in free text.
// Zone-less times are read in the booking location.
type TimeParser struct {
	loc    *time.Location
	parser *when.Parser
}

// NewTimeParser builds a parser for English natural-language dates.
func NewTimeParser(loc *time.Location) *TimeParser {
	if loc == nil {
		loc = time.UTC
	}
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return &TimeParser{loc: loc, parser: w}
}

// Location returns the zone used for zone-less times.
func (p *TimeParser) Location() *time.Location {
	return p.loc
}

// Parse returns the first timestamp found in text, normalized to UTC and
// truncated to the minute. ISO timestamps take precedence over phrases.
// Times before now are discarded.
func (p *TimeParser) Parse(text string, now time.Time) (time.Time, bool) {
	t, _, ok := p.find(text, now)
	return t, ok
}

// ParseFollowUp is Parse for messages that carry a time and nothing else
// beyond filler such as "at 3pm please" or "book it for tomorrow 5pm".
func (p *TimeParser) ParseFollowUp(text string, now time.Time) (time.Time, bool) {
	t, rest, ok := p.find(text, now)
	if !ok || !onlyFiller(rest) {
		return time.Time{}, false
	}
	return t, true
}

// find returns the parsed time and the text left once the time phrase is cut out.
func (p *TimeParser) find(text string, now time.Time) (time.Time, string, bool) {
	t, rest, ok := p.parseISO(text)
	if !ok {
		res, err := p.parser.Parse(text, now.In(p.loc))
		if err != nil || res == nil || res.Index < 0 || res.Index+len(res.Text) > len(text) {
			return time.Time{}, "", false
		}
		t = res.Time
		rest = text[:res.Index] + " " + text[res.Index+len(res.Text):]
	}
	t = normalize(t)
	if t.Before(normalize(now)) {
		return time.Time{}, "", false
	}
	return t, rest, true
}

func (p *TimeParser) parseISO(text string) (time.Time, string, bool) {
	loc := isoTimestampPattern.FindStringIndex(text)
	if loc == nil {
		return time.Time{}, "", false
	}
	candidate := strings.TrimSpace(text[loc[0]:loc[1]])
	for _, layout := range isoLayouts {
		if t, err := time.ParseInLocation(layout, candidate, p.loc); err == nil {
			return t, text[:loc[0]] + " " + text[loc[1]:], true
		}
	}
	return time.Time{}, "", false
}

var fillerWords = map[string]struct{}{
	"a": {}, "about": {}, "an": {}, "and": {}, "around": {}, "at": {}, "book": {},
	"by": {}, "can": {}, "do": {}, "does": {}, "fine": {}, "for": {}, "from": {},
	"good": {}, "how": {}, "i": {}, "in": {}, "is": {}, "it": {}, "let's": {},
	"lets": {}, "make": {}, "maybe": {}, "me": {}, "ok": {}, "okay": {}, "on": {},
	"please": {}, "pls": {}, "reserve": {}, "schedule": {}, "slot": {}, "sure": {},
	"thanks": {}, "that": {}, "the": {}, "then": {}, "what": {}, "works": {},
	"yes": {},
}

func onlyFiller(text string) bool {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
	for _, w := range words {
		if _, ok := fillerWords[w]; !ok {
			return false
		}
	}
	return true
}

func normalize(t time.Time) time.Time {
	return t.UTC().Truncate(time.Minute)
}
