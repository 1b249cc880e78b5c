// Package extract holds the deterministic field parsers used by the dialogue
// stages, plus the fallback chain that escalates to the language-model
// capability when pattern matching fails.
package extract

import (
	"context"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Insurance is the triple collected during insurance_collection. Empty
// strings mean "not extracted"; callers must never overwrite a filled field
// with an empty one.
type Insurance struct {
	Carrier     string
	MemberID    string
	GroupNumber string
}

// Capability is the external language-model extraction collaborator. Failures
// are treated by callers as "no extraction", never as fatal.
type Capability interface {
	ExtractNames(ctx context.Context, text string) (first, last string, found bool, err error)
	ExtractInsurance(ctx context.Context, text string) (Insurance, error)
}

var namePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bi am\s+([A-Za-z]+)(?:\s+([A-Za-z]+))?\b`),
	regexp.MustCompile(`(?i)\bi'm\s+([A-Za-z]+)(?:\s+([A-Za-z]+))?\b`),
	regexp.MustCompile(`(?i)\bmy name is\s+([A-Za-z]+)(?:\s+([A-Za-z]+))?\b`),
	regexp.MustCompile(`(?i)\bthis is\s+([A-Za-z]+)(?:\s+([A-Za-z]+))?\b`),
}

// stopWords are tokens that look like names to the capitalized-token
// heuristic but never are: pronouns, prepositions, articles, and the verbs
// that show up in scheduling requests.
var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "or": {}, "but": {}, "in": {}, "on": {}, "at": {},
	"to": {}, "for": {}, "of": {}, "with": {}, "by": {}, "from": {}, "up": {},
	"about": {}, "into": {}, "through": {}, "during": {}, "before": {},
	"after": {}, "above": {}, "below": {}, "between": {}, "among": {},
	"this": {}, "that": {}, "these": {}, "those": {}, "i": {}, "you": {},
	"he": {}, "she": {}, "it": {}, "we": {}, "they": {}, "me": {}, "him": {},
	"her": {}, "us": {}, "them": {}, "my": {}, "your": {}, "his": {},
	"its": {}, "our": {}, "their": {}, "am": {}, "is": {}, "was": {},
	"were": {}, "here": {}, "there": {},
	"like": {}, "want": {}, "need": {}, "book": {}, "cancel": {},
	"schedule": {}, "appointment": {}, "doctor": {}, "dr": {},
}

// acknowledgements are short replies that carry no field content; the name
// resolver ignores them instead of accepting them as a name.
var acknowledgements = map[string]struct{}{
	"okay": {}, "sure": {}, "yes": {}, "no": {}, "ok": {}, "yeah": {},
	"yep": {}, "alright": {}, "fine": {},
}

// IsAcknowledgement reports whether text is a bare non-informative reply.
func IsAcknowledgement(text string) bool {
	_, ok := acknowledgements[strings.ToLower(strings.TrimSpace(text))]
	return ok
}

// IsStopWord reports whether the token is excluded from name extraction.
func IsStopWord(token string) bool {
	_, ok := stopWords[strings.ToLower(token)]
	return ok
}

// MatchName tries the fixed patterns, then scans for two adjacent
// capitalized non-stop-word tokens. Returns ok=false when nothing matched;
// last may be empty when only a first name was found.
func MatchName(text string) (first, last string, ok bool) {
	for _, re := range namePatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		first = m[1]
		if len(m) > 2 {
			last = m[2]
		}
		if looksLikeName(first) && !IsStopWord(first) {
			if last != "" && (!looksLikeName(last) || IsStopWord(last)) {
				last = ""
			}
			return title(first), title(last), true
		}
		first, last = "", ""
	}

	words := strings.Fields(text)
	for i := 0; i+1 < len(words); i++ {
		w1, w2 := strings.Trim(words[i], ".,!?"), strings.Trim(words[i+1], ".,!?")
		if isCapitalizedName(w1) && isCapitalizedName(w2) && !IsStopWord(w1) && !IsStopWord(w2) {
			return w1, w2, true
		}
	}

	return "", "", false
}

func looksLikeName(word string) bool {
	if len(word) < 2 {
		return false
	}
	for _, r := range word {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}

func isCapitalizedName(word string) bool {
	return looksLikeName(word) && word[0] >= 'A' && word[0] <= 'Z'
}

func title(word string) string {
	if word == "" {
		return ""
	}
	return strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
}

// dateLayouts are tried in order; first match wins.
var dateLayouts = []string{
	"01/02/2006", // MM/DD/YYYY
	"01-02-2006",
	"2006-01-02", // ISO
	"02/01/2006", // DD/MM/YYYY
	"02-01-2006",
}

// NormalizeDate converts common calendar-date spellings to YYYY-MM-DD. On
// total failure the raw trimmed input is returned; downstream identity
// lookups on an unparsed string simply match nothing.
func NormalizeDate(text string) string {
	trimmed := strings.TrimSpace(text)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return trimmed
}

var emailRE = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)

// ExtractEmail pulls an address out of free text, falling back to the raw
// trimmed input when nothing matches.
func ExtractEmail(text string) string {
	if m := emailRE.FindString(text); m != "" {
		return m
	}
	return strings.TrimSpace(text)
}

// NameResolver runs the name fallback chain: pattern match, capitalized-token
// heuristic, language-model capability, raw acceptance. The final strategy
// always produces a value, so the resolver returns ok=false only for
// acknowledgements. Accepting the raw input as a first name is a deliberate
// recall-over-precision trade-off.
type NameResolver struct {
	capability Capability
	logger     *zap.Logger
}

func NewNameResolver(capability Capability, logger *zap.Logger) *NameResolver {
	return &NameResolver{capability: capability, logger: logger}
}

type nameStrategy func(ctx context.Context, text string) (first, last string, ok bool)

func (r *NameResolver) Resolve(ctx context.Context, text string) (first, last string, ok bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || IsAcknowledgement(trimmed) {
		return "", "", false
	}

	strategies := []nameStrategy{
		func(_ context.Context, s string) (string, string, bool) { return MatchName(s) },
		r.fromCapability,
		func(_ context.Context, s string) (string, string, bool) { return s, "", true },
	}

	for _, strategy := range strategies {
		if first, last, ok = strategy(ctx, trimmed); ok {
			return first, last, true
		}
	}
	return "", "", false
}

func (r *NameResolver) fromCapability(ctx context.Context, text string) (string, string, bool) {
	if r.capability == nil {
		return "", "", false
	}

	first, last, found, err := r.capability.ExtractNames(ctx, text)
	if err != nil {
		r.logger.Warn("name extraction capability failed", zap.Error(err))
		return "", "", false
	}
	if !found || len(first) < 2 || IsStopWord(first) {
		return "", "", false
	}
	return first, last, true
}
