// Package parser normalizes the two transport-specific webhook shapes into
// one InboundMessage and classifies coarse intent for telemetry (§4.G).
package parser

import (
	"strings"
	"time"
)

// InboundMessage is the transport-agnostic shape the handler pipeline
// consumes. Metadata carries the identifiers only some transports provide.
type InboundMessage struct {
	Transport   string
	MessageID   string
	UserID      string
	Text        string
	FromMe      bool
	IsGroup     bool
	IsBroadcast bool
	Timestamp   time.Time
	Metadata    Metadata
}

type Metadata struct {
	AltID    string
	Phone    string
	PushName string
}

// Intent is a heuristic classification used only for logging and
// branch-refinement telemetry. Dispatch in the handler pipeline never
// depends on it (§9 Design Notes).
type Intent string

const (
	IntentGreeting     Intent = "greeting"
	IntentOptionSelect Intent = "option_select"
	IntentQuestion     Intent = "question"
	IntentFormResponse Intent = "form_response"
	IntentUnknown      Intent = "unknown"
)

var greetingWords = []string{
	"hi", "hello", "halo", "hai", "selamat", "salam", "hey", "pagi", "siang", "sore", "malam",
}

var interrogativeWords = []string{
	"apa", "bagaimana", "gimana", "berapa", "kapan", "dimana", "siapa", "mengapa", "kenapa",
	"what", "how", "when", "where", "who", "why",
}

var formKeywords = []string{
	"nama", "biodata", "domisili", "sumber", "source", "dari", "info",
	"jenis bisnis", "tipe bisnis", "bisnis", "budget", "anggaran", "modal", "dana",
	"kapan", "mulai", "start", "timeline", "rencana",
}

// DetectIntent classifies free text using the case-insensitive heuristics of
// §4.G: a single digit 1-9 is an option select, a leading greeting word is a
// greeting, a trailing '?' or leading interrogative is a question, two or
// more form keywords (or any newline, once nothing else matched) is a form
// response, and everything else is unknown.
func DetectIntent(text string) Intent {
	trimmed := strings.TrimSpace(text)
	lower := strings.ToLower(trimmed)

	if len(trimmed) == 1 && trimmed[0] >= '1' && trimmed[0] <= '9' {
		return IntentOptionSelect
	}

	for _, w := range greetingWords {
		if startsWithWord(lower, w) {
			return IntentGreeting
		}
	}

	if strings.HasSuffix(trimmed, "?") {
		return IntentQuestion
	}
	for _, w := range interrogativeWords {
		if startsWithWord(lower, w) {
			return IntentQuestion
		}
	}

	if countKeywordHits(lower, formKeywords) >= 2 {
		return IntentFormResponse
	}
	if strings.Contains(text, "\n") {
		return IntentFormResponse
	}

	return IntentUnknown
}

func startsWithWord(lower, word string) bool {
	if !strings.HasPrefix(lower, word) {
		return false
	}
	if len(lower) == len(word) {
		return true
	}
	next := lower[len(word)]
	return next == ' ' || next == ',' || next == '!' || next == '.'
}

func countKeywordHits(lower string, keywords []string) int {
	count := 0
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			count++
		}
	}
	return count
}
