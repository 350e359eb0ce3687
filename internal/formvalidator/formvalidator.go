// Package formvalidator implements the free-text lead qualification form
// parser and completeness checker (§4.H). It is pattern- and keyword-based
// by design (§1 Non-goals) — no NLU.
package formvalidator

import (
	"regexp"
	"strings"
)

// Fragment is a partially or fully filled set of the five qualification
// fields. A nil pointer means "not yet known"; an empty string is never
// stored (parsing only ever yields a pointer or nothing).
type Fragment struct {
	Biodata      *string
	SourceInfo   *string
	BusinessType *string
	Budget       *string
	StartPlan    *string
}

var labelPatterns = map[string]*regexp.Regexp{
	"biodata":       regexp.MustCompile(`(?im)^\s*(?:nama|biodata|domisili)(?:[^\S\n]*,[^\S\n]*(?:nama|biodata|domisili))*[^\S\n]*:[^\S\n]*(.+)$`),
	"source_info":   regexp.MustCompile(`(?im)^\s*(?:sumber|source|dari|info)(?:(?:[^\S\n]*,[^\S\n]*|[^\S\n]+)(?:sumber|source|dari|info))*[^\S\n]*:[^\S\n]*(.+)$`),
	"business_type": regexp.MustCompile(`(?im)^\s*(?:jenis bisnis|tipe bisnis|bisnis)[^\S\n]*:[^\S\n]*(.+)$`),
	"budget":        regexp.MustCompile(`(?im)^\s*(?:budget|anggaran|modal|dana)[^\S\n]*:[^\S\n]*(.+)$`),
	"start_plan":    regexp.MustCompile(`(?im)^\s*(?:kapan|mulai|start|timeline|rencana)(?:(?:[^\S\n]*,[^\S\n]*|[^\S\n]+)(?:kapan|mulai|start|timeline|rencana))*[^\S\n]*:[^\S\n]*(.+)$`),
}

var sourceInfoKeywords = []string{
	"instagram", "facebook", "google", "tiktok", "youtube", "referral", "teman", "iklan", "ads", "website", "event",
}

var businessTypeKeywords = []string{
	"fnb", "f&b", "retail", "service", "jasa", "makanan", "minuman", "food", "beverage", "fashion", "kuliner",
}

var startPlanKeywords = []string{
	"bulan", "month", "minggu", "week", "tahun", "year", "segera", "asap", "immediately",
	"q1", "q2", "q3", "q4",
}

// allKeywords is used by IsFormSubmission's >= 2 keyword heuristic. It
// covers every fallback keyword across all fields plus the line-anchored
// labels, since the distilled spec counts "form-related keywords" without
// scoping them to one field.
var allKeywords = func() []string {
	var all []string
	all = append(all, sourceInfoKeywords...)
	all = append(all, businessTypeKeywords...)
	all = append(all, startPlanKeywords...)
	all = append(all, "nama", "biodata", "domisili", "sumber", "source", "dari", "info",
		"jenis bisnis", "tipe bisnis", "bisnis", "budget", "anggaran", "modal", "dana",
		"kapan", "mulai", "start", "timeline", "rencana")
	return all
}()

var budgetPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)rp\.?\s*[\d.,]+\s*(?:juta|jt|million|m)\b`),
	regexp.MustCompile(`(?i)rp\.?\s*[\d.,]+\s*(?:milyar|miliar|billion|b)\b`),
	regexp.MustCompile(`(?i)rp\.?\s*[\d.,]+`),
}

var sentenceSplitter = regexp.MustCompile(`[.!?\n]+`)

// Parse extracts whatever of the five fields it can find in text, first via
// the line-anchored LABEL: VALUE pass, then via per-field keyword/regex
// fallback for anything still empty.
func Parse(text string) Fragment {
	var f Fragment

	if v := matchLabel(text, "biodata"); v != "" {
		f.Biodata = ptr(v)
	}
	if v := matchLabel(text, "source_info"); v != "" {
		f.SourceInfo = ptr(v)
	}
	if v := matchLabel(text, "business_type"); v != "" {
		f.BusinessType = ptr(v)
	}
	if v := matchLabel(text, "budget"); v != "" {
		f.Budget = ptr(v)
	}
	if v := matchLabel(text, "start_plan"); v != "" {
		f.StartPlan = ptr(v)
	}

	lower := strings.ToLower(text)

	if f.SourceInfo == nil {
		if s := sentenceContainingKeyword(text, lower, sourceInfoKeywords); s != "" {
			f.SourceInfo = ptr(s)
		}
	}
	if f.BusinessType == nil {
		if s := sentenceContainingKeyword(text, lower, businessTypeKeywords); s != "" {
			f.BusinessType = ptr(s)
		}
	}
	if f.Budget == nil {
		if s := extractBudget(text); s != "" {
			f.Budget = ptr(s)
		}
	}
	if f.StartPlan == nil {
		if s := sentenceContainingKeyword(text, lower, startPlanKeywords); s != "" {
			f.StartPlan = ptr(s)
		}
	}

	return f
}

func matchLabel(text, field string) string {
	re := labelPatterns[field]
	m := re.FindStringSubmatch(text)
	if len(m) < 2 {
		return ""
	}
	v := strings.TrimSpace(m[1])
	return v
}

func extractBudget(text string) string {
	for _, re := range budgetPatterns {
		if m := re.FindString(text); m != "" {
			return strings.TrimSpace(m)
		}
	}
	return ""
}

func sentenceContainingKeyword(original, lower string, keywords []string) string {
	sentences := sentenceSplitter.Split(original, -1)
	lowerSentences := sentenceSplitter.Split(lower, -1)
	for i, s := range lowerSentences {
		for _, kw := range keywords {
			if strings.Contains(s, kw) {
				if i < len(sentences) {
					return strings.TrimSpace(sentences[i])
				}
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

func ptr(s string) *string { return &s }

// Merge combines existing with partial, partial taking precedence on any
// non-nil field, preserving existing values when partial is nil.
func Merge(existing, partial Fragment) Fragment {
	merged := existing
	if partial.Biodata != nil {
		merged.Biodata = partial.Biodata
	}
	if partial.SourceInfo != nil {
		merged.SourceInfo = partial.SourceInfo
	}
	if partial.BusinessType != nil {
		merged.BusinessType = partial.BusinessType
	}
	if partial.Budget != nil {
		merged.Budget = partial.Budget
	}
	if partial.StartPlan != nil {
		merged.StartPlan = partial.StartPlan
	}
	return merged
}

// Validate merges existing and partial (partial wins on non-nil) and
// reports whether the result is complete, along with which fields remain
// empty.
func Validate(partial Fragment, existing *Fragment) (merged Fragment, valid bool, missing []string) {
	if existing != nil {
		merged = Merge(*existing, partial)
	} else {
		merged = partial
	}

	missing = []string{}
	if isEmpty(merged.Biodata) {
		missing = append(missing, "biodata")
	}
	if isEmpty(merged.SourceInfo) {
		missing = append(missing, "source_info")
	}
	if isEmpty(merged.BusinessType) {
		missing = append(missing, "business_type")
	}
	if isEmpty(merged.Budget) {
		missing = append(missing, "budget")
	}
	if isEmpty(merged.StartPlan) {
		missing = append(missing, "start_plan")
	}

	return merged, len(missing) == 0, missing
}

func isEmpty(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

// IsFormSubmission reports whether text looks like a lead is answering the
// qualification form: either >= 2 form-related keywords are present, or any
// of the line-anchored LABEL: VALUE patterns match.
func IsFormSubmission(text string) bool {
	for _, field := range []string{"biodata", "source_info", "business_type", "budget", "start_plan"} {
		if matchLabel(text, field) != "" {
			return true
		}
	}
	lower := strings.ToLower(text)
	hits := 0
	for _, kw := range allKeywords {
		if strings.Contains(lower, kw) {
			hits++
			if hits >= 2 {
				return true
			}
		}
	}
	return false
}

var fieldLabels = map[string]string{
	"biodata":       "Nama & domisili",
	"source_info":   "Sumber info (dari mana tahu kami)",
	"business_type": "Jenis bisnis",
	"budget":        "Budget/modal",
	"start_plan":    "Rencana mulai",
}

// ExplainMissing renders a user-visible checklist of the fields still
// needed. Empty input returns an empty string.
func ExplainMissing(missing []string) string {
	if len(missing) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Mohon lengkapi data berikut:\n")
	for _, field := range missing {
		label := fieldLabels[field]
		if label == "" {
			label = field
		}
		b.WriteString("- ")
		b.WriteString(label)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
