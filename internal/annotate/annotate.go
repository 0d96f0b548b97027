// Package annotate enriches fragments with structured metadata extracted
// by pattern matching. Everything here is best-effort: a field that does
// not match is simply left unset.
package annotate

import (
	"regexp"
	"strconv"
	"strings"

	"curriculum-rag/internal/domain"
)

// PreviewLen bounds the diagnostic preview excerpt, in runes.
const PreviewLen = 120

var (
	itemCodeRe = regexp.MustCompile(`\b\d{8}\b`)
	totalRe    = regexp.MustCompile(`รวม\s+(\d+)\s+หน่วยกิต`)

	// Ordered equivalent phrasings; the first that matches wins.
	periodRes = []*regexp.Regexp{
		regexp.MustCompile(`ปี\s*ที่\s*(\d+)`),
		regexp.MustCompile(`ชั้นปี\s*(\d+)`),
	}
	subperiodRes = []*regexp.Regexp{
		regexp.MustCompile(`ภาค\s*การศึกษา\s*ที่\s*(\d+)`),
		regexp.MustCompile(`ภาค\s*(\d+)`),
		regexp.MustCompile(`เทอม\s*(\d+)`),
	}
)

// Extract runs the independent regex passes over a fragment's text and
// returns whatever structured fields it could find.
func Extract(text string) domain.StructuredFields {
	f := domain.StructuredFields{
		ItemCodes: distinctCodes(text),
		Period:    firstGroup(periodRes, text),
		Subperiod: firstGroup(subperiodRes, text),
		Preview:   preview(text),
	}
	f.CodeCount = len(f.ItemCodes)
	f.IsTabular = f.Period != "" && f.Subperiod != ""
	if m := totalRe.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			f.AggregateTotal = n
		}
	}
	return f
}

// distinctCodes returns all distinct 8-digit item codes in first-seen order.
func distinctCodes(text string) []string {
	var codes []string
	seen := make(map[string]struct{})
	for _, c := range itemCodeRe.FindAllString(text, -1) {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		codes = append(codes, c)
	}
	return codes
}

func firstGroup(res []*regexp.Regexp, text string) string {
	for _, re := range res {
		if m := re.FindStringSubmatch(text); m != nil {
			return m[1]
		}
	}
	return ""
}

// preview returns a bounded single-line excerpt for diagnostics and
// display, with newlines collapsed to spaces.
func preview(text string) string {
	flat := strings.Join(strings.Fields(text), " ")
	r := []rune(flat)
	if len(r) <= PreviewLen {
		return flat
	}
	return string(r[:PreviewLen])
}
