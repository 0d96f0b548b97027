package retrieval

import (
	"regexp"
	"strings"
	"sync"

	"curriculum-rag/internal/domain"
)

// DefaultSignatureLen is the dedup signature length in runes: fragments
// whose trimmed leading runes agree are considered duplicates.
const DefaultSignatureLen = 100

// Filter re-ranks and filters retrieved fragments using structured
// metadata agreement with the query. Exact item-code matches outrank the
// vector-similarity ordering; when filtering would leave nothing, the
// unfiltered candidate list is returned instead so the caller always has
// something to work with.
type Filter struct {
	signatureLen int

	mu        sync.Mutex
	spacedRes map[string]*regexp.Regexp
}

// NewFilter creates a Filter. sigLen ≤ 0 means DefaultSignatureLen.
func NewFilter(sigLen int) *Filter {
	if sigLen <= 0 {
		sigLen = DefaultSignatureLen
	}
	return &Filter{
		signatureLen: sigLen,
		spacedRes:    make(map[string]*regexp.Regexp),
	}
}

// Filter applies the first matching rule per candidate, deduplicates, and
// truncates to limit (limit ≤ 0 means no truncation). Ranking is a stable
// two-tier ordering: a high-priority bucket followed by a normal bucket,
// each preserving the incoming (vector-similarity) order.
func (f *Filter) Filter(query string, candidates []domain.Fragment, limit int) []domain.Fragment {
	intent := ParseIntent(query)
	var high, normal []domain.Fragment

	switch {
	case intent.ItemCode != "":
		code := intent.ItemCode
		spaced := f.spacedCodeRe(code)
		for _, c := range candidates {
			if fragmentHasCode(c, code, spaced) {
				high = append(high, c)
			}
		}
	case intent.HasPeriodSignal():
		for _, c := range candidates {
			switch periodMatch(c, intent) {
			case matchExact:
				if c.Fields.IsTabular {
					high = append(high, c)
				} else {
					normal = append(normal, c)
				}
			case matchPartial:
				normal = append(normal, c)
			}
		}
	default:
		normal = candidates
	}

	out := append(append([]domain.Fragment{}, high...), normal...)
	if len(out) == 0 {
		// Retrieval miss: the query carried structured signals that no
		// candidate satisfies. Fall back to the unfiltered list rather
		// than returning nothing.
		out = candidates
	}
	out = f.dedupe(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// spacedCodeRe returns a compiled pattern matching code with whitespace or
// dashes between its halves, compiling each code at most once.
func (f *Filter) spacedCodeRe(code string) *regexp.Regexp {
	f.mu.Lock()
	defer f.mu.Unlock()
	if re, ok := f.spacedRes[code]; ok {
		return re
	}
	re := regexp.MustCompile(code[:4] + `[\s-]*` + code[4:])
	f.spacedRes[code] = re
	return re
}

// fragmentHasCode reports whether code appears in the fragment in any
// surface form: contiguous in the text, spaced or dashed in the text, or
// in the extracted item-code set.
func fragmentHasCode(fr domain.Fragment, code string, spaced *regexp.Regexp) bool {
	if strings.Contains(fr.Text, code) || fr.Fields.HasItemCode(code) {
		return true
	}
	return spaced.MatchString(fr.Text)
}

type matchStrength int

const (
	matchNone matchStrength = iota
	matchPartial
	matchExact
)

// periodMatch computes how strongly a fragment agrees with the query's
// year/semester signals. Exact agreement requires the query to carry both
// a year and a semester and the fragment's structured fields to match
// both; anything less, including a query with a single signal, counts at
// most as partial and keeps the similarity ordering.
func periodMatch(fr domain.Fragment, in Intent) matchStrength {
	if in.Period != "" && in.Subperiod != "" {
		if fr.Fields.Period == in.Period && fr.Fields.Subperiod == in.Subperiod {
			return matchExact
		}
		if fr.Fields.Period == in.Period || fr.Fields.Subperiod == in.Subperiod {
			return matchPartial
		}
		return rawPeriodMatch(fr.Text, in)
	}
	if in.Period != "" && fr.Fields.Period == in.Period {
		return matchPartial
	}
	if in.Subperiod != "" && fr.Fields.Subperiod == in.Subperiod {
		return matchPartial
	}
	return rawPeriodMatch(fr.Text, in)
}

// rawPeriodMatch falls back to searching the fragment text for the queried
// period phrases when structured fields disagree or are absent. Each
// signal is searched under every surface form the intent parser accepts.
func rawPeriodMatch(text string, in Intent) matchStrength {
	if in.Period != "" {
		for _, phrase := range []string{"ปีที่ " + in.Period, "ชั้นปี " + in.Period} {
			if strings.Contains(text, phrase) {
				return matchPartial
			}
		}
	}
	if in.Subperiod != "" {
		for _, phrase := range []string{"ภาคการศึกษาที่ " + in.Subperiod, "ภาค " + in.Subperiod, "เทอม " + in.Subperiod} {
			if strings.Contains(text, phrase) {
				return matchPartial
			}
		}
	}
	return matchNone
}

// dedupe drops later fragments whose trimmed leading-signature runes
// duplicate an earlier one, preserving the priority order.
func (f *Filter) dedupe(frags []domain.Fragment) []domain.Fragment {
	seen := make(map[string]struct{}, len(frags))
	out := frags[:0:0]
	for _, fr := range frags {
		sig := signature(fr.Text, f.signatureLen)
		if _, ok := seen[sig]; ok {
			continue
		}
		seen[sig] = struct{}{}
		out = append(out, fr)
	}
	return out
}

func signature(text string, n int) string {
	r := []rune(strings.TrimSpace(text))
	if len(r) > n {
		r = r[:n]
	}
	return strings.TrimSpace(string(r))
}

var broadPhrases = []string{
	"มีอะไรบ้าง",
	"ทั้งหมด",
	"อะไรบ้าง",
	"all",
	"what are",
}

// SuggestLimit widens the fragment cap for broad or temporal questions,
// which need coverage, and keeps the base for narrow lookups.
func SuggestLimit(query string, base int) int {
	if base <= 0 {
		base = 2
	}
	lower := strings.ToLower(query)
	broad := false
	for _, p := range broadPhrases {
		if strings.Contains(lower, p) {
			broad = true
			break
		}
	}
	if !broad {
		broad = ParseIntent(query).HasPeriodSignal()
	}
	if broad {
		return base * 2
	}
	return base
}
