package retrieval

import "regexp"

// Intent carries the structured signals parsed from a raw query. It is
// derived fresh per question and never persisted.
type Intent struct {
	ItemCode  string
	Period    string
	Subperiod string
}

// HasSignal reports whether any structured signal was found.
func (i Intent) HasSignal() bool {
	return i.ItemCode != "" || i.HasPeriodSignal()
}

// HasPeriodSignal reports whether a year or semester marker was found.
func (i Intent) HasPeriodSignal() bool {
	return i.Period != "" || i.Subperiod != ""
}

var (
	contiguousCodeRe = regexp.MustCompile(`\b(\d{8})\b`)
	separatedCodeRe  = regexp.MustCompile(`\b(\d{4})[\s-]+(\d{4})\b`)
	queryYearRe      = regexp.MustCompile(`ปี\s*ที่\s*(\d+)|ชั้นปี\s*(\d+)`)
	querySemesterRe  = regexp.MustCompile(`ภาค\s*การศึกษา\s*ที่\s*(\d+)|ภาค\s*(\d+)|เทอม\s*(\d+)`)
)

// ParseIntent extracts an item code (contiguous 8-digit or separated 4+4,
// both canonicalized to the 8-digit form), a year marker, and a semester
// marker from the raw query text.
func ParseIntent(query string) Intent {
	var in Intent
	if m := contiguousCodeRe.FindStringSubmatch(query); m != nil {
		in.ItemCode = m[1]
	} else if m := separatedCodeRe.FindStringSubmatch(query); m != nil {
		in.ItemCode = m[1] + m[2]
	}
	in.Period = firstNonEmptyGroup(queryYearRe.FindStringSubmatch(query))
	in.Subperiod = firstNonEmptyGroup(querySemesterRe.FindStringSubmatch(query))
	return in
}

func firstNonEmptyGroup(m []string) string {
	if len(m) == 0 {
		return ""
	}
	for _, g := range m[1:] {
		if g != "" {
			return g
		}
	}
	return ""
}
