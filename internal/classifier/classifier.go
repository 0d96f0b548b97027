package classifier

import (
	"regexp"
	"strings"

	"curriculum-rag/internal/domain"
)

// Thresholds control the empirically tuned constants of the classifier.
// They are injected rather than hard-coded so deployments can retune them
// against their own corpus.
type Thresholds struct {
	// MinTableCodes is the item-code count at which a span is considered
	// code-dense. Dense spans qualify as tables and never as appendices.
	MinTableCodes int
	// LatePage marks pages beyond which unlabelled content is treated as
	// appendix material. Zero disables the signal.
	LatePage int
}

// DefaultThresholds returns the tuned defaults (3 codes, page 45).
func DefaultThresholds() Thresholds {
	return Thresholds{MinTableCodes: 3, LatePage: 45}
}

// Classifier labels a text span with a structural content type using
// pattern heuristics. It is a pure function of its inputs and safe for
// concurrent use.
type Classifier struct {
	th Thresholds
}

// New creates a Classifier with the given thresholds. Non-positive
// threshold values fall back to the defaults.
func New(th Thresholds) *Classifier {
	def := DefaultThresholds()
	if th.MinTableCodes <= 0 {
		th.MinTableCodes = def.MinTableCodes
	}
	if th.LatePage <= 0 {
		th.LatePage = def.LatePage
	}
	return &Classifier{th: th}
}

var (
	yearRe       = regexp.MustCompile(`ปี\s*ที่\s*\d+|ชั้นปี\s*\d+`)
	semesterRe   = regexp.MustCompile(`ภาค\s*การศึกษา\s*ที่\s*\d+|ภาค\s*\d+|เทอม\s*\d+`)
	itemCodeRe   = regexp.MustCompile(`\b\d{8}\b`)
	totalRe      = regexp.MustCompile(`รวม\s+\d+\s+หน่วยกิต`)
	leadingCode  = regexp.MustCompile(`^\s*\d{8}\s+`)
	englishName  = regexp.MustCompile(`\([A-Z][a-zA-Z\s]+\)`)
	appendixWord = regexp.MustCompile(`(?i)ภาคผนวก|Appendix|แผนที่หลักสูตร|Curriculum\s+Map|เอกสารอ้างอิง|รายชื่ออาจารย์`)
)

const creditKeyword = "หน่วยกิต"

// Classify labels text with exactly one content type. page ≤ 0 means the
// caller has no page number; the late-page signal is then unavailable.
//
// Evaluation order is significant: tabular spans may contain appendix
// keywords and must win, so table detection runs first.
func (c *Classifier) Classify(text string, page int) domain.ContentType {
	switch {
	case c.IsCurriculumTable(text):
		return domain.ContentCurriculumTable
	case c.IsCourseDescription(text):
		return domain.ContentCourseDescription
	case c.IsAppendix(text, page):
		return domain.ContentAppendix
	default:
		return domain.ContentGeneral
	}
}

// tableSignals are the four independent signals behind table detection.
type tableSignals struct {
	yearAndSemester bool
	denseCodes      bool
	creditKeyword   bool
	aggregateTotal  bool
}

func (s tableSignals) score() int {
	n := 0
	for _, v := range []bool{s.yearAndSemester, s.denseCodes, s.creditKeyword, s.aggregateTotal} {
		if v {
			n++
		}
	}
	return n
}

// IsCurriculumTable reports whether text looks like a study-plan table.
// Item-code density is the single strongest signal: it plus any one other
// signal qualifies, while three weak signals without it also qualify.
func (c *Classifier) IsCurriculumTable(text string) bool {
	s := tableSignals{
		yearAndSemester: yearRe.MatchString(text) && semesterRe.MatchString(text),
		denseCodes:      len(itemCodeRe.FindAllString(text, -1)) >= c.th.MinTableCodes,
		creditKeyword:   strings.Contains(text, creditKeyword),
		aggregateTotal:  totalRe.MatchString(text),
	}
	score := s.score()
	return (score >= 2 && s.denseCodes) || score >= 3
}

// IsCourseDescription reports whether text is a per-course description:
// it must start with an 8-digit course code and carry either an
// objective/content keyword or a parenthesized English course name near
// the top.
func (c *Classifier) IsCourseDescription(text string) bool {
	if !leadingCode.MatchString(text) {
		return false
	}
	if strings.Contains(text, "วัตถุประสงค์") || strings.Contains(text, "เนื้อหารายวิชา") {
		return true
	}
	if strings.Contains(runePrefix(text, 200), "เนื้อหา") {
		return true
	}
	return englishName.MatchString(runePrefix(text, 300))
}

// IsAppendix reports whether text belongs to appendix material. Spans
// dense with item codes are never appendices regardless of keywords;
// table detection takes precedence over them.
func (c *Classifier) IsAppendix(text string, page int) bool {
	if len(itemCodeRe.FindAllString(text, -1)) >= c.th.MinTableCodes {
		return false
	}
	if appendixWord.MatchString(text) {
		return true
	}
	return page > 0 && page > c.th.LatePage
}

// runePrefix returns at most n leading runes of s.
func runePrefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
