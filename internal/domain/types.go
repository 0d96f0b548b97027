package domain

// ContentType is the structural category assigned to a span of document text.
type ContentType string

const (
	ContentGeneral           ContentType = "general"
	ContentCurriculumTable   ContentType = "curriculum_table"
	ContentCourseDescription ContentType = "course_description"
	ContentAppendix          ContentType = "appendix"
)

// Document represents a single source file loaded into the system.
type Document struct {
	ID    string
	Path  string
	Pages []Page
}

// Page is one logical unit of extracted text. Number is 1-based;
// 0 means the source had no page information.
type Page struct {
	Number int
	Text   string
}

// StructuredFields holds regex-extracted attributes attached to a fragment.
// Absent fields stay zero-valued; extraction is best-effort and never fails.
type StructuredFields struct {
	ItemCodes      []string
	CodeCount      int
	Period         string
	Subperiod      string
	IsTabular      bool
	AggregateTotal int
	Preview        string
}

// HasItemCode reports whether code is among the extracted item codes.
func (f StructuredFields) HasItemCode(code string) bool {
	for _, c := range f.ItemCodes {
		if c == code {
			return true
		}
	}
	return false
}

// Fragment is a stored, retrievable unit of document text produced by
// splitting. Fragments are created once at ingestion time and treated as
// immutable afterwards.
type Fragment struct {
	ID          string
	DocumentID  string
	Source      string
	Index       int
	Text        string
	ContentType ContentType
	Page        int
	Fields      StructuredFields
}

// SearchResult is a fragment returned by the vector index with its
// relevance score.
type SearchResult struct {
	Fragment Fragment
	Score    float64
}
