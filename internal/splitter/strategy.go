package splitter

import "curriculum-rag/internal/domain"

// Separator is one entry of a strategy's ordered separator priority list.
// An empty pattern means rune-level splitting, the last resort. Regex
// separators let a strategy break on structural prefixes like the course
// code that opens each course description.
type Separator struct {
	Pattern string
	Regex   bool
}

// Strategy is the immutable chunking configuration for one content type.
type Strategy struct {
	ContentType  domain.ContentType
	ChunkSize    int
	ChunkOverlap int
	Separators   []Separator
	Description  string
}

// Valid reports whether the size/overlap pair satisfies
// 0 <= overlap < size.
func (s Strategy) Valid() bool {
	return s.ChunkSize > 0 && s.ChunkOverlap >= 0 && s.ChunkOverlap < s.ChunkSize
}

// Table maps content types to chunking strategies. It is read-only
// configuration: build it once and share it freely across goroutines.
type Table struct {
	strategies map[domain.ContentType]Strategy
}

// NewTable builds a table from the given strategies. Later entries with
// the same content type win.
func NewTable(strategies ...Strategy) *Table {
	m := make(map[domain.ContentType]Strategy, len(strategies))
	for _, s := range strategies {
		m[s.ContentType] = s
	}
	return &Table{strategies: m}
}

// For returns the strategy for ct, falling back to the general strategy
// when no entry exists.
func (t *Table) For(ct domain.ContentType) Strategy {
	if s, ok := t.strategies[ct]; ok {
		return s
	}
	return t.strategies[domain.ContentGeneral]
}

// All returns every strategy in the table, in no particular order.
func (t *Table) All() []Strategy {
	out := make([]Strategy, 0, len(t.strategies))
	for _, s := range t.strategies {
		out = append(out, s)
	}
	return out
}

// generalSeparators is the generic paragraph → line → sentence → word →
// rune fallback chain.
func generalSeparators() []Separator {
	return []Separator{
		{Pattern: "\n\n"},
		{Pattern: "\n"},
		{Pattern: ". "},
		{Pattern: "。"},
		{Pattern: " "},
		{Pattern: ""},
	}
}

// DefaultTable returns the tuned per-type strategies. Tables get a large
// size and overlap so a whole semester stays in one piece; appendices are
// low-value and kept small; course descriptions break on the code that
// starts each course so one fragment holds one course where possible.
func DefaultTable() *Table {
	return NewTable(
		Strategy{
			ContentType:  domain.ContentGeneral,
			ChunkSize:    1000,
			ChunkOverlap: 200,
			Separators:   generalSeparators(),
			Description:  "general prose",
		},
		Strategy{
			ContentType:  domain.ContentCurriculumTable,
			ChunkSize:    3000,
			ChunkOverlap: 500,
			Separators: []Separator{
				{Pattern: "\n\n3.1.4"},
				{Pattern: "\n\nปีที่ "},
				{Pattern: "\n\nภาคการศึกษาที่ "},
				{Pattern: "\n\n\n"},
				{Pattern: "\n\n"},
				{Pattern: "\n"},
				{Pattern: ""},
			},
			Description: "study-plan tables, kept whole per period",
		},
		Strategy{
			ContentType:  domain.ContentCourseDescription,
			ChunkSize:    1500,
			ChunkOverlap: 300,
			Separators: []Separator{
				{Pattern: `\n\n\d{8}`, Regex: true},
				{Pattern: "\n\n"},
				{Pattern: "\n"},
				{Pattern: " "},
				{Pattern: ""},
			},
			Description: "per-course descriptions, one course per fragment",
		},
		Strategy{
			ContentType:  domain.ContentAppendix,
			ChunkSize:    800,
			ChunkOverlap: 150,
			Separators: []Separator{
				{Pattern: "\n\n"},
				{Pattern: "\n"},
				{Pattern: " "},
				{Pattern: ""},
			},
			Description: "appendix material, small fragments",
		},
	)
}

// FixedTable returns a table where every content type uses one general
// strategy with the given size and overlap. Used when adaptive chunking
// is disabled by configuration.
func FixedTable(size, overlap int) *Table {
	if size <= 0 {
		size = 1000
	}
	if overlap < 0 || overlap >= size {
		overlap = size / 5
	}
	fixed := func(ct domain.ContentType) Strategy {
		return Strategy{
			ContentType:  ct,
			ChunkSize:    size,
			ChunkOverlap: overlap,
			Separators:   generalSeparators(),
			Description:  "fixed-size chunking",
		}
	}
	return NewTable(
		fixed(domain.ContentGeneral),
		fixed(domain.ContentCurriculumTable),
		fixed(domain.ContentCourseDescription),
		fixed(domain.ContentAppendix),
	)
}
