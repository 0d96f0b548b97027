package splitter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"curriculum-rag/internal/classifier"
	"curriculum-rag/internal/domain"
)

func TestDefaultTableStrategiesAreValid(t *testing.T) {
	table := DefaultTable()
	for _, ct := range []domain.ContentType{
		domain.ContentGeneral,
		domain.ContentCurriculumTable,
		domain.ContentCourseDescription,
		domain.ContentAppendix,
	} {
		s := table.For(ct)
		assert.True(t, s.Valid(), "strategy for %s", ct)
		assert.Equal(t, ct, s.ContentType)
		require.NotEmpty(t, s.Separators)
		// Rune-level splitting must terminate every chain.
		assert.Equal(t, "", s.Separators[len(s.Separators)-1].Pattern)
	}
}

func TestTableFallsBackToGeneral(t *testing.T) {
	table := DefaultTable()
	s := table.For(domain.ContentType("unknown"))
	assert.Equal(t, domain.ContentGeneral, s.ContentType)
}

func TestFixedTableIgnoresContentType(t *testing.T) {
	table := FixedTable(500, 50)
	for _, ct := range []domain.ContentType{domain.ContentGeneral, domain.ContentCurriculumTable} {
		s := table.For(ct)
		assert.Equal(t, 500, s.ChunkSize)
		assert.Equal(t, 50, s.ChunkOverlap)
	}
	// Degenerate inputs normalize rather than producing an invalid strategy.
	assert.True(t, FixedTable(0, -1).For(domain.ContentGeneral).Valid())
	assert.True(t, FixedTable(100, 100).For(domain.ContentGeneral).Valid())
}

func TestSplitWhitespaceOnly(t *testing.T) {
	s := New(classifier.New(classifier.DefaultThresholds()), nil)
	chunks, ct := s.Split("  \n\n  \t", 1)
	assert.Nil(t, chunks)
	assert.Equal(t, domain.ContentGeneral, ct)
}

func TestSplitShortTextIsSingleChunk(t *testing.T) {
	s := New(classifier.New(classifier.DefaultThresholds()), nil)
	text := "หลักสูตรวิทยาศาสตรบัณฑิต สาขาวิชาวิทยาการคอมพิวเตอร์"
	chunks, ct := s.Split(text, 1)
	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0])
	assert.Equal(t, domain.ContentGeneral, ct)
}

// newTestSplitter builds a splitter whose general strategy is small
// enough to exercise recursion on short inputs.
func newTestSplitter(size, overlap int) *AdaptiveSplitter {
	table := NewTable(Strategy{
		ContentType:  domain.ContentGeneral,
		ChunkSize:    size,
		ChunkOverlap: overlap,
		Separators:   generalSeparators(),
	})
	return New(classifier.New(classifier.DefaultThresholds()), table)
}

func TestSplitRoundTripWithoutOverlap(t *testing.T) {
	s := newTestSplitter(20, 0)
	text := "first paragraph here\n\nsecond one is a bit longer\n\nthird paragraph closes it out"
	chunks, _ := s.Split(text, 0)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c)), 20)
	}
	assert.Equal(t, text, strings.Join(chunks, ""))
}

func TestSplitOverlapPrefixesPredecessorTail(t *testing.T) {
	s := newTestSplitter(20, 5)
	text := "first paragraph here\n\nsecond one is a bit longer\n\nthird paragraph closes it out"
	chunks, _ := s.Split(text, 0)
	require.Greater(t, len(chunks), 1)

	// Strip each chunk's overlap prefix; the remainder must reproduce the
	// input exactly.
	var rebuilt strings.Builder
	rebuilt.WriteString(chunks[0])
	prev := chunks[0]
	for _, c := range chunks[1:] {
		tail := tailRunes(prev, 5)
		require.True(t, strings.HasPrefix(c, tail))
		body := strings.TrimPrefix(c, tail)
		rebuilt.WriteString(body)
		prev = body
	}
	assert.Equal(t, text, rebuilt.String())
}

func TestSplitUnbrokenRunFallsBackToRunes(t *testing.T) {
	s := newTestSplitter(10, 0)
	text := strings.Repeat("ก", 35)
	chunks, _ := s.Split(text, 0)
	require.Len(t, chunks, 4)
	assert.Equal(t, text, strings.Join(chunks, ""))
	for _, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c)), 10)
	}
}

func TestSplitKeepsSeparatorWithFollowingPiece(t *testing.T) {
	table := NewTable(Strategy{
		ContentType:  domain.ContentCurriculumTable,
		ChunkSize:    120,
		ChunkOverlap: 0,
		Separators: []Separator{
			{Pattern: "\n\nปีที่ "},
			{Pattern: "\n"},
			{Pattern: ""},
		},
	}, Strategy{
		ContentType: domain.ContentGeneral,
		ChunkSize:   120,
		Separators:  generalSeparators(),
	})
	s := New(classifier.New(classifier.DefaultThresholds()), table)

	text := "ปีที่ 1 ภาคการศึกษาที่ 1\n01418111 วิชา ก 3 หน่วยกิต\nรวม 3 หน่วยกิต" +
		"\n\nปีที่ 1 ภาคการศึกษาที่ 2\n01418112 วิชา ข 3 หน่วยกิต\nรวม 3 หน่วยกิต"
	chunks, ct := s.Split(text, 5)
	assert.Equal(t, domain.ContentCurriculumTable, ct)
	require.Len(t, chunks, 2)
	assert.True(t, strings.HasPrefix(chunks[1], "\n\nปีที่ 1 ภาคการศึกษาที่ 2"))
	assert.Equal(t, text, strings.Join(chunks, ""))
}

func TestSplitCourseDescriptionsBreakOnCourseCode(t *testing.T) {
	table := NewTable(Strategy{
		ContentType:  domain.ContentCourseDescription,
		ChunkSize:    130,
		ChunkOverlap: 0,
		Separators: []Separator{
			{Pattern: `\n\n\d{8}`, Regex: true},
			{Pattern: "\n"},
			{Pattern: ""},
		},
	}, Strategy{
		ContentType: domain.ContentGeneral,
		ChunkSize:   130,
		Separators:  generalSeparators(),
	})
	s := New(classifier.New(classifier.DefaultThresholds()), table)

	text := "01418111 วิทยาการคอมพิวเตอร์เบื้องต้น (Introduction to Computer Science)\nเนื้อหารายวิชา พื้นฐานการคำนวณ" +
		"\n\n01418112 แนวคิดการโปรแกรม (Programming Concepts)\nเนื้อหารายวิชา ตัวแปรและโครงสร้างควบคุม"
	chunks, ct := s.Split(text, 30)
	assert.Equal(t, domain.ContentCourseDescription, ct)
	require.Len(t, chunks, 2)
	assert.True(t, strings.HasPrefix(chunks[1], "\n\n01418112"))
	assert.Equal(t, text, strings.Join(chunks, ""))
}

func TestMergePieces(t *testing.T) {
	merged := mergePieces([]string{"aaa", "bbb", "ccc", "ddd"}, 7)
	assert.Equal(t, []string{"aaabbb", "cccddd"}, merged)

	// A piece never splits during merging even when alone it fills a chunk.
	merged = mergePieces([]string{"aaaaaaa", "b"}, 7)
	assert.Equal(t, []string{"aaaaaaa", "b"}, merged)
}
