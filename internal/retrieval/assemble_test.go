package retrieval

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"curriculum-rag/internal/domain"
)

func TestAssembleWithinBudget(t *testing.T) {
	a := NewAssembler()
	frags := []domain.Fragment{
		{ID: "a", Text: "เนื้อหาแรก"},
		{ID: "b", Text: "เนื้อหาที่สอง"},
	}
	out := a.Assemble(frags, 1500)
	assert.Equal(t, "เนื้อหาแรก"+FragmentSeparator+"เนื้อหาที่สอง", out.Text)
	assert.Len(t, out.Fragments, 2)
	assert.Equal(t, len([]rune(out.Text)), out.TotalRunes)
}

func TestAssembleNeverExceedsBudget(t *testing.T) {
	a := NewAssembler()
	var frags []domain.Fragment
	for i := 0; i < 10; i++ {
		frags = append(frags, domain.Fragment{Text: strings.Repeat("ก", 2500)})
	}
	out := a.Assemble(frags, 2000)
	assert.LessOrEqual(t, out.TotalRunes, 2000)
	assert.Equal(t, 2000, len([]rune(out.Text)))
	// The first fragment alone exhausts the budget.
	assert.Len(t, out.Fragments, 1)
}

func TestAssembleTruncatesOversizeFragmentInsteadOfDropping(t *testing.T) {
	a := NewAssembler()
	out := a.Assemble([]domain.Fragment{{Text: strings.Repeat("ข", 300)}}, 100)
	require.Len(t, out.Fragments, 1)
	assert.Equal(t, strings.Repeat("ข", 100), out.Text)
	assert.Equal(t, 100, out.TotalRunes)
}

func TestAssembleSeparatorCountsAgainstBudget(t *testing.T) {
	a := NewAssembler()
	sep := len([]rune(FragmentSeparator))
	frags := []domain.Fragment{
		{Text: strings.Repeat("ก", 50)},
		{Text: strings.Repeat("ข", 50)},
	}
	out := a.Assemble(frags, 100+sep)
	assert.Len(t, out.Fragments, 2)
	assert.Equal(t, 100+sep, out.TotalRunes)

	// One rune short: the second fragment is truncated by that rune.
	out = a.Assemble(frags, 99+sep)
	assert.Len(t, out.Fragments, 2)
	assert.Equal(t, 99+sep, out.TotalRunes)
	assert.True(t, strings.HasSuffix(out.Text, strings.Repeat("ข", 49)))
}

func TestAssembleEmitsMetadataHint(t *testing.T) {
	a := NewAssembler()
	fr := domain.Fragment{
		Text:   "01418211 การสร้างซอฟต์แวร์",
		Fields: domain.StructuredFields{Period: "2", Subperiod: "1", IsTabular: true},
	}
	out := a.Assemble([]domain.Fragment{fr}, 1500)
	assert.True(t, strings.HasPrefix(out.Text, "[ปีที่ 2 ภาคการศึกษาที่ 1]\n"))
}

func TestAssembleNoHintWithoutFullPeriod(t *testing.T) {
	a := NewAssembler()
	fr := domain.Fragment{Text: "เนื้อหา", Fields: domain.StructuredFields{Period: "2"}}
	out := a.Assemble([]domain.Fragment{fr}, 1500)
	assert.Equal(t, "เนื้อหา", out.Text)
}

func TestAssembleEmpty(t *testing.T) {
	a := NewAssembler()
	out := a.Assemble(nil, 1500)
	assert.Empty(t, out.Text)
	assert.Empty(t, out.Fragments)
	assert.Zero(t, out.TotalRunes)
}
