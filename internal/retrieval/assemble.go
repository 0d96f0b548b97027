package retrieval

import (
	"strings"

	"curriculum-rag/internal/domain"
)

// FragmentSeparator is emitted between fragments in the assembled context.
const FragmentSeparator = "\n\n---\n\n"

// AssembledContext is the bounded context handed to the answer generator.
// TotalRunes never exceeds the budget it was assembled under: the
// downstream generator has a fixed input ceiling and silently exceeding
// it fails generation outside our control.
type AssembledContext struct {
	Text       string
	Fragments  []domain.Fragment
	TotalRunes int
}

// Assembler packs ordered fragments into a character budget, truncating a
// fragment that alone exceeds what remains rather than dropping it.
type Assembler struct {
	separator string
}

// NewAssembler creates an Assembler using FragmentSeparator.
func NewAssembler() *Assembler {
	return &Assembler{separator: FragmentSeparator}
}

// Assemble iterates fragments in priority order and emits as much of each
// as the remaining budget allows. Separators and metadata hint lines
// count against the budget like any other text.
func (a *Assembler) Assemble(fragments []domain.Fragment, budget int) AssembledContext {
	var (
		b    strings.Builder
		used int
		kept []domain.Fragment
	)
	for _, fr := range fragments {
		remaining := budget - used
		if remaining <= 0 {
			break
		}
		prefix := ""
		if len(kept) > 0 {
			prefix = a.separator
		}
		if hint := metadataHint(fr); hint != "" {
			prefix += hint + "\n"
		}
		prefixLen := runeLen(prefix)
		if prefixLen >= remaining {
			break
		}
		body := truncRunes(fr.Text, remaining-prefixLen)
		b.WriteString(prefix)
		b.WriteString(body)
		used += prefixLen + runeLen(body)
		kept = append(kept, fr)
	}
	return AssembledContext{Text: b.String(), Fragments: kept, TotalRunes: used}
}

// metadataHint renders a short identifying line for fragments that carry
// period metadata, so the generator can tell which table a span belongs to.
func metadataHint(fr domain.Fragment) string {
	f := fr.Fields
	if f.Period == "" || f.Subperiod == "" {
		return ""
	}
	return "[ปีที่ " + f.Period + " ภาคการศึกษาที่ " + f.Subperiod + "]"
}

func runeLen(s string) int {
	n := 0
	for range s {
		n++
	}
	return n
}

func truncRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
