package splitter

import (
	"regexp"
	"strings"
	"sync"

	"curriculum-rag/internal/classifier"
	"curriculum-rag/internal/domain"
)

// AdaptiveSplitter classifies a span of raw text and segments it with the
// chunking strategy registered for the detected content type. Splitting is
// recursive over the strategy's separator priority list: break on the
// highest-priority separator that occurs in the text, recurse into pieces
// that still exceed the chunk size with the remaining separators, and fall
// back to rune-level splitting as a last resort.
//
// Separators are kept at the start of the piece they introduce, so a
// period header or course code always opens its own fragment. All sizes
// are measured in runes; Thai text is multi-byte throughout.
type AdaptiveSplitter struct {
	classifier *classifier.Classifier
	table      *Table

	mu      sync.Mutex
	regexes map[string]*regexp.Regexp
}

// New creates an AdaptiveSplitter over the given classifier and strategy
// table. A nil table means the tuned defaults.
func New(c *classifier.Classifier, table *Table) *AdaptiveSplitter {
	if table == nil {
		table = DefaultTable()
	}
	return &AdaptiveSplitter{
		classifier: c,
		table:      table,
		regexes:    make(map[string]*regexp.Regexp),
	}
}

// Split segments text into ordered chunks and reports the content type it
// detected. Whitespace-only input yields no chunks and is not an error;
// the caller treats an empty result as "nothing to index".
func (s *AdaptiveSplitter) Split(text string, page int) ([]string, domain.ContentType) {
	contentType := s.classifier.Classify(text, page)
	if strings.TrimSpace(text) == "" {
		return nil, contentType
	}
	strat := s.table.For(contentType)
	pieces := s.splitRecursive(text, strat.Separators, strat.ChunkSize)
	merged := mergePieces(pieces, strat.ChunkSize)
	return withOverlap(merged, strat.ChunkOverlap), contentType
}

// Strategy exposes the strategy that Split would apply to the given
// content type.
func (s *AdaptiveSplitter) Strategy(ct domain.ContentType) Strategy {
	return s.table.For(ct)
}

func (s *AdaptiveSplitter) splitRecursive(text string, seps []Separator, size int) []string {
	if text == "" {
		return nil
	}
	if runeLen(text) <= size {
		return []string{text}
	}
	for i, sep := range seps {
		if sep.Pattern == "" {
			return splitRunes(text, size)
		}
		parts := s.splitBefore(text, sep)
		if len(parts) <= 1 {
			continue
		}
		var out []string
		for _, p := range parts {
			if runeLen(p) <= size {
				out = append(out, p)
			} else {
				out = append(out, s.splitRecursive(p, seps[i+1:], size)...)
			}
		}
		return out
	}
	// No separator matched anywhere in an oversize run.
	return splitRunes(text, size)
}

// splitBefore cuts text immediately before every occurrence of sep, so the
// separator text stays attached to the piece it introduces. Concatenating
// the returned pieces reproduces text exactly.
func (s *AdaptiveSplitter) splitBefore(text string, sep Separator) []string {
	var starts []int
	if sep.Regex {
		re := s.compile(sep.Pattern)
		for _, loc := range re.FindAllStringIndex(text, -1) {
			starts = append(starts, loc[0])
		}
	} else {
		from := 0
		for {
			i := strings.Index(text[from:], sep.Pattern)
			if i < 0 {
				break
			}
			starts = append(starts, from+i)
			from += i + len(sep.Pattern)
		}
	}
	if len(starts) == 0 {
		return []string{text}
	}
	var parts []string
	prev := 0
	for _, at := range starts {
		if at > prev {
			parts = append(parts, text[prev:at])
		}
		prev = at
	}
	parts = append(parts, text[prev:])
	return parts
}

func (s *AdaptiveSplitter) compile(pattern string) *regexp.Regexp {
	s.mu.Lock()
	defer s.mu.Unlock()
	if re, ok := s.regexes[pattern]; ok {
		return re
	}
	re := regexp.MustCompile(pattern)
	s.regexes[pattern] = re
	return re
}

// mergePieces greedily joins adjacent small pieces back together up to
// size runes per chunk. Pieces arrive already no larger than size.
func mergePieces(pieces []string, size int) []string {
	var out []string
	var cur strings.Builder
	curLen := 0
	for _, p := range pieces {
		pl := runeLen(p)
		if curLen > 0 && curLen+pl > size {
			out = append(out, cur.String())
			cur.Reset()
			curLen = 0
		}
		cur.WriteString(p)
		curLen += pl
	}
	if curLen > 0 {
		out = append(out, cur.String())
	}
	return out
}

// withOverlap prefixes every chunk after the first with the trailing
// overlap runes of its predecessor so context is not lost at boundaries.
func withOverlap(chunks []string, overlap int) []string {
	if overlap <= 0 || len(chunks) < 2 {
		return chunks
	}
	out := make([]string, len(chunks))
	out[0] = chunks[0]
	for i := 1; i < len(chunks); i++ {
		out[i] = tailRunes(chunks[i-1], overlap) + chunks[i]
	}
	return out
}

func runeLen(s string) int {
	n := 0
	for range s {
		n++
	}
	return n
}

func splitRunes(s string, size int) []string {
	r := []rune(s)
	var out []string
	for len(r) > size {
		out = append(out, string(r[:size]))
		r = r[size:]
	}
	if len(r) > 0 {
		out = append(out, string(r))
	}
	return out
}

func tailRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}
