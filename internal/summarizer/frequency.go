package summarizer

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

// FrequencySummarizer produces a short corpus overview by ranking lines
// with word-frequency scores. Thai prose rarely carries sentence
// punctuation, so lines (and punctuation-delimited sentences inside them)
// are the ranking unit.
type FrequencySummarizer struct {
	tokenRe *regexp.Regexp
}

// NewFrequencySummarizer creates a frequency-based overview generator.
func NewFrequencySummarizer() *FrequencySummarizer {
	return &FrequencySummarizer{tokenRe: regexp.MustCompile(`\p{L}+|\d+`)}
}

// Summarize returns up to maxSentences highest-scoring lines of text, in
// their original order.
func (s *FrequencySummarizer) Summarize(text string, maxSentences int) (string, error) {
	if maxSentences <= 0 {
		maxSentences = 3
	}
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return strings.TrimSpace(text), nil
	}

	freq := map[string]float64{}
	for _, sent := range sentences {
		for _, tok := range s.tokens(sent) {
			freq[tok]++
		}
	}
	maxF := 0.0
	for _, v := range freq {
		if v > maxF {
			maxF = v
		}
	}
	if maxF > 0 {
		for k, v := range freq {
			freq[k] = v / maxF
		}
	}

	type scored struct {
		idx   int
		score float64
	}
	ranked := make([]scored, len(sentences))
	for i, sent := range sentences {
		toks := s.tokens(sent)
		sum := 0.0
		for _, tok := range toks {
			sum += freq[tok]
		}
		if n := float64(len(toks)); n > 0 {
			sum /= math.Sqrt(n)
		}
		ranked[i] = scored{i, sum}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if maxSentences > len(ranked) {
		maxSentences = len(ranked)
	}
	top := ranked[:maxSentences]
	sort.Slice(top, func(i, j int) bool { return top[i].idx < top[j].idx })

	parts := make([]string, len(top))
	for i, t := range top {
		parts[i] = sentences[t.idx]
	}
	return strings.Join(parts, " "), nil
}

var sentenceEndRe = regexp.MustCompile(`[.!?]`)

func splitSentences(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		for _, sent := range sentenceEndRe.Split(line, -1) {
			sent = strings.TrimSpace(sent)
			if len([]rune(sent)) >= 10 {
				out = append(out, sent)
			}
		}
	}
	return out
}

func (s *FrequencySummarizer) tokens(text string) []string {
	return s.tokenRe.FindAllString(strings.ToLower(text), -1)
}
