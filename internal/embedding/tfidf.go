package embedding

import (
	"errors"
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// TFIDFEmbedder is a local TF-IDF vectorizer usable fully offline. It
// builds a vocabulary from the corpus during Prepare and computes
// smoothed IDF weights.
//
// Thai text has no word boundaries, so a plain \p{L}+ tokenizer would
// produce one giant token per phrase. Runs of Thai script are therefore
// broken into overlapping character trigrams, which works well enough
// for retrieval without a dictionary tokenizer.
type TFIDFEmbedder struct {
	vocabulary map[string]int
	idf        []float64
	dimension  int
	prepared   bool
	wordRe     *regexp.Regexp
}

// NewTFIDFEmbedder creates an unprepared TF-IDF embedder.
func NewTFIDFEmbedder() *TFIDFEmbedder {
	return &TFIDFEmbedder{
		vocabulary: make(map[string]int),
		wordRe:     regexp.MustCompile(`\p{L}+|\d+`),
	}
}

func (e *TFIDFEmbedder) Name() string { return "tfidf" }

// Prepare builds the vocabulary and IDF table from the corpus.
func (e *TFIDFEmbedder) Prepare(corpus []string) error {
	if len(corpus) == 0 {
		return errors.New("empty corpus for TF-IDF prepare")
	}
	df := make(map[string]int)
	for _, text := range corpus {
		seen := make(map[string]struct{})
		for _, tok := range e.tokenize(text) {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}
	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	if len(terms) == 0 {
		return errors.New("no tokens found in corpus")
	}
	e.vocabulary = make(map[string]int, len(terms))
	e.idf = make([]float64, len(terms))
	n := float64(len(corpus))
	for i, term := range terms {
		e.vocabulary[term] = i
		// smoothed IDF
		e.idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1.0
	}
	e.dimension = len(terms)
	e.prepared = true
	return nil
}

func (e *TFIDFEmbedder) Dimension() int { return e.dimension }

// Embed returns the L2-normalized TF-IDF vector for text. Text with no
// in-vocabulary tokens embeds to the zero vector; callers use that as a
// signal to fall back to lexical search.
func (e *TFIDFEmbedder) Embed(text string) ([]float64, error) {
	if !e.prepared {
		return nil, errors.New("tfidf embedder not prepared")
	}
	vec := make([]float64, e.dimension)
	tf := make(map[int]int)
	total := 0
	for _, tok := range e.tokenize(text) {
		if idx, ok := e.vocabulary[tok]; ok {
			tf[idx]++
			total++
		}
	}
	if total == 0 {
		return vec, nil
	}
	for idx, count := range tf {
		vec[idx] = float64(count) / float64(total) * e.idf[idx]
	}
	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec, nil
}

func (e *TFIDFEmbedder) tokenize(text string) []string {
	lower := strings.ToLower(text)
	var out []string
	for _, raw := range e.wordRe.FindAllString(lower, -1) {
		if isThai(raw) {
			out = append(out, thaiTrigrams(raw)...)
		} else {
			out = append(out, raw)
		}
	}
	return out
}

func isThai(s string) bool {
	for _, r := range s {
		return unicode.Is(unicode.Thai, r)
	}
	return false
}

// thaiTrigrams emits overlapping character trigrams for a Thai run. Runs
// shorter than three runes are emitted as-is.
func thaiTrigrams(s string) []string {
	r := []rune(s)
	if len(r) <= 3 {
		return []string{s}
	}
	grams := make([]string, 0, len(r)-2)
	for i := 0; i+3 <= len(r); i++ {
		grams = append(grams, string(r[i:i+3]))
	}
	return grams
}
