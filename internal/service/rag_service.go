package service

import (
	"context"
	"crypto/sha1"
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode"

	"go.uber.org/zap"

	"curriculum-rag/internal/annotate"
	"curriculum-rag/internal/document"
	"curriculum-rag/internal/domain"
	"curriculum-rag/internal/retrieval"
	"curriculum-rag/internal/summarizer"
	"curriculum-rag/internal/vectorstore"
)

// NoInfoAnswer is surfaced when fragment selection yields nothing usable.
// Fabricating an answer from unrelated context is worse than admitting
// the miss.
const NoInfoAnswer = "ขออภัย ไม่พบข้อมูลที่เกี่ยวข้องในเอกสารที่อัพโหลด กรุณาลองถามใหม่อีกครั้ง"

// minAnswerRunes is the generation-failure signal: an answer shorter
// than this is treated as no answer at all.
const minAnswerRunes = 10

// Options bundles the retrieval-side tunables consumed by the service.
type Options struct {
	SearchK          int
	MaxFragments     int
	ContextBudget    int
	MaxHistoryTurns  int
	OverviewMaxLines int
}

func (o *Options) applyDefaults() {
	if o.SearchK <= 0 {
		o.SearchK = 5
	}
	if o.MaxFragments <= 0 {
		o.MaxFragments = 2
	}
	if o.ContextBudget <= 0 {
		o.ContextBudget = 1500
	}
	if o.MaxHistoryTurns <= 0 {
		o.MaxHistoryTurns = 25
	}
	if o.OverviewMaxLines <= 0 {
		o.OverviewMaxLines = 3
	}
}

// RAGServiceImpl wires the ingestion pipeline (read, split, annotate,
// embed, store) to the question path (search, filter, assemble,
// generate).
type RAGServiceImpl struct {
	reader     *document.Reader
	splitter   domain.Splitter
	embedder   domain.Embedder
	store      vectorstore.Storage
	filter     *retrieval.Filter
	assembler  *retrieval.Assembler
	generator  domain.Generator
	summarizer *summarizer.FrequencySummarizer
	log        *zap.Logger
	opts       Options

	mu        sync.Mutex
	fragments []domain.Fragment
	history   []domain.Turn
}

// NewRAGService assembles the service from its collaborators.
func NewRAGService(
	reader *document.Reader,
	splitter domain.Splitter,
	embedder domain.Embedder,
	store vectorstore.Storage,
	filter *retrieval.Filter,
	generator domain.Generator,
	log *zap.Logger,
	opts Options,
) *RAGServiceImpl {
	opts.applyDefaults()
	if log == nil {
		log = zap.NewNop()
	}
	return &RAGServiceImpl{
		reader:     reader,
		splitter:   splitter,
		embedder:   embedder,
		store:      store,
		filter:     filter,
		assembler:  retrieval.NewAssembler(),
		generator:  generator,
		summarizer: summarizer.NewFrequencySummarizer(),
		log:        log,
		opts:       opts,
	}
}

// FileReport summarizes what one source file contributed to the index.
type FileReport struct {
	Path      string
	Fragments int
	ByType    map[domain.ContentType]int
}

// IngestDocuments reads, splits, annotates, embeds and stores the given
// paths. The returned summary is a short human-readable ingest report
// plus a frequency-based corpus overview.
func (s *RAGServiceImpl) IngestDocuments(paths []string) (string, error) {
	reports, err := s.IngestWithReport(paths)
	if err != nil {
		return "", err
	}
	total := 0
	for _, r := range reports {
		total += r.Fragments
	}
	if total == 0 {
		return "no indexable content found", nil
	}

	s.mu.Lock()
	var corpus strings.Builder
	for _, fr := range s.fragments {
		corpus.WriteString(fr.Fields.Preview)
		corpus.WriteString("\n")
	}
	s.mu.Unlock()
	overview, _ := s.summarizer.Summarize(corpus.String(), s.opts.OverviewMaxLines)

	return fmt.Sprintf("%d files, %d fragments indexed. %s", len(reports), total, overview), nil
}

// IngestWithReport is IngestDocuments with a per-file breakdown, used by
// the indexer CLI.
func (s *RAGServiceImpl) IngestWithReport(paths []string) ([]FileReport, error) {
	docs, err := s.reader.Read(paths)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, errors.New("no .txt documents found")
	}

	var (
		all     []domain.Fragment
		reports []FileReport
	)
	for _, doc := range docs {
		report := FileReport{Path: doc.Path, ByType: make(map[domain.ContentType]int)}
		index := 0
		for _, page := range doc.Pages {
			chunks, contentType := s.splitter.Split(page.Text, page.Number)
			s.log.Debug("classified span",
				zap.String("source", doc.Path),
				zap.Int("page", page.Number),
				zap.String("content_type", string(contentType)),
				zap.Int("chunks", len(chunks)))
			for _, chunk := range chunks {
				if strings.TrimSpace(chunk) == "" {
					continue
				}
				fr := domain.Fragment{
					ID:          fmt.Sprintf("%s:%d", doc.ID, index),
					DocumentID:  doc.ID,
					Source:      doc.Path,
					Index:       index,
					Text:        chunk,
					ContentType: contentType,
					Page:        page.Number,
					Fields:      annotate.Extract(chunk),
				}
				index++
				all = append(all, fr)
				report.Fragments++
				report.ByType[contentType]++
			}
		}
		reports = append(reports, report)
	}

	all = dedupeByContent(all)
	if len(all) == 0 {
		// Nothing to index is a warning, not an error: the caller
		// surfaces it upstream.
		s.log.Warn("no indexable content after splitting", zap.Int("files", len(docs)))
		return reports, nil
	}

	texts := make([]string, len(all))
	for i, fr := range all {
		texts[i] = fr.Text
	}
	if err := s.embedder.Prepare(texts); err != nil {
		return nil, fmt.Errorf("prepare embedder: %w", err)
	}
	if err := s.store.Init(s.embedder.Dimension()); err != nil {
		return nil, fmt.Errorf("init vector store: %w", err)
	}
	vectors := make([][]float64, len(all))
	for i := range all {
		vec, err := s.embedder.Embed(all[i].Text)
		if err != nil {
			return nil, fmt.Errorf("embed fragment %s: %w", all[i].ID, err)
		}
		vectors[i] = vec
	}
	if err := s.store.Clear(); err != nil {
		return nil, err
	}
	if err := s.store.Upsert(all, vectors); err != nil {
		return nil, fmt.Errorf("upsert fragments: %w", err)
	}

	s.mu.Lock()
	s.fragments = all
	s.mu.Unlock()

	s.log.Info("ingest complete", zap.Int("files", len(docs)), zap.Int("fragments", len(all)))
	return reports, nil
}

// Ask answers a question against the ingested corpus.
func (s *RAGServiceImpl) Ask(ctx context.Context, question string) (domain.Answer, error) {
	candidates, err := s.retrieve(question)
	if err != nil {
		return domain.Answer{}, err
	}
	if len(candidates) == 0 {
		return domain.Answer{Text: NoInfoAnswer, NoContext: true}, nil
	}

	limit := retrieval.SuggestLimit(question, s.opts.MaxFragments)
	selected := s.filter.Filter(question, candidates, limit)
	assembled := s.assembler.Assemble(selected, s.opts.ContextBudget)
	s.log.Debug("assembled context",
		zap.Int("candidates", len(candidates)),
		zap.Int("selected", len(selected)),
		zap.Int("fragments_used", len(assembled.Fragments)),
		zap.Int("context_runes", assembled.TotalRunes))
	if strings.TrimSpace(assembled.Text) == "" {
		return domain.Answer{Text: NoInfoAnswer, NoContext: true}, nil
	}

	s.mu.Lock()
	history := append([]domain.Turn(nil), s.history...)
	s.mu.Unlock()

	answer, err := s.generator.Generate(ctx, question, assembled.Text, history)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("generate answer: %w", err)
	}
	if len([]rune(strings.TrimSpace(answer))) < minAnswerRunes {
		answer = NoInfoAnswer
	}

	s.mu.Lock()
	s.history = append(s.history, domain.Turn{Question: question, Answer: answer})
	if len(s.history) > s.opts.MaxHistoryTurns {
		s.history = s.history[len(s.history)-s.opts.MaxHistoryTurns:]
	}
	s.mu.Unlock()

	return domain.Answer{Text: answer, Sources: assembled.Fragments}, nil
}

// ClearHistory drops the conversation history.
func (s *RAGServiceImpl) ClearHistory() {
	s.mu.Lock()
	s.history = nil
	s.mu.Unlock()
}

// retrieve runs the vector search, falling back to lexical token-overlap
// ranking when the query embeds to the zero vector or similarity is flat.
func (s *RAGServiceImpl) retrieve(question string) ([]domain.Fragment, error) {
	vec, err := s.embedder.Embed(question)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	zero := true
	for _, v := range vec {
		if v != 0 {
			zero = false
			break
		}
	}
	if zero {
		return s.lexicalSearch(question, s.opts.SearchK), nil
	}
	results, err := s.store.Search(vec, s.opts.SearchK)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	flat := true
	for _, r := range results {
		if r.Score > 1e-9 {
			flat = false
			break
		}
	}
	if flat {
		return s.lexicalSearch(question, s.opts.SearchK), nil
	}
	out := make([]domain.Fragment, len(results))
	for i, r := range results {
		out[i] = r.Fragment
	}
	return out, nil
}

var lexTokenRe = regexp.MustCompile(`\p{L}+|\d+`)

func (s *RAGServiceImpl) lexicalSearch(question string, topK int) []domain.Fragment {
	s.mu.Lock()
	fragments := s.fragments
	s.mu.Unlock()
	if len(fragments) == 0 {
		return nil
	}
	qset := tokenSet(question)
	type scored struct {
		idx   int
		score float64
	}
	scores := make([]scored, len(fragments))
	for i, fr := range fragments {
		scores[i] = scored{i, ochiai(qset, tokenSet(fr.Text))}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	if topK <= 0 || topK > len(scores) {
		topK = len(scores)
	}
	out := make([]domain.Fragment, 0, topK)
	for i := 0; i < topK; i++ {
		if scores[i].score <= 0 {
			break
		}
		out = append(out, fragments[scores[i].idx])
	}
	return out
}

// tokenSet tokenizes with the same Thai-trigram scheme the TF-IDF
// embedder uses, so lexical and vector retrieval see comparable units.
func tokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range lexTokenRe.FindAllString(strings.ToLower(text), -1) {
		if startsThai(tok) {
			r := []rune(tok)
			if len(r) <= 3 {
				set[tok] = struct{}{}
				continue
			}
			for i := 0; i+3 <= len(r); i++ {
				set[string(r[i:i+3])] = struct{}{}
			}
		} else {
			set[tok] = struct{}{}
		}
	}
	return set
}

func startsThai(s string) bool {
	for _, r := range s {
		return unicode.Is(unicode.Thai, r)
	}
	return false
}

// ochiai computes |A∩B| / sqrt(|A||B|).
func ochiai(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if _, ok := b[t]; ok {
			inter++
		}
	}
	return float64(inter) / (math.Sqrt(float64(len(a))) * math.Sqrt(float64(len(b))))
}

// dedupeByContent drops fragments whose whole trimmed text already
// appeared, before any embedding work is spent on them.
func dedupeByContent(frags []domain.Fragment) []domain.Fragment {
	seen := make(map[[20]byte]struct{}, len(frags))
	out := frags[:0:0]
	for _, fr := range frags {
		key := sha1.Sum([]byte(strings.TrimSpace(fr.Text)))
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, fr)
	}
	return out
}
