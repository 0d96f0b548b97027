package domain

import "context"

// Embedder converts free text into a numeric vector representation.
// Implementations may require a preparation phase over the corpus.
type Embedder interface {
	Name() string
	Prepare(corpus []string) error
	Dimension() int
	Embed(text string) ([]float64, error)
}

// Splitter segments raw text into ordered fragments and reports the
// content type it detected for the span.
type Splitter interface {
	Split(text string, page int) ([]string, ContentType)
}

// Generator produces a free-text answer from an assembled context, the raw
// question and prior conversation turns.
type Generator interface {
	Generate(ctx context.Context, question, contextText string, history []Turn) (string, error)
}

// Turn is one question/answer pair in the conversation history.
type Turn struct {
	Question string
	Answer   string
}

// Answer is the result of one question against the ingested corpus.
type Answer struct {
	Text      string
	Sources   []Fragment
	NoContext bool
}

// RAGService defines the operations exposed by the application core.
type RAGService interface {
	IngestDocuments(paths []string) (summary string, err error)
	Ask(ctx context.Context, question string) (Answer, error)
	ClearHistory()
}
