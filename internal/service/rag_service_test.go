package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"curriculum-rag/internal/classifier"
	"curriculum-rag/internal/document"
	"curriculum-rag/internal/domain"
	"curriculum-rag/internal/embedding"
	"curriculum-rag/internal/retrieval"
	"curriculum-rag/internal/splitter"
	"curriculum-rag/internal/vectorstore/memory"
)

// stubGenerator returns a canned answer and records what it was asked.
type stubGenerator struct {
	answer      string
	err         error
	lastContext string
	lastHistory []domain.Turn
	calls       int
}

func (g *stubGenerator) Generate(_ context.Context, _, contextText string, history []domain.Turn) (string, error) {
	g.calls++
	g.lastContext = contextText
	g.lastHistory = history
	return g.answer, g.err
}

const sampleDoc = `หลักสูตรวิทยาศาสตรบัณฑิต สาขาวิชาวิทยาการคอมพิวเตอร์

ปีที่ 1 ภาคการศึกษาที่ 1
01418111 วิทยาการคอมพิวเตอร์เบื้องต้น 3 หน่วยกิต
01418112 แนวคิดการโปรแกรมเบื้องต้น 3 หน่วยกิต
01417111 แคลคูลัส I 3 หน่วยกิต
รวม 16 หน่วยกิต

นักศึกษาต้องผ่านการฝึกงานภาคฤดูร้อนก่อนสำเร็จการศึกษา`

func newTestService(t *testing.T, gen domain.Generator) (*RAGServiceImpl, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "curriculum.txt")
	require.NoError(t, os.WriteFile(path, []byte(sampleDoc), 0o644))

	svc := NewRAGService(
		document.NewReader(),
		splitter.New(classifier.New(classifier.DefaultThresholds()), nil),
		embedding.NewTFIDFEmbedder(),
		memory.NewStorage(),
		retrieval.NewFilter(0),
		gen,
		nil,
		Options{},
	)
	return svc, path
}

func TestIngestDocuments(t *testing.T) {
	svc, path := newTestService(t, &stubGenerator{answer: "ok"})
	summary, err := svc.IngestDocuments([]string{path})
	require.NoError(t, err)
	assert.Contains(t, summary, "1 files")
}

func TestIngestWithReportCountsTypes(t *testing.T) {
	svc, path := newTestService(t, &stubGenerator{})
	reports, err := svc.IngestWithReport([]string{path})
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Greater(t, reports[0].Fragments, 0)
}

func TestIngestNoDocuments(t *testing.T) {
	svc, _ := newTestService(t, &stubGenerator{})
	_, err := svc.IngestDocuments([]string{filepath.Join(t.TempDir(), "*.txt")})
	assert.Error(t, err)
}

func TestAskAnswersFromContext(t *testing.T) {
	gen := &stubGenerator{answer: "วิชา 01418111 คือวิทยาการคอมพิวเตอร์เบื้องต้น สอนพื้นฐานการคำนวณ"}
	svc, path := newTestService(t, gen)
	_, err := svc.IngestDocuments([]string{path})
	require.NoError(t, err)

	ans, err := svc.Ask(context.Background(), "วิชา 01418111 คืออะไร")
	require.NoError(t, err)
	assert.False(t, ans.NoContext)
	assert.Equal(t, gen.answer, ans.Text)
	assert.NotEmpty(t, ans.Sources)
	assert.Contains(t, gen.lastContext, "01418111")
}

func TestAskReplacesTrivialAnswer(t *testing.T) {
	gen := &stubGenerator{answer: "ครับ"}
	svc, path := newTestService(t, gen)
	_, err := svc.IngestDocuments([]string{path})
	require.NoError(t, err)

	ans, err := svc.Ask(context.Background(), "ปีที่ 1 เรียนอะไรบ้าง")
	require.NoError(t, err)
	assert.Equal(t, NoInfoAnswer, ans.Text)
}

func TestAskKeepsBoundedHistory(t *testing.T) {
	gen := &stubGenerator{answer: "คำตอบยาวพอสมควรสำหรับการทดสอบ"}
	svc, path := newTestService(t, gen)
	svc.opts.MaxHistoryTurns = 2
	_, err := svc.IngestDocuments([]string{path})
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		_, err := svc.Ask(context.Background(), "ปีที่ 1 เรียนอะไรบ้าง")
		require.NoError(t, err)
	}
	assert.Len(t, gen.lastHistory, 2)

	svc.ClearHistory()
	_, err = svc.Ask(context.Background(), "ปีที่ 1 เรียนอะไรบ้าง")
	require.NoError(t, err)
	assert.Empty(t, gen.lastHistory)
}

func TestAskFallsBackToLexicalOnZeroVector(t *testing.T) {
	gen := &stubGenerator{answer: "คำตอบยาวพอสมควรสำหรับการทดสอบ"}
	svc, path := newTestService(t, gen)
	_, err := svc.IngestDocuments([]string{path})
	require.NoError(t, err)

	// Punctuation-only queries embed to the zero vector; lexical overlap
	// finds nothing either, so the explicit no-context answer comes back.
	ans, err := svc.Ask(context.Background(), "???")
	require.NoError(t, err)
	assert.True(t, ans.NoContext)
	assert.Equal(t, NoInfoAnswer, ans.Text)
	assert.Zero(t, gen.calls)
}

func TestDedupeByContent(t *testing.T) {
	frags := []domain.Fragment{
		{ID: "a", Text: "เหมือนกัน"},
		{ID: "b", Text: " เหมือนกัน "},
		{ID: "c", Text: "ต่างกัน"},
	}
	out := dedupeByContent(frags)
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].ID)
	assert.Equal(t, "c", out[1].ID)
}

func TestTokenSetThaiTrigrams(t *testing.T) {
	set := tokenSet("กขคง 01418111")
	assert.Contains(t, set, "กขค")
	assert.Contains(t, set, "ขคง")
	assert.Contains(t, set, "01418111")
}
