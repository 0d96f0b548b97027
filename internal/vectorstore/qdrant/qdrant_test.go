package qdrant

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"curriculum-rag/internal/domain"
)

func TestPayloadRoundTrip(t *testing.T) {
	fr := domain.Fragment{
		ID:          "doc-1:4",
		DocumentID:  "doc-1",
		Source:      "curriculum.txt",
		Index:       4,
		Text:        "ปีที่ 2 ภาคการศึกษาที่ 1\n01418211 การสร้างซอฟต์แวร์",
		ContentType: domain.ContentCurriculumTable,
		Page:        12,
		Fields: domain.StructuredFields{
			ItemCodes:      []string{"01418211", "01418231"},
			CodeCount:      2,
			Period:         "2",
			Subperiod:      "1",
			IsTabular:      true,
			AggregateTotal: 19,
			Preview:        "ปีที่ 2 ภาคการศึกษาที่ 1 01418211",
		},
	}

	// Mimic the wire: JSON re-encodes ints as float64.
	data, err := json.Marshal(payloadFromFragment(fr))
	require.NoError(t, err)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(data, &payload))

	assert.Equal(t, fr, fragmentFromPayload(payload))
}

func TestSearchRestoresFragments(t *testing.T) {
	fr := domain.Fragment{
		ID:          "doc-1:0",
		DocumentID:  "doc-1",
		Text:        "01418111 วิทยาการคอมพิวเตอร์เบื้องต้น",
		ContentType: domain.ContentCourseDescription,
		Fields:      domain.StructuredFields{ItemCodes: []string{"01418111"}, CodeCount: 1},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/collections/curriculum/points/search", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("api-key"))
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, float64(3), req["limit"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"result": []map[string]any{
				{"score": 0.91, "payload": payloadFromFragment(fr)},
			},
		})
	}))
	defer srv.Close()

	s := NewStorage(Config{URL: srv.URL, APIKey: "secret", Collection: "curriculum"})
	results, err := s.Search([]float64{0.1, 0.2}, 3)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, fr, results[0].Fragment)
	assert.InDelta(t, 0.91, results[0].Score, 1e-9)
}

func TestInitCreatesCollection(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/collections/curriculum", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
	}))
	defer srv.Close()

	s := NewStorage(Config{URL: srv.URL, Collection: "curriculum"})
	require.NoError(t, s.Init(128))
	vectors := gotBody["vectors"].(map[string]any)
	assert.Equal(t, float64(128), vectors["size"])
	assert.Equal(t, "Cosine", vectors["distance"])

	assert.Error(t, s.Init(0))
}
