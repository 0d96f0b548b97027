package qdrant

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"curriculum-rag/internal/domain"
)

// Storage is a minimal REST client to Qdrant. It assumes cosine distance
// and creates the collection if missing. Fragment structured fields ride
// along in the point payload and are restored on search, so query-time
// metadata filtering keeps working against a remote index.
type Storage struct {
	url        string
	apiKey     string
	collection string
	dimension  int
	client     *http.Client
}

// Config contains connection details for a Qdrant vector store.
type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

// NewStorage creates a Qdrant-backed store from cfg.
func NewStorage(cfg Config) *Storage {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Storage{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

func (s *Storage) Init(dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.dimension = dimension
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	// Qdrant returns 200 OK if the collection already exists with the
	// same schema; a real conflict propagates as an error.
	return s.putJSON(fmt.Sprintf("%s/collections/%s", s.url, s.collection), body)
}

func (s *Storage) Upsert(fragments []domain.Fragment, vectors [][]float64) error {
	if len(fragments) != len(vectors) {
		return errors.New("fragments and vectors length mismatch")
	}
	points := make([]map[string]any, len(fragments))
	for i, fr := range fragments {
		points[i] = map[string]any{
			"id":      fr.ID,
			"vector":  vectors[i],
			"payload": payloadFromFragment(fr),
		}
	}
	body := map[string]any{"points": points}
	return s.putJSON(fmt.Sprintf("%s/collections/%s/points?wait=true", s.url, s.collection), body)
}

func (s *Storage) Search(vector []float64, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = 5
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := s.postJSON(fmt.Sprintf("%s/collections/%s/points/search", s.url, s.collection), req, &resp); err != nil {
		return nil, err
	}
	results := make([]domain.SearchResult, 0, len(resp.Result))
	for _, r := range resp.Result {
		results = append(results, domain.SearchResult{
			Fragment: fragmentFromPayload(r.Payload),
			Score:    r.Score,
		})
	}
	return results, nil
}

func (s *Storage) Clear() error {
	// Best-effort: drop collection
	req, _ := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/collections/%s", s.url, s.collection), nil)
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	_, _ = s.client.Do(req)
	return nil
}

func payloadFromFragment(fr domain.Fragment) map[string]any {
	return map[string]any{
		"document_id":     fr.DocumentID,
		"source":          fr.Source,
		"index":           fr.Index,
		"text":            fr.Text,
		"content_type":    string(fr.ContentType),
		"page":            fr.Page,
		"item_codes":      strings.Join(fr.Fields.ItemCodes, ","),
		"code_count":      fr.Fields.CodeCount,
		"period":          fr.Fields.Period,
		"subperiod":       fr.Fields.Subperiod,
		"is_tabular":      fr.Fields.IsTabular,
		"aggregate_total": fr.Fields.AggregateTotal,
		"preview":         fr.Fields.Preview,
	}
}

func fragmentFromPayload(p map[string]any) domain.Fragment {
	fr := domain.Fragment{}
	fr.DocumentID = str(p, "document_id")
	fr.Source = str(p, "source")
	fr.Index = num(p, "index")
	fr.Text = str(p, "text")
	fr.ContentType = domain.ContentType(str(p, "content_type"))
	fr.Page = num(p, "page")
	if codes := str(p, "item_codes"); codes != "" {
		fr.Fields.ItemCodes = strings.Split(codes, ",")
	}
	fr.Fields.CodeCount = num(p, "code_count")
	fr.Fields.Period = str(p, "period")
	fr.Fields.Subperiod = str(p, "subperiod")
	if v, ok := p["is_tabular"].(bool); ok {
		fr.Fields.IsTabular = v
	}
	fr.Fields.AggregateTotal = num(p, "aggregate_total")
	fr.Fields.Preview = str(p, "preview")
	fr.ID = fmt.Sprintf("%s:%d", fr.DocumentID, fr.Index)
	return fr
}

func str(p map[string]any, key string) string {
	v, _ := p[key].(string)
	return v
}

func num(p map[string]any, key string) int {
	if v, ok := p[key].(float64); ok {
		return int(v)
	}
	return 0
}

func (s *Storage) putJSON(url string, body any) error {
	data, _ := json.Marshal(body)
	req, _ := http.NewRequest(http.MethodPut, url, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant PUT %s failed: %s", url, resp.Status)
	}
	return nil
}

func (s *Storage) postJSON(url string, body any, out any) error {
	data, _ := json.Marshal(body)
	req, _ := http.NewRequest(http.MethodPost, url, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant POST %s failed: %s", url, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
