// Package llm talks to a local Ollama server to generate answers from an
// assembled context. The pipeline treats the generator as an external
// collaborator: its output is not parsed beyond a sanity check on length.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"curriculum-rag/internal/domain"
)

// systemPrompt pins the answering rules: Thai only, grounded in the
// provided context, no fabrication, explicit refusal when nothing is
// found.
const systemPrompt = `คุณเป็นผู้ช่วยที่ตอบคำถามจากเอกสารหลักสูตรภาษาไทย
กฎการตอบ:
1. ตอบเป็นภาษาไทยเท่านั้น สั้น กระชับ ตรงประเด็น
2. ใช้เฉพาะข้อมูลจากเอกสารที่ให้มา ห้ามแต่งเรื่อง
3. ถ้าถามรหัสวิชา ต้องค้นหารหัสนั้นให้เจอก่อนตอบ
4. ถ้าถามปี/ภาคการศึกษา ให้ตอบเฉพาะส่วนที่ตรงปีและภาคนั้น
5. ถ้าถาม "มีอะไรบ้าง" หรือ "ทั้งหมด" ให้ระบุครบทุกรายการที่พบ
6. ถ้าไม่พบข้อมูล ให้ตอบว่าไม่พบข้อมูล ห้ามตอบเรื่องอื่น`

// Config configures the Ollama chat client.
type Config struct {
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Client generates answers via the Ollama chat API.
type Client struct {
	cfg    Config
	client *http.Client
	log    *zap.Logger
}

// NewClient creates an Ollama chat client. Zero-valued fields of cfg get
// sensible local defaults.
func NewClient(cfg Config, log *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "gemma2:2b"
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.1
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 512
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}, log: log}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string         `json:"model"`
	Messages []chatMessage  `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
}

// Generate builds the prompt from contextText, the question and bounded
// conversation history, and returns the model's answer text.
func (c *Client) Generate(ctx context.Context, question, contextText string, history []domain.Turn) (string, error) {
	messages := []chatMessage{{Role: "system", Content: systemPrompt}}
	for _, turn := range history {
		messages = append(messages,
			chatMessage{Role: "user", Content: turn.Question},
			chatMessage{Role: "assistant", Content: turn.Answer},
		)
	}
	messages = append(messages, chatMessage{Role: "user", Content: buildPrompt(question, contextText)})

	body := chatRequest{
		Model:    c.cfg.Model,
		Messages: messages,
		Stream:   false,
		Options: map[string]any{
			"temperature":    c.cfg.Temperature,
			"num_predict":    c.cfg.MaxTokens,
			"top_p":          0.9,
			"top_k":          40,
			"repeat_penalty": 1.3,
			"stop":           []string{"</s>", "<|end|>", "คำถาม:", "\n\n\n"},
		},
	}
	data, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/api/chat", bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama chat request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("ollama chat failed: %s", resp.Status)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode ollama response: %w", err)
	}
	answer := dedupeLines(strings.TrimSpace(out.Message.Content))
	c.log.Debug("generated answer",
		zap.String("model", c.cfg.Model),
		zap.Int("answer_runes", len([]rune(answer))),
		zap.Duration("elapsed", time.Since(start)))
	return answer, nil
}

// dedupeLines drops repeated content lines; small local models loop on
// long tabular context and repeat themselves.
func dedupeLines(s string) string {
	lines := strings.Split(s, "\n")
	seen := make(map[string]struct{}, len(lines))
	out := lines[:0]
	for _, line := range lines {
		key := strings.TrimSpace(line)
		if len([]rune(key)) > 20 {
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

func buildPrompt(question, contextText string) string {
	var b strings.Builder
	b.WriteString("ข้อมูลที่เกี่ยวข้องจากเอกสาร:\n")
	b.WriteString(contextText)
	b.WriteString("\n\nคำถาม: ")
	b.WriteString(question)
	b.WriteString("\n\nคำตอบ:")
	return b.String()
}
