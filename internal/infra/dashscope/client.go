package dashscope

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"vocab-test-service/internal/domain"
)

const (
	DefaultBaseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"
	defaultVision  = "qwen3-vl-plus"
	defaultText    = "qwen-turbo"
)

const visionPrompt = "Extract all English words or phrases from the image. " +
	"If Chinese translations are visible, include them. " +
	"Return ONLY a JSON array of objects with keys word and meaning."

const normalizePrompt = "You will receive a JSON array of items with keys word and meaning. " +
	"Remove duplicates (case-insensitive), keep the original word casing, and fill in " +
	"missing Chinese meanings with concise translations. Return ONLY the cleaned JSON array."

// Client talks to DashScope's OpenAI-compatible chat-completions endpoint.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	visionModel string
	textModel   string
}

// Config selects models and endpoint; empty fields use the defaults.
type Config struct {
	APIKey      string
	BaseURL     string
	VisionModel string
	TextModel   string
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.VisionModel == "" {
		cfg.VisionModel = defaultVision
	}
	if cfg.TextModel == "" {
		cfg.TextModel = defaultText
	}
	return &Client{
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		visionModel: cfg.VisionModel,
		textModel:   cfg.TextModel,
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	Messages    []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// ExtractFromImage runs the vision model over the image, then the normalize
// pass over whatever it found.
func (c *Client) ExtractFromImage(ctx context.Context, dataURL string) ([]domain.WordEntry, error) {
	resp, err := c.chat(ctx, chatRequest{
		Model:       c.visionModel,
		Temperature: 0.1,
		Messages: []chatMessage{{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: visionPrompt},
				{Type: "image_url", ImageURL: &imageURL{URL: dataURL}},
			},
		}},
	})
	if err != nil {
		return nil, err
	}
	entries, err := parseEntries(resp)
	if err != nil {
		return nil, err
	}
	return c.Normalize(ctx, entries)
}

// Normalize dedupes entries and fills missing meanings via the text model.
func (c *Client) Normalize(ctx context.Context, entries []domain.WordEntry) ([]domain.WordEntry, error) {
	if len(entries) == 0 {
		return []domain.WordEntry{}, nil
	}
	payload, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("marshal entries: %w", err)
	}
	resp, err := c.chat(ctx, chatRequest{
		Model:       c.textModel,
		Temperature: 0.2,
		Messages: []chatMessage{{
			Role:    "user",
			Content: normalizePrompt + "\n\n" + string(payload),
		}},
	})
	if err != nil {
		return nil, err
	}
	return parseEntries(resp)
}

func (c *Client) chat(ctx context.Context, reqBody chatRequest) (string, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("call dashscope: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("dashscope error: %d %s", resp.StatusCode, string(text))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", nil
	}
	return parsed.Choices[0].Message.Content, nil
}

// parseEntries pulls the JSON array out of the model output, tolerating prose
// around it, and drops entries with an empty word.
func parseEntries(content string) ([]domain.WordEntry, error) {
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start == -1 || end == -1 || end <= start {
		return nil, fmt.Errorf("model output did not contain a JSON array")
	}
	var raw []domain.WordEntry
	if err := json.Unmarshal([]byte(content[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("parse model output: %w", err)
	}
	entries := make([]domain.WordEntry, 0, len(raw))
	for _, entry := range raw {
		entry.Word = strings.TrimSpace(entry.Word)
		entry.Meaning = strings.TrimSpace(entry.Meaning)
		if entry.Word != "" {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}
