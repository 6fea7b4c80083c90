package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/balkashynov/murmur/internal/enrich"
	"github.com/balkashynov/murmur/internal/models"
)

const summaryPrompt = `You summarize voice notes. Reply with a JSON object with two string fields:
"summary": two or three sentences covering the key points and any decisions or action items,
"title": a short title of at most five words naming the topic.`

// OpenAICompat talks to any OpenAI-compatible API for transcription and summaries.
// baseURL should include the /v1 prefix, e.g. "http://localhost:8000/v1".
type OpenAICompat struct {
	baseURL            string
	apiKey             string
	model              string
	transcriptionModel string
	httpClient         *http.Client
}

var (
	_ enrich.Transcriber = (*OpenAICompat)(nil)
	_ enrich.Summarizer  = (*OpenAICompat)(nil)
)

func NewOpenAICompat(baseURL, apiKey, model, transcriptionModel string) *OpenAICompat {
	return &OpenAICompat{
		baseURL:            strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:             strings.TrimSpace(apiKey),
		model:              strings.TrimSpace(model),
		transcriptionModel: strings.TrimSpace(transcriptionModel),
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// Transcribe uploads the artifact to /audio/transcriptions
func (c *OpenAICompat) Transcribe(ctx context.Context, artifact models.Artifact) (string, error) {
	if c.transcriptionModel == "" {
		return "", errors.New("openai-compat transcription model required")
	}

	f, err := os.Open(artifact.Path)
	if err != nil {
		return "", fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("model", c.transcriptionModel); err != nil {
		return "", err
	}
	if err := mw.WriteField("response_format", "json"); err != nil {
		return "", err
	}
	part, err := mw.CreateFormFile("file", filepath.Base(artifact.Path))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("read artifact: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	var resp oaiTranscriptionResponse
	if err := c.post(ctx, "/audio/transcriptions", mw.FormDataContentType(), &body, &resp); err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text), nil
}

// Summarize asks the chat model for a summary and title. A reply that is not
// JSON is used whole as the summary and the title is left for the caller to derive.
func (c *OpenAICompat) Summarize(ctx context.Context, transcript string) (enrich.Summary, error) {
	if c.model == "" {
		return enrich.Summary{}, errors.New("openai-compat generation model required")
	}

	reqBody := oaiChatRequest{
		Model: c.model,
		Messages: []oaiMessage{
			{Role: "system", Content: summaryPrompt},
			{Role: "user", Content: transcript},
		},
		ResponseFormat: &oaiResponseFormat{Type: "json_object"},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return enrich.Summary{}, err
	}

	var chatResp oaiChatResponse
	if err := c.post(ctx, "/chat/completions", "application/json", bytes.NewReader(body), &chatResp); err != nil {
		return enrich.Summary{}, err
	}
	if len(chatResp.Choices) == 0 {
		return enrich.Summary{}, errors.New("empty response from openai-compat api")
	}

	return parseSummary(chatResp.Choices[0].Message.Content), nil
}

func parseSummary(content string) enrich.Summary {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimSuffix(strings.TrimPrefix(content, "```"), "```")
	content = strings.TrimSpace(content)

	var out struct {
		Summary string `json:"summary"`
		Title   string `json:"title"`
	}
	if err := json.Unmarshal([]byte(content), &out); err != nil || strings.TrimSpace(out.Summary) == "" {
		return enrich.Summary{Text: content}
	}
	return enrich.Summary{
		Text:  strings.TrimSpace(out.Summary),
		Title: strings.Trim(strings.TrimSpace(out.Title), `"`),
	}
}

func (c *OpenAICompat) post(ctx context.Context, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("openai-compat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp oaiErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Error.Message != "" {
			return fmt.Errorf("openai-compat api error: %s", errResp.Error.Message)
		}
		return fmt.Errorf("openai-compat api error: %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("openai-compat decode: %w", err)
	}
	return nil
}

// OpenAI-compatible request/response types.

type oaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type oaiResponseFormat struct {
	Type string `json:"type"`
}

type oaiChatRequest struct {
	Model          string             `json:"model"`
	Messages       []oaiMessage       `json:"messages"`
	ResponseFormat *oaiResponseFormat `json:"response_format,omitempty"`
}

type oaiChatResponse struct {
	Choices []struct {
		Message oaiMessage `json:"message"`
	} `json:"choices"`
}

type oaiTranscriptionResponse struct {
	Text string `json:"text"`
}

type oaiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}
