package ai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/balkashynov/murmur/internal/models"
)

func TestOpenAICompatTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/transcriptions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("auth header = %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
			return
		}
		if r.FormValue("model") != "whisper-1" {
			t.Errorf("model = %q", r.FormValue("model"))
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		if hdr.Filename != "audio_x.wav" || string(data) != "RIFFDATA" {
			t.Errorf("upload = %s %q", hdr.Filename, data)
		}
		json.NewEncoder(w).Encode(map[string]string{"text": "  hello world \n"})
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "audio_x.wav")
	if err := os.WriteFile(path, []byte("RIFFDATA"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	c := NewOpenAICompat(srv.URL+"/v1/", "sk-test", "gpt-4o-mini", "whisper-1")
	text, err := c.Transcribe(context.Background(), models.Artifact{Path: path, DurationSeconds: 1})
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if text != "hello world" {
		t.Errorf("text = %q", text)
	}
}

func TestOpenAICompatSummarize(t *testing.T) {
	var gotReq oaiChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode: %v", err)
		}
		content := `{"summary": "Revenue is up 15%.", "title": "Q4 Budget Review"}`
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": content}}},
		})
	}))
	defer srv.Close()

	c := NewOpenAICompat(srv.URL+"/v1", "", "gpt-4o-mini", "whisper-1")
	sum, err := c.Summarize(context.Background(), "Speaker 1: revenue is up")
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if sum.Text != "Revenue is up 15%." || sum.Title != "Q4 Budget Review" {
		t.Errorf("summary = %+v", sum)
	}
	if gotReq.Model != "gpt-4o-mini" || len(gotReq.Messages) != 2 {
		t.Errorf("request = %+v", gotReq)
	}
	if gotReq.Messages[1].Content != "Speaker 1: revenue is up" {
		t.Errorf("user message = %q", gotReq.Messages[1].Content)
	}
}

func TestOpenAICompatAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": {"message": "rate limit reached", "type": "requests"}}`))
	}))
	defer srv.Close()

	c := NewOpenAICompat(srv.URL, "k", "m", "t")
	_, err := c.Summarize(context.Background(), "text")
	if err == nil || !strings.Contains(err.Error(), "rate limit reached") {
		t.Fatalf("err = %v, want api error message", err)
	}
}

func TestParseSummary(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		wantText  string
		wantTitle string
	}{
		{"json", `{"summary":"S.","title":"T"}`, "S.", "T"},
		{"fenced json", "```json\n{\"summary\":\"S.\",\"title\":\"\\\"T\\\"\"}\n```", "S.", "T"},
		{"plain text", "Just a summary.", "Just a summary.", ""},
		{"json without summary", `{"title":"T"}`, `{"title":"T"}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseSummary(tt.content)
			if got.Text != tt.wantText || got.Title != tt.wantTitle {
				t.Errorf("parseSummary(%q) = %+v", tt.content, got)
			}
		})
	}
}
