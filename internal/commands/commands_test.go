package commands

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/balkashynov/murmur/internal/ai"
	"github.com/balkashynov/murmur/internal/config"
	"github.com/balkashynov/murmur/internal/enrich"
	"github.com/balkashynov/murmur/internal/logger"
	"github.com/balkashynov/murmur/internal/models"
	"github.com/balkashynov/murmur/internal/session"
)

func TestParseRecordingID(t *testing.T) {
	tests := []struct {
		in      string
		want    uint
		wantErr bool
	}{
		{"1", 1, false},
		{"42", 42, false},
		{"0", 0, true},
		{"-3", 0, true},
		{"abc", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := parseRecordingID(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseRecordingID(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseRecordingID(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{45 * time.Second, "45s"},
		{5 * time.Minute, "5m"},
		{90 * time.Minute, "1.5h"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestGetWeekStart(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{"monday", time.Date(2026, 10, 19, 15, 30, 0, 0, time.Local), time.Date(2026, 10, 19, 0, 0, 0, 0, time.Local)},
		{"wednesday", time.Date(2026, 10, 21, 8, 0, 0, 0, time.Local), time.Date(2026, 10, 19, 0, 0, 0, 0, time.Local)},
		{"sunday", time.Date(2026, 10, 25, 23, 59, 0, 0, time.Local), time.Date(2026, 10, 19, 0, 0, 0, 0, time.Local)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := getWeekStart(tt.in); !got.Equal(tt.want) {
				t.Errorf("getWeekStart(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestSummarizeWeek(t *testing.T) {
	weekStart := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	recs := []models.Recording{
		{CreatedAt: weekStart.Add(9 * time.Hour), DurationSeconds: 30, Transcript: "hi", Summary: "Hi."},
		{CreatedAt: weekStart.Add(20 * time.Hour), DurationSeconds: 90},
		{CreatedAt: weekStart.AddDate(0, 0, 6).Add(23 * time.Hour), DurationSeconds: 61},
	}

	days := summarizeWeek(recs, weekStart)

	if days[0].Notes != 2 || days[0].Seconds != 120 || days[0].Enriched != 1 {
		t.Errorf("monday = %+v", days[0])
	}
	if days[6].Notes != 1 || minutes(days[6].Seconds) != 2 {
		t.Errorf("sunday = %+v", days[6])
	}
	for i := 1; i < 6; i++ {
		if days[i].Notes != 0 {
			t.Errorf("day %d = %+v, want empty", i, days[i])
		}
	}
	if !days[3].Day.Equal(weekStart.AddDate(0, 0, 3)) {
		t.Errorf("day 3 starts %v", days[3].Day)
	}
}

func TestNewTranscriberAndSummarizer(t *testing.T) {
	log := logger.Discard()

	cfg := &config.Config{}
	cfg.Enrichment.Transcriber = config.TranscriberWhisper
	cfg.Enrichment.Summarizer = config.SummarizerExtractive
	if _, ok := newTranscriber(cfg, log).(*ai.Whisper); !ok {
		t.Errorf("whisper transcriber = %T", newTranscriber(cfg, log))
	}
	if _, ok := newSummarizer(cfg).(enrich.Extractive); !ok {
		t.Errorf("extractive summarizer = %T", newSummarizer(cfg))
	}

	cfg.Enrichment.Transcriber = config.TranscriberNone
	if _, ok := newTranscriber(cfg, log).(ai.Disabled); !ok {
		t.Errorf("disabled transcriber = %T", newTranscriber(cfg, log))
	}

	cfg.Enrichment.Transcriber = config.TranscriberOpenAI
	cfg.Enrichment.Summarizer = config.SummarizerOpenAI
	if _, ok := newTranscriber(cfg, log).(*ai.OpenAICompat); !ok {
		t.Errorf("openai transcriber = %T", newTranscriber(cfg, log))
	}
	if _, ok := newSummarizer(cfg).(*ai.OpenAICompat); !ok {
		t.Errorf("openai summarizer = %T", newSummarizer(cfg))
	}
}

func TestFetchServerState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/session" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(session.State{Recording: true, ElapsedSeconds: 12})
	}))
	defer srv.Close()

	state, err := fetchServerState(context.Background(), strings.TrimPrefix(srv.URL, "http://"))
	if err != nil {
		t.Fatalf("fetchServerState: %v", err)
	}
	if !state.Recording || state.ElapsedSeconds != 12 {
		t.Errorf("state = %+v", state)
	}
}

func TestFetchServerStateBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	if _, err := fetchServerState(context.Background(), strings.TrimPrefix(srv.URL, "http://")); err == nil {
		t.Fatal("expected an error for a 500 response")
	}
}

func TestListRowTruncatesByRune(t *testing.T) {
	rec := models.Recording{
		ID:              7,
		Title:           strings.Repeat("é", 50),
		Summary:         "Done.",
		Transcript:      "done",
		DurationSeconds: 65,
	}

	row := listRow(rec)
	if !utf8.ValidString(row) {
		t.Fatalf("row is not valid UTF-8: %q", row)
	}
	if !strings.Contains(row, strings.Repeat("é", 35)+"...") {
		t.Errorf("row = %q, want title cut to 35 runes", row)
	}
	if !strings.Contains(row, "01:05") || !strings.Contains(row, "enriched") {
		t.Errorf("row = %q", row)
	}
}
