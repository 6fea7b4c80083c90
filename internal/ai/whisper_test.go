package ai

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/balkashynov/murmur/internal/audio"
	"github.com/balkashynov/murmur/internal/models"
)

func TestExtractText(t *testing.T) {
	output := "\n[BLANK_AUDIO]\n  Hello there.  \n\nWe need the budget by Friday.\n"
	if got := extractText(output); got != "Hello there. We need the budget by Friday." {
		t.Errorf("extractText = %q", got)
	}
	if got := extractText("[BLANK_AUDIO]\n"); got != "" {
		t.Errorf("blank audio should yield empty text, got %q", got)
	}
}

func writeTone(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audio_tone.wav")
	w, err := audio.Create(path, 16000, 1)
	if err != nil {
		t.Fatalf("create wav: %v", err)
	}
	if err := w.WriteInt16(make([]int16, 1600)); err != nil {
		t.Fatalf("write wav: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close wav: %v", err)
	}
	return path
}

// fakeWhisper writes a shell script standing in for whisper-cli
func fakeWhisper(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in needs a unix shell")
	}
	path := filepath.Join(t.TempDir(), "whisper-cli")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestWhisperTranscribe(t *testing.T) {
	bin := fakeWhisper(t, `echo "[BLANK_AUDIO]"; echo " Weekly sync notes. "`)
	w := NewWhisper(bin, "ggml-base.en.bin", nil)

	text, err := w.Transcribe(context.Background(), models.Artifact{Path: writeTone(t), DurationSeconds: 0})
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if text != "Weekly sync notes." {
		t.Errorf("text = %q", text)
	}
}

func TestWhisperFailure(t *testing.T) {
	bin := fakeWhisper(t, `echo "model not found" >&2; exit 3`)
	w := NewWhisper(bin, "", nil)

	_, err := w.Transcribe(context.Background(), models.Artifact{Path: writeTone(t)})
	if err == nil {
		t.Fatal("expected error from failing whisper")
	}
}

func TestWhisperRejectsEmptyAudio(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.wav")
	w, err := audio.Create(path, 16000, 1)
	if err != nil {
		t.Fatalf("create wav: %v", err)
	}
	w.Close()

	_, err = NewWhisper("/nonexistent/whisper", "", nil).Transcribe(context.Background(), models.Artifact{Path: path})
	if !errors.Is(err, audio.ErrEmptyAudio) {
		t.Fatalf("err = %v, want ErrEmptyAudio", err)
	}
}

func TestDisabled(t *testing.T) {
	if _, err := (Disabled{}).Transcribe(context.Background(), models.Artifact{}); !errors.Is(err, ErrDisabled) {
		t.Errorf("err = %v, want ErrDisabled", err)
	}
}
