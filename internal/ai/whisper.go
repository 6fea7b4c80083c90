package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/balkashynov/murmur/internal/audio"
	"github.com/balkashynov/murmur/internal/enrich"
	"github.com/balkashynov/murmur/internal/models"
)

// Whisper runs a local whisper.cpp binary over the artifact
type Whisper struct {
	path  string
	model string
	log   *slog.Logger
}

var _ enrich.Transcriber = (*Whisper)(nil)

func NewWhisper(path, model string, log *slog.Logger) *Whisper {
	if log == nil {
		log = slog.Default()
	}
	return &Whisper{path: path, model: model, log: log}
}

func (w *Whisper) Transcribe(ctx context.Context, artifact models.Artifact) (string, error) {
	if _, err := audio.Inspect(artifact.Path); err != nil {
		return "", fmt.Errorf("unreadable artifact: %w", err)
	}

	args := []string{"--no-timestamps"}
	if w.model != "" {
		args = append(args, "--model", w.model)
	}
	args = append(args, "--file", artifact.Path)

	cmd := exec.CommandContext(ctx, w.path, args...)

	w.log.Debug("Executing whisper command",
		"command", cmd.String(),
		"file", artifact.Path)

	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			w.log.Debug("Whisper command failed",
				"stderr", string(exitErr.Stderr),
				"exitCode", exitErr.ExitCode())
		}
		return "", fmt.Errorf("whisper execution failed: %w", err)
	}

	return extractText(string(output)), nil
}

// extractText joins whisper's output lines, dropping blanks and silence markers
func extractText(output string) string {
	var builder strings.Builder

	for _, line := range strings.Split(output, "\n") {
		text := strings.TrimSpace(line)
		if text == "" || strings.Contains(text, "[BLANK_AUDIO]") {
			continue
		}
		if builder.Len() > 0 {
			builder.WriteString(" ")
		}
		builder.WriteString(text)
	}

	return builder.String()
}

// ErrDisabled is returned by Disabled
var ErrDisabled = errors.New("transcription disabled in config")

// Disabled is the transcriber used when enrichment.transcriber is "none".
// Every run fails at stage one and leaves the record untouched.
type Disabled struct{}

func (Disabled) Transcribe(context.Context, models.Artifact) (string, error) {
	return "", ErrDisabled
}
