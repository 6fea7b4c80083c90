package enrich

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyTranscript = errors.New("transcriber returned no text")
	ErrEmptySummary    = errors.New("summarizer returned no summary")
)

// TranscriptionError means stage one failed; the transcript stays empty
type TranscriptionError struct {
	RecordingID uint
	Err         error
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("transcribe recording #%d: %v", e.RecordingID, e.Err)
}

func (e *TranscriptionError) Unwrap() error { return e.Err }

// SummarizationError means stage two failed; summary and title stay unchanged
type SummarizationError struct {
	RecordingID uint
	Err         error
}

func (e *SummarizationError) Error() string {
	return fmt.Sprintf("summarize recording #%d: %v", e.RecordingID, e.Err)
}

func (e *SummarizationError) Unwrap() error { return e.Err }
