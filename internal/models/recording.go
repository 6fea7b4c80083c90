package models

import (
	"fmt"
	"time"
)

// Recording is the persisted metadata for one finished capture session
type Recording struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Title           string `gorm:"not null" json:"title"`
	DurationSeconds int    `gorm:"not null;check:chk_recordings_duration,duration_seconds >= 0" json:"duration_seconds"`
	FilePath        string `gorm:"not null" json:"file_path"`

	// Derived by enrichment, empty until the stage completes
	Transcript string `gorm:"not null;default:''" json:"transcript"`
	Summary    string `gorm:"not null;default:''" json:"summary"`
}

// Enriched reports whether both derived stages have completed.
// The summary is written last, so it doubles as the completion marker.
func (r Recording) Enriched() bool {
	return r.Transcript != "" && r.Summary != ""
}

// Artifact returns the audio artifact this record was created from
func (r Recording) Artifact() Artifact {
	return Artifact{Path: r.FilePath, DurationSeconds: r.DurationSeconds}
}

// Equal compares every persisted field. Times are compared with time.Equal
// so a value read back from the database matches the one written.
func (r Recording) Equal(o Recording) bool {
	return r.ID == o.ID &&
		r.CreatedAt.Equal(o.CreatedAt) &&
		r.Title == o.Title &&
		r.DurationSeconds == o.DurationSeconds &&
		r.FilePath == o.FilePath &&
		r.Transcript == o.Transcript &&
		r.Summary == o.Summary
}

// Artifact is the audio file produced by a finished capture session
type Artifact struct {
	Path            string `json:"path"`
	DurationSeconds int    `json:"duration_seconds"`
}

// Field names a derived column that enrichment may update
type Field string

const (
	FieldTranscript Field = "transcript"
	FieldSummary    Field = "summary"
	FieldTitle      Field = "title"
)

// Valid reports whether f is one of the updatable fields
func (f Field) Valid() bool {
	switch f {
	case FieldTranscript, FieldSummary, FieldTitle:
		return true
	}
	return false
}

// PlaceholderTitle is the title a record carries until enrichment derives one
func PlaceholderTitle(createdAt time.Time) string {
	return fmt.Sprintf("Recording %s", createdAt.Local().Format("Jan 02 15:04:05"))
}
