package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/balkashynov/murmur/internal/models"
)

// RecordStore owns the durable recordings table and its live queries
type RecordStore struct {
	db  *gorm.DB
	hub *hub
	log *slog.Logger
}

// NewRecordStore wraps an open database connection
func NewRecordStore(db *gorm.DB, log *slog.Logger) *RecordStore {
	if log == nil {
		log = slog.Default()
	}
	return &RecordStore{
		db:  db,
		hub: newHub(),
		log: log,
	}
}

// Create inserts a new recording and returns its id.
// The insert is a single statement, so the row is either fully visible or absent.
func (s *RecordStore) Create(ctx context.Context, rec models.Recording) (uint, error) {
	if err := validateRecording(rec); err != nil {
		return 0, err
	}

	rec.ID = 0
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	// Stored as text, so a single zone keeps ORDER BY created_at chronological
	rec.CreatedAt = rec.CreatedAt.UTC()

	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return 0, &StorageError{Op: "create", Err: err}
	}

	s.log.Debug("Recording created",
		"recordingID", rec.ID,
		"durationSeconds", rec.DurationSeconds,
		"file", rec.FilePath)

	s.hub.publish(rec.ID)
	return rec.ID, nil
}

// validateRecording checks the invariants a record must satisfy before it is written
func validateRecording(rec models.Recording) error {
	if rec.DurationSeconds < 0 {
		return fmt.Errorf("%w: negative duration %d", ErrInvalidRecord, rec.DurationSeconds)
	}
	if strings.TrimSpace(rec.FilePath) == "" {
		return fmt.Errorf("%w: file path required", ErrInvalidRecord)
	}
	if strings.TrimSpace(rec.Title) == "" {
		return fmt.Errorf("%w: title required", ErrInvalidRecord)
	}
	return nil
}

// Get returns a snapshot of one recording
func (s *RecordStore) Get(ctx context.Context, id uint) (models.Recording, error) {
	var rec models.Recording
	err := s.db.WithContext(ctx).First(&rec, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Recording{}, fmt.Errorf("recording #%d: %w", id, ErrNotFound)
		}
		return models.Recording{}, &StorageError{Op: "get", Err: err}
	}
	return rec, nil
}

// List returns every recording, newest first
func (s *RecordStore) List(ctx context.Context) ([]models.Recording, error) {
	var recs []models.Recording
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Find(&recs).Error
	if err != nil {
		return nil, &StorageError{Op: "list", Err: err}
	}
	return recs, nil
}

// UpdateField sets exactly one derived field on a recording.
// Writing the value a field already holds succeeds without changing anything
// observable. Transcript and summary can only move from empty to a value.
func (s *RecordStore) UpdateField(ctx context.Context, id uint, field models.Field, value string) error {
	if !field.Valid() {
		return fmt.Errorf("%w: unknown field %q", ErrInvalidValue, field)
	}
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: empty %s", ErrInvalidValue, field)
	}

	col := string(field)
	q := s.db.WithContext(ctx).Model(&models.Recording{})
	if field == models.FieldTitle {
		q = q.Where("id = ?", id)
	} else {
		q = q.Where("id = ? AND ("+col+" = '' OR "+col+" = ?)", id, value)
	}

	res := q.Update(col, value)
	if res.Error != nil {
		return &StorageError{Op: "update " + col, Err: res.Error}
	}

	if res.RowsAffected == 0 {
		var n int64
		if err := s.db.WithContext(ctx).Model(&models.Recording{}).Where("id = ?", id).Count(&n).Error; err != nil {
			return &StorageError{Op: "update " + col, Err: err}
		}
		if n == 0 {
			return fmt.Errorf("recording #%d: %w", id, ErrNotFound)
		}
		return fmt.Errorf("recording #%d %s: %w", id, field, ErrFieldAlreadySet)
	}

	s.log.Debug("Recording field updated",
		"recordingID", id,
		"field", field,
		"length", len(value))

	s.hub.publish(id)
	return nil
}

// ObserveAll streams the full ordered list: the current snapshot first, then a
// fresh snapshot after every change. The channel closes when ctx is done.
func (s *RecordStore) ObserveAll(ctx context.Context) <-chan []models.Recording {
	out := make(chan []models.Recording)
	sub, unsubscribe := s.hub.subscribe(watchAll)

	go func() {
		defer close(out)
		defer unsubscribe()

		for {
			recs, err := s.List(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				s.log.Warn("Live list query failed", "error", err)
			} else {
				select {
				case out <- recs:
				case <-ctx.Done():
					return
				}
			}

			select {
			case <-sub.dirty:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

// ObserveOne streams one recording: nil while it does not exist, otherwise its
// current value, re-sent whenever it changes. The channel closes when ctx is done.
func (s *RecordStore) ObserveOne(ctx context.Context, id uint) <-chan *models.Recording {
	out := make(chan *models.Recording)
	sub, unsubscribe := s.hub.subscribe(id)

	go func() {
		defer close(out)
		defer unsubscribe()

		var last *models.Recording
		first := true

		for {
			rec, err := s.Get(ctx, id)
			switch {
			case err == nil:
				if first || last == nil || !last.Equal(rec) {
					snapshot := rec
					if !send(ctx, out, &snapshot) {
						return
					}
					last = &snapshot
				}
				first = false
			case errors.Is(err, ErrNotFound):
				if first || last != nil {
					if !send(ctx, out, nil) {
						return
					}
					last = nil
				}
				first = false
			default:
				if ctx.Err() != nil {
					return
				}
				s.log.Warn("Live recording query failed", "recordingID", id, "error", err)
			}

			select {
			case <-sub.dirty:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

func send(ctx context.Context, out chan<- *models.Recording, rec *models.Recording) bool {
	select {
	case out <- rec:
		return true
	case <-ctx.Done():
		return false
	}
}
