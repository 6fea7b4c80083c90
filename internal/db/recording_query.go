package db

import (
	"context"
	"time"

	"github.com/balkashynov/murmur/internal/models"
)

// ListRange returns recordings created in [from, to), oldest first
func (s *RecordStore) ListRange(ctx context.Context, from, to time.Time) ([]models.Recording, error) {
	var recs []models.Recording
	err := s.db.WithContext(ctx).
		Where("created_at >= ? AND created_at < ?", from.UTC(), to.UTC()).
		Order("created_at ASC").
		Order("id ASC").
		Find(&recs).Error
	if err != nil {
		return nil, &StorageError{Op: "list range", Err: err}
	}
	return recs, nil
}
