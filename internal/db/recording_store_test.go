package db

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/balkashynov/murmur/internal/models"
)

// newTestStore opens a fresh on-disk database in a temp dir.
func newTestStore(t *testing.T) *RecordStore {
	t.Helper()

	gdb, err := Open(filepath.Join(t.TempDir(), "murmur.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { Close(gdb) })

	return NewRecordStore(gdb, nil)
}

func sampleRecording(createdAt time.Time, duration int) models.Recording {
	return models.Recording{
		Title:           models.PlaceholderTitle(createdAt),
		CreatedAt:       createdAt,
		DurationSeconds: duration,
		FilePath:        "/tmp/audio_" + createdAt.Format("150405") + ".wav",
	}
}

// recv waits for the next value on a live stream.
func recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		if !ok {
			t.Fatal("stream closed unexpectedly")
		}
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for stream value")
	}
	var zero T
	return zero
}

func TestCreateThenObserveOneRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	in := sampleRecording(time.Date(2026, 10, 19, 9, 30, 15, 0, time.UTC), 42)
	id, err := store.Create(ctx, in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id == 0 {
		t.Fatal("create returned id 0")
	}

	got := recv(t, store.ObserveOne(ctx, id))
	if got == nil {
		t.Fatal("ObserveOne returned nil for existing record")
	}

	in.ID = id
	if !got.Equal(in) {
		t.Errorf("round trip mismatch:\n got  %+v\n want %+v", *got, in)
	}
	if got.Transcript != "" || got.Summary != "" {
		t.Errorf("derived fields should start empty, got transcript=%q summary=%q", got.Transcript, got.Summary)
	}
}

func TestCreateRejectsInvalidRecords(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	tests := []struct {
		name string
		rec  models.Recording
	}{
		{"negative duration", sampleRecording(now, -1)},
		{"empty path", models.Recording{Title: "x", CreatedAt: now}},
		{"empty title", models.Recording{FilePath: "/tmp/a.wav", CreatedAt: now}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := store.Create(ctx, tt.rec); !errors.Is(err, ErrInvalidRecord) {
				t.Errorf("err = %v, want ErrInvalidRecord", err)
			}
		})
	}

	recs, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("got %d records after rejected creates, want 0", len(recs))
	}
}

func TestCreateAcceptsZeroDuration(t *testing.T) {
	store := newTestStore(t)

	id, err := store.Create(context.Background(), sampleRecording(time.Now(), 0))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	rec, err := store.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.DurationSeconds != 0 {
		t.Errorf("duration = %d, want 0", rec.DurationSeconds)
	}
}

func TestListOrderedNewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	// Insert out of order, with one pair sharing a timestamp
	for _, offset := range []time.Duration{2 * time.Hour, 0, 5 * time.Hour, 2 * time.Hour} {
		if _, err := store.Create(ctx, sampleRecording(base.Add(offset), 1)); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	recs, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 4 {
		t.Fatalf("got %d records, want 4", len(recs))
	}
	for i := 1; i < len(recs); i++ {
		prev, cur := recs[i-1], recs[i]
		if cur.CreatedAt.After(prev.CreatedAt) {
			t.Errorf("recs[%d] created %v after recs[%d] %v", i, cur.CreatedAt, i-1, prev.CreatedAt)
		}
		if cur.CreatedAt.Equal(prev.CreatedAt) && cur.ID > prev.ID {
			t.Errorf("tie not broken by id desc: %d before %d", prev.ID, cur.ID)
		}
	}
}

func TestUpdateFieldIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.Create(ctx, sampleRecording(time.Now(), 3))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := store.UpdateField(ctx, id, models.FieldTranscript, "hello there"); err != nil {
			t.Fatalf("update #%d: %v", i+1, err)
		}
	}

	rec, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.Transcript != "hello there" {
		t.Errorf("transcript = %q, want %q", rec.Transcript, "hello there")
	}
}

func TestUpdateFieldNotFound(t *testing.T) {
	store := newTestStore(t)

	err := store.UpdateField(context.Background(), 999, models.FieldSummary, "anything")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdateFieldRejectsEmptyAndUnknown(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.Create(ctx, sampleRecording(time.Now(), 3))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := store.UpdateField(ctx, id, models.FieldTranscript, "  "); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("empty value err = %v, want ErrInvalidValue", err)
	}
	if err := store.UpdateField(ctx, id, models.Field("file_path"), "/etc/passwd"); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("unknown field err = %v, want ErrInvalidValue", err)
	}
}

func TestUpdateFieldTranscriptSetOnce(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.Create(ctx, sampleRecording(time.Now(), 3))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.UpdateField(ctx, id, models.FieldTranscript, "first"); err != nil {
		t.Fatalf("update: %v", err)
	}

	err = store.UpdateField(ctx, id, models.FieldTranscript, "second")
	if !errors.Is(err, ErrFieldAlreadySet) {
		t.Errorf("err = %v, want ErrFieldAlreadySet", err)
	}

	// Title is not set-once
	if err := store.UpdateField(ctx, id, models.FieldTitle, "Weekly Sync"); err != nil {
		t.Fatalf("title update: %v", err)
	}
	if err := store.UpdateField(ctx, id, models.FieldTitle, "Budget Review"); err != nil {
		t.Fatalf("second title update: %v", err)
	}

	rec, _ := store.Get(ctx, id)
	if rec.Transcript != "first" {
		t.Errorf("transcript = %q, want %q", rec.Transcript, "first")
	}
	if rec.Title != "Budget Review" {
		t.Errorf("title = %q, want %q", rec.Title, "Budget Review")
	}
}

func TestObserveAllSnapshotThenChanges(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := store.Create(ctx, sampleRecording(time.Now().Add(-time.Minute), 1)); err != nil {
		t.Fatalf("create: %v", err)
	}

	stream := store.ObserveAll(ctx)
	first := recv(t, stream)
	if len(first) != 1 {
		t.Fatalf("initial snapshot has %d records, want 1", len(first))
	}

	id, err := store.Create(ctx, sampleRecording(time.Now(), 2))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	second := recv(t, stream)
	if len(second) != 2 {
		t.Fatalf("snapshot after create has %d records, want 2", len(second))
	}
	if second[0].ID != id {
		t.Errorf("newest record should be first, got id %d want %d", second[0].ID, id)
	}
}

func TestObserveAllNewObserverGetsCurrentSnapshot(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for i := 0; i < 3; i++ {
		if _, err := store.Create(ctx, sampleRecording(time.Now().Add(time.Duration(i)*time.Second), i)); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	a := recv(t, store.ObserveAll(ctx))
	b := recv(t, store.ObserveAll(ctx))
	if len(a) != 3 || len(b) != 3 {
		t.Errorf("observers got %d and %d records, want 3 each", len(a), len(b))
	}
}

func TestObserveOneMissingThenCreated(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Ids start at 1 in a fresh table
	stream := store.ObserveOne(ctx, 1)
	if got := recv(t, stream); got != nil {
		t.Fatalf("expected nil for missing record, got %+v", *got)
	}

	if _, err := store.Create(ctx, sampleRecording(time.Now(), 5)); err != nil {
		t.Fatalf("create: %v", err)
	}

	got := recv(t, stream)
	if got == nil || got.ID != 1 {
		t.Fatalf("expected record 1 after create, got %+v", got)
	}
}

func TestObserveOneSeesFieldUpdatesInOrder(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	id, err := store.Create(ctx, sampleRecording(time.Now(), 3))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	stream := store.ObserveOne(ctx, id)
	recv(t, stream)

	if err := store.UpdateField(ctx, id, models.FieldTranscript, "Speaker 1: hello"); err != nil {
		t.Fatalf("update transcript: %v", err)
	}
	got := recv(t, stream)
	if got.Transcript != "Speaker 1: hello" {
		t.Errorf("transcript = %q", got.Transcript)
	}

	if err := store.UpdateField(ctx, id, models.FieldSummary, "Greeting."); err != nil {
		t.Fatalf("update summary: %v", err)
	}
	got = recv(t, stream)
	if got.Summary != "Greeting." || got.Transcript == "" {
		t.Errorf("after summary update got %+v", *got)
	}
}

func TestObserveOneSkipsUnchangedValues(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	id, err := store.Create(ctx, sampleRecording(time.Now(), 3))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.UpdateField(ctx, id, models.FieldTitle, "Same"); err != nil {
		t.Fatalf("update: %v", err)
	}

	stream := store.ObserveOne(ctx, id)
	recv(t, stream)

	// Rewriting the same title must not produce a new emission
	if err := store.UpdateField(ctx, id, models.FieldTitle, "Same"); err != nil {
		t.Fatalf("update: %v", err)
	}

	select {
	case rec := <-stream:
		t.Errorf("unexpected emission for unchanged record: %+v", rec)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestObserveUnsubscribesOnCancel(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())

	stream := store.ObserveAll(ctx)
	recv(t, stream)
	cancel()

	// Drain until closed
	for range stream {
	}

	if n := store.hub.count(); n != 0 {
		t.Errorf("hub still has %d subscribers after cancel", n)
	}
}

func TestConcurrentUpdatesOnDifferentRecords(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	const n = 8
	ids := make([]uint, n)
	for i := range ids {
		id, err := store.Create(ctx, sampleRecording(time.Now().Add(time.Duration(i)*time.Second), i))
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		ids[i] = id
	}

	var wg sync.WaitGroup
	errs := make(chan error, n*2)
	for _, id := range ids {
		wg.Add(1)
		go func(id uint) {
			defer wg.Done()
			if err := store.UpdateField(ctx, id, models.FieldTranscript, "t"); err != nil {
				errs <- err
			}
			if err := store.UpdateField(ctx, id, models.FieldSummary, "s"); err != nil {
				errs <- err
			}
		}(id)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent update: %v", err)
	}

	recs, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, rec := range recs {
		if rec.Transcript != "t" || rec.Summary != "s" {
			t.Errorf("record %d = %q/%q, want t/s", rec.ID, rec.Transcript, rec.Summary)
		}
	}
}
