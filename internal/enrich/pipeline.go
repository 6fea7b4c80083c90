package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/balkashynov/murmur/internal/db"
	"github.com/balkashynov/murmur/internal/models"
)

// Store is the slice of the record store enrichment needs
type Store interface {
	Get(ctx context.Context, id uint) (models.Recording, error)
	UpdateField(ctx context.Context, id uint, field models.Field, value string) error
}

type Transcriber interface {
	Transcribe(ctx context.Context, artifact models.Artifact) (string, error)
}

type Summary struct {
	Text  string
	Title string
}

type Summarizer interface {
	Summarize(ctx context.Context, transcript string) (Summary, error)
}

type Config struct {
	Workers   int
	QueueSize int
	// Timeout bounds each backend call; zero means no limit
	Timeout time.Duration
	Logger  *slog.Logger
}

// Pipeline turns a stored recording into a transcript, then a summary and title.
// Each stage is persisted as soon as it completes and is skipped on retry.
type Pipeline struct {
	store       Store
	transcriber Transcriber
	summarizer  Summarizer
	cfg         Config
	log         *slog.Logger

	inflight singleflight.Group

	mu      sync.Mutex
	queue   chan uint
	queued  map[uint]struct{}
	cancel  context.CancelFunc
	workers sync.WaitGroup
}

func New(store Store, transcriber Transcriber, summarizer Summarizer, cfg Config) *Pipeline {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 32
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	return &Pipeline{
		store:       store,
		transcriber: transcriber,
		summarizer:  summarizer,
		cfg:         cfg,
		log:         log,
		queued:      make(map[uint]struct{}),
	}
}

// Run enriches one recording and returns its final state.
// Concurrent calls for the same id share a single execution.
func (p *Pipeline) Run(ctx context.Context, id uint) (models.Recording, error) {
	v, err, shared := p.inflight.Do(strconv.FormatUint(uint64(id), 10), func() (any, error) {
		return p.run(ctx, id)
	})
	if shared {
		p.log.Debug("Joined in-flight enrichment", "recordingID", id)
	}
	rec, _ := v.(models.Recording)
	return rec, err
}

func (p *Pipeline) run(ctx context.Context, id uint) (models.Recording, error) {
	rec, err := p.store.Get(ctx, id)
	if err != nil {
		return models.Recording{}, err
	}

	if rec.Enriched() {
		return rec, nil
	}

	if rec.Transcript == "" {
		text, err := p.transcribe(ctx, rec)
		if err != nil {
			return rec, err
		}
		if err := p.store.UpdateField(ctx, id, models.FieldTranscript, text); err != nil {
			if !errors.Is(err, db.ErrFieldAlreadySet) {
				return rec, err
			}
			// Another writer got there first; theirs stands
			if rec, err = p.store.Get(ctx, id); err != nil {
				return rec, err
			}
		} else {
			rec.Transcript = text
		}
		p.log.Info("Transcript stored", "recordingID", id, "length", len(rec.Transcript))
	}

	if rec.Summary == "" {
		sum, err := p.summarize(ctx, rec)
		if err != nil {
			return rec, err
		}
		// Title first: a non-empty summary marks the record complete
		if err := p.store.UpdateField(ctx, id, models.FieldTitle, sum.Title); err != nil {
			return rec, err
		}
		if err := p.store.UpdateField(ctx, id, models.FieldSummary, sum.Text); err != nil && !errors.Is(err, db.ErrFieldAlreadySet) {
			return rec, err
		}
		p.log.Info("Summary stored", "recordingID", id, "title", sum.Title)
	}

	return p.store.Get(ctx, id)
}

func (p *Pipeline) transcribe(ctx context.Context, rec models.Recording) (string, error) {
	ctx, cancel := p.stageContext(ctx)
	defer cancel()

	start := time.Now()
	text, err := p.transcriber.Transcribe(ctx, rec.Artifact())
	if err != nil {
		return "", &TranscriptionError{RecordingID: rec.ID, Err: err}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", &TranscriptionError{RecordingID: rec.ID, Err: ErrEmptyTranscript}
	}

	p.log.Debug("Transcription finished", "recordingID", rec.ID, "took", time.Since(start))
	return text, nil
}

func (p *Pipeline) summarize(ctx context.Context, rec models.Recording) (Summary, error) {
	ctx, cancel := p.stageContext(ctx)
	defer cancel()

	sum, err := p.summarizer.Summarize(ctx, rec.Transcript)
	if err != nil {
		return Summary{}, &SummarizationError{RecordingID: rec.ID, Err: err}
	}
	sum.Text = strings.TrimSpace(sum.Text)
	if sum.Text == "" {
		return Summary{}, &SummarizationError{RecordingID: rec.ID, Err: ErrEmptySummary}
	}
	sum.Title = strings.TrimSpace(sum.Title)
	if sum.Title == "" {
		sum.Title = DeriveTitle(rec.Transcript)
	}
	return sum, nil
}

func (p *Pipeline) stageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, p.cfg.Timeout)
	}
	return context.WithCancel(ctx)
}

// Start launches the worker pool that serves Trigger
func (p *Pipeline) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.queue = make(chan uint, p.cfg.QueueSize)

	for i := 0; i < p.cfg.Workers; i++ {
		p.workers.Add(1)
		go p.worker(ctx, p.queue)
	}
	p.log.Debug("Enrichment workers started", "workers", p.cfg.Workers)
}

// Stop cancels running jobs, drops queued ones and waits for the workers
func (p *Pipeline) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.queue = nil
	p.queued = make(map[uint]struct{})
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	p.workers.Wait()
	p.log.Debug("Enrichment workers stopped")
}

// Trigger queues id for background enrichment. Failures are logged, never
// returned. It reports whether the id was accepted or already pending.
func (p *Pipeline) Trigger(id uint) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.queue == nil {
		p.log.Warn("Enrichment not running, trigger ignored", "recordingID", id)
		return false
	}
	if _, ok := p.queued[id]; ok {
		return true
	}

	select {
	case p.queue <- id:
		p.queued[id] = struct{}{}
		return true
	default:
		p.log.Warn("Enrichment queue full, trigger dropped", "recordingID", id)
		return false
	}
}

func (p *Pipeline) worker(ctx context.Context, queue <-chan uint) {
	defer p.workers.Done()

	for {
		select {
		case <-ctx.Done():
			return

		case id := <-queue:
			p.mu.Lock()
			delete(p.queued, id)
			p.mu.Unlock()

			if _, err := p.Run(ctx, id); err != nil {
				if ctx.Err() != nil {
					return
				}
				p.log.Error("Enrichment failed", "recordingID", id, "error", err)
			}
		}
	}
}

// Describe summarizes where a record is in the pipeline, for status output
func Describe(rec models.Recording) string {
	switch {
	case rec.Enriched():
		return "enriched"
	case rec.Transcript != "":
		return "transcribed"
	}
	return fmt.Sprintf("pending (%ds audio)", rec.DurationSeconds)
}
