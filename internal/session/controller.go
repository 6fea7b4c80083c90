package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/balkashynov/murmur/internal/capture"
	"github.com/balkashynov/murmur/internal/db"
	"github.com/balkashynov/murmur/internal/models"
)

// createTimeout bounds persisting a finished capture
const createTimeout = 10 * time.Second

type Store interface {
	Create(ctx context.Context, rec models.Recording) (uint, error)
	Get(ctx context.Context, id uint) (models.Recording, error)
	ObserveOne(ctx context.Context, id uint) <-chan *models.Recording
}

type Recorder interface {
	Start(ctx context.Context, path string) error
	Stop() capture.Result
	Elapsed() int
	Close() error
}

type Enricher interface {
	Trigger(id uint) bool
}

// State is what observers see of the current session
type State struct {
	Recording      bool   `json:"recording"`
	ElapsedSeconds int    `json:"elapsed_seconds"`
	Failure        string `json:"failure,omitempty"`
	// LastRecordingID is the record created by the most recent stop, 0 if none
	LastRecordingID uint `json:"last_recording_id,omitempty"`
}

type Config struct {
	RecordingsDir string
	// TickInterval is how often elapsed time is published while recording
	TickInterval time.Duration
	// AutoEnrich queues enrichment as soon as a record is created
	AutoEnrich bool
	Clock      capture.Clock
	Logger     *slog.Logger
}

// Controller owns the recorder and turns start/stop requests into records
type Controller struct {
	store    Store
	recorder Recorder
	enricher Enricher
	cfg      Config
	log      *slog.Logger

	// mu serializes start, stop and shutdown
	mu        sync.Mutex
	recording bool
	stopTick  context.CancelFunc
	tickDone  chan struct{}

	stateMu sync.Mutex
	state   State
	subs    map[int]chan State
	nextSub int
}

func NewController(store Store, recorder Recorder, enricher Enricher, cfg Config) *Controller {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = capture.SystemClock
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	return &Controller{
		store:    store,
		recorder: recorder,
		enricher: enricher,
		cfg:      cfg,
		log:      log,
		subs:     make(map[int]chan State),
	}
}

// RequestStart begins a capture session. It does nothing while one is active.
func (c *Controller) RequestStart(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.recording {
		c.log.Debug("Start ignored, already recording")
		return nil
	}

	if err := os.MkdirAll(c.cfg.RecordingsDir, 0755); err != nil {
		err = fmt.Errorf("%w: create recordings directory: %w", capture.ErrResourceUnavailable, err)
		c.fail(err)
		return err
	}

	path := filepath.Join(c.cfg.RecordingsDir, "audio_"+uuid.NewString()+".wav")
	if err := c.recorder.Start(ctx, path); err != nil {
		c.fail(err)
		return err
	}

	c.recording = true
	c.startTicker()
	c.update(func(s *State) {
		s.Recording = true
		s.ElapsedSeconds = 0
		s.Failure = ""
	})

	return nil
}

// RequestStop ends the active session and persists it. It returns nil, nil when
// nothing was recording.
func (c *Controller) RequestStop(ctx context.Context) (*models.Recording, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.recording {
		c.log.Debug("Stop ignored, not recording")
		return nil, nil
	}
	return c.stopLocked(ctx)
}

func (c *Controller) stopLocked(ctx context.Context) (*models.Recording, error) {
	c.haltTicker()
	res := c.recorder.Stop()
	c.recording = false

	c.update(func(s *State) {
		s.Recording = false
		s.ElapsedSeconds = 0
	})

	if res.State != capture.StateFinished {
		err := res.Err
		if err == nil {
			err = capture.ErrCaptureFailed
		}
		c.fail(err)
		return nil, err
	}

	if _, err := os.Stat(res.Artifact.Path); err != nil {
		err = fmt.Errorf("%w: artifact missing: %w", capture.ErrCaptureFailed, err)
		c.fail(err)
		return nil, err
	}

	createdAt := c.cfg.Clock.Now()
	rec := models.Recording{
		Title:           models.PlaceholderTitle(createdAt),
		CreatedAt:       createdAt,
		DurationSeconds: res.Artifact.DurationSeconds,
		FilePath:        res.Artifact.Path,
	}

	// The device is already released; the caller going away must not lose the capture
	createCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), createTimeout)
	defer cancel()

	id, err := c.store.Create(createCtx, rec)
	if err != nil {
		c.fail(err)
		return nil, err
	}
	rec.ID = id

	c.log.Info("Recording saved",
		"recordingID", id,
		"durationSeconds", rec.DurationSeconds,
		"file", rec.FilePath)

	c.update(func(s *State) { s.LastRecordingID = id })

	if c.cfg.AutoEnrich && c.enricher != nil {
		c.enricher.Trigger(id)
	}

	return &rec, nil
}

// OpenDetail streams one record and queues enrichment if its summary is missing
func (c *Controller) OpenDetail(ctx context.Context, id uint) (<-chan *models.Recording, error) {
	rec, err := c.store.Get(ctx, id)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return nil, err
	}
	if err == nil && rec.Summary == "" && c.enricher != nil {
		c.enricher.Trigger(id)
	}
	return c.store.ObserveOne(ctx, id), nil
}

// State returns the current snapshot
func (c *Controller) State() State {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.state
}

// Observe streams session state: the current value first, then every change.
// A slow reader only ever sees the newest value.
func (c *Controller) Observe(ctx context.Context) <-chan State {
	ch := make(chan State, 1)

	c.stateMu.Lock()
	key := c.nextSub
	c.nextSub++
	c.subs[key] = ch
	ch <- c.state
	c.stateMu.Unlock()

	go func() {
		<-ctx.Done()
		c.stateMu.Lock()
		if _, ok := c.subs[key]; ok {
			delete(c.subs, key)
			close(ch)
		}
		c.stateMu.Unlock()
	}()

	return ch
}

// Shutdown stops an active session, saving it if it finished cleanly,
// releases the device and closes every observer stream.
func (c *Controller) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var stopErr error
	if c.recording {
		c.log.Info("Stopping active recording for shutdown")
		_, stopErr = c.stopLocked(ctx)
	}
	closeErr := c.recorder.Close()

	c.stateMu.Lock()
	for key, ch := range c.subs {
		delete(c.subs, key)
		close(ch)
	}
	c.stateMu.Unlock()

	return errors.Join(stopErr, closeErr)
}

func (c *Controller) fail(err error) {
	c.log.Error("Session failure", "error", err)
	c.update(func(s *State) {
		s.Recording = false
		s.ElapsedSeconds = 0
		s.Failure = err.Error()
	})
}

// update applies fn to the state and publishes the result
func (c *Controller) update(fn func(*State)) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	prev := c.state
	fn(&c.state)
	if c.state == prev {
		return
	}

	for _, ch := range c.subs {
		select {
		case <-ch:
		default:
		}
		ch <- c.state
	}
}

func (c *Controller) startTicker() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.stopTick = cancel
	c.tickDone = done

	go func() {
		defer close(done)
		t := time.NewTicker(c.cfg.TickInterval)
		defer t.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				elapsed := c.recorder.Elapsed()
				c.update(func(s *State) {
					if s.Recording {
						s.ElapsedSeconds = elapsed
					}
				})
			}
		}
	}()
}

func (c *Controller) haltTicker() {
	if c.stopTick == nil {
		return
	}
	c.stopTick()
	<-c.tickDone
	c.stopTick = nil
	c.tickDone = nil
}
