package capture

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/balkashynov/murmur/internal/models"
)

// Device is the platform audio primitive. Start begins writing audio to path,
// Stop ends it and releases the hardware.
type Device interface {
	Start(path string) error
	Stop() error
}

// Clock is the time source used for elapsed time
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock reads the wall clock
var SystemClock Clock = systemClock{}

// FreeSpaceFunc reports the bytes available to the caller in dir
type FreeSpaceFunc func(dir string) (uint64, error)

// DefaultMinFreeBytes is the space floor below which a session refuses to start
const DefaultMinFreeBytes uint64 = 10 * 1024 * 1024

type State int

const (
	StateIdle State = iota
	StateActive
	StateFinished
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateFinished:
		return "finished"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Result is the outcome of stopping a session
type Result struct {
	State    State
	Artifact models.Artifact
	// Err is set when State is StateFailed and wraps ErrCaptureFailed
	Err error
}

type Options struct {
	MinFreeBytes uint64
	Clock        Clock
	FreeSpace    FreeSpaceFunc
	Logger       *slog.Logger
}

// Recorder drives one device through capture sessions, one at a time
type Recorder struct {
	dev       Device
	clock     Clock
	freeSpace FreeSpaceFunc
	minFree   uint64
	log       *slog.Logger

	mu        sync.Mutex
	state     State
	path      string
	startedAt time.Time
}

func NewRecorder(dev Device, opts Options) *Recorder {
	r := &Recorder{
		dev:       dev,
		clock:     opts.Clock,
		freeSpace: opts.FreeSpace,
		minFree:   opts.MinFreeBytes,
		log:       opts.Logger,
	}
	if r.clock == nil {
		r.clock = SystemClock
	}
	if r.freeSpace == nil {
		r.freeSpace = FreeBytes
	}
	if r.log == nil {
		r.log = slog.Default()
	}
	return r
}

// Start acquires the device and begins writing to path.
// Any failure leaves the recorder idle with nothing held.
func (r *Recorder) Start(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == StateActive {
		return ErrBusy
	}

	dir := filepath.Dir(path)
	free, err := r.freeSpace(dir)
	if err != nil {
		return fmt.Errorf("%w: check free space in %s: %w", ErrResourceUnavailable, dir, err)
	}
	if free < r.minFree {
		r.log.Warn("Refusing to record, low disk space",
			"dir", dir,
			"freeBytes", free,
			"minFreeBytes", r.minFree)
		return fmt.Errorf("%w: %w (%d bytes free, need %d)", ErrResourceUnavailable, ErrInsufficientSpace, free, r.minFree)
	}

	if err := r.dev.Start(path); err != nil {
		r.removePartial(path)
		r.state = StateIdle
		return fmt.Errorf("%w: %w", ErrResourceUnavailable, err)
	}

	r.state = StateActive
	r.path = path
	r.startedAt = r.clock.Now()

	r.log.Info("Capture started", "file", path)
	return nil
}

// Stop ends the active session. Device trouble is reported in the Result,
// not as a separate error.
func (r *Recorder) Stop() Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateActive {
		return Result{State: StateFailed, Err: fmt.Errorf("%w: %w", ErrCaptureFailed, ErrNotActive)}
	}

	stoppedAt := r.clock.Now()
	stopErr := r.dev.Stop()
	duration := wholeSeconds(stoppedAt.Sub(r.startedAt))
	path := r.path
	r.path = ""

	if stopErr != nil {
		return r.fail(path, fmt.Errorf("stop device: %w", stopErr))
	}
	if _, err := os.Stat(path); err != nil {
		return r.fail(path, fmt.Errorf("artifact missing: %w", err))
	}

	r.state = StateFinished
	r.log.Info("Capture finished", "file", path, "durationSeconds", duration)

	return Result{
		State:    StateFinished,
		Artifact: models.Artifact{Path: path, DurationSeconds: duration},
	}
}

func (r *Recorder) fail(path string, cause error) Result {
	r.state = StateFailed
	r.log.Error("Capture failed", "file", path, "error", cause)
	return Result{
		State:    StateFailed,
		Artifact: models.Artifact{Path: path},
		Err:      fmt.Errorf("%w: %w", ErrCaptureFailed, cause),
	}
}

// Elapsed returns whole seconds since the active session started, or 0
func (r *Recorder) Elapsed() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateActive {
		return 0
	}
	return wholeSeconds(r.clock.Now().Sub(r.startedAt))
}

func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Close releases the device if a session is still active
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateActive {
		return nil
	}
	r.state = StateIdle
	r.path = ""
	if err := r.dev.Stop(); err != nil {
		return fmt.Errorf("release device: %w", err)
	}
	return nil
}

func wholeSeconds(d time.Duration) int {
	if d < 0 {
		return 0
	}
	return int(d / time.Second)
}

func (r *Recorder) removePartial(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		r.log.Warn("Failed to remove partial capture file", "file", path, "error", err)
	}
}
