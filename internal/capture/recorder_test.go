package capture

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeDevice struct {
	mu       sync.Mutex
	starts   int
	stops    int
	startErr error
	stopErr  error
	// vanish removes the file on Stop, as if the OS reclaimed it
	vanish bool
	path   string
}

func (d *fakeDevice) Start(path string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.starts++
	if err := os.WriteFile(path, []byte("RIFF"), 0o644); err != nil {
		return err
	}
	if d.startErr != nil {
		return d.startErr
	}
	d.path = path
	return nil
}

func (d *fakeDevice) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stops++
	if d.vanish {
		os.Remove(d.path)
	}
	return d.stopErr
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func plentyOfSpace(string) (uint64, error) { return 1 << 40, nil }

func newTestRecorder(dev Device, clock Clock) *Recorder {
	return NewRecorder(dev, Options{
		MinFreeBytes: DefaultMinFreeBytes,
		Clock:        clock,
		FreeSpace:    plentyOfSpace,
	})
}

func TestStartStopComputesWholeSeconds(t *testing.T) {
	dev := &fakeDevice{}
	clock := newFakeClock()
	rec := newTestRecorder(dev, clock)
	path := filepath.Join(t.TempDir(), "audio_a.wav")

	if err := rec.Start(context.Background(), path); err != nil {
		t.Fatalf("start: %v", err)
	}
	if rec.State() != StateActive {
		t.Fatalf("state = %v, want active", rec.State())
	}

	clock.Advance(3*time.Second + 900*time.Millisecond)
	if got := rec.Elapsed(); got != 3 {
		t.Errorf("elapsed = %d, want 3", got)
	}

	res := rec.Stop()
	if res.State != StateFinished {
		t.Fatalf("result = %+v, want finished", res)
	}
	if res.Artifact.DurationSeconds != 3 {
		t.Errorf("duration = %d, want 3 (floored)", res.Artifact.DurationSeconds)
	}
	if res.Artifact.Path != path {
		t.Errorf("path = %q, want %q", res.Artifact.Path, path)
	}
	if dev.stops != 1 {
		t.Errorf("device stopped %d times, want 1", dev.stops)
	}
	if rec.Elapsed() != 0 {
		t.Error("elapsed should be 0 once stopped")
	}
}

func TestZeroElapsedFinishesWithZeroDuration(t *testing.T) {
	rec := newTestRecorder(&fakeDevice{}, newFakeClock())
	path := filepath.Join(t.TempDir(), "audio_zero.wav")

	if err := rec.Start(context.Background(), path); err != nil {
		t.Fatalf("start: %v", err)
	}
	res := rec.Stop()
	if res.State != StateFinished || res.Artifact.DurationSeconds != 0 {
		t.Errorf("result = %+v, want finished with 0 seconds", res)
	}
}

func TestStartWhileActiveKeepsSession(t *testing.T) {
	dev := &fakeDevice{}
	rec := newTestRecorder(dev, newFakeClock())
	dir := t.TempDir()
	first := filepath.Join(dir, "audio_1.wav")

	if err := rec.Start(context.Background(), first); err != nil {
		t.Fatalf("start: %v", err)
	}
	err := rec.Start(context.Background(), filepath.Join(dir, "audio_2.wav"))
	if !errors.Is(err, ErrBusy) {
		t.Fatalf("second start err = %v, want ErrBusy", err)
	}
	if dev.starts != 1 {
		t.Errorf("device acquired %d times, want 1", dev.starts)
	}

	res := rec.Stop()
	if res.Artifact.Path != first {
		t.Errorf("active session changed: got %q want %q", res.Artifact.Path, first)
	}
}

func TestLowFreeSpaceRefusesWithoutTouchingDevice(t *testing.T) {
	dev := &fakeDevice{}
	rec := NewRecorder(dev, Options{
		MinFreeBytes: DefaultMinFreeBytes,
		Clock:        newFakeClock(),
		FreeSpace:    func(string) (uint64, error) { return 5 * 1024 * 1024, nil },
	})

	err := rec.Start(context.Background(), filepath.Join(t.TempDir(), "audio.wav"))
	if !errors.Is(err, ErrResourceUnavailable) || !errors.Is(err, ErrInsufficientSpace) {
		t.Fatalf("err = %v, want ResourceUnavailable wrapping InsufficientSpace", err)
	}
	if dev.starts != 0 {
		t.Errorf("device touched %d times, want 0", dev.starts)
	}
	if rec.State() != StateIdle {
		t.Errorf("state = %v, want idle", rec.State())
	}
}

func TestFreeSpaceErrorIsResourceUnavailable(t *testing.T) {
	rec := NewRecorder(&fakeDevice{}, Options{
		FreeSpace: func(string) (uint64, error) { return 0, errors.New("no such volume") },
	})

	err := rec.Start(context.Background(), filepath.Join(t.TempDir(), "audio.wav"))
	if !errors.Is(err, ErrResourceUnavailable) {
		t.Fatalf("err = %v, want ErrResourceUnavailable", err)
	}
}

func TestDeviceStartFailureRemovesPartialFile(t *testing.T) {
	dev := &fakeDevice{startErr: ErrPermissionDenied}
	rec := newTestRecorder(dev, newFakeClock())
	path := filepath.Join(t.TempDir(), "audio.wav")

	err := rec.Start(context.Background(), path)
	if !errors.Is(err, ErrResourceUnavailable) || !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("err = %v, want ResourceUnavailable wrapping PermissionDenied", err)
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Errorf("partial file left behind: %v", statErr)
	}
	if rec.State() != StateIdle {
		t.Errorf("state = %v, want idle", rec.State())
	}

	// A later start works once the device is free
	dev.startErr = nil
	if err := rec.Start(context.Background(), path); err != nil {
		t.Fatalf("retry start: %v", err)
	}
}

// dirDevice leaves a non-empty directory where the audio file should be
type dirDevice struct{}

func (dirDevice) Start(path string) error {
	if err := os.MkdirAll(filepath.Join(path, "chunk"), 0o755); err != nil {
		return err
	}
	return ErrDeviceBusy
}

func (dirDevice) Stop() error { return nil }

func TestPartialFileCleanupUsesRecorderLogger(t *testing.T) {
	var buf bytes.Buffer
	rec := NewRecorder(dirDevice{}, Options{
		MinFreeBytes: DefaultMinFreeBytes,
		Clock:        newFakeClock(),
		FreeSpace:    plentyOfSpace,
		Logger:       slog.New(slog.NewTextHandler(&buf, nil)),
	})
	path := filepath.Join(t.TempDir(), "audio.wav")

	if err := rec.Start(context.Background(), path); !errors.Is(err, ErrDeviceBusy) {
		t.Fatalf("err = %v, want device busy", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Failed to remove partial capture file") || !strings.Contains(out, path) {
		t.Errorf("recorder log = %q", out)
	}
}

func TestStopFailuresAreReportedInResult(t *testing.T) {
	tests := []struct {
		name string
		dev  *fakeDevice
	}{
		{"device stopped itself", &fakeDevice{stopErr: errors.New("stream already stopped")}},
		{"artifact missing", &fakeDevice{vanish: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := newTestRecorder(tt.dev, newFakeClock())
			if err := rec.Start(context.Background(), filepath.Join(t.TempDir(), "audio.wav")); err != nil {
				t.Fatalf("start: %v", err)
			}

			res := rec.Stop()
			if res.State != StateFailed {
				t.Fatalf("state = %v, want failed", res.State)
			}
			if !errors.Is(res.Err, ErrCaptureFailed) {
				t.Errorf("err = %v, want ErrCaptureFailed", res.Err)
			}
			if rec.State() != StateFailed {
				t.Errorf("recorder state = %v, want failed", rec.State())
			}
		})
	}
}

func TestStopWithoutStart(t *testing.T) {
	rec := newTestRecorder(&fakeDevice{}, newFakeClock())

	res := rec.Stop()
	if res.State != StateFailed || !errors.Is(res.Err, ErrNotActive) {
		t.Errorf("result = %+v, want failed with ErrNotActive", res)
	}
}

func TestCloseReleasesActiveDevice(t *testing.T) {
	dev := &fakeDevice{}
	rec := newTestRecorder(dev, newFakeClock())

	if err := rec.Close(); err != nil {
		t.Fatalf("close idle: %v", err)
	}
	if dev.stops != 0 {
		t.Errorf("idle close touched device")
	}

	if err := rec.Start(context.Background(), filepath.Join(t.TempDir(), "audio.wav")); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if dev.stops != 1 {
		t.Errorf("device stopped %d times, want 1", dev.stops)
	}
	if rec.State() != StateIdle {
		t.Errorf("state = %v, want idle", rec.State())
	}
}

func TestStartHonoursCancelledContext(t *testing.T) {
	dev := &fakeDevice{}
	rec := newTestRecorder(dev, newFakeClock())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := rec.Start(ctx, filepath.Join(t.TempDir(), "audio.wav")); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if dev.starts != 0 {
		t.Error("device started despite cancelled context")
	}
}

func TestFreeBytesOnTempDir(t *testing.T) {
	free, err := FreeBytes(t.TempDir())
	if err != nil {
		t.Fatalf("free bytes: %v", err)
	}
	if free == 0 {
		t.Error("expected some free space in temp dir")
	}
}
