package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/youpy/go-wav"
)

// readMono returns the first channel of every sample in the file
func readMono(path string) ([]int16, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()

	r := wav.NewReader(f)
	var out []int16
	for {
		samples, err := r.ReadSamples()
		for _, s := range samples {
			out = append(out, int16(r.IntValue(s, 0)))
		}
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read samples: %w", err)
		}
	}
}

func TestWriterFinalizesHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")

	w, err := Create(path, 16000, 1)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Two chunks, as a capture callback would deliver them
	chunk := make([]int16, 8000)
	for i := range chunk {
		chunk[i] = int16(i % 128)
	}
	for i := 0; i < 2; i++ {
		if err := w.WriteInt16(chunk); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if w.Frames() != 16000 {
		t.Errorf("frames = %d, want 16000", w.Frames())
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	info, err := Inspect(path)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if info.SampleRate != 16000 || info.Channels != 1 || info.BitsPerSample != 16 {
		t.Errorf("format = %+v", info)
	}
	if info.Duration != time.Second {
		t.Errorf("duration = %v, want 1s", info.Duration)
	}

	samples, err := readMono(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(samples) != 16000 {
		t.Fatalf("read %d samples, want 16000", len(samples))
	}
	if samples[127] != 127 || samples[128] != 0 {
		t.Errorf("sample values not preserved: %d, %d", samples[127], samples[128])
	}
}

func TestWriterEmptyFileIsValid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.wav")

	w, err := Create(path, 44100, 1)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	// Second close is a no-op
	if err := w.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}

	st, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if st.Size() != headerSize {
		t.Errorf("size = %d, want bare %d byte header", st.Size(), headerSize)
	}
	if _, err := Inspect(path); !errors.Is(err, ErrEmptyAudio) {
		t.Errorf("inspect err = %v, want ErrEmptyAudio", err)
	}
	if err := w.WriteInt16([]int16{1}); err == nil {
		t.Error("write after close should fail")
	}
}

func TestCreateRejectsBadFormat(t *testing.T) {
	dir := t.TempDir()
	if _, err := Create(filepath.Join(dir, "a.wav"), 44100, 3); err == nil {
		t.Error("expected error for 3 channels")
	}
	if _, err := Create(filepath.Join(dir, "b.wav"), 0, 1); err == nil {
		t.Error("expected error for zero sample rate")
	}
}
