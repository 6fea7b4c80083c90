package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/youpy/go-wav"
)

const (
	bitsPerSample = 16
	// RIFF + fmt + data chunk headers
	headerSize = 44
)

// ErrEmptyAudio is returned for a WAV file that holds no samples
var ErrEmptyAudio = errors.New("audio file has no samples")

// Writer streams 16-bit PCM samples to a WAV file. The header is written with
// a zero length up front and rewritten with the real sample count on Close.
type Writer struct {
	mu         sync.Mutex
	f          *os.File
	w          *wav.Writer
	channels   uint16
	sampleRate uint32
	frames     uint32
	closed     bool
}

// Create opens path for writing, truncating any existing file
func Create(path string, sampleRate, channels int) (*Writer, error) {
	if channels < 1 || channels > 2 {
		return nil, fmt.Errorf("unsupported channel count %d", channels)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create wav: %w", err)
	}

	return &Writer{
		f:          f,
		w:          wav.NewWriter(f, 0, uint16(channels), uint32(sampleRate), bitsPerSample),
		channels:   uint16(channels),
		sampleRate: uint32(sampleRate),
	}, nil
}

// WriteInt16 appends interleaved samples
func (w *Writer) WriteInt16(in []int16) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return errors.New("wav writer closed")
	}

	n := len(in) / int(w.channels)
	samples := make([]wav.Sample, n)
	for i := range samples {
		for c := 0; c < int(w.channels); c++ {
			samples[i].Values[c] = int(in[i*int(w.channels)+c])
		}
	}
	if err := w.w.WriteSamples(samples); err != nil {
		return fmt.Errorf("write samples: %w", err)
	}
	w.frames += uint32(n)
	return nil
}

// Frames returns the number of frames written so far
func (w *Writer) Frames() uint32 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.frames
}

// Close finalizes the header and closes the file
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if _, err := w.f.Seek(0, io.SeekStart); err != nil {
		w.f.Close()
		return fmt.Errorf("rewind wav: %w", err)
	}
	wav.NewWriter(w.f, w.frames, w.channels, w.sampleRate, bitsPerSample)

	if err := w.f.Close(); err != nil {
		return fmt.Errorf("close wav: %w", err)
	}
	return nil
}

// Info describes a WAV file on disk
type Info struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
	Duration      time.Duration
}

// Inspect reads the header of the WAV file at path
func Inspect(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return Info{}, fmt.Errorf("stat wav: %w", err)
	}
	if st.Size() <= headerSize {
		return Info{}, ErrEmptyAudio
	}

	r := wav.NewReader(f)
	format, err := r.Format()
	if err != nil {
		return Info{}, fmt.Errorf("read wav format: %w", err)
	}
	d, err := r.Duration()
	if err != nil {
		return Info{}, fmt.Errorf("read wav duration: %w", err)
	}

	return Info{
		SampleRate:    int(format.SampleRate),
		Channels:      int(format.NumChannels),
		BitsPerSample: int(format.BitsPerSample),
		Duration:      d,
	}, nil
}
