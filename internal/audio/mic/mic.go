package mic

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"

	"github.com/balkashynov/murmur/internal/audio"
	"github.com/balkashynov/murmur/internal/capture"
)

const (
	channels        = 1
	framesPerBuffer = 1024
	// ~23s of 44.1kHz audio before the callback starts dropping
	bufferedChunks = 1024
)

// DefaultDevice selects the system default input
const DefaultDevice = -1

type Config struct {
	// DeviceIndex selects a PortAudio device; DefaultDevice uses the system default
	DeviceIndex int
	SampleRate  int
	Logger      *slog.Logger
}

// Mic records the selected input device to a 16-bit mono WAV file
type Mic struct {
	cfg Config
	log *slog.Logger

	mu     sync.Mutex
	stream *portaudio.Stream
	writer *audio.Writer
	chunks chan []int16
	done   chan struct{}

	// The stream callback must never take mu: Stop holds it while PortAudio
	// waits for the callback to return.
	dropped  atomic.Int64
	errMu    sync.Mutex
	writeErr error
}

var _ capture.Device = (*Mic)(nil)

func New(cfg Config) *Mic {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 44100
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Mic{cfg: cfg, log: log}
}

func (m *Mic) Start(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stream != nil {
		return capture.ErrDeviceBusy
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize PortAudio: %w", err)
	}

	params, err := m.inputParams()
	if err != nil {
		portaudio.Terminate()
		return mapError(err)
	}

	w, err := audio.Create(path, m.cfg.SampleRate, channels)
	if err != nil {
		portaudio.Terminate()
		return err
	}

	chunks := make(chan []int16, bufferedChunks)
	stream, err := portaudio.OpenStream(params, func(in []int16) {
		chunk := make([]int16, len(in))
		copy(chunk, in)
		select {
		case chunks <- chunk:
		default:
			m.dropped.Add(1)
		}
	})
	if err != nil {
		w.Close()
		portaudio.Terminate()
		return fmt.Errorf("failed to open audio stream: %w", mapError(err))
	}

	m.stream = stream
	m.writer = w
	m.chunks = chunks
	m.done = make(chan struct{})
	m.dropped.Store(0)
	m.errMu.Lock()
	m.writeErr = nil
	m.errMu.Unlock()
	go m.drain(w, chunks, m.done)

	if err := stream.Start(); err != nil {
		m.stream, m.writer, m.chunks = nil, nil, nil
		m.release(stream, w, chunks, m.done)
		m.done = nil
		return fmt.Errorf("failed to start audio stream: %w", mapError(err))
	}

	return nil
}

func (m *Mic) inputParams() (portaudio.StreamParameters, error) {
	var device *portaudio.DeviceInfo

	if m.cfg.DeviceIndex == DefaultDevice {
		d, err := portaudio.DefaultInputDevice()
		if err != nil {
			return portaudio.StreamParameters{}, fmt.Errorf("failed to get default input device: %w", err)
		}
		device = d
	} else {
		devices, err := portaudio.Devices()
		if err != nil {
			return portaudio.StreamParameters{}, fmt.Errorf("failed to get audio devices: %w", err)
		}
		if device, err = selectInput(devices, m.cfg.DeviceIndex); err != nil {
			return portaudio.StreamParameters{}, err
		}
	}

	m.log.Debug("Using audio device",
		"deviceName", device.Name,
		"sampleRate", m.cfg.SampleRate,
		"inputChannels", device.MaxInputChannels)

	return portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: channels,
			Latency:  device.DefaultLowInputLatency,
		},
		SampleRate:      float64(m.cfg.SampleRate),
		FramesPerBuffer: framesPerBuffer,
	}, nil
}

// selectInput returns devices[index] if it can record
func selectInput(devices []*portaudio.DeviceInfo, index int) (*portaudio.DeviceInfo, error) {
	if index < 0 || index >= len(devices) {
		return nil, fmt.Errorf("invalid device ID %d", index)
	}
	device := devices[index]
	if device.MaxInputChannels == 0 {
		return nil, fmt.Errorf("device %d (%s) is not an input device", index, device.Name)
	}
	return device, nil
}

func (m *Mic) drain(w *audio.Writer, chunks <-chan []int16, done chan<- struct{}) {
	defer close(done)
	for chunk := range chunks {
		if err := w.WriteInt16(chunk); err != nil {
			m.errMu.Lock()
			if m.writeErr == nil {
				m.writeErr = err
			}
			m.errMu.Unlock()
		}
	}
}

// Stop ends the stream, flushes buffered audio and finalizes the file
func (m *Mic) Stop() error {
	m.mu.Lock()
	if m.stream == nil {
		m.mu.Unlock()
		return errors.New("microphone is not recording")
	}
	stopErr := m.stream.Stop()
	m.mu.Unlock()

	err := m.teardown()
	if stopErr != nil {
		return fmt.Errorf("failed to stop audio stream: %w", stopErr)
	}
	return err
}

func (m *Mic) teardown() error {
	m.mu.Lock()
	stream, w, chunks, done := m.stream, m.writer, m.chunks, m.done
	m.stream, m.writer, m.chunks, m.done = nil, nil, nil, nil
	m.mu.Unlock()

	if stream == nil {
		return nil
	}
	return m.release(stream, w, chunks, done)
}

// release closes the stream, waits for the writer and releases PortAudio
func (m *Mic) release(stream *portaudio.Stream, w *audio.Writer, chunks chan []int16, done <-chan struct{}) error {
	closeErr := stream.Close()
	close(chunks)
	<-done

	m.errMu.Lock()
	writeErr := m.writeErr
	m.errMu.Unlock()

	if dropped := m.dropped.Load(); dropped > 0 {
		m.log.Warn("Dropped audio chunks", "count", dropped)
	}

	if frames := w.Frames(); frames == 0 {
		m.log.Warn("Capture wrote no audio frames")
	} else {
		m.log.Debug("Capture flushed", "frames", frames, "seconds", float64(frames)/float64(m.cfg.SampleRate))
	}

	fileErr := w.Close()
	portaudio.Terminate()

	return errors.Join(closeErr, writeErr, fileErr)
}

func mapError(err error) error {
	var paErr portaudio.Error
	if errors.As(err, &paErr) {
		switch paErr {
		case portaudio.DeviceUnavailable:
			return fmt.Errorf("%w: %w", capture.ErrDeviceBusy, err)
		}
	}
	return err
}

// InputDevice describes a device that can record
type InputDevice struct {
	Index             int
	Name              string
	MaxInputChannels  int
	DefaultSampleRate float64
	// Default is set on the system default input
	Default bool
}

// InputDevices lists every device with at least one input channel
func InputDevices() ([]InputDevice, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	defer portaudio.Terminate()

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to get devices: %w", err)
	}

	var defaultName string
	if d, err := portaudio.DefaultInputDevice(); err == nil {
		defaultName = d.Name
	}

	inputs := make([]InputDevice, 0)
	for i, d := range devices {
		if d.MaxInputChannels > 0 {
			inputs = append(inputs, InputDevice{
				Index:             i,
				Name:              d.Name,
				MaxInputChannels:  d.MaxInputChannels,
				DefaultSampleRate: d.DefaultSampleRate,
				Default:           d.Name == defaultName,
			})
		}
	}
	return inputs, nil
}
