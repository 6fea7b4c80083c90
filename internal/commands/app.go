package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gorm.io/gorm"

	"github.com/balkashynov/murmur/internal/ai"
	"github.com/balkashynov/murmur/internal/audio/mic"
	"github.com/balkashynov/murmur/internal/capture"
	"github.com/balkashynov/murmur/internal/config"
	"github.com/balkashynov/murmur/internal/db"
	"github.com/balkashynov/murmur/internal/enrich"
	"github.com/balkashynov/murmur/internal/logger"
	"github.com/balkashynov/murmur/internal/session"
)

type appOptions struct {
	// logToStderr is for long-running commands, everything else logs to
	// <data_dir>/murmur.log so full-screen views stay clean
	logToStderr bool
	// autoEnrich queues enrichment as soon as a recording is saved
	autoEnrich bool
}

// app is everything a command needs, built from config
type app struct {
	cfg     *config.Config
	log     *slog.Logger
	logFile io.Closer

	gdb        *gorm.DB
	store      *db.RecordStore
	pipeline   *enrich.Pipeline
	controller *session.Controller
}

func newApp(opts appOptions) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg}
	if err := a.setupLogger(opts.logToStderr); err != nil {
		return nil, err
	}

	a.gdb, err = db.Open(cfg.DatabasePath)
	if err != nil {
		a.close()
		return nil, err
	}
	a.store = db.NewRecordStore(a.gdb, a.log)

	a.pipeline = enrich.New(a.store, newTranscriber(cfg, a.log), newSummarizer(cfg), enrich.Config{
		Workers:   cfg.Enrichment.Workers,
		QueueSize: cfg.Enrichment.QueueSize,
		Timeout:   cfg.Enrichment.Timeout,
		Logger:    a.log.With("component", "enrich"),
	})

	// The microphone is only opened when a session starts
	device := mic.New(mic.Config{
		DeviceIndex: cfg.Capture.Device,
		SampleRate:  cfg.Capture.SampleRate,
		Logger:      a.log.With("component", "mic"),
	})
	recorder := capture.NewRecorder(device, capture.Options{
		MinFreeBytes: cfg.Capture.MinFreeBytes,
		Logger:       a.log.With("component", "capture"),
	})
	a.controller = session.NewController(a.store, recorder, a.pipeline, session.Config{
		RecordingsDir: cfg.RecordingsDir,
		AutoEnrich:    opts.autoEnrich,
		Logger:        a.log.With("component", "session"),
	})

	return a, nil
}

func (a *app) setupLogger(toStderr bool) error {
	level, levelErr := logger.ParseLevel(a.cfg.Log.Level)
	if logLevel != "" {
		level, levelErr = logger.ParseLevel(logLevel)
	}

	var out io.Writer = os.Stderr
	if !toStderr || a.cfg.Log.File != "" {
		f, err := logger.OpenFile(a.cfg.LogPath())
		if err != nil {
			return err
		}
		a.logFile = f
		out = f
	}

	a.log = logger.New(logger.Config{
		Level:      level,
		Output:     out,
		JSONFormat: a.cfg.Log.JSON,
	})
	logger.SetDefault(a.log)

	if levelErr != nil {
		a.log.Warn("Falling back to info level", "error", levelErr)
	}
	return nil
}

// context carries the app logger for helpers that only get a ctx
func (a *app) context(parent context.Context) context.Context {
	return logger.WithContext(parent, a.log)
}

func (a *app) close() error {
	var errs []error
	if a.controller != nil {
		errs = append(errs, a.controller.Shutdown(context.Background()))
	}
	if a.pipeline != nil {
		a.pipeline.Stop()
	}
	if a.gdb != nil {
		errs = append(errs, db.Close(a.gdb))
	}
	if a.logFile != nil {
		errs = append(errs, a.logFile.Close())
	}
	return errors.Join(errs...)
}

func newTranscriber(cfg *config.Config, log *slog.Logger) enrich.Transcriber {
	switch cfg.Enrichment.Transcriber {
	case config.TranscriberOpenAI:
		return newOpenAI(cfg)
	case config.TranscriberNone:
		return ai.Disabled{}
	default:
		return ai.NewWhisper(cfg.Whisper.Path, cfg.Whisper.Model, log.With("component", "whisper"))
	}
}

func newSummarizer(cfg *config.Config) enrich.Summarizer {
	if cfg.Enrichment.Summarizer == config.SummarizerOpenAI {
		return newOpenAI(cfg)
	}
	return enrich.Extractive{}
}

func newOpenAI(cfg *config.Config) *ai.OpenAICompat {
	return ai.NewOpenAICompat(cfg.OpenAI.BaseURL, cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.TranscriptionModel)
}

// printErr is how every command reports a failure to the user
func printErr(ctx context.Context, msg string, err error) {
	logger.ErrorErr(ctx, msg, err)
	fmt.Printf("Error: %v\n", err)
}
