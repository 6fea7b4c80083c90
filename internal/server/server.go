package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/balkashynov/murmur/internal/capture"
	"github.com/balkashynov/murmur/internal/db"
	"github.com/balkashynov/murmur/internal/enrich"
	"github.com/balkashynov/murmur/internal/models"
	"github.com/balkashynov/murmur/internal/session"
)

type Store interface {
	Get(ctx context.Context, id uint) (models.Recording, error)
	List(ctx context.Context) ([]models.Recording, error)
	ObserveAll(ctx context.Context) <-chan []models.Recording
}

type Session interface {
	RequestStart(ctx context.Context) error
	RequestStop(ctx context.Context) (*models.Recording, error)
	OpenDetail(ctx context.Context, id uint) (<-chan *models.Recording, error)
	State() session.State
	Observe(ctx context.Context) <-chan session.State
}

type Enricher interface {
	Run(ctx context.Context, id uint) (models.Recording, error)
}

// Server exposes recordings and the session over HTTP and WebSocket
type Server struct {
	addr     string
	store    Store
	session  Session
	enricher Enricher
	log      *slog.Logger
	upgrader websocket.Upgrader
}

func New(addr string, store Store, sess Session, enricher Enricher, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		addr:     addr,
		store:    store,
		session:  sess,
		enricher: enricher,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Handler builds the router
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/recordings", s.handleListRecordings).Methods(http.MethodGet)
	api.HandleFunc("/recordings/{id:[0-9]+}", s.handleGetRecording).Methods(http.MethodGet)
	api.HandleFunc("/recordings/{id:[0-9]+}/enrich", s.handleEnrich).Methods(http.MethodPost)
	api.HandleFunc("/session", s.handleSessionState).Methods(http.MethodGet)
	api.HandleFunc("/session/start", s.handleSessionStart).Methods(http.MethodPost)
	api.HandleFunc("/session/stop", s.handleSessionStop).Methods(http.MethodPost)

	router.HandleFunc("/ws/recordings", s.handleWatchRecordings)
	router.HandleFunc("/ws/recordings/{id:[0-9]+}", s.handleWatchRecording)
	router.HandleFunc("/ws/session", s.handleWatchSession)

	return router
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server listening", "addr", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) handleListRecordings(w http.ResponseWriter, r *http.Request) {
	recs, err := s.store.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleGetRecording(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	rec, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleEnrich runs enrichment synchronously and returns the resulting record
func (s *Server) handleEnrich(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	rec, err := s.enricher.Run(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleSessionState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.State())
}

func (s *Server) handleSessionStart(w http.ResponseWriter, r *http.Request) {
	if err := s.session.RequestStart(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.session.State())
}

type stopResponse struct {
	Recording *models.Recording `json:"recording"`
	State     session.State     `json:"state"`
}

func (s *Server) handleSessionStop(w http.ResponseWriter, r *http.Request) {
	rec, err := s.session.RequestStop(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stopResponse{Recording: rec, State: s.session.State()})
}

func (s *Server) handleWatchRecordings(w http.ResponseWriter, r *http.Request) {
	serveStream(s, w, r, "recordings", func(ctx context.Context) (<-chan []models.Recording, error) {
		return s.store.ObserveAll(ctx), nil
	})
}

// handleWatchRecording behaves like opening the detail view: enrichment is
// queued when the summary is missing
func (s *Server) handleWatchRecording(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	serveStream(s, w, r, "recording", func(ctx context.Context) (<-chan *models.Recording, error) {
		return s.session.OpenDetail(ctx, id)
	})
}

func (s *Server) handleWatchSession(w http.ResponseWriter, r *http.Request) {
	serveStream(s, w, r, "session", func(ctx context.Context) (<-chan session.State, error) {
		return s.session.Observe(ctx), nil
	})
}

func parseID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil || id == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid recording id"})
		return 0, false
	}
	return uint(id), true
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps domain errors onto status codes
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	var terr *enrich.TranscriptionError
	var serr *enrich.SummarizationError
	switch {
	case errors.Is(err, db.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, capture.ErrResourceUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, capture.ErrCaptureFailed):
		status = http.StatusConflict
	case errors.As(err, &terr), errors.As(err, &serr):
		status = http.StatusBadGateway
	case errors.Is(err, context.Canceled):
		// Client went away
		return
	}

	if status >= http.StatusInternalServerError {
		s.log.Error("Request failed", "status", status, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
