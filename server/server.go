package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go-groove/clock"
	"go-groove/eventlog"
	"go-groove/performance"
	"go-groove/store"
	"go-groove/trainer"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// Server exposes a practice session and the beat store over HTTP
type Server struct {
	mgr     *trainer.Manager
	store   store.Store
	userID  string
	origins []string
	log     *zap.Logger
	handler http.Handler
}

// Option configures a Server
type Option func(*Server)

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithAllowedOrigins limits CORS to origins. None allows any origin.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) { s.origins = origins }
}

// WithUserID sets who saved performances are attributed to by default
func WithUserID(id string) Option {
	return func(s *Server) { s.userID = id }
}

func New(mgr *trainer.Manager, st store.Store, opts ...Option) *Server {
	s := &Server{mgr: mgr, store: st, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.Named("server")

	router := mux.NewRouter().StrictSlash(true)
	router.HandleFunc("/status", s.handleStatus).Methods("GET")
	router.HandleFunc("/tempo", s.handleTempo).Methods("PUT")

	router.HandleFunc("/beat", s.handleGetBeat).Methods("GET")
	router.HandleFunc("/beat", s.handleSetBeat).Methods("PUT")
	router.HandleFunc("/beats", s.handleListBeats).Methods("GET")
	router.HandleFunc("/beats", s.handleSaveBeat).Methods("POST")
	router.HandleFunc("/beats/{id}", s.handleLoadBeat).Methods("GET")
	router.HandleFunc("/beats/{id}", s.handleDeleteBeat).Methods("DELETE")

	router.HandleFunc("/transport/{action:play|record|stop}", s.handleTransport).Methods("POST")
	router.HandleFunc("/notes", s.handleNote).Methods("POST")
	router.HandleFunc("/clock/simulate", s.handleSimulate).Methods("POST")
	router.HandleFunc("/clock/advance", s.handleAdvance).Methods("POST")

	router.HandleFunc("/feedback", s.handleFeedback).Methods("GET")
	router.HandleFunc("/capture", s.handleCapture).Methods("GET")
	router.HandleFunc("/events.csv", s.handleGetEvents).Methods("GET")
	router.HandleFunc("/events.csv", s.handleLoadEvents).Methods("PUT")
	router.HandleFunc("/replay", s.handleReplay).Methods("POST")

	router.HandleFunc("/performances", s.handleListPerformances).Methods("GET")
	router.HandleFunc("/performances", s.handleSavePerformance).Methods("POST")
	router.HandleFunc("/performances", s.handleDeletePerformances).Methods("DELETE")

	s.handler = cors.New(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE"},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(router)
	return s
}

// Handler returns the routed, CORS-wrapped handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe serves on addr until ctx is done
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.log.Info("listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("write response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", zap.Error(err))
	}
	s.writeJSON(w, status, errorBody{Error: err.Error()})
}

var errBadRequest = errors.New("bad request")

func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errBadRequest),
		errors.Is(err, store.ErrNoName),
		errors.Is(err, eventlog.ErrMalformedRow),
		errors.Is(err, eventlog.ErrBadHeader),
		errors.Is(err, eventlog.ErrUnknownKind):
		return http.StatusBadRequest
	case errors.Is(err, trainer.ErrNoBeat),
		errors.Is(err, performance.ErrRecording),
		errors.Is(err, clock.ErrRunning),
		errors.Is(err, clock.ErrNotSimulated),
		errors.Is(err, clock.ErrRealTimerActive),
		errors.Is(err, clock.ErrTimeReversal):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
