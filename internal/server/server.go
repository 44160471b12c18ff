// Package server exposes the learning services as a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/abhisek/vibekids/internal/dashboard"
	"github.com/abhisek/vibekids/internal/document"
	"github.com/abhisek/vibekids/internal/quiz"
	"github.com/abhisek/vibekids/internal/render"
	"github.com/abhisek/vibekids/internal/store"
	"github.com/abhisek/vibekids/internal/tutor"
	"github.com/abhisek/vibekids/internal/vibe"
)

// Deps are the collaborators the handlers call.
type Deps struct {
	Users           store.UserRepo
	Stories         store.StoryRepo
	Sessions        store.SessionRepo
	ReadingProgress store.ReadingProgressRepo
	MathProgress    store.MathProgressRepo
	Vibes           store.VibeRepo

	Quiz      *quiz.Service
	Tutor     *tutor.Service
	Dashboard *dashboard.Service
	Recorder  *vibe.Recorder
	Renderer  *render.Renderer
	Extractor document.Extractor

	// Ping reports whether the database is reachable.
	Ping func(ctx context.Context) error
}

// Server routes API requests to the services.
type Server struct {
	deps           Deps
	logger         *zap.Logger
	requestTimeout time.Duration
	now            func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand
}

// Option customizes a Server.
type Option func(*Server)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithRand replaces the problem generator's random source.
func WithRand(rng *rand.Rand) Option {
	return func(s *Server) { s.rng = rng }
}

// WithRequestTimeout bounds each request. Zero disables the bound.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) { s.requestTimeout = d }
}

// New creates a Server.
func New(deps Deps, logger *zap.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Extractor == nil {
		deps.Extractor = document.PlainTextExtractor{}
	}
	s := &Server{
		deps:   deps,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
		rng:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the router with middleware applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	if s.requestTimeout > 0 {
		r.Use(middleware.Timeout(s.requestTimeout))
	}

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", s.routes)
	return r
}

func (s *Server) routes(r chi.Router) {
	r.Get("/user/{id}", s.handleGetUser)
	r.Get("/user/username/{username}", s.handleGetUserByName)

	r.Get("/sessions/{userId}", s.handleListSessions)
	r.Post("/sessions", s.handleCreateSession)
	r.Patch("/sessions/{id}", s.handleUpdateSession)

	r.Get("/reading-progress/{userId}", s.handleListReadingProgress)
	r.Post("/reading-progress", s.handleCreateReadingProgress)
	r.Patch("/reading-progress/{id}", s.handleUpdateReadingProgress)

	r.Get("/math-progress/{userId}", s.handleListMathProgress)
	r.Post("/math-progress", s.handleCreateMathProgress)
	r.Patch("/math-progress/{id}", s.handleUpdateMathProgress)

	r.Get("/vibe-states/{userId}", s.handleListVibes)
	r.Get("/vibe-states/session/{sessionId}", s.handleListSessionVibes)
	r.Post("/vibe-states", s.handleRecordVibe)

	r.Get("/stories", s.handleListStories)
	r.Get("/stories/{id}", s.handleGetStory)
	r.Post("/stories", s.handleUploadStory)

	r.Get("/dashboard/{userId}", s.handleParentDashboard)
	r.Get("/child-dashboard/{userId}", s.handleChildDashboard)

	r.Get("/chat/{userId}/{storyId}", s.handleChatHistory)
	r.Post("/chat", s.handleChat)
	r.Delete("/chat/{userId}/{storyId}", s.handleClearChat)
	r.Post("/chat/suggestion", s.handleSuggestion)

	r.Post("/math-help", s.handleMathHelp)
	r.Get("/math/problem", s.handleMathProblem)
	r.Post("/math/render", s.handleRender)

	r.Post("/quiz/generate/{storyId}", s.handleGenerateQuiz)
	r.Post("/quiz/{quizId}/submit", s.handleSubmitQuiz)
	r.Get("/quiz/user/{userId}", s.handleQuizHistory)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ping != nil {
		if err := s.deps.Ping(r.Context()); err != nil {
			s.logger.Warn("health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Run serves on addr until ctx is cancelled, then drains in-flight
// requests for up to grace.
func (s *Server) Run(ctx context.Context, addr string, grace time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", addr))
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

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
