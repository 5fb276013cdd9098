// Package api exposes the video and mail services over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/harunnryd/sift/internal/mail"
	"github.com/harunnryd/sift/internal/transcript"
	"github.com/harunnryd/sift/internal/video"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type VideoService interface {
	Chat(ctx context.Context, sessionKey string, req video.ChatRequest) (*video.ChatResponse, error)
	Summary(ctx context.Context, sessionKey string, req video.SummaryRequest) (*video.SummaryResponse, error)
	Quiz(ctx context.Context, sessionKey string, req video.QuizRequest) (*video.QuizResponse, error)
}

type ComponentStatus struct {
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

type Dependencies struct {
	Video VideoService
	Cache *transcript.Cache
	// Mail is nil when the mail agent is disabled.
	Mail *mail.Agent
	// Components reports daemon component health for /health.
	Components func(ctx context.Context) map[string]ComponentStatus
	// OnPreferencesChange runs after preferences are saved.
	OnPreferencesChange func(mail.Preferences)
	AllowedOrigins      []string
}

type Server struct {
	deps Dependencies
}

func NewRouter(deps Dependencies) http.Handler {
	s := &Server{deps: deps}

	origins := deps.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(withTrace)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{SessionHeader, TraceHeader},
		MaxAge:         300,
	}))

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/video", func(r chi.Router) {
			r.Use(withSession)
			r.Post("/chat", s.handleChat)
			r.Post("/summary", s.handleSummary)
			r.Post("/quiz", s.handleQuiz)
		})

		r.Post("/priority/adjust", s.handleAdjust)

		r.Route("/mail", func(r chi.Router) {
			r.Use(s.requireMail)
			r.Post("/check", s.handleMailCheck)
			r.Get("/summary", s.handleMailSummary)
			r.Post("/summary/reset", s.handleMailSummaryReset)
			r.Get("/preferences", s.handleGetPreferences)
			r.Put("/preferences", s.handlePutPreferences)
			r.Post("/vip", s.handleAddVIP)
			r.Delete("/vip", s.handleRemoveVIP)
			r.Post("/feedback", s.handleFeedback)
		})
	})

	return r
}

func (s *Server) requireMail(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.deps.Mail == nil {
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Detail: "mail agent is not enabled"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
