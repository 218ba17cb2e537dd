// Package api exposes guidance resolution over HTTP for clients that render
// the guidance card directly, plus the health and metrics endpoints.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"visa-workers/internal/common/errors"
	"visa-workers/internal/common/logger"
	"visa-workers/internal/common/metrics"
	loadapplicationcontext "visa-workers/internal/workers/guidance/load-application-context"
	resolvenextstep "visa-workers/internal/workers/guidance/resolve-next-step"
)

const maxBodyBytes = 1 << 20

// Resolver is satisfied by *resolvenextstep.Handler.
type Resolver interface {
	DecodeInput(variables map[string]interface{}) (*resolvenextstep.Input, error)
	Execute(ctx context.Context, input *resolvenextstep.Input) (*resolvenextstep.Output, error)
}

// ContextLoader is satisfied by *loadapplicationcontext.Handler.
type ContextLoader interface {
	Execute(ctx context.Context, input *loadapplicationcontext.Input) (*loadapplicationcontext.Output, error)
}

// Check reports whether a dependency is reachable.
type Check func(ctx context.Context) error

type Options struct {
	Resolver Resolver
	Loader   ContextLoader // optional; enables the traveler endpoint
	Checks   map[string]Check
	Logger   logger.Logger
}

type Server struct {
	router   *mux.Router
	resolver Resolver
	loader   ContextLoader
	checks   map[string]Check
	logger   logger.Logger
}

func NewServer(opts Options) (*Server, error) {
	if opts.Resolver == nil {
		return nil, fmt.Errorf("api server requires a resolver")
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	s := &Server{
		router:   mux.NewRouter(),
		resolver: opts.Resolver,
		loader:   opts.Loader,
		checks:   opts.Checks,
		logger:   log.WithFields(map[string]interface{}{"component": "api"}),
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.router.Use(requestID, accessLog(s.logger))

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/ready", s.handleReady).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	v1 := s.router.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/guidance/resolve", s.handleResolve).Methods(http.MethodPost)
	if s.loader != nil {
		v1.HandleFunc("/travelers/{userId}/guidance", s.handleTravelerGuidance).Methods(http.MethodGet)
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	results := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			results[name] = err.Error()
			status, code = "unavailable", http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}
	writeJSON(w, code, map[string]interface{}{"status": status, "checks": results})
}

// handleResolve resolves a snapshot posted in the resolve-next-step job shape.
func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var variables map[string]interface{}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&variables); err != nil {
		writeError(w, r, errors.NewInvalidGuidanceInputError(fmt.Sprintf("request body is not a JSON object: %v", err)))
		return
	}

	input, err := s.resolver.DecodeInput(variables)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if input.Locale == "" {
		input.Locale = requestLocale(r)
	}

	s.resolve(w, r, input)
}

// handleTravelerGuidance loads the traveler's snapshot and resolves it in one call.
func (s *Server) handleTravelerGuidance(w http.ResponseWriter, r *http.Request) {
	loaded, err := s.loader.Execute(r.Context(), &loadapplicationcontext.Input{
		UserID:        mux.Vars(r)["userId"],
		ApplicationID: r.URL.Query().Get("applicationId"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	input := &resolvenextstep.Input{Locale: requestLocale(r)}
	input.Applications = loaded.Applications
	input.Application = loaded.Application
	input.Checklist = loaded.Checklist

	s.resolve(w, r, input)
}

func (s *Server) resolve(w http.ResponseWriter, r *http.Request, input *resolvenextstep.Input) {
	output, err := s.resolver.Execute(r.Context(), input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	urgency := ""
	if output.Guidance != nil {
		urgency = string(output.Guidance.Urgency)
	}
	metrics.RecordGuidance("http", output.Rule, urgency)
	writeJSON(w, http.StatusOK, output)
}

// requestLocale prefers the lang query parameter over Accept-Language.
func requestLocale(r *http.Request) string {
	if lang := strings.TrimSpace(r.URL.Query().Get("lang")); lang != "" {
		return lang
	}
	return r.Header.Get("Accept-Language")
}
