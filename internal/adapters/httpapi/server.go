// Package httpapi exposes the rig's control surface and observability
// endpoints over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ziademad02153/local-automation-Microwave-app/internal/domain"
	"github.com/ziademad02153/local-automation-Microwave-app/internal/fsm"
	"github.com/ziademad02153/local-automation-Microwave-app/internal/metrics"
)

// Controller is the slice of the session engine the API needs.
type Controller interface {
	Start(modeName string, weightGrams int) error
	Stop() error
	Pause() error
	Resume() error
	Lock() error
	Unlock() error
	Reset() error
	Status() domain.TickSnapshot
	LastReport() *domain.Report
}

type Server struct {
	server     *http.Server
	controller Controller
	logger     *zap.Logger
}

func NewServer(addr string, controller Controller, logger *zap.Logger) *Server {
	router := mux.NewRouter()

	s := &Server{
		server: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
		controller: controller,
		logger:     logger,
	}

	router.Use(s.metricsMiddleware)
	router.Use(s.loggingMiddleware)

	router.HandleFunc("/healthz", s.healthz).Methods("GET")
	router.HandleFunc("/api/v1/status", s.status).Methods("GET")
	router.HandleFunc("/api/v1/report", s.report).Methods("GET")
	router.HandleFunc("/api/v1/commands", s.command).Methods("POST")

	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	return s
}

func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

type commandRequest struct {
	Command     string `json:"command"`
	Mode        string `json:"mode,omitempty"`
	WeightGrams int    `json:"weight_grams,omitempty"`
}

func (s *Server) command(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	var err error
	switch req.Command {
	case "start":
		err = s.controller.Start(req.Mode, req.WeightGrams)
	case "stop":
		err = s.controller.Stop()
	case "pause":
		err = s.controller.Pause()
	case "resume":
		err = s.controller.Resume()
	case "lock":
		err = s.controller.Lock()
	case "unlock":
		err = s.controller.Unlock()
	case "reset":
		err = s.controller.Reset()
	default:
		http.Error(w, "unknown command: "+req.Command, http.StatusBadRequest)
		return
	}

	if err != nil {
		s.writeCommandError(w, req.Command, err)
		return
	}

	s.writeJSON(w, map[string]string{
		"command": req.Command,
		"state":   s.controller.Status().State,
	})
}

// writeCommandError maps engine errors to status codes: rejected transitions
// are conflicts, bad mode or weight arguments are client errors.
func (s *Server) writeCommandError(w http.ResponseWriter, command string, err error) {
	var (
		illegal *fsm.IllegalTransitionError
		confErr *domain.ConfigurationError
	)
	switch {
	case errors.As(err, &illegal):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.As(err, &confErr):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		s.logger.Error("command failed", zap.String("command", command), zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.controller.Status())
}

func (s *Server) report(w http.ResponseWriter, r *http.Request) {
	rep := s.controller.LastReport()
	if rep == nil {
		http.Error(w, "no report available", http.StatusNotFound)
		return
	}
	s.writeJSON(w, rep)
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				path = tpl
			}
		}
		metrics.HTTPRequests.WithLabelValues(r.Method, path, strconv.Itoa(rw.statusCode)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		s.logger.Info("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("ip", r.RemoteAddr),
			zap.Int("status", rw.statusCode),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
