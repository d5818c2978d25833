package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/levenlabs/go-lflag"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/raterudder/tou/pkg/calendar"
	"github.com/raterudder/tou/pkg/log"
	"github.com/raterudder/tou/pkg/metrics"
	"github.com/raterudder/tou/pkg/plans"
	"github.com/raterudder/tou/pkg/types"
)

// Server answers pricing, billing and holiday queries over HTTP.
type Server struct {
	catalog  *plans.Catalog
	calendar calendar.Calendar

	listenAddr string
	httpServer *http.Server
	serverName string
	maxDates   int
}

// New returns a server over catalog and cal listening on listenAddr.
func New(catalog *plans.Catalog, cal calendar.Calendar, listenAddr string) *Server {
	return &Server{
		catalog:    catalog,
		calendar:   cal,
		listenAddr: listenAddr,
		serverName: "touserver",
		maxDates:   366,
	}
}

// Configured initializes the Server with dependencies.
// It uses lflag to register command-line flags for configuration.
func Configured(catalog *plans.Catalog, cal calendar.Calendar) *Server {
	srv := New(catalog, cal, "")
	revision := os.Getenv("K_REVISION")
	if revision != "" {
		srv.serverName = revision
	}

	// get the port from PORT when running in cloud run
	port := os.Getenv("PORT")
	if port == "" {
		// otherwise default to 8080
		port = "8080"
	}

	listenAddr := lflag.String("http-listen", ":"+port, "HTTP server listen address")

	lflag.Do(func() {
		srv.listenAddr = *listenAddr
	})

	return srv
}

func (s *Server) setupHandler() http.Handler {
	apiMux := http.NewServeMux()
	s.handle(apiMux, "GET /api/plans", s.handleListPlans)
	s.handle(apiMux, "GET /api/pricing", s.handlePricing)
	s.handle(apiMux, "GET /api/pricing/range", s.handlePricingRange)
	s.handle(apiMux, "GET /api/holidays", s.handleHolidays)
	s.handle(apiMux, "POST /api/bill", s.handleBill)

	mux := http.NewServeMux()
	mux.Handle("/api/", s.loggingMiddleware(apiMux))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", s.handleHealthz)
	return s.revisionMiddleware(gziphandler.GzipHandler(s.securityHeadersMiddleware(mux)))
}

// handle registers h under pattern and times it per pattern.
func (s *Server) handle(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	obs := metrics.RequestDurationSeconds.MustCurryWith(prometheus.Labels{"path": pattern})
	mux.Handle(pattern, promhttp.InstrumentHandlerDuration(obs, h))
}

// Run starts the HTTP server and blocks until the context is canceled or an error occurs.
// It also handles graceful shutdown when the context is done.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.listenAddr,
		Handler:      s.setupHandler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	// use a channel to capturing server errors
	errChan := make(chan error, 1)
	go func() {
		defer close(errChan)
		log.Ctx(ctx).InfoContext(ctx, "starting server", slog.String("addr", s.listenAddr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		// Context canceled, shut down gracefully
		log.Ctx(ctx).InfoContext(ctx, "shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func writeJSONError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(struct {
		Error string `json:"error"`
	}{Error: msg}); err != nil {
		slog.Warn("failed to write error response", slog.Any("error", err))
		panic(http.ErrAbortHandler)
	}
}

// errorStatus maps a domain error to its HTTP status.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, types.ErrPlanNotFound):
		return http.StatusNotFound
	case types.IsClientError(err):
		return http.StatusBadRequest
	case types.IsTariffError(err):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// writeDomainError counts err under op and writes it. Internal errors are
// logged and their message is not exposed.
func writeDomainError(w http.ResponseWriter, r *http.Request, op string, err error) {
	ctx := r.Context()
	metrics.ObserveError(op, err)
	code := errorStatus(err)
	if code == http.StatusInternalServerError {
		log.Ctx(ctx).ErrorContext(ctx, "request failed", slog.String("op", op), slog.Any("error", err))
		writeJSONError(w, "internal server error", code)
		return
	}
	log.Ctx(ctx).DebugContext(ctx, "request rejected", slog.String("op", op), slog.Int("status", code), slog.Any("error", err))
	writeJSONError(w, err.Error(), code)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok")); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) revisionMiddleware(next http.Handler) http.Handler {
	if s.serverName == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", s.serverName)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := log.WithAttrs(r.Context(), slog.String("method", r.Method), slog.String("path", r.URL.Path))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
