// Package server is a reference API that authenticates every request under
// /api/v1 with DCI signatures.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/vitalvas/dciauth/dcisig"
	"github.com/vitalvas/dciauth/keystore"
)

// DefaultMaxBodyBytes caps request bodies read for verification.
const DefaultMaxBodyBytes = 1 << 20

// ErrNoStore is returned by New when Options.Store is nil.
var ErrNoStore = errors.New("server: credential store must not be nil")

// Options configures a Server.
type Options struct {
	// Store resolves client secrets. Required.
	Store keystore.Store

	// Logger defaults to a logger that discards everything.
	Logger logrus.FieldLogger

	// Registry receives the server metrics and backs GET /metrics.
	// Defaults to a new registry.
	Registry *prometheus.Registry

	// Keys derives signing keys, typically a dcisig.CachedKeyDeriver.
	Keys dcisig.KeyDeriver

	// Expiry checks request freshness.
	Expiry dcisig.ExpiryChecker

	// MaxBodyBytes defaults to DefaultMaxBodyBytes.
	MaxBodyBytes int64

	// TrustRequestID reuses a valid incoming X-Request-ID.
	TrustRequestID bool
}

// Server is the HTTP handler of the reference API.
type Server struct {
	router  *mux.Router
	logger  logrus.FieldLogger
	metrics *metrics
}

// New builds the router:
//
//	GET  /healthz           unauthenticated liveness probe
//	GET  /metrics           Prometheus metrics
//	GET  /api/v1/identity   authenticated client identity
//	POST /api/v1/echo       verified payload echoed back
func New(opts Options) (*Server, error) {
	if opts.Store == nil {
		return nil, ErrNoStore
	}

	logger := opts.Logger
	if logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		logger = discard
	}

	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m, err := newMetrics(reg)
	if err != nil {
		return nil, err
	}

	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}

	s := &Server{router: mux.NewRouter(), logger: logger, metrics: m}

	auth, err := dcisig.Middleware(dcisig.MiddlewareConfig{
		Resolver:  keystore.Resolver(opts.Store),
		Verifier:  dcisig.NewVerifier(dcisig.VerifierConfig{Keys: opts.Keys}),
		Expiry:    opts.Expiry,
		OnError:   s.onAuthError,
		OnSuccess: s.onAuthSuccess,
	})
	if err != nil {
		return nil, err
	}

	s.router.Use(recoveryMiddleware(logger), requestIDMiddleware(opts.TrustRequestID), accessLogMiddleware(logger, m))

	s.router.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.Use(bodyLimitMiddleware(maxBody), auth)
	api.HandleFunc("/identity", handleIdentity).Methods(http.MethodGet)
	api.HandleFunc("/echo", handleEcho).Methods(http.MethodPost, http.MethodPut)

	return s, nil
}

// ServeHTTP dispatches to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) onAuthError(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}

	reason := Reason(err)
	s.metrics.verifications.WithLabelValues(reason).Inc()

	s.logger.WithFields(logrus.Fields{
		"request_id": RequestIDFromContext(r.Context()),
		"reason":     reason,
		"error":      err.Error(),
	}).Warn("request rejected")

	writeError(w, http.StatusUnauthorized, reason)
}

func (s *Server) onAuthSuccess(r *http.Request, id dcisig.Identity) {
	s.metrics.verifications.WithLabelValues(Reason(nil)).Inc()

	s.logger.WithFields(logrus.Fields{
		"request_id": RequestIDFromContext(r.Context()),
		"access_key": id.AccessKey(),
		"algorithm":  id.Algorithm,
	}).Debug("request authenticated")
}

// Run serves handler on addr until ctx is cancelled, then shuts down
// gracefully within shutdownTimeout.
func Run(ctx context.Context, addr string, handler http.Handler, shutdownTimeout time.Duration, logger logrus.FieldLogger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		logger.WithField("listen", addr).Info("server started")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
