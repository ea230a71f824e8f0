// Copyright 2025 Certen Protocol
//
// HTTP server wiring for the trust graph service

package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/certen/trust-graph/pkg/metrics"
)

// Server serves the trust graph method table over HTTP/JSON
type Server struct {
	handlers *TrustHandlers
	metrics  *metrics.Registry
	logger   *log.Logger
	httpSrv  *http.Server
}

// NewServer builds the server around a handler set
func NewServer(addr string, handlers *TrustHandlers, m *metrics.Registry, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(log.Writer(), "[Server] ", log.LstdFlags)
	}

	s := &Server{
		handlers: handlers,
		metrics:  m,
		logger:   logger,
	}

	mux := http.NewServeMux()
	s.routes(mux)

	s.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      s.withRequestContext(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	h := s.handlers

	mux.HandleFunc("/api/v1/set_root", h.HandleSetRoot)
	mux.HandleFunc("/api/v1/insert_cert_raw", h.HandleInsertCertRaw)
	mux.HandleFunc("/api/v1/insert_cert", h.HandleInsertCert)
	mux.HandleFunc("/api/v1/add_trust", h.HandleAddTrust)
	mux.HandleFunc("/api/v1/verify_trust", h.HandleVerifyTrust)
	mux.HandleFunc("/api/v1/get_trust_bytes", h.HandleGetTrustBytes)
	mux.HandleFunc("/api/v1/issue_trust", h.HandleIssueTrust)
	mux.HandleFunc("/api/v1/revoke", h.HandleRevoke)
	mux.HandleFunc("/api/v1/get_revocation_bytes", h.HandleGetRevocationBytes)
	mux.HandleFunc("/api/v1/issue_revocation", h.HandleIssueRevocation)
	mux.HandleFunc("/api/v1/export_revocations", h.HandleExportRevocations)
	mux.HandleFunc("/api/v1/get_weight", h.HandleGetWeight)
	mux.HandleFunc("/api/v1/get_weight_from", h.HandleGetWeightFrom)
	mux.HandleFunc("/api/v1/get_all_certs", h.HandleGetAllCerts)
	mux.HandleFunc("/api/v1/get_all_certs_from", h.HandleGetAllCertsFrom)
	mux.HandleFunc("/api/v1/get_host_certs", h.HandleGetHostCerts)
	mux.HandleFunc("/api/v1/get_host_certs_from", h.HandleGetHostCertsFrom)

	mux.HandleFunc("/health", s.handleHealth)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// statusRecorder captures the response status for metrics
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withRequestContext attaches a request id and records request metrics
func (s *Server) withRequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		w.Header().Set("X-Request-ID", requestID)

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		s.metrics.RequestStarted()

		next.ServeHTTP(recorder, r)

		s.metrics.RequestFinished()
		elapsed := time.Since(start)
		s.metrics.ObserveRequest(r.URL.Path, http.StatusText(recorder.status), elapsed.Seconds())

		if recorder.status >= http.StatusBadRequest {
			s.logger.Printf("%s %s -> %d (%s, request_id=%s)",
				r.Method, r.URL.Path, recorder.status, elapsed, requestID)
		}
	})
}

// Start begins serving; it blocks until the listener fails or the server
// is shut down.
func (s *Server) Start() error {
	s.logger.Printf("Listening on %s", s.httpSrv.Addr)
	return s.httpSrv.ListenAndServe()
}

// Shutdown drains in-flight requests and stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Println("Shutting down")
	return s.httpSrv.Shutdown(ctx)
}
