// Package server exposes the merge engine over HTTP.
//
// Endpoints:
//
//	POST /placeholders  template in the body (or multipart field "template"); returns the
//	                    placeholder set, plus columns and a proposed mapping when a
//	                    "rows" file is uploaded alongside
//	POST /merge         JSON, CBOR or multipart merge request; returns the merged document,
//	                    or a zip of per-row documents with ?separate=true
//	GET  /healthz       liveness
//
// Failures are reported as {"kind": "...", "error": "..."} where kind is the error kind
// of the merge engine, or "BadRequest" for malformed requests.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/benjaminschreck/go-mailmerge/pkg/mailmerge"
)

// DefaultMaxRequestBytes bounds request bodies
const DefaultMaxRequestBytes = 64 << 20

// Options configures a Server
type Options struct {
	// MaxRequestBytes bounds request bodies; 0 uses DefaultMaxRequestBytes
	MaxRequestBytes int64
	Logger          *slog.Logger
	// Now is used for suggested file names; defaults to time.Now
	Now func() time.Time
}

// Server serves merge requests with an engine
type Server struct {
	engine  *mailmerge.Engine
	logger  *slog.Logger
	maxBody int64
	now     func() time.Time
	mux     *http.ServeMux
}

// New creates a server around engine
func New(engine *mailmerge.Engine, opts Options) *Server {
	s := &Server{
		engine:  engine,
		logger:  opts.Logger,
		maxBody: opts.MaxRequestBytes,
		now:     opts.Now,
		mux:     http.NewServeMux(),
	}
	if s.engine == nil {
		s.engine = mailmerge.DefaultEngine
	}
	if s.logger == nil {
		s.logger = mailmerge.Logger()
	}
	if s.maxBody <= 0 {
		s.maxBody = DefaultMaxRequestBytes
	}
	if s.now == nil {
		s.now = time.Now
	}

	s.mux.HandleFunc("POST /placeholders", s.handlePlaceholders)
	s.mux.HandleFunc("POST /merge", s.handleMerge)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	r.Body = http.MaxBytesReader(rec, r.Body, s.maxBody)
	s.mux.ServeHTTP(rec, r)
	s.logger.Info("request",
		"method", r.Method,
		"path", r.URL.Path,
		"status", rec.status,
		"bytes", rec.written,
		"duration", time.Since(start))
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, listener)
}

// Serve serves on listener until ctx is cancelled
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", listener.Addr().String())
		errCh <- srv.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

// placeholdersResponse is the body returned by POST /placeholders
type placeholdersResponse struct {
	Placeholders []string               `json:"placeholders"`
	Columns      []mailmerge.Column     `json:"columns,omitempty"`
	Mapping      mailmerge.Mapping      `json:"mapping,omitempty"`
	Preview      []mailmerge.Assignment `json:"preview,omitempty"`
	Rows         int                    `json:"rows,omitempty"`
}

func (s *Server) handlePlaceholders(w http.ResponseWriter, r *http.Request) {
	template, table, err := decodeTemplate(r, s.maxBody)
	if err != nil {
		s.writeError(w, err)
		return
	}

	placeholders, err := s.engine.ExtractPlaceholders(template)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if len(placeholders) == 0 {
		s.writeError(w, &mailmerge.Error{Kind: mailmerge.KindNoPlaceholdersFound, Op: "scan"})
		return
	}

	resp := placeholdersResponse{Placeholders: placeholders}
	if table != nil {
		resp.Columns = table.Columns
		resp.Mapping = mailmerge.AutoMap(placeholders, table.Columns)
		resp.Preview = mailmerge.Preview(placeholders, resp.Mapping, table.Columns)
		resp.Rows = len(table.Rows)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	req, err := decodeMergeRequest(r, s.maxBody)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if len(req.Mapping) == 0 && len(req.columns) > 0 {
		placeholders, err := s.engine.ExtractPlaceholders(req.Template)
		if err != nil {
			s.writeError(w, err)
			return
		}
		req.Mapping = mailmerge.AutoMap(placeholders, req.columns)
	}

	if req.Separate {
		docs, err := s.engine.GenerateSeparate(r.Context(), req.Template, req.Rows, req.Mapping)
		if err != nil {
			s.writeError(w, err)
			return
		}
		archive, err := bundle(docs)
		if err != nil {
			s.writeError(w, &mailmerge.Error{Kind: mailmerge.KindMergeError, Op: "bundle", Cause: err})
			return
		}
		s.writeFile(w, contentTypeZip, mailmerge.SuggestFilename(s.now(), "zip"), archive)
		return
	}

	merged, err := s.engine.GenerateMerged(r.Context(), req.Template, req.Rows, req.Mapping)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeFile(w, contentTypeDocx, mailmerge.SuggestFilename(s.now(), "docx"), merged)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// bundle zips per-row documents as document-001.docx, document-002.docx, ...
func bundle(docs [][]byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for i, doc := range docs {
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:   fmt.Sprintf("document-%03d.docx", i+1),
			Method: zip.Store,
		})
		if err != nil {
			return nil, err
		}
		if _, err := fw.Write(doc); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// errorResponse is the body of every failed request
type errorResponse struct {
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

// StatusFor maps an error to its HTTP status code
func StatusFor(err error) int {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}

	switch mailmerge.KindOf(err) {
	case mailmerge.KindInvalidTemplate, mailmerge.KindNoPlaceholdersFound,
		mailmerge.KindIncompleteMapping, mailmerge.KindEmptyInput:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	kind := string(mailmerge.KindOf(err))
	if kind == "" {
		switch status {
		case http.StatusBadRequest, http.StatusRequestEntityTooLarge:
			kind = "BadRequest"
		default:
			kind = "Internal"
		}
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "kind", kind, "error", err)
	} else {
		s.logger.Debug("request rejected", "kind", kind, "error", err)
	}
	s.writeJSON(w, status, errorResponse{Kind: kind, Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to write response", "error", err)
	}
}

func (s *Server) writeFile(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.logger.Warn("failed to write response", "error", err)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status  int
	written int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(p []byte) (int, error) {
	n, err := r.ResponseWriter.Write(p)
	r.written += n
	return n, err
}
