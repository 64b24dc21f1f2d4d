package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/hupe1980/bitsieve"
	"github.com/hupe1980/bitsieve/codec"
	"github.com/hupe1980/bitsieve/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Backend is the service the server exposes.
type Backend interface {
	Select(ctx context.Context, req bitsieve.SelectRequest) (*bitsieve.SelectResponse, error)
	Refresh(ctx context.Context) (bool, error)
	Generation() model.Generation
	NumDocs() int
	Codec() codec.Codec
}

// Options configure a Server.
type Options struct {
	Logger *slog.Logger
	// Gatherer serves /metrics. nil disables the route.
	Gatherer prometheus.Gatherer
	// MaxRequestBytes bounds /select bodies. Default 64 MiB.
	MaxRequestBytes int64
	// MaxMemoryBytes is the part of a multipart body held in memory; the
	// rest spills to temporary files. Default 8 MiB.
	MaxMemoryBytes int64
}

// Server routes HTTP requests to a Backend.
type Server struct {
	backend Backend
	opts    Options
	router  *mux.Router
}

// New creates a server for backend.
func New(backend Backend, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MaxRequestBytes <= 0 {
		opts.MaxRequestBytes = 64 << 20
	}
	if opts.MaxMemoryBytes <= 0 {
		opts.MaxMemoryBytes = 8 << 20
	}

	s := &Server{backend: backend, opts: opts, router: mux.NewRouter()}
	s.router.HandleFunc("/select", s.handleSelect).Methods(http.MethodPost)
	s.router.HandleFunc("/admin/refresh", s.handleRefresh).Methods(http.MethodPost)
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	if opts.Gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	s.router.Use(s.logRequests)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.opts.Logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"elapsed", time.Since(start))
	})
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxRequestBytes)

	bitset, err := s.bitsetPart(r)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	params, err := parseSelectParams(r.FormValue)
	if err != nil {
		if bitset != nil {
			_ = bitset.Close()
		}
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	resp, err := s.backend.Select(r.Context(), bitsieve.SelectRequest{
		Bitset:      bitset,
		Query:       params.query,
		Fields:      params.fields,
		Renames:     params.renames,
		TimeAllowed: params.timeAllowed,
		Order:       params.order,
	})
	if err != nil {
		s.writeError(w, r, statusOf(err), err)
		return
	}

	h := w.Header()
	h.Set("X-Bitsieve-Generation", string(resp.Generation))
	h.Set("X-Bitsieve-Matches", strconv.Itoa(resp.Matches))
	h.Set("X-Bitsieve-Misses", strconv.Itoa(resp.Misses))

	switch params.writer {
	case WriterBitset:
		s.write(w, r, "application/octet-stream", resp.Bitset)
	case WriterMsgPack:
		s.encode(w, r, codec.MsgPack{}, resp)
	default:
		s.encode(w, r, s.backend.Codec(), resp)
	}
}

// bitsetPart returns the bitset stream of r: the "bitset" multipart part
// (file or field) or the whole body of a non-multipart request. A missing
// part yields nil.
func (s *Server) bitsetPart(r *http.Request) (io.ReadCloser, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(s.opts.MaxMemoryBytes); err != nil {
			return nil, fmt.Errorf("parse multipart form: %w", err)
		}
		if f, _, err := r.FormFile("bitset"); err == nil {
			return f, nil
		} else if !errors.Is(err, http.ErrMissingFile) {
			return nil, err
		}
		if vs, ok := r.MultipartForm.Value["bitset"]; ok && len(vs) > 0 {
			return io.NopCloser(bytes.NewReader([]byte(vs[0]))), nil
		}
		return nil, nil
	case "application/octet-stream", "application/zlib":
		if err := r.ParseForm(); err != nil {
			return nil, err
		}
		return r.Body, nil
	default:
		if err := r.ParseForm(); err != nil {
			return nil, err
		}
		return nil, nil
	}
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	changed, err := s.backend.Refresh(r.Context())
	if err != nil {
		s.writeError(w, r, statusOf(err), err)
		return
	}
	s.encode(w, r, s.backend.Codec(), map[string]any{
		"changed":    changed,
		"generation": s.backend.Generation(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.encode(w, r, s.backend.Codec(), map[string]any{
		"status":     "ok",
		"generation": s.backend.Generation(),
		"docs":       s.backend.NumDocs(),
	})
}

func statusOf(err error) int {
	switch {
	case bitsieve.IsClientError(err):
		return http.StatusBadRequest
	case errors.Is(err, bitsieve.ErrTimeAllowedExceeded), errors.Is(err, bitsieve.ErrOverloaded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		level = slog.LevelError
	}
	s.opts.Logger.Log(r.Context(), level, "request failed", "path", r.URL.Path, "status", status, "error", err)

	body, mErr := s.backend.Codec().Marshal(errorBody{Error: err.Error(), Status: status})
	if mErr != nil {
		http.Error(w, err.Error(), status)
		return
	}
	w.Header().Set("Content-Type", s.backend.Codec().ContentType())
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func (s *Server) encode(w http.ResponseWriter, r *http.Request, c codec.Codec, v any) {
	body, err := c.Marshal(v)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, fmt.Errorf("encode response: %w", err))
		return
	}
	s.write(w, r, c.ContentType(), body)
}

func (s *Server) write(w http.ResponseWriter, r *http.Request, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	if n, err := w.Write(body); err != nil {
		s.opts.Logger.Error("error writing response", "path", r.URL.Path, "bytesWritten", n, "error", err)
	}
}
