package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tayloree/bhtscan/internal/detect"
	"github.com/tayloree/bhtscan/internal/display"
	"github.com/tayloree/bhtscan/internal/label"
	"github.com/tayloree/bhtscan/internal/ocr"
)

const (
	maxBodyBytes  = 10 << 20
	maxImageBytes = 8 << 20
)

// TextExtractor turns an uploaded image into label text.
type TextExtractor interface {
	ExtractText(ctx context.Context, image []byte) (string, error)
}

// Config holds server configuration.
type Config struct {
	// Addr is the address to listen on (default: 127.0.0.1:8080)
	Addr string
	// Detector defaults to detect.Default().
	Detector *detect.Detector
	// Extractor enables multipart image uploads; nil disables them.
	Extractor TextExtractor
	// Section applies the ingredients locator to every request.
	Section bool
	Logger  *slog.Logger
}

// Server exposes detection over HTTP.
type Server struct {
	httpServer *http.Server
	detector   *detect.Detector
	extractor  TextExtractor
	section    bool
	logger     *slog.Logger
}

type detectRequest struct {
	Text    *string `json:"text"`
	Section *bool   `json:"section"`
}

type detectResponse struct {
	Success bool                `json:"success"`
	Method  string              `json:"method,omitempty"`
	Result  *display.ResultJSON `json:"result,omitempty"`
	Error   string              `json:"error,omitempty"`
}

// New creates a Server with the given configuration.
func New(cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8080"
	}
	if cfg.Detector == nil {
		cfg.Detector = detect.Default()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Server{
		detector:  cfg.Detector,
		extractor: cfg.Extractor,
		section:   cfg.Section,
		logger:    cfg.Logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /detect", s.handleDetect)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.logRequests(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Addr is the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down HTTP server: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		s.handleImage(w, r)
		return
	}

	var req detectRequest
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, detectResponse{Error: "invalid JSON body: " + err.Error()})
		return
	}
	if req.Text == nil {
		writeJSON(w, http.StatusBadRequest, detectResponse{Error: "no text or image provided"})
		return
	}

	section := s.section
	if req.Section != nil {
		section = *req.Section
	}
	s.respond(w, "text", *req.Text, section)
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	if s.extractor == nil {
		writeJSON(w, http.StatusServiceUnavailable, detectResponse{Error: "image uploads require an OCR API key"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	file, header, err := r.FormFile("image")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, detectResponse{Error: "no text or image provided"})
		return
	}
	defer file.Close()

	if !ocr.IsImage(header.Filename) {
		writeJSON(w, http.StatusBadRequest, detectResponse{Error: "invalid file; use " + ocr.ImageTypes})
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, maxImageBytes+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, detectResponse{Error: "reading upload: " + err.Error()})
		return
	}
	if len(data) > maxImageBytes {
		writeJSON(w, http.StatusRequestEntityTooLarge, detectResponse{Error: "image too large"})
		return
	}

	text, err := s.extractor.ExtractText(r.Context(), data)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, ocr.ErrNoText) {
			status = http.StatusUnprocessableEntity
		}
		s.logger.Warn("ocr failed", "file", header.Filename, "error", err)
		writeJSON(w, status, detectResponse{Error: err.Error()})
		return
	}

	section := s.section
	if raw := r.FormValue("section"); raw != "" {
		section = raw == "true" || raw == "1"
	}
	s.respond(w, "image", text, section)
}

func (s *Server) respond(w http.ResponseWriter, method, text string, section bool) {
	if section {
		text = label.IngredientsSection(text)
	}
	res := display.ToResultJSON(s.detector.Detect(text))
	writeJSON(w, http.StatusOK, detectResponse{Success: true, Method: method, Result: &res})
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
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
