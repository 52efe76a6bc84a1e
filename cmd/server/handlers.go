//go:build !js && !wasm
// +build !js,!wasm

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/himanishpuri/SoundAlike/internal/audio"
	"github.com/himanishpuri/SoundAlike/pkg/logger"
	"github.com/himanishpuri/SoundAlike/pkg/soundalike"
	"github.com/himanishpuri/SoundAlike/pkg/utils"
)

var errRootOutside = errors.New("root is outside the configured library")

// Server encapsulates the HTTP server and its dependencies
type Server struct {
	service  soundalike.Service
	config   *ServerConfig
	decoders *audio.Registry
	log      soundalike.Logger
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	TempDir        string
	AllowedOrigins []string
	AccessLog      bool
	// ReferenceExtensions limits uploads. Empty accepts anything a decoder
	// is registered for.
	ReferenceExtensions []string
}

// NewServer creates a new server instance
func NewServer(service soundalike.Service, config *ServerConfig) *Server {
	return &Server{
		service:  service,
		config:   config,
		decoders: audio.NewRegistry(),
		log:      logger.GetLogger().WithPrefix("[http]"),
	}
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("Failed to encode JSON response: %v", err)
	}
}

// respondError writes an error response
func (s *Server) respondError(w http.ResponseWriter, statusCode int, message string) {
	s.respondJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

// respondStartError maps job start failures to status codes
func (s *Server) respondStartError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, soundalike.ErrBusy):
		s.respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, soundalike.ErrReference):
		s.respondError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		s.log.Errorf("Failed to start search: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to start search")
	}
}

// handleRoot handles GET /
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"service": "SoundAlike API",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"health":            "GET /health",
			"metrics":           "GET /api/health/metrics",
			"roots":             "GET /api/roots",
			"search":            "POST /api/search",
			"searchFingerprint": "POST /api/search/fingerprint",
			"job":               "GET /api/jobs/{id}",
			"cancelJob":         "DELETE /api/jobs/{id}",
		},
	})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleMetrics handles GET /api/health/metrics
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.CacheStats()
	if err != nil {
		s.log.Errorf("Failed to read cache stats: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve metrics")
		return
	}

	resp := MetricsResponse{
		Status: "healthy",
		Cache:  stats,
		Roots:  len(s.service.LibraryRoots()),
	}
	if j := s.service.ActiveJob(); j != nil {
		resp.ActiveJob = j.ID()
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// handleRoots handles GET /api/roots
func (s *Server) handleRoots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	roots := s.service.LibraryRoots()
	s.respondJSON(w, http.StatusOK, RootsResponse{Roots: roots, Count: len(roots)})
}

// handleSearchFile handles POST /api/search (multipart file upload)
func (s *Server) handleSearchFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.log.Errorf("Failed to parse form: %v", err)
		s.respondError(w, http.StatusBadRequest, "Failed to parse form data")
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		s.log.Errorf("Failed to get audio file: %v", err)
		s.respondError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	// The decoder is picked by extension, so keep the uploaded one.
	name := filepath.Base(header.Filename)
	if !s.supportsReference(name) {
		s.respondError(w, http.StatusUnsupportedMediaType, fmt.Sprintf("Unsupported reference format %q", filepath.Ext(name)))
		return
	}

	roots, err := s.confineRoots(r.MultipartForm.Value["root"])
	if err != nil {
		s.respondError(w, http.StatusForbidden, err.Error())
		return
	}
	out, err := os.CreateTemp(s.config.TempDir, "reference_*"+strings.ToLower(filepath.Ext(name)))
	if err != nil {
		s.log.Errorf("Failed to create temp file: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to process upload")
		return
	}
	tempFile := out.Name()
	defer os.Remove(tempFile)

	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		s.log.Errorf("Failed to save file: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to save uploaded file")
		return
	}
	out.Close()

	// The job outlives the request; the reference is fingerprinted before
	// StartSearch returns, so the temp file can go afterwards.
	s.log.Infof("Starting search for uploaded file: %s", name)
	job, err := s.service.StartSearch(context.Background(), tempFile, roots)
	if err != nil {
		s.respondStartError(w, err)
		return
	}

	s.respondJSON(w, http.StatusAccepted, SearchStartedResponse{
		JobID:     job.ID(),
		Reference: name,
		Roots:     len(s.rootsOrDefault(roots)),
		StatusURL: "/api/jobs/" + job.ID(),
	})
}

// handleSearchFingerprint handles POST /api/search/fingerprint (precomputed fingerprint from WASM clients)
func (s *Server) handleSearchFingerprint(w http.ResponseWriter, r *http.Request) {
	var req FingerprintSearchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxUploadBytes)).Decode(&req); err != nil {
		s.log.Errorf("Failed to decode request: %v", err)
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	roots, err := s.confineRoots(req.Roots)
	if err != nil {
		s.respondError(w, http.StatusForbidden, err.Error())
		return
	}

	label := req.Label
	if label == "" {
		label = "uploaded fingerprint"
	}
	s.log.Infof("Starting search for client fingerprint %dx%d", req.Coefficients, req.Frames)
	job, err := s.service.StartSearchWithFingerprint(context.Background(), label, req.Fingerprint(), roots)
	if err != nil {
		s.respondStartError(w, err)
		return
	}

	s.respondJSON(w, http.StatusAccepted, SearchStartedResponse{
		JobID:     job.ID(),
		Reference: label,
		Roots:     len(s.rootsOrDefault(roots)),
		StatusURL: "/api/jobs/" + job.ID(),
	})
}

// confineRoots resolves client supplied roots and refuses any that are not
// a configured library root or inside one.
func (s *Server) confineRoots(roots []string) ([]string, error) {
	if len(roots) == 0 {
		return nil, nil
	}

	var allowed []string
	for _, r := range s.service.LibraryRoots() {
		if p, err := utils.ResolvePath(r); err == nil {
			allowed = append(allowed, p)
		}
	}

	confined := make([]string, 0, len(roots))
	for _, r := range roots {
		p, err := utils.ResolvePath(r)
		if err != nil || !slices.ContainsFunc(allowed, func(base string) bool { return utils.IsWithin(base, p) }) {
			return nil, fmt.Errorf("%w: %s", errRootOutside, r)
		}
		confined = append(confined, p)
	}
	return confined, nil
}

func (s *Server) supportsReference(name string) bool {
	if len(s.config.ReferenceExtensions) > 0 {
		return slices.Contains(s.config.ReferenceExtensions, strings.ToLower(filepath.Ext(name)))
	}
	return s.decoders.Supports(name)
}

func (s *Server) rootsOrDefault(roots []string) []string {
	if len(roots) > 0 {
		return roots
	}
	return s.service.LibraryRoots()
}

// handleGetJob handles GET /api/jobs/{id}
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request, id string) {
	job, ok := s.service.Job(id)
	if !ok {
		s.respondError(w, http.StatusNotFound, fmt.Sprintf("Job %s not found", id))
		return
	}
	s.respondJSON(w, http.StatusOK, job.Status())
}

// handleCancelJob handles DELETE /api/jobs/{id}
func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request, id string) {
	job, ok := s.service.Job(id)
	if !ok {
		s.respondError(w, http.StatusNotFound, fmt.Sprintf("Job %s not found", id))
		return
	}

	job.Cancel()
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()
	st, err := job.Wait(ctx)
	if err != nil {
		s.log.Warnf("Job %s did not stop in time: %v", id, err)
	} else {
		s.service.ForgetJob(id)
	}
	s.log.Infof("Canceled job %s (%s)", id, st.State)
	s.respondJSON(w, http.StatusOK, st)
}

// handleSearch routes requests to /api/search
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	s.handleSearchFile(w, r)
}

// handleSearchFingerprintRoute routes requests to /api/search/fingerprint
func (s *Server) handleSearchFingerprintRoute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	s.handleSearchFingerprint(w, r)
}

// handleJob routes requests to /api/jobs/{id}
func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(r.URL.Path[len("/api/jobs/"):], "/")
	if id == "" {
		s.respondError(w, http.StatusBadRequest, "Job ID required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleGetJob(w, r, id)
	case http.MethodDelete:
		s.handleCancelJob(w, r, id)
	default:
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}
