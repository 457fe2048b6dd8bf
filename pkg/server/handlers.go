package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/kavindra/stencil/pkg/archive"
	"github.com/kavindra/stencil/pkg/engine"
	"github.com/kavindra/stencil/pkg/manifest"
	"github.com/kavindra/stencil/pkg/source"
	"github.com/kavindra/stencil/pkg/store"
)

// genericErrorMessage is what unrecognized failures surface as; internal
// detail stays in the logs to avoid path or credential disclosure.
const genericErrorMessage = "An unexpected internal error occurred."

type loadRequest struct {
	Source string `json:"source"`
}

type loadResponse struct {
	Fields     []manifest.Field `json:"fields"`
	TemplateID string           `json:"template_id"`
}

type generateRequest struct {
	TemplateID string         `json:"template_id"`
	Context    map[string]any `json:"context"`
}

// handleLoad acquires a template source, extracts its fields, and records a
// session. The expiry sweeper runs first on every load.
func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
		return
	}
	if !isJSONRequest(r) {
		s.respondJSON(w, http.StatusUnsupportedMediaType, map[string]string{"error": "Request must be JSON"})
		return
	}

	logger := s.requestLogger(r)
	start := time.Now()
	status := "error"
	defer func() {
		if s.metrics != nil {
			s.metrics.LoadsTotal.WithLabelValues(status).Inc()
			s.metrics.LoadDuration.Observe(time.Since(start).Seconds())
		}
	}()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.respondJSON(w, http.StatusBadRequest, map[string]string{"error": "Failed to read request body"})
		return
	}

	if err := validateBody(loadSchema, body); err != nil {
		s.respondJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	var req loadRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.respondJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON body"})
		return
	}

	// Opportunistic reclamation of expired sessions before any new work.
	s.store.Sweep(time.Now())

	workDir, err := s.acquirer.Acquire(r.Context(), req.Source)
	if err != nil {
		if workDir != "" {
			os.RemoveAll(workDir)
		}
		s.replyLoadError(w, logger, req.Source, err)
		return
	}

	fields, effectiveDir, err := manifest.Extract(workDir)
	if err != nil {
		os.RemoveAll(workDir)
		s.replyLoadError(w, logger, req.Source, err)
		return
	}

	id := s.store.Put(effectiveDir, workDir)

	logger.Info().
		Str("template_id", id).
		Str("source", req.Source).
		Int("fields", len(fields)).
		Msg("Template loaded")

	status = "ok"
	s.respondJSON(w, http.StatusOK, loadResponse{Fields: fields, TemplateID: id})
}

// replyLoadError maps recognized load failures to 400 and everything else
// to a generic 500.
func (s *Server) replyLoadError(w http.ResponseWriter, logger zerolog.Logger, src string, err error) {
	switch {
	case errors.Is(err, source.ErrInvalidSource),
		errors.Is(err, source.ErrAcquisitionFailed),
		errors.Is(err, manifest.ErrManifestNotFound),
		errors.Is(err, manifest.ErrManifestInvalid):
		logger.Warn().Err(err).Str("source", src).Msg("Failed to load template")
		s.respondJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		logger.Error().Err(err).Str("source", src).Msg("Unexpected error loading template")
		s.respondJSON(w, http.StatusInternalServerError, map[string]string{"error": genericErrorMessage})
	}
}

// handleGenerate renders a loaded template into a project, archives it, and
// streams the archive back. The session is consumed regardless of outcome:
// failures reclaim synchronously, success defers reclamation until the
// response bytes have been handed to the transport.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
		return
	}
	if !isJSONRequest(r) {
		s.respondJSON(w, http.StatusUnsupportedMediaType, map[string]string{"error": "Request must be JSON"})
		return
	}

	logger := s.requestLogger(r)
	start := time.Now()
	status := "error"
	defer func() {
		if s.metrics != nil {
			s.metrics.GeneratesTotal.WithLabelValues(status).Inc()
			s.metrics.GenerateDuration.Observe(time.Since(start).Seconds())
		}
	}()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.respondJSON(w, http.StatusBadRequest, map[string]string{"error": "Failed to read request body"})
		return
	}

	if err := validateBody(generateSchema, body); err != nil {
		s.respondJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	var req generateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.respondJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON body"})
		return
	}

	sess, ok := s.store.Get(req.TemplateID)
	if !ok {
		s.respondJSON(w, http.StatusNotFound, map[string]string{"error": store.ErrSessionNotFound.Error()})
		return
	}

	outputDir := s.store.OutputDir(req.TemplateID)
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		logger.Error().Err(err).Str("dir", outputDir).Msg("Failed to create output directory")
		s.store.Reclaim(req.TemplateID)
		s.respondJSON(w, http.StatusInternalServerError, map[string]string{"error": genericErrorMessage})
		return
	}

	projectDir, err := s.engine.Render(r.Context(), sess.TemplateDir, req.Context, outputDir)
	if err != nil {
		s.store.Reclaim(req.TemplateID)
		s.replyGenerateError(w, logger, req.TemplateID, err)
		return
	}

	zipName := filepath.Base(projectDir) + ".zip"
	zipPath := filepath.Join(outputDir, zipName)

	if err := archive.ZipDir(projectDir, zipPath); err != nil {
		s.store.Reclaim(req.TemplateID)
		s.replyGenerateError(w, logger, req.TemplateID, err)
		return
	}

	// From here the session is consumed on every exit path, but only after
	// the archive bytes have been handed to the transport.
	defer func() {
		s.store.Reclaim(req.TemplateID)
		logger.Info().Str("template_id", req.TemplateID).Msg("Session reclaimed after response")
	}()

	f, err := os.Open(zipPath)
	if err != nil {
		s.replyGenerateError(w, logger, req.TemplateID, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		s.replyGenerateError(w, logger, req.TemplateID, err)
		return
	}

	status = "ok"
	logger.Info().
		Str("template_id", req.TemplateID).
		Str("archive", zipName).
		Int64("bytes", info.Size()).
		Msg("Sending generated project")

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+zipName+`"`)
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size(), 10))
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, f); err != nil {
		// The response is already committed; cleanup still runs via defer.
		logger.Warn().Err(err).Str("template_id", req.TemplateID).Msg("Failed to stream archive")
	}
}

// replyGenerateError maps recognized generation failures to 500 with their
// message and everything unrecognized to a generic 500.
func (s *Server) replyGenerateError(w http.ResponseWriter, logger zerolog.Logger, id string, err error) {
	switch {
	case errors.Is(err, engine.ErrGenerationFailed), errors.Is(err, archive.ErrArchiveFailed):
		logger.Error().Err(err).Str("template_id", id).Msg("Generation failed")
		s.respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "Generation failed: " + err.Error()})
	default:
		logger.Error().Err(err).Str("template_id", id).Msg("Unexpected error during generation")
		s.respondJSON(w, http.StatusInternalServerError, map[string]string{"error": genericErrorMessage})
	}
}
