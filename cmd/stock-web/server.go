package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/fpang/stock-submit/internal/analyze"
	"github.com/fpang/stock-submit/internal/auth"
	"github.com/fpang/stock-submit/internal/batch"
	"github.com/fpang/stock-submit/internal/distribute"
	"github.com/fpang/stock-submit/internal/filehandler"
	"github.com/fpang/stock-submit/internal/metadata"
	"github.com/fpang/stock-submit/internal/session"
)

// maxUploadBytes caps one ingestion request. Stock submissions are large
// JPEGs; 512 MB covers a realistic batch.
const maxUploadBytes = 512 << 20

// captionerFactory builds a vision captioner for one analysis request.
// Swapped out in tests.
type captionerFactory func(ctx context.Context, apiKey, model string) (analyze.Captioner, error)

// server wires the pipeline components behind the HTTP surface.
type server struct {
	store        *session.Store
	analyzer     *analyze.Analyzer
	embedder     *metadata.Embedder
	uploader     *distribute.Uploader
	model        string
	newCaptioner captionerFactory
}

func (s *server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/session", s.handleCreateSession)
	mux.HandleFunc("POST /api/analyze", s.handleAnalyze)
	mux.HandleFunc("POST /api/publish", s.handlePublish)
	mux.HandleFunc("GET /api/session/{id}/file", s.handleFile)
	mux.HandleFunc("GET /api/session/{id}/thumbnail", s.handleThumbnail)
	return mux
}

// POST /api/session
// Multipart form; every part named "files" becomes one session member.
func (s *server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(64 << 20); err != nil {
		httpError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	var uploads []session.Upload
	for _, header := range r.MultipartForm.File["files"] {
		f, err := header.Open()
		if err != nil {
			log.Warn().Err(err).Str("filename", header.Filename).Msg("Failed to open upload part")
			continue
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			log.Warn().Err(err).Str("filename", header.Filename).Msg("Failed to read upload part")
			continue
		}
		uploads = append(uploads, session.Upload{Name: header.Filename, Data: data})
	}

	id, written, err := s.store.Ingest(uploads)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"sessionId": id,
		"files":     written,
	})
}

// POST /api/analyze
// Body: {"sessionId": "...", "apiKey": "...", "context": {"a.jpg": "..."}}
// context entries override what the model infers visually, per file.
func (s *server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string            `json:"sessionId"`
		APIKey    string            `json:"apiKey"`
		Context   map[string]string `json:"context"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	apiKey, err := auth.ResolveAPIKey(req.APIKey)
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}

	captioner, err := s.newCaptioner(r.Context(), apiKey, s.model)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create vision client")
		httpError(w, http.StatusInternalServerError, "failed to create vision client")
		return
	}

	records, err := s.analyzer.Run(r.Context(), req.SessionID, captioner, req.Context)
	if errors.Is(err, session.ErrSessionNotFound) {
		httpError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("session_id", req.SessionID).Msg("Analysis failed")
		httpError(w, http.StatusInternalServerError, "analysis failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"sessionId": req.SessionID,
		"results":   records,
	})
}

// POST /api/publish
// Body: {"sessionId": "...", "metadata": [...], "ftpUser": "...", "ftpPass": "..."}
// Embeds the approved metadata, uploads the files, then schedules
// session cleanup. Per-file failures in either stage still count the
// batch as done; only a connection-level failure leaves the session in
// place for a retry.
func (s *server) handlePublish(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string            `json:"sessionId"`
		Metadata  []metadata.Record `json:"metadata"`
		FTPUser   string            `json:"ftpUser"`
		FTPPass   string            `json:"ftpPass"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	dir, err := s.store.Resolve(req.SessionID)
	if err != nil {
		httpError(w, http.StatusNotFound, "session not found")
		return
	}

	embedResult := s.embedder.Embed(r.Context(), dir, req.Metadata)

	uploadResult, err := s.uploader.Upload(r.Context(), dir, req.Metadata, req.FTPUser, req.FTPPass)
	if err != nil {
		// Connection-level failure: nothing was transferred and the
		// session files stay available for a retry.
		log.Error().Err(err).Str("session_id", req.SessionID).Msg("Transfer connection failed")
		httpError(w, http.StatusBadGateway, err.Error())
		return
	}

	s.store.Reap(req.SessionID)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"sessionId":    req.SessionID,
		"embedded":     embedResult.SuccessCount,
		"embedErrors":  orEmpty(embedResult.Errors),
		"uploaded":     uploadResult.Uploaded,
		"uploadErrors": orEmpty(uploadResult.Errors),
	})
}

// GET /api/session/{id}/file?name=a.jpg
func (s *server) handleFile(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	name := r.URL.Query().Get("name")
	if name == "" {
		httpError(w, http.StatusBadRequest, "name is required")
		return
	}

	data, err := s.store.ReadFile(id, name)
	if errors.Is(err, session.ErrSessionNotFound) {
		httpError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		httpError(w, http.StatusNotFound, "file not found")
		return
	}

	w.Header().Set("Content-Type", filehandler.MIMEType(name))
	w.Write(data)
}

// GET /api/session/{id}/thumbnail?name=a.jpg
func (s *server) handleThumbnail(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	name := r.URL.Query().Get("name")
	if name == "" {
		httpError(w, http.StatusBadRequest, "name is required")
		return
	}

	data, err := s.store.ReadFile(id, name)
	if errors.Is(err, session.ErrSessionNotFound) {
		httpError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		httpError(w, http.StatusNotFound, "file not found")
		return
	}

	thumb, err := filehandler.Thumbnail(name, data, filehandler.DefaultThumbnailMaxDimension)
	if err != nil {
		log.Warn().Err(err).Str("filename", name).Msg("Failed to generate thumbnail")
		httpError(w, http.StatusUnprocessableEntity, "thumbnail generation failed")
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(thumb)
}

// orEmpty keeps JSON arrays as [] instead of null.
func orEmpty(diags []batch.Diagnostic) []batch.Diagnostic {
	if diags == nil {
		return []batch.Diagnostic{}
	}
	return diags
}
