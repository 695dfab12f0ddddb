package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/raaihank/packlist-sanitizer/internal/artifact"
	"github.com/raaihank/packlist-sanitizer/internal/audit"
	"github.com/raaihank/packlist-sanitizer/internal/guard"
	"github.com/raaihank/packlist-sanitizer/internal/render"
	"github.com/raaihank/packlist-sanitizer/internal/resolver"
	"github.com/raaihank/packlist-sanitizer/internal/sanitizer"
	"github.com/raaihank/packlist-sanitizer/internal/textextract"
	"github.com/raaihank/packlist-sanitizer/internal/websocket"
)

// withheldMessage is the only detail a blocked job reveals.
const withheldMessage = "Document withheld: confidential data could not be safely removed"

type detected struct {
	Redacted []string `json:"redacted"`
	Kept     []string `json:"kept"`
}

type uploadResponse struct {
	Success     bool     `json:"success"`
	DownloadURL string   `json:"download_url"`
	Filename    string   `json:"filename"`
	Detected    detected `json:"detected"`
}

type sanitizeRequest struct {
	Text string `json:"text"`
}

type sanitizeResponse struct {
	Facts    *resolver.Facts     `json:"facts"`
	Redacted []string            `json:"redacted"`
	Kept     []string            `json:"kept"`
	Findings []sanitizer.Finding `json:"findings"`
}

// handleUpload turns an uploaded packing list into a factory document
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	log := s.logger.WithRequestID(getRequestID(r.Context()))

	if r.ContentLength > s.config.Server.MaxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("File exceeds %d bytes", s.config.Server.MaxUploadBytes))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.config.Server.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.config.Server.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("File exceeds %d bytes", s.config.Server.MaxUploadBytes))
			return
		}
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	if header.Filename == "" {
		writeError(w, http.StatusBadRequest, "No file selected")
		return
	}
	if !textextract.Supported(header.Filename) {
		writeError(w, http.StatusBadRequest, "Only PDF or text files are allowed")
		return
	}

	internalPO := strings.TrimSpace(r.FormValue("internal_po"))
	if internalPO == "" {
		writeError(w, http.StatusBadRequest, "Internal PO number is required")
		return
	}
	factoryName := strings.TrimSpace(r.FormValue("factory_name"))

	renderer, err := render.ForFormat(r.FormValue("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Format must be html or xlsx")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		log.Error("Failed to read upload", zap.Error(err))
		writeError(w, http.StatusBadRequest, "Failed to read file")
		return
	}

	job := &audit.Job{
		Source:     "upload",
		InternalPO: internalPO,
		Format:     renderer.Extension(),
	}

	extracted, err := s.extractor.Extract(r.Context(), header.Filename, data)
	if err != nil {
		job.Status = audit.StatusFailed
		s.finish(r, job, nil, start)
		if errors.Is(err, textextract.ErrNoText) {
			writeError(w, http.StatusUnprocessableEntity, "No text could be extracted from the file")
			return
		}
		log.Error("Text extraction failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to extract text from the file")
		return
	}
	job.Pages = extracted.Pages

	result, err := s.sanitizer.Sanitize(extracted.Text)
	if err != nil {
		s.writeSanitizeError(w, r, job, err, start)
		return
	}

	doc := render.Document{
		InternalPO:  internalPO,
		FactoryName: factoryName,
		CompanyName: s.config.Company.Name,
		GeneratedAt: time.Now(),
		Facts:       result.Facts,
	}
	body, err := renderer.Render(doc)
	if err != nil {
		job.Status = audit.StatusFailed
		s.finish(r, job, result, start)
		log.Error("Failed to render document", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to generate document")
		return
	}

	name := render.Filename(internalPO, uuid.NewString()[:8], renderer)
	if err := s.artifacts.Put(r.Context(), &artifact.Artifact{
		Name:        name,
		ContentType: renderer.ContentType(),
		Data:        body,
		CreatedAt:   time.Now(),
	}); err != nil {
		job.Status = audit.StatusFailed
		s.finish(r, job, result, start)
		log.Error("Failed to store document", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to store document")
		return
	}

	job.Status = audit.StatusOK
	s.finish(r, job, result, start)

	log.Info("Factory document generated",
		zap.String("artifact", name),
		zap.Int("pages", extracted.Pages),
		zap.Strings("redacted_fields", result.Redacted),
	)

	writeJSON(w, http.StatusOK, uploadResponse{
		Success:     true,
		DownloadURL: "/download/" + name,
		Filename:    name,
		Detected:    detected{Redacted: result.Redacted, Kept: result.Kept},
	})
}

// handleDownload serves a stored artifact as an attachment
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	a, err := s.artifacts.Get(r.Context(), name)
	if err != nil {
		if errors.Is(err, artifact.ErrNotFound) {
			writeError(w, http.StatusNotFound, "File not found or expired")
			return
		}
		s.logger.WithRequestID(getRequestID(r.Context())).Error("Failed to load artifact", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to load file")
		return
	}

	w.Header().Set("Content-Type", a.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", a.Name))
	w.Header().Set("Content-Length", strconv.Itoa(len(a.Data)))
	w.WriteHeader(http.StatusOK)
	w.Write(a.Data)
}

// handleSanitize extracts facts from posted text
func (s *Server) handleSanitize(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	r.Body = http.MaxBytesReader(w, r.Body, s.config.Server.MaxUploadBytes)
	var req sanitizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	job := &audit.Job{Source: "api", Pages: 1}

	result, err := s.sanitizer.Sanitize(req.Text)
	if err != nil {
		s.writeSanitizeError(w, r, job, err, start)
		return
	}

	job.Status = audit.StatusOK
	s.finish(r, job, result, start)

	writeJSON(w, http.StatusOK, sanitizeResponse{
		Facts:    result.Facts,
		Redacted: result.Redacted,
		Kept:     result.Kept,
		Findings: result.Findings,
	})
}

// handleJobs lists recent audit rows
func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	limit := audit.DefaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	jobs, err := s.audit.List(r.Context(), limit)
	if err != nil {
		s.logger.Error("Failed to list audit jobs", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}
	summary, err := s.audit.Summary(r.Context())
	if err != nil {
		s.logger.Error("Failed to summarize audit jobs", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"audit_enabled": s.config.Audit.Enabled,
		"jobs":          jobs,
		"summary":       summary,
	})
}

// writeSanitizeError answers a failed Sanitize call. A leakage reveals
// nothing beyond the fixed withheld message.
func (s *Server) writeSanitizeError(w http.ResponseWriter, r *http.Request, job *audit.Job, err error, start time.Time) {
	if errors.Is(err, guard.ErrLeakageDetected) {
		job.Status = audit.StatusBlocked
		s.finish(r, job, nil, start)
		writeError(w, http.StatusUnprocessableEntity, withheldMessage)
		return
	}

	job.Status = audit.StatusFailed
	s.finish(r, job, nil, start)
	s.logger.WithRequestID(getRequestID(r.Context())).Error("Sanitize failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "Failed to process document")
}

// finish records job in the audit trail and broadcasts its summary
func (s *Server) finish(r *http.Request, job *audit.Job, result *sanitizer.Result, start time.Time) {
	elapsed := time.Since(start)
	job.DurationMs = elapsed.Milliseconds()

	event := websocket.RedactionEvent{
		Source:         job.Source,
		Status:         job.Status,
		RedactedFields: []websocket.FieldCount{},
		KeptFields:     []string{},
		ProcessingMS:   float64(elapsed.Nanoseconds()) / 1e6,
	}
	if result != nil {
		job.RedactedFields = result.Redacted
		job.KeptFields = result.Kept
		event.KeptFields = result.Kept
		for _, f := range result.ConfidentialFindings() {
			event.RedactedFields = append(event.RedactedFields, websocket.FieldCount{Field: f.Field, Count: f.Count})
		}
	}

	s.totalJobs.Add(1)
	if job.Status == audit.StatusBlocked {
		s.blockedJobs.Add(1)
	}

	requestID := getRequestID(r.Context())
	if err := s.audit.Record(r.Context(), job); err != nil {
		s.logger.WithRequestID(requestID).Warn("Failed to record audit job", zap.Error(err))
	}
	event.JobID = job.ID

	s.wsHub.BroadcastEvent(websocket.Event{
		Type:      websocket.EventTypeRedaction,
		Timestamp: time.Now(),
		RequestID: requestID,
		Data:      event,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"success": false, "error": message})
}
