package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/stillcast/stillcast-api/internal/convert"
	"github.com/stillcast/stillcast-api/internal/media"
	"github.com/stillcast/stillcast-api/internal/upload"
)

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	service        *convert.Service
	validator      *validator.Validate
	logger         *slog.Logger
	maxUploadBytes int64
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithMaxUploadBytes caps the size of a multipart upload request.
func WithMaxUploadBytes(n int64) HandlerOption {
	return func(h *Handlers) {
		if n > 0 {
			h.maxUploadBytes = n
		}
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service *convert.Service, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		service:        service,
		validator:      validator.New(),
		logger:         logger,
		maxUploadBytes: 50 << 20, // 50 MB default
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /health requests. The encoder probe runs here so a
// missing tool is visible before anyone submits a job.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:          "ok",
		FFmpegAvailable: h.service.ToolAvailable(),
	})
}

// Convert handles POST /convert requests: two multipart files plus an
// optional bitrate in, a downloadable MP4 out. The pipeline runs
// synchronously; the response blocks until the encoder exits.
func (h *Handlers) Convert(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		h.logger.Warn("failed to parse multipart form",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "upload too large or invalid multipart form", "INVALID_FORM")
		return
	}

	form := ConvertForm{Bitrate: r.FormValue("bitrate")}
	if err := h.validator.Struct(form); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("bitrate must be one of %v", media.Bitrates()), "VALIDATION_ERROR")
		return
	}

	image, err := readFormFile(r, "image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read image upload", "INVALID_FORM")
		return
	}
	audio, err := readFormFile(r, "audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read audio upload", "INVALID_FORM")
		return
	}

	res := h.service.Convert(r.Context(), convert.Input{
		Image:   image,
		Audio:   audio,
		Bitrate: media.Bitrate(form.Bitrate),
	})

	if !res.Succeeded {
		writeFailure(w, res)
		return
	}

	w.Header().Set("X-Job-Id", res.JobID)
	if res.ArchiveURL != "" {
		w.Header().Set("X-Archive-Url", res.ArchiveURL)
	}
	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Content-Disposition", `attachment; filename="output.mp4"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Output)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(res.Output); err != nil {
		h.logger.Warn("failed to stream output video",
			slog.String("job_id", res.JobID),
			slog.String("error", err.Error()),
		)
	}
}

// ListJobs handles GET /jobs requests.
func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.ListRecords(r.Context())
	if err != nil {
		h.logger.Error("failed to list records",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list jobs", "JOB_LIST_FAILED")
		return
	}

	out := make([]JobRecordResponse, 0, len(records))
	for _, record := range records {
		out = append(out, recordResponse(record))
	}
	writeJSON(w, http.StatusOK, out)
}

// GetJob handles GET /jobs/{id} requests.
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "job ID is required", "MISSING_JOB_ID")
		return
	}

	record, err := h.service.GetRecord(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, convert.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "job not found", "JOB_NOT_FOUND")
			return
		}
		h.logger.Error("failed to get record",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get job", "JOB_FETCH_FAILED")
		return
	}

	writeJSON(w, http.StatusOK, recordResponse(record))
}

// DeleteJob handles DELETE /jobs/{id} requests.
func (h *Handlers) DeleteJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "job ID is required", "MISSING_JOB_ID")
		return
	}

	if err := h.service.DeleteRecord(r.Context(), jobID); err != nil {
		if errors.Is(err, convert.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "job not found", "JOB_NOT_FOUND")
			return
		}
		h.logger.Error("failed to delete record",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to delete job", "JOB_DELETE_FAILED")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// readFormFile reads one multipart file into an Asset. A missing part
// yields an empty Asset; the pipeline reports it as a missing input.
func readFormFile(r *http.Request, field string) (upload.Asset, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return upload.Asset{}, nil
		}
		return upload.Asset{}, err
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		return upload.Asset{}, err
	}

	return upload.Asset{Name: header.Filename, Data: data}, nil
}

// failureStatus maps a pipeline failure kind to an HTTP status.
func failureStatus(kind convert.FailureKind) int {
	switch kind {
	case convert.FailureToolUnavailable:
		return http.StatusServiceUnavailable
	case convert.FailureMissingInput, convert.FailureInvalidExtension:
		return http.StatusBadRequest
	case convert.FailureConversionFailed:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeFailure writes a failed conversion result as a JSON error.
func writeFailure(w http.ResponseWriter, res convert.Result) {
	writeJSON(w, failureStatus(res.Kind), ErrorResponse{
		Error: res.Message,
		Code:  string(res.Kind),
		JobID: res.JobID,
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
