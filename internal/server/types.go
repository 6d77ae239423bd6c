// Package server provides the HTTP layer for the Stillcast API.
// It is a thin shell over the conversion pipeline: multipart uploads in,
// an MP4 stream or a JSON error out.
package server

import (
	"time"

	"github.com/stillcast/stillcast-api/internal/convert"
)

// ConvertForm carries the non-file fields of a conversion request.
type ConvertForm struct {
	// Bitrate is the requested audio bitrate. Optional; defaults to 192k.
	Bitrate string `validate:"omitempty,oneof=128k 192k 256k 320k"`
}

// JobRecordResponse is the JSON shape of a conversion record.
type JobRecordResponse struct {
	// ID is the job token.
	ID string `json:"id"`
	// Status is the terminal job state.
	Status string `json:"status"`
	// Kind classifies the failure, empty when completed.
	Kind string `json:"kind,omitempty"`
	// Message is the outcome message.
	Message string `json:"message"`
	// Bitrate is the audio bitrate the job ran with.
	Bitrate string `json:"bitrate,omitempty"`
	// ImageName and AudioName are the original upload filenames.
	ImageName string `json:"image_name,omitempty"`
	AudioName string `json:"audio_name,omitempty"`
	// OutputSize is the produced video size in bytes, zero on failure.
	OutputSize int64 `json:"output_size"`
	// ArchiveURL is set when the output was archived.
	ArchiveURL string `json:"archive_url,omitempty"`
	// CreatedAt and CompletedAt bound the job's lifetime.
	CreatedAt   time.Time `json:"created_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// recordResponse converts a domain record into its JSON shape.
func recordResponse(r *convert.Record) JobRecordResponse {
	return JobRecordResponse{
		ID:          r.ID,
		Status:      string(r.Status),
		Kind:        string(r.Kind),
		Message:     r.Message,
		Bitrate:     string(r.Bitrate),
		ImageName:   r.ImageName,
		AudioName:   r.AudioName,
		OutputSize:  r.OutputSize,
		ArchiveURL:  r.ArchiveURL,
		CreatedAt:   r.CreatedAt,
		CompletedAt: r.CompletedAt,
	}
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
	// JobID identifies the failed job when one was recorded.
	JobID string `json:"job_id,omitempty"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
	// FFmpegAvailable reports whether the encoder is resolvable on PATH.
	FFmpegAvailable bool `json:"ffmpeg_available"`
}
