// Package convert implements the upload-validate-convert-cleanup pipeline.
// It coordinates the availability probe, extension validation, the temp
// workspace, the ffmpeg muxer, and optional archiving, and keeps a record
// of every finished job.
package convert

import (
	"time"

	"github.com/stillcast/stillcast-api/internal/media"
	"github.com/stillcast/stillcast-api/internal/upload"
)

// Status represents the terminal state of a conversion record. Conversions
// run synchronously, so records only ever exist in a terminal state.
type Status string

const (
	// StatusCompleted indicates the job produced a complete output video.
	StatusCompleted Status = "COMPLETED"
	// StatusFailed indicates the job yielded no output.
	StatusFailed Status = "FAILED"
)

// FailureKind classifies why a conversion failed. Empty on success.
type FailureKind string

const (
	// FailureToolUnavailable: ffmpeg not resolvable on the search path.
	FailureToolUnavailable FailureKind = "TOOL_UNAVAILABLE"
	// FailureMissingInput: one or both required uploads absent.
	FailureMissingInput FailureKind = "MISSING_INPUT"
	// FailureInvalidExtension: an upload failed the extension check for its role.
	FailureInvalidExtension FailureKind = "INVALID_EXTENSION"
	// FailureConversionFailed: ffmpeg ran and returned a nonzero status.
	FailureConversionFailed FailureKind = "CONVERSION_FAILED"
	// FailureFilesystem: a workspace write or read failed.
	FailureFilesystem FailureKind = "FILESYSTEM_ERROR"
)

// Input carries the two uploaded assets and the selected audio bitrate into
// the pipeline.
type Input struct {
	// Image is the still image upload.
	Image upload.Asset
	// Audio is the audio track upload.
	Audio upload.Asset
	// Bitrate is the requested audio bitrate. Empty selects the default.
	Bitrate media.Bitrate
}

// Result is the outcome of one conversion. Either Succeeded is true and
// Output holds the complete video, or Succeeded is false and Output is nil.
// There is no partial success.
type Result struct {
	// JobID is the token identifying this conversion.
	JobID string
	// Succeeded reports whether a complete output video was produced.
	Succeeded bool
	// Kind classifies the failure. Empty when Succeeded.
	Kind FailureKind
	// Message is the user-visible outcome message.
	Message string
	// Output is the video bytes. Nil unless Succeeded.
	Output []byte
	// ArchiveURL is set when the output was archived to durable storage.
	ArchiveURL string
}

// Record is the persisted trace of a finished conversion. Output bytes are
// never retained; only metadata survives the job.
type Record struct {
	// ID is the job token.
	ID string
	// Status is the terminal state.
	Status Status
	// Kind classifies the failure. Empty when completed.
	Kind FailureKind
	// Message is the outcome message shown to the caller.
	Message string
	// Bitrate is the audio bitrate the job ran with.
	Bitrate media.Bitrate
	// ImageName and AudioName are the original upload filenames.
	ImageName string
	AudioName string
	// OutputSize is the produced video size in bytes. Zero on failure.
	OutputSize int64
	// ArchiveURL is set when the output was archived.
	ArchiveURL string
	// CreatedAt is when the request entered the pipeline.
	CreatedAt time.Time
	// CompletedAt is when the job reached its terminal state.
	CompletedAt time.Time
}

// Clone creates a copy of the record for safe reads.
func (r *Record) Clone() *Record {
	c := *r
	return &c
}
