package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/stillcast/stillcast-api/internal/archive"
	"github.com/stillcast/stillcast-api/internal/media"
	"github.com/stillcast/stillcast-api/internal/upload"
	"github.com/stillcast/stillcast-api/internal/workspace"
	"github.com/stillcast/stillcast-api/internal/workspace/token"
)

// Fixed user-visible messages.
const (
	// SuccessMessage is returned when a complete output video was produced.
	SuccessMessage = "Video created successfully!"
	// ToolNotFoundMessage is returned when ffmpeg cannot be resolved on the
	// search path, either at probe time or at invocation time.
	ToolNotFoundMessage = "ffmpeg not found. Please ensure FFmpeg is installed and available in your system PATH."
	// MissingInputMessage is returned when either upload is absent.
	MissingInputMessage = "Please upload both an image (PNG/JPG) and an audio (MP3) file."
)

// Service runs the conversion pipeline: probe the tool, validate the
// uploads, persist them to the workspace, invoke the muxer, read back the
// output, optionally archive it, and clean up. Cleanup runs on every exit
// path, including panics in the muxer.
type Service struct {
	workspace *workspace.Manager
	muxer     media.Muxer
	archiver  archive.Archiver
	repo      Repository
	logger    *slog.Logger
}

// NewService creates a conversion Service.
func NewService(ws *workspace.Manager, muxer media.Muxer, archiver archive.Archiver, repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if archiver == nil {
		archiver = archive.Noop{}
	}
	return &Service{
		workspace: ws,
		muxer:     muxer,
		archiver:  archiver,
		repo:      repo,
		logger:    logger,
	}
}

// ToolAvailable reports whether the encoding tool is currently resolvable.
// Exposed for the health endpoint; Convert re-checks independently.
func (s *Service) ToolAvailable() bool {
	return s.muxer.Available()
}

// GetRecord retrieves a conversion record by job token.
func (s *Service) GetRecord(ctx context.Context, id string) (*Record, error) {
	return s.repo.FindByID(ctx, id)
}

// ListRecords returns all conversion records, newest first.
func (s *Service) ListRecords(ctx context.Context) ([]*Record, error) {
	return s.repo.List(ctx)
}

// DeleteRecord removes a conversion record.
func (s *Service) DeleteRecord(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// Convert runs one conversion synchronously and blocks until the encoder
// exits. Every failure is absorbed into a failed Result; Convert never
// returns an error to the caller. The job's temporary paths are removed on
// all exit paths.
func (s *Service) Convert(ctx context.Context, input Input) Result {
	started := time.Now()

	// Re-check availability immediately before starting, not only at
	// render time; the tool may have disappeared since the last probe.
	if !s.muxer.Available() {
		return s.fail(ctx, token.Generate(), input, started, FailureToolUnavailable, ToolNotFoundMessage)
	}

	if len(input.Image.Data) == 0 || len(input.Audio.Data) == 0 {
		return s.fail(ctx, token.Generate(), input, started, FailureMissingInput, MissingInputMessage)
	}

	// Fail fast on extensions before anything touches the filesystem.
	if err := upload.ValidateExtension(input.Image.Name, upload.RoleImage); err != nil {
		return s.fail(ctx, token.Generate(), input, started, FailureInvalidExtension, err.Error())
	}
	if err := upload.ValidateExtension(input.Audio.Name, upload.RoleAudio); err != nil {
		return s.fail(ctx, token.Generate(), input, started, FailureInvalidExtension, err.Error())
	}

	if input.Bitrate == "" {
		input.Bitrate = media.DefaultBitrate
	}
	if !input.Bitrate.IsValid() {
		return s.fail(ctx, token.Generate(), input, started, FailureConversionFailed,
			fmt.Sprintf("unsupported audio bitrate %q", input.Bitrate))
	}

	job, err := s.workspace.Begin(ctx, input.Image, input.Audio)
	if err != nil {
		s.logger.Error("workspace begin failed",
			slog.String("error", err.Error()),
		)
		return s.fail(ctx, token.Generate(), input, started, FailureFilesystem, "failed to store uploaded files")
	}

	// Unconditional cleanup: success, tool failure, and panics all pass
	// through here before the job ends.
	defer func() {
		if cleanupErr := s.workspace.End(ctx, job); cleanupErr != nil {
			s.logger.Warn("workspace cleanup incomplete",
				slog.String("job_id", job.Token),
				slog.String("error", cleanupErr.Error()),
			)
		}
	}()

	s.logger.Info("starting conversion",
		slog.String("job_id", job.Token),
		slog.String("image", input.Image.Name),
		slog.String("audio", input.Audio.Name),
		slog.String("bitrate", string(input.Bitrate)),
	)

	err = s.muxer.Mux(ctx, media.MuxSpec{
		ImagePath:  job.ImagePath,
		AudioPath:  job.AudioPath,
		OutputPath: job.OutputPath,
		Bitrate:    input.Bitrate,
	})
	if err != nil {
		return s.classifyMuxFailure(ctx, job.Token, input, started, err)
	}

	output, err := os.ReadFile(job.OutputPath) // #nosec G304 - path derived inside the workspace root
	if err != nil {
		s.logger.Error("failed to read output video",
			slog.String("job_id", job.Token),
			slog.String("error", err.Error()),
		)
		return s.fail(ctx, job.Token, input, started, FailureFilesystem, "failed to read output video")
	}

	archiveURL := s.archiveOutput(ctx, job.Token, output)

	s.saveRecord(ctx, &Record{
		ID:          job.Token,
		Status:      StatusCompleted,
		Message:     SuccessMessage,
		Bitrate:     input.Bitrate,
		ImageName:   input.Image.Name,
		AudioName:   input.Audio.Name,
		OutputSize:  int64(len(output)),
		ArchiveURL:  archiveURL,
		CreatedAt:   started,
		CompletedAt: time.Now(),
	})

	s.logger.Info("conversion completed",
		slog.String("job_id", job.Token),
		slog.Int("output_bytes", len(output)),
		slog.Duration("duration", time.Since(started)),
	)

	return Result{
		JobID:      job.Token,
		Succeeded:  true,
		Message:    SuccessMessage,
		Output:     output,
		ArchiveURL: archiveURL,
	}
}

// classifyMuxFailure maps a muxer error to its failure kind and message.
func (s *Service) classifyMuxFailure(ctx context.Context, jobID string, input Input, started time.Time, err error) Result {
	if errors.Is(err, media.ErrToolNotFound) {
		// The tool vanished between the probe and the invocation.
		return s.fail(ctx, jobID, input, started, FailureToolUnavailable, ToolNotFoundMessage)
	}

	var muxErr *media.MuxError
	if errors.As(err, &muxErr) {
		return s.fail(ctx, jobID, input, started, FailureConversionFailed, "ffmpeg error: "+muxErr.Stderr)
	}

	return s.fail(ctx, jobID, input, started, FailureConversionFailed, "conversion failed: "+err.Error())
}

// archiveOutput uploads the finished video when an archive backend is
// configured. Archive failures do not fail the job.
func (s *Service) archiveOutput(ctx context.Context, jobID string, output []byte) string {
	if !s.archiver.Enabled() {
		return ""
	}

	key := fmt.Sprintf("videos/output_%s.mp4", jobID)
	url, err := s.archiver.Store(ctx, key, bytes.NewReader(output))
	if err != nil {
		s.logger.Warn("archive upload failed",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		return ""
	}

	s.logger.Info("output archived",
		slog.String("job_id", jobID),
		slog.String("url", url),
	)
	return url
}

// fail records and returns a failed result.
func (s *Service) fail(ctx context.Context, jobID string, input Input, started time.Time, kind FailureKind, message string) Result {
	s.logger.Warn("conversion failed",
		slog.String("job_id", jobID),
		slog.String("kind", string(kind)),
		slog.String("message", message),
	)

	s.saveRecord(ctx, &Record{
		ID:          jobID,
		Status:      StatusFailed,
		Kind:        kind,
		Message:     message,
		Bitrate:     input.Bitrate,
		ImageName:   input.Image.Name,
		AudioName:   input.Audio.Name,
		CreatedAt:   started,
		CompletedAt: time.Now(),
	})

	return Result{
		JobID:     jobID,
		Succeeded: false,
		Kind:      kind,
		Message:   message,
	}
}

// saveRecord persists a record, logging instead of propagating failures:
// history is advisory and must not change a conversion's outcome.
func (s *Service) saveRecord(ctx context.Context, record *Record) {
	if err := s.repo.Save(ctx, record); err != nil {
		s.logger.Error("failed to save conversion record",
			slog.String("job_id", record.ID),
			slog.String("error", err.Error()),
		)
	}
}
