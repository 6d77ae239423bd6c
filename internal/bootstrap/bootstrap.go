// Package bootstrap provides dependency initialization for the Stillcast API.
package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/stillcast/stillcast-api/internal/archive"
	"github.com/stillcast/stillcast-api/internal/config"
	"github.com/stillcast/stillcast-api/internal/convert"
	"github.com/stillcast/stillcast-api/internal/media"
	"github.com/stillcast/stillcast-api/internal/workspace"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	ConvertService *convert.Service
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	// Initialize the workspace root
	ws, err := workspace.NewManager(cfg.WorkspaceDir)
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}

	// Initialize the ffmpeg muxer
	muxer := media.NewFFmpegMuxer(cfg.FFmpegPath)
	if !muxer.Available() {
		// Startup still proceeds; each conversion re-checks and the health
		// endpoint reports the state.
		logger.Warn("ffmpeg not found on PATH; conversions will fail until it is installed")
	}

	// Initialize the archive backend
	archiver, err := initArchiver(cfg, logger)
	if err != nil {
		return nil, err
	}

	// Initialize the conversion record repository
	repo := convert.NewMemoryRepository()

	svc := convert.NewService(ws, muxer, archiver, repo, logger)

	return &Dependencies{
		ConvertService: svc,
	}, nil
}

// initArchiver creates the archive backend based on configuration.
func initArchiver(cfg *config.Config, logger *slog.Logger) (archive.Archiver, error) {
	if !cfg.ArchiveEnabled() {
		return archive.Noop{}, nil
	}

	s3Cfg := archive.S3Config{
		Bucket:          cfg.S3Bucket,
		Region:          cfg.S3Region,
		Endpoint:        cfg.S3Endpoint,
		AccessKeyID:     cfg.AWSAccessKeyID,
		SecretAccessKey: cfg.AWSSecretAccessKey,
	}
	archiver, err := archive.NewS3Archiver(s3Cfg)
	if err != nil {
		return nil, fmt.Errorf("create S3 archiver: %w", err)
	}
	logger.Info("S3 archive configured",
		slog.String("bucket", cfg.S3Bucket),
		slog.String("region", cfg.S3Region),
	)
	return archiver, nil
}
