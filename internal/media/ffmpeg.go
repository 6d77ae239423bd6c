package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// ErrToolNotFound is returned when the ffmpeg executable cannot be resolved
// on the search path at invocation time.
var ErrToolNotFound = errors.New("ffmpeg executable not found")

// ErrInvalidBitrate is returned when a mux is attempted with a bitrate
// outside the enumerated set.
var ErrInvalidBitrate = errors.New("invalid audio bitrate")

// Runner executes an external command and returns its combined diagnostic
// output. It exists so tests can substitute a fake process runner.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stderr string, err error)
}

// execRunner runs commands with os/exec, capturing stderr.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	// #nosec G204 - name is the configured ffmpeg binary, not user input
	cmd := exec.CommandContext(ctx, name, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stderr.String(), err
}

// Compile-time check that FFmpegMuxer implements Muxer.
var _ Muxer = (*FFmpegMuxer)(nil)

// FFmpegMuxer implements Muxer using the ffmpeg CLI.
type FFmpegMuxer struct {
	// ffmpegPath is the ffmpeg binary name or path. Defaults to "ffmpeg".
	ffmpegPath string
	runner     Runner
}

// MuxerOption configures an FFmpegMuxer.
type MuxerOption func(*FFmpegMuxer)

// WithRunner replaces the process runner. Used by tests to avoid spawning
// real processes.
func WithRunner(r Runner) MuxerOption {
	return func(m *FFmpegMuxer) {
		m.runner = r
	}
}

// NewFFmpegMuxer creates a new FFmpegMuxer.
// If ffmpegPath is empty, it defaults to "ffmpeg" (found via PATH).
func NewFFmpegMuxer(ffmpegPath string, opts ...MuxerOption) *FFmpegMuxer {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	m := &FFmpegMuxer{
		ffmpegPath: ffmpegPath,
		runner:     execRunner{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Available reports whether the ffmpeg binary can be resolved on the
// search path.
func (m *FFmpegMuxer) Available() bool {
	_, err := exec.LookPath(m.ffmpegPath)
	return err == nil
}

// BuildMuxArgs returns the fixed ffmpeg argument list for a mux spec. The
// image is looped for the duration of the audio track, video is encoded
// with libx264 tuned for a static image, audio with AAC at the selected
// bitrate, and -shortest truncates the output to the audio length.
func BuildMuxArgs(spec MuxSpec) []string {
	return []string{
		"-y", // Overwrite output file without asking
		"-loop", "1", // Loop the still image
		"-i", spec.ImagePath, // Video source
		"-i", spec.AudioPath, // Audio source
		"-c:v", "libx264", // Video codec
		"-tune", "stillimage", // Static content, minimal keyframe churn
		"-c:a", "aac", // Audio codec
		"-b:a", string(spec.Bitrate), // Audio bitrate
		"-pix_fmt", "yuv420p", // Pixel format for player compatibility
		"-shortest", // Stop at the shorter input stream
		spec.OutputPath,
	}
}

// Mux runs ffmpeg for the given spec. One attempt, no retries: a malformed
// or missing input is not transient.
func (m *FFmpegMuxer) Mux(ctx context.Context, spec MuxSpec) error {
	if !spec.Bitrate.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidBitrate, spec.Bitrate)
	}

	args := BuildMuxArgs(spec)
	stderr, err := m.runner.Run(ctx, m.ffmpegPath, args...)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg cancelled: %w", ctx.Err())
		}
		if errors.Is(err, exec.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrToolNotFound, m.ffmpegPath)
		}
		return &MuxError{
			Args:   args,
			Stderr: stderr,
			Err:    err,
		}
	}

	return nil
}

// MuxError represents a failed ffmpeg run, including the stderr output the
// tool produced.
type MuxError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *MuxError) Error() string {
	return fmt.Sprintf("ffmpeg error: %v\nargs: %v\nstderr: %s", e.Err, e.Args, e.Stderr)
}

func (e *MuxError) Unwrap() error {
	return e.Err
}
