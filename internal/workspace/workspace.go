// Package workspace owns the temporary file lifecycle of a conversion job:
// a shared scratch root, per-job token-namespaced paths, and unconditional
// cleanup of whatever a job created.
package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/stillcast/stillcast-api/internal/upload"
	"github.com/stillcast/stillcast-api/internal/workspace/token"
)

// Job is the ephemeral filesystem footprint of one conversion request.
// All three paths live under the workspace root, namespaced by Token, and
// never outlive the job.
type Job struct {
	// Token is the unique identifier namespacing this job's paths.
	Token string
	// ImagePath is where the uploaded image was persisted.
	ImagePath string
	// AudioPath is where the uploaded audio was persisted.
	AudioPath string
	// OutputPath is where the encoder writes the video.
	OutputPath string
}

// Paths returns the job's three filesystem paths.
func (j *Job) Paths() []string {
	return []string{j.ImagePath, j.AudioPath, j.OutputPath}
}

// Manager creates per-job scratch files under a single root directory and
// guarantees their removal. The root is injected at construction; the
// manager never touches paths outside it.
type Manager struct {
	root string
}

// NewManager creates a Manager rooted at root, creating the directory if it
// does not exist. If root is empty, a directory under os.TempDir() is used.
func NewManager(root string) (*Manager, error) {
	if root == "" {
		root = filepath.Join(os.TempDir(), "stillcast")
	}

	if err := os.MkdirAll(root, 0750); err != nil {
		return nil, fmt.Errorf("create workspace root: %w", err)
	}

	return &Manager{root: root}, nil
}

// Root returns the workspace root directory.
func (m *Manager) Root() string {
	return m.root
}

// Begin generates a fresh job token, derives the job's three paths under
// the root, and persists both uploaded assets. If a write fails, the
// partially created files are removed and the error is returned; the
// encoder is never invoked on partial state.
func (m *Manager) Begin(ctx context.Context, image, audio upload.Asset) (*Job, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	tok := token.Generate()
	job := &Job{
		Token:      tok,
		ImagePath:  filepath.Join(m.root, fmt.Sprintf("%s_%s", tok, filepath.Base(image.Name))),
		AudioPath:  filepath.Join(m.root, fmt.Sprintf("%s_%s", tok, filepath.Base(audio.Name))),
		OutputPath: filepath.Join(m.root, fmt.Sprintf("output_%s.mp4", tok)),
	}

	if err := os.WriteFile(job.ImagePath, image.Data, 0600); err != nil {
		m.End(ctx, job)
		return nil, fmt.Errorf("write image: %w", err)
	}
	if err := os.WriteFile(job.AudioPath, audio.Data, 0600); err != nil {
		m.End(ctx, job)
		return nil, fmt.Errorf("write audio: %w", err)
	}

	return job, nil
}

// End removes any of the job's paths that exist. Best effort: it keeps
// going past individual failures and returns the first error encountered.
// Safe to call on a job whose files were never created.
func (m *Manager) End(_ context.Context, job *Job) error {
	if job == nil {
		return nil
	}

	var firstErr error
	for _, p := range job.Paths() {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			if firstErr == nil {
				firstErr = fmt.Errorf("remove temp file %s: %w", p, err)
			}
		}
	}
	return firstErr
}
