// Package archive provides optional durable delivery of finished videos.
// The pipeline deletes its temporary output unconditionally; archiving is
// the only way a produced video survives beyond the response stream.
package archive

import (
	"context"
	"errors"
	"io"
)

// ErrNotConfigured is returned when archiving is attempted without a
// configured backend.
var ErrNotConfigured = errors.New("archive storage is not configured")

// Archiver stores a finished video under a key and returns a retrievable
// URL.
type Archiver interface {
	// Store uploads data under key and returns its URL.
	Store(ctx context.Context, key string, data io.Reader) (url string, err error)

	// Enabled reports whether a backend is configured. When false, the
	// pipeline skips archiving entirely.
	Enabled() bool
}

// Compile-time check that Noop implements Archiver.
var _ Archiver = Noop{}

// Noop is the Archiver used when no backend is configured.
type Noop struct{}

// Store always returns ErrNotConfigured.
func (Noop) Store(_ context.Context, _ string, _ io.Reader) (string, error) {
	return "", ErrNotConfigured
}

// Enabled returns false.
func (Noop) Enabled() bool {
	return false
}
