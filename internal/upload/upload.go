// Package upload defines the uploaded asset types and the extension
// validation applied to them before any filesystem work happens.
package upload

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Role identifies which input slot an uploaded asset fills.
type Role string

const (
	// RoleImage is the still image used as the video track source.
	RoleImage Role = "image"
	// RoleAudio is the audio track source.
	RoleAudio Role = "audio"
)

// IsValid returns true if the role is one of the known input roles.
func (r Role) IsValid() bool {
	return r == RoleImage || r == RoleAudio
}

// Asset is an uploaded file held in memory: the original filename plus its
// raw bytes. Assets are read-only and discarded once persisted to the
// workspace.
type Asset struct {
	// Name is the original filename as provided by the uploader.
	Name string
	// Data is the full file content.
	Data []byte
}

// ErrInvalidExtension is the sentinel wrapped by all extension rejections.
var ErrInvalidExtension = errors.New("invalid file extension")

// acceptedExtensions maps each role to its allowed extensions (lowercase,
// including the leading dot).
var acceptedExtensions = map[Role][]string{
	RoleImage: {".png", ".jpg", ".jpeg"},
	RoleAudio: {".mp3", ".mpeg"},
}

// AcceptedExtensions returns the allowed extensions for a role.
func AcceptedExtensions(role Role) []string {
	exts := acceptedExtensions[role]
	out := make([]string, len(exts))
	copy(out, exts)
	return out
}

// ValidateExtension checks that filename carries an accepted extension for
// the given role. The comparison is case-insensitive and looks only at the
// extension; file content is never inspected, so a mislabeled file with a
// correct extension passes and surfaces later as an encoder error.
func ValidateExtension(filename string, role Role) error {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, accepted := range acceptedExtensions[role] {
		if ext == accepted {
			return nil
		}
	}
	return fmt.Errorf("%w: %s file %q must be one of %s",
		ErrInvalidExtension, role, filename, strings.Join(acceptedExtensions[role], ", "))
}
