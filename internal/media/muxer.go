// Package media provides the ffmpeg-backed muxer that combines a still
// image and an audio track into an MP4 video.
package media

import "context"

// Bitrate is an audio bitrate accepted by the muxer. Only the enumerated
// values are valid; arbitrary strings are rejected before invocation.
type Bitrate string

const (
	// Bitrate128k is 128 kbit/s AAC audio.
	Bitrate128k Bitrate = "128k"
	// Bitrate192k is 192 kbit/s AAC audio, the default.
	Bitrate192k Bitrate = "192k"
	// Bitrate256k is 256 kbit/s AAC audio.
	Bitrate256k Bitrate = "256k"
	// Bitrate320k is 320 kbit/s AAC audio.
	Bitrate320k Bitrate = "320k"
)

// DefaultBitrate is used when the caller does not select a bitrate.
const DefaultBitrate = Bitrate192k

// Bitrates returns all accepted bitrates in ascending order.
func Bitrates() []Bitrate {
	return []Bitrate{Bitrate128k, Bitrate192k, Bitrate256k, Bitrate320k}
}

// IsValid returns true if the bitrate is one of the enumerated values.
func (b Bitrate) IsValid() bool {
	switch b {
	case Bitrate128k, Bitrate192k, Bitrate256k, Bitrate320k:
		return true
	}
	return false
}

// MuxSpec describes a single mux invocation: where the two inputs live,
// where the output goes, and the selected audio bitrate.
type MuxSpec struct {
	// ImagePath is the still image used as the looped video source.
	ImagePath string
	// AudioPath is the audio track; its length bounds the output duration.
	AudioPath string
	// OutputPath is where the MP4 is written.
	OutputPath string
	// Bitrate is the AAC audio bitrate.
	Bitrate Bitrate
}

// Muxer combines a still image and an audio track into a video file.
type Muxer interface {
	// Available reports whether the encoding tool can be resolved on the
	// search path. No side effects.
	Available() bool

	// Mux runs the encoder for the given spec. On tool failure it returns a
	// *MuxError carrying the tool's diagnostic output; if the executable
	// cannot be found it returns an error wrapping ErrToolNotFound.
	Mux(ctx context.Context, spec MuxSpec) error
}
