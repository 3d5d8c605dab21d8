// Package format maps a requested output quality onto a concrete directive for
// the external conversion tool, including the ordered fallback rules applied
// when the exact quality is not offered by the source.
package format

import (
	"errors"
	"strings"
)

// Quality is an enumerated output quality label.
type Quality string

const (
	Quality360p  Quality = "360p"
	Quality480p  Quality = "480p"
	Quality720p  Quality = "720p"
	Quality1080p Quality = "1080p"
	Quality4K    Quality = "4k"
	QualityAudio Quality = "audio"
)

// MinAudioBitrateKbps is the floor enforced for any audio-only output.
// Requests below it are rejected before the external tool is invoked.
const MinAudioBitrateKbps = 128

// DefaultAudioBitrateKbps is used when the caller does not pick a bitrate.
const DefaultAudioBitrateKbps = 192

var (
	ErrInvalidRequest     = errors.New("invalid format request")
	ErrQualityUnavailable = errors.New("quality unavailable")
)

// videoLadder orders the video qualities from lowest to highest. Fallback
// walks this ladder downwards.
var videoLadder = []Quality{Quality360p, Quality480p, Quality720p, Quality1080p, Quality4K}

var qualityHeights = map[Quality]int{
	Quality360p:  360,
	Quality480p:  480,
	Quality720p:  720,
	Quality1080p: 1080,
	Quality4K:    2160,
}

// ParseQuality converts a string into a known Quality.
func ParseQuality(value string) (Quality, bool) {
	normalized := Quality(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	if normalized == QualityAudio {
		return normalized, true
	}
	_, ok := qualityHeights[normalized]
	return normalized, ok
}

// Height returns the vertical resolution cap for a video quality, or 0 for
// audio and unknown labels.
func (q Quality) Height() int {
	return qualityHeights[q]
}

// IsVideo reports whether the quality selects a video output.
func (q Quality) IsVideo() bool {
	_, ok := qualityHeights[q]
	return ok
}

// nextLower returns the closest enumerated quality below q, or "" when q is
// already the bottom of the ladder.
func nextLower(q Quality) Quality {
	for i, candidate := range videoLadder {
		if candidate == q {
			if i == 0 {
				return ""
			}
			return videoLadder[i-1]
		}
	}
	return ""
}
