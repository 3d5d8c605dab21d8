package format

import (
	"fmt"
	"strings"
)

// Request describes the output the caller asked for, together with the
// qualities the source natively offers.
type Request struct {
	Quality Quality
	// AudioBitrateKbps applies to audio-only requests; zero selects the
	// default bitrate.
	AudioBitrateKbps int
	// AvailableQualities lists the video qualities offered by the source.
	// Empty means unknown, in which case no ladder fallback is applied.
	AvailableQualities []Quality
}

// Directive is the concrete selection handed to the external conversion tool:
// an effective quality label, a target container, and an ordered list of
// stream selection rules tried first to last.
type Directive struct {
	Quality   Quality
	Container string
	// Rules are selection expressions in the external tool's format syntax,
	// ordered from most to least specific.
	Rules []string
	// AudioBitrateKbps is set only for audio-only output.
	AudioBitrateKbps int
}

// FormatExpr renders the fallback chain as a single selection expression.
func (d Directive) FormatExpr() string {
	return strings.Join(d.Rules, "/")
}

// ContentType returns the MIME type of the produced file.
func (d Directive) ContentType() string {
	if d.Container == "mp3" {
		return "audio/mpeg"
	}
	return "video/mp4"
}

// Extension returns the output file extension including the dot.
func (d Directive) Extension() string {
	return "." + d.Container
}

// Select maps a request to a directive. The mapping is deterministic: the same
// request always yields the same directive. Selection never fails solely
// because the exact label is missing from the source; video requests walk the
// quality ladder downwards and finally settle on the single best combined
// stream. Audio requests below the bitrate floor are rejected.
func Select(req Request) (Directive, error) {
	if req.Quality == QualityAudio {
		return selectAudio(req)
	}
	if !req.Quality.IsVideo() {
		return Directive{}, fmt.Errorf("%w: unknown quality %q", ErrInvalidRequest, req.Quality)
	}
	return selectVideo(req), nil
}

func selectAudio(req Request) (Directive, error) {
	bitrate := req.AudioBitrateKbps
	if bitrate == 0 {
		bitrate = DefaultAudioBitrateKbps
	}
	if bitrate < MinAudioBitrateKbps {
		return Directive{}, fmt.Errorf("%w: audio bitrate %d kbps below %d kbps floor",
			ErrQualityUnavailable, bitrate, MinAudioBitrateKbps)
	}
	return Directive{
		Quality:          QualityAudio,
		Container:        "mp3",
		Rules:            []string{"bestaudio", "best"},
		AudioBitrateKbps: bitrate,
	}, nil
}

func selectVideo(req Request) Directive {
	effective := effectiveVideoQuality(req.Quality, req.AvailableQualities)
	height := effective.Height()

	// Prefer a combined video+audio stream at or below the target height,
	// then merge separate streams, then take the best combined stream at all.
	rules := []string{
		fmt.Sprintf("best[height<=%d]", height),
		fmt.Sprintf("bestvideo[height<=%d]+bestaudio", height),
		"best",
	}
	return Directive{
		Quality:   effective,
		Container: "mp4",
		Rules:     rules,
	}
}

// effectiveVideoQuality resolves the requested quality against the source's
// offering: exact match wins, otherwise the closest enumerated quality below
// it that the source offers, otherwise the request stands and the final
// "best" rule carries the selection.
func effectiveVideoQuality(requested Quality, available []Quality) Quality {
	if len(available) == 0 {
		return requested
	}
	offered := make(map[Quality]struct{}, len(available))
	for _, q := range available {
		offered[q] = struct{}{}
	}
	for q := requested; q != ""; q = nextLower(q) {
		if _, ok := offered[q]; ok {
			return q
		}
	}
	return requested
}
