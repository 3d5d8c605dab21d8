package format_test

import (
	"errors"
	"testing"

	"fetchmill/internal/format"
)

func TestParseQuality(t *testing.T) {
	cases := []struct {
		input string
		want  format.Quality
		ok    bool
	}{
		{"720p", format.Quality720p, true},
		{" 1080P ", format.Quality1080p, true},
		{"4k", format.Quality4K, true},
		{"audio", format.QualityAudio, true},
		{"240p", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := format.ParseQuality(tc.input)
		if ok != tc.ok {
			t.Fatalf("ParseQuality(%q) ok = %v, want %v", tc.input, ok, tc.ok)
		}
		if ok && got != tc.want {
			t.Fatalf("ParseQuality(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestSelectExactQuality(t *testing.T) {
	directive, err := format.Select(format.Request{
		Quality:            format.Quality720p,
		AvailableQualities: []format.Quality{format.Quality360p, format.Quality720p},
	})
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if directive.Quality != format.Quality720p {
		t.Fatalf("expected 720p directive, got %q", directive.Quality)
	}
	if directive.Container != "mp4" {
		t.Fatalf("expected mp4 container, got %q", directive.Container)
	}
	if expr := directive.FormatExpr(); expr != "best[height<=720]/bestvideo[height<=720]+bestaudio/best" {
		t.Fatalf("unexpected format expression %q", expr)
	}
}

func TestSelectFallsBackToNextLower(t *testing.T) {
	directive, err := format.Select(format.Request{
		Quality:            format.Quality1080p,
		AvailableQualities: []format.Quality{format.Quality360p, format.Quality480p, format.Quality720p},
	})
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if directive.Quality != format.Quality720p {
		t.Fatalf("expected fallback to 720p, got %q", directive.Quality)
	}
}

func TestSelectKeepsBestRuleWhenNothingMatches(t *testing.T) {
	directive, err := format.Select(format.Request{
		Quality:            format.Quality360p,
		AvailableQualities: []format.Quality{format.Quality4K},
	})
	if err != nil {
		t.Fatalf("Select should not fail on a missing label: %v", err)
	}
	rules := directive.Rules
	if rules[len(rules)-1] != "best" {
		t.Fatalf("expected final best rule, got %q", rules[len(rules)-1])
	}
}

func TestSelectIsDeterministic(t *testing.T) {
	req := format.Request{
		Quality:            format.Quality1080p,
		AvailableQualities: []format.Quality{format.Quality720p, format.Quality480p},
	}
	first, err := format.Select(req)
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := format.Select(req)
		if err != nil {
			t.Fatalf("Select failed: %v", err)
		}
		if again.FormatExpr() != first.FormatExpr() || again.Quality != first.Quality {
			t.Fatalf("selection not deterministic: %#v vs %#v", again, first)
		}
	}
}

func TestSelectAudio(t *testing.T) {
	directive, err := format.Select(format.Request{Quality: format.QualityAudio})
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if directive.Container != "mp3" {
		t.Fatalf("expected mp3 container, got %q", directive.Container)
	}
	if directive.AudioBitrateKbps != format.DefaultAudioBitrateKbps {
		t.Fatalf("expected default bitrate, got %d", directive.AudioBitrateKbps)
	}
	if directive.ContentType() != "audio/mpeg" {
		t.Fatalf("unexpected content type %q", directive.ContentType())
	}
}

func TestSelectAudioBelowFloorRejected(t *testing.T) {
	_, err := format.Select(format.Request{Quality: format.QualityAudio, AudioBitrateKbps: 96})
	if !errors.Is(err, format.ErrQualityUnavailable) {
		t.Fatalf("expected ErrQualityUnavailable, got %v", err)
	}
}

func TestSelectUnknownQualityRejected(t *testing.T) {
	_, err := format.Select(format.Request{Quality: "f240p"})
	if !errors.Is(err, format.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}
