package progress

import "time"

// SpeedWindow smooths instantaneous transfer speed over a sliding window of
// byte samples. The zero value is not usable; construct with NewSpeedWindow.
type SpeedWindow struct {
	span    time.Duration
	samples []speedSample
}

type speedSample struct {
	at    time.Time
	bytes int64
}

// NewSpeedWindow constructs a sampler covering the given span. Spans at or
// below zero default to five seconds.
func NewSpeedWindow(span time.Duration) *SpeedWindow {
	if span <= 0 {
		span = 5 * time.Second
	}
	return &SpeedWindow{span: span}
}

// Observe records the cumulative byte counter at the given instant and drops
// samples that have aged out of the window.
func (w *SpeedWindow) Observe(at time.Time, cumulativeBytes int64) {
	w.samples = append(w.samples, speedSample{at: at, bytes: cumulativeBytes})
	cutoff := at.Add(-w.span)
	trim := 0
	for trim < len(w.samples)-1 && w.samples[trim].at.Before(cutoff) {
		trim++
	}
	if trim > 0 {
		w.samples = append(w.samples[:0], w.samples[trim:]...)
	}
}

// BytesPerSecond reports the smoothed speed across the current window, or 0
// when fewer than two samples are available.
func (w *SpeedWindow) BytesPerSecond() float64 {
	if len(w.samples) < 2 {
		return 0
	}
	first := w.samples[0]
	last := w.samples[len(w.samples)-1]
	elapsed := last.at.Sub(first.at).Seconds()
	if elapsed <= 0 {
		return 0
	}
	delta := last.bytes - first.bytes
	if delta <= 0 {
		return 0
	}
	return float64(delta) / elapsed
}
