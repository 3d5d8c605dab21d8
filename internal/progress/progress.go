// Package progress provides the shared percentage and ETA arithmetic used by
// every execution strategy. Keeping the math here guarantees consistent
// rounding and clamping regardless of whether progress is simulated or driven
// by a real conversion.
package progress

import "math"

// Percentage computes a completion percentage in [0, 100], rounded to two
// decimal places. A non-positive total means the total is unknown and yields 0
// rather than an error.
func Percentage(downloaded, total int64) float64 {
	if total <= 0 {
		return 0
	}
	pct := float64(downloaded) / float64(total) * 100
	pct = math.Round(pct*100) / 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// ETA estimates the remaining transfer time in whole seconds, rounded up.
// A zero result communicates "unknown", not "instant": it is returned whenever
// speed is non-positive or nothing remains.
func ETA(remainingBytes int64, bytesPerSecond float64) int64 {
	if bytesPerSecond <= 0 || remainingBytes <= 0 {
		return 0
	}
	return int64(math.Ceil(float64(remainingBytes) / bytesPerSecond))
}

// Remaining returns the outstanding byte count, never negative.
func Remaining(downloaded, total int64) int64 {
	if total <= 0 || downloaded >= total {
		return 0
	}
	return total - downloaded
}
