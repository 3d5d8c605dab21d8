package runner

import (
	"fmt"
	"strings"
	"sync"
)

// captureBuffer retains tool output up to a byte bound. Once the bound is hit
// further lines are counted but dropped, keeping a runaway tool from eating
// memory while preserving the head of the log for diagnostics. Append is safe
// for concurrent use; the executor feeds it from both output streams.
type captureBuffer struct {
	limit int64

	mu      sync.Mutex
	size    int64
	dropped int
	lines   []string
}

func newCaptureBuffer(limit int64) *captureBuffer {
	return &captureBuffer{limit: limit}
}

func (b *captureBuffer) Append(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	cost := int64(len(line)) + 1
	if b.size+cost > b.limit {
		b.dropped++
		return
	}
	b.size += cost
	b.lines = append(b.lines, line)
}

// Tail returns the last few captured lines, where tool errors usually land,
// noting how many lines fell outside the capture bound.
func (b *captureBuffer) Tail() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	const tail = 5
	start := len(b.lines) - tail
	if start < 0 {
		start = 0
	}
	joined := strings.Join(b.lines[start:], " | ")
	if b.dropped > 0 {
		joined += fmt.Sprintf(" (+%d lines dropped)", b.dropped)
	}
	return joined
}
