package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

// ProgressTracker draws one line per running batch, redrawn in place
type ProgressTracker struct {
	mu       sync.Mutex
	bars     map[string]*ProgressBar
	output   io.Writer
	last     time.Time
	interval time.Duration
}

// ProgressBar is the state of one batch
type ProgressBar struct {
	ID      string
	Label   string
	Total   int
	Done    int
	Updated time.Time
}

// Percent returns the completed share of the bar
func (b *ProgressBar) Percent() float64 {
	if b.Total <= 0 {
		return 100
	}
	return 100 * float64(b.Done) / float64(b.Total)
}

// NewProgressTracker draws to output at most every 100ms
func NewProgressTracker(output io.Writer) *ProgressTracker {
	return &ProgressTracker{
		bars:     make(map[string]*ProgressBar),
		output:   output,
		interval: 100 * time.Millisecond,
	}
}

// Start adds a bar for total steps
func (pt *ProgressTracker) Start(id, label string, total int) {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	pt.bars[id] = &ProgressBar{
		ID:      id,
		Label:   label,
		Total:   total,
		Updated: time.Now(),
	}
	pt.render()
}

// Step advances a bar and optionally relabels it
func (pt *ProgressTracker) Step(id, label string) {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	bar, ok := pt.bars[id]
	if !ok {
		return
	}
	bar.Done++
	if label != "" {
		bar.Label = label
	}
	bar.Updated = time.Now()

	if time.Since(pt.last) > pt.interval {
		pt.render()
		pt.last = time.Now()
	}
}

// Complete prints a final line for the bar and stops drawing it
func (pt *ProgressTracker) Complete(id string, message string) {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	if bar, ok := pt.bars[id]; ok {
		if message != "" {
			bar.Label = message
		}
		fmt.Fprintf(pt.output, "\r%s: %s [Complete]\n", id, bar.Label)
		delete(pt.bars, id)
	}
	pt.render()
}

// render draws every bar in id order, then moves the cursor back up
func (pt *ProgressTracker) render() {
	if len(pt.bars) == 0 {
		return
	}

	ids := make([]string, 0, len(pt.bars))
	for id := range pt.bars {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		bar := pt.bars[id]
		fmt.Fprintf(pt.output, "\r%s: %s %.1f%% (%d/%d) %s\n",
			id, renderBar(bar.Percent(), 30), bar.Percent(), bar.Done, bar.Total, truncate(bar.Label, 50))
	}

	fmt.Fprint(pt.output, strings.Repeat("\033[F", len(ids)))
}

// renderBar draws [=====>    ]
func renderBar(percent float64, width int) string {
	completed := int(percent / 100.0 * float64(width))

	var b strings.Builder
	b.WriteByte('[')
	for i := 0; i < width; i++ {
		switch {
		case i < completed:
			b.WriteByte('=')
		case i == completed:
			b.WriteByte('>')
		default:
			b.WriteByte(' ')
		}
	}
	b.WriteByte(']')
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
