package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

const (
	ProgressBar   = "━"
	ProgressEmpty = "─"
	barWidth      = 20
)

// ProgressDisplay renders a single-line progress bar per stage, for example
// "Getting media info" followed by "Reposting photos"
type ProgressDisplay struct {
	mu        sync.Mutex
	out       io.Writer
	stage     string
	total     int
	done      int
	failed    int
	current   string
	startTime time.Time
	isDebug   bool
}

// NewProgressDisplay creates a progress display writing to stdout
func NewProgressDisplay(debug bool) *ProgressDisplay {
	return NewProgressDisplayTo(os.Stdout, debug)
}

// NewProgressDisplayTo creates a progress display writing to out
func NewProgressDisplayTo(out io.Writer, debug bool) *ProgressDisplay {
	return &ProgressDisplay{out: out, isDebug: debug}
}

// Start begins a new stage with the given number of items
func (p *ProgressDisplay) Start(stage string, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stage = stage
	p.total = total
	p.done = 0
	p.failed = 0
	p.current = ""
	p.startTime = time.Now()
	p.printProgress()
}

// Advance marks one item of the current stage as handled
func (p *ProgressDisplay) Advance(item string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done++
	p.current = item
	if p.isDebug {
		fmt.Fprintf(p.out, "\n%s %s", Green("✓"), item)
	}
	p.printProgress()
}

// Fail marks one item of the current stage as failed
func (p *ProgressDisplay) Fail(item string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done++
	p.failed++
	p.current = item
	if p.isDebug {
		fmt.Fprintf(p.out, "\n%s Failed: %s - %v", Red("✗"), item, err)
	}
	p.printProgress()
}

// Finish closes the current stage line with a summary
func (p *ProgressDisplay) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.out, "\n%s %s: %d/%d in %s\n",
		Green("✓"),
		p.stage,
		p.done-p.failed,
		p.total,
		formatDuration(time.Since(p.startTime)),
	)
	if p.failed > 0 {
		fmt.Fprintf(p.out, "  %s %d failed\n", Dim("•"), p.failed)
	}
}

// printProgress prints the progress line for the current stage
func (p *ProgressDisplay) printProgress() {
	fmt.Fprintf(p.out, "\r%s\r%s", strings.Repeat(" ", 100), p.line())
}

func (p *ProgressDisplay) line() string {
	line := fmt.Sprintf("%s [%s] %d/%d", Cyan(p.stage), renderBar(p.done, p.total), p.done, p.total)
	if p.current != "" {
		line += fmt.Sprintf(" • %s", p.current)
	}
	if p.failed > 0 {
		line += fmt.Sprintf(" • %s", Red(fmt.Sprintf("%d errors", p.failed)))
	}
	return line
}

func renderBar(done, total int) string {
	filled := barWidth
	if total > 0 {
		filled = done * barWidth / total
	}
	if filled > barWidth {
		filled = barWidth
	}
	return strings.Repeat(ProgressBar, filled) + strings.Repeat(ProgressEmpty, barWidth-filled)
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}

// WaitNotice prints how long the workflow is going to pause
func WaitNotice(out io.Writer, reason string, d time.Duration) {
	fmt.Fprintf(out, "%s %s, waiting %s...\n", Yellow("⚠"), reason, formatDuration(d))
}
