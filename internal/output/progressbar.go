package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rafabd1/Tendril/internal/utils"
)

// The active bar is package-global so the logger callbacks can clear and
// repaint it around every log line.
var (
	globalActiveProgressBar *ProgressBar
	progressBarMu           sync.Mutex
)

// SetActiveProgressBar installs pb as the bar the logger coordinates with.
// Passing nil detaches the log callbacks again.
func SetActiveProgressBar(pb *ProgressBar) {
	progressBarMu.Lock()
	defer progressBarMu.Unlock()
	globalActiveProgressBar = pb
	if pb != nil && pb.IsTerminal() {
		utils.RegisterLogCallbacks(pb.MoveForLog, pb.ShowAfterLog)
	} else {
		utils.UnregisterLogCallbacks()
	}
}

// GetActiveProgressBar returns the currently installed bar, if any.
func GetActiveProgressBar() *ProgressBar {
	progressBarMu.Lock()
	defer progressBarMu.Unlock()
	return globalActiveProgressBar
}

// ProgressBar renders a single-line spinner and percentage bar on stderr.
// On non-terminal outputs it stays silent; on terminals it repaints itself
// after every coordinated log line.
type ProgressBar struct {
	total         int
	current       int
	width         int
	refresh       time.Duration
	startTime     time.Time
	mu            sync.Mutex
	done          chan struct{}
	writer        io.Writer
	isActive      bool
	spinner       int
	spinnerChars  []string
	prefix        string
	suffix        string
	isTerminal    bool
	renderPaused  bool
	outputControl chan struct{}
}

func NewProgressBar(total int, width int) *ProgressBar {
	return &ProgressBar{
		total:         total,
		width:         width,
		refresh:       250 * time.Millisecond,
		done:          make(chan struct{}),
		writer:        os.Stderr,
		spinnerChars:  []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		isTerminal:    utils.IsTerminal(os.Stderr),
		outputControl: make(chan struct{}, 1),
	}
}

// Start activates the bar, installs it as the global active bar and begins
// the periodic refresh loop.
func (pb *ProgressBar) Start() {
	pb.mu.Lock()
	if pb.isActive {
		pb.mu.Unlock()
		return
	}
	pb.startTime = time.Now()
	pb.isActive = true
	pb.mu.Unlock()

	SetActiveProgressBar(pb)
	GetTerminalController().SetProgressBarActive(true)

	if !pb.isTerminal {
		return
	}
	go pb.outputManager()
	go pb.refreshLoop()
	pb.requestRender()
}

func (pb *ProgressBar) refreshLoop() {
	ticker := time.NewTicker(pb.refresh)
	defer ticker.Stop()
	for {
		select {
		case <-pb.done:
			return
		case <-ticker.C:
			pb.requestRender()
		}
	}
}

// outputManager serializes all renders through a single goroutine so ticker
// refreshes and explicit updates never interleave writes.
func (pb *ProgressBar) outputManager() {
	for {
		select {
		case <-pb.done:
			return
		case <-pb.outputControl:
			pb.mu.Lock()
			shouldRender := pb.isActive && !pb.renderPaused && pb.isTerminal
			pb.mu.Unlock()
			if shouldRender {
				pb.actualRender()
			}
		}
	}
}

func (pb *ProgressBar) requestRender() {
	pb.mu.Lock()
	wantRender := pb.isActive && !pb.renderPaused && pb.isTerminal
	pb.mu.Unlock()
	if !wantRender {
		return
	}
	select {
	case pb.outputControl <- struct{}{}:
	default:
		// A render is already pending.
	}
}

// Stop deactivates the bar, detaches it from the logger and clears its line.
func (pb *ProgressBar) Stop() {
	pb.mu.Lock()
	if !pb.isActive {
		pb.mu.Unlock()
		return
	}
	pb.isActive = false
	select {
	case <-pb.done:
	default:
		close(pb.done)
	}
	pb.mu.Unlock()

	utils.UnregisterLogCallbacks()
	GetTerminalController().SetProgressBarActive(false)

	if pb.isTerminal {
		pb.clearBar()
	}

	progressBarMu.Lock()
	if globalActiveProgressBar == pb {
		globalActiveProgressBar = nil
	}
	progressBarMu.Unlock()
}

// Update records the absolute progress count.
func (pb *ProgressBar) Update(current int) {
	pb.mu.Lock()
	pb.current = current
	pb.mu.Unlock()
	pb.requestRender()
}

func (pb *ProgressBar) SetPrefix(prefix string) {
	pb.mu.Lock()
	pb.prefix = prefix
	pb.mu.Unlock()
}

func (pb *ProgressBar) SetSuffix(suffix string) {
	pb.mu.Lock()
	pb.suffix = suffix
	pb.mu.Unlock()
}

// SetTotalAndReset starts a new phase: new total, zeroed count, restarted
// ETA clock.
func (pb *ProgressBar) SetTotalAndReset(newTotal int) {
	pb.mu.Lock()
	pb.total = newTotal
	pb.current = 0
	pb.startTime = time.Now()
	pb.mu.Unlock()
	pb.requestRender()
}

func (pb *ProgressBar) actualRender() {
	pb.mu.Lock()
	if !pb.isActive || !pb.isTerminal || pb.renderPaused {
		pb.mu.Unlock()
		return
	}

	pb.spinner = (pb.spinner + 1) % len(pb.spinnerChars)

	percent := 0.0
	if pb.total > 0 {
		percent = float64(pb.current) / float64(pb.total) * 100
	}

	elapsed := time.Since(pb.startTime)
	var etaStr string
	switch {
	case pb.current > 0 && pb.current < pb.total:
		eta := time.Duration(float64(elapsed) * float64(pb.total-pb.current) / float64(pb.current))
		etaStr = formatDuration(eta)
	case pb.total > 0 && pb.current >= pb.total:
		etaStr = "Done"
	default:
		etaStr = "N/A"
	}

	completedWidth := 0
	if pb.total > 0 {
		completedWidth = int(float64(pb.width) * float64(pb.current) / float64(pb.total))
	}
	if completedWidth > pb.width {
		completedWidth = pb.width
	}
	if completedWidth < 0 {
		completedWidth = 0
	}
	bar := strings.Repeat("█", completedWidth) + strings.Repeat("░", pb.width-completedWidth)

	status := fmt.Sprintf("%s%s [%s] %d/%d (%.2f%%) | Elapsed: %s | ETA: %s %s",
		pb.prefix,
		pb.spinnerChars[pb.spinner],
		bar,
		pb.current, pb.total,
		percent,
		formatDuration(elapsed),
		etaStr,
		pb.suffix,
	)
	pb.mu.Unlock()

	tc := GetTerminalController()
	tc.BeginOutput()
	fmt.Fprint(pb.writer, "\033[2K\r"+status)
	tc.EndOutput()
}

// MoveForLog is called by the logger before it prints a line. It pauses
// rendering and clears the bar's line so the log does not mix with it.
func (pb *ProgressBar) MoveForLog() {
	pb.mu.Lock()
	activeTerminal := pb.isActive && pb.isTerminal
	pb.renderPaused = true
	pb.mu.Unlock()

	if !activeTerminal {
		return
	}
	select {
	case <-pb.outputControl:
	default:
	}
	tc := GetTerminalController()
	tc.BeginOutput()
	fmt.Fprint(pb.writer, "\033[2K\r")
	tc.EndOutput()
}

// ShowAfterLog is called by the logger after it printed a line. It resumes
// rendering and repaints the bar immediately.
func (pb *ProgressBar) ShowAfterLog() {
	pb.mu.Lock()
	wasPaused := pb.renderPaused
	activeTerminal := pb.isActive && pb.isTerminal
	pb.renderPaused = false
	pb.mu.Unlock()

	if wasPaused && activeTerminal {
		pb.requestRender()
	}
}

func (pb *ProgressBar) clearBar() {
	tc := GetTerminalController()
	tc.BeginOutput()
	fmt.Fprint(pb.writer, "\033[2K\r")
	tc.EndOutput()
}

func (pb *ProgressBar) IsTerminal() bool {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	return pb.isTerminal
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	s := d.Seconds()
	if s < 0 {
		s = 0
	}
	if s < 60 {
		return fmt.Sprintf("%.0fs", s)
	}
	m := int(s/60) % 60
	h := int(s / 3600)
	remaining := int(s) % 60
	if h < 1 {
		return fmt.Sprintf("%dm%02ds", m, remaining)
	}
	return fmt.Sprintf("%dh%02dm%02ds", h, m, remaining)
}
