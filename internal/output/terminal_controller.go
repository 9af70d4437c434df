package output

import (
	"fmt"
	"os"
	"sync"

	"github.com/rafabd1/Tendril/internal/utils"
)

// TerminalController serializes terminal writes between the logger and the
// progress bar so neither tears the other's line.
type TerminalController struct {
	mu             sync.Mutex
	outputMu       sync.Mutex
	isTerminal     bool
	hasProgressBar bool
}

var (
	terminalController *TerminalController
	once               sync.Once
)

func GetTerminalController() *TerminalController {
	once.Do(func() {
		terminalController = &TerminalController{
			isTerminal: utils.IsTerminal(os.Stderr),
		}
	})
	return terminalController
}

func (tc *TerminalController) BeginOutput() {
	tc.outputMu.Lock()
}

func (tc *TerminalController) EndOutput() {
	tc.outputMu.Unlock()
}

func (tc *TerminalController) SetProgressBarActive(active bool) {
	tc.mu.Lock()
	tc.hasProgressBar = active
	tc.mu.Unlock()
}

func (tc *TerminalController) HasProgressBar() bool {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return tc.hasProgressBar
}

/*
   Clears the current terminal line if output is to a terminal
*/
func (tc *TerminalController) ClearLine() {
	if tc.isTerminal {
		fmt.Fprint(os.Stderr, "\033[2K\r")
	}
}

/*
   Executes a function with exclusive access to the terminal
*/
func (tc *TerminalController) CoordinateOutput(fn func()) {
	tc.BeginOutput()
	defer tc.EndOutput()

	tc.ClearLine()
	fn()
}

func (tc *TerminalController) IsTerminal() bool {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return tc.isTerminal
}
