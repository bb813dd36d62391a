package tui

import (
	"errors"
	"os"

	"github.com/mattn/go-isatty"
)

// ErrInteractiveDisabled is returned by prompts when PSTACK_NON_INTERACTIVE is set or there is no terminal
var ErrInteractiveDisabled = errors.New("interactive prompts are disabled")

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Interactive reports whether prompts and full screen views may be shown.
// Both stdin and stdout must be terminals and /dev/tty must be openable.
func Interactive() bool {
	if os.Getenv("PSTACK_NON_INTERACTIVE") != "" || !isTerminal(os.Stdin) || !isTerminal(os.Stdout) {
		return false
	}
	tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err != nil {
		return false
	}
	_ = tty.Close()
	return true
}
