//go:build !windows

package applog

import (
	"os"

	"golang.org/x/term"
)

// enableColorOutput checks if colorized output is possible.
func enableColorOutput(stream *os.File) bool {
	return term.IsTerminal(int(stream.Fd()))
}
