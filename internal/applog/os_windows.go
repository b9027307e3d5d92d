//go:build windows

package applog

import (
	"os"

	"golang.org/x/term"
)

// enableColorOutput checks if colorized output is possible. It does not
// probe the registry or toggle ENABLE_VIRTUAL_TERMINAL_PROCESSING: a hashing
// CLI's output is one line per file, not worth the extra
// golang.org/x/sys/windows surface.
func enableColorOutput(stream *os.File) bool {
	return term.IsTerminal(int(stream.Fd()))
}
