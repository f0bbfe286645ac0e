package lantern

import (
	"fmt"
	"os"
)

// warnf prints a warning to stderr. Used for recoverable display gaps
// (missing images, skipped draws) that should be visible during a session
// without interrupting it.
func warnf(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, "[lantern] warning: "+format+"\n", args...)
}

// logf prints an informational message to stderr.
func logf(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, "[lantern] "+format+"\n", args...)
}
