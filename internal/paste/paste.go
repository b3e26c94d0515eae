// Package paste delivers text into the focused application: copy to the
// system clipboard, fire the platform paste chord, restore the clipboard.
package paste

import (
	"fmt"
	"runtime"

	"github.com/go-vgo/robotgo"
)

// Indirected for tests; robotgo talks to the real display server.
var (
	readClipboard  = robotgo.ReadAll
	writeClipboard = robotgo.WriteAll
	keyTap         = robotgo.KeyTap
)

// Paster pastes text into whichever window currently has focus.
type Paster struct {
	goos string
}

// New creates a Paster for the host platform.
func New() *Paster {
	return &Paster{goos: runtime.GOOS}
}

// Paste copies text to the clipboard and simulates the paste keystroke.
// The previous clipboard contents are restored best-effort. Empty text is
// a no-op.
func (p *Paster) Paste(text string) error {
	if text == "" {
		return nil
	}

	prev, _ := readClipboard()

	if err := writeClipboard(text); err != nil {
		return fmt.Errorf("paste: write to clipboard: %w", err)
	}

	mod := "ctrl"
	if p.goos == "darwin" {
		mod = "cmd"
	}
	if err := keyTap("v", mod); err != nil {
		return fmt.Errorf("paste: key tap %s+v: %w", mod, err)
	}

	// Restore previous clipboard (best effort)
	_ = writeClipboard(prev)

	return nil
}
