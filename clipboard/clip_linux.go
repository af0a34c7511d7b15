package clipboard

import (
	"errors"
	"os"
	"os/exec"
	"strings"
)

// WriteString attempts to copy the given string to the system clipboard.
// Wayland sessions use wl-copy; X11 sessions fall back to xsel.
func WriteString(s string) error {
	var cmd *exec.Cmd
	switch {
	case os.Getenv("WAYLAND_DISPLAY") != "":
		cmd = exec.Command("wl-copy")
	case os.Getenv("DISPLAY") != "":
		cmd = exec.Command("xsel", "--clipboard")
	default:
		return errors.New("unable to copy to clipboard (no display)")
	}
	cmd.Stdin = strings.NewReader(s)
	return cmd.Run()
}
