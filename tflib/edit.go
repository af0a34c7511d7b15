package tflib

import (
	"bytes"
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/creachadair/mds/mdiff"
	"github.com/creachadair/mds/mstr"
	"golang.org/x/term"
	yaml "gopkg.in/yaml.v3"
)

var (
	// ErrNoChange is reported by Edit if the edited value did not change.
	ErrNoChange = errors.New("input was not changed")

	// ErrUserReject is reported by Edit if the user rejected the edits.
	ErrUserReject = errors.New("the user rejected the edits")
)

// Edit invokes an editor with the specified value rendered as YAML.
// The editor is selected by the EDITOR environment variable. When the
// editor exits, the user is shown a diff of their changes and prompted
// to confirm them. If they do, the result is unmarshaled into a new
// value, which is returned; otherwise an error is reported.
//
// If the edit did not change the input, Edit returns (value, ErrNoChange).
// If the user rejected the changes, Edit returns (value, ErrUserReject).
func Edit[T any](ctx context.Context, value T) (T, error) {
	var out T

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(3)
	if err := enc.Encode(value); err != nil {
		return out, fmt.Errorf("marshal value: %w", err)
	}

	// Use a temp directory rather than a temp file, so the name shown by
	// the editor does not have random nonce garbage in it.
	dir, err := os.MkdirTemp("", "tfedit*")
	if err != nil {
		return out, err
	}
	defer os.RemoveAll(dir)

	epath := filepath.Join(dir, "record.yaml")
	if err := os.WriteFile(epath, buf.Bytes(), 0600); err != nil {
		return out, err
	}

	name := cmp.Or(os.Getenv("EDITOR"), "vi")
	cmd := exec.CommandContext(ctx, name, "record.yaml")
	cmd.Dir = dir
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return out, fmt.Errorf("editor failed: %w", err)
	}

	edited, err := os.ReadFile(epath)
	if err != nil {
		return out, fmt.Errorf("read editor output: %w", err)
	}
	diff := mdiff.New(mstr.Lines(buf.String()), mstr.Lines(string(edited)))
	if len(diff.Chunks) == 0 {
		return value, ErrNoChange
	}

	// The files differ. Show the user the diff and ask whether to keep
	// it, reading input through a raw terminal attached to the tty.
	oldst, err := term.MakeRaw(int(os.Stdin.Fd()))
	if err != nil {
		return out, err
	}
	defer term.Restore(int(os.Stdin.Fd()), oldst)
	vt := term.NewTerminal(os.Stdin, "")

	diff.AddContext(3).Unify().Format(vt, mdiff.Unified, nil)

confirm:
	for {
		fmt.Fprint(vt, "▷ Keep changes? (y/n) ")
		ln, err := vt.ReadLine()
		if err != nil {
			return out, err
		}
		switch strings.ToLower(ln) {
		case "y", "yes":
			break confirm
		case "n", "no":
			return value, ErrUserReject
		default:
			fmt.Fprintln(vt, "** Please enter y(es) or n(o)")
		}
	}

	err = yaml.Unmarshal(edited, &out)
	return out, err
}
