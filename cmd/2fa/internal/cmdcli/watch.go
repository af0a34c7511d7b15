package cmdcli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/creachadair/command"
	"github.com/creachadair/twofer/cmd/2fa/config"
	"github.com/creachadair/twofer/tflib"
	"golang.org/x/term"
)

var watchCommand = &command.C{
	Name:  "watch",
	Usage: "<query>",
	Help: `Continuously display the current code for the specified query.

The code is refreshed as time steps elapse, and the database is
reloaded automatically if its file changes. Interrupt (Ctrl-C) to
stop.`,
	Run: command.Adapt(runWatch),
}

// runWatch implements the "watch" subcommand.
func runWatch(env *command.Env, query string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("watch requires a terminal")
	}
	dbPath := config.DBPath(env)
	if dbPath == "" {
		return errors.New("no database path specified (provide --db or set TWOFER_DB)")
	}
	passphrase, err := tflib.GetPassphrase("Passphrase: ")
	if err != nil {
		return err
	}
	s, err := tflib.OpenDBWithPassphrase(dbPath, passphrase)
	if err != nil {
		return err
	}

	// Check the query resolves before starting the display loop.
	if _, err := tflib.FindRecord(s.DB(), query, false); err != nil {
		return err
	}

	w, err := tflib.NewDBWatcher(s, dbPath, passphrase)
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	ctx, cancel := signal.NotifyContext(env.Context(), os.Interrupt)
	defer cancel()
	go w.Run(ctx)

	tick := time.NewTicker(time.Second)
	defer tick.Stop()
	for {
		res, err := tflib.FindRecord(w.Store().DB(), query, false)
		if err != nil {
			return err
		}
		code, err := tflib.Code(res.Record, time.Now())
		if err != nil {
			return err
		}
		left, err := tflib.TimeRemaining(res.Record, time.Now())
		if err != nil {
			return err
		}
		fmt.Printf("\r%s  %s (%2ds) ", res.Label, code, int(left/time.Second))

		select {
		case <-ctx.Done():
			fmt.Println()
			return nil
		case <-tick.C:
		}
	}
}
