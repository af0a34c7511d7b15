// Package cmdcli implements the basic record subcommands of the 2fa
// tool.
package cmdcli

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/creachadair/command"
	"github.com/creachadair/flax"
	"github.com/creachadair/mds/value"
	"github.com/creachadair/twofer/clipboard"
	"github.com/creachadair/twofer/cmd/2fa/config"
	"github.com/creachadair/twofer/keytext"
	"github.com/creachadair/twofer/otpauth"
	"github.com/creachadair/twofer/tfdb"
	"github.com/creachadair/twofer/tflib"
	"golang.org/x/term"
)

var Commands = []*command.C{
	{
		Name:     "list",
		Usage:    "[query]",
		Help:     "List the credentials in the database.",
		SetFlags: command.Flags(flax.MustBind, &listFlags),
		Run:      command.Adapt(runList),
	},
	{
		Name:     "code",
		Usage:    "<query>",
		Help:     "Print the current code for the specified query.",
		SetFlags: command.Flags(flax.MustBind, &codeFlags),
		Run:      command.Adapt(runCode),
	},
	{
		Name:     "copy",
		Usage:    "<query>",
		Help:     "Copy the current code for the specified query to the clipboard.",
		SetFlags: command.Flags(flax.MustBind, &codeFlags),
		Run:      command.Adapt(runCode),
	},
	{
		Name:  "uri",
		Usage: "<query>",
		Help: `Print the provisioning URI for the specified query.

The URI is in otpauth:// format, suitable for rendering as a QR
code and importing into an authenticator app.`,
		Run: command.Adapt(runURI),
	},
	{
		Name:     "add",
		Usage:    "<label>",
		Help:     "Add a new credential from a base32 setup secret.",
		SetFlags: command.Flags(flax.MustBind, &addFlags),
		Run:      command.Adapt(runAdd),
	},
	{
		Name:  "edit",
		Usage: "<query>",
		Help:  "Edit the record matching the specified query.",
		Run:   command.Adapt(runEdit),
	},
	{
		Name:  "archive",
		Usage: "<query>",
		Help:  "Archive the specified record.",
		Run:   command.Adapt(runArchive),
	},
	{
		Name:  "unarchive",
		Usage: "<query>",
		Help:  "Unarchive the specified record.",
		Run:   command.Adapt(runArchive),
	},
	watchCommand,
}

var listFlags struct {
	Arch  bool `flag:"a,Include archived entries in the output"`
	NArch bool `flag:"n,Exclude unarchived entries from the output"`
}

// runList implements the "list" subcommand.
func runList(env *command.Env, optQuery ...string) error {
	var query string // empty: everything
	if len(optQuery) > 1 {
		return env.Usagef("extra arguments after query: %q", optQuery[1:])
	} else if len(optQuery) == 1 {
		query = optQuery[0]
	}

	s, err := config.LoadDB(env)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 4, 0, 1, ' ', 0)
	for _, r := range tflib.FindRecords(s.DB(), query) {
		if r.Record.Archived {
			if !(listFlags.Arch || listFlags.NArch) {
				continue
			}
		} else if listFlags.NArch {
			continue
		}
		tag := value.Cond(r.Record.Archived, "*", "-")
		title := r.Record.Title
		if title == "" {
			title = r.Record.Issuer
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Label, tag, title)
	}
	return tw.Flush()
}

var codeFlags struct {
	Remaining bool `flag:"r,Also print the remaining validity of the code"`
}

// runCode implements the "code" and "copy" subcommands.
func runCode(env *command.Env, query string) error {
	s, err := config.LoadDB(env)
	if err != nil {
		return err
	}
	res, err := tflib.FindRecord(s.DB(), query, false)
	if err != nil {
		return err
	}
	if res.Record.OTP == nil {
		return fmt.Errorf("record %q: %w", res.Label, tflib.ErrNoOTP)
	}

	var code string
	if strings.EqualFold(res.Record.OTP.Type, "hotp") {
		// Advancing the counter modifies the record, so the database must
		// be written back even though nothing else changed.
		code, err = tflib.NextHOTP(res.Record)
		if err != nil {
			return err
		}
		if err := config.SaveDB(env, s); err != nil {
			return err
		}
	} else if code, err = tflib.Code(res.Record, time.Now()); err != nil {
		return err
	}

	if env.Command.Name == "copy" {
		if err := clipboard.WriteString(code); err != nil {
			return fmt.Errorf("copying code: %w", err)
		}
		fmt.Fprintf(env, "Copied code for %q\n", res.Label)
		return nil
	}
	if term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Print(code)
		if codeFlags.Remaining && !strings.EqualFold(res.Record.OTP.Type, "hotp") {
			if left, err := tflib.TimeRemaining(res.Record, time.Now()); err == nil {
				fmt.Printf(" (valid %ds)", int(left/time.Second))
			}
		}
		fmt.Println()
	} else {
		fmt.Print(code) // no newline when piped, so scripts get the bare code
	}
	return nil
}

// runURI implements the "uri" subcommand.
func runURI(env *command.Env, query string) error {
	s, err := config.LoadDB(env)
	if err != nil {
		return err
	}
	res, err := tflib.FindRecord(s.DB(), query, true)
	if err != nil {
		return err
	}
	if res.Record.OTP == nil {
		return fmt.Errorf("record %q: %w", res.Label, tflib.ErrNoOTP)
	}
	fmt.Println(res.Record.OTP.String())
	return nil
}

var addFlags struct {
	Issuer  string `flag:"issuer,Issuer name for the new credential"`
	Account string `flag:"account,Account name for the new credential"`
	Title   string `flag:"title,Human-readable title for the new record"`
	Algo    string `flag:"algorithm,default=SHA1,Hash algorithm (SHA1/SHA256/SHA512)"`
	Digits  int    `flag:"digits,default=6,Number of code digits (6-8)"`
	Period  int    `flag:"period,default=30,Time step in seconds"`
	HOTP    bool   `flag:"hotp,Create a counter-based (HOTP) credential"`
}

// runAdd implements the "add" subcommand.
func runAdd(env *command.Env, label string) error {
	s, err := config.LoadDB(env)
	if err != nil {
		return err
	}
	db := s.DB()
	if _, ok := db.Records[label]; ok {
		return fmt.Errorf("label %q already exists", label)
	}

	secret, err := tflib.GetPassphrase("Setup secret (base32): ")
	if err != nil {
		return err
	}
	raw, err := keytext.Decode(secret)
	if err != nil {
		return err
	}
	u := otpauth.FromSecret(raw, addFlags.Account, addFlags.Issuer)
	u.Algorithm = strings.ToUpper(addFlags.Algo)
	u.Digits = addFlags.Digits
	if addFlags.HOTP {
		u.Type = "hotp"
	} else {
		u.Period = addFlags.Period
	}
	rec := &tfdb.Record{
		Title:   addFlags.Title,
		Issuer:  addFlags.Issuer,
		Account: addFlags.Account,
		OTP:     u,
	}

	// Generate a code to verify the settings are usable before storing.
	if addFlags.HOTP {
		probe := *rec // do not advance the real counter
		_, err = tflib.NextHOTP(&probe)
	} else {
		_, err = tflib.Code(rec, time.Now())
	}
	if err != nil {
		return fmt.Errorf("invalid credential settings: %w", err)
	}

	if db.Records == nil {
		db.Records = make(map[string]*tfdb.Record)
	}
	db.Records[label] = rec
	return config.SaveDB(env, s)
}

// runEdit implements the "edit" subcommand.
func runEdit(env *command.Env, query string) error {
	s, err := config.LoadDB(env)
	if err != nil {
		return err
	}
	res, err := tflib.FindRecord(s.DB(), query, true)
	if err != nil {
		return err
	}
	repl, err := tflib.Edit(env.Context(), res.Record)
	if errors.Is(err, tflib.ErrNoChange) {
		fmt.Fprintln(env, "No change")
		return nil
	} else if err != nil {
		return err
	}
	s.DB().Records[res.Label] = repl
	return config.SaveDB(env, s)
}

// runArchive implements the "archive" and "unarchive" subcommands.
func runArchive(env *command.Env, query string) error {
	doArchive := env.Command.Name == "archive"

	s, err := config.LoadDB(env)
	if err != nil {
		return err
	}
	res, err := tflib.FindRecord(s.DB(), query, !doArchive)
	if err != nil {
		return err
	} else if res.Record.Archived == doArchive {
		return fmt.Errorf("record is already %sd", env.Command.Name)
	}
	res.Record.Archived = doArchive
	return config.SaveDB(env, s)
}
