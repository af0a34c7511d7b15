// Program 2fa is a command-line two-factor authentication code
// generator.
package main

import (
	"os"

	"github.com/creachadair/command"
	"github.com/creachadair/flax"
	"github.com/creachadair/twofer/cmd/2fa/config"

	"github.com/creachadair/twofer/cmd/2fa/internal/cmdcli"
	"github.com/creachadair/twofer/cmd/2fa/internal/cmddb"
)

func main() {
	var flags struct {
		DBPath string `flag:"db,default=$TWOFER_DB,Database path (required)"`
	}
	root := &command.C{
		Name: command.ProgramName(),
		Help: `A command-line two-factor authentication code generator.

Two-factor secrets are stored in a database encrypted with a
passphrase provided by the user. Use --db to specify the database
path, or set the TWOFER_DB environment variable.`,

		SetFlags: command.Flags(flax.MustBind, &flags),

		Init: func(env *command.Env) error {
			env.Config = &config.Settings{DBPath: flags.DBPath}
			return nil
		},

		Commands: append(
			cmdcli.Commands,
			cmddb.Command,
			command.HelpCommand([]command.HelpTopic{{
				Name: "query",
				Help: `Syntax of query arguments.

A query is either the unique label assigned to a record, the name
of the issuer or account recorded on it, or a substring match for
the label, title, or notes of the record.

A query that matches multiple records will report an error listing
the candidate records that could be selected.`,
			}}),
			command.VersionCommand(),
		),
	}
	command.RunOrFail(root.NewEnv(nil).MergeFlags(true), os.Args[1:])
}
