// Package config contains shared configuration settings for 2fa
// subcommands.
package config

import (
	"errors"
	"fmt"

	"github.com/creachadair/command"
	"github.com/creachadair/twofer/tfdb"
	"github.com/creachadair/twofer/tflib"
)

// Settings are shared settings used by 2fa subcommands.
type Settings struct {
	DBPath string
}

// LoadDB opens the database specified by the DBPath setting, prompting
// for the passphrase. If the database does not exist, LoadDB reports an
// error.
func LoadDB(env *command.Env) (*tfdb.Store, error) {
	path := DBPath(env)
	if path == "" {
		return nil, errors.New("no database path specified (provide --db or set TWOFER_DB)")
	}
	return tflib.OpenDB(path)
}

// SaveDB saves the specified database to the DBPath.
func SaveDB(env *command.Env, s *tfdb.Store) error {
	if err := tflib.SaveDB(s, DBPath(env)); err != nil {
		return err
	}
	fmt.Fprintln(env, "<saved>")
	return nil
}

// DBPath returns the database path associated with env, or "".
func DBPath(env *command.Env) string {
	return env.Config.(*Settings).DBPath
}
