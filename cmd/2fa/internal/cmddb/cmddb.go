// Package cmddb implements the database maintenance subcommands of the
// 2fa tool.
package cmddb

import (
	"fmt"
	"os"

	"github.com/creachadair/command"
	"github.com/creachadair/flax"
	"github.com/creachadair/twofer/cmd/2fa/config"
	"github.com/creachadair/twofer/tfdb"
	"github.com/creachadair/twofer/tflib"
	yaml "gopkg.in/yaml.v3"
)

var Command = &command.C{
	Name: "db",
	Help: "Commands to manipulate a credential database.",

	Commands: []*command.C{
		{
			Name:  "create",
			Usage: "<db-path>",
			Help:  "Create a new empty database.",
			Run:   command.Adapt(runCreateDB),
		},
		{
			Name: "change-key",
			Help: "Change the access passphrase on the database.",
			Run:  command.Adapt(runChangeKey),
		},
		{
			Name: "export",
			Help: `Export the records of the database as YAML.

The output is written to stdout in PLAIN TEXT, including the
credential secrets. Handle it accordingly.`,
			Run: command.Adapt(runExport),
		},
		{
			Name:     "import",
			Usage:    "<yaml-path>",
			Help:     "Import records from a YAML file in the export format.",
			SetFlags: command.Flags(flax.MustBind, &importFlags),
			Run:      command.Adapt(runImport),
		},
	},
}

// runCreateDB implements the "db create" subcommand.
func runCreateDB(env *command.Env, dbPath string) error {
	if _, err := os.Stat(dbPath); err == nil {
		return fmt.Errorf("database %q already exists", dbPath)
	}
	passphrase, err := tflib.ConfirmPassphrase("New database passphrase: ")
	if err != nil {
		return err
	}
	s, err := tfdb.New(passphrase, nil)
	if err != nil {
		return fmt.Errorf("create database: %w", err)
	}
	if err := tflib.SaveDB(s, dbPath); err != nil {
		return err
	}
	fmt.Fprintf(env, "Created database %q\n", dbPath)
	return nil
}

// runChangeKey implements the "db change-key" subcommand.
func runChangeKey(env *command.Env) error {
	s, err := config.LoadDB(env)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	newpp, err := tflib.ConfirmPassphrase("New passphrase: ")
	if err != nil {
		return err
	}
	s2, err := tfdb.New(newpp, s.DB())
	if err != nil {
		return err
	}
	if err := config.SaveDB(env, s2); err != nil {
		return err
	}
	fmt.Fprintf(env, "Access key updated for %q\n", config.DBPath(env))
	return nil
}

// runExport implements the "db export" subcommand.
func runExport(env *command.Env) error {
	s, err := config.LoadDB(env)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(s.DB().Records)
}

var importFlags struct {
	Replace bool `flag:"f,Replace existing records with imported ones"`
}

// runImport implements the "db import" subcommand.
func runImport(env *command.Env, yamlPath string) error {
	data, err := os.ReadFile(yamlPath)
	if err != nil {
		return err
	}
	var recs map[string]*tfdb.Record
	if err := yaml.Unmarshal(data, &recs); err != nil {
		return fmt.Errorf("decode records: %w", err)
	}

	s, err := config.LoadDB(env)
	if err != nil {
		return err
	}
	db := s.DB()
	if db.Records == nil {
		db.Records = make(map[string]*tfdb.Record)
	}
	var added, replaced int
	for label, rec := range recs {
		if _, ok := db.Records[label]; ok {
			if !importFlags.Replace {
				return fmt.Errorf("label %q already exists (use -f to replace)", label)
			}
			replaced++
		} else {
			added++
		}
		db.Records[label] = rec
	}
	if err := config.SaveDB(env, s); err != nil {
		return err
	}
	fmt.Fprintf(env, "Imported %d records (%d replaced)\n", added+replaced, replaced)
	return nil
}
