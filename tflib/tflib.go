// Package tflib is a support library for the twofer command-line tool.
package tflib

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/creachadair/atomicfile"
	"github.com/creachadair/getpass"
	"github.com/creachadair/mds/slice"
	"github.com/creachadair/twofer/tfdb"
)

// OpenDB opens the database store at dbPath, prompting the user at the
// terminal for the passphrase.
func OpenDB(dbPath string) (*tfdb.Store, error) {
	pp, err := GetPassphrase("Passphrase: ")
	if err != nil {
		return nil, fmt.Errorf("read passphrase: %w", err)
	}
	return OpenDBWithPassphrase(dbPath, pp)
}

// OpenDBWithPassphrase opens the database store at dbPath using the
// provided access passphrase instead of prompting at the terminal.
func OpenDBWithPassphrase(dbPath, passphrase string) (*tfdb.Store, error) {
	f, err := os.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	defer f.Close()
	s, err := tfdb.Open(f, passphrase)
	if err != nil {
		return nil, fmt.Errorf("open database %q: %w", dbPath, err)
	}
	return s, nil
}

// SaveDB writes the specified database store to dbPath atomically.
func SaveDB(s *tfdb.Store, dbPath string) error {
	return atomicfile.Tx(dbPath, 0600, func(f io.Writer) error {
		_, err := s.WriteTo(f)
		return err
	})
}

// GetPassphrase prompts the user at the terminal for a passphrase with
// echo disabled. An empty passphrase is permitted; the caller must
// check for that case if an empty passphrase is not wanted.
func GetPassphrase(prompt string) (string, error) {
	passphrase, err := getpass.Prompt(prompt)
	if err != nil {
		return "", fmt.Errorf("read passphrase: %w", err)
	}
	return passphrase, nil
}

// ConfirmPassphrase prompts the user at the terminal for a passphrase
// with echo disabled, then prompts again for confirmation and reports
// an error if the two copies are not equal.
func ConfirmPassphrase(prompt string) (string, error) {
	passphrase, err := getpass.Prompt(prompt)
	if err != nil {
		return "", fmt.Errorf("read passphrase: %w", err)
	}
	confirm, err := getpass.Prompt("Confirm " + strings.ToLower(prompt))
	if err != nil {
		return "", fmt.Errorf("read confirmation: %w", err)
	}
	if confirm != passphrase {
		return "", errors.New("passphrases do not match")
	}
	return passphrase, nil
}

// MatchQuality indicates how good a match a query is for a record.
type MatchQuality int

const (
	// MatchLabel means the query is an exact match for the record label.
	MatchLabel MatchQuality = iota

	// MatchIssuer means the query is a case-insensitive match for the
	// record's issuer name.
	MatchIssuer

	// MatchAccount means the query is a case-insensitive match for the
	// record's account name.
	MatchAccount

	// MatchSubstring means the query is a case-insensitive substring
	// match for the record's label, title, or notes, or matches one of
	// its tags.
	MatchSubstring

	// MatchNone means the query does not match the record at all.
	MatchNone
)

// MatchRecord reports how good a match query is for the record with the
// given label.
func MatchRecord(query, label string, r *tfdb.Record) MatchQuality {
	if query == label {
		return MatchLabel
	}
	if r.Issuer != "" && strings.EqualFold(query, r.Issuer) {
		return MatchIssuer
	}
	if r.Account != "" && strings.EqualFold(query, r.Account) {
		return MatchAccount
	}
	sub := strings.ToLower(query)
	if strings.Contains(strings.ToLower(label), sub) ||
		strings.Contains(strings.ToLower(r.Title), sub) ||
		strings.Contains(strings.ToLower(r.Notes), sub) {
		return MatchSubstring
	}
	for _, tag := range r.Tags {
		if strings.EqualFold(query, tag) {
			return MatchSubstring
		}
	}
	return MatchNone
}

// A FoundRecord is a single result of a database search.
type FoundRecord struct {
	Label   string       // the label the record is stored under
	Quality MatchQuality // how the query matched the record
	Record  *tfdb.Record
}

// FindRecords returns all the records matching query, ordered from best
// to worst match quality and by label within each quality class.
// An empty query matches every record.
func FindRecords(db *tfdb.DB, query string) []FoundRecord {
	var out []FoundRecord
	for label, r := range db.Records {
		q := MatchRecord(query, label, r)
		if query == "" {
			q = MatchSubstring
		}
		if q == MatchNone {
			continue
		}
		out = append(out, FoundRecord{Label: label, Quality: q, Record: r})
	}
	slices.SortFunc(out, func(a, b FoundRecord) int {
		if a.Quality != b.Quality {
			return cmp.Compare(a.Quality, b.Quality)
		}
		return cmp.Compare(a.Label, b.Label)
	})
	return out
}

// FindRecord finds the unique record matching the specified query.
// An exact match for a label is preferred; otherwise issuer, account,
// and substring matches are tried in that order. An error is reported
// if the query matches no records, or more than one at the best
// quality. If all is true, all records are considered; otherwise
// archived records are skipped.
func FindRecord(db *tfdb.DB, query string, all bool) (FoundRecord, error) {
	found := FindRecords(db, query)
	if !all {
		found = slice.Partition(found, func(f FoundRecord) bool {
			return !f.Record.Archived
		})
	}
	if len(found) == 0 {
		return FoundRecord{}, fmt.Errorf("no matches for %q", query)
	}
	if len(found) == 1 || found[1].Quality > found[0].Quality {
		return found[0], nil
	}
	var labels []string
	for _, f := range found {
		if f.Quality == found[0].Quality {
			labels = append(labels, f.Label)
		}
	}
	return FoundRecord{}, fmt.Errorf("query %q is ambiguous (matches %s)", query, strings.Join(labels, ", "))
}
