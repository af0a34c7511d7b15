package tflib_test

import (
	crand "crypto/rand"
	"io"
	mrand "math/rand"
	"path/filepath"
	"strings"
	"testing"

	"github.com/creachadair/mds/mtest"
	gocmp "github.com/google/go-cmp/cmp"

	"github.com/creachadair/twofer/tfdb"
	"github.com/creachadair/twofer/tflib"
)

func testDB() *tfdb.DB {
	return &tfdb.DB{Records: map[string]*tfdb.Record{
		"mail": {
			Title:   "Example mail",
			Issuer:  "Example",
			Account: "alice@example.com",
			Tags:    []string{"work"},
		},
		"mail-backup": {
			Title:    "Example mail (recovery)",
			Issuer:   "Example",
			Account:  "alice+backup@example.com",
			Archived: true,
		},
		"bank": {
			Title:   "First Bank of Cheese",
			Issuer:  "FBoC",
			Account: "alice",
			Notes:   "Use the teller entrance.",
		},
		"forum": {
			Issuer:  "Mousehole",
			Account: "alice",
			Tags:    []string{"fun", "work"},
		},
	}}
}

func TestSaveDB(t *testing.T) {
	mtest.Swap[io.Reader](t, &crand.Reader, mrand.New(mrand.NewSource(20260829151104)))

	const testPass = "a walking shadow"
	dbPath := filepath.Join(t.TempDir(), "twofer.db")

	s, err := tfdb.New(testPass, testDB())
	if err != nil {
		t.Fatalf("New: unexpected error: %v", err)
	}
	if err := tflib.SaveDB(s, dbPath); err != nil {
		t.Fatalf("SaveDB: unexpected error: %v", err)
	}

	s2, err := tflib.OpenDBWithPassphrase(dbPath, testPass)
	if err != nil {
		t.Fatalf("OpenDBWithPassphrase: unexpected error: %v", err)
	}
	if diff := gocmp.Diff(s.DB(), s2.DB()); diff != "" {
		t.Errorf("Reloaded database (-want, +got):\n%s", diff)
	}

	if _, err := tflib.OpenDBWithPassphrase(dbPath, "out, out"); err == nil {
		t.Error("OpenDBWithPassphrase with wrong passphrase: got nil, want error")
	}
}

func TestMatchRecord(t *testing.T) {
	db := testDB()
	tests := []struct {
		query, label string
		want         tflib.MatchQuality
	}{
		{"mail", "mail", tflib.MatchLabel},
		{"example", "mail", tflib.MatchIssuer},
		{"EXAMPLE", "mail", tflib.MatchIssuer},
		{"alice@example.com", "mail", tflib.MatchAccount},
		{"MAIL", "mail", tflib.MatchSubstring}, // label substring, case-folded
		{"teller", "bank", tflib.MatchSubstring},
		{"cheese", "bank", tflib.MatchSubstring},
		{"fun", "forum", tflib.MatchSubstring}, // tag match
		{"xyzzy", "mail", tflib.MatchNone},
	}
	for _, tc := range tests {
		got := tflib.MatchRecord(tc.query, tc.label, db.Records[tc.label])
		if got != tc.want {
			t.Errorf("MatchRecord(%q, %q): got %v, want %v", tc.query, tc.label, got, tc.want)
		}
	}
}

func TestFindRecords(t *testing.T) {
	db := testDB()

	var labels []string
	for _, f := range tflib.FindRecords(db, "") {
		labels = append(labels, f.Label)
	}
	want := []string{"bank", "forum", "mail", "mail-backup"}
	if diff := gocmp.Diff(want, labels); diff != "" {
		t.Errorf("FindRecords(\"\") labels (-want, +got):\n%s", diff)
	}

	// A label match must sort ahead of substring matches on other
	// records, regardless of label order.
	found := tflib.FindRecords(db, "mail")
	if len(found) == 0 || found[0].Label != "mail" || found[0].Quality != tflib.MatchLabel {
		t.Errorf("FindRecords(mail): got %+v, want label match on mail first", found)
	}
}

func TestFindRecord(t *testing.T) {
	db := testDB()

	t.Run("Unique", func(t *testing.T) {
		f, err := tflib.FindRecord(db, "bank", false)
		if err != nil {
			t.Fatalf("FindRecord(bank): unexpected error: %v", err)
		}
		if f.Label != "bank" {
			t.Errorf("FindRecord(bank): got label %q, want bank", f.Label)
		}
	})

	t.Run("LabelBeatsSubstring", func(t *testing.T) {
		// "mail" is an exact label and a substring of "mail-backup"; the
		// exact match wins without ambiguity.
		f, err := tflib.FindRecord(db, "mail", true)
		if err != nil {
			t.Fatalf("FindRecord(mail): unexpected error: %v", err)
		}
		if f.Label != "mail" || f.Quality != tflib.MatchLabel {
			t.Errorf("FindRecord(mail): got (%q, %v), want (mail, %v)", f.Label, f.Quality, tflib.MatchLabel)
		}
	})

	t.Run("Ambiguous", func(t *testing.T) {
		// Both mail records have issuer "Example".
		_, err := tflib.FindRecord(db, "example", true)
		if err == nil || !strings.Contains(err.Error(), "ambiguous") {
			t.Errorf("FindRecord(example): got error %v, want ambiguity", err)
		}
	})

	t.Run("ArchiveSkipped", func(t *testing.T) {
		// With archived records excluded the issuer match is unique.
		f, err := tflib.FindRecord(db, "example", false)
		if err != nil {
			t.Fatalf("FindRecord(example): unexpected error: %v", err)
		}
		if f.Label != "mail" {
			t.Errorf("FindRecord(example): got label %q, want mail", f.Label)
		}
	})

	t.Run("NoMatch", func(t *testing.T) {
		if f, err := tflib.FindRecord(db, "xyzzy", true); err == nil {
			t.Errorf("FindRecord(xyzzy): got %+v, want error", f)
		}
	})
}
