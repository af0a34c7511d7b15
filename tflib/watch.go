package tflib

import (
	"context"
	"log"
	"os"
	"sync"

	"github.com/creachadair/twofer/tfdb"
	"github.com/fsnotify/fsnotify"
)

// A DBWatcher is a database store connected with a file path watcher,
// that reloads the store when the underlying file is modified.
type DBWatcher struct {
	path       string
	fw         *fsnotify.Watcher
	passphrase string

	μ         sync.Mutex
	store     *tfdb.Store
	hasUpdate bool
}

// NewDBWatcher creates a watcher that automatically reloads the
// specified store from its original path when that path is modified.
func NewDBWatcher(s *tfdb.Store, dbPath, passphrase string) (*DBWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &DBWatcher{path: dbPath, fw: w, passphrase: passphrase, store: s}, nil
}

// Store returns the current database store. If an update is available,
// Store tries to load it, but in case of error it falls back to the
// existing value.
func (w *DBWatcher) Store() *tfdb.Store {
	w.μ.Lock()
	defer w.μ.Unlock()

	for w.hasUpdate {
		f, err := os.Open(w.path)
		if err != nil {
			log.Printf("WARNING: Open database: %v (skipped)", err)
			w.hasUpdate = false // don't retry until it changes again
			break
		}
		defer f.Close()

		st, err := tfdb.Open(f, w.passphrase)
		if err != nil {
			log.Printf("WARNING: Load database: %v (skipped)", err)
			// N.B. Don't reset the flag; it might just be an incomplete update.
			break
		}
		log.Printf("Updated database %q", w.path)
		w.hasUpdate = false
		w.store = st
	}
	return w.store
}

// Run monitors for changes to the database path in w, and marks the
// store stale when the underlying file is modified. Run should be run
// in a separate goroutine. It exits when the watcher closes, or when
// ctx ends.
func (w *DBWatcher) Run(ctx context.Context) {
	w.fw.Add(w.path)
	defer w.fw.Close()

	for {
		select {
		case evt, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if evt.Op&fsnotify.Rename != 0 {
				log.Printf("Database %q has moved; stopping the watcher", w.path)
				return
			} else if evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Chmod) == 0 {
				continue // not relevant here
			}
			w.μ.Lock()
			w.hasUpdate = true // read by Store
			w.μ.Unlock()
		case e, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			log.Printf("WARNING: Error watching %q: %v", w.path, e)
		case <-ctx.Done():
			return
		}
	}
}
