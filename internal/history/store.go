// Package history persists per-user chat histories as full gob snapshots,
// one file per username.
package history

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lkarlsen/binchat/pkg/wire"
)

// ErrCorrupt reports a history file that exists but cannot be decoded. The
// caller proceeds with the fresh history returned alongside it.
var ErrCorrupt = errors.New("history: corrupt snapshot")

// Store reads and writes history snapshots under a fixed directory.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir. The directory is created on first use.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the directory holding the snapshot files.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) path(owner wire.User) string {
	return filepath.Join(s.dir, owner.Name+"_history.gob")
}

// Load returns the persisted history for owner. A missing file yields a fresh
// empty history which is persisted immediately; a file that fails to decode
// yields a fresh empty history together with ErrCorrupt, leaving the file
// untouched until the next append overwrites it.
func (s *Store) Load(owner wire.User) (*wire.ChatHistory, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("history: create dir %q: %w", s.dir, err)
	}

	f, err := os.Open(s.path(owner))
	if errors.Is(err, os.ErrNotExist) {
		fresh := wire.NewChatHistory(owner)
		if err := s.Save(fresh); err != nil {
			return nil, err
		}
		return fresh, nil
	}
	if err != nil {
		return nil, fmt.Errorf("history: open snapshot for %s: %w", owner, err)
	}
	defer f.Close()

	hist := new(wire.ChatHistory)
	if err := gob.NewDecoder(f).Decode(hist); err != nil {
		return wire.NewChatHistory(owner), fmt.Errorf("%w for %s: %v", ErrCorrupt, owner, err)
	}
	return hist, nil
}

// Save rewrites the owner's snapshot file with the full history. Every append
// goes through a whole-file rewrite.
func (s *Store) Save(hist *wire.ChatHistory) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("history: create dir %q: %w", s.dir, err)
	}

	f, err := os.Create(s.path(hist.Owner))
	if err != nil {
		return fmt.Errorf("history: create snapshot for %s: %w", hist.Owner, err)
	}

	if err := gob.NewEncoder(f).Encode(hist); err != nil {
		f.Close()
		return fmt.Errorf("history: encode snapshot for %s: %w", hist.Owner, err)
	}
	return f.Close()
}
