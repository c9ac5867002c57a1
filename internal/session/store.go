// Package session owns the per-batch storage namespace.
//
// Every uploaded batch lives in its own directory directly under the
// configured root, keyed by a generated identifier. The directory is the
// unit of isolation and of eventual cleanup: no two sessions share a
// location, and the reaper removes the whole directory once distribution
// has completed.
//
// Concurrent requests against two different session identifiers never
// contend. Concurrent requests against the same identifier are a caller
// error — they can race on file writes and deletes and are not
// serialized here.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrSessionNotFound is returned when a session identifier is unknown or
// its storage directory no longer exists.
var ErrSessionNotFound = errors.New("session not found")

// Store allocates and resolves session directories under a fixed root.
type Store struct {
	root string
}

// NewStore returns a Store rooted at root, creating it if necessary.
func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root %s: %w", root, err)
	}
	return &Store{root: root}, nil
}

// Create allocates a fresh session identifier and its empty directory.
// A storage failure here is fatal and surfaced to the caller.
func (s *Store) Create() (string, error) {
	id := uuid.NewString()
	dir := filepath.Join(s.root, id)
	if err := os.Mkdir(dir, 0o755); err != nil {
		return "", fmt.Errorf("create session directory: %w", err)
	}
	log.Debug().Str("session_id", id).Str("dir", dir).Msg("Session created")
	return id, nil
}

// Resolve returns the storage directory for id, or ErrSessionNotFound if
// the identifier is malformed, unknown, or its directory is gone.
func (s *Store) Resolve(id string) (string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	dir := filepath.Join(s.root, id)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return dir, nil
}

// Files returns the sorted member filenames of the session.
func (s *Store) Files(id string) ([]string, error) {
	dir, err := s.Resolve(id)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list session %s: %w", id, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// ReadFile returns the bytes of one session member, for preview serving.
func (s *Store) ReadFile(id, name string) ([]byte, error) {
	dir, err := s.Resolve(id)
	if err != nil {
		return nil, err
	}
	if !ValidFilename(name) {
		return nil, fmt.Errorf("invalid filename %q", name)
	}
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("read %s/%s: %w", id, name, err)
	}
	return data, nil
}

// Delete removes the session directory and everything under it.
// Callers treat failures as log-only; an orphaned directory does not
// affect in-flight requests.
func (s *Store) Delete(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err := os.RemoveAll(filepath.Join(s.root, id)); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

// Reap schedules best-effort deletion of the session after the current
// response has been produced. There is no completion signal; failures
// are logged only.
func (s *Store) Reap(id string) {
	go func() {
		if err := s.Delete(id); err != nil {
			log.Warn().Err(err).Str("session_id", id).Msg("Session cleanup failed")
			return
		}
		log.Info().Str("session_id", id).Msg("Session reaped")
	}()
}

// ValidFilename reports whether name is usable as a simple file name
// inside a session directory. Path separators and traversal segments
// are rejected before they ever reach the filesystem.
func ValidFilename(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, `/\`) {
		return false
	}
	return true
}
