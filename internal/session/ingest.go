package session

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// Upload is one named payload submitted for ingestion.
type Upload struct {
	Name string
	Data []byte
}

// Ingest creates a new session and persists each payload under it.
//
// Per-file problems — an unusable filename or a write failure — are
// logged and the file is omitted from the returned list; they never
// abort the batch. Duplicate names within one call are last-write-wins.
// An empty input yields an empty session.
func (s *Store) Ingest(uploads []Upload) (string, []string, error) {
	id, err := s.Create()
	if err != nil {
		return "", nil, err
	}
	dir := filepath.Join(s.root, id)

	written := make([]string, 0, len(uploads))
	for _, up := range uploads {
		if !ValidFilename(up.Name) {
			log.Warn().Str("session_id", id).Str("filename", up.Name).Msg("Rejected unsafe filename")
			continue
		}
		if err := os.WriteFile(filepath.Join(dir, up.Name), up.Data, 0o644); err != nil {
			log.Warn().Err(err).Str("session_id", id).Str("filename", up.Name).Msg("Failed to write upload")
			continue
		}
		written = append(written, up.Name)
	}

	log.Info().
		Str("session_id", id).
		Int("received", len(uploads)).
		Int("written", len(written)).
		Msg("Session ingested")
	return id, written, nil
}
