// Package distribute uploads a session's files to the stock agency's
// FTP endpoint.
//
// One authenticated connection serves the whole batch. Failing to
// connect or log in is batch-fatal: nothing is attempted and the caller
// gets ErrConnectionFailed. Once connected, each eligible file is
// stored under its original name; a single transfer failure is recorded
// and the remaining files still go out.
package distribute

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rs/zerolog/log"

	"github.com/fpang/stock-submit/internal/batch"
	"github.com/fpang/stock-submit/internal/metadata"
	"github.com/fpang/stock-submit/internal/session"
)

// ErrConnectionFailed marks a connection- or login-level failure, as
// opposed to a per-file transfer failure.
var ErrConnectionFailed = errors.New("transfer connection failed")

// transferableExtensions is the agency's accepted submission formats:
// images, vector art, and video. Anything else was never a candidate
// and is skipped without a diagnostic.
var transferableExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".eps":  true,
	".mov":  true,
	".mp4":  true,
}

// Conn is the slice of the FTP client the uploader needs.
type Conn interface {
	Login(user, password string) error
	Stor(path string, r io.Reader) error
	Quit() error
}

// DialFunc opens a connection to the transfer endpoint.
type DialFunc func(ctx context.Context) (Conn, error)

// FTPDial returns a DialFunc for the given host:port.
func FTPDial(host string, timeout time.Duration) DialFunc {
	return func(ctx context.Context) (Conn, error) {
		return ftp.Dial(host, ftp.DialWithContext(ctx), ftp.DialWithTimeout(timeout))
	}
}

// Uploader transfers session files over one FTP connection per batch.
type Uploader struct {
	dial DialFunc
}

// NewUploader returns an Uploader using dial for connections.
func NewUploader(dial DialFunc) *Uploader {
	return &Uploader{dial: dial}
}

// UploadResult aggregates one distribution batch.
type UploadResult struct {
	Uploaded []string           `json:"uploaded"`
	Errors   []batch.Diagnostic `json:"errors"`
}

// Upload transfers every eligible record file under dir. Records whose
// files are missing locally, carry an unaccepted extension, or name a
// path outside dir are silently skipped. The error return is non-nil only for
// connection-level failures, in which case no transfer was attempted.
func (u *Uploader) Upload(ctx context.Context, dir string, records []metadata.Record, user, password string) (UploadResult, error) {
	var candidates []string
	for _, rec := range records {
		// Record filenames come from the caller's JSON; names that could
		// escape dir are never candidates, same as missing files.
		if !session.ValidFilename(rec.Filename) {
			continue
		}
		if !transferableExtensions[strings.ToLower(filepath.Ext(rec.Filename))] {
			continue
		}
		if _, err := os.Stat(filepath.Join(dir, rec.Filename)); err != nil {
			continue
		}
		candidates = append(candidates, rec.Filename)
	}

	conn, err := u.dial(ctx)
	if err != nil {
		return UploadResult{}, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	defer func() {
		if err := conn.Quit(); err != nil {
			log.Debug().Err(err).Msg("FTP quit failed")
		}
	}()

	if err := conn.Login(user, password); err != nil {
		return UploadResult{}, fmt.Errorf("%w: login: %v", ErrConnectionFailed, err)
	}

	log.Info().Int("candidates", len(candidates)).Msg("Starting FTP upload")

	results := batch.Run(candidates,
		func(name string) string { return name },
		func(name string) (string, error) {
			f, err := os.Open(filepath.Join(dir, name))
			if err != nil {
				return "", fmt.Errorf("open %s: %w", name, err)
			}
			defer f.Close()
			if err := conn.Stor(name, f); err != nil {
				return "", fmt.Errorf("store %s: %w", name, err)
			}
			return name, nil
		})

	uploaded, diags := batch.Split(results)
	log.Info().
		Int("uploaded", len(uploaded)).
		Int("failed", len(diags)).
		Msg("FTP upload complete")
	return UploadResult{Uploaded: uploaded, Errors: diags}, nil
}
