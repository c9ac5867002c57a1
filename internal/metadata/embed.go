package metadata

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/fpang/stock-submit/internal/batch"
	"github.com/fpang/stock-submit/internal/session"
)

// Embedder writes approved records into image files with exiftool.
type Embedder struct {
	exifTool string
}

// NewEmbedder returns an Embedder invoking the given exiftool binary.
func NewEmbedder(exifTool string) *Embedder {
	return &Embedder{exifTool: exifTool}
}

// EmbedResult aggregates one embedding batch.
type EmbedResult struct {
	SuccessCount int                `json:"successCount"`
	Errors       []batch.Diagnostic `json:"errors"`
}

// Embed writes each record's fields into its file under dir, one
// exiftool invocation per file, overwriting in place. A missing file or
// a failing invocation is recorded as a diagnostic and never stops the
// remaining records. Re-running with the same records sets the same
// field values again — tags are replaced, not accumulated.
func (e *Embedder) Embed(ctx context.Context, dir string, records []Record) EmbedResult {
	results := batch.Run(records,
		func(r Record) string { return r.Filename },
		func(r Record) (struct{}, error) {
			return struct{}{}, e.embedOne(ctx, dir, r)
		})

	succeeded, diags := batch.Split(results)
	log.Info().
		Int("succeeded", len(succeeded)).
		Int("failed", len(diags)).
		Msg("Metadata embedding complete")
	return EmbedResult{SuccessCount: len(succeeded), Errors: diags}
}

func (e *Embedder) embedOne(ctx context.Context, dir string, rec Record) error {
	// Record filenames come from the caller's JSON, not from the session
	// listing; a separator or dot-dot name must never leave dir.
	if !session.ValidFilename(rec.Filename) {
		return fmt.Errorf("invalid filename: %s", rec.Filename)
	}
	path := filepath.Join(dir, rec.Filename)
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("file not found: %s", rec.Filename)
	}

	// Title, description, and keywords go to both the generic fields and
	// the IPTC/XMP schema fields; stock agencies and DAM tools disagree
	// about which one they read.
	args := []string{
		"-overwrite_original",
		"-Title=" + rec.Title,
		"-Description=" + rec.Description,
		"-Keywords=" + rec.Keywords,
		"-Category=" + rec.Category,
		"-IPTC:Caption-Abstract=" + rec.Description,
		"-IPTC:Keywords=" + rec.Keywords,
		"-XMP:Title=" + rec.Title,
		"-XMP:Description=" + rec.Description,
		"-XMP:Subject=" + rec.Keywords,
		path,
	}

	cmd := exec.CommandContext(ctx, e.exifTool, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		diagnostic := strings.TrimSpace(string(output))
		if diagnostic == "" {
			diagnostic = err.Error()
		}
		return fmt.Errorf("exiftool failed for %s: %s", rec.Filename, diagnostic)
	}

	log.Debug().Str("filename", rec.Filename).Msg("Metadata embedded")
	return nil
}
