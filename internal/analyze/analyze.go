// Package analyze runs the per-session description stage: every eligible
// image is sent to the vision provider once, the structured answer is
// parsed defensively, and one annotation record per file comes back.
//
// Files are processed strictly sequentially in sorted name order, so one
// batch holds at most one outbound provider call at a time. A per-file
// failure is folded into the result list as a sentinel record; only a
// missing session aborts the request. No retries.
package analyze

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/stock-submit/internal/batch"
	"github.com/fpang/stock-submit/internal/filehandler"
	"github.com/fpang/stock-submit/internal/jsonutil"
	"github.com/fpang/stock-submit/internal/metadata"
	"github.com/fpang/stock-submit/internal/session"
)

// providerRecord mirrors the JSON keys requested from the provider.
type providerRecord struct {
	Title       string `json:"Title"`
	Description string `json:"Description"`
	Keywords    string `json:"Keywords"`
	Category    string `json:"Category"`
}

// Analyzer orchestrates the description stage for one session.
type Analyzer struct {
	store       *session.Store
	callTimeout time.Duration
}

// New returns an Analyzer over the given store. callTimeout bounds each
// individual provider call.
func New(store *session.Store, callTimeout time.Duration) *Analyzer {
	return &Analyzer{store: store, callTimeout: callTimeout}
}

// Run describes every eligible image in the session, in sorted filename
// order. overrides maps filenames to caller-supplied context; absent
// keys mean no override. The result always holds exactly one record per
// eligible file — failures appear as sentinel records, never as dropped
// entries. Only session resolution can fail.
func (a *Analyzer) Run(ctx context.Context, sessionID string, captioner Captioner, overrides map[string]string) ([]metadata.Record, error) {
	dir, err := a.store.Resolve(sessionID)
	if err != nil {
		return nil, err
	}
	names, err := a.store.Files(sessionID)
	if err != nil {
		return nil, err
	}

	var eligible []string
	for _, name := range names {
		if filehandler.IsAnalyzableImage(name) {
			eligible = append(eligible, name)
		}
	}

	log.Info().
		Str("session_id", sessionID).
		Int("files", len(names)).
		Int("eligible", len(eligible)).
		Msg("Starting analysis")

	results := batch.Run(eligible,
		func(name string) string { return name },
		func(name string) (metadata.Record, error) {
			return a.analyzeOne(ctx, dir, name, captioner, overrides[name])
		})

	records := make([]metadata.Record, 0, len(results))
	failures := 0
	for _, r := range results {
		if r.Err != nil {
			log.Warn().Err(r.Err).Str("filename", r.Name).Msg("Analysis failed for file")
			records = append(records, metadata.Failure(r.Name, r.Err.Error()))
			failures++
			continue
		}
		records = append(records, r.Value)
	}

	log.Info().
		Str("session_id", sessionID).
		Int("succeeded", len(records)-failures).
		Int("failed", failures).
		Msg("Analysis complete")
	return records, nil
}

// analyzeOne runs the full per-file pipeline: load, prompt, call, parse.
func (a *Analyzer) analyzeOne(ctx context.Context, dir, name string, captioner Captioner, override string) (metadata.Record, error) {
	path := filepath.Join(dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return metadata.Record{}, fmt.Errorf("read image: %w", err)
	}

	// EXIF context is best-effort; plenty of images carry none.
	exif, err := filehandler.ExtractExifContext(path)
	if err != nil {
		log.Debug().Err(err).Str("filename", name).Msg("No EXIF context available")
		exif = nil
	}

	instruction := BuildPrompt(override, exif)

	callCtx := ctx
	if a.callTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, a.callTimeout)
		defer cancel()
	}

	text, err := captioner.Describe(callCtx, instruction, filehandler.MIMEType(name), data)
	if err != nil {
		return metadata.Record{}, err
	}

	parsed, err := jsonutil.ParseJSON[providerRecord](text)
	if err != nil {
		return metadata.Record{}, fmt.Errorf("parse provider response: %w", err)
	}

	return metadata.Record{
		Filename:    name,
		Title:       parsed.Title,
		Description: parsed.Description,
		Keywords:    parsed.Keywords,
		Category:    parsed.Category,
	}, nil
}
