// Package syncer reconciles the language files of a catalog with their
// source-language file: same entries, same flags, translated descriptions.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/agentic-research/faultcat/api"
	"github.com/agentic-research/faultcat/internal/catalog"
	"github.com/agentic-research/faultcat/internal/codepath"
	"github.com/agentic-research/faultcat/internal/detect"
	"github.com/agentic-research/faultcat/internal/logger"
	"github.com/agentic-research/faultcat/internal/metrics"
	"github.com/agentic-research/faultcat/internal/translate"
)

// Options control a sync run.
type Options struct {
	// Force retranslates every non-empty, non-technical description.
	Force bool
	// DryRun computes changes without writing files.
	DryRun bool
	// Progress is called after each source file of SyncDir.
	Progress func(done, total int)
}

// Syncer applies source files to their sibling languages.
type Syncer struct {
	store   *catalog.Store
	tr      translate.Translator
	det     *detect.Detector
	changes *logger.ChangeLog
}

// New returns a syncer. changes may be nil.
func New(store *catalog.Store, tr translate.Translator, det *detect.Detector, changes *logger.ChangeLog) *Syncer {
	if changes == nil {
		changes = logger.NopChangeLog()
	}
	if det == nil {
		det = detect.Default()
	}
	return &Syncer{store: store, tr: tr, det: det, changes: changes}
}

// FileResult is the outcome of syncing one source file.
type FileResult struct {
	Source  string
	Lang    api.Language
	Targets []TargetResult
}

// Changes is the number of modifications across all targets.
func (r *FileResult) Changes() int {
	n := 0
	for _, t := range r.Targets {
		n += t.Changes()
	}
	return n
}

// Failed is the number of entries that could not be translated.
func (r *FileResult) Failed() int {
	n := 0
	for _, t := range r.Targets {
		n += t.Failed
	}
	return n
}

// SyncFile reconciles every other language of the source file name.
func (s *Syncer) SyncFile(ctx context.Context, name string, opts Options) (*FileResult, error) {
	p, srcLang, err := codepath.Parse(name)
	if err != nil {
		return nil, err
	}
	src, err := s.store.Read(name)
	if err != nil {
		return nil, fmt.Errorf("load source: %w", err)
	}

	res := &FileResult{Source: name, Lang: srcLang}
	for _, dst := range srcLang.Others() {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		tr, err := s.syncTarget(ctx, src, srcLang, p, filepath.Dir(name), dst, opts)
		res.Targets = append(res.Targets, tr)
		if err != nil {
			return res, err
		}
	}
	return res, nil
}

// SyncTo reconciles a single target language of the source file name.
func (s *Syncer) SyncTo(ctx context.Context, name string, dst api.Language, opts Options) (TargetResult, error) {
	p, srcLang, err := codepath.Parse(name)
	if err != nil {
		return TargetResult{Lang: dst}, err
	}
	if dst == srcLang {
		return TargetResult{Lang: dst}, fmt.Errorf("%s: target language equals source", name)
	}
	src, err := s.store.Read(name)
	if err != nil {
		return TargetResult{Lang: dst}, fmt.Errorf("load source: %w", err)
	}
	return s.syncTarget(ctx, src, srcLang, p, filepath.Dir(name), dst, opts)
}

func (s *Syncer) syncTarget(ctx context.Context, src *api.Document, srcLang api.Language, p codepath.Path, dir string, dst api.Language, opts Options) (TargetResult, error) {
	name := filepath.Join(dir, p.Filename(dst))
	res := TargetResult{Lang: dst, File: name}
	lg := log.With().Str("file", name).Str("lang", string(dst)).Logger()

	target, err := s.store.Read(name)
	switch {
	case err == nil:
	case errors.Is(err, catalog.ErrNotFound):
		target = catalog.NewDocument(p, dst)
		res.Created = true
		lg.Info().Msg("creating missing target")
	default:
		// An unreadable target is rebuilt from the source.
		lg.Warn().Err(err).Msg("unreadable target, recreating")
		target = catalog.NewDocument(p, dst)
		res.Created = true
	}

	r := &reconciler{
		syncer: s,
		src:    src,
		target: target,
		from:   srcLang,
		to:     dst,
		file:   name,
		force:  opts.Force,
		dryRun: opts.DryRun,
		result: &res,
	}
	if err := r.run(ctx); err != nil {
		return res, err
	}

	if res.Changes() == 0 && !res.Created {
		lg.Debug().Msg("target up to date")
		return res, nil
	}
	if opts.DryRun {
		return res, nil
	}
	if err := s.store.Write(name, target); err != nil {
		return res, fmt.Errorf("save %s: %w", name, err)
	}
	res.Written = true
	metrics.FilesWrittenTotal.WithLabelValues("sync").Inc()
	lg.Info().Int("changes", res.Changes()).Msg("target updated")
	return res, nil
}

// Summary aggregates a SyncDir run.
type Summary struct {
	Files     int
	Succeeded int
	Failed    int
	Changes   int
	Results   []*FileResult
	Errors    []error
}

// SyncDir syncs every file of the source language, one after another.
// A file that fails is logged and counted; the run continues.
func (s *Syncer) SyncDir(ctx context.Context, src api.Language, opts Options) (*Summary, error) {
	files, err := s.store.Files(src)
	if err != nil {
		return nil, err
	}
	sum := &Summary{Files: len(files)}
	for i, name := range files {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		res, err := s.SyncFile(ctx, name, opts)
		if res != nil {
			sum.Results = append(sum.Results, res)
			sum.Changes += res.Changes()
		}
		switch {
		case err != nil && ctx.Err() != nil:
			return sum, ctx.Err()
		case err != nil:
			sum.Failed++
			sum.Errors = append(sum.Errors, fmt.Errorf("%s: %w", name, err))
			log.Error().Err(err).Str("file", name).Msg("sync failed")
		case res.Failed() > 0:
			sum.Failed++
			sum.Errors = append(sum.Errors, fmt.Errorf("%s: %d entries not translated", name, res.Failed()))
		default:
			sum.Succeeded++
		}
		if opts.Progress != nil {
			opts.Progress(i+1, len(files))
		}
	}
	return sum, nil
}
