// Package generate creates the language files a catalog is missing: targets
// translated from an existing sibling, and empty child files for expandable
// entries that open nothing.
package generate

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/agentic-research/faultcat/api"
	"github.com/agentic-research/faultcat/internal/catalog"
	"github.com/agentic-research/faultcat/internal/codepath"
	"github.com/agentic-research/faultcat/internal/metrics"
	"github.com/agentic-research/faultcat/internal/syncer"
)

// Missing describes one file set lacking some languages.
type Missing struct {
	Set    catalog.FileSet
	Source api.Language
	Langs  []api.Language
}

// SourceName is the file translations are made from.
func (m Missing) SourceName() string { return m.Set.Files[m.Source] }

// Targets are the files that will be created.
func (m Missing) Targets() []string {
	out := make([]string, len(m.Langs))
	for i, l := range m.Langs {
		out[i] = m.Set.Name(l)
	}
	return out
}

// FindMissing returns the sets with at least one absent language. The source
// is the first present language in canonical order.
func FindMissing(sets []catalog.FileSet) []Missing {
	var out []Missing
	for _, set := range sets {
		langs := set.Missing()
		if len(langs) == 0 {
			continue
		}
		src, ok := set.Reference()
		if !ok {
			continue
		}
		out = append(out, Missing{Set: set, Source: src, Langs: langs})
	}
	return out
}

// Result summarizes a Generate run.
type Result struct {
	Created []string
	Failed  int
	Errors  []error
}

// Generator writes missing files through a syncer, so generated targets get
// the same structure copy and translation checks as a sync.
type Generator struct {
	store *catalog.Store
	sync  *syncer.Syncer
}

// New returns a generator.
func New(store *catalog.Store, sync *syncer.Syncer) *Generator {
	return &Generator{store: store, sync: sync}
}

// Generate creates every target listed in missing. Failures are logged and
// counted; the run continues unless ctx is cancelled.
func (g *Generator) Generate(ctx context.Context, missing []Missing, progress func(done, total int)) (*Result, error) {
	res := &Result{}
	total := 0
	for _, m := range missing {
		total += len(m.Langs)
	}
	done := 0
	for _, m := range missing {
		for _, lang := range m.Langs {
			if err := ctx.Err(); err != nil {
				return res, err
			}
			tr, err := g.sync.SyncTo(ctx, m.SourceName(), lang, syncer.Options{})
			switch {
			case err != nil && ctx.Err() != nil:
				return res, ctx.Err()
			case err != nil:
				res.Failed++
				res.Errors = append(res.Errors, fmt.Errorf("%s: %w", m.Set.Name(lang), err))
				log.Error().Err(err).Str("file", m.Set.Name(lang)).Msg("generation failed")
			default:
				if tr.Written {
					res.Created = append(res.Created, tr.File)
				}
				if tr.Failed > 0 {
					res.Failed++
					res.Errors = append(res.Errors, fmt.Errorf("%s: %d entries not translated", tr.File, tr.Failed))
				}
			}
			done++
			if progress != nil {
				progress(done, total)
			}
		}
	}
	return res, nil
}

// ChildPlan is an empty child file set to create for an expandable entry.
type ChildPlan struct {
	Parent codepath.Path
	Index  int
	Path   codepath.Path
	Dir    string
	// from is the parent document the metadata is copied from.
	from *api.Document
}

// Names are the files the plan creates.
func (c ChildPlan) Names() []string {
	out := make([]string, len(api.Languages))
	for i, l := range api.Languages {
		out[i] = filepath.Join(c.Dir, c.Path.Filename(l))
	}
	return out
}

// FindMissingChildren lists expandable entries whose child file set does not
// exist anywhere in the store. The parent's reference language decides which
// entries are expandable.
func (g *Generator) FindMissingChildren(sets []catalog.FileSet) ([]ChildPlan, error) {
	present := make(map[codepath.Path]bool, len(sets))
	for _, set := range sets {
		present[set.Path] = true
	}
	var out []ChildPlan
	for _, set := range sets {
		ref, ok := set.Reference()
		if !ok || !set.Path.CanExpand() {
			continue
		}
		doc, err := g.store.Read(set.Files[ref])
		if err != nil {
			log.Warn().Err(err).Str("file", set.Files[ref]).Msg("skipping unreadable parent")
			continue
		}
		for i, e := range doc.FaultDetailList {
			if !e.IsExpandable {
				continue
			}
			child, err := set.Path.Child(i)
			if err != nil || present[child] {
				continue
			}
			present[child] = true
			out = append(out, ChildPlan{Parent: set.Path, Index: i, Path: child, Dir: set.Dir, from: doc})
		}
	}
	return out, nil
}

// CreateChildren writes an empty document in every language for each plan.
// Existing files are left alone.
func (g *Generator) CreateChildren(plans []ChildPlan) ([]string, error) {
	var created []string
	for _, plan := range plans {
		for _, lang := range api.Languages {
			name := filepath.Join(plan.Dir, plan.Path.Filename(lang))
			if g.store.Exists(name) {
				continue
			}
			doc := catalog.NewDocument(plan.Path, lang)
			if plan.from != nil && len(plan.from.LinkedVariable) > 0 {
				doc.LinkedVariable = append([]byte(nil), plan.from.LinkedVariable...)
			}
			if plan.from != nil && len(plan.from.Version) > 0 {
				doc.Version = append([]byte(nil), plan.from.Version...)
			}
			if err := g.store.Write(name, doc); err != nil {
				return created, fmt.Errorf("create %s: %w", name, err)
			}
			metrics.FilesWrittenTotal.WithLabelValues("generate").Inc()
			log.Info().Str("file", name).Str("parent", plan.Parent.Code(plan.Index)).Msg("empty child created")
			created = append(created, name)
		}
	}
	return created, nil
}
