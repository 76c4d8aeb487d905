// Package navigator exposes a catalog as the column view an editor shows:
// one column per level from the top file down to the selected one, with
// selection, editing and search.
package navigator

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/agentic-research/faultcat/api"
	"github.com/agentic-research/faultcat/internal/catalog"
	"github.com/agentic-research/faultcat/internal/codepath"
	"github.com/agentic-research/faultcat/internal/logger"
	"github.com/agentic-research/faultcat/internal/metrics"
)

var (
	// ErrNotExpandable is returned when selecting an entry that opens nothing.
	ErrNotExpandable = errors.New("entry is not expandable")
	// ErrIndex is returned for an entry index outside the file.
	ErrIndex = errors.New("entry index out of range")
)

// Entry is one line of a column.
type Entry struct {
	Index       int    `json:"index"`
	Code        string `json:"code"`
	Description string `json:"description"`
	Expandable  bool   `json:"expandable"`
}

// Column is one catalog file rendered for display.
type Column struct {
	Path     codepath.Path `json:"-"`
	ID       string        `json:"path"`
	Filename string        `json:"filename"`
	Level    int           `json:"level"`
	// Selected is the entry opening the next column, or -1.
	Selected int     `json:"selected"`
	Entries  []Entry `json:"entries"`
}

// Navigator serves columns from a store. Edits are serialized.
type Navigator struct {
	store   *catalog.Store
	changes *logger.ChangeLog
	mu      sync.Mutex
}

// New returns a navigator. changes may be nil.
func New(store *catalog.Store, changes *logger.ChangeLog) *Navigator {
	if changes == nil {
		changes = logger.NopChangeLog()
	}
	return &Navigator{store: store, changes: changes}
}

// Store returns the underlying catalog store.
func (n *Navigator) Store() *catalog.Store { return n.store }

func (n *Navigator) column(p codepath.Path, lang api.Language) (Column, *api.Document, error) {
	doc, name, err := n.store.Load(p, lang)
	if err != nil {
		return Column{}, nil, err
	}
	col := Column{
		Path:     p,
		ID:       p.String(),
		Filename: name,
		Level:    p.Depth(),
		Selected: -1,
		Entries:  make([]Entry, len(doc.FaultDetailList)),
	}
	for i, e := range doc.FaultDetailList {
		col.Entries[i] = Entry{Index: i, Code: p.Code(i), Description: e.Description, Expandable: e.IsExpandable}
	}
	return col, doc, nil
}

// Columns loads one column per ancestor of current. A missing file stops the
// chain: the columns loaded so far are returned with an ErrNotFound error.
func (n *Navigator) Columns(current codepath.Path, lang api.Language) ([]Column, error) {
	chain := current.Ancestors()
	cols := make([]Column, 0, len(chain))
	for i, p := range chain {
		col, _, err := n.column(p, lang)
		if err != nil {
			return cols, err
		}
		if i+1 < len(chain) {
			col.Selected, _ = chain[i+1].Index()
		}
		cols = append(cols, col)
	}
	return cols, nil
}

// Select opens entry idx of p: the child path and its column. The child path
// is returned even when its file is missing.
func (n *Navigator) Select(p codepath.Path, idx int, lang api.Language) (codepath.Path, Column, error) {
	_, doc, err := n.column(p, lang)
	if err != nil {
		return codepath.Path{}, Column{}, err
	}
	if idx < 0 || idx >= len(doc.FaultDetailList) {
		return codepath.Path{}, Column{}, fmt.Errorf("%s[%d]: %w", p.Base(), idx, ErrIndex)
	}
	if !doc.FaultDetailList[idx].IsExpandable {
		return codepath.Path{}, Column{}, fmt.Errorf("%s: %w", p.Code(idx), ErrNotExpandable)
	}
	child, err := p.Child(idx)
	if err != nil {
		return codepath.Path{}, Column{}, err
	}
	col, _, err := n.column(child, lang)
	return child, col, err
}

// Edit describes a change to one entry. Nil fields are left alone.
type Edit struct {
	Path        codepath.Path
	Lang        api.Language
	Index       int
	Description *string
	Expandable  *bool
}

// EditResult lists the files written by an edit.
type EditResult struct {
	File       string   `json:"file"`
	Changed    bool     `json:"changed"`
	Propagated []string `json:"propagated,omitempty"`
}

// Apply updates one entry and saves the file. A flag change is copied to the
// sibling language files in the same directory so structure stays aligned.
func (n *Navigator) Apply(e Edit) (*EditResult, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	doc, name, err := n.store.Load(e.Path, e.Lang)
	if err != nil {
		return nil, err
	}
	if e.Index < 0 || e.Index >= len(doc.FaultDetailList) {
		return nil, fmt.Errorf("%s[%d]: %w", name, e.Index, ErrIndex)
	}
	entry := &doc.FaultDetailList[e.Index]
	res := &EditResult{File: name}

	if e.Description != nil && *e.Description != entry.Description {
		n.changes.Record(name, e.Index, "edit", entry.Description, *e.Description)
		entry.Description = *e.Description
		res.Changed = true
	}
	flagChanged := e.Expandable != nil && *e.Expandable != entry.IsExpandable
	if flagChanged {
		entry.IsExpandable = *e.Expandable
		res.Changed = true
	}
	if !res.Changed {
		return res, nil
	}
	if err := n.store.Write(name, doc); err != nil {
		return nil, err
	}
	metrics.FilesWrittenTotal.WithLabelValues("edit").Inc()
	log.Info().Str("file", name).Int("index", e.Index).Msg("entry edited")

	if !flagChanged {
		return res, nil
	}
	for _, lang := range e.Lang.Others() {
		sname, err := catalog.Sibling(name, lang)
		if err != nil {
			return res, err
		}
		sib, err := n.store.Read(sname)
		if err != nil {
			log.Warn().Err(err).Str("lang", string(lang)).Msg("sibling not updated")
			continue
		}
		if e.Index >= len(sib.FaultDetailList) || sib.FaultDetailList[e.Index].IsExpandable == *e.Expandable {
			continue
		}
		sib.FaultDetailList[e.Index].IsExpandable = *e.Expandable
		if err := n.store.Write(sname, sib); err != nil {
			return res, fmt.Errorf("propagate flag: %w", err)
		}
		metrics.FilesWrittenTotal.WithLabelValues("edit").Inc()
		res.Propagated = append(res.Propagated, sname)
	}
	return res, nil
}

// Hit is one search result.
type Hit struct {
	Path        codepath.Path `json:"-"`
	File        string        `json:"file"`
	Code        string        `json:"code"`
	Index       int           `json:"index"`
	Description string        `json:"description"`
}

// Search returns every description of lang containing query, ignoring case
// and accents, in path order.
func (n *Navigator) Search(query string, lang api.Language) ([]Hit, error) {
	needle := Fold(strings.TrimSpace(query))
	if needle == "" {
		return nil, nil
	}
	files, err := n.store.Files(lang)
	if err != nil {
		return nil, err
	}
	type file struct {
		name string
		path codepath.Path
	}
	ordered := make([]file, 0, len(files))
	for _, name := range files {
		p, _, err := codepath.Parse(name)
		if err != nil {
			continue
		}
		ordered = append(ordered, file{name: name, path: p})
	}
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].path.Less(ordered[j].path) })

	var hits []Hit
	for _, f := range ordered {
		doc, err := n.store.Read(f.name)
		if err != nil {
			log.Warn().Err(err).Str("file", f.name).Msg("search skipped unreadable file")
			continue
		}
		for i, e := range doc.FaultDetailList {
			if strings.Contains(Fold(e.Description), needle) {
				hits = append(hits, Hit{Path: f.path, File: f.name, Code: f.path.Code(i), Index: i, Description: e.Description})
			}
		}
	}
	return hits, nil
}

// Fold lower-cases s and strips diacritics, so "Arrêt" and "ARRET" compare
// equal.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return cases.Fold().String(out)
}
