package tree

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/agentic-research/faultcat/api"
	"github.com/agentic-research/faultcat/internal/catalog"
	"github.com/agentic-research/faultcat/internal/codepath"
)

// Row is one entry flattened into a table line.
type Row struct {
	Code         string
	File         codepath.Path
	Depth        int
	Index        int
	EntryID      *int
	Expandable   bool
	Descriptions map[api.Language]string
	Extra        map[api.Language]map[string]json.RawMessage
}

// Flatten turns the tree into rows, depth first.
func (t *Tree) Flatten() []Row {
	var rows []Row
	_ = t.Walk(func(n *Node, depth int) error {
		descs := make(map[api.Language]string, len(n.Descriptions))
		for k, v := range n.Descriptions {
			descs[k] = v
		}
		rows = append(rows, Row{
			Code:         n.ID,
			File:         n.File,
			Depth:        depth,
			Index:        n.Index,
			EntryID:      n.EntryID,
			Expandable:   n.Expandable,
			Descriptions: descs,
			Extra:        n.Extra,
		})
		return nil
	})
	return rows
}

// FileMetas returns the metadata of every file, ordered by path then language.
func (t *Tree) FileMetas() []FileMeta {
	var out []FileMeta
	for _, p := range t.Paths() {
		files := t.Files(p)
		for _, lang := range api.Languages {
			if m, ok := files[lang]; ok {
				out = append(out, m)
			}
		}
	}
	return out
}

// Reconstruct rebuilds one document per file and language from rows.
// A document is produced for every entry in files; rows of a file must
// cover indices 0..n-1 without gaps.
func Reconstruct(rows []Row, files []FileMeta) (map[codepath.Path]map[api.Language]*api.Document, error) {
	byFile := make(map[codepath.Path][]Row)
	for _, r := range rows {
		byFile[r.File] = append(byFile[r.File], r)
	}

	out := make(map[codepath.Path]map[api.Language]*api.Document)
	for _, m := range files {
		entries := byFile[m.Path]
		sort.Slice(entries, func(i, j int) bool { return entries[i].Index < entries[j].Index })
		for i, r := range entries {
			if r.Index != i {
				return nil, fmt.Errorf("%s: entry index %d missing", m.Path.Base(), i)
			}
		}

		doc := catalog.NewDocument(m.Path, m.Lang)
		if m.LinkedVariable != nil {
			doc.LinkedVariable = m.LinkedVariable
		}
		if m.Version != nil {
			doc.Version = m.Version
		}
		if len(m.HeaderExtra) > 0 {
			doc.Header.Extra = m.HeaderExtra
		}
		if len(m.Extra) > 0 {
			doc.Extra = m.Extra
		}
		for _, r := range entries {
			doc.FaultDetailList = append(doc.FaultDetailList, api.Entry{
				Id:           r.EntryID,
				Description:  r.Descriptions[m.Lang],
				IsExpandable: r.Expandable,
				Extra:        r.Extra[m.Lang],
			})
		}

		byLang, ok := out[m.Path]
		if !ok {
			byLang = make(map[api.Language]*api.Document)
			out[m.Path] = byLang
		}
		byLang[m.Lang] = doc
	}
	return out, nil
}
