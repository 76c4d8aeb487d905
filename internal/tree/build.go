package tree

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/agentic-research/faultcat/api"
	"github.com/agentic-research/faultcat/internal/catalog"
	"github.com/agentic-research/faultcat/internal/codepath"
)

// Build reads every file set of the store and links entries to the files
// they expand into. Unreadable files are recorded in Errors and skipped.
// File sets no entry leads to are listed in Orphans and loaded detached.
func Build(s *catalog.Store) (*Tree, error) {
	sets, err := s.Scan()
	if err != nil {
		return nil, err
	}
	byPath := make(map[codepath.Path]catalog.FileSet, len(sets))
	var tops []codepath.Path
	for _, set := range sets {
		if _, dup := byPath[set.Path]; dup {
			// same path in two directories: first in scan order wins
			log.Warn().Str("file", set.Base()).Str("dir", set.Dir).Msg("duplicate file set ignored")
			continue
		}
		byPath[set.Path] = set
		if set.Path.Depth() == 0 {
			tops = append(tops, set.Path)
		}
	}
	if len(tops) == 0 {
		return nil, fmt.Errorf("top-level file %s: %w", codepath.Root.Base(), catalog.ErrNotFound)
	}

	t := New()
	visited := make(map[codepath.Path]bool, len(byPath))

	// parent is nil for top-level files and for orphans (detached).
	var visit func(p codepath.Path, parent *Node, detached bool)
	visit = func(p codepath.Path, parent *Node, detached bool) {
		visited[p] = true
		set := byPath[p]

		docs := make(map[api.Language]*api.Document, len(set.Files))
		var primary *api.Document
		for _, lang := range api.Languages {
			name, ok := set.Files[lang]
			if !ok {
				continue
			}
			doc, err := s.Read(name)
			if err != nil {
				t.Errors = append(t.Errors, err)
				continue
			}
			docs[lang] = doc
			t.AddFile(FileMeta{
				Path:           p,
				Lang:           lang,
				Name:           name,
				LinkedVariable: doc.LinkedVariable,
				Version:        doc.Version,
				HeaderExtra:    doc.Header.Extra,
				Extra:          doc.Extra,
			})
			if primary == nil {
				primary = doc
			}
		}
		if primary == nil {
			return
		}

		for i, e := range primary.FaultDetailList {
			n := &Node{
				ID:           p.Code(i),
				File:         p,
				Index:        i,
				EntryID:      e.Id,
				Expandable:   e.IsExpandable,
				Descriptions: make(map[api.Language]string, len(docs)),
			}
			for lang, doc := range docs {
				if i >= len(doc.FaultDetailList) {
					continue
				}
				le := doc.FaultDetailList[i]
				n.Descriptions[lang] = le.Description
				if len(le.Extra) > 0 {
					if n.Extra == nil {
						n.Extra = make(map[api.Language]map[string]json.RawMessage, len(docs))
					}
					n.Extra[lang] = le.Extra
				}
			}
			switch {
			case parent == nil && detached:
				t.AddDetached(n)
			case parent == nil:
				t.AddRoot(n)
			default:
				t.AddNode(n)
				parent.Children = append(parent.Children, n.ID)
			}
			if !e.IsExpandable {
				continue
			}
			child, err := p.Child(i)
			if err != nil {
				n.Dangling = true
				continue
			}
			if _, ok := byPath[child]; !ok || visited[child] {
				n.Dangling = !ok
				continue
			}
			visit(child, n, false)
		}
	}

	for _, top := range tops {
		visit(top, nil, false)
	}
	for _, set := range sets {
		if !visited[set.Path] {
			t.Orphans = append(t.Orphans, set.Path)
		}
	}
	// orphans reached from an earlier orphan are already part of its subtree
	for _, p := range t.Orphans {
		if !visited[p] {
			visit(p, nil, true)
		}
	}
	return t, nil
}
