// Package catalogtest builds in-memory catalogs for tests.
package catalogtest

import (
	"encoding/json"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/faultcat/api"
	"github.com/agentic-research/faultcat/internal/catalog"
	"github.com/agentic-research/faultcat/internal/codepath"
)

// E is a shorthand entry: a description, expandable when Exp is set.
type E struct {
	Desc string
	Exp  bool
}

// Doc builds a well-formed document for p in lang.
func Doc(p codepath.Path, lang api.Language, entries ...E) *api.Document {
	doc := catalog.NewDocument(p, lang)
	doc.LinkedVariable = json.RawMessage(`"AGV_FAULTS"`)
	doc.Version = json.RawMessage(`"1.0"`)
	for i, e := range entries {
		id := i
		doc.FaultDetailList = append(doc.FaultDetailList, api.Entry{Id: &id, Description: e.Desc, IsExpandable: e.Exp})
	}
	return doc
}

// Store returns an empty in-memory store.
func Store() *catalog.Store {
	return catalog.New(memfs.New())
}

// Put writes doc under its own header filename in dir.
func Put(t testing.TB, s *catalog.Store, dir string, doc *api.Document) string {
	t.Helper()
	name := doc.Header.Filename
	if dir != "" {
		name = s.FS().Join(dir, name)
	}
	require.NoError(t, s.Write(name, doc))
	return name
}

// Get reads a file and fails the test on error.
func Get(t testing.TB, s *catalog.Store, name string) *api.Document {
	t.Helper()
	doc, err := s.Read(name)
	require.NoError(t, err)
	return doc
}

// Descriptions lists the descriptions of doc in order.
func Descriptions(doc *api.Document) []string {
	out := make([]string, len(doc.FaultDetailList))
	for i, e := range doc.FaultDetailList {
		out[i] = e.Description
	}
	return out
}
