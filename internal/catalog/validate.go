package catalog

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/agentic-research/faultcat/api"
	"github.com/agentic-research/faultcat/internal/codepath"
)

// Problem kinds reported by Validate.
const (
	KindMissingKey = "missing-key"
	KindLanguage   = "header-language"
	KindFilename   = "header-filename"
	KindIDs        = "header-ids"
)

// ValidationError describes one structural or metadata defect of a file.
type ValidationError struct {
	File    string
	Kind    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.File, e.Kind, e.Message)
}

// Structural reports whether the defect prevents comparing the file with its
// siblings. Metadata defects do not.
func (e *ValidationError) Structural() bool {
	return e.Kind == KindMissingKey
}

// Validate returns the first defect of doc stored under name, or nil.
func Validate(doc *api.Document, name string) error {
	if problems := Problems(doc, name); len(problems) > 0 {
		return &problems[0]
	}
	return nil
}

// Problems lists every defect of doc stored under name. Missing keys come
// first, then header metadata that disagrees with the filename.
func Problems(doc *api.Document, name string) []ValidationError {
	var out []ValidationError
	for _, key := range api.RequiredKeys {
		if !doc.Has(key) {
			out = append(out, ValidationError{File: name, Kind: KindMissingKey, Message: fmt.Sprintf("missing key %s", key)})
		}
	}

	p, lang, err := codepath.Parse(name)
	if err != nil {
		// Only catalog-named files carry header expectations.
		return out
	}
	h := doc.Header
	if h.Language != string(lang) {
		out = append(out, ValidationError{File: name, Kind: KindLanguage,
			Message: fmt.Sprintf("Language %q, want %q", h.Language, lang)})
	}
	if base := filepath.Base(name); h.Filename != base {
		out = append(out, ValidationError{File: name, Kind: KindFilename,
			Message: fmt.Sprintf("Filename %q, want %q", h.Filename, base)})
	}
	if h.IDs() != p.IDs() {
		out = append(out, ValidationError{File: name, Kind: KindIDs,
			Message: fmt.Sprintf("IdLevel %v, want %v", h.IDs(), p.IDs())})
	}
	return out
}

// FixHeader rewrites the header metadata of doc to agree with name and
// reports whether anything changed.
func FixHeader(doc *api.Document, name string) (bool, error) {
	p, lang, err := codepath.Parse(name)
	if err != nil {
		return false, err
	}
	want := doc.Header
	want.Language = string(lang)
	want.Filename = filepath.Base(name)
	want.SetIDs(p.IDs())
	h := doc.Header
	if h.Language == want.Language && h.Filename == want.Filename && h.IDs() == want.IDs() {
		return false, nil
	}
	doc.Header = want
	return true, nil
}

// NewDocument returns an empty document with a header matching p and lang.
func NewDocument(p codepath.Path, lang api.Language) *api.Document {
	doc := &api.Document{
		Header: api.Header{
			Language: string(lang),
			Filename: p.Filename(lang),
		},
		LinkedVariable:  json.RawMessage("null"),
		Version:         json.RawMessage("null"),
		FaultDetailList: []api.Entry{},
	}
	doc.Header.SetIDs(p.IDs())
	return doc
}
