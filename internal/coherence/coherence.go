// Package coherence checks that the language files of a catalog agree with
// each other and with the tree they describe. Entry flags are compared as
// roaring bitmaps: the XOR of two languages' bitmaps is the set of indices
// where they disagree.
package coherence

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/RoaringBitmap/roaring"
	"github.com/rs/zerolog/log"

	"github.com/agentic-research/faultcat/api"
	"github.com/agentic-research/faultcat/internal/catalog"
	"github.com/agentic-research/faultcat/internal/codepath"
	"github.com/agentic-research/faultcat/internal/metrics"
)

// Severity orders issues from informational to blocking.
type Severity int

const (
	Warning Severity = iota
	Metadata
	Content
	Critical
)

// Severities lists every severity, most severe first.
var Severities = []Severity{Critical, Content, Metadata, Warning}

func (s Severity) String() string {
	switch s {
	case Warning:
		return "warning"
	case Metadata:
		return "metadata"
	case Content:
		return "content"
	case Critical:
		return "critical"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// Issue kinds.
const (
	KindMissingFile     = "missing-file"
	KindUnreadable      = "unreadable"
	KindMissingKey      = "missing-key"
	KindHeader          = "header"
	KindLinkedVariable  = "linked-variable"
	KindVersion         = "version"
	KindEntryCount      = "entry-count"
	KindExpandable      = "expandable"
	KindEmptyMismatch   = "empty-description"
	KindMissingChild    = "missing-child"
	KindUnexpectedChild = "unexpected-child"
)

// Issue is one finding. Index is -1 when the issue is not about an entry.
type Issue struct {
	Severity Severity `json:"-"`
	Level    string   `json:"severity"`
	Kind     string   `json:"kind"`
	Set      string   `json:"set"`
	File     string   `json:"file,omitempty"`
	Index    int      `json:"index"`
	Message  string   `json:"message"`
}

func (i Issue) String() string {
	loc := i.Set
	if i.File != "" {
		loc = i.File
	}
	if i.Index >= 0 {
		loc = fmt.Sprintf("%s[%d]", loc, i.Index)
	}
	return fmt.Sprintf("[%s] %s: %s", i.Level, loc, i.Message)
}

// Options control a check run.
type Options struct {
	// Fix rewrites header metadata (language, filename, level IDs) in place.
	Fix bool
	// Quick stops after the first file set with a non-warning issue.
	Quick bool
}

// Report is the outcome of a check.
type Report struct {
	Sets   int     `json:"sets"`
	Files  int     `json:"files"`
	Fixed  int     `json:"fixed"`
	Issues []Issue `json:"issues"`
}

// Count returns the number of issues of severity s.
func (r *Report) Count(s Severity) int {
	n := 0
	for _, i := range r.Issues {
		if i.Severity == s {
			n++
		}
	}
	return n
}

// OK reports whether only warnings remain.
func (r *Report) OK() bool {
	for _, i := range r.Issues {
		if i.Severity != Warning {
			return false
		}
	}
	return true
}

// Summary renders counts by severity, e.g. "2 critical, 0 content, ...".
func (r *Report) Summary() string {
	parts := make([]string, 0, len(Severities))
	for _, s := range Severities {
		parts = append(parts, fmt.Sprintf("%d %s", r.Count(s), s))
	}
	return strings.Join(parts, ", ")
}

// Checker runs checks over a store. Files are never deleted.
type Checker struct {
	store *catalog.Store
}

// New returns a checker over store.
func New(store *catalog.Store) *Checker {
	return &Checker{store: store}
}

// Check inspects every file set of the store.
func (c *Checker) Check(opts Options) (*Report, error) {
	sets, err := c.store.Scan()
	if err != nil {
		return nil, err
	}
	rep := &Report{Sets: len(sets)}
	present := make(map[codepath.Path]bool, len(sets))
	for _, set := range sets {
		present[set.Path] = true
	}

	// expandable bitmaps of the reference language, for the tree check
	expandable := make(map[codepath.Path]*roaring.Bitmap, len(sets))

	for _, set := range sets {
		before := len(rep.Issues)
		ref := c.checkSet(set, opts, rep)
		if ref != nil {
			expandable[set.Path] = flagBitmap(ref, func(e api.Entry) bool { return e.IsExpandable })
		}
		if opts.Quick && blocking(rep.Issues[before:]) {
			log.Info().Str("set", set.Base()).Msg("stopping at first file set with errors")
			c.publish(rep)
			return rep, nil
		}
	}

	c.checkTree(sets, present, expandable, rep)
	c.publish(rep)
	return rep, nil
}

// checkSet compares the languages of one file set and returns the reference
// document (first readable language), if any.
func (c *Checker) checkSet(set catalog.FileSet, opts Options, rep *Report) *api.Document {
	base := set.Base()
	add := func(sev Severity, kind, file string, idx int, format string, args ...any) {
		rep.Issues = append(rep.Issues, Issue{
			Severity: sev, Level: sev.String(), Kind: kind, Set: base,
			File: file, Index: idx, Message: fmt.Sprintf(format, args...),
		})
	}

	for _, lang := range set.Missing() {
		add(Critical, KindMissingFile, set.Name(lang), -1, "missing %s file", lang.Name())
	}

	type loaded struct {
		lang api.Language
		name string
		doc  *api.Document
	}
	var docs []loaded
	for _, lang := range api.Languages {
		name, ok := set.Files[lang]
		if !ok {
			continue
		}
		rep.Files++
		doc, err := c.store.Read(name)
		if err != nil {
			add(Critical, KindUnreadable, name, -1, "%v", err)
			continue
		}
		if !c.checkFile(doc, name, opts, rep, add) {
			continue
		}
		docs = append(docs, loaded{lang: lang, name: name, doc: doc})
	}
	if len(docs) == 0 {
		return nil
	}

	ref := docs[0]
	refExp := flagBitmap(ref.doc, func(e api.Entry) bool { return e.IsExpandable })
	refEmpty := flagBitmap(ref.doc, func(e api.Entry) bool { return strings.TrimSpace(e.Description) == "" })

	for _, d := range docs[1:] {
		if !bytes.Equal(compact(d.doc.LinkedVariable), compact(ref.doc.LinkedVariable)) {
			add(Metadata, KindLinkedVariable, d.name, -1, "LinkedVariable %s differs from %s %s",
				d.doc.LinkedVariable, ref.lang, ref.doc.LinkedVariable)
		}
		if !bytes.Equal(compact(d.doc.Version), compact(ref.doc.Version)) {
			add(Warning, KindVersion, d.name, -1, "Version %s differs from %s %s",
				d.doc.Version, ref.lang, ref.doc.Version)
		}
		if n, m := len(d.doc.FaultDetailList), len(ref.doc.FaultDetailList); n != m {
			add(Critical, KindEntryCount, d.name, -1, "%d entries, %s has %d", n, ref.lang, m)
			continue
		}

		exp := flagBitmap(d.doc, func(e api.Entry) bool { return e.IsExpandable })
		diff := roaring.Xor(refExp, exp)
		diff.Iterate(func(i uint32) bool {
			add(Content, KindExpandable, d.name, int(i), "IsExpandable %t, %s has %t",
				exp.Contains(i), ref.lang, refExp.Contains(i))
			return true
		})

		empty := flagBitmap(d.doc, func(e api.Entry) bool { return strings.TrimSpace(e.Description) == "" })
		diff = roaring.Xor(refEmpty, empty)
		diff.Iterate(func(i uint32) bool {
			if empty.Contains(i) {
				add(Content, KindEmptyMismatch, d.name, int(i), "empty description, %s has text", ref.lang)
			} else {
				add(Content, KindEmptyMismatch, d.name, int(i), "description set, %s is empty", ref.lang)
			}
			return true
		})
	}
	return ref.doc
}

// checkFile reports per-file defects and returns whether the document can be
// compared with its siblings.
func (c *Checker) checkFile(doc *api.Document, name string, opts Options, rep *Report,
	add func(Severity, string, string, int, string, ...any)) bool {
	ok := true
	for _, key := range api.RequiredKeys {
		if doc.Has(key) {
			continue
		}
		sev := Metadata
		if key == api.KeyHeader || key == api.KeyFaultDetailList {
			sev = Critical
			ok = false
		}
		add(sev, KindMissingKey, name, -1, "missing key %s", key)
	}
	if !doc.Has(api.KeyHeader) {
		return ok
	}

	var headerProblems []catalog.ValidationError
	for _, p := range catalog.Problems(doc, name) {
		if !p.Structural() {
			headerProblems = append(headerProblems, p)
		}
	}
	if len(headerProblems) == 0 {
		return ok
	}
	if opts.Fix {
		err := c.fixHeader(doc, name)
		if err == nil {
			rep.Fixed++
			return ok
		}
		log.Error().Err(err).Str("file", name).Msg("cannot fix header")
	}
	for _, p := range headerProblems {
		add(Metadata, KindHeader, name, -1, "%s", p.Message)
	}
	return ok
}

func (c *Checker) fixHeader(doc *api.Document, name string) error {
	if _, err := catalog.FixHeader(doc, name); err != nil {
		return err
	}
	if err := c.store.Write(name, doc); err != nil {
		return err
	}
	metrics.FilesWrittenTotal.WithLabelValues("fix").Inc()
	log.Info().Str("file", name).Msg("header metadata fixed")
	return nil
}

// checkTree cross-checks expandable flags with the files that exist below
// each file set.
func (c *Checker) checkTree(sets []catalog.FileSet, present map[codepath.Path]bool,
	expandable map[codepath.Path]*roaring.Bitmap, rep *Report) {
	// children[p] holds the entry indices of p that have a child file.
	children := make(map[codepath.Path]*roaring.Bitmap)
	for _, set := range sets {
		parent, ok := set.Path.Parent()
		if !ok {
			continue
		}
		idx, _ := set.Path.Index()
		if !present[parent] {
			rep.Issues = append(rep.Issues, Issue{
				Severity: Content, Level: Content.String(), Kind: KindUnexpectedChild,
				Set: set.Base(), Index: -1,
				Message: fmt.Sprintf("parent file %s does not exist", parent.Base()),
			})
			continue
		}
		bm, ok := children[parent]
		if !ok {
			bm = roaring.New()
			children[parent] = bm
		}
		bm.Add(uint32(idx))
	}

	for _, set := range sets {
		exp, ok := expandable[set.Path]
		if !ok {
			continue
		}
		have := children[set.Path]
		if have == nil {
			have = roaring.New()
		}
		missing := roaring.AndNot(exp, have)
		missing.Iterate(func(i uint32) bool {
			child, err := set.Path.Child(int(i))
			msg := fmt.Sprintf("expandable but %s does not exist", child.Base())
			if err != nil {
				msg = fmt.Sprintf("expandable but %v", err)
			}
			rep.Issues = append(rep.Issues, Issue{
				Severity: Content, Level: Content.String(), Kind: KindMissingChild,
				Set: set.Base(), Index: int(i), Message: msg,
			})
			return true
		})
		unexpected := roaring.AndNot(have, exp)
		unexpected.Iterate(func(i uint32) bool {
			child, _ := set.Path.Child(int(i))
			rep.Issues = append(rep.Issues, Issue{
				Severity: Content, Level: Content.String(), Kind: KindUnexpectedChild,
				Set: set.Base(), Index: int(i),
				Message: fmt.Sprintf("%s exists but the entry is not expandable", child.Base()),
			})
			return true
		})
	}
}

func (c *Checker) publish(rep *Report) {
	for _, s := range Severities {
		metrics.CoherenceIssues.WithLabelValues(s.String()).Set(float64(rep.Count(s)))
	}
}

// flagBitmap returns the indices of doc's entries for which pred holds.
func flagBitmap(doc *api.Document, pred func(api.Entry) bool) *roaring.Bitmap {
	bm := roaring.New()
	for i, e := range doc.FaultDetailList {
		if pred(e) {
			bm.Add(uint32(i))
		}
	}
	return bm
}

func blocking(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity != Warning {
			return true
		}
	}
	return false
}

// compact normalizes opaque JSON so formatting differences do not count.
func compact(raw []byte) []byte {
	if len(raw) == 0 {
		return nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return raw
	}
	return buf.Bytes()
}
