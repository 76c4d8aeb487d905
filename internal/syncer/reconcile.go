package syncer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/agentic-research/faultcat/api"
	"github.com/agentic-research/faultcat/internal/catalog"
	"github.com/agentic-research/faultcat/internal/metrics"
)

// Reasons a description is (re)written, recorded in the change log.
const (
	ReasonCleared       = "source-empty"
	ReasonTechnical     = "technical-code"
	ReasonForced        = "forced"
	ReasonMissing       = "missing"
	ReasonUntranslated  = "untranslated"
	ReasonSuspicious    = "suspicious"
	ReasonWrongLanguage = "wrong-language"
)

// TargetResult counts what happened to one target file.
type TargetResult struct {
	Lang    api.Language
	File    string
	Created bool
	Written bool

	Translated int
	Copied     int
	Cleared    int
	Kept       int
	Flagged    int
	Failed     int
	// Structural counts flag, ID and metadata fixes.
	Structural int
	// Resized is the number of entries added (positive) or dropped (negative).
	Resized int
}

// Changes is the number of modifications made to the target.
func (r TargetResult) Changes() int {
	resized := r.Resized
	if resized < 0 {
		resized = -resized
	}
	return r.Translated + r.Copied + r.Cleared + r.Structural + resized
}

// action is the decision taken for one description.
type action int

const (
	keep action = iota
	clear
	copySource
	retranslate
)

type reconciler struct {
	syncer *Syncer
	src    *api.Document
	target *api.Document
	from   api.Language
	to     api.Language
	file   string
	force  bool
	dryRun bool
	result *TargetResult
}

func (r *reconciler) run(ctx context.Context) error {
	r.structure()
	for i := range r.src.FaultDetailList {
		if err := r.description(ctx, i); err != nil {
			return err
		}
	}
	return nil
}

// structure copies everything but descriptions from the source.
func (r *reconciler) structure() {
	res := r.result
	t := r.target

	fixed := &api.Document{Header: r.src.Clone().Header}
	_, _ = catalog.FixHeader(fixed, r.file)
	if !headersEqual(t.Header, fixed.Header) {
		res.Structural++
	}
	t.Header = fixed.Header

	if !bytes.Equal(t.LinkedVariable, r.src.LinkedVariable) {
		t.LinkedVariable = append([]byte(nil), r.src.LinkedVariable...)
		res.Structural++
	}
	if !bytes.Equal(t.Version, r.src.Version) {
		t.Version = append([]byte(nil), r.src.Version...)
		res.Structural++
	}

	n := len(r.src.FaultDetailList)
	if d := n - len(t.FaultDetailList); d != 0 {
		res.Resized = d
		if d < 0 {
			log.Warn().Str("file", r.file).Int("dropped", -d).Msg("target longer than source, truncating")
			t.FaultDetailList = t.FaultDetailList[:n]
		} else {
			for len(t.FaultDetailList) < n {
				t.FaultDetailList = append(t.FaultDetailList, api.Entry{})
			}
		}
	}

	for i, se := range r.src.FaultDetailList {
		te := &t.FaultDetailList[i]
		if te.IsExpandable != se.IsExpandable {
			te.IsExpandable = se.IsExpandable
			res.Structural++
		}
		if !sameID(te.Id, se.Id) {
			te.Id = se.Clone().Id
			res.Structural++
		}
		for _, key := range api.StructuralKeys {
			sv, sok := se.Extra[key]
			tv, tok := te.Extra[key]
			switch {
			case sok && (!tok || !bytes.Equal(sv, tv)):
				if te.Extra == nil {
					te.Extra = make(map[string]json.RawMessage)
				}
				te.Extra[key] = append([]byte(nil), sv...)
				res.Structural++
			case !sok && tok:
				delete(te.Extra, key)
				res.Structural++
			}
		}
	}
}

// decide picks what to do with the target description at one index.
func (r *reconciler) decide(src, cur string) (action, string) {
	det := r.syncer.det
	switch {
	case strings.TrimSpace(src) == "":
		return clear, ReasonCleared
	case det.IsTechnicalCode(src):
		return copySource, ReasonTechnical
	case r.force:
		return retranslate, ReasonForced
	case strings.TrimSpace(cur) == "":
		return retranslate, ReasonMissing
	case cur == src:
		return retranslate, ReasonUntranslated
	}
	if _, ok := det.Suspicious(cur); ok {
		return retranslate, ReasonSuspicious
	}
	if det.Mismatch(cur, r.to) {
		return retranslate, ReasonWrongLanguage
	}
	return keep, ""
}

func (r *reconciler) description(ctx context.Context, i int) error {
	res := r.result
	src := r.src.FaultDetailList[i].Description
	te := &r.target.FaultDetailList[i]
	cur := te.Description

	act, reason := r.decide(src, cur)
	switch act {
	case keep:
		res.Kept++
		metrics.EntriesTotal.WithLabelValues("kept").Inc()
	case clear:
		if cur == "" {
			res.Kept++
			return nil
		}
		te.Description = ""
		res.Cleared++
		r.record(i, reason, cur, "")
		metrics.EntriesTotal.WithLabelValues("cleared").Inc()
	case copySource:
		if cur == src {
			res.Kept++
			return nil
		}
		te.Description = src
		res.Copied++
		r.record(i, reason, cur, src)
		metrics.EntriesTotal.WithLabelValues("copied").Inc()
	case retranslate:
		out, flagged, err := r.translate(ctx, src)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			res.Failed++
			metrics.EntriesTotal.WithLabelValues("failed").Inc()
			log.Warn().Err(err).Str("file", r.file).Int("index", i).Msg("translation failed, keeping current text")
			return nil
		}
		if flagged {
			res.Flagged++
			log.Warn().Str("file", r.file).Int("index", i).Str("text", out).
				Msg("translation still not detected as target language")
		}
		if out == cur {
			res.Kept++
			metrics.EntriesTotal.WithLabelValues("kept").Inc()
			return nil
		}
		te.Description = out
		res.Translated++
		r.record(i, reason, cur, out)
		metrics.EntriesTotal.WithLabelValues("translated").Inc()
	}
	return nil
}

// errRefusal marks a backend answer that is not a translation.
var errRefusal = errors.New("backend refused to translate")

// forgetter is implemented by caching translators.
type forgetter interface {
	Forget(text string, src, dst api.Language)
}

// translate calls the backend and checks the result. A result in the wrong
// language or looking like a refusal is requested once more; a second
// wrong-language result is accepted but flagged, a second refusal fails.
func (r *reconciler) translate(ctx context.Context, text string) (string, bool, error) {
	det := r.syncer.det
	var out string
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			if f, ok := r.syncer.tr.(forgetter); ok {
				f.Forget(text, r.from, r.to)
			}
		}
		var err error
		out, err = r.syncer.tr.Translate(ctx, text, r.from, r.to)
		if err != nil {
			return "", false, err
		}
		_, refused := det.Suspicious(out)
		if !refused && !det.Mismatch(out, r.to) {
			return out, false, nil
		}
		if attempt == 1 && refused {
			return "", false, errRefusal
		}
	}
	return out, true, nil
}

// record logs a change. A dry run writes nothing, so it logs nothing.
func (r *reconciler) record(i int, reason, before, after string) {
	if r.dryRun {
		return
	}
	r.syncer.changes.Record(r.file, i, reason, before, after)
}

func headersEqual(a, b api.Header) bool {
	if a.Language != b.Language || a.Filename != b.Filename || a.IDs() != b.IDs() {
		return false
	}
	if len(a.Extra) != len(b.Extra) {
		return false
	}
	for k, v := range a.Extra {
		if !bytes.Equal(v, b.Extra[k]) {
			return false
		}
	}
	return true
}

func sameID(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
