// Package diagnose reports translation defects without changing anything:
// text left where the source is empty, model refusals that were saved as
// descriptions, and descriptions written in the wrong language.
package diagnose

import (
	"fmt"
	"strings"

	"github.com/agentic-research/faultcat/api"
	"github.com/agentic-research/faultcat/internal/catalog"
	"github.com/agentic-research/faultcat/internal/detect"
)

// Finding kinds.
const (
	KindOrphanText    = "text-without-source"
	KindSuspicious    = "suspicious"
	KindWrongLanguage = "wrong-language"
)

// Finding is one defective target description.
type Finding struct {
	File   string       `json:"file"`
	Lang   api.Language `json:"lang"`
	Index  int          `json:"index"`
	Kind   string       `json:"kind"`
	Text   string       `json:"text"`
	Detail string       `json:"detail,omitempty"`
}

func (f Finding) String() string {
	s := fmt.Sprintf("%s[%d] %s: %q", f.File, f.Index, f.Kind, f.Text)
	if f.Detail != "" {
		s += " (" + f.Detail + ")"
	}
	return s
}

// Report lists findings in file then index order.
type Report struct {
	Files    int
	Findings []Finding
	Errors   []error
}

// Run checks every target of every file in the source language.
func Run(store *catalog.Store, src api.Language, det *detect.Detector) (*Report, error) {
	if det == nil {
		det = detect.Default()
	}
	files, err := store.Files(src)
	if err != nil {
		return nil, err
	}
	rep := &Report{Files: len(files)}
	for _, name := range files {
		source, err := store.Read(name)
		if err != nil {
			rep.Errors = append(rep.Errors, err)
			continue
		}
		for _, dst := range src.Others() {
			tname, err := catalog.Sibling(name, dst)
			if err != nil {
				rep.Errors = append(rep.Errors, err)
				continue
			}
			target, err := store.Read(tname)
			if err != nil {
				rep.Errors = append(rep.Errors, err)
				continue
			}
			rep.Findings = append(rep.Findings, Compare(source, target, tname, dst, det)...)
		}
	}
	return rep, nil
}

// Compare checks one target document against its source.
func Compare(source, target *api.Document, name string, dst api.Language, det *detect.Detector) []Finding {
	var out []Finding
	for i, te := range target.FaultDetailList {
		text := strings.TrimSpace(te.Description)
		if text == "" {
			continue
		}
		f := Finding{File: name, Lang: dst, Index: i, Text: te.Description}
		if i >= len(source.FaultDetailList) || strings.TrimSpace(source.FaultDetailList[i].Description) == "" {
			f.Kind = KindOrphanText
			out = append(out, f)
			continue
		}
		if phrase, ok := det.Suspicious(text); ok {
			f.Kind = KindSuspicious
			f.Detail = fmt.Sprintf("contains %q", phrase)
			out = append(out, f)
			continue
		}
		if det.IsTechnicalCode(text) {
			continue
		}
		if got, conf, ok := det.Language(text); ok && got != dst {
			f.Kind = KindWrongLanguage
			f.Detail = fmt.Sprintf("looks %s (%.2f)", got.Name(), conf)
			out = append(out, f)
		}
	}
	return out
}
