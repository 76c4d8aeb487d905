// Package query evaluates JSONPath expressions across catalog files.
package query

import (
	"fmt"

	"github.com/go-git/go-billy/v5/util"
	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"

	"github.com/agentic-research/faultcat/api"
	"github.com/agentic-research/faultcat/internal/catalog"
)

// Match is one value selected in one file.
type Match struct {
	File  string `json:"file"`
	Value any    `json:"value"`
}

// String renders the match as "file: json".
func (m Match) String() string {
	return fmt.Sprintf("%s: %s", m.File, oj.JSON(m.Value, &oj.Options{Sort: true}))
}

// Run evaluates selector against every file of lang, or every catalog file
// when lang is empty. Files that do not parse are skipped and reported.
func Run(store *catalog.Store, selector string, lang api.Language) ([]Match, []error, error) {
	x, err := jp.ParseString(selector)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid jsonpath '%s': %w", selector, err)
	}

	var names []string
	langs := api.Languages
	if lang != "" {
		langs = []api.Language{lang}
	}
	for _, l := range langs {
		files, err := store.Files(l)
		if err != nil {
			return nil, nil, err
		}
		names = append(names, files...)
	}

	var (
		out  []Match
		errs []error
	)
	for _, name := range names {
		data, err := util.ReadFile(store.FS(), name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		root, err := oj.Parse(data)
		if err != nil {
			errs = append(errs, fmt.Errorf("parse %s: %w", name, err))
			continue
		}
		for _, v := range x.Get(root) {
			out = append(out, Match{File: name, Value: v})
		}
	}
	return out, errs, nil
}
