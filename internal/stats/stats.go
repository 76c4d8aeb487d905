// Package stats counts files and entries of a catalog.
package stats

import (
	"strings"
	"unicode/utf8"

	"github.com/agentic-research/faultcat/api"
	"github.com/agentic-research/faultcat/internal/catalog"
)

// Language holds the counters of one language.
type Language struct {
	Files       int `json:"files"`
	Entries     int `json:"entries"`
	Empty       int `json:"empty"`
	Expandable  int `json:"expandable"`
	TotalLength int `json:"total_length"`
}

// AverageLength is the mean description length in characters, empty
// descriptions excluded.
func (l Language) AverageLength() float64 {
	n := l.Entries - l.Empty
	if n == 0 {
		return 0
	}
	return float64(l.TotalLength) / float64(n)
}

// Stats is the catalog summary.
type Stats struct {
	Sets     int                       `json:"sets"`
	Unread   int                       `json:"unreadable"`
	ByLang   map[api.Language]Language `json:"languages"`
	ByDepth  map[int]int               `json:"entries_by_depth"`
	MaxDepth int                       `json:"max_depth"`
}

// Compute reads every file of the store once. Depth counts use the first
// language present in each file set.
func Compute(store *catalog.Store) (*Stats, error) {
	sets, err := store.Scan()
	if err != nil {
		return nil, err
	}
	st := &Stats{
		Sets:    len(sets),
		ByLang:  make(map[api.Language]Language, len(api.Languages)),
		ByDepth: make(map[int]int),
	}
	for _, set := range sets {
		counted := false
		for _, lang := range api.Languages {
			name, ok := set.Files[lang]
			if !ok {
				continue
			}
			doc, err := store.Read(name)
			if err != nil {
				st.Unread++
				continue
			}
			l := st.ByLang[lang]
			l.Files++
			for _, e := range doc.FaultDetailList {
				l.Entries++
				if e.IsExpandable {
					l.Expandable++
				}
				if strings.TrimSpace(e.Description) == "" {
					l.Empty++
				} else {
					l.TotalLength += utf8.RuneCountInString(e.Description)
				}
			}
			st.ByLang[lang] = l
			if !counted {
				d := set.Path.Depth()
				st.ByDepth[d] += len(doc.FaultDetailList)
				if d > st.MaxDepth {
					st.MaxDepth = d
				}
				counted = true
			}
		}
	}
	return st, nil
}
