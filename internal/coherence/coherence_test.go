package coherence

import (
	"encoding/json"
	"testing"

	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/faultcat/api"
	"github.com/agentic-research/faultcat/internal/catalog"
	ct "github.com/agentic-research/faultcat/internal/catalog/catalogtest"
	"github.com/agentic-research/faultcat/internal/codepath"
)

var child = codepath.Path{0, 0, codepath.Unused, codepath.Unused}

var words = map[api.Language][3]string{
	api.French:  {"Batterie", "Arrêt", "Tension basse"},
	api.English: {"Battery", "Stop", "Low voltage"},
	api.Spanish: {"Batería", "Parada", "Tensión baja"},
}

// seed writes a coherent catalog: the root's first entry expands into child.
// mutate may alter any document before it is written.
func seed(t *testing.T, mutate func(p codepath.Path, lang api.Language, doc *api.Document)) *catalog.Store {
	t.Helper()
	s := ct.Store()
	for _, lang := range api.Languages {
		w := words[lang]
		docs := map[codepath.Path]*api.Document{
			codepath.Root: ct.Doc(codepath.Root, lang, ct.E{Desc: w[0], Exp: true}, ct.E{Desc: w[1]}),
			child:         ct.Doc(child, lang, ct.E{Desc: w[2]}),
		}
		for p, doc := range docs {
			if mutate != nil {
				mutate(p, lang, doc)
			}
			if doc != nil && doc.Header.Filename != "" {
				ct.Put(t, s, "", doc)
			}
		}
	}
	return s
}

func kinds(rep *Report) []string {
	var out []string
	for _, i := range rep.Issues {
		out = append(out, i.Kind)
	}
	return out
}

func find(rep *Report, kind string) (Issue, bool) {
	for _, i := range rep.Issues {
		if i.Kind == kind {
			return i, true
		}
	}
	return Issue{}, false
}

func TestCheck_Clean(t *testing.T) {
	rep, err := New(seed(t, nil)).Check(Options{})
	require.NoError(t, err)
	assert.Empty(t, rep.Issues)
	assert.True(t, rep.OK())
	assert.Equal(t, 2, rep.Sets)
	assert.Equal(t, 6, rep.Files)
	assert.Equal(t, "0 critical, 0 content, 0 metadata, 0 warning", rep.Summary())
}

func TestCheck_SetIssues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p codepath.Path, lang api.Language, doc *api.Document)
		kind   string
		sev    Severity
		index  int
	}{
		{
			name: "entry count",
			mutate: func(p codepath.Path, lang api.Language, doc *api.Document) {
				if p == codepath.Root && lang == api.English {
					doc.FaultDetailList = doc.FaultDetailList[:1]
				}
			},
			kind: KindEntryCount, sev: Critical, index: -1,
		},
		{
			name: "expandable flag",
			mutate: func(p codepath.Path, lang api.Language, doc *api.Document) {
				if p == codepath.Root && lang == api.Spanish {
					doc.FaultDetailList[1].IsExpandable = true
				}
			},
			kind: KindExpandable, sev: Content, index: 1,
		},
		{
			name: "empty description",
			mutate: func(p codepath.Path, lang api.Language, doc *api.Document) {
				if p == child && lang == api.English {
					doc.FaultDetailList[0].Description = " "
				}
			},
			kind: KindEmptyMismatch, sev: Content, index: 0,
		},
		{
			name: "header language",
			mutate: func(p codepath.Path, lang api.Language, doc *api.Document) {
				if p == child && lang == api.Spanish {
					doc.Header.Language = "fr"
				}
			},
			kind: KindHeader, sev: Metadata, index: -1,
		},
		{
			name: "linked variable",
			mutate: func(p codepath.Path, lang api.Language, doc *api.Document) {
				if p == codepath.Root && lang == api.English {
					doc.LinkedVariable = json.RawMessage(`"OTHER"`)
				}
			},
			kind: KindLinkedVariable, sev: Metadata, index: -1,
		},
		{
			name: "version",
			mutate: func(p codepath.Path, lang api.Language, doc *api.Document) {
				if p == codepath.Root && lang == api.English {
					doc.Version = json.RawMessage(`"2.0"`)
				}
			},
			kind: KindVersion, sev: Warning, index: -1,
		},
		{
			name: "missing language file",
			mutate: func(p codepath.Path, lang api.Language, doc *api.Document) {
				if p == child && lang == api.Spanish {
					doc.Header.Filename = ""
				}
			},
			kind: KindMissingFile, sev: Critical, index: -1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep, err := New(seed(t, tt.mutate)).Check(Options{})
			require.NoError(t, err)
			require.Len(t, rep.Issues, 1, kinds(rep))
			issue := rep.Issues[0]
			assert.Equal(t, tt.kind, issue.Kind)
			assert.Equal(t, tt.sev, issue.Severity)
			assert.Equal(t, tt.sev.String(), issue.Level)
			assert.Equal(t, tt.index, issue.Index)
			assert.Equal(t, tt.sev == Warning, rep.OK())
		})
	}
}

func TestCheck_Unreadable(t *testing.T) {
	s := seed(t, nil)
	require.NoError(t, util.WriteFile(s.FS(), child.Filename(api.English), []byte("not json"), 0o644))

	rep, err := New(s).Check(Options{})
	require.NoError(t, err)
	issue, ok := find(rep, KindUnreadable)
	require.True(t, ok)
	assert.Equal(t, Critical, issue.Severity)
	assert.Equal(t, 1, rep.Count(Critical))
}

func TestCheck_MissingKey(t *testing.T) {
	s := seed(t, nil)
	require.NoError(t, util.WriteFile(s.FS(), child.Filename(api.English),
		[]byte(`{"Header":{"Language":"en","Filename":"faults_000_000_255_255_en.json","IdLevel0":0,"IdLevel1":0,"IdLevel2":255,"IdLevel3":255}}`), 0o644))

	rep, err := New(s).Check(Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Count(Critical)) // FaultDetailList
	assert.Equal(t, 2, rep.Count(Metadata)) // LinkedVariable, Version
}

func TestCheck_Tree(t *testing.T) {
	s := seed(t, func(p codepath.Path, _ api.Language, doc *api.Document) {
		if p == codepath.Root {
			doc.FaultDetailList[0].IsExpandable = false
			doc.FaultDetailList[1].IsExpandable = true
		}
	})

	rep, err := New(s).Check(Options{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{KindMissingChild, KindUnexpectedChild}, kinds(rep))

	missing, _ := find(rep, KindMissingChild)
	assert.Equal(t, 1, missing.Index)
	assert.Contains(t, missing.Message, "faults_000_001_255_255")
	unexpected, _ := find(rep, KindUnexpectedChild)
	assert.Equal(t, 0, unexpected.Index)
}

func TestCheck_OrphanWithoutParent(t *testing.T) {
	s := seed(t, nil)
	deep := codepath.Path{0, 4, 2, codepath.Unused}
	ct.Put(t, s, "", ct.Doc(deep, api.French))
	ct.Put(t, s, "", ct.Doc(deep, api.English))
	ct.Put(t, s, "", ct.Doc(deep, api.Spanish))

	rep, err := New(s).Check(Options{})
	require.NoError(t, err)
	issue, ok := find(rep, KindUnexpectedChild)
	require.True(t, ok)
	assert.Contains(t, issue.Message, "faults_000_004_255_255")
}

func TestCheck_Fix(t *testing.T) {
	s := seed(t, func(p codepath.Path, lang api.Language, doc *api.Document) {
		if p == child && lang == api.Spanish {
			doc.Header.Language = "fr"
			doc.Header.IdLevel1 = 9
		}
	})

	rep, err := New(s).Check(Options{Fix: true})
	require.NoError(t, err)
	assert.Empty(t, rep.Issues)
	assert.Equal(t, 1, rep.Fixed)

	doc := ct.Get(t, s, child.Filename(api.Spanish))
	assert.Equal(t, "es", doc.Header.Language)
	assert.Equal(t, child.IDs(), doc.Header.IDs())

	rep, err = New(s).Check(Options{})
	require.NoError(t, err)
	assert.Empty(t, rep.Issues)
	assert.Zero(t, rep.Fixed)
}

func TestCheck_Quick(t *testing.T) {
	s := seed(t, func(p codepath.Path, lang api.Language, doc *api.Document) {
		if lang == api.English {
			doc.FaultDetailList = append(doc.FaultDetailList, api.Entry{Description: "extra"})
		}
	})

	full, err := New(s).Check(Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, full.Count(Critical))

	quick, err := New(s).Check(Options{Quick: true})
	require.NoError(t, err)
	assert.Equal(t, 1, quick.Count(Critical))
	assert.False(t, quick.OK())
}

func TestIssueString(t *testing.T) {
	i := Issue{Level: "content", Set: "faults_000_255_255_255", File: "a.json", Index: 3, Message: "boom"}
	assert.Equal(t, "[content] a.json[3]: boom", i.String())
	i.File, i.Index = "", -1
	assert.Equal(t, "[content] faults_000_255_255_255: boom", i.String())
}
