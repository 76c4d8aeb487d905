package navigator

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/faultcat/api"
	"github.com/agentic-research/faultcat/internal/catalog"
	ct "github.com/agentic-research/faultcat/internal/catalog/catalogtest"
	"github.com/agentic-research/faultcat/internal/codepath"
	"github.com/agentic-research/faultcat/internal/logger"
)

var (
	battery = codepath.Path{0, 0, codepath.Unused, codepath.Unused}
	cells   = codepath.Path{0, 0, 1, codepath.Unused}
)

func seed(t *testing.T) *catalog.Store {
	t.Helper()
	s := ct.Store()
	for _, lang := range api.Languages {
		ct.Put(t, s, "", ct.Doc(codepath.Root, lang, ct.E{Desc: "Batterie " + string(lang), Exp: true}, ct.E{Desc: "Arrêt d'urgence"}))
		ct.Put(t, s, "bat", ct.Doc(battery, lang, ct.E{Desc: "Tension"}, ct.E{Desc: "Cellules", Exp: true}))
	}
	ct.Put(t, s, "bat", ct.Doc(cells, api.French, ct.E{Desc: "Cellule 1 défectueuse"}))
	return s
}

func ptr[T any](v T) *T { return &v }

func TestColumns(t *testing.T) {
	n := New(seed(t), nil)

	cols, err := n.Columns(cells, api.French)
	require.NoError(t, err)
	require.Len(t, cols, 3)
	assert.Equal(t, 0, cols[0].Selected)
	assert.Equal(t, 1, cols[1].Selected)
	assert.Equal(t, -1, cols[2].Selected)
	assert.Equal(t, 2, cols[2].Level)
	assert.Equal(t, "0,0,1,255", cols[2].ID)
	assert.Equal(t, "bat/"+cells.Filename(api.French), cols[2].Filename)
	assert.Equal(t, "0.0.1.0", cols[2].Entries[0].Code)

	// the English cells file does not exist: chain stops after two columns
	cols, err = n.Columns(cells, api.English)
	assert.ErrorIs(t, err, catalog.ErrNotFound)
	assert.Len(t, cols, 2)
}

func TestSelect(t *testing.T) {
	n := New(seed(t), nil)

	child, col, err := n.Select(codepath.Root, 0, api.Spanish)
	require.NoError(t, err)
	assert.Equal(t, battery, child)
	assert.Equal(t, "Tension", col.Entries[0].Description)

	_, _, err = n.Select(codepath.Root, 1, api.Spanish)
	assert.ErrorIs(t, err, ErrNotExpandable)

	_, _, err = n.Select(codepath.Root, 5, api.Spanish)
	assert.ErrorIs(t, err, ErrIndex)

	child, _, err = n.Select(battery, 1, api.Spanish)
	assert.ErrorIs(t, err, catalog.ErrNotFound)
	assert.Equal(t, cells, child)
}

func TestApply(t *testing.T) {
	s := seed(t)
	var changes bytes.Buffer
	n := New(s, logger.NewChangeLog(&changes, "edit-run"))

	res, err := n.Apply(Edit{Path: battery, Lang: api.English, Index: 0, Description: ptr("Voltage")})
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Empty(t, res.Propagated)
	assert.Equal(t, "Voltage", ct.Get(t, s, "bat/"+battery.Filename(api.English)).FaultDetailList[0].Description)
	assert.Contains(t, changes.String(), `"new":"Voltage"`)

	res, err = n.Apply(Edit{Path: battery, Lang: api.English, Index: 0, Expandable: ptr(true)})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"bat/" + battery.Filename(api.French),
		"bat/" + battery.Filename(api.Spanish),
	}, res.Propagated)
	for _, lang := range api.Languages {
		doc := ct.Get(t, s, "bat/"+battery.Filename(lang))
		assert.True(t, doc.FaultDetailList[0].IsExpandable, lang)
	}
	// descriptions of siblings are untouched
	assert.Equal(t, "Tension", ct.Get(t, s, "bat/"+battery.Filename(api.French)).FaultDetailList[0].Description)

	res, err = n.Apply(Edit{Path: battery, Lang: api.English, Index: 0, Description: ptr("Voltage")})
	require.NoError(t, err)
	assert.False(t, res.Changed)

	_, err = n.Apply(Edit{Path: battery, Lang: api.English, Index: 9, Description: ptr("x")})
	assert.ErrorIs(t, err, ErrIndex)
}

func TestApply_PropagatesWithinDirectory(t *testing.T) {
	s := seed(t)
	// same path in another category directory, sorted before bat/
	other := ct.Put(t, s, "aaa", ct.Doc(battery, api.French, ct.E{Desc: "Autre"}, ct.E{Desc: "Autre"}))
	n := New(s, nil)

	res, err := n.Apply(Edit{Path: battery, Lang: api.English, Index: 0, Expandable: ptr(true)})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"bat/" + battery.Filename(api.French),
		"bat/" + battery.Filename(api.Spanish),
	}, res.Propagated)
	assert.False(t, ct.Get(t, s, other).FaultDetailList[0].IsExpandable)
}

func TestSearch(t *testing.T) {
	n := New(seed(t), nil)

	hits, err := n.Search("ARRET", api.French)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "0.1", hits[0].Code)
	assert.Equal(t, "Arrêt d'urgence", hits[0].Description)

	hits, err = n.Search("cellule", api.French)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "0.0.1", hits[0].Code)
	assert.Equal(t, "0.0.1.0", hits[1].Code)

	hits, err = n.Search("  ", api.French)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestFold(t *testing.T) {
	assert.Equal(t, "arret d'urgence", Fold("Arrêt d'Urgence"))
	assert.Equal(t, "bateria", Fold("BATERÍA"))
}
