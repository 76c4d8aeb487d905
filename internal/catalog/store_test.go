package catalog_test

import (
	"testing"

	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/faultcat/api"
	"github.com/agentic-research/faultcat/internal/catalog"
	ct "github.com/agentic-research/faultcat/internal/catalog/catalogtest"
	"github.com/agentic-research/faultcat/internal/codepath"
)

func TestStore_WriteReadRoundTrip(t *testing.T) {
	s := ct.Store()
	doc := ct.Doc(codepath.Root, api.French, ct.E{Desc: "Défaut batterie", Exp: true}, ct.E{Desc: ""})
	name := ct.Put(t, s, "", doc)

	got := ct.Get(t, s, name)
	assert.Equal(t, doc.Header, got.Header)
	require.Len(t, got.FaultDetailList, 2)
	assert.True(t, got.FaultDetailList[0].IsExpandable)
	assert.Equal(t, "Défaut batterie", got.FaultDetailList[0].Description)

	raw, err := util.ReadFile(s.FS(), name)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "\n  \"Header\": {")
	assert.Contains(t, string(raw), "Défaut batterie")
}

func TestStore_WriteCreatesDirectories(t *testing.T) {
	s := ct.Store()
	name := ct.Put(t, s, "cat/sub", ct.Doc(codepath.Root, api.English))
	assert.True(t, s.Exists(name))
}

func TestStore_ReadErrors(t *testing.T) {
	s := ct.Store()

	_, err := s.Read("faults_000_255_255_255_fr.json")
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	require.NoError(t, util.WriteFile(s.FS(), "faults_000_255_255_255_fr.json", []byte("{nope"), 0o644))
	_, err = s.Read("faults_000_255_255_255_fr.json")
	var de *catalog.DecodeError
	assert.ErrorAs(t, err, &de)
}

func TestStore_LocateInSubdirectory(t *testing.T) {
	s := ct.Store()
	child := codepath.Path{0, 2, codepath.Unused, codepath.Unused}
	ct.Put(t, s, "", ct.Doc(codepath.Root, api.French))
	want := ct.Put(t, s, "moteurs", ct.Doc(child, api.French))

	name, err := s.Locate(child, api.French)
	require.NoError(t, err)
	assert.Equal(t, want, name)

	_, err = s.Locate(child, api.Spanish)
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	// files written after the index was built are found too
	es := ct.Put(t, s, "moteurs", ct.Doc(child, api.Spanish))
	name, err = s.Locate(child, api.Spanish)
	require.NoError(t, err)
	assert.Equal(t, es, name)
}

func TestStore_LocateSeesFilesWrittenElsewhere(t *testing.T) {
	s := ct.Store()
	child := codepath.Path{0, 3, codepath.Unused, codepath.Unused}
	ct.Put(t, s, "", ct.Doc(codepath.Root, api.French))
	_, err := s.Locate(child, api.English)
	require.ErrorIs(t, err, catalog.ErrNotFound)

	// another process adds the file behind the store's back
	data, err := api.Encode(ct.Doc(child, api.English))
	require.NoError(t, err)
	require.NoError(t, s.FS().MkdirAll("freins", 0o755))
	require.NoError(t, util.WriteFile(s.FS(), "freins/"+child.Filename(api.English), data, 0o644))

	name, err := s.Locate(child, api.English)
	require.NoError(t, err)
	assert.Equal(t, "freins/"+child.Filename(api.English), name)
}

func TestSibling(t *testing.T) {
	name, err := catalog.Sibling("catB/faults_000_255_255_255_fr.json", api.Spanish)
	require.NoError(t, err)
	assert.Equal(t, "catB/faults_000_255_255_255_es.json", name)

	name, err = catalog.Sibling("faults_000_255_255_255_fr.json", api.English)
	require.NoError(t, err)
	assert.Equal(t, "faults_000_255_255_255_en.json", name)

	_, err = catalog.Sibling("notes.json", api.English)
	assert.Error(t, err)
}

func TestStore_ScanGroupsFileSets(t *testing.T) {
	s := ct.Store()
	child := codepath.Path{0, 1, codepath.Unused, codepath.Unused}
	for _, l := range api.Languages {
		ct.Put(t, s, "", ct.Doc(codepath.Root, l))
	}
	ct.Put(t, s, "", ct.Doc(child, api.French))
	ct.Put(t, s, "", ct.Doc(child, api.Spanish))
	require.NoError(t, util.WriteFile(s.FS(), "notes.json", []byte("{}"), 0o644))
	require.NoError(t, util.WriteFile(s.FS(), ".git/faults_000_255_255_255_fr.json", []byte("{}"), 0o644))

	sets, err := s.Scan()
	require.NoError(t, err)
	require.Len(t, sets, 2)

	assert.Equal(t, codepath.Root, sets[0].Path)
	assert.Len(t, sets[0].Files, 3)
	assert.Empty(t, sets[0].Missing())

	assert.Equal(t, child, sets[1].Path)
	assert.Equal(t, []api.Language{api.English}, sets[1].Missing())
	assert.Equal(t, child.Filename(api.English), sets[1].Name(api.English))
	ref, ok := sets[1].Reference()
	require.True(t, ok)
	assert.Equal(t, api.French, ref)
}

func TestStore_Files(t *testing.T) {
	s := ct.Store()
	ct.Put(t, s, "", ct.Doc(codepath.Root, api.French))
	ct.Put(t, s, "", ct.Doc(codepath.Root, api.English))
	files, err := s.Files(api.French)
	require.NoError(t, err)
	assert.Equal(t, []string{codepath.Root.Filename(api.French)}, files)
}
