package codepath

import (
	"testing"

	"github.com/agentic-research/faultcat/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilenameRoundTrip(t *testing.T) {
	p := Path{0, 3, 12, Unused}
	name := p.Filename(api.Spanish)
	assert.Equal(t, "faults_000_003_012_255_es.json", name)

	got, lang, err := Parse("some/dir/" + name)
	require.NoError(t, err)
	assert.Equal(t, p, got)
	assert.Equal(t, api.Spanish, lang)
}

func TestParse_Rejects(t *testing.T) {
	cases := map[string]string{
		"not json":        "faults_000_255_255_255_fr.txt",
		"no language":     "faults_000_255_255_255.json",
		"bad language":    "faults_000_255_255_255_de.json",
		"short":           "faults_000_255_255_fr.json",
		"gap":             "faults_000_255_004_255_fr.json",
		"out of range":    "faults_000_256_255_255_fr.json",
		"missing prefix":  "fault_000_255_255_255_fr.json",
		"non numeric ids": "faults_000_abc_255_255_fr.json",
	}
	for name, file := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := Parse(file)
			var fe *FilenameError
			assert.ErrorAs(t, err, &fe)
		})
	}
}

func TestChildAndParent(t *testing.T) {
	c, err := Root.Child(4)
	require.NoError(t, err)
	assert.Equal(t, Path{0, 4, Unused, Unused}, c)
	assert.Equal(t, 1, c.Depth())

	gc, err := c.Child(0)
	require.NoError(t, err)
	assert.Equal(t, Path{0, 4, 0, Unused}, gc)

	parent, ok := gc.Parent()
	require.True(t, ok)
	assert.Equal(t, c, parent)

	idx, ok := gc.Index()
	require.True(t, ok)
	assert.Equal(t, 0, idx)

	_, ok = Root.Parent()
	assert.False(t, ok)
}

func TestChild_Limits(t *testing.T) {
	full := Path{0, 1, 2, 3}
	assert.False(t, full.CanExpand())
	_, err := full.Child(0)
	assert.ErrorIs(t, err, ErrMaxDepth)

	_, err = Root.Child(Unused)
	assert.ErrorIs(t, err, ErrIndex)
	_, err = Root.Child(-1)
	assert.ErrorIs(t, err, ErrIndex)
}

func TestAncestors(t *testing.T) {
	p := Path{0, 3, 7, Unused}
	assert.Equal(t, []Path{
		{0, Unused, Unused, Unused},
		{0, 3, Unused, Unused},
		{0, 3, 7, Unused},
	}, p.Ancestors())
	assert.Equal(t, []Path{Root}, Root.Ancestors())
}

func TestParseList(t *testing.T) {
	p, err := ParseList("0,3")
	require.NoError(t, err)
	assert.Equal(t, Path{0, 3, Unused, Unused}, p)
	assert.Equal(t, "0,3,255,255", p.String())

	_, err = ParseList("0,255,3")
	assert.Error(t, err)
	_, err = ParseList("1,2,3,4,5")
	assert.Error(t, err)
}

func TestCode(t *testing.T) {
	assert.Equal(t, "0.5", Root.Code(5))
	assert.Equal(t, "0.3.7.1", Path{0, 3, 7, Unused}.Code(1))
}

func TestFromIDs(t *testing.T) {
	p, err := FromIDs([4]int{0, 2, 255, 255})
	require.NoError(t, err)
	assert.Equal(t, Path{0, 2, Unused, Unused}, p)
	assert.Equal(t, [4]int{0, 2, 255, 255}, p.IDs())

	_, err = FromIDs([4]int{0, 300, 255, 255})
	assert.ErrorIs(t, err, ErrIndex)
}

func TestLess(t *testing.T) {
	a := Path{0, 0, Unused, Unused}
	b := Path{0, 0, 1, Unused}
	c := Path{0, 1, Unused, Unused}
	assert.True(t, Root.Less(a))
	assert.True(t, a.Less(b))
	assert.True(t, b.Less(c))
	assert.False(t, c.Less(b))
	assert.False(t, a.Less(a))
}
