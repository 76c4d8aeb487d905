package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/faultcat/api"
	"github.com/agentic-research/faultcat/internal/codepath"
)

func TestValidate_CleanDocument(t *testing.T) {
	doc := NewDocument(codepath.Root, api.French)
	assert.NoError(t, Validate(doc, "sub/faults_000_255_255_255_fr.json"))
}

func TestProblems_HeaderMismatch(t *testing.T) {
	doc := NewDocument(codepath.Root, api.French)
	doc.Header.Language = "en"
	doc.Header.Filename = "other.json"
	doc.Header.IdLevel1 = 4

	problems := Problems(doc, "faults_000_255_255_255_fr.json")
	kinds := make([]string, 0, len(problems))
	for _, p := range problems {
		kinds = append(kinds, p.Kind)
		assert.False(t, p.Structural())
	}
	assert.Equal(t, []string{KindLanguage, KindFilename, KindIDs}, kinds)

	err := Validate(doc, "faults_000_255_255_255_fr.json")
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, KindLanguage, ve.Kind)
}

func TestProblems_MissingKeys(t *testing.T) {
	doc, err := Decode([]byte(`{"Header": {"Language": "fr", "Filename": "faults_000_255_255_255_fr.json",
		"IdLevel0": 0, "IdLevel1": 255, "IdLevel2": 255, "IdLevel3": 255}}`), "x")
	require.NoError(t, err)

	problems := Problems(doc, "faults_000_255_255_255_fr.json")
	require.Len(t, problems, 3)
	for _, p := range problems {
		assert.Equal(t, KindMissingKey, p.Kind)
		assert.True(t, p.Structural())
	}
}

func TestFixHeader(t *testing.T) {
	doc := NewDocument(codepath.Root, api.English)
	name := "faults_000_003_255_255_es.json"

	changed, err := FixHeader(doc, name)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Empty(t, Problems(doc, name))

	changed, err = FixHeader(doc, name)
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = FixHeader(doc, "random.json")
	assert.Error(t, err)
}
