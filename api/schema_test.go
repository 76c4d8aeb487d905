package api

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `{
  "Header": {"Language": "fr", "Filename": "faults_000_255_255_255_fr.json",
    "IdLevel0": 0, "IdLevel1": 255, "IdLevel2": 255, "IdLevel3": 255, "Author": "x"},
  "LinkedVariable": {"Name": "AGV_FAULT"},
  "Version": 3,
  "FaultDetailList": [
    {"Id": 0, "Description": "Défaut moteur <gauche>", "IsExpandable": true, "FaultId": 12},
    {"Description": null, "IsExpandable": false}
  ],
  "Comment": "kept"
}`

func TestDocument_RoundTrip(t *testing.T) {
	var doc Document
	require.NoError(t, json.Unmarshal([]byte(sampleDoc), &doc))

	assert.Equal(t, "fr", doc.Header.Language)
	assert.Equal(t, [4]int{0, 255, 255, 255}, doc.Header.IDs())
	require.Len(t, doc.FaultDetailList, 2)
	assert.Equal(t, 0, *doc.FaultDetailList[0].Id)
	assert.True(t, doc.FaultDetailList[0].IsExpandable)
	assert.Nil(t, doc.FaultDetailList[1].Id)
	assert.Equal(t, "", doc.FaultDetailList[1].Description)
	assert.True(t, doc.Has(KeyVersion))
	assert.False(t, doc.Has("Missing"))

	out, err := Encode(&doc)
	require.NoError(t, err)
	assert.Equal(t, byte('\n'), out[len(out)-1])

	// HTML-sensitive characters and accents are written verbatim.
	assert.Contains(t, string(out), `"Défaut moteur <gauche>"`)
	assert.Contains(t, string(out), `"Comment": "kept"`)
	assert.Contains(t, string(out), `"FaultId": 12`)
	assert.Contains(t, string(out), `"Author": "x"`)

	var again Document
	require.NoError(t, json.Unmarshal(out, &again))
	assert.Equal(t, doc.Header, again.Header)
	assert.Equal(t, doc.FaultDetailList, again.FaultDetailList)
	assert.JSONEq(t, string(doc.LinkedVariable), string(again.LinkedVariable))
}

func TestDocument_KeyOrder(t *testing.T) {
	doc := Document{
		Header:          Header{Language: "en", Filename: "f"},
		LinkedVariable:  json.RawMessage(`null`),
		Version:         json.RawMessage(`"1"`),
		FaultDetailList: []Entry{{Description: "a"}},
	}
	out, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.Regexp(t, `^\{"Header":.*"LinkedVariable":null,"Version":"1","FaultDetailList":\[`, string(out))
}

func TestDocument_HasOnBuiltDocument(t *testing.T) {
	doc := &Document{}
	assert.True(t, doc.Has(KeyHeader))
	assert.False(t, doc.Has(KeyVersion))
	doc.Version = json.RawMessage(`1`)
	assert.True(t, doc.Has(KeyVersion))
}

func TestDocument_Clone(t *testing.T) {
	id := 4
	doc := &Document{FaultDetailList: []Entry{{Id: &id, Description: "x"}}}
	c := doc.Clone()
	*c.FaultDetailList[0].Id = 9
	c.FaultDetailList[0].Description = "y"
	assert.Equal(t, 4, *doc.FaultDetailList[0].Id)
	assert.Equal(t, "x", doc.FaultDetailList[0].Description)
}

func TestParseLanguage(t *testing.T) {
	l, err := ParseLanguage(" FR ")
	require.NoError(t, err)
	assert.Equal(t, French, l)

	_, err = ParseLanguage("de")
	assert.ErrorIs(t, err, ErrUnknownLanguage)

	assert.Equal(t, []Language{French, Spanish}, English.Others())
}
