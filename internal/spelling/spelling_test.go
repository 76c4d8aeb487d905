package spelling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/faultcat/api"
	ct "github.com/agentic-research/faultcat/internal/catalog/catalogtest"
	"github.com/agentic-research/faultcat/internal/codepath"
)

func TestCorrect(t *testing.T) {
	c := New(map[string]string{"balayeur": "balayeur", "scrutateur": "balayeur"})
	tests := []struct {
		in, want string
	}{
		{"Defaut moteur", "Défaut moteur"},
		{"ARRET d'urgence", "ARRÊT d'urgence"},
		{"Probleme de cable", "Problème de câble"},
		{"Mouvement AMR non reconnue", "Mouvement AMR non reconnu"},
		{"Version logiciel non reconnue", "Version logiciel non reconnue"},
		{"Erreur : capteur", "Erreur: capteur"},
		{"Vehicule a l'arret", "Véhicule à l'arrêt"},
		{"Commande a distance", "Commande à distance"},
		{"Défaut scrutateur", "Défaut balayeur"},
		// substrings are left alone
		{"Defaultcam", "Defaultcam"},
		{"cameraman", "cameraman"},
		{"", ""},
	}
	for _, tt := range tests {
		got, _ := c.Correct(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, fixes := c.Correct("Defaut : cable")
	assert.Equal(t, []string{`"Defaut" -> "Défaut"`, `"cable" -> "câble"`, "space before colon"}, fixes)
}

func TestRun(t *testing.T) {
	s := ct.Store()
	fr := ct.Put(t, s, "", ct.Doc(codepath.Root, api.French, ct.E{Desc: "Defaut batterie"}, ct.E{Desc: "Arrêt"}))
	ct.Put(t, s, "", ct.Doc(codepath.Root, api.English, ct.E{Desc: "cable fault"}))
	c := New(nil)

	rep, err := c.Run(s, api.French, true)
	require.NoError(t, err)
	assert.Equal(t, []string{fr}, rep.Modified)
	require.Len(t, rep.Corrections, 1)
	assert.Equal(t, 0, rep.Corrections[0].Index)
	assert.Equal(t, "Defaut batterie", ct.Get(t, s, fr).FaultDetailList[0].Description)

	rep, err = c.Run(s, api.French, false)
	require.NoError(t, err)
	assert.Len(t, rep.Corrections, 1)
	assert.Equal(t, "Défaut batterie", ct.Get(t, s, fr).FaultDetailList[0].Description)
	// other languages are untouched
	assert.Equal(t, "cable fault", ct.Get(t, s, codepath.Root.Filename(api.English)).FaultDetailList[0].Description)

	md := rep.Markdown()
	assert.Contains(t, md, "# Spelling report")
	assert.Contains(t, md, "- Corrections: 1")
	assert.Contains(t, md, "## "+fr)
	assert.Contains(t, md, "- index 0: `Defaut batterie` -> `Défaut batterie`")
}
