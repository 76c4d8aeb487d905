// Package spelling fixes common accent and typography mistakes in French
// descriptions.
package spelling

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/agentic-research/faultcat/api"
	"github.com/agentic-research/faultcat/internal/catalog"
	"github.com/agentic-research/faultcat/internal/metrics"
)

// Dictionary maps unaccented or misspelled lower-case words to their
// correction. Capitalized and upper-case forms are derived.
var Dictionary = map[string]string{
	"arret":             "arrêt",
	"arrets":            "arrêts",
	"arrete":            "arrête",
	"enonce":            "énoncé",
	"detecte":           "détecté",
	"detectee":          "détectée",
	"desynchronisation": "désynchronisation",
	"defaut":            "défaut",
	"defauts":           "défauts",
	"echec":             "échec",
	"echoue":            "échoué",
	"donnee":            "donnée",
	"donnees":           "données",
	"verifier":          "vérifier",
	"verification":      "vérification",
	"detecteur":         "détecteur",
	"detecteurs":        "détecteurs",
	"peripherique":      "périphérique",
	"peripheriques":     "périphériques",
	"cable":             "câble",
	"cables":            "câbles",
	"controle":          "contrôle",
	"controles":         "contrôles",
	"probleme":          "problème",
	"problemes":         "problèmes",
	"systeme":           "système",
	"systemes":          "systèmes",
	"memoire":           "mémoire",
	"memoires":          "mémoires",
	"parametre":         "paramètre",
	"parametres":        "paramètres",
	"temperature":       "température",
	"temperatures":      "températures",
	"camera":            "caméra",
	"cameras":           "caméras",
	"numero":            "numéro",
	"numeros":           "numéros",
	"reponse":           "réponse",
	"reponses":          "réponses",
	"requete":           "requête",
	"requetes":          "requêtes",
	"creee":             "créée",
	"desactivee":        "désactivée",
	"debloquee":         "débloquée",
	"decharge":          "décharge",
	"decharges":         "décharges",
	"securite":          "sécurité",
	"vehicule":          "véhicule",
	"vehicules":         "véhicules",
	"metre":             "mètre",
	"metres":            "mètres",
	"centimetre":        "centimètre",
	"centimetres":       "centimètres",
	"degre":             "degré",
	"degres":            "degrés",
}

var (
	word = regexp.MustCompile(`\p{L}+`)

	// "Mouvement AMR non reconnue": the noun is masculine.
	recognized = regexp.MustCompile(`(\b[Mm]ouvement\s+\S+\s+non\s+)reconnue\b`)
	// "a distance", "a l'arrêt": the preposition takes a grave accent.
	preposition = regexp.MustCompile(`(^|\s)([aA]) (distance\b|l'arrêt\b)`)
	spaceColon  = regexp.MustCompile(`\s+:`)
)

// Checker applies the dictionary and the phrase rules.
type Checker struct {
	words map[string]string
}

// New returns a checker with the built-in dictionary plus extra entries.
// Extra keys are matched case-insensitively like built-in ones.
func New(extra map[string]string) *Checker {
	title := cases.Title(language.French)
	upper := cases.Upper(language.French)
	c := &Checker{words: make(map[string]string, 3*(len(Dictionary)+len(extra)))}
	add := func(wrong, right string) {
		wrong = strings.ToLower(wrong)
		c.words[wrong] = right
		c.words[title.String(wrong)] = title.String(right)
		c.words[upper.String(wrong)] = upper.String(right)
	}
	for k, v := range Dictionary {
		add(k, v)
	}
	for k, v := range extra {
		add(k, v)
	}
	return c
}

// Correct returns the corrected text and a description of each applied fix.
func (c *Checker) Correct(text string) (string, []string) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}
	var fixes []string
	out := word.ReplaceAllStringFunc(text, func(w string) string {
		if right, ok := c.words[w]; ok {
			fixes = append(fixes, fmt.Sprintf("%q -> %q", w, right))
			return right
		}
		return w
	})
	for _, r := range []struct {
		name string
		re   *regexp.Regexp
		repl string
	}{
		{"non reconnu", recognized, "${1}reconnu"},
		{"space before colon", spaceColon, ":"},
	} {
		if next := r.re.ReplaceAllString(out, r.repl); next != out {
			fixes = append(fixes, r.name)
			out = next
		}
	}
	if next := preposition.ReplaceAllStringFunc(out, func(m string) string {
		return strings.Replace(strings.Replace(m, "a ", "à ", 1), "A ", "À ", 1)
	}); next != out {
		fixes = append(fixes, "à")
		out = next
	}
	return out, fixes
}

// Correction is one changed description.
type Correction struct {
	File   string
	Index  int
	Before string
	After  string
	Fixes  []string
}

// Report summarizes a Run.
type Report struct {
	Files       int
	Modified    []string
	Corrections []Correction
	Errors      []error
}

// Run corrects every description of every file in lang. With dryRun no file
// is written.
func (c *Checker) Run(store *catalog.Store, lang api.Language, dryRun bool) (*Report, error) {
	files, err := store.Files(lang)
	if err != nil {
		return nil, err
	}
	rep := &Report{Files: len(files)}
	for _, name := range files {
		doc, err := store.Read(name)
		if err != nil {
			rep.Errors = append(rep.Errors, err)
			log.Warn().Err(err).Str("file", name).Msg("skipping unreadable file")
			continue
		}
		changed := false
		for i := range doc.FaultDetailList {
			e := &doc.FaultDetailList[i]
			after, fixes := c.Correct(e.Description)
			if after == e.Description {
				continue
			}
			rep.Corrections = append(rep.Corrections, Correction{
				File: name, Index: i, Before: e.Description, After: after, Fixes: fixes,
			})
			e.Description = after
			changed = true
		}
		if !changed {
			continue
		}
		rep.Modified = append(rep.Modified, name)
		if dryRun {
			continue
		}
		if err := store.Write(name, doc); err != nil {
			rep.Errors = append(rep.Errors, err)
			continue
		}
		metrics.FilesWrittenTotal.WithLabelValues("spelling").Inc()
	}
	return rep, nil
}

// Markdown renders the report grouped by file.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("# Spelling report\n\n")
	fmt.Fprintf(&b, "- Files checked: %d\n", r.Files)
	fmt.Fprintf(&b, "- Files modified: %d\n", len(r.Modified))
	fmt.Fprintf(&b, "- Corrections: %d\n", len(r.Corrections))

	byFile := make(map[string][]Correction)
	for _, c := range r.Corrections {
		byFile[c.File] = append(byFile[c.File], c)
	}
	names := make([]string, 0, len(byFile))
	for name := range byFile {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, "\n## %s\n\n", name)
		for _, c := range byFile[name] {
			fmt.Fprintf(&b, "- index %d: `%s` -> `%s`", c.Index, c.Before, c.After)
			if len(c.Fixes) > 0 {
				fmt.Fprintf(&b, " (%s)", strings.Join(c.Fixes, ", "))
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}
