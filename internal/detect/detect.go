// Package detect classifies descriptions: technical codes that must not be
// translated, the language a text is written in, and LLM refusals that
// leaked into a catalog.
package detect

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/abadojack/whatlanggo"

	"github.com/agentic-research/faultcat/api"
)

var technicalCode = regexp.MustCompile(`^[A-Z0-9 .:_/-]{1,10}$`)

// DefaultSuspicious are phrases that mark a model answer instead of a
// translation.
var DefaultSuspicious = []string{
	"sorry",
	"lo siento",
	"i can't",
	"i cannot",
	"je ne peux pas",
	"no puedo",
	"as an ai",
	"translation:",
	"traduction :",
}

// Minimum text size before language detection is trusted.
const (
	minLetters = 12
	minWords   = 3
)

var whitelist = whatlanggo.Options{
	Whitelist: map[whatlanggo.Lang]bool{
		whatlanggo.Fra: true,
		whatlanggo.Eng: true,
		whatlanggo.Spa: true,
	},
}

// Detector holds the compiled rules. The zero value is not usable; use New.
type Detector struct {
	extra      []*regexp.Regexp
	suspicious []string
}

// New compiles extra technical-code patterns and appends extra suspicious
// phrases to the defaults.
func New(technicalPatterns, suspicious []string) (*Detector, error) {
	d := &Detector{suspicious: append([]string(nil), DefaultSuspicious...)}
	for _, p := range technicalPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("technical pattern %q: %w", p, err)
		}
		d.extra = append(d.extra, re)
	}
	for _, s := range suspicious {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			d.suspicious = append(d.suspicious, s)
		}
	}
	return d, nil
}

// Default returns a detector with the built-in rules only.
func Default() *Detector {
	d, _ := New(nil, nil)
	return d
}

// IsTechnicalCode reports whether s is a short code copied verbatim across
// languages: digits, or a short upper-case token such as "E-042" or "PLC 3".
func (d *Detector) IsTechnicalCode(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	if isDigits(s) || technicalCode.MatchString(s) {
		return true
	}
	for _, re := range d.extra {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// Language guesses the language of s among fr, en, es. ok is false when the
// text is too short or the guess is unreliable.
func (d *Detector) Language(s string) (lang api.Language, confidence float64, ok bool) {
	if letters(s) < minLetters || len(strings.Fields(s)) < minWords {
		return "", 0, false
	}
	info := whatlanggo.DetectWithOptions(s, whitelist)
	l, err := api.ParseLanguage(info.Lang.Iso6391())
	if err != nil {
		return "", info.Confidence, false
	}
	return l, info.Confidence, info.IsReliable()
}

// Mismatch reports whether s is confidently written in a language other than
// want.
func (d *Detector) Mismatch(s string, want api.Language) bool {
	got, _, ok := d.Language(s)
	return ok && got != want
}

// Suspicious returns the first refusal phrase found in s.
func (d *Detector) Suspicious(s string) (string, bool) {
	lower := strings.ToLower(s)
	for _, phrase := range d.suspicious {
		if strings.Contains(lower, phrase) {
			return phrase, true
		}
	}
	return "", false
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func letters(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			n++
		}
	}
	return n
}
