package api

import (
	"errors"
	"fmt"
	"strings"
)

// Language is a two-letter catalog language code.
type Language string

const (
	French  Language = "fr"
	English Language = "en"
	Spanish Language = "es"
)

// ErrUnknownLanguage is returned for codes outside the supported set.
var ErrUnknownLanguage = errors.New("unknown language")

// Languages is the supported set in canonical order. The first existing
// language in this order is the reference when files must be created.
var Languages = []Language{French, English, Spanish}

// ParseLanguage normalises and validates a language code.
func ParseLanguage(s string) (Language, error) {
	l := Language(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Languages {
		if l == known {
			return l, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownLanguage, s)
}

// Others returns the supported languages except l, in canonical order.
func (l Language) Others() []Language {
	out := make([]Language, 0, len(Languages)-1)
	for _, other := range Languages {
		if other != l {
			out = append(out, other)
		}
	}
	return out
}

// Name returns the English name of the language, used in prompts.
func (l Language) Name() string {
	switch l {
	case French:
		return "French"
	case English:
		return "English"
	case Spanish:
		return "Spanish"
	}
	return string(l)
}
