package translate

import (
	"fmt"
	"strings"

	"github.com/agentic-research/faultcat/api"
	"github.com/agentic-research/faultcat/internal/config"
)

// systemPromptTemplate instructs the model. Arguments: source language,
// target language, terminology lines, word order rule.
const systemPromptTemplate = `You are an expert technical translator for industrial automated guided vehicles (AGV).
You translate fault codes and error messages from %s to %s with absolute technical precision.

Rules:
1. Treat spelling variants and typos of the same word as equivalent (e.g. "réinitialisation", "reinitialisation", "Renitialisation").
2. Keep singular and plural consistent with the source.
3. Use this terminology exactly:
%s
4. Positions (left, right, front, rear): %s
5. Keep the capitalisation of the first letter as in the source.
6. Keep numbers, codes, units and placeholders such as {0}, %%s or [x] unchanged.

Answer with the translation only, without quotes or explanation.`

// SystemPrompt renders the instructions for translating src to dst.
func SystemPrompt(src, dst api.Language, terms []config.Term) string {
	var lines strings.Builder
	for _, t := range terms {
		from := t.Word
		if src != api.French {
			from = t.In(src)
		}
		to := t.In(dst)
		if dst == api.French {
			to = t.Word
		}
		if from == "" || to == "" || from == to {
			continue
		}
		fmt.Fprintf(&lines, "   - %q -> %q\n", from, to)
	}
	return fmt.Sprintf(systemPromptTemplate, src.Name(), dst.Name(), strings.TrimRight(lines.String(), "\n"), positionRule(dst))
}

func positionRule(dst api.Language) string {
	switch dst {
	case api.English:
		return `put the position before the object ("left laser scanner", "right front sensor fault")`
	case api.Spanish:
		return `put the position after the object ("escáner láser izquierdo", "fallo del sensor delantero derecho")`
	default:
		return `put the position after the object ("balayeur laser gauche", "défaut capteur avant droit")`
	}
}
