package ingest

import (
	"regexp"
	"strings"
)

// LiteralSeparator separates several language variants in one untagged cell.
const LiteralSeparator = "|"

var languageTag = regexp.MustCompile(`^[A-Za-z]{1,8}(-[A-Za-z0-9]{1,8})*$`)

// Literal is one language-tagged text.
type Literal struct {
	Text     string
	Language string
}

// ParseLiteral splits an inline "text@lang" value. Values without a valid
// trailing tag get fallback as language.
func ParseLiteral(value, fallback string) Literal {
	value = strings.TrimSpace(value)
	if i := strings.LastIndex(value, "@"); i > 0 {
		text, lang := strings.TrimSpace(value[:i]), value[i+1:]
		if text != "" && languageTag.MatchString(lang) {
			return Literal{Text: text, Language: lang}
		}
	}
	return Literal{Text: value, Language: fallback}
}

// ParseCell reads the annotation values of one cell. A cell under a
// language-tagged column is a single literal in that language. An untagged
// cell may hold several "|"-separated variants, each with an optional inline
// tag.
func ParseCell(cell, columnLanguage, fallback string) []Literal {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return nil
	}
	if columnLanguage != "" {
		return []Literal{{Text: cell, Language: columnLanguage}}
	}
	var out []Literal
	for _, part := range strings.Split(cell, LiteralSeparator) {
		if strings.TrimSpace(part) == "" {
			continue
		}
		out = append(out, ParseLiteral(part, fallback))
	}
	return out
}
