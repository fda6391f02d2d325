package address

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// abbreviations maps whole street-type, unit and directional tokens to their
// standard short form. Values must never appear as keys so that a second pass
// is a no-op.
var abbreviations = map[string]string{
	"street":    "st",
	"avenue":    "ave",
	"boulevard": "blvd",
	"drive":     "dr",
	"lane":      "ln",
	"court":     "ct",
	"place":     "pl",
	"terrace":   "ter",
	"parkway":   "pkwy",
	"apartment": "apt",
	"suite":     "ste",
	"floor":     "fl",
	"building":  "bldg",
	"north":     "n",
	"south":     "s",
	"east":      "e",
	"west":      "w",
}

// unitDesignators are leading tokens that carry no identity in a unit string
// ("Apt 4B" and "4B" are the same unit).
var unitDesignators = map[string]bool{
	"apt":  true,
	"unit": true,
	"ste":  true,
	"no":   true,
}

// punctuation is removed outright; hyphens are kept so "4-B" stays distinct
// from "4b".
var punctuation = strings.NewReplacer(
	".", "",
	",", "",
	";", "",
	":", "",
	"!", "",
	"?", "",
	"\"", "",
	"'", "",
	"`", "",
	"‘", "",
	"’", "",
	"“", "",
	"”", "",
)

// Normalize canonicalizes a free-text street or unit string into a comparable
// form. Normalize(Normalize(s)) == Normalize(s) for every s.
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}
	// cases.Caser is not safe for concurrent use, so each call gets its own.
	lowered := cases.Lower(language.Und).String(raw)
	stripped := punctuation.Replace(lowered)

	tokens := strings.Fields(stripped)
	for i, tok := range tokens {
		tokens[i] = abbreviate(tok)
	}
	return strings.Join(tokens, " ")
}

// NormalizeUnit normalizes a unit designation and drops leading designator
// tokens, so "Apt 4B", "Unit #4B" and "4B" all become "4b". An empty result
// means the record has no unit. A unit made only of designators ("Apt",
// "Unit", "#") keeps them, so it never collides with a unit-less record.
func NormalizeUnit(raw string) string {
	tokens := strings.Fields(Normalize(raw))
	if len(tokens) == 0 {
		return ""
	}
	var designators []string
	for len(tokens) > 0 {
		first := abbreviate(strings.TrimLeft(tokens[0], "#"))
		if first == "" || unitDesignators[first] {
			if first != "" {
				designators = append(designators, first)
			}
			tokens = tokens[1:]
			continue
		}
		tokens[0] = first
		break
	}
	if len(tokens) == 0 {
		if len(designators) == 0 {
			return "#"
		}
		return strings.Join(designators, " ")
	}
	return strings.Join(tokens, " ")
}

func abbreviate(tok string) string {
	if abbr, ok := abbreviations[tok]; ok {
		return abbr
	}
	return tok
}
