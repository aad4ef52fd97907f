package filecheck

import (
	"strings"
	"unicode"
)

// latinFold maps accented Latin runes to their base ASCII letter.
var latinFold = map[rune]rune{}

func init() {
	for _, pair := range []struct {
		base  rune
		runes string
	}{
		{'A', "ÀÁÂÃÄÅ"}, {'a', "àáâãäå"},
		{'E', "ÈÉÊË"}, {'e', "èéêë"},
		{'I', "ÌÍÎÏ"}, {'i', "ìíîï"},
		{'O', "ÒÓÔÕÖ"}, {'o', "òóôõö"},
		{'U', "ÙÚÛÜ"}, {'u', "ùúûü"},
		{'C', "Ç"}, {'c', "ç"},
		{'N', "Ñ"}, {'n', "ñ"},
	} {
		for _, r := range pair.runes {
			latinFold[r] = pair.base
		}
	}
}

// SanitizeFilename folds a filename down to printable ASCII. Accented Latin
// characters lose their diacritics; everything else non-ASCII becomes a
// dash.
func SanitizeFilename(filename string) string {
	if filename == "" {
		return ""
	}

	var result strings.Builder
	result.Grow(len(filename))

	for _, r := range filename {
		switch {
		case r < 128 && unicode.IsPrint(r):
			result.WriteRune(r)
		case latinFold[r] != 0:
			result.WriteRune(latinFold[r])
		default:
			result.WriteRune('-')
		}
	}
	return result.String()
}
