package region

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/width"
)

// yoReplacer folds the Cyrillic letter yo onto ye. Users type both spellings
// of the same country names and dictionaries carry only one of them.
var yoReplacer = strings.NewReplacer("ё", "е", "Ё", "Е")

// Normalize converts a raw word into the key used for matching.
// Steps: trim, fold ё to е, fold full-width forms, upper-case.
// Every input produces a result; empty input yields an empty string.
func Normalize(word string) string {
	word = strings.TrimSpace(word)
	if word == "" {
		return ""
	}
	word = yoReplacer.Replace(word)
	word = width.Fold.String(word)
	// cases.Caser is stateful, so each call gets its own.
	return cases.Upper(language.Und).String(word)
}

// Tokenize splits a chat message into words. Commas, semicolons and any
// whitespace separate words; empty fields are dropped. Words keep their
// original spelling so they can be echoed back to the user.
func Tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		switch r {
		case ',', '，', ';', '；', '、':
			return true
		}
		return unicode.IsSpace(r)
	})
}

// eligible reports whether a normalized token may be scored at all.
// Tokens shorter than two runes or containing a digit are never region names.
func eligible(normalized string) bool {
	n := 0
	for _, r := range normalized {
		if unicode.IsDigit(r) {
			return false
		}
		n++
	}
	return n >= 2
}
