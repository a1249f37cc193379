package corpus

import (
	"strings"
	"unicode"
)

// Tokenize splits a title into lowercased index words. Runs of letters,
// digits and underscores are words, everything else separates them. Titles
// are short, so there is no stopword or length filtering: single-letter
// titles ("E", "X") must stay findable.
func Tokenize(text string) []string {
	var words []string
	var current strings.Builder

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			current.WriteRune(unicode.ToLower(r))
		} else {
			if current.Len() > 0 {
				words = append(words, current.String())
				current.Reset()
			}
		}
	}
	if current.Len() > 0 {
		words = append(words, current.String())
	}

	return words
}
