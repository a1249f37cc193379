// Package filename derives content-tree paths from document titles. Build
// and query share it: the builder elides filenames that match the derivation,
// the reader recomputes them on the way out.
package filename

import (
	"errors"
	"path"
	"strings"
	"unicode"
)

// ErrEmptyTitle reports a title no filename can be derived from.
var ErrEmptyTitle = errors.New("filename: title must have at least one character")

// FromTitle returns the canonical file name for a title: spaces become
// underscores, the first rune is uppercased, the rest stays untouched.
func FromTitle(title string) (string, error) {
	runes := []rune(strings.ReplaceAll(title, " ", "_"))
	if len(runes) == 0 {
		return "", ErrEmptyTitle
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes), nil
}

// Shard places a name in the fixed three-level directory layout of the
// content tree: one level per leading rune, the last rune repeating when the
// name is shorter ("Ab" -> "A/b/b/Ab"). Always slash-separated.
func Shard(name string) string {
	runes := []rune(name)
	var levels [3]string
	for i := range levels {
		j := i
		if j >= len(runes) {
			j = len(runes) - 1
		}
		levels[i] = string(runes[j])
	}
	return path.Join(levels[0], levels[1], levels[2], name)
}

// Path derives the sharded relative path for a title.
func Path(title string) (string, error) {
	name, err := FromTitle(title)
	if err != nil {
		return "", err
	}
	return Shard(name), nil
}
