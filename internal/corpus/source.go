// Package corpus feeds document entries to the index builder. A source is
// a pull iterator so the builder does not care whether entries come from
// memory, a directory of files, or something else.
package corpus

import "encindex/internal/domain"

// SliceSource serves entries from memory, in order. Useful for tests and
// for programs that assemble their corpus themselves.
type SliceSource struct {
	entries []domain.Entry
	next    int
}

func NewSliceSource(entries ...domain.Entry) *SliceSource {
	return &SliceSource{entries: entries}
}

func (s *SliceSource) Next() (domain.Entry, bool, error) {
	if s.next >= len(s.entries) {
		return domain.Entry{}, false, nil
	}
	e := s.entries[s.next]
	s.next++
	return e, true, nil
}
