package domain

import "time"

// Record is one stored document.
type Record struct {
	// Filename is the document's relative path inside the content tree.
	// Empty means it is derivable from Title and was elided at build time.
	Filename string   `json:"f,omitempty"`
	Title    string   `json:"t"`
	Payload  []string `json:"p,omitempty"`
	// Score is the rank value the document was ordered by during the build.
	Score float64 `json:"s"`
}

// Entry is one build-time input: the words indexed for a document, the score
// used for descending ordering, and the document record itself.
type Entry struct {
	Words  []string
	Score  float64
	Record Record
}

// Source yields build entries in corpus order. Next returns ok=false once
// the source is exhausted; an error aborts the build.
type Source interface {
	Next() (entry Entry, ok bool, err error)
}

// BuildStats is what a finished build reports back to the caller.
type BuildStats struct {
	Documents int           // records stored
	Tokens    int           // distinct indexed words
	Indexed   int           // (word, document) occurrence pairs
	Elapsed   time.Duration // wall clock for the whole build
}
