package index

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"reflect"
	"sort"
	"strings"
	"testing"

	"encindex/internal/corpus"
	"encindex/internal/docset"
	"encindex/internal/domain"
	"encindex/internal/filename"
	"encindex/internal/store"
)

// buildIndex builds an index from entries in a temp dir and opens a reader
// on it. Empty engine means the default one.
func buildIndex(t *testing.T, engine string, entries ...domain.Entry) *Reader {
	t.Helper()
	dir := t.TempDir()
	st, err := store.Create(engine, dir)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Build(st, corpus.NewSliceSource(entries...), BuildOptions{}); err != nil {
		st.Close()
		t.Fatal(err)
	}
	if err := st.Close(); err != nil {
		t.Fatal(err)
	}
	r, err := Open(engine, dir, ReaderOptions{})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

// The corpus used across several tests: three documents with distinct
// scores, input order deliberately not the score order.
func threeDocs() []domain.Entry {
	return []domain.Entry{
		{Words: []string{"cat", "dog"}, Score: 10, Record: domain.Record{Title: "Cat"}},
		{Words: []string{"dog", "bird"}, Score: 5, Record: domain.Record{Title: "Dog"}},
		{Words: []string{"cat"}, Score: 20, Record: domain.Record{Title: "Cat2"}},
	}
}

func TestBuildEndToEnd(t *testing.T) {
	r := buildIndex(t, "", threeDocs()...)

	keys, err := r.Keys()
	if err != nil {
		t.Fatal(err)
	}
	sort.Strings(keys)
	if want := []string{"bird", "cat", "dog"}; !reflect.DeepEqual(keys, want) {
		t.Fatalf("Keys() = %v, want %v", keys, want)
	}

	// Descending score order decides document ids.
	for docid, want := range []struct {
		title string
		score float64
	}{
		{"Cat2", 20},
		{"Cat", 10},
		{"Dog", 5},
	} {
		rec, ok, err := r.GetDoc(docid)
		if err != nil || !ok {
			t.Fatalf("GetDoc(%d) = %v, %v, %v", docid, rec, ok, err)
		}
		if rec.Title != want.title || rec.Score != want.score {
			t.Errorf("GetDoc(%d) = %q score %v, want %q score %v",
				docid, rec.Title, rec.Score, want.title, want.score)
		}
	}

	ds, ok, err := r.Postings("cat")
	if err != nil || !ok {
		t.Fatalf("Postings(cat) = _, %v, %v", ok, err)
	}
	if docs := ds.Docs(); !reflect.DeepEqual(docs, []int{0, 1}) {
		t.Fatalf("cat docs = %v, want [0 1]", docs)
	}
	for _, docid := range []int{0, 1} {
		if pos := ds.Positions(docid); !reflect.DeepEqual(pos, []int{0}) {
			t.Errorf("cat positions in doc %d = %v, want [0]", docid, pos)
		}
	}

	ds, ok, err = r.Postings("dog")
	if err != nil || !ok {
		t.Fatalf("Postings(dog) = _, %v, %v", ok, err)
	}
	if docs := ds.Docs(); !reflect.DeepEqual(docs, []int{1, 2}) {
		t.Fatalf("dog docs = %v, want [1 2]", docs)
	}
	if pos := ds.Positions(1); !reflect.DeepEqual(pos, []int{1}) {
		t.Errorf("dog positions in doc 1 = %v, want [1]", pos)
	}
	if pos := ds.Positions(2); !reflect.DeepEqual(pos, []int{0}) {
		t.Errorf("dog positions in doc 2 = %v, want [0]", pos)
	}
}

func TestBuildStats(t *testing.T) {
	dir := t.TempDir()
	st, err := store.Create("", dir)
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	stats, err := Build(st, corpus.NewSliceSource(threeDocs()...), BuildOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if stats.Documents != 3 {
		t.Errorf("Documents = %d, want 3", stats.Documents)
	}
	if stats.Tokens != 3 {
		t.Errorf("Tokens = %d, want 3", stats.Tokens)
	}
	// cat is in two documents, dog in two, bird in one.
	if stats.Indexed != 5 {
		t.Errorf("Indexed = %d, want 5", stats.Indexed)
	}
	if stats.Elapsed <= 0 {
		t.Errorf("Elapsed = %v, want > 0", stats.Elapsed)
	}
}

func TestBuildStableTies(t *testing.T) {
	entries := []domain.Entry{
		{Words: []string{"first"}, Score: 1, Record: domain.Record{Title: "First"}},
		{Words: []string{"second"}, Score: 1, Record: domain.Record{Title: "Second"}},
		{Words: []string{"third"}, Score: 1, Record: domain.Record{Title: "Third"}},
	}
	r := buildIndex(t, "", entries...)

	for docid, want := range []string{"First", "Second", "Third"} {
		rec, ok, err := r.GetDoc(docid)
		if err != nil || !ok {
			t.Fatalf("GetDoc(%d) = _, %v, %v", docid, ok, err)
		}
		if rec.Title != want {
			t.Errorf("GetDoc(%d) = %q, want %q (encounter order broken)", docid, rec.Title, want)
		}
	}
}

func TestBuildPaginationBoundary(t *testing.T) {
	entries := make([]domain.Entry, PageSize+1)
	for i := range entries {
		entries[i] = domain.Entry{
			Words:  []string{fmt.Sprintf("w%03d", i)},
			Score:  1,
			Record: domain.Record{Title: fmt.Sprintf("Doc %d", i)},
		}
	}
	r := buildIndex(t, "", entries...)

	n, err := r.Len()
	if err != nil {
		t.Fatal(err)
	}
	if n != PageSize+1 {
		t.Fatalf("Len() = %d, want %d", n, PageSize+1)
	}

	rec, ok, err := r.GetDoc(PageSize - 1)
	if err != nil || !ok || rec.Title != fmt.Sprintf("Doc %d", PageSize-1) {
		t.Fatalf("GetDoc(%d) = %q, %v, %v", PageSize-1, rec.Title, ok, err)
	}
	rec, ok, err = r.GetDoc(PageSize)
	if err != nil || !ok || rec.Title != fmt.Sprintf("Doc %d", PageSize) {
		t.Fatalf("GetDoc(%d) = %q, %v, %v", PageSize, rec.Title, ok, err)
	}
	if _, ok, err := r.GetDoc(PageSize + 1); err != nil || ok {
		t.Fatalf("GetDoc(%d) = _, %v, %v, want absent", PageSize+1, ok, err)
	}

	recs, ok, err := r.GetPage(0)
	if err != nil || !ok || len(recs) != PageSize {
		t.Fatalf("GetPage(0): %d records, %v, %v", len(recs), ok, err)
	}
	recs, ok, err = r.GetPage(1)
	if err != nil || !ok || len(recs) != 1 {
		t.Fatalf("GetPage(1): %d records, %v, %v", len(recs), ok, err)
	}
	if _, ok, err := r.GetPage(2); err != nil || ok {
		t.Fatalf("GetPage(2) = _, %v, %v, want absent", ok, err)
	}
}

func TestBuildFilenameNormalization(t *testing.T) {
	derived, err := filename.Path("Solar System")
	if err != nil {
		t.Fatal(err)
	}
	entries := []domain.Entry{
		{
			Words:  []string{"solar", "system"},
			Score:  2,
			Record: domain.Record{Filename: derived, Title: "Solar System"},
		},
		{
			Words:  []string{"pluto"},
			Score:  1,
			Record: domain.Record{Filename: "archive/custom.html", Title: "Pluto"},
		},
	}
	r := buildIndex(t, "", entries...)

	// The stored form drops the derivable filename and keeps the custom one.
	var stored []string
	err = r.Values(func(rec domain.Record) error {
		stored = append(stored, rec.Filename)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"", "archive/custom.html"}; !reflect.DeepEqual(stored, want) {
		t.Fatalf("stored filenames = %q, want %q", stored, want)
	}

	// GetDoc reconstructs the elided filename.
	rec, ok, err := r.GetDoc(0)
	if err != nil || !ok {
		t.Fatalf("GetDoc(0) = _, %v, %v", ok, err)
	}
	if rec.Filename != derived {
		t.Errorf("GetDoc(0).Filename = %q, want %q", rec.Filename, derived)
	}
	rec, ok, err = r.GetDoc(1)
	if err != nil || !ok {
		t.Fatalf("GetDoc(1) = _, %v, %v", ok, err)
	}
	if rec.Filename != "archive/custom.html" {
		t.Errorf("GetDoc(1).Filename = %q, want the custom value", rec.Filename)
	}
}

func TestBuildPositionLimit(t *testing.T) {
	words := make([]string, 256)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", i)
	}

	dir := t.TempDir()
	st, err := store.Create("", dir)
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	src := corpus.NewSliceSource(domain.Entry{
		Words:  words,
		Score:  1,
		Record: domain.Record{Title: "Overlong"},
	})
	if _, err := Build(st, src, BuildOptions{}); !errors.Is(err, docset.ErrInvalidPosition) {
		t.Fatalf("Build err = %v, want ErrInvalidPosition", err)
	}
}

func TestBuildMaxWords(t *testing.T) {
	// 255 words puts the last one at position 254, the highest legal one.
	words := make([]string, 255)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", i)
	}
	r := buildIndex(t, "", domain.Entry{
		Words:  words,
		Score:  1,
		Record: domain.Record{Title: "Long"},
	})

	ds, ok, err := r.Postings("w254")
	if err != nil || !ok {
		t.Fatalf("Postings(w254) = _, %v, %v", ok, err)
	}
	if pos := ds.Positions(0); !reflect.DeepEqual(pos, []int{254}) {
		t.Fatalf("w254 positions = %v, want [254]", pos)
	}
}

func TestBuildEmptyTitle(t *testing.T) {
	dir := t.TempDir()
	st, err := store.Create("", dir)
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	src := corpus.NewSliceSource(domain.Entry{Words: []string{"x"}, Score: 1})
	if _, err := Build(st, src, BuildOptions{}); !errors.Is(err, filename.ErrEmptyTitle) {
		t.Fatalf("Build err = %v, want ErrEmptyTitle", err)
	}
}

func TestBuildNaNScore(t *testing.T) {
	dir := t.TempDir()
	st, err := store.Create("", dir)
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	nan := domain.Entry{
		Words:  []string{"x"},
		Score:  math.NaN(),
		Record: domain.Record{Title: "Bad"},
	}
	if _, err := Build(st, corpus.NewSliceSource(nan), BuildOptions{}); err == nil {
		t.Fatal("expected error for NaN score")
	}
}

func TestBuildOrderedWarnsOutOfOrder(t *testing.T) {
	entries := []domain.Entry{
		{Words: []string{"low"}, Score: 5, Record: domain.Record{Title: "Low"}},
		{Words: []string{"high"}, Score: 10, Record: domain.Record{Title: "High"}},
	}

	dir := t.TempDir()
	st, err := store.Create("", dir)
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	var buf bytes.Buffer
	opts := BuildOptions{Logger: slog.New(slog.NewTextHandler(&buf, nil))}
	if _, err := BuildOrdered(st, entries, opts); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "out of order") {
		t.Errorf("expected an out-of-order warning, log was:\n%s", buf.String())
	}

	// The given order is kept: the warning does not reorder.
	r, err := Open("", dir, ReaderOptions{})
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	rec, ok, err := r.GetDoc(0)
	if err != nil || !ok || rec.Title != "Low" {
		t.Fatalf("GetDoc(0) = %q, %v, %v, want Low first", rec.Title, ok, err)
	}
}

func TestBuildOrderedNoWarnFromZero(t *testing.T) {
	// Scores climbing away from zero stay silent, matching the lenient
	// policy for callers that bucket scores themselves.
	entries := []domain.Entry{
		{Words: []string{"a"}, Score: 0, Record: domain.Record{Title: "A"}},
		{Words: []string{"b"}, Score: 10, Record: domain.Record{Title: "B"}},
	}

	dir := t.TempDir()
	st, err := store.Create("", dir)
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	var buf bytes.Buffer
	opts := BuildOptions{Logger: slog.New(slog.NewTextHandler(&buf, nil))}
	if _, err := BuildOrdered(st, entries, opts); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "out of order") {
		t.Errorf("unexpected warning, log was:\n%s", buf.String())
	}
}

func TestBuildProgressStages(t *testing.T) {
	dir := t.TempDir()
	st, err := store.Create("", dir)
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	calls := map[string]int{}
	last := map[string][2]int{}
	opts := BuildOptions{
		Progress: func(stage string, done, total int) {
			calls[stage]++
			last[stage] = [2]int{done, total}
		},
	}
	if _, err := Build(st, corpus.NewSliceSource(threeDocs()...), opts); err != nil {
		t.Fatal(err)
	}

	if calls[StageCollect] != 3 || last[StageCollect] != [2]int{3, 0} {
		t.Errorf("collect: %d calls, last %v", calls[StageCollect], last[StageCollect])
	}
	if calls[StageDocuments] != 3 || last[StageDocuments] != [2]int{3, 3} {
		t.Errorf("documents: %d calls, last %v", calls[StageDocuments], last[StageDocuments])
	}
	if calls[StageTokens] != 3 || last[StageTokens] != [2]int{3, 3} {
		t.Errorf("tokens: %d calls, last %v", calls[StageTokens], last[StageTokens])
	}
}
