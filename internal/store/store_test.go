package store

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"testing"
)

func TestEngines(t *testing.T) {
	want := []string{"bolt", "sqlite"}
	if got := Engines(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Engines() = %v, want %v", got, want)
	}
}

func TestUnknownEngine(t *testing.T) {
	if _, err := Create("lmdb", t.TempDir()); err == nil {
		t.Fatal("expected error for unknown engine")
	}
	if _, err := Open("lmdb", t.TempDir()); err == nil {
		t.Fatal("expected error for unknown engine")
	}
}

func TestDefaultEngineArtifact(t *testing.T) {
	dir := t.TempDir()
	st, err := Create("", dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := st.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "index.sqlite")); err != nil {
		t.Fatalf("default engine artifact missing: %v", err)
	}
}

func TestCreateOpenRoundTrip(t *testing.T) {
	for _, engine := range Engines() {
		t.Run(engine, func(t *testing.T) {
			dir := t.TempDir()

			st, err := Create(engine, dir)
			if err != nil {
				t.Fatal(err)
			}
			tokens := []TokenRow{
				{Word: "cat", DocSets: []byte{0, 1, 0xFF, 2}},
				{Word: "dog", DocSets: []byte{3, 0xFF, 4}},
				{Word: "bird", DocSets: []byte{0, 0xFF, 5}},
			}
			if err := st.PutTokens(tokens); err != nil {
				t.Fatal(err)
			}
			pages := []PageRow{
				{PageID: 0, WordQuants: []byte{2, 1}, Data: []byte("page zero")},
				{PageID: 1, WordQuants: []byte{1}, Data: []byte("page one")},
			}
			for _, p := range pages {
				if err := st.PutPage(p); err != nil {
					t.Fatal(err)
				}
			}
			if err := st.CreateWordIndex(); err != nil {
				t.Fatal(err)
			}
			if err := st.Optimize(); err != nil {
				t.Fatal(err)
			}
			if err := st.Close(); err != nil {
				t.Fatal(err)
			}

			st, err = Open(engine, dir)
			if err != nil {
				t.Fatal(err)
			}
			defer st.Close()

			docsets, ok, err := st.GetToken("dog")
			if err != nil || !ok {
				t.Fatalf("GetToken(dog) = %v, %v, %v", docsets, ok, err)
			}
			if !bytes.Equal(docsets, []byte{3, 0xFF, 4}) {
				t.Fatalf("GetToken(dog) = %v", docsets)
			}
			if _, ok, err := st.GetToken("fish"); err != nil || ok {
				t.Fatalf("GetToken(fish) = _, %v, %v, want absent", ok, err)
			}

			for word, want := range map[string]bool{"cat": true, "bird": true, "fish": false} {
				got, err := st.HasToken(word)
				if err != nil {
					t.Fatal(err)
				}
				if got != want {
					t.Errorf("HasToken(%q) = %v, want %v", word, got, want)
				}
			}

			words, err := st.Words()
			if err != nil {
				t.Fatal(err)
			}
			sort.Strings(words)
			if want := []string{"bird", "cat", "dog"}; !reflect.DeepEqual(words, want) {
				t.Fatalf("Words() = %v, want %v", words, want)
			}

			seen := map[string]int{}
			err = st.EachToken(func(word string, docsets []byte) error {
				seen[word] = len(docsets)
				return nil
			})
			if err != nil {
				t.Fatal(err)
			}
			if want := map[string]int{"cat": 4, "dog": 3, "bird": 3}; !reflect.DeepEqual(seen, want) {
				t.Fatalf("EachToken saw %v, want %v", seen, want)
			}

			row, ok, err := st.GetPage(1)
			if err != nil || !ok {
				t.Fatalf("GetPage(1) = %v, %v, %v", row, ok, err)
			}
			if string(row.Data) != "page one" || !bytes.Equal(row.WordQuants, []byte{1}) {
				t.Fatalf("GetPage(1) = %+v", row)
			}
			if _, ok, err := st.GetPage(9); err != nil || ok {
				t.Fatalf("GetPage(9) = _, %v, %v, want absent", ok, err)
			}

			last, ok, err := st.LastPage()
			if err != nil || !ok {
				t.Fatalf("LastPage() = %v, %v, %v", last, ok, err)
			}
			if last.PageID != 1 || string(last.Data) != "page one" {
				t.Fatalf("LastPage() = %+v", last)
			}

			var order []int
			err = st.EachPage(func(row PageRow) error {
				order = append(order, row.PageID)
				return nil
			})
			if err != nil {
				t.Fatal(err)
			}
			if want := []int{0, 1}; !reflect.DeepEqual(order, want) {
				t.Fatalf("EachPage order = %v, want %v", order, want)
			}
		})
	}
}

func TestOpenMissing(t *testing.T) {
	for _, engine := range Engines() {
		t.Run(engine, func(t *testing.T) {
			_, err := Open(engine, t.TempDir())
			if !errors.Is(err, ErrUnavailable) {
				t.Fatalf("Open on empty dir: err = %v, want ErrUnavailable", err)
			}
		})
	}
}

func TestCreateExisting(t *testing.T) {
	for _, engine := range Engines() {
		t.Run(engine, func(t *testing.T) {
			dir := t.TempDir()
			st, err := Create(engine, dir)
			if err != nil {
				t.Fatal(err)
			}
			st.Close()
			if _, err := Create(engine, dir); err == nil {
				t.Fatal("expected error creating over an existing artifact")
			}
		})
	}
}

func TestRemove(t *testing.T) {
	for _, engine := range Engines() {
		t.Run(engine, func(t *testing.T) {
			dir := t.TempDir()
			st, err := Create(engine, dir)
			if err != nil {
				t.Fatal(err)
			}
			st.Close()

			if err := Remove(engine, dir); err != nil {
				t.Fatal(err)
			}
			// A second removal is fine, and the slot is free again.
			if err := Remove(engine, dir); err != nil {
				t.Fatal(err)
			}
			st, err = Create(engine, dir)
			if err != nil {
				t.Fatalf("Create after Remove: %v", err)
			}
			st.Close()
		})
	}
}

func TestOpenRejectsWrites(t *testing.T) {
	for _, engine := range Engines() {
		t.Run(engine, func(t *testing.T) {
			dir := t.TempDir()
			st, err := Create(engine, dir)
			if err != nil {
				t.Fatal(err)
			}
			st.Close()

			st, err = Open(engine, dir)
			if err != nil {
				t.Fatal(err)
			}
			defer st.Close()

			if err := st.PutPage(PageRow{PageID: 0, Data: []byte("x")}); err == nil {
				t.Error("PutPage on a read-only store succeeded")
			}
			if err := st.PutTokens([]TokenRow{{Word: "w", DocSets: []byte{1}}}); err == nil {
				t.Error("PutTokens on a read-only store succeeded")
			}
		})
	}
}

func TestEmptyDocsTable(t *testing.T) {
	for _, engine := range Engines() {
		t.Run(engine, func(t *testing.T) {
			dir := t.TempDir()
			st, err := Create(engine, dir)
			if err != nil {
				t.Fatal(err)
			}
			defer st.Close()

			if _, ok, err := st.LastPage(); err != nil || ok {
				t.Fatalf("LastPage on empty table = _, %v, %v", ok, err)
			}
			err = st.EachPage(func(PageRow) error {
				t.Fatal("EachPage called fn on empty table")
				return nil
			})
			if err != nil {
				t.Fatal(err)
			}
		})
	}
}

func TestWalkStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	for _, engine := range Engines() {
		t.Run(engine, func(t *testing.T) {
			dir := t.TempDir()
			st, err := Create(engine, dir)
			if err != nil {
				t.Fatal(err)
			}
			defer st.Close()

			for i := 0; i < 3; i++ {
				if err := st.PutPage(PageRow{PageID: i, Data: []byte{byte(i)}}); err != nil {
					t.Fatal(err)
				}
			}
			calls := 0
			err = st.EachPage(func(PageRow) error {
				calls++
				return boom
			})
			if !errors.Is(err, boom) {
				t.Fatalf("EachPage err = %v, want boom", err)
			}
			if calls != 1 {
				t.Fatalf("EachPage kept walking after error, calls = %d", calls)
			}
		})
	}
}

func TestBoltPageValueLayout(t *testing.T) {
	row := PageRow{PageID: 7, WordQuants: []byte{9, 8, 7}, Data: []byte("payload")}
	got, err := decodePageValue(7, encodePageValue(row))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, row) {
		t.Fatalf("decode(encode) = %+v, want %+v", got, row)
	}

	empty := PageRow{PageID: 0, WordQuants: nil, Data: []byte("d")}
	got, err = decodePageValue(0, encodePageValue(empty))
	if err != nil {
		t.Fatal(err)
	}
	if len(got.WordQuants) != 0 || string(got.Data) != "d" {
		t.Fatalf("decode empty quants = %+v", got)
	}

	if _, err := decodePageValue(0, []byte{0xFF}); err == nil {
		t.Fatal("expected corrupt value error")
	}
}
