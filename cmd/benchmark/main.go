package main

import (
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"

	"encindex/internal/compress"
	"encindex/internal/corpus"
	"encindex/internal/domain"
	"encindex/internal/index"
	"encindex/internal/store"
)

func main() {
	docs := flag.Int("docs", 10000, "synthetic corpus size")
	ops := flag.Int("ops", 10000, "operations per query benchmark")
	engine := flag.String("engine", "sqlite", "storage engine (sqlite, bolt)")
	codecName := flag.String("codec", "zstd", "page codec (zstd, snappy)")
	flag.Parse()

	if err := run(*docs, *ops, *engine, *codecName); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(docs, ops int, engine, codecName string) error {
	dir, err := os.MkdirTemp("", "encindex-bench")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	codec, err := compress.New(codecName)
	if err != nil {
		return err
	}
	entries := synthetic(docs)

	fmt.Println("INDEX BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Engine: %s   Codec: %s   Documents: %d\n\n", engine, codecName, docs)

	st, err := store.Create(engine, dir)
	if err != nil {
		return err
	}
	start := time.Now()
	stats, err := index.Build(st, corpus.NewSliceSource(entries...), index.BuildOptions{Codec: codec})
	if err != nil {
		st.Close()
		return err
	}
	if err := st.Close(); err != nil {
		return err
	}
	buildTime := time.Since(start)

	var size int64
	filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			size += info.Size()
		}
		return nil
	})

	fmt.Printf("Build:\n")
	fmt.Printf("  Elapsed:  %v  (%.0f docs/s)\n", buildTime.Round(time.Millisecond),
		float64(docs)/buildTime.Seconds())
	fmt.Printf("  Words:    %d   Postings: %d\n", stats.Tokens, stats.Indexed)
	fmt.Printf("  Artifact: %.1f MiB  (%.1f bytes/doc)\n\n",
		float64(size)/(1<<20), float64(size)/float64(docs))

	r, err := index.Open(engine, dir, index.ReaderOptions{Codec: codec})
	if err != nil {
		return err
	}
	defer r.Close()

	vocab, err := r.Keys()
	if err != nil {
		return err
	}

	fmt.Printf("Query (%d ops each):\n", ops)
	measure("GetDoc cold", ops, func() error {
		_, _, err := r.GetDoc(rand.IntN(docs))
		return err
	})
	measure("GetDoc warm", ops, func() error {
		_, _, err := r.GetDoc(rand.IntN(docs))
		return err
	})
	measure("Postings", ops, func() error {
		_, _, err := r.Postings(vocab[rand.IntN(len(vocab))])
		return err
	})
	measure("Contains", ops, func() error {
		_, err := r.Contains(vocab[rand.IntN(len(vocab))])
		return err
	})
	measure("Random", ops, func() error {
		_, _, err := r.Random()
		return err
	})

	fmt.Println(strings.Repeat("=", 70))
	return nil
}

func measure(name string, ops int, fn func() error) {
	start := time.Now()
	for i := 0; i < ops; i++ {
		if err := fn(); err != nil {
			fmt.Printf("  %-12s FAILED: %v\n", name, err)
			return
		}
	}
	elapsed := time.Since(start)
	fmt.Printf("  %-12s %9.0f ops/s  (%v/op)\n", name,
		float64(ops)/elapsed.Seconds(), (elapsed / time.Duration(ops)).Round(time.Microsecond))
}

// synthetic makes a corpus with a compact shared vocabulary so posting
// lists get realistically long.
func synthetic(n int) []domain.Entry {
	adjectives := []string{"ancient", "modern", "northern", "southern", "central",
		"eastern", "western", "upper", "lower", "greater"}
	nouns := []string{"river", "empire", "railway", "province", "dynasty",
		"mountain", "republic", "island", "language", "galaxy"}

	entries := make([]domain.Entry, n)
	for i := range entries {
		title := fmt.Sprintf("%s %s %d",
			adjectives[i%len(adjectives)], nouns[(i/len(adjectives))%len(nouns)], i)
		entries[i] = domain.Entry{
			Words:  corpus.Tokenize(title),
			Score:  float64(n - i),
			Record: domain.Record{Title: title},
		}
	}
	return entries
}
