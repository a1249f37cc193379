package index

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"encindex/internal/compress"
	"encindex/internal/docset"
	"encindex/internal/domain"
	"encindex/internal/filename"
	"encindex/internal/store"
)

// Build stages, in order, as reported to BuildOptions.Progress.
const (
	StageCollect   = "collect"
	StageDocuments = "documents"
	StageTokens    = "tokens"
)

// BuildOptions tune a build. The zero value works: default codec, default
// logger, no progress reporting.
type BuildOptions struct {
	// Codec compresses page blocks. Nil selects compress.DefaultCodec.
	Codec compress.Codec
	// Logger receives build warnings and the final summary.
	Logger *slog.Logger
	// Progress is called after each unit of work in a stage. During
	// StageCollect the total is unknown and reported as 0.
	Progress func(stage string, done, total int)
}

// Build drains src and writes a complete index into st, which must be a
// freshly created store. Entries are emitted in descending score order,
// ties kept in encounter order, and document ids are assigned sequentially
// from 0 in emission order. On error the store contents are undefined and
// the artifact should be discarded.
func Build(st store.Store, src domain.Source, opts BuildOptions) (domain.BuildStats, error) {
	// Order pass. The whole corpus is buffered and bucketed by score so
	// that emission can run best-first; an offline build can afford it.
	buckets := make(map[float64][]domain.Entry)
	var scores []float64
	total := 0
	for {
		e, ok, err := src.Next()
		if err != nil {
			return domain.BuildStats{}, fmt.Errorf("index: reading source: %w", err)
		}
		if !ok {
			break
		}
		if math.IsNaN(e.Score) {
			return domain.BuildStats{}, fmt.Errorf("index: %q has NaN score", e.Record.Title)
		}
		if _, seen := buckets[e.Score]; !seen {
			scores = append(scores, e.Score)
		}
		buckets[e.Score] = append(buckets[e.Score], e)
		total++
		if opts.Progress != nil {
			opts.Progress(StageCollect, total, 0)
		}
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(scores)))

	ordered := make([]domain.Entry, 0, total)
	for _, score := range scores {
		ordered = append(ordered, buckets[score]...)
	}
	return BuildOrdered(st, ordered, opts)
}

// BuildOrdered is Build for a caller that already ordered its entries by
// descending score. The ordering is trusted, not enforced: an entry scoring
// higher than its predecessor is logged and indexed anyway, in the given
// order.
func BuildOrdered(st store.Store, entries []domain.Entry, opts BuildOptions) (domain.BuildStats, error) {
	start := time.Now()
	var stats domain.BuildStats

	codec := opts.Codec
	if codec == nil {
		var err error
		if codec, err = compress.New(""); err != nil {
			return stats, err
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	progress := opts.Progress
	if progress == nil {
		progress = func(string, int, int) {}
	}

	// Emission pass: write pages, accumulate posting lists.
	pages := newPageWriter(st, codec)
	sets := make(map[string]*docset.DocSet)
	prevScore := -1.0
	for i, e := range entries {
		if prevScore > 0 && e.Score > prevScore {
			logger.Warn("source score out of order",
				"title", e.Record.Title, "score", e.Score, "previous", prevScore)
		}
		prevScore = e.Score

		if len(e.Words) > docset.Separator {
			return stats, fmt.Errorf("index: %q has %d index words: %w",
				e.Record.Title, len(e.Words), docset.ErrInvalidPosition)
		}

		rec := e.Record
		derived, err := filename.Path(rec.Title)
		if err != nil {
			return stats, fmt.Errorf("index: %w", err)
		}
		if rec.Filename == derived {
			rec.Filename = ""
		}
		rec.Score = e.Score

		docid, err := pages.append(len(e.Words), rec)
		if err != nil {
			return stats, err
		}
		for pos, word := range e.Words {
			ds := sets[word]
			if ds == nil {
				ds = docset.New()
				sets[word] = ds
			}
			ds.Append(docid, pos)
		}
		progress(StageDocuments, i+1, len(entries))
	}
	if err := pages.finish(); err != nil {
		return stats, err
	}

	// Token pass: encode every posting list and insert the lot in one
	// batch. Sorted row order keeps rebuilds byte-for-byte comparable.
	words := make([]string, 0, len(sets))
	for w := range sets {
		words = append(words, w)
	}
	sort.Strings(words)
	rows := make([]store.TokenRow, 0, len(words))
	for i, w := range words {
		encoded, err := sets[w].Encode()
		if err != nil {
			return stats, fmt.Errorf("index: encoding %q: %w", w, err)
		}
		stats.Indexed += sets[w].Len()
		rows = append(rows, store.TokenRow{Word: w, DocSets: encoded})
		progress(StageTokens, i+1, len(words))
	}
	if err := st.PutTokens(rows); err != nil {
		return stats, err
	}

	if err := st.CreateWordIndex(); err != nil {
		return stats, err
	}
	if err := st.Optimize(); err != nil {
		return stats, err
	}

	stats.Documents = len(entries)
	stats.Tokens = len(words)
	stats.Elapsed = time.Since(start)
	logger.Info("index built",
		"documents", stats.Documents,
		"tokens", stats.Tokens,
		"postings", stats.Indexed,
		"elapsed", stats.Elapsed.Round(time.Millisecond))
	return stats, nil
}
