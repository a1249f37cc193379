// Package index builds and queries the title index: an inverted word index
// over a paged, compressed document store.
package index

import (
	"encoding/json"
	"fmt"

	"encindex/internal/compress"
	"encindex/internal/domain"
	"encindex/internal/store"
)

// PageSize is the number of document records per page. It is part of the
// artifact format, not a tunable: docid/PageSize names the page and
// docid%PageSize the slot within it.
const PageSize = 512

// pageWriter buffers records and writes one compressed page row per
// PageSize appends, plus one byte per record in the parallel word count
// array. Document ids are the append order.
type pageWriter struct {
	st     store.Store
	codec  compress.Codec
	recs   []domain.Record
	quants []byte
	count  int
	pageid int
}

func newPageWriter(st store.Store, codec compress.Codec) *pageWriter {
	return &pageWriter{
		st:     st,
		codec:  codec,
		recs:   make([]domain.Record, 0, PageSize),
		quants: make([]byte, 0, PageSize),
	}
}

// append buffers one record and returns its document id.
func (w *pageWriter) append(wordCount int, rec domain.Record) (int, error) {
	docid := w.count
	w.recs = append(w.recs, rec)
	w.quants = append(w.quants, byte(wordCount))
	w.count++
	if len(w.recs) == PageSize {
		return docid, w.flush()
	}
	return docid, nil
}

// finish writes the trailing partial page, if any.
func (w *pageWriter) finish() error {
	return w.flush()
}

func (w *pageWriter) flush() error {
	if len(w.recs) == 0 {
		return nil
	}
	data, err := encodePage(w.codec, w.recs)
	if err != nil {
		return err
	}
	row := store.PageRow{PageID: w.pageid, WordQuants: w.quants, Data: data}
	if err := w.st.PutPage(row); err != nil {
		return err
	}
	w.pageid++
	w.recs = make([]domain.Record, 0, PageSize)
	w.quants = make([]byte, 0, PageSize)
	return nil
}

// encodePage serializes the records of one page as a single JSON block and
// compresses it. Compression runs once per page at build time, so the codec
// is tuned for ratio over speed.
func encodePage(codec compress.Codec, recs []domain.Record) ([]byte, error) {
	block, err := json.Marshal(recs)
	if err != nil {
		return nil, fmt.Errorf("index: marshaling page: %w", err)
	}
	data, err := codec.Compress(block)
	if err != nil {
		return nil, fmt.Errorf("index: compressing page: %w", err)
	}
	return data, nil
}

func decodePage(codec compress.Codec, data []byte) ([]domain.Record, error) {
	block, err := codec.Decompress(data)
	if err != nil {
		return nil, fmt.Errorf("index: decompressing page: %w", err)
	}
	var recs []domain.Record
	if err := json.Unmarshal(block, &recs); err != nil {
		return nil, fmt.Errorf("index: unmarshaling page: %w", err)
	}
	return recs, nil
}
