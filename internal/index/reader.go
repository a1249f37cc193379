package index

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"

	"encindex/internal/compress"
	"encindex/internal/docset"
	"encindex/internal/domain"
	"encindex/internal/filename"
	"encindex/internal/store"
)

// ReaderOptions tune a reader. The zero value works: default codec,
// DefaultCachePages of page cache.
type ReaderOptions struct {
	// Codec must match the codec the index was built with.
	Codec compress.Codec
	// CachePages bounds the decoded-page cache.
	CachePages int
}

// Reader is the query surface over a built index. It never writes; the
// underlying store is opened read-only. Safe for concurrent use: the page
// cache and the cached length are guarded, and concurrent misses on the
// same page collapse into a single load.
type Reader struct {
	st    store.Store
	codec compress.Codec
	cache *pageCache
	group singleflight.Group

	lenMu  sync.Mutex
	length int
	lenOK  bool
}

// Open opens the index artifact under dir with the named engine and wraps
// it in a Reader. A missing or unreadable artifact fails with
// store.ErrUnavailable.
func Open(engine, dir string, opts ReaderOptions) (*Reader, error) {
	st, err := store.Open(engine, dir)
	if err != nil {
		return nil, err
	}
	r, err := NewReader(st, opts)
	if err != nil {
		st.Close()
		return nil, err
	}
	return r, nil
}

// NewReader wraps an already opened store. The reader takes ownership:
// Close closes the store.
func NewReader(st store.Store, opts ReaderOptions) (*Reader, error) {
	codec := opts.Codec
	if codec == nil {
		var err error
		if codec, err = compress.New(""); err != nil {
			return nil, err
		}
	}
	return &Reader{
		st:    st,
		codec: codec,
		cache: newPageCache(opts.CachePages),
	}, nil
}

// Keys returns every indexed word, in no particular order.
func (r *Reader) Keys() ([]string, error) {
	return r.st.Words()
}

// Contains reports whether word is indexed.
func (r *Reader) Contains(word string) (bool, error) {
	return r.st.HasToken(word)
}

// Postings returns the decoded posting list for word, ok=false if the word
// is not indexed.
func (r *Reader) Postings(word string) (*docset.DocSet, bool, error) {
	data, ok, err := r.st.GetToken(word)
	if err != nil || !ok {
		return nil, false, err
	}
	return docset.Decode(data), true, nil
}

// Items calls fn for every (word, posting list) pair, decoding one list at
// a time. fn's error stops the walk.
func (r *Reader) Items(fn func(word string, ds *docset.DocSet) error) error {
	return r.st.EachToken(func(word string, docsets []byte) error {
		return fn(word, docset.Decode(docsets))
	})
}

// Values calls fn for every document record in ascending document-id
// order, decompressing one page at a time. Records stream as stored: a
// filename left empty at build time stays empty here, GetDoc is the
// accessor that fills it in.
func (r *Reader) Values(fn func(rec domain.Record) error) error {
	return r.st.EachPage(func(row store.PageRow) error {
		recs, err := decodePage(r.codec, row.Data)
		if err != nil {
			return err
		}
		for _, rec := range recs {
			if err := fn(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetPage returns the decoded records of one page, ok=false if the page
// does not exist. Decoded pages are cached; concurrent misses on the same
// page share one load.
func (r *Reader) GetPage(pageid int) ([]domain.Record, bool, error) {
	if recs, ok := r.cache.Get(pageid); ok {
		return recs, true, nil
	}

	v, err, _ := r.group.Do(strconv.Itoa(pageid), func() (any, error) {
		if recs, ok := r.cache.Get(pageid); ok {
			return recs, nil
		}
		row, ok, err := r.st.GetPage(pageid)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
		recs, err := decodePage(r.codec, row.Data)
		if err != nil {
			return nil, err
		}
		// Fill in derivable filenames once, before the page becomes
		// shared cache state. Cached records are read-only after this.
		for i := range recs {
			if recs[i].Filename != "" {
				continue
			}
			recs[i].Filename, err = filename.Path(recs[i].Title)
			if err != nil {
				return nil, fmt.Errorf("index: page %d slot %d: %w", pageid, i, err)
			}
		}
		r.cache.Put(pageid, recs)
		return recs, nil
	})
	if err != nil {
		return nil, false, err
	}
	if v == nil {
		return nil, false, nil
	}
	return v.([]domain.Record), true, nil
}

// GetDoc returns the record of one document id, ok=false if no such
// document exists. The returned record always carries a filename.
func (r *Reader) GetDoc(docid int) (domain.Record, bool, error) {
	if docid < 0 {
		return domain.Record{}, false, nil
	}
	pageid, offset := docid/PageSize, docid%PageSize
	recs, ok, err := r.GetPage(pageid)
	if err != nil || !ok {
		return domain.Record{}, false, err
	}
	if offset >= len(recs) {
		return domain.Record{}, false, nil
	}
	return recs[offset], true, nil
}

// Len returns the total number of indexed documents: the highest page id
// times PageSize plus the record count of that page. Computed once and
// held for the reader's lifetime, which is sound only because the index
// never changes underneath it.
func (r *Reader) Len() (int, error) {
	r.lenMu.Lock()
	defer r.lenMu.Unlock()
	if r.lenOK {
		return r.length, nil
	}
	row, ok, err := r.st.LastPage()
	if err != nil {
		return 0, err
	}
	if !ok {
		r.length, r.lenOK = 0, true
		return 0, nil
	}
	recs, err := decodePage(r.codec, row.Data)
	if err != nil {
		return 0, err
	}
	r.length, r.lenOK = row.PageID*PageSize+len(recs), true
	return r.length, nil
}

// Random returns a uniformly drawn document record, ok=false only when the
// index is empty.
func (r *Reader) Random() (domain.Record, bool, error) {
	n, err := r.Len()
	if err != nil {
		return domain.Record{}, false, err
	}
	if n == 0 {
		return domain.Record{}, false, nil
	}
	return r.GetDoc(rand.IntN(n))
}

// Close closes the underlying store.
func (r *Reader) Close() error {
	return r.st.Close()
}
