package index

import (
	"testing"

	"encindex/internal/domain"
)

func page(title string) []domain.Record {
	return []domain.Record{{Title: title}}
}

func TestPageCacheEviction(t *testing.T) {
	c := newPageCache(2)
	c.Put(0, page("zero"))
	c.Put(1, page("one"))

	// Touch page 0 so page 1 becomes the eviction candidate.
	if _, ok := c.Get(0); !ok {
		t.Fatal("page 0 missing")
	}
	c.Put(2, page("two"))

	if _, ok := c.Get(1); ok {
		t.Error("page 1 survived eviction")
	}
	if _, ok := c.Get(0); !ok {
		t.Error("page 0 was evicted despite being recently used")
	}
	if _, ok := c.Get(2); !ok {
		t.Error("page 2 missing")
	}
	if size := c.Size(); size != 2 {
		t.Errorf("Size() = %d, want 2", size)
	}
}

func TestPageCacheUpdate(t *testing.T) {
	c := newPageCache(2)
	c.Put(0, page("old"))
	c.Put(0, page("new"))

	if size := c.Size(); size != 1 {
		t.Fatalf("Size() = %d, want 1", size)
	}
	recs, ok := c.Get(0)
	if !ok || recs[0].Title != "new" {
		t.Fatalf("Get(0) = %v, %v, want the updated page", recs, ok)
	}
}

func TestPageCacheDefaultCapacity(t *testing.T) {
	c := newPageCache(0)
	if c.maxSize != DefaultCachePages {
		t.Fatalf("maxSize = %d, want %d", c.maxSize, DefaultCachePages)
	}
}
