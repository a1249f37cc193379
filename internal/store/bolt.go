package store

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

const boltFile = "index.bolt"

var (
	boltTokens = []byte("tokens")
	boltDocs   = []byte("docs")
)

type boltStore struct {
	db *bbolt.DB
}

func createBolt(dir string) (Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: creating index directory: %w", err)
	}
	path := filepath.Join(dir, boltFile)
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("store: %s already exists", path)
	}
	// Same durability stance as the sqlite build connection: skip the
	// per-commit fsync, sync once on Close.
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{NoSync: true})
	if err != nil {
		return nil, fmt.Errorf("store: opening %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{boltTokens, boltDocs} {
			if _, err := tx.CreateBucket(name); err != nil {
				return fmt.Errorf("creating bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("store: %w", err)
	}
	return &boltStore{db: db}, nil
}

func openBolt(dir string) (Store, error) {
	path := filepath.Join(dir, boltFile)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{
		ReadOnly: true,
		Timeout:  time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	err = db.View(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{boltTokens, boltDocs} {
			if tx.Bucket(name) == nil {
				return fmt.Errorf("bucket %s missing", name)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %s is not an index artifact: %v", ErrUnavailable, path, err)
	}
	return &boltStore{db: db}, nil
}

func (s *boltStore) PutTokens(rows []TokenRow) error {
	if len(rows) == 0 {
		return nil
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(boltTokens)
		for _, row := range rows {
			if err := b.Put([]byte(row.Word), row.DocSets); err != nil {
				return fmt.Errorf("store: insert token %q: %w", row.Word, err)
			}
		}
		return nil
	})
}

func (s *boltStore) GetToken(word string) ([]byte, bool, error) {
	var (
		docsets []byte
		found   bool
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(boltTokens).Get([]byte(word))
		if v == nil {
			return nil
		}
		found = true
		docsets = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("store: reading token %q: %w", word, err)
	}
	return docsets, found, nil
}

func (s *boltStore) HasToken(word string) (bool, error) {
	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		found = tx.Bucket(boltTokens).Get([]byte(word)) != nil
		return nil
	})
	return found, err
}

func (s *boltStore) Words() ([]string, error) {
	var words []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(boltTokens).ForEach(func(k, _ []byte) error {
			words = append(words, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("store: listing words: %w", err)
	}
	return words, nil
}

func (s *boltStore) EachToken(fn func(word string, docsets []byte) error) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(boltTokens).ForEach(func(k, v []byte) error {
			return fn(string(k), append([]byte(nil), v...))
		})
	})
}

func (s *boltStore) PutPage(row PageRow) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		err := tx.Bucket(boltDocs).Put(pageKey(row.PageID), encodePageValue(row))
		if err != nil {
			return fmt.Errorf("store: writing page %d: %w", row.PageID, err)
		}
		return nil
	})
}

func (s *boltStore) GetPage(pageid int) (PageRow, bool, error) {
	var (
		row   PageRow
		found bool
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(boltDocs).Get(pageKey(pageid))
		if v == nil {
			return nil
		}
		var err error
		row, err = decodePageValue(pageid, v)
		found = err == nil
		return err
	})
	if err != nil {
		return PageRow{}, false, err
	}
	return row, found, nil
}

func (s *boltStore) LastPage() (PageRow, bool, error) {
	var (
		row   PageRow
		found bool
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		k, v := tx.Bucket(boltDocs).Cursor().Last()
		if k == nil {
			return nil
		}
		var err error
		row, err = decodePageValue(int(binary.BigEndian.Uint32(k)), v)
		found = err == nil
		return err
	})
	if err != nil {
		return PageRow{}, false, err
	}
	return row, found, nil
}

func (s *boltStore) EachPage(fn func(row PageRow) error) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(boltDocs).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			row, err := decodePageValue(int(binary.BigEndian.Uint32(k)), v)
			if err != nil {
				return err
			}
			if err := fn(row); err != nil {
				return err
			}
		}
		return nil
	})
}

// CreateWordIndex is a no-op: bolt keys are the words and are already ordered.
func (s *boltStore) CreateWordIndex() error { return nil }

// Optimize is a no-op: the B+tree reuses freed pages on its own.
func (s *boltStore) Optimize() error { return nil }

func (s *boltStore) Close() error {
	if !s.db.IsReadOnly() {
		if err := s.db.Sync(); err != nil {
			s.db.Close()
			return fmt.Errorf("store: syncing: %w", err)
		}
	}
	return s.db.Close()
}

// Big-endian page keys keep cursor order equal to numeric order.
func pageKey(pageid int) []byte {
	var k [4]byte
	binary.BigEndian.PutUint32(k[:], uint32(pageid))
	return k[:]
}

// A page value is uvarint(len(word_quants)) || word_quants || data.
func encodePageValue(row PageRow) []byte {
	buf := make([]byte, binary.MaxVarintLen64, binary.MaxVarintLen64+len(row.WordQuants)+len(row.Data))
	n := binary.PutUvarint(buf, uint64(len(row.WordQuants)))
	buf = buf[:n]
	buf = append(buf, row.WordQuants...)
	return append(buf, row.Data...)
}

func decodePageValue(pageid int, v []byte) (PageRow, error) {
	quants, n := binary.Uvarint(v)
	if n <= 0 || quants > uint64(len(v)-n) {
		return PageRow{}, fmt.Errorf("store: page %d value corrupt", pageid)
	}
	end := n + int(quants)
	return PageRow{
		PageID:     pageid,
		WordQuants: append([]byte(nil), v[n:end]...),
		Data:       append([]byte(nil), v[end:]...),
	}, nil
}
