// Package store persists the two index tables. The index core talks to the
// Store interface only; engines decide the on-disk shape. The sqlite engine
// is the default artifact format, bolt is the alternative; both live in a
// single file inside the index directory.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// DefaultEngine is used when the configuration names none.
const DefaultEngine = "sqlite"

// ErrUnavailable reports that the persisted artifact cannot be opened:
// missing, corrupt, or unreadable. There is no degraded mode.
var ErrUnavailable = errors.New("store: index storage unavailable")

// TokenRow is one word with its encoded posting list.
type TokenRow struct {
	Word    string
	DocSets []byte
}

// PageRow is one compressed page of document records. WordQuants holds one
// byte per record in the page: the number of indexed words in that
// document's title.
type PageRow struct {
	PageID     int
	WordQuants []byte
	Data       []byte
}

// Store is the persistence contract of the index core. Writes happen only
// during a build; a store opened with Open rejects them or fails them at the
// engine level.
type Store interface {
	// PutTokens inserts a batch of token rows in one commit.
	PutTokens(rows []TokenRow) error
	// GetToken returns the encoded posting list for word, ok=false if absent.
	GetToken(word string) ([]byte, bool, error)
	// HasToken reports whether word is indexed.
	HasToken(word string) (bool, error)
	// Words returns every indexed word, in no particular order.
	Words() ([]string, error)
	// EachToken calls fn for every token row; fn's error stops the walk.
	EachToken(fn func(word string, docsets []byte) error) error

	// PutPage writes one page row as one durable commit.
	PutPage(row PageRow) error
	// GetPage returns the page row, ok=false if absent.
	GetPage(pageid int) (PageRow, bool, error)
	// LastPage returns the row with the highest pageid, ok=false when the
	// docs table is empty.
	LastPage() (PageRow, bool, error)
	// EachPage calls fn for every page in ascending pageid order.
	EachPage(fn func(row PageRow) error) error

	// CreateWordIndex builds the secondary index on the word column.
	// A no-op on engines that keep keys ordered.
	CreateWordIndex() error
	// Optimize reclaims unused space after the build.
	Optimize() error

	Close() error
}

type engine struct {
	file   string
	create func(dir string) (Store, error)
	open   func(dir string) (Store, error)
}

var engines = map[string]engine{
	"sqlite": {file: sqliteFile, create: createSQLite, open: openSQLite},
	"bolt":   {file: boltFile, create: createBolt, open: openBolt},
}

// Engines lists the registered engine names.
func Engines() []string {
	names := make([]string, 0, len(engines))
	for name := range engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Create makes a fresh, empty artifact under dir with the named engine
// (empty name selects DefaultEngine). It fails if the artifact already
// exists: rebuilding means building a new artifact, not mutating one.
func Create(name, dir string) (Store, error) {
	eng, err := lookup(name)
	if err != nil {
		return nil, err
	}
	return eng.create(dir)
}

// Open opens an existing artifact under dir for querying only.
func Open(name, dir string) (Store, error) {
	eng, err := lookup(name)
	if err != nil {
		return nil, err
	}
	return eng.open(dir)
}

// Remove deletes the engine's artifact file under dir, if present. Other
// files in dir are left alone.
func Remove(name, dir string) error {
	eng, err := lookup(name)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(dir, eng.file)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("store: removing artifact: %w", err)
	}
	return nil
}

func lookup(name string) (engine, error) {
	if name == "" {
		name = DefaultEngine
	}
	eng, ok := engines[name]
	if !ok {
		return engine{}, fmt.Errorf("store: unknown engine %q (have %v)", name, Engines())
	}
	return eng, nil
}
