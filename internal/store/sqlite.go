package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const sqliteFile = "index.sqlite"

const sqliteSchema = `
CREATE TABLE tokens (
	word TEXT,
	docsets BLOB
);
CREATE TABLE docs (
	pageid INTEGER PRIMARY KEY,
	word_quants BLOB,
	data BLOB
);
`

// The build connection turns journaling and syncing off: a crashed build
// leaves a half-written artifact that is rebuilt from scratch anyway.
const sqliteCreateDSN = "file:%s?_pragma=journal_mode(OFF)&_pragma=synchronous(OFF)"

// Readers never write, so the open is read-only at both the VFS and the
// connection level.
const sqliteOpenDSN = "file:%s?mode=ro&_pragma=query_only(1)"

type sqliteStore struct {
	db *sql.DB
}

func createSQLite(dir string) (Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: creating index directory: %w", err)
	}
	path := filepath.Join(dir, sqliteFile)
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("store: %s already exists", path)
	}
	db, err := sql.Open("sqlite", fmt.Sprintf(sqliteCreateDSN, path))
	if err != nil {
		return nil, fmt.Errorf("store: opening %s: %w", path, err)
	}
	// Single writer. The pool must not hand out a second connection with
	// its own temp state in the middle of a build.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: creating schema: %w", err)
	}
	return &sqliteStore{db: db}, nil
}

func openSQLite(dir string) (Store, error) {
	path := filepath.Join(dir, sqliteFile)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	db, err := sql.Open("sqlite", fmt.Sprintf(sqliteOpenDSN, path))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var tables int
	err = db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name IN ('tokens', 'docs')`,
	).Scan(&tables)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if tables != 2 {
		db.Close()
		return nil, fmt.Errorf("%w: %s is not an index artifact", ErrUnavailable, path)
	}
	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) PutTokens(rows []TokenRow) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tokens batch: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`INSERT INTO tokens (word, docsets) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("store: prepare tokens insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.Exec(row.Word, row.DocSets); err != nil {
			return fmt.Errorf("store: insert token %q: %w", row.Word, err)
		}
	}
	return tx.Commit()
}

func (s *sqliteStore) GetToken(word string) ([]byte, bool, error) {
	var docsets []byte
	err := s.db.QueryRow(`SELECT docsets FROM tokens WHERE word = ?`, word).Scan(&docsets)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("store: reading token %q: %w", word, err)
	}
	return docsets, true, nil
}

func (s *sqliteStore) HasToken(word string) (bool, error) {
	var got string
	err := s.db.QueryRow(`SELECT word FROM tokens WHERE word = ?`, word).Scan(&got)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: probing token %q: %w", word, err)
	}
	return true, nil
}

func (s *sqliteStore) Words() ([]string, error) {
	rows, err := s.db.Query(`SELECT word FROM tokens`)
	if err != nil {
		return nil, fmt.Errorf("store: listing words: %w", err)
	}
	defer rows.Close()

	var words []string
	for rows.Next() {
		var word string
		if err := rows.Scan(&word); err != nil {
			return nil, err
		}
		words = append(words, word)
	}
	return words, rows.Err()
}

func (s *sqliteStore) EachToken(fn func(word string, docsets []byte) error) error {
	rows, err := s.db.Query(`SELECT word, docsets FROM tokens`)
	if err != nil {
		return fmt.Errorf("store: scanning tokens: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			word    string
			docsets []byte
		)
		if err := rows.Scan(&word, &docsets); err != nil {
			return err
		}
		if err := fn(word, docsets); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *sqliteStore) PutPage(row PageRow) error {
	_, err := s.db.Exec(
		`INSERT INTO docs (pageid, word_quants, data) VALUES (?, ?, ?)`,
		row.PageID, row.WordQuants, row.Data,
	)
	if err != nil {
		return fmt.Errorf("store: writing page %d: %w", row.PageID, err)
	}
	return nil
}

func (s *sqliteStore) GetPage(pageid int) (PageRow, bool, error) {
	row := PageRow{PageID: pageid}
	err := s.db.QueryRow(
		`SELECT word_quants, data FROM docs WHERE pageid = ?`, pageid,
	).Scan(&row.WordQuants, &row.Data)
	if errors.Is(err, sql.ErrNoRows) {
		return PageRow{}, false, nil
	}
	if err != nil {
		return PageRow{}, false, fmt.Errorf("store: reading page %d: %w", pageid, err)
	}
	return row, true, nil
}

func (s *sqliteStore) LastPage() (PageRow, bool, error) {
	var row PageRow
	err := s.db.QueryRow(
		`SELECT pageid, word_quants, data FROM docs ORDER BY pageid DESC LIMIT 1`,
	).Scan(&row.PageID, &row.WordQuants, &row.Data)
	if errors.Is(err, sql.ErrNoRows) {
		return PageRow{}, false, nil
	}
	if err != nil {
		return PageRow{}, false, fmt.Errorf("store: reading last page: %w", err)
	}
	return row, true, nil
}

func (s *sqliteStore) EachPage(fn func(row PageRow) error) error {
	rows, err := s.db.Query(`SELECT pageid, word_quants, data FROM docs ORDER BY pageid`)
	if err != nil {
		return fmt.Errorf("store: scanning pages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var row PageRow
		if err := rows.Scan(&row.PageID, &row.WordQuants, &row.Data); err != nil {
			return err
		}
		if err := fn(row); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *sqliteStore) CreateWordIndex() error {
	if _, err := s.db.Exec(`CREATE INDEX idx_words ON tokens (word)`); err != nil {
		return fmt.Errorf("store: creating word index: %w", err)
	}
	return nil
}

func (s *sqliteStore) Optimize() error {
	if _, err := s.db.Exec(`VACUUM`); err != nil {
		return fmt.Errorf("store: vacuum: %w", err)
	}
	return nil
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}
