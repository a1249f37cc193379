package corpus

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"encindex/internal/domain"
)

// maxLineBytes bounds one corpus line. Titles and payloads are small;
// anything past this is a malformed file, not a big document.
const maxLineBytes = 1 << 20

// docLine is the wire form of one corpus entry: one JSON object per line.
// Words may be omitted, in which case the title is tokenized.
type docLine struct {
	Filename string   `json:"filename,omitempty"`
	Title    string   `json:"title"`
	Payload  []string `json:"payload,omitempty"`
	Score    float64  `json:"score"`
	Words    []string `json:"words,omitempty"`
}

// DirSource streams entries out of every matching file under a corpus
// directory, file by file in walk order, line by line within a file.
type DirSource struct {
	files   []string
	scanner *bufio.Scanner
	file    *os.File
	path    string
	line    int
}

// OpenDir collects the corpus files under root that match the include
// patterns and none of the exclude patterns (doublestar syntax, relative to
// root). No include patterns means every .jsonl file.
func OpenDir(root string, includes, excludes []string) (*DirSource, error) {
	if len(includes) == 0 {
		includes = []string{"**/*.jsonl"}
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	var files []string
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if info.IsDir() {
			// The root itself is never excluded; "." would read as a
			// hidden directory to patterns like "**/.*/**".
			if rel != "." && matchAny(excludes, rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if matchAny(includes, rel) && !matchAny(excludes, rel) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("corpus: walking %s: %w", root, err)
	}
	return &DirSource{files: files}, nil
}

// Files returns the corpus files that will be read, in read order.
func (s *DirSource) Files() []string {
	return append([]string(nil), s.files...)
}

// Next returns the next entry. ok=false means the corpus is exhausted.
func (s *DirSource) Next() (domain.Entry, bool, error) {
	for {
		if s.scanner == nil {
			if len(s.files) == 0 {
				return domain.Entry{}, false, nil
			}
			if err := s.advance(); err != nil {
				return domain.Entry{}, false, err
			}
		}
		for s.scanner.Scan() {
			s.line++
			raw := s.scanner.Bytes()
			if len(raw) == 0 {
				continue
			}
			var doc docLine
			if err := json.Unmarshal(raw, &doc); err != nil {
				return domain.Entry{}, false, fmt.Errorf("corpus: %s:%d: %w", s.path, s.line, err)
			}
			if doc.Title == "" {
				return domain.Entry{}, false, fmt.Errorf("corpus: %s:%d: entry has no title", s.path, s.line)
			}
			words := doc.Words
			if len(words) == 0 {
				words = Tokenize(doc.Title)
			}
			return domain.Entry{
				Words: words,
				Score: doc.Score,
				Record: domain.Record{
					Filename: doc.Filename,
					Title:    doc.Title,
					Payload:  doc.Payload,
				},
			}, true, nil
		}
		if err := s.scanner.Err(); err != nil {
			return domain.Entry{}, false, fmt.Errorf("corpus: reading %s: %w", s.path, err)
		}
		s.file.Close()
		s.file = nil
		s.scanner = nil
	}
}

func (s *DirSource) advance() error {
	path := s.files[0]
	s.files = s.files[1:]
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("corpus: %w", err)
	}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	s.file, s.scanner, s.path, s.line = f, sc, path, 0
	return nil
}

// Close releases the file currently being read, if any. Next after Close is
// undefined.
func (s *DirSource) Close() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	s.scanner = nil
	return err
}

func matchAny(patterns []string, rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}
