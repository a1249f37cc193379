package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"encindex/internal/corpus"
)

var (
	searchLimit int
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search <word>...",
	Short: "Find documents whose titles contain every given word",
	Long: `Search looks up each word's posting list and intersects them. Document
ids are assigned in descending score order at build time, so results come
out best first.

Examples:
  encindex search solar
  encindex search solar system --limit 5 --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output as JSON")
}

type searchResult struct {
	DocID    int     `json:"docid"`
	Title    string  `json:"title"`
	Filename string  `json:"filename"`
	Score    float64 `json:"score"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	words := corpus.Tokenize(strings.Join(args, " "))
	if len(words) == 0 {
		return fmt.Errorf("no searchable words in %q", strings.Join(args, " "))
	}

	r, err := openReader()
	if err != nil {
		return err
	}
	defer r.Close()

	var hits []int
	for i, word := range words {
		ds, ok, err := r.Postings(word)
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}
		if !ok {
			hits = nil
			break
		}
		if i == 0 {
			hits = ds.Docs()
			continue
		}
		member := make(map[int]bool, ds.Len())
		for _, docid := range ds.Docs() {
			member[docid] = true
		}
		kept := hits[:0]
		for _, docid := range hits {
			if member[docid] {
				kept = append(kept, docid)
			}
		}
		hits = kept
	}

	if len(hits) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	total := len(hits)
	if searchLimit > 0 && len(hits) > searchLimit {
		hits = hits[:searchLimit]
	}

	results := make([]searchResult, 0, len(hits))
	for _, docid := range hits {
		rec, ok, err := r.GetDoc(docid)
		if err != nil {
			return fmt.Errorf("failed to fetch document %d: %w", docid, err)
		}
		if !ok {
			continue
		}
		results = append(results, searchResult{
			DocID:    docid,
			Title:    rec.Title,
			Filename: rec.Filename,
			Score:    rec.Score,
		})
	}

	if searchJSON {
		output, _ := json.MarshalIndent(results, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Found %d documents for: %s\n\n", total, strings.Join(words, " "))
	for i, res := range results {
		fmt.Printf("%3d. %s (docid %d, score %g)\n     %s\n", i+1, res.Title, res.DocID, res.Score, res.Filename)
	}
	if total > len(results) {
		fmt.Printf("\n(%d more not shown, raise --limit to see them)\n", total-len(results))
	}
	return nil
}
