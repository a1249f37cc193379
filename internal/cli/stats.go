package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"encindex/internal/index"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	r, err := openReader()
	if err != nil {
		return err
	}
	defer r.Close()

	docs, err := r.Len()
	if err != nil {
		return err
	}
	keys, err := r.Keys()
	if err != nil {
		return err
	}
	pages := (docs + index.PageSize - 1) / index.PageSize

	var size int64
	filepath.Walk(indexDir, func(path string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			size += info.Size()
		}
		return nil
	})

	cfg := GetConfig()
	fmt.Printf("Index at %s:\n", indexDir)
	fmt.Printf("  Engine:    %s\n", cfg.Index.Engine)
	fmt.Printf("  Codec:     %s\n", cfg.Index.Codec)
	fmt.Printf("  Documents: %d\n", docs)
	fmt.Printf("  Pages:     %d\n", pages)
	fmt.Printf("  Words:     %d\n", len(keys))
	fmt.Printf("  Size:      %.1f KiB\n", float64(size)/1024)
	return nil
}
