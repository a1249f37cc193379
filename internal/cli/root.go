package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"encindex/config"
	"encindex/internal/compress"
	"encindex/internal/index"
	"encindex/internal/logging"
)

var (
	cfgFile  string
	cfg      *config.Config
	rootDir  string
	indexDir string
)

var rootCmd = &cobra.Command{
	Use:   "encindex",
	Short: "Build and query a title index over an offline document corpus",
	Long: `encindex builds a compact, read-only word index over a document corpus
and serves lookups against it: word membership, posting lists, random
sampling, and record retrieval by document id.

Example usage:
  encindex build ./corpus        # Build the index from a corpus directory
  encindex search solar system   # Find documents by title words
  encindex get 42                # Fetch one record by document id
  encindex random                # Sample a random record`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		logging.Setup(cfg.Logging.Level)

		if indexDir == "" {
			indexDir = config.IndexDir(rootDir)
		}

		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./encindex.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "root directory (default is current directory)")
	rootCmd.PersistentFlags().StringVar(&indexDir, "index", "", "index directory (default is <root>/.encindex/index)")
}

func GetConfig() *config.Config {
	return cfg
}

func GetRootDir() string {
	return rootDir
}

// openReader opens the index artifact for the query commands.
func openReader() (*index.Reader, error) {
	codec, err := compress.New(cfg.Index.Codec)
	if err != nil {
		return nil, err
	}
	r, err := index.Open(cfg.Index.Engine, indexDir, index.ReaderOptions{
		Codec:      codec,
		CachePages: cfg.Query.CachePages,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open index at %s (run 'encindex build' first?): %w", indexDir, err)
	}
	return r, nil
}
