package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"encindex/internal/compress"
	"encindex/internal/corpus"
	"encindex/internal/index"
	"encindex/internal/logging"
	"encindex/internal/store"
)

var (
	buildEngine string
	buildCodec  string
	buildForce  bool
)

var buildCmd = &cobra.Command{
	Use:   "build [corpus]",
	Short: "Build the index from a corpus directory",
	Long: `Build reads every corpus file under the given directory (JSON lines, one
document per line), orders the documents by descending score, and writes
the index artifact. The artifact lands in .encindex/index under the root
directory unless --index says otherwise.

Examples:
  encindex build ./corpus              # Build from ./corpus
  encindex build ./corpus --force      # Replace an existing index
  encindex build ./corpus --engine bolt --codec snappy`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)
	buildCmd.Flags().StringVar(&buildEngine, "engine", "", "storage engine (default from config)")
	buildCmd.Flags().StringVar(&buildCodec, "codec", "", "page compression codec (default from config)")
	buildCmd.Flags().BoolVar(&buildForce, "force", false, "replace an existing index artifact")
}

func runBuild(cmd *cobra.Command, args []string) error {
	corpusPath := GetRootDir()
	if len(args) > 0 {
		var err error
		corpusPath, err = filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("invalid path: %w", err)
		}
	}

	info, err := os.Stat(corpusPath)
	if err != nil {
		return fmt.Errorf("corpus path does not exist: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("corpus path is not a directory: %s", corpusPath)
	}

	cfg := GetConfig()
	engine := cfg.Index.Engine
	if buildEngine != "" {
		engine = buildEngine
	}
	codecName := cfg.Index.Codec
	if buildCodec != "" {
		codecName = buildCodec
	}
	codec, err := compress.New(codecName)
	if err != nil {
		return err
	}

	src, err := corpus.OpenDir(corpusPath, cfg.Corpus.Includes, cfg.Corpus.Excludes)
	if err != nil {
		return err
	}
	defer src.Close()
	if len(src.Files()) == 0 {
		return fmt.Errorf("no corpus files under %s match the configured patterns", corpusPath)
	}

	if buildForce {
		if err := store.Remove(engine, indexDir); err != nil {
			return err
		}
	}
	st, err := store.Create(engine, indexDir)
	if err != nil {
		return fmt.Errorf("failed to create index store: %w", err)
	}
	defer st.Close()

	fmt.Printf("Building index from %s (%d files)...\n", corpusPath, len(src.Files()))

	var (
		bar      *progressbar.ProgressBar
		curStage string
	)
	progressCallback := func(stage string, done, total int) {
		if stage != curStage {
			if bar != nil {
				bar.Finish()
			}
			curStage = stage
			bar = newStageBar(stage, total)
		}
		bar.Set(done)
	}

	stats, err := index.Build(st, src, index.BuildOptions{
		Codec:    codec,
		Logger:   logging.WithComponent("build"),
		Progress: progressCallback,
	})
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	fmt.Printf("\nBuild complete:\n")
	fmt.Printf("  Documents: %d\n", stats.Documents)
	fmt.Printf("  Words:     %d\n", stats.Tokens)
	fmt.Printf("  Postings:  %d\n", stats.Indexed)
	fmt.Printf("  Elapsed:   %s\n", formatDuration(stats.Elapsed))

	fmt.Printf("\nIndex stored at: %s\n", indexDir)
	return nil
}

func newStageBar(stage string, total int) *progressbar.ProgressBar {
	descriptions := map[string]string{
		index.StageCollect:   "[cyan]Collecting[reset]",
		index.StageDocuments: "[cyan]Documents [reset]",
		index.StageTokens:    "[cyan]Tokens    [reset]",
	}
	if total == 0 {
		total = -1 // spinner while the size is unknown
	}
	return progressbar.NewOptions(total,
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(false),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription(descriptions[stage]),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Println()
		}),
	)
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}
