package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var randomJSON bool

var randomCmd = &cobra.Command{
	Use:   "random",
	Short: "Sample one document record uniformly",
	RunE:  runRandom,
}

func init() {
	rootCmd.AddCommand(randomCmd)
	randomCmd.Flags().BoolVar(&randomJSON, "json", false, "output as JSON")
}

func runRandom(cmd *cobra.Command, args []string) error {
	r, err := openReader()
	if err != nil {
		return err
	}
	defer r.Close()

	rec, ok, err := r.Random()
	if err != nil {
		return fmt.Errorf("failed to sample: %w", err)
	}
	if !ok {
		fmt.Println("The index is empty.")
		return nil
	}

	if randomJSON {
		data, _ := json.MarshalIndent(rec, "", "  ")
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("Title:    %s\n", rec.Title)
	fmt.Printf("Filename: %s\n", rec.Filename)
	fmt.Printf("Score:    %g\n", rec.Score)
	for i, field := range rec.Payload {
		fmt.Printf("Payload[%d]: %s\n", i, field)
	}
	return nil
}
