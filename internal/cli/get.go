package cli

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"encindex/internal/domain"
)

var getJSON bool

var getCmd = &cobra.Command{
	Use:   "get <docid>",
	Short: "Fetch one document record by id",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

func init() {
	rootCmd.AddCommand(getCmd)
	getCmd.Flags().BoolVar(&getJSON, "json", false, "output as JSON")
}

func runGet(cmd *cobra.Command, args []string) error {
	docid, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("docid must be an integer: %q", args[0])
	}

	r, err := openReader()
	if err != nil {
		return err
	}
	defer r.Close()

	rec, ok, err := r.GetDoc(docid)
	if err != nil {
		return fmt.Errorf("failed to fetch document %d: %w", docid, err)
	}
	if !ok {
		fmt.Printf("No document with id %d.\n", docid)
		return nil
	}

	printRecord(docid, rec, getJSON)
	return nil
}

func printRecord(docid int, rec domain.Record, asJSON bool) {
	if asJSON {
		out := struct {
			DocID int `json:"docid"`
			domain.Record
		}{docid, rec}
		data, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(data))
		return
	}

	fmt.Printf("Document %d:\n", docid)
	fmt.Printf("  Title:    %s\n", rec.Title)
	fmt.Printf("  Filename: %s\n", rec.Filename)
	fmt.Printf("  Score:    %g\n", rec.Score)
	for i, field := range rec.Payload {
		fmt.Printf("  Payload[%d]: %s\n", i, field)
	}
}
