// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/bioscout/internal/library"
	"github.com/pdiddy/bioscout/pkg/types"
)

var libraryCmd = &cobra.Command{
	Use:   "library",
	Short: "Query the local article archive",
	Long: `Library queries articles previously archived with 'search --archive'.
Lookups run as SQLite full-text search over title and abstract, with an
optional source filter.`,
	RunE: runLibrary,
}

func init() {
	libraryCmd.Flags().String("query", "", "full-text query over title and abstract")
	libraryCmd.Flags().String("source", "", "filter by source: pubmed, biorxiv, europepmc")
	libraryCmd.Flags().Int("max-results", 0, "maximum number of results")
	libraryCmd.Flags().Bool("json", false, "output results as JSON")

	rootCmd.AddCommand(libraryCmd)
}

func runLibrary(cmd *cobra.Command, args []string) error {
	store, err := library.NewStore(libraryConfig())
	if err != nil {
		return err
	}
	defer store.Close()

	text, _ := cmd.Flags().GetString("query")
	sourceStr, _ := cmd.Flags().GetString("source")
	limit, _ := cmd.Flags().GetInt("max-results")

	articles, err := store.Query(cmd.Context(), library.QueryOptions{
		Text:   text,
		Source: types.Source(sourceStr),
		Limit:  limit,
	})
	if err != nil {
		return err
	}

	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(articles)
	}

	if len(articles) == 0 {
		fmt.Println("No archived articles match.")
		return nil
	}
	for i, art := range articles {
		fmt.Printf("[%d] %s\n", i+1, art.Title)
		fmt.Printf("    %s  %s  %s\n", art.Date.Format("2006-01-02"), art.Source.Display(), art.URL)
		if len(art.Authors) > 0 {
			fmt.Printf("    %s\n", strings.Join(art.Authors, ", "))
		}
	}
	return nil
}
