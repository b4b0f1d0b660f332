// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/bioscout/internal/library"
	"github.com/pdiddy/bioscout/internal/ratelimit"
	"github.com/pdiddy/bioscout/internal/search"
	"github.com/pdiddy/bioscout/internal/status"
	"github.com/pdiddy/bioscout/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search PubMed, bioRxiv, and Europe PMC for keywords",
	Long: `Search queries the three biomedical databases concurrently, merges and
deduplicates their results, and ranks them by keyword match count. The
date window is either the last --days days or an explicit --from/--to
range (both inclusive).`,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().String("keywords", "", "comma-separated keywords (required)")
	searchCmd.Flags().Int("days", 0, "look back this many days from today")
	searchCmd.Flags().String("from", "", "date window start (YYYY-MM-DD)")
	searchCmd.Flags().String("to", "", "date window end (YYYY-MM-DD)")
	searchCmd.Flags().Int("max-results", 500, "per-source result cap")
	searchCmd.Flags().Bool("json", false, "output the ranked result as JSON")
	searchCmd.Flags().String("save", "", "save the query and results to a YAML file")
	searchCmd.Flags().Bool("archive", false, "archive results into the local library")
	searchCmd.Flags().Bool("quiet", false, "suppress progress output")
	searchCmd.Flags().Duration("timeout", 15*time.Second, "per-request HTTP timeout")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query, err := queryFromFlags(cmd)
	if err != nil {
		return err
	}

	cfg := searchConfigFromFlags(cmd)
	quiet, _ := cmd.Flags().GetBool("quiet")

	limiter := ratelimit.New(cfg.Limits, nil)
	if cfg.NCBIAPIKey != "" {
		// An API key raises the NCBI ceiling from 3 to 10 req/s.
		limiter.SetLimit(types.SourcePubMed, 10)
	}

	client := &http.Client{Timeout: cfg.Timeout}
	bus := status.NewBus()
	adapters := buildAdapters(cfg, client, limiter, bus)
	events := bus.Subscribe(0)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range events {
			if quiet {
				continue
			}
			prefix := ""
			if ev.Source != "" {
				prefix = ev.Source.Display() + ": "
			}
			fmt.Fprintf(os.Stderr, "[%s] %s%s\n", ev.Level, prefix, ev.Message)
		}
	}()

	result, runErr := search.Run(cmd.Context(), query, adapters, cfg, bus)
	bus.Close()
	<-done
	if runErr != nil {
		return runErr
	}

	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		if err := search.FormatJSON(result, os.Stdout); err != nil {
			return err
		}
	} else {
		search.FormatTable(result, os.Stdout)
	}

	if savePath, _ := cmd.Flags().GetString("save"); savePath != "" {
		if err := search.WriteQueryFile(savePath, query, result); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Saved query file: %s\n", savePath)
	}

	if archive, _ := cmd.Flags().GetBool("archive"); archive {
		if err := archiveResult(cmd, result); err != nil {
			return err
		}
	}

	return nil
}

// queryFromFlags builds the engine query from --keywords and either
// --days or --from/--to. Validation proper happens inside the engine;
// this only translates flag shapes.
func queryFromFlags(cmd *cobra.Command) (search.Query, error) {
	raw, _ := cmd.Flags().GetString("keywords")
	var keywords []string
	for _, kw := range strings.Split(raw, ",") {
		kw = strings.TrimSpace(kw)
		if kw != "" {
			keywords = append(keywords, kw)
		}
	}

	q := search.Query{Keywords: keywords}

	days, _ := cmd.Flags().GetInt("days")
	fromStr, _ := cmd.Flags().GetString("from")
	toStr, _ := cmd.Flags().GetString("to")

	switch {
	case days > 0 && (fromStr != "" || toStr != ""):
		return q, fmt.Errorf("--days and --from/--to are mutually exclusive")
	case days > 0:
		now := time.Now().UTC().Truncate(24 * time.Hour)
		q.DateFrom = now.AddDate(0, 0, -days)
		q.DateTo = now
	default:
		if fromStr != "" {
			t, err := time.Parse("2006-01-02", fromStr)
			if err != nil {
				return q, fmt.Errorf("invalid --from date %q: %w", fromStr, err)
			}
			q.DateFrom = t
		}
		if toStr != "" {
			t, err := time.Parse("2006-01-02", toStr)
			if err != nil {
				return q, fmt.Errorf("invalid --to date %q: %w", toStr, err)
			}
			q.DateTo = t
		}
	}

	return q, nil
}

// searchConfigFromFlags merges viper-configured defaults with command
// flags and loaded secrets.
func searchConfigFromFlags(cmd *cobra.Command) types.SearchConfig {
	cfg := types.SearchConfig{
		HTTPConfig: types.HTTPConfig{
			UserAgent: "bioscout/" + version,
		},
		EnablePubMed:    true,
		EnableBioRxiv:   true,
		EnableEuropePMC: true,
		Limits:          types.DefaultSourceLimits(),
	}

	if viper.IsSet("search.enable_pubmed") {
		cfg.EnablePubMed = viper.GetBool("search.enable_pubmed")
	}
	if viper.IsSet("search.enable_biorxiv") {
		cfg.EnableBioRxiv = viper.GetBool("search.enable_biorxiv")
	}
	if viper.IsSet("search.enable_europepmc") {
		cfg.EnableEuropePMC = viper.GetBool("search.enable_europepmc")
	}
	if viper.IsSet("search.limits.pubmed") {
		cfg.Limits.PubMed = viper.GetFloat64("search.limits.pubmed")
	}
	if viper.IsSet("search.limits.biorxiv") {
		cfg.Limits.BioRxiv = viper.GetFloat64("search.limits.biorxiv")
	}
	if viper.IsSet("search.limits.europepmc") {
		cfg.Limits.EuropePMC = viper.GetFloat64("search.limits.europepmc")
	}

	cfg.Timeout, _ = cmd.Flags().GetDuration("timeout")
	cfg.MaxResults, _ = cmd.Flags().GetInt("max-results")
	cfg.NCBIAPIKey = secretDefault("ncbi-api-key", viper.GetString("search.ncbi_api_key"))

	return cfg
}

// buildAdapters constructs the enabled source adapters sharing one
// HTTP client and one limiter.
func buildAdapters(cfg types.SearchConfig, client *http.Client, limiter *ratelimit.Limiter, bus *status.Bus) []search.Adapter {
	var adapters []search.Adapter
	if cfg.EnablePubMed {
		adapters = append(adapters, &search.PubMedAdapter{
			Client: client, Limiter: limiter, Bus: bus, APIKey: cfg.NCBIAPIKey,
		})
	}
	if cfg.EnableEuropePMC {
		adapters = append(adapters, &search.EuropePMCAdapter{
			Client: client, Limiter: limiter, Bus: bus,
			Email: secretDefault("europepmc-email", viper.GetString("search.europepmc_email")),
		})
	}
	if cfg.EnableBioRxiv {
		adapters = append(adapters, &search.BioRxivAdapter{
			Client: client, Limiter: limiter, Bus: bus,
		})
	}
	return adapters
}

// archiveResult writes the ranked result into the library store.
func archiveResult(cmd *cobra.Command, result types.RankedResult) error {
	store, err := library.NewStore(libraryConfig())
	if err != nil {
		return err
	}
	defer store.Close()

	saved, err := store.SaveResult(cmd.Context(), result)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Archived %d articles\n", saved)
	return nil
}

func libraryConfig() types.LibraryConfig {
	cfg := types.LibraryConfig{
		Dir:        viper.GetString("library.dir"),
		MaxResults: viper.GetInt("library.max_results"),
	}
	if cfg.Dir == "" {
		cfg.Dir = "library"
	}
	return cfg
}
