// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/bioscout/pkg/types"
)

// FormatTable writes the ranked result to w as human-readable groups,
// one group per match count, most matches first (R4.4).
func FormatTable(result types.RankedResult, w io.Writer) {
	if len(result.Records) == 0 {
		fmt.Fprintln(w, "No relevant articles found.")
		writeSourceSummary(result, w)
		return
	}

	fmt.Fprintf(w, "%d relevant articles\n", result.TotalCount)

	lastCount := -1
	idx := 0
	for _, rec := range result.Records {
		if rec.MatchCount != lastCount {
			lastCount = rec.MatchCount
			idx = 0
			label := "match"
			if rec.MatchCount > 1 {
				label = "matches"
			}
			fmt.Fprintf(w, "\n%s\n%d %s\n%s\n", strings.Repeat("=", 80), rec.MatchCount, label, strings.Repeat("=", 80))
		}
		idx++

		fmt.Fprintf(w, "\n[%d] %s\n", idx, rec.Title)
		fmt.Fprintf(w, "    Date:     %s\n", rec.Date.Format(dateFmt))
		fmt.Fprintf(w, "    Source:   %s\n", rec.Source.Display())
		fmt.Fprintf(w, "    Authors:  %s\n", truncate(strings.Join(rec.Authors, ", "), 70))
		fmt.Fprintf(w, "    Keywords: %s\n", strings.Join(rec.MatchedKeywords, ", "))
		if rec.Abstract != "" {
			fmt.Fprintf(w, "    Abstract: %s\n", truncate(rec.Abstract, 150))
		}
		fmt.Fprintf(w, "    Link:     %s\n", rec.URL)
	}

	fmt.Fprintln(w)
	writeSourceSummary(result, w)
}

// writeSourceSummary reports raw per-source counts and failures.
func writeSourceSummary(result types.RankedResult, w io.Writer) {
	for _, src := range []types.Source{types.SourcePubMed, types.SourceEuropePMC, types.SourceBioRxiv} {
		if n, ok := result.PerSourceCounts[src]; ok {
			fmt.Fprintf(w, "%s: %d returned\n", src.Display(), n)
		}
		if msg, ok := result.PerSourceErrors[src]; ok {
			fmt.Fprintf(w, "%s: failed: %s\n", src.Display(), msg)
		}
	}
}

// FormatJSON writes the ranked result as indented JSON to w (R4.5).
func FormatJSON(result types.RankedResult, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
