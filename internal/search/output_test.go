// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/pdiddy/bioscout/pkg/types"
)

func TestFormatTableGroupsByMatchCount(t *testing.T) {
	result := types.RankedResult{
		Records: []types.Article{
			article(types.SourcePubMed, "100", "Double match", date(2024, 3, 5), "p53", "tumor"),
			article(types.SourcePubMed, "200", "Single match A", date(2024, 3, 4), "p53"),
			article(types.SourceBioRxiv, "10.1101/x", "Single match B", date(2024, 3, 3), "tumor"),
		},
		PerSourceCounts: map[types.Source]int{
			types.SourcePubMed:  2,
			types.SourceBioRxiv: 1,
		},
		TotalCount: 3,
	}

	var buf bytes.Buffer
	FormatTable(result, &buf)
	out := buf.String()

	if !strings.Contains(out, "3 relevant articles") {
		t.Errorf("missing total line in:\n%s", out)
	}
	if !strings.Contains(out, "2 matches") {
		t.Errorf("missing 2-match group header in:\n%s", out)
	}
	if !strings.Contains(out, "1 match\n") {
		t.Errorf("missing 1-match group header in:\n%s", out)
	}
	// Group headers appear in rank order: 2 matches before 1 match.
	if strings.Index(out, "2 matches") > strings.Index(out, "1 match\n") {
		t.Error("group headers out of order")
	}
	// Numbering restarts inside each group.
	if strings.Count(out, "\n[1] ") != 2 {
		t.Errorf("expected [1] once per group in:\n%s", out)
	}
	if !strings.Contains(out, "Source:   PubMed") || !strings.Contains(out, "Source:   bioRxiv") {
		t.Errorf("missing display source names in:\n%s", out)
	}
	if !strings.Contains(out, "PubMed: 2 returned") || !strings.Contains(out, "bioRxiv: 1 returned") {
		t.Errorf("missing per-source summary in:\n%s", out)
	}
}

func TestFormatTableEmptyResult(t *testing.T) {
	result := types.RankedResult{
		PerSourceCounts: map[types.Source]int{types.SourcePubMed: 0},
		PerSourceErrors: map[types.Source]string{types.SourceBioRxiv: "context deadline exceeded"},
	}

	var buf bytes.Buffer
	FormatTable(result, &buf)
	out := buf.String()

	if !strings.Contains(out, "No relevant articles found.") {
		t.Errorf("missing empty-result line in:\n%s", out)
	}
	if !strings.Contains(out, "bioRxiv: failed: context deadline exceeded") {
		t.Errorf("missing failure line in:\n%s", out)
	}
}

func TestFormatJSON(t *testing.T) {
	result := types.RankedResult{
		Records: []types.Article{
			article(types.SourcePubMed, "100", "A paper", date(2024, 3, 5), "p53"),
		},
		PerSourceCounts: map[types.Source]int{types.SourcePubMed: 1},
		TotalCount:      1,
	}

	var buf bytes.Buffer
	if err := FormatJSON(result, &buf); err != nil {
		t.Fatalf("FormatJSON: %v", err)
	}

	var decoded types.RankedResult
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.TotalCount != 1 || len(decoded.Records) != 1 {
		t.Errorf("decoded = %+v", decoded)
	}
	if decoded.Records[0].ExternalID != "100" {
		t.Errorf("ExternalID = %q", decoded.Records[0].ExternalID)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate = %q", got)
	}
	got := truncate("a long string that exceeds the cap", 10)
	if got != "a long ..." {
		t.Errorf("truncate = %q", got)
	}
	if len(got) != 10 {
		t.Errorf("len = %d, want 10", len(got))
	}
}
