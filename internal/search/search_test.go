// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pdiddy/bioscout/pkg/types"
)

// --- mock adapter ---

type mockAdapter struct {
	source   types.Source
	articles []types.Article
	err      error
	calls    int32
}

func (m *mockAdapter) Source() types.Source { return m.source }

func (m *mockAdapter) Search(_ context.Context, _ Query, _ types.SearchConfig) ([]types.Article, error) {
	atomic.AddInt32(&m.calls, 1)
	return m.articles, m.err
}

func testCfg() types.SearchConfig {
	return types.SearchConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   10 * time.Second,
			UserAgent: "test/0.1",
		},
		MaxResults: 500,
	}
}

func testQuery(keywords ...string) Query {
	return Query{
		Keywords: keywords,
		DateFrom: date(2024, 1, 1),
		DateTo:   date(2024, 12, 31),
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func article(src types.Source, id, title string, d time.Time, matched ...string) types.Article {
	return types.Article{
		Source:          src,
		ExternalID:      id,
		Title:           title,
		Date:            d,
		MatchedKeywords: matched,
		MatchCount:      len(matched),
	}
}

// --- Query validation ---

func TestQueryValidate(t *testing.T) {
	tests := []struct {
		name   string
		query  Query
		errSub string
	}{
		{"valid", testQuery("p53"), ""},
		{"no keywords", Query{DateFrom: date(2024, 1, 1), DateTo: date(2024, 2, 1)}, "no keywords"},
		{"blank keyword", Query{Keywords: []string{"p53", "  "}, DateFrom: date(2024, 1, 1), DateTo: date(2024, 2, 1)}, "blank"},
		{"missing dates", Query{Keywords: []string{"p53"}}, "incomplete"},
		{"inverted window", Query{Keywords: []string{"p53"}, DateFrom: date(2024, 2, 1), DateTo: date(2024, 1, 1)}, "inverted"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.query.Validate()
			if tt.errSub == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errSub) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.errSub)
			}
		})
	}
}

func TestQueryInWindow(t *testing.T) {
	q := testQuery("p53")
	tests := []struct {
		name string
		d    time.Time
		want bool
	}{
		{"inside", date(2024, 6, 15), true},
		{"start boundary", date(2024, 1, 1), true},
		{"end boundary", date(2024, 12, 31), true},
		{"before", date(2023, 12, 31), false},
		{"after", date(2025, 1, 1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := q.InWindow(tt.d); got != tt.want {
				t.Errorf("InWindow(%s) = %v, want %v", tt.d.Format(dateFmt), got, tt.want)
			}
		})
	}
}

// --- keyword matching ---

func TestMatchKeywords(t *testing.T) {
	tests := []struct {
		name     string
		keywords []string
		fields   []string
		want     []string
	}{
		{
			"case-insensitive title match",
			[]string{"P53"},
			[]string{"The p53 tumor suppressor", ""},
			[]string{"p53"},
		},
		{
			"match across title and abstract",
			[]string{"p53", "immunotherapy"},
			[]string{"The p53 tumor suppressor", "We study immunotherapy response."},
			[]string{"immunotherapy", "p53"},
		},
		{
			"no match",
			[]string{"braf"},
			[]string{"The p53 tumor suppressor", "Abstract text."},
			nil,
		},
		{
			"duplicate keywords counted once",
			[]string{"p53", "P53"},
			[]string{"p53 pathway", ""},
			[]string{"p53"},
		},
		{
			"multi-word keyword",
			[]string{"breast cancer"},
			[]string{"Outcomes in breast cancer patients", ""},
			[]string{"breast cancer"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, count := matchKeywords(tt.keywords, tt.fields...)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("matchKeywords() = %v, want %v", got, tt.want)
			}
			if count != len(tt.want) {
				t.Errorf("count = %d, want %d", count, len(tt.want))
			}
		})
	}
}

// --- coordinator ---

func TestRunRejectsInvalidQueryBeforeDispatch(t *testing.T) {
	bad := Query{
		Keywords: []string{"p53"},
		DateFrom: date(2024, 2, 1),
		DateTo:   date(2024, 1, 1),
	}
	adapter := &mockAdapter{source: types.SourcePubMed}

	_, err := Run(context.Background(), bad, []Adapter{adapter}, testCfg(), nil)
	if err == nil || !strings.Contains(err.Error(), "inverted") {
		t.Fatalf("Run() = %v, want validation error", err)
	}
	if n := atomic.LoadInt32(&adapter.calls); n != 0 {
		t.Errorf("adapter was dispatched %d times, want 0", n)
	}
}

func TestRunNoAdapters(t *testing.T) {
	_, err := Run(context.Background(), testQuery("p53"), nil, testCfg(), nil)
	if err == nil || !strings.Contains(err.Error(), "no source adapters") {
		t.Errorf("Run() = %v, want no-adapters error", err)
	}
}

func TestRunContinuesAfterSourceFailure(t *testing.T) {
	failing := &mockAdapter{source: types.SourceBioRxiv, err: fmt.Errorf("request timed out")}
	working := &mockAdapter{
		source: types.SourcePubMed,
		articles: []types.Article{
			article(types.SourcePubMed, "100", "p53 review", date(2024, 3, 1), "p53"),
		},
	}

	result, err := Run(context.Background(), testQuery("p53"), []Adapter{failing, working}, testCfg(), nil)
	if err != nil {
		t.Fatalf("Run should not fail for a source failure: %v", err)
	}
	if len(result.Records) != 1 {
		t.Errorf("len(Records) = %d, want 1", len(result.Records))
	}
	if len(result.PerSourceErrors) != 1 {
		t.Fatalf("len(PerSourceErrors) = %d, want 1", len(result.PerSourceErrors))
	}
	if msg := result.PerSourceErrors[types.SourceBioRxiv]; !strings.Contains(msg, "timed out") {
		t.Errorf("PerSourceErrors[biorxiv] = %q", msg)
	}
	if _, ok := result.PerSourceCounts[types.SourceBioRxiv]; ok {
		t.Error("failed source should not appear in PerSourceCounts")
	}
}

func TestRunAllSourcesFail(t *testing.T) {
	adapters := []Adapter{
		&mockAdapter{source: types.SourcePubMed, err: fmt.Errorf("HTTP 500")},
		&mockAdapter{source: types.SourceBioRxiv, err: fmt.Errorf("request timed out")},
		&mockAdapter{source: types.SourceEuropePMC, err: fmt.Errorf("malformed payload")},
	}

	result, err := Run(context.Background(), testQuery("p53"), adapters, testCfg(), nil)
	if err != nil {
		t.Fatalf("total source failure must be reported, not raised: %v", err)
	}
	if len(result.Records) != 0 {
		t.Errorf("len(Records) = %d, want 0", len(result.Records))
	}
	if result.TotalCount != 0 {
		t.Errorf("TotalCount = %d, want 0", result.TotalCount)
	}
	if len(result.PerSourceErrors) != 3 {
		t.Errorf("len(PerSourceErrors) = %d, want 3", len(result.PerSourceErrors))
	}
}

// The partial-failure scenario: one source returns two matching records
// and one with no keyword match, a second source returns a duplicate of
// one of them with a higher match count, and the third source times out.
func TestRunPartialFailureScenario(t *testing.T) {
	d := date(2024, 5, 10)
	europepmc := &mockAdapter{
		source: types.SourceEuropePMC,
		articles: []types.Article{
			article(types.SourceEuropePMC, "38001", "p53 in tumor suppression", d, "p53"),
			article(types.SourceEuropePMC, "38002", "Another p53 study", date(2024, 4, 2), "p53"),
			article(types.SourceEuropePMC, "38003", "Unrelated cardiology paper", date(2024, 4, 3)),
		},
	}
	pubmed := &mockAdapter{
		source: types.SourcePubMed,
		articles: []types.Article{
			{
				Source: types.SourcePubMed, ExternalID: "99001",
				Title: "p53 in tumor suppression", Date: d,
				MatchedKeywords: []string{"p53", "tumor"}, MatchCount: 2,
			},
		},
	}
	biorxiv := &mockAdapter{source: types.SourceBioRxiv, err: fmt.Errorf("request timed out")}

	query := testQuery("p53", "tumor")
	result, err := Run(context.Background(), query, []Adapter{europepmc, pubmed, biorxiv}, testCfg(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(result.Records) != 2 {
		t.Fatalf("len(Records) = %d, want 2", len(result.Records))
	}
	// The duplicate resolves to the higher-match-count PubMed instance,
	// which also ranks first.
	if result.Records[0].ExternalID != "99001" || result.Records[0].Source != types.SourcePubMed {
		t.Errorf("Records[0] = %s/%s, want pubmed/99001", result.Records[0].Source, result.Records[0].ExternalID)
	}
	if len(result.PerSourceErrors) != 1 {
		t.Errorf("len(PerSourceErrors) = %d, want 1", len(result.PerSourceErrors))
	}
	// Raw counts are pre-dedup and include the zero-match record.
	if result.PerSourceCounts[types.SourceEuropePMC] != 3 {
		t.Errorf("PerSourceCounts[europepmc] = %d, want 3", result.PerSourceCounts[types.SourceEuropePMC])
	}
	if result.PerSourceCounts[types.SourcePubMed] != 1 {
		t.Errorf("PerSourceCounts[pubmed] = %d, want 1", result.PerSourceCounts[types.SourcePubMed])
	}
}

func TestRunFiltersZeroMatchAndOutOfWindowRecords(t *testing.T) {
	adapter := &mockAdapter{
		source: types.SourcePubMed,
		articles: []types.Article{
			article(types.SourcePubMed, "1", "p53 study", date(2024, 3, 1), "p53"),
			article(types.SourcePubMed, "2", "No keywords here", date(2024, 3, 2)),
			article(types.SourcePubMed, "3", "p53 but too old", date(2020, 1, 1), "p53"),
		},
	}

	result, err := Run(context.Background(), testQuery("p53"), []Adapter{adapter}, testCfg(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Records) != 1 {
		t.Fatalf("len(Records) = %d, want 1", len(result.Records))
	}
	if result.Records[0].ExternalID != "1" {
		t.Errorf("Records[0].ExternalID = %q, want %q", result.Records[0].ExternalID, "1")
	}
	// Raw count still reflects everything the source returned.
	if result.PerSourceCounts[types.SourcePubMed] != 3 {
		t.Errorf("PerSourceCounts[pubmed] = %d, want 3", result.PerSourceCounts[types.SourcePubMed])
	}
}

func TestRunReturnsWithinBoundedTime(t *testing.T) {
	adapters := []Adapter{
		&mockAdapter{source: types.SourcePubMed, err: fmt.Errorf("HTTP 503")},
		&mockAdapter{source: types.SourceBioRxiv, err: fmt.Errorf("request timed out")},
		&mockAdapter{source: types.SourceEuropePMC, articles: []types.Article{
			article(types.SourceEuropePMC, "1", "p53 study", date(2024, 3, 1), "p53"),
		}},
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		Run(context.Background(), testQuery("p53"), adapters, testCfg(), nil)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return within bounded time")
	}
}
