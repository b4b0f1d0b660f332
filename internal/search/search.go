// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search queries biomedical APIs and returns one merged,
// deduplicated, ranked result set.
// Implements: prd001-sources (R1-R5), prd002-aggregation (R1-R4);
//
//	docs/ARCHITECTURE § Aggregation Engine.
package search

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pdiddy/bioscout/internal/status"
	"github.com/pdiddy/bioscout/pkg/types"
)

// Adapter searches a single biomedical database. Each adapter (PubMed,
// bioRxiv, Europe PMC) implements this interface per the Strategy
// pattern (R2.6) and owns its source's field mapping. Failures are
// returned as errors, never panics; the coordinator records them as
// per-source error entries.
type Adapter interface {
	Source() types.Source
	Search(ctx context.Context, query Query, cfg types.SearchConfig) ([]types.Article, error)
}

// Query holds the search parameters (R1.1, R1.2). It is read-only once
// dispatched.
type Query struct {
	// Keywords are matched case-insensitively against each article's
	// searchable text.
	Keywords []string

	// DateFrom and DateTo bound the publication date, both inclusive.
	DateFrom time.Time
	DateTo   time.Time
}

// Validate rejects malformed queries before any adapter is dispatched
// (R1.4). It checks for an empty or blank keyword list, missing dates,
// and an inverted date window.
func (q Query) Validate() error {
	if len(q.Keywords) == 0 {
		return fmt.Errorf("query has no keywords: provide at least one search term")
	}
	for i, kw := range q.Keywords {
		if strings.TrimSpace(kw) == "" {
			return fmt.Errorf("keyword %d is blank", i+1)
		}
	}
	if q.DateFrom.IsZero() || q.DateTo.IsZero() {
		return fmt.Errorf("query date window is incomplete: both start and end dates are required")
	}
	if q.DateTo.Before(q.DateFrom) {
		return fmt.Errorf("query date window is inverted: end %s is before start %s",
			q.DateTo.Format(dateFmt), q.DateFrom.Format(dateFmt))
	}
	return nil
}

// InWindow reports whether d falls inside the query's inclusive date
// window.
func (q Query) InWindow(d time.Time) bool {
	return !d.Before(q.DateFrom) && !d.After(q.DateTo)
}

// Run fans the query out to all adapters concurrently, merges whatever
// they return, deduplicates, ranks, and reports per-source statistics
// (R1-R4). One source's failure never aborts the others: a failed
// adapter becomes an entry in PerSourceErrors and the run still
// returns the union of the sources that succeeded. If every source
// fails the result is an empty record set with all errors populated,
// not an error return (R2.4).
//
// Only a pre-dispatch contract violation (invalid query, no adapters)
// returns a non-nil error.
func Run(ctx context.Context, query Query, adapters []Adapter, cfg types.SearchConfig, bus *status.Bus) (types.RankedResult, error) {
	if err := query.Validate(); err != nil {
		return types.RankedResult{}, err
	}
	if len(adapters) == 0 {
		return types.RankedResult{}, fmt.Errorf("no source adapters configured")
	}

	type sourceResult struct {
		source   types.Source
		articles []types.Article
		err      error
	}

	ch := make(chan sourceResult, len(adapters))
	var wg sync.WaitGroup

	for _, a := range adapters {
		wg.Add(1)
		go func(a Adapter) {
			defer wg.Done()
			articles, err := a.Search(ctx, query, cfg)
			ch <- sourceResult{source: a.Source(), articles: articles, err: err}
		}(a)
	}

	go func() {
		wg.Wait()
		close(ch)
	}()

	result := types.RankedResult{
		PerSourceCounts: make(map[types.Source]int),
		PerSourceErrors: make(map[types.Source]string),
	}

	var all []types.Article
	for sr := range ch {
		if sr.err != nil {
			result.PerSourceErrors[sr.source] = sr.err.Error()
			bus.Publish(status.Error, sr.source, fmt.Sprintf("failed: %v", sr.err))
			continue
		}
		result.PerSourceCounts[sr.source] = len(sr.articles)
		for _, art := range sr.articles {
			// Enforce the output invariants even if an adapter leaks a
			// zero-match or out-of-window record.
			if art.MatchCount < 1 || !query.InWindow(art.Date) {
				continue
			}
			all = append(all, art)
		}
	}

	result.Records = rank(dedup(all))
	result.TotalCount = len(result.Records)

	if len(result.PerSourceErrors) == len(adapters) {
		bus.Publish(status.Error, "", "all sources failed")
	} else {
		bus.Publish(status.Success, "",
			fmt.Sprintf("%d relevant articles after deduplication", result.TotalCount))
	}

	return result, nil
}

// matchKeywords performs case-insensitive substring matching of every
// query keyword against the concatenation of fields and returns the
// distinct matched keywords, sorted, with their count (R3.3). Adapters
// pass title, abstract, and any extra searchable text their source
// provides (MeSH terms for PubMed).
func matchKeywords(keywords []string, fields ...string) ([]string, int) {
	haystack := strings.ToLower(strings.Join(fields, " "))

	seen := make(map[string]bool)
	var matched []string
	for _, kw := range keywords {
		lower := strings.ToLower(strings.TrimSpace(kw))
		if lower == "" || seen[lower] {
			continue
		}
		if strings.Contains(haystack, lower) {
			seen[lower] = true
			matched = append(matched, lower)
		}
	}
	sort.Strings(matched)
	return matched, len(matched)
}

const dateFmt = "2006-01-02"
