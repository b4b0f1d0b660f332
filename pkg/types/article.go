// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the bioscout engine.
// Implements: prd001-sources (Article, R3.1-R3.4);
//
//	prd002-aggregation (RankedResult, R4.1-R4.3).
//
// See docs/ARCHITECTURE.md § Data Structures.
package types

import "time"

// Source identifies one of the queried biomedical databases.
type Source string

const (
	SourcePubMed    Source = "pubmed"
	SourceBioRxiv   Source = "biorxiv"
	SourceEuropePMC Source = "europepmc"
)

// Priority returns the deterministic precedence of a source, lower is
// stronger. Used to break ties in deduplication and ranking: PubMed,
// then Europe PMC, then bioRxiv (R4.3). Unknown sources sort last.
func (s Source) Priority() int {
	switch s {
	case SourcePubMed:
		return 0
	case SourceEuropePMC:
		return 1
	case SourceBioRxiv:
		return 2
	default:
		return 3
	}
}

// Display returns the human-readable name of the source.
func (s Source) Display() string {
	switch s {
	case SourcePubMed:
		return "PubMed"
	case SourceBioRxiv:
		return "bioRxiv"
	case SourceEuropePMC:
		return "Europe PMC"
	default:
		return string(s)
	}
}

// Article is the canonical, source-agnostic representation of one
// biomedical article returned by a search. Adapters map their native
// response fields onto this shape (R3.1).
type Article struct {
	// Source identifies which database returned this article.
	Source Source `json:"source" yaml:"source"`

	// ExternalID is the source-native identifier: PMID for PubMed,
	// DOI for bioRxiv, PMID-or-DOI for Europe PMC. Unique within a
	// source; (Source, ExternalID) is the natural key (R3.2).
	ExternalID string `json:"external_id" yaml:"external_id"`

	// Title is the article title as returned by the source.
	Title string `json:"title" yaml:"title"`

	// Authors lists the article authors in source order.
	Authors []string `json:"authors" yaml:"authors"`

	// Date is the publication date.
	Date time.Time `json:"date" yaml:"date"`

	// Abstract is the article abstract. May be empty.
	Abstract string `json:"abstract" yaml:"abstract"`

	// URL is the canonical landing page for the article.
	URL string `json:"url" yaml:"url"`

	// MatchedKeywords lists the distinct query keywords found in the
	// article's searchable text, sorted for stable output (R3.3).
	MatchedKeywords []string `json:"matched_keywords" yaml:"matched_keywords"`

	// MatchCount is len(MatchedKeywords). Every article the engine
	// returns has MatchCount >= 1; zero-match articles are dropped
	// before ranking (R3.4).
	MatchCount int `json:"match_count" yaml:"match_count"`
}

// RankedResult is the engine's output: the merged, deduplicated,
// ranked article set plus per-source statistics (R4.1).
type RankedResult struct {
	// Records is the final article sequence, sorted by match count
	// descending, then date descending, then source priority, then
	// external ID (R4.2).
	Records []Article `json:"records" yaml:"records"`

	// PerSourceCounts maps each queried source to the raw number of
	// articles it returned, counted before deduplication.
	PerSourceCounts map[Source]int `json:"per_source_counts" yaml:"per_source_counts"`

	// PerSourceErrors maps each failed source to a description of its
	// failure. Sources absent from the map succeeded.
	PerSourceErrors map[Source]string `json:"per_source_errors" yaml:"per_source_errors"`

	// TotalCount is len(Records).
	TotalCount int `json:"total_count" yaml:"total_count"`
}
