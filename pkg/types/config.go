// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make
// network requests.
type HTTPConfig struct {
	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "bioscout/0.1"). Per prd001-sources R5.2.
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// SourceLimits holds the outbound request ceiling for each source in
// requests per second. Per prd003-pacing R1.1-R1.3.
type SourceLimits struct {
	// PubMed is the NCBI E-utilities ceiling: 3 req/s without an API
	// key, 10 req/s with one.
	PubMed float64 `json:"pubmed" yaml:"pubmed"`

	// BioRxiv is a conservative default; bioRxiv publishes no limit.
	BioRxiv float64 `json:"biorxiv" yaml:"biorxiv"`

	// EuropePMC follows the EBI guidance of at most 10 req/s.
	EuropePMC float64 `json:"europepmc" yaml:"europepmc"`
}

// DefaultSourceLimits returns the documented or conservative ceiling
// per source.
func DefaultSourceLimits() SourceLimits {
	return SourceLimits{
		PubMed:    3,
		BioRxiv:   1,
		EuropePMC: 10,
	}
}

// SearchConfig holds settings for the aggregation engine.
// Per prd001-sources R5.1-R5.4, prd002-aggregation R5.1.
type SearchConfig struct {
	HTTPConfig `yaml:",inline"`

	// MaxResults caps how many IDs each source is asked for per query
	// (default 500).
	MaxResults int `json:"max_results" yaml:"max_results"`

	// EnablePubMed controls whether the PubMed adapter is used.
	EnablePubMed bool `json:"enable_pubmed" yaml:"enable_pubmed"`

	// EnableBioRxiv controls whether the bioRxiv adapter is used.
	EnableBioRxiv bool `json:"enable_biorxiv" yaml:"enable_biorxiv"`

	// EnableEuropePMC controls whether the Europe PMC adapter is used.
	EnableEuropePMC bool `json:"enable_europepmc" yaml:"enable_europepmc"`

	// NCBIAPIKey is an optional E-utilities key for the higher 10 req/s
	// ceiling. Loaded from .secrets/ncbi-api-key when unset.
	NCBIAPIKey string `json:"ncbi_api_key,omitempty" yaml:"ncbi_api_key,omitempty"`

	// Limits holds the per-source request ceilings.
	Limits SourceLimits `json:"limits" yaml:"limits"`
}

// LibraryConfig holds settings for the local article archive.
// Per prd005-library R1.1-R1.2.
type LibraryConfig struct {
	// Dir is the directory containing library.db.
	Dir string `json:"dir" yaml:"dir"`

	// MaxResults is the default maximum number of query results
	// (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// EngineConfig groups all component configurations.
type EngineConfig struct {
	Search  SearchConfig  `json:"search" yaml:"search"`
	Library LibraryConfig `json:"library" yaml:"library"`
}
