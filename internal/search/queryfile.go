// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/bioscout/pkg/types"
)

// QueryFile is the on-disk representation of a search and its results.
// A search can be saved to a file and reloaded later without
// re-querying the APIs.
// Implements: prd002-aggregation R4.6.
type QueryFile struct {
	Query   QueryParams        `yaml:"query"`
	Result  types.RankedResult `yaml:"result"`
	Summary QuerySummary       `yaml:"summary"`
}

// QueryParams stores the query parameters in a serializable form.
type QueryParams struct {
	Keywords []string `yaml:"keywords"`
	DateFrom string   `yaml:"date_from"`
	DateTo   string   `yaml:"date_to"`
}

// QuerySummary stores result statistics and a timestamp.
type QuerySummary struct {
	Total         int       `yaml:"total"`
	SourcesFailed int       `yaml:"sources_failed"`
	Timestamp     time.Time `yaml:"timestamp"`
}

// WriteQueryFile saves query parameters and results to a YAML file.
func WriteQueryFile(path string, query Query, result types.RankedResult) error {
	qf := QueryFile{
		Query: QueryParams{
			Keywords: query.Keywords,
			DateFrom: query.DateFrom.Format(dateFmt),
			DateTo:   query.DateTo.Format(dateFmt),
		},
		Result: result,
		Summary: QuerySummary{
			Total:         result.TotalCount,
			SourcesFailed: len(result.PerSourceErrors),
			Timestamp:     time.Now(),
		},
	}

	data, err := yaml.Marshal(&qf)
	if err != nil {
		return fmt.Errorf("marshaling query file: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadQueryFile loads a previously saved query file from disk.
func ReadQueryFile(path string) (*QueryFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading query file: %w", err)
	}
	var qf QueryFile
	if err := yaml.Unmarshal(data, &qf); err != nil {
		return nil, fmt.Errorf("parsing query file: %w", err)
	}
	return &qf, nil
}

// ToQuery converts stored QueryParams back into a Query struct.
func (p QueryParams) ToQuery() (Query, error) {
	q := Query{Keywords: p.Keywords}

	from, err := time.Parse(dateFmt, p.DateFrom)
	if err != nil {
		return q, fmt.Errorf("invalid date_from %q: %w", p.DateFrom, err)
	}
	q.DateFrom = from

	to, err := time.Parse(dateFmt, p.DateTo)
	if err != nil {
		return q, fmt.Errorf("invalid date_to %q: %w", p.DateTo, err)
	}
	q.DateTo = to

	return q, nil
}
