// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/bioscout/internal/httputil"
	"github.com/pdiddy/bioscout/internal/ratelimit"
	"github.com/pdiddy/bioscout/internal/status"
	"github.com/pdiddy/bioscout/pkg/types"
)

// europePMCAPIBase is the Europe PMC REST search endpoint. Declared as
// a var so tests can substitute an httptest server.
var europePMCAPIBase = "https://www.ebi.ac.uk/europepmc/webservices/rest/search"

// EuropePMCAdapter queries the Europe PMC REST API (R2.3). Europe PMC
// searches title, abstract, and full text by default, so the query
// only OR-joins the quoted keywords.
type EuropePMCAdapter struct {
	Client  *http.Client
	Limiter *ratelimit.Limiter
	Bus     *status.Bus
	// Email identifies the caller to the EBI service. Optional.
	Email string
}

// Source returns the adapter's source identifier.
func (a *EuropePMCAdapter) Source() types.Source { return types.SourceEuropePMC }

// Search queries Europe PMC and returns normalized articles.
func (a *EuropePMCAdapter) Search(ctx context.Context, query Query, cfg types.SearchConfig) ([]types.Article, error) {
	a.Bus.Infof(types.SourceEuropePMC, "querying Europe PMC (title + abstract + full text)")

	pageSize := cfg.MaxResults
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 200
	}

	params := url.Values{
		"query":               {buildEuropePMCQuery(query.Keywords)},
		"format":              {"json"},
		"pageSize":            {strconv.Itoa(pageSize)},
		"sort":                {"P_PDATE_D desc"},
		"fromPublicationDate": {query.DateFrom.Format(dateFmt)},
		"toPublicationDate":   {query.DateTo.Format(dateFmt)},
	}
	if a.Email != "" {
		params.Set("email", a.Email)
	}

	if err := a.Limiter.Acquire(ctx, types.SourceEuropePMC); err != nil {
		return nil, fmt.Errorf("waiting for Europe PMC request slot: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, europePMCAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, a.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("Europe PMC API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Europe PMC API returned HTTP %d", resp.StatusCode)
	}

	var er europePMCResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return nil, fmt.Errorf("parsing Europe PMC response: %w", err)
	}

	var articles []types.Article
	for _, rec := range er.ResultList.Result {
		art, ok := rec.toArticle(query)
		if ok {
			articles = append(articles, art)
		}
	}

	a.Bus.Publish(status.Success, types.SourceEuropePMC,
		fmt.Sprintf("parsed %d matching articles of %d returned", len(articles), len(er.ResultList.Result)))
	return articles, nil
}

// buildEuropePMCQuery OR-joins the quoted keywords.
func buildEuropePMCQuery(keywords []string) string {
	parts := make([]string, len(keywords))
	for i, kw := range keywords {
		parts[i] = `"` + kw + `"`
	}
	return strings.Join(parts, " OR ")
}

// Europe PMC API JSON structures.
type europePMCResponse struct {
	HitCount   int `json:"hitCount"`
	ResultList struct {
		Result []europePMCResult `json:"result"`
	} `json:"resultList"`
}

type europePMCResult struct {
	ID                   string `json:"id"`
	PMID                 string `json:"pmid"`
	DOI                  string `json:"doi"`
	Title                string `json:"title"`
	AbstractText         string `json:"abstractText"`
	AuthorString         string `json:"authorString"`
	FirstPublicationDate string `json:"firstPublicationDate"`
}

// toArticle maps one Europe PMC result onto the canonical article
// shape. Results without an identifier, a parsable in-window date, or
// a keyword match are dropped (ok = false).
func (r europePMCResult) toArticle(query Query) (types.Article, bool) {
	id := r.PMID
	if id == "" {
		id = r.DOI
	}
	if id == "" {
		id = r.ID
	}
	if id == "" {
		return types.Article{}, false
	}

	date, err := time.Parse(dateFmt, r.FirstPublicationDate)
	if err != nil || !query.InWindow(date) {
		return types.Article{}, false
	}

	matched, count := matchKeywords(query.Keywords, r.Title, r.AbstractText)
	if count == 0 {
		return types.Article{}, false
	}

	var authors []string
	for _, name := range strings.Split(r.AuthorString, ", ") {
		name = strings.TrimSpace(strings.TrimSuffix(name, "."))
		if name == "" {
			continue
		}
		authors = append(authors, name)
		if len(authors) == maxAuthors {
			break
		}
	}

	var pageURL string
	switch {
	case r.PMID != "":
		pageURL = "https://europepmc.org/article/MED/" + r.PMID
	case r.DOI != "":
		pageURL = "https://doi.org/" + r.DOI
	}

	return types.Article{
		Source:          types.SourceEuropePMC,
		ExternalID:      id,
		Title:           strings.TrimSpace(r.Title),
		Authors:         authors,
		Date:            date,
		Abstract:        strings.TrimSpace(r.AbstractText),
		URL:             pageURL,
		MatchedKeywords: matched,
		MatchCount:      count,
	}, true
}
