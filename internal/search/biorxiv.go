// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pdiddy/bioscout/internal/httputil"
	"github.com/pdiddy/bioscout/internal/ratelimit"
	"github.com/pdiddy/bioscout/internal/status"
	"github.com/pdiddy/bioscout/pkg/types"
)

// bioRxivAPIBase is the bioRxiv details endpoint. Declared as a var so
// tests can substitute an httptest server.
var bioRxivAPIBase = "https://api.biorxiv.org/details/biorxiv"

// bioRxivPageSize is how many preprints the details endpoint returns
// per cursor page.
const bioRxivPageSize = 100

// BioRxivAdapter queries the bioRxiv preprint API (R2.2). The API has
// no keyword parameter: it returns every preprint posted in the date
// interval, paged by cursor, and the adapter filters by keyword match
// client-side.
type BioRxivAdapter struct {
	Client  *http.Client
	Limiter *ratelimit.Limiter
	Bus     *status.Bus
}

// Source returns the adapter's source identifier.
func (a *BioRxivAdapter) Source() types.Source { return types.SourceBioRxiv }

// Search walks the preprint interval and returns the keyword-matching
// articles.
func (a *BioRxivAdapter) Search(ctx context.Context, query Query, cfg types.SearchConfig) ([]types.Article, error) {
	a.Bus.Infof(types.SourceBioRxiv, "querying bioRxiv preprints")

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 500
	}

	interval := query.DateFrom.Format(dateFmt) + "/" + query.DateTo.Format(dateFmt)

	var articles []types.Article
	scanned := 0
	for cursor := 0; ; cursor += bioRxivPageSize {
		page, err := a.fetchPage(ctx, interval, cursor, cfg)
		if err != nil {
			return nil, err
		}
		scanned += len(page.Collection)

		for _, pre := range page.Collection {
			art, ok := pre.toArticle(query)
			if ok {
				articles = append(articles, art)
			}
		}

		if len(page.Collection) < bioRxivPageSize || scanned >= maxResults {
			break
		}
	}

	a.Bus.Publish(status.Success, types.SourceBioRxiv,
		fmt.Sprintf("parsed %d matching preprints of %d in the period", len(articles), scanned))
	return articles, nil
}

// fetchPage retrieves one cursor page of the interval.
func (a *BioRxivAdapter) fetchPage(ctx context.Context, interval string, cursor int, cfg types.SearchConfig) (*bioRxivResponse, error) {
	if err := a.Limiter.Acquire(ctx, types.SourceBioRxiv); err != nil {
		return nil, fmt.Errorf("waiting for bioRxiv request slot: %w", err)
	}

	reqURL := fmt.Sprintf("%s/%s/%d", bioRxivAPIBase, interval, cursor)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, a.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("bioRxiv API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bioRxiv API returned HTTP %d", resp.StatusCode)
	}

	var br bioRxivResponse
	if err := json.NewDecoder(resp.Body).Decode(&br); err != nil {
		return nil, fmt.Errorf("parsing bioRxiv response: %w", err)
	}
	return &br, nil
}

// bioRxiv API JSON structures.
type bioRxivResponse struct {
	Messages   []bioRxivMessage `json:"messages"`
	Collection []bioRxivPaper   `json:"collection"`
}

type bioRxivMessage struct {
	Status string `json:"status"`
	Total  int    `json:"total"`
	Count  int    `json:"count"`
	Cursor any    `json:"cursor"`
}

type bioRxivPaper struct {
	DOI      string `json:"doi"`
	Title    string `json:"title"`
	Abstract string `json:"abstract"`
	Authors  string `json:"authors"`
	Date     string `json:"date"`
	Version  string `json:"version"`
}

// toArticle maps one preprint onto the canonical article shape.
// Preprints without a DOI, a parsable in-window date, or a keyword
// match are dropped (ok = false).
func (p bioRxivPaper) toArticle(query Query) (types.Article, bool) {
	if p.DOI == "" {
		return types.Article{}, false
	}

	date, err := time.Parse(dateFmt, p.Date)
	if err != nil || !query.InWindow(date) {
		return types.Article{}, false
	}

	matched, count := matchKeywords(query.Keywords, p.Title, p.Abstract)
	if count == 0 {
		return types.Article{}, false
	}

	// Author strings arrive as "Last, F.; Last, F.; ...".
	var authors []string
	for _, name := range strings.Split(p.Authors, ";") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		authors = append(authors, name)
		if len(authors) == maxAuthors {
			break
		}
	}

	return types.Article{
		Source:          types.SourceBioRxiv,
		ExternalID:      p.DOI,
		Title:           strings.TrimSpace(p.Title),
		Authors:         authors,
		Date:            date,
		Abstract:        strings.TrimSpace(p.Abstract),
		URL:             "https://www.biorxiv.org/content/" + p.DOI + "v1",
		MatchedKeywords: matched,
		MatchCount:      count,
	}, true
}
