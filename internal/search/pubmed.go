// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
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

// pubmedAPIBase is the NCBI E-utilities endpoint. Declared as a var so
// tests can substitute an httptest server.
var pubmedAPIBase = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

// pubmedFetchBatch is the number of PMIDs fetched per efetch call.
const pubmedFetchBatch = 50

// maxAuthors caps how many authors are kept per article.
const maxAuthors = 3

// PubMedAdapter queries PubMed via the NCBI E-utilities (R2.1). The
// search runs in two steps: esearch returns matching PMIDs, efetch
// retrieves article records in batches. Every request is paced through
// the shared limiter; NCBI allows 3 req/s without an API key.
type PubMedAdapter struct {
	Client  *http.Client
	Limiter *ratelimit.Limiter
	Bus     *status.Bus
	// APIKey is an optional E-utilities key sent with each request.
	APIKey string
}

// Source returns the adapter's source identifier.
func (a *PubMedAdapter) Source() types.Source { return types.SourcePubMed }

// Search queries PubMed and returns normalized articles. Matching runs
// against title + abstract + MeSH descriptor names (R2.1, R3.3).
func (a *PubMedAdapter) Search(ctx context.Context, query Query, cfg types.SearchConfig) ([]types.Article, error) {
	a.Bus.Infof(types.SourcePubMed, "querying PubMed (title + abstract + MeSH)")

	ids, err := a.searchIDs(ctx, query, cfg)
	if err != nil {
		return nil, err
	}
	a.Bus.Infof(types.SourcePubMed, fmt.Sprintf("found %d candidate articles", len(ids)))

	var articles []types.Article
	for start := 0; start < len(ids); start += pubmedFetchBatch {
		end := start + pubmedFetchBatch
		if end > len(ids) {
			end = len(ids)
		}

		batch, err := a.fetchBatch(ctx, ids[start:end], cfg)
		if err != nil {
			return nil, err
		}

		for _, rec := range batch {
			art, ok := rec.toArticle(query)
			if ok {
				articles = append(articles, art)
			}
		}
	}

	a.Bus.Publish(status.Success, types.SourcePubMed,
		fmt.Sprintf("parsed %d matching articles", len(articles)))
	return articles, nil
}

// searchIDs runs esearch and returns the matching PMIDs.
func (a *PubMedAdapter) searchIDs(ctx context.Context, query Query, cfg types.SearchConfig) ([]string, error) {
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 500
	}

	params := url.Values{
		"db":       {"pubmed"},
		"term":     {buildPubMedTerm(query.Keywords)},
		"retmax":   {strconv.Itoa(maxResults)},
		"retmode":  {"json"},
		"sort":     {"pub_date"},
		"datetype": {"pdat"},
		"mindate":  {query.DateFrom.Format("2006/01/02")},
		"maxdate":  {query.DateTo.Format("2006/01/02")},
	}
	if a.APIKey != "" {
		params.Set("api_key", a.APIKey)
	}

	body, err := a.get(ctx, pubmedAPIBase+"/esearch.fcgi?"+params.Encode(), cfg)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var sr pubmedSearchResponse
	if err := json.NewDecoder(body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("parsing PubMed search response: %w", err)
	}
	return sr.Result.IDList, nil
}

// fetchBatch runs efetch for up to pubmedFetchBatch PMIDs.
func (a *PubMedAdapter) fetchBatch(ctx context.Context, ids []string, cfg types.SearchConfig) ([]pubmedRecord, error) {
	params := url.Values{
		"db":      {"pubmed"},
		"id":      {strings.Join(ids, ",")},
		"retmode": {"xml"},
		"rettype": {"abstract"},
	}
	if a.APIKey != "" {
		params.Set("api_key", a.APIKey)
	}

	body, err := a.get(ctx, pubmedAPIBase+"/efetch.fcgi?"+params.Encode(), cfg)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var set pubmedArticleSet
	if err := xml.NewDecoder(body).Decode(&set); err != nil {
		return nil, fmt.Errorf("parsing PubMed article XML: %w", err)
	}
	return set.Articles, nil
}

// get issues one paced GET request and returns the response body.
func (a *PubMedAdapter) get(ctx context.Context, reqURL string, cfg types.SearchConfig) (io.ReadCloser, error) {
	if err := a.Limiter.Acquire(ctx, types.SourcePubMed); err != nil {
		return nil, fmt.Errorf("waiting for PubMed request slot: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, a.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("PubMed API request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("PubMed API returned HTTP %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// buildPubMedTerm constructs the esearch term parameter: each keyword
// scoped to Title/Abstract, OR-joined.
func buildPubMedTerm(keywords []string) string {
	parts := make([]string, len(keywords))
	for i, kw := range keywords {
		parts[i] = "(" + kw + "[Title/Abstract])"
	}
	return strings.Join(parts, " OR ")
}

// PubMed E-utilities response structures.
type pubmedSearchResponse struct {
	Result struct {
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

type pubmedArticleSet struct {
	Articles []pubmedRecord `xml:"PubmedArticle"`
}

type pubmedRecord struct {
	PMID          string         `xml:"MedlineCitation>PMID"`
	Title         string         `xml:"MedlineCitation>Article>ArticleTitle"`
	AbstractParts []string       `xml:"MedlineCitation>Article>Abstract>AbstractText"`
	Authors       []pubmedAuthor `xml:"MedlineCitation>Article>AuthorList>Author"`
	PubDate       pubmedDate     `xml:"MedlineCitation>Article>Journal>JournalIssue>PubDate"`
	MeshTerms     []string       `xml:"MedlineCitation>MeshHeadingList>MeshHeading>DescriptorName"`
}

type pubmedAuthor struct {
	LastName string `xml:"LastName"`
	ForeName string `xml:"ForeName"`
}

type pubmedDate struct {
	Year  string `xml:"Year"`
	Month string `xml:"Month"`
	Day   string `xml:"Day"`
}

// toArticle maps one PubMed record onto the canonical article shape.
// Records without a PMID, a parsable date, or at least one keyword
// match are dropped (ok = false).
func (r pubmedRecord) toArticle(query Query) (types.Article, bool) {
	if r.PMID == "" {
		return types.Article{}, false
	}

	date, ok := r.PubDate.parse()
	if !ok || !query.InWindow(date) {
		return types.Article{}, false
	}

	abstract := strings.TrimSpace(strings.Join(r.AbstractParts, " "))
	mesh := strings.Join(r.MeshTerms, " ")
	matched, count := matchKeywords(query.Keywords, r.Title, abstract, mesh)
	if count == 0 {
		return types.Article{}, false
	}

	var authors []string
	for _, au := range r.Authors {
		if au.LastName == "" {
			continue
		}
		name := au.LastName
		if au.ForeName != "" {
			name = au.ForeName + " " + name
		}
		authors = append(authors, name)
		if len(authors) == maxAuthors {
			break
		}
	}

	return types.Article{
		Source:          types.SourcePubMed,
		ExternalID:      r.PMID,
		Title:           strings.TrimSpace(r.Title),
		Authors:         authors,
		Date:            date,
		Abstract:        abstract,
		URL:             "https://pubmed.ncbi.nlm.nih.gov/" + r.PMID + "/",
		MatchedKeywords: matched,
		MatchCount:      count,
	}, true
}

// parse converts a PubMed date element to a calendar date. Month may be
// numeric or a month name; a missing month or day defaults to 1.
func (d pubmedDate) parse() (time.Time, bool) {
	year, err := strconv.Atoi(d.Year)
	if err != nil {
		return time.Time{}, false
	}

	month := parseMonth(d.Month)
	day := 1
	if n, err := strconv.Atoi(d.Day); err == nil && n >= 1 && n <= 31 {
		day = n
	}

	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), true
}

// parseMonth converts a numeric or named month to 1-12, defaulting to
// January.
func parseMonth(s string) int {
	if n, err := strconv.Atoi(s); err == nil && n >= 1 && n <= 12 {
		return n
	}
	months := map[string]int{
		"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
		"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
	}
	key := strings.ToLower(s)
	if len(key) > 3 {
		key = key[:3]
	}
	if n, ok := months[key]; ok {
		return n
	}
	return 1
}
