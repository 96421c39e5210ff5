package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/zhouzirui/z-clinic/backend/internal/config"
	"github.com/zhouzirui/z-clinic/backend/internal/model/medicine"
)

const (
	pubmedSearchMax = 10
	pubmedDetailMax = 5
	pubmedSinceYear = "2020"
	pubmedUntilYear = "3000"
)

// PubMedClient 查询 NCBI E-utilities 的文献检索接口。
type PubMedClient struct {
	restClient
	baseURL string
	apiKey  string
}

// NewPubMedClient 构建 PubMed 客户端。
func NewPubMedClient(cfg config.SourceConfig) *PubMedClient {
	return &PubMedClient{
		restClient: restClient{httpClient: &http.Client{Timeout: cfg.Timeout}},
		baseURL:    strings.TrimRight(cfg.PubMedBaseURL, "/"),
		apiKey:     cfg.PubMedAPIKey,
	}
}

type pubmedSearchResponse struct {
	ESearchResult struct {
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

// pubmedSummaryResponse keys articles by PMID, so the result map has to be
// decoded lazily.
type pubmedSummaryResponse struct {
	Result map[string]json.RawMessage `json:"result"`
}

type pubmedSummary struct {
	Title           string         `json:"title"`
	Authors         []pubmedAuthor `json:"authors"`
	Abstract        string         `json:"abstract"`
	PubDate         string         `json:"pubdate"`
	FullJournalName string         `json:"fulljournalname"`
}

type pubmedAuthor struct {
	Name string `json:"name"`
}

// SearchLiterature returns recent publications mentioning the condition in
// title or abstract. Only the top hits get a detail lookup; a PMID whose
// summary fails is skipped rather than failing the whole search.
func (c *PubMedClient) SearchLiterature(ctx context.Context, condition string) ([]medicine.Article, error) {
	query := url.Values{}
	query.Set("db", "pubmed")
	query.Set("term", fmt.Sprintf("%q[Title/Abstract] AND (%q[Date - Publication] : %q[Date - Publication])",
		condition, pubmedSinceYear, pubmedUntilYear))
	query.Set("retmode", "json")
	query.Set("retmax", strconv.Itoa(pubmedSearchMax))
	query.Set("sort", "relevance")
	if c.apiKey != "" {
		query.Set("api_key", c.apiKey)
	}

	var search pubmedSearchResponse
	if err := c.getJSON(ctx, c.baseURL+"/esearch.fcgi", query, &search); err != nil {
		return nil, err
	}

	pmids := search.ESearchResult.IDList
	if len(pmids) > pubmedDetailMax {
		pmids = pmids[:pubmedDetailMax]
	}

	var articles []medicine.Article
	for _, pmid := range pmids {
		article, err := c.articleDetails(ctx, pmid)
		if err != nil {
			log.Printf("[source] pubmed summary for %s failed: %v", pmid, err)
			continue
		}
		articles = append(articles, article)
	}
	return articles, nil
}

func (c *PubMedClient) articleDetails(ctx context.Context, pmid string) (medicine.Article, error) {
	query := url.Values{}
	query.Set("db", "pubmed")
	query.Set("id", pmid)
	query.Set("retmode", "json")
	if c.apiKey != "" {
		query.Set("api_key", c.apiKey)
	}

	var payload pubmedSummaryResponse
	if err := c.getJSON(ctx, c.baseURL+"/esummary.fcgi", query, &payload); err != nil {
		return medicine.Article{}, err
	}

	raw, ok := payload.Result[pmid]
	if !ok {
		return medicine.Article{}, fmt.Errorf("pmid %s missing from summary", pmid)
	}
	var summary pubmedSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return medicine.Article{}, fmt.Errorf("decode summary for %s: %w", pmid, err)
	}

	return medicine.Article{
		Title:    valueOr(summary.Title, "Unknown Title"),
		Authors:  authorNames(summary.Authors),
		Journal:  valueOr(summary.FullJournalName, "Unknown Journal"),
		Abstract: valueOr(summary.Abstract, "No abstract available"),
		PubDate:  valueOr(summary.PubDate, "Unknown"),
		Source:   "PubMed Medical Literature",
	}, nil
}

func authorNames(authors []pubmedAuthor) []string {
	if len(authors) == 0 {
		return nil
	}
	names := make([]string, 0, len(authors))
	for _, author := range authors {
		if author.Name != "" {
			names = append(names, author.Name)
		}
	}
	return names
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
