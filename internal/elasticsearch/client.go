package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/mfenderov/filingflow/pkg/models"
)

// Config holds Elasticsearch client configuration.
type Config struct {
	Addresses []string
	Index     string
	Username  string
	Password  string
}

// Client wraps the Elasticsearch client with filing-index operations.
type Client struct {
	es    *elasticsearch.Client
	index string
}

// New creates a new Elasticsearch client.
func New(config Config) (*Client, error) {
	cfg := elasticsearch.Config{
		Addresses: config.Addresses,
		Username:  config.Username,
		Password:  config.Password,
	}

	es, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create ES client: %w", err)
	}

	return &Client{
		es:    es,
		index: config.Index,
	}, nil
}

// Index returns the index name.
func (c *Client) Index() string {
	return c.index
}

// Ping checks if Elasticsearch is available.
func (c *Client) Ping(ctx context.Context) bool {
	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return false
	}
	defer res.Body.Close()
	return !res.IsError()
}

// Filing dates are stored as captured from the document text, so they are
// keywords rather than dates.
var indexMapping = `{
	"mappings": {
		"properties": {
			"id": { "type": "keyword" },
			"ticker": { "type": "keyword" },
			"report_type": { "type": "keyword" },
			"filing_date": { "type": "keyword" },
			"fiscal_quarter": { "type": "keyword" },
			"path": { "type": "keyword" },
			"title": { "type": "text" },
			"content": { "type": "text", "analyzer": "english" },
			"indexed_at": { "type": "date" }
		}
	}
}`

// CreateIndex creates the index with the filing mapping if it is missing.
func (c *Client) CreateIndex(ctx context.Context) error {
	res, err := c.es.Indices.Exists([]string{c.index}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to check index: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == 200 {
		return nil
	}

	res, err = c.es.Indices.Create(
		c.index,
		c.es.Indices.Create.WithContext(ctx),
		c.es.Indices.Create.WithBody(strings.NewReader(indexMapping)),
	)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error creating index: %s", res.String())
	}

	return nil
}

// DeleteIndex removes the index (for testing/cleanup).
func (c *Client) DeleteIndex(ctx context.Context) error {
	res, err := c.es.Indices.Delete([]string{c.index}, c.es.Indices.Delete.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	return nil
}

// IndexFiling indexes a filing under its ID, replacing any earlier version.
func (c *Client) IndexFiling(ctx context.Context, filing models.IndexedFiling) error {
	data, err := json.Marshal(filing)
	if err != nil {
		return fmt.Errorf("failed to marshal filing: %w", err)
	}

	res, err := c.es.Index(
		c.index,
		bytes.NewReader(data),
		c.es.Index.WithContext(ctx),
		c.es.Index.WithDocumentID(filing.ID),
	)
	if err != nil {
		return fmt.Errorf("failed to index filing: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error indexing filing (status %d): %s", res.StatusCode, res.String())
	}

	return nil
}

// Refresh forces an index refresh (useful for testing).
func (c *Client) Refresh(ctx context.Context) error {
	res, err := c.es.Indices.Refresh(
		c.es.Indices.Refresh.WithContext(ctx),
		c.es.Indices.Refresh.WithIndex(c.index),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	return nil
}

// Query selects filings. Ticker and ReportType are exact filters; Text is
// matched against title and content. An empty Text matches all filings.
type Query struct {
	Text       string
	Ticker     string
	ReportType string
	Limit      int
}

// Body renders the Elasticsearch request body for q.
func (q Query) Body() map[string]any {
	var must []map[string]any
	if q.Text != "" {
		must = append(must, map[string]any{
			"multi_match": map[string]any{
				"query":  q.Text,
				"fields": []string{"content", "title^2"},
			},
		})
	} else {
		must = append(must, map[string]any{"match_all": map[string]any{}})
	}

	var filter []map[string]any
	if q.Ticker != "" {
		filter = append(filter, map[string]any{"term": map[string]any{"ticker": strings.ToUpper(q.Ticker)}})
	}
	if q.ReportType != "" {
		filter = append(filter, map[string]any{"term": map[string]any{"report_type": q.ReportType}})
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 10
	}

	boolQuery := map[string]any{"must": must}
	if len(filter) > 0 {
		boolQuery["filter"] = filter
	}
	return map[string]any{
		"query": map[string]any{"bool": boolQuery},
		"size":  limit,
	}
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source models.IndexedFiling `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search performs a BM25 search over indexed filings.
func (c *Client) Search(ctx context.Context, q Query) ([]models.IndexedFiling, error) {
	data, err := json.Marshal(q.Body())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.index),
		c.es.Search.WithBody(bytes.NewReader(data)),
	)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search error: %s", res.String())
	}

	var sr searchResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	filings := make([]models.IndexedFiling, len(sr.Hits.Hits))
	for i, hit := range sr.Hits.Hits {
		filings[i] = hit.Source
	}

	return filings, nil
}

type getResponse struct {
	Found  bool                 `json:"found"`
	Source models.IndexedFiling `json:"_source"`
}

// GetFiling retrieves a filing by ID. It returns nil when the ID is unknown.
func (c *Client) GetFiling(ctx context.Context, id string) (*models.IndexedFiling, error) {
	res, err := c.es.Get(
		c.index,
		id,
		c.es.Get.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("get failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == 404 {
		return nil, nil
	}

	if res.IsError() {
		return nil, fmt.Errorf("get error: %s", res.String())
	}

	var gr getResponse
	if err := json.NewDecoder(res.Body).Decode(&gr); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if !gr.Found {
		return nil, nil
	}

	return &gr.Source, nil
}
