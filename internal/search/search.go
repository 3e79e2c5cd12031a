package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/Skotchmaster/storefront/internal/models"
)

// ErrDisabled is returned by Nop so callers can fall back to the database.
var ErrDisabled = errors.New("search disabled")

type Document struct {
	ID          uint   `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category,omitempty"`
	Price       string `json:"price"`
	Stock       int    `json:"stock"`
	ImageURL    string `json:"image_url,omitempty"`
	Active      bool   `json:"active"`
}

func DocumentFrom(p models.Product) Document {
	return Document{
		ID:          p.ID,
		Code:        p.Code,
		Name:        p.Name,
		Description: p.Description,
		Category:    p.CategoryName(),
		Price:       p.Price.StringFixed(2),
		Stock:       p.Stock,
		ImageURL:    p.ImageURL,
		Active:      p.Active,
	}
}

type Index interface {
	IndexProduct(ctx context.Context, p models.Product) error
	DeleteProduct(ctx context.Context, id uint) error
	Search(ctx context.Context, query string, from, size int) (int64, []Document, error)
}

type Client struct {
	ES    *elasticsearch.Client
	Index string
}

type Options struct {
	URL      string
	User     string
	Password string
	Index    string
}

func NewClient(ctx context.Context, o Options) (*Client, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{o.URL},
		Username:  o.User,
		Password:  o.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: new client: %w", err)
	}

	res, err := es.Info(es.Info.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, responseError("info", res.StatusCode, res.Body)
	}
	return &Client{ES: es, Index: o.Index}, nil
}

var indexMapping = map[string]any{
	"mappings": map[string]any{
		"properties": map[string]any{
			"id":          map[string]any{"type": "long"},
			"code":        map[string]any{"type": "keyword"},
			"name":        map[string]any{"type": "text"},
			"description": map[string]any{"type": "text"},
			"category":    map[string]any{"type": "keyword"},
			"price":       map[string]any{"type": "scaled_float", "scaling_factor": 100},
			"stock":       map[string]any{"type": "integer"},
			"image_url":   map[string]any{"type": "keyword", "index": false},
			"active":      map[string]any{"type": "boolean"},
		},
	},
}

// EnsureIndex creates the product index with its mapping when it does not
// exist. It reports whether the index was created, in which case it is empty.
func (c *Client) EnsureIndex(ctx context.Context) (bool, error) {
	res, err := c.ES.Indices.Exists([]string{c.Index}, c.ES.Indices.Exists.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("elasticsearch: index exists: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return false, nil
	}

	body, err := encode(indexMapping)
	if err != nil {
		return false, err
	}
	res, err = c.ES.Indices.Create(c.Index,
		c.ES.Indices.Create.WithContext(ctx),
		c.ES.Indices.Create.WithBody(body),
	)
	if err != nil {
		return false, fmt.Errorf("elasticsearch: create index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return false, responseError("create index", res.StatusCode, res.Body)
	}
	return true, nil
}

func (c *Client) IndexProduct(ctx context.Context, p models.Product) error {
	body, err := encode(DocumentFrom(p))
	if err != nil {
		return err
	}
	res, err := c.ES.Index(c.Index, body,
		c.ES.Index.WithContext(ctx),
		c.ES.Index.WithDocumentID(strconv.FormatUint(uint64(p.ID), 10)),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch: index product %d: %w", p.ID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("index product", res.StatusCode, res.Body)
	}
	return nil
}

func (c *Client) DeleteProduct(ctx context.Context, id uint) error {
	res, err := c.ES.Delete(c.Index, strconv.FormatUint(uint64(id), 10), c.ES.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch: delete product %d: %w", id, err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return responseError("delete product", res.StatusCode, res.Body)
	}
	return nil
}

// QueryBody builds the search request: fuzzy match over name and description,
// restricted to active products.
func QueryBody(query string, from, size int) map[string]any {
	return map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must": map[string]any{
					"multi_match": map[string]any{
						"query":     query,
						"fields":    []string{"name^2", "description"},
						"fuzziness": "AUTO",
					},
				},
				"filter": []any{
					map[string]any{"term": map[string]any{"active": true}},
				},
			},
		},
		"from": from,
		"size": size,
	}
}

func (c *Client) Search(ctx context.Context, query string, from, size int) (int64, []Document, error) {
	body, err := encode(QueryBody(query, from, size))
	if err != nil {
		return 0, nil, err
	}

	res, err := c.ES.Search(
		c.ES.Search.WithContext(ctx),
		c.ES.Search.WithIndex(c.Index),
		c.ES.Search.WithBody(body),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("elasticsearch: search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, nil, responseError("search", res.StatusCode, res.Body)
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source Document `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, fmt.Errorf("elasticsearch: decode search response: %w", err)
	}

	docs := make([]Document, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		docs[i] = hit.Source
	}
	return r.Hits.Total.Value, docs, nil
}

func encode(v any) (io.Reader, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("elasticsearch: encode body: %w", err)
	}
	return &buf, nil
}

func responseError(op string, status int, body io.Reader) error {
	msg, _ := io.ReadAll(io.LimitReader(body, 1024))
	return fmt.Errorf("elasticsearch: %s: status %d: %s", op, status, bytes.TrimSpace(msg))
}

type Nop struct{}

func (Nop) IndexProduct(context.Context, models.Product) error { return nil }
func (Nop) DeleteProduct(context.Context, uint) error          { return nil }
func (Nop) Search(context.Context, string, int, int) (int64, []Document, error) {
	return 0, nil, ErrDisabled
}
