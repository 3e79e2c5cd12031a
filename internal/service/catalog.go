package service

import (
	"context"
	"errors"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/search"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/internal/util"
)

type CatalogService struct {
	Repo   *repo.GormRepo
	Search search.Index
}

type CatalogPage struct {
	Products   []models.Product
	Categories []string
	Category   string
	Query      string
	Page       util.Page
}

func (s *CatalogService) Browse(ctx context.Context, q transport.CatalogQuery) (*CatalogPage, error) {
	q.Normalize()
	offset, limit := util.Calculate(q.Page, util.DefaultPageSize)

	total, items, err := s.Repo.ListActiveProducts(ctx, repo.ProductFilter{Category: q.Category, Query: q.Search}, offset, limit)
	if err != nil {
		return nil, err
	}
	cats, err := s.Repo.Categories(ctx)
	if err != nil {
		return nil, err
	}
	return &CatalogPage{
		Products:   items,
		Categories: cats,
		Category:   q.Category,
		Query:      q.Search,
		Page:       util.NewPage(q.Page, limit, total),
	}, nil
}

type SearchResult struct {
	Source   string            `json:"source"`
	Total    int64             `json:"total"`
	Products []search.Document `json:"products"`
	Page     util.Page         `json:"meta"`
}

// Search asks the search index first and falls back to a database substring
// match when the index is disabled, failing or has no hits.
func (s *CatalogService) Search(ctx context.Context, q transport.SearchQuery) (*SearchResult, error) {
	l := logging.FromContext(ctx).With("svc", "catalog.search")
	offset, limit := util.Calculate(q.Page, q.Size)

	if s.Search != nil {
		total, docs, err := s.Search.Search(ctx, q.Q, offset, limit)
		switch {
		case err == nil && total > 0:
			return &SearchResult{Source: "index", Total: total, Products: docs, Page: util.NewPage(q.Page, limit, total)}, nil
		case err == nil:
			l.Debug("search_index_miss", "query", q.Q)
		case !errors.Is(err, search.ErrDisabled):
			l.Warn("search_index_error", "reason", "falling back to database", "error", err)
		}
	}

	total, items, err := s.Repo.ListActiveProducts(ctx, repo.ProductFilter{Query: q.Q}, offset, limit)
	if err != nil {
		return nil, err
	}
	docs := make([]search.Document, len(items))
	for i, p := range items {
		docs[i] = search.DocumentFrom(p)
	}
	return &SearchResult{Source: "database", Total: total, Products: docs, Page: util.NewPage(q.Page, limit, total)}, nil
}
