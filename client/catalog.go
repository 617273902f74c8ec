package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rs/zerolog/log"
)

const (
	DefaultPageSize = 20
	maxPages        = 1000
)

// ProductQuery filters the product listing. Zero values are omitted.
type ProductQuery struct {
	Page       int
	Limit      int
	CategoryID string
	Search     string
}

func (q ProductQuery) values() url.Values {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.CategoryID != "" {
		v.Set("category", q.CategoryID)
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	return v
}

func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	r, _ := newRequest(http.MethodGet, "/categories", nil)
	return call[[]Category](ctx, c, r)
}

func (c *Client) Products(ctx context.Context, q ProductQuery) (*ProductPage, error) {
	r, _ := newRequest(http.MethodGet, "/products/list", nil)
	r.query = q.values()
	page, err := call[*ProductPage](ctx, c, r)
	if err != nil {
		return nil, err
	}
	if page == nil {
		page = &ProductPage{}
	}
	if page.Page == 0 {
		page.Page = max(q.Page, 1)
	}
	if page.Limit == 0 {
		page.Limit = q.Limit
	}
	return page, nil
}

func (c *Client) Product(ctx context.Context, id string) (*Product, error) {
	r, _ := newRequest(http.MethodGet, "/products/"+escape(id), nil)
	return callObject[Product](ctx, c, r)
}

// AllProducts walks the listing page by page. onPage, when set, is called
// after every page.
func (c *Client) AllProducts(ctx context.Context, q ProductQuery, onPage func(page *ProductPage)) ([]Product, error) {
	if q.Limit <= 0 {
		q.Limit = DefaultPageSize
	}
	seen := make(map[string]bool)
	var all []Product
	for q.Page = 1; q.Page <= maxPages; q.Page++ {
		page, err := c.Products(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch product page %d: %w", q.Page, err)
		}
		added := 0
		for _, p := range page.Products {
			if seen[p.ID] {
				continue
			}
			seen[p.ID] = true
			all = append(all, p)
			added++
		}
		log.Debug().Int("page", q.Page).Int("added", added).Int("total", page.Total).Msg("Fetched product page")
		if onPage != nil {
			onPage(page)
		}
		// A page with nothing new means the backend ignores paging; stop instead of looping.
		if added == 0 || !page.HasMore() {
			break
		}
	}
	return all, nil
}
