package catalog

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"resty.dev/v3"
)

// Client fetches product catalogs from the products service.
type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

// NewClient creates a catalog client against the given base URL.
func NewClient(baseURL string, logger *zap.Logger) *Client {
	return &Client{
		http:   resty.New().SetBaseURL(baseURL),
		logger: logger,
	}
}

// FetchCatalog retrieves the full sale catalog for a club. It is called once
// per draft open; results are never cached across opens. The caller's bearer
// token is forwarded upstream.
func (c *Client) FetchCatalog(ctx context.Context, token, clubID string) ([]Product, error) {
	var records []productRecord

	res, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParam("clubId", clubID).
		SetQueryParam("query", "").
		SetResult(&records).
		Get("/products/search/sales")
	if err != nil {
		return nil, fmt.Errorf("requesting product catalog: %w", err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("product catalog request returned status %d", res.StatusCode())
	}

	products := make([]Product, 0, len(records))
	for _, r := range records {
		p, err := r.toProduct()
		if err != nil {
			// Un registro malformado invalida la respuesta completa.
			return nil, fmt.Errorf("invalid product record %q: %w", r.ID, err)
		}
		products = append(products, p)
	}

	c.logger.Debug("catalog fetched",
		zap.String("club_id", clubID),
		zap.Int("products", len(products)),
	)
	return products, nil
}
