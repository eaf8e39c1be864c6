package sales

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"resty.dev/v3"
)

// Client posts composed sales to the sales service, the system of record.
type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

// NewClient creates a sales client against the given base URL.
func NewClient(baseURL string, logger *zap.Logger) *Client {
	return &Client{
		http:   resty.New().SetBaseURL(baseURL),
		logger: logger,
	}
}

// Submit posts a composed sale. The operation is atomic from the caller's
// point of view: any transport or upstream error fails the whole submission
// and the caller keeps its state for a manual retry.
func (c *Client) Submit(ctx context.Context, token string, sale *Sale) (*CreatedSale, error) {
	var created CreatedSale

	res, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetBody(sale).
		SetResult(&created).
		Post("/sales")
	if err != nil {
		return nil, fmt.Errorf("posting sale: %w", err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("sales service returned status %d", res.StatusCode())
	}

	c.logger.Info("sale submitted",
		zap.String("sale_id", created.ID),
		zap.String("club_id", sale.ClubID),
		zap.String("total", sale.Total.String()),
	)
	return &created, nil
}
