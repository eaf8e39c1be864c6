package clients

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"resty.dev/v3"
)

// ErrNotFound is returned when the client directory has no record for the
// given identifier.
var ErrNotFound = errors.New("client not found")

// Record is a customer entry from the client directory.
type Record struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	TotalSpent decimal.Decimal `json:"total_spent"`
}

// Directory looks up customer records in the clients service. Lookup only:
// creating and editing clients belongs to the clients service itself.
type Directory struct {
	http   *resty.Client
	logger *zap.Logger
}

// NewDirectory creates a client directory against the given base URL.
func NewDirectory(baseURL string, logger *zap.Logger) *Directory {
	return &Directory{
		http:   resty.New().SetBaseURL(baseURL),
		logger: logger,
	}
}

// Lookup fetches a single client record by ID, forwarding the caller's token.
// Returns ErrNotFound when the directory answers 404.
func (d *Directory) Lookup(ctx context.Context, token, clientID string) (*Record, error) {
	var record Record

	res, err := d.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetResult(&record).
		Get("/clients/" + clientID)
	if err != nil {
		return nil, fmt.Errorf("requesting client %s: %w", clientID, err)
	}
	if res.StatusCode() == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if res.IsError() {
		return nil, fmt.Errorf("client lookup returned status %d", res.StatusCode())
	}
	if record.ID == "" {
		return nil, fmt.Errorf("client lookup returned a record without id")
	}

	return &record, nil
}
