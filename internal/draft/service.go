package draft

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"club_sales/internal/catalog"
	"club_sales/internal/clients"
	"club_sales/internal/metrics"
	"club_sales/internal/sales"
	"club_sales/internal/session"
)

// ErrUpstream wraps failures of the products, clients and sales services.
// Upstream failures are atomic: the draft keeps its state and the user
// retries manually.
var ErrUpstream = errors.New("upstream service unavailable")

// CatalogClient fetches the product catalog for a club.
type CatalogClient interface {
	FetchCatalog(ctx context.Context, token, clubID string) ([]catalog.Product, error)
}

// ClientDirectory looks up customer records.
type ClientDirectory interface {
	Lookup(ctx context.Context, token, clientID string) (*clients.Record, error)
}

// SalesGateway posts composed sales to the sales service.
type SalesGateway interface {
	Submit(ctx context.Context, token string, sale *sales.Sale) (*sales.CreatedSale, error)
}

// Service provides high-level sale-composition operations on a Storage
// backend. All draft mutations are serialized through a single lock; upstream
// calls happen outside of it.
type Service struct {
	mu        sync.Mutex
	storage   Storage
	catalog   CatalogClient
	directory ClientDirectory
	sales     SalesGateway
	logger    *zap.Logger
}

// NewService creates a new Service.
func NewService(storage Storage, catalogClient CatalogClient, directory ClientDirectory, gateway SalesGateway, logger *zap.Logger) *Service {
	if logger == nil {
		logger, _ = zap.NewProduction()
	}

	return &Service{
		storage:   storage,
		catalog:   catalogClient,
		directory: directory,
		sales:     gateway,
		logger:    logger,
	}
}

// get reads a draft scoped to the caller's club. A draft from another club is
// indistinguishable from a missing one.
func (s *Service) get(sess session.Session, draftID string) (*Draft, error) {
	d, err := s.storage.Read(draftID)
	if err != nil {
		return nil, err
	}
	if d.ClubID != sess.ClubID {
		return nil, ErrNotFound
	}
	return d, nil
}

// Open starts a new draft for the caller's club: fetches the catalog snapshot
// and seeds the initial group.
func (s *Service) Open(ctx context.Context, sess session.Session) (*Draft, error) {
	products, err := s.catalog.FetchCatalog(ctx, sess.Token, sess.ClubID)
	if err != nil {
		metrics.UpstreamErrors.WithLabelValues("products").Inc()
		s.logger.Error("failed to fetch catalog", zap.String("club_id", sess.ClubID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	d := New(sess.ClubID, products)

	// Publicar y copiar bajo el lock: apenas el borrador está en el storage
	// otro request puede mutarlo.
	s.mu.Lock()
	if err := s.storage.Set(d); err != nil {
		s.mu.Unlock()
		s.logger.Error("failed to save draft", zap.String("draft_id", d.ID), zap.Error(err))
		return nil, fmt.Errorf("failed to save draft: %w", err)
	}
	snap := d.snapshot()
	s.mu.Unlock()

	metrics.DraftsOpened.Inc()
	s.logger.Info("draft opened",
		zap.String("draft_id", snap.ID),
		zap.String("club_id", sess.ClubID),
		zap.Int("catalog_size", len(products)),
	)
	return snap, nil
}

// Get returns the current state of a draft as a detached copy: no live
// pointer leaves the service lock.
func (s *Service) Get(sess session.Session, draftID string) (*Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.get(sess, draftID)
	if err != nil {
		return nil, err
	}
	return d.snapshot(), nil
}

// Cancel discards a draft and all of its state.
func (s *Service) Cancel(sess session.Session, draftID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.get(sess, draftID); err != nil {
		return err
	}
	return s.storage.Delete(draftID)
}

// SearchProducts filters the draft's catalog snapshot. No network involved:
// the snapshot was fetched when the draft opened.
func (s *Service) SearchProducts(sess session.Session, draftID, query string) ([]catalog.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.get(sess, draftID)
	if err != nil {
		return nil, err
	}
	return catalog.Filter(d.Catalog, query), nil
}

// RefreshCatalog re-fetches the catalog snapshot. Responses are guarded by a
// generation counter so only the latest refresh may overwrite the snapshot;
// a slower, older response is discarded.
func (s *Service) RefreshCatalog(ctx context.Context, sess session.Session, draftID string) (*Draft, error) {
	s.mu.Lock()
	d, err := s.get(sess, draftID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	d.CatalogGen++
	gen := d.CatalogGen
	s.mu.Unlock()

	products, err := s.catalog.FetchCatalog(ctx, sess.Token, sess.ClubID)
	if err != nil {
		metrics.UpstreamErrors.WithLabelValues("products").Inc()
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	d, err = s.get(sess, draftID)
	if err != nil {
		return nil, err
	}
	if d.CatalogGen != gen {
		// Llegó tarde: una actualización más nueva ya está en curso.
		s.logger.Debug("discarding stale catalog response",
			zap.String("draft_id", draftID),
			zap.Uint64("response_gen", gen),
			zap.Uint64("current_gen", d.CatalogGen),
		)
		return d.snapshot(), nil
	}
	d.Catalog = products
	d.UpdatedAt = time.Now()
	return d.snapshot(), nil
}

// SelectProduct starts the selection flow for a catalog product.
func (s *Service) SelectProduct(sess session.Session, draftID, productID string) (*Draft, error) {
	return s.mutate(sess, draftID, func(d *Draft) error {
		p, err := d.Product(productID)
		if err != nil {
			return err
		}
		_, err = d.Select(p)
		return err
	})
}

// ChooseSellType resolves the pending type-choice dialog.
func (s *Service) ChooseSellType(sess session.Session, draftID string, t SellType) (*Draft, error) {
	return s.mutate(sess, draftID, func(d *Draft) error {
		_, err := d.ChooseType(t)
		return err
	})
}

// ConfirmPortions resolves the pending portions dialog.
func (s *Service) ConfirmPortions(sess session.Session, draftID string, count int, price decimal.Decimal) (*Draft, error) {
	return s.mutate(sess, draftID, func(d *Draft) error {
		_, err := d.ConfirmPortions(count, price)
		return err
	})
}

// CancelSelection abandons the pending dialog.
func (s *Service) CancelSelection(sess session.Session, draftID string) (*Draft, error) {
	return s.mutate(sess, draftID, func(d *Draft) error {
		return d.CancelSelection()
	})
}

// CreateGroup appends a new group and makes it active.
func (s *Service) CreateGroup(sess session.Session, draftID string) (*Draft, error) {
	return s.mutate(sess, draftID, func(d *Draft) error {
		d.AddGroup()
		return nil
	})
}

// RenameGroup changes a group's display name.
func (s *Service) RenameGroup(sess session.Session, draftID, groupID, name string) (*Draft, error) {
	return s.mutate(sess, draftID, func(d *Draft) error {
		return d.RenameGroup(groupID, name)
	})
}

// RemoveGroup deletes a group, except the last remaining one.
func (s *Service) RemoveGroup(sess session.Session, draftID, groupID string) (*Draft, error) {
	return s.mutate(sess, draftID, func(d *Draft) error {
		return d.RemoveGroup(groupID)
	})
}

// ActivateGroup switches the active group.
func (s *Service) ActivateGroup(sess session.Session, draftID, groupID string) (*Draft, error) {
	return s.mutate(sess, draftID, func(d *Draft) error {
		return d.ActivateGroup(groupID)
	})
}

// UpdateItem applies a quantity change, a price override, or both, to an item
// within its owning group.
func (s *Service) UpdateItem(sess session.Session, draftID, groupID, itemID string, quantity *int, price *decimal.Decimal) (*Draft, error) {
	return s.mutate(sess, draftID, func(d *Draft) error {
		if price != nil {
			if _, err := d.OverrideItemPrice(groupID, itemID, *price); err != nil {
				return err
			}
		}
		if quantity != nil {
			if _, err := d.SetItemQuantity(groupID, itemID, *quantity); err != nil {
				return err
			}
		}
		return nil
	})
}

// Advance moves the wizard to the confirmation step.
func (s *Service) Advance(sess session.Session, draftID string) (*Draft, error) {
	return s.mutate(sess, draftID, func(d *Draft) error {
		return d.Advance()
	})
}

// Back returns the wizard to the selection step.
func (s *Service) Back(sess session.Session, draftID string) (*Draft, error) {
	return s.mutate(sess, draftID, func(d *Draft) error {
		return d.Back()
	})
}

// AttachClient validates the client against the directory and associates it
// to the draft, replacing any previous one. The draft is checked first: a
// bogus draft or the wrong step must not cost an upstream call.
func (s *Service) AttachClient(ctx context.Context, sess session.Session, draftID, clientID string) (*Draft, error) {
	s.mu.Lock()
	d, err := s.get(sess, draftID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if d.Step != StepConfirmation {
		s.mu.Unlock()
		return nil, ErrWrongStep
	}
	s.mu.Unlock()

	record, err := s.directory.Lookup(ctx, sess.Token, clientID)
	if err != nil {
		if errors.Is(err, clients.ErrNotFound) {
			return nil, err
		}
		metrics.UpstreamErrors.WithLabelValues("clients").Inc()
		s.logger.Error("client lookup failed", zap.String("client_id", clientID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	return s.mutate(sess, draftID, func(d *Draft) error {
		return d.AttachClient(AttachedClient{
			ID:         record.ID,
			Name:       record.Name,
			TotalSpent: record.TotalSpent,
		})
	})
}

// DetachClient removes the associated client.
func (s *Service) DetachClient(sess session.Session, draftID string) (*Draft, error) {
	return s.mutate(sess, draftID, func(d *Draft) error {
		return d.DetachClient()
	})
}

// Submit composes the final payload, posts it to the sales service and, on
// success, discards the draft. On failure the draft keeps its full state so
// the user can retry.
func (s *Service) Submit(ctx context.Context, sess session.Session, draftID string) (*sales.CreatedSale, error) {
	s.mu.Lock()
	d, err := s.get(sess, draftID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if d.Step != StepConfirmation {
		s.mu.Unlock()
		return nil, ErrWrongStep
	}
	if d.ItemCount() == 0 {
		s.mu.Unlock()
		return nil, ErrNoItems
	}
	payload := composeSale(d)
	s.mu.Unlock()

	created, err := s.sales.Submit(ctx, sess.Token, payload)
	if err != nil {
		metrics.UpstreamErrors.WithLabelValues("sales").Inc()
		s.logger.Error("sale submission failed",
			zap.String("draft_id", draftID),
			zap.String("club_id", sess.ClubID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storage.Delete(draftID); err != nil && !errors.Is(err, ErrNotFound) {
		s.logger.Warn("failed to discard submitted draft", zap.String("draft_id", draftID), zap.Error(err))
	}

	metrics.SalesSubmitted.Inc()
	s.logger.Info("sale created",
		zap.String("sale_id", created.ID),
		zap.String("draft_id", draftID),
		zap.String("total", payload.Total.String()),
	)
	return created, nil
}

// mutate runs fn over the draft under the service lock, stamps UpdatedAt and
// returns a detached copy.
func (s *Service) mutate(sess session.Session, draftID string, fn func(*Draft) error) (*Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.get(sess, draftID)
	if err != nil {
		return nil, err
	}
	if err := fn(d); err != nil {
		return nil, err
	}
	d.UpdatedAt = time.Now()
	return d.snapshot(), nil
}

// composeSale serializes the draft into the sales-service payload. client_id
// stays null when no client is attached.
func composeSale(d *Draft) *sales.Sale {
	groups := make([]sales.ItemGroup, 0, len(d.Groups))
	for _, g := range d.Groups {
		items := make([]sales.Item, 0, len(g.Items))
		for _, it := range g.Items {
			item := sales.Item{
				ProductID:   it.ProductID,
				ProductName: it.ProductName,
				Quantity:    it.Quantity,
				UnitPrice:   it.UnitPrice,
				SellType:    string(it.Type),
				CustomPrice: it.CustomPrice,
			}
			if it.Portions != nil {
				item.Portions = &sales.Portions{Count: it.Portions.Count, Price: it.Portions.Price}
			}
			items = append(items, item)
		}
		groups = append(groups, sales.ItemGroup{Name: g.Name, Items: items})
	}

	var clientID *string
	if d.Client != nil {
		id := d.Client.ID
		clientID = &id
	}

	return &sales.Sale{
		ItemGroups: groups,
		Total:      d.Total(),
		ClientID:   clientID,
		ClubID:     d.ClubID,
	}
}
