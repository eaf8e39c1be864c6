package draft

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"club_sales/internal/catalog"
)

// Errores de las reglas del flujo de venta.
var (
	ErrGroupNotFound       = errors.New("group not found")
	ErrItemNotFound        = errors.New("item not found")
	ErrProductNotFound     = errors.New("product not found in catalog")
	ErrLastGroup           = errors.New("cannot remove the last remaining group")
	ErrEmptyGroupName      = errors.New("group name cannot be empty")
	ErrNoPendingSelection  = errors.New("no selection pending")
	ErrNotAwaitingType     = errors.New("selection is not awaiting a type choice")
	ErrNotAwaitingPortions = errors.New("selection is not awaiting portion data")
	ErrInvalidSellType     = errors.New("invalid sell type")
	ErrInvalidPortions     = errors.New("portions must be greater than zero")
	ErrInvalidPrice        = errors.New("price must be greater than zero")
	ErrNoItems             = errors.New("at least one item is required")
	ErrWrongStep           = errors.New("operation not allowed on this step")
	ErrNoClient            = errors.New("no client attached")
)

// SellType is the resolved sell mode of a committed item. Unlike
// catalog.SellMode it has no "both": by the time an item exists, the
// choice has been made.
type SellType string

const (
	TypeSealed   SellType = "sealed"
	TypePrepared SellType = "prepared"
)

// Step is the wizard step a draft is on.
type Step int

const (
	// StepSelection is where products, groups and items are managed.
	StepSelection Step = 1
	// StepConfirmation shows the read-only summary and allows client
	// attachment and submission.
	StepConfirmation Step = 2
)

// Portions holds the prepared-variant data of an item. Present only on
// items whose type is prepared.
type Portions struct {
	Count int             `json:"count"`
	Price decimal.Decimal `json:"price"`
}

// SaleItem is a line inside a group. Quantity counts units for sealed items
// and portions for prepared ones. Invariant: quantity > 0 and unit price > 0
// while the item is retained; a quantity of zero removes it instead.
type SaleItem struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Type        SellType        `json:"type"`
	Portions    *Portions       `json:"portions,omitempty"`
	CustomPrice bool            `json:"custom_price"`
}

// Subtotal is quantity × unit price.
func (i *SaleItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// ItemGroup is one named cart inside a draft. Groups survive losing their
// last item; only an explicit removal deletes them.
type ItemGroup struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Items []*SaleItem `json:"items"`
}

// Item returns the item with the given ID, or nil.
func (g *ItemGroup) Item(itemID string) *SaleItem {
	for _, it := range g.Items {
		if it.ID == itemID {
			return it
		}
	}
	return nil
}

func (g *ItemGroup) removeItem(itemID string) bool {
	for i, it := range g.Items {
		if it.ID == itemID {
			g.Items = append(g.Items[:i], g.Items[i+1:]...)
			return true
		}
	}
	return false
}

// PendingState names the dialog a selection is waiting on.
type PendingState string

const (
	PendingTypeChoice PendingState = "type_choice"
	PendingPortions   PendingState = "portions"
)

// PendingSelection is a product selection waiting on a type-choice or
// portions dialog before it becomes an item.
type PendingSelection struct {
	Product catalog.Product `json:"product"`
	State   PendingState    `json:"state"`
}

// AttachedClient is the customer associated to the sale, at most one.
type AttachedClient struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	TotalSpent decimal.Decimal `json:"total_spent"`
}

// Draft is the ephemeral state of one sale-composition session. It exists
// between open and submit/cancel; nothing about it is persisted, the sales
// service is the system of record.
type Draft struct {
	ID            string            `json:"id"`
	ClubID        string            `json:"club_id"`
	Step          Step              `json:"step"`
	Groups        []*ItemGroup      `json:"item_groups"`
	ActiveGroupID string            `json:"active_group_id"`
	Pending       *PendingSelection `json:"pending_selection,omitempty"`
	Client        *AttachedClient   `json:"client,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`

	// Catalog is the snapshot fetched when the draft was opened. CatalogGen
	// guards refreshes: only the newest fetch may overwrite the snapshot.
	Catalog    []catalog.Product `json:"-"`
	CatalogGen uint64            `json:"-"`

	groupSeq int
}

// New creates a draft for a club with its catalog snapshot and the initial
// "Grupo 1" as the active group.
func New(clubID string, products []catalog.Product) *Draft {
	d := &Draft{
		ID:         uuid.NewString(),
		ClubID:     clubID,
		Step:       StepSelection,
		Catalog:    products,
		CatalogGen: 1,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	d.AddGroup()
	return d
}

// snapshot returns a deep copy of the draft that is safe to read and marshal
// outside the service lock. The catalog slice is shared: its contents are
// never mutated in place, refreshes swap the whole slice.
func (d *Draft) snapshot() *Draft {
	c := *d
	c.Groups = make([]*ItemGroup, len(d.Groups))
	for i, g := range d.Groups {
		items := make([]*SaleItem, len(g.Items))
		for j, it := range g.Items {
			itemCopy := *it
			if it.Portions != nil {
				p := *it.Portions
				itemCopy.Portions = &p
			}
			items[j] = &itemCopy
		}
		c.Groups[i] = &ItemGroup{ID: g.ID, Name: g.Name, Items: items}
	}
	if d.Pending != nil {
		p := *d.Pending
		c.Pending = &p
	}
	if d.Client != nil {
		cl := *d.Client
		c.Client = &cl
	}
	return &c
}

// Group returns the group with the given ID.
func (d *Draft) Group(groupID string) (*ItemGroup, error) {
	for _, g := range d.Groups {
		if g.ID == groupID {
			return g, nil
		}
	}
	return nil, ErrGroupNotFound
}

// ActiveGroup returns the group new selections append to.
func (d *Draft) ActiveGroup() *ItemGroup {
	g, err := d.Group(d.ActiveGroupID)
	if err != nil {
		// No debería pasar: siempre existe al menos un grupo.
		return d.Groups[0]
	}
	return g
}

// AddGroup appends a new empty group with a sequential display name and makes
// it the active group.
func (d *Draft) AddGroup() *ItemGroup {
	d.groupSeq++
	g := &ItemGroup{
		ID:    uuid.NewString(),
		Name:  fmt.Sprintf("Grupo %d", d.groupSeq),
		Items: []*SaleItem{},
	}
	d.Groups = append(d.Groups, g)
	d.ActiveGroupID = g.ID
	return g
}

// RenameGroup changes a group's display name. Allowed any time before
// submission.
func (d *Draft) RenameGroup(groupID, name string) error {
	if name == "" {
		return ErrEmptyGroupName
	}
	g, err := d.Group(groupID)
	if err != nil {
		return err
	}
	g.Name = name
	return nil
}

// RemoveGroup deletes a group. The last remaining group cannot be removed;
// removing the active group shifts activity to the first remaining one.
func (d *Draft) RemoveGroup(groupID string) error {
	if len(d.Groups) <= 1 {
		return ErrLastGroup
	}
	for i, g := range d.Groups {
		if g.ID == groupID {
			d.Groups = append(d.Groups[:i], d.Groups[i+1:]...)
			if d.ActiveGroupID == groupID {
				d.ActiveGroupID = d.Groups[0].ID
			}
			return nil
		}
	}
	return ErrGroupNotFound
}

// ActivateGroup makes a group the target of subsequent selections.
func (d *Draft) ActivateGroup(groupID string) error {
	g, err := d.Group(groupID)
	if err != nil {
		return err
	}
	d.ActiveGroupID = g.ID
	return nil
}

// ItemCount is the number of items across all groups.
func (d *Draft) ItemCount() int {
	n := 0
	for _, g := range d.Groups {
		n += len(g.Items)
	}
	return n
}

// Total derives the sale total: Σ over every group and item of
// quantity × unit price. Always computed, never stored.
func (d *Draft) Total() decimal.Decimal {
	total := decimal.Zero
	for _, g := range d.Groups {
		for _, it := range g.Items {
			total = total.Add(it.Subtotal())
		}
	}
	return total
}

// Product looks a product up in the catalog snapshot.
func (d *Draft) Product(productID string) (catalog.Product, error) {
	for _, p := range d.Catalog {
		if p.ID == productID {
			return p, nil
		}
	}
	return catalog.Product{}, ErrProductNotFound
}
