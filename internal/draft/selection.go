package draft

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"club_sales/internal/catalog"
)

// Select starts the selection flow for a product. Sealed-only products commit
// immediately with quantity 1 at list price; dual-mode products wait on a type
// choice; prepared-only products wait on portion data. Starting a selection
// while another is pending replaces it.
//
// Returns the committed item, or nil when a dialog is now pending.
func (d *Draft) Select(p catalog.Product) (*SaleItem, error) {
	if d.Step != StepSelection {
		return nil, ErrWrongStep
	}

	switch p.Mode {
	case catalog.SellSealed:
		return d.commitSealed(p), nil
	case catalog.SellBoth:
		d.Pending = &PendingSelection{Product: p, State: PendingTypeChoice}
		return nil, nil
	case catalog.SellPrepared:
		d.Pending = &PendingSelection{Product: p, State: PendingPortions}
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidSellType, p.Mode)
	}
}

// ChooseType resolves the type-choice dialog of a dual-mode product. Choosing
// sealed commits right away; choosing prepared moves on to the portions
// dialog.
func (d *Draft) ChooseType(t SellType) (*SaleItem, error) {
	if d.Pending == nil {
		return nil, ErrNoPendingSelection
	}
	if d.Pending.State != PendingTypeChoice {
		return nil, ErrNotAwaitingType
	}

	switch t {
	case TypeSealed:
		return d.commitSealed(d.Pending.Product), nil
	case TypePrepared:
		d.Pending.State = PendingPortions
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidSellType, t)
	}
}

// ConfirmPortions resolves the portions dialog. Portions and per-portion
// price must both be positive; otherwise the dialog stays open and nothing is
// committed.
func (d *Draft) ConfirmPortions(count int, price decimal.Decimal) (*SaleItem, error) {
	if d.Pending == nil {
		return nil, ErrNoPendingSelection
	}
	if d.Pending.State != PendingPortions {
		return nil, ErrNotAwaitingPortions
	}
	if count <= 0 {
		return nil, ErrInvalidPortions
	}
	if !price.IsPositive() {
		return nil, ErrInvalidPrice
	}

	p := d.Pending.Product
	item := &SaleItem{
		ID:          uuid.NewString(),
		ProductID:   p.ID,
		ProductName: p.Name,
		Quantity:    count,
		UnitPrice:   price,
		Type:        TypePrepared,
		Portions:    &Portions{Count: count, Price: price},
	}
	d.commit(item)
	return item, nil
}

// CancelSelection abandons the pending dialog, creating nothing.
func (d *Draft) CancelSelection() error {
	if d.Pending == nil {
		return ErrNoPendingSelection
	}
	d.Pending = nil
	return nil
}

func (d *Draft) commitSealed(p catalog.Product) *SaleItem {
	item := &SaleItem{
		ID:          uuid.NewString(),
		ProductID:   p.ID,
		ProductName: p.Name,
		Quantity:    1,
		UnitPrice:   p.UnitPrice,
		Type:        TypeSealed,
	}
	d.commit(item)
	return item
}

// commit appends the item to the active group and closes any pending dialog.
func (d *Draft) commit(item *SaleItem) {
	g := d.ActiveGroup()
	g.Items = append(g.Items, item)
	d.Pending = nil
}

// SetItemQuantity sets an item's quantity within its owning group. A quantity
// of zero or less removes the item; the group itself stays.
//
// Returns the item, or nil when it was removed.
func (d *Draft) SetItemQuantity(groupID, itemID string, quantity int) (*SaleItem, error) {
	g, err := d.Group(groupID)
	if err != nil {
		return nil, err
	}
	item := g.Item(itemID)
	if item == nil {
		return nil, ErrItemNotFound
	}

	if quantity <= 0 {
		g.removeItem(itemID)
		return nil, nil
	}
	item.Quantity = quantity
	return item, nil
}

// OverrideItemPrice sets a manual unit price on an item and flags it as
// custom-priced. The price must stay positive.
func (d *Draft) OverrideItemPrice(groupID, itemID string, price decimal.Decimal) (*SaleItem, error) {
	g, err := d.Group(groupID)
	if err != nil {
		return nil, err
	}
	item := g.Item(itemID)
	if item == nil {
		return nil, ErrItemNotFound
	}
	if !price.IsPositive() {
		return nil, ErrInvalidPrice
	}

	item.UnitPrice = price
	item.CustomPrice = true
	return item, nil
}

// Advance moves the wizard from selection to confirmation. Blocked until at
// least one item exists somewhere. Any pending dialog dies with the selection
// step: the confirmation step is a read-only summary and must not be able to
// commit items.
func (d *Draft) Advance() error {
	if d.Step != StepSelection {
		return ErrWrongStep
	}
	if d.ItemCount() == 0 {
		return ErrNoItems
	}
	d.Pending = nil
	d.Step = StepConfirmation
	return nil
}

// Back returns from confirmation to selection, unconditionally, preserving
// all state.
func (d *Draft) Back() error {
	if d.Step != StepConfirmation {
		return ErrWrongStep
	}
	d.Step = StepSelection
	return nil
}

// AttachClient associates a customer to the sale, replacing any previous one.
// Only available on the confirmation step.
func (d *Draft) AttachClient(c AttachedClient) error {
	if d.Step != StepConfirmation {
		return ErrWrongStep
	}
	d.Client = &c
	return nil
}

// DetachClient removes the associated customer.
func (d *Draft) DetachClient() error {
	if d.Step != StepConfirmation {
		return ErrWrongStep
	}
	if d.Client == nil {
		return ErrNoClient
	}
	d.Client = nil
	return nil
}
