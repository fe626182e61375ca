package domain

import (
	"errors"
	"strconv"
	"time"
)

// Order is a table order owned by a store. It is only ever mutated
// through the lifecycle engine.
type Order struct {
	ID            int64
	StoreID       int64
	TableID       int64
	VisitID       *int64
	Status        Status
	PaymentStatus PaymentStatus
	TotalCents    int64
	TicketNumber  *int
	CancelReason  *string
	PreparingAt   *time.Time
	ReadyAt       *time.Time
	ServedAt      *time.Time
	PaidAt        *time.Time
	CancelledAt   *time.Time
	Items         []OrderItem
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// OrderItem carries a price snapshot taken at order creation. Later
// catalog edits never touch it.
type OrderItem struct {
	ID             int64
	OrderID        int64
	Title          string
	UnitPriceCents int64
	Quantity       int
	Options        []OrderItemOption
}

type OrderItemOption struct {
	ID          int64
	OrderItemID int64
	Title       string
	PriceCents  int64
}

// DefaultCancelReason is recorded when a cancellation arrives without one.
const DefaultCancelReason = "cancelled by staff"

// NewOrder builds a placed order from snapshotted line items and computes
// the total.
func NewOrder(storeID, tableID int64, visitID *int64, items []OrderItem, now time.Time) (*Order, error) {
	order := &Order{
		StoreID:       storeID,
		TableID:       tableID,
		VisitID:       visitID,
		Status:        StatusPlaced,
		PaymentStatus: PaymentPending,
		Items:         items,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := order.Validate(); err != nil {
		return nil, err
	}

	order.TotalCents = order.calculateTotal()
	return order, nil
}

// Validate applies creation-time business rules.
func (o *Order) Validate() error {
	if o.StoreID <= 0 || o.TableID <= 0 {
		return errors.New("order requires a store and a table")
	}
	if len(o.Items) < 1 || len(o.Items) > 50 {
		return errors.New("order must have 1-50 items")
	}
	for _, item := range o.Items {
		if len(item.Title) < 1 || len(item.Title) > 120 {
			return errors.New("item title must be 1-120 characters")
		}
		if item.Quantity < 1 || item.Quantity > 20 {
			return errors.New("item quantity must be 1-20")
		}
		if item.UnitPriceCents < 0 {
			return errors.New("item price must not be negative")
		}
		for _, opt := range item.Options {
			if len(opt.Title) < 1 || len(opt.Title) > 120 {
				return errors.New("option title must be 1-120 characters")
			}
			if opt.PriceCents < 0 {
				return errors.New("option price must not be negative")
			}
		}
	}
	return nil
}

func (o *Order) calculateTotal() int64 {
	var total int64
	for _, item := range o.Items {
		line := item.UnitPriceCents
		for _, opt := range item.Options {
			line += opt.PriceCents
		}
		total += line * int64(item.Quantity)
	}
	return total
}

// ApplyTransition moves the order to target, stamping and clearing stage
// timestamps. Rules:
//   - terminal orders accept nothing;
//   - cancellation stamps cancelledAt and records a reason, preserving
//     earlier stage timestamps for audit;
//   - a jump to any stage stamps that stage if unset and clears stamps
//     for stages strictly after it (undo semantics); skipped
//     intermediate stages stay unset.
//
// Same-status calls are the caller's no-op to detect; ApplyTransition
// treats them as any other jump, which makes repeats idempotent.
func (o *Order) ApplyTransition(target Status, now time.Time, reason string) error {
	if IsTerminal(o.Status) {
		return ErrOrderTerminal
	}

	if target == StatusCancelled {
		if o.CancelledAt == nil {
			o.CancelledAt = &now
		}
		if reason == "" {
			reason = DefaultCancelReason
		}
		o.CancelReason = &reason
		o.PaymentStatus = PaymentCancelled
		o.Status = StatusCancelled
		o.UpdatedAt = now
		return nil
	}

	rank, ok := stageOrder[target]
	if !ok {
		return ErrInvalidStatus
	}

	if stamp := o.stageStamp(target); *stamp == nil {
		t := now
		*stamp = &t
	}
	for s, r := range stageOrder {
		if r > rank {
			*o.stageStamp(s) = nil
		}
	}

	if target == StatusPaid {
		o.PaymentStatus = PaymentCompleted
	}

	o.Status = target
	o.UpdatedAt = now
	return nil
}

func (o *Order) stageStamp(s Status) **time.Time {
	switch s {
	case StatusPreparing:
		return &o.PreparingAt
	case StatusReady:
		return &o.ReadyAt
	case StatusServed:
		return &o.ServedAt
	case StatusPaid:
		return &o.PaidAt
	default:
		// StatusPlaced has no stamp of its own; CreatedAt covers it.
		var none *time.Time
		return &none
	}
}

// ItemSummary renders the compact line-item list carried by fan-out
// events, e.g. for kitchen printers.
func (o *Order) ItemSummary() []string {
	summary := make([]string, len(o.Items))
	for i, item := range o.Items {
		summary[i] = item.Title
		if item.Quantity > 1 {
			summary[i] = item.Title + " x" + strconv.Itoa(item.Quantity)
		}
	}
	return summary
}
