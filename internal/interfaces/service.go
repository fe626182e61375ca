package interfaces

import (
	"context"

	"github.com/adilzhm/tably/internal/domain"
)

// Actor identifies the authenticated staff member behind a transition.
type Actor struct {
	UserID int64
	Role   domain.Role
}

type CreateOrderCommand struct {
	StoreID       int64
	TableID       int64
	VisitToken    string
	ApprovalToken string
	Items         []CreateOrderItemCommand
}

type CreateOrderItemCommand struct {
	Title          string
	UnitPriceCents int64
	Quantity       int
	Options        []CreateOrderOptionCommand
}

type CreateOrderOptionCommand struct {
	Title      string
	PriceCents int64
}

type LifecycleService interface {
	CreateOrder(ctx context.Context, cmd CreateOrderCommand) (*domain.Order, error)
	Transition(ctx context.Context, orderID int64, target domain.Status, actor Actor, reason string) (*domain.Order, error)
	GetOrder(ctx context.Context, orderID int64) (*domain.Order, error)
	ListOpenOrders(ctx context.Context, storeID int64) ([]*domain.Order, error)
}

type LocalityService interface {
	ResolveTile(ctx context.Context, publicCode string) (*domain.TileResolution, error)
	OpenVisit(ctx context.Context, publicCode string) (*domain.TableVisit, error)
	ValidateVisit(ctx context.Context, sessionToken string) (*domain.TableVisit, error)
	CloseVisit(ctx context.Context, sessionToken string) error
	ApproveLocality(ctx context.Context, publicCode string, claimedTableID int64, clientSessionID, method string) (*domain.LocalityApproval, error)
	ConsumeApproval(ctx context.Context, token string, purpose domain.ApprovalPurpose) (*domain.LocalityApproval, error)
	CallWaiter(ctx context.Context, tableID int64) error
}
