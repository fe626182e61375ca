package interfaces

import (
	"context"
	"time"

	"github.com/adilzhm/tably/internal/domain"
)

type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id int64) (*domain.Order, error)
	ListOpenByStore(ctx context.Context, storeID int64) ([]*domain.Order, error)
	// UpdateTransition persists status, payment status, stage timestamps
	// and cancel reason after a lifecycle transition.
	UpdateTransition(ctx context.Context, order *domain.Order) error
}

// CounterRepository hands out per-(store, UTC day) ticket numbers.
// NextOrKeep re-reads the order's ticket inside the same transaction
// that increments the counter: if a ticket is already assigned it is
// returned untouched and no increment happens.
type CounterRepository interface {
	NextOrKeep(ctx context.Context, storeID, orderID int64, day time.Time) (ticket int, incremented bool, err error)
}

type StoreRepository interface {
	FindByID(ctx context.Context, id int64) (*domain.Store, error)
	FindBySlug(ctx context.Context, slug string) (*domain.Store, error)
}

type LocalityRepository interface {
	FindTileByCode(ctx context.Context, publicCode string) (*domain.QRTile, error)
	FindTable(ctx context.Context, id int64) (*domain.Table, error)

	CreateVisit(ctx context.Context, visit *domain.TableVisit) error
	FindVisitByToken(ctx context.Context, token string) (*domain.TableVisit, error)
	CloseVisit(ctx context.Context, token string, at time.Time) error

	CreateApproval(ctx context.Context, approval *domain.LocalityApproval) error
	// ConsumeApproval atomically looks up and deletes an approval token,
	// enforcing its single-use nature.
	ConsumeApproval(ctx context.Context, token string) (*domain.LocalityApproval, error)
}
