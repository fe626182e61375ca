// Package lifecycle is the guarded order state machine: role-gated
// transitions, stage timestamp bookkeeping, race-free ticket allocation
// and the post-commit event fan-out.
package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/adilzhm/tably/internal/adapter/logger"
	"github.com/adilzhm/tably/internal/clock"
	"github.com/adilzhm/tably/internal/domain"
	"github.com/adilzhm/tably/internal/interfaces"
)

// localityGate is the slice of the locality manager order creation
// needs: visit validation and single-use approval consumption.
type localityGate interface {
	ValidateVisit(ctx context.Context, sessionToken string) (*domain.TableVisit, error)
	ConsumeApproval(ctx context.Context, token string, purpose domain.ApprovalPurpose) (*domain.LocalityApproval, error)
}

type Service struct {
	orders          interfaces.OrderRepository
	counters        interfaces.CounterRepository
	stores          interfaces.StoreRepository
	events          interfaces.EventSink
	gate            localityGate
	requireApproval bool
	clock           clock.Clock
	logger          logger.Logger
}

func NewService(
	orders interfaces.OrderRepository,
	counters interfaces.CounterRepository,
	stores interfaces.StoreRepository,
	events interfaces.EventSink,
	gate localityGate,
	requireApproval bool,
	clk clock.Clock,
	lgr logger.Logger,
) *Service {
	return &Service{
		orders:          orders,
		counters:        counters,
		stores:          stores,
		events:          events,
		gate:            gate,
		requireApproval: requireApproval,
		clock:           clk,
		logger:          lgr,
	}
}

// CreateOrder runs the locality gate, snapshots line-item prices,
// persists the order in placed state and emits the placed event.
func (s *Service) CreateOrder(ctx context.Context, cmd interfaces.CreateOrderCommand) (*domain.Order, error) {
	visitID, err := s.checkLocality(ctx, cmd)
	if err != nil {
		return nil, err
	}

	items := make([]domain.OrderItem, len(cmd.Items))
	for i, item := range cmd.Items {
		options := make([]domain.OrderItemOption, len(item.Options))
		for j, opt := range item.Options {
			options[j] = domain.OrderItemOption{Title: opt.Title, PriceCents: opt.PriceCents}
		}
		items[i] = domain.OrderItem{
			Title:          item.Title,
			UnitPriceCents: item.UnitPriceCents,
			Quantity:       item.Quantity,
			Options:        options,
		}
	}

	order, err := domain.NewOrder(cmd.StoreID, cmd.TableID, visitID, items, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidOrder, err)
	}

	if err := s.orders.Create(ctx, order); err != nil {
		s.logger.Error("order_create_failed", "Failed to persist order", "", nil, err)
		return nil, err
	}

	s.emit(ctx, order)
	return order, nil
}

// checkLocality enforces the proximity gate before submission. The
// approval token is consumed (single use) and must bind to the claimed
// table; a visit token, when supplied, must be open and for the same
// table.
func (s *Service) checkLocality(ctx context.Context, cmd interfaces.CreateOrderCommand) (*int64, error) {
	if s.requireApproval || cmd.ApprovalToken != "" {
		if cmd.ApprovalToken == "" {
			return nil, domain.ErrApprovalNotFound
		}
		approval, err := s.gate.ConsumeApproval(ctx, cmd.ApprovalToken, domain.PurposeOrderSubmit)
		if err != nil {
			return nil, err
		}
		if approval.TableID != cmd.TableID {
			return nil, &domain.TableMismatchError{ExpectedTableID: approval.TableID}
		}
	}

	if cmd.VisitToken == "" {
		return nil, nil
	}
	visit, err := s.gate.ValidateVisit(ctx, cmd.VisitToken)
	if err != nil {
		return nil, err
	}
	if visit.TableID != cmd.TableID {
		return nil, &domain.TableMismatchError{ExpectedTableID: visit.TableID}
	}
	return &visit.ID, nil
}

// Transition moves an order to target on behalf of actor.
//
// The permission table is checked before anything else. A request for
// the current status is accepted as an idempotent no-op. The first
// entry into preparing allocates a ticket number through the counter
// store; persistence commits before any notification is attempted.
func (s *Service) Transition(ctx context.Context, orderID int64, target domain.Status, actor interfaces.Actor, reason string) (*domain.Order, error) {
	if !domain.ValidStatus(target) {
		return nil, domain.ErrInvalidStatus
	}
	if !domain.RoleCanSet(actor.Role, target) {
		return nil, domain.ErrPermissionDenied
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.Status == target {
		return order, nil
	}

	if err := order.ApplyTransition(target, s.clock.Now(), reason); err != nil {
		return nil, err
	}

	if target == domain.StatusPreparing {
		if err := s.allocateTicket(ctx, order); err != nil {
			return nil, err
		}
	}

	if err := s.orders.UpdateTransition(ctx, order); err != nil {
		s.logger.Error("order_update_failed", "Failed to persist transition", "", map[string]any{
			"order_id": order.ID,
			"target":   string(target),
		}, err)
		return nil, err
	}

	s.logger.Info("order_transitioned", fmt.Sprintf("Order %d -> %s", order.ID, target), "", map[string]any{
		"order_id": order.ID,
		"status":   string(target),
		"actor":    actor.UserID,
	})

	s.emit(ctx, order)
	return order, nil
}

// allocateTicket assigns the per-(store, day) ticket exactly once. The
// repository re-checks the order's ticket inside the same transaction
// that increments the counter, so a duplicate transition request
// observes the already-assigned value instead of incrementing again.
// The counter transaction commits before UpdateTransition: if the
// status write then fails, the order keeps its ticket while still
// placed, and the retry's re-check returns that same ticket.
func (s *Service) allocateTicket(ctx context.Context, order *domain.Order) error {
	if order.TicketNumber != nil {
		return nil
	}

	day := s.clock.Now().UTC().Truncate(24 * time.Hour)
	ticket, incremented, err := s.counters.NextOrKeep(ctx, order.StoreID, order.ID, day)
	if err != nil {
		return fmt.Errorf("failed to allocate ticket: %w", err)
	}
	order.TicketNumber = &ticket

	if incremented {
		s.logger.Debug("ticket_allocated", "Ticket number assigned", "", map[string]any{
			"order_id": order.ID,
			"ticket":   ticket,
		})
	}
	return nil
}

func (s *Service) GetOrder(ctx context.Context, orderID int64) (*domain.Order, error) {
	return s.orders.FindByID(ctx, orderID)
}

func (s *Service) ListOpenOrders(ctx context.Context, storeID int64) ([]*domain.Order, error) {
	return s.orders.ListOpenByStore(ctx, storeID)
}

// emit publishes the lifecycle event after the commit. Failures inside
// the sink are logged there and never reach this caller.
func (s *Service) emit(ctx context.Context, order *domain.Order) {
	store, err := s.stores.FindByID(ctx, order.StoreID)
	if err != nil {
		s.logger.Error("event_store_lookup_failed", "Cannot resolve store for event topic", "", map[string]any{
			"order_id": order.ID,
			"store_id": order.StoreID,
		}, err)
		return
	}

	event := interfaces.OrderEvent{
		OrderID:      order.ID,
		StoreID:      order.StoreID,
		TableID:      order.TableID,
		Status:       string(order.Status),
		TicketNumber: order.TicketNumber,
		TotalCents:   order.TotalCents,
		Items:        order.ItemSummary(),
		OccurredAt:   s.clock.Now(),
	}

	topic := fmt.Sprintf("%s/orders/%s", store.Slug, domain.EventName(order.Status))
	s.events.Publish(ctx, topic, event, interfaces.Targeting{})
}
