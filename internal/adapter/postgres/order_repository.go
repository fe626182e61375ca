package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/adilzhm/tably/internal/domain"
	"github.com/adilzhm/tably/internal/interfaces"
)

type orderRepository struct {
	db DB
}

func NewOrderRepository(db DB) interfaces.OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO orders (store_id, table_id, visit_id, status, payment_status,
		                    total_cents, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	err = tx.QueryRow(ctx, query,
		order.StoreID, order.TableID, order.VisitID, order.Status, order.PaymentStatus,
		order.TotalCents, order.CreatedAt, order.UpdatedAt,
	).Scan(&order.ID)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for i := range order.Items {
		item := &order.Items[i]
		itemQuery := `
			INSERT INTO order_items (order_id, title, unit_price_cents, quantity)
			VALUES ($1, $2, $3, $4)
			RETURNING id
		`
		err = tx.QueryRow(ctx, itemQuery,
			order.ID, item.Title, item.UnitPriceCents, item.Quantity,
		).Scan(&item.ID)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
		item.OrderID = order.ID

		for j := range item.Options {
			opt := &item.Options[j]
			optQuery := `
				INSERT INTO order_item_options (order_item_id, title, price_cents)
				VALUES ($1, $2, $3)
				RETURNING id
			`
			if err := tx.QueryRow(ctx, optQuery, item.ID, opt.Title, opt.PriceCents).Scan(&opt.ID); err != nil {
				return fmt.Errorf("failed to insert item option: %w", err)
			}
			opt.OrderItemID = item.ID
		}
	}

	return tx.Commit(ctx)
}

const orderColumns = `
	id, store_id, table_id, visit_id, status, payment_status, total_cents,
	ticket_number, cancel_reason, preparing_at, ready_at, served_at, paid_at,
	cancelled_at, created_at, updated_at`

func (r *orderRepository) FindByID(ctx context.Context, id int64) (*domain.Order, error) {
	query := `SELECT` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	if err := r.loadItems(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) ListOpenByStore(ctx context.Context, storeID int64) ([]*domain.Order, error) {
	query := `SELECT` + orderColumns + `
		FROM orders
		WHERE store_id = $1 AND status NOT IN ($2, $3)
		ORDER BY created_at ASC`

	rows, err := r.db.Query(ctx, query, storeID, domain.StatusPaid, domain.StatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("failed to list open orders: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}

	for _, order := range orders {
		if err := r.loadItems(ctx, order); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (r *orderRepository) UpdateTransition(ctx context.Context, order *domain.Order) error {
	query := `
		UPDATE orders
		SET status = $1, payment_status = $2, cancel_reason = $3,
		    preparing_at = $4, ready_at = $5, served_at = $6, paid_at = $7,
		    cancelled_at = $8, updated_at = $9
		WHERE id = $10
	`
	tag, err := r.db.Exec(ctx, query,
		order.Status, order.PaymentStatus, order.CancelReason,
		order.PreparingAt, order.ReadyAt, order.ServedAt, order.PaidAt,
		order.CancelledAt, order.UpdatedAt, order.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

func scanOrder(row Row) (*domain.Order, error) {
	var order domain.Order
	err := row.Scan(
		&order.ID, &order.StoreID, &order.TableID, &order.VisitID, &order.Status,
		&order.PaymentStatus, &order.TotalCents, &order.TicketNumber, &order.CancelReason,
		&order.PreparingAt, &order.ReadyAt, &order.ServedAt, &order.PaidAt,
		&order.CancelledAt, &order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) loadItems(ctx context.Context, order *domain.Order) error {
	itemsQuery := `
		SELECT id, order_id, title, unit_price_cents, quantity
		FROM order_items WHERE order_id = $1 ORDER BY id`
	rows, err := r.db.Query(ctx, itemsQuery, order.ID)
	if err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.Title, &item.UnitPriceCents, &item.Quantity); err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		order.Items = append(order.Items, item)
	}

	for i := range order.Items {
		item := &order.Items[i]
		optQuery := `
			SELECT id, order_item_id, title, price_cents
			FROM order_item_options WHERE order_item_id = $1 ORDER BY id`
		optRows, err := r.db.Query(ctx, optQuery, item.ID)
		if err != nil {
			return fmt.Errorf("failed to load item options: %w", err)
		}
		for optRows.Next() {
			var opt domain.OrderItemOption
			if err := optRows.Scan(&opt.ID, &opt.OrderItemID, &opt.Title, &opt.PriceCents); err != nil {
				optRows.Close()
				return fmt.Errorf("failed to scan item option: %w", err)
			}
			item.Options = append(item.Options, opt)
		}
		optRows.Close()
	}
	return nil
}
