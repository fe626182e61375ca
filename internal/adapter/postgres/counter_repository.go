package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/adilzhm/tably/internal/domain"
	"github.com/adilzhm/tably/internal/interfaces"
)

type counterRepository struct {
	db DB
}

func NewCounterRepository(db DB) interfaces.CounterRepository {
	return &counterRepository{db: db}
}

// NextOrKeep allocates the order's ticket number for (storeID, day).
//
// The row lock on the order and the counter upsert run inside one
// transaction: a concurrent duplicate request blocks on FOR UPDATE,
// then observes the assigned ticket and returns it without touching
// the counter. Horizontally scaled instances racing on the same
// (store, day) key serialize on the counter row.
func (r *counterRepository) NextOrKeep(ctx context.Context, storeID, orderID int64, day time.Time) (int, bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var existing *int
	err = tx.QueryRow(ctx,
		`SELECT ticket_number FROM orders WHERE id = $1 FOR UPDATE`, orderID,
	).Scan(&existing)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, domain.ErrOrderNotFound
		}
		return 0, false, fmt.Errorf("failed to read ticket: %w", err)
	}
	if existing != nil {
		return *existing, false, tx.Commit(ctx)
	}

	var seq int
	err = tx.QueryRow(ctx, `
		INSERT INTO ticket_counters (store_id, day, seq)
		VALUES ($1, $2, 1)
		ON CONFLICT (store_id, day)
		DO UPDATE SET seq = ticket_counters.seq + 1
		RETURNING seq
	`, storeID, day).Scan(&seq)
	if err != nil {
		return 0, false, fmt.Errorf("failed to increment counter: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE orders SET ticket_number = $1 WHERE id = $2`, seq, orderID,
	); err != nil {
		return 0, false, fmt.Errorf("failed to write ticket: %w", err)
	}

	return seq, true, tx.Commit(ctx)
}
