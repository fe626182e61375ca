package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOrder(t *testing.T) *Order {
	t.Helper()
	order, err := NewOrder(1, 3, nil, []OrderItem{
		{Title: "Souvlaki", UnitPriceCents: 850, Quantity: 2},
		{Title: "Greek Salad", UnitPriceCents: 700, Quantity: 1, Options: []OrderItemOption{
			{Title: "Extra Feta", PriceCents: 150},
		}},
	}, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return order
}

func TestNewOrder_TotalFromSnapshot(t *testing.T) {
	order := testOrder(t)
	// 2*850 + (700+150)
	assert.Equal(t, int64(2550), order.TotalCents)
	assert.Equal(t, StatusPlaced, order.Status)
	assert.Equal(t, PaymentPending, order.PaymentStatus)
}

func TestNewOrder_Validation(t *testing.T) {
	now := time.Now()

	_, err := NewOrder(1, 3, nil, nil, now)
	assert.Error(t, err, "empty item list rejected")

	_, err = NewOrder(1, 3, nil, []OrderItem{{Title: "Gyros", UnitPriceCents: -1, Quantity: 1}}, now)
	assert.Error(t, err, "negative price rejected")

	_, err = NewOrder(0, 3, nil, []OrderItem{{Title: "Gyros", UnitPriceCents: 100, Quantity: 1}}, now)
	assert.Error(t, err, "missing store rejected")
}

func TestApplyTransition_StampsTarget(t *testing.T) {
	order := testOrder(t)
	now := time.Now()

	require.NoError(t, order.ApplyTransition(StatusPreparing, now, ""))
	assert.Equal(t, StatusPreparing, order.Status)
	require.NotNil(t, order.PreparingAt)
	assert.Equal(t, now, *order.PreparingAt)
	assert.Nil(t, order.ReadyAt)
}

func TestApplyTransition_JumpForwardLeavesSkippedUnset(t *testing.T) {
	order := testOrder(t)
	now := time.Now()

	require.NoError(t, order.ApplyTransition(StatusServed, now, ""))
	assert.Equal(t, StatusServed, order.Status)
	assert.NotNil(t, order.ServedAt)
	// Skipped intermediate stages are not backfilled.
	assert.Nil(t, order.PreparingAt)
	assert.Nil(t, order.ReadyAt)
}

func TestApplyTransition_BackwardClearsLaterStamps(t *testing.T) {
	order := testOrder(t)
	base := time.Now()

	require.NoError(t, order.ApplyTransition(StatusPreparing, base, ""))
	require.NoError(t, order.ApplyTransition(StatusReady, base.Add(time.Minute), ""))
	require.NoError(t, order.ApplyTransition(StatusServed, base.Add(2*time.Minute), ""))

	// Undo back to preparing: later stamps clear, earlier survive.
	require.NoError(t, order.ApplyTransition(StatusPreparing, base.Add(3*time.Minute), ""))
	assert.Equal(t, StatusPreparing, order.Status)
	assert.Equal(t, base, *order.PreparingAt, "existing stamp untouched")
	assert.Nil(t, order.ReadyAt)
	assert.Nil(t, order.ServedAt)
}

func TestApplyTransition_RepeatJumpIsStable(t *testing.T) {
	order := testOrder(t)
	first := time.Now()

	require.NoError(t, order.ApplyTransition(StatusServed, first, ""))
	stamp := *order.ServedAt

	require.NoError(t, order.ApplyTransition(StatusServed, first.Add(time.Minute), ""))
	assert.Equal(t, stamp, *order.ServedAt, "repeat keeps the original stamp")
	assert.Nil(t, order.PreparingAt)
	assert.Nil(t, order.ReadyAt)
}

func TestApplyTransition_Cancel(t *testing.T) {
	order := testOrder(t)
	base := time.Now()

	require.NoError(t, order.ApplyTransition(StatusPreparing, base, ""))
	require.NoError(t, order.ApplyTransition(StatusCancelled, base.Add(time.Minute), ""))

	assert.Equal(t, StatusCancelled, order.Status)
	assert.Equal(t, PaymentCancelled, order.PaymentStatus)
	require.NotNil(t, order.CancelReason)
	assert.Equal(t, DefaultCancelReason, *order.CancelReason)
	// Stage timestamps are preserved for audit.
	assert.NotNil(t, order.PreparingAt)
}

func TestApplyTransition_CancelWithReason(t *testing.T) {
	order := testOrder(t)
	require.NoError(t, order.ApplyTransition(StatusCancelled, time.Now(), "guest left"))
	assert.Equal(t, "guest left", *order.CancelReason)
}

func TestApplyTransition_TerminalStates(t *testing.T) {
	cancelled := testOrder(t)
	require.NoError(t, cancelled.ApplyTransition(StatusCancelled, time.Now(), ""))
	assert.ErrorIs(t, cancelled.ApplyTransition(StatusPreparing, time.Now(), ""), ErrOrderTerminal)

	paid := testOrder(t)
	require.NoError(t, paid.ApplyTransition(StatusPaid, time.Now(), ""))
	assert.Equal(t, PaymentCompleted, paid.PaymentStatus)
	assert.ErrorIs(t, paid.ApplyTransition(StatusCancelled, time.Now(), ""), ErrOrderTerminal)
}

func TestRoleCanSet(t *testing.T) {
	tests := []struct {
		role    Role
		target  Status
		allowed bool
	}{
		{RoleCook, StatusPreparing, true},
		{RoleCook, StatusReady, true},
		{RoleCook, StatusCancelled, true},
		{RoleCook, StatusServed, false},
		{RoleCook, StatusPaid, false},
		{RoleWaiter, StatusServed, true},
		{RoleWaiter, StatusPaid, true},
		{RoleWaiter, StatusPreparing, false},
		{RoleWaiter, StatusCancelled, false},
		{RoleManager, StatusPreparing, true},
		{RoleManager, StatusPaid, true},
		{RoleAdmin, StatusCancelled, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.allowed, RoleCanSet(tt.role, tt.target), "%s -> %s", tt.role, tt.target)
	}
}

func TestEventName(t *testing.T) {
	assert.Equal(t, "canceled", EventName(StatusCancelled))
	assert.Equal(t, "preparing", EventName(StatusPreparing))
}

func TestItemSummary(t *testing.T) {
	order := testOrder(t)
	assert.Equal(t, []string{"Souvlaki x2", "Greek Salad"}, order.ItemSummary())
}
