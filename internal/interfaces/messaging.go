package interfaces

import (
	"context"
	"time"

	"github.com/adilzhm/tably/internal/domain"
)

// OrderEvent is the payload published on every successful lifecycle
// change, to both sockets and the broker.
type OrderEvent struct {
	OrderID      int64     `json:"order_id"`
	StoreID      int64     `json:"store_id"`
	TableID      int64     `json:"table_id"`
	Status       string    `json:"status"`
	TicketNumber *int      `json:"ticket_number,omitempty"`
	TotalCents   int64     `json:"total_cents"`
	Items        []string  `json:"items"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// WaiterCallEvent is published when a table asks for service.
type WaiterCallEvent struct {
	StoreID    int64     `json:"store_id"`
	TableID    int64     `json:"table_id"`
	TableLabel string    `json:"table_label"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Targeting selects local socket recipients. Exactly one mode applies:
// AnonymousOnly short-circuits Roles and UserIDs; otherwise UserIDs wins
// over Roles when set. The zero value broadcasts to everyone.
type Targeting struct {
	Roles         []domain.Role
	UserIDs       []int64
	AnonymousOnly bool
}

// SocketRegistry is the process-wide registry of connected sessions.
// Broadcast returns how many sessions the message was written to.
type SocketRegistry interface {
	Broadcast(topic string, payload []byte, targeting Targeting) int
}

// BrokerPublisher republishes events to the external broker for
// cross-process and hardware consumers.
type BrokerPublisher interface {
	Publish(ctx context.Context, topic string, body []byte) error
}

// EventSink is what the lifecycle and locality services see: one call,
// two best-effort channels behind it.
type EventSink interface {
	Publish(ctx context.Context, topic string, payload any, targeting Targeting)
	// PublishStaff targets the given user ids, falling back to the whole
	// role when none are resolvable.
	PublishStaff(ctx context.Context, topic string, payload any, role domain.Role, userIDs []int64)
}
