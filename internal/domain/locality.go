package domain

import "time"

// Store is the owning tenant. Slug is used as the topic namespace.
type Store struct {
	ID   int64
	Slug string
	Name string
}

// Table is a physical seat location inside a store.
type Table struct {
	ID       int64
	StoreID  int64
	Label    string
	IsActive bool
}

// QRTile is a printed code, optionally bound to exactly one table at a
// time. TableID stays nil until assignment.
type QRTile struct {
	ID         int64
	StoreID    int64
	PublicCode string
	TableID    *int64
	IsActive   bool
}

// TileState classifies what a tile lookup resolved to.
type TileState string

const (
	TileInactive   TileState = "inactive"
	TileUnassigned TileState = "unassigned"
	TileResolved   TileState = "resolved"
)

// TileResolution is the structured outcome of resolving a public code.
// Table is set only for TileResolved.
type TileResolution struct {
	State TileState
	Tile  *QRTile
	Table *Table
}

// VisitStatus is the lifecycle of an anonymous table visit.
type VisitStatus string

const (
	VisitOpen   VisitStatus = "open"
	VisitClosed VisitStatus = "closed"
)

// TableVisit is a time-boxed anonymous ordering session bound to
// (store, table, tile).
type TableVisit struct {
	ID           int64
	StoreID      int64
	TableID      int64
	TileID       int64
	SessionToken string
	Status       VisitStatus
	ExpiresAt    time.Time
	CreatedAt    time.Time
	ClosedAt     *time.Time
}

// Usable reports whether the visit still admits orders at the given
// instant. Expired or closed visits count as absent.
func (v *TableVisit) Usable(now time.Time) bool {
	return v.Status == VisitOpen && now.Before(v.ExpiresAt)
}

// ApprovalPurpose restricts what a locality approval may be spent on.
type ApprovalPurpose string

const PurposeOrderSubmit ApprovalPurpose = "order_submit"

// LocalityApproval is a short-lived proximity token binding a client
// session to a (store, table, tile) tuple. Single-purpose, not
// renewable.
type LocalityApproval struct {
	ID              int64
	Token           string
	StoreID         int64
	TableID         int64
	TileID          int64
	ClientSessionID string
	Purpose         ApprovalPurpose
	Method          string
	ExpiresAt       time.Time
	CreatedAt       time.Time
}

// Valid reports whether the approval can still be spent for the given
// purpose at the given instant.
func (a *LocalityApproval) Valid(purpose ApprovalPurpose, now time.Time) bool {
	return a.Purpose == purpose && now.Before(a.ExpiresAt)
}
