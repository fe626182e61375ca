package domain

import (
	"errors"
	"fmt"
)

var (
	ErrOrderNotFound    = errors.New("order not found")
	ErrTableNotFound    = errors.New("table not found")
	ErrTileNotFound     = errors.New("tile not found")
	ErrStoreNotFound    = errors.New("store not found")
	ErrVisitNotFound    = errors.New("visit not found or no longer open")
	ErrApprovalNotFound = errors.New("approval not found or expired")

	ErrPermissionDenied = errors.New("role not permitted for this transition")
	ErrOrderTerminal    = errors.New("order is in a terminal state")
	ErrInvalidStatus    = errors.New("unknown order status")
	ErrInvalidOrder     = errors.New("invalid order")
)

// TableMismatchError is returned when a locality approval claims a table
// that is not the one bound to the scanned tile. The expected id is
// surfaced so the client can self-correct.
type TableMismatchError struct {
	ExpectedTableID int64
}

func (e *TableMismatchError) Error() string {
	return fmt.Sprintf("tile is bound to a different table (expected table %d)", e.ExpectedTableID)
}
