package structure

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// Failure taxonomy of the structure coordinator. Locked and the CannotRemove*
// errors carry user-facing messages shown verbatim in the editing UI. Busy is
// recoverable by retry. The rest indicate stale ids or bad input from the
// caller.
var (
	ErrLocked                        = errors.New("this quiz can no longer be edited because attempts exist")
	ErrNotFound                      = errors.New("slot or section not found")
	ErrInvalidTargetPage             = errors.New("the target page number is not valid for this position")
	ErrCannotRemoveLastSlotInSection = errors.New("you cannot remove the last slot in a section")
	ErrCannotRemoveFirstSection      = errors.New("the first section of a quiz cannot be removed")
	ErrInvalidPage                   = errors.New("a section heading cannot be added to this page")
	ErrBusy                          = errors.New("the quiz structure is locked by another operation, try again")
)

// classify maps store-level contention onto ErrBusy so callers can retry.
// Postgres reports serialization failures and lock timeouts as SQLSTATEs;
// sqlite reports them in the error text.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "55P03":
			return fmt.Errorf("%w: %v", ErrBusy, err)
		}
		return err
	}
	msg := err.Error()
	if strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked") {
		return fmt.Errorf("%w: %v", ErrBusy, err)
	}
	return err
}
