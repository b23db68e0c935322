package orders

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/Skotchmaster/shop_orders/internal/catalog"
)

var (
	ErrValidation      = errors.New("validation")
	ErrEmptyCart       = fmt.Errorf("%w: cart is empty", ErrValidation)
	ErrMissingCustomer = fmt.Errorf("%w: no customer bound to cart", ErrValidation)

	// ErrNoValidItems means every cart line vanished from the catalog.
	ErrNoValidItems  = errors.New("no cart line resolves to a catalog product")
	ErrOrderNotFound = errors.New("order not found")

	ErrTransient  = errors.New("transient data-layer failure")
	ErrStructural = errors.New("structural data-layer failure")
)

// CommitError is returned when the order transaction fails. It matches
// ErrTransient when a retry of the same cart may succeed and ErrStructural
// when the cart must be revalidated first.
type CommitError struct {
	Op        string
	Retryable bool
	Err       error
}

func (e *CommitError) Error() string {
	kind := "structural"
	if e.Retryable {
		kind = "transient"
	}
	return fmt.Sprintf("place order: %s (%s): %v", e.Op, kind, e.Err)
}

func (e *CommitError) Unwrap() []error {
	if e.Retryable {
		return []error{ErrTransient, e.Err}
	}
	return []error{ErrStructural, e.Err}
}

func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var ce *CommitError
	if errors.As(err, &ce) {
		return err
	}
	return &CommitError{Op: op, Retryable: isTransient(err), Err: err}
}

func isTransient(err error) bool {
	switch {
	case errors.Is(err, gorm.ErrForeignKeyViolated),
		errors.Is(err, gorm.ErrCheckConstraintViolated),
		errors.Is(err, gorm.ErrDuplicatedKey),
		errors.Is(err, catalog.ErrProductNotFound):
		return false
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.Is(err, driver.ErrBadConn),
		errors.Is(err, sql.ErrConnDone):
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "40001", pgErr.Code == "40P01", pgErr.Code == "55P03",
			pgErr.Code == "57P01", strings.HasPrefix(pgErr.Code, "08"):
			return true
		case strings.HasPrefix(pgErr.Code, "22"), // data exception, e.g. numeric overflow
			strings.HasPrefix(pgErr.Code, "23"),
			strings.HasPrefix(pgErr.Code, "42"),
			strings.HasPrefix(pgErr.Code, "44"),
			strings.HasPrefix(pgErr.Code, "XX"):
			return false
		}
	}
	if pgconn.Timeout(err) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	// the transaction rolled back, so an unknown failure is safe to retry
	return true
}
