package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Guard is a best-effort single-flight lock around mutating operations.
// Acquire returns an error only on contention; implementations fail open when
// their backend is unavailable because the database constraints stay authoritative.
type Guard interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// CloseNotifier receives closed shifts for asynchronous follow-up (summary PDF/e-mail).
type CloseNotifier interface {
	ShiftClosed(ctx context.Context, shiftID uuid.UUID) error
}

// Options carries the ambient collaborators shared by the engine services.
type Options struct {
	// Location is the business timezone used to resolve operational days.
	Location *time.Location
	// Now supplies the current instant at the boundary; defaults to time.Now.
	Now func() time.Time
	// Guard is optional.
	Guard Guard
	// Notifier is optional.
	Notifier CloseNotifier
	// RefreshAfter is the polling interval advertised to dashboards.
	RefreshAfter time.Duration
}

func (o Options) withDefaults() Options {
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.RefreshAfter <= 0 {
		o.RefreshAfter = time.Minute
	}
	return o
}

// localNow is the current instant in the business timezone.
func (o Options) localNow() time.Time { return o.Now().In(o.Location) }

func (o Options) acquire(ctx context.Context, key string) (func(), error) {
	if o.Guard == nil {
		return func() {}, nil
	}
	release, err := o.Guard.Acquire(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOperationInProgress, err)
	}
	return release, nil
}

// validAmount: strictly positive, cent precision.
func validAmount(d decimal.Decimal) bool {
	return d.IsPositive() && d.Equal(d.Round(2))
}

// validOpening: zero allowed, cent precision.
func validOpening(d decimal.Decimal) bool {
	return !d.IsNegative() && d.Equal(d.Round(2))
}
