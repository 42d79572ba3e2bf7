package service

import (
	"context"
	"errors"
	"strings"

	"restopos/internal/ledger"
	"restopos/internal/model"
	"restopos/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RecordMovementInput is one cash event to append to an open shift.
type RecordMovementInput struct {
	ShiftID       uuid.UUID
	Kind          model.MovementKind
	Amount        decimal.Decimal
	PaymentMethod model.PaymentMethod
	Concept       string
	ActorID       uuid.UUID
	// RequestID makes the call exactly-once when set.
	RequestID *string
}

// RecordedMovement is the stored entry. Replayed is set when RequestID matched
// an earlier identical movement and nothing was written.
type RecordedMovement struct {
	*model.CashMovement
	Replayed bool
}

type MovementService interface {
	RecordMovement(ctx context.Context, in RecordMovementInput) (*RecordedMovement, error)
	ComputeBalance(ctx context.Context, shiftID uuid.UUID) (decimal.Decimal, error)
	ListMovements(ctx context.Context, shiftID uuid.UUID) ([]model.CashMovement, error)
}

type movementService struct {
	shifts    repository.ShiftRepository
	movements repository.MovementRepository
	opts      Options
}

func NewMovementService(shifts repository.ShiftRepository, movements repository.MovementRepository, opts Options) MovementService {
	return &movementService{shifts: shifts, movements: movements, opts: opts.withDefaults()}
}

// ── RecordMovement ────────────────────────────────────────────────────────────
// The open check and the insert share one transaction: LockOpenTx only matches
// while status is open, so a concurrent close either commits first (and the
// insert is rejected) or waits for this insert to commit.

func (s *movementService) RecordMovement(ctx context.Context, in RecordMovementInput) (*RecordedMovement, error) {
	if !in.Kind.Valid() {
		return nil, ErrInvalidMovementKind
	}
	if !in.PaymentMethod.Valid() {
		return nil, ErrInvalidPaymentMethod
	}
	if !validAmount(in.Amount) {
		return nil, ErrInvalidAmount
	}
	requestID := normalizeRequestID(in.RequestID)

	var out *RecordedMovement
	err := runTx(ctx, s.shifts.DB(), func(tx *gorm.DB) error {
		if requestID != nil {
			prev, err := s.movements.FindByRequestIDTx(tx, *requestID)
			if err == nil {
				if !sameMovement(prev, in) {
					return ErrRequestIDConflict
				}
				out = &RecordedMovement{CashMovement: prev, Replayed: true}
				return nil
			}
			if !errors.Is(err, repository.ErrNotFound) {
				return err
			}
		}

		if err := lockOpenShift(tx, s.shifts, in.ShiftID, ErrShiftNotOpen); err != nil {
			return err
		}

		mov := &model.CashMovement{
			ShiftID:       in.ShiftID,
			Kind:          in.Kind,
			Amount:        in.Amount,
			PaymentMethod: in.PaymentMethod,
			Concept:       conceptOrDefault(in.Concept, string(in.Kind)),
			ActorID:       in.ActorID,
			CreatedAt:     s.opts.Now().UTC(),
			RequestID:     requestID,
		}
		if err := s.movements.CreateTx(tx, mov); err != nil {
			return err
		}
		out = &RecordedMovement{CashMovement: mov}
		return nil
	})
	if errors.Is(err, repository.ErrDuplicate) && requestID != nil {
		// Lost a race against a concurrent replay of the same request.
		prev, err := s.movements.FindByRequestIDTx(s.shifts.DB().WithContext(ctx), *requestID)
		if err != nil {
			return nil, err
		}
		if !sameMovement(prev, in) {
			return nil, ErrRequestIDConflict
		}
		return &RecordedMovement{CashMovement: prev, Replayed: true}, nil
	}
	if err != nil {
		return nil, err
	}
	if out.Replayed {
		log.Debug().Str("request_id", *requestID).Msg("movement replayed")
		return out, nil
	}

	log.Debug().
		Str("shift_id", out.ShiftID.String()).
		Str("kind", string(out.Kind)).
		Str("amount", out.Amount.StringFixed(2)).
		Msg("movement recorded")
	return out, nil
}

// ── ComputeBalance ────────────────────────────────────────────────────────────
// Always a full summation of the log; see ledger.Balance.

func (s *movementService) ComputeBalance(ctx context.Context, shiftID uuid.UUID) (decimal.Decimal, error) {
	shift, err := s.shifts.FindByID(ctx, shiftID)
	if err != nil {
		return decimal.Zero, shiftLookupErr(err)
	}
	movs, err := s.movements.ListByShift(ctx, shiftID)
	if err != nil {
		return decimal.Zero, err
	}
	return ledger.Balance(shift.OpeningAmount, movs), nil
}

func (s *movementService) ListMovements(ctx context.Context, shiftID uuid.UUID) ([]model.CashMovement, error) {
	if _, err := s.shifts.FindByID(ctx, shiftID); err != nil {
		return nil, shiftLookupErr(err)
	}
	return s.movements.ListByShift(ctx, shiftID)
}

// ── helpers ───────────────────────────────────────────────────────────────────

// sameMovement reports whether prev is the movement in describes. A request id
// reused with other contents is a conflict, never a replay.
func sameMovement(prev *model.CashMovement, in RecordMovementInput) bool {
	return prev.TransferID == nil &&
		prev.ShiftID == in.ShiftID &&
		prev.Kind == in.Kind &&
		prev.PaymentMethod == in.PaymentMethod &&
		prev.Amount.Equal(in.Amount)
}

// lockOpenShift takes the row lock on an open shift inside tx. notOpen is
// returned when the shift exists but is closed.
func lockOpenShift(tx *gorm.DB, shifts repository.ShiftRepository, id uuid.UUID, notOpen error) error {
	ok, err := shifts.LockOpenTx(tx, id)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	if _, err := shifts.FindByIDTx(tx, id); err != nil {
		return shiftLookupErr(err)
	}
	return notOpen
}

func shiftLookupErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrShiftNotFound
	}
	return err
}

func registerLookupErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrRegisterNotFound
	}
	return err
}

func normalizeRequestID(id *string) *string {
	if id == nil {
		return nil
	}
	v := strings.TrimSpace(*id)
	if v == "" {
		return nil
	}
	return &v
}

func conceptOrDefault(concept, fallback string) string {
	if c := strings.TrimSpace(concept); c != "" {
		return c
	}
	return fallback
}

func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	return db.WithContext(ctx).Transaction(fn)
}
