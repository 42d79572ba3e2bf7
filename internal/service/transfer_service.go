package service

import (
	"context"
	"errors"
	"fmt"

	"restopos/internal/ledger"
	"restopos/internal/model"
	"restopos/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TransferKind names the hop a transfer makes in the cash hierarchy.
type TransferKind string

const (
	TransferToRelief TransferKind = "relief" // sales → relief
	TransferToVault  TransferKind = "vault"  // relief → vault
	TransferFinal    TransferKind = "final"  // vault → outside the system
)

// Tag is the purpose prefix written on the movement concepts.
func (k TransferKind) Tag() string {
	switch k {
	case TransferToRelief:
		return "alivio"
	case TransferToVault:
		return "fuerte"
	case TransferFinal:
		return "retiro final"
	}
	return string(k)
}

type TransferInput struct {
	SourceRegisterID uuid.UUID
	// DestinationRegisterID is nil only for a final withdrawal from the vault.
	DestinationRegisterID *uuid.UUID
	Amount                decimal.Decimal
	Concept               string
	ActorID               uuid.UUID
	RequestID             *string
	// BranchID, when set, restricts both registers to that branch.
	BranchID *uuid.UUID
}

type TransferResult struct {
	TransferID  uuid.UUID
	Kind        TransferKind
	Amount      decimal.Decimal
	Source      *model.CashMovement
	Destination *model.CashMovement // nil for TransferFinal
	// Balances after the transfer (current balances on a replay).
	SourceBalance      decimal.Decimal
	DestinationBalance *decimal.Decimal
	// Replayed is set when RequestID matched an earlier transfer and nothing was written.
	Replayed bool
}

type TransferService interface {
	Transfer(ctx context.Context, in TransferInput) (*TransferResult, error)
}

type transferService struct {
	registers repository.RegisterRepository
	shifts    repository.ShiftRepository
	movements repository.MovementRepository
	opts      Options
}

func NewTransferService(
	registers repository.RegisterRepository,
	shifts repository.ShiftRepository,
	movements repository.MovementRepository,
	opts Options,
) TransferService {
	return &transferService{registers: registers, shifts: shifts, movements: movements, opts: opts.withDefaults()}
}

// route validates the hop: strictly adjacent tiers within one branch.
func route(src *model.CashRegister, dst *model.CashRegister) (TransferKind, error) {
	if dst != nil && (dst.ID == src.ID || dst.BranchID != src.BranchID) {
		return "", ErrInvalidTransferRoute
	}
	switch src.Kind {
	case model.RegisterSales:
		if dst != nil && dst.Kind == model.RegisterRelief {
			return TransferToRelief, nil
		}
	case model.RegisterRelief:
		if dst != nil && dst.Kind == model.RegisterVault {
			return TransferToVault, nil
		}
	case model.RegisterVault:
		if dst == nil {
			return TransferFinal, nil
		}
	}
	return "", ErrInvalidTransferRoute
}

// ── Transfer ──────────────────────────────────────────────────────────────────
// Both legs (or the single final leg) are written in one transaction after the
// involved shifts are locked and the source balance is recomputed under lock.

func (s *transferService) Transfer(ctx context.Context, in TransferInput) (*TransferResult, error) {
	if !validAmount(in.Amount) {
		return nil, ErrInvalidAmount
	}
	requestID := normalizeRequestID(in.RequestID)

	src, err := s.registers.FindByID(ctx, in.SourceRegisterID)
	if err != nil {
		return nil, registerLookupErr(err)
	}
	var dst *model.CashRegister
	if in.DestinationRegisterID != nil {
		if dst, err = s.registers.FindByID(ctx, *in.DestinationRegisterID); err != nil {
			return nil, registerLookupErr(err)
		}
	}
	if in.BranchID != nil && (src.BranchID != *in.BranchID || (dst != nil && dst.BranchID != *in.BranchID)) {
		return nil, ErrForeignBranch
	}
	kind, err := route(src, dst)
	if err != nil {
		return nil, err
	}
	if !src.Active || (dst != nil && !dst.Active) {
		return nil, ErrRegisterInactive
	}

	keys := []uuid.UUID{src.ID}
	if dst != nil {
		keys = append(keys, dst.ID)
	}
	for _, id := range sortedIDs(keys) {
		release, err := s.opts.acquire(ctx, registerLockKey(id))
		if err != nil {
			return nil, err
		}
		defer release()
	}

	var result *TransferResult
	err = runTx(ctx, s.shifts.DB(), func(tx *gorm.DB) error {
		if requestID != nil {
			prev, err := s.movements.FindByRequestIDTx(tx, *requestID)
			if err == nil {
				result, err = s.replay(tx, prev, in, kind)
				return err
			}
			if !errors.Is(err, repository.ErrNotFound) {
				return err
			}
		}

		srcShift, err := s.shifts.FindOpenByRegisterTx(tx, src.ID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrShiftNotOpen
			}
			return err
		}
		var dstShift *model.CashRegisterShift
		if dst != nil {
			if dstShift, err = s.shifts.FindOpenByRegisterTx(tx, dst.ID); err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return ErrDestinationShiftNotOpen
				}
				return err
			}
		}
		if err := s.lockShifts(tx, srcShift, dstShift); err != nil {
			return err
		}

		srcMovs, err := s.movements.ListByShiftTx(tx, srcShift.ID)
		if err != nil {
			return err
		}
		available := ledger.Balance(srcShift.OpeningAmount, srcMovs)
		if in.Amount.GreaterThan(available) {
			return &InsufficientFundsError{Available: available, Requested: in.Amount}
		}

		transferID := uuid.New()
		now := s.opts.Now().UTC()
		concept := transferConcept(kind, in.Concept)

		srcLeg := model.LegSource
		if kind == TransferFinal {
			srcLeg = model.LegFinal
		}
		out := &model.CashMovement{
			ShiftID:       srcShift.ID,
			Kind:          model.MovementWithdrawal,
			Amount:        in.Amount,
			PaymentMethod: model.PaymentCash,
			Concept:       concept,
			ActorID:       in.ActorID,
			CreatedAt:     now,
			RequestID:     requestID,
			TransferID:    &transferID,
			TransferLeg:   &srcLeg,
		}
		if err := s.movements.CreateTx(tx, out); err != nil {
			return err
		}
		result = &TransferResult{
			TransferID:    transferID,
			Kind:          kind,
			Amount:        in.Amount,
			Source:        out,
			SourceBalance: available.Sub(in.Amount),
		}
		if dstShift == nil {
			return nil
		}

		dstLeg := model.LegDestination
		dep := &model.CashMovement{
			ShiftID:       dstShift.ID,
			Kind:          model.MovementDeposit,
			Amount:        in.Amount,
			PaymentMethod: model.PaymentCash,
			Concept:       concept,
			ActorID:       in.ActorID,
			CreatedAt:     now,
			TransferID:    &transferID,
			TransferLeg:   &dstLeg,
		}
		if err := s.movements.CreateTx(tx, dep); err != nil {
			return err
		}
		dstMovs, err := s.movements.ListByShiftTx(tx, dstShift.ID)
		if err != nil {
			return err
		}
		dstBal := ledger.Balance(dstShift.OpeningAmount, dstMovs)
		result.Destination = dep
		result.DestinationBalance = &dstBal
		return nil
	})
	if errors.Is(err, repository.ErrDuplicate) && requestID != nil {
		return s.replayOutsideTx(ctx, *requestID, in, kind)
	}
	if err != nil {
		return nil, err
	}

	if !result.Replayed {
		ev := log.Info().
			Str("transfer_id", result.TransferID.String()).
			Str("kind", string(result.Kind)).
			Str("amount", result.Amount.StringFixed(2)).
			Str("source_register_id", src.ID.String())
		if dst != nil {
			ev = ev.Str("destination_register_id", dst.ID.String())
		}
		ev.Msg("transfer committed")
	}
	return result, nil
}

// lockShifts locks the involved shifts in id order so two opposite transfers
// cannot deadlock.
func (s *transferService) lockShifts(tx *gorm.DB, src, dst *model.CashRegisterShift) error {
	type target struct {
		id      uuid.UUID
		notOpen error
	}
	targets := []target{{src.ID, ErrShiftNotOpen}}
	if dst != nil {
		targets = append(targets, target{dst.ID, ErrDestinationShiftNotOpen})
		if dst.ID.String() < src.ID.String() {
			targets[0], targets[1] = targets[1], targets[0]
		}
	}
	for _, t := range targets {
		if err := lockOpenShift(tx, s.shifts, t.id, t.notOpen); err != nil {
			return err
		}
	}
	return nil
}

// replay rebuilds the result of an earlier transfer from its legs. The stored
// legs must describe the same transfer as in; otherwise the key was reused.
func (s *transferService) replay(tx *gorm.DB, prev *model.CashMovement, in TransferInput, kind TransferKind) (*TransferResult, error) {
	if prev.TransferID == nil || !prev.Amount.Equal(in.Amount) {
		return nil, ErrRequestIDConflict
	}
	legs, err := s.movements.ListByTransferTx(tx, *prev.TransferID)
	if err != nil {
		return nil, err
	}
	res := &TransferResult{TransferID: *prev.TransferID, Kind: kind, Amount: prev.Amount, Replayed: true}
	for i := range legs {
		leg := &legs[i]
		if leg.TransferLeg == nil {
			continue
		}
		switch *leg.TransferLeg {
		case model.LegSource, model.LegFinal:
			res.Source = leg
		case model.LegDestination:
			res.Destination = leg
		}
	}
	if res.Source == nil {
		return nil, fmt.Errorf("transfer %s has no source leg", prev.TransferID)
	}
	if (res.Destination == nil) != (in.DestinationRegisterID == nil) {
		return nil, ErrRequestIDConflict
	}

	srcShift, err := s.shifts.FindByIDTx(tx, res.Source.ShiftID)
	if err != nil {
		return nil, shiftLookupErr(err)
	}
	if srcShift.RegisterID != in.SourceRegisterID {
		return nil, ErrRequestIDConflict
	}
	bal, err := s.balanceTx(tx, srcShift)
	if err != nil {
		return nil, err
	}
	res.SourceBalance = bal

	if res.Destination != nil {
		dstShift, err := s.shifts.FindByIDTx(tx, res.Destination.ShiftID)
		if err != nil {
			return nil, shiftLookupErr(err)
		}
		if dstShift.RegisterID != *in.DestinationRegisterID {
			return nil, ErrRequestIDConflict
		}
		dstBal, err := s.balanceTx(tx, dstShift)
		if err != nil {
			return nil, err
		}
		res.DestinationBalance = &dstBal
	}
	return res, nil
}

func (s *transferService) replayOutsideTx(ctx context.Context, requestID string, in TransferInput, kind TransferKind) (*TransferResult, error) {
	var res *TransferResult
	err := runTx(ctx, s.shifts.DB(), func(tx *gorm.DB) error {
		prev, err := s.movements.FindByRequestIDTx(tx, requestID)
		if err != nil {
			return err
		}
		res, err = s.replay(tx, prev, in, kind)
		return err
	})
	return res, err
}

func (s *transferService) balanceTx(tx *gorm.DB, shift *model.CashRegisterShift) (decimal.Decimal, error) {
	movs, err := s.movements.ListByShiftTx(tx, shift.ID)
	if err != nil {
		return decimal.Zero, err
	}
	return ledger.Balance(shift.OpeningAmount, movs), nil
}

func transferConcept(kind TransferKind, concept string) string {
	if c := conceptOrDefault(concept, ""); c != "" {
		return kind.Tag() + ": " + c
	}
	return kind.Tag()
}

func sortedIDs(ids []uuid.UUID) []uuid.UUID {
	if len(ids) == 2 && ids[1].String() < ids[0].String() {
		return []uuid.UUID{ids[1], ids[0]}
	}
	return ids
}
