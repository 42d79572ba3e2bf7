package repository

import (
	"context"
	"time"

	"restopos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ShiftRepository interface {
	// CreateShift returns ErrDuplicate when the register already has an open shift
	// (enforced by the partial unique index, not by a prior read).
	CreateShift(ctx context.Context, s *model.CashRegisterShift) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.CashRegisterShift, error)
	FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.CashRegisterShift, error)
	FindOpenByRegister(ctx context.Context, registerID uuid.UUID) (*model.CashRegisterShift, error)
	FindOpenByRegisterTx(tx *gorm.DB, registerID uuid.UUID) (*model.CashRegisterShift, error)
	ListByRegister(ctx context.Context, registerID uuid.UUID, from, to time.Time) ([]model.CashRegisterShift, error)
	ListOpenByBranch(ctx context.Context, branchID uuid.UUID) ([]model.CashRegisterShift, error)
	// LockOpenTx bumps the row version only while the shift is open. It returns
	// false when the shift is closed or missing. Inside a transaction this holds
	// the row lock until commit, serialising movement inserts against the close.
	LockOpenTx(tx *gorm.DB, id uuid.UUID) (bool, error)
	MarkClosedTx(tx *gorm.DB, s *model.CashRegisterShift) error
	DB() *gorm.DB // exposes the DB for transaction creation in service layer
}

type shiftRepo struct{ db *gorm.DB }

func NewShiftRepository(db *gorm.DB) ShiftRepository { return &shiftRepo{db: db} }

func (r *shiftRepo) DB() *gorm.DB { return r.db }

func (r *shiftRepo) CreateShift(ctx context.Context, s *model.CashRegisterShift) error {
	return translate(r.db.WithContext(ctx).Create(s).Error)
}

func (r *shiftRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.CashRegisterShift, error) {
	return r.FindByIDTx(r.db.WithContext(ctx), id)
}

func (r *shiftRepo) FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.CashRegisterShift, error) {
	var s model.CashRegisterShift
	if err := tx.Preload("Register").First(&s, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *shiftRepo) FindOpenByRegister(ctx context.Context, registerID uuid.UUID) (*model.CashRegisterShift, error) {
	return r.FindOpenByRegisterTx(r.db.WithContext(ctx), registerID)
}

func (r *shiftRepo) FindOpenByRegisterTx(tx *gorm.DB, registerID uuid.UUID) (*model.CashRegisterShift, error) {
	var s model.CashRegisterShift
	err := tx.Where("register_id = ? AND status = ?", registerID, model.ShiftOpen).First(&s).Error
	if err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *shiftRepo) ListByRegister(ctx context.Context, registerID uuid.UUID, from, to time.Time) ([]model.CashRegisterShift, error) {
	var shifts []model.CashRegisterShift
	err := r.db.WithContext(ctx).
		Where("register_id = ? AND opened_at >= ? AND opened_at < ?", registerID, from.UTC(), to.UTC()).
		Order("opened_at ASC").
		Find(&shifts).Error
	return shifts, err
}

func (r *shiftRepo) ListOpenByBranch(ctx context.Context, branchID uuid.UUID) ([]model.CashRegisterShift, error) {
	var shifts []model.CashRegisterShift
	err := r.db.WithContext(ctx).
		Where("branch_id = ? AND status = ?", branchID, model.ShiftOpen).
		Find(&shifts).Error
	return shifts, err
}

func (r *shiftRepo) LockOpenTx(tx *gorm.DB, id uuid.UUID) (bool, error) {
	res := tx.Model(&model.CashRegisterShift{}).
		Where("id = ? AND status = ?", id, model.ShiftOpen).
		UpdateColumn("version", gorm.Expr("version + 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *shiftRepo) MarkClosedTx(tx *gorm.DB, s *model.CashRegisterShift) error {
	res := tx.Model(&model.CashRegisterShift{}).
		Where("id = ? AND status = ?", s.ID, model.ShiftOpen).
		Updates(map[string]interface{}{
			"status":         model.ShiftClosed,
			"closed_by":      s.ClosedBy,
			"closed_at":      s.ClosedAt,
			"counted_amount": s.CountedAmount,
			"discrepancy":    s.Discrepancy,
			"notes":          s.Notes,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return ErrNotFound
	}
	s.Status = model.ShiftClosed
	return nil
}
