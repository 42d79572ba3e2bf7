package repository

import (
	"context"

	"restopos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DiscrepancyRepository stores the close-time discrepancy facts. Insert-only.
type DiscrepancyRepository interface {
	CreateTx(tx *gorm.DB, d *model.DiscrepancyRecord) error
	FindByShift(ctx context.Context, shiftID uuid.UUID) (*model.DiscrepancyRecord, error)
	// ListByUser returns every record of a cashier, optionally restricted to one branch.
	ListByUser(ctx context.Context, userID uuid.UUID, branchID *uuid.UUID) ([]model.DiscrepancyRecord, error)
	// ListByBranch filters on shift_date (operational-day keys, inclusive).
	ListByBranch(ctx context.Context, branchID uuid.UUID, fromKey, toKey string) ([]model.DiscrepancyRecord, error)
}

type discrepancyRepo struct{ db *gorm.DB }

func NewDiscrepancyRepository(db *gorm.DB) DiscrepancyRepository { return &discrepancyRepo{db: db} }

func (r *discrepancyRepo) CreateTx(tx *gorm.DB, d *model.DiscrepancyRecord) error {
	return translate(tx.Create(d).Error)
}

func (r *discrepancyRepo) FindByShift(ctx context.Context, shiftID uuid.UUID) (*model.DiscrepancyRecord, error) {
	var d model.DiscrepancyRecord
	if err := r.db.WithContext(ctx).First(&d, "shift_id = ?", shiftID).Error; err != nil {
		return nil, translate(err)
	}
	return &d, nil
}

func (r *discrepancyRepo) ListByUser(ctx context.Context, userID uuid.UUID, branchID *uuid.UUID) ([]model.DiscrepancyRecord, error) {
	var recs []model.DiscrepancyRecord
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if branchID != nil {
		q = q.Where("branch_id = ?", *branchID)
	}
	err := q.Order("shift_date ASC").Find(&recs).Error
	return recs, err
}

func (r *discrepancyRepo) ListByBranch(ctx context.Context, branchID uuid.UUID, fromKey, toKey string) ([]model.DiscrepancyRecord, error) {
	var recs []model.DiscrepancyRecord
	// shift_date keys are YYYY-MM-DD, so string order is date order.
	err := r.db.WithContext(ctx).
		Where("branch_id = ? AND shift_date >= ? AND shift_date <= ?", branchID, fromKey, toKey).
		Order("shift_date ASC").
		Find(&recs).Error
	return recs, err
}
