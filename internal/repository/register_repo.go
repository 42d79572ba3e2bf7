package repository

import (
	"context"

	"restopos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RegisterRepository is read-only: the register catalog belongs to branch configuration.
type RegisterRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.CashRegister, error)
	ListByBranch(ctx context.Context, branchID uuid.UUID, activeOnly bool) ([]model.CashRegister, error)
}

type registerRepo struct{ db *gorm.DB }

func NewRegisterRepository(db *gorm.DB) RegisterRepository { return &registerRepo{db: db} }

func (r *registerRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.CashRegister, error) {
	var reg model.CashRegister
	if err := r.db.WithContext(ctx).First(&reg, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &reg, nil
}

func (r *registerRepo) ListByBranch(ctx context.Context, branchID uuid.UUID, activeOnly bool) ([]model.CashRegister, error) {
	var regs []model.CashRegister
	q := r.db.WithContext(ctx).Where("branch_id = ?", branchID)
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	err := q.Order("display_order ASC").Order("name ASC").Find(&regs).Error
	return regs, err
}
