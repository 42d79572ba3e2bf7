package repository

import (
	"context"

	"restopos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MovementRepository is append-only: there is deliberately no Update or Delete.
type MovementRepository interface {
	CreateTx(tx *gorm.DB, m *model.CashMovement) error
	ListByShift(ctx context.Context, shiftID uuid.UUID) ([]model.CashMovement, error)
	ListByShiftTx(tx *gorm.DB, shiftID uuid.UUID) ([]model.CashMovement, error)
	FindByRequestIDTx(tx *gorm.DB, requestID string) (*model.CashMovement, error)
	ListByTransferTx(tx *gorm.DB, transferID uuid.UUID) ([]model.CashMovement, error)
}

type movementRepo struct{ db *gorm.DB }

func NewMovementRepository(db *gorm.DB) MovementRepository { return &movementRepo{db: db} }

func (r *movementRepo) CreateTx(tx *gorm.DB, m *model.CashMovement) error {
	return translate(tx.Create(m).Error)
}

func (r *movementRepo) ListByShift(ctx context.Context, shiftID uuid.UUID) ([]model.CashMovement, error) {
	return r.ListByShiftTx(r.db.WithContext(ctx), shiftID)
}

func (r *movementRepo) ListByShiftTx(tx *gorm.DB, shiftID uuid.UUID) ([]model.CashMovement, error) {
	var movs []model.CashMovement
	err := tx.Where("shift_id = ?", shiftID).Order("created_at ASC").Order("id ASC").Find(&movs).Error
	return movs, err
}

func (r *movementRepo) FindByRequestIDTx(tx *gorm.DB, requestID string) (*model.CashMovement, error) {
	var m model.CashMovement
	if err := tx.Where("request_id = ?", requestID).First(&m).Error; err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

func (r *movementRepo) ListByTransferTx(tx *gorm.DB, transferID uuid.UUID) ([]model.CashMovement, error) {
	var movs []model.CashMovement
	err := tx.Where("transfer_id = ?", transferID).Order("created_at ASC").Find(&movs).Error
	return movs, err
}
