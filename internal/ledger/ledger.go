// Package ledger computes till balances from the append-only movement log.
// Balances are always a full summation of the log, never a maintained counter.
package ledger

import (
	"restopos/internal/model"

	"github.com/shopspring/decimal"
)

// Sign returns +1 for movements that add cash to the till and -1 for those that remove it.
func Sign(kind model.MovementKind) int64 {
	switch kind {
	case model.MovementIncome, model.MovementDeposit:
		return 1
	case model.MovementExpense, model.MovementWithdrawal:
		return -1
	default:
		return 0
	}
}

// Balance returns opening + Σincome + Σdeposit − Σexpense − Σwithdrawal over
// cash-settled movements. Card and QR entries are audit-only and excluded.
func Balance(opening decimal.Decimal, movements []model.CashMovement) decimal.Decimal {
	total := opening
	for _, m := range movements {
		if m.PaymentMethod != model.PaymentCash {
			continue
		}
		total = total.Add(m.Amount.Mul(decimal.NewFromInt(Sign(m.Kind))))
	}
	return total
}

// Totals is the signed net per payment method (opening not included).
type Totals map[model.PaymentMethod]decimal.Decimal

// NetByMethod groups the signed movement amounts by payment method.
func NetByMethod(movements []model.CashMovement) Totals {
	totals := Totals{
		model.PaymentCash: decimal.Zero,
		model.PaymentCard: decimal.Zero,
		model.PaymentQR:   decimal.Zero,
	}
	for _, m := range movements {
		totals[m.PaymentMethod] = totals[m.PaymentMethod].Add(m.Amount.Mul(decimal.NewFromInt(Sign(m.Kind))))
	}
	return totals
}
