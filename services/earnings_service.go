package services

import (
	"fmt"
	"time"

	"github.com/designden/designden-api/config"
	"github.com/designden/designden-api/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CreateEarning records the designer's commission for a completed order.
// The rate is tiered by the designer's cumulative lifetime earnings at
// the time of completion; the amount is computed in decimal and rounded
// to 2 places.
func CreateEarning(tx *gorm.DB, order *models.Order) (*models.Earning, *ServiceError) {
	if order.DesignerID == nil {
		return nil, ErrValidation("order has no assigned designer")
	}

	lifetime, err := LifetimeEarnings(tx, *order.DesignerID)
	if err != nil {
		return nil, newError(CodeDatabase, "failed to compute lifetime earnings")
	}

	rate := config.GetConfig().CommissionRateFor(lifetime)
	amount := decimal.NewFromFloat(order.TotalAmount).
		Mul(decimal.NewFromFloat(rate)).
		Div(decimal.NewFromInt(100)).
		Round(2)

	earning := models.Earning{
		OrderID:         order.ID,
		DesignerID:      *order.DesignerID,
		OrderAmount:     order.TotalAmount,
		CommissionRate:  rate,
		DesignerEarning: amount.InexactFloat64(),
		Status:          models.EarningPending,
	}
	if err := tx.Create(&earning).Error; err != nil {
		return nil, newError(CodeDatabase, "failed to create earning record")
	}
	return &earning, nil
}

// LifetimeEarnings returns the sum of all commission ever credited to a
// designer, the basis for tier selection.
func LifetimeEarnings(db *gorm.DB, designerID uint) (float64, error) {
	var total float64
	err := db.Model(&models.Earning{}).
		Where("designer_id = ?", designerID).
		Select("COALESCE(SUM(designer_earning), 0)").
		Scan(&total).Error
	return total, err
}

// AvailableBalance derives the amount a designer can withdraw right now:
// earnings in pending/processing whose order was delivered at least the
// holding period ago, minus amounts tied up in non-rejected payout
// requests. Earnings already settled against completed payouts offset
// that subtraction, so a completed request stops reducing the balance
// once its earnings are marked paid.
func AvailableBalance(db *gorm.DB, designerID uint, now time.Time) (float64, *ServiceError) {
	holdDays := config.GetConfig().EarningsHoldDays
	cutoff := now.AddDate(0, 0, -holdDays)

	var payable float64
	err := db.Model(&models.Earning{}).
		Joins("JOIN orders ON orders.id = earnings.order_id").
		Where("earnings.designer_id = ?", designerID).
		Where("earnings.status IN ?", []string{models.EarningPending, models.EarningProcessing}).
		Where("orders.delivered_at IS NOT NULL AND orders.delivered_at <= ?", cutoff).
		Select("COALESCE(SUM(earnings.designer_earning), 0)").
		Scan(&payable).Error
	if err != nil {
		return 0, newError(CodeDatabase, "failed to compute payable earnings")
	}

	var requested float64
	err = db.Model(&models.PayoutRequest{}).
		Where("designer_id = ? AND status <> ?", designerID, models.PayoutRejected).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&requested).Error
	if err != nil {
		return 0, newError(CodeDatabase, "failed to compute requested payouts")
	}

	settled, err := settledEarnings(db, designerID)
	if err != nil {
		return 0, newError(CodeDatabase, "failed to compute settled earnings")
	}

	balance := decimal.NewFromFloat(payable).
		Sub(decimal.NewFromFloat(requested)).
		Add(decimal.NewFromFloat(settled)).
		Round(2)
	return balance.InexactFloat64(), nil
}

// settledEarnings sums the designer's earnings already marked paid,
// i.e. the portion of completed payouts matched to concrete earnings.
func settledEarnings(db *gorm.DB, designerID uint) (float64, error) {
	var settled float64
	err := db.Model(&models.Earning{}).
		Where("designer_id = ? AND status = ?", designerID, models.EarningPaid).
		Select("COALESCE(SUM(designer_earning), 0)").
		Scan(&settled).Error
	return settled, err
}

// RequestPayout creates a withdrawal request after checking the minimum
// threshold and the designer's available balance.
func RequestPayout(db *gorm.DB, designer *models.User, amount float64, method, details string) (*models.PayoutRequest, *ServiceError) {
	if designer.Role != models.RoleDesigner {
		return nil, ErrRoleMismatch("only designers can request payouts")
	}
	if method == "" {
		return nil, ErrValidation("payment_method is required")
	}

	minAmount := config.GetConfig().MinPayoutAmount
	if amount < minAmount {
		return nil, newError(CodeInsufficientBalance,
			fmt.Sprintf("payout amount must be at least %.2f", minAmount))
	}

	balance, svcErr := AvailableBalance(db, designer.ID, time.Now())
	if svcErr != nil {
		return nil, svcErr
	}
	if amount > balance {
		return nil, newError(CodeInsufficientBalance,
			fmt.Sprintf("payout amount %.2f exceeds available balance %.2f", amount, balance))
	}

	payout := models.PayoutRequest{
		DesignerID:     designer.ID,
		Amount:         amount,
		PaymentMethod:  method,
		PaymentDetails: details,
		Status:         models.PayoutPending,
	}
	if err := db.Create(&payout).Error; err != nil {
		return nil, newError(CodeDatabase, "failed to create payout request")
	}
	return &payout, nil
}

// payoutActions maps process actions onto target statuses
var payoutActions = map[string]string{
	"approve":  models.PayoutApproved,
	"reject":   models.PayoutRejected,
	"process":  models.PayoutProcessing,
	"complete": models.PayoutCompleted,
}

// ProcessPayout moves a payout request through its approval workflow.
// Completing stamps a transaction id and marks the designer's payable
// earnings paid.
func ProcessPayout(db *gorm.DB, payoutID uint, action, reason string) (*models.PayoutRequest, *ServiceError) {
	target, ok := payoutActions[action]
	if !ok {
		return nil, ErrValidation("action must be one of approve, reject, process, complete")
	}
	if target == models.PayoutRejected && reason == "" {
		return nil, ErrValidation("a reason is required when rejecting a payout request")
	}

	var payout models.PayoutRequest
	if err := db.First(&payout, payoutID).Error; err != nil {
		return nil, newError(CodeNotFound, "payout request not found")
	}

	if !models.CanTransitionPayout(payout.Status, target) {
		return nil, ErrInvalidTransition(payout.Status, target)
	}

	updates := map[string]interface{}{"status": target}
	if target == models.PayoutRejected {
		updates["rejection_reason"] = reason
	}
	if target == models.PayoutCompleted {
		updates["transaction_id"] = uuid.NewString()
	}

	txErr := db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.PayoutRequest{}).
			Where("id = ? AND status = ?", payout.ID, payout.Status).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInvalidTransition(payout.Status, target)
		}

		if target == models.PayoutCompleted {
			if err := markEarningsPaid(tx, payout.DesignerID, time.Now()); err != nil {
				return err
			}
		}
		return nil
	})
	if txErr != nil {
		if svcErr, ok := txErr.(*ServiceError); ok {
			return nil, svcErr
		}
		return nil, newError(CodeDatabase, "failed to process payout request")
	}

	if err := db.First(&payout, payout.ID).Error; err != nil {
		return nil, newError(CodeDatabase, "failed to reload payout request")
	}
	return &payout, nil
}

// markEarningsPaid settles the designer's payable earnings against the
// cash actually paid out. The settlement budget is the total of
// completed payouts not yet matched to paid earnings; payable earnings
// are consumed oldest delivery first, and an earning only flips to paid
// once the budget fully covers it. A partially covered earning stays
// payable, so the residual balance survives the payout.
func markEarningsPaid(tx *gorm.DB, designerID uint, now time.Time) error {
	var completed float64
	err := tx.Model(&models.PayoutRequest{}).
		Where("designer_id = ? AND status = ?", designerID, models.PayoutCompleted).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&completed).Error
	if err != nil {
		return err
	}

	settled, err := settledEarnings(tx, designerID)
	if err != nil {
		return err
	}

	budget := decimal.NewFromFloat(completed).Sub(decimal.NewFromFloat(settled))
	if !budget.IsPositive() {
		return nil
	}

	holdDays := config.GetConfig().EarningsHoldDays
	cutoff := now.AddDate(0, 0, -holdDays)

	var payable []models.Earning
	err = tx.Model(&models.Earning{}).
		Joins("JOIN orders ON orders.id = earnings.order_id").
		Where("earnings.designer_id = ?", designerID).
		Where("earnings.status IN ?", []string{models.EarningPending, models.EarningProcessing}).
		Where("orders.delivered_at IS NOT NULL AND orders.delivered_at <= ?", cutoff).
		Order("orders.delivered_at ASC").
		Find(&payable).Error
	if err != nil {
		return err
	}

	for _, earning := range payable {
		amount := decimal.NewFromFloat(earning.DesignerEarning)
		if amount.GreaterThan(budget) {
			break
		}
		err = tx.Model(&models.Earning{}).
			Where("id = ?", earning.ID).
			Update("status", models.EarningPaid).Error
		if err != nil {
			return err
		}
		budget = budget.Sub(amount)
	}
	return nil
}
