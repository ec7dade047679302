package services

import (
	"context"
	"log"
	"time"

	"github.com/designden/designden-api/config"
	"github.com/designden/designden-api/models"
	"gorm.io/gorm"
)

// The order lifecycle service applies workflow transitions. Every status
// write is conditional on the current status (and, for assignments, on
// the slot being empty) so concurrent writers lose with a typed error
// instead of silently overwriting each other.

// LoadOrder fetches an order with its line items, or a typed not-found
// error.
func LoadOrder(db *gorm.DB, orderID uint) (*models.Order, *ServiceError) {
	var order models.Order
	if err := db.Preload("Items").First(&order, orderID).Error; err != nil {
		return nil, newError(CodeOrderNotFound, "order not found")
	}
	return &order, nil
}

// reloadOrder returns the order with items and relations for responses.
func reloadOrder(db *gorm.DB, orderID uint) (*models.Order, *ServiceError) {
	var order models.Order
	err := db.Preload("Items").Preload("User").Preload("Designer").Preload("DeliveryPerson").
		First(&order, orderID).Error
	if err != nil {
		return nil, newError(CodeOrderNotFound, "order not found")
	}
	return &order, nil
}

// transitionStatus performs the guarded status write inside tx and
// appends the timeline entry. extra columns ride along in the same
// UPDATE.
func transitionStatus(tx *gorm.DB, order *models.Order, to models.OrderStatus, note string, actorID *uint, extra map[string]interface{}) *ServiceError {
	from := order.Status
	if !models.CanTransition(from, to) {
		return ErrInvalidTransition(string(from), string(to))
	}

	updates := map[string]interface{}{"status": to}
	for col, val := range extra {
		updates[col] = val
	}

	res := tx.Model(&models.Order{}).
		Where("id = ? AND status = ?", order.ID, from).
		Updates(updates)
	if res.Error != nil {
		return newError(CodeDatabase, "failed to update order status")
	}
	if res.RowsAffected == 0 {
		// Lost the race: someone moved the order first. Report the
		// transition against what the order looks like now.
		var current models.Order
		if err := tx.First(&current, order.ID).Error; err == nil {
			return ErrInvalidTransition(string(current.Status), string(to))
		}
		return ErrInvalidTransition(string(from), string(to))
	}

	entry := models.OrderTimelineEntry{
		OrderID: order.ID,
		Status:  to,
		Note:    note,
		ActorID: actorID,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return newError(CodeDatabase, "failed to append timeline entry")
	}

	order.Status = to
	return nil
}

// AdvanceToManager moves a freshly placed order from pending into the
// manager's queue. Called right after checkout.
func AdvanceToManager(db *gorm.DB, order *models.Order) *ServiceError {
	var svcErr *ServiceError
	err := db.Transaction(func(tx *gorm.DB) error {
		svcErr = transitionStatus(tx, order, models.StatusAssignedToManager, "order received", nil, nil)
		if svcErr != nil {
			return svcErr
		}
		return nil
	})
	if err != nil && svcErr == nil {
		svcErr = newError(CodeDatabase, "failed to advance order")
	}
	if svcErr != nil {
		return svcErr
	}
	notifyOrderEvent(order, "order received", 0)
	return nil
}

// AssignDesigner links an eligible designer onto a custom-design order
// and moves it to assigned_to_designer. First writer wins: the designer
// slot is part of the conditional write.
func AssignDesigner(db *gorm.DB, orderID, designerID uint, actor *models.User) (*models.Order, *ServiceError) {
	order, svcErr := LoadOrder(db, orderID)
	if svcErr != nil {
		return nil, svcErr
	}

	if !order.IsCustom() {
		return nil, ErrValidation("order has no custom design items")
	}
	if order.DesignerID != nil {
		return nil, ErrAlreadyAssigned("designer")
	}

	var designer models.User
	if err := db.First(&designer, designerID).Error; err != nil {
		return nil, newError(CodeUserNotFound, "designer not found")
	}
	if designer.Role != models.RoleDesigner {
		return nil, ErrRoleMismatch("selected user is not a designer")
	}
	if !designer.Approved {
		return nil, ErrValidation("designer is not approved")
	}
	if designer.AvailabilityStatus == models.AvailabilityNotAccepting {
		return nil, ErrValidation("designer is not accepting new orders")
	}

	if !models.CanTransition(order.Status, models.StatusAssignedToDesigner) {
		return nil, ErrInvalidTransition(string(order.Status), string(models.StatusAssignedToDesigner))
	}

	from := order.Status
	txErr := db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ? AND designer_id IS NULL", order.ID, from).
			Updates(map[string]interface{}{
				"status":      models.StatusAssignedToDesigner,
				"designer_id": designer.ID,
			})
		if res.Error != nil {
			return newError(CodeDatabase, "failed to assign designer")
		}
		if res.RowsAffected == 0 {
			// Either another manager got there first or the status moved.
			var current models.Order
			if err := tx.First(&current, order.ID).Error; err == nil && current.DesignerID != nil {
				return ErrAlreadyAssigned("designer")
			}
			return ErrInvalidTransition(string(from), string(models.StatusAssignedToDesigner))
		}

		entry := models.OrderTimelineEntry{
			OrderID: order.ID,
			Status:  models.StatusAssignedToDesigner,
			Note:    "assigned to designer " + designer.Name,
			ActorID: &actor.ID,
		}
		return tx.Create(&entry).Error
	})
	if txErr != nil {
		if svcErr, ok := txErr.(*ServiceError); ok {
			return nil, svcErr
		}
		return nil, newError(CodeDatabase, "failed to assign designer")
	}

	order.Status = models.StatusAssignedToDesigner
	order.DesignerID = &designer.ID
	notifyOrderEvent(order, "assigned to designer", actor.ID)
	return reloadOrder(db, order.ID)
}

// requireAssignedDesigner checks that the actor is the designer on the
// order.
func requireAssignedDesigner(order *models.Order, actor *models.User) *ServiceError {
	if actor.Role != models.RoleDesigner {
		return ErrRoleMismatch("only designers can perform this action")
	}
	if order.DesignerID == nil || *order.DesignerID != actor.ID {
		return ErrRoleMismatch("order is not assigned to you")
	}
	return nil
}

// AcceptOrder records the assigned designer's acceptance. Accepting an
// already-accepted order is a no-op: same state, no extra timeline entry.
func AcceptOrder(db *gorm.DB, orderID uint, actor *models.User) (*models.Order, *ServiceError) {
	order, svcErr := LoadOrder(db, orderID)
	if svcErr != nil {
		return nil, svcErr
	}
	if svcErr := requireAssignedDesigner(order, actor); svcErr != nil {
		return nil, svcErr
	}

	if order.Status == models.StatusDesignerAccepted {
		return reloadOrder(db, order.ID)
	}

	if svcErr := runTransition(db, order, models.StatusDesignerAccepted, "designer accepted the order", &actor.ID, nil); svcErr != nil {
		return nil, svcErr
	}
	notifyOrderEvent(order, "designer accepted", actor.ID)
	return reloadOrder(db, order.ID)
}

// StartProduction moves an accepted order into production with progress
// reset to zero.
func StartProduction(db *gorm.DB, orderID uint, actor *models.User) (*models.Order, *ServiceError) {
	order, svcErr := LoadOrder(db, orderID)
	if svcErr != nil {
		return nil, svcErr
	}
	if svcErr := requireAssignedDesigner(order, actor); svcErr != nil {
		return nil, svcErr
	}

	extra := map[string]interface{}{"progress_percentage": 0}
	if svcErr := runTransition(db, order, models.StatusInProduction, "production started", &actor.ID, extra); svcErr != nil {
		return nil, svcErr
	}
	notifyOrderEvent(order, "production started", actor.ID)
	return reloadOrder(db, order.ID)
}

// UpdateProgress records an in-production progress report. Progress is
// monotonically non-decreasing within a production span; each call
// appends a timeline entry but the status does not change.
func UpdateProgress(db *gorm.DB, orderID uint, actor *models.User, progress int, note string) (*models.Order, *ServiceError) {
	if progress < 0 || progress > 100 {
		return nil, ErrValidation("progress_percentage must be between 0 and 100")
	}

	order, svcErr := LoadOrder(db, orderID)
	if svcErr != nil {
		return nil, svcErr
	}
	if svcErr := requireAssignedDesigner(order, actor); svcErr != nil {
		return nil, svcErr
	}
	if order.Status != models.StatusInProduction {
		return nil, ErrInvalidTransition(string(order.Status), string(models.StatusInProduction))
	}
	if progress < order.ProgressPercentage {
		return nil, ErrValidation("progress_percentage cannot decrease")
	}

	txErr := db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ? AND progress_percentage <= ?",
				order.ID, models.StatusInProduction, progress).
			Update("progress_percentage", progress)
		if res.Error != nil {
			return newError(CodeDatabase, "failed to update progress")
		}
		if res.RowsAffected == 0 {
			return ErrValidation("progress update conflicts with the order's current state")
		}

		entry := models.OrderTimelineEntry{
			OrderID:  order.ID,
			Status:   models.StatusInProduction,
			Note:     note,
			Progress: &progress,
			ActorID:  &actor.ID,
		}
		return tx.Create(&entry).Error
	})
	if txErr != nil {
		if svcErr, ok := txErr.(*ServiceError); ok {
			return nil, svcErr
		}
		return nil, newError(CodeDatabase, "failed to update progress")
	}

	order.ProgressPercentage = progress
	notifyOrderEvent(order, note, actor.ID)
	return reloadOrder(db, order.ID)
}

// CompleteProduction finishes production once progress has reached 100
// and credits the designer's commission.
func CompleteProduction(db *gorm.DB, orderID uint, actor *models.User) (*models.Order, *ServiceError) {
	order, svcErr := LoadOrder(db, orderID)
	if svcErr != nil {
		return nil, svcErr
	}
	if svcErr := requireAssignedDesigner(order, actor); svcErr != nil {
		return nil, svcErr
	}
	if order.Status == models.StatusInProduction && order.ProgressPercentage < 100 {
		return nil, ErrValidation("production is not finished, progress must reach 100")
	}

	txErr := db.Transaction(func(tx *gorm.DB) error {
		if svcErr := transitionStatus(tx, order, models.StatusProductionCompleted, "production completed", &actor.ID, nil); svcErr != nil {
			return svcErr
		}
		if _, svcErr := CreateEarning(tx, order); svcErr != nil {
			return svcErr
		}
		return nil
	})
	if txErr != nil {
		if svcErr, ok := txErr.(*ServiceError); ok {
			return nil, svcErr
		}
		return nil, newError(CodeDatabase, "failed to complete production")
	}

	notifyOrderEvent(order, "production completed", actor.ID)
	return reloadOrder(db, order.ID)
}

// AssignDelivery links a delivery person, generates the handoff OTP, and
// moves the order to ready_for_delivery. Custom orders must have passed
// through production first; ready-made orders come straight from the
// manager's queue.
func AssignDelivery(db *gorm.DB, orderID, deliveryPersonID uint, actor *models.User) (*models.Order, *ServiceError) {
	order, svcErr := LoadOrder(db, orderID)
	if svcErr != nil {
		return nil, svcErr
	}

	if order.DeliveryPersonID != nil {
		return nil, ErrAlreadyAssigned("delivery person")
	}
	if order.IsCustom() && order.Status == models.StatusAssignedToManager {
		return nil, ErrInvalidTransition(string(order.Status), string(models.StatusReadyForDelivery))
	}
	if !models.CanTransition(order.Status, models.StatusReadyForDelivery) {
		return nil, ErrInvalidTransition(string(order.Status), string(models.StatusReadyForDelivery))
	}

	var person models.User
	if err := db.First(&person, deliveryPersonID).Error; err != nil {
		return nil, newError(CodeUserNotFound, "delivery person not found")
	}
	if person.Role != models.RoleDelivery {
		return nil, ErrRoleMismatch("selected user is not delivery personnel")
	}

	otp, err := GenerateCode()
	if err != nil {
		return nil, newError(CodeDatabase, "failed to generate delivery code")
	}

	from := order.Status
	txErr := db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ? AND delivery_person_id IS NULL", order.ID, from).
			Updates(map[string]interface{}{
				"status":             models.StatusReadyForDelivery,
				"delivery_person_id": person.ID,
				"otp":                otp,
			})
		if res.Error != nil {
			return newError(CodeDatabase, "failed to assign delivery person")
		}
		if res.RowsAffected == 0 {
			var current models.Order
			if err := tx.First(&current, order.ID).Error; err == nil && current.DeliveryPersonID != nil {
				return ErrAlreadyAssigned("delivery person")
			}
			return ErrInvalidTransition(string(from), string(models.StatusReadyForDelivery))
		}

		entry := models.OrderTimelineEntry{
			OrderID: order.ID,
			Status:  models.StatusReadyForDelivery,
			Note:    "assigned to delivery person " + person.Name,
			ActorID: &actor.ID,
		}
		return tx.Create(&entry).Error
	})
	if txErr != nil {
		if svcErr, ok := txErr.(*ServiceError); ok {
			return nil, svcErr
		}
		return nil, newError(CodeDatabase, "failed to assign delivery person")
	}

	order.Status = models.StatusReadyForDelivery
	order.DeliveryPersonID = &person.ID

	// Side effects after the committed write: a Redis copy of the OTP and
	// the customer email are both best-effort.
	if store := GetCodeStore(); store != nil {
		ttl := time.Duration(config.GetConfig().VerificationTTLMin) * time.Minute
		// Delivery codes live until handoff, not the short login TTL.
		if ttl < 24*time.Hour {
			ttl = 7 * 24 * time.Hour
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := store.Put(ctx, order.UserID, PurposeDelivery, otp, ttl); err != nil {
			log.Printf("warning: failed to store delivery code for order %s: %v", order.OrderNumber, err)
		}
		cancel()
	}

	var customer models.User
	if err := db.First(&customer, order.UserID).Error; err == nil {
		mailErr := SendDeliveryOTP(customer.Email, DeliveryOTPData{
			CustomerName: customer.Name,
			OrderNumber:  order.OrderNumber,
			Code:         otp,
		})
		if mailErr != nil {
			log.Printf("warning: failed to email delivery code for order %s: %v", order.OrderNumber, mailErr)
		}
	}

	notifyOrderEvent(order, "ready for delivery", actor.ID)
	return reloadOrder(db, order.ID)
}

// requireAssignedDelivery checks that the actor is the delivery person on
// the order.
func requireAssignedDelivery(order *models.Order, actor *models.User) *ServiceError {
	if actor.Role != models.RoleDelivery {
		return ErrRoleMismatch("only delivery personnel can perform this action")
	}
	if order.DeliveryPersonID == nil || *order.DeliveryPersonID != actor.ID {
		return ErrRoleMismatch("order is not assigned to you")
	}
	return nil
}

// MarkOutForDelivery records that the assigned delivery person has picked
// up the order.
func MarkOutForDelivery(db *gorm.DB, orderID uint, actor *models.User, trackingNumber string) (*models.Order, *ServiceError) {
	order, svcErr := LoadOrder(db, orderID)
	if svcErr != nil {
		return nil, svcErr
	}
	if svcErr := requireAssignedDelivery(order, actor); svcErr != nil {
		return nil, svcErr
	}

	var extra map[string]interface{}
	if trackingNumber != "" {
		extra = map[string]interface{}{"tracking_number": trackingNumber}
	}
	if svcErr := runTransition(db, order, models.StatusOutForDelivery, "out for delivery", &actor.ID, extra); svcErr != nil {
		return nil, svcErr
	}
	notifyOrderEvent(order, "out for delivery", actor.ID)
	return reloadOrder(db, order.ID)
}

// DeliverOrder completes fulfillment. The submitted OTP must match the
// order's stored code; a mismatch leaves the status untouched.
func DeliverOrder(db *gorm.DB, orderID uint, actor *models.User, otp string) (*models.Order, *ServiceError) {
	order, svcErr := LoadOrder(db, orderID)
	if svcErr != nil {
		return nil, svcErr
	}
	if svcErr := requireAssignedDelivery(order, actor); svcErr != nil {
		return nil, svcErr
	}
	if order.Status != models.StatusOutForDelivery {
		return nil, ErrInvalidTransition(string(order.Status), string(models.StatusDelivered))
	}
	if order.OTP == nil || otp == "" || *order.OTP != otp {
		return nil, newError(CodeOTPInvalid, "delivery code does not match")
	}

	now := time.Now().UTC()
	extra := map[string]interface{}{
		"delivered_at":   now,
		"payment_status": models.PaymentPaid,
	}
	if svcErr := runTransition(db, order, models.StatusDelivered, "delivered", &actor.ID, extra); svcErr != nil {
		return nil, svcErr
	}

	// The stored code is spent.
	if store := GetCodeStore(); store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := store.Delete(ctx, order.UserID, PurposeDelivery); err != nil {
			log.Printf("warning: failed to clear delivery code for order %s: %v", order.OrderNumber, err)
		}
		cancel()
	}

	notifyOrderEvent(order, "delivered", actor.ID)
	return reloadOrder(db, order.ID)
}

// CancelOrder aborts a non-delivered order. If the designer has already
// been credited for it, the earning is put on hold rather than deleted.
func CancelOrder(db *gorm.DB, orderID uint, actor *models.User, reason string) (*models.Order, *ServiceError) {
	order, svcErr := LoadOrder(db, orderID)
	if svcErr != nil {
		return nil, svcErr
	}
	if actor.Role != models.RoleManager && actor.Role != models.RoleAdmin {
		return nil, ErrRoleMismatch("only managers and admins can cancel orders")
	}

	note := "order cancelled"
	if reason != "" {
		note = "order cancelled: " + reason
	}

	txErr := db.Transaction(func(tx *gorm.DB) error {
		extra := map[string]interface{}{}
		if reason != "" {
			extra["cancel_reason"] = reason
		}
		if svcErr := transitionStatus(tx, order, models.StatusCancelled, note, &actor.ID, extra); svcErr != nil {
			return svcErr
		}

		// Unsettled commission for a cancelled order goes on hold so the
		// payout decision is explicit instead of implied.
		err := tx.Model(&models.Earning{}).
			Where("order_id = ? AND status IN ?", order.ID,
				[]string{models.EarningPending, models.EarningProcessing}).
			Update("status", models.EarningOnHold).Error
		return err
	})
	if txErr != nil {
		if svcErr, ok := txErr.(*ServiceError); ok {
			return nil, svcErr
		}
		return nil, newError(CodeDatabase, "failed to cancel order")
	}

	notifyOrderEvent(order, note, actor.ID)
	return reloadOrder(db, order.ID)
}

// OverrideStatus is the admin escape hatch. It still validates adjacency
// and refuses transitions that carry required side conditions (designer
// or delivery assignment, OTP handoff), which must go through their
// dedicated endpoints.
func OverrideStatus(db *gorm.DB, orderID uint, target models.OrderStatus, actor *models.User) (*models.Order, *ServiceError) {
	if !target.IsValid() {
		return nil, ErrValidation("unknown status " + string(target))
	}

	order, svcErr := LoadOrder(db, orderID)
	if svcErr != nil {
		return nil, svcErr
	}

	switch target {
	case models.StatusAssignedToDesigner:
		return nil, ErrValidation("use the designer assignment endpoint to set assigned_to_designer")
	case models.StatusReadyForDelivery:
		return nil, ErrValidation("use the delivery assignment endpoint to set ready_for_delivery")
	case models.StatusDelivered:
		return nil, ErrValidation("delivery completion requires the OTP endpoint")
	case models.StatusCancelled:
		return CancelOrder(db, orderID, actor, "")
	case models.StatusProductionCompleted:
		if order.Status == models.StatusInProduction && order.ProgressPercentage < 100 {
			return nil, ErrValidation("production is not finished, progress must reach 100")
		}
		txErr := db.Transaction(func(tx *gorm.DB) error {
			if svcErr := transitionStatus(tx, order, target, "status set by admin", &actor.ID, nil); svcErr != nil {
				return svcErr
			}
			if _, svcErr := CreateEarning(tx, order); svcErr != nil {
				return svcErr
			}
			return nil
		})
		if txErr != nil {
			if svcErr, ok := txErr.(*ServiceError); ok {
				return nil, svcErr
			}
			return nil, newError(CodeDatabase, "failed to update order status")
		}
	case models.StatusInProduction:
		extra := map[string]interface{}{"progress_percentage": 0}
		if svcErr := runTransition(db, order, target, "status set by admin", &actor.ID, extra); svcErr != nil {
			return nil, svcErr
		}
	default:
		if svcErr := runTransition(db, order, target, "status set by admin", &actor.ID, nil); svcErr != nil {
			return nil, svcErr
		}
	}

	notifyOrderEvent(order, "status set by admin", actor.ID)
	return reloadOrder(db, order.ID)
}

// runTransition wraps transitionStatus in a transaction for operations
// with no extra writes beyond status and timeline.
func runTransition(db *gorm.DB, order *models.Order, to models.OrderStatus, note string, actorID *uint, extra map[string]interface{}) *ServiceError {
	txErr := db.Transaction(func(tx *gorm.DB) error {
		if svcErr := transitionStatus(tx, order, to, note, actorID, extra); svcErr != nil {
			return svcErr
		}
		return nil
	})
	if txErr != nil {
		if svcErr, ok := txErr.(*ServiceError); ok {
			return svcErr
		}
		return newError(CodeDatabase, "failed to update order status")
	}
	return nil
}
