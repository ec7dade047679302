package services

import (
	"strings"
	"time"

	"github.com/designden/designden-api/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Checkout turns the customer's cart into a pending order. Prices are
// resolved server-side, stock is decremented with a guarded update so
// concurrent checkouts cannot oversell, and the cart is cleared. The
// order is then advanced into the manager's queue.
func Checkout(db *gorm.DB, customer *models.User, deliveryDate *time.Time, timeSlot string) (*models.Order, *ServiceError) {
	if customer.Role != models.RoleCustomer {
		return nil, ErrRoleMismatch("only customers can place orders")
	}

	var cart models.Cart
	if err := db.Preload("Items").Where("user_id = ?", customer.ID).First(&cart).Error; err != nil {
		return nil, ErrValidation("cart is empty")
	}
	if len(cart.Items) == 0 {
		return nil, ErrValidation("cart is empty")
	}

	var order models.Order
	txErr := db.Transaction(func(tx *gorm.DB) error {
		total := decimal.Zero
		orderItems := make([]models.OrderItem, 0, len(cart.Items))

		for _, item := range cart.Items {
			switch {
			case item.ProductID != nil:
				var product models.Product
				if err := tx.First(&product, *item.ProductID).Error; err != nil {
					return newError(CodeProductNotFound, "product in cart no longer exists")
				}

				// Guarded decrement: fails atomically when stock is short.
				res := tx.Model(&models.Product{}).
					Where("id = ? AND stock_quantity >= ?", product.ID, item.Quantity).
					Update("stock_quantity", gorm.Expr("stock_quantity - ?", item.Quantity))
				if res.Error != nil {
					return newError(CodeDatabase, "failed to reserve stock")
				}
				if res.RowsAffected == 0 {
					return newError(CodeInsufficientStock, "insufficient stock for "+product.Name)
				}
				if err := tx.Model(&models.Product{}).
					Where("id = ? AND stock_quantity = 0", product.ID).
					Update("in_stock", false).Error; err != nil {
					return newError(CodeDatabase, "failed to update stock flag")
				}

				line := lineTotal(product.Price, item.Quantity)
				total = total.Add(line)
				orderItems = append(orderItems, models.OrderItem{
					ProductID: item.ProductID,
					Name:      product.Name,
					UnitPrice: product.Price,
					Quantity:  item.Quantity,
					LineTotal: line.InexactFloat64(),
					Size:      item.Size,
					Color:     item.Color,
				})

			case item.DesignID != nil:
				var design models.Design
				if err := tx.First(&design, *item.DesignID).Error; err != nil {
					return newError(CodeDesignNotFound, "design in cart no longer exists")
				}
				if !design.Published {
					return ErrValidation("design " + design.Title + " is not available")
				}

				line := lineTotal(design.Price, item.Quantity)
				total = total.Add(line)
				orderItems = append(orderItems, models.OrderItem{
					DesignID:  item.DesignID,
					Name:      design.Title,
					UnitPrice: design.Price,
					Quantity:  item.Quantity,
					LineTotal: line.InexactFloat64(),
					Size:      item.Size,
					Color:     item.Color,
				})

			default:
				return ErrValidation("cart item references neither a product nor a design")
			}
		}

		order = models.Order{
			OrderNumber:      newOrderNumber(),
			UserID:           customer.ID,
			Status:           models.StatusPending,
			TotalAmount:      total.Round(2).InexactFloat64(),
			Items:            orderItems,
			DeliveryDate:     deliveryDate,
			DeliveryTimeSlot: timeSlot,
			PaymentStatus:    models.PaymentPending,
		}
		if err := tx.Create(&order).Error; err != nil {
			return newError(CodeDatabase, "failed to create order")
		}

		entry := models.OrderTimelineEntry{
			OrderID: order.ID,
			Status:  models.StatusPending,
			Note:    "order placed",
			ActorID: &customer.ID,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return newError(CodeDatabase, "failed to record order placement")
		}

		// Cart is cleared, never archived.
		if err := tx.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error; err != nil {
			return newError(CodeDatabase, "failed to clear cart")
		}
		return nil
	})
	if txErr != nil {
		if svcErr, ok := txErr.(*ServiceError); ok {
			return nil, svcErr
		}
		return nil, newError(CodeDatabase, "checkout failed")
	}

	// Administrative step: new orders go straight to the manager queue.
	if svcErr := AdvanceToManager(db, &order); svcErr != nil {
		return nil, svcErr
	}
	return reloadOrder(db, order.ID)
}

func lineTotal(unitPrice float64, quantity int) decimal.Decimal {
	return decimal.NewFromFloat(unitPrice).
		Mul(decimal.NewFromInt(int64(quantity))).
		Round(2)
}

func newOrderNumber() string {
	return "DD-" + strings.ToUpper(uuid.NewString()[:8])
}
