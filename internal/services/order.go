package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"math/rand"
	"regexp"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/mindymunchs/internal/models"
)

const orderNumberAttempts = 3

// PricingConfig holds the checkout pricing knobs.
type PricingConfig struct {
	ShippingFlatRate      float64
	FreeShippingThreshold float64
	TaxRate               float64
}

// OrderService owns the order lifecycle: creation from the cart,
// payment verification gating, the status state machine and analytics.
type OrderService struct {
	db      *gorm.DB
	gateway Gateway
	email   *EmailService
	pricing PricingConfig
}

// NewOrderService constructs an OrderService.
func NewOrderService(db *gorm.DB, gateway Gateway, email *EmailService, pricing PricingConfig) *OrderService {
	return &OrderService{db: db, gateway: gateway, email: email, pricing: pricing}
}

// PaymentConfirmation relays the gateway's signed callback values.
type PaymentConfirmation struct {
	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpaySignature string `json:"razorpay_signature"`
}

// CreateOrderInput carries everything checkout submits. The cart is
// read server-side from the authenticated user's cart.
type CreateOrderInput struct {
	ShippingAddress models.ShippingAddress `json:"shipping_address"`
	PaymentMethod   string                 `json:"payment_method"`
	Notes           string                 `json:"notes"`
	Payment         *PaymentConfirmation   `json:"payment"`
}

// PageRequest bounds list queries.
type PageRequest struct {
	Limit  int
	Offset int
}

// ListOrdersFilter narrows the admin order listing.
type ListOrdersFilter struct {
	Status string
	Search string
}

// OrderAnalytics aggregates order stats for the admin summary.
// Revenue counts orders whose payment_status is paid and that were not
// cancelled; this is the one canonical "counts as revenue" predicate.
type OrderAnalytics struct {
	TotalOrders    int64            `json:"total_orders"`
	PendingOrders  int64            `json:"pending_orders"`
	Revenue        float64          `json:"revenue"`
	TodayRevenue   float64          `json:"today_revenue"`
	OrdersByStatus map[string]int64 `json:"orders_by_status"`
}

// orderStatusFlow is the allowed transition set. delivered and
// cancelled are terminal.
var orderStatusFlow = map[models.OrderStatus][]models.OrderStatus{
	models.OrderStatusPending:    {models.OrderStatusConfirmed, models.OrderStatusCancelled},
	models.OrderStatusConfirmed:  {models.OrderStatusProcessing, models.OrderStatusCancelled},
	models.OrderStatusProcessing: {models.OrderStatusShipped, models.OrderStatusCancelled},
	models.OrderStatusShipped:    {models.OrderStatusDelivered},
	models.OrderStatusDelivered:  {},
	models.OrderStatusCancelled:  {},
}

func canTransition(from, to models.OrderStatus) bool {
	for _, next := range orderStatusFlow[from] {
		if next == to {
			return true
		}
	}
	return false
}

var phonePattern = regexp.MustCompile(`^\+?[0-9]{10,15}$`)
var zipPattern = regexp.MustCompile(`^[0-9]{6}$`)

func validateCreateInput(input CreateOrderInput) error {
	ve := &ValidationError{}
	addr := input.ShippingAddress

	// Length limits count runes, not bytes, so Devanagari and other
	// multi-byte addresses are measured the same as ASCII ones.
	if l := utf8.RuneCountInString(addr.Name); l < 2 || l > 50 {
		ve.add("shipping_address.name", "name must be between 2 and 50 characters")
	}
	if !phonePattern.MatchString(addr.Phone) {
		ve.add("shipping_address.phone", "please provide a valid phone number")
	}
	if l := utf8.RuneCountInString(addr.Street); l < 5 || l > 100 {
		ve.add("shipping_address.street", "street address must be between 5 and 100 characters")
	}
	if l := utf8.RuneCountInString(addr.City); l < 2 || l > 50 {
		ve.add("shipping_address.city", "city must be between 2 and 50 characters")
	}
	if l := utf8.RuneCountInString(addr.State); l < 2 || l > 50 {
		ve.add("shipping_address.state", "state must be between 2 and 50 characters")
	}
	if !zipPattern.MatchString(addr.ZipCode) {
		ve.add("shipping_address.zip_code", "ZIP code must be 6 digits")
	}
	if !models.ValidPaymentMethod(input.PaymentMethod) {
		ve.add("payment_method", "invalid payment method")
	}
	if utf8.RuneCountInString(input.Notes) > 500 {
		ve.add("notes", "notes cannot exceed 500 characters")
	}
	if input.PaymentMethod != models.PaymentMethodCOD && models.ValidPaymentMethod(input.PaymentMethod) {
		if input.Payment == nil ||
			input.Payment.RazorpayOrderID == "" ||
			input.Payment.RazorpayPaymentID == "" ||
			input.Payment.RazorpaySignature == "" {
			ve.add("payment", "payment confirmation is required for online payment methods")
		}
	}

	return ve.orNil()
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// computePricing derives the order totals from the snapshotted items so
// that total_amount always equals subtotal + shipping + tax - discount.
func (s *OrderService) computePricing(items []models.OrderItem) (subtotal, shipping, tax, discount, total float64) {
	for _, item := range items {
		subtotal += item.Price * float64(item.Quantity)
	}
	subtotal = round2(subtotal)

	shipping = s.pricing.ShippingFlatRate
	if subtotal >= s.pricing.FreeShippingThreshold {
		shipping = 0
	}

	tax = round2(subtotal * s.pricing.TaxRate)
	discount = 0
	total = round2(subtotal + shipping + tax - discount)
	return
}

// generateOrderNumber builds MM + 6 trailing digits of the current
// millisecond timestamp + 3 random digits. Collisions are possible and
// handled by retrying on the unique-index rejection.
func generateOrderNumber() string {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
	return fmt.Sprintf("MM%s%03d", ts[len(ts)-6:], rand.Intn(1000))
}

// Create places an order from the user's cart. Payment is verified
// before anything is persisted; stock decrement, order insert and cart
// clearing share one transaction.
func (s *OrderService) Create(ctx context.Context, userID uuid.UUID, input CreateOrderInput) (*models.Order, error) {
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "user"}
		}
		return nil, err
	}

	var cartItems []models.CartItem
	if err := s.db.WithContext(ctx).Preload("Product").
		Where("user_id = ?", userID).
		Order("created_at asc").
		Find(&cartItems).Error; err != nil {
		return nil, err
	}
	if len(cartItems) == 0 {
		return nil, &ValidationError{Fields: []FieldError{{Field: "cart", Message: "cart is empty"}}}
	}

	items := make([]models.OrderItem, 0, len(cartItems))
	for _, ci := range cartItems {
		if ci.Product == nil {
			return nil, &NotFoundError{Resource: "product"}
		}
		if !ci.Product.IsActive {
			return nil, &ValidationError{Fields: []FieldError{{
				Field:   "items",
				Message: fmt.Sprintf("product %q is no longer available", ci.Product.Name),
			}}}
		}
		productID := ci.ProductID
		items = append(items, models.OrderItem{
			ProductID: &productID,
			Name:      ci.Product.Name,
			Price:     ci.Product.Price,
			Quantity:  ci.Quantity,
			Image:     ci.Product.HeroImage(),
		})
	}

	paymentStatus := models.PaymentStatusPending
	var razorpayOrderID string
	var razorpayPaymentID *string

	if input.PaymentMethod != models.PaymentMethodCOD {
		p := input.Payment
		if !s.gateway.VerifySignature(p.RazorpayOrderID, p.RazorpayPaymentID, p.RazorpaySignature) {
			log.Printf("[Payment] signature mismatch for gateway order %s", p.RazorpayOrderID)
			return nil, &SignatureMismatchError{OrderRef: p.RazorpayOrderID}
		}

		var duplicates int64
		if err := s.db.WithContext(ctx).Model(&models.Order{}).
			Where("razorpay_payment_id = ?", p.RazorpayPaymentID).
			Count(&duplicates).Error; err != nil {
			return nil, err
		}
		if duplicates > 0 {
			return nil, &ConflictError{Reason: "payment has already been used for another order"}
		}

		paymentStatus = models.PaymentStatusPaid
		razorpayOrderID = p.RazorpayOrderID
		pid := p.RazorpayPaymentID
		razorpayPaymentID = &pid
	}

	now := time.Now()
	subtotal, shipping, tax, discount, total := s.computePricing(items)

	var created *models.Order
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		order := &models.Order{
			UserID:            userID,
			OrderNumber:       generateOrderNumber(),
			Items:             items,
			ShippingAddress:   input.ShippingAddress,
			PaymentMethod:     input.PaymentMethod,
			PaymentStatus:     paymentStatus,
			OrderStatus:       models.OrderStatusPending,
			Subtotal:          subtotal,
			ShippingCost:      shipping,
			Tax:               tax,
			Discount:          discount,
			TotalAmount:       total,
			RazorpayOrderID:   razorpayOrderID,
			RazorpayPaymentID: razorpayPaymentID,
			Notes:             input.Notes,
			StatusHistory: []models.OrderStatusEntry{{
				Status:    models.OrderStatusPending,
				Timestamp: now,
				Note:      "order placed",
			}},
		}
		if order.ShippingAddress.Country == "" {
			order.ShippingAddress.Country = "India"
		}

		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			for _, item := range items {
				res := tx.Model(&models.Product{}).
					Where("id = ? AND stock >= ?", item.ProductID, item.Quantity).
					UpdateColumn("stock", gorm.Expr("stock - ?", item.Quantity))
				if res.Error != nil {
					return res.Error
				}
				if res.RowsAffected == 0 {
					return &OutOfStockError{ProductName: item.Name}
				}
			}

			if err := tx.Create(order).Error; err != nil {
				return err
			}

			return tx.Where("user_id = ?", userID).Delete(&models.CartItem{}).Error
		})
		if err == nil {
			created = order
			break
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// The collision is either the order number (retry with a
			// fresh one) or a concurrent submission of the same payment.
			if razorpayPaymentID != nil {
				var duplicates int64
				if cErr := s.db.WithContext(ctx).Model(&models.Order{}).
					Where("razorpay_payment_id = ?", *razorpayPaymentID).
					Count(&duplicates).Error; cErr == nil && duplicates > 0 {
					return nil, &ConflictError{Reason: "payment has already been used for another order"}
				}
			}
			continue
		}
		return nil, err
	}
	if created == nil {
		return nil, &ConflictError{Reason: "could not allocate a unique order number"}
	}

	// Best-effort confirmation; a failed email never rolls back a paid order.
	go func(o models.Order) {
		if err := s.email.NotifyOrderConfirmation(&o, user.Email, user.Name); err != nil {
			log.Printf("[Order] confirmation email for %s failed: %v", o.OrderNumber, err)
		}
	}(*created)

	return created, nil
}

// GetByID returns a single order. Non-owners need the admin role.
func (s *OrderService) GetByID(ctx context.Context, orderID, requesterID uuid.UUID, isAdmin bool) (*models.Order, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).
		Preload("Items").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("timestamp asc")
		}).
		First(&order, "id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "order"}
		}
		return nil, err
	}

	if order.UserID != requesterID && !isAdmin {
		return nil, &ForbiddenError{Reason: "you do not have access to this order"}
	}

	return &order, nil
}

// ListForUser returns the user's orders, newest first.
func (s *OrderService) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&orders).Error
	return orders, err
}

// Cancel lets the owning user cancel an order that has not shipped yet.
func (s *OrderService) Cancel(ctx context.Context, orderID, requesterID uuid.UUID) (*models.Order, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&order, "id = ?", orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Resource: "order"}
			}
			return err
		}

		if order.UserID != requesterID {
			return &ForbiddenError{Reason: "you do not have access to this order"}
		}

		switch order.OrderStatus {
		case models.OrderStatusCancelled:
			return &ConflictError{Reason: "order is already cancelled"}
		case models.OrderStatusShipped, models.OrderStatusDelivered:
			return &ConflictError{Reason: "order can no longer be cancelled"}
		}

		return appendStatus(tx, &order, models.OrderStatusCancelled, "cancelled by customer", nil)
	})
	if err != nil {
		return nil, err
	}

	return s.GetByID(ctx, orderID, requesterID, false)
}

// StatusUpdateInput carries an admin status change.
type StatusUpdateInput struct {
	Status         models.OrderStatus `json:"status"`
	Note           string             `json:"note"`
	TrackingNumber string             `json:"tracking_number"`
}

// UpdateStatus applies an admin status change, enforcing the state
// machine and appending to the history. No-op writes are rejected so
// the history never gains duplicate entries.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, input StatusUpdateInput) (*models.Order, error) {
	ve := &ValidationError{}
	if !models.ValidOrderStatus(input.Status) {
		ve.add("status", "invalid order status")
	}
	if input.TrackingNumber != "" {
		if l := utf8.RuneCountInString(input.TrackingNumber); l < 5 || l > 50 {
			ve.add("tracking_number", "tracking number must be between 5 and 50 characters")
		}
	}
	if utf8.RuneCountInString(input.Note) > 200 {
		ve.add("note", "note cannot exceed 200 characters")
	}
	if err := ve.orNil(); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&order, "id = ?", orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Resource: "order"}
			}
			return err
		}

		if order.OrderStatus == input.Status {
			return &ConflictError{Reason: fmt.Sprintf("order already has status %q", input.Status)}
		}
		if !canTransition(order.OrderStatus, input.Status) {
			return &ConflictError{Reason: fmt.Sprintf("cannot transition order from %q to %q", order.OrderStatus, input.Status)}
		}

		extra := map[string]any{}
		if input.TrackingNumber != "" {
			extra["tracking_number"] = input.TrackingNumber
		}
		// COD money is collected at the door, so delivery is the moment
		// a COD order starts counting as revenue.
		if input.Status == models.OrderStatusDelivered &&
			order.PaymentMethod == models.PaymentMethodCOD &&
			order.PaymentStatus == models.PaymentStatusPending {
			extra["payment_status"] = models.PaymentStatusPaid
		}

		return appendStatus(tx, &order, input.Status, input.Note, extra)
	})
	if err != nil {
		return nil, err
	}

	return s.GetByID(ctx, orderID, uuid.Nil, true)
}

// appendStatus writes the new status plus any extra columns and records
// the matching history entry. Every status write goes through here.
func appendStatus(tx *gorm.DB, order *models.Order, status models.OrderStatus, note string, extra map[string]any) error {
	updates := map[string]any{"order_status": status}
	for k, v := range extra {
		updates[k] = v
	}

	if err := tx.Model(&models.Order{}).
		Where("id = ?", order.ID).
		Updates(updates).Error; err != nil {
		return err
	}

	return tx.Create(&models.OrderStatusEntry{
		OrderID:   order.ID,
		Status:    status,
		Timestamp: time.Now(),
		Note:      note,
	}).Error
}

// ListAll returns orders for the admin back-office.
func (s *OrderService) ListAll(ctx context.Context, filter ListOrdersFilter, page PageRequest) ([]models.Order, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Order{})

	if filter.Status != "" {
		query = query.Where("order_status = ?", filter.Status)
	}
	if filter.Search != "" {
		q := "%" + filter.Search + "%"
		query = query.Where("order_number ILIKE ? OR shipping_name ILIKE ?", q, q)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []models.Order
	if err := query.Preload("Items").Preload("User").
		Order("created_at desc").
		Limit(page.Limit).Offset(page.Offset).
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

// Analytics returns the admin summary stats.
func (s *OrderService) Analytics(ctx context.Context) (*OrderAnalytics, error) {
	result := &OrderAnalytics{OrdersByStatus: make(map[string]int64)}

	if err := s.db.WithContext(ctx).Model(&models.Order{}).
		Count(&result.TotalOrders).Error; err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("order_status = ?", models.OrderStatusPending).
		Count(&result.PendingOrders).Error; err != nil {
		return nil, err
	}

	type statusCount struct {
		OrderStatus string
		Count       int64
	}
	var counts []statusCount
	if err := s.db.WithContext(ctx).Model(&models.Order{}).
		Select("order_status, count(*) as count").
		Group("order_status").
		Scan(&counts).Error; err != nil {
		return nil, err
	}
	for _, sc := range counts {
		result.OrdersByStatus[sc.OrderStatus] = sc.Count
	}

	revenueQuery := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("payment_status = ? AND order_status != ?", models.PaymentStatusPaid, models.OrderStatusCancelled)

	if err := revenueQuery.Session(&gorm.Session{}).
		Select("COALESCE(SUM(total_amount), 0)").
		Scan(&result.Revenue).Error; err != nil {
		return nil, err
	}

	if err := revenueQuery.Session(&gorm.Session{}).
		Where("created_at::date = CURRENT_DATE").
		Select("COALESCE(SUM(total_amount), 0)").
		Scan(&result.TodayRevenue).Error; err != nil {
		return nil, err
	}

	return result, nil
}
