package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the fulfilment state of an order.
type OrderStatus string

// PaymentStatus is the money state of an order, tracked independently
// of fulfilment.
type PaymentStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"

	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// Payment methods accepted at checkout.
const (
	PaymentMethodCOD        = "cod"
	PaymentMethodCard       = "card"
	PaymentMethodUPI        = "upi"
	PaymentMethodNetbanking = "netbanking"
)

// ValidOrderStatus reports whether s is a known order status.
func ValidOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// ValidPaymentMethod reports whether m is an accepted payment method.
func ValidPaymentMethod(m string) bool {
	switch m {
	case PaymentMethodCOD, PaymentMethodCard, PaymentMethodUPI, PaymentMethodNetbanking:
		return true
	}
	return false
}

// ShippingAddress is the delivery destination captured on the order.
type ShippingAddress struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
	Country string `gorm:"default:'India'" json:"country"`
}

type Order struct {
	BaseModel
	UserID            uuid.UUID          `gorm:"type:uuid;index" json:"user_id"`
	User              *User              `json:"user,omitempty"`
	OrderNumber       string             `gorm:"uniqueIndex" json:"order_number"`
	Items             []OrderItem        `json:"items,omitempty"`
	ShippingAddress   ShippingAddress    `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping_address"`
	PaymentMethod     string             `json:"payment_method"`
	PaymentStatus     PaymentStatus      `gorm:"type:varchar(20);default:'pending'" json:"payment_status"`
	OrderStatus       OrderStatus        `gorm:"type:varchar(20);default:'pending';index" json:"order_status"`
	Subtotal          float64            `json:"subtotal"`
	ShippingCost      float64            `json:"shipping_cost"`
	Tax               float64            `json:"tax"`
	Discount          float64            `json:"discount"`
	TotalAmount       float64            `json:"total_amount"`
	RazorpayOrderID   string             `json:"razorpay_order_id,omitempty"`
	RazorpayPaymentID *string            `gorm:"uniqueIndex" json:"razorpay_payment_id,omitempty"`
	TrackingNumber    string             `json:"tracking_number,omitempty"`
	Notes             string             `json:"notes,omitempty"`
	EstimatedDelivery *time.Time         `json:"estimated_delivery,omitempty"`
	StatusHistory     []OrderStatusEntry `json:"status_history,omitempty"`
}

// OrderItem snapshots a product at purchase time.
type OrderItem struct {
	BaseModel
	OrderID   uuid.UUID  `gorm:"type:uuid;index" json:"order_id"`
	ProductID *uuid.UUID `gorm:"type:uuid" json:"product_id"`
	Name      string     `json:"name"`
	Price     float64    `json:"price"`
	Quantity  int        `json:"quantity"`
	Image     string     `json:"image"`
}

// OrderStatusEntry is one append-only record of a status change.
// Entries are never edited or removed.
type OrderStatusEntry struct {
	BaseModel
	OrderID   uuid.UUID   `gorm:"type:uuid;index" json:"order_id"`
	Status    OrderStatus `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
	Note      string      `json:"note,omitempty"`
}
