package services

import (
	"context"
	"regexp"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/mindymunchs/internal/models"
)

func validCODInput() CreateOrderInput {
	return CreateOrderInput{
		ShippingAddress: models.ShippingAddress{
			Name:    "Asha Verma",
			Phone:   "+919876543210",
			Street:  "12 MG Road, Flat 4B",
			City:    "Bengaluru",
			State:   "Karnataka",
			ZipCode: "560001",
		},
		PaymentMethod: models.PaymentMethodCOD,
	}
}

func TestValidateCreateInput(t *testing.T) {
	require.NoError(t, validateCreateInput(validCODInput()))

	tests := []struct {
		name      string
		mutate    func(*CreateOrderInput)
		wantField string
	}{
		{
			name:      "name too short",
			mutate:    func(in *CreateOrderInput) { in.ShippingAddress.Name = "A" },
			wantField: "shipping_address.name",
		},
		{
			name:      "phone with letters",
			mutate:    func(in *CreateOrderInput) { in.ShippingAddress.Phone = "98765abcde" },
			wantField: "shipping_address.phone",
		},
		{
			name:      "phone too short",
			mutate:    func(in *CreateOrderInput) { in.ShippingAddress.Phone = "12345" },
			wantField: "shipping_address.phone",
		},
		{
			name:      "street too short",
			mutate:    func(in *CreateOrderInput) { in.ShippingAddress.Street = "x" },
			wantField: "shipping_address.street",
		},
		{
			name:      "city missing",
			mutate:    func(in *CreateOrderInput) { in.ShippingAddress.City = "" },
			wantField: "shipping_address.city",
		},
		{
			name:      "state missing",
			mutate:    func(in *CreateOrderInput) { in.ShippingAddress.State = "" },
			wantField: "shipping_address.state",
		},
		{
			name:      "zip too short",
			mutate:    func(in *CreateOrderInput) { in.ShippingAddress.ZipCode = "123" },
			wantField: "shipping_address.zip_code",
		},
		{
			name:      "zip with letters",
			mutate:    func(in *CreateOrderInput) { in.ShippingAddress.ZipCode = "56000A" },
			wantField: "shipping_address.zip_code",
		},
		{
			name:      "unknown payment method",
			mutate:    func(in *CreateOrderInput) { in.PaymentMethod = "crypto" },
			wantField: "payment_method",
		},
		{
			name: "notes too long",
			mutate: func(in *CreateOrderInput) {
				for i := 0; i < 501; i++ {
					in.Notes += "x"
				}
			},
			wantField: "notes",
		},
		{
			name:      "online payment without confirmation",
			mutate:    func(in *CreateOrderInput) { in.PaymentMethod = models.PaymentMethodUPI },
			wantField: "payment",
		},
		{
			name: "online payment with partial confirmation",
			mutate: func(in *CreateOrderInput) {
				in.PaymentMethod = models.PaymentMethodCard
				in.Payment = &PaymentConfirmation{RazorpayOrderID: "order_abc"}
			},
			wantField: "payment",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validCODInput()
			tt.mutate(&input)

			err := validateCreateInput(input)
			require.Error(t, err)

			var ve *ValidationError
			require.ErrorAs(t, err, &ve)

			fields := make([]string, 0, len(ve.Fields))
			for _, f := range ve.Fields {
				fields = append(fields, f.Field)
			}
			assert.Contains(t, fields, tt.wantField)
		})
	}
}

func TestValidateCreateInputCountsRunes(t *testing.T) {
	t.Run("devanagari address accepted", func(t *testing.T) {
		input := validCODInput()
		input.ShippingAddress.Name = "राम शर्मा"
		input.ShippingAddress.Street = "१२ मुख्य मार्ग, शिवाजी नगर"
		input.ShippingAddress.City = "पुणे"
		input.ShippingAddress.State = "महाराष्ट्र"
		assert.NoError(t, validateCreateInput(input))
	})

	t.Run("long multi-byte name within character limit", func(t *testing.T) {
		input := validCODInput()
		// 30 characters, 90 bytes. A byte count would reject it.
		input.ShippingAddress.Name = strings.Repeat("म", 30)
		assert.NoError(t, validateCreateInput(input))
	})

	t.Run("short multi-byte street rejected", func(t *testing.T) {
		input := validCODInput()
		// 3 characters, 9 bytes. A byte count would accept it.
		input.ShippingAddress.Street = "गली"

		err := validateCreateInput(input)
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		require.Len(t, ve.Fields, 1)
		assert.Equal(t, "shipping_address.street", ve.Fields[0].Field)
	})
}

func TestValidateCreateInputAcceptsVerifiedOnlinePayment(t *testing.T) {
	input := validCODInput()
	input.PaymentMethod = models.PaymentMethodUPI
	input.Payment = &PaymentConfirmation{
		RazorpayOrderID:   "order_abc",
		RazorpayPaymentID: "pay_def",
		RazorpaySignature: "deadbeef",
	}
	assert.NoError(t, validateCreateInput(input))
}

func TestComputePricing(t *testing.T) {
	svc := &OrderService{pricing: PricingConfig{
		ShippingFlatRate:      50,
		FreeShippingThreshold: 999,
		TaxRate:               0.05,
	}}

	t.Run("below free shipping threshold", func(t *testing.T) {
		items := []models.OrderItem{
			{Price: 249.50, Quantity: 2},
			{Price: 99, Quantity: 1},
		}
		subtotal, shipping, tax, discount, total := svc.computePricing(items)

		assert.Equal(t, 598.0, subtotal)
		assert.Equal(t, 50.0, shipping)
		assert.InDelta(t, 29.90, tax, 0.001)
		assert.Equal(t, 0.0, discount)
		assert.InDelta(t, 677.90, total, 0.001)
	})

	t.Run("at free shipping threshold", func(t *testing.T) {
		items := []models.OrderItem{{Price: 999, Quantity: 1}}
		_, shipping, _, _, _ := svc.computePricing(items)
		assert.Equal(t, 0.0, shipping)
	})

	t.Run("total matches component sum", func(t *testing.T) {
		items := []models.OrderItem{
			{Price: 123.45, Quantity: 3},
			{Price: 67.89, Quantity: 2},
		}
		subtotal, shipping, tax, discount, total := svc.computePricing(items)
		assert.InDelta(t, subtotal+shipping+tax-discount, total, 0.001)
	})
}

func TestGenerateOrderNumber(t *testing.T) {
	format := regexp.MustCompile(`^MM\d{9}$`)
	for i := 0; i < 50; i++ {
		number := generateOrderNumber()
		assert.True(t, format.MatchString(number), "unexpected order number %q", number)
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from models.OrderStatus
		to   models.OrderStatus
		want bool
	}{
		{models.OrderStatusPending, models.OrderStatusConfirmed, true},
		{models.OrderStatusPending, models.OrderStatusCancelled, true},
		{models.OrderStatusPending, models.OrderStatusShipped, false},
		{models.OrderStatusPending, models.OrderStatusDelivered, false},
		{models.OrderStatusConfirmed, models.OrderStatusProcessing, true},
		{models.OrderStatusConfirmed, models.OrderStatusCancelled, true},
		{models.OrderStatusConfirmed, models.OrderStatusPending, false},
		{models.OrderStatusProcessing, models.OrderStatusShipped, true},
		{models.OrderStatusProcessing, models.OrderStatusCancelled, true},
		{models.OrderStatusShipped, models.OrderStatusDelivered, true},
		{models.OrderStatusShipped, models.OrderStatusCancelled, false},
		{models.OrderStatusDelivered, models.OrderStatusCancelled, false},
		{models.OrderStatusDelivered, models.OrderStatusPending, false},
		{models.OrderStatusCancelled, models.OrderStatusPending, false},
		{models.OrderStatusCancelled, models.OrderStatusConfirmed, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, canTransition(tt.from, tt.to),
			"transition %s -> %s", tt.from, tt.to)
	}
}

func TestUpdateStatusInputValidation(t *testing.T) {
	svc := &OrderService{}
	ctx := context.Background()
	orderID := uuid.New()

	t.Run("unknown status", func(t *testing.T) {
		_, err := svc.UpdateStatus(ctx, orderID, StatusUpdateInput{Status: "teleported"})
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "status", ve.Fields[0].Field)
	})

	t.Run("tracking number too short", func(t *testing.T) {
		_, err := svc.UpdateStatus(ctx, orderID, StatusUpdateInput{
			Status:         models.OrderStatusShipped,
			TrackingNumber: "abc",
		})
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "tracking_number", ve.Fields[0].Field)
	})

	t.Run("note too long", func(t *testing.T) {
		note := ""
		for i := 0; i < 201; i++ {
			note += "y"
		}
		_, err := svc.UpdateStatus(ctx, orderID, StatusUpdateInput{
			Status: models.OrderStatusConfirmed,
			Note:   note,
		})
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "note", ve.Fields[0].Field)
	})
}
