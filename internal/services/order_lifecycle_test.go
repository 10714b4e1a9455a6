package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/example/mindymunchs/internal/models"
)

type fakeGateway struct {
	valid bool
}

func (g *fakeGateway) CreateOrder(ctx context.Context, amountPaise int64, currency string) (*GatewayOrder, error) {
	return &GatewayOrder{ID: "order_fake", Amount: amountPaise, Currency: currency}, nil
}

func (g *fakeGateway) VerifySignature(orderID, paymentID, signature string) bool {
	return g.valid
}

func setupLifecycleDB(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("mindymunchs_test"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { pgContainer.Terminate(ctx) })

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(gormpostgres.Open(connStr), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Guest{},
		&models.Product{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.OrderStatusEntry{},
	))

	return db
}

func newLifecycleService(db *gorm.DB) *OrderService {
	return NewOrderService(db, &fakeGateway{valid: true},
		NewEmailService("", "noreply@mindymunchs.com", "https://mindymunchs.com"),
		PricingConfig{ShippingFlatRate: 50, FreeShippingThreshold: 999, TaxRate: 0.05})
}

func seedUser(t *testing.T, db *gorm.DB, email string) models.User {
	t.Helper()
	user := models.User{Name: "Asha Verma", Email: email, PasswordHash: "x", Role: models.RoleUser}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func seedOrder(t *testing.T, db *gorm.DB, userID uuid.UUID, number string, status models.OrderStatus) models.Order {
	t.Helper()
	order := models.Order{
		UserID:        userID,
		OrderNumber:   number,
		PaymentMethod: models.PaymentMethodCOD,
		PaymentStatus: models.PaymentStatusPending,
		OrderStatus:   status,
		TotalAmount:   573.95,
		StatusHistory: []models.OrderStatusEntry{{
			Status:    status,
			Timestamp: time.Now().Add(-time.Minute),
			Note:      "order placed",
		}},
	}
	require.NoError(t, db.Create(&order).Error)
	return order
}

func TestCancelLifecycle(t *testing.T) {
	db := setupLifecycleDB(t)
	svc := newLifecycleService(db)
	ctx := context.Background()
	user := seedUser(t, db, "asha@example.com")
	stranger := seedUser(t, db, "ravi@example.com")

	t.Run("cancel appends history", func(t *testing.T) {
		order := seedOrder(t, db, user.ID, "MM000000001", models.OrderStatusPending)

		cancelled, err := svc.Cancel(ctx, order.ID, user.ID)
		require.NoError(t, err)

		assert.Equal(t, models.OrderStatusCancelled, cancelled.OrderStatus)
		require.Len(t, cancelled.StatusHistory, 2)
		last := cancelled.StatusHistory[len(cancelled.StatusHistory)-1]
		assert.Equal(t, models.OrderStatusCancelled, last.Status)
		assert.Equal(t, "cancelled by customer", last.Note)
	})

	t.Run("second cancel conflicts without new history", func(t *testing.T) {
		order := seedOrder(t, db, user.ID, "MM000000002", models.OrderStatusPending)

		_, err := svc.Cancel(ctx, order.ID, user.ID)
		require.NoError(t, err)

		_, err = svc.Cancel(ctx, order.ID, user.ID)
		var ce *ConflictError
		require.ErrorAs(t, err, &ce)

		var entries int64
		require.NoError(t, db.Model(&models.OrderStatusEntry{}).
			Where("order_id = ?", order.ID).Count(&entries).Error)
		assert.Equal(t, int64(2), entries)
	})

	t.Run("shipped order cannot be cancelled", func(t *testing.T) {
		order := seedOrder(t, db, user.ID, "MM000000003", models.OrderStatusShipped)

		_, err := svc.Cancel(ctx, order.ID, user.ID)
		var ce *ConflictError
		require.ErrorAs(t, err, &ce)

		var current models.Order
		require.NoError(t, db.First(&current, "id = ?", order.ID).Error)
		assert.Equal(t, models.OrderStatusShipped, current.OrderStatus)
	})

	t.Run("delivered order cannot be cancelled", func(t *testing.T) {
		order := seedOrder(t, db, user.ID, "MM000000004", models.OrderStatusDelivered)

		_, err := svc.Cancel(ctx, order.ID, user.ID)
		var ce *ConflictError
		require.ErrorAs(t, err, &ce)
	})

	t.Run("non-owner cannot cancel", func(t *testing.T) {
		order := seedOrder(t, db, user.ID, "MM000000005", models.OrderStatusPending)

		_, err := svc.Cancel(ctx, order.ID, stranger.ID)
		var fe *ForbiddenError
		require.ErrorAs(t, err, &fe)
	})
}

func TestUpdateStatusLifecycle(t *testing.T) {
	db := setupLifecycleDB(t)
	svc := newLifecycleService(db)
	ctx := context.Background()
	user := seedUser(t, db, "asha@example.com")

	t.Run("history follows every transition", func(t *testing.T) {
		order := seedOrder(t, db, user.ID, "MM000000101", models.OrderStatusPending)

		steps := []models.OrderStatus{
			models.OrderStatusConfirmed,
			models.OrderStatusProcessing,
			models.OrderStatusShipped,
			models.OrderStatusDelivered,
		}
		for i, status := range steps {
			input := StatusUpdateInput{Status: status}
			if status == models.OrderStatusShipped {
				input.TrackingNumber = "TRK-10001"
			}

			updated, err := svc.UpdateStatus(ctx, order.ID, input)
			require.NoError(t, err)

			assert.Equal(t, status, updated.OrderStatus)
			require.Len(t, updated.StatusHistory, i+2)
			assert.Equal(t, status, updated.StatusHistory[len(updated.StatusHistory)-1].Status)
		}

		var final models.Order
		require.NoError(t, db.First(&final, "id = ?", order.ID).Error)
		assert.Equal(t, "TRK-10001", final.TrackingNumber)
		// COD money is collected on delivery.
		assert.Equal(t, models.PaymentStatusPaid, final.PaymentStatus)
	})

	t.Run("no-op transition conflicts", func(t *testing.T) {
		order := seedOrder(t, db, user.ID, "MM000000102", models.OrderStatusPending)

		_, err := svc.UpdateStatus(ctx, order.ID, StatusUpdateInput{Status: models.OrderStatusPending})
		var ce *ConflictError
		require.ErrorAs(t, err, &ce)

		var entries int64
		require.NoError(t, db.Model(&models.OrderStatusEntry{}).
			Where("order_id = ?", order.ID).Count(&entries).Error)
		assert.Equal(t, int64(1), entries)
	})

	t.Run("skipping states conflicts", func(t *testing.T) {
		order := seedOrder(t, db, user.ID, "MM000000103", models.OrderStatusPending)

		_, err := svc.UpdateStatus(ctx, order.ID, StatusUpdateInput{Status: models.OrderStatusDelivered})
		var ce *ConflictError
		require.ErrorAs(t, err, &ce)
	})

	t.Run("unknown order not found", func(t *testing.T) {
		_, err := svc.UpdateStatus(ctx, uuid.New(), StatusUpdateInput{Status: models.OrderStatusConfirmed})
		var nf *NotFoundError
		require.ErrorAs(t, err, &nf)
	})
}

func TestCreateOrderLifecycle(t *testing.T) {
	db := setupLifecycleDB(t)
	svc := newLifecycleService(db)
	ctx := context.Background()
	user := seedUser(t, db, "asha@example.com")

	product := models.Product{Name: "Organic Jaggery Bites", Price: 249.50, Stock: 5, IsActive: true}
	require.NoError(t, db.Create(&product).Error)

	t.Run("insufficient stock rolls everything back", func(t *testing.T) {
		require.NoError(t, db.Create(&models.CartItem{
			UserID: user.ID, ProductID: product.ID, Quantity: 10,
		}).Error)

		_, err := svc.Create(ctx, user.ID, validCODInput())
		var oos *OutOfStockError
		require.ErrorAs(t, err, &oos)

		var current models.Product
		require.NoError(t, db.First(&current, "id = ?", product.ID).Error)
		assert.Equal(t, 5, current.Stock)

		var cartCount int64
		require.NoError(t, db.Model(&models.CartItem{}).
			Where("user_id = ?", user.ID).Count(&cartCount).Error)
		assert.Equal(t, int64(1), cartCount)

		require.NoError(t, db.Where("user_id = ?", user.ID).Delete(&models.CartItem{}).Error)
	})

	t.Run("cod order decrements stock and clears cart", func(t *testing.T) {
		require.NoError(t, db.Create(&models.CartItem{
			UserID: user.ID, ProductID: product.ID, Quantity: 2,
		}).Error)

		order, err := svc.Create(ctx, user.ID, validCODInput())
		require.NoError(t, err)

		assert.Equal(t, models.OrderStatusPending, order.OrderStatus)
		assert.Equal(t, models.PaymentStatusPending, order.PaymentStatus)
		assert.InDelta(t, 499.00, order.Subtotal, 0.001)
		assert.InDelta(t, 50.0, order.ShippingCost, 0.001)
		assert.InDelta(t, 24.95, order.Tax, 0.001)
		assert.InDelta(t, 573.95, order.TotalAmount, 0.001)
		require.Len(t, order.StatusHistory, 1)
		assert.Equal(t, models.OrderStatusPending, order.StatusHistory[0].Status)
		assert.Equal(t, "order placed", order.StatusHistory[0].Note)

		var current models.Product
		require.NoError(t, db.First(&current, "id = ?", product.ID).Error)
		assert.Equal(t, 3, current.Stock)

		var cartCount int64
		require.NoError(t, db.Model(&models.CartItem{}).
			Where("user_id = ?", user.ID).Count(&cartCount).Error)
		assert.Equal(t, int64(0), cartCount)
	})
}
