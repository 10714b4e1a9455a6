package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/mindymunchs/internal/models"
)

func TestSendWithoutAPIKey(t *testing.T) {
	svc := NewEmailService("", "orders@mindymunchs.com", "https://mindymunchs.com")
	assert.NoError(t, svc.Send([]string{"someone@example.com"}, "Hello", "<p>hi</p>"))
}

func TestSend(t *testing.T) {
	var gotAPIKey string
	var gotBody brevoEmail

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAPIKey = r.Header.Get("api-key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	svc := NewEmailService("brevo-key", "orders@mindymunchs.com", "https://mindymunchs.com")
	svc.baseURL = server.URL

	err := svc.Send([]string{"asha@example.com"}, "Order Confirmation", "<p>thanks</p>")
	require.NoError(t, err)

	assert.Equal(t, "brevo-key", gotAPIKey)
	assert.Equal(t, "orders@mindymunchs.com", gotBody.Sender.Email)
	require.Len(t, gotBody.To, 1)
	assert.Equal(t, "asha@example.com", gotBody.To[0].Email)
	assert.Equal(t, "Order Confirmation", gotBody.Subject)
	assert.Equal(t, "<p>thanks</p>", gotBody.HTMLContent)
}

func TestSendRejectedByProvider(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	svc := NewEmailService("bad-key", "orders@mindymunchs.com", "https://mindymunchs.com")
	svc.baseURL = server.URL

	err := svc.Send([]string{"asha@example.com"}, "Subject", "<p>body</p>")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestNotifyOrderConfirmation(t *testing.T) {
	var gotBody brevoEmail

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	svc := NewEmailService("brevo-key", "orders@mindymunchs.com", "https://mindymunchs.com")
	svc.baseURL = server.URL

	order := &models.Order{
		OrderNumber:   "MM123456789",
		PaymentMethod: models.PaymentMethodCOD,
		PaymentStatus: models.PaymentStatusPending,
		TotalAmount:   677.90,
		ShippingCost:  50,
		Tax:           29.90,
		Items: []models.OrderItem{
			{Name: "Organic Jaggery Bites", Price: 299, Quantity: 2},
		},
	}

	require.NoError(t, svc.NotifyOrderConfirmation(order, "asha@example.com", "Asha"))

	assert.Equal(t, "Order Confirmation - MM123456789", gotBody.Subject)
	assert.Contains(t, gotBody.HTMLContent, "MM123456789")
	assert.Contains(t, gotBody.HTMLContent, "Organic Jaggery Bites")
	assert.Contains(t, gotBody.HTMLContent, "Asha")
}

func TestNotifyOrderConfirmationWithoutEmail(t *testing.T) {
	svc := NewEmailService("brevo-key", "orders@mindymunchs.com", "https://mindymunchs.com")
	assert.NoError(t, svc.NotifyOrderConfirmation(&models.Order{}, "", "Asha"))
}

func TestNotifyProductAlert(t *testing.T) {
	var sends []brevoEmail

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body brevoEmail
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		sends = append(sends, body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	svc := NewEmailService("brevo-key", "orders@mindymunchs.com", "https://mindymunchs.com")
	svc.baseURL = server.URL

	product := &models.Product{Name: "Millet Laddoo", Price: 199, IsOrganic: true}
	subscribers := []string{"a@example.com", "b@example.com"}

	require.NoError(t, svc.NotifyProductAlert(product, subscribers, false))

	require.Len(t, sends, 2)
	assert.Equal(t, "New Product: Millet Laddoo", sends[0].Subject)
	assert.Contains(t, sends[0].HTMLContent, "ORGANIC")
	assert.Equal(t, "a@example.com", sends[0].To[0].Email)
	assert.Equal(t, "b@example.com", sends[1].To[0].Email)
}
