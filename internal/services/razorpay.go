package services

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Gateway abstracts the payment provider so the order service can be
// tested against a double.
type Gateway interface {
	CreateOrder(ctx context.Context, amountPaise int64, currency string) (*GatewayOrder, error)
	VerifySignature(orderID, paymentID, signature string) bool
}

// GatewayOrder is a gateway-side payment intent.
type GatewayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// RazorpayClient talks to the Razorpay orders API. Amounts are integer
// minor units (paise).
type RazorpayClient struct {
	keyID     string
	keySecret string
	baseURL   string
	client    *http.Client
}

// NewRazorpayClient constructs a RazorpayClient with a bounded timeout.
func NewRazorpayClient(keyID, keySecret string) *RazorpayClient {
	return &RazorpayClient{
		keyID:     keyID,
		keySecret: keySecret,
		baseURL:   "https://api.razorpay.com/v1",
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

type razorpayOrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

// CreateOrder creates a payment intent on the gateway.
func (r *RazorpayClient) CreateOrder(ctx context.Context, amountPaise int64, currency string) (*GatewayOrder, error) {
	payload := razorpayOrderRequest{
		Amount:   amountPaise,
		Currency: currency,
		Receipt:  fmt.Sprintf("receipt_order_%d", time.Now().UnixMilli()),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(r.keyID, r.keySecret)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, &GatewayError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &GatewayError{Err: fmt.Errorf("razorpay returned status %d: %s", resp.StatusCode, data)}
	}

	var order GatewayOrder
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, &GatewayError{Err: err}
	}

	return &order, nil
}

// VerifySignature recomputes the expected callback signature from the
// key secret and compares it in constant time. No network call is made;
// the secret never leaves the server, so a matching signature proves the
// callback came from the gateway.
func (r *RazorpayClient) VerifySignature(orderID, paymentID, signature string) bool {
	mac := hmac.New(sha256.New, []byte(r.keySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
