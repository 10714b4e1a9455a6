package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/example/mindymunchs/internal/models"
)

// EmailService sends transactional email through the Brevo API.
// Callers treat every send as best-effort: failures are logged, never
// surfaced to the customer.
type EmailService struct {
	apiKey      string
	senderEmail string
	frontendURL string
	baseURL     string
	client      *http.Client
}

// NewEmailService creates a new EmailService.
func NewEmailService(apiKey, senderEmail, frontendURL string) *EmailService {
	return &EmailService{
		apiKey:      apiKey,
		senderEmail: senderEmail,
		frontendURL: frontendURL,
		baseURL:     "https://api.brevo.com/v3",
		client:      &http.Client{Timeout: 10 * time.Second},
	}
}

type emailParty struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

type brevoEmail struct {
	Sender      emailParty   `json:"sender"`
	To          []emailParty `json:"to"`
	Subject     string       `json:"subject"`
	HTMLContent string       `json:"htmlContent"`
}

// Send delivers one email to the given recipients.
func (s *EmailService) Send(to []string, subject, htmlContent string) error {
	if s.apiKey == "" {
		log.Println("[Email] Brevo API key not configured")
		return nil
	}
	if len(to) == 0 {
		return nil
	}

	recipients := make([]emailParty, 0, len(to))
	for _, addr := range to {
		recipients = append(recipients, emailParty{Email: addr})
	}

	msg := brevoEmail{
		Sender:      emailParty{Name: "Mindy Munchs", Email: s.senderEmail},
		To:          recipients,
		Subject:     subject,
		HTMLContent: htmlContent,
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, s.baseURL+"/smtp/email", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		log.Printf("[Email] Failed to send message: %v", err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("[Email] Unexpected status: %d", resp.StatusCode)
		return fmt.Errorf("brevo returned status %d", resp.StatusCode)
	}

	return nil
}

// NotifyOrderConfirmation sends the order confirmation to the customer.
func (s *EmailService) NotifyOrderConfirmation(order *models.Order, email, name string) error {
	if email == "" {
		return nil
	}

	var items strings.Builder
	for _, item := range order.Items {
		items.WriteString(fmt.Sprintf(
			"<li><b>%s</b> — %d x Rs.%.2f</li>", item.Name, item.Quantity, item.Price))
	}

	html := fmt.Sprintf(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h2 style="color: #e67e22;">Thank you for your order, %s!</h2>
  <p>Your order <b>%s</b> has been placed.</p>
  <ul>%s</ul>
  <p><b>Total: Rs.%.2f</b> (incl. Rs.%.2f shipping, Rs.%.2f tax)</p>
  <p>Payment method: %s — %s</p>
  <p style="color: #666;">Track your order at <a href="%s/orders">%s/orders</a></p>
  <p style="font-size: 12px; color: #999;">Mindy Munchs — Made with love in India</p>
</div>`,
		name, order.OrderNumber, items.String(),
		order.TotalAmount, order.ShippingCost, order.Tax,
		order.PaymentMethod, order.PaymentStatus,
		s.frontendURL, s.frontendURL,
	)

	return s.Send([]string{email}, fmt.Sprintf("Order Confirmation - %s", order.OrderNumber), html)
}

// NotifyProductAlert sends a new/updated product announcement to
// newsletter subscribers.
func (s *EmailService) NotifyProductAlert(product *models.Product, subscribers []string, isUpdate bool) error {
	if len(subscribers) == 0 {
		return nil
	}

	subject := fmt.Sprintf("New Product: %s", product.Name)
	headline := "New Product Alert!"
	if isUpdate {
		subject = fmt.Sprintf("Updated Product: %s", product.Name)
		headline = "Product Updated!"
	}

	organicBadge := ""
	if product.IsOrganic {
		organicBadge = `<span style="background: #27ae60; color: white; padding: 4px 8px; border-radius: 4px; font-size: 12px;">ORGANIC</span>`
	}

	html := fmt.Sprintf(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h2 style="color: #e67e22; text-align: center;">%s</h2>
  <div style="border: 1px solid #ddd; border-radius: 8px; padding: 20px;">
    <h3 style="margin-top: 0;">%s</h3>
    <p style="color: #666;">%s</p>
    <span style="font-size: 24px; color: #e67e22; font-weight: bold;">Rs.%.2f</span>
    %s
    <div style="text-align: center; margin: 30px 0;">
      <a href="%s/product/%s" style="background: #e67e22; color: white; padding: 12px 30px; text-decoration: none; border-radius: 5px;">Shop Now</a>
    </div>
  </div>
  <p style="text-align: center; color: #666;">Thank you for being part of the Mindy Munchs family!</p>
</div>`,
		headline, product.Name, product.Description, product.Price,
		organicBadge, s.frontendURL, product.ID,
	)

	// One call per subscriber keeps a single bad address from failing
	// the whole batch.
	for _, email := range subscribers {
		if err := s.Send([]string{email}, subject, html); err != nil {
			log.Printf("[Email] Product alert to %s failed: %v", email, err)
		}
	}
	return nil
}
