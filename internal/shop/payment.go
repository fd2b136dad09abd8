package shop

import (
	"context"
	"strings"
)

var successURLTargets = map[string]string{
	"Orders":     "/orders",
	"Invoices":   "/invoices",
	"My Account": "/me",
}

// PaymentSuccessTarget is where the shopper lands after the payment gateway returns. Only
// Authorized and Completed payments honour the configured success page; everything else goes
// back to the order.
func PaymentSuccessTarget(reference, status, successURL string) string {
	orderPage := "/orders"
	if reference = strings.TrimSpace(reference); reference != "" {
		orderPage = OrderURL(reference)
	}
	switch strings.TrimSpace(status) {
	case "Authorized", "Completed":
	default:
		return orderPage
	}

	successURL = strings.TrimSpace(successURL)
	if successURL == "" {
		return orderPage
	}
	if target, ok := successURLTargets[successURL]; ok {
		return target
	}
	return "/me"
}

// PaymentService resolves payment completion redirects.
type PaymentService struct {
	settings *Settings
}

// NewPaymentService constructs the service.
func NewPaymentService(settings *Settings) *PaymentService {
	return &PaymentService{settings: settings}
}

// CompletionTarget reads payment_success_url and resolves the landing page.
func (s *PaymentService) CompletionTarget(ctx context.Context, reference, status string) (string, error) {
	successURL, err := s.settings.String(ctx, DocTypeWebshopSettings, FieldPaymentSuccessURL)
	if err != nil {
		return PaymentSuccessTarget(reference, status, ""), err
	}
	return PaymentSuccessTarget(reference, status, successURL), nil
}
