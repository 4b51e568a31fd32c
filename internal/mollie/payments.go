package mollie

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// CreatePayment creates a payment for an existing customer. redirectUrl is
// always sent (empty when unset); webhookUrl, cancelUrl and mandateId only
// when set, the latter being what a recurring charge needs.
func (c *Client) CreatePayment(ctx context.Context, req PaymentRequest) (Payment, error) {
	if err := c.check(OpCreatePayment, req); err != nil {
		return Payment{}, err
	}
	form := url.Values{}
	form.Set("sequenceType", req.SequenceType)
	form.Set("description", req.Description)
	form.Set("amount[currency]", req.Amount.Currency)
	form.Set("amount[value]", req.Amount.Value)
	form.Set("redirectUrl", req.RedirectURL)
	setIfPresent(form, "webhookUrl", req.WebhookURL)
	setIfPresent(form, "cancelUrl", req.CancelURL)
	setIfPresent(form, "mandateId", req.MandateID)

	var payment Payment
	raw, err := c.do(ctx, OpCreatePayment, http.MethodPost, "/customers/"+pathSegment(req.CustomerID)+"/payments", form, &payment)
	if err != nil {
		return Payment{}, err
	}
	payment.Raw = raw
	return payment, nil
}

// GetPayment fetches a payment, typically to learn its status after a webhook.
func (c *Client) GetPayment(ctx context.Context, paymentID string) (Payment, error) {
	if strings.TrimSpace(paymentID) == "" {
		return Payment{}, &ValidationError{Op: OpGetPayment, Field: "paymentId"}
	}
	var payment Payment
	raw, err := c.do(ctx, OpGetPayment, http.MethodGet, "/payments/"+pathSegment(paymentID), nil, &payment)
	if err != nil {
		return Payment{}, err
	}
	payment.Raw = raw
	return payment, nil
}

func setIfPresent(form url.Values, key, value string) {
	if strings.TrimSpace(value) != "" {
		form.Set(key, value)
	}
}
