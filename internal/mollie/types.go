package mollie

import (
	"encoding/json"
	"strings"
)

// Sequence types accepted by the payments endpoint.
const (
	SequenceFirst     = "first"
	SequenceRecurring = "recurring"
)

// MandateStatusValid marks a mandate that can be charged for recurring payments.
const MandateStatusValid = "valid"

// Amount is a currency and a decimal string in the currency's major unit, e.g. "10.00".
// The value is only checked for presence.
type Amount struct {
	Currency string `json:"currency" validate:"required"`
	Value    string `json:"value" validate:"required"`
}

// CustomerRequest describes a customer to create.
type CustomerRequest struct {
	Name     string         `json:"name" validate:"required"`
	Email    string         `json:"email"`
	Locale   string         `json:"locale"`
	Metadata map[string]any `json:"metadata"`
}

// PaymentRequest describes a payment to create for an existing customer. A
// "first" payment establishes a mandate; a "recurring" one charges it.
type PaymentRequest struct {
	CustomerID   string `json:"customerId" validate:"required"`
	SequenceType string `json:"sequenceType" validate:"required"`
	Description  string `json:"description" validate:"required"`
	Amount       Amount `json:"amount"`
	RedirectURL  string `json:"redirectUrl"`
	WebhookURL   string `json:"webhookUrl"`
	CancelURL    string `json:"cancelUrl"`
	MandateID    string `json:"mandateId"`
}

// SubscriptionRequest describes a subscription charged against a mandate.
type SubscriptionRequest struct {
	CustomerID  string `json:"customerId" validate:"required"`
	MandateID   string `json:"mandateId" validate:"required"`
	Description string `json:"description" validate:"required"`
	WebhookURL  string `json:"webhookUrl" validate:"required"`
	Amount      Amount `json:"amount"`
	Interval    string `json:"interval" validate:"required"`
	Times       *int   `json:"times"`
}

// Link is a single hypermedia link.
type Link struct {
	Href string `json:"href"`
	Type string `json:"type"`
}

// Links holds the "_links" object of a resource keyed by relation name.
type Links map[string]Link

// Href returns the href for the named relation.
func (l Links) Href(name string) (string, bool) {
	link, ok := l[name]
	if !ok || strings.TrimSpace(link.Href) == "" {
		return "", false
	}
	return link.Href, true
}

// Customer is the customer resource.
type Customer struct {
	Resource  string          `json:"resource"`
	ID        string          `json:"id"`
	Mode      string          `json:"mode"`
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	Locale    string          `json:"locale"`
	Metadata  json.RawMessage `json:"metadata"`
	CreatedAt string          `json:"createdAt"`
	Links     Links           `json:"_links"`

	// Raw is the response body exactly as received.
	Raw json.RawMessage `json:"-"`
}

// Payment is the payment resource.
type Payment struct {
	Resource       string `json:"resource"`
	ID             string `json:"id"`
	Mode           string `json:"mode"`
	Status         string `json:"status"`
	SequenceType   string `json:"sequenceType"`
	Description    string `json:"description"`
	Amount         Amount `json:"amount"`
	Method         string `json:"method"`
	CustomerID     string `json:"customerId"`
	MandateID      string `json:"mandateId"`
	SubscriptionID string `json:"subscriptionId"`
	RedirectURL    string `json:"redirectUrl"`
	WebhookURL     string `json:"webhookUrl"`
	CreatedAt      string `json:"createdAt"`
	PaidAt         string `json:"paidAt"`
	Links          Links  `json:"_links"`

	Raw json.RawMessage `json:"-"`
}

// CheckoutURL returns "_links.checkout.href", the page where the customer
// completes the payment.
func (p Payment) CheckoutURL() (string, error) {
	href, ok := p.Links.Href("checkout")
	if !ok {
		return "", &MalformedResponseError{Op: OpCreatePayment, Path: "_links.checkout.href"}
	}
	return href, nil
}

// IsPaid reports whether the payment reached the paid state.
func (p Payment) IsPaid() bool {
	return NormaliseStatus(p.Status) == StatusPaid
}

// Mandate is one entry of a customer's mandate collection.
type Mandate struct {
	Resource  string          `json:"resource"`
	ID        string          `json:"id"`
	Mode      string          `json:"mode"`
	Status    string          `json:"status"`
	Method    string          `json:"method"`
	Details   json.RawMessage `json:"details"`
	CreatedAt string          `json:"createdAt"`
	Links     Links           `json:"_links"`
}

// IsValid reports whether the mandate is activated for recurring charges.
// The status must be exactly "valid".
func (m Mandate) IsValid() bool {
	return m.Status == MandateStatusValid
}

// MandateList is the paginated list returned for a customer's mandates.
type MandateList struct {
	Count    int `json:"count"`
	Embedded *struct {
		Mandates []Mandate `json:"mandates"`
	} `json:"_embedded"`
	Links Links `json:"_links"`

	Raw json.RawMessage `json:"-"`
}

// Mandates returns "_embedded.mandates". An absent collection is reported as
// a MalformedResponseError; an empty one is not.
func (l MandateList) Mandates() ([]Mandate, error) {
	if l.Embedded == nil || l.Embedded.Mandates == nil {
		return nil, &MalformedResponseError{Op: OpListMandates, Path: "_embedded.mandates"}
	}
	return l.Embedded.Mandates, nil
}

// Valid returns the mandates whose status is "valid".
func (l MandateList) Valid() ([]Mandate, error) {
	mandates, err := l.Mandates()
	if err != nil {
		return nil, err
	}
	valid := make([]Mandate, 0, len(mandates))
	for _, m := range mandates {
		if m.IsValid() {
			valid = append(valid, m)
		}
	}
	return valid, nil
}

// Subscription is the subscription resource.
type Subscription struct {
	Resource        string `json:"resource"`
	ID              string `json:"id"`
	Mode            string `json:"mode"`
	Status          string `json:"status"`
	Amount          Amount `json:"amount"`
	Times           *int   `json:"times"`
	TimesRemaining  *int   `json:"timesRemaining"`
	Interval        string `json:"interval"`
	Description     string `json:"description"`
	MandateID       string `json:"mandateId"`
	CustomerID      string `json:"customerId"`
	WebhookURL      string `json:"webhookUrl"`
	StartDate       string `json:"startDate"`
	NextPaymentDate string `json:"nextPaymentDate"`
	CreatedAt       string `json:"createdAt"`
	Links           Links  `json:"_links"`

	Raw json.RawMessage `json:"-"`
}
