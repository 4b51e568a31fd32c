package mollie_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mollie-recurring/internal/mollie"
)

func validPayment() mollie.PaymentRequest {
	return mollie.PaymentRequest{
		CustomerID:   "cst_8wmqcHMN4U",
		SequenceType: mollie.SequenceFirst,
		Description:  "Test payment",
		Amount:       mollie.Amount{Currency: "EUR", Value: "10.00"},
		RedirectURL:  "https://app.goomza.co/",
	}
}

func TestCreateCustomerRequiresName(t *testing.T) {
	fake, srv := newFakeMollie(t, http.StatusCreated, `{"id":"cst_1"}`)

	_, err := newClient(srv, "development").CreateCustomer(context.Background(), mollie.CustomerRequest{Email: "a@b.c"})
	var vErr *mollie.ValidationError
	require.ErrorAs(t, err, &vErr)
	require.Equal(t, "name", vErr.Field)
	require.Empty(t, fake.calls())
}

func TestCreateCustomerEncodesMetadataAsJSON(t *testing.T) {
	fake, srv := newFakeMollie(t, http.StatusCreated, `{"resource":"customer","id":"cst_8wmqcHMN4U","name":"John Doe"}`)

	customer, err := newClient(srv, "development").CreateCustomer(context.Background(), mollie.CustomerRequest{
		Name:     "John Doe",
		Metadata: map[string]any{"foo": "bar"},
	})
	require.NoError(t, err)
	require.Equal(t, "cst_8wmqcHMN4U", customer.ID)
	require.NotEmpty(t, customer.Raw)

	calls := fake.calls()
	require.Len(t, calls, 1)
	require.Equal(t, http.MethodPost, calls[0].Method)
	require.Equal(t, "/customers", calls[0].Path)
	require.Equal(t, "application/x-www-form-urlencoded", calls[0].Header.Get("Content-Type"))
	require.Equal(t, "John Doe", calls[0].Form.Get("name"))
	require.JSONEq(t, `{"foo":"bar"}`, calls[0].Form.Get("metadata"))
}

func TestCreateCustomerOmitsNilMetadata(t *testing.T) {
	fake, srv := newFakeMollie(t, http.StatusCreated, `{"id":"cst_1"}`)

	_, err := newClient(srv, "development").CreateCustomer(context.Background(), mollie.CustomerRequest{Name: "John Doe"})
	require.NoError(t, err)
	_, present := fake.calls()[0].Form["metadata"]
	require.False(t, present)
}

func TestCreateCustomerWithoutIDIsMalformed(t *testing.T) {
	_, srv := newFakeMollie(t, http.StatusCreated, `{"resource":"customer"}`)

	_, err := newClient(srv, "development").CreateCustomer(context.Background(), mollie.CustomerRequest{Name: "John Doe"})
	var mErr *mollie.MalformedResponseError
	require.ErrorAs(t, err, &mErr)
	require.Equal(t, "id", mErr.Path)
}

func TestCreatePaymentValidatesRequiredFields(t *testing.T) {
	cases := map[string]func(*mollie.PaymentRequest){
		"customerId":      func(r *mollie.PaymentRequest) { r.CustomerID = "" },
		"sequenceType":    func(r *mollie.PaymentRequest) { r.SequenceType = "" },
		"description":     func(r *mollie.PaymentRequest) { r.Description = "" },
		"amount.currency": func(r *mollie.PaymentRequest) { r.Amount.Currency = "" },
		"amount.value":    func(r *mollie.PaymentRequest) { r.Amount.Value = "" },
	}
	for field, mutate := range cases {
		t.Run(field, func(t *testing.T) {
			fake, srv := newFakeMollie(t, http.StatusCreated, `{"id":"tr_1"}`)
			req := validPayment()
			mutate(&req)

			_, err := newClient(srv, "development").CreatePayment(context.Background(), req)
			var vErr *mollie.ValidationError
			require.ErrorAs(t, err, &vErr)
			require.Equal(t, field, vErr.Field)
			require.Empty(t, fake.calls())
		})
	}
}

func TestCreatePaymentPostsFirstSequence(t *testing.T) {
	body := `{"resource":"payment","id":"tr_WDqYK6vllg","status":"open","sequenceType":"first",
		"_links":{"checkout":{"href":"https://www.mollie.com/checkout/select-method/WDqYK6vllg","type":"text/html"}}}`
	fake, srv := newFakeMollie(t, http.StatusCreated, body)

	payment, err := newClient(srv, "development").CreatePayment(context.Background(), validPayment())
	require.NoError(t, err)

	checkout, err := payment.CheckoutURL()
	require.NoError(t, err)
	require.Equal(t, "https://www.mollie.com/checkout/select-method/WDqYK6vllg", checkout)

	call := fake.calls()[0]
	require.Equal(t, "/customers/cst_8wmqcHMN4U/payments", call.Path)
	require.Equal(t, "first", call.Form.Get("sequenceType"))
	require.Equal(t, "EUR", call.Form.Get("amount[currency]"))
	require.Equal(t, "10.00", call.Form.Get("amount[value]"))
	require.Equal(t, "https://app.goomza.co/", call.Form.Get("redirectUrl"))
	_, hasWebhook := call.Form["webhookUrl"]
	require.False(t, hasWebhook)
}

func TestCheckoutURLMissingIsMalformed(t *testing.T) {
	_, srv := newFakeMollie(t, http.StatusCreated, `{"id":"tr_1","_links":{"self":{"href":"x"}}}`)

	payment, err := newClient(srv, "development").CreatePayment(context.Background(), validPayment())
	require.NoError(t, err)

	_, err = payment.CheckoutURL()
	var mErr *mollie.MalformedResponseError
	require.ErrorAs(t, err, &mErr)
	require.Equal(t, "_links.checkout.href", mErr.Path)
}

func TestGetPaymentEscapesIDAndSendsNoContentType(t *testing.T) {
	fake, srv := newFakeMollie(t, http.StatusOK, `{"id":"tr_1","status":"paid"}`)

	payment, err := newClient(srv, "development").GetPayment(context.Background(), "tr_1/../x")
	require.NoError(t, err)
	require.True(t, payment.IsPaid())

	call := fake.calls()[0]
	require.Equal(t, http.MethodGet, call.Method)
	require.Equal(t, "/payments/tr_1%2F..%2Fx", call.Path)
	require.Empty(t, call.Header.Get("Content-Type"))
}

func TestGetPaymentRequiresID(t *testing.T) {
	fake, srv := newFakeMollie(t, http.StatusOK, `{}`)

	_, err := newClient(srv, "development").GetPayment(context.Background(), "  ")
	require.True(t, mollie.IsValidation(err))
	require.Empty(t, fake.calls())
}

func TestListMandatesFiltersValid(t *testing.T) {
	body := `{"count":2,"_embedded":{"mandates":[
		{"resource":"mandate","id":"mdt_pending","status":"pending"},
		{"resource":"mandate","id":"mdt_valid","status":"valid"}]}}`
	fake, srv := newFakeMollie(t, http.StatusOK, body)

	list, err := newClient(srv, "development").ListMandates(context.Background(), "cst_1")
	require.NoError(t, err)

	all, err := list.Mandates()
	require.NoError(t, err)
	require.Len(t, all, 2)

	valid, err := list.Valid()
	require.NoError(t, err)
	require.Len(t, valid, 1)
	require.Equal(t, "mdt_valid", valid[0].ID)
	require.Equal(t, "/customers/cst_1/mandates", fake.calls()[0].Path)
}

func TestMandateIsValidRequiresExactStatus(t *testing.T) {
	for status, want := range map[string]bool{
		"valid":   true,
		"VALID":   false,
		" valid ": false,
		"pending": false,
		"invalid": false,
		"":        false,
	} {
		require.Equal(t, want, mollie.Mandate{Status: status}.IsValid(), "status %q", status)
	}
}

func TestListMandatesWithoutEmbeddedIsMalformed(t *testing.T) {
	_, srv := newFakeMollie(t, http.StatusOK, `{"count":0}`)

	list, err := newClient(srv, "development").ListMandates(context.Background(), "cst_1")
	require.NoError(t, err)

	_, err = list.Valid()
	var mErr *mollie.MalformedResponseError
	require.ErrorAs(t, err, &mErr)
	require.Equal(t, "_embedded.mandates", mErr.Path)
}

func TestListMandatesEmptyCollectionIsNotMalformed(t *testing.T) {
	_, srv := newFakeMollie(t, http.StatusOK, `{"count":0,"_embedded":{"mandates":[]}}`)

	list, err := newClient(srv, "development").ListMandates(context.Background(), "cst_1")
	require.NoError(t, err)
	valid, err := list.Valid()
	require.NoError(t, err)
	require.Empty(t, valid)
}

func TestCreateSubscriptionSendsEmptyTimesWhenUnset(t *testing.T) {
	fake, srv := newFakeMollie(t, http.StatusCreated, `{"resource":"subscription","id":"sub_1","status":"active"}`)
	req := mollie.SubscriptionRequest{
		CustomerID:  "cst_1",
		MandateID:   "mdt_1",
		Description: "Test payment",
		WebhookURL:  "https://example.test/api/webhook",
		Amount:      mollie.Amount{Currency: "EUR", Value: "10.00"},
		Interval:    "3 months",
	}

	sub, err := newClient(srv, "development").CreateSubscription(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, "sub_1", sub.ID)

	call := fake.calls()[0]
	require.Equal(t, "/customers/cst_1/subscriptions", call.Path)
	values, present := call.Form["times"]
	require.True(t, present)
	require.Equal(t, []string{""}, values)
	require.Equal(t, "mdt_1", call.Form.Get("mandateId"))
	require.Equal(t, "3 months", call.Form.Get("interval"))

	times := 4
	req.Times = &times
	_, err = newClient(srv, "development").CreateSubscription(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, "4", fake.calls()[1].Form.Get("times"))
}

func TestCreateSubscriptionRequiresMandate(t *testing.T) {
	fake, srv := newFakeMollie(t, http.StatusCreated, `{}`)

	_, err := newClient(srv, "development").CreateSubscription(context.Background(), mollie.SubscriptionRequest{
		CustomerID: "cst_1", Description: "d", WebhookURL: "w", Interval: "1 month",
		Amount: mollie.Amount{Currency: "EUR", Value: "1.00"},
	})
	var vErr *mollie.ValidationError
	require.ErrorAs(t, err, &vErr)
	require.Equal(t, "mandateId", vErr.Field)
	require.Empty(t, fake.calls())
}

func TestNormaliseStatus(t *testing.T) {
	cases := map[string]string{
		"paid":       mollie.StatusPaid,
		" Open ":     mollie.StatusOpen,
		"authorized": mollie.StatusPending,
		"failed":     mollie.StatusFailed,
		"expired":    mollie.StatusExpired,
		"canceled":   mollie.StatusCanceled,
		"bogus":      mollie.StatusUnknown,
	}
	for in, want := range cases {
		require.Equal(t, want, mollie.NormaliseStatus(in), in)
	}
}
