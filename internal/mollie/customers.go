package mollie

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
)

// CreateCustomer registers a customer. Metadata is sent as a JSON document in
// a single form value and omitted when nil.
func (c *Client) CreateCustomer(ctx context.Context, req CustomerRequest) (Customer, error) {
	if err := c.check(OpCreateCustomer, req); err != nil {
		return Customer{}, err
	}
	form := url.Values{}
	form.Set("name", req.Name)
	form.Set("email", req.Email)
	form.Set("locale", req.Locale)
	if req.Metadata != nil {
		encoded, err := json.Marshal(req.Metadata)
		if err != nil {
			return Customer{}, &ValidationError{Op: OpCreateCustomer, Field: "metadata", Err: err}
		}
		form.Set("metadata", string(encoded))
	}

	var customer Customer
	raw, err := c.do(ctx, OpCreateCustomer, http.MethodPost, "/customers", form, &customer)
	if err != nil {
		return Customer{}, err
	}
	if customer.ID == "" {
		return Customer{}, &MalformedResponseError{Op: OpCreateCustomer, Path: "id"}
	}
	customer.Raw = raw
	return customer, nil
}
