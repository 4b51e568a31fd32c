package mollie

import (
	"context"
	"net/http"
	"strings"
)

// ListMandates returns the customer's mandates. The collection is read with
// MandateList.Mandates or MandateList.Valid.
func (c *Client) ListMandates(ctx context.Context, customerID string) (MandateList, error) {
	if strings.TrimSpace(customerID) == "" {
		return MandateList{}, &ValidationError{Op: OpListMandates, Field: "customerId"}
	}
	var list MandateList
	raw, err := c.do(ctx, OpListMandates, http.MethodGet, "/customers/"+pathSegment(customerID)+"/mandates", nil, &list)
	if err != nil {
		return MandateList{}, err
	}
	list.Raw = raw
	return list, nil
}
