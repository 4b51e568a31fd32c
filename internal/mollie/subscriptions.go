package mollie

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// CreateSubscription schedules recurring charges against a valid mandate.
// times is sent as an empty string when unset, meaning no end.
func (c *Client) CreateSubscription(ctx context.Context, req SubscriptionRequest) (Subscription, error) {
	if err := c.check(OpCreateSubscription, req); err != nil {
		return Subscription{}, err
	}
	times := ""
	if req.Times != nil {
		times = strconv.Itoa(*req.Times)
	}
	form := url.Values{}
	form.Set("amount[currency]", req.Amount.Currency)
	form.Set("amount[value]", req.Amount.Value)
	form.Set("interval", req.Interval)
	form.Set("description", req.Description)
	form.Set("times", times)
	form.Set("webhookUrl", req.WebhookURL)
	form.Set("mandateId", req.MandateID)

	var sub Subscription
	raw, err := c.do(ctx, OpCreateSubscription, http.MethodPost, "/customers/"+pathSegment(req.CustomerID)+"/subscriptions", form, &sub)
	if err != nil {
		return Subscription{}, err
	}
	sub.Raw = raw
	return sub, nil
}
