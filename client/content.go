package client

import (
	"context"
	"net/http"
)

// ContactMessage is a submission of the storefront contact form.
type ContactMessage struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject,omitempty"`
	Message string `json:"message"`
}

func (c *Client) FAQs(ctx context.Context) ([]FAQ, error) {
	r, _ := newRequest(http.MethodGet, "/faq", nil)
	return call[[]FAQ](ctx, c, r)
}

// Policy fetches a legal page: privacy, terms, refund or shipping.
func (c *Client) Policy(ctx context.Context, policyType string) (*Policy, error) {
	r, _ := newRequest(http.MethodGet, "/policies/type/"+escape(policyType), nil)
	return callObject[Policy](ctx, c, r)
}

func (c *Client) ActiveContact(ctx context.Context) (*Contact, error) {
	r, _ := newRequest(http.MethodGet, "/contact/active", nil)
	return callObject[Contact](ctx, c, r)
}

func (c *Client) SendContactMessage(ctx context.Context, msg ContactMessage) error {
	r, err := newRequest(http.MethodPost, "/contact", msg)
	if err != nil {
		return err
	}
	_, err = call[any](ctx, c, r)
	return err
}
