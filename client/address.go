package client

import (
	"context"
	"net/http"
)

// AddressInput is the payload for a new shipping address.
type AddressInput struct {
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Line1     string `json:"line1"`
	Line2     string `json:"line2,omitempty"`
	City      string `json:"city"`
	State     string `json:"state"`
	Pincode   string `json:"pincode"`
	IsDefault bool   `json:"isDefault"`
}

func (c *Client) Addresses(ctx context.Context) ([]Address, error) {
	r, _ := newRequest(http.MethodGet, "/addresses", nil)
	return call[[]Address](ctx, c, r)
}

func (c *Client) AddAddress(ctx context.Context, in AddressInput) (*Address, error) {
	r, err := newRequest(http.MethodPost, "/addresses", in)
	if err != nil {
		return nil, err
	}
	return callObject[Address](ctx, c, r)
}

func (c *Client) DeleteAddress(ctx context.Context, id string) error {
	r, _ := newRequest(http.MethodDelete, "/addresses/"+escape(id), nil)
	_, err := call[any](ctx, c, r)
	return err
}

func (c *Client) SetDefaultAddress(ctx context.Context, id string) (*Address, error) {
	r, _ := newRequest(http.MethodPut, "/addresses/"+escape(id)+"/default", nil)
	return callObject[Address](ctx, c, r)
}
