package client

import (
	"context"
	"net/http"
)

const (
	PaymentCOD    = "COD"
	PaymentOnline = "ONLINE"
)

type PlaceOrderInput struct {
	AddressID     string `json:"addressId"`
	CouponCode    string `json:"couponCode,omitempty"`
	PaymentMethod string `json:"paymentMethod"`
}

func (c *Client) ordersPath(ctx context.Context) (string, error) {
	uid, err := c.userID(ctx)
	if err != nil {
		return "", err
	}
	return "/order/user/" + escape(uid), nil
}

// PlaceOrder turns the current cart into an order. PaymentMethod defaults to COD.
func (c *Client) PlaceOrder(ctx context.Context, in PlaceOrderInput) (*Order, error) {
	path, err := c.ordersPath(ctx)
	if err != nil {
		return nil, err
	}
	if in.PaymentMethod == "" {
		in.PaymentMethod = PaymentCOD
	}
	r, err := newRequest(http.MethodPost, path+"/place-order", in)
	if err != nil {
		return nil, err
	}
	return callObject[Order](ctx, c, r)
}

func (c *Client) Orders(ctx context.Context) ([]Order, error) {
	path, err := c.ordersPath(ctx)
	if err != nil {
		return nil, err
	}
	r, _ := newRequest(http.MethodGet, path+"/orders", nil)
	return call[[]Order](ctx, c, r)
}

func (c *Client) Order(ctx context.Context, id string) (*Order, error) {
	path, err := c.ordersPath(ctx)
	if err != nil {
		return nil, err
	}
	r, _ := newRequest(http.MethodGet, path+"/orders/"+escape(id), nil)
	return callObject[Order](ctx, c, r)
}
