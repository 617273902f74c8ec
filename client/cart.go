package client

import (
	"context"
	"net/http"
)

type cartItemInput struct {
	ProductID string `json:"productId,omitempty"`
	Quantity  int    `json:"quantity"`
}

type couponInput struct {
	Code   string `json:"code"`
	UserID string `json:"uid"`
}

func (c *Client) cartPath(ctx context.Context) (string, error) {
	uid, err := c.userID(ctx)
	if err != nil {
		return "", err
	}
	return "/cart/" + escape(uid), nil
}

func (c *Client) Cart(ctx context.Context) (*Cart, error) {
	path, err := c.cartPath(ctx)
	if err != nil {
		return nil, err
	}
	r, _ := newRequest(http.MethodGet, path, nil)
	cart, err := call[*Cart](ctx, c, r)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		cart = &Cart{}
	}
	return cart, nil
}

func (c *Client) AddToCart(ctx context.Context, productID string, quantity int) (*Cart, error) {
	path, err := c.cartPath(ctx)
	if err != nil {
		return nil, err
	}
	r, err := newRequest(http.MethodPost, path+"/items", cartItemInput{ProductID: productID, Quantity: quantity})
	if err != nil {
		return nil, err
	}
	return c.updateCart(ctx, r)
}

func (c *Client) UpdateCartItem(ctx context.Context, productID string, quantity int) (*Cart, error) {
	path, err := c.cartPath(ctx)
	if err != nil {
		return nil, err
	}
	r, err := newRequest(http.MethodPut, path+"/items/"+escape(productID), cartItemInput{Quantity: quantity})
	if err != nil {
		return nil, err
	}
	return c.updateCart(ctx, r)
}

func (c *Client) RemoveFromCart(ctx context.Context, productID string) (*Cart, error) {
	path, err := c.cartPath(ctx)
	if err != nil {
		return nil, err
	}
	r, _ := newRequest(http.MethodDelete, path+"/items/"+escape(productID), nil)
	return c.updateCart(ctx, r)
}

func (c *Client) ApplyCoupon(ctx context.Context, code string) (*Cart, error) {
	uid, err := c.userID(ctx)
	if err != nil {
		return nil, err
	}
	r, err := newRequest(http.MethodPost, "/coupons/apply", couponInput{Code: code, UserID: uid})
	if err != nil {
		return nil, err
	}
	return c.updateCart(ctx, r)
}

func (c *Client) RemoveCoupon(ctx context.Context) (*Cart, error) {
	uid, err := c.userID(ctx)
	if err != nil {
		return nil, err
	}
	r, _ := newRequest(http.MethodDelete, "/coupons/"+escape(uid)+"/remove", nil)
	return c.updateCart(ctx, r)
}

// updateCart sends a cart mutation. Some endpoints acknowledge without
// echoing the cart, in which case it is fetched again.
func (c *Client) updateCart(ctx context.Context, r *request) (*Cart, error) {
	cart, err := call[*Cart](ctx, c, r)
	if err != nil || cart != nil {
		return cart, err
	}
	return c.Cart(ctx)
}
