package client

import "time"

type User struct {
	UID   string `json:"uid"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

type Category struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	Image    string `json:"image,omitempty"`
	ParentID string `json:"parentId,omitempty"`
}

type Product struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Slug        string   `json:"slug"`
	Description string   `json:"description,omitempty"`
	Price       float64  `json:"price"`
	SalePrice   float64  `json:"salePrice,omitempty"`
	Stock       int      `json:"stock"`
	CategoryID  string   `json:"categoryId"`
	Images      []string `json:"images,omitempty"`
}

// EffectivePrice is the sale price when one is set, the list price otherwise.
func (p Product) EffectivePrice() float64 {
	if p.SalePrice > 0 && p.SalePrice < p.Price {
		return p.SalePrice
	}
	return p.Price
}

type ProductPage struct {
	Products []Product `json:"products"`
	Page     int       `json:"page"`
	Limit    int       `json:"limit"`
	Total    int       `json:"total"`
}

// HasMore reports whether pages after this one exist.
func (p *ProductPage) HasMore() bool {
	if len(p.Products) == 0 || p.Limit <= 0 {
		return false
	}
	return p.Page*p.Limit < p.Total
}

type CartItem struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	Image     string  `json:"image,omitempty"`
}

type Coupon struct {
	Code          string  `json:"code"`
	DiscountType  string  `json:"discountType"`
	DiscountValue float64 `json:"discountValue"`
	MinOrder      float64 `json:"minOrder,omitempty"`
}

type Cart struct {
	UserID   string     `json:"uid"`
	Items    []CartItem `json:"items"`
	Coupon   *Coupon    `json:"coupon,omitempty"`
	Discount float64    `json:"discount"`
}

func (c *Cart) Subtotal() float64 {
	var sum float64
	for _, it := range c.Items {
		sum += it.Price * float64(it.Quantity)
	}
	return sum
}

// Total is the subtotal minus the discount, never below zero.
func (c *Cart) Total() float64 {
	return max(c.Subtotal()-c.Discount, 0)
}

type Address struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Line1     string `json:"line1"`
	Line2     string `json:"line2,omitempty"`
	City      string `json:"city"`
	State     string `json:"state"`
	Pincode   string `json:"pincode"`
	IsDefault bool   `json:"isDefault"`
}

type Order struct {
	ID            string     `json:"id"`
	UserID        string     `json:"uid"`
	Items         []CartItem `json:"items"`
	AddressID     string     `json:"addressId"`
	CouponCode    string     `json:"couponCode,omitempty"`
	Subtotal      float64    `json:"subtotal"`
	Discount      float64    `json:"discount"`
	Total         float64    `json:"total"`
	Status        string     `json:"status"`
	PaymentMethod string     `json:"paymentMethod"`
	CreatedAt     time.Time  `json:"createdAt"`
}

type FAQ struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type Policy struct {
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Contact struct {
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Hours   string `json:"hours,omitempty"`
}
