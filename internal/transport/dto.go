package transport

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/util"
)

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresAt   int64  `json:"expires_at"`
}

type CreateProductRequest struct {
	Name        string          `json:"name"`
	Description *string         `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
}

// PatchProductRequest only touches the fields that are present in the body.
type PatchProductRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock"`
}

type AddToCartRequest struct {
	ProductID uint `json:"product_id"`
	// Quantity defaults to 1 when omitted.
	Quantity *int `json:"quantity"`
}

type CartLine struct {
	ID           uint            `json:"id"`
	ProductID    uint            `json:"product_id"`
	ProductName  string          `json:"product_name"`
	ProductPrice decimal.Decimal `json:"product_price"`
	Quantity     int             `json:"quantity"`
	Subtotal     decimal.Decimal `json:"subtotal"`
}

type CartView struct {
	Items      []CartLine      `json:"items"`
	TotalPrice decimal.Decimal `json:"total_price"`
	ItemCount  int             `json:"item_count"`
}

type CheckoutResponse struct {
	OrderID    uint   `json:"order_id"`
	Status     string `json:"status"`
	PaymentURL string `json:"payment_url"`
	Message    string `json:"message"`
}

type OrderLine struct {
	ID           uint            `json:"id"`
	ProductID    uint            `json:"product_id"`
	ProductName  string          `json:"product_name"`
	ProductPrice decimal.Decimal `json:"product_price"`
	Quantity     int             `json:"quantity"`
	Subtotal     decimal.Decimal `json:"subtotal"`
}

type OrderView struct {
	ID         uint            `json:"id"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Status     string          `json:"status"`
	Items      []OrderLine     `json:"items"`
	CreatedAt  time.Time       `json:"created_at"`
}

type WebhookRequest struct {
	OrderID FlexibleID `json:"order_id"`
	Status  string     `json:"status"`
}

// FlexibleID accepts an id sent either as a JSON number or as a numeric
// string. Anything else decodes to zero.
type FlexibleID uint

func (f *FlexibleID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = 0
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		b = []byte(s)
	}
	n, err := strconv.ParseUint(string(b), 10, 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = FlexibleID(n)
	return nil
}

type ProductListResponse struct {
	Items []models.Product `json:"items"`
	Meta  util.Meta        `json:"meta"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
