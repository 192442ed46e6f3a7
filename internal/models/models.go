package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	OrderStatusPending = "pending"
	OrderStatusPaid    = "paid"
	OrderStatusFailed  = "failed"
)

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string    `gorm:"uniqueIndex;not null"     json:"username"`
	Email        string    `gorm:"uniqueIndex;not null"     json:"email"`
	PasswordHash string    `gorm:"not null"                 json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

type Product struct {
	ID          uint            `gorm:"primaryKey;autoIncrement"           json:"id"`
	Name        string          `gorm:"not null"                           json:"name"`
	Description *string         `json:"description"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null"        json:"price"`
	Stock       int             `gorm:"not null;default:0;check:stock>=0"  json:"stock"`
	CreatedBy   uint            `gorm:"index;not null"                     json:"created_by"`
	CreatedAt   time.Time       `json:"created_at"`
}

type Cart struct {
	ID     uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID uint       `gorm:"uniqueIndex;not null"     json:"user_id"`
	Items  []CartItem `gorm:"foreignKey:CartID"        json:"items,omitempty"`
}

// CartItem has no association to Product: a product may be deleted while
// still referenced by a cart, which checkout reports as a vanished product.
type CartItem struct {
	ID        uint `gorm:"primaryKey;autoIncrement"                json:"id"`
	CartID    uint `gorm:"uniqueIndex:idx_cart_product;not null"   json:"cart_id"`
	ProductID uint `gorm:"uniqueIndex:idx_cart_product;not null"   json:"product_id"`
	Quantity  int  `gorm:"not null;default:1;check:quantity>0"     json:"quantity"`
}

type Order struct {
	ID            uint            `gorm:"primaryKey;autoIncrement"     json:"id"`
	UserID        uint            `gorm:"index;not null"               json:"user_id"`
	TotalPrice    decimal.Decimal `gorm:"type:numeric(12,2);not null"  json:"total_price"`
	Status        string          `gorm:"not null;default:pending"     json:"status"`
	TransactionID string          `gorm:"index"                        json:"transaction_id,omitempty"`
	PaymentURL    string          `json:"payment_url,omitempty"`
	CreatedAt     time.Time       `gorm:"index"                        json:"created_at"`
	Items         []OrderItem     `gorm:"foreignKey:OrderID"           json:"items,omitempty"`
}

// OrderItem is a frozen copy of the product taken at purchase time.
type OrderItem struct {
	ID           uint            `gorm:"primaryKey;autoIncrement"     json:"id"`
	OrderID      uint            `gorm:"index;not null"               json:"order_id"`
	ProductID    uint            `gorm:"not null"                     json:"product_id"`
	ProductName  string          `gorm:"not null"                     json:"product_name"`
	ProductPrice decimal.Decimal `gorm:"type:numeric(12,2);not null"  json:"product_price"`
	Quantity     int             `gorm:"not null;check:quantity>0"    json:"quantity"`
}

func All() []any {
	return []any{&User{}, &Product{}, &Cart{}, &CartItem{}, &Order{}, &OrderItem{}}
}
