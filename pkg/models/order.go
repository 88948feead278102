package models

import (
	"time"
)

// Order is an immutable record of a finalized purchase. The total is
// stored redundantly so later product price changes never affect it.
type Order struct {
	ID        string      `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID    uint        `gorm:"not null;index" json:"user_id"`
	Total     float64     `gorm:"type:decimal(10,2);not null" json:"total"`
	Items     []OrderItem `gorm:"foreignKey:OrderID" json:"items"`
	CreatedAt time.Time   `json:"created_at"`
}

func (Order) TableName() string {
	return "orders"
}

// OrderItem freezes product identity, the unit price actually paid and
// the quantity at order-creation time.
type OrderItem struct {
	ID        uint    `gorm:"primaryKey" json:"-"`
	OrderID   string  `gorm:"type:varchar(36);not null;index" json:"-"`
	ProductID uint    `gorm:"not null" json:"product_id"`
	Name      string  `gorm:"type:varchar(255);not null" json:"name"`
	UnitPrice float64 `gorm:"type:decimal(10,2);not null" json:"price"`
	Discount  float64 `gorm:"type:decimal(4,2);not null;default:0" json:"discount"`
	Quantity  int     `gorm:"not null" json:"number"`
}

func (OrderItem) TableName() string {
	return "order_items"
}
