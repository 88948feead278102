package models

import (
	"time"
)

type Category struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Name       string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"name"`
	ParentID   *uint     `gorm:"index" json:"parent_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `gorm:"autoUpdateTime" json:"modified_at"`
}

func (Category) TableName() string {
	return "categories"
}

type Product struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Name           string    `gorm:"type:varchar(255);not null" json:"name"`
	Description    string    `gorm:"type:text" json:"description"`
	Price          float64   `gorm:"type:decimal(10,2);not null" json:"price"`
	CategoryID     uint      `gorm:"not null;index" json:"category_id"`
	AvailableItems int       `gorm:"not null;default:0" json:"available_items"`
	CreatedAt      time.Time `json:"created_at"`
	ModifiedAt     time.Time `gorm:"autoUpdateTime" json:"modified_at"`
}

func (Product) TableName() string {
	return "products"
}
