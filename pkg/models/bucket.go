package models

import (
	"time"
)

// Bucket is a user's in-progress item collection. It is cleared when an
// order is created from it.
type Bucket struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (Bucket) TableName() string {
	return "buckets"
}

// BucketItem is one product line in a bucket. There is at most one row
// per (bucket, product); quantity is always positive.
type BucketItem struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	BucketID  uint `gorm:"not null;uniqueIndex:ux_bucket_product" json:"bucket_id"`
	ProductID uint `gorm:"not null;uniqueIndex:ux_bucket_product" json:"product_id"`
	Quantity  int  `gorm:"not null" json:"quantity"`
}

func (BucketItem) TableName() string {
	return "bucket_items"
}
