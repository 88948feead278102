package models

import (
	"time"
)

// Sale is a time-bounded discount on a set of products or whole
// categories. A non-public ("closed") sale is visible only to the users
// explicitly allowed on it.
type Sale struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	Name             string     `gorm:"type:varchar(255);not null" json:"name"`
	Discount         float64    `gorm:"type:decimal(4,2);not null" json:"discount"` // fraction of the list price, (0, 1]
	Public           bool       `gorm:"not null;default:true" json:"public"`
	AnnouncementDate time.Time  `json:"announcement_date"`
	StartDate        time.Time  `gorm:"index" json:"start_date"`
	EndDate          time.Time  `gorm:"index" json:"end_date"`
	WasAnnounced     bool       `gorm:"not null;default:false" json:"was_announced"`
	Products         []Product  `gorm:"many2many:sale_products" json:"-"`
	Categories       []Category `gorm:"many2many:sale_categories" json:"-"`
	AllowedUsers     []User     `gorm:"many2many:sale_users" json:"-"`
	CreatedAt        time.Time  `json:"created_at"`
}

func (Sale) TableName() string {
	return "sales"
}

// ActiveAt reports whether the sale's validity window covers t.
func (s *Sale) ActiveAt(t time.Time) bool {
	return !t.Before(s.StartDate) && !t.After(s.EndDate)
}

// VisibleTo reports whether the sale may be shown to the given user.
// userID 0 means an anonymous request.
func (s *Sale) VisibleTo(userID uint) bool {
	if s.Public {
		return true
	}
	for _, u := range s.AllowedUsers {
		if u.ID == userID {
			return true
		}
	}
	return false
}

// AppliesTo reports whether the sale covers the product, either directly
// or through the product's category.
func (s *Sale) AppliesTo(p *Product) bool {
	for _, sp := range s.Products {
		if sp.ID == p.ID {
			return true
		}
	}
	for _, c := range s.Categories {
		if c.ID == p.CategoryID {
			return true
		}
	}
	return false
}
