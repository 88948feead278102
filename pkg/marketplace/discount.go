package marketplace

import (
	"math"
	"time"

	"github.com/example/marketplace/pkg/models"
)

// BestDiscount returns the largest discount fraction among the given
// sales that are valid at the given time, visible to the user and
// applicable to the product. userID 0 means an anonymous request, which
// only sees public sales. Returns 0 when no sale applies.
func BestDiscount(sales []models.Sale, p *models.Product, userID uint, at time.Time) float64 {
	best := 0.0
	for i := range sales {
		s := &sales[i]
		if !s.ActiveAt(at) || !s.VisibleTo(userID) || !s.AppliesTo(p) {
			continue
		}
		if s.Discount > best {
			best = s.Discount
		}
	}
	return best
}

// round2 rounds a money amount to two decimal places.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// discountedPrice applies a discount fraction to a list price.
func discountedPrice(price, discount float64) float64 {
	return round2(price * (1 - discount))
}
