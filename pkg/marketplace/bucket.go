package marketplace

import (
	"context"
	"time"

	"github.com/example/marketplace/pkg/models"
	"github.com/example/marketplace/pkg/repository"
	"go.uber.org/zap"
)

// BucketService manages a user's in-progress item collection. None of
// its operations touch stock; stock only changes at order creation.
type BucketService struct {
	store  repository.Store
	logger *zap.Logger
}

func NewBucketService(store repository.Store, logger *zap.Logger) *BucketService {
	return &BucketService{store: store, logger: logger}
}

// BucketLine is one bucket row joined with the current product state.
// UnitPrice reflects the best currently-valid sale visible to the owner.
type BucketLine struct {
	ProductID uint    `json:"id"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  int     `json:"number"`
	LineTotal float64 `json:"line_total"`
}

type BucketView struct {
	Total float64      `json:"total"`
	Items []BucketLine `json:"products"`
}

// Add puts qty units of a product into the user's bucket. If the
// product is already there the existing line is incremented; there is
// never more than one line per product.
func (s *BucketService) Add(ctx context.Context, userID, productID uint, qty int) (*BucketView, error) {
	if qty <= 0 {
		return nil, validationErrorf("number must be a positive integer")
	}

	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		if _, err := tx.GetProduct(ctx, productID); err != nil {
			return err
		}
		bucket, err := tx.GetOrCreateBucket(ctx, userID)
		if err != nil {
			return err
		}
		item, err := tx.GetBucketItem(ctx, bucket.ID, productID)
		switch {
		case err == nil:
			item.Quantity += qty
		case err == repository.ErrNotFound:
			item = &models.BucketItem{BucketID: bucket.ID, ProductID: productID, Quantity: qty}
		default:
			return err
		}
		return tx.SaveBucketItem(ctx, item)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Product added to bucket",
		zap.Uint("user_id", userID),
		zap.Uint("product_id", productID),
		zap.Int("number", qty))

	return s.View(ctx, userID)
}

// Update sets a line to an exact quantity. A quantity of zero or less
// removes the line.
func (s *BucketService) Update(ctx context.Context, userID, productID uint, qty int) (*BucketView, error) {
	if qty <= 0 {
		return s.Remove(ctx, userID, productID)
	}

	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		bucket, err := tx.GetOrCreateBucket(ctx, userID)
		if err != nil {
			return err
		}
		item, err := tx.GetBucketItem(ctx, bucket.ID, productID)
		if err != nil {
			return err
		}
		item.Quantity = qty
		return tx.SaveBucketItem(ctx, item)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Bucket product updated",
		zap.Uint("user_id", userID),
		zap.Uint("product_id", productID),
		zap.Int("number", qty))

	return s.View(ctx, userID)
}

// Remove deletes the product's line from the bucket. Removing a product
// that is not there reports repository.ErrNotFound.
func (s *BucketService) Remove(ctx context.Context, userID, productID uint) (*BucketView, error) {
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		bucket, err := tx.GetOrCreateBucket(ctx, userID)
		if err != nil {
			return err
		}
		return tx.DeleteBucketItem(ctx, bucket.ID, productID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Product removed from bucket",
		zap.Uint("user_id", userID),
		zap.Uint("product_id", productID))

	return s.View(ctx, userID)
}

// View returns the bucket joined with current product names and prices,
// plus the computed total.
func (s *BucketService) View(ctx context.Context, userID uint) (*BucketView, error) {
	bucket, err := s.store.GetOrCreateBucket(ctx, userID)
	if err != nil {
		return nil, err
	}
	items, err := s.store.ListBucketItems(ctx, bucket.ID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	sales, err := s.store.ListActiveSales(ctx, now)
	if err != nil {
		return nil, err
	}

	view := &BucketView{Items: make([]BucketLine, 0, len(items))}
	for _, item := range items {
		p, err := s.store.GetProduct(ctx, item.ProductID)
		if err != nil {
			return nil, err
		}
		unit := discountedPrice(p.Price, BestDiscount(sales, p, userID, now))
		line := BucketLine{
			ProductID: p.ID,
			Name:      p.Name,
			UnitPrice: unit,
			Quantity:  item.Quantity,
			LineTotal: round2(unit * float64(item.Quantity)),
		}
		view.Items = append(view.Items, line)
		view.Total = round2(view.Total + line.LineTotal)
	}
	return view, nil
}
