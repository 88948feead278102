package marketplace

import (
	"context"
	"time"

	"github.com/example/marketplace/pkg/models"
	"github.com/example/marketplace/pkg/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderEngine converts a bucket into an immutable order. The whole
// read-validate-decrement sequence runs in one transaction: either the
// order, every stock decrement and the bucket wipe commit together, or
// none of them do.
type OrderEngine struct {
	store  repository.Store
	cache  *repository.RedisRepository
	audit  *repository.MongoRepository
	logger *zap.Logger
}

// NewOrderEngine wires the engine. cache and audit may be nil; both are
// best-effort side channels outside the transactional core.
func NewOrderEngine(store repository.Store, cache *repository.RedisRepository, audit *repository.MongoRepository, logger *zap.Logger) *OrderEngine {
	return &OrderEngine{store: store, cache: cache, audit: audit, logger: logger}
}

// Create finalizes the user's bucket into an order.
func (e *OrderEngine) Create(ctx context.Context, userID uint) (*models.Order, error) {
	now := time.Now()
	var order *models.Order

	err := e.store.WithTx(ctx, func(tx repository.Store) error {
		bucket, err := tx.GetOrCreateBucket(ctx, userID)
		if err != nil {
			return err
		}
		// Items come back ordered by product id, which keeps the lock
		// acquisition order identical across concurrent orders.
		items, err := tx.ListBucketItems(ctx, bucket.ID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return ErrEmptyBucket
		}

		sales, err := tx.ListActiveSales(ctx, now)
		if err != nil {
			return err
		}

		orderItems := make([]models.OrderItem, 0, len(items))
		total := 0.0
		for _, item := range items {
			p, err := tx.LockProduct(ctx, item.ProductID)
			if err != nil {
				return err
			}
			if p.AvailableItems < item.Quantity {
				return &InsufficientStockError{
					ProductID: p.ID,
					Name:      p.Name,
					Available: p.AvailableItems,
				}
			}

			d := BestDiscount(sales, p, userID, now)
			unit := discountedPrice(p.Price, d)
			orderItems = append(orderItems, models.OrderItem{
				ProductID: p.ID,
				Name:      p.Name,
				UnitPrice: unit,
				Discount:  d,
				Quantity:  item.Quantity,
			})
			total += unit * float64(item.Quantity)
		}

		order = &models.Order{
			ID:        uuid.NewString(),
			UserID:    userID,
			Total:     round2(total),
			Items:     orderItems,
			CreatedAt: now,
		}
		if err := tx.CreateOrder(ctx, order); err != nil {
			return err
		}
		for _, item := range items {
			if err := tx.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}
		return tx.ClearBucket(ctx, bucket.ID)
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("Order created",
		zap.String("order_id", order.ID),
		zap.Uint("user_id", userID),
		zap.Float64("total", order.Total),
		zap.Int("item_count", len(order.Items)))

	if e.cache != nil {
		if err := e.cache.CacheOrder(ctx, order); err != nil {
			e.logger.Warn("Failed to cache order", zap.String("order_id", order.ID), zap.Error(err))
		}
	}
	if e.audit != nil {
		go func(o *models.Order) {
			if err := e.audit.RecordOrderCreated(context.Background(), o); err != nil {
				e.logger.Warn("Failed to write audit log", zap.String("order_id", o.ID), zap.Error(err))
			}
		}(order)
	}

	return order, nil
}

// Get returns one of the user's orders, serving from cache when warm.
func (e *OrderEngine) Get(ctx context.Context, userID uint, orderID string) (*models.Order, error) {
	if e.cache != nil {
		if order, err := e.cache.GetOrderCache(ctx, orderID); err == nil && order.UserID == userID {
			return order, nil
		}
	}

	order, err := e.store.GetOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if e.cache != nil {
		if err := e.cache.CacheOrder(ctx, order); err != nil {
			e.logger.Warn("Failed to cache order", zap.String("order_id", order.ID), zap.Error(err))
		}
	}
	return order, nil
}

// List returns the user's orders, newest first.
func (e *OrderEngine) List(ctx context.Context, userID uint) ([]models.Order, error) {
	return e.store.ListOrders(ctx, userID)
}
