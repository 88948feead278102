package repository

import (
	"context"
	"errors"
	"time"

	"github.com/example/marketplace/pkg/models"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrInsufficientStock is returned by DecrementStock when the guarded
	// update would drive available_items below zero.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrDuplicate is returned when a uniqueness constraint would be
	// violated, e.g. registering an already-used email.
	ErrDuplicate = errors.New("duplicate record")
)

// ProductQuery narrows and orders a product listing. SortField must
// already be validated against the allowed sort columns.
type ProductQuery struct {
	CategoryIDs       []uint
	ExcludeCategories bool
	SortField         string
	SortDesc          bool
	Offset            int
	Limit             int
}

// Store is the persistence boundary the services depend on. The order
// engine runs its critical section inside WithTx; LockProduct and
// DecrementStock are only meaningful within that scope.
type Store interface {
	// WithTx runs fn inside a transaction. The Store handed to fn sees
	// uncommitted writes; any error rolls the whole unit back.
	WithTx(ctx context.Context, fn func(tx Store) error) error

	// Catalog.
	CreateCategory(ctx context.Context, c *models.Category) error
	CreateProduct(ctx context.Context, p *models.Product) error
	CreateSale(ctx context.Context, s *models.Sale) error
	ListProducts(ctx context.Context, q ProductQuery) ([]models.Product, error)
	CountProducts(ctx context.Context, q ProductQuery) (int64, error)
	GetProduct(ctx context.Context, id uint) (*models.Product, error)
	LockProduct(ctx context.Context, id uint) (*models.Product, error)
	DecrementStock(ctx context.Context, productID uint, qty int) error
	ListActiveSales(ctx context.Context, at time.Time) ([]models.Sale, error)
	ListUnannouncedSales(ctx context.Context, at time.Time) ([]models.Sale, error)
	MarkSaleAnnounced(ctx context.Context, saleID uint) error

	// Bucket.
	GetOrCreateBucket(ctx context.Context, userID uint) (*models.Bucket, error)
	ListBucketItems(ctx context.Context, bucketID uint) ([]models.BucketItem, error)
	GetBucketItem(ctx context.Context, bucketID, productID uint) (*models.BucketItem, error)
	SaveBucketItem(ctx context.Context, item *models.BucketItem) error
	DeleteBucketItem(ctx context.Context, bucketID, productID uint) error
	ClearBucket(ctx context.Context, bucketID uint) error

	// Orders.
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, userID uint, orderID string) (*models.Order, error)
	ListOrders(ctx context.Context, userID uint) ([]models.Order, error)

	// Users and tokens.
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id uint) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListActiveUserEmails(ctx context.Context) ([]string, error)
	CreateToken(ctx context.Context, t *models.Token) error
	GetToken(ctx context.Context, key string) (*models.Token, error)
}
