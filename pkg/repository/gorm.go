package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/marketplace/pkg/config"
	"github.com/example/marketplace/pkg/models"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore is the MySQL-backed Store.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(cfg *config.MySQLConfig) (*GormStore, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MySQL: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sql.DB: %w", err)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	if err := db.AutoMigrate(
		&models.Category{},
		&models.Product{},
		&models.Sale{},
		&models.Bucket{},
		&models.BucketItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.User{},
		&models.Token{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return &GormStore{db: db}, nil
}

func (s *GormStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func (s *GormStore) CreateCategory(ctx context.Context, c *models.Category) error {
	return s.db.WithContext(ctx).Create(c).Error
}

func (s *GormStore) CreateProduct(ctx context.Context, p *models.Product) error {
	return s.db.WithContext(ctx).Create(p).Error
}

func (s *GormStore) CreateSale(ctx context.Context, sale *models.Sale) error {
	return s.db.WithContext(ctx).Create(sale).Error
}

func (s *GormStore) productQuery(ctx context.Context, q ProductQuery) *gorm.DB {
	db := s.db.WithContext(ctx).Model(&models.Product{})
	if len(q.CategoryIDs) > 0 {
		if q.ExcludeCategories {
			db = db.Where("category_id NOT IN ?", q.CategoryIDs)
		} else {
			db = db.Where("category_id IN ?", q.CategoryIDs)
		}
	}
	return db
}

func (s *GormStore) ListProducts(ctx context.Context, q ProductQuery) ([]models.Product, error) {
	db := s.productQuery(ctx, q)

	// SortField is whitelisted by the catalog service before it gets here.
	if q.SortField != "" {
		db = db.Order(clause.OrderByColumn{
			Column: clause.Column{Name: q.SortField},
			Desc:   q.SortDesc,
		})
	} else {
		db = db.Order("name")
	}

	if q.Offset > 0 {
		db = db.Offset(q.Offset)
	}
	if q.Limit > 0 {
		db = db.Limit(q.Limit)
	}

	var products []models.Product
	if err := db.Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (s *GormStore) CountProducts(ctx context.Context, q ProductQuery) (int64, error) {
	var total int64
	if err := s.productQuery(ctx, q).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (s *GormStore) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	var p models.Product
	if err := s.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

// LockProduct acquires a row-level lock on the product. Only meaningful
// inside WithTx; concurrent order creation serializes on these locks.
func (s *GormStore) LockProduct(ctx context.Context, id uint) (*models.Product, error) {
	var p models.Product
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&p, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

// DecrementStock performs a guarded decrement so available_items can
// never go negative even if a caller skipped LockProduct.
func (s *GormStore) DecrementStock(ctx context.Context, productID uint, qty int) error {
	res := s.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND available_items >= ?", productID, qty).
		UpdateColumn("available_items", gorm.Expr("available_items - ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInsufficientStock
	}
	return nil
}

func (s *GormStore) salesBase(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Preload("Products").
		Preload("Categories").
		Preload("AllowedUsers")
}

func (s *GormStore) ListActiveSales(ctx context.Context, at time.Time) ([]models.Sale, error) {
	var sales []models.Sale
	err := s.salesBase(ctx).
		Where("start_date <= ? AND end_date >= ?", at, at).
		Find(&sales).Error
	if err != nil {
		return nil, err
	}
	return sales, nil
}

func (s *GormStore) ListUnannouncedSales(ctx context.Context, at time.Time) ([]models.Sale, error) {
	var sales []models.Sale
	err := s.salesBase(ctx).
		Where("was_announced = ? AND announcement_date <= ?", false, at).
		Find(&sales).Error
	if err != nil {
		return nil, err
	}
	return sales, nil
}

func (s *GormStore) MarkSaleAnnounced(ctx context.Context, saleID uint) error {
	res := s.db.WithContext(ctx).
		Model(&models.Sale{}).
		Where("id = ?", saleID).
		Update("was_announced", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) GetOrCreateBucket(ctx context.Context, userID uint) (*models.Bucket, error) {
	var bucket models.Bucket
	err := s.db.WithContext(ctx).
		Where(models.Bucket{UserID: userID}).
		FirstOrCreate(&bucket).Error
	if err != nil {
		return nil, err
	}
	return &bucket, nil
}

func (s *GormStore) ListBucketItems(ctx context.Context, bucketID uint) ([]models.BucketItem, error) {
	var items []models.BucketItem
	err := s.db.WithContext(ctx).
		Where("bucket_id = ?", bucketID).
		Order("product_id").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *GormStore) GetBucketItem(ctx context.Context, bucketID, productID uint) (*models.BucketItem, error) {
	var item models.BucketItem
	err := s.db.WithContext(ctx).
		Where("bucket_id = ? AND product_id = ?", bucketID, productID).
		First(&item).Error
	if err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

func (s *GormStore) SaveBucketItem(ctx context.Context, item *models.BucketItem) error {
	return s.db.WithContext(ctx).Save(item).Error
}

func (s *GormStore) DeleteBucketItem(ctx context.Context, bucketID, productID uint) error {
	res := s.db.WithContext(ctx).
		Where("bucket_id = ? AND product_id = ?", bucketID, productID).
		Delete(&models.BucketItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) ClearBucket(ctx context.Context, bucketID uint) error {
	return s.db.WithContext(ctx).
		Where("bucket_id = ?", bucketID).
		Delete(&models.BucketItem{}).Error
}

func (s *GormStore) CreateOrder(ctx context.Context, order *models.Order) error {
	return s.db.WithContext(ctx).Create(order).Error
}

func (s *GormStore) GetOrder(ctx context.Context, userID uint, orderID string) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).
		Preload("Items").
		Where("id = ? AND user_id = ?", orderID, userID).
		First(&order).Error
	if err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

func (s *GormStore) ListOrders(ctx context.Context, userID uint) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *GormStore) CreateUser(ctx context.Context, u *models.User) error {
	err := s.db.WithContext(ctx).Create(u).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}

func (s *GormStore) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *GormStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&u).Error
	if err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *GormStore) ListActiveUserEmails(ctx context.Context) ([]string, error) {
	var emails []string
	err := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("active = ?", true).
		Order("email").
		Pluck("email", &emails).Error
	if err != nil {
		return nil, err
	}
	return emails, nil
}

func (s *GormStore) CreateToken(ctx context.Context, t *models.Token) error {
	return s.db.WithContext(ctx).Create(t).Error
}

func (s *GormStore) GetToken(ctx context.Context, key string) (*models.Token, error) {
	var t models.Token
	err := s.db.WithContext(ctx).Where("`key` = ?", key).First(&t).Error
	if err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
