package marketplace

import (
	"context"
	"testing"
	"time"

	"github.com/example/marketplace/pkg/models"
	"github.com/example/marketplace/pkg/repository"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEnv struct {
	store   *repository.MemoryStore
	catalog *Catalog
	buckets *BucketService
	engine  *OrderEngine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := repository.NewMemoryStore()
	logger := zap.NewNop()
	return &testEnv{
		store:   store,
		catalog: NewCatalog(store, logger),
		buckets: NewBucketService(store, logger),
		engine:  NewOrderEngine(store, nil, nil, logger),
	}
}

func (e *testEnv) addCategory(t *testing.T, name string) *models.Category {
	t.Helper()
	c := &models.Category{Name: name}
	require.NoError(t, e.store.CreateCategory(context.Background(), c))
	return c
}

func (e *testEnv) addProduct(t *testing.T, name string, price float64, categoryID uint, stock int) *models.Product {
	t.Helper()
	p := &models.Product{
		Name:           name,
		Price:          price,
		CategoryID:     categoryID,
		AvailableItems: stock,
	}
	require.NoError(t, e.store.CreateProduct(context.Background(), p))
	return p
}

func (e *testEnv) addSale(t *testing.T, s *models.Sale) *models.Sale {
	t.Helper()
	if s.StartDate.IsZero() {
		s.StartDate = time.Now().Add(-time.Hour)
	}
	if s.EndDate.IsZero() {
		s.EndDate = time.Now().Add(time.Hour)
	}
	require.NoError(t, e.store.CreateSale(context.Background(), s))
	return s
}

func (e *testEnv) stockOf(t *testing.T, productID uint) int {
	t.Helper()
	p, err := e.store.GetProduct(context.Background(), productID)
	require.NoError(t, err)
	return p.AvailableItems
}
