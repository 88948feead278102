package marketplace

import (
	"context"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/example/marketplace/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uintsToParam(ids ...uint) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatUint(uint64(id), 10)
	}
	return strings.Join(parts, ",")
}

func TestListProductsAll(t *testing.T) {
	env := newTestEnv(t)
	cat := env.addCategory(t, "Electronics")
	env.addProduct(t, "Laptop", 1200, cat.ID, 5)
	env.addProduct(t, "Smartphone", 700, cat.ID, 8)

	listings, total, err := env.catalog.ListProducts(context.Background(), 0, ListQuery{})
	require.NoError(t, err)
	assert.Len(t, listings, 2)
	assert.Equal(t, int64(2), total)
}

func TestListProductsCategoryUnion(t *testing.T) {
	env := newTestEnv(t)
	c1 := env.addCategory(t, "Electronics")
	c2 := env.addCategory(t, "Books")
	c3 := env.addCategory(t, "Toys")
	env.addProduct(t, "Laptop", 1200, c1.ID, 5)
	env.addProduct(t, "Novel", 15, c2.ID, 20)
	env.addProduct(t, "Puzzle", 25, c3.ID, 7)

	param := uintsToParam(c1.ID, c2.ID)
	listings, _, err := env.catalog.ListProducts(context.Background(), 0, ListQuery{Category: param})
	require.NoError(t, err)
	require.Len(t, listings, 2)
	for _, l := range listings {
		assert.NotEqual(t, c3.ID, l.CategoryID)
	}
}

func TestListProductsCategoryExclusion(t *testing.T) {
	env := newTestEnv(t)
	c1 := env.addCategory(t, "Electronics")
	c2 := env.addCategory(t, "Books")
	env.addProduct(t, "Laptop", 1200, c1.ID, 5)
	env.addProduct(t, "Novel", 15, c2.ID, 20)

	listings, _, err := env.catalog.ListProducts(context.Background(), 0, ListQuery{
		Category: "-" + uintsToParam(c1.ID),
	})
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, c2.ID, listings[0].CategoryID)
}

func TestListProductsMalformedCategory(t *testing.T) {
	env := newTestEnv(t)

	for _, param := range []string{"abc", "1,x", "-foo", "1.5"} {
		_, _, err := env.catalog.ListProducts(context.Background(), 0, ListQuery{Category: param})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr, "category=%q", param)
	}
}

func TestListProductsSortDescending(t *testing.T) {
	env := newTestEnv(t)
	cat := env.addCategory(t, "Electronics")
	env.addProduct(t, "Laptop", 1200, cat.ID, 5)
	env.addProduct(t, "Cable", 9, cat.ID, 100)
	env.addProduct(t, "Smartphone", 700, cat.ID, 8)

	listings, _, err := env.catalog.ListProducts(context.Background(), 0, ListQuery{Sort: "-price"})
	require.NoError(t, err)
	require.Len(t, listings, 3)
	for i := 1; i < len(listings); i++ {
		assert.GreaterOrEqual(t, listings[i-1].Price, listings[i].Price)
	}
}

func TestListProductsSortByName(t *testing.T) {
	env := newTestEnv(t)
	cat := env.addCategory(t, "Electronics")
	env.addProduct(t, "Smartphone", 700, cat.ID, 8)
	env.addProduct(t, "Cable", 9, cat.ID, 100)
	env.addProduct(t, "Laptop", 1200, cat.ID, 5)

	listings, _, err := env.catalog.ListProducts(context.Background(), 0, ListQuery{Sort: "name"})
	require.NoError(t, err)
	require.Len(t, listings, 3)
	assert.Equal(t, "Cable", listings[0].Name)
	assert.Equal(t, "Laptop", listings[1].Name)
	assert.Equal(t, "Smartphone", listings[2].Name)
}

func TestListProductsUnknownSortField(t *testing.T) {
	env := newTestEnv(t)

	for _, param := range []string{"stock", "-weight", "price;drop"} {
		_, _, err := env.catalog.ListProducts(context.Background(), 0, ListQuery{Sort: param})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr, "sort=%q", param)
	}
}

func TestListProductsPagination(t *testing.T) {
	env := newTestEnv(t)
	cat := env.addCategory(t, "Electronics")
	for _, name := range []string{"A", "B", "C", "D", "E"} {
		env.addProduct(t, name, 10, cat.ID, 1)
	}

	page1, total, err := env.catalog.ListProducts(context.Background(), 0, ListQuery{
		Sort: "name", Page: 1, PageSize: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, page1, 2)
	assert.Equal(t, "A", page1[0].Name)

	page3, _, err := env.catalog.ListProducts(context.Background(), 0, ListQuery{
		Sort: "name", Page: 3, PageSize: 2,
	})
	require.NoError(t, err)
	require.Len(t, page3, 1)
	assert.Equal(t, "E", page3[0].Name)
}

func TestListProductsAppliesPublicSale(t *testing.T) {
	env := newTestEnv(t)
	cat := env.addCategory(t, "Electronics")
	p := env.addProduct(t, "Laptop", 1000, cat.ID, 5)
	env.addSale(t, &models.Sale{
		Name:     "Spring",
		Discount: 0.2,
		Public:   true,
		Products: []models.Product{*p},
	})

	listings, _, err := env.catalog.ListProducts(context.Background(), 0, ListQuery{})
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, 1000.0, listings[0].Price)
	assert.Equal(t, 800.0, listings[0].DiscountedPrice)
	assert.Equal(t, 0.2, listings[0].Discount)
}

func TestListProductsClosedSaleVisibility(t *testing.T) {
	env := newTestEnv(t)
	cat := env.addCategory(t, "Electronics")
	p := env.addProduct(t, "Laptop", 1000, cat.ID, 5)
	insider := uint(9)
	env.addSale(t, &models.Sale{
		Name:         "VIP",
		Discount:     0.5,
		Public:       false,
		AllowedUsers: []models.User{{ID: insider}},
		Products:     []models.Product{*p},
	})

	anon, _, err := env.catalog.ListProducts(context.Background(), 0, ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1000.0, anon[0].DiscountedPrice)

	vip, _, err := env.catalog.ListProducts(context.Background(), insider, ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, 500.0, vip[0].DiscountedPrice)
}

func TestListProductsCategorySale(t *testing.T) {
	env := newTestEnv(t)
	c1 := env.addCategory(t, "Electronics")
	c2 := env.addCategory(t, "Books")
	env.addProduct(t, "Laptop", 1000, c1.ID, 5)
	env.addProduct(t, "Novel", 20, c2.ID, 5)
	env.addSale(t, &models.Sale{
		Name:       "Electronics week",
		Discount:   0.1,
		Public:     true,
		Categories: []models.Category{*c1},
	})

	listings, _, err := env.catalog.ListProducts(context.Background(), 0, ListQuery{Sort: "name"})
	require.NoError(t, err)
	require.Len(t, listings, 2)
	assert.Equal(t, 900.0, listings[0].DiscountedPrice) // Laptop
	assert.Equal(t, 20.0, listings[1].DiscountedPrice)  // Novel, untouched
}

func TestBestDiscountPicksLargest(t *testing.T) {
	p := &models.Product{ID: 1, CategoryID: 2}
	now := time.Now()
	sales := []models.Sale{
		{Discount: 0.1, Public: true, StartDate: now.Add(-time.Hour), EndDate: now.Add(time.Hour), Products: []models.Product{{ID: 1}}},
		{Discount: 0.3, Public: true, StartDate: now.Add(-time.Hour), EndDate: now.Add(time.Hour), Categories: []models.Category{{ID: 2}}},
		{Discount: 0.9, Public: true, StartDate: now.Add(time.Hour), EndDate: now.Add(2 * time.Hour), Products: []models.Product{{ID: 1}}},
	}

	assert.Equal(t, 0.3, BestDiscount(sales, p, 0, now))
}

func TestBestDiscountExpiredSale(t *testing.T) {
	p := &models.Product{ID: 1}
	now := time.Now()
	sales := []models.Sale{
		{Discount: 0.5, Public: true, StartDate: now.Add(-2 * time.Hour), EndDate: now.Add(-time.Hour), Products: []models.Product{{ID: 1}}},
	}

	assert.Equal(t, 0.0, BestDiscount(sales, p, 0, now))
}

func TestParseCategoryParam(t *testing.T) {
	ids, exclude, err := ParseCategoryParam("9,10")
	require.NoError(t, err)
	assert.Equal(t, []uint{9, 10}, ids)
	assert.False(t, exclude)

	ids, exclude, err = ParseCategoryParam("-6")
	require.NoError(t, err)
	assert.Equal(t, []uint{6}, ids)
	assert.True(t, exclude)

	_, _, err = ParseCategoryParam("6,")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestParseSortParam(t *testing.T) {
	field, desc, err := ParseSortParam("price")
	require.NoError(t, err)
	assert.Equal(t, "price", field)
	assert.False(t, desc)

	field, desc, err = ParseSortParam("-created_at")
	require.NoError(t, err)
	assert.Equal(t, "created_at", field)
	assert.True(t, desc)

	_, _, err = ParseSortParam("-")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}
