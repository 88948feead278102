package marketplace

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/example/marketplace/pkg/repository"
	"go.uber.org/zap"
)

// Fields a product listing may be sorted on. Anything else is rejected
// with a ValidationError, matching the filter policy below.
var sortFields = map[string]bool{
	"name":       true,
	"price":      true,
	"created_at": true,
}

// Catalog serves product listings with filtering, sorting and per-user
// sale discounts.
type Catalog struct {
	store  repository.Store
	logger *zap.Logger
}

func NewCatalog(store repository.Store, logger *zap.Logger) *Catalog {
	return &Catalog{store: store, logger: logger}
}

// ListQuery carries the raw query parameters of a product listing
// request. Page/PageSize of 0 disable pagination (v1 behavior).
type ListQuery struct {
	Category string
	Sort     string
	Page     int
	PageSize int
}

// ProductListing is one catalog row with the best discount already
// applied for the requesting user.
type ProductListing struct {
	ID              uint    `json:"id"`
	Name            string  `json:"name"`
	Description     string  `json:"description"`
	CategoryID      uint    `json:"category_id"`
	Price           float64 `json:"price"`
	DiscountedPrice float64 `json:"discounted_price"`
	Discount        float64 `json:"discount"`
	AvailableItems  int     `json:"available_items"`
}

// ParseCategoryParam parses the category filter: a single id, a comma
// separated list (OR semantics), or either form prefixed with "-" for
// exclusion. Malformed ids are rejected rather than ignored.
func ParseCategoryParam(param string) (ids []uint, exclude bool, err error) {
	if param == "" {
		return nil, false, nil
	}
	if strings.HasPrefix(param, "-") {
		exclude = true
		param = param[1:]
	}
	for _, part := range strings.Split(param, ",") {
		id, perr := strconv.ParseUint(strings.TrimSpace(part), 10, 32)
		if perr != nil {
			return nil, false, validationErrorf("invalid category ID format")
		}
		ids = append(ids, uint(id))
	}
	return ids, exclude, nil
}

// ParseSortParam parses the sort key, with a "-" prefix for descending
// order. Unknown fields are rejected.
func ParseSortParam(param string) (field string, desc bool, err error) {
	if param == "" {
		return "", false, nil
	}
	field = param
	if strings.HasPrefix(field, "-") {
		desc = true
		field = field[1:]
	}
	if !sortFields[field] {
		return "", false, validationErrorf("invalid sort field: %s", param)
	}
	return field, desc, nil
}

// ListProducts returns the filtered, sorted product listing together
// with the total number of matching products (for pagination). userID 0
// means an anonymous request.
func (c *Catalog) ListProducts(ctx context.Context, userID uint, q ListQuery) ([]ProductListing, int64, error) {
	ids, exclude, err := ParseCategoryParam(q.Category)
	if err != nil {
		c.logger.Warn("Invalid category filter", zap.String("category", q.Category))
		return nil, 0, err
	}
	field, desc, err := ParseSortParam(q.Sort)
	if err != nil {
		c.logger.Warn("Invalid sort field", zap.String("sort", q.Sort))
		return nil, 0, err
	}

	pq := repository.ProductQuery{
		CategoryIDs:       ids,
		ExcludeCategories: exclude,
		SortField:         field,
		SortDesc:          desc,
	}
	if q.PageSize > 0 {
		page := q.Page
		if page < 1 {
			page = 1
		}
		pq.Offset = (page - 1) * q.PageSize
		pq.Limit = q.PageSize
	}

	products, err := c.store.ListProducts(ctx, pq)
	if err != nil {
		return nil, 0, err
	}
	total, err := c.store.CountProducts(ctx, pq)
	if err != nil {
		return nil, 0, err
	}

	now := time.Now()
	sales, err := c.store.ListActiveSales(ctx, now)
	if err != nil {
		return nil, 0, err
	}

	listings := make([]ProductListing, len(products))
	for i := range products {
		p := &products[i]
		d := BestDiscount(sales, p, userID, now)
		listings[i] = ProductListing{
			ID:              p.ID,
			Name:            p.Name,
			Description:     p.Description,
			CategoryID:      p.CategoryID,
			Price:           p.Price,
			DiscountedPrice: discountedPrice(p.Price, d),
			Discount:        d,
			AvailableItems:  p.AvailableItems,
		}
	}
	return listings, total, nil
}
