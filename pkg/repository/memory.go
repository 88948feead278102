package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/marketplace/pkg/models"
)

// MemoryStore is an in-process Store used by tests and the "memory"
// storage driver. Transactions are serialized by a single mutex and
// rolled back by restoring a snapshot, which gives the same
// all-or-nothing guarantee the MySQL store gets from row locks.
type MemoryStore struct {
	mu sync.Mutex
	tx memTx
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tx: memTx{st: newMemState()}}
}

func (s *MemoryStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.tx.st.clone()
	if err := fn(&s.tx); err != nil {
		*s.tx.st = *snap
		return err
	}
	return nil
}

type memState struct {
	categories   map[uint]models.Category
	products     map[uint]models.Product
	sales        map[uint]models.Sale
	buckets      map[uint]models.Bucket
	bucketByUser map[uint]uint
	bucketItems  map[uint]models.BucketItem
	orders       map[string]models.Order
	users        map[uint]models.User
	userByEmail  map[string]uint
	tokens       map[string]models.Token
	nextID       uint
}

func newMemState() *memState {
	return &memState{
		categories:   make(map[uint]models.Category),
		products:     make(map[uint]models.Product),
		sales:        make(map[uint]models.Sale),
		buckets:      make(map[uint]models.Bucket),
		bucketByUser: make(map[uint]uint),
		bucketItems:  make(map[uint]models.BucketItem),
		orders:       make(map[string]models.Order),
		users:        make(map[uint]models.User),
		userByEmail:  make(map[string]uint),
		tokens:       make(map[string]models.Token),
	}
}

func (st *memState) clone() *memState {
	cp := newMemState()
	cp.nextID = st.nextID
	for k, v := range st.categories {
		cp.categories[k] = v
	}
	for k, v := range st.products {
		cp.products[k] = v
	}
	for k, v := range st.sales {
		cp.sales[k] = v
	}
	for k, v := range st.buckets {
		cp.buckets[k] = v
	}
	for k, v := range st.bucketByUser {
		cp.bucketByUser[k] = v
	}
	for k, v := range st.bucketItems {
		cp.bucketItems[k] = v
	}
	for k, v := range st.orders {
		cp.orders[k] = v
	}
	for k, v := range st.users {
		cp.users[k] = v
	}
	for k, v := range st.userByEmail {
		cp.userByEmail[k] = v
	}
	for k, v := range st.tokens {
		cp.tokens[k] = v
	}
	return cp
}

func (st *memState) seq() uint {
	st.nextID++
	return st.nextID
}

// memTx implements Store against a memState without locking; the outer
// MemoryStore holds the mutex for the duration of every call.
type memTx struct {
	st *memState
}

// WithTx inside an open transaction just flattens into the same scope.
func (t *memTx) WithTx(ctx context.Context, fn func(tx Store) error) error {
	return fn(t)
}

func (t *memTx) CreateCategory(ctx context.Context, c *models.Category) error {
	if c.ID == 0 {
		c.ID = t.st.seq()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	t.st.categories[c.ID] = *c
	return nil
}

func (t *memTx) CreateProduct(ctx context.Context, p *models.Product) error {
	if p.ID == 0 {
		p.ID = t.st.seq()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	t.st.products[p.ID] = *p
	return nil
}

func (t *memTx) CreateSale(ctx context.Context, s *models.Sale) error {
	if s.ID == 0 {
		s.ID = t.st.seq()
	}
	t.st.sales[s.ID] = *s
	return nil
}

func (t *memTx) matchProducts(q ProductQuery) []models.Product {
	var out []models.Product
	for _, p := range t.st.products {
		if len(q.CategoryIDs) > 0 {
			in := false
			for _, id := range q.CategoryIDs {
				if p.CategoryID == id {
					in = true
					break
				}
			}
			if in == q.ExcludeCategories {
				continue
			}
		}
		out = append(out, p)
	}
	return out
}

func (t *memTx) ListProducts(ctx context.Context, q ProductQuery) ([]models.Product, error) {
	out := t.matchProducts(q)

	field := q.SortField
	if field == "" {
		field = "name"
	}
	sort.Slice(out, func(i, j int) bool {
		var less bool
		switch field {
		case "price":
			less = out[i].Price < out[j].Price
		case "created_at":
			less = out[i].CreatedAt.Before(out[j].CreatedAt)
		default:
			less = strings.Compare(out[i].Name, out[j].Name) < 0
		}
		if q.SortDesc {
			return !less && !productEqual(field, out[i], out[j])
		}
		return less
	})

	if q.Offset > 0 {
		if q.Offset >= len(out) {
			return nil, nil
		}
		out = out[q.Offset:]
	}
	if q.Limit > 0 && q.Limit < len(out) {
		out = out[:q.Limit]
	}
	return out, nil
}

func productEqual(field string, a, b models.Product) bool {
	switch field {
	case "price":
		return a.Price == b.Price
	case "created_at":
		return a.CreatedAt.Equal(b.CreatedAt)
	default:
		return a.Name == b.Name
	}
}

func (t *memTx) CountProducts(ctx context.Context, q ProductQuery) (int64, error) {
	return int64(len(t.matchProducts(q))), nil
}

func (t *memTx) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	p, ok := t.st.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

// LockProduct is a plain read here; the store mutex already serializes
// transactions.
func (t *memTx) LockProduct(ctx context.Context, id uint) (*models.Product, error) {
	return t.GetProduct(ctx, id)
}

func (t *memTx) DecrementStock(ctx context.Context, productID uint, qty int) error {
	p, ok := t.st.products[productID]
	if !ok {
		return ErrNotFound
	}
	if p.AvailableItems < qty {
		return ErrInsufficientStock
	}
	p.AvailableItems -= qty
	t.st.products[productID] = p
	return nil
}

func (t *memTx) ListActiveSales(ctx context.Context, at time.Time) ([]models.Sale, error) {
	var out []models.Sale
	for _, s := range t.st.sales {
		if s.ActiveAt(at) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) ListUnannouncedSales(ctx context.Context, at time.Time) ([]models.Sale, error) {
	var out []models.Sale
	for _, s := range t.st.sales {
		if !s.WasAnnounced && !s.AnnouncementDate.After(at) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) MarkSaleAnnounced(ctx context.Context, saleID uint) error {
	s, ok := t.st.sales[saleID]
	if !ok {
		return ErrNotFound
	}
	s.WasAnnounced = true
	t.st.sales[saleID] = s
	return nil
}

func (t *memTx) GetOrCreateBucket(ctx context.Context, userID uint) (*models.Bucket, error) {
	if id, ok := t.st.bucketByUser[userID]; ok {
		b := t.st.buckets[id]
		return &b, nil
	}
	b := models.Bucket{ID: t.st.seq(), UserID: userID, CreatedAt: time.Now()}
	t.st.buckets[b.ID] = b
	t.st.bucketByUser[userID] = b.ID
	return &b, nil
}

func (t *memTx) ListBucketItems(ctx context.Context, bucketID uint) ([]models.BucketItem, error) {
	var out []models.BucketItem
	for _, it := range t.st.bucketItems {
		if it.BucketID == bucketID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

func (t *memTx) GetBucketItem(ctx context.Context, bucketID, productID uint) (*models.BucketItem, error) {
	for _, it := range t.st.bucketItems {
		if it.BucketID == bucketID && it.ProductID == productID {
			return &it, nil
		}
	}
	return nil, ErrNotFound
}

func (t *memTx) SaveBucketItem(ctx context.Context, item *models.BucketItem) error {
	if item.ID == 0 {
		item.ID = t.st.seq()
	}
	t.st.bucketItems[item.ID] = *item
	return nil
}

func (t *memTx) DeleteBucketItem(ctx context.Context, bucketID, productID uint) error {
	for id, it := range t.st.bucketItems {
		if it.BucketID == bucketID && it.ProductID == productID {
			delete(t.st.bucketItems, id)
			return nil
		}
	}
	return ErrNotFound
}

func (t *memTx) ClearBucket(ctx context.Context, bucketID uint) error {
	for id, it := range t.st.bucketItems {
		if it.BucketID == bucketID {
			delete(t.st.bucketItems, id)
		}
	}
	return nil
}

func (t *memTx) CreateOrder(ctx context.Context, order *models.Order) error {
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}
	items := make([]models.OrderItem, len(order.Items))
	copy(items, order.Items)
	stored := *order
	stored.Items = items
	t.st.orders[order.ID] = stored
	return nil
}

func (t *memTx) GetOrder(ctx context.Context, userID uint, orderID string) (*models.Order, error) {
	o, ok := t.st.orders[orderID]
	if !ok || o.UserID != userID {
		return nil, ErrNotFound
	}
	return &o, nil
}

func (t *memTx) ListOrders(ctx context.Context, userID uint) ([]models.Order, error) {
	var out []models.Order
	for _, o := range t.st.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (t *memTx) CreateUser(ctx context.Context, u *models.User) error {
	if _, ok := t.st.userByEmail[u.Email]; ok {
		return ErrDuplicate
	}
	if u.ID == 0 {
		u.ID = t.st.seq()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	t.st.users[u.ID] = *u
	t.st.userByEmail[u.Email] = u.ID
	return nil
}

func (t *memTx) GetUser(ctx context.Context, id uint) (*models.User, error) {
	u, ok := t.st.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (t *memTx) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	id, ok := t.st.userByEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	return t.GetUser(ctx, id)
}

func (t *memTx) ListActiveUserEmails(ctx context.Context) ([]string, error) {
	var out []string
	for _, u := range t.st.users {
		if u.Active {
			out = append(out, u.Email)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (t *memTx) CreateToken(ctx context.Context, tok *models.Token) error {
	if tok.CreatedAt.IsZero() {
		tok.CreatedAt = time.Now()
	}
	t.st.tokens[tok.Key] = *tok
	return nil
}

func (t *memTx) GetToken(ctx context.Context, key string) (*models.Token, error) {
	tok, ok := t.st.tokens[key]
	if !ok {
		return nil, ErrNotFound
	}
	return &tok, nil
}

// Locked delegations so MemoryStore satisfies Store outside WithTx.

func (s *MemoryStore) CreateCategory(ctx context.Context, c *models.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx.CreateCategory(ctx, c)
}

func (s *MemoryStore) CreateProduct(ctx context.Context, p *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx.CreateProduct(ctx, p)
}

func (s *MemoryStore) CreateSale(ctx context.Context, sale *models.Sale) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx.CreateSale(ctx, sale)
}

func (s *MemoryStore) ListProducts(ctx context.Context, q ProductQuery) ([]models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx.ListProducts(ctx, q)
}

func (s *MemoryStore) CountProducts(ctx context.Context, q ProductQuery) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx.CountProducts(ctx, q)
}

func (s *MemoryStore) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx.GetProduct(ctx, id)
}

func (s *MemoryStore) LockProduct(ctx context.Context, id uint) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx.LockProduct(ctx, id)
}

func (s *MemoryStore) DecrementStock(ctx context.Context, productID uint, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx.DecrementStock(ctx, productID, qty)
}

func (s *MemoryStore) ListActiveSales(ctx context.Context, at time.Time) ([]models.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx.ListActiveSales(ctx, at)
}

func (s *MemoryStore) ListUnannouncedSales(ctx context.Context, at time.Time) ([]models.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx.ListUnannouncedSales(ctx, at)
}

func (s *MemoryStore) MarkSaleAnnounced(ctx context.Context, saleID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx.MarkSaleAnnounced(ctx, saleID)
}

func (s *MemoryStore) GetOrCreateBucket(ctx context.Context, userID uint) (*models.Bucket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx.GetOrCreateBucket(ctx, userID)
}

func (s *MemoryStore) ListBucketItems(ctx context.Context, bucketID uint) ([]models.BucketItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx.ListBucketItems(ctx, bucketID)
}

func (s *MemoryStore) GetBucketItem(ctx context.Context, bucketID, productID uint) (*models.BucketItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx.GetBucketItem(ctx, bucketID, productID)
}

func (s *MemoryStore) SaveBucketItem(ctx context.Context, item *models.BucketItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx.SaveBucketItem(ctx, item)
}

func (s *MemoryStore) DeleteBucketItem(ctx context.Context, bucketID, productID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx.DeleteBucketItem(ctx, bucketID, productID)
}

func (s *MemoryStore) ClearBucket(ctx context.Context, bucketID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx.ClearBucket(ctx, bucketID)
}

func (s *MemoryStore) CreateOrder(ctx context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx.CreateOrder(ctx, order)
}

func (s *MemoryStore) GetOrder(ctx context.Context, userID uint, orderID string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx.GetOrder(ctx, userID, orderID)
}

func (s *MemoryStore) ListOrders(ctx context.Context, userID uint) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx.ListOrders(ctx, userID)
}

func (s *MemoryStore) CreateUser(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx.CreateUser(ctx, u)
}

func (s *MemoryStore) GetUser(ctx context.Context, id uint) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx.GetUser(ctx, id)
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx.GetUserByEmail(ctx, email)
}

func (s *MemoryStore) ListActiveUserEmails(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx.ListActiveUserEmails(ctx)
}

func (s *MemoryStore) CreateToken(ctx context.Context, tok *models.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx.CreateToken(ctx, tok)
}

func (s *MemoryStore) GetToken(ctx context.Context, key string) (*models.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx.GetToken(ctx, key)
}
