package announce

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/marketplace/pkg/config"
	"github.com/example/marketplace/pkg/models"
	"github.com/example/marketplace/pkg/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestAnnouncer(t *testing.T, store repository.Store) *Announcer {
	t.Helper()
	a, err := NewAnnouncer(store, zap.NewNop(), &config.AnnouncerConfig{
		Interval:  time.Minute,
		OutputDir: t.TempDir(),
	})
	require.NoError(t, err)
	return a
}

func addUser(t *testing.T, store repository.Store, email string, active bool) {
	t.Helper()
	require.NoError(t, store.CreateUser(context.Background(), &models.User{
		Email:  email,
		Active: active,
	}))
}

func addDueSale(t *testing.T, store repository.Store, name string, discount float64) *models.Sale {
	t.Helper()
	now := time.Now()
	s := &models.Sale{
		Name:             name,
		Discount:         discount,
		Public:           true,
		AnnouncementDate: now.Add(-time.Minute),
		StartDate:        now,
		EndDate:          now.Add(24 * time.Hour),
	}
	require.NoError(t, store.CreateSale(context.Background(), s))
	return s
}

func campaignFiles(t *testing.T, dir string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "sales_announcements_*.csv"))
	require.NoError(t, err)
	return matches
}

func TestAnnounceDueSalesWritesCampaignFile(t *testing.T) {
	store := repository.NewMemoryStore()
	a := newTestAnnouncer(t, store)

	addUser(t, store, "one@example.com", true)
	addUser(t, store, "two@example.com", true)
	now := time.Now()
	require.NoError(t, store.CreateSale(context.Background(), &models.Sale{
		Name:             "Black Friday",
		Discount:         0.3,
		Public:           true,
		AnnouncementDate: now.Add(-time.Minute),
		StartDate:        now,
		EndDate:          now.Add(24 * time.Hour),
		Products:         []models.Product{{Name: "Laptop"}, {Name: "Smartphone"}},
	}))

	entries, err := a.AnnounceDueSales(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, entries)

	files := campaignFiles(t, a.outDir)
	require.Len(t, files, 1)

	f, err := os.Open(files[0])
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"email", "subject", "discount", "products", "categories"}, records[0])
	assert.Equal(t, "one@example.com", records[1][0])
	assert.Equal(t, "New Sale: Black Friday is here!", records[1][1])
	assert.Equal(t, "0.30", records[1][2])
	assert.Equal(t, "Laptop, Smartphone", records[1][3])
	assert.Equal(t, "two@example.com", records[2][0])
}

func TestAnnounceDueSalesMarksAnnounced(t *testing.T) {
	store := repository.NewMemoryStore()
	a := newTestAnnouncer(t, store)

	addUser(t, store, "one@example.com", true)
	addDueSale(t, store, "Spring", 0.1)

	_, err := a.AnnounceDueSales(context.Background())
	require.NoError(t, err)

	// Second pass finds nothing new and writes no file.
	entries, err := a.AnnounceDueSales(context.Background())
	require.NoError(t, err)
	assert.Zero(t, entries)
	assert.Len(t, campaignFiles(t, a.outDir), 1)
}

func TestAnnounceSkipsFutureSales(t *testing.T) {
	store := repository.NewMemoryStore()
	a := newTestAnnouncer(t, store)

	addUser(t, store, "one@example.com", true)
	now := time.Now()
	require.NoError(t, store.CreateSale(context.Background(), &models.Sale{
		Name:             "Not yet",
		Discount:         0.5,
		AnnouncementDate: now.Add(time.Hour),
		StartDate:        now.Add(2 * time.Hour),
		EndDate:          now.Add(24 * time.Hour),
	}))

	entries, err := a.AnnounceDueSales(context.Background())
	require.NoError(t, err)
	assert.Zero(t, entries)
	assert.Empty(t, campaignFiles(t, a.outDir))
}

func TestAnnounceOnlyActiveUsers(t *testing.T) {
	store := repository.NewMemoryStore()
	a := newTestAnnouncer(t, store)

	addUser(t, store, "active@example.com", true)
	addUser(t, store, "inactive@example.com", false)
	addDueSale(t, store, "Spring", 0.1)

	entries, err := a.AnnounceDueSales(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, entries)
}

func TestAnnounceEntriesPerSalePerUser(t *testing.T) {
	store := repository.NewMemoryStore()
	a := newTestAnnouncer(t, store)

	addUser(t, store, "one@example.com", true)
	addUser(t, store, "two@example.com", true)
	addUser(t, store, "three@example.com", true)
	addDueSale(t, store, "Spring", 0.1)
	addDueSale(t, store, "Summer", 0.2)

	entries, err := a.AnnounceDueSales(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, entries)
}
