package announce

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/example/marketplace/pkg/config"
	"github.com/example/marketplace/pkg/models"
	"github.com/example/marketplace/pkg/repository"
	"go.uber.org/zap"
)

// SaleNotification is dispatched to the notification actor, one per
// recipient per sale. Delivery is fire-and-forget.
type SaleNotification struct {
	Recipient string
	Subject   string
	Discount  float64
}

// NotificationActor handles outbound sale notifications.
type NotificationActor struct {
	logger *zap.Logger
}

func (a *NotificationActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *SaleNotification:
		a.logger.Info("Sending sale notification",
			zap.String("recipient", msg.Recipient),
			zap.String("subject", msg.Subject),
			zap.Float64("discount", msg.Discount))

	case *actor.Started:
		a.logger.Info("Notification actor started")

	case *actor.Stopping:
		a.logger.Info("Notification actor stopping")
	}
}

// Announcer periodically finds sales whose announcement date has
// passed, writes a campaign CSV and dispatches one notification per
// active user, then marks each sale announced.
type Announcer struct {
	store    repository.Store
	logger   *zap.Logger
	system   *actor.ActorSystem
	pid      *actor.PID
	outDir   string
	interval time.Duration
}

func NewAnnouncer(store repository.Store, logger *zap.Logger, cfg *config.AnnouncerConfig) (*Announcer, error) {
	system := actor.NewActorSystem()

	props := actor.PropsFromProducer(func() actor.Actor {
		return &NotificationActor{logger: logger.Named("notification-actor")}
	})
	pid, err := system.Root.SpawnNamed(props, "notification-actor")
	if err != nil {
		return nil, fmt.Errorf("failed to spawn notification actor: %w", err)
	}

	return &Announcer{
		store:    store,
		logger:   logger,
		system:   system,
		pid:      pid,
		outDir:   cfg.OutputDir,
		interval: cfg.Interval,
	}, nil
}

// Run announces due sales on every tick until ctx is canceled.
func (a *Announcer) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.system.Shutdown()
			return ctx.Err()
		case <-ticker.C:
			if _, err := a.AnnounceDueSales(ctx); err != nil {
				a.logger.Error("Sale announcement run failed", zap.Error(err))
			}
		}
	}
}

// AnnounceDueSales performs one announcement pass and returns the
// number of notification entries produced.
func (a *Announcer) AnnounceDueSales(ctx context.Context) (int, error) {
	now := time.Now()

	sales, err := a.store.ListUnannouncedSales(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to list unannounced sales: %w", err)
	}
	if len(sales) == 0 {
		a.logger.Info("No sales to announce")
		return 0, nil
	}

	emails, err := a.store.ListActiveUserEmails(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list recipients: %w", err)
	}
	if len(emails) == 0 {
		a.logger.Warn("No active users to announce sales to")
		return 0, nil
	}

	path := filepath.Join(a.outDir, fmt.Sprintf("sales_announcements_%s.csv", now.Format("20060102150405")))
	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create campaign file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"email", "subject", "discount", "products", "categories"}); err != nil {
		return 0, err
	}

	entries := 0
	for i := range sales {
		sale := &sales[i]
		subject := fmt.Sprintf("New Sale: %s is here!", sale.Name)
		products := joinNames(productNames(sale))
		categories := joinNames(categoryNames(sale))

		for _, email := range emails {
			record := []string{
				email,
				subject,
				fmt.Sprintf("%.2f", sale.Discount),
				products,
				categories,
			}
			if err := writer.Write(record); err != nil {
				return entries, err
			}
			a.system.Root.Send(a.pid, &SaleNotification{
				Recipient: email,
				Subject:   subject,
				Discount:  sale.Discount,
			})
			entries++
		}

		if err := a.store.MarkSaleAnnounced(ctx, sale.ID); err != nil {
			return entries, fmt.Errorf("failed to mark sale %d announced: %w", sale.ID, err)
		}
	}

	a.logger.Info("Sales announced",
		zap.Int("sale_count", len(sales)),
		zap.Int("recipient_count", len(emails)),
		zap.Int("entries", entries),
		zap.String("file", path))

	return entries, nil
}

func productNames(s *models.Sale) []string {
	names := make([]string, len(s.Products))
	for i, p := range s.Products {
		names[i] = p.Name
	}
	return names
}

func categoryNames(s *models.Sale) []string {
	names := make([]string, len(s.Categories))
	for i, c := range s.Categories {
		names[i] = c.Name
	}
	return names
}

func joinNames(names []string) string {
	return strings.Join(names, ", ")
}
