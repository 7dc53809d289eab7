package services

import (
	"context"
	"log/slog"
	"time"
)

type ExpiryStore interface {
	DowngradeExpired(ctx context.Context, now time.Time) (int64, error)
}

// SubscriptionService returns users to the free tier once their paid period
// has run out. Entitlement checks only look at subscription_status, so the
// sweep is what makes an expiry take effect.
type SubscriptionService struct {
	users ExpiryStore
	now   func() time.Time
}

func NewSubscriptionService(users ExpiryStore) *SubscriptionService {
	return &SubscriptionService{users: users, now: time.Now}
}

func (s *SubscriptionService) SweepExpired(ctx context.Context) (int64, error) {
	n, err := s.users.DowngradeExpired(ctx, s.now())
	if err != nil {
		slog.Error("subscription sweep failed", "action", "subscription_sweep", "error", err)
		return 0, err
	}
	if n > 0 {
		slog.Info("expired subscriptions downgraded", "action", "subscription_sweep", "downgraded", n)
	}
	return n, nil
}

// StartSweeper runs SweepExpired every interval until done is closed.
func (s *SubscriptionService) StartSweeper(interval time.Duration, done chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				_, _ = s.SweepExpired(ctx)
				cancel()
			case <-done:
				return
			}
		}
	}()
}
