package cleanup

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type purchaseExpirer interface {
	ExpirePending(ctx context.Context, now time.Time) (int64, error)
}

type subscriptionExpirer interface {
	ExpireLapsed(ctx context.Context, now time.Time) (int64, error)
}

type eventPruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Job expires stale purchase intents and lapsed subscriptions and prunes old
// analytics events. Runs on a fixed interval from the api process.
type Job struct {
	purchases      purchaseExpirer
	subscriptions  subscriptionExpirer
	events         eventPruner
	eventRetention time.Duration
	now            func() time.Time
	logger         *zap.Logger
}

func New(
	purchases purchaseExpirer,
	subscriptions subscriptionExpirer,
	events eventPruner,
	eventRetention time.Duration,
	logger *zap.Logger,
) *Job {
	if eventRetention <= 0 {
		eventRetention = 90 * 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Job{
		purchases:      purchases,
		subscriptions:  subscriptions,
		events:         events,
		eventRetention: eventRetention,
		now:            time.Now,
		logger:         logger,
	}
}

func (j *Job) Run(ctx context.Context) error {
	now := j.now().UTC()

	if j.purchases != nil {
		expired, err := j.purchases.ExpirePending(ctx, now)
		if err != nil {
			return fmt.Errorf("expire pending purchases: %w", err)
		}
		if expired > 0 {
			j.logger.Info("expired pending purchases", zap.Int64("count", expired))
		}
	}

	if j.subscriptions != nil {
		lapsed, err := j.subscriptions.ExpireLapsed(ctx, now)
		if err != nil {
			return fmt.Errorf("expire lapsed subscriptions: %w", err)
		}
		if lapsed > 0 {
			j.logger.Info("expired lapsed subscriptions", zap.Int64("count", lapsed))
		}
	}

	if j.events != nil {
		pruned, err := j.events.DeleteOlderThan(ctx, now.Add(-j.eventRetention))
		if err != nil {
			return fmt.Errorf("prune old events: %w", err)
		}
		if pruned > 0 {
			j.logger.Info("pruned old analytics events", zap.Int64("count", pruned))
		}
	}

	return nil
}

// Start loops Run until the context is cancelled. Errors are logged, not
// fatal: the next tick retries.
func (j *Job) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				j.logger.Warn("cleanup run failed", zap.Error(err))
			}
		}
	}
}
