package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type abandonedCanceller interface {
	CancelAbandoned(ctx context.Context, olderThan time.Time, limit int) (int, error)
}

// AbandonedCheckoutJobParams configure the abandoned checkout sweep.
type AbandonedCheckoutJobParams struct {
	Logger     *logger.Logger
	Orders     abandonedCanceller
	AbandonAge time.Duration
	BatchSize  int
}

// NewAbandonedCheckoutJob cancels pending orders that never got a gateway
// preference, typically because the process died mid checkout.
func NewAbandonedCheckoutJob(params AbandonedCheckoutJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if params.AbandonAge <= 0 {
		return nil, fmt.Errorf("abandon age must be positive")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	return &abandonedCheckoutJob{
		logg:   params.Logger,
		orders: params.Orders,
		age:    params.AbandonAge,
		batch:  batch,
		now:    time.Now,
	}, nil
}

type abandonedCheckoutJob struct {
	logg   *logger.Logger
	orders abandonedCanceller
	age    time.Duration
	batch  int
	now    func() time.Time
}

func (j *abandonedCheckoutJob) Name() string { return "abandoned-checkout" }

func (j *abandonedCheckoutJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.age)
	count, err := j.orders.CancelAbandoned(ctx, cutoff, j.batch)
	logCtx := j.logg.WithField(ctx, "cancelled", count)
	if err != nil {
		return fmt.Errorf("cancel abandoned orders: %w", err)
	}
	j.logg.Info(logCtx, "abandoned checkout sweep complete")
	return nil
}
