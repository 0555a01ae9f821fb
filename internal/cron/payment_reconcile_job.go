package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

const defaultBatchSize = 100

type reconcilableReader interface {
	ListReconcilable(ctx context.Context, olderThan time.Time, limit int) ([]models.Order, error)
}

type reconciler interface {
	Reconcile(ctx context.Context, order *models.Order, source string) (*orders.PaymentStatusResult, error)
}

// PaymentReconcileJobParams configure the stale payment sweep.
type PaymentReconcileJobParams struct {
	Logger     *logger.Logger
	Orders     reconcilableReader
	Reconciler reconciler
	StaleAfter time.Duration
	BatchSize  int
}

// NewPaymentReconcileJob builds the job that re-polls the gateway for
// orders whose webhook never arrived.
func NewPaymentReconcileJob(params PaymentReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders reader required")
	}
	if params.Reconciler == nil {
		return nil, fmt.Errorf("reconciler required")
	}
	if params.StaleAfter <= 0 {
		return nil, fmt.Errorf("stale after must be positive")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	return &paymentReconcileJob{
		logg:       params.Logger,
		orders:     params.Orders,
		reconciler: params.Reconciler,
		staleAfter: params.StaleAfter,
		batch:      batch,
		now:        time.Now,
	}, nil
}

type paymentReconcileJob struct {
	logg       *logger.Logger
	orders     reconcilableReader
	reconciler reconciler
	staleAfter time.Duration
	batch      int
	now        func() time.Time
}

func (j *paymentReconcileJob) Name() string { return "payment-reconcile" }

func (j *paymentReconcileJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.staleAfter)
	rows, err := j.orders.ListReconcilable(ctx, cutoff, j.batch)
	if err != nil {
		return fmt.Errorf("list reconcilable orders: %w", err)
	}

	var errs error
	updated := 0
	for i := range rows {
		if ctx.Err() != nil {
			errs = multierr.Append(errs, ctx.Err())
			break
		}
		result, err := j.reconciler.Reconcile(ctx, &rows[i], metrics.SourceReconcile)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("order %s: %w", rows[i].ID, err))
			continue
		}
		if result != nil && result.Updated {
			updated++
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{"scanned": len(rows), "updated": updated})
	j.logg.Info(logCtx, "payment reconcile loop complete")
	return errs
}
