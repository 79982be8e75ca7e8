package processor

import (
	"context"
	"fmt"

	"marketplace/catalog-service/internal/app/catalog/service"
	"marketplace/pkg/logger"

	"github.com/robfig/cron/v3"
)

// RatingReconciler периодически пересчитывает рейтинги из очереди ratings:stale.
// Туда попадают товары, чей пересчёт после изменения отзывов не удался.
type RatingReconciler struct {
	cron    *cron.Cron
	ratings service.RatingServiceInterface
	batch   int64
}

func NewRatingReconciler(ratings service.RatingServiceInterface, batch int64) *RatingReconciler {
	l := logger.Get()
	cronLogger := cron.PrintfLogger(&l)

	c := cron.New(
		cron.WithLogger(cronLogger),
		// запуск не накладывается на ещё идущий
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)

	return &RatingReconciler{
		cron:    c,
		ratings: ratings,
		batch:   batch,
	}
}

// Start регистрирует задачу и запускает планировщик.
// ctx передаётся в каждый запуск, его отмена прерывает пакет.
func (r *RatingReconciler) Start(ctx context.Context, schedule string) error {
	if _, err := r.cron.AddFunc(schedule, func() { r.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("invalid reconcile schedule %q: %w", schedule, err)
	}

	r.cron.Start()
	logger.Info().
		Str("schedule", schedule).
		Int64("batch", r.batch).
		Msg("Rating reconciler started")

	return nil
}

// RunOnce обрабатывает один пакет, возвращает число пересчитанных товаров
func (r *RatingReconciler) RunOnce(ctx context.Context) int {
	recomputed, err := r.ratings.ReconcileStale(ctx, r.batch)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to reconcile stale ratings")
		return recomputed
	}

	if recomputed > 0 {
		logger.Info().Int("recomputed", recomputed).Msg("Stale ratings reconciled")
	}
	return recomputed
}

// Stop останавливает планировщик и ждёт завершения текущего запуска
func (r *RatingReconciler) Stop() {
	logger.Info().Msg("Stopping rating reconciler...")
	<-r.cron.Stop().Done()
	logger.Info().Msg("Rating reconciler stopped")
}

func (r *RatingReconciler) Entries() []cron.Entry {
	return r.cron.Entries()
}
