package rating

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"marketplace/catalog-service/internal/app/catalog/entity"
	"marketplace/pkg/logger"
	"marketplace/pkg/metrics"
	"marketplace/pkg/retry"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

const (
	// один пересчёт и один повтор
	maxAttempts         = 2
	defaultRetryBackoff = 50 * time.Millisecond
)

const (
	statusSuccess  = "success"
	statusRetried  = "retried"
	statusNotFound = "not_found"
	statusFailed   = "failed"
)

type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// Aggregator пересчитывает rating товара как среднее по активным отзывам.
// Пересчёты одного товара сериализуются блокировкой строки товара,
// разные товары не блокируют друг друга.
type Aggregator struct {
	db      TxBeginner
	qb      sq.StatementBuilderType
	backoff time.Duration
}

type Option func(*Aggregator)

// WithRetryBackoff задаёт паузу перед повторной попыткой
func WithRetryBackoff(d time.Duration) Option {
	return func(a *Aggregator) {
		a.backoff = d
	}
}

func NewAggregator(db TxBeginner, opts ...Option) *Aggregator {
	a := &Aggregator{
		db:      db,
		qb:      sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		backoff: defaultRetryBackoff,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Recompute записывает и возвращает новое значение рейтинга.
// Товар без активных отзывов получает 0.
// Неизвестный товар: *entity.NotFoundError. Неудача после повтора: *entity.AggregationError.
func (a *Aggregator) Recompute(ctx context.Context, productID int64) (decimal.Decimal, error) {
	start := time.Now()
	retried := false

	cfg := retry.RetryConfig{
		MaxAttempts: maxAttempts,
		Backoff:     retry.LinearBackoff(a.backoff),
		ShouldRetry: isRetryable,
		OnRetry: func(attempt int, err error) {
			retried = true
			logger.Warn().
				Err(err).
				Int64("product_id", productID).
				Int("attempt", attempt).
				Msg("Rating recompute failed, retrying")
		},
	}

	value, err := retry.DoWithResult(ctx, cfg, func() (decimal.Decimal, error) {
		return a.recomputeOnce(ctx, productID)
	})

	if err != nil {
		var notFound *entity.NotFoundError
		if errors.As(err, &notFound) {
			metrics.RecordRatingRecompute(statusNotFound, time.Since(start))
			return decimal.Zero, err
		}

		metrics.RecordRatingRecompute(statusFailed, time.Since(start))
		logger.Error().
			Err(err).
			Int64("product_id", productID).
			Msg("Rating recompute failed")
		return decimal.Zero, &entity.AggregationError{ProductID: productID, Err: err}
	}

	status := statusSuccess
	if retried {
		status = statusRetried
	}
	metrics.RecordRatingRecompute(status, time.Since(start))

	logger.Debug().
		Int64("product_id", productID).
		Str("rating", value.String()).
		Msg("Rating recomputed")

	return value, nil
}

func (a *Aggregator) recomputeOnce(ctx context.Context, productID int64) (decimal.Decimal, error) {
	lockSQL, lockArgs, err := a.qb.Select("id").
		From("products").
		Where(sq.Eq{"id": productID}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to build lock query: %w", err)
	}

	avgSQL, avgArgs, err := a.qb.Select("COALESCE(ROUND(AVG(grade)::numeric, 1), 0)").
		From("reviews").
		Where(sq.Eq{"product_id": productID, "is_active": true}).
		ToSql()
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to build average query: %w", err)
	}

	tx, err := a.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return decimal.Zero, classify(fmt.Errorf("failed to begin rating transaction: %w", err))
	}
	defer func() { _ = tx.Rollback() }()

	// Блокировка строки товара ставит конкурентные пересчёты в очередь;
	// каждый следующий читает средний балл после фиксации предыдущего.
	var lockedID int64
	if err := tx.QueryRowContext(ctx, lockSQL, lockArgs...).Scan(&lockedID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, &entity.NotFoundError{Entity: "product", ID: productID}
		}
		metrics.RecordDbError(entity.ServiceName, metrics.DbOpSelect)
		return decimal.Zero, classify(fmt.Errorf("failed to lock product: %w", err))
	}

	var avg decimal.Decimal
	timer := metrics.NewDbTimer(entity.ServiceName, metrics.DbOpSelect, "reviews")
	err = tx.QueryRowContext(ctx, avgSQL, avgArgs...).Scan(&avg)
	timer.ObserveDuration()
	if err != nil {
		metrics.RecordDbError(entity.ServiceName, metrics.DbOpSelect)
		return decimal.Zero, classify(fmt.Errorf("failed to average grades: %w", err))
	}

	updateSQL, updateArgs, err := a.qb.Update("products").
		Set("rating", avg).
		Where(sq.Eq{"id": productID}).
		ToSql()
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to build rating update: %w", err)
	}

	timer = metrics.NewDbTimer(entity.ServiceName, metrics.DbOpUpdate, "products")
	_, err = tx.ExecContext(ctx, updateSQL, updateArgs...)
	timer.ObserveDuration()
	if err != nil {
		metrics.RecordDbError(entity.ServiceName, metrics.DbOpUpdate)
		return decimal.Zero, classify(fmt.Errorf("failed to store rating: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return decimal.Zero, classify(fmt.Errorf("failed to commit rating: %w", err))
	}

	return avg, nil
}

// classify оборачивает конфликты сериализации и взаимоблокировки в ConflictError
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected, pgerrcode.LockNotAvailable:
			return &entity.ConflictError{Err: err}
		}
	}
	return err
}

func isRetryable(err error) bool {
	var notFound *entity.NotFoundError
	if errors.As(err, &notFound) {
		return false
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
