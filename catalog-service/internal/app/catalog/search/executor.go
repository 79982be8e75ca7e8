package search

import (
	"context"
	"database/sql"
	"fmt"

	"marketplace/catalog-service/internal/app/catalog/entity"
	"marketplace/pkg/metrics"

	sq "github.com/Masterminds/squirrel"
)

const fromProducts = "products p"

const joinCategories = "categories c ON c.id = p.category_id"

var productColumns = []string{
	"p.id",
	"p.name",
	"p.description",
	"p.price",
	"p.image_url",
	"p.stock",
	"p.category_id",
	"p.seller_id",
	"p.is_active",
	"p.rating",
	"p.created_at",
}

// TxBeginner - источник транзакций, *sql.DB
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// Executor выполняет запрос подсчёта и запрос страницы в одной транзакции,
// поэтому total и items видят один и тот же снимок данных.
type Executor struct {
	db TxBeginner
	qb sq.StatementBuilderType
}

func NewExecutor(db TxBeginner) *Executor {
	return &Executor{
		db: db,
		qb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// CountSQL строит запрос подсчёта: те же предикаты, без порядка и LIMIT
func (e *Executor) CountSQL(q Query) (string, []interface{}, error) {
	b := e.qb.Select("COUNT(*)").
		From(fromProducts).
		Join(joinCategories)

	return applyPredicates(b, q).ToSql()
}

// PageSQL строит запрос страницы
func (e *Executor) PageSQL(q Query) (string, []interface{}, error) {
	b := applyPredicates(e.qb.Select(productColumns...).
		From(fromProducts).
		Join(joinCategories), q)

	for _, o := range q.Order {
		b = b.OrderByClause(o.Expr, o.Args...)
	}

	return b.Limit(uint64(q.PageSize)).Offset(q.Offset()).ToSql()
}

func applyPredicates(b sq.SelectBuilder, q Query) sq.SelectBuilder {
	for _, p := range q.Predicates {
		b = b.Where(p.Cond)
	}
	return b
}

func (e *Executor) Execute(ctx context.Context, q Query) (*entity.ProductPage, error) {
	countSQL, countArgs, err := e.CountSQL(q)
	if err != nil {
		return nil, fmt.Errorf("failed to build count query: %w", err)
	}
	pageSQL, pageArgs, err := e.PageSQL(q)
	if err != nil {
		return nil, fmt.Errorf("failed to build page query: %w", err)
	}

	// Поиск только читает: REPEATABLE READ даёт общий снимок для обоих запросов
	tx, err := e.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to begin search transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var total int64
	timer := metrics.NewDbTimer(entity.ServiceName, metrics.DbOpCount, "products")
	err = tx.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total)
	timer.ObserveDuration()
	if err != nil {
		metrics.RecordDbError(entity.ServiceName, metrics.DbOpCount)
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	items := []entity.Product{}
	if q.Offset() < uint64(total) {
		items, err = e.fetchPage(ctx, tx, pageSQL, pageArgs)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit search transaction: %w", err)
	}

	return &entity.ProductPage{
		Items:    items,
		Total:    total,
		Page:     q.Page,
		PageSize: q.PageSize,
	}, nil
}

func (e *Executor) fetchPage(ctx context.Context, tx *sql.Tx, query string, args []interface{}) ([]entity.Product, error) {
	timer := metrics.NewDbTimer(entity.ServiceName, metrics.DbOpSelect, "products")
	defer timer.ObserveDuration()

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		metrics.RecordDbError(entity.ServiceName, metrics.DbOpSelect)
		return nil, fmt.Errorf("failed to query products page: %w", err)
	}
	defer rows.Close()

	items := []entity.Product{}
	for rows.Next() {
		var p entity.Product
		if err := rows.Scan(
			&p.ID,
			&p.Name,
			&p.Description,
			&p.Price,
			&p.ImageURL,
			&p.Stock,
			&p.CategoryID,
			&p.SellerID,
			&p.IsActive,
			&p.Rating,
			&p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		items = append(items, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return items, nil
}
