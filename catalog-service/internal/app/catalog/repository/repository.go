package repository

import (
	"context"
	"errors"

	"marketplace/catalog-service/internal/app/catalog/entity"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrCategoryNotFound      = errors.New("category not found")
	ErrCategoryAlreadyExists = errors.New("category with this name already exists")
	ErrProductNotFound       = errors.New("product not found")
	ErrReviewNotFound        = errors.New("review not found")
)

type CategoryRepository interface {
	Create(ctx context.Context, category *entity.Category) error
	// GetByID возвращает категорию в любом состоянии, нужен для обхода цепочки родителей
	GetByID(ctx context.Context, id int64) (*entity.Category, error)
	GetActiveByID(ctx context.Context, id int64) (*entity.Category, error)
	GetAll(ctx context.Context) ([]entity.Category, error)
	Update(ctx context.Context, category *entity.Category) error
	Deactivate(ctx context.Context, id int64) error
}

// ProductRepository - CRUD товаров. Поле rating здесь никогда не пишется.
type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	GetActiveByID(ctx context.Context, id int64) (*entity.Product, error)
	Update(ctx context.Context, product *entity.Product) error
	Deactivate(ctx context.Context, id int64) error
}

type ReviewRepository interface {
	Create(ctx context.Context, review *entity.Review) error
	GetActiveByID(ctx context.Context, id int64) (*entity.Review, error)
	ListActive(ctx context.Context) ([]entity.Review, error)
	ListActiveByProduct(ctx context.Context, productID int64) ([]entity.Review, error)
	Deactivate(ctx context.Context, id int64) error
}

func hasPgCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

func isUniqueViolation(err error) bool {
	return hasPgCode(err, pgerrcode.UniqueViolation)
}

func isForeignKeyViolation(err error) bool {
	return hasPgCode(err, pgerrcode.ForeignKeyViolation)
}
