package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"marketplace/catalog-service/internal/app/catalog/entity"
	"marketplace/pkg/metrics"
)

const categoryColumns = `id, name, parent_id, is_active, created_at`

type categoryRepository struct {
	db *sql.DB // общий пул pgx (stdlib) с движком поиска
}

// NewCategoryRepository создает новый репозиторий категорий
func NewCategoryRepository(db *sql.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

// Create создает новую категорию
// Уникальность имени проверяется UNIQUE constraint
func (r *categoryRepository) Create(ctx context.Context, category *entity.Category) error {
	query := `
		INSERT INTO categories (name, parent_id, is_active)
		VALUES ($1, $2, TRUE)
		RETURNING id, is_active, created_at
	`

	timer := metrics.NewDbTimer(entity.ServiceName, metrics.DbOpInsert, "categories")
	defer timer.ObserveDuration()

	err := r.db.QueryRowContext(ctx, query, category.Name, category.ParentID).
		Scan(&category.ID, &category.IsActive, &category.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrCategoryAlreadyExists
		}
		metrics.RecordDbError(entity.ServiceName, metrics.DbOpInsert)
		return fmt.Errorf("failed to create category: %w", err)
	}

	return nil
}

func (r *categoryRepository) GetByID(ctx context.Context, id int64) (*entity.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// GetActiveByID используется для проверки родителя и категории товара
func (r *categoryRepository) GetActiveByID(ctx context.Context, id int64) (*entity.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE id = $1 AND is_active = TRUE`
	return r.getOne(ctx, query, id)
}

func (r *categoryRepository) getOne(ctx context.Context, query string, id int64) (*entity.Category, error) {
	timer := metrics.NewDbTimer(entity.ServiceName, metrics.DbOpSelect, "categories")
	defer timer.ObserveDuration()

	var category entity.Category
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&category.ID,
		&category.Name,
		&category.ParentID,
		&category.IsActive,
		&category.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		metrics.RecordDbError(entity.ServiceName, metrics.DbOpSelect)
		return nil, fmt.Errorf("failed to get category by id: %w", err)
	}

	return &category, nil
}

// GetAll получает активные категории, отсортированные по имени
// Результат кешируется в Redis через service layer
func (r *categoryRepository) GetAll(ctx context.Context) ([]entity.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE is_active = TRUE ORDER BY name ASC`

	timer := metrics.NewDbTimer(entity.ServiceName, metrics.DbOpSelect, "categories")
	defer timer.ObserveDuration()

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		metrics.RecordDbError(entity.ServiceName, metrics.DbOpSelect)
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}
	defer rows.Close()

	categories := []entity.Category{}
	for rows.Next() {
		var category entity.Category
		if err := rows.Scan(
			&category.ID,
			&category.Name,
			&category.ParentID,
			&category.IsActive,
			&category.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, category)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	return categories, nil
}

// Update меняет имя и родителя активной категории
func (r *categoryRepository) Update(ctx context.Context, category *entity.Category) error {
	query := `
		UPDATE categories
		SET name = $1, parent_id = $2
		WHERE id = $3 AND is_active = TRUE
	`

	timer := metrics.NewDbTimer(entity.ServiceName, metrics.DbOpUpdate, "categories")
	defer timer.ObserveDuration()

	result, err := r.db.ExecContext(ctx, query, category.Name, category.ParentID, category.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrCategoryAlreadyExists
		}
		metrics.RecordDbError(entity.ServiceName, metrics.DbOpUpdate)
		return fmt.Errorf("failed to update category: %w", err)
	}

	return requireAffected(result, ErrCategoryNotFound)
}

// Deactivate мягко удаляет категорию
// Товары категории остаются, но пропадают из поиска
func (r *categoryRepository) Deactivate(ctx context.Context, id int64) error {
	query := `UPDATE categories SET is_active = FALSE WHERE id = $1 AND is_active = TRUE`

	timer := metrics.NewDbTimer(entity.ServiceName, metrics.DbOpUpdate, "categories")
	defer timer.ObserveDuration()

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		metrics.RecordDbError(entity.ServiceName, metrics.DbOpUpdate)
		return fmt.Errorf("failed to deactivate category: %w", err)
	}

	return requireAffected(result, ErrCategoryNotFound)
}

func requireAffected(result sql.Result, notFound error) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return notFound
	}
	return nil
}
