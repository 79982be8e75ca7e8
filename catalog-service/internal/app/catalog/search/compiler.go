package search

import (
	"errors"
	"math"
	"reflect"
	"strings"

	"marketplace/catalog-service/internal/app/catalog/entity"

	sq "github.com/Masterminds/squirrel"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Имена предикатов. Ранжировщик находит предикат поиска по имени.
const (
	PredProductActive  = "product_active"
	PredCategoryActive = "category_active"
	PredCategory       = "category"
	PredSearch         = "search"
	PredMinPrice       = "min_price"
	PredMaxPrice       = "max_price"
	PredInStock        = "in_stock"
	PredSeller         = "seller"
)

// Filter - параметры поиска товаров, живут один запрос
type Filter struct {
	Page       int              `form:"page" validate:"min=1"`
	PageSize   int              `form:"page_size" validate:"min=1,max=100"`
	CategoryID *int64           `form:"category_id" validate:"omitempty,gt=0"`
	Search     *string          `form:"search"`
	MinPrice   *decimal.Decimal `form:"min_price"`
	MaxPrice   *decimal.Decimal `form:"max_price"`
	InStock    *bool            `form:"in_stock"`
	SellerID   *int64           `form:"seller_id" validate:"omitempty,gt=0"`
}

// NewFilter возвращает фильтр со значениями пагинации по умолчанию
func NewFilter() Filter {
	return Filter{Page: DefaultPage, PageSize: DefaultPageSize}
}

// Predicate - именованное булево условие над products p JOIN categories c
type Predicate struct {
	Name string
	Cond sq.Sqlizer
}

// OrderTerm - элемент ORDER BY с собственными аргументами
type OrderTerm struct {
	Expr string
	Args []interface{}
}

// Query - результат компиляции фильтра
type Query struct {
	Predicates []Predicate
	Order      []OrderTerm
	Page       int
	PageSize   int
	// Term - нормализованный поисковый текст, пустой если поиска нет
	Term string
}

// Offset не переполняется: Compile ограничивает page так, что смещение влезает в int64
func (q Query) Offset() uint64 {
	return uint64(q.Page-1) * uint64(q.PageSize)
}

// Has сообщает, есть ли в запросе предикат с таким именем
func (q Query) Has(name string) bool {
	for _, p := range q.Predicates {
		if p.Name == name {
			return true
		}
	}
	return false
}

var idAsc = OrderTerm{Expr: "p.id ASC"}

// BaseOrder - порядок без ранжирования. id уникален, порядок полный.
func BaseOrder() []OrderTerm {
	return []OrderTerm{idAsc}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// Compile проверяет фильтр и строит набор предикатов и базовый порядок.
// Ничего не читает из хранилища.
func Compile(f Filter) (Query, error) {
	if err := validateFilter(f); err != nil {
		return Query{}, err
	}

	preds := []Predicate{
		{Name: PredProductActive, Cond: sq.Eq{"p.is_active": true}},
		{Name: PredCategoryActive, Cond: sq.Eq{"c.is_active": true}},
	}

	if f.CategoryID != nil {
		preds = append(preds, Predicate{Name: PredCategory, Cond: sq.Eq{"p.category_id": *f.CategoryID}})
	}

	var term string
	if f.Search != nil {
		term = normalizeTerm(*f.Search)
		pattern := "%" + escapeLike(term) + "%"
		preds = append(preds, Predicate{Name: PredSearch, Cond: sq.Or{
			sq.ILike{"p.name": pattern},
			sq.ILike{"p.description": pattern},
		}})
	}

	if f.MinPrice != nil {
		preds = append(preds, Predicate{Name: PredMinPrice, Cond: sq.GtOrEq{"p.price": *f.MinPrice}})
	}
	if f.MaxPrice != nil {
		preds = append(preds, Predicate{Name: PredMaxPrice, Cond: sq.LtOrEq{"p.price": *f.MaxPrice}})
	}

	if f.InStock != nil {
		if *f.InStock {
			preds = append(preds, Predicate{Name: PredInStock, Cond: sq.Gt{"p.stock": 0}})
		} else {
			preds = append(preds, Predicate{Name: PredInStock, Cond: sq.Eq{"p.stock": 0}})
		}
	}

	if f.SellerID != nil {
		preds = append(preds, Predicate{Name: PredSeller, Cond: sq.Eq{"p.seller_id": *f.SellerID}})
	}

	return Query{
		Predicates: preds,
		Order:      BaseOrder(),
		Page:       f.Page,
		PageSize:   f.PageSize,
		Term:       term,
	}, nil
}

func validateFilter(f Filter) error {
	if err := validate.Struct(f); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return entity.NewValidationError(verrs[0].Field(), describe(verrs[0]))
		}
		return entity.NewValidationError("", err.Error())
	}

	// смещение (page-1)*page_size должно помещаться в BIGINT
	if int64(f.Page-1) > math.MaxInt64/int64(f.PageSize) {
		return entity.NewValidationError("page", "is too large for the requested page_size")
	}

	if f.Search != nil && normalizeTerm(*f.Search) == "" {
		return entity.NewValidationError("search", "must contain at least one non-space character")
	}

	if f.MinPrice != nil && f.MinPrice.IsNegative() {
		return entity.NewValidationError("min_price", "must be greater than or equal to 0")
	}
	if f.MaxPrice != nil && f.MaxPrice.IsNegative() {
		return entity.NewValidationError("max_price", "must be greater than or equal to 0")
	}
	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		return entity.NewValidationError("min_price", "must not exceed max_price")
	}

	return nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	default:
		return "failed on " + fe.Tag()
	}
}

func normalizeTerm(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike экранирует спецсимволы LIKE, чтобы искать их буквально
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
