package handler

import (
	"reflect"
	"strconv"
	"strings"

	"marketplace/catalog-service/internal/app/catalog/entity"
	"marketplace/catalog-service/internal/app/catalog/search"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// newValidator называет поля в ошибках по json тегам
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// parseFilter разбирает параметры поиска из query string.
// Непарсящееся значение - ValidationError с именем параметра.
// Диапазоны проверяет search.Compile.
func parseFilter(c *gin.Context) (search.Filter, error) {
	f := search.NewFilter()

	if v, ok := c.GetQuery("page"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return f, entity.NewValidationError("page", "must be an integer")
		}
		f.Page = n
	}

	if v, ok := c.GetQuery("page_size"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return f, entity.NewValidationError("page_size", "must be an integer")
		}
		f.PageSize = n
	}

	var err error
	if f.CategoryID, err = queryInt64(c, "category_id"); err != nil {
		return f, err
	}
	if f.SellerID, err = queryInt64(c, "seller_id"); err != nil {
		return f, err
	}
	if f.MinPrice, err = queryDecimal(c, "min_price"); err != nil {
		return f, err
	}
	if f.MaxPrice, err = queryDecimal(c, "max_price"); err != nil {
		return f, err
	}

	if v, ok := c.GetQuery("in_stock"); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return f, entity.NewValidationError("in_stock", "must be a boolean")
		}
		f.InStock = &b
	}

	// пустой search тоже передаётся дальше, Compile его отклонит
	if v, ok := c.GetQuery("search"); ok {
		f.Search = &v
	}

	return f, nil
}

func queryInt64(c *gin.Context, name string) (*int64, error) {
	v, ok := c.GetQuery(name)
	if !ok {
		return nil, nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return nil, entity.NewValidationError(name, "must be an integer")
	}
	return &n, nil
}

func queryDecimal(c *gin.Context, name string) (*decimal.Decimal, error) {
	v, ok := c.GetQuery(name)
	if !ok {
		return nil, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(v))
	if err != nil {
		return nil, entity.NewValidationError(name, "must be a decimal number")
	}
	return &d, nil
}

// paramID разбирает положительный int64 из параметра пути
func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
