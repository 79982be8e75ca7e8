package search

import (
	"fmt"
	"math"
	"testing"

	"marketplace/catalog-service/internal/app/catalog/entity"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func int64Ptr(v int64) *int64 { return &v }

func boolPtr(b bool) *bool { return &b }

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestCompile_DefaultsOnlyActivityPredicates(t *testing.T) {
	q, err := Compile(NewFilter())
	require.NoError(t, err)

	require.Len(t, q.Predicates, 2)
	assert.Equal(t, PredProductActive, q.Predicates[0].Name)
	assert.Equal(t, PredCategoryActive, q.Predicates[1].Name)
	assert.Equal(t, BaseOrder(), q.Order)
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, 20, q.PageSize)
	assert.Equal(t, uint64(0), q.Offset())
	assert.Empty(t, q.Term)

	sql, args, err := NewExecutor(nil).CountSQL(q)
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT COUNT(*) FROM products p JOIN categories c ON c.id = p.category_id WHERE p.is_active = $1 AND c.is_active = $2",
		sql)
	assert.Equal(t, []interface{}{true, true}, args)
}

func TestCompile_AllFilters(t *testing.T) {
	f := NewFilter()
	f.Page = 3
	f.PageSize = 10
	f.CategoryID = int64Ptr(4)
	f.Search = strPtr("  wireless   mouse ")
	f.MinPrice = decPtr("10")
	f.MaxPrice = decPtr("99.90")
	f.InStock = boolPtr(true)
	f.SellerID = int64Ptr(12)

	q, err := Compile(f)
	require.NoError(t, err)

	assert.Equal(t, "wireless mouse", q.Term)
	assert.Equal(t, uint64(20), q.Offset())
	for _, name := range []string{PredCategory, PredSearch, PredMinPrice, PredMaxPrice, PredInStock, PredSeller} {
		assert.True(t, q.Has(name), name)
	}

	sql, args, err := NewExecutor(nil).PageSQL(q)
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT p.id, p.name, p.description, p.price, p.image_url, p.stock, p.category_id, p.seller_id, p.is_active, p.rating, p.created_at "+
			"FROM products p JOIN categories c ON c.id = p.category_id "+
			"WHERE p.is_active = $1 AND c.is_active = $2 AND p.category_id = $3 "+
			"AND (p.name ILIKE $4 OR p.description ILIKE $5) "+
			"AND p.price >= $6 AND p.price <= $7 AND p.stock > $8 AND p.seller_id = $9 "+
			"ORDER BY p.id ASC LIMIT 10 OFFSET 20",
		sql)
	assert.Equal(t, []interface{}{
		true, true, int64(4),
		"%wireless mouse%", "%wireless mouse%",
		"10", "99.9", 0, int64(12),
	}, args)
}

func TestCompile_OutOfStock(t *testing.T) {
	f := NewFilter()
	f.InStock = boolPtr(false)

	q, err := Compile(f)
	require.NoError(t, err)

	sql, args, err := NewExecutor(nil).CountSQL(q)
	require.NoError(t, err)
	assert.Contains(t, sql, "p.stock = $3")
	assert.Equal(t, 0, args[2])
}

func TestCompile_EscapesLikeMetacharacters(t *testing.T) {
	f := NewFilter()
	f.Search = strPtr(`100%_off\`)

	q, err := Compile(f)
	require.NoError(t, err)

	_, args, err := NewExecutor(nil).CountSQL(q)
	require.NoError(t, err)
	assert.Equal(t, `%100\%\_off\\%`, args[2])
}

func TestCompile_EqualMinAndMaxPrice(t *testing.T) {
	f := NewFilter()
	f.MinPrice = decPtr("15.00")
	f.MaxPrice = decPtr("15")

	_, err := Compile(f)
	assert.NoError(t, err)
}

func TestCompile_LargestPageKeepsExactOffset(t *testing.T) {
	f := NewFilter()
	f.PageSize = 16
	f.Page = math.MaxInt64/16 + 1

	q, err := Compile(f)

	require.NoError(t, err)
	want := uint64(f.Page-1) * 16
	assert.Equal(t, want, q.Offset())
	assert.LessOrEqual(t, want, uint64(math.MaxInt64))

	sql, _, err := NewExecutor(nil).PageSQL(q)
	require.NoError(t, err)
	assert.Contains(t, sql, fmt.Sprintf("OFFSET %d", want))
}

func TestCompile_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(f *Filter)
		field  string
	}{
		{"page zero", func(f *Filter) { f.Page = 0 }, "page"},
		{"page size zero", func(f *Filter) { f.PageSize = 0 }, "page_size"},
		{"page size too large", func(f *Filter) { f.PageSize = 101 }, "page_size"},
		{"blank search", func(f *Filter) { f.Search = strPtr("   \t ") }, "search"},
		{"empty search", func(f *Filter) { f.Search = strPtr("") }, "search"},
		{"negative min price", func(f *Filter) { f.MinPrice = decPtr("-1") }, "min_price"},
		{"negative max price", func(f *Filter) { f.MaxPrice = decPtr("-0.01") }, "max_price"},
		{"min above max", func(f *Filter) {
			f.MinPrice = decPtr("50")
			f.MaxPrice = decPtr("10")
		}, "min_price"},
		{"non positive category", func(f *Filter) { f.CategoryID = int64Ptr(0) }, "category_id"},
		{"non positive seller", func(f *Filter) { f.SellerID = int64Ptr(-3) }, "seller_id"},
		{"offset wraps uint64", func(f *Filter) {
			f.Page = 1<<60 + 1
			f.PageSize = 16
		}, "page"},
		{"offset beyond bigint", func(f *Filter) { f.Page = math.MaxInt64/20 + 2 }, "page"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFilter()
			tt.modify(&f)

			_, err := Compile(f)

			var verr *entity.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}
