package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRanker_SelectsMode(t *testing.T) {
	assert.Equal(t, ModeFullText, NewRanker(true, "").Mode())
	assert.Equal(t, ModeSubstring, NewRanker(false, "english").Mode())
}

func TestFullTextRanker_ReplacesSubstringPredicate(t *testing.T) {
	f := NewFilter()
	f.Search = strPtr("wireless mouse")
	f.InStock = boolPtr(true)

	q, err := Compile(f)
	require.NoError(t, err)

	q.Predicates, q.Order = NewFullTextRanker("").Rank(q.Predicates, q.Term)

	names := make([]string, 0, len(q.Predicates))
	for _, p := range q.Predicates {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{PredProductActive, PredCategoryActive, PredSearch, PredInStock}, names)

	sql, args, err := NewExecutor(nil).PageSQL(q)
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT p.id, p.name, p.description, p.price, p.image_url, p.stock, p.category_id, p.seller_id, p.is_active, p.rating, p.created_at "+
			"FROM products p JOIN categories c ON c.id = p.category_id "+
			"WHERE p.is_active = $1 AND c.is_active = $2 "+
			"AND p.search_vector @@ plainto_tsquery($3::regconfig, $4) AND p.stock > $5 "+
			"ORDER BY ts_rank(p.search_vector, plainto_tsquery($6::regconfig, $7)) DESC, p.id ASC "+
			"LIMIT 20 OFFSET 0",
		sql)
	assert.Equal(t, []interface{}{
		true, true,
		"english", "wireless mouse", 0,
		"english", "wireless mouse",
	}, args)

	countSQL, countArgs, err := NewExecutor(nil).CountSQL(q)
	require.NoError(t, err)
	assert.NotContains(t, countSQL, "ts_rank")
	assert.NotContains(t, countSQL, "ILIKE")
	assert.Len(t, countArgs, 5)
}

func TestFullTextRanker_AppendsWhenNoSearchPredicate(t *testing.T) {
	q, err := Compile(NewFilter())
	require.NoError(t, err)

	preds, order := NewFullTextRanker("simple").Rank(q.Predicates, "keyboard")

	require.Len(t, preds, 3)
	assert.Equal(t, PredSearch, preds[2].Name)
	require.Len(t, order, 2)
	assert.Equal(t, []interface{}{"simple", "keyboard"}, order[0].Args)
	assert.Equal(t, idAsc, order[1])
}

func TestFullTextRanker_BlankTermKeepsBaseOrder(t *testing.T) {
	q, err := Compile(NewFilter())
	require.NoError(t, err)

	preds, order := NewFullTextRanker("").Rank(q.Predicates, "  ")

	assert.Equal(t, q.Predicates, preds)
	assert.Equal(t, BaseOrder(), order)
}

func TestSubstringRanker_KeepsPredicates(t *testing.T) {
	f := NewFilter()
	f.Search = strPtr("mouse")

	q, err := Compile(f)
	require.NoError(t, err)

	preds, order := SubstringRanker{}.Rank(q.Predicates, q.Term)

	assert.Equal(t, q.Predicates, preds)
	assert.Equal(t, BaseOrder(), order)
}
