package search

import (
	"strings"

	sq "github.com/Masterminds/squirrel"
)

type Mode string

const (
	ModeNone      Mode = "none"
	ModeFullText  Mode = "fulltext"
	ModeSubstring Mode = "substring"
)

const DefaultTextConfig = "english"

// Ranker дополняет предикаты и порядок, когда задан поисковый текст
type Ranker interface {
	Rank(preds []Predicate, term string) ([]Predicate, []OrderTerm)
	Mode() Mode
}

// NewRanker выбирает ранжировщик один раз на процесс
func NewRanker(fullText bool, textConfig string) Ranker {
	if fullText {
		return NewFullTextRanker(textConfig)
	}
	return SubstringRanker{}
}

// FullTextRanker ранжирует по ts_rank над сгенерированной колонкой search_vector.
// Строки без совпадения (search_vector @@ query = false) исключаются.
type FullTextRanker struct {
	textConfig string
}

func NewFullTextRanker(textConfig string) FullTextRanker {
	if textConfig == "" {
		textConfig = DefaultTextConfig
	}
	return FullTextRanker{textConfig: textConfig}
}

func (r FullTextRanker) Mode() Mode {
	return ModeFullText
}

func (r FullTextRanker) Rank(preds []Predicate, term string) ([]Predicate, []OrderTerm) {
	term = strings.TrimSpace(term)
	if term == "" {
		return preds, BaseOrder()
	}

	const tsQuery = "plainto_tsquery(?::regconfig, ?)"
	match := Predicate{
		Name: PredSearch,
		Cond: sq.Expr("p.search_vector @@ "+tsQuery, r.textConfig, term),
	}

	out := make([]Predicate, 0, len(preds)+1)
	replaced := false
	for _, p := range preds {
		if p.Name == PredSearch {
			out = append(out, match)
			replaced = true
			continue
		}
		out = append(out, p)
	}
	if !replaced {
		out = append(out, match)
	}

	order := []OrderTerm{
		{Expr: "ts_rank(p.search_vector, " + tsQuery + ") DESC", Args: []interface{}{r.textConfig, term}},
		idAsc,
	}
	return out, order
}

// SubstringRanker - деградированный режим: фильтр ILIKE от компилятора,
// без оценки релевантности, порядок только по id.
type SubstringRanker struct{}

func (SubstringRanker) Mode() Mode {
	return ModeSubstring
}

func (SubstringRanker) Rank(preds []Predicate, _ string) ([]Predicate, []OrderTerm) {
	return preds, BaseOrder()
}
