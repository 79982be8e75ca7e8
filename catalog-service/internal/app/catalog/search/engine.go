package search

import (
	"context"

	"marketplace/catalog-service/internal/app/catalog/entity"
	"marketplace/pkg/logger"
	"marketplace/pkg/metrics"
)

// PageExecutor выполняет скомпилированный запрос
type PageExecutor interface {
	Execute(ctx context.Context, q Query) (*entity.ProductPage, error)
}

// Engine связывает компилятор, ранжировщик и исполнитель
type Engine struct {
	ranker   Ranker
	executor PageExecutor
}

func NewEngine(ranker Ranker, executor PageExecutor) *Engine {
	return &Engine{ranker: ranker, executor: executor}
}

func (e *Engine) Mode() Mode {
	return e.ranker.Mode()
}

// Search компилирует фильтр, при наличии текста ранжирует и возвращает страницу
func (e *Engine) Search(ctx context.Context, f Filter) (*entity.ProductPage, error) {
	mode := ModeNone

	q, err := Compile(f)
	if err != nil {
		metrics.RecordSearch(string(mode), "invalid", 0)
		return nil, err
	}

	if q.Term != "" {
		mode = e.ranker.Mode()
		q.Predicates, q.Order = e.ranker.Rank(q.Predicates, q.Term)
	}

	page, err := e.executor.Execute(ctx, q)
	if err != nil {
		metrics.RecordSearch(string(mode), "error", 0)
		logger.Error().
			Err(err).
			Str("mode", string(mode)).
			Int("page", q.Page).
			Msg("Product search failed")
		return nil, err
	}

	metrics.RecordSearch(string(mode), "ok", page.Total)
	logger.Debug().
		Str("mode", string(mode)).
		Int64("total", page.Total).
		Int("returned", len(page.Items)).
		Msg("Product search completed")

	return page, nil
}
