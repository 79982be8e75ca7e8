package search

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const (
	countQuery = "SELECT COUNT(*) FROM products p JOIN categories c ON c.id = p.category_id WHERE p.is_active = $1 AND c.is_active = $2"
	pageQuery  = "SELECT p.id, p.name, p.description, p.price, p.image_url, p.stock, p.category_id, p.seller_id, p.is_active, p.rating, p.created_at " +
		"FROM products p JOIN categories c ON c.id = p.category_id WHERE p.is_active = $1 AND c.is_active = $2 ORDER BY p.id ASC"
)

var productRowColumns = []string{
	"id", "name", "description", "price", "image_url", "stock",
	"category_id", "seller_id", "is_active", "rating", "created_at",
}

type ExecutorTestSuite struct {
	suite.Suite
	mock     sqlmock.Sqlmock
	executor *Executor
}

func (s *ExecutorTestSuite) SetupTest() {
	db, mock, err := sqlmock.New()
	require.NoError(s.T(), err)

	s.mock = mock
	s.executor = NewExecutor(db)
}

func (s *ExecutorTestSuite) TearDownTest() {
	assert.NoError(s.T(), s.mock.ExpectationsWereMet())
}

func TestExecutorTestSuite(t *testing.T) {
	suite.Run(t, new(ExecutorTestSuite))
}

func (s *ExecutorTestSuite) compile(page, pageSize int) Query {
	f := NewFilter()
	f.Page = page
	f.PageSize = pageSize
	q, err := Compile(f)
	require.NoError(s.T(), err)
	return q
}

func (s *ExecutorTestSuite) TestExecute_CountAndPageInOneTransaction() {
	createdAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(productRowColumns).
		AddRow(int64(1), "Wireless Mouse", "Ergonomic", "19.99", nil, 5, int64(2), int64(7), true, "4.5", createdAt).
		AddRow(int64(2), "Keyboard", nil, "49.00", "http://img/kb.png", 0, int64(2), int64(8), true, "0", createdAt)

	s.mock.ExpectBegin()
	s.mock.ExpectQuery(regexp.QuoteMeta(countQuery)).
		WithArgs(true, true).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(3)))
	s.mock.ExpectQuery(regexp.QuoteMeta(pageQuery + " LIMIT 2 OFFSET 0")).
		WithArgs(true, true).
		WillReturnRows(rows)
	s.mock.ExpectCommit()

	page, err := s.executor.Execute(context.Background(), s.compile(1, 2))

	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(3), page.Total)
	assert.Equal(s.T(), 1, page.Page)
	assert.Equal(s.T(), 2, page.PageSize)
	require.Len(s.T(), page.Items, 2)

	first := page.Items[0]
	assert.Equal(s.T(), int64(1), first.ID)
	require.NotNil(s.T(), first.Description)
	assert.Equal(s.T(), "Ergonomic", *first.Description)
	assert.Nil(s.T(), first.ImageURL)
	assert.True(s.T(), decimal.RequireFromString("19.99").Equal(first.Price))
	assert.True(s.T(), decimal.RequireFromString("4.5").Equal(first.Rating))
	assert.Equal(s.T(), createdAt, first.CreatedAt)

	second := page.Items[1]
	assert.Nil(s.T(), second.Description)
	require.NotNil(s.T(), second.ImageURL)
	assert.Equal(s.T(), 0, second.Stock)
}

func (s *ExecutorTestSuite) TestExecute_SkipsPageQueryBeyondTotal() {
	s.mock.ExpectBegin()
	s.mock.ExpectQuery(regexp.QuoteMeta(countQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(3)))
	s.mock.ExpectCommit()

	page, err := s.executor.Execute(context.Background(), s.compile(2, 3))

	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(3), page.Total)
	assert.NotNil(s.T(), page.Items)
	assert.Empty(s.T(), page.Items)
}

func (s *ExecutorTestSuite) TestExecute_EmptyCatalog() {
	s.mock.ExpectBegin()
	s.mock.ExpectQuery(regexp.QuoteMeta(countQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(0)))
	s.mock.ExpectCommit()

	page, err := s.executor.Execute(context.Background(), s.compile(1, 20))

	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(0), page.Total)
	assert.Empty(s.T(), page.Items)
}

func (s *ExecutorTestSuite) TestExecute_CountFailureRollsBack() {
	s.mock.ExpectBegin()
	s.mock.ExpectQuery(regexp.QuoteMeta(countQuery)).
		WillReturnError(errors.New("connection reset"))
	s.mock.ExpectRollback()

	page, err := s.executor.Execute(context.Background(), s.compile(1, 20))

	assert.Nil(s.T(), page)
	assert.ErrorContains(s.T(), err, "failed to count products")
}

func (s *ExecutorTestSuite) TestExecute_PageFailureRollsBack() {
	s.mock.ExpectBegin()
	s.mock.ExpectQuery(regexp.QuoteMeta(countQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(5)))
	s.mock.ExpectQuery(regexp.QuoteMeta(pageQuery)).
		WillReturnError(errors.New("statement timeout"))
	s.mock.ExpectRollback()

	page, err := s.executor.Execute(context.Background(), s.compile(1, 20))

	assert.Nil(s.T(), page)
	assert.ErrorContains(s.T(), err, "failed to query products page")
}

func (s *ExecutorTestSuite) TestExecute_BeginFailure() {
	s.mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

	_, err := s.executor.Execute(context.Background(), s.compile(1, 20))

	assert.ErrorContains(s.T(), err, "failed to begin search transaction")
}
