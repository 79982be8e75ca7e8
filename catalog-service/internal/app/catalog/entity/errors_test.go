package entity

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAggregationError_UnwrapsConflict(t *testing.T) {
	cause := errors.New("could not serialize access")
	err := fmt.Errorf("recompute: %w", &AggregationError{
		ProductID: 7,
		Err:       &ConflictError{Err: cause},
	})

	var aggErr *AggregationError
	assert.True(t, errors.As(err, &aggErr))
	assert.Equal(t, int64(7), aggErr.ProductID)

	var conflict *ConflictError
	assert.True(t, errors.As(err, &conflict))
	assert.ErrorIs(t, err, cause)
}

func TestValidationError_Message(t *testing.T) {
	assert.Equal(t, "validation failed: min_price: must not exceed max_price",
		NewValidationError("min_price", "must not exceed max_price").Error())
	assert.Equal(t, "validation failed: bad input",
		NewValidationError("", "bad input").Error())
}

func TestNotFoundError_Message(t *testing.T) {
	err := &NotFoundError{Entity: "product", ID: 3}
	assert.Equal(t, "product 3 not found or inactive", err.Error())
}
