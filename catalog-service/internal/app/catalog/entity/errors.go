package entity

import "fmt"

// ValidationError - некорректный или противоречивый ввод.
// Возвращается до выполнения любого запроса.
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}

// NotFoundError - сущность не существует или неактивна
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found or inactive", e.Entity, e.ID)
}

// ConflictError - конфликт сериализации или взаимоблокировка в хранилище
type ConflictError struct {
	Err error
}

func (e *ConflictError) Error() string {
	return "serialization conflict: " + e.Err.Error()
}

func (e *ConflictError) Unwrap() error {
	return e.Err
}

// AggregationError - пересчёт рейтинга не удался и после повтора.
// Исходная мутация отзыва при этом уже зафиксирована.
type AggregationError struct {
	ProductID int64
	Err       error
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("rating aggregation for product %d failed: %v", e.ProductID, e.Err)
}

func (e *AggregationError) Unwrap() error {
	return e.Err
}
