package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventProductUpdated   = "PRODUCT_UPDATED"
	EventReviewCreated    = "REVIEW_CREATED"
	EventReviewDeleted    = "REVIEW_DELETED"
	EventRatingRecomputed = "RATING_RECOMPUTED"
)

// ProductEvent - событие изменения товара для Kafka
type ProductEvent struct {
	EventType  string          `json:"event_type"`
	ProductID  int64           `json:"product_id"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	CategoryID int64           `json:"category_id"`
	Timestamp  time.Time       `json:"timestamp"`
}

// ReviewEvent - событие создания или удаления отзыва
type ReviewEvent struct {
	EventType string    `json:"event_type"`
	ReviewID  int64     `json:"review_id"`
	ProductID int64     `json:"product_id"`
	UserID    int64     `json:"user_id"`
	Grade     int       `json:"grade"`
	Timestamp time.Time `json:"timestamp"`
}

// RatingEvent - новое значение рейтинга после пересчёта
type RatingEvent struct {
	EventType string          `json:"event_type"`
	ProductID int64           `json:"product_id"`
	Rating    decimal.Decimal `json:"rating"`
	Timestamp time.Time       `json:"timestamp"`
}
