package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ServiceName - метка сервиса в логах и метриках
const ServiceName = "catalog-service"

// Category представляет категорию товаров
// Неактивная категория скрывает все свои товары из поиска
type Category struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name"`
	ParentID  *int64    `json:"parent_id"`
	IsActive  bool      `json:"is_active" gorm:"default:true"`
	CreatedAt time.Time `json:"created_at"`
}

func (Category) TableName() string {
	return "categories"
}

// Product представляет товар в каталоге
// Rating меняется только агрегатором рейтинга
type Product struct {
	ID          int64           `json:"id" gorm:"primaryKey"`
	Name        string          `json:"name"`
	Description *string         `json:"description"`
	Price       decimal.Decimal `json:"price" gorm:"type:numeric(10,2)"`
	ImageURL    *string         `json:"image_url"`
	Stock       int             `json:"stock"`
	CategoryID  int64           `json:"category_id"`
	SellerID    int64           `json:"seller_id"`
	IsActive    bool            `json:"is_active" gorm:"default:true"`
	Rating      decimal.Decimal `json:"rating" gorm:"type:numeric(2,1);default:0;->"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (Product) TableName() string {
	return "products"
}

// Review - отзыв покупателя; удаляется только мягко (is_active=false)
type Review struct {
	ID          int64     `json:"id" gorm:"primaryKey"`
	UserID      int64     `json:"user_id"`
	ProductID   int64     `json:"product_id"`
	Comment     *string   `json:"comment"`
	Grade       int       `json:"grade"`
	IsActive    bool      `json:"is_active" gorm:"default:true"`
	CommentDate time.Time `json:"comment_date" gorm:"autoCreateTime"`
}

func (Review) TableName() string {
	return "reviews"
}

// ProductPage - страница результатов поиска
// Total считается по тому же набору предикатов, что и Items
type ProductPage struct {
	Items    []Product `json:"items"`
	Total    int64     `json:"total"`
	Page     int       `json:"page"`
	PageSize int       `json:"page_size"`
}
