package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Restaurant struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name     string    `gorm:"size:255;not null"`
	IsActive bool      `gorm:"not null"`
}

func (Restaurant) TableName() string { return "restaurants" }

type MenuItem struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	RestaurantID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Name         string          `gorm:"size:255;not null"`
	Price        decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	IsActive     bool            `gorm:"not null"`
}

func (MenuItem) TableName() string { return "menu_items" }

type Order struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	UserID       string          `gorm:"size:64;not null;index"`
	RestaurantID uuid.UUID       `gorm:"type:uuid;not null"`
	Status       OrderStatus     `gorm:"size:32;not null;default:'PLACED'"`
	TotalAmount  decimal.Decimal `gorm:"type:numeric(14,2);not null;default:'0'"`
	Items        []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time       `gorm:"autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime"`
}

func (Order) TableName() string { return "orders" }

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// OrderItem is immutable once created.
type OrderItem struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OrderID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	MenuItemID uuid.UUID       `gorm:"type:uuid;not null"`
	Quantity   int             `gorm:"not null"`
	UnitPrice  decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	LineTotal  decimal.Decimal `gorm:"type:numeric(14,2);not null"`
}

func (OrderItem) TableName() string { return "order_items" }

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// AllModels lists every table for AutoMigrate.
func AllModels() []interface{} {
	return []interface{}{
		&Restaurant{}, &MenuItem{}, &Order{}, &OrderItem{},
		&Inventory{}, &OutboxEvent{}, &ProcessedEvent{},
	}
}
