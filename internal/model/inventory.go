package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Inventory struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	MenuItemID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	AvailableQty int       `gorm:"not null;check:available_qty >= 0"`
	ThresholdQty int       `gorm:"not null;default:10"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (Inventory) TableName() string { return "inventory" }

func (i *Inventory) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// LowStock reports whether the row is at or below its alert threshold.
func (i *Inventory) LowStock() bool { return i.AvailableQty <= i.ThresholdQty }
