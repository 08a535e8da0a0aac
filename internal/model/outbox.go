package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OutboxEvent is one pending or delivered notification. Rows are never deleted.
type OutboxEvent struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	AggregateType string    `gorm:"size:64;not null"`
	AggregateID   uuid.UUID `gorm:"type:uuid;not null;index"`
	EventType     string    `gorm:"size:128;not null;index"`
	Payload       string    `gorm:"type:jsonb;not null"`
	Delivered     bool      `gorm:"not null;default:false;index"`
	Attempts      int       `gorm:"not null;default:0"`
	LastError     string    `gorm:"type:text"`
	ClaimedBy     string    `gorm:"size:64"`
	ClaimedUntil  *time.Time
	DeliveredAt   *time.Time
	CreatedAt     time.Time `gorm:"autoCreateTime;index"`
}

func (OutboxEvent) TableName() string { return "outbox_events" }

func (e *OutboxEvent) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// ProcessedEvent marks an event as handled by one consumer.
type ProcessedEvent struct {
	Consumer  string    `gorm:"size:64;primaryKey"`
	EventID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (ProcessedEvent) TableName() string { return "processed_events" }
