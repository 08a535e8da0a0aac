// Package testutil wires in-memory databases and loggers for package tests.
package testutil

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/yyogesh-03/real-time-order-management-system/internal/model"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a private in-memory SQLite database with every table migrated.
// The pool is pinned to one connection so the memory database outlives
// individual queries and concurrent transactions serialize.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(model.AllModels()...))
	return db
}

func Logger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

// Menu is a seeded restaurant with one menu item per stock entry.
type Menu struct {
	Restaurant model.Restaurant
	Items      []model.MenuItem
}

// StockRow describes one seeded inventory row.
type StockRow struct {
	Price     int64
	Qty       int
	Threshold int
}

// SeedMenu inserts an active restaurant, its menu items and their inventory.
func SeedMenu(t *testing.T, db *gorm.DB, stock ...StockRow) Menu {
	t.Helper()
	m := Menu{Restaurant: model.Restaurant{ID: uuid.New(), Name: "Test Kitchen", IsActive: true}}
	require.NoError(t, db.Create(&m.Restaurant).Error)
	for i, s := range stock {
		item := model.MenuItem{
			ID:           uuid.New(),
			RestaurantID: m.Restaurant.ID,
			Name:         "item-" + string(rune('A'+i)),
			Price:        decimal.NewFromInt(s.Price),
			IsActive:     true,
		}
		require.NoError(t, db.Create(&item).Error)
		require.NoError(t, db.Create(&model.Inventory{
			MenuItemID:   item.ID,
			AvailableQty: s.Qty,
			ThresholdQty: s.Threshold,
		}).Error)
		m.Items = append(m.Items, item)
	}
	return m
}

// Stock reads the current quantity for a menu item directly from the database.
func Stock(t *testing.T, db *gorm.DB, menuItemID uuid.UUID) int {
	t.Helper()
	var inv model.Inventory
	require.NoError(t, db.Where("menu_item_id = ?", menuItemID).First(&inv).Error)
	return inv.AvailableQty
}

// Events returns every outbox row of eventType, oldest first.
func Events(t *testing.T, db *gorm.DB, eventType string) []model.OutboxEvent {
	t.Helper()
	var evts []model.OutboxEvent
	require.NoError(t, db.Where("event_type = ?", eventType).Order("created_at").Find(&evts).Error)
	return evts
}
