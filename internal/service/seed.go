package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yyogesh-03/real-time-order-management-system/internal/model"
	"gorm.io/gorm"
)

var (
	DemoRestaurantID = uuid.MustParse("729d4791-c9f2-411a-826c-949479b12270")
	// plenty of stock
	DemoBiryaniID = uuid.MustParse("a0eebc99-9c0b-4ef8-bb6d-6bb9bd380a11")
	// starts below its threshold
	DemoThaliID = uuid.MustParse("b2eebc99-9c0b-4ef8-bb6d-6bb9bd380a12")
)

// SeedResult names the fixed ids written by SeedDemoData.
type SeedResult struct {
	RestaurantID     uuid.UUID `json:"restaurant_id"`
	ChickenBiryaniID uuid.UUID `json:"chicken_biryani_id"`
	VegThaliID       uuid.UUID `json:"veg_thali_id"`
	Notes            string    `json:"notes"`
}

// SeedDemoData creates or resets one restaurant with two stocked menu items.
// Running it again restores the original quantities.
func (s *OrderService) SeedDemoData(ctx context.Context) (*SeedResult, error) {
	rest := &model.Restaurant{ID: DemoRestaurantID, Name: "The Great Biryani Spot", IsActive: true}
	menu := []struct {
		item      model.MenuItem
		qty       int
		threshold int
	}{
		{model.MenuItem{ID: DemoBiryaniID, RestaurantID: DemoRestaurantID, Name: "Chicken Biryani", Price: decimal.NewFromInt(450), IsActive: true}, 100, 10},
		{model.MenuItem{ID: DemoThaliID, RestaurantID: DemoRestaurantID, Name: "Veg Thali", Price: decimal.NewFromInt(300), IsActive: true}, 5, 10},
	}

	err := s.repo.DB(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.UpsertRestaurant(ctx, tx, rest); err != nil {
			return err
		}
		for i := range menu {
			if err := s.repo.UpsertMenuItem(ctx, tx, &menu[i].item); err != nil {
				return err
			}
			if err := s.repo.UpsertInventory(ctx, tx, &model.Inventory{
				MenuItemID:   menu[i].item.ID,
				AvailableQty: menu[i].qty,
				ThresholdQty: menu[i].threshold,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.repo.InvalidateStock(ctx, DemoBiryaniID, DemoThaliID)
	s.log.Infof("demo data seeded for restaurant %s", DemoRestaurantID)
	return &SeedResult{
		RestaurantID:     DemoRestaurantID,
		ChickenBiryaniID: DemoBiryaniID,
		VegThaliID:       DemoThaliID,
		Notes:            "Veg Thali is initially low stock (5 available).",
	}, nil
}
