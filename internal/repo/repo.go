package repo

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/yyogesh-03/real-time-order-management-system/internal/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RepositoryInterface restricts Repository methods so services can be tested against fakes.
type RepositoryInterface interface {
	DB(ctx context.Context) *gorm.DB

	AppendOutbox(ctx context.Context, tx *gorm.DB, aggregateType string, aggregateID uuid.UUID, eventType string, payload interface{}) (*model.OutboxEvent, error)
	ClaimOutbox(ctx context.Context, req ClaimRequest) ([]model.OutboxEvent, error)
	MarkOutboxDelivered(ctx context.Context, id uuid.UUID) error
	RecordOutboxFailure(ctx context.Context, id uuid.UUID, cause error) (int, error)
	ReleaseOutbox(ctx context.Context, id uuid.UUID) error
	RenewOutboxClaim(ctx context.Context, id uuid.UUID, owner string, ttl time.Duration) (bool, error)
	CountStuckOutbox(ctx context.Context, routable []string, maxAttempts int) (StuckCounts, error)
	HasOutboxEvent(ctx context.Context, tx *gorm.DB, aggregateID uuid.UUID, eventType string) (bool, error)
	ListOutbox(ctx context.Context, aggregateID uuid.UUID) ([]model.OutboxEvent, error)

	IsProcessed(ctx context.Context, tx *gorm.DB, consumer string, eventID uuid.UUID) (bool, error)
	MarkProcessed(ctx context.Context, tx *gorm.DB, consumer string, eventID uuid.UUID) error

	LockInventory(ctx context.Context, tx *gorm.DB, menuItemIDs []uuid.UUID) (map[uuid.UUID]*model.Inventory, error)
	SetAvailableQty(ctx context.Context, tx *gorm.DB, inv *model.Inventory) error
	GetInventory(ctx context.Context, menuItemID uuid.UUID) (*model.Inventory, error)
	InvalidateStock(ctx context.Context, menuItemIDs ...uuid.UUID)
	UpsertInventory(ctx context.Context, tx *gorm.DB, inv *model.Inventory) error

	GetRestaurant(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Restaurant, error)
	ActiveMenuItems(ctx context.Context, tx *gorm.DB, restaurantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]model.MenuItem, error)
	UpsertRestaurant(ctx context.Context, tx *gorm.DB, r *model.Restaurant) error
	UpsertMenuItem(ctx context.Context, tx *gorm.DB, m *model.MenuItem) error
	CreateOrder(ctx context.Context, tx *gorm.DB, o *model.Order) error
	GetOrder(ctx context.Context, id uuid.UUID) (*model.Order, error)
	GetOrderForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Order, error)
	SetOrderStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status model.OrderStatus) error
}

// Repository implements RepositoryInterface on gorm, with an optional Redis read cache.
type Repository struct {
	db       *gorm.DB
	rdb      *redis.Client
	log      *zap.SugaredLogger
	cacheTTL time.Duration
}

// NewRepository constructs repo. rdb may be nil to disable caching.
func NewRepository(db *gorm.DB, rdb *redis.Client, logger *zap.SugaredLogger) *Repository {
	return &Repository{db: db, rdb: rdb, log: logger, cacheTTL: 30 * time.Second}
}

// DB returns underlying *gorm.DB
func (r *Repository) DB(ctx context.Context) *gorm.DB { return r.db.WithContext(ctx) }

// Migrate creates or updates every table.
func (r *Repository) Migrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(model.AllModels()...)
}

var _ RepositoryInterface = (*Repository)(nil)
