package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/yyogesh-03/real-time-order-management-system/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ClaimRequest selects the next batch a dispatcher worker may deliver.
type ClaimRequest struct {
	Owner       string
	Types       []string
	MaxAttempts int
	Limit       int
	TTL         time.Duration
}

// StuckCounts are undelivered rows the dispatcher will not pick up again.
type StuckCounts struct {
	Exhausted  int64
	Unroutable int64
}

// AppendOutbox writes one undelivered event inside the caller's transaction.
// A returned error must abort that transaction.
func (r *Repository) AppendOutbox(ctx context.Context, tx *gorm.DB, aggregateType string, aggregateID uuid.UUID, eventType string, payload interface{}) (*model.OutboxEvent, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	evt := &model.OutboxEvent{
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       string(body),
	}
	if err := tx.WithContext(ctx).Create(evt).Error; err != nil {
		return nil, fmt.Errorf("append %s: %w", eventType, err)
	}
	return evt, nil
}

// ClaimOutbox locks the oldest deliverable rows (skipping rows other workers hold)
// and stamps them with a claim lease so concurrent pollers never dispatch the same event.
func (r *Repository) ClaimOutbox(ctx context.Context, req ClaimRequest) ([]model.OutboxEvent, error) {
	var evts []model.OutboxEvent
	now := time.Now().UTC()
	until := now.Add(req.TTL)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("delivered = ? AND attempts < ?", false, req.MaxAttempts).
			Where("(claimed_until IS NULL OR claimed_until < ?)", now)
		if len(req.Types) > 0 {
			q = q.Where("event_type IN ?", req.Types)
		}
		if err := q.Order("created_at").Limit(req.Limit).Find(&evts).Error; err != nil {
			return err
		}
		if len(evts) == 0 {
			return nil
		}
		ids := make([]uuid.UUID, len(evts))
		for i := range evts {
			ids[i] = evts[i].ID
		}
		return tx.Model(&model.OutboxEvent{}).Where("id IN ?", ids).
			Updates(map[string]interface{}{"claimed_by": req.Owner, "claimed_until": until}).Error
	})
	if err != nil {
		return nil, err
	}
	for i := range evts {
		evts[i].ClaimedBy = req.Owner
		evts[i].ClaimedUntil = &until
	}
	return evts, nil
}

// RenewOutboxClaim extends owner's claim on one row. It reports false when the row was
// delivered or re-claimed by another worker after owner's claim ran out.
func (r *Repository) RenewOutboxClaim(ctx context.Context, id uuid.UUID, owner string, ttl time.Duration) (bool, error) {
	until := time.Now().UTC().Add(ttl)
	res := r.db.WithContext(ctx).Model(&model.OutboxEvent{}).
		Where("id = ? AND claimed_by = ? AND delivered = ?", id, owner, false).
		Update("claimed_until", until)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// MarkOutboxDelivered sets delivered flag.
func (r *Repository) MarkOutboxDelivered(ctx context.Context, id uuid.UUID) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).Model(&model.OutboxEvent{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"delivered":     true,
			"delivered_at":  &now,
			"claimed_by":    "",
			"claimed_until": nil,
		}).Error
}

// RecordOutboxFailure bumps attempts, releases the claim and returns the new attempt count.
func (r *Repository) RecordOutboxFailure(ctx context.Context, id uuid.UUID, cause error) (int, error) {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	var evt model.OutboxEvent
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.OutboxEvent{}).Where("id = ?", id).
			Updates(map[string]interface{}{
				"attempts":      gorm.Expr("attempts + 1"),
				"last_error":    msg,
				"claimed_by":    "",
				"claimed_until": nil,
			}).Error; err != nil {
			return err
		}
		return tx.Select("attempts").Where("id = ?", id).First(&evt).Error
	})
	return evt.Attempts, err
}

// ReleaseOutbox drops the claim without counting an attempt.
func (r *Repository) ReleaseOutbox(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.OutboxEvent{}).Where("id = ?", id).
		Updates(map[string]interface{}{"claimed_by": "", "claimed_until": nil}).Error
}

// CountStuckOutbox counts undelivered rows that exhausted their attempts or have no route.
func (r *Repository) CountStuckOutbox(ctx context.Context, routable []string, maxAttempts int) (StuckCounts, error) {
	var c StuckCounts
	db := r.db.WithContext(ctx)
	if err := db.Model(&model.OutboxEvent{}).
		Where("delivered = ? AND attempts >= ?", false, maxAttempts).
		Count(&c.Exhausted).Error; err != nil {
		return c, err
	}
	q := db.Model(&model.OutboxEvent{}).Where("delivered = ?", false)
	if len(routable) > 0 {
		q = q.Where("event_type NOT IN ?", routable)
	}
	if err := q.Count(&c.Unroutable).Error; err != nil {
		return c, err
	}
	return c, nil
}

// HasOutboxEvent reports whether an event of eventType was ever recorded for the aggregate.
func (r *Repository) HasOutboxEvent(ctx context.Context, tx *gorm.DB, aggregateID uuid.UUID, eventType string) (bool, error) {
	var n int64
	err := tx.WithContext(ctx).Model(&model.OutboxEvent{}).
		Where("aggregate_id = ? AND event_type = ?", aggregateID, eventType).
		Count(&n).Error
	return n > 0, err
}

// ListOutbox returns the audit trail of an aggregate, oldest first.
func (r *Repository) ListOutbox(ctx context.Context, aggregateID uuid.UUID) ([]model.OutboxEvent, error) {
	var evts []model.OutboxEvent
	err := r.db.WithContext(ctx).Where("aggregate_id = ?", aggregateID).
		Order("created_at").Find(&evts).Error
	return evts, err
}
