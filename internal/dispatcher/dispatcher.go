// Package dispatcher polls the outbox and hands each event to its consumer.
package dispatcher

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yyogesh-03/real-time-order-management-system/internal/events"
	"github.com/yyogesh-03/real-time-order-management-system/internal/model"
	"github.com/yyogesh-03/real-time-order-management-system/internal/repo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const tracerName = "github.com/yyogesh-03/real-time-order-management-system/internal/dispatcher"

type Config struct {
	PollInterval   time.Duration
	MaxAttempts    int
	BatchSize      int
	HandlerTimeout time.Duration
	// ClaimTTL bounds how long a crashed worker keeps its rows. Each event's claim
	// is renewed for this long right before its handler runs.
	ClaimTTL time.Duration
	Workers  int
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	if c.HandlerTimeout <= 0 {
		c.HandlerTimeout = 30 * time.Second
	}
	if floor := 2 * c.HandlerTimeout; c.ClaimTTL < floor {
		c.ClaimTTL = floor
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	return c
}

// Dispatcher delivers outbox rows at least once to the handler of their kind.
type Dispatcher struct {
	repo     repo.RepositoryInterface
	routes   Routes
	routable []string
	cfg      Config
	owner    string
	lease    Lease
	tracer   trace.Tracer
	log      *zap.SugaredLogger

	mu        sync.Mutex
	lastStuck repo.StuckCounts
}

type Option func(*Dispatcher)

// WithLease makes every cycle conditional on holding l.
func WithLease(l Lease) Option { return func(d *Dispatcher) { d.lease = l } }

func WithOwner(owner string) Option { return func(d *Dispatcher) { d.owner = owner } }

func WithTracer(t trace.Tracer) Option { return func(d *Dispatcher) { d.tracer = t } }

func New(r repo.RepositoryInterface, routes Routes, cfg Config, logger *zap.SugaredLogger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		repo:     r,
		routes:   routes,
		routable: routes.RoutableTypes(),
		cfg:      cfg.withDefaults(),
		owner:    DefaultOwner(),
		tracer:   otel.Tracer(tracerName),
		log:      logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DefaultOwner identifies this process in claim and lease records.
func DefaultOwner() string {
	host, err := os.Hostname()
	if err != nil {
		host = "poller"
	}
	return fmt.Sprintf("%s-%d-%s", host, os.Getpid(), uuid.NewString()[:8])
}

// Run polls until ctx is cancelled. Errors inside a cycle are logged, never returned.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.log.Infof("dispatcher %s started: workers=%d interval=%s batch=%d max_attempts=%d",
		d.owner, d.cfg.Workers, d.cfg.PollInterval, d.cfg.BatchSize, d.cfg.MaxAttempts)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < d.cfg.Workers; i++ {
		owner := d.owner
		if d.cfg.Workers > 1 {
			owner = fmt.Sprintf("%s/%d", d.owner, i)
		}
		g.Go(func() error {
			d.loop(gctx, owner)
			return nil
		})
	}
	err := g.Wait()

	if d.lease != nil {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if rerr := d.lease.Release(releaseCtx); rerr != nil {
			d.log.Warnf("release lease: %v", rerr)
		}
	}
	d.log.Infof("dispatcher %s stopped", d.owner)
	return err
}

func (d *Dispatcher) loop(ctx context.Context, owner string) {
	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()
	for {
		full := d.cycle(ctx, owner)
		if ctx.Err() != nil {
			return
		}
		if full {
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// cycle runs one poll and reports whether the batch came back full.
func (d *Dispatcher) cycle(ctx context.Context, owner string) bool {
	if d.lease != nil {
		held, err := d.lease.Acquire(ctx)
		if err != nil {
			d.log.Warnf("acquire lease: %v", err)
			return false
		}
		if !held {
			d.log.Debugf("lease held by another poller, skipping cycle")
			return false
		}
	}
	n, err := d.runOnce(ctx, owner)
	if err != nil {
		if ctx.Err() == nil {
			d.log.Errorf("dispatch cycle: %v", err)
		}
		return false
	}
	return n == d.cfg.BatchSize
}

// RunOnce claims one batch, processes it and returns how many events were claimed.
func (d *Dispatcher) RunOnce(ctx context.Context) (int, error) {
	return d.runOnce(ctx, d.owner)
}

func (d *Dispatcher) runOnce(ctx context.Context, owner string) (int, error) {
	if len(d.routable) == 0 {
		return 0, nil
	}
	evts, err := d.repo.ClaimOutbox(ctx, repo.ClaimRequest{
		Owner:       owner,
		Types:       d.routable,
		MaxAttempts: d.cfg.MaxAttempts,
		Limit:       d.cfg.BatchSize,
		TTL:         d.cfg.ClaimTTL,
	})
	if err != nil {
		return 0, fmt.Errorf("claim outbox: %w", err)
	}
	if len(evts) > 0 {
		d.log.Debugf("processing batch of %d events", len(evts))
	}
	for _, evt := range evts {
		if ctx.Err() != nil {
			break
		}
		d.process(ctx, owner, evt)
	}
	d.reportStuck(ctx)
	return len(evts), nil
}

func (d *Dispatcher) process(ctx context.Context, owner string, evt model.OutboxEvent) {
	kind := events.KindOf(evt.EventType)
	h := d.routes.handler(kind)
	if h == nil {
		d.log.Warnw("no handler for event type", "event_id", evt.ID, "event_type", evt.EventType)
		if err := d.repo.ReleaseOutbox(ctx, evt.ID); err != nil {
			d.log.Errorf("release %s: %v", evt.ID, err)
		}
		return
	}

	held, err := d.repo.RenewOutboxClaim(ctx, evt.ID, owner, d.cfg.ClaimTTL)
	if err != nil {
		d.log.Errorf("renew claim on %s: %v", evt.ID, err)
		return
	}
	if !held {
		d.log.Warnw("claim taken over by another worker, skipping event",
			"event_id", evt.ID, "event_type", evt.EventType, "owner", owner)
		return
	}

	ctx, span := d.tracer.Start(ctx, "outbox.dispatch", trace.WithAttributes(
		attribute.String("outbox.event_id", evt.ID.String()),
		attribute.String("outbox.event_type", evt.EventType),
		attribute.String("outbox.kind", kind.String()),
		attribute.String("outbox.aggregate_id", evt.AggregateID.String()),
		attribute.Int("outbox.attempts", evt.Attempts),
	))
	defer span.End()

	err = d.invoke(ctx, h, evt)
	if err == nil {
		if err := d.repo.MarkOutboxDelivered(ctx, evt.ID); err != nil {
			d.log.Errorf("mark %s delivered: %v", evt.ID, err)
			span.RecordError(err)
			return
		}
		span.SetStatus(codes.Ok, "")
		d.log.Debugf("event %s (%s) delivered", evt.ID, evt.EventType)
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	attempts, rerr := d.repo.RecordOutboxFailure(ctx, evt.ID, err)
	if rerr != nil {
		d.log.Errorf("record failure of %s: %v", evt.ID, rerr)
		return
	}
	if attempts >= d.cfg.MaxAttempts {
		d.log.Errorw("event permanently failed, requires operator attention",
			"event_id", evt.ID, "event_type", evt.EventType, "attempts", attempts, "error", err)
		return
	}
	d.log.Warnw("event handler failed, will retry",
		"event_id", evt.ID, "event_type", evt.EventType, "attempts", attempts, "error", err)
}

// invoke runs h under the handler timeout and turns a panic into an error.
func (d *Dispatcher) invoke(ctx context.Context, h HandlerFunc, evt model.OutboxEvent) (err error) {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.HandlerTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, evt)
}

// reportStuck logs when the number of events needing an operator changes.
func (d *Dispatcher) reportStuck(ctx context.Context) {
	counts, err := d.repo.CountStuckOutbox(ctx, d.routable, d.cfg.MaxAttempts)
	if err != nil {
		d.log.Warnf("count stuck events: %v", err)
		return
	}
	d.mu.Lock()
	changed := counts != d.lastStuck
	d.lastStuck = counts
	d.mu.Unlock()
	if !changed {
		return
	}
	if counts.Exhausted == 0 && counts.Unroutable == 0 {
		d.log.Infof("no outbox events require operator attention")
		return
	}
	d.log.Errorw("outbox events require operator attention",
		"exhausted", counts.Exhausted, "unroutable", counts.Unroutable)
}

// Stuck returns the counts from the most recent cycle.
func (d *Dispatcher) Stuck() repo.StuckCounts {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastStuck
}
