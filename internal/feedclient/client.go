// Package feedclient merges the push stream and the polling fallback
// into one deduplicated, newest-first order list. Both channels can
// observe the same order; the known/pending id sets decide what is
// genuinely new and worth alerting on.
package feedclient

import (
	"context"
	"sort"
	"sync"
	"time"

	"restaurant-fulfillment/internal/common/logger"
	"restaurant-fulfillment/internal/domain"
)

// EventReader is one live stream connection.
type EventReader interface {
	Next() (domain.OrderEvent, error)
	Close() error
}

// DialFunc opens the push stream; PollFunc fetches a snapshot.
type (
	DialFunc func(ctx context.Context) (EventReader, error)
	PollFunc func(ctx context.Context) ([]domain.Order, error)
)

type Config struct {
	Dial         DialFunc
	Poll         PollFunc
	Initial      []domain.Order
	PollInterval time.Duration // 2s cadence; the interval itself is the throttle
	GraceWindow  time.Duration // post-connect window with no alerting
	OnNewOrder   func(domain.Order)
	Logger       *logger.Logger
	now          func() time.Time
}

const (
	defaultPollInterval  = 2 * time.Second
	defaultGraceWindow   = 5 * time.Second
	streamReconnectDelay = 2 * time.Second
)

// Client is the reconciliation state machine. All mutation goes
// through the locked apply methods so the id-set invariants hold under
// the two concurrent loops.
type Client struct {
	cfg Config
	lg  *logger.Logger
	now func() time.Time

	mu           sync.Mutex
	orders       []domain.Order
	known        map[string]struct{}
	pending      map[string]struct{}
	versions     map[string]int64
	connected    bool
	graceUntil   time.Time
	lastSurfaced *domain.Order
	polledOnce   bool
	closed       bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfg Config) *Client {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.GraceWindow <= 0 {
		cfg.GraceWindow = defaultGraceWindow
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	if cfg.now == nil {
		cfg.now = time.Now
	}
	c := &Client{cfg: cfg, lg: cfg.Logger, now: cfg.now}
	c.resetLocked(cfg.Initial)
	return c
}

// Start launches the stream reader and the polling loop.
func (c *Client) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	c.wg.Add(2)
	go c.streamLoop(ctx)
	go c.pollLoop(ctx)
}

// Close tears both loops down. An in-flight poll may still complete;
// its result is discarded by the closed flag rather than applied to
// torn-down state.
func (c *Client) Close() {
	c.mu.Lock()
	c.closed = true
	c.connected = false
	c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
}

// Reset reinstalls a fresh initial list: known ids become exactly that
// list, pending alerts clear and a new grace window starts.
func (c *Client) Reset(initial []domain.Order) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked(initial)
}

func (c *Client) resetLocked(initial []domain.Order) {
	c.orders = sortOrders(initial)
	c.known = make(map[string]struct{}, len(initial))
	c.versions = make(map[string]int64, len(initial))
	for _, o := range initial {
		c.known[o.ID] = struct{}{}
		c.versions[o.ID] = o.Version
	}
	c.pending = make(map[string]struct{})
	c.lastSurfaced = nil
	c.graceUntil = c.now().Add(c.cfg.GraceWindow)
}

/* ---------- loops ---------- */

func (c *Client) streamLoop(ctx context.Context) {
	defer c.wg.Done()
	for ctx.Err() == nil {
		reader, err := c.cfg.Dial(ctx)
		if err != nil {
			c.setConnected(false)
			c.lg.Warn("stream_connect_failed", map[string]any{"error": err.Error()})
			if !sleep(ctx, streamReconnectDelay) {
				return
			}
			continue
		}
		c.setConnected(true)
		c.lg.Info("stream_connected", nil)
		c.readStream(ctx, reader)
		_ = reader.Close()
		c.setConnected(false)
		if !sleep(ctx, streamReconnectDelay) {
			return
		}
	}
}

func (c *Client) readStream(ctx context.Context, reader EventReader) {
	for ctx.Err() == nil {
		ev, err := reader.Next()
		if err != nil {
			c.lg.Warn("stream_read_failed", map[string]any{"error": err.Error()})
			return
		}
		c.ApplyStreamEvent(ev)
	}
}

func (c *Client) pollLoop(ctx context.Context) {
	defer c.wg.Done()
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			orders, err := c.cfg.Poll(ctx)
			c.ApplyPoll(orders, err)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

/* ---------- mutation entry points ---------- */

// ApplyStreamEvent feeds one pushed event through the state machine.
// Malformed events are logged and skipped, never fatal to the loop.
func (c *Client) ApplyStreamEvent(ev domain.OrderEvent) {
	c.mu.Lock()

	if c.closed {
		c.mu.Unlock()
		return
	}

	switch ev.Type {
	case domain.EventInit:
		c.orders = sortOrders(ev.Orders)
		for _, o := range ev.Orders {
			c.known[o.ID] = struct{}{}
			if o.Version > c.versions[o.ID] {
				c.versions[o.ID] = o.Version
			}
		}
		// An init snapshot is the starting state by definition, it
		// never counts as new. The grace window restarts because a
		// reconnect replays backfill the same way a first connect does.
		c.pending = make(map[string]struct{})
		c.graceUntil = c.now().Add(c.cfg.GraceWindow)
		c.mu.Unlock()
		return

	case domain.EventOrderCreated, domain.EventOrderUpdated:
		if ev.Order == nil || ev.Order.ID == "" {
			c.lg.Warn("malformed_event_skipped", map[string]any{"type": string(ev.Type)})
			c.mu.Unlock()
			return
		}
	default:
		c.lg.Warn("unknown_event_skipped", map[string]any{"type": string(ev.Type)})
		c.mu.Unlock()
		return
	}

	o := *ev.Order
	if c.staleLocked(o) {
		c.lg.Debug("stale_event_skipped", map[string]any{"order_id": o.ID, "version": o.Version})
		c.mu.Unlock()
		return
	}

	var alert *domain.Order
	switch ev.Type {
	case domain.EventOrderCreated:
		_, wasKnown := c.known[o.ID]
		if wasKnown && c.contains(o.ID) {
			// The poll loop can insert an order before its created
			// event arrives; a second created from the stream itself
			// is a producer bug. Either way: replace, don't re-alert.
			c.lg.Warn("duplicate_created_event", map[string]any{"order_id": o.ID})
		}
		c.upsertLocked(o)
		c.known[o.ID] = struct{}{}
		if !wasKnown && !c.graceActiveLocked() {
			if _, dup := c.pending[o.ID]; !dup {
				c.pending[o.ID] = struct{}{}
				c.lastSurfaced = &o
				alert = &o
			}
		}
	case domain.EventOrderUpdated:
		c.upsertLocked(o)
		c.known[o.ID] = struct{}{}
		if c.lastSurfaced != nil && c.lastSurfaced.ID == o.ID {
			c.lastSurfaced = &o
		}
	}
	c.mu.Unlock()

	if alert != nil && c.cfg.OnNewOrder != nil {
		c.cfg.OnNewOrder(*alert)
	}
}

// ApplyPoll reconciles one snapshot fetch. A fetch error only flips
// connected off; the fixed cadence is the retry policy.
func (c *Client) ApplyPoll(snapshot []domain.Order, err error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if err != nil {
		c.connected = false
		c.lg.Warn("poll_failed", map[string]any{"error": err.Error()})
		c.mu.Unlock()
		return
	}
	c.connected = true

	var alerts []domain.Order
	if !c.polledOnce {
		// First poll mirrors the init event: seed silently. Guards
		// against the stream connecting slower than the poll.
		c.polledOnce = true
		for _, o := range snapshot {
			c.known[o.ID] = struct{}{}
		}
	} else {
		grace := c.graceActiveLocked()
		for _, o := range snapshot {
			if _, seen := c.known[o.ID]; seen {
				continue
			}
			c.known[o.ID] = struct{}{}
			if !grace {
				o := o
				c.pending[o.ID] = struct{}{}
				c.lastSurfaced = &o
				alerts = append(alerts, o)
			}
		}
	}

	// The snapshot is authoritative for membership and order, except
	// where a local optimistic update is ahead of the polled version.
	merged := make([]domain.Order, 0, len(snapshot))
	for _, o := range snapshot {
		if held, ok := c.versions[o.ID]; ok && o.Version < held {
			if cur, found := c.getLocked(o.ID); found {
				merged = append(merged, cur)
				continue
			}
		}
		merged = append(merged, o)
		if o.Version > c.versions[o.ID] {
			c.versions[o.ID] = o.Version
		}
	}
	c.orders = sortOrders(merged)

	// Orders that left the feed can no longer be pending.
	inSnapshot := make(map[string]struct{}, len(snapshot))
	for _, o := range snapshot {
		inSnapshot[o.ID] = struct{}{}
	}
	for id := range c.pending {
		if _, ok := inSnapshot[id]; !ok {
			delete(c.pending, id)
		}
	}
	c.mu.Unlock()

	if c.cfg.OnNewOrder != nil {
		for _, o := range alerts {
			c.cfg.OnNewOrder(o)
		}
	}
}

// ApplyLocal installs an optimistic mutation (e.g. a status change the
// user just made) without waiting for the server echo. Advancing an
// order implicitly acknowledges it.
func (c *Client) ApplyLocal(o domain.Order) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.upsertLocked(o)
	c.known[o.ID] = struct{}{}
	if o.Version > c.versions[o.ID] {
		c.versions[o.ID] = o.Version
	}
	delete(c.pending, o.ID)
	if c.lastSurfaced != nil && c.lastSurfaced.ID == o.ID {
		c.lastSurfaced = &o
	}
}

// AckNewOrders clears the pending-alert set. Acknowledged orders stay
// known; they can never be re-surfaced as new.
func (c *Client) AckNewOrders() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = make(map[string]struct{})
	c.lastSurfaced = nil
}

/* ---------- reads ---------- */

func (c *Client) Orders() []domain.Order {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Order, len(c.orders))
	copy(out, c.orders)
	return out
}

func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *Client) NewOrderCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func (c *Client) PendingNewIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.pending))
	for id := range c.pending {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (c *Client) LastSurfaced() *domain.Order {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastSurfaced == nil {
		return nil
	}
	cp := *c.lastSurfaced
	return &cp
}

/* ---------- internals (mu held) ---------- */

func (c *Client) staleLocked(o domain.Order) bool {
	if o.Version == 0 {
		return false // unversioned producers fall back to arrival order
	}
	held, ok := c.versions[o.ID]
	return ok && o.Version <= held && c.contains(o.ID)
}

func (c *Client) graceActiveLocked() bool {
	return c.now().Before(c.graceUntil)
}

func (c *Client) contains(id string) bool {
	_, ok := c.getLocked(id)
	return ok
}

func (c *Client) getLocked(id string) (domain.Order, bool) {
	for _, o := range c.orders {
		if o.ID == id {
			return o, true
		}
	}
	return domain.Order{}, false
}

func (c *Client) upsertLocked(o domain.Order) {
	replaced := false
	for i := range c.orders {
		if c.orders[i].ID == o.ID {
			c.orders[i] = o
			replaced = true
			break
		}
	}
	if !replaced {
		c.orders = append(c.orders, o)
	}
	if o.Version > c.versions[o.ID] {
		c.versions[o.ID] = o.Version
	}
	c.orders = sortOrders(c.orders)
}

func (c *Client) setConnected(v bool) {
	c.mu.Lock()
	if !c.closed {
		c.connected = v
	}
	c.mu.Unlock()
}

func sortOrders(in []domain.Order) []domain.Order {
	out := make([]domain.Order, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}
