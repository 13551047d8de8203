package poller

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/go-sensor-dashboard/internal/errors"
	"github.com/jrsteele09/go-sensor-dashboard/internal/metrics"
	"github.com/jrsteele09/go-sensor-dashboard/schedule"
	"github.com/jrsteele09/go-sensor-dashboard/sensors"
	"github.com/rs/zerolog/log"
)

// DefaultInterval is the realtime refresh period.
const DefaultInterval = 5 * time.Second

// Fetcher loads the latest snapshot. *sensors.Service satisfies it.
type Fetcher interface {
	Latest(ctx context.Context) ([]sensors.Reading, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context) ([]sensors.Reading, error)

func (f FetcherFunc) Latest(ctx context.Context) ([]sensors.Reading, error) { return f(ctx) }

// Update is published to subscribers after every successful fetch and on
// every status change.
type Update struct {
	Readings  []sensors.Reading
	Status    Status
	FetchedAt time.Time
}

// Controller polls the latest readings while realtime mode is on and the user
// is authenticated. At most one scheduled task exists at any time.
type Controller struct {
	fetcher   Fetcher
	scheduler schedule.Scheduler
	interval  time.Duration
	nowFunc   func() time.Time

	mu            sync.Mutex
	realtime      bool
	authenticated bool
	task          schedule.Task
	ctx           context.Context
	generation    uint64
	authLostAt    uint64
	snapshot      []sensors.Reading
	loaded        bool
	fetchedAt     time.Time
	status        Status
	lastErr       error
	subscribers   map[int]func(Update)
	nextID        int
}

type Option func(*Controller)

func WithInterval(d time.Duration) Option {
	return func(c *Controller) { c.interval = d }
}

func WithScheduler(s schedule.Scheduler) Option {
	return func(c *Controller) { c.scheduler = s }
}

// WithNowTime sets the clock used to stamp updates (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(c *Controller) { c.nowFunc = nowFunc }
}

// WithAuthenticated sets the initial authenticated flag.
func WithAuthenticated(authenticated bool) Option {
	return func(c *Controller) { c.authenticated = authenticated }
}

func New(fetcher Fetcher, opts ...Option) *Controller {
	c := &Controller{
		fetcher:     fetcher,
		scheduler:   schedule.New(),
		interval:    DefaultInterval,
		nowFunc:     time.Now,
		ctx:         context.Background(),
		subscribers: make(map[int]func(Update)),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.interval <= 0 {
		c.interval = DefaultInterval
	}
	return c
}

// SetRealtime turns polling on or off. Enabling with no data loaded fetches
// once immediately, on the caller's goroutine, before returning. ctx bounds
// every fetch made until polling is next reconfigured.
func (c *Controller) SetRealtime(ctx context.Context, enabled bool) {
	c.mu.Lock()
	c.realtime = enabled
	c.ctx = ctx
	immediate := c.reconcileLocked()
	gen := c.generation
	update, changed := c.statusLocked(false)
	c.mu.Unlock()

	c.after(ctx, gen, immediate, update, changed)
}

// SetAuthenticated records the session state. Losing authentication stops
// polling and discards the snapshot. A fetch still in flight when the session
// is lost may still report RequiresLogin.
func (c *Controller) SetAuthenticated(authenticated bool) {
	c.mu.Lock()
	c.authenticated = authenticated
	force := !authenticated && c.loaded
	c.authLostAt = 0
	if !authenticated && c.task != nil {
		c.authLostAt = c.generation
	}
	if !authenticated {
		c.snapshot = nil
		c.loaded = false
		c.fetchedAt = time.Time{}
		c.lastErr = nil
	} else if c.status == StatusRequiresLogin {
		c.status = StatusIdle
		force = true
	}
	immediate := c.reconcileLocked()
	gen := c.generation
	update, changed := c.statusLocked(force)
	ctx := c.ctx
	c.mu.Unlock()

	c.after(ctx, gen, immediate, update, changed)
}

// Stop turns realtime mode off.
func (c *Controller) Stop() {
	c.SetRealtime(context.Background(), false)
}

// Subscribe registers fn for updates. The returned func removes it.
func (c *Controller) Subscribe(fn func(Update)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.subscribers[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subscribers, id)
	}
}

// Snapshot returns the last fetched readings and whether any were loaded.
func (c *Controller) Snapshot() ([]sensors.Reading, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]sensors.Reading(nil), c.snapshot...), c.loaded
}

func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Active reports whether a polling task is scheduled.
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.task != nil && c.task.Active()
}

// LastError is the most recent non-auth fetch failure, cleared by the next success.
func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// reconcileLocked makes the scheduled task match the two flags. It returns
// true when a new task was started with no data loaded yet.
func (c *Controller) reconcileLocked() bool {
	if c.task != nil {
		c.task.Stop()
		c.task = nil
	}
	c.generation++

	if !c.realtime || !c.authenticated {
		return false
	}
	gen := c.generation
	c.task = c.scheduler.Every(c.interval, func() { c.fetch(gen) })
	return !c.loaded
}

// statusLocked recomputes the idle/polling status and reports whether
// subscribers need to hear about it. RequiresLogin sticks until
// authentication is restored.
func (c *Controller) statusLocked(force bool) (Update, bool) {
	next := StatusIdle
	switch {
	case c.status == StatusRequiresLogin:
		next = StatusRequiresLogin
	case c.task != nil:
		next = StatusPolling
	}
	if next == c.status && !force {
		return Update{}, false
	}
	c.status = next
	return c.updateLocked(), true
}

func (c *Controller) after(ctx context.Context, gen uint64, immediate bool, update Update, changed bool) {
	if changed {
		c.publish(update)
	}
	if immediate {
		c.fetchWithContext(ctx, gen)
	}
}

func (c *Controller) fetch(gen uint64) {
	c.mu.Lock()
	ctx := c.ctx
	c.mu.Unlock()
	c.fetchWithContext(ctx, gen)
}

func (c *Controller) fetchWithContext(ctx context.Context, gen uint64) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	readings, err := c.fetcher.Latest(ctx)

	c.mu.Lock()
	if errors.IsAuth(err) && (gen == c.generation || gen == c.authLostAt) {
		// a failed refresh drops the session before this fetch returns
		c.requireLoginLocked(err)
		return
	}
	if gen != c.generation {
		// polling was reconfigured while the request was in flight
		c.mu.Unlock()
		return
	}
	if err != nil {
		metrics.PollTicks.WithLabelValues(metrics.OutcomeFailure).Inc()
		log.Debug().Err(err).Msg("Poll failed, retrying next tick")
		c.lastErr = err
		c.mu.Unlock()
		return
	}

	metrics.PollTicks.WithLabelValues(metrics.OutcomeSuccess).Inc()
	c.snapshot = readings
	c.loaded = true
	c.fetchedAt = c.nowFunc()
	c.lastErr = nil
	c.status = StatusPolling
	update := c.updateLocked()
	c.mu.Unlock()
	c.publish(update)
}

// requireLoginLocked is entered with c.mu held and releases it.
func (c *Controller) requireLoginLocked(err error) {
	metrics.PollTicks.WithLabelValues(metrics.OutcomeAuthRequired).Inc()
	log.Warn().Err(err).Msg("Poll requires login")
	if c.status == StatusRequiresLogin {
		c.mu.Unlock()
		return
	}
	c.status = StatusRequiresLogin
	update := c.updateLocked()
	c.mu.Unlock()
	c.publish(update)
}

func (c *Controller) updateLocked() Update {
	return Update{
		Readings:  append([]sensors.Reading(nil), c.snapshot...),
		Status:    c.status,
		FetchedAt: c.fetchedAt,
	}
}

func (c *Controller) publish(update Update) {
	c.mu.Lock()
	subscribers := make([]func(Update), 0, len(c.subscribers))
	for _, fn := range c.subscribers {
		subscribers = append(subscribers, fn)
	}
	c.mu.Unlock()

	for _, fn := range subscribers {
		fn(update)
	}
}
