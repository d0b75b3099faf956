// Package clock provides the canonical localized time source shared by the
// whole ledger.  The IANA timezone name comes from the administrative
// settings table, cached process-wide and refreshed on a fixed interval so
// every ledger write in the process stamps comparable timestamps.
package clock

import (
	"context"
	"sync"
	"time"

	"github.com/nferreyra/cerbero/internal/cerbero/store"
	"github.com/nferreyra/cerbero/internal/logging"
)

// StampLayout is the ledger timestamp format.  It orders lexically, which
// keeps entry/exit comparisons cheap in SQL.
const StampLayout = "2006-01-02 15:04:05"

// TimezoneSettingKey is the settings-table key holding the IANA name.
const TimezoneSettingKey = "timezone"

// Localized is a process-scoped localized clock.  The zone is explicit
// injected state, not an ambient global: construct one per process (or per
// test) and share it.
type Localized struct {
	settings store.SettingsStore
	fallback string
	interval time.Duration
	logger   logging.Logger

	mu  sync.RWMutex
	loc *time.Location

	cancel context.CancelFunc
	done   chan struct{}

	// now is a test hook; defaults to time.Now.
	now func() time.Time
}

// Config holds the parameters for NewLocalized.
type Config struct {
	// DefaultTimezone is used until the settings lookup succeeds, and
	// whenever the stored name is missing or unparseable.
	DefaultTimezone string

	// RefreshInterval is how often the zone is re-read from settings.
	// Defaults to 5 minutes.
	RefreshInterval time.Duration
}

func NewLocalized(settings store.SettingsStore, cfg Config, logger logging.Logger) *Localized {
	interval := cfg.RefreshInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	fallback := cfg.DefaultTimezone
	loc, err := time.LoadLocation(fallback)
	if err != nil {
		logger.Warn(context.Background(), "default timezone invalid, using UTC", "tz", fallback)
		loc = time.UTC
		fallback = "UTC"
	}

	return &Localized{
		settings: settings,
		fallback: fallback,
		interval: interval,
		logger:   logger,
		loc:      loc,
		done:     make(chan struct{}),
		now:      time.Now,
	}
}

// Now returns the current time in the configured zone.  Never blocks on
// storage; reads the cached zone.
func (c *Localized) Now() time.Time {
	c.mu.RLock()
	loc := c.loc
	c.mu.RUnlock()
	return c.now().In(loc)
}

// Stamp returns the canonical ledger timestamp for the current moment.
func (c *Localized) Stamp() string {
	return c.Now().Format(StampLayout)
}

// Timezone returns the name of the zone currently in effect.
func (c *Localized) Timezone() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loc.String()
}

// Start begins the background refresh loop.  It refreshes immediately, then
// repeats on the configured interval until ctx is cancelled or Stop is
// called.
func (c *Localized) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	go c.loop(ctx)
}

// Stop signals the refresher to exit and waits for it to finish.  A no-op
// when Start was never called.
func (c *Localized) Stop() {
	if c.cancel == nil {
		return
	}
	c.cancel()
	<-c.done
}

func (c *Localized) loop(ctx context.Context) {
	defer close(c.done)

	c.Refresh(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Refresh(ctx)
		}
	}
}

// Refresh re-reads the zone from settings.  Failures keep the previous
// zone; the clock never errors to callers.
func (c *Localized) Refresh(ctx context.Context) {
	name, err := c.settings.Get(ctx, TimezoneSettingKey)
	if err != nil {
		c.logger.Warn(ctx, "timezone refresh: settings lookup failed", "err", err)
		return
	}
	if name == "" {
		name = c.fallback
	}

	c.mu.RLock()
	current := c.loc.String()
	c.mu.RUnlock()
	if name == current {
		return
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		c.logger.Warn(ctx, "timezone refresh: invalid zone name, keeping current",
			"tz", name, "current", current)
		return
	}

	c.mu.Lock()
	c.loc = loc
	c.mu.Unlock()
	c.logger.Info(ctx, "timezone changed", "tz", name, "previous", current)
}
