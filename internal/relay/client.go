package relay

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/nferreyra/cerbero/internal/logging"
)

// Trigger outcome statuses.
const (
	StatusSkipped = "skipped"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

var errNotConfigured = errors.New("relay not configured")

// Config describes the single relay channel this server drives.
type Config struct {
	// BaseURL of the relay device.  Empty disables actuation: triggers
	// become no-ops reported as skipped, never failures.
	BaseURL string

	Channel       int
	Timeout       time.Duration // per attempt
	RetryAttempts int           // retries after the first attempt
	RetryDelay    time.Duration // fixed delay between attempts
	PulseDuration time.Duration // default open→restore delay

	// OpenState is the raw action ("on" or "off") that opens the door.
	// The close action is always the complement.
	OpenState Action

	// NativePulse reports whether the device honors auto-restore query
	// parameters (auto_off / auto_on).  When it does not, the client
	// schedules its own restore call.
	NativePulse bool
}

func (c Config) Enabled() bool { return c.BaseURL != "" }

// ActionFor maps a door command to the raw relay action under the
// configured polarity.
func (c Config) ActionFor(cmd Command) Action {
	open := c.OpenState
	if open != ActionOff {
		open = ActionOn
	}
	if cmd == Open {
		return open
	}
	return open.Complement()
}

// Result is the outcome of one Trigger call.  Failures are encoded here,
// never raised as errors past the client boundary, so callers can apply a
// degrade-don't-deny policy.
type Result struct {
	Status           string
	Attempts         int
	AutoRestoreUsed  bool
	RestoreScheduled bool
	Err              error
}

// Client drives the relay with retry, pulse and fail-safe restore
// semantics.  The relay endpoint is a singleton external resource with no
// client-side locking: the device serializes its own command queue, so
// overlapping calls are acceptable.
type Client struct {
	cfg       Config
	transport *Transport
	logger    logging.Logger
}

func NewClient(cfg Config, logger logging.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 4 * time.Second
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}
	return &Client{
		cfg:       cfg,
		transport: NewTransport(cfg.Timeout),
		logger:    logger.With("component", "relay"),
	}
}

func (c *Client) Config() Config { return c.cfg }

// Pulse opens the door and restores it after the configured pulse duration.
func (c *Client) Pulse(ctx context.Context) Result {
	return c.Trigger(ctx, Open, c.cfg.PulseDuration)
}

// Trigger drives the relay with cmd.  A restoreDelay > 0 arranges the
// complementary action after the delay: natively via the device's
// auto-restore parameter when cmd is Open and the device supports it,
// otherwise via a detached timer whose outcome is only logged.
//
// The retry sequence runs to its attempt budget even if the originating
// request goes away; only the per-attempt timeout bounds each call.
func (c *Client) Trigger(ctx context.Context, cmd Command, restoreDelay time.Duration) Result {
	if !c.cfg.Enabled() {
		return Result{Status: StatusSkipped, Err: errNotConfigured}
	}

	ctx = context.WithoutCancel(ctx)

	action := c.cfg.ActionFor(cmd)
	url := fmt.Sprintf("%s/relay/%d?turn=%s", c.cfg.BaseURL, c.cfg.Channel, action)

	pulseSeconds := int(math.Round(restoreDelay.Seconds()))
	autoRestore := false
	if cmd == Open && c.cfg.NativePulse && pulseSeconds > 0 {
		// The device flips back by itself: on-polarity doors use auto_off,
		// off-polarity doors auto_on.
		if action == ActionOn {
			url += fmt.Sprintf("&auto_off=%d", pulseSeconds)
		} else {
			url += fmt.Sprintf("&auto_on=%d", pulseSeconds)
		}
		autoRestore = true
	}

	maxAttempts := c.cfg.RetryAttempts + 1
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := c.transport.Call(ctx, url)
		if err == nil {
			res := Result{
				Status:          StatusSuccess,
				Attempts:        attempt,
				AutoRestoreUsed: autoRestore,
			}
			if restoreDelay > 0 {
				res.RestoreScheduled = true
				if !autoRestore {
					c.scheduleRestore(action.Complement(), restoreDelay)
				}
			}
			return res
		}

		lastErr = err
		c.logger.Warn(ctx, "relay attempt failed",
			"attempt", attempt, "max_attempts", maxAttempts, "action", string(action), "err", err)
		if attempt < maxAttempts {
			time.Sleep(c.cfg.RetryDelay)
		}
	}

	return Result{
		Status:           StatusFailed,
		Attempts:         maxAttempts,
		AutoRestoreUsed:  autoRestore,
		RestoreScheduled: false,
		Err:              lastErr,
	}
}

// scheduleRestore arranges the fail-safe restore call.  Detached from any
// request scope: a failed restore degrades to "door left open", which is
// logged for external alarming rather than retried here.
func (c *Client) scheduleRestore(action Action, delay time.Duration) {
	url := fmt.Sprintf("%s/relay/%d?turn=%s", c.cfg.BaseURL, c.cfg.Channel, action)
	log := c.logger.With("restore_action", string(action))

	time.AfterFunc(delay, func() {
		ctx := context.Background()
		if err := c.transport.Call(ctx, url); err != nil {
			log.Error(ctx, "relay restore failed, door may be left open", "err", err)
			return
		}
		log.Info(ctx, "relay restored")
	})
}
