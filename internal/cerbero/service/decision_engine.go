package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nferreyra/cerbero/internal/cerbero/store"
	"github.com/nferreyra/cerbero/internal/cerbero/types"
	"github.com/nferreyra/cerbero/internal/logging"
	"github.com/nferreyra/cerbero/internal/relay"
)

var (
	ErrInvalidExternalID = errors.New("external_id is required")
)

// defaultEntryNotes is written when a scan carries no notes of its own.
const defaultEntryNotes = "Recorded via scanner"

// Actuator drives the door relay.  Satisfied by *relay.Client.
type Actuator interface {
	Pulse(ctx context.Context) relay.Result
	Config() relay.Config
}

// Broadcaster fans a decision out to monitoring subscribers.  Satisfied by
// *realtime.Hub.
type Broadcaster interface {
	Broadcast(d types.ScanDecision)
}

// Clock is the shared localized time source.  Satisfied by
// *clock.Localized.
type Clock interface {
	Now() time.Time
	Stamp() string
}

// DecisionEngine is the single entry point invoked per scan.  One pass:
// resolve → evaluate → actuate → persist → broadcast.  The policy decision
// and the physical actuation are deliberately decoupled: a broken relay
// never turns an admitted scan into a denial, it only annotates the
// outcome.
type DecisionEngine struct {
	evaluator   *ComplianceEvaluator
	ledger      store.LedgerStore
	actuator    Actuator
	broadcaster Broadcaster
	operators   *OperatorResolver
	clock       Clock
	logger      logging.Logger
}

func NewDecisionEngine(
	evaluator *ComplianceEvaluator,
	ledger store.LedgerStore,
	actuator Actuator,
	broadcaster Broadcaster,
	operators *OperatorResolver,
	clk Clock,
	logger logging.Logger,
) *DecisionEngine {
	return &DecisionEngine{
		evaluator:   evaluator,
		ledger:      ledger,
		actuator:    actuator,
		broadcaster: broadcaster,
		operators:   operators,
		clock:       clk,
		logger:      logger.With("component", "decision_engine"),
	}
}

// Scan decides one admission request.  Every outcome comes back as a
// ScanDecision — infrastructure failures included, as a denied
// INTERNAL_ERROR decision with no relay or ledger side effects.  The error
// return is reserved for invalid input.
func (e *DecisionEngine) Scan(ctx context.Context, req types.ScanRequest) (types.ScanDecision, error) {
	externalID := strings.TrimSpace(req.ExternalID)
	if externalID == "" {
		return types.ScanDecision{}, ErrInvalidExternalID
	}

	action := types.ActionEntry
	if strings.EqualFold(strings.TrimSpace(req.Action), types.ActionExit) {
		action = types.ActionExit
	}

	d := types.ScanDecision{
		EventID:    uuid.NewString(),
		Action:     action,
		ServerTime: e.clock.Now().Format(time.RFC3339),
	}

	ev, err := e.evaluator.Evaluate(ctx, externalID, action)
	if err != nil {
		// Store unreachable or similar.  Fail closed without touching the
		// relay or the ledger; the monitoring feed still sees the outcome.
		e.logger.Error(ctx, "evaluation failed", "event_id", d.EventID, "err", err)
		d.Status, d.Color = types.StatusDenied, types.ColorRed
		d.ReasonCode = types.ReasonInternalError
		d.Message = "Internal error while evaluating access"
		d.Person = &types.PersonSummary{ExternalID: externalID}
		e.broadcaster.Broadcast(d)
		return d, nil
	}

	d.Allowed = ev.Admit
	d.ReasonCode = ev.ReasonCode
	d.Message = ev.Message
	d.Provider = ev.Provider
	if ev.Person != nil {
		d.Person = &types.PersonSummary{
			ID:         ev.Person.ID,
			ExternalID: ev.Person.ExternalID,
			Name:       ev.Person.Name,
			Category:   ev.Person.Category,
			Area:       ev.Person.AreaName,
			PhotoURL:   ev.Person.PhotoURL,
		}
	} else {
		d.Person = &types.PersonSummary{ExternalID: externalID}
	}

	if d.Allowed {
		d.Status, d.Color = types.StatusApproved, types.ColorGreen
	} else {
		d.Status, d.Color = types.StatusDenied, types.ColorRed
	}

	e.actuate(ctx, &d)

	if d.Allowed && ev.Person != nil {
		d.Ledger = e.persist(ctx, &d, ev.Person, action, req.Notes)
	}

	e.broadcaster.Broadcast(d)
	return d, nil
}

// actuate pulses the relay for admitted scans.  Skipped (unconfigured) is a
// no-op, not a failure; a real failure flags the decision
// HARDWARE_TRIGGER_FAILED so operators can spot a stuck door, while the
// admit decision stands.
func (e *DecisionEngine) actuate(ctx context.Context, d *types.ScanDecision) {
	cfg := e.actuator.Config()
	relayAction := string(cfg.ActionFor(relay.Open))

	if !d.Allowed {
		d.Relay = &types.RelayTrigger{
			Status:      relay.StatusSkipped,
			Configured:  cfg.Enabled(),
			RelayAction: relayAction,
			Reason:      "access denied",
		}
		return
	}

	res := e.actuator.Pulse(ctx)
	rt := &types.RelayTrigger{
		Status:           res.Status,
		Configured:       cfg.Enabled(),
		RelayAction:      relayAction,
		Attempts:         res.Attempts,
		RestoreScheduled: res.RestoreScheduled,
	}

	switch res.Status {
	case relay.StatusSkipped:
		rt.Reason = "relay not configured"
	case relay.StatusFailed:
		if res.Err != nil {
			rt.Error = res.Err.Error()
		}
		d.ReasonCode = types.ReasonHardwareTriggerFailed
		d.Message = d.Message + " (relay could not be triggered)"
		e.logger.Error(ctx, "relay trigger failed",
			"event_id", d.EventID, "attempts", res.Attempts, "err", res.Err)
	}

	d.Relay = rt
}

// persist applies the admitted scan to the ledger.  Ledger failures are
// logged, never fatal to the decision — the caller already has the door
// outcome in hand.
func (e *DecisionEngine) persist(ctx context.Context, d *types.ScanDecision, person *store.PersonRecord, action, notes string) *types.LedgerOutcome {
	stamp := e.clock.Stamp()
	notes = strings.TrimSpace(notes)

	if action == types.ActionExit {
		closed, err := e.ledger.CloseOpenEntry(ctx, person.ID, stamp, notes)
		if err != nil {
			e.logger.Error(ctx, "ledger close failed", "event_id", d.EventID, "person_id", person.ID, "err", err)
			return &types.LedgerOutcome{Recorded: false, Note: "write_failed"}
		}
		if !closed {
			// Duplicate or out-of-order scan: expected, surfaced as a
			// warning rather than a denial.
			d.ReasonCode = types.ReasonNoOpenEntry
			d.Status = types.StatusWarning
			d.Color = types.ColorYellow
			d.Message = "No open entry found to close. Exit not recorded."
			return &types.LedgerOutcome{Recorded: false, Note: "no_open_entry"}
		}
		return &types.LedgerOutcome{Recorded: true}
	}

	// Entry: read before write keeps the sequential path off the unique
	// index; the index itself settles concurrent double-scans.
	inside, err := e.ledger.HasOpenEntry(ctx, person.ID)
	if err != nil {
		e.logger.Error(ctx, "ledger open-entry check failed", "event_id", d.EventID, "person_id", person.ID, "err", err)
		return &types.LedgerOutcome{Recorded: false, Note: "write_failed"}
	}
	if inside {
		return &types.LedgerOutcome{Recorded: false, Note: "already_inside"}
	}

	if notes == "" {
		notes = defaultEntryNotes
	}
	created, err := e.ledger.OpenEntry(ctx, store.OpenEntryParams{
		PersonID:   person.ID,
		EntryTime:  stamp,
		Notes:      notes,
		OperatorID: e.operators.Resolve(ctx),
	})
	if err != nil {
		e.logger.Error(ctx, "ledger open failed", "event_id", d.EventID, "person_id", person.ID, "err", err)
		return &types.LedgerOutcome{Recorded: false, Note: "write_failed"}
	}
	if !created {
		return &types.LedgerOutcome{Recorded: false, Note: "already_inside"}
	}
	return &types.LedgerOutcome{Recorded: true}
}
