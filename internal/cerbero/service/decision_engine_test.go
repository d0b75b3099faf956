package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nferreyra/cerbero/internal/cerbero/service"
	"github.com/nferreyra/cerbero/internal/cerbero/store"
	"github.com/nferreyra/cerbero/internal/cerbero/store/memory"
	"github.com/nferreyra/cerbero/internal/cerbero/types"
	"github.com/nferreyra/cerbero/internal/logging"
	"github.com/nferreyra/cerbero/internal/relay"
)

type fakeActuator struct {
	mu     sync.Mutex
	cfg    relay.Config
	result relay.Result
	calls  int
}

func (f *fakeActuator) Pulse(_ context.Context) relay.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.result
}

func (f *fakeActuator) Config() relay.Config { return f.cfg }

func (f *fakeActuator) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []types.ScanDecision
}

func (f *fakeBroadcaster) Broadcast(d types.ScanDecision) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, d)
}

func (f *fakeBroadcaster) Events() []types.ScanDecision {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]types.ScanDecision, len(f.events))
	copy(out, f.events)
	return out
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }
func (c fixedClock) Stamp() string  { return c.t.Format("2006-01-02 15:04:05") }

type engineFixture struct {
	engine      *service.DecisionEngine
	identity    *memory.IdentityStore
	ledger      *memory.LedgerStore
	actuator    *fakeActuator
	broadcaster *fakeBroadcaster
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()

	identity := memory.NewIdentityStore()
	ledger := memory.NewLedgerStore()
	actuator := &fakeActuator{
		cfg: relay.Config{
			BaseURL:       "http://relay.local",
			OpenState:     relay.ActionOn,
			PulseDuration: time.Second,
			NativePulse:   true,
		},
		result: relay.Result{Status: relay.StatusSuccess, Attempts: 1, AutoRestoreUsed: true, RestoreScheduled: true},
	}
	broadcaster := &fakeBroadcaster{}
	logger := logging.NewNopLogger()

	evaluator := service.NewComplianceEvaluator(identity, fixedNow)
	operators := service.NewOperatorResolver(memory.NewOperatorStore(1), 0, logger)
	engine := service.NewDecisionEngine(evaluator, ledger, actuator, broadcaster, operators, fixedClock{t: testNow}, logger)

	return &engineFixture{
		engine:      engine,
		identity:    identity,
		ledger:      ledger,
		actuator:    actuator,
		broadcaster: broadcaster,
	}
}

func TestScan_EmptyExternalID_Rejected(t *testing.T) {
	fx := newEngineFixture(t)

	_, err := fx.engine.Scan(context.Background(), types.ScanRequest{ExternalID: "   "})
	require.ErrorIs(t, err, service.ErrInvalidExternalID)
	assert.Equal(t, 0, fx.actuator.Calls())
	assert.Empty(t, fx.broadcaster.Events())
}

func TestScan_UnknownPerson_DeniedWithoutSideEffects(t *testing.T) {
	fx := newEngineFixture(t)

	d, err := fx.engine.Scan(context.Background(), types.ScanRequest{ExternalID: "00000000"})
	require.NoError(t, err)

	assert.False(t, d.Allowed)
	assert.Equal(t, types.ReasonPersonNotFound, d.ReasonCode)
	assert.Equal(t, types.StatusDenied, d.Status)
	assert.Equal(t, types.ColorRed, d.Color)
	require.NotNil(t, d.Person)
	assert.Equal(t, "00000000", d.Person.ExternalID)

	// No door pulse, no ledger row — but the decision is still broadcast.
	assert.Equal(t, 0, fx.actuator.Calls())
	require.NotNil(t, d.Relay)
	assert.Equal(t, relay.StatusSkipped, d.Relay.Status)
	assert.Empty(t, fx.ledger.Rows())
	require.Len(t, fx.broadcaster.Events(), 1)
	assert.Equal(t, d.EventID, fx.broadcaster.Events()[0].EventID)
}

func TestScan_EmployeeEntry_OpensLedgerAndPulsesRelay(t *testing.T) {
	fx := newEngineFixture(t)
	putEmployee(fx.identity, "12345678", true)

	d, err := fx.engine.Scan(context.Background(), types.ScanRequest{ExternalID: "12345678", Action: types.ActionEntry})
	require.NoError(t, err)

	assert.True(t, d.Allowed)
	assert.Equal(t, types.ReasonAccessGranted, d.ReasonCode)
	assert.Equal(t, types.StatusApproved, d.Status)
	assert.Equal(t, types.ColorGreen, d.Color)
	assert.NotEmpty(t, d.EventID)

	assert.Equal(t, 1, fx.actuator.Calls())
	require.NotNil(t, d.Relay)
	assert.Equal(t, relay.StatusSuccess, d.Relay.Status)
	assert.Equal(t, "on", d.Relay.RelayAction)

	require.NotNil(t, d.Ledger)
	assert.True(t, d.Ledger.Recorded)
	rows := fx.ledger.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0].PersonID)
	assert.Equal(t, testNow.Format("2006-01-02 15:04:05"), rows[0].EntryTime)
	assert.Equal(t, "Recorded via scanner", rows[0].Notes)
	assert.Equal(t, int64(1), rows[0].OperatorID)
	assert.Empty(t, rows[0].ExitTime)
}

func TestScan_ExitClosesOpenEntry(t *testing.T) {
	fx := newEngineFixture(t)
	putEmployee(fx.identity, "12345678", true)

	_, err := fx.engine.Scan(context.Background(), types.ScanRequest{ExternalID: "12345678"})
	require.NoError(t, err)

	d, err := fx.engine.Scan(context.Background(), types.ScanRequest{ExternalID: "12345678", Action: "EXIT"})
	require.NoError(t, err)

	assert.True(t, d.Allowed)
	assert.Equal(t, types.ActionExit, d.Action)
	require.NotNil(t, d.Ledger)
	assert.True(t, d.Ledger.Recorded)

	rows := fx.ledger.Rows()
	require.Len(t, rows, 1)
	assert.NotEmpty(t, rows[0].ExitTime)
	assert.Equal(t, 0, fx.ledger.OpenCount(1))
}

func TestScan_ExitWithoutOpenEntry_Warning(t *testing.T) {
	fx := newEngineFixture(t)
	putEmployee(fx.identity, "12345678", true)

	d, err := fx.engine.Scan(context.Background(), types.ScanRequest{ExternalID: "12345678", Action: types.ActionExit})
	require.NoError(t, err)

	// Still admitted — the door opens — but the ledger mismatch is surfaced.
	assert.True(t, d.Allowed)
	assert.Equal(t, types.ReasonNoOpenEntry, d.ReasonCode)
	assert.Equal(t, types.StatusWarning, d.Status)
	assert.Equal(t, types.ColorYellow, d.Color)
	require.NotNil(t, d.Ledger)
	assert.False(t, d.Ledger.Recorded)
	assert.Equal(t, "no_open_entry", d.Ledger.Note)
	assert.Equal(t, 1, fx.actuator.Calls())
}

func TestScan_DoubleEntry_SingleOpenRow(t *testing.T) {
	fx := newEngineFixture(t)
	putEmployee(fx.identity, "12345678", true)

	first, err := fx.engine.Scan(context.Background(), types.ScanRequest{ExternalID: "12345678"})
	require.NoError(t, err)
	second, err := fx.engine.Scan(context.Background(), types.ScanRequest{ExternalID: "12345678"})
	require.NoError(t, err)

	assert.True(t, first.Ledger.Recorded)
	assert.True(t, second.Allowed)
	require.NotNil(t, second.Ledger)
	assert.False(t, second.Ledger.Recorded)
	assert.Equal(t, "already_inside", second.Ledger.Note)
	assert.Equal(t, 1, fx.ledger.OpenCount(1))
}

func TestScan_RelayFailure_DecisionStandsAndLedgerWritten(t *testing.T) {
	fx := newEngineFixture(t)
	putEmployee(fx.identity, "12345678", true)
	fx.actuator.result = relay.Result{Status: relay.StatusFailed, Attempts: 3, Err: errors.New("connection refused")}

	d, err := fx.engine.Scan(context.Background(), types.ScanRequest{ExternalID: "12345678"})
	require.NoError(t, err)

	// Actuation failure never flips the admit decision.
	assert.True(t, d.Allowed)
	assert.Equal(t, types.ReasonHardwareTriggerFailed, d.ReasonCode)
	assert.Contains(t, d.Message, "relay could not be triggered")
	require.NotNil(t, d.Relay)
	assert.Equal(t, relay.StatusFailed, d.Relay.Status)
	assert.Equal(t, 3, d.Relay.Attempts)
	assert.Equal(t, "connection refused", d.Relay.Error)

	require.NotNil(t, d.Ledger)
	assert.True(t, d.Ledger.Recorded)
	assert.Equal(t, 1, fx.ledger.OpenCount(1))
}

func TestScan_RelayUnconfigured_Skipped(t *testing.T) {
	fx := newEngineFixture(t)
	putEmployee(fx.identity, "12345678", true)
	fx.actuator.cfg = relay.Config{}
	fx.actuator.result = relay.Result{Status: relay.StatusSkipped}

	d, err := fx.engine.Scan(context.Background(), types.ScanRequest{ExternalID: "12345678"})
	require.NoError(t, err)

	assert.True(t, d.Allowed)
	assert.Equal(t, types.ReasonAccessGranted, d.ReasonCode)
	require.NotNil(t, d.Relay)
	assert.Equal(t, relay.StatusSkipped, d.Relay.Status)
	assert.False(t, d.Relay.Configured)
	assert.Equal(t, "relay not configured", d.Relay.Reason)
	assert.True(t, d.Ledger.Recorded)
}

func TestScan_ProviderNearExpiry_AdmittedWithAdvisory(t *testing.T) {
	fx := newEngineFixture(t)
	putProvider(fx.identity, "87654321", true)
	exp := testNow.Add(5 * 24 * time.Hour)
	fx.identity.PutDocument(7, store.ComplianceDocument{UploadedAt: testNow.Add(-time.Hour), ExpiresAt: &exp})

	d, err := fx.engine.Scan(context.Background(), types.ScanRequest{ExternalID: "87654321"})
	require.NoError(t, err)

	assert.True(t, d.Allowed)
	assert.Equal(t, types.ReasonProviderDocNearExpiry, d.ReasonCode)
	require.NotNil(t, d.Provider)
	assert.Equal(t, service.DocExpiringSoon, d.Provider.DocStatus)
	assert.Equal(t, 1, fx.actuator.Calls())
	assert.True(t, d.Ledger.Recorded)
}

func TestScan_ProviderDocMissing_DeniedNoLedgerRow(t *testing.T) {
	fx := newEngineFixture(t)
	putProvider(fx.identity, "87654321", true)

	d, err := fx.engine.Scan(context.Background(), types.ScanRequest{ExternalID: "87654321"})
	require.NoError(t, err)

	assert.False(t, d.Allowed)
	assert.Equal(t, types.ReasonProviderDocMissing, d.ReasonCode)
	assert.Nil(t, d.Ledger)
	assert.Equal(t, 0, fx.actuator.Calls())
	assert.Empty(t, fx.ledger.Rows())
}

// brokenIdentityStore fails every lookup, as if the database went away.
type brokenIdentityStore struct{}

func (brokenIdentityStore) GetPersonByExternalID(context.Context, string) (*store.PersonRecord, error) {
	return nil, errors.New("db unreachable")
}

func (brokenIdentityStore) GetProviderByExternalID(context.Context, string) (*store.ProviderRecord, error) {
	return nil, errors.New("db unreachable")
}

func (brokenIdentityStore) GetLatestDocument(context.Context, int64) (*store.ComplianceDocument, error) {
	return nil, errors.New("db unreachable")
}

func TestScan_StoreFailure_DeniedInternalError(t *testing.T) {
	ledger := memory.NewLedgerStore()
	actuator := &fakeActuator{cfg: relay.Config{BaseURL: "http://relay.local", OpenState: relay.ActionOn}}
	broadcaster := &fakeBroadcaster{}
	logger := logging.NewNopLogger()

	evaluator := service.NewComplianceEvaluator(brokenIdentityStore{}, fixedNow)
	operators := service.NewOperatorResolver(memory.NewOperatorStore(1), 0, logger)
	engine := service.NewDecisionEngine(evaluator, ledger, actuator, broadcaster, operators, fixedClock{t: testNow}, logger)

	d, err := engine.Scan(context.Background(), types.ScanRequest{ExternalID: "12345678"})
	require.NoError(t, err)

	assert.False(t, d.Allowed)
	assert.Equal(t, types.ReasonInternalError, d.ReasonCode)
	assert.Equal(t, types.StatusDenied, d.Status)
	assert.Equal(t, types.ColorRed, d.Color)
	require.NotNil(t, d.Person)
	assert.Equal(t, "12345678", d.Person.ExternalID)

	// Fails closed with no relay or ledger side effects, but the outcome
	// still reaches the monitoring feed.
	assert.Equal(t, 0, actuator.Calls())
	assert.Nil(t, d.Relay)
	assert.Empty(t, ledger.Rows())
	require.Len(t, broadcaster.Events(), 1)
	assert.Equal(t, types.ReasonInternalError, broadcaster.Events()[0].ReasonCode)
}

func TestScan_CustomNotesPreserved(t *testing.T) {
	fx := newEngineFixture(t)
	putEmployee(fx.identity, "12345678", true)

	_, err := fx.engine.Scan(context.Background(), types.ScanRequest{ExternalID: "12345678", Notes: "gate 2, forklift"})
	require.NoError(t, err)

	rows := fx.ledger.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, "gate 2, forklift", rows[0].Notes)
}

func TestScan_EveryDecisionBroadcast(t *testing.T) {
	fx := newEngineFixture(t)
	putEmployee(fx.identity, "12345678", true)

	_, err := fx.engine.Scan(context.Background(), types.ScanRequest{ExternalID: "12345678"})
	require.NoError(t, err)
	_, err = fx.engine.Scan(context.Background(), types.ScanRequest{ExternalID: "00000000"})
	require.NoError(t, err)

	events := fx.broadcaster.Events()
	require.Len(t, events, 2)
	assert.True(t, events[0].Allowed)
	assert.False(t, events[1].Allowed)
	assert.NotEqual(t, events[0].EventID, events[1].EventID)
}
