package types

// Scan actions requested by a badge/QR device or the dashboard.
const (
	ActionEntry = "entry"
	ActionExit  = "exit"
)

// Decision reason codes. Identity denials terminate before actuation;
// HARDWARE_TRIGGER_FAILED and NO_OPEN_ENTRY annotate an admitted decision.
const (
	ReasonAccessGranted         = "ACCESS_GRANTED"
	ReasonPersonNotFound        = "PERSON_NOT_FOUND"
	ReasonPersonInactive        = "PERSON_INACTIVE"
	ReasonProviderNotFound      = "PROVIDER_NOT_FOUND"
	ReasonProviderInactive      = "PROVIDER_INACTIVE"
	ReasonProviderDocMissing    = "PROVIDER_DOC_MISSING"
	ReasonProviderDocExpired    = "PROVIDER_DOC_EXPIRED"
	ReasonProviderDocNearExpiry = "PROVIDER_DOC_NEAR_EXPIRATION"
	ReasonHardwareTriggerFailed = "HARDWARE_TRIGGER_FAILED"
	ReasonNoOpenEntry           = "NO_OPEN_ENTRY"
	ReasonInternalError         = "INTERNAL_ERROR"
)

// Display status/color of a decision, consumed by the monitoring feed.
const (
	StatusApproved = "approved"
	StatusDenied   = "denied"
	StatusWarning  = "warning"

	ColorGreen  = "green"
	ColorRed    = "red"
	ColorYellow = "yellow"
)

type ScanRequest struct {
	ExternalID string `json:"external_id"`
	Action     string `json:"action,omitempty"` // "entry" (default) | "exit"
	Notes      string `json:"notes,omitempty"`
}

type PersonSummary struct {
	ID         int64  `json:"id,omitempty"`
	ExternalID string `json:"external_id"`
	Name       string `json:"name,omitempty"`
	Category   string `json:"category,omitempty"`
	Area       string `json:"area,omitempty"`
	PhotoURL   string `json:"photo_url,omitempty"`
}

type ProviderSummary struct {
	ID             int64   `json:"id"`
	DocStatus      string  `json:"doc_status"`
	ExpirationDate *string `json:"expiration_date"` // RFC3339; null when the document has none
	DaysRemaining  *int    `json:"days_remaining"`  // negative when already expired
}

type RelayTrigger struct {
	Status           string `json:"status"` // "skipped" | "success" | "failed"
	Configured       bool   `json:"configured"`
	RelayAction      string `json:"relay_action,omitempty"`
	Attempts         int    `json:"attempts,omitempty"`
	RestoreScheduled bool   `json:"restore_scheduled"`
	Reason           string `json:"reason,omitempty"`
	Error            string `json:"error,omitempty"`
}

// LedgerOutcome reports what the scan did to the access ledger.
// Note is "already_inside" when an admitted entry found an open row,
// or "no_open_entry" when an admitted exit found nothing to close.
type LedgerOutcome struct {
	Recorded bool   `json:"recorded"`
	Note     string `json:"note,omitempty"`
}

// ScanDecision is the full result of one scan. It is returned to the caller
// and broadcast to monitoring subscribers; it is not persisted beyond the
// ledger write it causes.
type ScanDecision struct {
	EventID    string           `json:"event_id"`
	Allowed    bool             `json:"allowed"`
	Status     string           `json:"status"`
	Color      string           `json:"color"`
	ReasonCode string           `json:"reason_code"`
	Message    string           `json:"message"`
	Action     string           `json:"action"`
	Person     *PersonSummary   `json:"person,omitempty"`
	Provider   *ProviderSummary `json:"provider,omitempty"`
	Relay      *RelayTrigger    `json:"relay_trigger,omitempty"`
	Ledger     *LedgerOutcome   `json:"ledger,omitempty"`
	ServerTime string           `json:"server_time"`
}

// InsideEntry is one currently-open ledger row, as served by /v1/inside.
type InsideEntry struct {
	PersonID   int64  `json:"person_id"`
	ExternalID string `json:"external_id"`
	Name       string `json:"name"`
	EntryTime  string `json:"entry_time"`
	Notes      string `json:"notes,omitempty"`
}
