package store

import (
	"context"
	"time"
)

// Person categories recognized by the registry.
const (
	CategoryEmployee   = "employee"
	CategoryProvider   = "provider"
	CategoryGuard      = "guard"
	CategorySupervisor = "supervisor"
	CategoryAdmin      = "admin"
)

// PersonRecord is one identity-registry row. The registry is maintained by
// the administrative side; the core only reads it.
type PersonRecord struct {
	ID         int64
	ExternalID string
	Name       string
	Category   string
	Active     bool
	AreaName   string // resolved from the area reference; empty when unassigned
	PhotoURL   string
}

// ProviderRecord is the provider-catalog row backing a person of category
// "provider".
type ProviderRecord struct {
	ID     int64
	Active bool
}

// ComplianceDocument is one uploaded provider credential. Only the
// most-recently-uploaded document determines current compliance.
type ComplianceDocument struct {
	UploadedAt          time.Time
	ExpiresAt           *time.Time // nil = no expiration recorded
	GrantsVehicleAccess bool
}

// IdentityStore resolves identities by external identifier (e.g. national
// ID). Lookups return (nil, nil) when the record is absent — absence is a
// policy outcome, not a storage error.
type IdentityStore interface {
	GetPersonByExternalID(ctx context.Context, externalID string) (*PersonRecord, error)
	GetProviderByExternalID(ctx context.Context, externalID string) (*ProviderRecord, error)
	GetLatestDocument(ctx context.Context, providerID int64) (*ComplianceDocument, error)
}

// SettingsStore reads administrative key/value settings (e.g. "timezone").
// Get returns "" when the key is absent.
type SettingsStore interface {
	Get(ctx context.Context, key string) (string, error)
}

// OperatorStore resolves the user id that scan-triggered ledger writes are
// attributed to: the first guard-role user, falling back to the first user.
// Returns 0 when no users exist.
type OperatorStore interface {
	ResolveScanOperator(ctx context.Context) (int64, error)
}
