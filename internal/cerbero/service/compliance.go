package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/nferreyra/cerbero/internal/cerbero/store"
	"github.com/nferreyra/cerbero/internal/cerbero/types"
)

// Derived compliance-document statuses.  Computed per scan, never stored.
const (
	DocMissing      = "missing"
	DocExpired      = "expired"
	DocExpiringSoon = "expiring_soon"
	DocValid        = "valid"
)

// nearExpirationDays is the advisory window: a document expiring within
// this many days still admits, tagged PROVIDER_DOC_NEAR_EXPIRATION.
const nearExpirationDays = 10

// Evaluation is the compliance verdict for one scan.  Person is nil only
// for PERSON_NOT_FOUND; Provider is set only for provider-category people
// whose catalog record was found.
type Evaluation struct {
	Admit      bool
	ReasonCode string
	Message    string
	Person     *store.PersonRecord
	Provider   *types.ProviderSummary
}

// ComplianceEvaluator computes admission eligibility from registry state and
// document expiry.  Pure read + compute: no side effects, so evaluating the
// same data twice yields the same verdict.
type ComplianceEvaluator struct {
	identity store.IdentityStore
	now      func() time.Time
}

func NewComplianceEvaluator(identity store.IdentityStore, now func() time.Time) *ComplianceEvaluator {
	if now == nil {
		now = time.Now
	}
	return &ComplianceEvaluator{identity: identity, now: now}
}

// Evaluate resolves the identity and decides admit/deny.  Fails closed:
// unknown identifiers and missing provider records deny.  The returned
// error is reserved for infrastructure failures (store unreachable); every
// policy outcome is an Evaluation, not an error.
func (e *ComplianceEvaluator) Evaluate(ctx context.Context, externalID, action string) (Evaluation, error) {
	person, err := e.identity.GetPersonByExternalID(ctx, externalID)
	if err != nil {
		return Evaluation{}, fmt.Errorf("person lookup: %w", err)
	}
	if person == nil {
		return Evaluation{
			Admit:      false,
			ReasonCode: types.ReasonPersonNotFound,
			Message:    "No person found with that ID",
		}, nil
	}

	// Inactive people are denied entry, but exits still evaluate so the
	// ledger can be closed for someone deactivated while inside.
	if action == types.ActionEntry && !person.Active {
		return Evaluation{
			Admit:      false,
			ReasonCode: types.ReasonPersonInactive,
			Message:    "Person is marked inactive",
			Person:     person,
		}, nil
	}

	if person.Category == store.CategoryProvider {
		return e.evaluateProvider(ctx, person)
	}

	return Evaluation{
		Admit:      true,
		ReasonCode: types.ReasonAccessGranted,
		Message:    "Access granted",
		Person:     person,
	}, nil
}

func (e *ComplianceEvaluator) evaluateProvider(ctx context.Context, person *store.PersonRecord) (Evaluation, error) {
	provider, err := e.identity.GetProviderByExternalID(ctx, person.ExternalID)
	if err != nil {
		return Evaluation{}, fmt.Errorf("provider lookup: %w", err)
	}
	if provider == nil {
		return Evaluation{
			Admit:      false,
			ReasonCode: types.ReasonProviderNotFound,
			Message:    "Provider not registered in catalog",
			Person:     person,
		}, nil
	}
	if !provider.Active {
		return Evaluation{
			Admit:      false,
			ReasonCode: types.ReasonProviderInactive,
			Message:    "Provider is marked inactive",
			Person:     person,
		}, nil
	}

	doc, err := e.identity.GetLatestDocument(ctx, provider.ID)
	if err != nil {
		return Evaluation{}, fmt.Errorf("document lookup: %w", err)
	}

	status, daysRemaining, expiresAt := DocumentStatus(doc, e.now())

	summary := &types.ProviderSummary{
		ID:            provider.ID,
		DocStatus:     status,
		DaysRemaining: daysRemaining,
	}
	if expiresAt != nil {
		s := expiresAt.Format(time.RFC3339)
		summary.ExpirationDate = &s
	}

	ev := Evaluation{Person: person, Provider: summary}
	switch status {
	case DocMissing:
		ev.ReasonCode = types.ReasonProviderDocMissing
		ev.Message = "No compliance document on file. Access denied."
	case DocExpired:
		ev.ReasonCode = types.ReasonProviderDocExpired
		ev.Message = "Compliance document expired. Access denied."
	case DocExpiringSoon:
		ev.Admit = true
		ev.ReasonCode = types.ReasonProviderDocNearExpiry
		ev.Message = "Compliance document close to expiring. Access granted."
	default:
		ev.Admit = true
		ev.ReasonCode = types.ReasonAccessGranted
		ev.Message = "Compliance document valid. Access granted."
	}
	return ev, nil
}

// DocumentStatus derives the compliance status of the latest document at
// the given moment.  A nil document is missing; a document without an
// expiration date, or expiring now or earlier, is expired; one expiring
// within nearExpirationDays is expiring_soon.
func DocumentStatus(doc *store.ComplianceDocument, now time.Time) (status string, daysRemaining *int, expiresAt *time.Time) {
	if doc == nil {
		return DocMissing, nil, nil
	}
	if doc.ExpiresAt == nil {
		return DocExpired, nil, nil
	}

	exp := *doc.ExpiresAt
	if !exp.After(now) {
		days := -int(math.Ceil(now.Sub(exp).Hours() / 24))
		return DocExpired, &days, &exp
	}

	days := int(math.Ceil(exp.Sub(now).Hours() / 24))
	if days <= nearExpirationDays {
		return DocExpiringSoon, &days, &exp
	}
	return DocValid, &days, &exp
}
