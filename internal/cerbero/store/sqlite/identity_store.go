package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/nferreyra/cerbero/internal/cerbero/store"
)

// IdentityStore resolves people, providers and compliance documents from the
// registry tables. Read-only: the administrative side owns these tables.
type IdentityStore struct {
	db *sql.DB
}

func NewIdentityStore(db *sql.DB) *IdentityStore {
	return &IdentityStore{db: db}
}

func (s *IdentityStore) GetPersonByExternalID(ctx context.Context, externalID string) (*store.PersonRecord, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, nil
	}

	var (
		rec      store.PersonRecord
		active   int
		areaName sql.NullString
		photoURL sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
SELECT p.id, p.external_id, p.name, p.category, p.is_active, a.name, p.photo_url
FROM people p
LEFT JOIN areas a ON a.id = p.area_id
WHERE p.external_id = ?;
`, externalID).Scan(&rec.ID, &rec.ExternalID, &rec.Name, &rec.Category, &active, &areaName, &photoURL)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetPersonByExternalID query: %w", err)
	}

	rec.Active = active == 1
	rec.AreaName = areaName.String
	rec.PhotoURL = photoURL.String
	return &rec, nil
}

func (s *IdentityStore) GetProviderByExternalID(ctx context.Context, externalID string) (*store.ProviderRecord, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, nil
	}

	var (
		rec    store.ProviderRecord
		active int
	)
	err := s.db.QueryRowContext(ctx, `
SELECT id, is_active FROM providers WHERE external_id = ?;
`, externalID).Scan(&rec.ID, &active)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetProviderByExternalID query: %w", err)
	}

	rec.Active = active == 1
	return &rec, nil
}

// GetLatestDocument returns the most-recently-uploaded document for the
// provider; only that document determines current compliance.
func (s *IdentityStore) GetLatestDocument(ctx context.Context, providerID int64) (*store.ComplianceDocument, error) {
	var (
		uploadMs int64
		expMs    sql.NullInt64
		vehicle  int
	)
	err := s.db.QueryRowContext(ctx, `
SELECT upload_date_ms, expiration_date_ms, grants_vehicle_access
FROM provider_docs
WHERE provider_id = ?
ORDER BY upload_date_ms DESC, id DESC
LIMIT 1;
`, providerID).Scan(&uploadMs, &expMs, &vehicle)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetLatestDocument query: %w", err)
	}

	doc := store.ComplianceDocument{
		UploadedAt:          time.UnixMilli(uploadMs).UTC(),
		GrantsVehicleAccess: vehicle == 1,
	}
	if expMs.Valid {
		t := time.UnixMilli(expMs.Int64).UTC()
		doc.ExpiresAt = &t
	}
	return &doc, nil
}
