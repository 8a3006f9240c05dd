package data

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// License is the license_keys row. Bound-account and device columns are
// nullable until first bind / first successful validation.
type License struct {
	ID                uuid.UUID
	Key               string
	ExpiresAt         time.Time
	IsActive          bool
	BoundAccountID    *string
	BoundAccountEmail *string
	CurrentDeviceID   *string
	LastAccessedAt    *time.Time
	Memo              *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type LicenseModel struct {
	DB DBTX
}

const licenseColumns = `id, key, expires_at, is_active, bound_account_id, bound_account_email,
		       current_device_id, last_accessed_at, memo, created_at, updated_at`

func scanLicense(row *sql.Row) (*License, error) {
	var l License
	var boundID, boundEmail, deviceID, memo sql.NullString
	var lastAccessed sql.NullTime

	err := row.Scan(
		&l.ID, &l.Key, &l.ExpiresAt, &l.IsActive, &boundID, &boundEmail,
		&deviceID, &lastAccessed, &memo, &l.CreatedAt, &l.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}

	if boundID.Valid {
		l.BoundAccountID = &boundID.String
	}
	if boundEmail.Valid {
		l.BoundAccountEmail = &boundEmail.String
	}
	if deviceID.Valid {
		l.CurrentDeviceID = &deviceID.String
	}
	if lastAccessed.Valid {
		t := lastAccessed.Time
		l.LastAccessedAt = &t
	}
	if memo.Valid {
		l.Memo = &memo.String
	}
	return &l, nil
}

func (m LicenseModel) Insert(ctx context.Context, l *License) error {
	query := `
		INSERT INTO license_keys (key, expires_at, is_active, memo)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	return m.DB.QueryRowContext(ctx, query, l.Key, l.ExpiresAt.UTC(), l.IsActive, l.Memo).
		Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt)
}

func (m LicenseModel) GetByKey(ctx context.Context, key string) (*License, error) {
	query := `
		SELECT ` + licenseColumns + `
		FROM license_keys
		WHERE key = $1`

	return scanLicense(m.DB.QueryRowContext(ctx, query, key))
}

// GetByBoundAccount is the returning-user fast path: the active license
// already linked to this external account, if any.
func (m LicenseModel) GetByBoundAccount(ctx context.Context, accountID string) (*License, error) {
	query := `
		SELECT ` + licenseColumns + `
		FROM license_keys
		WHERE bound_account_id = $1 AND is_active = TRUE`

	return scanLicense(m.DB.QueryRowContext(ctx, query, accountID))
}

// ClaimDevice registers deviceID as the license's current device and stamps
// last_accessed_at in a single UPDATE. The row is the arbiter of concurrent
// claims; whichever UPDATE lands last wins.
func (m LicenseModel) ClaimDevice(ctx context.Context, id uuid.UUID, deviceID string, now time.Time) error {
	query := `
		UPDATE license_keys
		SET current_device_id = $1, last_accessed_at = $2, updated_at = $2
		WHERE id = $3`

	res, err := m.DB.ExecContext(ctx, query, deviceID, now.UTC(), id)
	if err != nil {
		return err
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// Touch is the heartbeat: bump last_accessed_at only while deviceID is still
// the current device. Returns false when another device has taken over, so a
// stale heartbeat never resurrects a lost session.
func (m LicenseModel) Touch(ctx context.Context, key, deviceID string, now time.Time) (bool, error) {
	query := `
		UPDATE license_keys
		SET last_accessed_at = $1, updated_at = $1
		WHERE key = $2 AND current_device_id = $3`

	res, err := m.DB.ExecContext(ctx, query, now.UTC(), key, deviceID)
	if err != nil {
		return false, err
	}
	rows, _ := res.RowsAffected()
	return rows > 0, nil
}

// BindAccount links the license to an external account. Caller has already
// verified the key is unbound or bound to this same account.
func (m LicenseModel) BindAccount(ctx context.Context, id uuid.UUID, accountID, email string, now time.Time) error {
	query := `
		UPDATE license_keys
		SET bound_account_id = $1, bound_account_email = $2, last_accessed_at = $3, updated_at = $3
		WHERE id = $4`

	res, err := m.DB.ExecContext(ctx, query, accountID, email, now.UTC(), id)
	if err != nil {
		return err
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// Unbind detaches the bound account. Admin-only; there is no self-service
// path to this on purpose.
func (m LicenseModel) Unbind(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE license_keys
		SET bound_account_id = NULL, bound_account_email = NULL, current_device_id = NULL,
		    updated_at = (NOW() AT TIME ZONE 'UTC')
		WHERE id = $1`

	res, err := m.DB.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (m LicenseModel) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	query := `
		UPDATE license_keys
		SET is_active = $1, updated_at = (NOW() AT TIME ZONE 'UTC')
		WHERE id = $2`

	res, err := m.DB.ExecContext(ctx, query, active, id)
	if err != nil {
		return err
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (m LicenseModel) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM license_keys WHERE id = $1`

	res, err := m.DB.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (m LicenseModel) List(ctx context.Context, limit, offset int) ([]*License, error) {
	query := `
		SELECT ` + licenseColumns + `
		FROM license_keys
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := m.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*License
	for rows.Next() {
		var l License
		var boundID, boundEmail, deviceID, memo sql.NullString
		var lastAccessed sql.NullTime

		err := rows.Scan(
			&l.ID, &l.Key, &l.ExpiresAt, &l.IsActive, &boundID, &boundEmail,
			&deviceID, &lastAccessed, &memo, &l.CreatedAt, &l.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		if boundID.Valid {
			l.BoundAccountID = &boundID.String
		}
		if boundEmail.Valid {
			l.BoundAccountEmail = &boundEmail.String
		}
		if deviceID.Valid {
			l.CurrentDeviceID = &deviceID.String
		}
		if lastAccessed.Valid {
			t := lastAccessed.Time
			l.LastAccessedAt = &t
		}
		if memo.Valid {
			l.Memo = &memo.String
		}
		out = append(out, &l)
	}
	return out, rows.Err()
}
