package store

import (
	"context"
	"database/sql"

	"github.com/teresa-solution/email-tracking-service/internal/model"
)

// CreateEmail always inserts a new email and returns its assigned id.
// The tenant is not checked here; callers run EnsureTenant first.
func (s *Store) CreateEmail(ctx context.Context, tenantID string, subject, recipient *string) (int64, error) {
	stored, err := s.sealRecipient(recipient)
	if err != nil {
		return 0, fault("create_email", err)
	}

	defer s.lock("create_email")()

	query := `INSERT INTO emails (tenant_id, subject, recipient, created_at)
              VALUES ($1, $2, $3, $4)
              RETURNING id`
	var id int64
	if err := s.db.QueryRowContext(ctx, query, tenantID, subject, stored, s.timestamp()).Scan(&id); err != nil {
		return 0, fault("create_email", err)
	}
	return id, nil
}

// GetEmail returns the email only if it belongs to tenantID. An id owned by
// another tenant is reported exactly like a missing one: (nil, nil).
func (s *Store) GetEmail(ctx context.Context, emailID int64, tenantID string) (*model.Email, error) {
	key := emailCacheKey(tenantID, emailID)
	email := &model.Email{}
	if !s.cache.get(ctx, "email", key, email) || email.ID != emailID || email.TenantID != tenantID {
		var err error
		email, err = s.queryEmail(ctx, emailID, tenantID)
		if err != nil || email == nil {
			return nil, err
		}
		// cached as stored, so a sealed recipient stays sealed in redis
		s.cache.set(ctx, key, email)
	}

	recipient, err := s.openRecipient(email.Recipient)
	if err != nil {
		return nil, fault("get_email", err)
	}
	email.Recipient = recipient
	return email, nil
}

func (s *Store) queryEmail(ctx context.Context, emailID int64, tenantID string) (*model.Email, error) {
	defer s.lock("get_email")()

	query := `SELECT id, tenant_id, subject, recipient, created_at
              FROM emails WHERE id = $1 AND tenant_id = $2`
	email := &model.Email{}
	err := s.db.QueryRowContext(ctx, query, emailID, tenantID).Scan(
		&email.ID, &email.TenantID, &email.Subject, &email.Recipient, &email.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fault("get_email", err)
	}
	return email, nil
}

func (s *Store) sealRecipient(recipient *string) (*string, error) {
	if recipient == nil || s.cipher == nil {
		return recipient, nil
	}
	sealed, err := s.cipher.Seal(*recipient)
	if err != nil {
		return nil, err
	}
	return &sealed, nil
}

func (s *Store) openRecipient(recipient *string) (*string, error) {
	if recipient == nil || s.cipher == nil {
		return recipient, nil
	}
	opened, err := s.cipher.Open(*recipient)
	if err != nil {
		return nil, err
	}
	return &opened, nil
}
