package store

import (
	"context"
	"database/sql"

	"github.com/teresa-solution/email-tracking-service/internal/model"
)

// EnsureTenant inserts the tenant unless a row with the same id exists.
// An existing row is never overwritten and a duplicate is not an error.
func (s *Store) EnsureTenant(ctx context.Context, id, name string) error {
	defer s.lock("ensure_tenant")()

	query := `INSERT INTO tenants (id, name, created_at) VALUES ($1, $2, $3)
              ON CONFLICT (id) DO NOTHING`
	_, err := s.db.ExecContext(ctx, query, id, name, s.timestamp())
	return fault("ensure_tenant", err)
}

// GetTenant retrieves a tenant by ID. A missing tenant is (nil, nil).
func (s *Store) GetTenant(ctx context.Context, id string) (*model.Tenant, error) {
	key := tenantCacheKey(id)
	tenant := &model.Tenant{}
	if s.cache.get(ctx, "tenant", key, tenant) && tenant.ID == id {
		return tenant, nil
	}

	tenant, err := s.queryTenant(ctx, id)
	if err != nil || tenant == nil {
		return nil, err
	}

	s.cache.set(ctx, key, tenant)
	return tenant, nil
}

func (s *Store) queryTenant(ctx context.Context, id string) (*model.Tenant, error) {
	defer s.lock("get_tenant")()

	query := `SELECT id, name, created_at FROM tenants WHERE id = $1`
	tenant := &model.Tenant{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(&tenant.ID, &tenant.Name, &tenant.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fault("get_tenant", err)
	}
	return tenant, nil
}
