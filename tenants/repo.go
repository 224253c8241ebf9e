package tenants

import "context"

type Repo interface {
	Upsert(ctx context.Context, tenantData *Tenant) error
	Get(ctx context.Context, tenantID string) (*Tenant, error)
	// GetByAPIToken finds the tenant owning an integration API token.
	GetByAPIToken(ctx context.Context, token string) (*Tenant, error)
	List(ctx context.Context) ([]*Tenant, error)
}
