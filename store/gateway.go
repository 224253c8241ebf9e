// Package store is the narrow read contract the authentication core uses to
// reach accounts and tenant configuration.
package store

import (
	"context"

	"github.com/pkg/errors"

	apperrors "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/tenants"
	"github.com/jrsteele09/go-session-auth/users"
)

// ErrNotFound is returned (possibly wrapped) when a lookup matches nothing.
var ErrNotFound = apperrors.ErrNotFound

// Gateway is the only way the core reads persisted state.
type Gateway interface {
	FindAccountByEmail(ctx context.Context, email string) (*users.User, error)
	FindAccountByID(ctx context.Context, id string) (*users.User, error)
	FindAccountBySessionToken(ctx context.Context, token string) (*users.User, error)
	LoadTenantConfig(ctx context.Context, account *users.User) (*tenants.Tenant, error)
}

// IsNotFound reports whether err means the record is absent rather than the
// store being unavailable.
func IsNotFound(err error) bool {
	return apperrors.NotFound(err)
}

var _ Gateway = (*RepoGateway)(nil)

// RepoGateway implements Gateway over the user and tenant repositories.
type RepoGateway struct {
	users   users.UserRepo
	tenants tenants.Repo
}

func NewRepoGateway(userRepo users.UserRepo, tenantRepo tenants.Repo) (*RepoGateway, error) {
	if userRepo == nil {
		return nil, errors.New("[NewRepoGateway] users repo is required")
	}
	if tenantRepo == nil {
		return nil, errors.New("[NewRepoGateway] tenants repo is required")
	}
	return &RepoGateway{users: userRepo, tenants: tenantRepo}, nil
}

func (g *RepoGateway) FindAccountByEmail(ctx context.Context, email string) (*users.User, error) {
	u, err := g.users.GetByEmail(ctx, users.NormalizeEmail(email))
	if err != nil {
		return nil, errors.Wrap(err, "[RepoGateway.FindAccountByEmail]")
	}
	return u, nil
}

func (g *RepoGateway) FindAccountByID(ctx context.Context, id string) (*users.User, error) {
	if id == "" {
		return nil, errors.Wrap(ErrNotFound, "[RepoGateway.FindAccountByID] empty id")
	}
	u, err := g.users.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "[RepoGateway.FindAccountByID]")
	}
	return u, nil
}

// FindAccountBySessionToken resolves an integration API token to the first
// administrator of the tenant owning it. Tenants with the API disabled never
// match.
func (g *RepoGateway) FindAccountBySessionToken(ctx context.Context, token string) (*users.User, error) {
	if token == "" {
		return nil, errors.Wrap(ErrNotFound, "[RepoGateway.FindAccountBySessionToken] empty token")
	}
	t, err := g.tenants.GetByAPIToken(ctx, token)
	if err != nil {
		return nil, errors.Wrap(err, "[RepoGateway.FindAccountBySessionToken] tenant")
	}
	if !t.Config.IntegrationAPI.Enabled {
		return nil, errors.Wrap(ErrNotFound, "[RepoGateway.FindAccountBySessionToken] integration api disabled")
	}
	admins, err := g.users.ListAdmins(ctx, t.ID)
	if err != nil {
		return nil, errors.Wrap(err, "[RepoGateway.FindAccountBySessionToken] admins")
	}
	if len(admins) == 0 {
		return nil, errors.Wrap(apperrors.ErrUserNotFound, "[RepoGateway.FindAccountBySessionToken] tenant has no administrator")
	}
	return admins[0], nil
}

func (g *RepoGateway) LoadTenantConfig(ctx context.Context, account *users.User) (*tenants.Tenant, error) {
	if account == nil || account.TenantID == "" {
		return nil, errors.Wrap(apperrors.ErrTenantNotFound, "[RepoGateway.LoadTenantConfig] account has no tenant")
	}
	t, err := g.tenants.Get(ctx, account.TenantID)
	if err != nil {
		return nil, errors.Wrap(err, "[RepoGateway.LoadTenantConfig]")
	}
	return t, nil
}
