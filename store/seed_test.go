package store_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/store"
	tenantrepofakes "github.com/jrsteele09/go-session-auth/tenants/repofakes"
	fakeuserrepo "github.com/jrsteele09/go-session-auth/users/repofake"
)

const seedYAML = `
tenants:
  - id: acme
    name: Acme
    config:
      integration_api:
        enabled: true
        token: acme-token
  - id: corp
    name: Corp
    config:
      directory:
        enabled: true
        host: ldaps://ldap.corp.example:636
        bind_template: "uid={{email}},ou=people,dc=corp,dc=example"
accounts:
  - id: u1
    email: Jane@Acme.com
    password: Secret123
    tenant_id: acme
    active: true
    admin: true
  - id: u2
    email: sso@corp.example
    tenant_id: corp
`

func TestParseSeed(t *testing.T) {
	seed, err := store.ParseSeed([]byte(seedYAML))
	require.NoError(t, err)
	require.Len(t, seed.Tenants, 2)
	require.Len(t, seed.Accounts, 2)
	require.Equal(t, "acme-token", seed.Tenants[0].Config.IntegrationAPI.Token)
	require.Equal(t, "uid={{email}},ou=people,dc=corp,dc=example", seed.Tenants[1].Config.Directory.BindTemplate)
}

func TestParseSeed_Invalid(t *testing.T) {
	testCases := []struct {
		name string
		data string
	}{
		{name: "malformed yaml", data: "tenants: [:"},
		{name: "directory without host", data: `
tenants:
  - id: bad
    config:
      directory:
        enabled: true
        bind_template: "uid={{email}}"
`},
		{name: "api without token", data: `
tenants:
  - id: bad
    config:
      integration_api:
        enabled: true
`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := store.ParseSeed([]byte(tc.data))
			require.Error(t, err)
		})
	}
}

func TestSeedApply(t *testing.T) {
	ctx := context.Background()
	seed, err := store.ParseSeed([]byte(seedYAML))
	require.NoError(t, err)

	userRepo := fakeuserrepo.NewFakeUserRepo()
	tenantRepo := tenantrepofakes.NewFakeTenantRepo()
	require.NoError(t, seed.Apply(ctx, userRepo, tenantRepo))

	jane, err := userRepo.GetByEmail(ctx, "jane@acme.com")
	require.NoError(t, err)
	require.True(t, jane.Admin)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(jane.PasswordHash), []byte("Secret123")))

	sso, err := userRepo.GetByID(ctx, "u2")
	require.NoError(t, err)
	require.False(t, sso.HasPassword())
	require.False(t, sso.Active)

	corp, err := tenantRepo.Get(ctx, "corp")
	require.NoError(t, err)
	require.True(t, corp.Config.Directory.Enabled)
}

func TestLoadSeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tenants.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seedYAML), 0o600))

	seed, err := store.LoadSeedFile(path)
	require.NoError(t, err)
	require.Len(t, seed.Tenants, 2)

	_, err = store.LoadSeedFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
	require.False(t, apperrors.NotFound(err))
}
