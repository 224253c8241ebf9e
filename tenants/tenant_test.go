package tenants_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/tenants"
)

func TestIssuerURL(t *testing.T) {
	testCases := []struct {
		issuer   string
		expected string
	}{
		{issuer: "72f988bf-86f1-41af-91ab-2d7cd011db47", expected: "https://login.microsoftonline.com/72f988bf-86f1-41af-91ab-2d7cd011db47/v2.0"},
		{issuer: "https://accounts.google.com", expected: "https://accounts.google.com"},
		{issuer: "https://idp.example.com/realms/acme/", expected: "https://idp.example.com/realms/acme"},
	}
	for _, tc := range testCases {
		t.Run(tc.issuer, func(t *testing.T) {
			require.Equal(t, tc.expected, tenants.FederatedConfig{Issuer: tc.issuer}.IssuerURL())
		})
	}
}

func TestConfigured(t *testing.T) {
	require.True(t, tenants.FederatedConfig{ClientID: "id", ClientSecret: "s", Issuer: "i"}.Configured())
	require.False(t, tenants.FederatedConfig{ClientID: "id", Issuer: "i"}.Configured())
	require.False(t, tenants.FederatedConfig{}.Configured())
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name   string
		config tenants.Config
		valid  bool
	}{
		{name: "empty", config: tenants.Config{}, valid: true},
		{
			name: "federated complete",
			config: tenants.Config{Federated: tenants.FederatedConfig{
				Enabled: true, ClientID: "id", ClientSecret: "s", Issuer: "guid",
			}},
			valid: true,
		},
		{
			name:   "federated missing client id",
			config: tenants.Config{Federated: tenants.FederatedConfig{Enabled: true, Issuer: "guid"}},
		},
		{
			name:   "federated missing issuer",
			config: tenants.Config{Federated: tenants.FederatedConfig{Enabled: true, ClientID: "id"}},
		},
		{
			name:   "disabled federation is not checked",
			config: tenants.Config{Federated: tenants.FederatedConfig{Enabled: false}},
			valid:  true,
		},
		{
			name:   "directory missing host",
			config: tenants.Config{Directory: tenants.DirectoryConfig{Enabled: true, BindTemplate: "uid={{email}}"}},
		},
		{
			name:   "directory without bind mode",
			config: tenants.Config{Directory: tenants.DirectoryConfig{Enabled: true, Host: "ldap://x"}},
		},
		{
			name:   "directory search mode",
			config: tenants.Config{Directory: tenants.DirectoryConfig{Enabled: true, Host: "ldap://x", SearchBase: "dc=x"}},
			valid:  true,
		},
		{
			name:   "api without token",
			config: tenants.Config{IntegrationAPI: tenants.IntegrationAPIConfig{Enabled: true}},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.config.Validate()
			if tc.valid {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, apperrors.ErrInvalidConfig)
		})
	}
}

func TestMerge_KeepsStoredSecrets(t *testing.T) {
	stored := tenants.Config{
		Directory:      tenants.DirectoryConfig{Enabled: true, Host: "ldap://old", BindPassword: "bind-pw"},
		Federated:      tenants.FederatedConfig{ClientID: "old", ClientSecret: "client-secret"},
		IntegrationAPI: tenants.IntegrationAPIConfig{Enabled: true, Token: "api-token"},
	}

	merged := stored.Merge(tenants.Config{
		Directory: tenants.DirectoryConfig{Enabled: true, Host: "ldap://new"},
		Federated: tenants.FederatedConfig{ClientID: "new"},
	})
	require.Equal(t, "ldap://new", merged.Directory.Host)
	require.Equal(t, "bind-pw", merged.Directory.BindPassword)
	require.Equal(t, "new", merged.Federated.ClientID)
	require.Equal(t, "client-secret", merged.Federated.ClientSecret)
	require.Equal(t, "api-token", merged.IntegrationAPI.Token)
	require.False(t, merged.IntegrationAPI.Enabled)

	replaced := stored.Merge(tenants.Config{Federated: tenants.FederatedConfig{ClientSecret: "rotated"}})
	require.Equal(t, "rotated", replaced.Federated.ClientSecret)
}

func TestPublic_RedactsSecrets(t *testing.T) {
	tenant := &tenants.Tenant{ID: "acme", Name: "Acme", Config: tenants.Config{
		Directory:      tenants.DirectoryConfig{Enabled: true, Host: "ldap://x", BindPassword: "bind-pw"},
		Federated:      tenants.FederatedConfig{Enabled: true, ClientID: "cid", ClientSecret: "client-secret", Issuer: "guid"},
		IntegrationAPI: tenants.IntegrationAPIConfig{Enabled: true, Token: "api-token"},
	}}

	public := tenant.Public()
	require.True(t, public.Directory.BindPasswordSet)
	require.True(t, public.Federated.ClientSecretSet)
	require.True(t, public.IntegrationAPIEnabled)

	data, err := json.Marshal(public)
	require.NoError(t, err)
	for _, secret := range []string{"bind-pw", "client-secret", "api-token"} {
		require.NotContains(t, string(data), secret)
	}
	require.Contains(t, string(data), `"client_id":"cid"`)
}

func TestNewIntegrationToken(t *testing.T) {
	a, b := tenants.NewIntegrationToken(), tenants.NewIntegrationToken()
	require.NotEmpty(t, a)
	require.NotEqual(t, a, b)
}
