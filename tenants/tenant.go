package tenants

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	apperrors "github.com/jrsteele09/go-session-auth/internal/errors"
)

const azureIssuerFormat = "https://login.microsoftonline.com/%s/v2.0"

// Tenant represents an organization whose configuration decides how its
// accounts authenticate.
type Tenant struct {
	ID     string `json:"id" yaml:"id"`
	Name   string `json:"name" yaml:"name"`
	Config Config `json:"config" yaml:"config"`
}

// Config is the per-tenant security policy.
type Config struct {
	Directory             DirectoryConfig      `json:"directory" yaml:"directory"`
	Federated             FederatedConfig      `json:"federated" yaml:"federated"`
	IntegrationAPI        IntegrationAPIConfig `json:"integration_api" yaml:"integration_api"`
	PasswordLoginDisabled bool                 `json:"password_login_disabled" yaml:"password_login_disabled"`
}

// DirectoryConfig holds the LDAP settings used to delegate password checks.
//
// Two bind modes are supported. With BindTemplate set, the user's DN is the
// template with {{email}} replaced. Otherwise the verifier binds with
// BindDN/BindPassword, runs SearchFilter under SearchBase and binds as the
// single entry found.
type DirectoryConfig struct {
	Enabled            bool   `json:"enabled" yaml:"enabled"`
	Host               string `json:"host" yaml:"host"` // ldap://host:389 or ldaps://host:636
	BindTemplate       string `json:"bind_template,omitempty" yaml:"bind_template"`
	BindDN             string `json:"bind_dn,omitempty" yaml:"bind_dn"`
	BindPassword       string `json:"bind_password,omitempty" yaml:"bind_password"`
	SearchBase         string `json:"search_base,omitempty" yaml:"search_base"`
	SearchFilter       string `json:"search_filter,omitempty" yaml:"search_filter"` // defaults to (mail={{email}})
	StartTLS           bool   `json:"start_tls,omitempty" yaml:"start_tls"`
	InsecureSkipVerify bool   `json:"insecure_skip_verify,omitempty" yaml:"insecure_skip_verify"`
}

// FederatedConfig holds the OpenID Connect client registration of the tenant.
type FederatedConfig struct {
	Enabled      bool   `json:"enabled" yaml:"enabled"`
	ClientID     string `json:"client_id,omitempty" yaml:"client_id"`
	ClientSecret string `json:"client_secret,omitempty" yaml:"client_secret"`
	Issuer       string `json:"issuer,omitempty" yaml:"issuer"` // issuer URL or bare Azure AD tenant id
	CallbackURL  string `json:"callback_url,omitempty" yaml:"callback_url"`
}

// IntegrationAPIConfig enables bearer-token access for machine callers.
type IntegrationAPIConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Token   string `json:"token,omitempty" yaml:"token"`
}

// NewIntegrationToken returns a fresh opaque API token.
func NewIntegrationToken() string {
	return uuid.New().String()
}

// IssuerURL resolves the OpenID issuer. A value without a scheme is treated
// as an Azure AD tenant identifier.
func (f FederatedConfig) IssuerURL() string {
	if strings.Contains(f.Issuer, "://") {
		return strings.TrimSuffix(f.Issuer, "/")
	}
	return fmt.Sprintf(azureIssuerFormat, f.Issuer)
}

// Configured reports whether enough is present to register an OIDC client.
func (f FederatedConfig) Configured() bool {
	return f.ClientID != "" && f.ClientSecret != "" && f.Issuer != ""
}

// Validate checks the combination of enabled features.
func (c Config) Validate() error {
	if c.Federated.Enabled {
		if strings.TrimSpace(c.Federated.ClientID) == "" {
			return errors.Wrap(apperrors.ErrInvalidConfig, "client id cannot be empty when federated login is enabled")
		}
		if strings.TrimSpace(c.Federated.Issuer) == "" {
			return errors.Wrap(apperrors.ErrInvalidConfig, "issuer cannot be empty when federated login is enabled")
		}
	}
	if c.Directory.Enabled {
		if strings.TrimSpace(c.Directory.Host) == "" {
			return errors.Wrap(apperrors.ErrInvalidConfig, "directory host cannot be empty when directory delegation is enabled")
		}
		if c.Directory.BindTemplate == "" && c.Directory.SearchBase == "" {
			return errors.Wrap(apperrors.ErrInvalidConfig, "directory needs a bind template or a search base")
		}
	}
	if c.IntegrationAPI.Enabled && c.IntegrationAPI.Token == "" {
		return errors.Wrap(apperrors.ErrInvalidConfig, "integration api token cannot be empty when the api is enabled")
	}
	return nil
}

// Merge applies an update coming from a settings form. Secrets left empty in
// the update keep their stored value, since they are never sent back out.
func (c Config) Merge(update Config) Config {
	merged := update
	if merged.Federated.ClientSecret == "" {
		merged.Federated.ClientSecret = c.Federated.ClientSecret
	}
	if merged.Directory.BindPassword == "" {
		merged.Directory.BindPassword = c.Directory.BindPassword
	}
	if merged.IntegrationAPI.Token == "" {
		merged.IntegrationAPI.Token = c.IntegrationAPI.Token
	}
	return merged
}
