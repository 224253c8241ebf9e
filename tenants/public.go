package tenants

// PublicConfig is the only shape of a tenant configuration that leaves the
// service. Secrets are replaced by flags telling whether one is stored.
type PublicConfig struct {
	TenantID              string                `json:"tenant_id"`
	Name                  string                `json:"name"`
	Directory             PublicDirectoryConfig `json:"directory"`
	Federated             PublicFederatedConfig `json:"federated"`
	IntegrationAPIEnabled bool                  `json:"integration_api_enabled"`
	PasswordLoginDisabled bool                  `json:"password_login_disabled"`
}

type PublicDirectoryConfig struct {
	Enabled         bool   `json:"enabled"`
	Host            string `json:"host,omitempty"`
	BindTemplate    string `json:"bind_template,omitempty"`
	BindDN          string `json:"bind_dn,omitempty"`
	BindPasswordSet bool   `json:"bind_password_set"`
	SearchBase      string `json:"search_base,omitempty"`
	SearchFilter    string `json:"search_filter,omitempty"`
	StartTLS        bool   `json:"start_tls,omitempty"`
}

type PublicFederatedConfig struct {
	Enabled         bool   `json:"enabled"`
	ClientID        string `json:"client_id,omitempty"`
	ClientSecretSet bool   `json:"client_secret_set"`
	Issuer          string `json:"issuer,omitempty"`
	CallbackURL     string `json:"callback_url,omitempty"`
}

// Public returns the redacted view of the tenant.
func (t *Tenant) Public() PublicConfig {
	c := t.Config
	return PublicConfig{
		TenantID: t.ID,
		Name:     t.Name,
		Directory: PublicDirectoryConfig{
			Enabled:         c.Directory.Enabled,
			Host:            c.Directory.Host,
			BindTemplate:    c.Directory.BindTemplate,
			BindDN:          c.Directory.BindDN,
			BindPasswordSet: c.Directory.BindPassword != "",
			SearchBase:      c.Directory.SearchBase,
			SearchFilter:    c.Directory.SearchFilter,
			StartTLS:        c.Directory.StartTLS,
		},
		Federated: PublicFederatedConfig{
			Enabled:         c.Federated.Enabled,
			ClientID:        c.Federated.ClientID,
			ClientSecretSet: c.Federated.ClientSecret != "",
			Issuer:          c.Federated.Issuer,
			CallbackURL:     c.Federated.CallbackURL,
		},
		IntegrationAPIEnabled: c.IntegrationAPI.Enabled,
		PasswordLoginDisabled: c.PasswordLoginDisabled,
	}
}
