// Package federation runs the OpenID Connect side of federated login: it
// redirects to a tenant's identity provider and turns the callback into an
// auth.Assertion.
package federation

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/jrsteele09/go-session-auth/auth"
	"github.com/jrsteele09/go-session-auth/federation/flowrepo"
	apperrors "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/tenants"
)

// Client is the registered OIDC client of one tenant.
type Client struct {
	Provider *oidc.Provider
	OAuth2   *oauth2.Config
	Verifier *oidc.IDTokenVerifier
}

// ProviderFunc discovers an issuer. oidc.NewProvider is the default.
type ProviderFunc func(ctx context.Context, issuer string) (*oidc.Provider, error)

// Providers caches one Client per tenant and holds pending login flows.
type Providers struct {
	lock        sync.RWMutex
	clients     map[string]*Client
	flows       flowrepo.Repo
	newProvider ProviderFunc
	callbackURL string
	logger      zerolog.Logger
	nowTime     func() time.Time
}

type Option func(*Providers)

func WithProviderFunc(f ProviderFunc) Option {
	return func(p *Providers) {
		p.newProvider = f
	}
}

// WithCallbackURL sets the redirect URL used when a tenant has none of its own.
func WithCallbackURL(url string) Option {
	return func(p *Providers) {
		p.callbackURL = url
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(p *Providers) {
		p.logger = logger
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(p *Providers) {
		p.nowTime = nowFunc
	}
}

func NewProviders(flows flowrepo.Repo, options ...Option) (*Providers, error) {
	if flows == nil {
		return nil, errors.New("[federation.NewProviders] flow repo is required")
	}
	p := &Providers{
		clients:     make(map[string]*Client),
		flows:       flows,
		newProvider: oidc.NewProvider,
		logger:      log.Logger,
		nowTime:     time.Now,
	}
	for _, opt := range options {
		opt(p)
	}
	return p, nil
}

// Client returns the cached client for the tenant, discovering the issuer on
// first use.
func (p *Providers) Client(ctx context.Context, tenant *tenants.Tenant) (*Client, error) {
	if tenant == nil {
		return nil, errors.Wrap(apperrors.ErrTenantNotFound, "[Providers.Client]")
	}
	cfg := tenant.Config.Federated
	if !cfg.Enabled || !cfg.Configured() {
		return nil, errors.Wrapf(apperrors.ErrFederationNotConfigured, "[Providers.Client] tenant %s", tenant.ID)
	}

	p.lock.RLock()
	client, exists := p.clients[tenant.ID]
	p.lock.RUnlock()
	if exists {
		return client, nil
	}

	// The provider keeps its context for later JWKS refreshes, so it must
	// outlive the request that triggered discovery.
	provider, err := p.newProvider(context.WithoutCancel(ctx), cfg.IssuerURL())
	if err != nil {
		return nil, errors.Wrapf(err, "[Providers.Client] discover %s", cfg.IssuerURL())
	}

	redirectURL := cfg.CallbackURL
	if redirectURL == "" {
		redirectURL = p.callbackURL
	}
	client = &Client{
		Provider: provider,
		OAuth2: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     provider.Endpoint(),
			RedirectURL:  redirectURL,
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
		Verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
	}

	p.lock.Lock()
	p.clients[tenant.ID] = client
	p.lock.Unlock()

	p.logger.Info().Str("tenant_id", tenant.ID).Str("issuer", cfg.IssuerURL()).Msg("registered federated client")
	return client, nil
}

// CheckTenants logs a warning for every tenant with federated login enabled
// but an incomplete client registration, and returns their IDs. Logins for
// those tenants fail until the registration is completed.
func (p *Providers) CheckTenants(ctx context.Context, repo tenants.Repo) ([]string, error) {
	list, err := repo.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "[Providers.CheckTenants]")
	}
	var incomplete []string
	for _, t := range list {
		cfg := t.Config.Federated
		if !cfg.Enabled || cfg.Configured() {
			continue
		}
		p.logger.Warn().Str("tenant_id", t.ID).Msg("federated login enabled without client id, client secret and issuer")
		incomplete = append(incomplete, t.ID)
	}
	return incomplete, nil
}

// Forget drops the cached client so the next login rediscovers the issuer
// with the tenant's current settings.
func (p *Providers) Forget(tenantID string) {
	p.lock.Lock()
	defer p.lock.Unlock()
	delete(p.clients, tenantID)
}

// Begin stores a new flow and returns the provider URL to redirect to.
func (p *Providers) Begin(ctx context.Context, tenant *tenants.Tenant, returnURL string) (string, error) {
	client, err := p.Client(ctx, tenant)
	if err != nil {
		return "", err
	}

	state := uuid.NewString()
	flow := &flowrepo.FlowState{
		TenantID:     tenant.ID,
		CodeVerifier: oauth2.GenerateVerifier(),
		Nonce:        uuid.NewString(),
		ReturnURL:    returnURL,
		CreatedAt:    p.nowTime(),
	}
	if err := p.flows.Upsert(ctx, state, flow); err != nil {
		return "", errors.Wrap(err, "[Providers.Begin] store flow")
	}

	return client.OAuth2.AuthCodeURL(state,
		oidc.Nonce(flow.Nonce),
		oauth2.S256ChallengeOption(flow.CodeVerifier),
	), nil
}

// idClaims are the ID token claims an assertion is built from.
type idClaims struct {
	Nonce             string `json:"nonce"`
	Sub               string `json:"sub"`
	UPN               string `json:"upn"`
	Email             string `json:"email"`
	PreferredUsername string `json:"preferred_username"`
}

// Complete redeems the state, exchanges the code and verifies the ID token.
// The returned flow carries the return URL of the original request.
func (p *Providers) Complete(ctx context.Context, loadTenant func(ctx context.Context, id string) (*tenants.Tenant, error), state, code string) (*auth.Assertion, *flowrepo.FlowState, error) {
	if state == "" || code == "" {
		return nil, nil, errors.New("[Providers.Complete] missing code or state parameter")
	}
	flow, err := p.flows.Take(ctx, state)
	if err != nil {
		return nil, nil, errors.Wrap(err, "[Providers.Complete] invalid state")
	}
	tenant, err := loadTenant(ctx, flow.TenantID)
	if err != nil {
		return nil, nil, errors.Wrap(err, "[Providers.Complete] tenant")
	}
	client, err := p.Client(ctx, tenant)
	if err != nil {
		return nil, nil, err
	}

	token, err := client.OAuth2.Exchange(ctx, code, oauth2.VerifierOption(flow.CodeVerifier))
	if err != nil {
		return nil, nil, errors.Wrap(err, "[Providers.Complete] token exchange")
	}
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, nil, errors.New("[Providers.Complete] no id_token in response")
	}
	idToken, err := client.Verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, nil, errors.Wrap(err, "[Providers.Complete] id token verification")
	}

	var claims idClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, nil, errors.Wrap(err, "[Providers.Complete] claims")
	}
	if claims.Nonce != flow.Nonce {
		return nil, nil, errors.New("[Providers.Complete] nonce mismatch")
	}

	assertion := &auth.Assertion{
		TenantID: tenant.ID,
		Subject:  claims.Sub,
		UPN:      claims.UPN,
		Email:    claims.Email,
	}
	if strings.Contains(claims.PreferredUsername, "@") {
		assertion.Profile = &auth.Profile{Email: claims.PreferredUsername}
	}
	return assertion, flow, nil
}
