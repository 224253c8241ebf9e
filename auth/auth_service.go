package auth

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-session-auth/internal/metrics"
	"github.com/jrsteele09/go-session-auth/store"
	"github.com/jrsteele09/go-session-auth/tenants"
	"github.com/jrsteele09/go-session-auth/users"
)

const defaultDirectoryTimeout = 10 * time.Second

// Strategy names the verifier that produced an outcome.
type Strategy string

const (
	StrategyLocal     Strategy = "local"
	StrategyDirectory Strategy = "directory"
	StrategyFederated Strategy = "federated"
	StrategyBearer    Strategy = "bearer"
)

// DirectoryVerifier delegates a password check to the tenant's directory
// server. On success it returns Admitted with a nil account; the service
// attaches the account it already resolved.
type DirectoryVerifier interface {
	Verify(ctx context.Context, cfg tenants.DirectoryConfig, email, secret string) Outcome
}

// Strategies is the set of verification strategies this process offers.
// Per-tenant flags further narrow it.
type Strategies struct {
	Local            bool
	Directory        bool
	Federated        bool
	Bearer           bool
	DirectoryTimeout time.Duration // upper bound on one directory round trip
}

// DefaultStrategies enables everything with a 10 second directory timeout.
func DefaultStrategies() Strategies {
	return Strategies{
		Local:            true,
		Directory:        true,
		Federated:        true,
		Bearer:           true,
		DirectoryTimeout: defaultDirectoryTimeout,
	}
}

// Service resolves the verification strategy for a credential and passes the
// result through the admission policy. It holds no per-attempt state and is
// safe for concurrent use.
type Service struct {
	store      store.Gateway
	passwords  PasswordVerifier
	directory  DirectoryVerifier
	strategies Strategies
	logger     zerolog.Logger
	metrics    *metrics.Metrics
	nowTime    func() time.Time
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

func WithStrategies(strategies Strategies) ServiceOption {
	return func(s *Service) {
		s.strategies = strategies
	}
}

func WithDirectoryVerifier(v DirectoryVerifier) ServiceOption {
	return func(s *Service) {
		s.directory = v
	}
}

// WithPasswordVerifier replaces the local hash comparison.
func WithPasswordVerifier(v PasswordVerifier) ServiceOption {
	return func(s *Service) {
		s.passwords = v
	}
}

func WithLogger(logger zerolog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

// NewService builds the resolver. A directory verifier is required whenever
// the directory strategy is enabled.
func NewService(gateway store.Gateway, options ...ServiceOption) (*Service, error) {
	if gateway == nil {
		return nil, errors.New("[NewService] store gateway is required")
	}

	s := &Service{
		store:      gateway,
		passwords:  LocalVerifier{},
		strategies: DefaultStrategies(),
		logger:     log.Logger,
		nowTime:    time.Now,
	}
	for _, opt := range options {
		opt(s)
	}

	if s.strategies.Directory && s.directory == nil {
		return nil, errors.New("[NewService] directory strategy enabled without a directory verifier")
	}
	if s.passwords == nil {
		return nil, errors.New("[NewService] password verifier is required")
	}
	if s.strategies.DirectoryTimeout <= 0 {
		s.strategies.DirectoryTimeout = defaultDirectoryTimeout
	}
	return s, nil
}

// AuthenticateLocal verifies an email/password pair. When the account's
// tenant delegates to a directory, the directory is authoritative and the
// stored hash is never consulted.
func (s *Service) AuthenticateLocal(ctx context.Context, email, secret string) Outcome {
	email = users.NormalizeEmail(email)
	strategy, outcome := s.authenticatePassword(ctx, email, secret, false)
	return s.finish(strategy, email, outcome)
}

// AuthenticateDirectory verifies an email/password pair against the tenant's
// directory only. Tenants without directory delegation are rejected.
func (s *Service) AuthenticateDirectory(ctx context.Context, email, secret string) Outcome {
	email = users.NormalizeEmail(email)
	_, outcome := s.authenticatePassword(ctx, email, secret, true)
	return s.finish(StrategyDirectory, email, outcome)
}

// AuthenticateFederated admits the local account named by an assertion that
// an identity provider has already validated.
func (s *Service) AuthenticateFederated(ctx context.Context, assertion *Assertion) Outcome {
	email := users.NormalizeEmail(assertion.AssertedEmail())
	return s.finish(StrategyFederated, email, s.authenticateFederated(ctx, assertion, email))
}

// AuthenticateBearer resolves an integration API token to an administrator.
// The outcome is meant for a single request and is not cached.
func (s *Service) AuthenticateBearer(ctx context.Context, token string) Outcome {
	outcome := s.authenticateBearer(ctx, strings.TrimSpace(token))
	var email string
	if outcome.Account != nil {
		email = outcome.Account.Email
	}
	return s.finish(StrategyBearer, email, outcome)
}

func (s *Service) authenticatePassword(ctx context.Context, email, secret string, directoryOnly bool) (Strategy, Outcome) {
	strategy := StrategyLocal
	if directoryOnly {
		strategy = StrategyDirectory
	}

	account, tenant, failed := s.resolveAccount(ctx, email)
	if failed != nil {
		return strategy, *failed
	}

	if tenant.Config.Directory.Enabled {
		if !s.strategies.Directory {
			return StrategyDirectory, Rejected(ReasonStrategyDisabled)
		}
		return StrategyDirectory, s.verifyDirectory(ctx, tenant, account, secret)
	}
	if directoryOnly {
		return strategy, Rejected(ReasonDirectoryDisabled)
	}
	if !s.strategies.Local {
		return strategy, Rejected(ReasonStrategyDisabled)
	}
	if tenant.Config.PasswordLoginDisabled {
		return strategy, Rejected(ReasonPasswordLoginDisabled)
	}
	return strategy, s.verifyLocal(account, secret)
}

// resolveAccount loads the account and then its tenant. The tenant always
// comes from the account, never from the caller.
func (s *Service) resolveAccount(ctx context.Context, email string) (*users.User, *tenants.Tenant, *Outcome) {
	fail := func(o Outcome) (*users.User, *tenants.Tenant, *Outcome) { return nil, nil, &o }

	if email == "" {
		return fail(Rejected(ReasonUnknownAccount))
	}
	account, err := s.store.FindAccountByEmail(ctx, email)
	if err != nil {
		if store.IsNotFound(err) {
			return fail(Rejected(ReasonUnknownAccount))
		}
		return fail(Failed(CauseStoreFailure, err))
	}
	tenant, err := s.store.LoadTenantConfig(ctx, account)
	if err != nil {
		if store.IsNotFound(err) {
			return fail(Rejected(ReasonNoTenant))
		}
		return fail(Failed(CauseStoreFailure, err))
	}
	return account, tenant, nil
}

func (s *Service) verifyLocal(account *users.User, secret string) Outcome {
	if !account.HasPassword() {
		return Rejected(ReasonBadCredential)
	}
	ok, err := s.passwords.Verify(account, secret)
	if err != nil {
		return Failed(CauseCorruptCredential, err)
	}
	if !ok {
		return Rejected(ReasonBadCredential)
	}
	return Admitted(account)
}

func (s *Service) verifyDirectory(ctx context.Context, tenant *tenants.Tenant, account *users.User, secret string) Outcome {
	ctx, cancel := context.WithTimeout(ctx, s.strategies.DirectoryTimeout)
	defer cancel()

	start := s.nowTime()
	outcome := s.directory.Verify(ctx, tenant.Config.Directory, account.Email, secret)
	s.metrics.ObserveDirectoryBind(s.nowTime().Sub(start))

	if outcome.IsAdmitted() {
		return Admitted(account)
	}
	return outcome
}

func (s *Service) authenticateFederated(ctx context.Context, assertion *Assertion, email string) Outcome {
	if !s.strategies.Federated {
		return Rejected(ReasonStrategyDisabled)
	}
	if assertion == nil {
		return Failed(CauseNoAssertion, nil)
	}
	if email == "" {
		return Failed(CauseNoEmailInAssertion, nil)
	}

	account, tenant, failed := s.resolveAccount(ctx, email)
	if failed != nil {
		return *failed
	}
	if !tenant.Config.Federated.Enabled {
		return Rejected(ReasonFederationDisabled)
	}
	if assertion.TenantID != "" && assertion.TenantID != tenant.ID {
		return Rejected(ReasonTenantMismatch)
	}
	return Admitted(account)
}

func (s *Service) authenticateBearer(ctx context.Context, token string) Outcome {
	if !s.strategies.Bearer {
		return Rejected(ReasonStrategyDisabled)
	}
	if token == "" {
		return Rejected(ReasonInvalidToken)
	}
	account, err := s.store.FindAccountBySessionToken(ctx, token)
	if err != nil {
		if store.IsNotFound(err) {
			return Rejected(ReasonInvalidToken)
		}
		return Failed(CauseStoreFailure, err)
	}
	if !account.Admin {
		return Outcome{Status: StatusRejected, Reason: ReasonNotAdmin, Account: account}
	}
	return Admitted(account)
}

// finish is the single exit of every strategy: admitted candidates go through
// the admission policy, then the attempt is audited.
func (s *Service) finish(strategy Strategy, email string, outcome Outcome) Outcome {
	if outcome.IsAdmitted() {
		outcome = Admit(outcome.Account)
	}
	if outcome.IsRejected() {
		outcome.Account = nil
	}
	s.audit(strategy, email, outcome)
	s.metrics.ObserveAttempt(string(strategy), outcome.Status.String(), outcome.Label())
	return outcome
}

func (s *Service) audit(strategy Strategy, email string, outcome Outcome) {
	switch outcome.Status {
	case StatusAdmitted:
		s.logger.Info().
			Str("strategy", string(strategy)).
			Str("email", email).
			Str("account_id", outcome.Account.ID).
			Msg("authentication admitted")
	case StatusRejected:
		s.logger.Warn().
			Str("strategy", string(strategy)).
			Str("email", email).
			Str("reason", string(outcome.Reason)).
			Msg("authentication rejected")
	case StatusError:
		s.logger.Error().
			Err(outcome.Err).
			Str("strategy", string(strategy)).
			Str("email", email).
			Str("cause", string(outcome.Cause)).
			Msg("authentication error")
	}
}
