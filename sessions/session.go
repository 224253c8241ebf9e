// Package sessions turns an admitted account into a durable session reference
// and rebuilds the principal from that reference on later requests.
package sessions

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-session-auth/auth"
	apperrors "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/internal/metrics"
	"github.com/jrsteele09/go-session-auth/store"
	"github.com/jrsteele09/go-session-auth/users"
)

// Reference is the only state persisted for a session: the account ID.
// Role and activation flags are re-read on every restore.
type Reference string

// Activator performs the first-login activation of an account. It returns the
// account as it is after activation.
type Activator interface {
	MaybeActivate(ctx context.Context, account *users.User) (*users.User, error)
}

// ActivatorFunc adapts a function to Activator.
type ActivatorFunc func(ctx context.Context, account *users.User) (*users.User, error)

func (f ActivatorFunc) MaybeActivate(ctx context.Context, account *users.User) (*users.User, error) {
	return f(ctx, account)
}

// LoginRecorder stores the time of the last established session.
type LoginRecorder interface {
	SetLastLogin(ctx context.Context, id string, at time.Time) error
}

type Manager struct {
	store     store.Gateway
	activator Activator
	logins    LoginRecorder
	logger    zerolog.Logger
	metrics   *metrics.Metrics
	nowTime   func() time.Time
}

type ManagerOption func(*Manager)

func WithActivator(a Activator) ManagerOption {
	return func(m *Manager) {
		m.activator = a
	}
}

func WithLoginRecorder(r LoginRecorder) ManagerOption {
	return func(m *Manager) {
		m.logins = r
	}
}

func WithLogger(logger zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

func WithMetrics(mt *metrics.Metrics) ManagerOption {
	return func(m *Manager) {
		m.metrics = mt
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowTime = nowFunc
	}
}

func NewManager(gateway store.Gateway, options ...ManagerOption) (*Manager, error) {
	if gateway == nil {
		return nil, errors.New("[sessions.NewManager] store gateway is required")
	}
	m := &Manager{
		store:   gateway,
		logger:  log.Logger,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(m)
	}
	return m, nil
}

// Establish finalizes the principal for an admitted account and returns the
// reference the web layer should transport, together with the account as it
// is after any activation. An inactive account (only an administrator can get
// here) that has never logged in is handed to the Activator first, and
// Establish waits for it. An account whose activation was revoked after an
// earlier login stays inactive.
func (m *Manager) Establish(ctx context.Context, account *users.User) (Reference, *users.User, error) {
	if account == nil || account.ID == "" {
		return "", nil, errors.Wrap(apperrors.ErrSessionInvalid, "[Manager.Establish] no account")
	}
	if outcome := auth.Admit(account); !outcome.IsAdmitted() {
		return "", nil, errors.Wrapf(apperrors.ErrSessionInvalid, "[Manager.Establish] %s", outcome)
	}

	if firstAdmission(account) && m.activator != nil {
		activated, err := m.activator.MaybeActivate(ctx, account)
		if err != nil {
			return "", nil, errors.Wrap(err, "[Manager.Establish] activation")
		}
		if activated != nil {
			account = activated
		}
	}

	now := m.nowTime()
	if m.logins != nil {
		if err := m.logins.SetLastLogin(ctx, account.ID, now); err != nil {
			m.logger.Warn().Err(err).Str("account_id", account.ID).Msg("failed to record last login")
		}
	}
	finalized := *account
	finalized.LastLogin = now

	return Reference(account.ID), &finalized, nil
}

// firstAdmission reports whether the account is inactive and has never
// established a session.
func firstAdmission(account *users.User) bool {
	return !account.Active && account.LastLogin.IsZero()
}

// Restore reloads the account behind a reference and re-applies the
// admission policy to its current state.
func (m *Manager) Restore(ctx context.Context, ref Reference) auth.Outcome {
	outcome := m.restore(ctx, ref)
	m.metrics.ObserveRestore(outcome.Status.String(), outcome.Label())

	switch outcome.Status {
	case auth.StatusRejected:
		m.logger.Warn().Str("account_id", string(ref)).Str("reason", string(outcome.Reason)).Msg("session restore rejected")
	case auth.StatusError:
		m.logger.Error().Err(outcome.Err).Str("account_id", string(ref)).Str("cause", string(outcome.Cause)).Msg("session restore failed")
	}
	return outcome
}

func (m *Manager) restore(ctx context.Context, ref Reference) auth.Outcome {
	if ref == "" {
		return auth.Rejected(auth.ReasonSessionInvalid)
	}
	account, err := m.store.FindAccountByID(ctx, string(ref))
	if err != nil {
		if store.IsNotFound(err) {
			return auth.Rejected(auth.ReasonSessionInvalid)
		}
		return auth.Failed(auth.CauseStoreFailure, err)
	}
	return auth.Admit(account)
}

// RepoActivator activates accounts through the user repository. Accounts that
// are active or have logged in before are returned unchanged.
func RepoActivator(repo users.UserRepo) Activator {
	return ActivatorFunc(func(ctx context.Context, account *users.User) (*users.User, error) {
		if !firstAdmission(account) {
			return account, nil
		}
		if err := repo.SetActive(ctx, account.ID, true); err != nil {
			return nil, err
		}
		activated := *account
		activated.Active = true
		return &activated, nil
	})
}
