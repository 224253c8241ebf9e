package sessions_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-session-auth/auth"
	apperrors "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/internal/metrics"
	"github.com/jrsteele09/go-session-auth/sessions"
	"github.com/jrsteele09/go-session-auth/store"
	"github.com/jrsteele09/go-session-auth/tenants"
	tenantrepofakes "github.com/jrsteele09/go-session-auth/tenants/repofakes"
	"github.com/jrsteele09/go-session-auth/users"
	fakeuserrepo "github.com/jrsteele09/go-session-auth/users/repofake"
)

const testTenantID = "tenant-1"

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type testFixture struct {
	userRepo *fakeuserrepo.FakeUserRepo
	gateway  store.Gateway
	registry *prometheus.Registry
	logs     *bytes.Buffer
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	f := &testFixture{
		userRepo: fakeuserrepo.NewFakeUserRepo(),
		registry: prometheus.NewRegistry(),
		logs:     &bytes.Buffer{},
	}
	tenantRepo := tenantrepofakes.NewFakeTenantRepo()
	require.NoError(t, tenantRepo.Upsert(context.Background(), &tenants.Tenant{ID: testTenantID, Name: "Tenant"}))

	gateway, err := store.NewRepoGateway(f.userRepo, tenantRepo)
	require.NoError(t, err)
	f.gateway = gateway
	return f
}

// newManager builds a manager with the repository activator and login
// recorder; opts override them.
func (f *testFixture) newManager(t *testing.T, opts ...sessions.ManagerOption) *sessions.Manager {
	t.Helper()
	options := []sessions.ManagerOption{
		sessions.WithActivator(sessions.RepoActivator(f.userRepo)),
		sessions.WithLoginRecorder(f.userRepo),
		sessions.WithMetrics(metrics.New(f.registry)),
		sessions.WithLogger(zerolog.New(f.logs)),
		sessions.WithNowTime(func() time.Time { return fixedNow }),
	}
	m, err := sessions.NewManager(f.gateway, append(options, opts...)...)
	require.NoError(t, err)
	return m
}

func (f *testFixture) addUser(t *testing.T, u users.User) *users.User {
	t.Helper()
	require.NoError(t, f.userRepo.Upsert(context.Background(), &u))
	return &u
}

type failingGateway struct{ store.Gateway }

func (failingGateway) FindAccountByID(context.Context, string) (*users.User, error) {
	return nil, errors.New("connection reset")
}

type failingRecorder struct{}

func (failingRecorder) SetLastLogin(context.Context, string, time.Time) error {
	return errors.New("read only")
}

func TestNewManager_RequiresGateway(t *testing.T) {
	_, err := sessions.NewManager(nil)
	require.Error(t, err)
}

func TestEstablish_ReturnsIDAndRecordsLogin(t *testing.T) {
	f := setupTestFixture(t)
	m := f.newManager(t)
	ctx := context.Background()
	u := f.addUser(t, users.User{Email: "john@example.com", TenantID: testTenantID, Active: true})

	ref, established, err := m.Establish(ctx, u)
	require.NoError(t, err)
	require.Equal(t, sessions.Reference(u.ID), ref)
	require.Equal(t, fixedNow, established.LastLogin)

	stored, err := f.userRepo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, fixedNow, stored.LastLogin)
}

func TestEstablish_ActivatesInactiveAdminOnce(t *testing.T) {
	f := setupTestFixture(t)
	calls := 0
	activator := sessions.ActivatorFunc(func(ctx context.Context, account *users.User) (*users.User, error) {
		calls++
		return sessions.RepoActivator(f.userRepo).MaybeActivate(ctx, account)
	})
	m := f.newManager(t, sessions.WithActivator(activator))
	ctx := context.Background()
	admin := f.addUser(t, users.User{Email: "admin@example.com", TenantID: testTenantID, Admin: true})

	_, established, err := m.Establish(ctx, admin)
	require.NoError(t, err)
	require.True(t, established.Active)
	stored, err := f.userRepo.GetByID(ctx, admin.ID)
	require.NoError(t, err)
	require.True(t, stored.Active)

	_, _, err = m.Establish(ctx, stored)
	require.NoError(t, err)
	require.Equal(t, 1, calls)
}

func TestEstablish_RevokedAdminStaysInactive(t *testing.T) {
	f := setupTestFixture(t)
	calls := 0
	activator := sessions.ActivatorFunc(func(ctx context.Context, account *users.User) (*users.User, error) {
		calls++
		return sessions.RepoActivator(f.userRepo).MaybeActivate(ctx, account)
	})
	m := f.newManager(t, sessions.WithActivator(activator))
	ctx := context.Background()
	admin := f.addUser(t, users.User{
		Email: "admin@example.com", TenantID: testTenantID, Admin: true,
		LastLogin: fixedNow.Add(-24 * time.Hour),
	})

	ref, established, err := m.Establish(ctx, admin)
	require.NoError(t, err)
	require.Equal(t, 0, calls)
	require.False(t, established.Active)

	stored, err := f.userRepo.GetByID(ctx, admin.ID)
	require.NoError(t, err)
	require.False(t, stored.Active)

	// Losing the administrator role ends the session.
	stored.Admin = false
	require.NoError(t, f.userRepo.Upsert(ctx, stored))
	outcome := m.Restore(ctx, ref)
	require.True(t, outcome.IsRejected())
	require.Equal(t, auth.ReasonAccountNotActive, outcome.Reason)
}

func TestRepoActivator_SkipsReturningAccounts(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	returning := f.addUser(t, users.User{Email: "back@example.com", TenantID: testTenantID, LastLogin: fixedNow})

	got, err := sessions.RepoActivator(f.userRepo).MaybeActivate(ctx, returning)
	require.NoError(t, err)
	require.False(t, got.Active)

	stored, err := f.userRepo.GetByID(ctx, returning.ID)
	require.NoError(t, err)
	require.False(t, stored.Active)
}

func TestEstablish_ActivationFailureAborts(t *testing.T) {
	f := setupTestFixture(t)
	m := f.newManager(t, sessions.WithActivator(sessions.ActivatorFunc(
		func(context.Context, *users.User) (*users.User, error) { return nil, errors.New("write failed") })))
	admin := f.addUser(t, users.User{Email: "admin@example.com", TenantID: testTenantID, Admin: true})

	ref, _, err := m.Establish(context.Background(), admin)
	require.Error(t, err)
	require.Empty(t, ref)
}

func TestEstablish_RefusesUnadmittableAccount(t *testing.T) {
	f := setupTestFixture(t)
	m := f.newManager(t)

	_, _, err := m.Establish(context.Background(), nil)
	require.True(t, errors.Is(err, apperrors.ErrSessionInvalid))

	inactive := f.addUser(t, users.User{Email: "sleepy@example.com", TenantID: testTenantID})
	_, _, err = m.Establish(context.Background(), inactive)
	require.True(t, errors.Is(err, apperrors.ErrSessionInvalid))
}

func TestEstablish_LastLoginFailureIsNotFatal(t *testing.T) {
	f := setupTestFixture(t)
	m := f.newManager(t, sessions.WithLoginRecorder(failingRecorder{}))
	u := f.addUser(t, users.User{Email: "john@example.com", TenantID: testTenantID, Active: true})

	ref, _, err := m.Establish(context.Background(), u)
	require.NoError(t, err)
	require.Equal(t, sessions.Reference(u.ID), ref)
	require.Contains(t, f.logs.String(), "failed to record last login")
}

func TestRestore_ReadsCurrentState(t *testing.T) {
	f := setupTestFixture(t)
	m := f.newManager(t)
	ctx := context.Background()
	u := f.addUser(t, users.User{Email: "john@example.com", TenantID: testTenantID, Active: true})

	ref, _, err := m.Establish(ctx, u)
	require.NoError(t, err)

	outcome := m.Restore(ctx, ref)
	require.True(t, outcome.IsAdmitted())
	require.Equal(t, u.ID, outcome.Account.ID)

	// Deactivation between requests takes effect on the next restore.
	require.NoError(t, f.userRepo.SetActive(ctx, u.ID, false))
	outcome = m.Restore(ctx, ref)
	require.True(t, outcome.IsRejected())
	require.Equal(t, auth.ReasonAccountNotActive, outcome.Reason)
}

func TestRestore_AdminOverride(t *testing.T) {
	f := setupTestFixture(t)
	m := f.newManager(t)
	ctx := context.Background()
	admin := f.addUser(t, users.User{Email: "admin@example.com", TenantID: testTenantID, Admin: true, Active: true})

	require.NoError(t, f.userRepo.SetActive(ctx, admin.ID, false))
	outcome := m.Restore(ctx, sessions.Reference(admin.ID))
	require.True(t, outcome.IsAdmitted())
	require.False(t, outcome.Account.Active)
	require.True(t, outcome.Account.Admin)
}

func TestRestore_InvalidReferences(t *testing.T) {
	f := setupTestFixture(t)
	m := f.newManager(t)

	for _, ref := range []sessions.Reference{"", "deleted-user"} {
		outcome := m.Restore(context.Background(), ref)
		require.True(t, outcome.IsRejected())
		require.Equal(t, auth.ReasonSessionInvalid, outcome.Reason)
	}

	expected := `
# HELP session_restores_total Session restores by status.
# TYPE session_restores_total counter
session_restores_total{reason="session_invalid",status="rejected"} 2
`
	require.NoError(t, testutil.GatherAndCompare(f.registry, strings.NewReader(expected), "session_restores_total"))
}

func TestRestore_StoreFailure(t *testing.T) {
	f := setupTestFixture(t)
	m, err := sessions.NewManager(failingGateway{Gateway: f.gateway}, sessions.WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	outcome := m.Restore(context.Background(), "some-id")
	require.True(t, outcome.IsError())
	require.Equal(t, auth.CauseStoreFailure, outcome.Cause)
	require.True(t, outcome.Retryable())
}
