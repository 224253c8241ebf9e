// Package pgstore persists accounts and tenants in PostgreSQL. Open the
// *sql.DB with the pgx stdlib driver ("pgx").
package pgstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	apperrors "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/tenants"
	"github.com/jrsteele09/go-session-auth/users"
)

var (
	_ users.UserRepo = (*UserRepo)(nil)
	_ tenants.Repo   = (*TenantRepo)(nil)
)

// Open returns both repositories sharing one pool.
func Open(db *sql.DB) (*UserRepo, *TenantRepo) {
	return &UserRepo{db: db}, &TenantRepo{db: db}
}

// User store ---------------------------------------------------------------

type UserRepo struct{ db *sql.DB }

const userColumns = `id, email, password, name, lastname, company_id, activated, admin, created_at, last_login`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*users.User, error) {
	var (
		u         users.User
		password  sql.NullString
		lastLogin sql.NullTime
	)
	if err := row.Scan(&u.ID, &u.Email, &password, &u.FirstName, &u.LastName, &u.TenantID, &u.Active, &u.Admin, &u.CreatedAt, &lastLogin); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, err
	}
	u.PasswordHash = password.String
	if lastLogin.Valid {
		u.LastLogin = lastLogin.Time
	}
	return &u, nil
}

func (s *UserRepo) Upsert(ctx context.Context, u *users.User) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	u.Email = users.NormalizeEmail(u.Email)
	password := sql.NullString{String: u.PasswordHash, Valid: u.PasswordHash != ""}
	_, err := s.db.ExecContext(ctx,
		`insert into users(id, email, password, name, lastname, company_id, activated, admin, created_at)
		 values($1,$2,$3,$4,$5,$6,$7,$8,$9)
		 on conflict (id) do update set email=$2, password=$3, name=$4, lastname=$5, company_id=$6, activated=$7, admin=$8`,
		u.ID, u.Email, password, u.FirstName, u.LastName, u.TenantID, u.Active, u.Admin, u.CreatedAt,
	)
	return errors.Wrap(err, "[pgstore.UserRepo.Upsert]")
}

func (s *UserRepo) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	row := s.db.QueryRowContext(ctx, `select `+userColumns+` from users where lower(email)=$1`, users.NormalizeEmail(email))
	return scanUser(row)
}

func (s *UserRepo) GetByID(ctx context.Context, id string) (*users.User, error) {
	row := s.db.QueryRowContext(ctx, `select `+userColumns+` from users where id=$1`, id)
	return scanUser(row)
}

func (s *UserRepo) ListAdmins(ctx context.Context, tenantID string) ([]*users.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+userColumns+` from users where company_id=$1 and admin=true order by id asc`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*users.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, rows.Err()
}

func (s *UserRepo) SetActive(ctx context.Context, id string, active bool) error {
	return s.exec1(ctx, `update users set activated=$2 where id=$1`, id, active)
}

func (s *UserRepo) SetLastLogin(ctx context.Context, id string, at time.Time) error {
	return s.exec1(ctx, `update users set last_login=$2 where id=$1`, id, at)
}

func (s *UserRepo) exec1(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

// Tenant store -------------------------------------------------------------

type TenantRepo struct{ db *sql.DB }

const tenantColumns = `id, name, ldap_auth_enabled, ldap_auth_config, oauth_auth_enabled, oauth_auth_config,
	integration_api_enabled, integration_api_token, password_login_disabled`

func scanTenant(row rowScanner) (*tenants.Tenant, error) {
	var (
		t          tenants.Tenant
		ldapConfig []byte
		oauth      []byte
		apiToken   sql.NullString
	)
	c := &t.Config
	if err := row.Scan(&t.ID, &t.Name,
		&c.Directory.Enabled, &ldapConfig,
		&c.Federated.Enabled, &oauth,
		&c.IntegrationAPI.Enabled, &apiToken,
		&c.PasswordLoginDisabled,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrTenantNotFound
		}
		return nil, err
	}
	// The enabled flags live in their own columns and win over the JSON.
	dirEnabled, fedEnabled := c.Directory.Enabled, c.Federated.Enabled
	if len(ldapConfig) > 0 {
		if err := json.Unmarshal(ldapConfig, &c.Directory); err != nil {
			return nil, errors.Wrapf(err, "tenant %s: ldap config", t.ID)
		}
	}
	if len(oauth) > 0 {
		if err := json.Unmarshal(oauth, &c.Federated); err != nil {
			return nil, errors.Wrapf(err, "tenant %s: oauth config", t.ID)
		}
	}
	c.Directory.Enabled, c.Federated.Enabled = dirEnabled, fedEnabled
	c.IntegrationAPI.Token = apiToken.String
	return &t, nil
}

func (s *TenantRepo) Upsert(ctx context.Context, t *tenants.Tenant) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	ldapConfig, err := json.Marshal(t.Config.Directory)
	if err != nil {
		return errors.Wrap(err, "[pgstore.TenantRepo.Upsert] ldap config")
	}
	oauth, err := json.Marshal(t.Config.Federated)
	if err != nil {
		return errors.Wrap(err, "[pgstore.TenantRepo.Upsert] oauth config")
	}
	c := t.Config
	_, err = s.db.ExecContext(ctx,
		`insert into companies(id, name, ldap_auth_enabled, ldap_auth_config, oauth_auth_enabled, oauth_auth_config,
			integration_api_enabled, integration_api_token, password_login_disabled)
		 values($1,$2,$3,$4,$5,$6,$7,$8,$9)
		 on conflict (id) do update set name=$2, ldap_auth_enabled=$3, ldap_auth_config=$4, oauth_auth_enabled=$5,
			oauth_auth_config=$6, integration_api_enabled=$7, integration_api_token=$8, password_login_disabled=$9`,
		t.ID, t.Name, c.Directory.Enabled, ldapConfig, c.Federated.Enabled, oauth,
		c.IntegrationAPI.Enabled, sql.NullString{String: c.IntegrationAPI.Token, Valid: c.IntegrationAPI.Token != ""},
		c.PasswordLoginDisabled,
	)
	return errors.Wrap(err, "[pgstore.TenantRepo.Upsert]")
}

func (s *TenantRepo) Get(ctx context.Context, tenantID string) (*tenants.Tenant, error) {
	row := s.db.QueryRowContext(ctx, `select `+tenantColumns+` from companies where id=$1`, tenantID)
	return scanTenant(row)
}

func (s *TenantRepo) GetByAPIToken(ctx context.Context, token string) (*tenants.Tenant, error) {
	if token == "" {
		return nil, apperrors.ErrTenantNotFound
	}
	row := s.db.QueryRowContext(ctx, `select `+tenantColumns+` from companies where integration_api_token=$1`, token)
	return scanTenant(row)
}

func (s *TenantRepo) List(ctx context.Context) ([]*tenants.Tenant, error) {
	rows, err := s.db.QueryContext(ctx, `select `+tenantColumns+` from companies order by id asc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*tenants.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}
