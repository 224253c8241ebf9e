package store

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/jrsteele09/go-session-auth/tenants"
	"github.com/jrsteele09/go-session-auth/users"
)

// Seed is the YAML document used to populate the in-memory repositories in
// development.
type Seed struct {
	Tenants  []*tenants.Tenant `yaml:"tenants"`
	Accounts []SeedAccount     `yaml:"accounts"`
}

// SeedAccount carries a plaintext password which is hashed on Apply. Leave it
// empty for federation-only accounts.
type SeedAccount struct {
	ID        string `yaml:"id"`
	Email     string `yaml:"email"`
	Password  string `yaml:"password"`
	FirstName string `yaml:"first_name"`
	LastName  string `yaml:"last_name"`
	TenantID  string `yaml:"tenant_id"`
	Active    bool   `yaml:"active"`
	Admin     bool   `yaml:"admin"`
}

// LoadSeedFile reads and parses a seed document.
func LoadSeedFile(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "[LoadSeedFile] read %s", path)
	}
	return ParseSeed(data)
}

func ParseSeed(data []byte) (*Seed, error) {
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, errors.Wrap(err, "[ParseSeed] yaml")
	}
	for _, t := range seed.Tenants {
		if err := t.Config.Validate(); err != nil {
			return nil, errors.Wrapf(err, "[ParseSeed] tenant %q", t.ID)
		}
	}
	return &seed, nil
}

// Apply writes the seed into the repositories.
func (s *Seed) Apply(ctx context.Context, userRepo users.UserRepo, tenantRepo tenants.Repo) error {
	for _, t := range s.Tenants {
		if err := tenantRepo.Upsert(ctx, t); err != nil {
			return errors.Wrapf(err, "[Seed.Apply] tenant %q", t.ID)
		}
	}
	for _, a := range s.Accounts {
		u := &users.User{
			ID:        a.ID,
			Email:     users.NormalizeEmail(a.Email),
			FirstName: a.FirstName,
			LastName:  a.LastName,
			TenantID:  a.TenantID,
			Active:    a.Active,
			Admin:     a.Admin,
		}
		if a.Password != "" {
			hash, err := users.HashPassword(a.Password)
			if err != nil {
				return errors.Wrapf(err, "[Seed.Apply] hash password for %s", u.Email)
			}
			u.PasswordHash = hash
		}
		if err := userRepo.Upsert(ctx, u); err != nil {
			return errors.Wrapf(err, "[Seed.Apply] account %s", u.Email)
		}
	}
	return nil
}
