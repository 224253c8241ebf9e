// Package directory verifies passwords by binding to a tenant's LDAP server.
//
// Every Verify call opens its own connection and releases it before
// returning, whatever the result. Nothing is pooled or retried.
package directory

import (
	"context"
	"crypto/tls"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-session-auth/auth"
	apperrors "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/tenants"
)

const defaultSearchFilter = "(mail={{email}})"

// Conn is the part of *ldap.Conn the verifier uses.
type Conn interface {
	Bind(username, password string) error
	Search(searchRequest *ldap.SearchRequest) (*ldap.SearchResult, error)
	Close() error
}

// DialFunc opens a connection honouring the context deadline.
type DialFunc func(ctx context.Context, cfg tenants.DirectoryConfig) (Conn, error)

var _ auth.DirectoryVerifier = (*Verifier)(nil)

type Verifier struct {
	dial   DialFunc
	logger zerolog.Logger
}

type Option func(*Verifier)

func WithDialer(dial DialFunc) Option {
	return func(v *Verifier) {
		v.dial = dial
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(v *Verifier) {
		v.logger = logger
	}
}

func New(options ...Option) *Verifier {
	v := &Verifier{
		dial:   DialLDAP,
		logger: log.Logger,
	}
	for _, opt := range options {
		opt(v)
	}
	return v
}

// Verify binds as the user identified by email. Reaching the context
// deadline yields directory_unreachable, as does any dial or protocol error;
// an LDAP invalid-credentials result yields bad_credential.
func (v *Verifier) Verify(ctx context.Context, cfg tenants.DirectoryConfig, email, secret string) auth.Outcome {
	logger := v.logger.With().Str("directory_host", cfg.Host).Str("email", email).Logger()

	// An empty password is an unauthenticated bind, which most servers accept.
	if secret == "" {
		logger.Warn().Msg("directory rejected credential: empty password")
		return auth.Rejected(auth.ReasonBadCredential)
	}
	if cfg.Host == "" {
		logger.Error().Msg("directory unreachable: no host configured")
		return auth.Failed(auth.CauseDirectoryUnreachable, apperrors.ErrDirectoryNotConfigured)
	}

	conn, err := v.dial(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("directory unreachable: dial failed")
		return auth.Failed(auth.CauseDirectoryUnreachable, errors.Wrap(err, "[directory.Verify] dial"))
	}
	release := sync.OnceValue(conn.Close)
	defer release()

	done := make(chan auth.Outcome, 1)
	go func() {
		done <- v.bind(conn, cfg, email, secret)
	}()

	select {
	case outcome := <-done:
		switch {
		case outcome.IsRejected():
			logger.Warn().Str("reason", string(outcome.Reason)).Msg("directory rejected credential")
		case outcome.IsError():
			logger.Error().Err(outcome.Err).Msg("directory unreachable: protocol error")
		}
		return outcome
	case <-ctx.Done():
		// Closing unblocks the pending bind; its result is discarded.
		_ = release()
		logger.Error().Err(ctx.Err()).Msg("directory unreachable: timed out")
		return auth.Failed(auth.CauseDirectoryUnreachable, errors.Wrap(ctx.Err(), "[directory.Verify] bind"))
	}
}

func (v *Verifier) bind(conn Conn, cfg tenants.DirectoryConfig, email, secret string) auth.Outcome {
	userDN := ""
	if cfg.BindTemplate != "" {
		userDN = expand(cfg.BindTemplate, ldap.EscapeDN(email))
	} else {
		dn, outcome := v.lookupDN(conn, cfg, email)
		if outcome != nil {
			return *outcome
		}
		userDN = dn
	}

	err := conn.Bind(userDN, secret)
	if err == nil {
		return auth.Admitted(nil)
	}
	if ldap.IsErrorWithCode(err, ldap.LDAPResultInvalidCredentials) {
		return auth.Rejected(auth.ReasonBadCredential)
	}
	return auth.Failed(auth.CauseDirectoryUnreachable, errors.Wrap(err, "[directory.bind] user bind"))
}

// lookupDN binds with the service account and searches for exactly one entry.
func (v *Verifier) lookupDN(conn Conn, cfg tenants.DirectoryConfig, email string) (string, *auth.Outcome) {
	fail := func(o auth.Outcome) (string, *auth.Outcome) { return "", &o }

	if cfg.BindDN != "" {
		if err := conn.Bind(cfg.BindDN, cfg.BindPassword); err != nil {
			return fail(auth.Failed(auth.CauseDirectoryUnreachable, errors.Wrap(err, "[directory.lookupDN] service bind")))
		}
	}

	filter := cfg.SearchFilter
	if filter == "" {
		filter = defaultSearchFilter
	}
	req := ldap.NewSearchRequest(
		cfg.SearchBase,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases,
		2, 0, false,
		expand(filter, ldap.EscapeFilter(email)),
		[]string{"dn"},
		nil,
	)
	res, err := conn.Search(req)
	if err != nil {
		if ldap.IsErrorWithCode(err, ldap.LDAPResultSizeLimitExceeded) {
			return fail(auth.Rejected(auth.ReasonBadCredential))
		}
		return fail(auth.Failed(auth.CauseDirectoryUnreachable, errors.Wrap(err, "[directory.lookupDN] search")))
	}
	if len(res.Entries) != 1 {
		return fail(auth.Rejected(auth.ReasonBadCredential))
	}
	return res.Entries[0].DN, nil
}

// expand substitutes {{email}} (and the older {{username}}) in a template.
func expand(template, value string) string {
	out := strings.ReplaceAll(template, "{{email}}", value)
	return strings.ReplaceAll(out, "{{username}}", value)
}

// DialLDAP connects with go-ldap, bounding dial and every request by the
// context deadline.
func DialLDAP(ctx context.Context, cfg tenants.DirectoryConfig) (Conn, error) {
	u, err := url.Parse(cfg.Host)
	if err != nil {
		return nil, errors.Wrap(err, "[DialLDAP] host")
	}
	tlsConfig := &tls.Config{
		ServerName:         u.Hostname(),
		InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // opt-in per tenant for self-signed directories
	}

	dialer := &net.Dialer{}
	if deadline, ok := ctx.Deadline(); ok {
		dialer.Deadline = deadline
	}
	conn, err := ldap.DialURL(cfg.Host, ldap.DialWithDialer(dialer), ldap.DialWithTLSConfig(tlsConfig))
	if err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetTimeout(time.Until(deadline))
	}
	if cfg.StartTLS {
		if err := conn.StartTLS(tlsConfig); err != nil {
			_ = conn.Close()
			return nil, errors.Wrap(err, "[DialLDAP] starttls")
		}
	}
	return conn, nil
}
