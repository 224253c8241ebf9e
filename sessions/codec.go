package sessions

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	apperrors "github.com/jrsteele09/go-session-auth/internal/errors"
)

const (
	minKeyLength  = 32
	sessionIssuer = "go-session-auth"
)

// Codec signs a Reference for transport in a cookie. The token carries the
// account ID as subject and an expiry, nothing else.
type Codec struct {
	key     []byte
	ttl     time.Duration
	nowTime func() time.Time
}

func NewCodec(key []byte, ttl time.Duration) (*Codec, error) {
	if len(key) < minKeyLength {
		return nil, errors.Errorf("[sessions.NewCodec] signing key must be at least %d bytes", minKeyLength)
	}
	if ttl <= 0 {
		return nil, errors.New("[sessions.NewCodec] ttl must be positive")
	}
	return &Codec{key: key, ttl: ttl, nowTime: time.Now}, nil
}

// TTL is the lifetime of encoded references.
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

func (c *Codec) Encode(ref Reference) (string, time.Time, error) {
	if ref == "" {
		return "", time.Time{}, errors.Wrap(apperrors.ErrSessionInvalid, "[Codec.Encode] empty reference")
	}
	now := c.nowTime()
	expiresAt := now.Add(c.ttl)
	claims := jwt.RegisteredClaims{
		Issuer:    sessionIssuer,
		Subject:   string(ref),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "[Codec.Encode] sign")
	}
	return signed, expiresAt, nil
}

func (c *Codec) Decode(token string) (Reference, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (interface{}, error) { return c.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.nowTime),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", errors.Wrap(apperrors.ErrSessionExpired, err.Error())
		}
		return "", errors.Wrap(apperrors.ErrSessionInvalid, err.Error())
	}
	if claims.Subject == "" {
		return "", errors.Wrap(apperrors.ErrSessionInvalid, "[Codec.Decode] missing subject")
	}
	return Reference(claims.Subject), nil
}
