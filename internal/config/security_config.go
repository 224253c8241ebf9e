package config

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"
)

const ephemeralKeyLength = 32

var ErrSigningKeyRequired = errors.New(sessionKeyVar + " must be set outside development")

const (
	sessionKeyVar       = "SESSION_SIGNING_KEY"
	sessionMaxAgeVar    = "SESSION_MAX_AGE"
	directoryTimeoutVar = "DIRECTORY_TIMEOUT"
	loginRateVar        = "LOGIN_RATE_PER_SECOND"
	loginBurstVar       = "LOGIN_BURST"
)

type Security struct{}

var _ SecurityConfig = Security{}

// GetSessionSigningKey returns the HMAC key for session cookies. Empty means
// the caller must generate an ephemeral key.
func (Security) GetSessionSigningKey() string {
	return GetEnv(sessionKeyVar, "")
}

func (Security) GetMaxSessionAge() time.Duration {
	return GetDuration(sessionMaxAgeVar, 8*time.Hour)
}

func (Security) GetDirectoryTimeout() time.Duration {
	return GetDuration(directoryTimeoutVar, 10*time.Second)
}

func (Security) GetLoginRatePerSecond() float64 {
	return GetFloat(loginRateVar, 1)
}

func (Security) GetLoginBurst() int {
	return GetInt(loginBurstVar, 5)
}

// ResolveSigningKey returns the configured session signing key. In the
// development environment a missing key is replaced by a random one and
// ephemeral is true; sessions signed with it do not survive a restart.
func ResolveSigningKey(c Config) (key []byte, ephemeral bool, err error) {
	if configured := c.GetSessionSigningKey(); configured != "" {
		return []byte(configured), false, nil
	}
	if c.GetEnv() != DevelopmentEnvVal {
		return nil, false, ErrSigningKeyRequired
	}
	key = make([]byte, ephemeralKeyLength)
	if _, err := rand.Read(key); err != nil {
		return nil, false, fmt.Errorf("[ResolveSigningKey] generate ephemeral key: %w", err)
	}
	return key, true, nil
}
