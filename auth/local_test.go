package auth

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/users"
)

func TestLocalVerifier_Bcrypt(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)
	account := &users.User{PasswordHash: string(hash)}

	ok, err := LocalVerifier{}.Verify(account, "correct horse")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = LocalVerifier{}.Verify(account, "battery staple")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestLocalVerifier_Argon2id(t *testing.T) {
	account := &users.User{PasswordHash: HashArgon2id("correct horse", []byte("0123456789abcdef"))}

	ok, err := LocalVerifier{}.Verify(account, "correct horse")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = LocalVerifier{}.Verify(account, "battery staple")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestLocalVerifier_CorruptHashes(t *testing.T) {
	tests := []struct {
		name string
		hash string
	}{
		{name: "unknown format", hash: "md5:abcdef"},
		{name: "truncated bcrypt", hash: "$2a$10$short"},
		{name: "argon2id missing fields", hash: "$argon2id$v=19$m=65536"},
		{name: "argon2id bad version", hash: "$argon2id$v=1$m=65536,t=1,p=4$c2FsdA$a2V5"},
		{name: "argon2id bad params", hash: "$argon2id$v=19$m=x,t=1,p=4$c2FsdA$a2V5"},
		{name: "argon2id zero memory", hash: "$argon2id$v=19$m=0,t=1,p=4$c2FsdA$a2V5"},
		{name: "argon2id bad salt", hash: "$argon2id$v=19$m=65536,t=1,p=4$!!!$a2V5"},
		{name: "argon2id empty key", hash: "$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := LocalVerifier{}.Verify(&users.User{PasswordHash: tt.hash}, "whatever")
			require.False(t, ok)
			require.Error(t, err)
			require.True(t, errors.Is(err, apperrors.ErrCorruptCredential))
		})
	}
}
