package auth

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/users"
)

// PasswordVerifier checks a secret against an account's stored hash. A wrong
// secret is (false, nil); an error means the stored state is unusable.
type PasswordVerifier interface {
	Verify(account *users.User, secret string) (bool, error)
}

// LocalVerifier understands bcrypt hashes and argon2id PHC strings.
type LocalVerifier struct{}

var _ PasswordVerifier = LocalVerifier{}

func (LocalVerifier) Verify(account *users.User, secret string) (bool, error) {
	hash := account.PasswordHash
	switch {
	case strings.HasPrefix(hash, "$2a$"), strings.HasPrefix(hash, "$2b$"), strings.HasPrefix(hash, "$2y$"):
		err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret))
		if err == nil {
			return true, nil
		}
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return false, errors.Wrap(apperrors.ErrCorruptCredential, err.Error())
	case strings.HasPrefix(hash, "$argon2id$"):
		return verifyArgon2id(hash, secret)
	}
	return false, errors.Wrap(apperrors.ErrCorruptCredential, "unrecognised hash format")
}

// verifyArgon2id checks $argon2id$v=19$m=<KiB>,t=<iterations>,p=<threads>$<salt>$<key>.
func verifyArgon2id(encoded, secret string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return false, errors.Wrap(apperrors.ErrCorruptCredential, "argon2id: wrong number of fields")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false, errors.Wrap(apperrors.ErrCorruptCredential, "argon2id: unsupported version")
	}

	var memory, iterations uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &threads); err != nil {
		return false, errors.Wrap(apperrors.ErrCorruptCredential, "argon2id: bad parameters")
	}
	if memory == 0 || iterations == 0 || threads == 0 {
		return false, errors.Wrap(apperrors.ErrCorruptCredential, "argon2id: zero parameter")
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, errors.Wrap(apperrors.ErrCorruptCredential, "argon2id: salt encoding")
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return false, errors.Wrap(apperrors.ErrCorruptCredential, "argon2id: key encoding")
	}

	computed := argon2.IDKey([]byte(secret), salt, iterations, memory, threads, uint32(len(key)))
	return subtle.ConstantTimeCompare(computed, key) == 1, nil
}

// HashArgon2id encodes secret as an argon2id PHC string. Used for accounts
// migrated from systems that already store argon2id.
func HashArgon2id(secret string, salt []byte) string {
	const (
		memory     = 64 * 1024
		iterations = 1
		threads    = 4
		keyLen     = 32
	)
	key := argon2.IDKey([]byte(secret), salt, iterations, memory, threads, keyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s", argon2.Version, memory, iterations, threads,
		base64.RawStdEncoding.EncodeToString(salt), base64.RawStdEncoding.EncodeToString(key))
}
