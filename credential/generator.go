package credential

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const alphanumeric = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const (
	// TokenLength is the length of a reset token.
	TokenLength = 16
	// PasswordRandomLength is the random portion of a generated password.
	PasswordRandomLength = 16
	// PasswordSuffix is appended to every generated password. It guarantees
	// at least one lowercase letter, one uppercase letter, one digit, and
	// one symbol regardless of the random portion, which keeps the result
	// inside typical directory complexity policies.
	PasswordSuffix = "aZ9!"
	// PasswordLength is the total length of a generated password.
	PasswordLength = PasswordRandomLength + len(PasswordSuffix)
)

// Token returns a fresh reset token: TokenLength characters sampled
// uniformly from [a-zA-Z0-9].
func Token() (string, error) {
	return randomAlphanumeric(TokenLength)
}

// Password returns a fresh password: PasswordRandomLength characters sampled
// uniformly from [a-zA-Z0-9], followed by PasswordSuffix.
func Password() (string, error) {
	random, err := randomAlphanumeric(PasswordRandomLength)
	if err != nil {
		return "", err
	}
	return random + PasswordSuffix, nil
}

func randomAlphanumeric(length int) (string, error) {
	var b strings.Builder
	b.Grow(length)

	max := big.NewInt(int64(len(alphanumeric)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(alphanumeric[n.Int64()])
	}

	return b.String(), nil
}
