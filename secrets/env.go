package secrets

import (
	"os"
	"strings"
)

// EnvProvider reads secrets from environment variables. The secret name is
// upper-cased, non-alphanumerics become underscores, and Prefix is
// prepended, so "service_account" with prefix "PWRESET_" reads
// PWRESET_SERVICE_ACCOUNT.
type EnvProvider struct {
	Prefix string
}

var _ Provider = &EnvProvider{}

func (p *EnvProvider) GetSecret(name string) ([]byte, error) {
	key := p.Prefix + envKey(name)

	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return nil, ErrNotFound
	}
	return []byte(val), nil
}

func envKey(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range strings.ToUpper(name) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}
