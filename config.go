package pwreset

import (
	"errors"
	"time"

	"github.com/pwreset/pwreset/directory"
)

// EmailMatchMode selects how a claimed email is verified against the
// directory-held address during a reset request.
type EmailMatchMode int

const (
	// EmailMatchExact requires case-insensitive equality. Default.
	EmailMatchExact EmailMatchMode = iota
	// EmailMatchSubstring accepts a claimed email that contains the
	// directory-held value as a substring. This is the legacy policy of the
	// CGI predecessor; it accepts addresses like user@example.com.evil.net
	// and exists only for migration compatibility.
	EmailMatchSubstring
)

// Config carries every tunable of the reset engine. Configure before
// Builder.Build and treat as immutable afterwards.
type Config struct {
	Directory DirectoryConfig
	Token     TokenConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/*
====================================
DIRECTORY CONFIG
====================================
*/

// DirectoryConfig governs the directory adapter and identity verification.
type DirectoryConfig struct {
	// Flavor selects the password-attribute encoding of the target
	// directory implementation.
	Flavor directory.Flavor
	// OperationTimeout bounds every directory operation on a connection.
	OperationTimeout time.Duration
	// ServiceAccountCN is the common name of the service account; the bind
	// DN is assembled as cn=<ServiceAccountCN>,<realm BaseDN>.
	ServiceAccountCN string
	// EmailMatch is the identity verification policy for reset requests.
	EmailMatch EmailMatchMode
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig governs the single-use reset token store.
type TokenConfig struct {
	// RedisPrefix namespaces token keys.
	RedisPrefix string
	// TTL bounds the lifetime of an outstanding token.
	TTL time.Duration
	// MaxAttempts deletes a live record after this many mismatched
	// presentations, after which the account reads as having no
	// outstanding token.
	MaxAttempts int
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig governs the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull drops events instead of blocking the workflow when the
	// buffer is saturated.
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig governs the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

func defaultConfig() Config {
	return Config{
		Directory: DirectoryConfig{
			Flavor:           directory.FlavorActiveDirectory,
			OperationTimeout: 5 * time.Second,
			ServiceAccountCN: "service_account",
			EmailMatch:       EmailMatchExact,
		},
		Token: TokenConfig{
			RedisPrefix: "prt",
			TTL:         15 * time.Minute,
			MaxAttempts: 5,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	// All fields are value types; a shallow copy is a deep copy.
	return cfg
}

// Validate checks the configuration for values the engine cannot operate
// with. Builder.Build calls it; callers constructing configs incrementally
// may call it early.
func (c Config) Validate() error {
	if c.Directory.OperationTimeout <= 0 {
		return errors.New("Directory.OperationTimeout must be positive")
	}
	if c.Directory.ServiceAccountCN == "" {
		return errors.New("Directory.ServiceAccountCN required")
	}
	if c.Directory.Flavor != directory.FlavorActiveDirectory && c.Directory.Flavor != directory.FlavorGeneric {
		return errors.New("Directory.Flavor unknown")
	}
	if c.Directory.EmailMatch != EmailMatchExact && c.Directory.EmailMatch != EmailMatchSubstring {
		return errors.New("Directory.EmailMatch unknown")
	}
	if c.Token.RedisPrefix == "" {
		return errors.New("Token.RedisPrefix required")
	}
	if c.Token.TTL <= 0 {
		return errors.New("Token.TTL must be positive")
	}
	if c.Token.MaxAttempts <= 0 {
		return errors.New("Token.MaxAttempts must be positive")
	}
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit.BufferSize must be positive when audit is enabled")
	}
	return nil
}
