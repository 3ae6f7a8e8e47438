package pwreset

import (
	"errors"
	"fmt"

	"github.com/pwreset/pwreset/directory"
	"github.com/pwreset/pwreset/secrets"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Builder assembles an Engine. Configure, then call Build exactly once.
type Builder struct {
	config Config
	redis  *redis.Client

	directory      Directory
	secretProvider secrets.Provider
	auditSink      AuditSink
	logger         *zap.Logger

	built bool
}

// New returns a Builder loaded with the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client backing the token store. Required.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithDirectory overrides the directory implementation. When omitted, Build
// constructs a directory.Client from the Directory config section.
func (b *Builder) WithDirectory(d Directory) *Builder {
	b.directory = d
	return b
}

// WithSecrets sets the provider for the service-account bind password.
// Defaults to a file provider in the working directory, matching the CGI
// predecessor's .password.<service account> layout.
func (b *Builder) WithSecrets(p secrets.Provider) *Builder {
	b.secretProvider = p
	return b
}

// WithAuditSink sets the destination for audit events.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the structured logger. Defaults to a nop logger.
func (b *Builder) WithLogger(log *zap.Logger) *Builder {
	b.logger = log
	return b
}

// WithMetricsEnabled toggles the counter block.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration, loads the service-account password,
// and returns a ready Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}

	log := b.logger
	if log == nil {
		log = zap.NewNop()
	}

	dir := b.directory
	if dir == nil {
		client, err := directory.NewClient(directory.Config{
			Flavor:           cfg.Directory.Flavor,
			OperationTimeout: cfg.Directory.OperationTimeout,
			Logger:           log,
		})
		if err != nil {
			return nil, err
		}
		dir = ldapDirectory{client: client}
	}

	provider := b.secretProvider
	if provider == nil {
		provider = secrets.NewFileProvider("")
	}

	bindPassword, err := provider.GetSecret(cfg.Directory.ServiceAccountCN)
	if err != nil {
		return nil, fmt.Errorf("loading service account password: %w", err)
	}

	engine := &Engine{
		config:       cfg,
		tokenStore:   newTokenStore(b.redis, cfg.Token),
		directory:    dir,
		bindPassword: string(bindPassword),
		audit:        newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics:      NewMetrics(cfg.Metrics),
		log:          log,
	}

	b.built = true

	return engine, nil
}

// ldapDirectory adapts directory.Client to the Directory interface.
type ldapDirectory struct {
	client *directory.Client
}

func (d ldapDirectory) Connect(realmURI string) (DirectoryConn, error) {
	conn, err := d.client.Connect(realmURI)
	if err != nil {
		return nil, err
	}
	return conn, nil
}
