package pwreset

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pwreset/pwreset/directory"
	"go.uber.org/zap"
)

const maxAccountNameLength = 256

// Attributes fetched on every account search. distinguishedName identifies
// the entry for the modify; mail feeds the identity check.
var accountAttributes = []string{"distinguishedName", "mail"}

// DirectoryConn is one connection to a directory service, owned by a single
// workflow invocation.
type DirectoryConn interface {
	Bind(dn, password string) error
	FindAccount(baseDN, accountName string, attrs []string) (*directory.Account, error)
	SetPassword(dn, newPassword string) error
	Close()
}

// Directory opens connections to directory services. The default
// implementation is directory.Client; tests substitute fakes.
type Directory interface {
	Connect(realmURI string) (DirectoryConn, error)
}

// Engine runs the reset workflow. Construct through Builder.Build; safe for
// concurrent use afterwards.
type Engine struct {
	config       Config
	tokenStore   *tokenStore
	directory    Directory
	bindPassword string
	audit        *auditDispatcher
	metrics      *Metrics
	log          *zap.Logger
}

// Metrics exposes the engine's counters.
func (e *Engine) Metrics() *Metrics {
	if e == nil {
		return nil
	}
	return e.metrics
}

// Close flushes the audit dispatcher. The engine must not be used after
// Close.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

func (e *Engine) ready() error {
	if e == nil || e.tokenStore == nil || e.directory == nil {
		return ErrEngineNotReady
	}
	return nil
}

// serviceBindDN assembles the service-account DN for a realm:
// cn=<ServiceAccountCN>,<BaseDN>.
func (e *Engine) serviceBindDN(realm Realm) string {
	return "cn=" + e.config.Directory.ServiceAccountCN + "," + realm.BaseDN
}

func validateAccountName(accountName string) error {
	if accountName == "" || len(accountName) > maxAccountNameLength {
		return ErrInvalidAccountName
	}
	return nil
}

// emailMatches applies the configured identity policy. The directory-held
// value must be present either way; an account without a mail attribute can
// never verify.
func (e *Engine) emailMatches(claimed, held string) bool {
	claimed = strings.TrimSpace(claimed)
	held = strings.TrimSpace(held)
	if claimed == "" || held == "" {
		return false
	}

	switch e.config.Directory.EmailMatch {
	case EmailMatchSubstring:
		// Legacy policy of the CGI predecessor: the claimed address need
		// only contain the directory-held one.
		return strings.Contains(strings.ToLower(claimed), strings.ToLower(held))
	default:
		return strings.EqualFold(claimed, held)
	}
}

// mapDirectoryError folds adapter errors into the public taxonomy, keeping
// the directory code/message in the wrap for server-side logs.
func mapDirectoryError(err error) error {
	if errors.Is(err, directory.ErrNotFound) {
		return ErrNotFound
	}

	var oe *directory.OpError
	if errors.As(err, &oe) {
		switch oe.Op {
		case "connect":
			return fmt.Errorf("%w: %v", ErrConnect, err)
		case "bind":
			return fmt.Errorf("%w: %v", ErrAuth, err)
		case "search":
			return fmt.Errorf("%w: %v", ErrSearch, err)
		case "modify":
			return fmt.Errorf("%w: %v", ErrModify, err)
		}
	}

	return fmt.Errorf("%w: %v", ErrSearch, err)
}

func (e *Engine) metricInc(id MetricID) {
	e.metrics.inc(id)
}

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	runID, accountName string,
	realm Realm,
	failure error,
	metadata func() map[string]string,
) {
	if e.audit == nil {
		return
	}

	event := AuditEvent{
		Timestamp:   time.Now(),
		EventType:   eventType,
		RunID:       runID,
		AccountName: accountName,
		RealmURI:    realm.URI,
		Success:     success,
	}
	if failure != nil {
		event.Error = failure.Error()
	}
	if metadata != nil {
		event.Metadata = metadata()
	}

	e.audit.Emit(ctx, event)
}
