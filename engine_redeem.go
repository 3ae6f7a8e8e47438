package pwreset

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/pwreset/pwreset/credential"
	"go.uber.org/zap"
)

// RedeemReset runs the redeem path: consume the token, verify the account
// still resolves in the directory, apply a freshly generated password, and
// return it. The token is consumed before any directory contact; if the
// directory then rejects or fails, the record is reinstated with its
// remaining lifetime so the holder can retry with the same token.
//
// The returned password exists only in this return value; it is never
// persisted or logged.
func (e *Engine) RedeemReset(ctx context.Context, accountName, presentedToken string, realm Realm) (string, error) {
	if err := e.ready(); err != nil {
		return "", err
	}

	runID := uuid.NewString()

	if err := validateAccountName(accountName); err != nil {
		e.emitAudit(ctx, auditEventResetRedeem, false, runID, accountName, realm, err, nil)
		return "", err
	}

	record, err := e.tokenStore.Redeem(ctx, accountName, presentedToken)
	if err != nil {
		switch {
		case errors.Is(err, ErrNoOutstandingToken):
			e.metricInc(MetricTokenReplay)
			e.emitAudit(ctx, auditEventTokenReplay, false, runID, accountName, realm, err, nil)
		case errors.Is(err, ErrTokenMismatch):
			e.metricInc(MetricTokenMismatch)
			e.emitAudit(ctx, auditEventResetRedeem, false, runID, accountName, realm, err, nil)
		default:
			e.emitAudit(ctx, auditEventResetRedeem, false, runID, accountName, realm, err, nil)
		}
		return "", err
	}

	conn, err := e.directory.Connect(realm.URI)
	if err != nil {
		mapped := mapDirectoryError(err)
		e.metricInc(MetricDirectoryError)
		e.reinstateToken(ctx, runID, accountName, realm, record)
		e.emitAudit(ctx, auditEventResetRedeem, false, runID, accountName, realm, mapped, nil)
		return "", mapped
	}
	defer conn.Close()

	if err := conn.Bind(e.serviceBindDN(realm), e.bindPassword); err != nil {
		mapped := mapDirectoryError(err)
		e.metricInc(MetricDirectoryError)
		e.reinstateToken(ctx, runID, accountName, realm, record)
		e.emitAudit(ctx, auditEventResetRedeem, false, runID, accountName, realm, mapped, nil)
		return "", mapped
	}

	account, err := conn.FindAccount(realm.BaseDN, accountName, accountAttributes)
	if err != nil {
		mapped := mapDirectoryError(err)
		e.metricInc(MetricDirectoryError)
		e.reinstateToken(ctx, runID, accountName, realm, record)
		e.emitAudit(ctx, auditEventResetRedeem, false, runID, accountName, realm, mapped, nil)
		return "", mapped
	}

	newPassword, err := credential.Password()
	if err != nil {
		e.reinstateToken(ctx, runID, accountName, realm, record)
		e.emitAudit(ctx, auditEventResetRedeem, false, runID, accountName, realm, err, nil)
		return "", err
	}

	if err := conn.SetPassword(account.DN, newPassword); err != nil {
		mapped := mapDirectoryError(err)
		e.metricInc(MetricModifyFailed)
		e.reinstateToken(ctx, runID, accountName, realm, record)
		// Policy rejections surface verbatim; no retry inside the run.
		e.emitAudit(ctx, auditEventModifyFailed, false, runID, accountName, realm, mapped, auditAmbiguity(account.Ambiguous))
		return "", mapped
	}

	e.metricInc(MetricPasswordApplied)
	e.metricInc(MetricTokenRedeemed)
	e.emitAudit(ctx, auditEventPasswordApplied, true, runID, accountName, realm, nil, auditAmbiguity(account.Ambiguous))
	e.emitAudit(ctx, auditEventResetRedeem, true, runID, accountName, realm, nil, nil)

	return newPassword, nil
}

// reinstateToken puts a consumed record back after a failed apply. If the
// store is down too, the token is lost; the holder must start over with a
// new request, so this is logged but does not mask the original failure.
func (e *Engine) reinstateToken(ctx context.Context, runID, accountName string, realm Realm, record *tokenRecord) {
	if err := e.tokenStore.Reinstate(ctx, accountName, record); err != nil {
		e.log.Warn("token reinstate failed",
			zap.String("account", accountName),
			zap.Error(err))
		return
	}
	e.metricInc(MetricTokenReinstated)
	e.emitAudit(ctx, auditEventTokenReinstated, true, runID, accountName, realm, nil, nil)
}
