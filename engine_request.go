package pwreset

import (
	"context"

	"github.com/google/uuid"
)

// RequestReset runs the request path of the workflow: verify the claimed
// email against the directory, then issue a single-use token for the
// account. The returned ResetReference is the input for the caller's mail
// dispatcher; no email is sent here.
//
// Issuing supersedes any outstanding token for the account, so repeated
// requests are safe and only the newest token redeems.
func (e *Engine) RequestReset(ctx context.Context, accountName, claimedEmail string, realm Realm) (ResetReference, error) {
	if err := e.ready(); err != nil {
		return ResetReference{}, err
	}

	runID := uuid.NewString()

	if err := validateAccountName(accountName); err != nil {
		e.metricInc(MetricResetRequestFailure)
		e.emitAudit(ctx, auditEventResetRequest, false, runID, accountName, realm, err, nil)
		return ResetReference{}, err
	}

	conn, err := e.directory.Connect(realm.URI)
	if err != nil {
		mapped := mapDirectoryError(err)
		e.metricInc(MetricDirectoryError)
		e.metricInc(MetricResetRequestFailure)
		e.emitAudit(ctx, auditEventResetRequest, false, runID, accountName, realm, mapped, nil)
		return ResetReference{}, mapped
	}
	defer conn.Close()

	if err := conn.Bind(e.serviceBindDN(realm), e.bindPassword); err != nil {
		mapped := mapDirectoryError(err)
		e.metricInc(MetricDirectoryError)
		e.metricInc(MetricResetRequestFailure)
		e.emitAudit(ctx, auditEventResetRequest, false, runID, accountName, realm, mapped, nil)
		return ResetReference{}, mapped
	}

	account, err := conn.FindAccount(realm.BaseDN, accountName, accountAttributes)
	if err != nil {
		mapped := mapDirectoryError(err)
		e.metricInc(MetricDirectoryError)
		e.metricInc(MetricResetRequestFailure)
		e.emitAudit(ctx, auditEventResetRequest, false, runID, accountName, realm, mapped, nil)
		return ResetReference{}, mapped
	}

	if !e.emailMatches(claimedEmail, account.Mail()) {
		e.metricInc(MetricIdentityMismatch)
		e.metricInc(MetricResetRequestFailure)
		e.emitAudit(ctx, auditEventIdentityMismatch, false, runID, accountName, realm, ErrIdentityMismatch, func() map[string]string {
			// The claimed address is attacker-controlled input; the
			// directory-held one stays out of the audit trail.
			return map[string]string{
				"claimed_email": claimedEmail,
			}
		})
		return ResetReference{}, ErrIdentityMismatch
	}

	token, err := e.tokenStore.Issue(ctx, accountName)
	if err != nil {
		e.metricInc(MetricResetRequestFailure)
		e.emitAudit(ctx, auditEventResetRequest, false, runID, accountName, realm, err, nil)
		return ResetReference{}, err
	}

	e.metricInc(MetricTokenIssued)
	e.metricInc(MetricResetRequestSuccess)
	e.emitAudit(ctx, auditEventTokenIssued, true, runID, accountName, realm, nil, auditAmbiguity(account.Ambiguous))
	e.emitAudit(ctx, auditEventResetRequest, true, runID, accountName, realm, nil, nil)

	return ResetReference{
		Token:       token,
		AccountName: accountName,
		Realm:       realm,
	}, nil
}

func auditAmbiguity(ambiguous bool) func() map[string]string {
	if !ambiguous {
		return nil
	}
	return func() map[string]string {
		return map[string]string{
			"ambiguous": "true",
		}
	}
}
