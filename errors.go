package pwreset

import "errors"

var (
	// ErrConnect reports that the directory service could not be reached.
	ErrConnect = errors.New("directory connect failed")
	// ErrAuth reports that the service-account bind was rejected.
	ErrAuth = errors.New("service account bind failed")
	// ErrSearch reports a directory search failure other than zero matches.
	ErrSearch = errors.New("account search failed")
	// ErrNotFound reports that no directory entry matched the account name.
	ErrNotFound = errors.New("account not found")
	// ErrIdentityMismatch reports that the claimed email did not verify
	// against the directory-held address.
	ErrIdentityMismatch = errors.New("claimed email does not match directory")
	// ErrNoOutstandingToken reports that no live reset token exists for the
	// account. Expired, superseded, and already-consumed tokens all surface
	// this way.
	ErrNoOutstandingToken = errors.New("no outstanding reset token")
	// ErrTokenMismatch reports that the presented token does not match the
	// live record for the account.
	ErrTokenMismatch = errors.New("reset token mismatch")
	// ErrModify reports that the directory rejected the password change,
	// typically a policy violation. The directory status is attached.
	ErrModify = errors.New("directory password modify failed")
	// ErrStoreUnavailable reports that the token store backend is down.
	ErrStoreUnavailable = errors.New("token store unavailable")
	// ErrEngineNotReady reports use of an Engine that was not built.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrInvalidAccountName reports an empty or oversized account name.
	ErrInvalidAccountName = errors.New("invalid account name")
)
