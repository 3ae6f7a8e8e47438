package directory

import (
	"errors"
	"fmt"

	"github.com/go-ldap/ldap/v3"
)

var (
	// ErrNotFound reports a search that matched zero entries.
	ErrNotFound = errors.New("directory entry not found")
	// ErrUnknownFlavor reports an unrecognized Flavor value.
	ErrUnknownFlavor = errors.New("unknown directory flavor")
)

// OpError carries the failed operation and the directory's result code and
// diagnostic message. The message is intended for server-side logs; callers
// decide what, if anything, reaches the end user.
type OpError struct {
	Op      string // "connect", "bind", "search", "modify"
	Code    uint16 // LDAP result code, 0 when the failure never reached the server
	Message string
	Err     error
}

func (e *OpError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("directory %s: result %d: %s", e.Op, e.Code, e.Message)
	}
	return fmt.Sprintf("directory %s: %s", e.Op, e.Message)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

func opError(op string, err error) *OpError {
	oe := &OpError{
		Op:      op,
		Message: err.Error(),
		Err:     err,
	}

	var le *ldap.Error
	if errors.As(err, &le) {
		oe.Code = le.ResultCode
		oe.Message = ldap.LDAPResultCodeMap[le.ResultCode]
		if le.Err != nil {
			oe.Message = le.Err.Error()
		}
	}

	return oe
}
