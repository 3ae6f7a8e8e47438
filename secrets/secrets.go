// Package secrets loads operator-provisioned secrets, in particular the
// service-account bind password consumed once at engine construction. The
// value is treated as opaque; it is never logged and never travels in
// tokens or responses.
package secrets

import "errors"

// ErrNotFound reports that the named secret is not provisioned.
var ErrNotFound = errors.New("secret not found")

// Provider reads named secrets from some operator-controlled location.
type Provider interface {
	GetSecret(name string) ([]byte, error)
}
