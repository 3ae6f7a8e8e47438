package directory

import (
	"golang.org/x/text/encoding/unicode"
)

// Flavor selects which directory implementation's password-attribute
// convention a client speaks.
type Flavor int

const (
	// FlavorActiveDirectory replaces unicodePwd with the quoted password
	// re-encoded as UTF-16LE.
	FlavorActiveDirectory Flavor = iota
	// FlavorGeneric replaces userPassword with the plain password string.
	FlavorGeneric
)

// PasswordEncoder produces the attribute name and wire value for a password
// replace under one directory flavor.
type PasswordEncoder interface {
	Attribute() string
	Encode(password string) ([]byte, error)
}

// EncoderFor returns the encoder for the given flavor.
func EncoderFor(flavor Flavor) (PasswordEncoder, error) {
	switch flavor {
	case FlavorActiveDirectory:
		return adEncoder{}, nil
	case FlavorGeneric:
		return genericEncoder{}, nil
	default:
		return nil, ErrUnknownFlavor
	}
}

type adEncoder struct{}

func (adEncoder) Attribute() string { return "unicodePwd" }

// Encode wraps the password in literal double quotes and re-encodes the
// quoted string as UTF-16LE with no byte-order mark and no trailing null,
// the exact byte sequence AD expects for a unicodePwd replace.
func (adEncoder) Encode(password string) ([]byte, error) {
	quoted := `"` + password + `"`
	enc := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder()
	return enc.Bytes([]byte(quoted))
}

type genericEncoder struct{}

func (genericEncoder) Attribute() string { return "userPassword" }

func (genericEncoder) Encode(password string) ([]byte, error) {
	return []byte(password), nil
}
