// Package credential generates the random material of the reset workflow:
// opaque single-use tokens and directory-policy-compliant passwords. All
// sampling uses crypto/rand; the time-seeded generator of the CGI
// predecessor made concurrent invocations predictable.
package credential
