// Package directory wraps the LDAP operations the reset workflow needs:
// connect, simple bind, subtree account search, and password modify with the
// directory-flavor-specific attribute encoding. It holds no state between
// calls beyond the connection handle, which is scoped to one workflow
// invocation.
package directory
