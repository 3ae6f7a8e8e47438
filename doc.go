// Package pwreset implements a self-service directory-account password reset
// workflow: a caller requests a reset for an account, receives a single-use
// token out of band, and redeems that token for a freshly generated password
// applied to the account's directory entry.
//
// The package is designed for concurrent request handlers: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build]. The Redis-backed token store is the only shared mutable
// state; every workflow invocation owns its own directory connection.
//
// # Architecture boundaries
//
// pwreset is the public surface. It exposes [Engine], [Builder], [Config],
// [Realm], [ResetReference], sentinel errors, and the audit/metrics value
// types. Directory access lives in the directory subpackage, random material
// in credential, and service-account secret loading in secrets.
//
// # What this package must NOT do
//
//   - Send email. RequestReset returns a [ResetReference]; composing and
//     delivering the reset link belongs to the embedding program.
//   - Parse transport input. Callers hand the engine already-decoded account
//     names, emails, and realms.
//   - Retry directory or store failures. Every failure is terminal for the
//     invocation; re-invoking the workflow is always safe because issuance
//     supersedes stale tokens and redemption is single-use.
package pwreset
