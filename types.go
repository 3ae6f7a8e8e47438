package pwreset

// Realm identifies one target directory service instance: the server URI and
// the base DN under which accounts are searched. A Realm is immutable input
// to a single workflow invocation.
type Realm struct {
	URI    string
	BaseDN string
}

// ResetReference is the result of a successful reset request. The embedding
// program hands it to its mail dispatcher to compose the reset link; the
// engine itself never sends email.
type ResetReference struct {
	Token       string
	AccountName string
	Realm       Realm
}
