package directory

import (
	"fmt"
	"net"
	"time"

	"github.com/go-ldap/ldap/v3"
	"go.uber.org/zap"
)

// Config carries the process-lifetime settings of a Client. The CGI
// predecessor kept the timeout and flavor as globals; they are explicit
// construction input here.
type Config struct {
	Flavor Flavor
	// OperationTimeout bounds the dial and every subsequent operation on a
	// connection.
	OperationTimeout time.Duration
	Logger           *zap.Logger
}

// Client opens connections to directory services. It is safe for concurrent
// use; each Connect returns an independent connection owned by one workflow
// invocation.
type Client struct {
	timeout time.Duration
	encoder PasswordEncoder
	log     *zap.Logger
}

// NewClient validates the config and returns a Client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.OperationTimeout <= 0 {
		return nil, fmt.Errorf("directory: OperationTimeout must be positive")
	}
	enc, err := EncoderFor(cfg.Flavor)
	if err != nil {
		return nil, err
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		timeout: cfg.OperationTimeout,
		encoder: enc,
		log:     log,
	}, nil
}

// Connect dials the realm URI and returns a connection with the operation
// timeout applied.
func (c *Client) Connect(realmURI string) (*Conn, error) {
	conn, err := ldap.DialURL(realmURI, ldap.DialWithDialer(&net.Dialer{Timeout: c.timeout}))
	if err != nil {
		return nil, opError("connect", err)
	}
	conn.SetTimeout(c.timeout)

	return &Conn{
		conn:    conn,
		timeout: c.timeout,
		encoder: c.encoder,
		log:     c.log,
	}, nil
}

// Account is the subset of a directory entry the workflow needs. It is
// ephemeral, scoped to one search call.
type Account struct {
	DN         string
	Attributes map[string][]string
	// Ambiguous marks that more than one entry matched and the first was
	// taken.
	Ambiguous bool
}

// Mail returns the first value of the mail attribute, or "".
func (a *Account) Mail() string {
	if a == nil {
		return ""
	}
	vals := a.Attributes["mail"]
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}

// Conn is a single bound-or-unbound directory connection. Not safe for
// concurrent use; one workflow invocation owns it end to end.
type Conn struct {
	conn    *ldap.Conn
	timeout time.Duration
	encoder PasswordEncoder
	log     *zap.Logger
}

// Bind performs a synchronous simple bind as dn.
func (c *Conn) Bind(dn, password string) error {
	if err := c.conn.Bind(dn, password); err != nil {
		return opError("bind", err)
	}
	return nil
}

// FindAccount searches the subtree under baseDN for the entry whose
// sAMAccountName equals accountName, requesting only attrs. The account name
// is escaped before it is embedded in the filter. Zero matches is
// ErrNotFound; multiple matches yield the first entry, flagged Ambiguous.
func (c *Conn) FindAccount(baseDN, accountName string, attrs []string) (*Account, error) {
	req := ldap.NewSearchRequest(
		baseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		0,
		int(c.timeout/time.Second),
		false,
		accountFilter(accountName),
		attrs,
		nil,
	)

	res, err := c.conn.Search(req)
	if err != nil {
		return nil, opError("search", err)
	}
	if len(res.Entries) == 0 {
		return nil, ErrNotFound
	}

	entry := res.Entries[0]
	account := &Account{
		DN:         entry.DN,
		Attributes: make(map[string][]string, len(attrs)),
		Ambiguous:  len(res.Entries) > 1,
	}
	for _, name := range attrs {
		if vals := entry.GetAttributeValues(name); len(vals) > 0 {
			account.Attributes[name] = vals
		}
	}
	if account.Attributes["distinguishedName"] == nil {
		// Some servers omit distinguishedName as a plain attribute; the
		// entry DN is authoritative either way.
		account.Attributes["distinguishedName"] = []string{entry.DN}
	}

	return account, nil
}

// accountFilter builds the search filter, escaping the account name so
// caller input cannot alter the filter structure.
func accountFilter(accountName string) string {
	return fmt.Sprintf("(sAMAccountName=%s)", ldap.EscapeFilter(accountName))
}

// SetPassword replaces the flavor's password attribute on the entry at dn
// with the encoded newPassword. A non-success directory status is returned
// verbatim as an OpError; the modify is never retried here, so policy
// rejections reach the caller intact.
func (c *Conn) SetPassword(dn, newPassword string) error {
	encoded, err := c.encoder.Encode(newPassword)
	if err != nil {
		return &OpError{Op: "modify", Message: err.Error(), Err: err}
	}

	req := ldap.NewModifyRequest(dn, nil)
	req.Replace(c.encoder.Attribute(), []string{string(encoded)})

	if err := c.conn.Modify(req); err != nil {
		return opError("modify", err)
	}
	return nil
}

// Close unbinds and drops the connection. Best effort: by the time Close
// runs the credential operation has committed or failed, so an unbind
// failure is logged and swallowed.
func (c *Conn) Close() {
	if err := c.conn.Unbind(); err != nil {
		c.log.Warn("directory unbind failed", zap.Error(err))
	}
}
