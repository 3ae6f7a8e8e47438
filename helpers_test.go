package pwreset

import (
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/pwreset/pwreset/directory"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var testRealm = Realm{
	URI:    "ldap://dc1.example.com:389",
	BaseDN: "dc=example,dc=com",
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
	})

	return mr, rdb
}

// fakeDirectory records every operation of every connection it hands out.
// Mutex-guarded so concurrent workflow invocations can share one fake.
type fakeDirectory struct {
	mu sync.Mutex

	// per-account directory content
	accounts map[string]*directory.Account

	connectErr error
	bindErr    error
	searchErr  error
	modifyErr  error

	connects     int
	binds        []string
	setPasswords []string
	closes       int
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		accounts: map[string]*directory.Account{},
	}
}

func (d *fakeDirectory) addAccount(accountName, dn, mail string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.accounts[accountName] = &directory.Account{
		DN: dn,
		Attributes: map[string][]string{
			"distinguishedName": {dn},
			"mail":              {mail},
		},
	}
}

func (d *fakeDirectory) Connect(realmURI string) (DirectoryConn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.connectErr != nil {
		return nil, d.connectErr
	}
	d.connects++
	return &fakeConn{dir: d}, nil
}

type fakeConn struct {
	dir *fakeDirectory
}

func (c *fakeConn) Bind(dn, password string) error {
	c.dir.mu.Lock()
	defer c.dir.mu.Unlock()
	if c.dir.bindErr != nil {
		return c.dir.bindErr
	}
	c.dir.binds = append(c.dir.binds, dn)
	return nil
}

func (c *fakeConn) FindAccount(baseDN, accountName string, attrs []string) (*directory.Account, error) {
	c.dir.mu.Lock()
	defer c.dir.mu.Unlock()
	if c.dir.searchErr != nil {
		return nil, c.dir.searchErr
	}
	account, ok := c.dir.accounts[accountName]
	if !ok {
		return nil, directory.ErrNotFound
	}
	return account, nil
}

func (c *fakeConn) SetPassword(dn, newPassword string) error {
	c.dir.mu.Lock()
	defer c.dir.mu.Unlock()
	if c.dir.modifyErr != nil {
		return c.dir.modifyErr
	}
	c.dir.setPasswords = append(c.dir.setPasswords, newPassword)
	return nil
}

func (c *fakeConn) Close() {
	c.dir.mu.Lock()
	defer c.dir.mu.Unlock()
	c.dir.closes++
}

func newTestEngine(t *testing.T, rdb *redis.Client, dir Directory) *Engine {
	t.Helper()

	cfg := defaultConfig()
	cfg.Audit.Enabled = false

	return &Engine{
		config:       cfg,
		tokenStore:   newTokenStore(rdb, cfg.Token),
		directory:    dir,
		bindPassword: "svc-secret",
		metrics:      NewMetrics(cfg.Metrics),
		log:          zap.NewNop(),
	}
}
