package identity

import (
	"context"
	"strings"

	"github.com/jonboulle/clockwork"

	"github.com/roach88/cartsync/internal/cart"
)

// LocalProvider is a self-contained identity provider.
//
// Anonymous identities are UUIDv7 strings by default. SignIn binds a named
// (non-anonymous) identity without verification, which is what a local,
// single-user CLI needs.
type LocalProvider struct {
	sess *session
	ids  IDGenerator
}

var (
	_ Provider      = (*LocalProvider)(nil)
	_ Authenticator = (*LocalProvider)(nil)
)

// LocalOption configures a LocalProvider.
type LocalOption func(*localConfig)

type localConfig struct {
	ids   IDGenerator
	clock clockwork.Clock
}

// WithIDGenerator overrides how anonymous IDs are minted.
func WithIDGenerator(g IDGenerator) LocalOption {
	return func(c *localConfig) {
		if g != nil {
			c.ids = g
		}
	}
}

// WithSessionClock sets the clock used to stamp signed_in_at.
func WithSessionClock(clock clockwork.Clock) LocalOption {
	return func(c *localConfig) {
		c.clock = clock
	}
}

// NewLocalProvider loads the session at path. An empty path keeps the
// session in memory; a missing file means signed out.
func NewLocalProvider(path string, opts ...LocalOption) (*LocalProvider, error) {
	cfg := localConfig{ids: UUIDv7Generator{}}
	for _, opt := range opts {
		opt(&cfg)
	}

	sess, err := newSession(path, cfg.clock)
	if err != nil {
		return nil, cart.NewIdentityError("load session", err)
	}
	return &LocalProvider{sess: sess, ids: cfg.ids}, nil
}

// Current returns the signed-in identity or nil.
func (p *LocalProvider) Current(ctx context.Context) (*cart.Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, cart.NewIdentityError("current", err)
	}
	return p.sess.get(), nil
}

// CreateAnonymous mints an anonymous identity and makes it current.
func (p *LocalProvider) CreateAnonymous(ctx context.Context) (cart.Identity, error) {
	if err := ctx.Err(); err != nil {
		return cart.Identity{}, cart.NewIdentityError("create anonymous", err)
	}
	id := cart.Identity{ID: p.ids.Generate(), Anonymous: true}
	if err := p.sess.set(&id); err != nil {
		return cart.Identity{}, cart.NewIdentityError("create anonymous", err)
	}
	return id, nil
}

// Subscribe implements Provider.
func (p *LocalProvider) Subscribe(fn func(*cart.Identity)) func() {
	return p.sess.subscribe(fn)
}

// SignIn binds the named identity. The credential is used as the identity ID.
func (p *LocalProvider) SignIn(ctx context.Context, credential string) (cart.Identity, error) {
	uid := strings.TrimSpace(credential)
	if uid == "" {
		return cart.Identity{}, cart.NewPreconditionError("sign in", "", "credential is empty")
	}
	if err := ctx.Err(); err != nil {
		return cart.Identity{}, cart.NewIdentityError("sign in", err)
	}
	id := cart.Identity{ID: uid}
	if err := p.sess.set(&id); err != nil {
		return cart.Identity{}, cart.NewIdentityError("sign in", err)
	}
	return id, nil
}

// SignOut clears the session and notifies subscribers with nil.
func (p *LocalProvider) SignOut(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return cart.NewIdentityError("sign out", err)
	}
	if err := p.sess.set(nil); err != nil {
		return cart.NewIdentityError("sign out", err)
	}
	return nil
}
