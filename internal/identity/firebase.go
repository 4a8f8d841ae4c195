package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"github.com/roach88/cartsync/internal/cart"
)

// signInProviderAnonymous is the firebase.sign_in_provider claim of an
// anonymous Firebase user.
const signInProviderAnonymous = "anonymous"

// AuthClient is the subset of *auth.Client the FirebaseProvider uses.
type AuthClient interface {
	CreateUser(ctx context.Context, user *auth.UserToCreate) (*auth.UserRecord, error)
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

var _ AuthClient = (*auth.Client)(nil)

// NewAuthClient initializes a Firebase app for projectID and returns its
// Auth client. credentialsFile may be empty to use application default
// credentials (or the Auth emulator when FIREBASE_AUTH_EMULATOR_HOST is set).
func NewAuthClient(ctx context.Context, projectID, credentialsFile string) (*auth.Client, error) {
	var opts []option.ClientOption
	if cf := strings.TrimSpace(credentialsFile); cf != "" {
		opts = append(opts, option.WithCredentialsFile(cf))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase app init (project=%s): %w", projectID, err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase auth init: %w", err)
	}
	return client, nil
}

// FirebaseProvider resolves identities against Firebase Authentication.
//
// CreateAnonymous creates a provider-less Firebase user, which is what the
// client SDK's anonymous sign-in does server-side. SignIn takes a Firebase
// ID token obtained by a client and binds its UID.
type FirebaseProvider struct {
	client AuthClient
	sess   *session
	ids    IDGenerator
}

var (
	_ Provider      = (*FirebaseProvider)(nil)
	_ Authenticator = (*FirebaseProvider)(nil)
)

// NewFirebaseProvider wraps client. The session is persisted at sessionPath
// the same way LocalProvider does it. UIDs for anonymous users are minted
// with the configured IDGenerator (UUIDv7 by default).
func NewFirebaseProvider(client AuthClient, sessionPath string, opts ...LocalOption) (*FirebaseProvider, error) {
	if client == nil {
		return nil, cart.NewIdentityError("firebase", errors.New("auth client is nil"))
	}
	cfg := localConfig{ids: UUIDv7Generator{}}
	for _, opt := range opts {
		opt(&cfg)
	}

	sess, err := newSession(sessionPath, cfg.clock)
	if err != nil {
		return nil, cart.NewIdentityError("load session", err)
	}
	return &FirebaseProvider{client: client, sess: sess, ids: cfg.ids}, nil
}

// Current returns the cached session identity. Firebase has no notion of a
// server-side "current user", so the session file is authoritative.
func (p *FirebaseProvider) Current(ctx context.Context) (*cart.Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, cart.NewIdentityError("current", err)
	}
	return p.sess.get(), nil
}

// CreateAnonymous creates a Firebase user with no sign-in providers.
func (p *FirebaseProvider) CreateAnonymous(ctx context.Context) (cart.Identity, error) {
	params := (&auth.UserToCreate{}).UID(p.ids.Generate())
	rec, err := p.client.CreateUser(ctx, params)
	if err != nil {
		return cart.Identity{}, cart.NewIdentityError("create anonymous", err)
	}
	if rec == nil || rec.UserInfo == nil || strings.TrimSpace(rec.UID) == "" {
		return cart.Identity{}, cart.NewIdentityError("create anonymous", errors.New("firebase returned no uid"))
	}

	id := cart.Identity{ID: strings.TrimSpace(rec.UID), Anonymous: true}
	if err := p.sess.set(&id); err != nil {
		return cart.Identity{}, cart.NewIdentityError("create anonymous", err)
	}
	return id, nil
}

// Subscribe implements Provider.
func (p *FirebaseProvider) Subscribe(fn func(*cart.Identity)) func() {
	return p.sess.subscribe(fn)
}

// SignIn verifies a Firebase ID token and binds its UID.
func (p *FirebaseProvider) SignIn(ctx context.Context, idToken string) (cart.Identity, error) {
	idToken = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(idToken), "Bearer "))
	if idToken == "" {
		return cart.Identity{}, cart.NewPreconditionError("sign in", "", "id token is empty")
	}

	tok, err := p.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return cart.Identity{}, cart.NewIdentityError("sign in", err)
	}
	uid := strings.TrimSpace(tok.UID)
	if uid == "" {
		return cart.Identity{}, cart.NewIdentityError("sign in", errors.New("token has no uid"))
	}

	id := cart.Identity{ID: uid, Anonymous: tok.Firebase.SignInProvider == signInProviderAnonymous}
	if err := p.sess.set(&id); err != nil {
		return cart.Identity{}, cart.NewIdentityError("sign in", err)
	}
	return id, nil
}

// SignOut forgets the session locally. Firebase refresh tokens are left
// alone; revoking them is an account-level action outside this package.
func (p *FirebaseProvider) SignOut(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return cart.NewIdentityError("sign out", err)
	}
	if err := p.sess.set(nil); err != nil {
		return cart.NewIdentityError("sign out", err)
	}
	return nil
}
