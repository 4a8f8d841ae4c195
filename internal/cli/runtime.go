package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/roach88/cartsync/internal/cart"
	"github.com/roach88/cartsync/internal/cartsync"
	"github.com/roach88/cartsync/internal/config"
	"github.com/roach88/cartsync/internal/feedback"
	"github.com/roach88/cartsync/internal/fsstore"
	"github.com/roach88/cartsync/internal/identity"
	"github.com/roach88/cartsync/internal/metrics"
	"github.com/roach88/cartsync/internal/store"
)

// provider is a Provider that can also sign users in and out.
type provider interface {
	identity.Provider
	identity.Authenticator
}

// Runtime is the wired cart core for one CLI invocation.
type Runtime struct {
	Config   config.Config
	Logger   *slog.Logger
	Store    store.CartStore
	Provider provider
	Resolver *identity.Resolver
	Feedback *feedback.Controller
	Sync     *cartsync.Synchronizer
	Registry *prometheus.Registry

	closers []func() error
}

// loadConfig resolves .env, the config file, the environment and flags,
// in that order of increasing precedence.
func loadConfig(opts *RootOptions) (config.Config, error) {
	if err := config.LoadDotEnv(opts.EnvFile); err != nil {
		return config.Config{}, err
	}
	cfg, err := config.LoadUnvalidated(opts.ConfigPath)
	if err != nil {
		return config.Config{}, err
	}
	if b := strings.TrimSpace(opts.Backend); b != "" {
		cfg.Backend = strings.ToLower(b)
	}
	if opts.Database != "" {
		cfg.Database = opts.Database
	}
	if opts.Session != "" {
		cfg.Session = opts.Session
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// openRuntime builds the store, identity provider, resolver, feedback
// controller and synchronizer from the resolved configuration, and binds
// the session's identity if one is signed in.
func openRuntime(ctx context.Context, opts *RootOptions) (*Runtime, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	rt := &Runtime{Config: cfg, Logger: opts.Logger(), Registry: prometheus.NewRegistry()}
	if err := rt.open(ctx); err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

func (rt *Runtime) open(ctx context.Context) error {
	cfg := rt.Config
	log := rt.Logger

	switch cfg.Backend {
	case config.BackendFirestore:
		client, err := fsstore.NewClient(ctx, cfg.Firestore.ProjectID, cfg.Firestore.CredentialsFile)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to connect to firestore", err)
		}
		rt.closers = append(rt.closers, client.Close)
		rt.Store = fsstore.New(client, fsstore.WithCollections(cfg.Firestore.CartsCollection, cfg.Firestore.ItemsCollection))

		authClient, err := identity.NewAuthClient(ctx, cfg.Firestore.ProjectID, cfg.Firestore.CredentialsFile)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to connect to firebase auth", err)
		}
		p, err := identity.NewFirebaseProvider(authClient, cfg.Session)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load session", err)
		}
		rt.Provider = p
		log.Debug("firestore backend ready", "project", cfg.Firestore.ProjectID)

	default:
		st, err := store.Open(cfg.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		rt.closers = append(rt.closers, st.Close)
		rt.Store = st

		p, err := identity.NewLocalProvider(cfg.Session)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load session", err)
		}
		rt.Provider = p
		log.Debug("sqlite backend ready", "db", cfg.Database)
	}

	m, err := metrics.New(rt.Registry)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to register metrics", err)
	}
	rt.Registry.MustRegister(collectors.NewGoCollector())

	rt.Resolver = identity.NewResolver(rt.Provider, rt.Store, identity.WithLogger(log))
	rt.Feedback = feedback.New(feedback.WithDelays(feedback.Delays{
		Toast:      cfg.Feedback.Toast,
		AddedToast: cfg.Feedback.AddedToast,
		Button:     cfg.Feedback.Button,
		Badge:      cfg.Feedback.Badge,
	}))
	rt.Sync = cartsync.New(rt.Store, rt.Resolver, rt.Feedback,
		cartsync.WithLogger(log),
		cartsync.WithMetrics(m),
	)

	current, err := rt.Provider.Current(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read session", err)
	}
	rt.Resolver.Adopt(ctx, current)
	return nil
}

// Close tears the synchronizer down and releases the backend.
func (rt *Runtime) Close() error {
	if rt.Sync != nil {
		rt.Sync.Close()
	}
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	if err := errors.Join(errs...); err != nil {
		rt.Logger.Error("error closing runtime", "error", err)
		return err
	}
	return nil
}

// lineItem returns the cart's copy of productID after a refresh, the way a
// UI hands back the row the user clicked.
func (rt *Runtime) lineItem(ctx context.Context, productID string) (cart.Item, error) {
	if err := rt.Sync.Refresh(ctx); err != nil {
		return cart.Item{}, err
	}
	it, ok := rt.Sync.Cart().Find(productID)
	if !ok {
		return cart.Item{}, NewExitError(ExitCommandError, fmt.Sprintf("product %q is not in the cart", cart.NormalizeProductID(productID)))
	}
	return it, nil
}
