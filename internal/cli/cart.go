package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/roach88/cartsync/internal/cart"
)

// AddOptions holds flags for the add command.
type AddOptions struct {
	*RootOptions
	Name     string
	Price    string
	ImageURL string
}

// cartAction runs against an open runtime. applied is nil for operations
// that take no item lock.
type cartAction func(ctx context.Context, rt *Runtime) (applied *bool, err error)

// runCart opens the runtime, runs action and prints the refreshed cart.
func runCart(cmd *cobra.Command, opts *RootOptions, failMsg string, action cartAction) error {
	f := opts.formatter(cmd)
	ctx := cmd.Context()

	rt, err := openRuntime(ctx, opts)
	if err != nil {
		return f.Fail(GetExitCode(err), "failed to start", err)
	}
	defer rt.Close()

	applied, err := action(ctx, rt)
	if err != nil {
		return f.Fail(exitCodeFor(err), failMsg, err)
	}

	v := rt.view()
	v.Applied = applied
	return f.Success(v)
}

// exitCodeFor maps operation errors: bad input is a command error,
// anything remote is a failure.
func exitCodeFor(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if cart.IsPreconditionFailed(err) {
		return ExitCommandError
	}
	return ExitFailure
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Refresh and print the cart",
		Long: `Read the bound identity's cart from the store and print it.

Prints "Signed out" when no identity is bound; no identity is created.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCart(cmd, rootOpts, "refresh failed", func(ctx context.Context, rt *Runtime) (*bool, error) {
				return nil, rt.Sync.Refresh(ctx)
			})
		},
	}
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AddOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add <product-id>",
		Short: "Add one unit of a product",
		Long: `Add one unit of a product to the cart, creating the line item if absent.

The first write of a signed-out session creates an anonymous identity.

Examples:
  cartsync add apple --name Apple --price 1.50
  cartsync add apple --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			price := decimal.Zero
			if opts.Price != "" {
				p, err := decimal.NewFromString(opts.Price)
				if err != nil {
					return opts.formatter(cmd).Fail(ExitCommandError, "invalid --price", err)
				}
				price = p
			}
			item := cart.Item{ProductID: args[0], Name: opts.Name, Price: price, ImageURL: opts.ImageURL}

			return runCart(cmd, rootOpts, "add failed", func(ctx context.Context, rt *Runtime) (*bool, error) {
				applied, err := rt.Sync.AddToCart(ctx, item)
				return &applied, err
			})
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "display name")
	cmd.Flags().StringVar(&opts.Price, "price", "", "unit price (decimal)")
	cmd.Flags().StringVar(&opts.ImageURL, "image", "", "image URL")

	return cmd
}

// itemCommand builds inc, dec and remove: they act on a line item already
// in the cart.
func itemCommand(rootOpts *RootOptions, use, short, failMsg string, op func(*Runtime) func(context.Context, cart.Item) (bool, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <product-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCart(cmd, rootOpts, failMsg, func(ctx context.Context, rt *Runtime) (*bool, error) {
				it, err := rt.lineItem(ctx, args[0])
				if err != nil {
					return nil, err
				}
				applied, err := op(rt)(ctx, it)
				return &applied, err
			})
		},
	}
}

// NewIncCommand creates the inc command.
func NewIncCommand(rootOpts *RootOptions) *cobra.Command {
	return itemCommand(rootOpts, "inc", "Increase a line item's quantity by one", "increment failed",
		func(rt *Runtime) func(context.Context, cart.Item) (bool, error) { return rt.Sync.Increment })
}

// NewDecCommand creates the dec command.
func NewDecCommand(rootOpts *RootOptions) *cobra.Command {
	return itemCommand(rootOpts, "dec", "Decrease a line item's quantity by one (removes it at zero)", "decrement failed",
		func(rt *Runtime) func(context.Context, cart.Item) (bool, error) { return rt.Sync.Decrement })
}

// NewRemoveCommand creates the remove command.
func NewRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	return itemCommand(rootOpts, "remove", "Remove a line item", "remove failed",
		func(rt *Runtime) func(context.Context, cart.Item) (bool, error) { return rt.Sync.RemoveItem })
}

// NewClearCommand creates the clear command.
func NewClearCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every line item",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCart(cmd, rootOpts, "clear failed", func(ctx context.Context, rt *Runtime) (*bool, error) {
				return nil, rt.Sync.ClearCart(ctx)
			})
		},
	}
}

// NewLoginCommand creates the login command.
func NewLoginCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "login <credential>",
		Short: "Sign in and switch to that user's cart",
		Long: `Sign in and switch to the user's cart.

With the sqlite backend the credential is the user ID. With the firestore
backend it is a Firebase ID token.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCart(cmd, rootOpts, "login failed", func(ctx context.Context, rt *Runtime) (*bool, error) {
				id, err := rt.Provider.SignIn(ctx, args[0])
				if err != nil {
					return nil, err
				}
				rt.Resolver.Adopt(ctx, &id)
				rt.Logger.Info("signed in", "identity", id.ID, "anonymous", id.Anonymous)
				return nil, rt.Sync.Refresh(ctx)
			})
		},
	}
}

// NewLogoutCommand creates the logout command.
func NewLogoutCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out; the cart view is emptied, the stored cart is kept",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCart(cmd, rootOpts, "logout failed", func(ctx context.Context, rt *Runtime) (*bool, error) {
				if err := rt.Provider.SignOut(ctx); err != nil {
					return nil, fmt.Errorf("sign out: %w", err)
				}
				rt.Resolver.Adopt(ctx, nil)
				rt.Sync.Reset()
				return nil, nil
			})
		},
	}
}
