package fsstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/roach88/cartsync/internal/cart"
	"github.com/roach88/cartsync/internal/store"
)

const (
	// DefaultCartsCollection holds one marker document per identity.
	DefaultCartsCollection = "carts"

	// DefaultItemsCollection is the per-cart subcollection of line items.
	DefaultItemsCollection = "cartItems"
)

var errNilClient = errors.New("fsstore: firestore client is nil")

// Store implements store.CartStore using Firestore.
type Store struct {
	Client *firestore.Client

	cartsCollection string
	itemsCollection string
}

var _ store.CartStore = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithCollections overrides the collection names (e.g. for per-test isolation).
func WithCollections(carts, items string) Option {
	return func(s *Store) {
		if c := strings.TrimSpace(carts); c != "" {
			s.cartsCollection = c
		}
		if i := strings.TrimSpace(items); i != "" {
			s.itemsCollection = i
		}
	}
}

// New creates a Store over an existing client. The caller owns the client.
func New(client *firestore.Client, opts ...Option) *Store {
	s := &Store{
		Client:          client,
		cartsCollection: DefaultCartsCollection,
		itemsCollection: DefaultItemsCollection,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) cartRef(identityID string) *firestore.DocumentRef {
	return s.Client.Collection(s.cartsCollection).Doc(identityID)
}

func (s *Store) itemsCol(identityID string) *firestore.CollectionRef {
	return s.cartRef(identityID).Collection(s.itemsCollection)
}

func (s *Store) itemRef(identityID, productID string) *firestore.DocumentRef {
	return s.itemsCol(identityID).Doc(productID)
}

func (s *Store) check(identityID string) error {
	if s == nil || s.Client == nil {
		return errNilClient
	}
	if strings.TrimSpace(identityID) == "" {
		return cart.NewPreconditionError("firestore", "", "identity id is empty")
	}
	return nil
}

// ListItems reads every document in the identity's cartItems subcollection.
func (s *Store) ListItems(ctx context.Context, identityID string) ([]cart.Item, error) {
	if err := s.check(identityID); err != nil {
		return nil, err
	}

	iter := s.itemsCol(identityID).Documents(ctx)
	defer iter.Stop()

	items := []cart.Item{}
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, cart.NewStoreError("list", "", err)
		}
		it, ok := itemFromData(snap.Ref.ID, snap.Data())
		if !ok {
			continue
		}
		items = append(items, it)
	}
	return items, nil
}

// UpsertOrIncrement increments quantity in place when the document exists,
// otherwise creates it. Create races are resolved by retrying the increment:
// if another writer created the document first, Create fails with
// AlreadyExists and the Update path applies our delta on top of theirs.
func (s *Store) UpsertOrIncrement(ctx context.Context, identityID string, item cart.Item) error {
	if err := s.check(identityID); err != nil {
		return err
	}
	if err := item.Validate(); err != nil {
		return err
	}
	it := item.Normalized()
	ref := s.itemRef(identityID, it.ProductID)

	for attempt := 0; attempt < 2; attempt++ {
		_, err := ref.Update(ctx, incrementUpdates(it.Quantity))
		if err == nil {
			return nil
		}
		if status.Code(err) != codes.NotFound {
			return cart.NewStoreError("upsert", it.ProductID, err)
		}

		_, err = ref.Create(ctx, createFields(it))
		if err == nil {
			return nil
		}
		if status.Code(err) != codes.AlreadyExists {
			return cart.NewStoreError("upsert", it.ProductID, err)
		}
	}
	return cart.NewStoreError("upsert", it.ProductID, fmt.Errorf("document kept flipping between absent and present"))
}

// SetQuantity deletes at <= 0, otherwise updates quantity and updatedAt.
// An absent document is left absent (see store.Store.SetQuantity).
func (s *Store) SetQuantity(ctx context.Context, identityID, productID string, quantity int) error {
	if err := s.check(identityID); err != nil {
		return err
	}
	pid := cart.NormalizeProductID(productID)
	if quantity <= 0 {
		return s.DeleteItem(ctx, identityID, pid)
	}

	_, err := s.itemRef(identityID, pid).Update(ctx, []firestore.Update{
		{Path: "quantity", Value: quantity},
		{Path: "updatedAt", Value: firestore.ServerTimestamp},
	})
	if err != nil && status.Code(err) != codes.NotFound {
		return cart.NewStoreError("set quantity", pid, err)
	}
	return nil
}

// DeleteItem deletes the document. Firestore treats deleting a missing
// document as success, which gives us idempotency for free.
func (s *Store) DeleteItem(ctx context.Context, identityID, productID string) error {
	if err := s.check(identityID); err != nil {
		return err
	}
	pid := cart.NormalizeProductID(productID)
	if _, err := s.itemRef(identityID, pid).Delete(ctx); err != nil {
		return cart.NewStoreError("delete", pid, err)
	}
	return nil
}

// ClearAll lists the subcollection and deletes each document concurrently.
func (s *Store) ClearAll(ctx context.Context, identityID string) error {
	if err := s.check(identityID); err != nil {
		return err
	}

	refs, err := s.itemsCol(identityID).DocumentRefs(ctx).GetAll()
	if err != nil {
		return cart.NewStoreError("clear", "", err)
	}

	var g errgroup.Group
	for _, ref := range refs {
		ref := ref
		g.Go(func() error {
			if _, err := ref.Delete(ctx); err != nil {
				return cart.NewStoreError("clear", ref.ID, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// EnsureCart creates carts/{identityId} with a server createdAt if absent.
func (s *Store) EnsureCart(ctx context.Context, identityID string) error {
	if err := s.check(identityID); err != nil {
		return err
	}
	_, err := s.cartRef(identityID).Create(ctx, map[string]any{
		"createdAt": firestore.ServerTimestamp,
	})
	if err != nil && status.Code(err) != codes.AlreadyExists {
		return cart.NewStoreError("ensure cart", "", err)
	}
	return nil
}
