package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/roach88/cartsync/internal/cart"
)

func TestUpsertOrIncrement_CreatesItem(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if err := s.UpsertOrIncrement(ctx, "user-1", createTestItem("apple", "1.50", 2)); err != nil {
		t.Fatalf("UpsertOrIncrement() failed: %v", err)
	}

	got, err := s.getItem(ctx, "user-1", "apple")
	if err != nil {
		t.Fatalf("getItem() failed: %v", err)
	}
	if got.Quantity != 2 {
		t.Errorf("quantity = %d, want 2", got.Quantity)
	}
	if !got.Price.Equal(decimal.RequireFromString("1.5")) {
		t.Errorf("price = %s, want 1.5", got.Price)
	}
	if got.ImageURL != "https://img.example/apple.png" {
		t.Errorf("image_url = %q", got.ImageURL)
	}
	if got.UpdatedAt.IsZero() {
		t.Error("updated_at should be assigned by the store")
	}
}

func TestUpsertOrIncrement_DefaultQuantityIsOne(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if err := s.UpsertOrIncrement(ctx, "user-1", createTestItem("apple", "1.00", 0)); err != nil {
		t.Fatalf("UpsertOrIncrement() failed: %v", err)
	}

	got, err := s.getItem(ctx, "user-1", "apple")
	if err != nil {
		t.Fatalf("getItem() failed: %v", err)
	}
	if got.Quantity != 1 {
		t.Errorf("quantity = %d, want 1", got.Quantity)
	}
}

func TestUpsertOrIncrement_IncrementsExisting(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if err := s.UpsertOrIncrement(ctx, "user-1", createTestItem("apple", "1.50", 2)); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}

	// Second write carries a different name and price; only quantity moves.
	second := createTestItem("apple", "9.99", 1)
	second.Name = "renamed"
	if err := s.UpsertOrIncrement(ctx, "user-1", second); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	got, err := s.getItem(ctx, "user-1", "apple")
	if err != nil {
		t.Fatalf("getItem() failed: %v", err)
	}
	if got.Quantity != 3 {
		t.Errorf("quantity = %d, want 3", got.Quantity)
	}
	if got.Name != "apple" {
		t.Errorf("name = %q, want original %q", got.Name, "apple")
	}
	if !got.Price.Equal(decimal.RequireFromString("1.50")) {
		t.Errorf("price = %s, want 1.50", got.Price)
	}
}

func TestUpsertOrIncrement_RejectsInvalidItem(t *testing.T) {
	s := createTestStore(t)

	err := s.UpsertOrIncrement(context.Background(), "user-1", createTestItem("", "1.00", 1))
	if err == nil {
		t.Fatal("expected error for empty product id")
	}
}

func TestUpsertOrIncrement_ConcurrentWritersLoseNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.db")

	// Two handles on the same file behave like two clients of one server.
	a, err := Open(path)
	if err != nil {
		t.Fatalf("Open(a) failed: %v", err)
	}
	defer a.Close()
	b, err := Open(path)
	if err != nil {
		t.Fatalf("Open(b) failed: %v", err)
	}
	defer b.Close()

	ctx := context.Background()
	const perWriter = 25

	var wg sync.WaitGroup
	errs := make(chan error, 2*perWriter)
	for _, s := range []*Store{a, b} {
		wg.Add(1)
		go func(s *Store) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				if err := s.UpsertOrIncrement(ctx, "user-1", createTestItem("apple", "1.00", 1)); err != nil {
					errs <- err
				}
			}
		}(s)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent upsert failed: %v", err)
	}

	got, err := a.getItem(ctx, "user-1", "apple")
	if err != nil {
		t.Fatalf("getItem() failed: %v", err)
	}
	if got.Quantity != 2*perWriter {
		t.Errorf("quantity = %d, want %d", got.Quantity, 2*perWriter)
	}
}

func TestSetQuantity_MergesQuantity(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if err := s.UpsertOrIncrement(ctx, "user-1", createTestItem("apple", "1.50", 5)); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if err := s.SetQuantity(ctx, "user-1", "apple", 2); err != nil {
		t.Fatalf("SetQuantity() failed: %v", err)
	}

	got, err := s.getItem(ctx, "user-1", "apple")
	if err != nil {
		t.Fatalf("getItem() failed: %v", err)
	}
	if got.Quantity != 2 {
		t.Errorf("quantity = %d, want 2", got.Quantity)
	}
	if got.Name != "apple" || got.ImageURL == "" {
		t.Errorf("unspecified fields were not preserved: %+v", got)
	}
}

func TestSetQuantity_ZeroDeletes(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, qty := range []int{0, -3} {
		if err := s.UpsertOrIncrement(ctx, "user-1", createTestItem("pear", "2.00", 1)); err != nil {
			t.Fatalf("upsert failed: %v", err)
		}
		if err := s.SetQuantity(ctx, "user-1", "pear", qty); err != nil {
			t.Fatalf("SetQuantity(%d) failed: %v", qty, err)
		}
		if _, err := s.getItem(ctx, "user-1", "pear"); err != sql.ErrNoRows {
			t.Errorf("SetQuantity(%d): item still present (err=%v)", qty, err)
		}
	}
}

func TestSetQuantity_AbsentItemIsNoop(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if err := s.SetQuantity(ctx, "user-1", "ghost", 4); err != nil {
		t.Fatalf("SetQuantity() on absent item failed: %v", err)
	}

	items, err := s.ListItems(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListItems() failed: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("len(items) = %d, want 0", len(items))
	}
}

func TestDeleteItem_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if err := s.UpsertOrIncrement(ctx, "user-1", createTestItem("apple", "1.00", 1)); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := s.DeleteItem(ctx, "user-1", "apple"); err != nil {
			t.Fatalf("DeleteItem() call %d failed: %v", i+1, err)
		}
	}
	if _, err := s.getItem(ctx, "user-1", "apple"); err != sql.ErrNoRows {
		t.Errorf("item still present (err=%v)", err)
	}
}

func TestClearAll_RemovesOnlyThatIdentity(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"apple", "pear", "plum"} {
		if err := s.UpsertOrIncrement(ctx, "user-1", createTestItem(id, "1.00", 1)); err != nil {
			t.Fatalf("upsert %s failed: %v", id, err)
		}
	}
	if err := s.UpsertOrIncrement(ctx, "user-2", createTestItem("apple", "1.00", 1)); err != nil {
		t.Fatalf("upsert user-2 failed: %v", err)
	}

	if err := s.ClearAll(ctx, "user-1"); err != nil {
		t.Fatalf("ClearAll() failed: %v", err)
	}

	items, err := s.ListItems(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListItems() failed: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("user-1 has %d items after clear, want 0", len(items))
	}

	other, err := s.ListItems(ctx, "user-2")
	if err != nil {
		t.Fatalf("ListItems(user-2) failed: %v", err)
	}
	if len(other) != 1 {
		t.Errorf("user-2 has %d items, want 1", len(other))
	}
}

func TestClearAll_PartialFailureKeepsOthersDeleted(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"apple", "pear", "plum"} {
		if err := s.UpsertOrIncrement(ctx, "user-1", createTestItem(id, "1.00", 1)); err != nil {
			t.Fatalf("upsert %s failed: %v", id, err)
		}
	}
	_, err := s.db.Exec(`
		CREATE TRIGGER refuse_pear_delete BEFORE DELETE ON cart_items
		WHEN OLD.product_id = 'pear'
		BEGIN SELECT RAISE(ABORT, 'pear is pinned'); END
	`)
	if err != nil {
		t.Fatalf("create trigger failed: %v", err)
	}

	err = s.ClearAll(ctx, "user-1")
	if err == nil {
		t.Fatal("ClearAll() succeeded, want error for pear")
	}
	if !cart.IsStoreUnavailable(err) {
		t.Errorf("ClearAll() error = %v, want STORE_UNAVAILABLE", err)
	}

	items, err := s.ListItems(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListItems() failed: %v", err)
	}
	if len(items) != 1 || items[0].ProductID != "pear" {
		t.Errorf("items after partial clear = %v, want only pear", items)
	}
}

func TestClearAll_EmptyCart(t *testing.T) {
	s := createTestStore(t)

	if err := s.ClearAll(context.Background(), "nobody"); err != nil {
		t.Fatalf("ClearAll() on empty cart failed: %v", err)
	}
}

func TestListItems_OrderedAndEmptyNotNil(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	items, err := s.ListItems(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListItems() failed: %v", err)
	}
	if items == nil {
		t.Error("ListItems() returned nil, want empty slice")
	}

	for _, id := range []string{"plum", "apple", "pear"} {
		if err := s.UpsertOrIncrement(ctx, "user-1", createTestItem(id, "1.00", 1)); err != nil {
			t.Fatalf("upsert %s failed: %v", id, err)
		}
	}

	items, err = s.ListItems(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListItems() failed: %v", err)
	}
	want := []string{"apple", "pear", "plum"}
	if len(items) != len(want) {
		t.Fatalf("len(items) = %d, want %d", len(items), len(want))
	}
	for i, id := range want {
		if items[i].ProductID != id {
			t.Errorf("items[%d] = %q, want %q", i, items[i].ProductID, id)
		}
	}
}

func TestQuantityCheckConstraint(t *testing.T) {
	s := createTestStore(t)

	_, err := s.db.Exec(`
		INSERT INTO cart_items (identity_id, product_id, name, price, quantity)
		VALUES ('user-1', 'apple', 'apple', '1.00', 0)
	`)
	if err == nil {
		t.Fatal("expected CHECK constraint to reject quantity 0")
	}
}

func TestEnsureCart_CreateIfAbsent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	ok, err := s.HasCart(ctx, "user-1")
	if err != nil {
		t.Fatalf("HasCart() failed: %v", err)
	}
	if ok {
		t.Fatal("cart should not exist yet")
	}

	for i := 0; i < 2; i++ {
		if err := s.EnsureCart(ctx, "user-1"); err != nil {
			t.Fatalf("EnsureCart() call %d failed: %v", i+1, err)
		}
	}

	ok, err = s.HasCart(ctx, "user-1")
	if err != nil {
		t.Fatalf("HasCart() failed: %v", err)
	}
	if !ok {
		t.Error("cart marker was not created")
	}

	if err := s.EnsureCart(ctx, ""); err == nil {
		t.Error("EnsureCart(\"\") should fail")
	}
}
