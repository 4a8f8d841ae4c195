package fsstore

import (
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cartsync/internal/cart"
)

func TestItemFromData_FullDocument(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	it, ok := itemFromData("apple", map[string]any{
		"name":      "apple",
		"price":     1.5,
		"quantity":  int64(2),
		"imageUrl":  "https://img.example/apple.png",
		"updatedAt": ts,
	})

	require.True(t, ok)
	assert.Equal(t, "apple", it.ProductID)
	assert.Equal(t, "apple", it.Name)
	assert.True(t, decimal.RequireFromString("1.5").Equal(it.Price))
	assert.Equal(t, 2, it.Quantity)
	assert.Equal(t, ts, it.UpdatedAt)
}

func TestItemFromData_LenientTypes(t *testing.T) {
	it, ok := itemFromData(" pear ", map[string]any{
		"name":     "pear",
		"price":    int64(3),
		"quantity": 4.0,
	})

	require.True(t, ok)
	assert.Equal(t, "pear", it.ProductID)
	assert.True(t, decimal.NewFromInt(3).Equal(it.Price))
	assert.Equal(t, 4, it.Quantity)
	assert.Empty(t, it.ImageURL)
	assert.True(t, it.UpdatedAt.IsZero(), "pending server timestamp decodes as zero")
}

func TestItemFromData_SkipsNonPositiveQuantity(t *testing.T) {
	for _, q := range []any{int64(0), int64(-1), nil, "x"} {
		_, ok := itemFromData("apple", map[string]any{"quantity": q})
		assert.False(t, ok, "quantity %v should be skipped", q)
	}

	_, ok := itemFromData("", map[string]any{"quantity": int64(1)})
	assert.False(t, ok, "empty document id should be skipped")

	_, ok = itemFromData("apple", nil)
	assert.False(t, ok)
}

func TestCreateFields(t *testing.T) {
	fields := createFields(cart.Item{
		ProductID: "apple",
		Name:      "apple",
		Price:     decimal.RequireFromString("1.25"),
		Quantity:  1,
	})

	assert.Equal(t, "apple", fields["name"])
	assert.Equal(t, 1.25, fields["price"])
	assert.Equal(t, 1, fields["quantity"])
	assert.Equal(t, "", fields["imageUrl"])
	assert.Equal(t, firestore.ServerTimestamp, fields["updatedAt"])
	assert.NotContains(t, fields, "productId", "product id is the document id")
}

func TestIncrementUpdates(t *testing.T) {
	ups := incrementUpdates(0)

	require.Len(t, ups, 2)
	assert.Equal(t, "quantity", ups[0].Path)
	assert.NotNil(t, ups[0].Value)
	assert.Equal(t, "updatedAt", ups[1].Path)
	assert.Equal(t, firestore.ServerTimestamp, ups[1].Value)
}

func TestStore_NilClient(t *testing.T) {
	var s *Store
	_, err := s.ListItems(testContext(t), "user-1")
	assert.ErrorIs(t, err, errNilClient)

	s = New(nil)
	assert.ErrorIs(t, s.DeleteItem(testContext(t), "user-1", "apple"), errNilClient)
}
