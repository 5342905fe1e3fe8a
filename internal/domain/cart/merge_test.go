// internal/domain/cart/merge_test.go
package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeLinesSumsCollidingQuantities(t *testing.T) {
	guest := []Line{
		{ProductID: 1, Quantity: 2, Price: 500},
		{ProductID: 2, Variant: "red", Quantity: 1, Price: 900},
	}
	server := []Line{
		{ProductID: 1, Quantity: 3, Price: 450},
		{ProductID: 3, Quantity: 1, Price: 1200},
	}

	merged := MergeLines(guest, server)

	require.Len(t, merged, 3)

	byKey := indexByKey(merged)
	assert.Equal(t, 5, byKey[Key{ProductID: 1}].Quantity, "colliding quantities are summed, not overwritten")
	assert.Equal(t, int64(450), byKey[Key{ProductID: 1}].Price, "server price snapshot wins on collision")
	assert.Equal(t, 1, byKey[Key{ProductID: 2, Variant: "red"}].Quantity)
	assert.Equal(t, 1, byKey[Key{ProductID: 3}].Quantity)
}

func TestMergeLinesNoKeyLost(t *testing.T) {
	guest := []Line{
		{ProductID: 1, Quantity: 1, Price: 100},
		{ProductID: 2, Quantity: 2, Price: 200},
		{ProductID: 2, Variant: "xl", Quantity: 3, Price: 250},
	}
	server := []Line{
		{ProductID: 3, Quantity: 4, Price: 300},
		{ProductID: 2, Variant: "xl", Quantity: 1, Price: 260},
	}

	merged := MergeLines(guest, server)
	byKey := indexByKey(merged)

	for _, l := range append(append([]Line{}, guest...), server...) {
		_, ok := byKey[l.LineKey()]
		assert.True(t, ok, "key %+v present in an input must survive the merge", l.LineKey())
	}
}

func TestMergeLinesClampsToMaxQuantity(t *testing.T) {
	guest := []Line{{ProductID: 7, Quantity: 8, Price: 100}}
	server := []Line{{ProductID: 7, Quantity: 6, Price: 100}}

	merged := MergeLines(guest, server)

	require.Len(t, merged, 1)
	assert.Equal(t, MaxQuantityPerLine, merged[0].Quantity)
}

func TestMergeLinesClampsOversizedSingleLine(t *testing.T) {
	merged := MergeLines([]Line{{ProductID: 1, Quantity: 25, Price: 100}}, nil)

	require.Len(t, merged, 1)
	assert.Equal(t, MaxQuantityPerLine, merged[0].Quantity)
}

func TestMergeLinesDropsNonPositiveQuantities(t *testing.T) {
	merged := MergeLines(
		[]Line{{ProductID: 1, Quantity: 0, Price: 100}, {ProductID: 2, Quantity: -3, Price: 100}},
		[]Line{{ProductID: 3, Quantity: 1, Price: 100}},
	)

	require.Len(t, merged, 1)
	assert.Equal(t, uint(3), merged[0].ProductID)
}

func TestMergeIdempotentAgainstEmpty(t *testing.T) {
	guest := []Line{
		{ProductID: 1, Quantity: 9, Price: 100},
		{ProductID: 2, Variant: "s", Quantity: 4, Price: 150},
	}
	server := []Line{
		{ProductID: 1, Quantity: 5, Price: 90},
	}

	once := MergeLines(guest, server)
	twice := MergeLines(once, nil)

	assert.Equal(t, once, twice, "merge(merge(G,S), empty) == merge(G,S)")
}

func TestMergeDoesNotMutateInputs(t *testing.T) {
	guest := []Line{{ProductID: 1, Quantity: 8, Price: 100}}
	server := []Line{{ProductID: 1, Quantity: 8, Price: 90}}

	MergeLines(guest, server)

	assert.Equal(t, 8, guest[0].Quantity)
	assert.Equal(t, 8, server[0].Quantity)
}

func TestReconcileEmptyServerAdoptsGuestCart(t *testing.T) {
	guest := []Line{
		{ProductID: 1, Quantity: 2, Price: 100},
		{ProductID: 2, Quantity: 1, Price: 200},
	}

	result := Reconcile(guest, nil)

	require.Len(t, result, 2)
	assert.Equal(t, guest, result)
}

func TestReconcileNonEmptyServerIsAuthoritative(t *testing.T) {
	guest := []Line{{ProductID: 1, Quantity: 1, Price: 110}}
	server := []Line{
		{ProductID: 1, Quantity: 2, Price: 100},
		{ProductID: 5, Quantity: 1, Price: 500},
	}

	result := Reconcile(guest, server)
	byKey := indexByKey(result)

	require.Len(t, result, 2)
	assert.Equal(t, 3, byKey[Key{ProductID: 1}].Quantity, "guest contribution is merged, not dropped")
	assert.Equal(t, int64(100), byKey[Key{ProductID: 1}].Price, "server snapshot kept")
	assert.Equal(t, 1, byKey[Key{ProductID: 5}].Quantity, "server-only line survives")
}

func indexByKey(lines []Line) map[Key]Line {
	m := make(map[Key]Line, len(lines))
	for _, l := range lines {
		m[l.LineKey()] = l
	}
	return m
}
