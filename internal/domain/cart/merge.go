// internal/domain/cart/merge.go
package cart

// Line is the storage-neutral view of a cart line used by the merge logic.
// Both the database-backed user cart and the Redis guest cart convert to it.
type Line struct {
	ProductID uint
	Variant   string
	Quantity  int
	Price     int64
}

// Key identifies a line within a cart
type Key struct {
	ProductID uint
	Variant   string
}

// LineKey returns the identity key of a line
func (l Line) LineKey() Key {
	return Key{ProductID: l.ProductID, Variant: l.Variant}
}

// MergeLines combines guest and server cart lines into one deduplicated set.
// Colliding identity keys have their quantities summed and clamped to
// MaxQuantityPerLine; the server line's price snapshot wins because ownership
// transfers to the server-backed store. Server lines keep their relative
// order, new guest lines are appended in theirs. Inputs are not mutated.
func MergeLines(guestLines, serverLines []Line) []Line {
	merged := make([]Line, 0, len(serverLines)+len(guestLines))
	index := make(map[Key]int, len(serverLines)+len(guestLines))

	appendOrSum := func(l Line, preferExistingPrice bool) {
		if l.Quantity <= 0 {
			return
		}
		key := l.LineKey()
		if i, ok := index[key]; ok {
			merged[i].Quantity = clampQuantity(merged[i].Quantity + l.Quantity)
			if !preferExistingPrice {
				merged[i].Price = l.Price
			}
			return
		}
		l.Quantity = clampQuantity(l.Quantity)
		index[key] = len(merged)
		merged = append(merged, l)
	}

	for _, l := range serverLines {
		appendOrSum(l, false)
	}
	for _, l := range guestLines {
		appendOrSum(l, true)
	}

	return merged
}

// Reconcile applies the login-time reconciliation rule: a non-empty server
// cart is authoritative and absorbs the guest cart; an empty server cart is
// replaced by the guest cart wholesale.
func Reconcile(guestLines, serverLines []Line) []Line {
	if len(serverLines) == 0 {
		return MergeLines(guestLines, nil)
	}
	return MergeLines(guestLines, serverLines)
}

func clampQuantity(q int) int {
	if q > MaxQuantityPerLine {
		return MaxQuantityPerLine
	}
	return q
}
