package domain

// MergeItems collapses lines sharing a (product, size) key into the first
// occurrence, summing quantities up to MaxQuantity and keeping the first
// line's price and AddedAt. changed is false when items already had unique keys, which makes
// a second pass a no-op.
func MergeItems(items []Item) (merged []Item, changed bool) {
	index := make(map[LineKey]int, len(items))
	merged = make([]Item, 0, len(items))
	for _, it := range items {
		if i, ok := index[it.Key()]; ok {
			merged[i].Quantity = min(merged[i].Quantity+it.Quantity, MaxQuantity)
			changed = true
			continue
		}
		index[it.Key()] = len(merged)
		merged = append(merged, it)
	}
	return merged, changed
}
