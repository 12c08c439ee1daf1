package relation

// Resolve splits the ids in set into catalog entries that exist and ids
// that no longer do. Found entries keep the set's order. Missing ids are
// reported but left in the set; see DropMissing.
func Resolve[T any](set *IDSet, catalog []T, id func(T) int64) (found []T, missing []int64) {
	byID := make(map[int64]T, len(catalog))
	for _, item := range catalog {
		byID[id(item)] = item
	}
	found = make([]T, 0, set.Len())
	for _, want := range set.ids {
		if item, ok := byID[want]; ok {
			found = append(found, item)
		} else {
			missing = append(missing, want)
		}
	}
	return found, missing
}

// DropMissing removes every id absent from catalog and returns the removed
// ids. It is the explicit user action for pruning dangling references.
func DropMissing[T any](set *IDSet, catalog []T, id func(T) int64) []int64 {
	_, missing := Resolve(set, catalog, id)
	for _, m := range missing {
		set.Remove(m)
	}
	return missing
}
