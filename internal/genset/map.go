package genset

// SliceMap applies f to each element of slice in order, returning the
// results. The relocator uses it to build a Handle's new chunk slice from
// its old one in one pass.
func SliceMap[T1, T2 any](slice []T1, f func(T1) T2) []T2 {
	if slice == nil {
		return nil
	}

	result := make([]T2, len(slice))
	for i, v := range slice {
		result[i] = f(v)
	}
	return result
}
