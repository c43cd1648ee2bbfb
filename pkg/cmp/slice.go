package cmp

// SliceEq checks a == b, element by element in order.
func SliceEq[T comparable](a []T, b []T) bool {
	return SliceEqWith(a, b, func(x T, y T) bool { return x == y })
}

// SliceEqWith compares two slices element by element with pred.
//
// Lengths must match and pred must hold for every index.
func SliceEqWith[T any, U any](a []T, b []U, pred func(a T, b U) bool) bool {
	if len(a) != len(b) {
		return false
	}
	for nth := range a {
		if !pred(a[nth], b[nth]) {
			return false
		}
	}
	return true
}
