package cmp

// check a == b
func MapEq[K comparable, V comparable](a map[K]V, b map[K]V) bool {
	return len(a) == len(b) && MapLeq(a, b)
}

// check a ⊆ b
func MapLeq[K comparable, V comparable](a map[K]V, b map[K]V) bool {
	for key, va := range a {
		if vb, ok := b[key]; !ok || vb != va {
			return false
		}
	}
	return true
}

// check b ⊆ a
func MapGeq[K comparable, V comparable](a map[K]V, b map[K]V) bool {
	return MapLeq(b, a)
}
