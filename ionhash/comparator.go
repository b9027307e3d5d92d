package ionhash

// compareFieldDigests implements the total order used to sort a struct's
// per-field digests before they are concatenated into the struct's own
// digest: unsigned lexicographic comparison of octets, with a strict prefix
// comparing less than the longer sequence it prefixes.
func compareFieldDigests(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}
