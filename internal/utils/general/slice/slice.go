package slice

// Contains reports whether str is an element of slice.
func Contains(slice []string, str string) bool {
	for _, item := range slice {
		if item == str {
			return true
		}
	}
	return false
}

// ToSet returns the elements of slice as a set.
func ToSet(slice []string) map[string]struct{} {
	set := make(map[string]struct{}, len(slice))
	for _, item := range slice {
		set[item] = struct{}{}
	}
	return set
}

// Subtract returns the elements of a that are not in b, keeping the order of a.
func Subtract(a, b []string) []string {
	exclude := ToSet(b)
	result := []string{}
	for _, item := range a {
		if _, ok := exclude[item]; !ok {
			result = append(result, item)
		}
	}
	return result
}
