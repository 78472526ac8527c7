package utils

func CopySlice[T any](s []T) []T {
	sliceCopy := make([]T, len(s))
	copy(sliceCopy, s)

	return sliceCopy
}

func MapSlice[T any, U any](s []T, mapper func(e T) U) []U {
	result := make([]U, len(s))

	for i, e := range s {
		result[i] = mapper(e)
	}

	return result
}

// ShrinkSliceIfWastedCapacity returns a copy of s with a smaller capacity if the capacity of s is at least
// minShrinkableLength and more than divider times its length. s is returned unchanged otherwise.
func ShrinkSliceIfWastedCapacity[T any](s []T, minShrinkableLength int, divider int) []T {
	if cap(s) < minShrinkableLength || len(s) > cap(s)/divider {
		return s
	}

	newCap := cap(s) / divider
	if newCap < len(s) {
		newCap = len(s)
	}

	shrinked := make([]T, len(s), newCap)
	copy(shrinked, s)

	//clear the old backing array so that references are not retained.
	var zero T
	for i := range s {
		s[i] = zero
	}

	return shrinked
}
