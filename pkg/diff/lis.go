package diff

// longestIncreasing returns the positions (indices into seq) of one longest
// strictly increasing subsequence of the non-negative values in seq.
// Negative entries are skipped; they mark unmatched slots.
//
// Patience sorting, O(n log n). Ties resolve toward earlier positions so the
// result is deterministic for a given input.
func longestIncreasing(seq []int) []int {
	// tails[k] is the position in seq of the smallest possible tail value
	// of an increasing subsequence of length k+1.
	tails := make([]int, 0, len(seq))
	prev := make([]int, len(seq))

	for pos, value := range seq {
		if value < 0 {
			prev[pos] = -1
			continue
		}
		// Binary search for the first tail whose value >= value.
		lo, hi := 0, len(tails)
		for lo < hi {
			mid := (lo + hi) / 2
			if seq[tails[mid]] < value {
				lo = mid + 1
			} else {
				hi = mid
			}
		}
		if lo > 0 {
			prev[pos] = tails[lo-1]
		} else {
			prev[pos] = -1
		}
		if lo == len(tails) {
			tails = append(tails, pos)
		} else {
			tails[lo] = pos
		}
	}

	if len(tails) == 0 {
		return nil
	}
	result := make([]int, len(tails))
	pos := tails[len(tails)-1]
	for k := len(tails) - 1; k >= 0; k-- {
		result[k] = pos
		pos = prev[pos]
	}
	return result
}
