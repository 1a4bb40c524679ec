package dataset

import "math/rand/v2"

// Balance brings a list of originals to exactly quota items. When there are
// enough originals a random subset is taken with no duplicates; otherwise
// every original is kept and random originals are repeated to fill the gap.
// The input slice is never modified.
func Balance[T any](rng *rand.Rand, originals []T, quota int) []T {
	n := len(originals)
	if n == 0 || quota <= 0 {
		return []T{}
	}

	out := make([]T, n, max(n, quota))
	copy(out, originals)

	if n >= quota {
		rng.Shuffle(n, func(i, j int) {
			out[i], out[j] = out[j], out[i]
		})
		return out[:quota]
	}

	for len(out) < quota {
		out = append(out, originals[rng.IntN(n)])
	}
	return out
}
