// internal/workers/conversation/resolve-entity/similarity.go
package resolveentity

// Below this length partial alignment degenerates to substring checks.
const minPartialRunes = 3

func lcsLen(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				cur[j] = prev[j-1] + 1
			case prev[j] >= cur[j-1]:
				cur[j] = prev[j]
			default:
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// ratio is the indel similarity 2*LCS/(len(a)+len(b)).
func ratio(a, b []rune) float64 {
	total := len(a) + len(b)
	if total == 0 {
		return 1
	}
	return float64(2*lcsLen(a, b)) / float64(total)
}

// partialRatio aligns the shorter string against every same-length window
// of the longer one, plus the partial overlaps at both ends.
func partialRatio(a, b []rune) float64 {
	short, long := a, b
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) == 0 {
		return 0
	}
	if len(short) < minPartialRunes {
		return ratio(a, b)
	}

	n := len(short)
	best := 0.0
	for i := 0; i+n <= len(long); i++ {
		if r := ratio(short, long[i:i+n]); r > best {
			best = r
			if best == 1 {
				return 1
			}
		}
	}
	for i := 1; i < n && i < len(long); i++ {
		if r := ratio(short, long[:i]); r > best {
			best = r
		}
		if r := ratio(short, long[len(long)-i:]); r > best {
			best = r
		}
	}
	return best
}

// Similarity is max(ratio, partialRatio) over runes of already-normalized
// strings.
func Similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	r := ratio(ra, rb)
	if p := partialRatio(ra, rb); p > r {
		return p
	}
	return r
}
