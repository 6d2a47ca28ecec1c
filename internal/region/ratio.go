package region

// Ratio returns the similarity of a and b on a 0-100 scale.
//
// The score is the normalized Indel similarity (insertions and deletions
// only, no substitutions) computed over runes:
//
//	100 * 2*LCS(a, b) / (len(a) + len(b))
//
// Ratio is symmetric. Two empty strings are identical and score 100.
func Ratio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 100
	}
	return 100 * float64(2*lcsLength(ra, rb)) / float64(total)
}

// lcsLength returns the length of the longest common subsequence of a and b
// using a single rolling row of the DP table.
func lcsLength(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	if len(b) > len(a) {
		a, b = b, a
	}

	row := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		diag := 0 // row[j-1] from the previous iteration of i
		for j := 1; j <= len(b); j++ {
			up := row[j]
			if a[i-1] == b[j-1] {
				row[j] = diag + 1
			} else if row[j-1] > up {
				row[j] = row[j-1]
			}
			diag = up
		}
	}
	return row[len(b)]
}
