package stamps

import (
	"sort"
	"strconv"
	"strings"
)

// FormatComposition renders a composition as "84x1, 63x2", largest
// denomination first.
func FormatComposition(composition map[int]int) string {
	denominations := make([]int, 0, len(composition))
	for d := range composition {
		denominations = append(denominations, d)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(denominations)))

	tokens := make([]string, 0, len(denominations))
	for _, d := range denominations {
		tokens = append(tokens, strconv.Itoa(d)+"x"+strconv.Itoa(composition[d]))
	}
	return strings.Join(tokens, ", ")
}
