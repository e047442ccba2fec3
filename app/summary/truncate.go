package summary

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// truncate keeps at most limit runes of text. The cut moves back to the last
// whitespace when that keeps more than half of the allowance.
func truncate(text string, limit int) (string, bool) {
	if limit <= 0 {
		return "", text != ""
	}
	if utf8.RuneCountInString(text) <= limit {
		return text, false
	}

	cut := 0
	for i := range text {
		if limit == 0 {
			cut = i
			break
		}
		limit--
	}
	head := text[:cut]

	if idx := strings.LastIndexFunc(head, unicode.IsSpace); idx > len(head)/2 {
		head = head[:idx]
	}
	return strings.TrimRightFunc(head, unicode.IsSpace), true
}

// allocate splits budget runes across texts of the given lengths. Every text
// gets an equal share; whatever short texts leave unused is handed to the
// longer ones in input order.
func allocate(lengths []int, budget int) []int {
	shares := make([]int, len(lengths))
	if len(lengths) == 0 || budget <= 0 {
		return shares
	}

	remaining := budget
	pending := make([]int, 0, len(lengths))
	for i := range lengths {
		pending = append(pending, i)
	}

	for len(pending) > 0 && remaining > 0 {
		share := remaining / len(pending)
		extra := remaining % len(pending)

		var next []int
		satisfied := false
		for _, i := range pending {
			if lengths[i]-shares[i] <= share {
				remaining -= lengths[i] - shares[i]
				shares[i] = lengths[i]
				satisfied = true
				continue
			}
			next = append(next, i)
		}

		if !satisfied {
			for n, i := range next {
				give := share
				if n < extra {
					give++
				}
				shares[i] += give
				remaining -= give
			}
			break
		}
		pending = next
	}

	return shares
}
