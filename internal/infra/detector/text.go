package detector

import (
	"iter"
	"math"
	"strings"
)

// lines yields each line of content with its 1-based number. Trailing
// carriage returns are dropped and a final newline does not produce an empty
// line.
func lines(content string) iter.Seq2[int, string] {
	return func(yield func(int, string) bool) {
		n := 1
		for content != "" {
			line, rest, found := strings.Cut(content, "\n")
			if !yield(n, strings.TrimSuffix(line, "\r")) {
				return
			}
			if !found {
				return
			}
			content = rest
			n++
		}
	}
}

// shannonEntropy returns the base-2 Shannon entropy of data computed over its
// byte frequencies.
func shannonEntropy[T ~string | ~[]byte](data T) float64 {
	if len(data) == 0 {
		return 0
	}

	var counts [256]int
	for i := 0; i < len(data); i++ {
		counts[data[i]]++
	}

	n := float64(len(data))
	var h float64
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / n
		h -= p * math.Log2(p)
	}
	return h
}
