package dnn

import (
	"bufio"
	"io"
	"strings"
)

// decodeCTC performs greedy CTC decoding over a steps×classes score matrix.
// Class 0 is the blank; class k maps to vocab[k-1]. Repeated classes are
// collapsed unless separated by a blank.
func decodeCTC(scores []float32, steps, classes int, vocab []string) string {
	if classes < 2 || len(scores) < steps*classes {
		return ""
	}

	var sb strings.Builder
	prev := 0
	for t := 0; t < steps; t++ {
		row := scores[t*classes : (t+1)*classes]
		best := 0
		for k := 1; k < classes; k++ {
			if row[k] > row[best] {
				best = k
			}
		}
		if best != 0 && best != prev && best-1 < len(vocab) {
			sb.WriteString(vocab[best-1])
		}
		prev = best
	}
	return sb.String()
}

// readVocabulary reads one symbol per line, skipping blank lines.
func readVocabulary(r io.Reader) ([]string, error) {
	var vocab []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if s := strings.TrimSpace(sc.Text()); s != "" {
			vocab = append(vocab, s)
		}
	}
	return vocab, sc.Err()
}
