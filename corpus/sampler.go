package corpus

import (
	"errors"
	"fmt"
	"math/rand"

	mapset "github.com/deckarep/golang-set"
)

// ErrInsufficientSequence is returned when a draw target exceeds the
// total length of the candidate chunks. Without this check the draw
// loop could never terminate.
var ErrInsufficientSequence = errors.New("corpus: draw target exceeds available sequence")

// Sample selects a random subset of chunks without replacement until
// the combined length of the selection reaches targetBytes. Indices
// are consumed from the end of a single random permutation; the used
// set guards against ever selecting the same index twice.
func Sample(rng *rand.Rand, chunks []string, targetBytes int64) ([]string, error) {
	if targetBytes <= 0 {
		return nil, nil
	}
	var available int64
	for _, chunk := range chunks {
		available += int64(len(chunk))
	}
	if targetBytes > available {
		return nil, fmt.Errorf("%w: need %d bytes, have %d in %d chunks",
			ErrInsufficientSequence, targetBytes, available, len(chunks))
	}

	perm := rng.Perm(len(chunks))
	used := mapset.NewSet()
	var (
		selected []string
		total    int64
	)
	for i := len(perm) - 1; i >= 0 && total < targetBytes; i-- {
		idx := perm[i]
		if used.Contains(idx) {
			continue
		}
		used.Add(idx)
		selected = append(selected, chunks[idx])
		total += int64(len(chunks[idx]))
	}
	return selected, nil
}
