package corpus

import (
	"math/rand"
)

// maxNFraction bounds the share of unknown bases tolerated in an
// accepted chunk.
const maxNFraction = 0.2

// Split walks sequence left to right, carving randomly sized chunks.
// At each position a coin flip decides between taking exactly maxLen
// characters and taking a uniform length in [minLen, maxLen]. The
// cursor always advances by the length taken, so a rejected region is
// skipped rather than retried. A chunk is accepted only when it is at
// least minLen long, contains nothing outside {A,C,G,T,N}, and its N
// fraction does not exceed 20%.
//
// Output is reproducible for a given rng seed; sequences shorter than
// minLen yield no chunks.
func Split(rng *rand.Rand, sequence string, minLen, maxLen int) []string {
	var chunks []string
	n := len(sequence)
	s := 0
	for s < n {
		take := maxLen
		if rng.Intn(2) == 1 {
			take = minLen + rng.Intn(maxLen-minLen+1)
		}
		end := s + take
		if end > n {
			end = n
		}
		sub := sequence[s:end]
		s += take

		if len(sub) < minLen {
			continue
		}
		if !validChunk(sub) {
			continue
		}
		chunks = append(chunks, sub)
	}
	return chunks
}

func validChunk(sub string) bool {
	nCount := 0
	for i := 0; i < len(sub); i++ {
		switch sub[i] {
		case 'A', 'C', 'G', 'T':
		case 'N':
			nCount++
		default:
			return false
		}
	}
	return float64(nCount)/float64(len(sub)) <= maxNFraction
}

// BreakOnGaps splits an uppercased sequence on runs of at least gapLen
// consecutive N. Long N runs in unmasked assemblies denote unassembled
// gaps or masked repeats and must not end up inside a chunk walk.
func BreakOnGaps(sequence string, gapLen int) []string {
	var fragments []string
	start := 0
	i := 0
	for i < len(sequence) {
		if sequence[i] != 'N' {
			i++
			continue
		}
		runStart := i
		for i < len(sequence) && sequence[i] == 'N' {
			i++
		}
		if i-runStart >= gapLen {
			if runStart > start {
				fragments = append(fragments, sequence[start:runStart])
			}
			start = i
		}
	}
	if start < len(sequence) {
		fragments = append(fragments, sequence[start:])
	}
	return fragments
}
