package corpus

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func repeatPattern(pattern string, length int) string {
	var sb strings.Builder
	for sb.Len() < length {
		sb.WriteString(pattern)
	}
	return sb.String()[:length]
}

func TestSplitChunkBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	sequence := repeatPattern("ACGT", 100000)
	chunks := Split(rng, sequence, 5, 4000)
	require.NotEmpty(t, chunks)
	for _, chunk := range chunks {
		assert.GreaterOrEqual(t, len(chunk), 5)
		assert.LessOrEqual(t, len(chunk), 4000)
	}
}

func TestSplitAlphabetAndNFraction(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	// Mix of valid regions, heavy-N regions and invalid characters.
	sequence := repeatPattern("ACGT", 5000) +
		strings.Repeat("N", 5000) +
		repeatPattern("ACGTX", 5000) +
		repeatPattern("ACGTN", 5000)
	chunks := Split(rng, sequence, 5, 200)
	require.NotEmpty(t, chunks)
	for _, chunk := range chunks {
		nCount := 0
		for i := 0; i < len(chunk); i++ {
			switch chunk[i] {
			case 'A', 'C', 'G', 'T':
			case 'N':
				nCount++
			default:
				t.Fatalf("invalid character %q in chunk", chunk[i])
			}
		}
		assert.LessOrEqual(t, float64(nCount)/float64(len(chunk)), 0.2)
	}
}

func TestSplitShortSequenceYieldsNothing(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	assert.Empty(t, Split(rng, "ACG", 5, 4000))
	assert.Empty(t, Split(rng, "", 5, 4000))
}

func TestSplitWalkCoversSequenceWithoutOverlap(t *testing.T) {
	// With min == max the walk is deterministic: every step takes
	// exactly max characters, so accepted chunks must tile the
	// sequence without overlap.
	rng := rand.New(rand.NewSource(3))
	sequence := repeatPattern("ACGT", 1000)
	chunks := Split(rng, sequence, 100, 100)
	require.Len(t, chunks, 10)
	assert.Equal(t, sequence, strings.Join(chunks, ""))
}

func TestSplitRejectedRegionsAreSkippedNotRetried(t *testing.T) {
	// An all-invalid sequence must produce nothing but still
	// terminate: the cursor advances past rejected chunks.
	rng := rand.New(rand.NewSource(9))
	sequence := strings.Repeat("X", 50000)
	assert.Empty(t, Split(rng, sequence, 5, 4000))
}

func TestSplitReproducibleWithSameSeed(t *testing.T) {
	sequence := repeatPattern("ACGTN", 50000)
	first := Split(rand.New(rand.NewSource(11)), sequence, 5, 500)
	second := Split(rand.New(rand.NewSource(11)), sequence, 5, 500)
	assert.Equal(t, first, second)
}

func TestBreakOnGaps(t *testing.T) {
	gap := strings.Repeat("N", 12)
	sequence := "ACGTACGT" + gap + "TTTT" + gap + "GGGG"
	fragments := BreakOnGaps(sequence, 10)
	assert.Equal(t, []string{"ACGTACGT", "TTTT", "GGGG"}, fragments)
}

func TestBreakOnGapsKeepsShortRuns(t *testing.T) {
	sequence := "ACGT" + strings.Repeat("N", 5) + "TTTT"
	fragments := BreakOnGaps(sequence, 10)
	assert.Equal(t, []string{sequence}, fragments)
}

func TestBreakOnGapsAllGap(t *testing.T) {
	assert.Empty(t, BreakOnGaps(strings.Repeat("N", 100), 10))
}
