package genomes

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const statsFasta = ">chr1\nACGTACGT\nACGT\n>chr2\nAC\n>chr3\nACGTACGTAC\n"

func TestFastaStats(t *testing.T) {
	path := writeTemp(t, "genome.fa", statsFasta)

	stats, err := FastaStats(path)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.NumSeqs)
	assert.Equal(t, int64(24), stats.SumLen)
	assert.Equal(t, int64(2), stats.MinLen)
	assert.Equal(t, int64(8), stats.AvgLen)
	assert.Equal(t, int64(10), stats.MaxLen)
}

func TestFastaStatsGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genome.fa.gz")
	fh, err := os.Create(path)
	require.NoError(t, err)
	gw := gzip.NewWriter(fh)
	_, err = gw.Write([]byte(statsFasta))
	require.NoError(t, err)
	require.NoError(t, gw.Close())
	require.NoError(t, fh.Close())

	stats, err := FastaStats(path)
	require.NoError(t, err)
	assert.Equal(t, int64(24), stats.SumLen)
}

func TestFastaStatsEmptyFile(t *testing.T) {
	path := writeTemp(t, "empty.fa", "")
	_, err := FastaStats(path)
	assert.ErrorIs(t, err, ErrNoSequences)
}

func TestStatsCache(t *testing.T) {
	path := writeTemp(t, "genome.fa", statsFasta)
	cache, err := NewStatsCache(4)
	require.NoError(t, err)

	first, err := cache.Stats(path)
	require.NoError(t, err)

	// A second lookup is served from the cache: removing the file
	// must not matter.
	require.NoError(t, os.Remove(path))
	second, err := cache.Stats(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
