package corpus

import (
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuechaowu/Corpus2DNALLM/genomes"
	"github.com/yuechaowu/Corpus2DNALLM/logger"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func testConfig() Config {
	return Config{
		MaxLength:        50,
		MinLength:        5,
		MinUnmaskedChunk: 10,
		SplitSizeMB:      500,
	}
}

// setupGenomes lays out a two-genome workspace: "alpha" has both
// variants, "beta" is unmasked-only.
func setupGenomes(t *testing.T) (metadata []genomes.Genome, sizes map[string]int64, unmaskedDir, splitMaskDir string) {
	t.Helper()
	root := t.TempDir()
	unmaskedDir = filepath.Join(root, "unmasked")
	splitMaskDir = filepath.Join(root, "split")
	require.NoError(t, os.MkdirAll(unmaskedDir, 0o755))
	require.NoError(t, os.MkdirAll(splitMaskDir, 0o755))

	alphaSeq := strings.Repeat("ACGT", 100)
	writeFile(t, filepath.Join(unmaskedDir, "Alpha.genome.fa"),
		">chr1\n"+alphaSeq+"\n>chr2\n"+strings.Repeat("GATTACA", 60)+"\n")
	writeFile(t, filepath.Join(splitMaskDir, "Alpha.genome_sp.txt"),
		strings.Repeat("ACGTACGT", 40)+"\n"+strings.Repeat("TTGGCCAA", 30)+"\n")
	writeFile(t, filepath.Join(unmaskedDir, "beta.fa"),
		">scaffold\n"+strings.Repeat("CCGGTTAA", 80)+"\n")

	metadata = []genomes.Genome{
		{Name: "Alpha", Key: "alpha", Type: genomes.TypeBoth},
		{Name: "beta", Key: "beta", Type: genomes.TypeUnmaskedOnly},
	}
	sizes = map[string]int64{"alpha": 820, "beta": 640}
	return metadata, sizes, unmaskedDir, splitMaskDir
}

func runWriter(t *testing.T, seed int64) string {
	t.Helper()
	metadata, sizes, unmaskedDir, splitMaskDir := setupGenomes(t)
	outPath := filepath.Join(t.TempDir(), "corpus.txt")

	writer, err := NewWriter(outPath, testConfig(), rand.New(rand.NewSource(seed)), logger.NewNop())
	require.NoError(t, err)
	require.NoError(t, writer.Run(metadata, sizes, unmaskedDir, splitMaskDir))
	require.NoError(t, writer.Close())

	raw, err := os.ReadFile(outPath)
	require.NoError(t, err)
	return string(raw)
}

func TestWriterEndToEnd(t *testing.T) {
	output := runWriter(t, 42)
	lines := strings.Split(strings.TrimRight(output, "\n"), "\n")
	require.NotEmpty(t, lines)

	for _, line := range lines {
		require.NotEmpty(t, line)
		assert.GreaterOrEqual(t, len(line), 5)
		assert.LessOrEqual(t, len(line), 50)
		for i := 0; i < len(line); i++ {
			assert.Contains(t, "ACGTN", string(line[i]))
		}
	}
}

func TestWriterReproducibleWithSameSeed(t *testing.T) {
	assert.Equal(t, runWriter(t, 7), runWriter(t, 7))
}

func TestWriterSkipsMissingGenome(t *testing.T) {
	metadata, sizes, unmaskedDir, splitMaskDir := setupGenomes(t)
	metadata = append(metadata, genomes.Genome{
		Name: "gamma", Key: "gamma", Type: genomes.TypeUnmaskedOnly,
	})
	sizes["gamma"] = 1000

	outPath := filepath.Join(t.TempDir(), "corpus.txt")
	writer, err := NewWriter(outPath, testConfig(), rand.New(rand.NewSource(1)), logger.NewNop())
	require.NoError(t, err)
	require.NoError(t, writer.Run(metadata, sizes, unmaskedDir, splitMaskDir))
	require.NoError(t, writer.Close())

	_, lines := writer.Written()
	assert.Greater(t, lines, int64(0))
}

func TestWriterAbortsOnGenomeMissingFromSizeTable(t *testing.T) {
	metadata, sizes, unmaskedDir, splitMaskDir := setupGenomes(t)
	delete(sizes, "beta")

	outPath := filepath.Join(t.TempDir(), "corpus.txt")
	writer, err := NewWriter(outPath, testConfig(), rand.New(rand.NewSource(1)), logger.NewNop())
	require.NoError(t, err)
	defer writer.Close()

	err = writer.Run(metadata, sizes, unmaskedDir, splitMaskDir)
	assert.ErrorIs(t, err, genomes.ErrUnknownGenome)
}

func TestWriterRejectsBadBounds(t *testing.T) {
	cfg := testConfig()
	cfg.MinLength = 100
	cfg.MaxLength = 50
	_, err := NewWriter(filepath.Join(t.TempDir(), "corpus.txt"), cfg,
		rand.New(rand.NewSource(1)), logger.NewNop())
	assert.Error(t, err)
}
