package tokenizer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuechaowu/Corpus2DNALLM/logger"
)

func trainingLines() []string {
	var lines []string
	for i := 0; i < 50; i++ {
		lines = append(lines,
			strings.Repeat("ACGT", 20),
			strings.Repeat("GATTACA", 10),
			strings.Repeat("TTGGCCAA", 8))
	}
	return lines
}

func trainModel(t *testing.T, vocabSize int) *Model {
	t.Helper()
	trainer := NewTrainer(Config{VocabSize: vocabSize}, logger.NewNop())
	model, err := trainer.Train(trainingLines())
	require.NoError(t, err)
	return model
}

func TestTrainSpecialPieceLayout(t *testing.T) {
	model := trainModel(t, 32)
	require.GreaterOrEqual(t, model.Size(), 3)
	assert.Equal(t, UnkPiece, model.Pieces[UnkID].Text)
	assert.Equal(t, KindUnknown, model.Pieces[UnkID].Kind)
	assert.Equal(t, BosPiece, model.Pieces[BosID].Text)
	assert.Equal(t, KindControl, model.Pieces[BosID].Kind)
	assert.Equal(t, EosPiece, model.Pieces[EosID].Text)
	assert.Equal(t, KindControl, model.Pieces[EosID].Kind)
}

func TestTrainRespectsVocabSize(t *testing.T) {
	model := trainModel(t, 32)
	assert.LessOrEqual(t, model.Size(), 32)
	assert.NotEmpty(t, model.Merges)
}

func TestTrainMergedPiecesComposeFromParts(t *testing.T) {
	model := trainModel(t, 64)
	for _, rule := range model.Merges {
		left := model.Pieces[rule.Left].Text
		right := model.Pieces[rule.Right].Text
		assert.Equal(t, left+right, model.Pieces[rule.Merged].Text)
	}
}

func TestTrainDeterministic(t *testing.T) {
	first := trainModel(t, 48)
	second := trainModel(t, 48)
	assert.Equal(t, first.Pieces, second.Pieces)
	assert.Equal(t, first.Merges, second.Merges)
}

func TestTrainEmptyCorpus(t *testing.T) {
	trainer := NewTrainer(Config{VocabSize: 100}, logger.NewNop())
	_, err := trainer.Train([]string{"", "   ", ""})
	assert.ErrorIs(t, err, ErrEmptyCorpus)
}

func TestTrainVocabTooSmall(t *testing.T) {
	trainer := NewTrainer(Config{VocabSize: 4}, logger.NewNop())
	_, err := trainer.Train([]string{"ACGTN"})
	assert.ErrorIs(t, err, ErrVocabTooSmall)
}

func TestEncoderRoundTrip(t *testing.T) {
	model := trainModel(t, 64)
	encoder := NewEncoder(model)
	for _, probe := range []string{"ACGTACGT", "GATTACAGATTACA", "TTGGCCAA", "A"} {
		ids := encoder.Encode(probe)
		assert.Equal(t, probe, encoder.Decode(ids), "probe %s", probe)
	}
}

func TestEncoderMergesReduceLength(t *testing.T) {
	model := trainModel(t, 64)
	encoder := NewEncoder(model)
	probe := strings.Repeat("ACGT", 20)
	assert.Less(t, len(encoder.Encode(probe)), len(probe))
}

func TestEncoderUnknownCharacter(t *testing.T) {
	model := trainModel(t, 32)
	encoder := NewEncoder(model)
	ids := encoder.Encode("Z")
	require.Len(t, ids, 1)
	assert.Equal(t, UnkID, ids[0])
}

func TestModelSaveLoadRoundTrip(t *testing.T) {
	model := trainModel(t, 48)
	prefix := filepath.Join(t.TempDir(), "dna_tokenizer")
	require.NoError(t, model.Save(prefix))

	loaded, err := Load(prefix + ".model")
	require.NoError(t, err)
	assert.Equal(t, model.Pieces, loaded.Pieces)

	// Recovered merges must cover every trained merge result.
	merged := make(map[int]bool)
	for _, rule := range loaded.Merges {
		merged[rule.Merged] = true
	}
	for _, rule := range model.Merges {
		assert.True(t, merged[rule.Merged],
			"merge for piece %q lost on reload", model.Pieces[rule.Merged].Text)
	}

	raw, err := os.ReadFile(prefix + ".vocab")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
	assert.Len(t, lines, model.Size())
	assert.True(t, strings.HasPrefix(lines[0], UnkPiece+"\t"))
}

func TestTrainFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.txt")
	require.NoError(t, os.WriteFile(path,
		[]byte(strings.Join(trainingLines(), "\n")+"\n"), 0o644))

	trainer := NewTrainer(Config{VocabSize: 32}, logger.NewNop())
	model, err := trainer.TrainFile(path)
	require.NoError(t, err)
	assert.LessOrEqual(t, model.Size(), 32)
}
