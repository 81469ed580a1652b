package tokenizer

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/edsrzf/mmap-go"
	"go.uber.org/zap"
)

// Config carries tokenizer-training knobs.
type Config struct {
	VocabSize int `envconfig:"TOKENIZER_VOCAB_SIZE" default:"8192"`
}

var (
	ErrEmptyCorpus   = errors.New("tokenizer: training corpus is empty")
	ErrVocabTooSmall = errors.New("tokenizer: vocab size does not cover specials and seed alphabet")
)

// Trainer learns a BPE vocabulary from a line-per-sequence corpus.
type Trainer struct {
	VocabSize int
	log       *zap.SugaredLogger
}

func NewTrainer(cfg Config, log *zap.SugaredLogger) *Trainer {
	return &Trainer{VocabSize: cfg.VocabSize, log: log}
}

// TrainFile maps the corpus into memory and trains over its lines.
func (t *Trainer) TrainFile(path string) (*Model, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	corpus, err := mmap.Map(fh, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("tokenizer: mapping %s: %w", path, err)
	}
	defer corpus.Unmap()

	return t.Train(strings.Split(string(corpus), "\n"))
}

type pair struct {
	left, right int
}

// Train runs the merge loop: count adjacent piece pairs across all
// sequences, merge the most frequent pair into a new piece, repeat
// until the vocabulary is full or no pair occurs twice.
func (t *Trainer) Train(lines []string) (*Model, error) {
	pieces := []Piece{
		{Text: UnkPiece, Kind: KindUnknown},
		{Text: BosPiece, Kind: KindControl},
		{Text: EosPiece, Kind: KindControl},
	}

	// Seed the alphabet with corpus characters, most frequent first.
	charFreq := make(map[byte]int64)
	var sequences [][]int
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		for i := 0; i < len(line); i++ {
			charFreq[line[i]]++
		}
		sequences = append(sequences, nil) // filled below, after ids exist
	}
	if len(sequences) == 0 {
		return nil, ErrEmptyCorpus
	}

	chars := make([]byte, 0, len(charFreq))
	for c := range charFreq {
		chars = append(chars, c)
	}
	sort.Slice(chars, func(i, j int) bool {
		if charFreq[chars[i]] != charFreq[chars[j]] {
			return charFreq[chars[i]] > charFreq[chars[j]]
		}
		return chars[i] < chars[j]
	})
	charID := make(map[byte]int, len(chars))
	for _, c := range chars {
		charID[c] = len(pieces)
		pieces = append(pieces, Piece{Text: string(c), Kind: KindNormal})
	}
	if t.VocabSize < len(pieces) {
		return nil, fmt.Errorf("%w: need at least %d, have %d",
			ErrVocabTooSmall, len(pieces), t.VocabSize)
	}

	seqIdx := 0
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		ids := make([]int, len(line))
		for i := 0; i < len(line); i++ {
			ids[i] = charID[line[i]]
		}
		sequences[seqIdx] = ids
		seqIdx++
	}

	var merges []Merge
	rank := 0
	for len(pieces) < t.VocabSize {
		best, count := bestPair(sequences)
		if count < 2 {
			break
		}
		rank++
		merged := len(pieces)
		pieces = append(pieces, Piece{
			Text:  pieces[best.left].Text + pieces[best.right].Text,
			Score: -float32(rank),
			Kind:  KindNormal,
		})
		merges = append(merges, Merge{Left: best.left, Right: best.right, Merged: merged})
		for i := range sequences {
			sequences[i] = mergePair(sequences[i], best, merged)
		}
		if t.log != nil && rank%1000 == 0 {
			t.log.Infow("merge progress", "merges", rank, "vocab", len(pieces))
		}
	}

	if t.log != nil {
		t.log.Infow("training finished",
			"vocab", len(pieces), "merges", len(merges), "sequences", len(sequences))
	}
	return newModel(pieces, merges), nil
}

// bestPair returns the most frequent adjacent pair. Ties break on the
// lower-numbered pair so training is deterministic.
func bestPair(sequences [][]int) (pair, int) {
	stats := make(map[pair]int)
	for _, seq := range sequences {
		for i := 0; i+1 < len(seq); i++ {
			stats[pair{seq[i], seq[i+1]}]++
		}
	}
	var (
		best  pair
		count int
	)
	for p, c := range stats {
		if c > count ||
			(c == count && (p.left < best.left ||
				(p.left == best.left && p.right < best.right))) {
			best, count = p, c
		}
	}
	return best, count
}

// mergePair rewrites one sequence, replacing every occurrence of the
// pair with the merged id.
func mergePair(seq []int, p pair, merged int) []int {
	out := seq[:0]
	for i := 0; i < len(seq); {
		if i+1 < len(seq) && seq[i] == p.left && seq[i+1] == p.right {
			out = append(out, merged)
			i += 2
		} else {
			out = append(out, seq[i])
			i++
		}
	}
	return out
}
