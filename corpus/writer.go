package corpus

import (
	"bufio"
	"fmt"
	"math/rand"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/yuechaowu/Corpus2DNALLM/fasta"
	"github.com/yuechaowu/Corpus2DNALLM/genomes"
)

// gapRunLen is the minimum run of consecutive N in an unmasked
// assembly treated as a hard break before chunking.
const gapRunLen = 10

// Config carries the corpus-preparation knobs. Defaults mirror the
// established pipeline values.
type Config struct {
	MaxLength        int     `envconfig:"CORPUS_MAX_LENGTH" default:"4000"`
	MinLength        int     `envconfig:"CORPUS_MIN_LENGTH" default:"5"`
	MinUnmaskedChunk int     `envconfig:"CORPUS_MIN_UNMASKED_CHUNK" default:"100"`
	SplitSizeMB      float64 `envconfig:"CORPUS_SPLIT_SIZE_MB" default:"500"`
}

// Writer orchestrates planner, splitter and sampler per genome and
// appends the selected chunks to a single output corpus file. It owns
// the file handle for the duration of one run.
type Writer struct {
	cfg Config
	rng *rand.Rand
	log *zap.SugaredLogger

	out  *os.File
	bufw *bufio.Writer

	written int64
	lines   int64
}

func NewWriter(outputPath string, cfg Config, rng *rand.Rand, log *zap.SugaredLogger) (*Writer, error) {
	if cfg.MinLength <= 0 || cfg.MinLength > cfg.MaxLength {
		return nil, fmt.Errorf("corpus: invalid chunk bounds [%d, %d]", cfg.MinLength, cfg.MaxLength)
	}
	out, err := os.Create(outputPath)
	if err != nil {
		return nil, err
	}
	return &Writer{
		cfg:  cfg,
		rng:  rng,
		log:  log,
		out:  out,
		bufw: bufio.NewWriter(out),
	}, nil
}

// Close flushes and releases the corpus file.
func (w *Writer) Close() error {
	if err := w.bufw.Flush(); err != nil {
		_ = w.out.Close()
		return err
	}
	return w.out.Close()
}

// Written reports bytes and lines appended so far.
func (w *Writer) Written() (bytes, lines int64) {
	return w.written, w.lines
}

// Run processes every genome in metadata order. Per-genome failures
// (unresolvable or unreadable files) are warned about and skipped;
// they never abort the run. A genome missing from the size table is a
// table-level inconsistency and does abort.
func (w *Writer) Run(metadata []genomes.Genome, sizes map[string]int64, unmaskedDir, splitMaskDir string) error {
	for _, g := range metadata {
		sumLen, ok := sizes[g.Key]
		if !ok {
			return fmt.Errorf("%w: %s", genomes.ErrUnknownGenome, g.Name)
		}
		if err := w.processGenome(g, sumLen, unmaskedDir, splitMaskDir); err != nil {
			return err
		}
	}
	return w.bufw.Flush()
}

func (w *Writer) processGenome(g genomes.Genome, sumLen int64, unmaskedDir, splitMaskDir string) error {
	unmaskedMB := float64(sumLen) / MB
	w.log.Infow("processing genome",
		"genome", g.Key,
		"type", g.Type.String(),
		"size", humanize.Bytes(uint64(sumLen)))

	unmaskedPath := genomes.ResolveFasta(unmaskedDir, g.Name)
	if unmaskedPath == "" {
		w.log.Warnw("unmasked genome file not found, skipping genome",
			"genome", g.Name, "dir", unmaskedDir)
		return nil
	}

	var (
		maskedPath string
		maskedMB   float64
	)
	if g.Type == genomes.TypeBoth {
		maskedPath = genomes.ResolveMaskedSplit(splitMaskDir, g.Name)
		if maskedPath == "" {
			w.log.Warnw("masked split file not found, skipping genome",
				"genome", g.Name, "dir", splitMaskDir)
			return nil
		}
		size, err := maskedSplitSize(maskedPath)
		if err != nil {
			w.log.Warnw("could not read masked split file, skipping genome",
				"genome", g.Name, "path", maskedPath, "error", err)
			return nil
		}
		maskedMB = float64(size) / MB
	}

	plan := PlanBudget(g.Type, unmaskedMB, maskedMB, w.cfg.SplitSizeMB)

	if g.Type == genomes.TypeBoth && (plan.Masked.All || plan.Masked.Bytes > 0) {
		chunks, err := w.maskedChunks(maskedPath)
		if err != nil {
			w.log.Warnw("could not chunk masked split file, skipping genome",
				"genome", g.Name, "path", maskedPath, "error", err)
			return nil
		}
		if err := w.drawAndAppend(g.Key, "masked", chunks, plan.Masked); err != nil {
			return err
		}
	}

	chunks, err := w.unmaskedChunks(unmaskedPath)
	if err != nil {
		w.log.Warnw("could not chunk unmasked genome, skipping genome",
			"genome", g.Name, "path", unmaskedPath, "error", err)
		return nil
	}
	return w.drawAndAppend(g.Key, "unmasked", chunks, plan.Unmasked)
}

// unmaskedChunks uppercases each FASTA record, breaks it on long N
// runs, splits the fragments, and keeps only chunks meeting the
// unmasked minimum length.
func (w *Writer) unmaskedChunks(path string) ([]string, error) {
	var chunks []string
	err := fasta.WalkFile(path, func(rec fasta.Record) error {
		sequence := strings.ToUpper(string(rec.Seq))
		for _, fragment := range BreakOnGaps(sequence, gapRunLen) {
			for _, chunk := range Split(w.rng, fragment, w.cfg.MinLength, w.cfg.MaxLength) {
				if len(chunk) >= w.cfg.MinUnmaskedChunk {
					chunks = append(chunks, chunk)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return chunks, nil
}

// maskedChunks splits each pre-split fragment line. The upstream
// hardmask split already removed N runs, so no gap breaking here.
func (w *Writer) maskedChunks(path string) ([]string, error) {
	var chunks []string
	err := eachLine(path, func(line string) {
		line = strings.ToUpper(strings.TrimSpace(line))
		if line == "" {
			return
		}
		chunks = append(chunks, Split(w.rng, line, w.cfg.MinLength, w.cfg.MaxLength)...)
	})
	if err != nil {
		return nil, err
	}
	return chunks, nil
}

func (w *Writer) drawAndAppend(genome, source string, chunks []string, draw Draw) error {
	selected := chunks
	if !draw.All {
		var err error
		selected, err = Sample(w.rng, chunks, draw.Bytes)
		if err != nil {
			return fmt.Errorf("corpus: sampling %s %s chunks: %w", genome, source, err)
		}
	}
	var appended int64
	for _, chunk := range selected {
		if _, err := w.bufw.WriteString(chunk); err != nil {
			return err
		}
		if err := w.bufw.WriteByte('\n'); err != nil {
			return err
		}
		appended += int64(len(chunk))
	}
	w.written += appended
	w.lines += int64(len(selected))
	w.log.Infow("chunks appended",
		"genome", genome,
		"source", source,
		"chunks", len(selected),
		"bytes", humanize.Bytes(uint64(appended)))
	return nil
}

// maskedSplitSize is the byte length of all fragments in a pre-split
// masked file, newlines excluded.
func maskedSplitSize(path string) (int64, error) {
	var size int64
	err := eachLine(path, func(line string) {
		size += int64(len(strings.TrimSpace(line)))
	})
	return size, err
}

func eachLine(path string, fn func(string)) error {
	fh, err := os.Open(path)
	if err != nil {
		return err
	}
	defer fh.Close()

	sc := bufio.NewScanner(fh)
	sc.Buffer(make([]byte, 64*1024), maxFragmentLine)
	for sc.Scan() {
		fn(sc.Text())
	}
	return sc.Err()
}

// maxFragmentLine bounds a single pre-split fragment line (64 MiB).
const maxFragmentLine = 64 * 1024 * 1024
