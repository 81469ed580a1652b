package main

import (
	"errors"
	"fmt"
	"math/rand"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"

	"github.com/yuechaowu/Corpus2DNALLM/artifacts"
	"github.com/yuechaowu/Corpus2DNALLM/corpus"
	"github.com/yuechaowu/Corpus2DNALLM/genomes"
	"github.com/yuechaowu/Corpus2DNALLM/tokenizer"
)

// Intermediate file names produced by the staged pipeline.
const (
	corpusFileName    = "genome_corpus.txt"
	modelPrefixName   = "dna_tokenizer"
	statsCacheEntries = 64
)

var errMissingGenomes = errors.New("some genome files are missing, please check")

func prepareGenomeCmd() *cli.Command {
	return &cli.Command{
		Name:  "prepare-genome",
		Usage: "check genome files, write size statistics and split hardmasked assemblies",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "genomes-info-path", Required: true,
				Usage: "TSV with genome names and genome_type column"},
			&cli.StringFlag{Name: "masked-dir", Required: true,
				Usage: "directory holding hardmasked genome files"},
			&cli.StringFlag{Name: "unmasked-dir", Required: true,
				Usage: "directory holding unmasked genome files"},
			&cli.StringFlag{Name: "output-dir", Required: true,
				Usage: "directory for genome_sizes.txt and hardmask_split/"},
		},
		Action: func(ctx *cli.Context) error {
			_, _, err := runPrepareGenome(
				ctx.String("genomes-info-path"),
				ctx.String("masked-dir"),
				ctx.String("unmasked-dir"),
				ctx.String("output-dir"))
			return err
		},
	}
}

func runPrepareGenome(genomesInfo, maskedDir, unmaskedDir, outputDir string) (sizesPath, splitDir string, err error) {
	metadata, err := genomes.ReadMetadata(genomesInfo)
	if err != nil {
		return "", "", err
	}
	missing := genomes.Check(metadata, maskedDir, unmaskedDir)
	for _, m := range missing {
		log.Warnw("genome file missing", "genome", m.Genome, "variant", m.Variant)
	}
	if len(missing) > 0 {
		return "", "", errMissingGenomes
	}

	cache, err := genomes.NewStatsCache(statsCacheEntries)
	if err != nil {
		return "", "", err
	}
	sizesPath, err = genomes.WriteSizes(metadata, unmaskedDir, outputDir, cache, log)
	if err != nil {
		return "", "", err
	}
	splitDir, err = genomes.SplitHardmask(maskedDir, outputDir, log)
	if err != nil {
		return "", "", err
	}
	log.Infow("genome preparation finished", "sizes", sizesPath, "split_dir", splitDir)
	return sizesPath, splitDir, nil
}

func prepareCorpusCmd(cfg corpus.Config) *cli.Command {
	return &cli.Command{
		Name:  "prepare-corpus",
		Usage: "sample genome sequence chunks into a training corpus",
		Flags: append(corpusFlags(cfg),
			&cli.StringFlag{Name: "genomes-info-path", Required: true,
				Usage: "TSV with genome names and genome_type column"},
			&cli.StringFlag{Name: "unmasked-dir", Required: true,
				Usage: "directory holding unmasked genome files"},
			&cli.StringFlag{Name: "split-mask-dir", Required: true,
				Usage: "directory holding pre-split hardmasked files"},
			&cli.StringFlag{Name: "genome-size-file", Required: true,
				Usage: "size-statistics table from prepare-genome"},
			&cli.StringFlag{Name: "output-file", Required: true,
				Usage: "corpus output path"},
		),
		Action: func(ctx *cli.Context) error {
			return runPrepareCorpus(
				ctx.String("genomes-info-path"),
				ctx.String("unmasked-dir"),
				ctx.String("split-mask-dir"),
				ctx.String("genome-size-file"),
				ctx.String("output-file"),
				corpusConfigFromFlags(ctx, cfg),
				ctx.Int64("seed"))
		},
	}
}

func corpusFlags(cfg corpus.Config) []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: "max-seq-length", Value: cfg.MaxLength,
			Usage: "maximum chunk length"},
		&cli.IntFlag{Name: "min-seq-length", Value: cfg.MinLength,
			Usage: "minimum chunk length"},
		&cli.IntFlag{Name: "min-unmasked-length", Value: cfg.MinUnmaskedChunk,
			Usage: "minimum accepted chunk length for unmasked-derived fragments"},
		&cli.Float64Flag{Name: "genome-split-size", Value: cfg.SplitSizeMB,
			Usage: "split threshold for large genomes (MB)"},
		&cli.Int64Flag{Name: "seed", Value: 0,
			Usage: "random seed, 0 seeds from the clock"},
	}
}

func corpusConfigFromFlags(ctx *cli.Context, cfg corpus.Config) corpus.Config {
	cfg.MaxLength = ctx.Int("max-seq-length")
	cfg.MinLength = ctx.Int("min-seq-length")
	cfg.MinUnmaskedChunk = ctx.Int("min-unmasked-length")
	cfg.SplitSizeMB = ctx.Float64("genome-split-size")
	return cfg
}

func newRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

func runPrepareCorpus(genomesInfo, unmaskedDir, splitMaskDir, sizeFile, outputFile string, cfg corpus.Config, seed int64) error {
	metadata, err := genomes.ReadMetadata(genomesInfo)
	if err != nil {
		return err
	}
	sizes, err := genomes.ReadSizes(sizeFile)
	if err != nil {
		return err
	}

	writer, err := corpus.NewWriter(outputFile, cfg, newRand(seed), log)
	if err != nil {
		return err
	}
	if err := writer.Run(metadata, sizes, unmaskedDir, splitMaskDir); err != nil {
		_ = writer.Close()
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}
	bytes, lines := writer.Written()
	log.Infow("corpus written",
		"path", outputFile,
		"lines", lines,
		"size", humanize.Bytes(uint64(bytes)))
	return nil
}

func trainTokenizerCmd(cfg tokenizer.Config) *cli.Command {
	return &cli.Command{
		Name:  "train-tokenizer",
		Usage: "train the BPE tokenizer on a prepared corpus",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "input-file", Required: true,
				Usage: "corpus file, one sequence per line"},
			&cli.StringFlag{Name: "model-prefix", Required: true,
				Usage: "output prefix for .model and .vocab"},
			&cli.IntFlag{Name: "vocab-size", Value: cfg.VocabSize,
				Usage: "vocabulary size"},
		},
		Action: func(ctx *cli.Context) error {
			cfg.VocabSize = ctx.Int("vocab-size")
			return runTrainTokenizer(ctx.String("input-file"), ctx.String("model-prefix"), cfg)
		},
	}
}

func runTrainTokenizer(inputFile, modelPrefix string, cfg tokenizer.Config) error {
	trainer := tokenizer.NewTrainer(cfg, log)
	model, err := trainer.TrainFile(inputFile)
	if err != nil {
		return err
	}
	if err := model.Save(modelPrefix); err != nil {
		return err
	}
	log.Infow("model written",
		"prefix", modelPrefix, "vocab_size", model.Size())

	// Round-trip a couple of probe sequences so a broken model fails
	// the run instead of a downstream training job.
	encoder := tokenizer.NewEncoder(model)
	for _, probe := range []string{"ATCGATCGATCG", "GCTAGCTAGCTA"} {
		ids := encoder.Encode(probe)
		decoded := encoder.Decode(ids)
		if decoded != probe {
			return fmt.Errorf("model validation failed: %q decoded to %q", probe, decoded)
		}
		log.Infow("validated", "sequence", probe, "tokens", len(ids))
	}
	return nil
}

func generateConfigCmd() *cli.Command {
	return &cli.Command{
		Name:  "generate-config",
		Usage: "emit tokenizer configuration files for third-party runtimes",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "model-path", Required: true,
				Usage: "trained .model file"},
			&cli.StringFlag{Name: "output-dir", Value: ".",
				Usage: "directory for the generated JSON files"},
			&cli.StringFlag{Name: "special-token-file",
				Usage: "optional JSON overriding special tokens"},
		},
		Action: func(ctx *cli.Context) error {
			return artifacts.Generate(
				ctx.String("model-path"),
				ctx.String("output-dir"),
				ctx.String("special-token-file"),
				log)
		},
	}
}

func allCmd(corpusCfg corpus.Config, tokCfg tokenizer.Config) *cli.Command {
	return &cli.Command{
		Name:  "all",
		Usage: "run the full pipeline: inventory, corpus, training, config",
		Flags: append(corpusFlags(corpusCfg),
			&cli.StringFlag{Name: "genomes-info-path", Required: true,
				Usage: "TSV with genome names and genome_type column"},
			&cli.StringFlag{Name: "masked-dir", Required: true,
				Usage: "directory holding hardmasked genome files"},
			&cli.StringFlag{Name: "unmasked-dir", Required: true,
				Usage: "directory holding unmasked genome files"},
			&cli.StringFlag{Name: "output-dir", Required: true,
				Usage: "directory for all pipeline outputs"},
			&cli.IntFlag{Name: "vocab-size", Value: tokCfg.VocabSize,
				Usage: "vocabulary size"},
			&cli.StringFlag{Name: "special-token-file",
				Usage: "optional JSON overriding special tokens"},
		),
		Action: func(ctx *cli.Context) error {
			outputDir := ctx.String("output-dir")

			sizesPath, splitDir, err := runPrepareGenome(
				ctx.String("genomes-info-path"),
				ctx.String("masked-dir"),
				ctx.String("unmasked-dir"),
				outputDir)
			if err != nil {
				return err
			}

			corpusPath := filepath.Join(outputDir, corpusFileName)
			if err := runPrepareCorpus(
				ctx.String("genomes-info-path"),
				ctx.String("unmasked-dir"),
				splitDir,
				sizesPath,
				corpusPath,
				corpusConfigFromFlags(ctx, corpusCfg),
				ctx.Int64("seed")); err != nil {
				return err
			}

			modelPrefix := filepath.Join(outputDir, modelPrefixName)
			tokCfg.VocabSize = ctx.Int("vocab-size")
			if err := runTrainTokenizer(corpusPath, modelPrefix, tokCfg); err != nil {
				return err
			}

			return artifacts.Generate(
				modelPrefix+".model",
				outputDir,
				ctx.String("special-token-file"),
				log)
		},
	}
}
