package genomes

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

// SizesFileName is the inventory table written next to the other
// intermediate outputs.
const SizesFileName = "genome_sizes.txt"

// Missing describes one genome file that could not be resolved during
// the inventory check.
type Missing struct {
	Genome  string
	Variant string // "hardmasked" or "unmasked"
}

// Check verifies that every genome in the metadata table has its
// required assembly files on disk. Genomes typed "both" need a file in
// both maskedDir and unmaskedDir; everything else needs only
// unmaskedDir. All misses are collected so one run reports every
// problem at once.
func Check(metadata []Genome, maskedDir, unmaskedDir string) []Missing {
	var missing []Missing
	for _, g := range metadata {
		if g.Type == TypeBoth {
			if ResolveFasta(maskedDir, g.Name) == "" {
				missing = append(missing, Missing{Genome: g.Name, Variant: "hardmasked"})
			}
		}
		if ResolveFasta(unmaskedDir, g.Name) == "" {
			missing = append(missing, Missing{Genome: g.Name, Variant: "unmasked"})
		}
	}
	return missing
}

// WriteSizes computes per-genome sequence statistics over the unmasked
// assemblies and writes the genome_sizes table to outputDir. Genomes
// whose file cannot be resolved or read are warned about and skipped;
// they do not abort the inventory.
func WriteSizes(metadata []Genome, unmaskedDir, outputDir string, cache *StatsCache, log *zap.SugaredLogger) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", err
	}
	outPath := filepath.Join(outputDir, SizesFileName)
	out, err := os.Create(outPath)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := fmt.Fprintln(out, "file\tformat\ttype\tnum_seqs\tsum_len\tmin_len\tavg_len\tmax_len"); err != nil {
		return "", err
	}

	for _, g := range metadata {
		path := ResolveFasta(unmaskedDir, g.Name)
		if path == "" {
			log.Warnw("unmasked genome file not found, skipping",
				"genome", g.Name, "dir", unmaskedDir)
			continue
		}
		stats, err := cache.Stats(path)
		if err != nil {
			log.Warnw("could not read genome file, skipping",
				"genome", g.Name, "path", path, "error", err)
			continue
		}
		if _, err := fmt.Fprintf(out, "%s\tFASTA\tDNA\t%d\t%d\t%d\t%d\t%d\n",
			g.Key, stats.NumSeqs, stats.SumLen, stats.MinLen,
			stats.AvgLen, stats.MaxLen); err != nil {
			return "", err
		}
		log.Infow("genome measured",
			"genome", g.Key,
			"sequences", stats.NumSeqs,
			"bases", humanize.Comma(stats.SumLen))
	}
	return outPath, nil
}
