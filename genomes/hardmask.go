package genomes

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/yuechaowu/Corpus2DNALLM/fasta"
)

// HardmaskSplitDirName holds the one-fragment-per-line files produced
// from hardmasked assemblies.
const HardmaskSplitDirName = "hardmask_split"

var nRun = regexp.MustCompile(`N+`)

// SplitHardmask reads every FASTA file under maskedDir, uppercases the
// sequences, splits them on runs of N (assembly gaps and masked
// repeats), and writes the non-empty fragments one per line to
// <outDir>/hardmask_split/<base>_sp.txt. Returns the split directory.
//
// Unreadable inputs are warned about and skipped; the remaining files
// are still processed.
func SplitHardmask(maskedDir, outDir string, log *zap.SugaredLogger) (string, error) {
	splitDir := filepath.Join(outDir, HardmaskSplitDirName)
	if err := os.MkdirAll(splitDir, 0o755); err != nil {
		return "", err
	}

	var inputs []string
	for _, pattern := range []string{"*.fa", "*.fasta", "*.gz", "*.gzip"} {
		matches, _ := filepath.Glob(filepath.Join(maskedDir, pattern))
		inputs = append(inputs, matches...)
	}
	sort.Strings(inputs)

	for _, input := range inputs {
		outName := splitFileName(filepath.Base(input))
		outPath := filepath.Join(splitDir, outName)
		if err := splitOneHardmask(input, outPath); err != nil {
			log.Warnw("could not split hardmasked genome, skipping",
				"path", input, "error", err)
			continue
		}
		log.Infow("hardmasked genome split", "input", input, "output", outPath)
	}
	return splitDir, nil
}

func splitFileName(base string) string {
	for _, ext := range []string{".fa.gz", ".fasta.gz", ".fa.gzip", ".fasta.gzip", ".fa", ".fasta"} {
		if strings.HasSuffix(base, ext) {
			return strings.TrimSuffix(base, ext) + "_sp.txt"
		}
	}
	return base + "_sp.txt"
}

func splitOneHardmask(input, output string) error {
	out, err := os.Create(output)
	if err != nil {
		return err
	}
	defer out.Close()

	w := bufio.NewWriter(out)
	err = fasta.WalkFile(input, func(rec fasta.Record) error {
		seq := bytes.ToUpper(rec.Seq)
		for _, fragment := range nRun.Split(string(seq), -1) {
			if fragment == "" {
				continue
			}
			if _, err := w.WriteString(fragment); err != nil {
				return err
			}
			if err := w.WriteByte('\n'); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return w.Flush()
}
