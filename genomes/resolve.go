package genomes

import (
	"path/filepath"
	"strings"
)

// FastaExtensions is the fixed, ordered set of extension patterns a
// genome assembly may carry on disk.
var FastaExtensions = []string{".fa", ".fasta", ".fa.gz", ".fasta.gz"}

// nameVariants returns the ordered case variants tried during file
// resolution. The original casing always wins over derived casings.
func nameVariants(name string) []string {
	lower := strings.ToLower(name)
	variants := []string{name}
	for _, v := range []string{lower, title(lower), strings.ToUpper(lower)} {
		if !contains(variants, v) {
			variants = append(variants, v)
		}
	}
	return variants
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// CandidatePatterns returns the ordered glob patterns evaluated when
// resolving a genome's FASTA file: case variants crossed with the
// fixed extension list, first match wins.
func CandidatePatterns(name string) []string {
	var patterns []string
	for _, variant := range nameVariants(name) {
		for _, ext := range FastaExtensions {
			patterns = append(patterns, variant+"*"+ext)
		}
	}
	return patterns
}

// ResolveFasta finds the genome's FASTA file under dir, trying
// CandidatePatterns lazily. Returns "" when nothing matches.
func ResolveFasta(dir, name string) string {
	return resolveFirst(dir, CandidatePatterns(name))
}

// ResolveMaskedSplit finds the pre-split hardmasked text file
// (<name>*_sp.txt) under dir. Returns "" when nothing matches.
func ResolveMaskedSplit(dir, name string) string {
	var patterns []string
	for _, variant := range nameVariants(name) {
		patterns = append(patterns, variant+"*_sp.txt")
	}
	return resolveFirst(dir, patterns)
}

func resolveFirst(dir string, patterns []string) string {
	for _, pattern := range patterns {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			continue
		}
		if len(matches) > 0 {
			return matches[0]
		}
	}
	return ""
}
