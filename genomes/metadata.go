package genomes

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// GenomeType distinguishes assemblies shipped with both hardmasked and
// unmasked variants from unmasked-only ones. Any genome_type value
// other than "both" means unmasked-only.
type GenomeType int

const (
	TypeUnmaskedOnly GenomeType = iota
	TypeBoth
)

func (t GenomeType) String() string {
	if t == TypeBoth {
		return "both"
	}
	return "unmasked"
}

// Genome is one row of the genomes-info table. Key is the lowercased
// lookup key; Name keeps the original casing for file resolution.
type Genome struct {
	Name string
	Key  string
	Type GenomeType
}

var (
	ErrEmptyMetadata  = errors.New("genomes: metadata table has no rows")
	ErrNoTypeColumn   = errors.New("genomes: metadata table has no genome_type column")
	ErrDuplicateName  = errors.New("genomes: duplicate genome name")
	ErrUnknownGenome  = errors.New("genomes: genome not present in size table")
	ErrNoSumLenColumn = errors.New("genomes: size table has no sum_len column")
)

// ReadMetadata parses the tab-separated genomes-info table. Column 0 is
// the genome name; the genome_type column selects masked handling.
// Order of rows is preserved. Any parse failure aborts the run, there
// is no partial metadata.
func ReadMetadata(path string) ([]Genome, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return parseMetadata(fh, path)
}

func parseMetadata(r io.Reader, path string) ([]Genome, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("genomes: reading %s header: %w", path, err)
	}
	typeCol := -1
	for idx, name := range header {
		if strings.TrimSpace(name) == "genome_type" {
			typeCol = idx
		}
	}
	if typeCol <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoTypeColumn, path)
	}

	var result []Genome
	seen := make(map[string]bool)
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("genomes: parsing %s: %w", path, err)
		}
		if len(row) <= typeCol {
			return nil, fmt.Errorf("genomes: %s: row %q is missing the genome_type column", path, row)
		}
		name := strings.TrimSpace(row[0])
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if seen[key] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateName, name)
		}
		seen[key] = true
		gType := TypeUnmaskedOnly
		if strings.TrimSpace(row[typeCol]) == "both" {
			gType = TypeBoth
		}
		result = append(result, Genome{Name: name, Key: key, Type: gType})
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyMetadata, path)
	}
	return result, nil
}

// ReadSizes parses the size-statistics table written by WriteSizes (or
// an equivalent upstream inventory), returning total bases keyed by
// lowercased genome name.
func ReadSizes(path string) (map[string]int64, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	cr := csv.NewReader(fh)
	cr.Comma = '\t'
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("genomes: reading %s header: %w", path, err)
	}
	sumCol := -1
	for idx, name := range header {
		if strings.TrimSpace(name) == "sum_len" {
			sumCol = idx
		}
	}
	if sumCol < 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoSumLenColumn, path)
	}

	sizes := make(map[string]int64)
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("genomes: parsing %s: %w", path, err)
		}
		if len(row) <= sumCol {
			return nil, fmt.Errorf("genomes: %s: row %q is missing the sum_len column", path, row)
		}
		var sumLen int64
		if _, err := fmt.Sscanf(strings.TrimSpace(row[sumCol]), "%d", &sumLen); err != nil {
			return nil, fmt.Errorf("genomes: %s: bad sum_len %q: %w", path, row[sumCol], err)
		}
		sizes[strings.ToLower(strings.TrimSpace(row[0]))] = sumLen
	}
	return sizes, nil
}
