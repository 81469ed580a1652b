package genomes

import (
	"errors"
	"math"

	lru "github.com/hashicorp/golang-lru"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/yuechaowu/Corpus2DNALLM/fasta"
)

// Stats summarizes one assembly's sequence lengths, matching the
// columns of the genome_sizes table.
type Stats struct {
	NumSeqs int64
	SumLen  int64
	MinLen  int64
	AvgLen  int64
	MaxLen  int64
}

var ErrNoSequences = errors.New("genomes: fasta file contains no sequences")

// FastaStats streams path once and reduces sequence lengths.
func FastaStats(path string) (Stats, error) {
	var lengths []float64
	err := fasta.WalkFile(path, func(rec fasta.Record) error {
		lengths = append(lengths, float64(len(rec.Seq)))
		return nil
	})
	if err != nil {
		return Stats{}, err
	}
	if len(lengths) == 0 {
		return Stats{}, ErrNoSequences
	}
	sum := floats.Sum(lengths)
	return Stats{
		NumSeqs: int64(len(lengths)),
		SumLen:  int64(sum),
		MinLen:  int64(floats.Min(lengths)),
		AvgLen:  int64(math.Round(stat.Mean(lengths, nil))),
		MaxLen:  int64(floats.Max(lengths)),
	}, nil
}

// StatsCache memoizes FastaStats by path. The inventory stage and the
// corpus stage both consult sizes; the cache keeps a re-run over the
// same assembly from re-reading gigabytes.
type StatsCache struct {
	cache *lru.Cache
}

func NewStatsCache(size int) (*StatsCache, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &StatsCache{cache: cache}, nil
}

func (c *StatsCache) Stats(path string) (Stats, error) {
	if cached, ok := c.cache.Get(path); ok {
		return cached.(Stats), nil
	}
	stats, err := FastaStats(path)
	if err != nil {
		return Stats{}, err
	}
	c.cache.Add(path, stats)
	return stats, nil
}
