package corpus

import (
	"github.com/yuechaowu/Corpus2DNALLM/genomes"
)

// MB is the byte unit used throughout budget planning.
const MB = 1_000_000

// Draw is one source's byte budget. All means take every chunk the
// source yields, with no sampling pass.
type Draw struct {
	Bytes int64
	All   bool
}

// Plan is the per-genome budget split between the unmasked assembly
// and the pre-split hardmasked corpus.
type Plan struct {
	Unmasked Draw
	Masked   Draw
}

// PlanBudget decides how much sequence to draw from each source.
//
// Small genomes (unmasked size within the split threshold) contribute
// everything from the unmasked assembly. Large genomes are capped near
// the threshold: genomes with a masked variant balance half the
// threshold from each source, topping up with the whole masked corpus
// when it cannot cover its half; genomes without a masked variant draw
// the full threshold from unmasked sequence alone.
func PlanBudget(gType genomes.GenomeType, unmaskedMB, maskedMB, splitMB float64) Plan {
	if unmaskedMB <= splitMB {
		return Plan{Unmasked: Draw{All: true}}
	}

	half := splitMB / 2
	halfBytes := int64(half * MB)

	if gType != genomes.TypeBoth {
		return Plan{Unmasked: Draw{Bytes: int64(splitMB * MB)}}
	}
	if maskedMB >= half {
		return Plan{
			Unmasked: Draw{Bytes: halfBytes},
			Masked:   Draw{Bytes: halfBytes},
		}
	}
	return Plan{
		Unmasked: Draw{Bytes: halfBytes},
		Masked:   Draw{All: true},
	}
}
