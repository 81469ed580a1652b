package tokenizer

import (
	"strings"
)

// Encoder applies a model's merge rules to encode text, and
// concatenates pieces to decode. It exists to validate a freshly
// trained model with encode/decode round-trips; serving traffic is the
// job of downstream tokenizer runtimes.
type Encoder struct {
	model *Model
	rank  map[pair]int
	merge map[pair]int
}

func NewEncoder(m *Model) *Encoder {
	e := &Encoder{
		model: m,
		rank:  make(map[pair]int, len(m.Merges)),
		merge: make(map[pair]int, len(m.Merges)),
	}
	for order, rule := range m.Merges {
		p := pair{rule.Left, rule.Right}
		if _, ok := e.rank[p]; !ok {
			e.rank[p] = order
			e.merge[p] = rule.Merged
		}
	}
	return e
}

// Encode maps text to piece ids: seed characters first, then merges
// applied lowest rank first. Characters outside the vocabulary become
// the unknown piece.
func (e *Encoder) Encode(text string) []int {
	ids := make([]int, 0, len(text))
	for i := 0; i < len(text); i++ {
		id, ok := e.model.ID(string(text[i]))
		if !ok {
			id = UnkID
		}
		ids = append(ids, id)
	}

	for len(ids) >= 2 {
		bestRank := -1
		var best pair
		for i := 0; i+1 < len(ids); i++ {
			p := pair{ids[i], ids[i+1]}
			if r, ok := e.rank[p]; ok && (bestRank < 0 || r < bestRank) {
				bestRank = r
				best = p
			}
		}
		if bestRank < 0 {
			break
		}
		ids = mergePair(ids, best, e.merge[best])
	}
	return ids
}

// Decode concatenates piece texts, skipping control pieces.
func (e *Encoder) Decode(ids []int) string {
	var sb strings.Builder
	for _, id := range ids {
		if id < 0 || id >= len(e.model.Pieces) {
			continue
		}
		p := e.model.Pieces[id]
		if p.Kind == KindControl {
			continue
		}
		sb.WriteString(p.Text)
	}
	return sb.String()
}
