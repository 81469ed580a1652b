package tokenizer

import (
	"bufio"
	"fmt"
	"os"

	"github.com/vikesh-raj/go-sentencepiece-encoder/sentencepiece"
	"google.golang.org/protobuf/proto"
)

// Reserved piece ids, matching the trained model layout: no pad piece
// is emitted (pad id is -1).
const (
	UnkID = 0
	BosID = 1
	EosID = 2

	UnkPiece = "<unk>"
	BosPiece = "<s>"
	EosPiece = "</s>"
)

// PieceKind mirrors the SentencePiece piece types we emit.
type PieceKind int

const (
	KindNormal PieceKind = iota
	KindUnknown
	KindControl
)

// Piece is one vocabulary entry. Merged pieces carry negative scores
// in merge order; seed characters and specials score zero.
type Piece struct {
	Text  string
	Score float32
	Kind  PieceKind
}

// Merge is one learned merge rule over piece ids.
type Merge struct {
	Left   int
	Right  int
	Merged int
}

// Model is a trained BPE vocabulary plus its merge rules.
type Model struct {
	Pieces []Piece
	Merges []Merge

	index map[string]int
}

func newModel(pieces []Piece, merges []Merge) *Model {
	m := &Model{Pieces: pieces, Merges: merges}
	m.reindex()
	return m
}

func (m *Model) reindex() {
	m.index = make(map[string]int, len(m.Pieces))
	for id, p := range m.Pieces {
		if _, ok := m.index[p.Text]; !ok {
			m.index[p.Text] = id
		}
	}
}

// ID returns the piece id for text.
func (m *Model) ID(text string) (int, bool) {
	id, ok := m.index[text]
	return id, ok
}

// Size is the vocabulary size including special pieces.
func (m *Model) Size() int {
	return len(m.Pieces)
}

// Proto builds the SentencePiece wire representation of the model, so
// the artifact generator and third-party loaders can consume it.
func (m *Model) Proto() *sentencepiece.ModelProto {
	pieces := make([]*sentencepiece.ModelProto_SentencePiece, 0, len(m.Pieces))
	for _, p := range m.Pieces {
		var kind sentencepiece.ModelProto_SentencePiece_Type
		switch p.Kind {
		case KindUnknown:
			kind = sentencepiece.ModelProto_SentencePiece_UNKNOWN
		case KindControl:
			kind = sentencepiece.ModelProto_SentencePiece_CONTROL
		default:
			kind = sentencepiece.ModelProto_SentencePiece_NORMAL
		}
		pieces = append(pieces, &sentencepiece.ModelProto_SentencePiece{
			Piece: proto.String(p.Text),
			Score: proto.Float32(p.Score),
			Type:  kind.Enum(),
		})
	}
	return &sentencepiece.ModelProto{
		Pieces: pieces,
		TrainerSpec: &sentencepiece.TrainerSpec{
			ModelType: sentencepiece.TrainerSpec_BPE.Enum(),
			VocabSize: proto.Int32(int32(len(m.Pieces))),
			UnkId:     proto.Int32(UnkID),
			BosId:     proto.Int32(BosID),
			EosId:     proto.Int32(EosID),
			PadId:     proto.Int32(-1),
			UnkPiece:  proto.String(UnkPiece),
			BosPiece:  proto.String(BosPiece),
			EosPiece:  proto.String(EosPiece),
		},
		NormalizerSpec: &sentencepiece.NormalizerSpec{
			Name:           proto.String("identity"),
			AddDummyPrefix: proto.Bool(false),
		},
	}
}

// Save writes <prefix>.model (ModelProto) and <prefix>.vocab (piece
// TAB score, one per line).
func (m *Model) Save(prefix string) error {
	raw, err := proto.Marshal(m.Proto())
	if err != nil {
		return fmt.Errorf("tokenizer: marshaling model: %w", err)
	}
	if err := os.WriteFile(prefix+".model", raw, 0o644); err != nil {
		return err
	}

	vocabFile, err := os.Create(prefix + ".vocab")
	if err != nil {
		return err
	}
	defer vocabFile.Close()
	w := bufio.NewWriter(vocabFile)
	for _, p := range m.Pieces {
		if _, err := fmt.Fprintf(w, "%s\t%g\n", p.Text, p.Score); err != nil {
			return err
		}
	}
	return w.Flush()
}

// Load reads a serialized model and reconstructs the merge rules from
// the vocabulary by scanning split points, the same way the merge
// table is rebuilt during artifact conversion.
func Load(path string) (*Model, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var mp sentencepiece.ModelProto
	if err := proto.Unmarshal(raw, &mp); err != nil {
		return nil, fmt.Errorf("tokenizer: unmarshaling %s: %w", path, err)
	}

	pieces := make([]Piece, 0, len(mp.GetPieces()))
	for _, sp := range mp.GetPieces() {
		kind := KindNormal
		switch sp.GetType() {
		case sentencepiece.ModelProto_SentencePiece_UNKNOWN:
			kind = KindUnknown
		case sentencepiece.ModelProto_SentencePiece_CONTROL:
			kind = KindControl
		}
		pieces = append(pieces, Piece{
			Text:  sp.GetPiece(),
			Score: sp.GetScore(),
			Kind:  kind,
		})
	}
	m := newModel(pieces, nil)
	m.Merges = m.recoverMerges()
	return m, nil
}

// recoverMerges rebuilds merge rules by splitting every multi-char
// normal piece at each position and keeping splits whose halves exist
// in the vocabulary, ordered by merged piece id.
func (m *Model) recoverMerges() []Merge {
	var merges []Merge
	seen := make(map[[2]int]bool)
	for id, p := range m.Pieces {
		if p.Kind != KindNormal || len(p.Text) < 2 {
			continue
		}
		for split := 1; split < len(p.Text); split++ {
			left, lok := m.index[p.Text[:split]]
			right, rok := m.index[p.Text[split:]]
			if !lok || !rok {
				continue
			}
			key := [2]int{left, right}
			if seen[key] {
				continue
			}
			seen[key] = true
			merges = append(merges, Merge{Left: left, Right: right, Merged: id})
		}
	}
	return merges
}
