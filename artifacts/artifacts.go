// Package artifacts reshapes a trained BPE model into the JSON
// configuration pair loaded by third-party tokenizer runtimes:
// vocab.json, merges.txt, tokenizer_config.json and tokenizer.json.
package artifacts

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/yuechaowu/Corpus2DNALLM/tokenizer"
)

const (
	VocabFileName           = "vocab.json"
	MergesFileName          = "merges.txt"
	TokenizerConfigFileName = "tokenizer_config.json"
	TokenizerFileName       = "tokenizer.json"

	modelMaxLength = 4096
)

// SpecialTokens optionally overrides the default special-token names.
// Empty fields keep the defaults; pad stays unset unless provided.
type SpecialTokens struct {
	Unk string `json:"unk_token"`
	Bos string `json:"bos_token"`
	Eos string `json:"eos_token"`
	Pad string `json:"pad_token"`
}

func defaultSpecials() SpecialTokens {
	return SpecialTokens{
		Unk: tokenizer.UnkPiece,
		Bos: tokenizer.BosPiece,
		Eos: tokenizer.EosPiece,
	}
}

// LoadSpecialTokens reads a special-token override file. A missing
// path means defaults.
func LoadSpecialTokens(path string) (SpecialTokens, error) {
	specials := defaultSpecials()
	if path == "" {
		return specials, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return specials, err
	}
	var overrides SpecialTokens
	if err := json.Unmarshal(raw, &overrides); err != nil {
		return specials, fmt.Errorf("artifacts: parsing %s: %w", path, err)
	}
	if overrides.Unk != "" {
		specials.Unk = overrides.Unk
	}
	if overrides.Bos != "" {
		specials.Bos = overrides.Bos
	}
	if overrides.Eos != "" {
		specials.Eos = overrides.Eos
	}
	specials.Pad = overrides.Pad
	return specials, nil
}

// Generate loads the serialized model and writes all four artifact
// files into outputDir.
func Generate(modelPath, outputDir, specialTokensPath string, log *zap.SugaredLogger) error {
	model, err := tokenizer.Load(modelPath)
	if err != nil {
		return err
	}
	specials, err := LoadSpecialTokens(specialTokensPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return err
	}

	if err := writeVocab(model, filepath.Join(outputDir, VocabFileName)); err != nil {
		return err
	}
	if err := writeMerges(model, filepath.Join(outputDir, MergesFileName)); err != nil {
		return err
	}
	if err := writeTokenizerConfig(model, specials, filepath.Join(outputDir, TokenizerConfigFileName)); err != nil {
		return err
	}
	if err := writeTokenizerJSON(model, specials, filepath.Join(outputDir, TokenizerFileName)); err != nil {
		return err
	}
	log.Infow("tokenizer artifacts written",
		"dir", outputDir, "vocab_size", model.Size(), "merges", len(model.Merges))
	return nil
}

// vocabMap maps non-control pieces to their ids, the shape vocab.json
// and tokenizer.json's model.vocab expect.
func vocabMap(model *tokenizer.Model) map[string]int {
	vocab := make(map[string]int, model.Size())
	for id, p := range model.Pieces {
		if p.Kind != tokenizer.KindNormal {
			continue
		}
		vocab[p.Text] = id
	}
	return vocab
}

func writeVocab(model *tokenizer.Model, path string) error {
	return writeJSON(path, vocabMap(model))
}

// mergeLines renders the merge rules as "left right" pairs ordered by
// merged piece id, the order downstream BPE loaders apply them in.
func mergeLines(model *tokenizer.Model) []string {
	merges := append([]tokenizer.Merge(nil), model.Merges...)
	sort.Slice(merges, func(i, j int) bool {
		if merges[i].Merged != merges[j].Merged {
			return merges[i].Merged < merges[j].Merged
		}
		return merges[i].Left < merges[j].Left
	})
	lines := make([]string, 0, len(merges))
	seen := make(map[int]bool)
	for _, rule := range merges {
		// One merge per resulting piece; extra split points of the
		// same piece are redundant for loaders.
		if seen[rule.Merged] {
			continue
		}
		seen[rule.Merged] = true
		lines = append(lines, fmt.Sprintf("%s %s",
			model.Pieces[rule.Left].Text, model.Pieces[rule.Right].Text))
	}
	return lines
}

func writeMerges(model *tokenizer.Model, path string) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()

	w := bufio.NewWriter(out)
	if _, err := w.WriteString("#version: 0.2\n"); err != nil {
		return err
	}
	for _, line := range mergeLines(model) {
		if _, err := w.WriteString(line + "\n"); err != nil {
			return err
		}
	}
	return w.Flush()
}

func writeTokenizerConfig(model *tokenizer.Model, specials SpecialTokens, path string) error {
	config := map[string]interface{}{
		"clean_up_tokenization_spaces": true,
		"model_max_length":             modelMaxLength,
		"padding_side":                 "right",
		"truncation_side":              "right",
		"tokenizer_class":              "PreTrainedTokenizerFast",
		"vocab_size":                   model.Size(),
		"unk_token":                    specials.Unk,
		"bos_token":                    specials.Bos,
		"eos_token":                    specials.Eos,
	}
	if specials.Pad != "" {
		config["pad_token"] = specials.Pad
	}
	return writeJSON(path, config)
}

type addedToken struct {
	ID         int    `json:"id"`
	Content    string `json:"content"`
	SingleWord bool   `json:"single_word"`
	LStrip     bool   `json:"lstrip"`
	RStrip     bool   `json:"rstrip"`
	Normalized bool   `json:"normalized"`
	Special    bool   `json:"special"`
}

func writeTokenizerJSON(model *tokenizer.Model, specials SpecialTokens, path string) error {
	added := []addedToken{
		{ID: tokenizer.UnkID, Content: specials.Unk, Special: true},
		{ID: tokenizer.BosID, Content: specials.Bos, Special: true},
		{ID: tokenizer.EosID, Content: specials.Eos, Special: true},
	}

	specialTemplate := func(name string) map[string]interface{} {
		return map[string]interface{}{
			"SpecialToken": map[string]interface{}{"id": name, "type_id": 0},
		}
	}

	doc := map[string]interface{}{
		"version":       "1.0",
		"added_tokens":  added,
		"normalizer":    nil,
		"pre_tokenizer": nil,
		"decoder":       nil,
		"post_processor": map[string]interface{}{
			"type": "TemplateProcessing",
			"single": []interface{}{
				specialTemplate(specials.Bos),
				map[string]interface{}{
					"Sequence": map[string]interface{}{"id": "A", "type_id": 0},
				},
				specialTemplate(specials.Eos),
			},
			"special_tokens": map[string]interface{}{
				specials.Bos: map[string]interface{}{
					"id": specials.Bos, "ids": []int{tokenizer.BosID}, "tokens": []string{specials.Bos},
				},
				specials.Eos: map[string]interface{}{
					"id": specials.Eos, "ids": []int{tokenizer.EosID}, "tokens": []string{specials.Eos},
				},
			},
		},
		"model": map[string]interface{}{
			"type":      "BPE",
			"unk_token": specials.Unk,
			"vocab":     vocabMap(model),
			"merges":    mergeLines(model),
		},
	}
	return writeJSON(path, doc)
}

func writeJSON(path string, v interface{}) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(raw, '\n'), 0o644)
}
