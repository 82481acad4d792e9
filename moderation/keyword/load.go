package keyword

import (
	"encoding/json"
	"io"
	"os"
)

// On-disk rule list. Rules are loaded in the order: words, phrases, regexes.
type patternFile struct {
	Words   []string `json:"words"`
	Phrases []string `json:"phrases"`
	Regexes []string `json:"regexes"`
}

func LoadPatternsFileJSON(p string) ([]Pattern, error) {

	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return ParsePatternsJSON(raw)
}

func ParsePatternsJSON(raw []byte) ([]Pattern, error) {
	var pf patternFile
	if err := json.Unmarshal(raw, &pf); err != nil {
		return nil, err
	}

	out := make([]Pattern, 0, len(pf.Words)+len(pf.Phrases)+len(pf.Regexes))
	for _, w := range pf.Words {
		out = append(out, Word(w))
	}
	for _, p := range pf.Phrases {
		out = append(out, Phrase(p))
	}
	for _, r := range pf.Regexes {
		out = append(out, Regex(r))
	}
	return out, nil
}
