package transform

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed data/lexicon.yaml
var defaultLexicon []byte

//go:embed data/synonyms.json
var defaultSynonyms []byte

// Lexicon is the rewrite vocabulary used by the local engine
type Lexicon struct {
	Phrases            map[string][]string `yaml:"phrases"`
	DomainPhrases      map[string][]string `yaml:"domain_phrases"`
	AcademicIndicators []string            `yaml:"academic_indicators"`
	AcademicWords      []string            `yaml:"academic_words"`
}

// DefaultLexicon parses the embedded lexicon
func DefaultLexicon() (*Lexicon, error) {
	return ParseLexicon(defaultLexicon)
}

// ParseLexicon decodes a YAML lexicon and lower-cases its keys
func ParseLexicon(data []byte) (*Lexicon, error) {
	var lex Lexicon
	if err := yaml.Unmarshal(data, &lex); err != nil {
		return nil, fmt.Errorf("parse lexicon: %w", err)
	}
	lex.Phrases = lowerKeys(lex.Phrases)
	lex.DomainPhrases = lowerKeys(lex.DomainPhrases)
	if len(lex.Phrases) == 0 {
		return nil, fmt.Errorf("parse lexicon: phrase table is empty")
	}
	return &lex, nil
}

// synonymEntry mirrors one record of a sinonim-style JSON database
type synonymEntry struct {
	Tag     string   `json:"tag"`
	Sinonim []string `json:"sinonim"`
}

// DefaultSynonyms parses the embedded synonym database
func DefaultSynonyms() (map[string][]string, error) {
	return ParseSynonyms(strings.NewReader(string(defaultSynonyms)))
}

// LoadSynonymsFile reads a synonym database from disk
func LoadSynonymsFile(path string) (map[string][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open synonyms: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ParseSynonyms(f)
}

// ParseSynonyms decodes {"word": {"tag": "n", "sinonim": [...]}} into a
// word -> alternatives map. Single-word synonyms also map back to the head word.
func ParseSynonyms(r io.Reader) (map[string][]string, error) {
	var raw map[string]synonymEntry
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse synonyms: %w", err)
	}

	out := make(map[string][]string, len(raw))
	add := func(word, alt string) {
		if word == alt || alt == "" {
			return
		}
		for _, existing := range out[word] {
			if existing == alt {
				return
			}
		}
		out[word] = append(out[word], alt)
	}

	// Head words first so their own lists keep their order
	for word, entry := range raw {
		word = strings.ToLower(strings.TrimSpace(word))
		for _, alt := range entry.Sinonim {
			add(word, strings.ToLower(strings.TrimSpace(alt)))
		}
	}
	for word, entry := range raw {
		word = strings.ToLower(strings.TrimSpace(word))
		for _, alt := range entry.Sinonim {
			alt = strings.ToLower(strings.TrimSpace(alt))
			if !strings.Contains(alt, " ") {
				if _, isHead := raw[alt]; !isHead {
					add(alt, word)
				}
			}
		}
	}
	return out, nil
}

func lowerKeys(in map[string][]string) map[string][]string {
	out := make(map[string][]string, len(in))
	for k, v := range in {
		out[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return out
}
