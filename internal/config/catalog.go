package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrEmptyCatalog is returned when the catalog lists no genres.
var ErrEmptyCatalog = errors.New("config: catalog has no genres")

//go:embed catalog.yaml
var defaultCatalog []byte

// Catalog lists the topics a run can pick from and the model variants
// tried for each multi-model provider.
type Catalog struct {
	Genres           []string `yaml:"genres"`
	GeminiModels     []string `yaml:"gemini_models"`
	OpenRouterModels []string `yaml:"openrouter_models"`
}

// LoadCatalog reads the catalog at path, or the embedded default when path
// is empty. Blank and duplicate entries are dropped.
func LoadCatalog(path string) (*Catalog, error) {
	data := defaultCatalog
	if path != "" {
		b, err := os.ReadFile(path) // #nosec G304 - path comes from configuration
		if err != nil {
			return nil, fmt.Errorf("read catalog: %w", err)
		}
		data = b
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes a YAML catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	c.Genres = dedupe(c.Genres)
	c.GeminiModels = dedupe(c.GeminiModels)
	c.OpenRouterModels = dedupe(c.OpenRouterModels)

	if len(c.Genres) == 0 {
		return nil, ErrEmptyCatalog
	}
	return &c, nil
}

func dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
