package model

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/weather-forecast-service/internal/domain"
	"gopkg.in/yaml.v3"
)

// DefaultConfigPaths is the search list for the model config document.
var DefaultConfigPaths = []string{
	"models/model_config.json",
	"model_config.json",
	"edge-deployment/config.json",
	"models/model_config.yaml",
}

// configDocument is the model config written alongside an exported model.
// Keys other than feature_ranges are ignored.
type configDocument struct {
	FeatureRanges domain.FeatureRanges `json:"feature_ranges" yaml:"feature_ranges"`
}

// LoadFeatureRanges reads feature_ranges from a JSON or YAML document. An
// empty path returns the defaults. Features the document omits keep their
// default range.
func LoadFeatureRanges(path string) (domain.FeatureRanges, error) {
	ranges := domain.DefaultFeatureRanges()
	if path == "" {
		return ranges, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model config: %w", err)
	}

	var doc configDocument
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &doc)
	default:
		err = json.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("decode model config %s: %w", path, err)
	}

	for name, fr := range doc.FeatureRanges {
		ranges[name] = fr
	}
	if err := ranges.Validate(); err != nil {
		return nil, fmt.Errorf("model config %s: %w", path, err)
	}
	return ranges, nil
}
