// Package catalog reads variety catalogs written in YAML:
//
//	varieties:
//	  - name: Sunflower
//	    germination_days: 1
//	    blackout_days: 3
//	    growing_days: 7
//	    seed_density: 200
//	    temperature: {min: 18, optimal: 21, max: 24}
//	    price_per_gram: 0.02
//
// Entries are validated by the store when they are imported.
package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/erazemk/kalcki/internal/model"
)

// ErrEmpty is returned for a catalog without varieties.
var ErrEmpty = errors.New("catalog: no varieties")

type document struct {
	Varieties []model.VarietyInput `yaml:"varieties"`
}

// Parse decodes a catalog. Unknown keys are rejected so that typos in field
// names do not silently drop values.
func Parse(data []byte) ([]model.VarietyInput, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmpty
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}
	if len(doc.Varieties) == 0 {
		return nil, ErrEmpty
	}
	return doc.Varieties, nil
}

// Read decodes a catalog from r.
func Read(r io.Reader) ([]model.VarietyInput, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("catalog: read: %w", err)
	}
	return Parse(data)
}

// LoadFile decodes the catalog at path.
func LoadFile(path string) ([]model.VarietyInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	varieties, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return varieties, nil
}
