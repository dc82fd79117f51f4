package scoring

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Weights maps an event type to its integer weight. Types that are absent
// weigh zero.
type Weights map[string]int

// Weight returns the weight for eventType, or 0.
func (w Weights) Weight(eventType string) int {
	return w[eventType]
}

// ParseWeights decodes a YAML mapping of type to weight. Fractional values
// are truncated toward zero.
func ParseWeights(data []byte) (Weights, error) {
	raw := map[string]float64{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse risk weights: %w", err)
	}

	w := make(Weights, len(raw))
	for k, v := range raw {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("parse risk weights: %q is not a finite number", k)
		}
		w[k] = int(v)
	}
	return w, nil
}

// LoadWeights reads a weights file. An empty path selects DefaultWeights. A
// missing file is reported with an error wrapping fs.ErrNotExist and an empty
// table, so callers can warn and run on.
func LoadWeights(path string) (Weights, error) {
	if path == "" {
		return DefaultWeights(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Weights{}, fmt.Errorf("risk weights %s: %w", path, fs.ErrNotExist)
		}
		return nil, fmt.Errorf("read risk weights: %w", err)
	}
	return ParseWeights(data)
}
