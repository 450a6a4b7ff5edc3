// Package catalog loads challenge catalogs, including the bundled Hong Kong sample.
package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"hkexplorer/pkg/model"
)

//go:embed sample.json
var sampleJSON []byte

//go:embed scenarios.json
var scenariosJSON []byte

// Scenario is a canned request used to exercise the planner end to end.
type Scenario struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	Expect  string `json:"expect"`
}

// Sample returns a fresh copy of the bundled Hong Kong catalog.
func Sample() []model.Challenge {
	var out []model.Challenge
	if err := json.Unmarshal(sampleJSON, &out); err != nil {
		panic(fmt.Sprintf("catalog: embedded sample is invalid: %v", err))
	}
	return out
}

// Scenarios returns the bundled test scenarios.
func Scenarios() []Scenario {
	var out []Scenario
	if err := json.Unmarshal(scenariosJSON, &out); err != nil {
		panic(fmt.Sprintf("catalog: embedded scenarios are invalid: %v", err))
	}
	return out
}

// Load decodes a JSON array of challenges. Entries without an ID are dropped.
func Load(r io.Reader) ([]model.Challenge, error) {
	var raw []model.Challenge
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}
	out := raw[:0]
	for _, c := range raw {
		if c.ID == "" {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// LoadFile reads a catalog from disk.
func LoadFile(path string) ([]model.Challenge, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()
	return Load(f)
}
