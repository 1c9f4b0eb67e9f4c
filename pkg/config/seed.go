// Package config loads the YAML seed file that bootstraps workspaces and automations.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dukex/crate/pkg/models"
	"gopkg.in/yaml.v3"
)

// SeedFile represents the structure of a seed file.
type SeedFile struct {
	Workspaces []WorkspaceSeed `json:"workspaces"`
}

// WorkspaceSeed is one workspace and the automations created inside it.
type WorkspaceSeed struct {
	Owner       string                    `json:"owner"`
	Name        string                    `json:"name"`
	Description *string                   `json:"description,omitempty"`
	Settings    *models.WorkspaceSettings `json:"settings,omitempty"`
	Automations []AutomationSeed          `json:"automations,omitempty"`
}

type AutomationSeed struct {
	Name    string          `json:"name"`
	Trigger models.Trigger  `json:"trigger"`
	Actions []models.Action `json:"actions,omitempty"`
}

// LoadSeed reads a seed file from path.
func LoadSeed(path string) (*SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file %s: %w", path, err)
	}

	return ParseSeed(data)
}

// ParseSeed decodes YAML seed data. Field names follow the JSON names of the
// API models, so a seed entry reads like the corresponding request body.
func ParseSeed(data []byte) (*SeedFile, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse YAML seed: %w", err)
	}

	// yaml.v3 decodes mappings with string keys into map[string]any, which
	// encoding/json accepts as is.
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to convert seed: %w", err)
	}

	var seed SeedFile
	if err := json.Unmarshal(encoded, &seed); err != nil {
		return nil, fmt.Errorf("invalid seed: %w", err)
	}

	for i, ws := range seed.Workspaces {
		if ws.Owner == "" || ws.Name == "" {
			return nil, fmt.Errorf("invalid seed: workspace %d needs an owner and a name", i)
		}
	}

	return &seed, nil
}
