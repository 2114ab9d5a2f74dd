package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/agentforge/orchestrator/pkg/models"
)

// rosterDocument is the on-disk shape of the agent roster file: an array
// of agent entries under a single top-level key.
type rosterDocument struct {
	Agents []models.AgentConfig `mapstructure:"agents"`
}

// strictRosterDocument mirrors rosterDocument for the yaml.v3 strict
// decode pass below; its yaml tags must track models.AgentConfig's
// mapstructure tags field-for-field.
type strictRosterDocument struct {
	Agents []struct {
		ID                 string         `yaml:"id"`
		DisplayName        string         `yaml:"display_name"`
		Provider           string         `yaml:"provider"`
		Endpoint           string         `yaml:"endpoint"`
		StreamingRequired  bool           `yaml:"streaming_required"`
		ChatTemplateKwargs map[string]any `yaml:"chat_template_kwargs"`
		CredentialEnvVar   string         `yaml:"credential_env_var"`
		Model              string         `yaml:"model"`
		Avatar             string         `yaml:"avatar"`
		Role               string         `yaml:"role"`
		MaxTokens          int            `yaml:"max_tokens"`
		EnergyRechargeRate int            `yaml:"energy_recharge_rate"`
	} `yaml:"agents"`
}

// LoadRoster reads and validates the agent roster file at path. Viper
// does the actual field mapping; a strict yaml.v3 decode runs first and
// rejects any field name viper's loose mapstructure matching would
// otherwise silently drop, so a typo'd key in a hand-edited roster
// fails loudly instead of leaving an agent partially configured after
// a hot-reload swap.
func LoadRoster(path string) ([]models.AgentConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading agent roster %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	var strict strictRosterDocument
	if err := dec.Decode(&strict); err != nil {
		return nil, fmt.Errorf("agent roster %s has an unrecognized field: %w", path, err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("reading agent roster %s: %w", path, err)
	}

	var doc rosterDocument
	if err := v.Unmarshal(&doc); err != nil {
		return nil, fmt.Errorf("unmarshaling agent roster: %w", err)
	}

	if err := validateRoster(doc.Agents); err != nil {
		return nil, err
	}

	return doc.Agents, nil
}

// validateRoster rejects a roster with duplicate or empty ids, or an
// unrecognized provider kind, before it replaces a running registry's
// configuration on hot-reload.
func validateRoster(agents []models.AgentConfig) error {
	seen := make(map[string]bool, len(agents))
	for _, a := range agents {
		if a.ID == "" {
			return fmt.Errorf("agent roster entry missing id")
		}
		if seen[a.ID] {
			return fmt.Errorf("agent roster has duplicate id %q", a.ID)
		}
		seen[a.ID] = true
		if !a.Provider.Valid() {
			return fmt.Errorf("agent %q has unrecognized provider %q", a.ID, a.Provider)
		}
	}
	return nil
}
