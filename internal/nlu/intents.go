package nlu

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Intent is one entry of the closed intent set the classifier may emit.
type Intent struct {
	Name        string   `yaml:"name" json:"name"`
	Tool        string   `yaml:"tool" json:"tool"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Actions     []string `yaml:"actions,omitempty" json:"actions,omitempty"`
}

// IntentConfig maps intent names to tools.
type IntentConfig struct {
	Intents []Intent `yaml:"intents" json:"intents"`

	byName map[string]Intent
}

// LoadIntentConfig reads the intent configuration (YAML; JSON is a YAML
// subset so both spellings parse).
func LoadIntentConfig(path string) (*IntentConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading intent config: %w", err)
	}
	return ParseIntentConfig(data)
}

// ParseIntentConfig parses and indexes intent config bytes.
func ParseIntentConfig(data []byte) (*IntentConfig, error) {
	var cfg IntentConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing intent config: %w", err)
	}
	if len(cfg.Intents) == 0 {
		return nil, fmt.Errorf("intent config declares no intents")
	}
	cfg.byName = make(map[string]Intent, len(cfg.Intents))
	for _, intent := range cfg.Intents {
		if intent.Name == "" || intent.Tool == "" {
			return nil, fmt.Errorf("intent entry missing name or tool: %+v", intent)
		}
		cfg.byName[strings.ToLower(intent.Name)] = intent
	}
	return &cfg, nil
}

// ToolFor resolves an intent name to its tool.
func (c *IntentConfig) ToolFor(intentName string) (string, bool) {
	intent, ok := c.byName[strings.ToLower(intentName)]
	if !ok {
		return "", false
	}
	return intent.Tool, true
}

// Has reports whether the intent name is declared.
func (c *IntentConfig) Has(intentName string) bool {
	_, ok := c.byName[strings.ToLower(intentName)]
	return ok
}
