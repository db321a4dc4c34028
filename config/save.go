package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// SaveGlobal writes a key-value pair to ~/.config/codeflow/config.yaml,
// creating the file if needed.
func SaveGlobal(key, value string) error {
	if !contains(validKeys, key) {
		return fmt.Errorf("unknown config key: %s\n\nValid keys: %s",
			key, strings.Join(validKeys, ", "))
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	configPath := filepath.Join(home, ".config", globalConfigDir, "config.yaml")

	existing := loadYAML(configPath)
	existing[key] = parseValue(value)

	if err := os.MkdirAll(filepath.Dir(configPath), 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(existing)
	if err != nil {
		return err
	}
	return os.WriteFile(configPath, data, 0o600)
}

// SaveLocal writes a key-value pair to .codeflow.yaml in the project root.
func SaveLocal(projectRoot, key, value string) error {
	if projectRoot == "" {
		return fmt.Errorf("project root not found")
	}
	if !contains(validKeys, key) {
		return fmt.Errorf("unknown config key: %s\n\nValid keys: %s",
			key, strings.Join(validKeys, ", "))
	}

	configPath := filepath.Join(projectRoot, localConfigName)

	existing := loadYAML(configPath)
	existing[key] = parseValue(value)

	data, err := yaml.Marshal(existing)
	if err != nil {
		return err
	}
	// Local config is shared and should be readable.
	return os.WriteFile(configPath, data, 0o644)
}

// DeleteGlobalKey removes a key from the global config. Missing file or key
// is not an error.
func DeleteGlobalKey(key string) error {
	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	configPath := filepath.Join(home, ".config", globalConfigDir, "config.yaml")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil
	}

	var existing map[string]any
	if err := yaml.Unmarshal(data, &existing); err != nil {
		return nil
	}
	delete(existing, key)

	data, err = yaml.Marshal(existing)
	if err != nil {
		return err
	}
	return os.WriteFile(configPath, data, 0o600)
}

func loadYAML(path string) map[string]any {
	existing := make(map[string]any)
	if data, err := os.ReadFile(path); err == nil {
		_ = yaml.Unmarshal(data, &existing)
	}
	return existing
}

// parseValue converts string values to appropriate types for YAML.
func parseValue(value string) any {
	switch strings.ToLower(value) {
	case "true":
		return true
	case "false":
		return false
	}
	return value
}
