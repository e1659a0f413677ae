package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// sectionComments are written above the top-level keys of a generated file.
var sectionComments = map[string]string{
	"logging": "Logging: level (DEBUG, INFO, WARN, ERROR), format (text, json),\noutput (stdout, stderr or a file path)",
	"loader":  "Loader sizing. page_size and max_resident_pages apply to offset-addressable\nfolders; sequential_page_size to cursor-addressable ones (object stores, APIs)",
	"sources": "Sources: one named storage backend each. type is one of memory, filesystem,\ns3, azure, http, badger; the matching section holds its settings.\nrate_limit throttles page fetches across the whole source.",
	"browse":  "Session defaults: sort_field (name, updatedTime, size, type), sort_order (a, d)\nand the collection that receives favorites",
	"metrics": "Prometheus metrics endpoint. host restricts the listen address (empty = all interfaces)",
}

// InitConfig writes the default configuration to the default location.
//
// Returns the path of the written file. Without force an existing file is
// an error.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes the default configuration to path, creating parent
// directories as needed.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
		}
	}

	content, err := generateYAMLWithComments(GetDefaultConfig())
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// generateYAMLWithComments renders cfg as YAML with a header and a comment
// above every top-level section.
func generateYAMLWithComments(cfg *Config) (string, error) {
	var doc yaml.Node
	if err := doc.Encode(cfg); err != nil {
		return "", fmt.Errorf("failed to encode config: %w", err)
	}

	doc.HeadComment = "dittobrowse Configuration File\nGenerated by 'dittobrowse init'. Environment variables override\nany value: DITTOBROWSE_<SECTION>_<KEY>, e.g. DITTOBROWSE_LOGGING_LEVEL=DEBUG"

	// Content alternates key and value nodes.
	for i := 0; i+1 < len(doc.Content); i += 2 {
		key := doc.Content[i]
		if comment, ok := sectionComments[key.Value]; ok {
			key.HeadComment = comment
		}
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}
	return buf.String(), nil
}
