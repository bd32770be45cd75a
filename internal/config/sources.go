package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ConfigSource indicates where a configuration value came from.
type ConfigSource string

const (
	// SourceDefault indicates a built-in default value.
	SourceDefault ConfigSource = "default"
	// SourceFile indicates the config file.
	SourceFile ConfigSource = "file"
	// SourceEnv indicates an environment variable override.
	SourceEnv ConfigSource = "env"
	// SourceFlag indicates a CLI flag override.
	SourceFlag ConfigSource = "flag"
)

// TrackedSource contains both the source type and where it came from
// (file path or environment variable name).
type TrackedSource struct {
	Source ConfigSource
	Path   string
}

// String returns a human-readable source description.
func (ts TrackedSource) String() string {
	if ts.Path == "" {
		return string(ts.Source)
	}
	return fmt.Sprintf("%s: %s", ts.Source, ts.Path)
}

// TrackedConfig wraps a Config with source tracking.
type TrackedConfig struct {
	Config  *Config
	Sources map[string]TrackedSource
}

// NewTrackedConfig creates a TrackedConfig holding the defaults.
func NewTrackedConfig() *TrackedConfig {
	return &TrackedConfig{
		Config:  Default(),
		Sources: make(map[string]TrackedSource),
	}
}

// SetSource records the source for a config path.
func (tc *TrackedConfig) SetSource(path string, source ConfigSource) {
	tc.Sources[path] = TrackedSource{Source: source}
}

// SetSourceWithPath records the source and origin for a config path.
func (tc *TrackedConfig) SetSourceWithPath(path string, source ConfigSource, origin string) {
	tc.Sources[path] = TrackedSource{Source: source, Path: origin}
}

// GetSource returns the source for a config path, SourceDefault if unrecorded.
func (tc *TrackedConfig) GetSource(path string) TrackedSource {
	if ts, ok := tc.Sources[path]; ok {
		return ts
	}
	return TrackedSource{Source: SourceDefault}
}

// Set applies value to the config path and records where it came from.
func (tc *TrackedConfig) Set(path, value string, source ConfigSource, origin string) error {
	if err := applyEnvVar(tc.Config, path, value); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	tc.SetSourceWithPath(path, source, origin)
	return nil
}

// LoadWithSources loads configuration with source tracking.
// Load order (later sources override earlier):
//  1. Built-in defaults
//  2. Config file at path (optional)
//  3. Environment variables (REPOBACK_*, then legacy names)
//
// Flags are applied by the caller with SetSource(path, SourceFlag).
func LoadWithSources(path string) (*TrackedConfig, error) {
	tc := NewTrackedConfig()

	if path != "" {
		if err := mergeFromFile(tc, path); err != nil {
			return nil, err
		}
	}

	if _, err := ApplyEnvVars(tc); err != nil {
		return nil, err
	}
	return tc, nil
}

// mergeFromFile decodes the file over tc.Config and marks every key it sets.
func mergeFromFile(tc *TrackedConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, tc.Config); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	for _, key := range keyPaths("", raw) {
		tc.SetSourceWithPath(key, SourceFile, path)
	}
	return nil
}

// keyPaths flattens nested YAML maps into dotted key paths.
func keyPaths(prefix string, m map[string]any) []string {
	var out []string
	for k, v := range m {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		if nested, ok := v.(map[string]any); ok {
			out = append(out, keyPaths(path, nested)...)
			continue
		}
		out = append(out, path)
	}
	return out
}
