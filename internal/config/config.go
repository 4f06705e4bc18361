// Package config loads on-disk defaults for the compiler's scoring weights
// and soft preferences. It is a convenience layer only: every field here can
// also be set directly on a CompileRequest, and a caller that never touches
// this package still gets the hard-coded package defaults.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// WeightsConfig mirrors ScoreWeights. Weights need not sum to 1; scoring is
// linear, matching the core package's own defaults.
type WeightsConfig struct {
	Semantic   float64 `yaml:"semantic" json:"semantic"`
	Lexical    float64 `yaml:"lexical" json:"lexical"`
	Structural float64 `yaml:"structural" json:"structural"`
	Graph      float64 `yaml:"graph" json:"graph"`
	Recency    float64 `yaml:"recency" json:"recency"`
	StageBoost float64 `yaml:"stage_boost" json:"stage_boost"`
}

// DefaultWeights returns the package's scoring defaults.
func DefaultWeights() WeightsConfig {
	return WeightsConfig{
		Semantic:   0.40,
		Lexical:    0.20,
		Structural: 0.20,
		Graph:      0.10,
		Recency:    0.05,
		StageBoost: 0.05,
	}
}

// PreferencesConfig mirrors SoftPreferences, minus the per-request
// PreferStages list (set programmatically, not configured on disk).
type PreferencesConfig struct {
	DiversityLambda      float64 `yaml:"diversity_lambda" json:"diversity_lambda"`
	MaxSingleSourceRatio float64 `yaml:"max_single_source_ratio" json:"max_single_source_ratio"`
}

// DefaultPreferences returns the package's soft-preference defaults.
func DefaultPreferences() PreferencesConfig {
	return PreferencesConfig{
		DiversityLambda:      0.6,
		MaxSingleSourceRatio: 0.4,
	}
}

// Defaults is the on-disk configuration shape, loaded from
// .wscompile.yaml (project-local) and ~/.config/wscompile/config.yaml
// (user-global), with environment variables taking the highest precedence.
type Defaults struct {
	Version     int               `yaml:"version" json:"version"`
	Weights     WeightsConfig     `yaml:"weights" json:"weights"`
	Preferences PreferencesConfig `yaml:"preferences" json:"preferences"`
}

// NewDefaults returns a Defaults populated with the package's hard-coded values.
func NewDefaults() *Defaults {
	return &Defaults{
		Version:     1,
		Weights:     DefaultWeights(),
		Preferences: DefaultPreferences(),
	}
}

// GetUserConfigDir returns the user-global config directory
// (~/.config/wscompile), honoring XDG_CONFIG_HOME when set.
func GetUserConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "wscompile")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "wscompile")
}

// GetUserConfigPath returns the user-global config file path.
func GetUserConfigPath() string {
	dir := GetUserConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

func loadUserConfig() (*Defaults, error) {
	path := GetUserConfigPath()
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil, nil
	}
	d := &Defaults{}
	if err := d.loadYAML(path); err != nil {
		return nil, err
	}
	return d, nil
}

// Load builds the effective Defaults for dir: package defaults, overridden by
// the user-global config, overridden by a project-local
// .wscompile.yaml/.wscompile.yml, overridden by environment variables.
func Load(dir string) (*Defaults, error) {
	d := NewDefaults()

	if userCfg, err := loadUserConfig(); err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	} else if userCfg != nil {
		d.mergeWith(userCfg)
	}

	if err := d.loadFromProject(dir); err != nil {
		return nil, err
	}

	d.applyEnvOverrides()

	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return d, nil
}

func (d *Defaults) loadFromProject(dir string) error {
	yamlPath := filepath.Join(dir, ".wscompile.yaml")
	if _, err := os.Stat(yamlPath); err == nil {
		return d.loadYAML(yamlPath)
	}

	ymlPath := filepath.Join(dir, ".wscompile.yml")
	if _, err := os.Stat(ymlPath); err == nil {
		return d.loadYAML(ymlPath)
	}

	return nil
}

func (d *Defaults) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Defaults
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	d.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into d.
func (d *Defaults) mergeWith(other *Defaults) {
	if other.Version != 0 {
		d.Version = other.Version
	}
	if other.Weights.Semantic != 0 {
		d.Weights.Semantic = other.Weights.Semantic
	}
	if other.Weights.Lexical != 0 {
		d.Weights.Lexical = other.Weights.Lexical
	}
	if other.Weights.Structural != 0 {
		d.Weights.Structural = other.Weights.Structural
	}
	if other.Weights.Graph != 0 {
		d.Weights.Graph = other.Weights.Graph
	}
	if other.Weights.Recency != 0 {
		d.Weights.Recency = other.Weights.Recency
	}
	if other.Weights.StageBoost != 0 {
		d.Weights.StageBoost = other.Weights.StageBoost
	}
	if other.Preferences.DiversityLambda != 0 {
		d.Preferences.DiversityLambda = other.Preferences.DiversityLambda
	}
	if other.Preferences.MaxSingleSourceRatio != 0 {
		d.Preferences.MaxSingleSourceRatio = other.Preferences.MaxSingleSourceRatio
	}
}

// applyEnvOverrides applies WSCOMPILE_* environment variables, taking
// precedence over both the user and project config files.
func (d *Defaults) applyEnvOverrides() {
	if v := os.Getenv("WSCOMPILE_DIVERSITY_LAMBDA"); v != "" {
		if f, err := parseFloat64(v); err == nil {
			d.Preferences.DiversityLambda = f
		}
	}
	if v := os.Getenv("WSCOMPILE_MAX_SOURCE_RATIO"); v != "" {
		if f, err := parseFloat64(v); err == nil {
			d.Preferences.MaxSingleSourceRatio = f
		}
	}
	if v := os.Getenv("WSCOMPILE_SEMANTIC_WEIGHT"); v != "" {
		if f, err := parseFloat64(v); err == nil {
			d.Weights.Semantic = f
		}
	}
	if v := os.Getenv("WSCOMPILE_LEXICAL_WEIGHT"); v != "" {
		if f, err := parseFloat64(v); err == nil {
			d.Weights.Lexical = f
		}
	}
}

func parseFloat64(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

// Validate checks that Defaults fall within the ranges SoftPreferences
// requires. Weights are deliberately unconstrained; they need not sum to 1.
func (d *Defaults) Validate() error {
	if d.Preferences.DiversityLambda < 0 || d.Preferences.DiversityLambda > 1 {
		return fmt.Errorf("diversity_lambda must be in [0,1], got %f", d.Preferences.DiversityLambda)
	}
	if d.Preferences.MaxSingleSourceRatio <= 0 || d.Preferences.MaxSingleSourceRatio > 1 {
		return fmt.Errorf("max_single_source_ratio must be in (0,1], got %f", d.Preferences.MaxSingleSourceRatio)
	}
	for name, w := range map[string]float64{
		"semantic":    d.Weights.Semantic,
		"lexical":     d.Weights.Lexical,
		"structural":  d.Weights.Structural,
		"graph":       d.Weights.Graph,
		"recency":     d.Weights.Recency,
		"stage_boost": d.Weights.StageBoost,
	} {
		if w < 0 || math.IsNaN(w) {
			return fmt.Errorf("weight %q must be non-negative, got %f", name, w)
		}
	}
	return nil
}

// WriteYAML writes d to path, creating parent directories as needed.
func (d *Defaults) WriteYAML(path string) error {
	data, err := yaml.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
