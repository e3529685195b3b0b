// Package config loads the analyzer's single JSON configuration document
// (spec.md §6 "Configuration") via viper, mirroring the teacher's
// viper.New()-per-load pattern in reinforcement.FromYaml.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// AnalysisConfig controls batching, rounding, and storage location.
type AnalysisConfig struct {
	MaxBatchSize    int    `mapstructure:"maxBatchSize"`
	PrecisionDigits int    `mapstructure:"precisionDigits"`
	SaveInterval    int    `mapstructure:"saveInterval"`
	OutputDirectory string `mapstructure:"outputDirectory"`
}

// EvaluationConfig controls terminal-value assignment.
type EvaluationConfig struct {
	Draw float64 `mapstructure:"draw"`
}

// Config is the full resolved configuration document.
type Config struct {
	Analysis   AnalysisConfig   `mapstructure:"analysis"`
	Evaluation EvaluationConfig `mapstructure:"evaluation"`
}

// Defaults returns the configuration spec.md §6 specifies when a key is
// absent from the document (or no document is given at all).
func Defaults() Config {
	return Config{
		Analysis: AnalysisConfig{
			MaxBatchSize:    1000,
			PrecisionDigits: 6,
			SaveInterval:    100,
			OutputDirectory: "./analysis-results",
		},
		Evaluation: EvaluationConfig{
			Draw: 0.0,
		},
	}
}

// Load resolves the configuration: defaults overlaid with path's JSON
// document, if path is non-empty. A missing file at a non-empty path is an
// error; an empty path just returns the defaults.
func Load(path string) (Config, error) {
	vp := viper.New()
	vp.SetConfigType("json")
	setDefaults(vp)

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return Config{}, fmt.Errorf("config: %w", err)
		}
		vp.SetConfigFile(path)
		if err := vp.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := vp.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	return cfg, nil
}

func setDefaults(vp *viper.Viper) {
	d := Defaults()
	vp.SetDefault("analysis.maxBatchSize", d.Analysis.MaxBatchSize)
	vp.SetDefault("analysis.precisionDigits", d.Analysis.PrecisionDigits)
	vp.SetDefault("analysis.saveInterval", d.Analysis.SaveInterval)
	vp.SetDefault("analysis.outputDirectory", d.Analysis.OutputDirectory)
	vp.SetDefault("evaluation.draw", d.Evaluation.Draw)
}

// WithDrawValue overrides Evaluation.Draw, implementing the CLI's
// --draw-value/-d override (spec.md §6).
func (c Config) WithDrawValue(v float64) Config {
	c.Evaluation.Draw = v
	return c
}
