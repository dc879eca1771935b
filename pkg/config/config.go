// Package config holds the explicit pipeline configuration. Every field is
// mandatory: there are no defaults, and validation reports the first missing
// field by name.
package config

import "fmt"

// Config names every file the pipeline consumes and produces, plus the
// runtime knobs. Paths are interpreted relative to the working directory.
type Config struct {
	EEGFile      string `mapstructure:"eeg_file"`
	EventsFile   string `mapstructure:"events_file"`
	ModelFile    string `mapstructure:"model_file"`
	OutputDir    string `mapstructure:"output_dir"`
	BundleFile   string `mapstructure:"preprocessed_eeg_file"`
	ChannelFile  string `mapstructure:"channel_info_file"`
	FeaturesFile string `mapstructure:"features_file"`
	ResultsFile  string `mapstructure:"results_file"`
	Workers      int    `mapstructure:"workers"`
	LogLevel     string `mapstructure:"log_level"`
}

// Validate fails on the first absent or empty field.
func (c *Config) Validate() error {
	fields := []struct {
		name  string
		value string
	}{
		{"eeg_file", c.EEGFile},
		{"events_file", c.EventsFile},
		{"model_file", c.ModelFile},
		{"output_dir", c.OutputDir},
		{"preprocessed_eeg_file", c.BundleFile},
		{"channel_info_file", c.ChannelFile},
		{"features_file", c.FeaturesFile},
		{"results_file", c.ResultsFile},
		{"log_level", c.LogLevel},
	}
	for _, f := range fields {
		if f.value == "" {
			return fmt.Errorf("config: required field %q is missing or empty", f.name)
		}
	}
	if c.Workers <= 0 {
		return fmt.Errorf("config: required field %q must be a positive worker count", "workers")
	}
	return nil
}
