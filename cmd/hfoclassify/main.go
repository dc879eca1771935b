package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hfopipe/hfocore/internal/pipeline"
	"github.com/hfopipe/hfocore/pkg/config"
	"github.com/hfopipe/hfocore/pkg/worker"
)

var cfgFile string

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "hfoclassify",
		Short: "Classify detected HFO events as real oscillations or artifacts",
		Long: "hfoclassify preprocesses an intracranial EEG recording, extracts " +
			"per-event features and scores the events with a trained logistic " +
			"regression model. Stages can run individually or end to end.",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "configuration file")

	root.AddCommand(
		stageCmd("preprocess", "Assess channel quality, rereference and filter the recording",
			func(p *pipeline.Pipeline) error { return p.Preprocess() }),
		stageCmd("extract", "Compute per-event features from the preprocessed signals",
			func(p *pipeline.Pipeline) error { return p.Extract() }),
		stageCmd("classify", "Score the extracted features and write the results table",
			func(p *pipeline.Pipeline) error { return p.Classify() }),
		stageCmd("run", "Run all stages in order",
			func(p *pipeline.Pipeline) error { return p.Run() }),
	)
	return root
}

func stageCmd(name, short string, run func(*pipeline.Pipeline) error) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, pool, err := setup()
			if err != nil {
				return err
			}
			defer pool.Shutdown()
			return run(p)
		},
	}
}

// setup reads the configuration, builds the logger and the worker pool and
// returns a ready Pipeline.
func setup() (*pipeline.Pipeline, *worker.Pool, error) {
	cfg, err := loadConfig(cfgFile)
	if err != nil {
		return nil, nil, err
	}

	log := logrus.New()
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("log_level: %w", err)
	}
	log.SetLevel(level)

	pool := worker.New(cfg.Workers)
	log.WithField("workers", pool.Workers()).Debug("worker pool started")
	return pipeline.New(cfg, log, pool), pool, nil
}

func loadConfig(path string) (*config.Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("HFO")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	cfg := new(config.Config)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
