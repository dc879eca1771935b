// Package pipeline wires the processing stages together: it loads inputs,
// calls into the hfocore numerics, and persists each stage's output so the
// stages can also run independently.
package pipeline

import (
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hfopipe/hfocore"
	"github.com/hfopipe/hfocore/pkg/config"
	"github.com/hfopipe/hfocore/pkg/results"
	"github.com/hfopipe/hfocore/pkg/worker"
)

// Pipeline runs the classification stages against one configuration.
type Pipeline struct {
	cfg  *config.Config
	log  *logrus.Logger
	pool *worker.Pool
}

// New builds a Pipeline. The pool may be nil, in which case the numeric
// stages run sequentially.
func New(cfg *config.Config, log *logrus.Logger, pool *worker.Pool) *Pipeline {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Pipeline{cfg: cfg, log: log, pool: pool}
}

func (p *Pipeline) path(name string) string {
	return filepath.Join(p.cfg.OutputDir, name)
}

// Preprocess loads the raw recording, assesses channel quality, builds the
// per-group common-average reference and bandpass-filters everything. The
// resulting bundle and the channel info are written to the output directory.
func (p *Pipeline) Preprocess() error {
	start := time.Now()
	p.log.WithField("eeg_file", p.cfg.EEGFile).Info("preprocess: loading EEG")

	sig, groups, err := LoadEEG(p.cfg.EEGFile)
	if err != nil {
		return err
	}
	p.log.WithFields(logrus.Fields{
		"samples":  sig.Samples(),
		"channels": sig.Channels(),
		"fs":       sig.FS,
		"ecog":     len(groups.Ecog),
		"depth":    len(groups.Depth),
	}).Info("preprocess: EEG loaded")

	pre, err := hfocore.Preprocess(sig, groups, p.pool)
	if err != nil {
		return err
	}
	bad := 0
	for _, ok := range pre.GoodChan {
		if !ok {
			bad++
		}
	}
	p.log.WithField("bad_channels", bad).Info("preprocess: quality assessment done")

	if err := os.MkdirAll(p.cfg.OutputDir, 0o755); err != nil {
		return err
	}
	if err := SaveBundle(p.path(p.cfg.BundleFile), pre); err != nil {
		return err
	}
	if err := SaveChannelInfo(p.path(p.cfg.ChannelFile), pre.Groups, pre.GoodChan); err != nil {
		return err
	}
	p.log.WithField("elapsed", time.Since(start).Round(time.Millisecond)).
		Info("preprocess: done")
	return nil
}

// Extract computes the feature matrix for the detected events, restricted to
// the feature names the model asks for.
func (p *Pipeline) Extract() error {
	start := time.Now()

	pre, err := LoadBundle(p.path(p.cfg.BundleFile), p.path(p.cfg.ChannelFile))
	if err != nil {
		return err
	}
	events, err := LoadEvents(p.cfg.EventsFile)
	if err != nil {
		return err
	}
	model, err := hfocore.LoadModel(p.cfg.ModelFile)
	if err != nil {
		return err
	}
	p.log.WithFields(logrus.Fields{
		"events":   len(events),
		"features": len(model.Features),
	}).Info("extract: computing features")

	x, err := hfocore.ExtractFeatures(pre, events, model.Features, p.pool)
	if err != nil {
		return err
	}
	if err := SaveFeatures(p.path(p.cfg.FeaturesFile), x, model.Features); err != nil {
		return err
	}
	p.log.WithField("elapsed", time.Since(start).Round(time.Millisecond)).
		Info("extract: done")
	return nil
}

// Classify scores the saved feature matrix with the model and writes the
// results table as CSV.
func (p *Pipeline) Classify() error {
	start := time.Now()

	x, _, err := LoadFeatures(p.path(p.cfg.FeaturesFile))
	if err != nil {
		return err
	}
	model, err := hfocore.LoadModel(p.cfg.ModelFile)
	if err != nil {
		return err
	}
	_, good, err := LoadChannelInfo(p.path(p.cfg.ChannelFile))
	if err != nil {
		return err
	}
	events, err := LoadEvents(p.cfg.EventsFile)
	if err != nil {
		return err
	}

	labels, scores, err := hfocore.Classify(x, model)
	if err != nil {
		return err
	}
	table, err := results.Build(events, labels, scores, good, model.Threshold)
	if err != nil {
		return err
	}

	positive := 0
	for _, r := range table.Rows {
		if r.Label == 1 {
			positive++
		}
	}
	p.log.WithFields(logrus.Fields{
		"events":   len(table.Rows),
		"positive": positive,
	}).Info("classify: scored events")

	f, err := os.Create(p.path(p.cfg.ResultsFile))
	if err != nil {
		return err
	}
	if err := table.WriteCSV(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	p.log.WithField("elapsed", time.Since(start).Round(time.Millisecond)).
		Info("classify: done")
	return nil
}

// Run executes all stages in order.
func (p *Pipeline) Run() error {
	for _, stage := range []func() error{p.Preprocess, p.Extract, p.Classify} {
		if err := stage(); err != nil {
			return err
		}
	}
	return nil
}
