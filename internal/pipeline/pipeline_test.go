package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/hfopipe/hfocore"
	"github.com/hfopipe/hfocore/pkg/config"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// fullFixture writes a complete input set to dir: a five-channel recording
// with one spiked ecog channel, three detected events, and a model over the
// full feature schema that always predicts positive on clean input.
func fullFixture(t *testing.T, dir string) *config.Config {
	t.Helper()
	const fs = 2000.0
	const n = 2000

	data := mat.NewDense(n, 5, nil)
	freqs := []float64{110, 150, 230, 170, 340}
	for i := 0; i < n; i++ {
		ti := float64(i) / fs
		for j, f := range freqs {
			data.Set(i, j, math.Sin(2*math.Pi*f*ti))
		}
	}
	// Channel 2 fails quality: 10% of its samples are huge spikes.
	for i := 0; i < n; i += 10 {
		data.Set(i, 1, 1e4)
	}
	writeEEG(t, filepath.Join(dir, "eeg.bin"), data, fs,
		hfocore.ChannelGroups{Ecog: []int{1, 2, 3}, Depth: []int{4, 5}})

	events := map[string][]float64{
		"start_idx": {101, 301, 501},
		"end_idx":   {220, 420, 504},
		"chan_idx":  {1, 2, 4},
	}
	eventsData, err := json.Marshal(events)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "events.json"), eventsData, 0o644))

	names := hfocore.FeatureNames()
	model := map[string]any{
		"coefficients": make([]float64, len(names)),
		"intercept":    1.0,
		"threshold":    0.5,
		"features":     names,
		"mean":         make([]float64, len(names)),
		"std":          onesVector(len(names)),
	}
	modelData, err := json.Marshal(model)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "model.json"), modelData, 0o644))

	return &config.Config{
		EEGFile:      filepath.Join(dir, "eeg.bin"),
		EventsFile:   filepath.Join(dir, "events.json"),
		ModelFile:    filepath.Join(dir, "model.json"),
		OutputDir:    filepath.Join(dir, "out"),
		BundleFile:   "preprocessed.bin",
		ChannelFile:  "channels.bin",
		FeaturesFile: "features.bin",
		ResultsFile:  "results.csv",
		Workers:      2,
		LogLevel:     "info",
	}
}

func onesVector(n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = 1
	}
	return v
}

func TestPipelineEndToEnd(t *testing.T) {
	dir := t.TempDir()
	cfg := fullFixture(t, dir)

	p := New(cfg, quietLogger(), nil)
	require.NoError(t, p.Run())

	f, err := os.Open(filepath.Join(cfg.OutputDir, "results.csv"))
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)

	header := records[0]
	assert.Equal(t, "is_HFO_thresh_0_50", header[3])

	// Event on a clean channel: zero coefficients and intercept 1 give a
	// score of sigmoid(1), above the 0.5 threshold.
	assert.Equal(t, "1", records[1][3])
	assert.NotEmpty(t, records[1][4])
	assert.Equal(t, "0", records[1][5])
	assert.Equal(t, "0", records[1][6])

	// Event on the spiked channel: label and score wiped, flagged bad.
	assert.Empty(t, records[2][3])
	assert.Empty(t, records[2][4])
	assert.Equal(t, "1", records[2][5])
	assert.Equal(t, "1", records[2][6])

	// Too-short event on a clean depth channel: NaN features give a NaN
	// score, but the channel itself is fine.
	assert.Empty(t, records[3][3])
	assert.Equal(t, "0", records[3][5])
	assert.Equal(t, "1", records[3][6])
}

func TestPipelineStagesMatchRun(t *testing.T) {
	dir := t.TempDir()
	cfg := fullFixture(t, dir)
	p := New(cfg, quietLogger(), nil)

	require.NoError(t, p.Preprocess())
	require.NoError(t, p.Extract())
	require.NoError(t, p.Classify())
	staged, err := os.ReadFile(filepath.Join(cfg.OutputDir, "results.csv"))
	require.NoError(t, err)

	// A second full run over the same inputs is deterministic.
	require.NoError(t, p.Run())
	rerun, err := os.ReadFile(filepath.Join(cfg.OutputDir, "results.csv"))
	require.NoError(t, err)
	assert.Equal(t, staged, rerun)
}

func TestPipelineStageErrorsSurface(t *testing.T) {
	dir := t.TempDir()
	cfg := fullFixture(t, dir)
	p := New(cfg, quietLogger(), nil)

	// Extract before Preprocess: the bundle does not exist yet.
	require.Error(t, p.Extract())

	cfg.EEGFile = filepath.Join(dir, "absent.bin")
	require.Error(t, p.Preprocess())
}

func TestPipelineExtractRestrictsToModelFeatures(t *testing.T) {
	dir := t.TempDir()
	cfg := fullFixture(t, dir)

	// Rewrite the model around two features only.
	model := map[string]any{
		"coefficients": []float64{0.0, 0.0},
		"intercept":    1.0,
		"threshold":    0.5,
		"features":     []string{"hfo_duration", "car_entropy"},
		"mean":         []float64{0, 0},
		"std":          []float64{1, 1},
	}
	modelData, err := json.Marshal(model)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(cfg.ModelFile, modelData, 0o644))

	p := New(cfg, quietLogger(), nil)
	require.NoError(t, p.Run())

	x, names, err := LoadFeatures(filepath.Join(cfg.OutputDir, "features.bin"))
	require.NoError(t, err)
	assert.Equal(t, []string{"hfo_duration", "car_entropy"}, names)
	_, c := x.Dims()
	assert.Equal(t, 2, c)
	// First event spans 120 samples at 2 kHz.
	assert.Equal(t, 60.0, x.At(0, 0))
}
