package pipeline

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/hfopipe/hfocore"
	"github.com/hfopipe/hfocore/pkg/container"
)

func writeEEG(t *testing.T, path string, data *mat.Dense, fs float64, groups hfocore.ChannelGroups) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	w := container.NewWriter(f)
	w.PutMatrix("data", data)
	w.PutScalar("fs", fs)
	w.PutIntVector("ecog_chan_idx", groups.Ecog)
	w.PutIntVector("depth_chan_idx", groups.Depth)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())
}

func TestLoadEEG(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "eeg.bin")

	data := mat.NewDense(100, 2, nil)
	for i := 0; i < 100; i++ {
		data.Set(i, 0, float64(i))
		data.Set(i, 1, -float64(i))
	}
	groups := hfocore.ChannelGroups{Ecog: []int{1}, Depth: []int{2}}
	writeEEG(t, path, data, 2000, groups)

	sig, got, err := LoadEEG(path)
	require.NoError(t, err)
	assert.Equal(t, 100, sig.Samples())
	assert.Equal(t, 2, sig.Channels())
	assert.Equal(t, 2000.0, sig.FS)
	assert.Equal(t, groups, got)
}

func TestLoadEEGTransposesChannelMajor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eeg.bin")

	// 2 channels x 100 samples on disk.
	data := mat.NewDense(2, 100, nil)
	for i := 0; i < 100; i++ {
		data.Set(0, i, float64(i))
		data.Set(1, i, 7)
	}
	writeEEG(t, path, data, 2000, hfocore.ChannelGroups{Ecog: []int{1, 2}})

	sig, _, err := LoadEEG(path)
	require.NoError(t, err)
	assert.Equal(t, 100, sig.Samples())
	assert.Equal(t, 2, sig.Channels())
	assert.Equal(t, 5.0, sig.Data.At(5, 0))
	assert.Equal(t, 7.0, sig.Data.At(5, 1))
}

func TestLoadEEGMissingFile(t *testing.T) {
	_, _, err := LoadEEG(filepath.Join(t.TempDir(), "absent.bin"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestLoadEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.json")
	require.NoError(t, os.WriteFile(path, []byte(
		`{"start_idx": [100, 300], "end_idx": [200, 420], "chan_idx": [1, 3]}`), 0o644))

	events, err := LoadEvents(path)
	require.NoError(t, err)
	assert.Equal(t, []hfocore.Event{
		{Start: 100, End: 200, Chan: 1},
		{Start: 300, End: 420, Chan: 3},
	}, events)
}

func TestLoadEventsRejectsBadInput(t *testing.T) {
	dir := t.TempDir()
	write := func(body string) string {
		path := filepath.Join(dir, "events.json")
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
		return path
	}

	_, err := LoadEvents(write(`{"start_idx": [1], "end_idx": [2]}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chan_idx")

	_, err = LoadEvents(write(`{"start_idx": [1, 2], "end_idx": [3], "chan_idx": [1]}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lengths")

	_, err = LoadEvents(write(`{"start_idx": [1.5], "end_idx": [3], "chan_idx": [1]}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-integer")

	_, err = LoadEvents(write(`not json`))
	require.Error(t, err)
}

func TestBundleRoundTrip(t *testing.T) {
	dir := t.TempDir()
	pre := preprocessedFixture(t)

	bundlePath := filepath.Join(dir, "bundle.bin")
	channelPath := filepath.Join(dir, "channels.bin")
	require.NoError(t, SaveBundle(bundlePath, pre))
	require.NoError(t, SaveChannelInfo(channelPath, pre.Groups, pre.GoodChan))

	got, err := LoadBundle(bundlePath, channelPath)
	require.NoError(t, err)

	assert.Equal(t, pre.FS, got.FS)
	assert.Equal(t, pre.Groups.Ecog, got.Groups.Ecog)
	// The empty depth list round-trips as an empty (not nil) slice.
	assert.Empty(t, got.Groups.Depth)
	assert.Equal(t, pre.GoodChan, got.GoodChan)
	assert.True(t, mat.Equal(pre.Ecog.HFORaw, got.Ecog.HFORaw))
	assert.True(t, mat.Equal(pre.Ecog.HFOFilt, got.Ecog.HFOFilt))
	assert.True(t, mat.Equal(pre.Ecog.CARRaw, got.Ecog.CARRaw))
	assert.True(t, mat.Equal(pre.Ecog.CARFilt, got.Ecog.CARFilt))

	// The depth group is empty, and stays nil through the round trip.
	assert.Nil(t, got.Depth.HFORaw)
	assert.Nil(t, got.Depth.CARFilt)
}

func TestFeaturesRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "features.bin")
	x := mat.NewDense(2, 3, []float64{1, 2, math.NaN(), 4, 5, 6})
	names := []string{"hfo_duration", "hfo_amplitude", "hfo_skewness"}

	require.NoError(t, SaveFeatures(path, x, names))
	gotX, gotNames, err := LoadFeatures(path)
	require.NoError(t, err)

	assert.Equal(t, names, gotNames)
	r, c := gotX.Dims()
	require.Equal(t, 2, r)
	require.Equal(t, 3, c)
	assert.Equal(t, 1.0, gotX.At(0, 0))
	assert.True(t, math.IsNaN(gotX.At(0, 2)))
	assert.Equal(t, 6.0, gotX.At(1, 2))
}

// preprocessedFixture runs a real preprocessing pass over a small synthetic
// ecog-only recording.
func preprocessedFixture(t *testing.T) *hfocore.Preprocessed {
	t.Helper()
	const fs = 2000.0
	const n = 1000
	data := mat.NewDense(n, 2, nil)
	for i := 0; i < n; i++ {
		ti := float64(i) / fs
		data.Set(i, 0, math.Sin(2*math.Pi*130*ti))
		data.Set(i, 1, math.Sin(2*math.Pi*210*ti))
	}
	sig, err := hfocore.NewSignal(data, fs)
	require.NoError(t, err)

	pre, err := hfocore.Preprocess(sig, hfocore.ChannelGroups{Ecog: []int{1, 2}}, nil)
	require.NoError(t, err)
	return pre
}
