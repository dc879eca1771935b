package pipeline

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"

	"github.com/hfopipe/hfocore"
	"github.com/hfopipe/hfocore/pkg/container"
)

// bundle section names, matching the original export layout.
var bundleFields = []string{
	"ecog_hfo_raw", "ecog_hfo_filt", "ecog_car_raw", "ecog_car_filt",
	"depth_hfo_raw", "depth_hfo_filt", "depth_car_raw", "depth_car_filt",
}

// LoadEEG reads a raw recording container: time-major data matrix, sampling
// rate, and the two channel group index lists. A channel-major matrix is
// transposed on load.
func LoadEEG(path string) (*hfocore.Signal, hfocore.ChannelGroups, error) {
	var groups hfocore.ChannelGroups
	f, err := readContainer(path)
	if err != nil {
		return nil, groups, err
	}
	data, err := f.Matrix("data")
	if err != nil {
		return nil, groups, err
	}
	if data == nil {
		return nil, groups, fmt.Errorf("eeg file %s: field \"data\" is empty", path)
	}
	fs, err := f.Scalar("fs")
	if err != nil {
		return nil, groups, err
	}
	if groups.Ecog, err = f.IntVector("ecog_chan_idx"); err != nil {
		return nil, groups, err
	}
	if groups.Depth, err = f.IntVector("depth_chan_idx"); err != nil {
		return nil, groups, err
	}

	if r, c := data.Dims(); c > r {
		transposed := mat.NewDense(c, r, nil)
		transposed.Copy(data.T())
		data = transposed
	}
	sig, err := hfocore.NewSignal(data, fs)
	if err != nil {
		return nil, groups, fmt.Errorf("eeg file %s: %w", path, err)
	}
	return sig, groups, nil
}

// SaveBundle persists the eight preprocessed signal matrices.
func SaveBundle(path string, pre *hfocore.Preprocessed) error {
	w, f, err := newContainerWriter(path)
	if err != nil {
		return err
	}
	matrices := []*mat.Dense{
		pre.Ecog.HFORaw, pre.Ecog.HFOFilt, pre.Ecog.CARRaw, pre.Ecog.CARFilt,
		pre.Depth.HFORaw, pre.Depth.HFOFilt, pre.Depth.CARRaw, pre.Depth.CARFilt,
	}
	for i, name := range bundleFields {
		w.PutMatrix(name, matrices[i])
	}
	w.PutScalar("fs", pre.FS)
	if err := w.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadBundle restores the preprocessed signals and channel info written by
// SaveBundle / SaveChannelInfo.
func LoadBundle(bundlePath, channelPath string) (*hfocore.Preprocessed, error) {
	f, err := readContainer(bundlePath)
	if err != nil {
		return nil, err
	}
	var matrices [8]*mat.Dense
	for i, name := range bundleFields {
		if matrices[i], err = f.Matrix(name); err != nil {
			return nil, err
		}
	}
	fs, err := f.Scalar("fs")
	if err != nil {
		return nil, err
	}

	groups, good, err := LoadChannelInfo(channelPath)
	if err != nil {
		return nil, err
	}
	return &hfocore.Preprocessed{
		Ecog:     hfocore.Bundle{HFORaw: matrices[0], HFOFilt: matrices[1], CARRaw: matrices[2], CARFilt: matrices[3]},
		Depth:    hfocore.Bundle{HFORaw: matrices[4], HFOFilt: matrices[5], CARRaw: matrices[6], CARFilt: matrices[7]},
		Groups:   groups,
		GoodChan: good,
		FS:       fs,
	}, nil
}

// SaveChannelInfo persists the group index lists and the quality mask.
func SaveChannelInfo(path string, groups hfocore.ChannelGroups, good []bool) error {
	w, f, err := newContainerWriter(path)
	if err != nil {
		return err
	}
	w.PutIntVector("ecog_chan_idx", groups.Ecog)
	w.PutIntVector("depth_chan_idx", groups.Depth)
	w.PutBoolVector("good_chan_mask", good)
	if err := w.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadChannelInfo restores what SaveChannelInfo wrote.
func LoadChannelInfo(path string) (hfocore.ChannelGroups, []bool, error) {
	var groups hfocore.ChannelGroups
	f, err := readContainer(path)
	if err != nil {
		return groups, nil, err
	}
	if groups.Ecog, err = f.IntVector("ecog_chan_idx"); err != nil {
		return groups, nil, err
	}
	if groups.Depth, err = f.IntVector("depth_chan_idx"); err != nil {
		return groups, nil, err
	}
	good, err := f.BoolVector("good_chan_mask")
	if err != nil {
		return groups, nil, err
	}
	return groups, good, nil
}

// eventsJSON is the on-disk event layout: three equal-length 1-based integer
// columns.
type eventsJSON struct {
	Start *[]float64 `json:"start_idx"`
	End   *[]float64 `json:"end_idx"`
	Chan  *[]float64 `json:"chan_idx"`
}

// LoadEvents reads and validates detected events. Fractional values are
// rejected; indices stay 1-based.
func LoadEvents(path string) ([]hfocore.Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("events file: %w", err)
	}
	var raw eventsJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("events file %s: malformed JSON: %w", path, err)
	}
	cols := []struct {
		name string
		col  *[]float64
	}{
		{"start_idx", raw.Start},
		{"end_idx", raw.End},
		{"chan_idx", raw.Chan},
	}
	for _, c := range cols {
		if c.col == nil {
			return nil, fmt.Errorf("events file %s: missing field %q", path, c.name)
		}
	}
	n := len(*raw.Start)
	if len(*raw.End) != n || len(*raw.Chan) != n {
		return nil, fmt.Errorf("events file %s: column lengths differ (%d/%d/%d)", path, n, len(*raw.End), len(*raw.Chan))
	}
	toInt := func(name string, v float64) (int, error) {
		if v != math.Trunc(v) || math.IsNaN(v) {
			return 0, fmt.Errorf("events file %s: field %q contains non-integer value %g", path, name, v)
		}
		return int(v), nil
	}
	events := make([]hfocore.Event, n)
	for i := 0; i < n; i++ {
		var e hfocore.Event
		if e.Start, err = toInt("start_idx", (*raw.Start)[i]); err != nil {
			return nil, err
		}
		if e.End, err = toInt("end_idx", (*raw.End)[i]); err != nil {
			return nil, err
		}
		if e.Chan, err = toInt("chan_idx", (*raw.Chan)[i]); err != nil {
			return nil, err
		}
		events[i] = e
	}
	return events, nil
}

// SaveFeatures persists the per-event feature matrix with its column names.
func SaveFeatures(path string, x *mat.Dense, names []string) error {
	w, f, err := newContainerWriter(path)
	if err != nil {
		return err
	}
	w.PutMatrix("X", x)
	w.PutStringVector("features", names)
	if err := w.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadFeatures restores a feature matrix and its column names.
func LoadFeatures(path string) (*mat.Dense, []string, error) {
	f, err := readContainer(path)
	if err != nil {
		return nil, nil, err
	}
	x, err := f.Matrix("X")
	if err != nil {
		return nil, nil, err
	}
	if x == nil {
		return nil, nil, fmt.Errorf("features file %s: matrix \"X\" is empty", path)
	}
	names, err := f.StringVector("features")
	if err != nil {
		return nil, nil, err
	}
	return x, names, nil
}

func readContainer(path string) (*container.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &hfocore.ValidationError{Field: "file", Msg: "not found: " + path}
	}
	defer f.Close()
	c, err := container.Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

func newContainerWriter(path string) (*container.Writer, *os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create %s: %w", path, err)
	}
	return container.NewWriter(f), f, nil
}
