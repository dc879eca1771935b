package hfocore

import (
	"gonum.org/v1/gonum/mat"
)

// Signal is a time-major multichannel recording (samples x channels) with its
// sampling rate. The core never mutates Data; every stage derives new
// matrices from it.
type Signal struct {
	Data *mat.Dense
	FS   float64
}

// NewSignal validates and wraps a time-major data matrix.
func NewSignal(data *mat.Dense, fs float64) (*Signal, error) {
	if data == nil {
		return nil, validationf("data", "signal matrix is required")
	}
	if fs <= 0 {
		return nil, validationf("fs", "sampling rate must be positive, got %g", fs)
	}
	r, c := data.Dims()
	if r <= c {
		return nil, validationf("data", "expected time-major matrix with samples > channels, got %dx%d", r, c)
	}
	return &Signal{Data: data, FS: fs}, nil
}

func (s *Signal) Samples() int {
	r, _ := s.Data.Dims()
	return r
}

func (s *Signal) Channels() int {
	_, c := s.Data.Dims()
	return c
}

// Channel returns a copy of channel ch (1-based).
func (s *Signal) Channel(ch int) []float64 {
	out := make([]float64, s.Samples())
	mat.Col(out, ch-1, s.Data)
	return out
}

// GroupKind identifies which electrode group a channel belongs to.
type GroupKind int

const (
	GroupNone GroupKind = iota
	GroupEcog
	GroupDepth
)

func (g GroupKind) String() string {
	switch g {
	case GroupEcog:
		return "ecog"
	case GroupDepth:
		return "depth"
	}
	return "none"
}

// ChannelGroups holds the 1-based channel indices of the two electrode
// modalities. Either list may be empty, and no index may appear in both.
type ChannelGroups struct {
	Ecog  []int
	Depth []int
}

// Validate checks index ranges and disjointness against a channel count.
func (g ChannelGroups) Validate(channels int) error {
	seen := make(map[int]string, len(g.Ecog)+len(g.Depth))
	check := func(name string, idx []int) error {
		for _, ch := range idx {
			if ch < 1 || ch > channels {
				return validationf(name, "channel index %d outside [1, %d]", ch, channels)
			}
			if prev, ok := seen[ch]; ok {
				return validationf(name, "channel index %d already in group %s", ch, prev)
			}
			seen[ch] = name
		}
		return nil
	}
	if err := check("ecog_chan_idx", g.Ecog); err != nil {
		return err
	}
	return check("depth_chan_idx", g.Depth)
}

// GroupOf resolves a 1-based channel index to its group and its local column
// position within that group.
func (g ChannelGroups) GroupOf(ch int) (GroupKind, int) {
	for i, c := range g.Ecog {
		if c == ch {
			return GroupEcog, i
		}
	}
	for i, c := range g.Depth {
		if c == ch {
			return GroupDepth, i
		}
	}
	return GroupNone, -1
}

// Event is a candidate HFO detection: 1-based inclusive sample bounds on a
// 1-based channel index.
type Event struct {
	Start int
	End   int
	Chan  int
}

// Validate checks an event against the recording geometry.
func (e Event) Validate(samples, channels int) error {
	if e.Start < 1 || e.End < e.Start {
		return validationf("start_idx", "event bounds [%d, %d] are not ordered 1-based indices", e.Start, e.End)
	}
	if e.End > samples {
		return validationf("end_idx", "event end %d exceeds signal length %d", e.End, samples)
	}
	if e.Chan < 1 || e.Chan > channels {
		return validationf("chan_idx", "event channel %d outside [1, %d]", e.Chan, channels)
	}
	return nil
}
