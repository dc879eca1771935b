package hfocore

import (
	"gonum.org/v1/gonum/mat"

	"github.com/hfopipe/hfocore/pkg/worker"
)

// Bundle holds the preprocessed signals of one channel group: referenced
// channels and the single common-average reference, each raw and bandpass
// filtered. All matrices are nil for an empty group.
type Bundle struct {
	HFORaw  *mat.Dense // samples x group size
	HFOFilt *mat.Dense
	CARRaw  *mat.Dense // samples x 1
	CARFilt *mat.Dense
}

// Preprocessed is the output of the preprocessing stages and the input to
// feature extraction. Immutable once built.
type Preprocessed struct {
	Ecog     Bundle
	Depth    Bundle
	Groups   ChannelGroups
	GoodChan []bool // true = quality-passing, one per channel
	FS       float64
}

// Preprocess runs the full preprocessing chain: per-channel quality
// assessment, per-group common-average referencing using only
// quality-passing channels, and zero-phase elliptic bandpass filtering of
// both the referenced channels and the reference itself.
func Preprocess(sig *Signal, groups ChannelGroups, pool *worker.Pool) (*Preprocessed, error) {
	if err := groups.Validate(sig.Channels()); err != nil {
		return nil, err
	}

	invalid := DetectBadChannels(sig, pool)
	good := make([]bool, len(invalid))
	for i, bad := range invalid {
		good[i] = !bad
	}

	filter, err := DesignBandpass(sig.FS)
	if err != nil {
		return nil, err
	}

	build := func(kind GroupKind, group []int) (Bundle, error) {
		referenced, car, err := Rereference(sig, kind, group, good)
		if err != nil {
			return Bundle{}, err
		}
		refFilt, err := filter.Apply(referenced)
		if err != nil {
			return Bundle{}, err
		}
		carFilt, err := filter.Apply(car)
		if err != nil {
			return Bundle{}, err
		}
		return Bundle{HFORaw: referenced, HFOFilt: refFilt, CARRaw: car, CARFilt: carFilt}, nil
	}

	ecog, err := build(GroupEcog, groups.Ecog)
	if err != nil {
		return nil, err
	}
	depth, err := build(GroupDepth, groups.Depth)
	if err != nil {
		return nil, err
	}

	return &Preprocessed{
		Ecog:     ecog,
		Depth:    depth,
		Groups:   groups,
		GoodChan: good,
		FS:       sig.FS,
	}, nil
}
