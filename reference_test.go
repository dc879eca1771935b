package hfocore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constChannel(n int, v float64) []float64 {
	x := make([]float64, n)
	for i := range x {
		x[i] = v
	}
	return x
}

func TestRereferenceMeanOfPassingOnly(t *testing.T) {
	const n = 40
	sig := signalFromChannels(t, 100,
		constChannel(n, 1),
		constChannel(n, 100), // quality-rejected
		constChannel(n, 3),
	)
	good := []bool{true, false, true}

	referenced, car, err := Rereference(sig, GroupEcog, []int{1, 2, 3}, good)
	require.NoError(t, err)

	// Reference is the mean of channels 1 and 3 only.
	rows, cols := car.Dims()
	require.Equal(t, n, rows)
	require.Equal(t, 1, cols)
	assert.Equal(t, 2.0, car.At(0, 0))

	// But it is subtracted from every group member, bad ones included.
	assert.Equal(t, -1.0, referenced.At(0, 0))
	assert.Equal(t, 98.0, referenced.At(0, 1))
	assert.Equal(t, 1.0, referenced.At(0, 2))
}

func TestRereferenceEmptyGroup(t *testing.T) {
	sig := signalFromChannels(t, 100, constChannel(40, 1))
	referenced, car, err := Rereference(sig, GroupDepth, nil, []bool{true})
	require.NoError(t, err)
	assert.Nil(t, referenced)
	assert.Nil(t, car)
}

func TestRereferenceAllBadGroup(t *testing.T) {
	sig := signalFromChannels(t, 100, constChannel(40, 1), constChannel(40, 2))
	_, _, err := Rereference(sig, GroupEcog, []int{1, 2}, []bool{false, false})
	var derr *DomainError
	require.ErrorAs(t, err, &derr)
	assert.Contains(t, derr.Error(), "ecog")
}

func TestChannelGroupsValidate(t *testing.T) {
	g := ChannelGroups{Ecog: []int{1, 2}, Depth: []int{3}}
	require.NoError(t, g.Validate(3))

	var verr *ValidationError
	require.ErrorAs(t, ChannelGroups{Ecog: []int{0}}.Validate(3), &verr)
	require.ErrorAs(t, ChannelGroups{Ecog: []int{4}}.Validate(3), &verr)

	overlap := ChannelGroups{Ecog: []int{1, 2}, Depth: []int{2}}
	require.ErrorAs(t, overlap.Validate(3), &verr)
	assert.Equal(t, "depth_chan_idx", verr.Field)
}

func TestChannelGroupsGroupOf(t *testing.T) {
	g := ChannelGroups{Ecog: []int{4, 2}, Depth: []int{7}}

	kind, local := g.GroupOf(2)
	assert.Equal(t, GroupEcog, kind)
	assert.Equal(t, 1, local)

	kind, local = g.GroupOf(7)
	assert.Equal(t, GroupDepth, kind)
	assert.Equal(t, 0, local)

	kind, local = g.GroupOf(5)
	assert.Equal(t, GroupNone, kind)
	assert.Equal(t, -1, local)
}

func TestRereferenceDoesNotMutateInput(t *testing.T) {
	sig := signalFromChannels(t, 100, constChannel(40, 1), constChannel(40, 3))
	_, _, err := Rereference(sig, GroupEcog, []int{1, 2}, []bool{true, true})
	require.NoError(t, err)
	assert.Equal(t, 1.0, sig.Data.At(0, 0))
	assert.Equal(t, 3.0, sig.Data.At(0, 1))
}
