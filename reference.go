package hfocore

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Rereference computes the common-average reference of one channel group and
// subtracts it from every channel in the group. The reference is the
// per-sample mean across only the quality-passing group members, but it is
// subtracted from all of them, bad channels included. An empty group yields
// nil matrices. A non-empty group with no quality-passing member has no
// defined reference and is rejected with a DomainError.
func Rereference(sig *Signal, kind GroupKind, group []int, good []bool) (referenced, car *mat.Dense, err error) {
	if len(group) == 0 {
		return nil, nil, nil
	}
	samples := sig.Samples()

	carCol := make([]float64, samples)
	passing := 0
	for _, ch := range group {
		if !good[ch-1] {
			continue
		}
		floats.Add(carCol, sig.Channel(ch))
		passing++
	}
	if passing == 0 {
		return nil, nil, domainf("no quality-passing channels in group %s", kind)
	}
	floats.Scale(1/float64(passing), carCol)

	referenced = mat.NewDense(samples, len(group), nil)
	for j, ch := range group {
		col := sig.Channel(ch)
		floats.Sub(col, carCol)
		referenced.SetCol(j, col)
	}
	car = mat.NewDense(samples, 1, carCol)
	return referenced, car, nil
}
