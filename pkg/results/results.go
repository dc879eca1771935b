// Package results assembles the classification output table and serializes
// it to CSV. Events on quality-rejected channels keep their row but have
// label and score forced to NaN, which the is_bad_chan and is_nan_event
// flags expose to the caller.
package results

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/hfopipe/hfocore"
)

// Row is one classified event, 1-based indices as on disk.
type Row struct {
	Start    int
	End      int
	Chan     int
	Label    float64 // 0, 1 or NaN
	Score    float64 // probability or NaN
	BadChan  bool
	NaNEvent bool
}

// Table is the final classification output.
type Table struct {
	Threshold float64
	Rows      []Row
}

// Build combines classifier output with the channel quality mask. Labels and
// scores of events on bad channels are overridden to NaN regardless of what
// the classifier computed.
func Build(events []hfocore.Event, labels, scores []float64, goodChan []bool, threshold float64) (*Table, error) {
	if len(labels) != len(events) || len(scores) != len(events) {
		return nil, fmt.Errorf("results: %d events vs %d labels / %d scores", len(events), len(labels), len(scores))
	}
	t := &Table{Threshold: threshold, Rows: make([]Row, len(events))}
	for i, e := range events {
		if e.Chan < 1 || e.Chan > len(goodChan) {
			return nil, fmt.Errorf("results: event %d channel %d outside quality mask of length %d", i, e.Chan, len(goodChan))
		}
		label, score := labels[i], scores[i]
		bad := !goodChan[e.Chan-1]
		if bad {
			label, score = math.NaN(), math.NaN()
		}
		t.Rows[i] = Row{
			Start:    e.Start,
			End:      e.End,
			Chan:     e.Chan,
			Label:    label,
			Score:    score,
			BadChan:  bad,
			NaNEvent: math.IsNaN(label) || math.IsNaN(score),
		}
	}
	return t, nil
}

// LabelColumn is the threshold-bearing column name, e.g.
// "is_HFO_thresh_0_50" for threshold 0.5.
func (t *Table) LabelColumn() string {
	return "is_HFO_thresh_" + strings.ReplaceAll(fmt.Sprintf("%.2f", t.Threshold), ".", "_")
}

// WriteCSV writes the table. NaN cells are written empty.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	header := []string{"start_idx", "end_idx", "chan_idx", t.LabelColumn(), "prob_HFO", "is_bad_chan", "is_nan_event"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("results: write header: %w", err)
	}
	for _, r := range t.Rows {
		rec := []string{
			strconv.Itoa(r.Start),
			strconv.Itoa(r.End),
			strconv.Itoa(r.Chan),
			formatFloat(r.Label),
			formatFloat(r.Score),
			formatBool(r.BadChan),
			formatBool(r.NaNEvent),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("results: write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
