// Package features builds the numeric feature matrix from cleaned incidents: outlier
// capping and min-max scaling of the numeric columns, k-1 indicator encoding of the
// categorical columns, and synthetic oversampling of minority classes.
package features

import (
	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"

	"biasknn/pkg/errs"
	"biasknn/pkg/io"
)

// MedianAbove returns the median of the values strictly greater than bound.
func MedianAbove(values []float64, bound float64, column string) (float64, error) {
	var above []float64
	for _, v := range values {
		if v > bound {
			above = append(above, v)
		}
	}
	if len(above) == 0 {
		return 0, &errs.EmptyCategoryError{Column: column}
	}
	return stats.Median(above)
}

// CapOutliers replaces every value above bound by the median of those values. Values at
// or below bound are kept; without any value above bound the input is copied unchanged.
func CapOutliers(values []float64, bound float64) []float64 {
	out := make([]float64, len(values))
	copy(out, values)
	median, err := MedianAbove(values, bound, "")
	if err != nil {
		return out
	}
	capValues(out, bound, median)
	return out
}

func capValues(values []float64, bound, median float64) {
	for i, v := range values {
		if v > bound {
			values[i] = median
		}
	}
}

type columnScale struct {
	median   float64
	hasCap   bool
	min, max float64
}

// Normalizer caps outliers and min-max scales the numeric columns to [0,1].
type Normalizer struct {
	Bound   float64
	Columns []io.Column
	scales  []columnScale
}

func NewNormalizer(bound float64, columns []io.Column) *Normalizer {
	return &Normalizer{Bound: bound, Columns: columns}
}

// Fit learns the cap value and the scale bounds of every column from records.
func (n *Normalizer) Fit(records []io.Incident) error {
	scales := make([]columnScale, len(n.Columns))
	for j, col := range n.Columns {
		values, err := numericColumn(records, col)
		if err != nil {
			return err
		}
		if len(values) == 0 {
			return &errs.EmptyCategoryError{Column: col.String()}
		}
		s := columnScale{}
		if median, err := MedianAbove(values, n.Bound, col.String()); err == nil {
			s.median, s.hasCap = median, true
			capValues(values, n.Bound, median)
		}
		s.min, s.max = floats.Min(values), floats.Max(values)
		scales[j] = s
	}
	n.scales = scales
	return nil
}

// Transform returns one row of scaled values per record, columns in Columns order.
// Values above the bound are only capped when the fitted data had values above it.
func (n *Normalizer) Transform(records []io.Incident) ([][]float64, error) {
	if n.scales == nil {
		return nil, &errs.NotFittedError{Component: "normalizer"}
	}
	out := make([][]float64, len(records))
	for i := range out {
		out[i] = make([]float64, len(n.Columns))
	}
	for j, col := range n.Columns {
		values, err := numericColumn(records, col)
		if err != nil {
			return nil, err
		}
		s := n.scales[j]
		if s.hasCap {
			capValues(values, n.Bound, s.median)
		}
		for i, v := range values {
			if s.max == s.min {
				out[i][j] = 0
			} else {
				out[i][j] = (v - s.min) / (s.max - s.min)
			}
		}
	}
	return out, nil
}

func (n *Normalizer) FitTransform(records []io.Incident) ([][]float64, error) {
	if err := n.Fit(records); err != nil {
		return nil, err
	}
	return n.Transform(records)
}

func numericColumn(records []io.Incident, col io.Column) ([]float64, error) {
	values := make([]float64, len(records))
	for i := range records {
		v, ok := records[i].Numeric(col)
		if !ok {
			return nil, &errs.DataIntegrityError{Column: col.String(), Reason: "null numeric value"}
		}
		values[i] = v
	}
	return values, nil
}
