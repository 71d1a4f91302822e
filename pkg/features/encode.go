package features

import (
	"gonum.org/v1/gonum/mat"

	"biasknn/pkg/errs"
	"biasknn/pkg/io"
	"biasknn/pkg/model"
)

// Matrix is a dense feature matrix with named columns.
type Matrix struct {
	Columns []string
	Data    *mat.Dense
}

func (m *Matrix) Rows() int {
	if m.Data == nil {
		return 0
	}
	r, _ := m.Data.Dims()
	return r
}

func (m *Matrix) Row(i int) []float64 {
	return m.Data.RawRowView(i)
}

// IndicatorName is the matrix column name of one level of a categorical column.
func IndicatorName(column io.Column, level string) string {
	return column.String() + "=" + level
}

// Encoder lays out numeric columns followed by k-1 indicator columns per categorical
// column. Levels are sorted; the first level of every column is the dropped reference.
type Encoder struct {
	Numeric     []io.Column
	Categorical []io.Column

	levels  []model.NameMap
	columns model.NameMap
	fitted  bool
}

func NewEncoder(numeric, categorical []io.Column) *Encoder {
	return &Encoder{Numeric: numeric, Categorical: categorical}
}

// Fit collects the level universe of every categorical column. Fitting once on the full
// cleaned data set gives every split the same columns in the same order.
func (e *Encoder) Fit(records []io.Incident) error {
	if len(records) == 0 {
		return &errs.EmptyCategoryError{Column: "records"}
	}
	e.levels = make([]model.NameMap, len(e.Categorical))
	e.columns = model.NewNameMap()
	for _, col := range e.Numeric {
		e.columns.ValueFor(col.String())
	}
	for j, col := range e.Categorical {
		values := make([]string, len(records))
		for i := range records {
			values[i] = records[i].Categorical(col)
		}
		e.levels[j] = model.NewSortedNameMap(values)
		for _, level := range e.levels[j].Names()[1:] {
			e.columns.ValueFor(IndicatorName(col, level))
		}
	}
	e.fitted = true
	return nil
}

// Columns returns the matrix column names in order.
func (e *Encoder) Columns() []string {
	return e.columns.Names()
}

// Levels returns the sorted levels of a categorical column, reference level first.
func (e *Encoder) Levels(column io.Column) []string {
	for j, col := range e.Categorical {
		if col == column {
			return e.levels[j].Names()
		}
	}
	return nil
}

// Transform builds the matrix from records and their already normalized numeric values.
// A level that was not seen by Fit encodes as all zeros.
func (e *Encoder) Transform(records []io.Incident, numeric [][]float64) (*Matrix, error) {
	if !e.fitted {
		return nil, &errs.NotFittedError{Component: "encoder"}
	}
	if len(numeric) != len(records) {
		return nil, &errs.DataIntegrityError{Column: "numeric", Reason: "row count differs from records"}
	}
	columns := e.Columns()
	result := &Matrix{Columns: columns}
	if len(records) == 0 {
		return result, nil
	}
	result.Data = mat.NewDense(len(records), len(columns), nil)
	for i := range records {
		row := result.Data.RawRowView(i)
		if len(numeric[i]) != len(e.Numeric) {
			return nil, &errs.DataIntegrityError{Column: "numeric", Reason: "unexpected number of numeric values"}
		}
		copy(row, numeric[i])
		for j, col := range e.Categorical {
			level := records[i].Categorical(col)
			if index, ok := e.levels[j].ContainsName(level); !ok || index == 0 {
				continue
			}
			if k, ok := e.columns.ContainsName(IndicatorName(col, level)); ok {
				row[k] = 1
			}
		}
	}
	return result, nil
}

// Decode recovers the categorical value of column implied by the indicators of a row.
// A row without a set indicator decodes to the reference level.
func (e *Encoder) Decode(m *Matrix, row int, column io.Column) (string, error) {
	if !e.fitted {
		return "", &errs.NotFittedError{Component: "encoder"}
	}
	levels := e.Levels(column)
	if levels == nil {
		return "", &errs.DataIntegrityError{Column: column.String(), Reason: "not an encoded column"}
	}
	values := m.Row(row)
	for _, level := range levels[1:] {
		if k, ok := e.columns.ContainsName(IndicatorName(column, level)); ok && values[k] == 1 {
			return level, nil
		}
	}
	return levels[0], nil
}
