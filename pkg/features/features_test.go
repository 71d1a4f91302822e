package features

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"biasknn/pkg/dataprep"
	"biasknn/pkg/errs"
	"biasknn/pkg/io"
	"biasknn/pkg/io/iotest"
)

func numericRecords(offenders, victims, individuals []float64) []io.Incident {
	records := make([]io.Incident, len(offenders))
	for i := range records {
		records[i] = io.Incident{
			TotalOffenderCount:     offenders[i],
			VictimCount:            victims[i],
			TotalIndividualVictims: io.NullableFloat{Value: individuals[i], Valid: true},
		}
	}
	return records
}

func cleanedIncidents(t *testing.T) []io.Incident {
	cleaned, err := dataprep.NewCleaner(dataprep.DefaultCleanParameters()).Clean(iotest.Incidents(iotest.DefaultSizes...))
	require.NoError(t, err)
	return cleaned
}

func TestCapOutliers(t *testing.T) {
	capped := CapOutliers([]float64{1, 2, 20, 30}, 10)
	require.Equal(t, []float64{1, 2, 25, 25}, capped)
	require.Equal(t, capped, CapOutliers(capped, 10))

	unchanged := []float64{1, 2, 10}
	require.Equal(t, unchanged, CapOutliers(unchanged, 10))

	_, err := MedianAbove(unchanged, 10, "victim_count")
	var empty *errs.EmptyCategoryError
	require.True(t, errors.As(err, &empty))
	require.Equal(t, "victim_count", empty.Column)
}

func TestNormalizer(t *testing.T) {
	records := numericRecords(
		[]float64{1, 2, 3, 14},
		[]float64{5, 5, 5, 5},
		[]float64{1, 2, 30, 40},
	)
	n := NewNormalizer(10, io.NumericColumns)
	_, err := n.Transform(records)
	var notFitted *errs.NotFittedError
	require.True(t, errors.As(err, &notFitted))

	scaled, err := n.FitTransform(records)
	require.NoError(t, err)
	require.Equal(t, 4, len(scaled))
	for _, row := range scaled {
		require.Equal(t, 3, len(row))
		for _, v := range row {
			require.GreaterOrEqual(t, v, 0.0)
			require.LessOrEqual(t, v, 1.0)
		}
		// constant column
		require.Equal(t, 0.0, row[1])
	}
	require.InDelta(t, 1.0/13, scaled[1][0], 1e-9)
	require.Equal(t, 1.0, scaled[3][0])
	// 30 and 40 are both capped to 35, the column maximum
	require.Equal(t, 1.0, scaled[2][2])
	require.Equal(t, 1.0, scaled[3][2])

	// later values above the bound are capped with the fitted median
	other, err := n.Transform(numericRecords([]float64{1}, []float64{5}, []float64{100}))
	require.NoError(t, err)
	require.Equal(t, 1.0, other[0][2])

	missing := numericRecords([]float64{1}, []float64{5}, []float64{1})
	missing[0].TotalIndividualVictims = io.NullableFloat{}
	_, err = n.Transform(missing)
	require.Error(t, err)

	require.Error(t, NewNormalizer(10, io.NumericColumns).Fit(nil))
}

func TestEncoder(t *testing.T) {
	cleaned := cleanedIncidents(t)
	train, test := cleaned[:100], cleaned[100:]

	e := NewEncoder(io.NumericColumns, io.CategoricalColumns)
	_, err := e.Transform(train, nil)
	require.Error(t, err)
	require.NoError(t, e.Fit(cleaned))

	columns := e.Columns()
	require.Equal(t, []string{"total_offender_count", "victim_count", "total_individual_victims"}, columns[:3])
	expected := 3
	for _, col := range io.CategoricalColumns {
		levels := e.Levels(col)
		require.NotEmpty(t, levels)
		require.IsIncreasing(t, levels)
		expected += len(levels) - 1
	}
	require.Equal(t, expected, len(columns))
	require.Equal(t, []string{"2015", "2016", "2017", "2018", "2019"}, e.Levels(io.DataYear))
	require.Contains(t, columns, IndicatorName(io.DataYear, "2019"))
	require.NotContains(t, columns, IndicatorName(io.DataYear, "2015"))

	var matrices []*Matrix
	for _, split := range [][]io.Incident{train, test} {
		m, err := e.Transform(split, make([][]float64, len(split)))
		require.Error(t, err)
		require.Nil(t, m)

		numeric := make([][]float64, len(split))
		for i := range numeric {
			numeric[i] = []float64{0.1, 0.2, 0.3}
		}
		m, err = e.Transform(split, numeric)
		require.NoError(t, err)
		require.Equal(t, len(split), m.Rows())
		require.Equal(t, columns, m.Columns)
		for i := range split {
			require.Equal(t, []float64{0.1, 0.2, 0.3}, m.Row(i)[:3])
			for _, col := range io.CategoricalColumns {
				value, err := e.Decode(m, i, col)
				require.NoError(t, err)
				require.Equal(t, split[i].Categorical(col), value)
			}
		}
		matrices = append(matrices, m)
	}
	_, trainCols := matrices[0].Data.Dims()
	_, testCols := matrices[1].Data.Dims()
	require.Equal(t, trainCols, testCols)

	// a level unseen at fit time sets no indicator
	unseen := []io.Incident{train[0]}
	unseen[0].OffenseName = "Kidnapping/Abduction"
	m, err := e.Transform(unseen, [][]float64{{0, 0, 0}})
	require.NoError(t, err)
	for _, level := range e.Levels(io.OffenseName)[1:] {
		k := indexOf(columns, IndicatorName(io.OffenseName, level))
		require.Equal(t, 0.0, m.Row(0)[k])
	}

	_, err = e.Decode(m, 0, io.BiasDesc)
	require.Error(t, err)
}

func indexOf(values []string, value string) int {
	for i, v := range values {
		if v == value {
			return i
		}
	}
	return -1
}

func TestBalancer(t *testing.T) {
	offsets := map[string]float64{"a": 0, "b": 100, "c": 200}
	var data []float64
	var labels []string
	for _, class := range []string{"b", "a", "c"} {
		size := map[string]int{"a": 10, "b": 7, "c": 6}[class]
		for i := 0; i < size; i++ {
			data = append(data, offsets[class]+float64(i), offsets[class]-float64(i))
			labels = append(labels, class)
		}
	}
	x := mat.NewDense(len(labels), 2, data)

	b := NewBalancer(5, 100)
	balanced, balancedLabels, err := b.Resample(x, labels)
	require.NoError(t, err)
	rows, cols := balanced.Dims()
	require.Equal(t, 30, rows)
	require.Equal(t, 2, cols)
	require.Equal(t, labels, balancedLabels[:len(labels)])

	counts := map[string]int{}
	for _, l := range balancedLabels {
		counts[l]++
	}
	require.Equal(t, map[string]int{"a": 10, "b": 10, "c": 10}, counts)

	for i := range labels {
		require.Equal(t, x.RawRowView(i), balanced.RawRowView(i))
	}
	// synthetic rows lie on the segment between two members of their class
	for i := len(labels); i < rows; i++ {
		row := balanced.RawRowView(i)
		offset := offsets[balancedLabels[i]]
		require.InDelta(t, 2*offset, row[0]+row[1], 1e-9)
		require.GreaterOrEqual(t, row[0], offset)
		require.LessOrEqual(t, row[0], offset+9)
	}

	// same seed, same samples
	again, _, err := NewBalancer(5, 100).Resample(x, labels)
	require.NoError(t, err)
	require.Equal(t, balanced.RawMatrix().Data, again.RawMatrix().Data)
}

func TestBalancer_InsufficientNeighbors(t *testing.T) {
	labels := []string{"a", "a", "a", "a", "a", "a", "a", "b", "b", "b"}
	x := mat.NewDense(len(labels), 1, []float64{0, 1, 2, 3, 4, 5, 6, 10, 11, 12})

	_, _, err := NewBalancer(3, 1).Resample(x, labels)
	var insufficient *errs.InsufficientNeighborsError
	require.True(t, errors.As(err, &insufficient))
	require.Equal(t, "b", insufficient.Class)
	require.Equal(t, 3, insufficient.Count)
	require.Equal(t, 4, insufficient.Required)

	balanced, balancedLabels, err := NewBalancer(2, 1).Resample(x, labels)
	require.NoError(t, err)
	rows, _ := balanced.Dims()
	require.Equal(t, 14, rows)
	require.Equal(t, 14, len(balancedLabels))

	_, _, err = NewBalancer(2, 1).Resample(x, labels[:5])
	require.Error(t, err)
}
