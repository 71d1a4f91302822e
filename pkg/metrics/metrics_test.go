package metrics

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	truth := []string{"a", "a", "b", "b", "c"}
	predicted := []string{"a", "b", "b", "b", "a"}

	e, err := Evaluate(truth, predicted, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, e.Classes)
	require.Equal(t, [][]int{{1, 1, 0}, {0, 2, 0}, {1, 0, 0}}, e.Confusion)
	require.InDelta(t, 0.6, e.Accuracy, 1e-9)
	require.InDelta(t, 0.5, e.BalancedAccuracy, 1e-9)
	require.InDelta(t, 0.52, e.WeightedF1, 1e-6)
	require.InDelta(t, 1.3/3, e.MacroF1, 1e-6)

	a := e.PerClass[0]
	require.Equal(t, ClassReport{Class: "a", TruePos: 1, FalsePos: 1, FalseNeg: 1, Support: 2, Precision: 0.5, Recall: 0.5, F1: 0.5}, a)
	require.InDelta(t, 2.0/3, e.PerClass[1].Precision, 1e-6)
	require.Equal(t, 0.0, e.PerClass[2].F1)

	normalized := e.NormalizedConfusion()
	require.Equal(t, [][]float64{{0.5, 0.5, 0}, {0, 1, 0}, {1, 0, 0}}, normalized)
	for _, row := range normalized {
		sum := 0.0
		for _, v := range row {
			sum += v
		}
		require.InDelta(t, 1, sum, 1e-9)
	}
}

func TestEvaluate_ZeroDivision(t *testing.T) {
	e, err := Evaluate([]string{"a", "a"}, []string{"b", "b"}, nil)
	require.NoError(t, err)
	require.Equal(t, 0.0, e.Accuracy)
	require.Equal(t, 0.0, e.BalancedAccuracy)
	require.Equal(t, 0.0, e.MacroF1)
	for _, r := range e.PerClass {
		require.Equal(t, 0.0, r.Precision)
		require.Equal(t, 0.0, r.Recall)
		require.Equal(t, 0.0, r.F1)
	}
	require.Equal(t, []float64{0, 0}, e.NormalizedConfusion()[1])
}

func TestEvaluate_Errors(t *testing.T) {
	_, err := Evaluate([]string{"a"}, []string{"a", "b"}, nil)
	require.Error(t, err)
	_, err = Evaluate(nil, nil, nil)
	require.Error(t, err)
	_, err = Evaluate([]string{"a"}, []string{"z"}, []string{"a", "b"})
	require.Error(t, err)

	// fixed classes keep rows for classes absent from both lists
	e, err := Evaluate([]string{"a"}, []string{"a"}, []string{"a", "b"})
	require.NoError(t, err)
	require.Equal(t, 2, len(e.PerClass))
	require.Equal(t, 1.0, e.BalancedAccuracy)
}

func TestScoring(t *testing.T) {
	s, err := ParseScoring("balanced_accuracy")
	require.NoError(t, err)
	require.Equal(t, BalancedAccuracy, s)
	_, err = ParseScoring("roc_auc")
	require.Error(t, err)

	truth := []string{"a", "a", "b", "b", "c"}
	predicted := []string{"a", "b", "b", "b", "a"}
	score, err := BalancedAccuracy.Score(truth, predicted)
	require.NoError(t, err)
	require.InDelta(t, 0.5, score, 1e-9)
	score, err = WeightedF1.Score(truth, predicted)
	require.NoError(t, err)
	require.InDelta(t, 0.52, score, 1e-6)
}
