// Package metrics scores predicted labels against true labels.
package metrics

import (
	"fmt"
	"sort"

	"github.com/nlpodyssey/spago/pkg/ml/stats"
)

type ClassReport struct {
	Class     string
	TruePos   int
	FalsePos  int
	FalseNeg  int
	Support   int
	Precision float64
	Recall    float64
	F1        float64
}

type Evaluation struct {
	Classes  []string
	PerClass []ClassReport

	// Confusion counts rows of true class i predicted as class j
	Confusion [][]int

	Accuracy         float64
	BalancedAccuracy float64
	WeightedF1       float64
	MacroF1          float64
}

// Evaluate computes per-class and overall metrics. When classes is nil the sorted union of
// true and predicted labels is used; otherwise every label must be one of classes.
func Evaluate(truth, predicted []string, classes []string) (*Evaluation, error) {
	if len(truth) != len(predicted) {
		return nil, fmt.Errorf("%d true labels but %d predictions", len(truth), len(predicted))
	}
	if len(truth) == 0 {
		return nil, fmt.Errorf("no predictions to evaluate")
	}
	if classes == nil {
		classes = sortedUnion(truth, predicted)
	}
	index := make(map[string]int, len(classes))
	for i, class := range classes {
		index[class] = i
	}

	counters := make(map[string]*stats.ClassMetrics, len(classes))
	for _, class := range classes {
		counters[class] = stats.NewMetricCounter()
	}
	confusion := make([][]int, len(classes))
	for i := range confusion {
		confusion[i] = make([]int, len(classes))
	}

	correct := 0
	for i := range truth {
		t, ok := index[truth[i]]
		if !ok {
			return nil, fmt.Errorf("unknown true label %q", truth[i])
		}
		p, ok := index[predicted[i]]
		if !ok {
			return nil, fmt.Errorf("unknown predicted label %q", predicted[i])
		}
		confusion[t][p]++
		if t == p {
			correct++
			counters[truth[i]].IncTruePos()
		} else {
			counters[truth[i]].IncFalseNeg()
			counters[predicted[i]].IncFalsePos()
		}
	}

	e := &Evaluation{
		Classes:   classes,
		Confusion: confusion,
		Accuracy:  float64(correct) / float64(len(truth)),
	}
	var recallSum, f1Sum, weightedF1 float64
	var supported, scored int
	for _, class := range classes {
		r := report(class, counters[class])
		e.PerClass = append(e.PerClass, r)
		if r.Support > 0 {
			recallSum += r.Recall
			supported++
		}
		if r.Support > 0 || r.FalsePos > 0 {
			f1Sum += r.F1
			scored++
		}
		weightedF1 += r.F1 * float64(r.Support)
	}
	if supported > 0 {
		e.BalancedAccuracy = recallSum / float64(supported)
	}
	if scored > 0 {
		e.MacroF1 = f1Sum / float64(scored)
	}
	e.WeightedF1 = weightedF1 / float64(len(truth))
	return e, nil
}

func report(class string, c *stats.ClassMetrics) ClassReport {
	r := ClassReport{
		Class:    class,
		TruePos:  c.TruePos,
		FalsePos: c.FalsePos,
		FalseNeg: c.FalseNeg,
		Support:  c.TruePos + c.FalseNeg,
	}
	// zero denominators score 0
	if c.TruePos+c.FalsePos > 0 {
		r.Precision = c.Precision()
	}
	if c.TruePos+c.FalseNeg > 0 {
		r.Recall = c.Recall()
	}
	if c.TruePos > 0 {
		r.F1 = c.F1Score()
	}
	return r
}

// NormalizedConfusion divides every confusion row by its support. Rows of classes without
// support stay zero.
func (e *Evaluation) NormalizedConfusion() [][]float64 {
	result := make([][]float64, len(e.Confusion))
	for i, row := range e.Confusion {
		result[i] = make([]float64, len(row))
		total := 0
		for _, v := range row {
			total += v
		}
		if total == 0 {
			continue
		}
		for j, v := range row {
			result[i][j] = float64(v) / float64(total)
		}
	}
	return result
}

func sortedUnion(a, b []string) []string {
	seen := map[string]bool{}
	var result []string
	for _, labels := range [][]string{a, b} {
		for _, l := range labels {
			if !seen[l] {
				seen[l] = true
				result = append(result, l)
			}
		}
	}
	sort.Strings(result)
	return result
}

// Scoring names an objective to maximize.
type Scoring string

const (
	WeightedF1       Scoring = "weighted_f1"
	BalancedAccuracy Scoring = "balanced_accuracy"
)

func ParseScoring(name string) (Scoring, error) {
	switch s := Scoring(name); s {
	case WeightedF1, BalancedAccuracy:
		return s, nil
	}
	return "", fmt.Errorf("unknown scoring %q (weighted_f1 or balanced_accuracy)", name)
}

func (s Scoring) Score(truth, predicted []string) (float64, error) {
	e, err := Evaluate(truth, predicted, nil)
	if err != nil {
		return 0, err
	}
	switch s {
	case WeightedF1:
		return e.WeightedF1, nil
	case BalancedAccuracy:
		return e.BalancedAccuracy, nil
	}
	return 0, fmt.Errorf("unknown scoring %q", string(s))
}
