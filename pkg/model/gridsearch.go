package model

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"biasknn/pkg/io"
)

// Scorer rates predictions against true labels; larger is better.
type Scorer interface {
	Score(truth, predicted []string) (float64, error)
}

// ScorerFunc adapts a function to Scorer.
type ScorerFunc func(truth, predicted []string) (float64, error)

func (f ScorerFunc) Score(truth, predicted []string) (float64, error) {
	return f(truth, predicted)
}

// Grid is the hyperparameter space searched by GridSearch.
type Grid struct {
	Neighbors  []int       `toml:"neighbors"`
	Weightings []Weighting `toml:"weightings"`
	LeafSizes  []int       `toml:"leaf_sizes"`
	Jobs       []int       `toml:"jobs"`
}

func DefaultGrid() Grid {
	return Grid{
		Neighbors:  []int{2, 3, 4},
		Weightings: []Weighting{Uniform},
		LeafSizes:  []int{5, 15, 30},
		Jobs:       []int{-1},
	}
}

// Combinations enumerates the cross product with every dimension sorted and
// de-duplicated, neighbors varying slowest. The order does not depend on how the grid
// lists its values.
func (g Grid) Combinations() []Params {
	neighbors := sortedInts(g.Neighbors)
	leafSizes := sortedInts(g.LeafSizes)
	jobs := sortedInts(g.Jobs)
	weightings := make([]string, len(g.Weightings))
	for i, w := range g.Weightings {
		weightings[i] = string(w)
	}
	weightings = sortedStrings(weightings)

	var result []Params
	for _, n := range neighbors {
		for _, w := range weightings {
			for _, l := range leafSizes {
				for _, j := range jobs {
					result = append(result, Params{Neighbors: n, Weighting: Weighting(w), LeafSize: l, Jobs: j, Metric: Euclidean})
				}
			}
		}
	}
	return result
}

type CombinationScore struct {
	Params     Params
	FoldScores []float64
	// Score is the mean fold score, -Inf when any fold failed
	Score float64
}

type SearchResult struct {
	Best      Params
	BestScore float64
	Scores    []CombinationScore
}

// GridSearch cross-validates every combination of grid on stratified folds of the
// training rows and keeps the combination with the highest mean score. Combination and
// fold evaluations run concurrently on up to workers goroutines (GOMAXPROCS when not
// positive). A failing evaluation disqualifies its combination instead of aborting the
// search. Ties go to the first combination in enumeration order.
func GridSearch(ctx context.Context, x *mat.Dense, labels []string, grid Grid, folds int, scorer Scorer, workers int) (*SearchResult, error) {
	combinations := grid.Combinations()
	if len(combinations) == 0 {
		return nil, fmt.Errorf("empty parameter grid")
	}
	splits, err := io.NewDataSet(labels, 0).StratifiedFolds(folds)
	if err != nil {
		return nil, err
	}
	type foldData struct {
		trainX, testX         *mat.Dense
		trainLabels, testTrue []string
	}
	data := make([]foldData, len(splits))
	for f, split := range splits {
		data[f] = foldData{
			trainX:      selectRows(x, split.Train),
			testX:       selectRows(x, split.Test),
			trainLabels: selectLabels(labels, split.Train),
			testTrue:    selectLabels(labels, split.Test),
		}
	}

	scores := make([][]float64, len(combinations))
	for i := range scores {
		scores[i] = make([]float64, len(splits))
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for c, params := range combinations {
		c, params := c, params
		for f := range data {
			f := f
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				d := data[f]
				score, err := evaluate(params, d.trainX, d.trainLabels, d.testX, d.testTrue, scorer)
				if err != nil {
					log.Warn().Err(err).Str("Params", params.String()).Int("Fold", f).Msg("Evaluation failed")
					score = math.Inf(-1)
				}
				scores[c][f] = score
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &SearchResult{BestScore: math.Inf(-1)}
	best := -1
	for c, params := range combinations {
		cs := CombinationScore{Params: params, FoldScores: scores[c], Score: meanScore(scores[c])}
		result.Scores = append(result.Scores, cs)
		if cs.Score > result.BestScore {
			best = c
			result.BestScore = cs.Score
		}
	}
	if best < 0 {
		return nil, fmt.Errorf("no parameter combination could be scored")
	}
	result.Best = combinations[best]
	return result, nil
}

// Refit trains a classifier with the winning parameters on the full training set.
func (r *SearchResult) Refit(x *mat.Dense, labels []string) (*KNN, error) {
	knn := NewKNN(r.Best)
	if err := knn.Fit(x, labels); err != nil {
		return nil, err
	}
	return knn, nil
}

func evaluate(params Params, trainX *mat.Dense, trainLabels []string, testX *mat.Dense, truth []string, scorer Scorer) (float64, error) {
	// the search already runs in parallel
	params.Jobs = 1
	knn := NewKNN(params)
	if err := knn.Fit(trainX, trainLabels); err != nil {
		return 0, err
	}
	predicted, err := knn.Predict(testX)
	if err != nil {
		return 0, err
	}
	return scorer.Score(truth, predicted)
}

func meanScore(foldScores []float64) float64 {
	for _, s := range foldScores {
		if math.IsInf(s, -1) || math.IsNaN(s) {
			return math.Inf(-1)
		}
	}
	return stat.Mean(foldScores, nil)
}

func selectRows(x *mat.Dense, indices []int) *mat.Dense {
	if len(indices) == 0 {
		return nil
	}
	_, cols := x.Dims()
	result := mat.NewDense(len(indices), cols, nil)
	for i, idx := range indices {
		result.SetRow(i, x.RawRowView(idx))
	}
	return result
}

func selectLabels(labels []string, indices []int) []string {
	result := make([]string, len(indices))
	for i, idx := range indices {
		result[i] = labels[idx]
	}
	return result
}

func sortedInts(values []int) []int {
	result := append([]int(nil), values...)
	sort.Ints(result)
	return dedup(result)
}

func sortedStrings(values []string) []string {
	result := append([]string(nil), values...)
	sort.Strings(result)
	return dedup(result)
}

func dedup[T comparable](sorted []T) []T {
	var result []T
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			result = append(result, v)
		}
	}
	return result
}
