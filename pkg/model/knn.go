package model

import (
	"fmt"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"biasknn/pkg/errs"
)

type Weighting string

const (
	// Uniform gives every neighbour one vote
	Uniform Weighting = "uniform"
	// Distance weighs every neighbour by its inverse distance; exact matches outvote all others
	Distance Weighting = "distance"
)

type Metric string

const (
	Euclidean Metric = "euclidean"
	Manhattan Metric = "manhattan"
)

// Params are the hyperparameters of the classifier.
type Params struct {
	Neighbors int
	Weighting Weighting
	// LeafSize is kept for reporting; the search is brute force and ignores it
	LeafSize int
	// Jobs bounds prediction goroutines, -1 means GOMAXPROCS
	Jobs   int
	Metric Metric
}

func DefaultParams() Params {
	return Params{Neighbors: 5, Weighting: Uniform, LeafSize: 30, Jobs: -1, Metric: Euclidean}
}

func (p Params) String() string {
	return fmt.Sprintf("neighbors=%d weighting=%s leaf_size=%d jobs=%d", p.Neighbors, p.Weighting, p.LeafSize, p.Jobs)
}

func (p Params) validate() error {
	if p.Neighbors < 1 {
		return fmt.Errorf("neighbor count must be positive, got %d", p.Neighbors)
	}
	switch p.Weighting {
	case Uniform, Distance:
	default:
		return fmt.Errorf("unknown weighting %q", p.Weighting)
	}
	switch p.Metric {
	case Euclidean, Manhattan, "":
	default:
		return fmt.Errorf("unknown metric %q", p.Metric)
	}
	return nil
}

func (p Params) workers() int {
	if p.Jobs <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return p.Jobs
}

func (p Params) norm() float64 {
	if p.Metric == Manhattan {
		return 1
	}
	return 2
}

// KNN is a k-nearest-neighbours classifier. Fit only retains the training matrix, so
// memory grows with the training set and every prediction costs one distance per
// stored row.
//
// Neighbours are ranked by distance, equal distances by training row order. The label
// with the largest vote wins; a vote tie goes to the label whose voters have the smaller
// summed distance, and then to the label whose closest voter ranks first.
type KNN struct {
	Params
	x       *mat.Dense
	targets []int
	classes NameMap
}

func NewKNN(p Params) *KNN {
	return &KNN{Params: p}
}

// Fit stores the training rows and their labels, replacing earlier training data.
func (m *KNN) Fit(x *mat.Dense, labels []string) error {
	if err := m.validate(); err != nil {
		return err
	}
	if x == nil || len(labels) == 0 {
		return &errs.EmptyCategoryError{Column: "labels"}
	}
	if rows, _ := x.Dims(); rows != len(labels) {
		return &errs.DataIntegrityError{Column: "labels", Reason: fmt.Sprintf("%d labels for %d rows", len(labels), rows)}
	}
	m.classes = NewSortedNameMap(labels)
	m.targets = make([]int, len(labels))
	for i, label := range labels {
		m.targets[i], _ = m.classes.ContainsName(label)
	}
	m.x = x
	return nil
}

// Classes returns the training labels in sorted order.
func (m *KNN) Classes() []string {
	return m.classes.Names()
}

// Predict labels every row of x.
func (m *KNN) Predict(x *mat.Dense) ([]string, error) {
	if m.x == nil {
		return nil, &errs.NotFittedError{Component: "knn classifier"}
	}
	if x == nil {
		return nil, nil
	}
	rows, cols := x.Dims()
	if _, trained := m.x.Dims(); cols != trained {
		return nil, &errs.DataIntegrityError{Column: "features", Reason: fmt.Sprintf("%d columns, classifier trained on %d", cols, trained)}
	}

	out := make([]string, rows)
	workers := min(m.workers(), rows)
	rowsPerWorker := (rows + workers - 1) / workers

	var g errgroup.Group
	for start := 0; start < rows; start += rowsPerWorker {
		start := start
		end := min(start+rowsPerWorker, rows)
		g.Go(func() error {
			for i := start; i < end; i++ {
				out[i] = m.classes.IndexToName[m.predictRow(x.RawRowView(i))]
			}
			return nil
		})
	}
	_ = g.Wait()
	return out, nil
}

type neighbor struct {
	index    int
	distance float64
}

// nearest returns the k closest training rows ordered by distance then row index.
func (m *KNN) nearest(row []float64) []neighbor {
	rows, _ := m.x.Dims()
	k := min(m.Neighbors, rows)
	norm := m.norm()
	nbrs := make([]neighbor, 0, k)
	for j := 0; j < rows; j++ {
		d := floats.Distance(row, m.x.RawRowView(j), norm)
		if len(nbrs) == k && d >= nbrs[k-1].distance {
			continue
		}
		p := sort.Search(len(nbrs), func(i int) bool { return nbrs[i].distance > d })
		if len(nbrs) < k {
			nbrs = append(nbrs, neighbor{})
		}
		copy(nbrs[p+1:], nbrs[p:len(nbrs)-1])
		nbrs[p] = neighbor{index: j, distance: d}
	}
	return nbrs
}

type ballot struct {
	weight      float64
	distanceSum float64
	firstRank   int
}

func (m *KNN) predictRow(row []float64) int {
	nbrs := m.nearest(row)
	exact := m.Weighting == Distance && nbrs[0].distance == 0

	ballots := map[int]*ballot{}
	for rank, n := range nbrs {
		if exact && n.distance != 0 {
			break
		}
		class := m.targets[n.index]
		b, ok := ballots[class]
		if !ok {
			b = &ballot{firstRank: rank}
			ballots[class] = b
		}
		switch {
		case m.Weighting == Distance && !exact:
			b.weight += 1 / n.distance
		default:
			b.weight++
		}
		b.distanceSum += n.distance
	}

	best, bestBallot := -1, (*ballot)(nil)
	for class, b := range ballots {
		if bestBallot == nil || wins(b, bestBallot) {
			best, bestBallot = class, b
		}
	}
	return best
}

func wins(a, b *ballot) bool {
	if a.weight != b.weight {
		return a.weight > b.weight
	}
	if a.distanceSum != b.distanceSum {
		return a.distanceSum < b.distanceSum
	}
	return a.firstRank < b.firstRank
}
