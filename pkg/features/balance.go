package features

import (
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"biasknn/pkg/errs"
)

// Balancer oversamples every class below the majority count by interpolating between a
// member and one of its Neighbors nearest same-class members (SMOTE).
type Balancer struct {
	Neighbors int
	Rand      *rand.Rand
}

func NewBalancer(neighbors int, seed int64) *Balancer {
	return &Balancer{Neighbors: neighbors, Rand: rand.New(rand.NewSource(seed))}
}

// Resample returns the original rows followed by the synthetic rows. Classes are
// processed in sorted order; the majority class is never resampled.
func (b *Balancer) Resample(x *mat.Dense, labels []string) (*mat.Dense, []string, error) {
	if x == nil {
		return nil, nil, &errs.EmptyCategoryError{Column: "labels"}
	}
	rows, cols := x.Dims()
	if rows != len(labels) {
		return nil, nil, &errs.DataIntegrityError{Column: "labels", Reason: "label count differs from matrix rows"}
	}

	byClass := map[string][]int{}
	for i, label := range labels {
		byClass[label] = append(byClass[label], i)
	}
	classes := make([]string, 0, len(byClass))
	majority := 0
	for class, members := range byClass {
		classes = append(classes, class)
		if len(members) > majority {
			majority = len(members)
		}
	}
	sort.Strings(classes)

	var synthetic [][]float64
	var syntheticLabels []string
	for _, class := range classes {
		members := byClass[class]
		missing := majority - len(members)
		if missing == 0 {
			continue
		}
		if len(members) < b.Neighbors+1 {
			return nil, nil, &errs.InsufficientNeighborsError{Class: class, Count: len(members), Required: b.Neighbors + 1}
		}
		neighbors := nearestWithin(x, members, b.Neighbors)
		for s := 0; s < missing; s++ {
			pick := b.Rand.Intn(len(members))
			origin := x.RawRowView(members[pick])
			other := x.RawRowView(neighbors[pick][b.Rand.Intn(b.Neighbors)])
			gap := b.Rand.Float64()

			diff := make([]float64, cols)
			floats.SubTo(diff, other, origin)
			sample := make([]float64, cols)
			floats.AddScaledTo(sample, origin, gap, diff)
			synthetic = append(synthetic, sample)
			syntheticLabels = append(syntheticLabels, class)
		}
	}

	result := mat.NewDense(rows+len(synthetic), cols, nil)
	for i := 0; i < rows; i++ {
		result.SetRow(i, x.RawRowView(i))
	}
	for i, sample := range synthetic {
		result.SetRow(rows+i, sample)
	}
	outLabels := make([]string, 0, rows+len(synthetic))
	outLabels = append(outLabels, labels...)
	outLabels = append(outLabels, syntheticLabels...)
	return result, outLabels, nil
}

// nearestWithin returns, for every member, the row indices of its k nearest other
// members. Equal distances keep the lower row index first.
func nearestWithin(x *mat.Dense, members []int, k int) [][]int {
	type candidate struct {
		index    int
		distance float64
	}
	result := make([][]int, len(members))
	for i, a := range members {
		candidates := make([]candidate, 0, len(members)-1)
		for _, other := range members {
			if other == a {
				continue
			}
			candidates = append(candidates, candidate{other, floats.Distance(x.RawRowView(a), x.RawRowView(other), 2)})
		}
		sort.SliceStable(candidates, func(p, q int) bool {
			return candidates[p].distance < candidates[q].distance
		})
		result[i] = make([]int, k)
		for j := 0; j < k; j++ {
			result[i][j] = candidates[j].index
		}
	}
	return result
}
