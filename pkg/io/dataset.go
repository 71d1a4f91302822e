package io

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"biasknn/pkg/errs"
)

// DataSet indexes labelled rows for stratified splitting. Rows are referenced by position
// so the same DataSet serves incident records and encoded feature matrices alike.
type DataSet struct {
	Labels      []string
	Rand        *rand.Rand
	dataIndices []int
}

func NewDataSet(labels []string, seed int64) *DataSet {
	dataIndices := make([]int, len(labels))
	for i := range dataIndices {
		dataIndices[i] = i
	}
	return &DataSet{Labels: labels, Rand: rand.New(rand.NewSource(seed)), dataIndices: dataIndices}
}

func (d *DataSet) Size() int {
	return len(d.dataIndices)
}

// Classes returns the distinct labels in sorted order.
func (d *DataSet) Classes() []string {
	byClass := d.byClass()
	classes := make([]string, 0, len(byClass))
	for class := range byClass {
		classes = append(classes, class)
	}
	sort.Strings(classes)
	return classes
}

func (d *DataSet) byClass() map[string][]int {
	result := make(map[string][]int)
	for _, idx := range d.dataIndices {
		class := d.Labels[idx]
		result[class] = append(result[class], idx)
	}
	return result
}

// StratifiedSplit draws round(n_c * testRatio) rows of every class c into the test split,
// at least one and at most n_c - 1, and the rest into the training split. Both index
// lists are returned in ascending order.
func (d *DataSet) StratifiedSplit(testRatio float64) (train, test []int, err error) {
	if testRatio <= 0 || testRatio >= 1 {
		return nil, nil, fmt.Errorf("test ratio %.3f outside (0,1)", testRatio)
	}
	byClass := d.byClass()
	for _, class := range d.Classes() {
		members := byClass[class]
		if len(members) < 2 {
			return nil, nil, &errs.InvalidSplitError{Class: class, Count: len(members)}
		}
		shuffled := make([]int, len(members))
		copy(shuffled, members)
		d.Rand.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		nTest := int(math.Round(float64(len(members)) * testRatio))
		if nTest < 1 {
			nTest = 1
		}
		if nTest > len(members)-1 {
			nTest = len(members) - 1
		}
		test = append(test, shuffled[:nTest]...)
		train = append(train, shuffled[nTest:]...)
	}
	sort.Ints(train)
	sort.Ints(test)
	return train, test, nil
}

// Fold is one cross-validation round expressed as row positions.
type Fold struct {
	Train []int
	Test  []int
}

// StratifiedFolds assigns the i-th member of every class (in row order) to fold i mod k.
// No shuffling takes place, so folds depend only on the labels.
func (d *DataSet) StratifiedFolds(k int) ([]Fold, error) {
	if k < 2 || k > d.Size() {
		return nil, fmt.Errorf("cannot build %d folds over %d rows", k, d.Size())
	}
	assignment := make([]int, len(d.Labels))
	seen := make(map[string]int)
	for _, idx := range d.dataIndices {
		class := d.Labels[idx]
		assignment[idx] = seen[class] % k
		seen[class]++
	}
	folds := make([]Fold, k)
	for _, idx := range d.dataIndices {
		for f := range folds {
			if assignment[idx] == f {
				folds[f].Test = append(folds[f].Test, idx)
			} else {
				folds[f].Train = append(folds[f].Train, idx)
			}
		}
	}
	return folds, nil
}
