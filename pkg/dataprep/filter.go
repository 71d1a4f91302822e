package dataprep

import (
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"biasknn/pkg/io"
)

// Predicate selects records to exclude.
type Predicate func(r *io.Incident) bool

// Exclude returns the records for which drop is false, in their original order.
func Exclude(records []io.Incident, drop Predicate) []io.Incident {
	out := make([]io.Incident, 0, len(records))
	for i := range records {
		if !drop(&records[i]) {
			out = append(out, records[i])
		}
	}
	return out
}

func UnknownBias(r *io.Incident) bool {
	return strings.TrimSpace(r.BiasDesc) == "" || r.BiasDesc == UnknownBiasDescription
}

func MultipleBias(r *io.Incident) bool {
	return r.MultipleBias == MultipleBiasFlag
}

func NullPopulationDensity(r *io.Incident) bool {
	return strings.TrimSpace(r.PopulationGroupDescription) == ""
}

func NullTotalIndividualVictims(r *io.Incident) bool {
	return !r.TotalIndividualVictims.Valid
}

// InStates matches records from any of the named states.
func InStates(states ...string) Predicate {
	set := io.NewSet(states...)
	return func(r *io.Incident) bool {
		_, ok := set[r.StateName]
		return ok
	}
}

// LevelCounts expands every value of column on ';' and counts, per distinct token, the
// number of rows containing it. Empty tokens are not levels.
func LevelCounts(records []io.Incident, column io.Column) map[string]int {
	counts := make(map[string]int)
	for i := range records {
		seen := io.NewSet()
		for _, token := range strings.Split(records[i].Categorical(column), ";") {
			if token == "" {
				continue
			}
			if _, ok := seen[token]; ok {
				continue
			}
			seen[token] = io.Void
			counts[token]++
		}
	}
	return counts
}

// SparseLevels returns, sorted, the levels of column occurring in strictly fewer than
// ratio * len(records) rows, together with that threshold.
func SparseLevels(records []io.Incident, column io.Column, ratio float64) ([]string, float64) {
	threshold := ratio * float64(len(records))
	var sparse []string
	for level, count := range LevelCounts(records, column) {
		if float64(count) < threshold {
			sparse = append(sparse, level)
		}
	}
	sort.Strings(sparse)
	return sparse, threshold
}

// DropSparse removes the rows whose column value is a sparse level. The threshold is
// computed from the rows passed in, so successive calls see the already reduced count.
func DropSparse(records []io.Incident, column io.Column, ratio float64) []io.Incident {
	sparse, threshold := SparseLevels(records, column, ratio)
	if len(sparse) == 0 {
		return records
	}
	log.Debug().Str("Column", column.String()).Float64("Threshold", threshold).Strs("Levels", sparse).Msg("Removing sparse levels")
	set := io.NewSet(sparse...)
	return Exclude(records, func(r *io.Incident) bool {
		_, ok := set[r.Categorical(column)]
		return ok
	})
}
