package dataprep

import (
	"github.com/rs/zerolog/log"

	"biasknn/pkg/errs"
	"biasknn/pkg/io"
)

type CleanParameters struct {
	// SparsityRatio is the fraction of current rows a level needs to be kept
	SparsityRatio float64
	// ExcludedStates are jurisdictions outside the states, D.C. and federal set
	ExcludedStates []string
}

func DefaultCleanParameters() CleanParameters {
	return CleanParameters{SparsityRatio: 0.0001, ExcludedStates: []string{"Guam"}}
}

type step struct {
	name  string
	apply func([]io.Incident) []io.Incident
}

// Cleaner runs the fixed sequence of recodings and row exclusions.
type Cleaner struct {
	steps []step
}

func NewCleaner(p CleanParameters) *Cleaner {
	jurisdictions := NewRecoder(JurisdictionRules()...)
	race := NewRecoder(OffenderRaceRule())
	bias := NewRecoder(BiasRule())
	victims := NewRecoder(VictimTypeRule())
	excluded := InStates(p.ExcludedStates...)

	return &Cleaner{steps: []step{
		{"first value", func(r []io.Incident) []io.Incident {
			return KeepFirstValue(r, io.OffenseName, io.LocationName, io.VictimTypes)
		}},
		{"excluded states", func(r []io.Incident) []io.Incident { return Exclude(r, excluded) }},
		{"jurisdictions", jurisdictions.Apply},
		{"null population density", func(r []io.Incident) []io.Incident { return Exclude(r, NullPopulationDensity) }},
		{"sparse offenses", func(r []io.Incident) []io.Incident { return DropSparse(r, io.OffenseName, p.SparsityRatio) }},
		{"null individual victims", func(r []io.Incident) []io.Incident { return Exclude(r, NullTotalIndividualVictims) }},
		{"sparse locations", func(r []io.Incident) []io.Incident { return DropSparse(r, io.LocationName, p.SparsityRatio) }},
		{"offender race", race.Apply},
		{"bias groups", bias.Apply},
		{"unknown bias", func(r []io.Incident) []io.Incident { return Exclude(r, UnknownBias) }},
		{"victim types", victims.Apply},
		{"multiple bias", func(r []io.Incident) []io.Incident { return Exclude(r, MultipleBias) }},
		{"offender count", ImputeOffenderCount},
	}}
}

// Clean returns the cleaned records and verifies the invariants every retained record
// must satisfy.
func (c *Cleaner) Clean(records []io.Incident) ([]io.Incident, error) {
	for _, s := range c.steps {
		before := len(records)
		records = s.apply(records)
		log.Debug().Str("Stage", s.name).Int("Before", before).Int("After", len(records)).Msg("")
	}
	log.Info().Int("Rows", len(records)).Msg("Cleaned incidents")
	if err := Validate(records); err != nil {
		return nil, err
	}
	return io.DropColumns(records, InformationalColumns...)
}

// InformationalColumns are cleared once cleaning no longer needs them.
var InformationalColumns = []string{"offender_ethnicity", "multiple_offense", "multiple_bias"}

// Validate checks the post-cleaning invariants. A failure indicates a cleaning bug.
func Validate(records []io.Incident) error {
	for i := range records {
		r := &records[i]
		switch {
		case UnknownBias(r):
			return &errs.DataIntegrityError{Column: io.BiasDesc.String(), Reason: "unknown bias after cleaning"}
		case MultipleBias(r):
			return &errs.DataIntegrityError{Column: "multiple_bias", Reason: "multiple bias after cleaning"}
		case NullTotalIndividualVictims(r):
			return &errs.DataIntegrityError{Column: io.TotalIndividualVictims.String(), Reason: "null after cleaning"}
		case r.TotalOffenderCount < 1:
			return &errs.DataIntegrityError{Column: io.TotalOffenderCount.String(), Reason: "offender count below one after cleaning"}
		}
	}
	return nil
}
