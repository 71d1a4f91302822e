package io

import (
	"strconv"
	"strings"
)

// NullableFloat is a numeric CSV cell that may be empty.
type NullableFloat struct {
	Value float64
	Valid bool
}

func (n *NullableFloat) UnmarshalCSV(value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		*n = NullableFloat{}
		return nil
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return err
	}
	*n = NullableFloat{Value: v, Valid: true}
	return nil
}

func (n NullableFloat) MarshalCSV() (string, error) {
	if !n.Valid {
		return "", nil
	}
	return strconv.FormatFloat(n.Value, 'f', -1, 64), nil
}

// Incident is one reported incident. Columns of the raw file that are not fields here
// are dropped at load time.
type Incident struct {
	IncidentID                 int64         `csv:"incident_id"`
	DataYear                   int           `csv:"data_year"`
	StateName                  string        `csv:"state_name"`
	DivisionName               string        `csv:"division_name"`
	RegionName                 string        `csv:"region_name"`
	PopulationGroupDescription string        `csv:"population_group_description"`
	TotalOffenderCount         float64       `csv:"total_offender_count"`
	OffenderRace               string        `csv:"offender_race"`
	OffenderEthnicity          string        `csv:"offender_ethnicity"`
	VictimCount                float64       `csv:"victim_count"`
	OffenseName                string        `csv:"offense_name"`
	TotalIndividualVictims     NullableFloat `csv:"total_individual_victims"`
	LocationName               string        `csv:"location_name"`
	BiasDesc                   string        `csv:"bias_desc"`
	VictimTypes                string        `csv:"victim_types"`
	MultipleOffense            string        `csv:"multiple_offense"`
	MultipleBias               string        `csv:"multiple_bias"`
}

// RequiredColumns lists the header names LoadIncidents insists on.
var RequiredColumns = []string{
	"incident_id", "data_year", "state_name", "division_name", "region_name",
	"population_group_description", "total_offender_count", "offender_race",
	"offender_ethnicity", "victim_count", "offense_name", "total_individual_victims",
	"location_name", "bias_desc", "victim_types", "multiple_offense", "multiple_bias",
}

// Column names a typed field of Incident that takes part in feature construction or
// labelling.
type Column int

const (
	DataYear Column = iota
	StateName
	DivisionName
	RegionName
	PopulationGroup
	OffenderRace
	OffenseName
	LocationName
	VictimTypes
	BiasDesc
	TotalOffenderCount
	VictimCount
	TotalIndividualVictims
)

var columnNames = [...]string{
	DataYear:               "data_year",
	StateName:              "state_name",
	DivisionName:           "division_name",
	RegionName:             "region_name",
	PopulationGroup:        "population_group_description",
	OffenderRace:           "offender_race",
	OffenseName:            "offense_name",
	LocationName:           "location_name",
	VictimTypes:            "victim_types",
	BiasDesc:               "bias_desc",
	TotalOffenderCount:     "total_offender_count",
	VictimCount:            "victim_count",
	TotalIndividualVictims: "total_individual_victims",
}

func (c Column) String() string {
	if c < 0 || int(c) >= len(columnNames) {
		return "column(" + strconv.Itoa(int(c)) + ")"
	}
	return columnNames[c]
}

// CategoricalColumns are the feature columns expanded into indicators, in matrix order.
var CategoricalColumns = []Column{
	DataYear, StateName, DivisionName, RegionName, PopulationGroup,
	OffenderRace, OffenseName, LocationName, VictimTypes,
}

// NumericColumns are the feature columns copied into the matrix, in matrix order.
var NumericColumns = []Column{TotalOffenderCount, VictimCount, TotalIndividualVictims}

// Categorical returns the text value of a categorical column. Years are stringified so
// that every level has a single text representation.
func (r *Incident) Categorical(c Column) string {
	switch c {
	case DataYear:
		return strconv.Itoa(r.DataYear)
	case StateName:
		return r.StateName
	case DivisionName:
		return r.DivisionName
	case RegionName:
		return r.RegionName
	case PopulationGroup:
		return r.PopulationGroupDescription
	case OffenderRace:
		return r.OffenderRace
	case OffenseName:
		return r.OffenseName
	case LocationName:
		return r.LocationName
	case VictimTypes:
		return r.VictimTypes
	case BiasDesc:
		return r.BiasDesc
	}
	panic("not a categorical column: " + c.String())
}

// SetCategorical replaces the value of a string column. DataYear is not settable.
func (r *Incident) SetCategorical(c Column, value string) {
	switch c {
	case StateName:
		r.StateName = value
	case DivisionName:
		r.DivisionName = value
	case RegionName:
		r.RegionName = value
	case PopulationGroup:
		r.PopulationGroupDescription = value
	case OffenderRace:
		r.OffenderRace = value
	case OffenseName:
		r.OffenseName = value
	case LocationName:
		r.LocationName = value
	case VictimTypes:
		r.VictimTypes = value
	case BiasDesc:
		r.BiasDesc = value
	default:
		panic("not a settable categorical column: " + c.String())
	}
}

// Numeric returns the value of a numeric column and whether it is present.
func (r *Incident) Numeric(c Column) (float64, bool) {
	switch c {
	case TotalOffenderCount:
		return r.TotalOffenderCount, true
	case VictimCount:
		return r.VictimCount, true
	case TotalIndividualVictims:
		return r.TotalIndividualVictims.Value, r.TotalIndividualVictims.Valid
	}
	panic("not a numeric column: " + c.String())
}

// Labels returns the bias label of every record.
func Labels(records []Incident) []string {
	labels := make([]string, len(records))
	for i := range records {
		labels[i] = records[i].BiasDesc
	}
	return labels
}

// Select returns the records at the given indices, in index order.
func Select(records []Incident, indices []int) []Incident {
	out := make([]Incident, len(indices))
	for i, idx := range indices {
		out[i] = records[idx]
	}
	return out
}
