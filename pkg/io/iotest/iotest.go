// Package iotest generates synthetic incident data for tests.
package iotest

import (
	"biasknn/pkg/io"
)

// DefaultSizes are per-category row counts: imbalanced, every class large enough to be
// split, cross-validated and oversampled with five neighbours.
var DefaultSizes = []int{40, 30, 20, 20, 15, 12}

// rawBiases holds raw bias descriptions per category, in the order of the category list.
var rawBiases = [][]string{
	{"Anti-Mental Disability", "Anti-Physical Disability"},
	{"Anti-Female", "Anti-Male"},
	{"Anti-Gender Non-Conforming", "Anti-Transgender"},
	{"Anti-Black or African American", "Anti-White", "Anti-Asian", "Anti-Arab"},
	{"Anti-Jewish", "Anti-Islamic (Muslim)", "Anti-Catholic"},
	{"Anti-Gay (Male)", "Anti-Lesbian (Female)", "Anti-Bisexual"},
}

var (
	offenses  = []string{"Simple Assault", "Intimidation", "Aggravated Assault", "Destruction/Damage/Vandalism of Property", "Robbery", "Burglary/Breaking & Entering"}
	locations = []string{"Residence/Home", "Highway/Road/Alley/Street/Sidewalk", "School-Elementary/Secondary", "Church/Synagogue/Temple/Mosque", "Parking/Drop Lot/Garage", "Bar/Nightclub"}
	states    = []string{"California", "New York", "Texas", "Federal"}
	divisions = []string{"Pacific", "Middle Atlantic", "West South Central", "Other"}
	regions   = []string{"West", "Northeast", "South", "Other"}
	races     = []string{"White", "Black or African American", "Unknown", "Multiple", "Not Specified"}
	victims   = []string{"Individual", "Business", "Other", "Unknown"}
)

// Incidents returns sizes[c] rows for every category c. Rows of one category share an
// offense, a location and a victim count, so they are easy to tell apart. Some rows carry
// multi-valued offenses, zero offender counts and numeric outliers.
func Incidents(sizes ...int) []io.Incident {
	var records []io.Incident
	id := int64(1)
	for c, size := range sizes {
		for i := 0; i < size; i++ {
			r := io.Incident{
				IncidentID:                 id,
				DataYear:                   2015 + i%5,
				StateName:                  states[(c+i)%len(states)],
				DivisionName:               divisions[(c+i)%len(divisions)],
				RegionName:                 regions[(c+i)%len(regions)],
				PopulationGroupDescription: "Cities from 10,000 thru 24,999",
				TotalOffenderCount:         float64(i % 3),
				OffenderRace:               races[i%len(races)],
				VictimCount:                float64(1 + c),
				OffenseName:                offenses[c%len(offenses)],
				TotalIndividualVictims:     io.NullableFloat{Value: float64(1 + c + i%2), Valid: true},
				LocationName:               locations[c%len(locations)],
				BiasDesc:                   rawBiases[c%len(rawBiases)][i%len(rawBiases[c%len(rawBiases)])],
				VictimTypes:                victims[i%len(victims)],
				MultipleOffense:            "S",
				MultipleBias:               "S",
			}
			if i%7 == 3 {
				r.OffenseName += ";Intimidation"
			}
			if i%11 == 5 {
				r.TotalOffenderCount = 14
				r.VictimCount = 12
			}
			records = append(records, r)
			id++
		}
	}
	return records
}

// Noise returns rows that cleaning must remove, ids starting at firstID: an unknown bias,
// a multiple bias, an excluded jurisdiction, a missing population density and a missing
// individual victim count.
func Noise(firstID int64) []io.Incident {
	base := Incidents(1)[0]
	var rows []io.Incident
	for i := 0; i < 5; i++ {
		r := base
		r.IncidentID = firstID + int64(i)
		switch i {
		case 0:
			r.BiasDesc = "Unknown (offender's motivation not known)"
		case 1:
			r.MultipleBias = "M"
		case 2:
			r.StateName = "Guam"
		case 3:
			r.PopulationGroupDescription = ""
		case 4:
			r.TotalIndividualVictims = io.NullableFloat{}
		}
		rows = append(rows, r)
	}
	return rows
}
