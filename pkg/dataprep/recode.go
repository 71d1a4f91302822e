// Package dataprep turns loaded incidents into the cleaned, recoded record set the feature
// pipeline consumes. Every step takes a record slice and returns a new one; inputs are
// never modified.
package dataprep

import (
	"strings"

	"biasknn/pkg/io"
)

// Mapping is a fixed raw-value to canonical-value lookup. Values without an entry pass
// through unchanged. A Mapping is never modified after construction.
type Mapping struct {
	table map[string]string
}

// NewMapping builds a one-to-one mapping from alternating raw, canonical pairs.
func NewMapping(pairs ...string) Mapping {
	if len(pairs)%2 != 0 {
		panic("NewMapping needs raw, canonical pairs")
	}
	m := Mapping{table: make(map[string]string, len(pairs)/2)}
	for i := 0; i < len(pairs); i += 2 {
		m.table[pairs[i]] = pairs[i+1]
	}
	return m
}

// Group is a set of raw values that share one canonical value.
type Group struct {
	Canonical string
	Members   []string
}

// NewGroupMapping builds a many-to-one mapping.
func NewGroupMapping(groups ...Group) Mapping {
	m := Mapping{table: map[string]string{}}
	for _, g := range groups {
		for _, raw := range g.Members {
			m.table[raw] = g.Canonical
		}
	}
	return m
}

func (m Mapping) Lookup(value string) string {
	if canonical, ok := m.table[value]; ok {
		return canonical
	}
	return value
}

// Contains reports whether value is a raw key of the mapping.
func (m Mapping) Contains(value string) bool {
	_, ok := m.table[value]
	return ok
}

// Rule binds a mapping to the column it rewrites.
type Rule struct {
	Column  io.Column
	Mapping Mapping
}

// Recoder applies its rules in order. It preserves row count and order.
type Recoder struct {
	rules []Rule
}

func NewRecoder(rules ...Rule) *Recoder {
	return &Recoder{rules: rules}
}

func (r *Recoder) Apply(records []io.Incident) []io.Incident {
	out := make([]io.Incident, len(records))
	copy(out, records)
	for i := range out {
		for _, rule := range r.rules {
			out[i].SetCategorical(rule.Column, rule.Mapping.Lookup(out[i].Categorical(rule.Column)))
		}
	}
	return out
}

// KeepFirstValue reduces ';'-joined multi-values of the given columns to their first value.
func KeepFirstValue(records []io.Incident, columns ...io.Column) []io.Incident {
	out := make([]io.Incident, len(records))
	copy(out, records)
	for i := range out {
		for _, col := range columns {
			value := out[i].Categorical(col)
			if idx := strings.IndexByte(value, ';'); idx >= 0 {
				out[i].SetCategorical(col, value[:idx])
			}
		}
	}
	return out
}

// ImputeOffenderCount sets a zero offender count to one; every incident has an offender.
func ImputeOffenderCount(records []io.Incident) []io.Incident {
	out := make([]io.Incident, len(records))
	copy(out, records)
	for i := range out {
		if out[i].TotalOffenderCount == 0 {
			out[i].TotalOffenderCount = 1
		}
	}
	return out
}

const (
	AntiDisability         = "Anti-Disability"
	AntiGender             = "Anti-Gender"
	AntiGenderIdentity     = "Anti-Gender Identity"
	AntiRaceEthnicity      = "Anti-Race/Ethnicity/Ancestry"
	AntiReligion           = "Anti-Religion"
	AntiSexualOrientation  = "Anti-Sexual Orientation"
	UnknownBiasDescription = "Unknown (offender's motivation not known)"
	MultipleBiasFlag       = "M"
)

// BiasCategories are the six class labels, in report order.
var BiasCategories = []string{
	AntiDisability, AntiGender, AntiGenderIdentity,
	AntiRaceEthnicity, AntiReligion, AntiSexualOrientation,
}

// BiasGroups lists the raw bias descriptions that make up every bias category.
func BiasGroups() []Group {
	return []Group{
		{Canonical: AntiDisability, Members: []string{
			"Anti-Mental Disability", "Anti-Physical Disability",
		}},
		{Canonical: AntiGender, Members: []string{
			"Anti-Female", "Anti-Male",
		}},
		{Canonical: AntiGenderIdentity, Members: []string{
			"Anti-Gender Non-Conforming", "Anti-Transgender",
		}},
		{Canonical: AntiRaceEthnicity, Members: []string{
			"Anti-American Indian or Alaska Native", "Anti-Arab", "Anti-Asian",
			"Anti-Black or African American", "Anti-Native Hawaiian or Other Pacific Islander",
			"Anti-Hispanic or Latino", "Anti-Multiple Races, Group",
			"Anti-Other Race/Ethnicity/Ancestry", "Anti-White",
		}},
		{Canonical: AntiReligion, Members: []string{
			"Anti-Atheism/Agnosticism", "Anti-Buddhist", "Anti-Catholic",
			"Anti-Eastern Orthodox (Russian, Greek, Other)", "Anti-Hindu",
			"Anti-Islamic (Muslim)", "Anti-Jehovah's Witness", "Anti-Jewish",
			"Anti-Mormon", "Anti-Multiple Religions, Group", "Anti-Other Christian",
			"Anti-Other Religion", "Anti-Protestant", "Anti-Sikh", "Anti-Church of Jesus Christ",
		}},
		{Canonical: AntiSexualOrientation, Members: []string{
			"Anti-Bisexual", "Anti-Gay (Male)",
			"Anti-Lesbian, Gay, Bisexual, or Transgender (Mixed Group)",
			"Anti-Heterosexual", "Anti-Lesbian (Female)",
		}},
	}
}

// BiasRule groups raw bias descriptions into bias categories.
func BiasRule() Rule {
	return Rule{Column: io.BiasDesc, Mapping: NewGroupMapping(BiasGroups()...)}
}

// JurisdictionRules keep federal and territorial agencies apart from the regular state,
// division and region levels.
func JurisdictionRules() []Rule {
	return []Rule{
		{Column: io.StateName, Mapping: NewMapping("Federal", "Federal (State)")},
		{Column: io.DivisionName, Mapping: NewMapping(
			"Other", "Federal (Division)",
			"U.S. Territories", "U.S. Territories (Division)",
		)},
		{Column: io.RegionName, Mapping: NewMapping(
			"Other", "Federal (Region)",
			"U.S. Territories", "U.S. Territories (Region)",
		)},
	}
}

// OffenderRaceRule merges the unknown and unspecified offender races.
func OffenderRaceRule() Rule {
	return Rule{Column: io.OffenderRace, Mapping: NewMapping(
		"Other/Unknown", "Other/Unknown Location Type",
		"Unknown", "Unknown Race",
		"Not Specified", "Unknown Race",
		"Multiple", "Mixed Race",
	)}
}

// VictimTypeRule disambiguates victim type levels that share names with other columns.
func VictimTypeRule() Rule {
	return Rule{Column: io.VictimTypes, Mapping: NewMapping(
		"Unknown", "Unknown Victim Type",
		"Other", "Other Victim Type",
	)}
}
