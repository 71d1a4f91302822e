package io

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"

	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"biasknn/pkg/errs"
)

// LoadIncidents reads the whole incident file, checks the header, drops columns that are
// not part of Incident, sorts by incident id and removes exact duplicates.
func LoadIncidents(fs afero.Fs, path string) ([]Incident, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}

	//First line is expected to be a header
	header, err := csv.NewReader(bytes.NewReader(data)).Read()
	if err != nil {
		return nil, fmt.Errorf("error reading data header: %w", err)
	}
	if err := checkHeader(header); err != nil {
		return nil, err
	}
	if dropped := DroppedColumns(header); len(dropped) > 0 {
		log.Debug().Strs("Columns", dropped).Msg("Dropping columns")
	}

	var records []Incident
	if err := gocsv.UnmarshalBytes(data, &records); err != nil {
		return nil, fmt.Errorf("error parsing %s: %w", path, err)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].IncidentID < records[j].IncidentID
	})
	deduplicated := dropDuplicates(records)
	log.Info().Str("File", path).Int("Rows", len(records)).Int("Unique", len(deduplicated)).Msg("Loaded incidents")
	return deduplicated, nil
}

// SaveIncidents writes records as CSV with the Incident header.
func SaveIncidents(fs afero.Fs, path string, records []Incident) error {
	out, err := gocsv.MarshalBytes(&records)
	if err != nil {
		return fmt.Errorf("error encoding incidents: %w", err)
	}
	if err := afero.WriteFile(fs, path, out, 0644); err != nil {
		return fmt.Errorf("error writing %s: %w", path, err)
	}
	return nil
}

// DroppedColumns returns the header columns that Incident does not keep.
func DroppedColumns(header []string) []string {
	kept := NewSet(RequiredColumns...)
	var dropped []string
	for _, col := range header {
		if _, ok := kept[col]; !ok {
			dropped = append(dropped, col)
		}
	}
	return dropped
}

// DropColumns clears the named informational columns of every record. Only columns that
// take no part in features or labels can be dropped.
func DropColumns(records []Incident, names ...string) ([]Incident, error) {
	out := make([]Incident, len(records))
	copy(out, records)
	for _, name := range names {
		var reset func(r *Incident)
		switch name {
		case "offender_ethnicity":
			reset = func(r *Incident) { r.OffenderEthnicity = "" }
		case "multiple_offense":
			reset = func(r *Incident) { r.MultipleOffense = "" }
		case "multiple_bias":
			reset = func(r *Incident) { r.MultipleBias = "" }
		default:
			return nil, &errs.DataIntegrityError{Column: name, Reason: "column cannot be dropped"}
		}
		for i := range out {
			reset(&out[i])
		}
	}
	return out, nil
}

func checkHeader(header []string) error {
	present := NewSet(header...)
	for _, col := range RequiredColumns {
		if _, ok := present[col]; !ok {
			return &errs.DataIntegrityError{Column: col, Reason: "required column missing from header"}
		}
	}
	return nil
}

func dropDuplicates(records []Incident) []Incident {
	seen := make(map[Incident]void, len(records))
	out := make([]Incident, 0, len(records))
	for _, r := range records {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = Void
		out = append(out, r)
	}
	return out
}

type void struct{}

var Void = void{}

type Set map[string]void

func NewSet(values ...string) Set {
	set := Set{}
	for _, val := range values {
		set[val] = Void
	}
	return set
}
