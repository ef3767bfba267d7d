package etl

import (
	"github.com/hjoerring-data/nsp-ticket-sync/internal/model"
)

// Canonical labels for dimension ids whose raw text drifted in the source
// system. An id present here always wins over the label carried by the batch.
var (
	groupOverrides = map[int64]string{}

	typeOverrides = map[int64]string{
		181930: "Øvrige",
	}

	areaOverrides = map[int64]string{
		179117: "Udvikling og Administration",
		181932: "Børne- og Familieområdet",
	}

	statusOverrides = map[int64]string{
		1:  "Registreret",
		3:  "Tildelt",
		6:  "Påbegyndt",
		10: "Løst",
		11: "Lukket",
		25: "Svar modtaget",
		26: "Genåbnet",
		27: "Afventer",
		28: "Afventer bruger",
		29: "Afventer leverandør",
		35: "Løst uden mail",
	}

	reasonOverrides = map[int64]string{
		183001: "Ikke afvist",
	}
)

// Dimensions holds the deduplicated id/label rows for one batch, one slice
// per dimension table.
type Dimensions struct {
	Groups   []model.DimensionRow
	Types    []model.DimensionRow
	Areas    []model.DimensionRow
	Statuses []model.DimensionRow
	Reasons  []model.DimensionRow
}

func (d Dimensions) Total() int {
	return len(d.Groups) + len(d.Types) + len(d.Areas) + len(d.Statuses) + len(d.Reasons)
}

// ExtractDimensions projects the five categorical id/label pairs out of a
// cleaned batch. Rows without an id are dropped, ids are deduplicated keeping
// the first occurrence in batch order, and the static override tables above
// take precedence over the raw labels.
func ExtractDimensions(batch []Record) Dimensions {
	return Dimensions{
		Groups:   extractDimension(batch, func(r Record) *int64 { return r.GroupID }, func(r Record) *string { return r.GroupLabel }, groupOverrides),
		Types:    extractDimension(batch, func(r Record) *int64 { return r.TypeID }, func(r Record) *string { return r.TypeLabel }, typeOverrides),
		Areas:    extractDimension(batch, func(r Record) *int64 { return r.AreaID }, func(r Record) *string { return r.AreaLabel }, areaOverrides),
		Statuses: extractDimension(batch, func(r Record) *int64 { return r.StatusID }, func(r Record) *string { return r.StatusLabel }, statusOverrides),
		Reasons:  extractDimension(batch, func(r Record) *int64 { return r.ReasonID }, func(r Record) *string { return r.ReasonLabel }, reasonOverrides),
	}
}

func extractDimension(batch []Record, id func(Record) *int64, label func(Record) *string, overrides map[int64]string) []model.DimensionRow {
	seen := make(map[int64]bool, len(batch))
	rows := make([]model.DimensionRow, 0, len(batch))
	for _, rec := range batch {
		recID := id(rec)
		if recID == nil || *recID == 0 || seen[*recID] {
			continue
		}
		seen[*recID] = true
		resolved := ""
		if v := label(rec); v != nil {
			resolved = *v
		}
		if override, ok := overrides[*recID]; ok {
			resolved = override
		}
		rows = append(rows, model.DimensionRow{ID: *recID, Label: resolved})
	}
	return rows
}
