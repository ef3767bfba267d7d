package etl

import (
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/hjoerring-data/nsp-ticket-sync/internal/model"
)

// labelSuffix trails every enumerated label value the NSP API emits; the
// matching prefix is "Ticket.<FieldName>.". Both are removed by plain
// substring replacement, never by pattern matching.
const labelSuffix = ".DisplayNameId.label-en"

// timestampLayouts are tried in order when parsing raw API timestamps.
// Values without an explicit offset are taken as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Record is one cleaned ticket: timestamps reduced to local calendar-date
// strings, enumerated labels stripped to their code segment, and the
// watermark parsed as a full instant. It is the working shape shared by the
// dimension extractor and the fact transformer.
type Record struct {
	ID          *int64
	GroupID     *int64
	GroupLabel  *string
	StatusID    *int64
	StatusLabel *string
	TypeID      *int64
	TypeLabel   *string
	AreaID      *int64
	AreaLabel   *string
	ReasonID    *int64
	ReasonLabel *string
	CreatedDate *string
	ClosedDate  *string
	StartDate   *string
	EndDate     *string
	Priority    *string
	Agent       *string
	User        *string
	Title       *string
	UpdatedAt   *time.Time
}

// Format cleans a raw batch: the four source timestamps become date strings
// in loc rendered with dateFormat (unparseable or empty values become nil,
// never an error), the three enumerated labels lose their fixed markers, and
// UpdatedDate is parsed as a UTC instant without date truncation.
func Format(batch []model.RawRecord, loc *time.Location, dateFormat string, logger zerolog.Logger) []Record {
	out := make([]Record, 0, len(batch))
	for _, raw := range batch {
		rec := Record{
			ID:          raw.ReferenceNo,
			GroupID:     raw.AgentGroupID,
			GroupLabel:  raw.AgentGroup,
			StatusID:    raw.BaseEntityStatusID,
			StatusLabel: raw.BaseEntityStatus,
			TypeID:      raw.TaskTypeID,
			TypeLabel:   stripLabel(raw.TaskType, "u_Opgavetype"),
			AreaID:      raw.TaskAreaID,
			AreaLabel:   stripLabel(raw.TaskArea, "u_Omrder"),
			ReasonID:    raw.RejectionReasonID,
			ReasonLabel: stripLabel(raw.RejectionReason, "u_Afvisningsrsag"),
			CreatedDate: toLocalDate(raw.CreatedDate, loc, dateFormat, logger, "CreatedDate"),
			ClosedDate:  toLocalDate(raw.CloseDateTime, loc, dateFormat, logger, "CloseDateTime"),
			StartDate:   toLocalDate(raw.StartDate, loc, dateFormat, logger, "u_Opstart"),
			EndDate:     toLocalDate(raw.EndDate, loc, dateFormat, logger, "u_Afslutning"),
			Priority:    raw.Priority,
			Agent:       raw.BaseAgent,
			User:        raw.BaseEndUser,
			Title:       raw.BaseHeader,
		}
		if t, ok := parseTimestamp(raw.UpdatedDate); ok {
			rec.UpdatedAt = &t
		}
		out = append(out, rec)
	}
	return out
}

func stripLabel(v *string, field string) *string {
	if v == nil {
		return nil
	}
	s := strings.ReplaceAll(*v, "Ticket."+field+".", "")
	s = strings.ReplaceAll(s, labelSuffix, "")
	return &s
}

func toLocalDate(v *string, loc *time.Location, dateFormat string, logger zerolog.Logger, field string) *string {
	if v == nil {
		return nil
	}
	t, ok := parseTimestamp(v)
	if !ok {
		logger.Debug().Str("field", field).Str("value", *v).Msg("unparseable timestamp, storing null")
		return nil
	}
	s := t.In(loc).Format(dateFormat)
	return &s
}

func parseTimestamp(v *string) (time.Time, bool) {
	if v == nil {
		return time.Time{}, false
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
