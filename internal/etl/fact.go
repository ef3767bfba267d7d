package etl

import (
	"errors"
	"fmt"
	"time"

	"github.com/hjoerring-data/nsp-ticket-sync/internal/model"
)

// ErrMissingID marks a record that cannot be keyed into the fact table.
// Unlike a bad date or label this is schema drift on the identifier itself,
// so the whole cycle aborts before anything is written.
var ErrMissingID = errors.New("record has no ReferenceNo")

// TransformFacts converts a cleaned batch into fact rows, preserving batch
// order. Derived day counts use midnight-normalized date arithmetic; any
// derivation with a missing operand stays nil. The dynamic fields are
// computed against today, which callers pass as a bare date (midnight UTC).
// Dimension ids and stored day counts equal to 0 become nil: 0 is the
// source system's unset sentinel, not a value.
func TransformFacts(batch []Record, today time.Time, dateFormat string) ([]model.TicketFact, error) {
	today = truncateToDate(today)
	facts := make([]model.TicketFact, 0, len(batch))
	for i, rec := range batch {
		if rec.ID == nil {
			return nil, fmt.Errorf("record %d: %w", i, ErrMissingID)
		}

		created := parseDate(rec.CreatedDate, dateFormat)
		closed := parseDate(rec.ClosedDate, dateFormat)
		start := parseDate(rec.StartDate, dateFormat)
		end := parseDate(rec.EndDate, dateFormat)

		var openDays, duration, queueDays *int
		if created != nil && closed != nil {
			v := daysBetween(*created, *closed) + 1
			openDays = &v
		}
		if start != nil && end != nil {
			v := daysBetween(*start, *end) + 1
			duration = &v
		}
		if created != nil && start != nil {
			v := daysBetween(*created, *start)
			queueDays = &v
		}

		daysTillStart := 0
		if start != nil && start.After(today) {
			daysTillStart = daysBetween(today, *start)
		}

		offsetDuration := 0
		switch {
		case end == nil || end.Before(today):
		case start == nil:
		case start.After(today):
			// start and end are both set here, so duration is too.
			offsetDuration = *duration
		default:
			offsetDuration = daysBetween(today, *end) + 1
		}

		facts = append(facts, model.TicketFact{
			ID:                   *rec.ID,
			AgentGroupID:         nilIfZero64(rec.GroupID),
			TaskStatusID:         nilIfZero64(rec.StatusID),
			CreatedDate:          created,
			ClosedDate:           closed,
			OpenDays:             nilIfZero(openDays),
			QueueDays:            nilIfZero(queueDays),
			Priority:             rec.Priority,
			Agent:                rec.Agent,
			User:                 rec.User,
			TicketTitle:          rec.Title,
			StartDate:            start,
			EndDate:              end,
			Duration:             nilIfZero(duration),
			TaskTypeID:           nilIfZero64(rec.TypeID),
			TaskAreaID:           nilIfZero64(rec.AreaID),
			ReasonForRejectionID: nilIfZero64(rec.ReasonID),
			DaysTillStart:        daysTillStart,
			OffsetDuration:       offsetDuration,
			LastUpdated:          rec.UpdatedAt,
		})
	}
	return facts, nil
}

func parseDate(v *string, layout string) *time.Time {
	if v == nil || *v == "" {
		return nil
	}
	t, err := time.ParseInLocation(layout, *v, time.UTC)
	if err != nil {
		return nil
	}
	t = truncateToDate(t)
	return &t
}

// daysBetween counts whole calendar days from a to b. Both operands are
// reconstructed at UTC midnight first, so a DST transition in the local zone
// can never skew a delta by an hour.
func daysBetween(a, b time.Time) int {
	a = truncateToDate(a)
	b = truncateToDate(b)
	return int(b.Sub(a) / (24 * time.Hour))
}

func truncateToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func nilIfZero(v *int) *int {
	if v == nil || *v == 0 {
		return nil
	}
	return v
}

func nilIfZero64(v *int64) *int64 {
	if v == nil || *v == 0 {
		return nil
	}
	return v
}
