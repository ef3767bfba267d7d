package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/hjoerring-data/nsp-ticket-sync/internal/etl"
	"github.com/hjoerring-data/nsp-ticket-sync/internal/model"
)

func newTestWarehouse(t *testing.T) *WarehouseService {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	// In-memory sqlite lives per connection; pin the pool to one.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&model.AgentGroup{},
		&model.TaskType{},
		&model.TaskArea{},
		&model.TaskStatus{},
		&model.ReasonForRejection{},
		&model.TicketFact{},
	))
	return NewWarehouseService(db, zerolog.Nop(), "2025-09-01T00:00:00Z")
}

func ts(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	t = t.UTC()
	return &t
}

// dateOnly is a date relative to today, at midnight UTC. The recompute runs
// against the database's CURRENT_DATE, so its fixtures have to move with it.
func dateOnly(days int) *time.Time {
	now := time.Now().UTC()
	d := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, days)
	return &d
}

func TestLastUpdatedEmptyTableReturnsFallback(t *testing.T) {
	w := newTestWarehouse(t)

	got, err := w.LastUpdated(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2025-09-01T00:00:00Z", got)
}

func TestLastUpdatedAllNullReturnsFallback(t *testing.T) {
	w := newTestWarehouse(t)
	require.NoError(t, w.upsertFacts(w.db, []model.TicketFact{{ID: 1}, {ID: 2}}))

	got, err := w.LastUpdated(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2025-09-01T00:00:00Z", got)
}

func TestLastUpdatedReturnsMaxAsUTCWithZ(t *testing.T) {
	w := newTestWarehouse(t)
	facts := []model.TicketFact{
		{ID: 1, LastUpdated: ts("2025-09-10T10:00:00Z")},
		{ID: 2, LastUpdated: ts("2025-09-12T06:30:00Z")},
		{ID: 3, LastUpdated: ts("2025-09-11T23:59:59Z")},
	}
	require.NoError(t, w.upsertFacts(w.db, facts))

	got, err := w.LastUpdated(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2025-09-12T06:30:00Z", got)
}

func TestUpsertFactsIsIdempotent(t *testing.T) {
	w := newTestWarehouse(t)
	open := 3
	facts := []model.TicketFact{{
		ID:          1001,
		OpenDays:    &open,
		CreatedDate: ts("2025-01-01T00:00:00Z"),
		ClosedDate:  ts("2025-01-03T00:00:00Z"),
		LastUpdated: ts("2025-09-12T06:30:00Z"),
	}}

	require.NoError(t, w.upsertFacts(w.db, facts))
	require.NoError(t, w.upsertFacts(w.db, facts))

	var count int64
	require.NoError(t, w.db.Model(&model.TicketFact{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	var got model.TicketFact
	require.NoError(t, w.db.First(&got, 1001).Error)
	require.NotNil(t, got.OpenDays)
	assert.Equal(t, 3, *got.OpenDays)
}

func TestUpsertFactsOverwritesAllNonIDColumns(t *testing.T) {
	w := newTestWarehouse(t)
	groupID := int64(17)
	require.NoError(t, w.upsertFacts(w.db, []model.TicketFact{{
		ID:           1001,
		AgentGroupID: &groupID,
		Priority:     strp("High"),
	}}))

	// Second cycle: the group went away (0 sentinel upstream) and the
	// priority changed. The row must be rewritten, not duplicated.
	require.NoError(t, w.upsertFacts(w.db, []model.TicketFact{{
		ID:       1001,
		Priority: strp("Low"),
	}}))

	var got model.TicketFact
	require.NoError(t, w.db.First(&got, 1001).Error)
	assert.Nil(t, got.AgentGroupID)
	require.NotNil(t, got.Priority)
	assert.Equal(t, "Low", *got.Priority)

	var count int64
	require.NoError(t, w.db.Model(&model.TicketFact{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestUpsertDimensionsInsertsAndRelabels(t *testing.T) {
	w := newTestWarehouse(t)
	dims := etl.Dimensions{
		Statuses: []model.DimensionRow{{ID: 3, Label: "Tildelt"}},
		Groups:   []model.DimensionRow{{ID: 17, Label: "Digitalisering og Data"}},
	}
	require.NoError(t, w.upsertDimensions(w.db, dims))

	relabeled := etl.Dimensions{
		Statuses: []model.DimensionRow{{ID: 3, Label: "Assigned"}},
	}
	require.NoError(t, w.upsertDimensions(w.db, relabeled))

	var status model.TaskStatus
	require.NoError(t, w.db.First(&status, 3).Error)
	assert.Equal(t, "Assigned", status.Status)

	var group model.AgentGroup
	require.NoError(t, w.db.First(&group, 17).Error)
	assert.Equal(t, "Digitalisering og Data", group.Group)

	var count int64
	require.NoError(t, w.db.Model(&model.TaskStatus{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func assertDynamic(t *testing.T, w *WarehouseService, id int64, daysTillStart, offsetDuration int) {
	t.Helper()
	var got model.TicketFact
	require.NoError(t, w.db.First(&got, id).Error)
	assert.Equal(t, daysTillStart, got.DaysTillStart, "days_till_start for ticket %d", id)
	assert.Equal(t, offsetDuration, got.OffsetDuration, "offset_duration for ticket %d", id)
}

func TestRefreshOpenTicketsRecomputesDynamicFields(t *testing.T) {
	w := newTestWarehouse(t)
	eleven := 11
	four := 4
	// Stale values on every row; only the recompute can land the asserts.
	require.NoError(t, w.upsertFacts(w.db, []model.TicketFact{
		// Not started yet: counts down to start, keeps the full duration.
		{ID: 1, StartDate: dateOnly(5), EndDate: dateOnly(15), Duration: &eleven, DaysTillStart: 99, OffsetDuration: 99},
		// Running, ends today: one day left.
		{ID: 2, StartDate: dateOnly(-3), EndDate: dateOnly(0), Duration: &four, DaysTillStart: 99, OffsetDuration: 99},
		// Ended in the past.
		{ID: 3, StartDate: dateOnly(-10), EndDate: dateOnly(-2), DaysTillStart: 99, OffsetDuration: 99},
		// No dates at all.
		{ID: 4, DaysTillStart: 99, OffsetDuration: 99},
	}))

	require.NoError(t, w.RefreshOpenTickets(context.Background()))

	assertDynamic(t, w, 1, 5, 11)
	assertDynamic(t, w, 2, 0, 1)
	assertDynamic(t, w, 3, 0, 0)
	assertDynamic(t, w, 4, 0, 0)
}

func TestRefreshOpenTicketsFutureStartWithoutDuration(t *testing.T) {
	w := newTestWarehouse(t)
	// End before start collapses the stored duration to nil upstream. The
	// future-start branch must still write 0, never NULL.
	require.NoError(t, w.upsertFacts(w.db, []model.TicketFact{
		{ID: 1, StartDate: dateOnly(6), EndDate: dateOnly(5), DaysTillStart: 99, OffsetDuration: 99},
	}))

	require.NoError(t, w.RefreshOpenTickets(context.Background()))

	assertDynamic(t, w, 1, 6, 0)
}

func TestRefreshOpenTicketsLeavesClosedTicketsAlone(t *testing.T) {
	w := newTestWarehouse(t)
	require.NoError(t, w.upsertFacts(w.db, []model.TicketFact{
		{ID: 1, ClosedDate: dateOnly(-1), StartDate: dateOnly(5), EndDate: dateOnly(15), DaysTillStart: 42, OffsetDuration: 7},
	}))

	require.NoError(t, w.RefreshOpenTickets(context.Background()))

	assertDynamic(t, w, 1, 42, 7)
}

func TestWriteRunsTheRecompute(t *testing.T) {
	w := newTestWarehouse(t)
	eleven := 11
	facts := []model.TicketFact{
		{ID: 1, StartDate: dateOnly(5), EndDate: dateOnly(15), Duration: &eleven, DaysTillStart: 99, OffsetDuration: 99, LastUpdated: ts("2025-09-12T06:30:00Z")},
	}

	require.NoError(t, w.Write(context.Background(), etl.Dimensions{}, facts))

	assertDynamic(t, w, 1, 5, 11)
}

func TestWriteEmptyBatchesIsANoOpForTables(t *testing.T) {
	w := newTestWarehouse(t)
	require.NoError(t, w.upsertDimensions(w.db, etl.Dimensions{}))
	require.NoError(t, w.upsertFacts(w.db, nil))

	var count int64
	require.NoError(t, w.db.Model(&model.TicketFact{}).Count(&count).Error)
	assert.Zero(t, count)
}

func strp(s string) *string { return &s }
