package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hjoerring-data/nsp-ticket-sync/internal/etl"
	"github.com/hjoerring-data/nsp-ticket-sync/internal/model"
)

const factBatchSize = 200

// refreshOpenTicketsSQL recomputes the two time-relative fields for every
// ticket still open, against the database server's current date. Running it
// set-based keeps rows honest that were closed out-of-band or simply aged
// since the last cycle without being refetched. The day arithmetic is the
// only dialect-specific part: postgres subtracts date columns directly,
// sqlite goes through julianday. A ticket whose end precedes its start
// carries duration NULL (0 sentinel), so the future-start branch coalesces
// to keep offset_duration non-null.
func refreshOpenTicketsSQL(dialect string) string {
	asDate := func(col string) string { return col }
	daysUntil := func(col string) string { return fmt.Sprintf("(%s - CURRENT_DATE)", col) }
	if dialect == "sqlite" {
		asDate = func(col string) string { return fmt.Sprintf("date(%s)", col) }
		daysUntil = func(col string) string {
			return fmt.Sprintf("CAST(julianday(date(%s)) - julianday(CURRENT_DATE) AS INTEGER)", col)
		}
	}
	return fmt.Sprintf(`
UPDATE tickets SET
    days_till_start = CASE
        WHEN start_date IS NULL THEN 0
        WHEN %[1]s <= CURRENT_DATE THEN 0
        ELSE %[2]s
    END,
    offset_duration = CASE
        WHEN end_date IS NULL THEN 0
        WHEN %[3]s < CURRENT_DATE THEN 0
        WHEN start_date IS NULL THEN 0
        WHEN %[1]s > CURRENT_DATE THEN COALESCE(duration, 0)
        ELSE %[4]s + 1
    END
WHERE closed_date IS NULL`,
		asDate("start_date"), daysUntil("start_date"),
		asDate("end_date"), daysUntil("end_date"))
}

// WarehouseService owns every touch of the warehouse: the watermark read,
// the per-cycle transactional upsert, and the open-ticket recompute.
type WarehouseService struct {
	db       *gorm.DB
	logger   zerolog.Logger
	fallback string
}

func NewWarehouseService(db *gorm.DB, logger zerolog.Logger, fallbackWatermark string) *WarehouseService {
	return &WarehouseService{db: db, logger: logger, fallback: fallbackWatermark}
}

// LastUpdated returns the maximum persisted last_updated value, normalized to
// UTC and rendered ISO-8601 with a trailing Z. An empty fact table yields the
// configured fallback constant verbatim.
func (s *WarehouseService) LastUpdated(ctx context.Context) (string, error) {
	// Reading the typed column against a scalar MAX keeps driver-native
	// timestamp decoding; a bare MAX() projection loses the declared type.
	var stamps []time.Time
	err := s.db.WithContext(ctx).Model(&model.TicketFact{}).
		Where("last_updated = (SELECT MAX(last_updated) FROM tickets)").
		Limit(1).
		Pluck("last_updated", &stamps).Error
	if err != nil {
		return "", fmt.Errorf("read watermark: %w", err)
	}
	if len(stamps) == 0 {
		s.logger.Info().Str("fallback", s.fallback).Msg("no last_updated in warehouse, using fallback watermark")
		return s.fallback, nil
	}
	return formatWatermark(stamps[0]), nil
}

func formatWatermark(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// Write applies one cycle's rows in a single transaction: five dimension
// upserts, the fact upsert, then the open-ticket recompute. Any error rolls
// the whole cycle back.
func (s *WarehouseService) Write(ctx context.Context, dims etl.Dimensions, facts []model.TicketFact) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.upsertDimensions(tx, dims); err != nil {
			return err
		}
		if err := s.upsertFacts(tx, facts); err != nil {
			return err
		}
		return s.refreshOpenTickets(tx)
	})
	if err != nil {
		return fmt.Errorf("warehouse write: %w", err)
	}
	s.logger.Info().
		Int("tickets", len(facts)).
		Int("dimensions", dims.Total()).
		Msg("warehouse upsert committed")
	return nil
}

// RefreshOpenTickets runs the recompute on its own. Cycles that fetched no
// new data still call this so the passage of time is reflected.
func (s *WarehouseService) RefreshOpenTickets(ctx context.Context) error {
	if err := s.refreshOpenTickets(s.db.WithContext(ctx)); err != nil {
		return fmt.Errorf("warehouse write: %w", err)
	}
	return nil
}

func (s *WarehouseService) refreshOpenTickets(tx *gorm.DB) error {
	res := tx.Exec(refreshOpenTicketsSQL(tx.Dialector.Name()))
	if res.Error != nil {
		return fmt.Errorf("refresh open tickets: %w", res.Error)
	}
	s.logger.Debug().Int64("rows", res.RowsAffected).Msg("open tickets refreshed")
	return nil
}

func (s *WarehouseService) upsertDimensions(tx *gorm.DB, dims etl.Dimensions) error {
	if err := upsertDimension(tx, "group", toGroups(dims.Groups)); err != nil {
		return err
	}
	if err := upsertDimension(tx, "type", toTypes(dims.Types)); err != nil {
		return err
	}
	if err := upsertDimension(tx, "area", toAreas(dims.Areas)); err != nil {
		return err
	}
	if err := upsertDimension(tx, "status", toStatuses(dims.Statuses)); err != nil {
		return err
	}
	return upsertDimension(tx, "reason", toReasons(dims.Reasons))
}

// upsertDimension inserts new ids and rewrites the label column for existing
// ones. Dimension rows are never deleted.
func upsertDimension[T any](tx *gorm.DB, labelColumn string, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{labelColumn}),
	}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("upsert dimension %s: %w", labelColumn, err)
	}
	return nil
}

func (s *WarehouseService) upsertFacts(tx *gorm.DB, facts []model.TicketFact) error {
	if len(facts) == 0 {
		return nil
	}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).CreateInBatches(&facts, factBatchSize).Error
	if err != nil {
		return fmt.Errorf("upsert tickets: %w", err)
	}
	return nil
}

func toGroups(rows []model.DimensionRow) []model.AgentGroup {
	out := make([]model.AgentGroup, len(rows))
	for i, r := range rows {
		out[i] = model.AgentGroup{ID: r.ID, Group: r.Label}
	}
	return out
}

func toTypes(rows []model.DimensionRow) []model.TaskType {
	out := make([]model.TaskType, len(rows))
	for i, r := range rows {
		out[i] = model.TaskType{ID: r.ID, Type: r.Label}
	}
	return out
}

func toAreas(rows []model.DimensionRow) []model.TaskArea {
	out := make([]model.TaskArea, len(rows))
	for i, r := range rows {
		out[i] = model.TaskArea{ID: r.ID, Area: r.Label}
	}
	return out
}

func toStatuses(rows []model.DimensionRow) []model.TaskStatus {
	out := make([]model.TaskStatus, len(rows))
	for i, r := range rows {
		out[i] = model.TaskStatus{ID: r.ID, Status: r.Label}
	}
	return out
}

func toReasons(rows []model.DimensionRow) []model.ReasonForRejection {
	out := make([]model.ReasonForRejection, len(rows))
	for i, r := range rows {
		out[i] = model.ReasonForRejection{ID: r.ID, Reason: r.Label}
	}
	return out
}
