package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hjoerring-data/nsp-ticket-sync/internal/etl"
	"github.com/hjoerring-data/nsp-ticket-sync/internal/model"
	"github.com/hjoerring-data/nsp-ticket-sync/internal/nsp"
)

// Error kinds for one failed cycle. Fetch and response-format failures are
// everyday noise, transform failures mean schema drift on the identifier,
// persistence failures mean the warehouse is unhappy. All of them only ever
// cost the one cycle.
const (
	KindFetch          = "fetch"
	KindResponseFormat = "response-format"
	KindTransform      = "transform"
	KindPersistence    = "persistence"
	KindUnexpected     = "unexpected"
)

// CycleError tags a cycle failure with the stage it came from.
type CycleError struct {
	Kind string
	Err  error
}

func (e *CycleError) Error() string { return fmt.Sprintf("%s: %v", e.Kind, e.Err) }

func (e *CycleError) Unwrap() error { return e.Err }

// Classify returns the error kind of a failed cycle.
func Classify(err error) string {
	var cycleErr *CycleError
	if errors.As(err, &cycleErr) {
		return cycleErr.Kind
	}
	return KindUnexpected
}

// Fetcher pulls raw tickets updated since the watermark.
type Fetcher interface {
	FetchUpdatedSince(ctx context.Context, watermark string) ([]model.RawRecord, error)
}

// Warehouse is the persistence boundary of one cycle.
type Warehouse interface {
	LastUpdated(ctx context.Context) (string, error)
	Write(ctx context.Context, dims etl.Dimensions, facts []model.TicketFact) error
	RefreshOpenTickets(ctx context.Context) error
}

// EventProducer publishes best-effort cycle events.
type EventProducer interface {
	ProduceCycleEvent(ctx context.Context, event string, payload map[string]interface{})
}

// CycleStatus is a snapshot of the last sync cycle, served on /status.
type CycleStatus struct {
	Cycles          int       `json:"cycles"`
	LastRun         time.Time `json:"last_run"`
	LastSuccess     time.Time `json:"last_success"`
	LastError       string    `json:"last_error,omitempty"`
	LastWatermark   string    `json:"last_watermark"`
	TicketsUpserted int       `json:"tickets_upserted"`
}

// SyncService runs one full extract-transform-load cycle at a time:
// watermark, fetch, format, dimension extraction plus fact transformation,
// transactional upsert. The write phase never starts before the whole
// read-and-transform phase finished.
type SyncService struct {
	fetcher    Fetcher
	warehouse  Warehouse
	producer   EventProducer
	loc        *time.Location
	dateFormat string
	logger     zerolog.Logger

	mu     sync.Mutex
	status CycleStatus
}

func NewSyncService(fetcher Fetcher, warehouse Warehouse, producer EventProducer, loc *time.Location, dateFormat string, logger zerolog.Logger) *SyncService {
	return &SyncService{
		fetcher:    fetcher,
		warehouse:  warehouse,
		producer:   producer,
		loc:        loc,
		dateFormat: dateFormat,
		logger:     logger,
	}
}

// RunCycle executes one sync cycle. Every failure aborts the cycle before
// (or atomically during) the write, leaving the warehouse untouched; the
// watermark then stays put and the next cycle refetches the same window.
func (s *SyncService) RunCycle(ctx context.Context) error {
	started := time.Now()

	watermark, err := s.warehouse.LastUpdated(ctx)
	if err != nil {
		return s.fail(&CycleError{Kind: KindPersistence, Err: err})
	}

	batch, err := s.fetcher.FetchUpdatedSince(ctx, watermark)
	if err != nil {
		return s.fail(&CycleError{Kind: fetchKind(err), Err: err})
	}

	if len(batch) == 0 {
		s.logger.Info().Str("watermark", watermark).Msg("no new tickets, refreshing open tickets only")
		if err := s.warehouse.RefreshOpenTickets(ctx); err != nil {
			return s.fail(&CycleError{Kind: KindPersistence, Err: err})
		}
		s.succeed(watermark, 0, started)
		return nil
	}

	cleaned := etl.Format(batch, s.loc, s.dateFormat, s.logger)
	dims := etl.ExtractDimensions(cleaned)
	facts, err := etl.TransformFacts(cleaned, s.today(), s.dateFormat)
	if err != nil {
		return s.fail(&CycleError{Kind: KindTransform, Err: err})
	}

	if err := s.warehouse.Write(ctx, dims, facts); err != nil {
		return s.fail(&CycleError{Kind: KindPersistence, Err: err})
	}

	s.succeed(watermark, len(facts), started)
	s.logger.Info().
		Int("tickets", len(facts)).
		Int("dimensions", dims.Total()).
		Dur("elapsed", time.Since(started)).
		Msg("sync cycle completed")
	if s.producer != nil {
		s.producer.ProduceCycleEvent(ctx, "sync.cycle.completed", map[string]interface{}{
			"tickets":     len(facts),
			"dimensions":  dims.Total(),
			"watermark":   watermark,
			"duration_ms": time.Since(started).Milliseconds(),
		})
	}
	return nil
}

func fetchKind(err error) string {
	var decodeErr *nsp.DecodeError
	if errors.As(err, &decodeErr) {
		return KindResponseFormat
	}
	return KindFetch
}

// today is the current date in the warehouse timezone, as a bare date.
func (s *SyncService) today() time.Time {
	now := time.Now().In(s.loc)
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (s *SyncService) Status() CycleStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *SyncService) succeed(watermark string, tickets int, started time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.Cycles++
	s.status.LastRun = started
	s.status.LastSuccess = time.Now()
	s.status.LastError = ""
	s.status.LastWatermark = watermark
	s.status.TicketsUpserted = tickets
}

func (s *SyncService) fail(err *CycleError) error {
	s.mu.Lock()
	s.status.Cycles++
	s.status.LastRun = time.Now()
	s.status.LastError = err.Error()
	s.mu.Unlock()
	if s.producer != nil {
		s.producer.ProduceCycleEvent(context.Background(), "sync.cycle.failed", map[string]interface{}{
			"error": err.Err.Error(),
			"kind":  err.Kind,
		})
	}
	return err
}
