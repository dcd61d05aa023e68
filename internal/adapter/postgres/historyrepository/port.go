package historyrepository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"gitlab.com/fbworkers.net/internal/core/ports/primary"
	"gitlab.com/fbworkers.net/internal/core/ports/secondary"
	"gitlab.com/fbworkers.net/internal/domain"
	querybuilder "gitlab.com/fbworkers.net/internal/utils"
)

var _ secondary.DiscoveryHistoryRepository = &historyRepo{}

const defaultSchema = "public"

type historyRepo struct {
	db     *sqlx.DB
	logger primary.Logger
	// schema is already quoted for use in SQL text.
	schema string
}

func New(db *sqlx.DB, logger primary.Logger, schema string) *historyRepo {
	if schema == "" {
		schema = defaultSchema
	}
	return &historyRepo{
		db:     db,
		logger: logger,
		schema: pq.QuoteIdentifier(schema),
	}
}

// EnsureSchema creates the history tables when they do not exist yet.
func (h *historyRepo) EnsureSchema(ctx context.Context) error {
	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.discovery_cycles (
			cycle_id     UUID PRIMARY KEY,
			source       TEXT NOT NULL,
			worker_count INTEGER NOT NULL,
			failed       BOOLEAN NOT NULL DEFAULT FALSE,
			error        TEXT,
			duration_ms  BIGINT NOT NULL,
			observed_at  TIMESTAMPTZ NOT NULL
		)`, h.schema),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.discovery_observations (
			cycle_id    UUID NOT NULL REFERENCES %s.discovery_cycles (cycle_id) ON DELETE CASCADE,
			host_name   TEXT NOT NULL,
			source      TEXT NOT NULL,
			ip_address  TEXT,
			source_path TEXT,
			cpus        TEXT,
			memory_mib  TEXT,
			mode        TEXT,
			is_local    BOOLEAN NOT NULL DEFAULT FALSE,
			observed_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (cycle_id, host_name)
		)`, h.schema, h.schema),
	}

	for _, stmt := range statements {
		if _, err := h.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create history schema: %w", err)
		}
	}
	return nil
}

// RecordCycle stores the cycle and one observation per worker in a single
// transaction.
func (h *historyRepo) RecordCycle(ctx context.Context, cycle *domain.DiscoveryCycle) error {
	cycleTbl := domain.GetCycleTable()
	var errText *string
	if cycle.Err != nil {
		msg := cycle.Err.Error()
		errText = &msg
	}

	cycleQuery, cycleArgs, err := querybuilder.NewQueryBuilder(h.schema).
		Insert(
			cycleTbl.ID, cycleTbl.Source, cycleTbl.WorkerCount,
			cycleTbl.Failed, cycleTbl.Error, cycleTbl.DurationMs, cycleTbl.ObservedAt,
		).
		Into(cycleTbl.TableName()).
		Values(
			cycle.ID, string(cycle.Source), cycle.Workers.Len(),
			cycle.Failed(), errText, cycle.Duration.Milliseconds(), cycle.StartedAt,
		).
		OnConflictDoNothing(cycleTbl.ID).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build cycle insert: %w", err)
	}

	tx, err := h.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin history transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, sqlx.Rebind(sqlx.DOLLAR, cycleQuery), cycleArgs...); err != nil {
		h.logger.Error("Failed to record discovery cycle", "cycleId", cycle.ID, "error", err)
		return fmt.Errorf("failed to record discovery cycle: %w", err)
	}

	if records := cycle.Workers.Records(); len(records) > 0 {
		obsTbl := domain.GetObservationTable()
		qb := querybuilder.NewQueryBuilder(h.schema).
			Insert(
				obsTbl.CycleID, obsTbl.HostName, obsTbl.Source, obsTbl.IPAddress,
				obsTbl.SourcePath, obsTbl.CPUs, obsTbl.MemoryMiB, obsTbl.Mode,
				obsTbl.IsLocal, obsTbl.ObservedAt,
			).
			Into(obsTbl.TableName())
		for _, w := range records {
			qb.Values(
				cycle.ID, w.HostName, string(cycle.Source), nullable(w.IPv4Address),
				nullable(w.SourcePath), w.CPUs, w.Memory, w.Mode,
				w.IsLocal, cycle.StartedAt,
			)
		}

		obsQuery, obsArgs, err := qb.Build()
		if err != nil {
			return fmt.Errorf("failed to build observation insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, sqlx.Rebind(sqlx.DOLLAR, obsQuery), obsArgs...); err != nil {
			h.logger.Error("Failed to record worker observations", "cycleId", cycle.ID, "error", err)
			return fmt.Errorf("failed to record worker observations: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit history transaction: %w", err)
	}
	return nil
}

func (h *historyRepo) GetRecentCycles(ctx context.Context, filter domain.CycleFilter, limit int) ([]*domain.CycleSummary, error) {
	cycleTbl := domain.GetCycleTable()
	qb := querybuilder.NewQueryBuilder(h.schema).
		Select(cycleTbl.ID, cycleTbl.Source, cycleTbl.WorkerCount, cycleTbl.Failed, cycleTbl.ObservedAt).
		From(cycleTbl.TableName())
	if filter.Source != "" {
		qb.Where(cycleTbl.Source+" = ?", string(filter.Source))
	}
	if filter.FailedOnly {
		qb.And(cycleTbl.Failed+" = ?", true)
	}
	query, args, err := qb.
		OrderBy(cycleTbl.ObservedAt, false).
		Limit(limit).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build history query: %w", err)
	}

	summaries := make([]*domain.CycleSummary, 0)
	if err := h.db.SelectContext(ctx, &summaries, sqlx.Rebind(sqlx.DOLLAR, query), args...); err != nil {
		h.logger.Error("Failed to get discovery history", "error", err)
		return nil, fmt.Errorf("failed to get discovery history: %w", err)
	}
	return summaries, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
