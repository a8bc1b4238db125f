// Package postgres fetches record snapshots from a PostgreSQL mirror of the
// record store. Records land as jsonb payloads keyed by kind:
//
//	CREATE TABLE case_records (
//	    id      BIGSERIAL PRIMARY KEY,
//	    kind    TEXT NOT NULL,
//	    payload JSONB NOT NULL
//	);
//	CREATE INDEX case_records_kind_idx ON case_records (kind);
//
// The schema is deliberately loose: upstream enforces none, so neither do we.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BlueCodeSystems/ecap-plus-pmp-sub000/internal/dashboard/models"
	"github.com/BlueCodeSystems/ecap-plus-pmp-sub000/internal/records"
)

const (
	kindHousehold    = "household"
	kindPerson       = "person"
	kindServiceEvent = "service_event"
	kindCasePlan     = "case_plan"
	kindReferral     = "referral"
	kindFlag         = "flag"
)

// Store reads snapshots from PostgreSQL.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New constructs a PostgreSQL-backed record store.
func New(pool *pgxpool.Pool, logger *slog.Logger) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pgx pool is required")
	}
	return &Store{pool: pool, logger: logger}, nil
}

// FetchSnapshot loads all six record arrays in one pass.
func (s *Store) FetchSnapshot(ctx context.Context) (*models.Snapshot, error) {
	snap := &models.Snapshot{FetchedAt: time.Now()}

	targets := []struct {
		kind string
		dst  *[]records.Record
	}{
		{kindHousehold, &snap.Households},
		{kindPerson, &snap.Persons},
		{kindServiceEvent, &snap.ServiceEvents},
		{kindCasePlan, &snap.CasePlans},
		{kindReferral, &snap.Referrals},
		{kindFlag, &snap.Flags},
	}

	for _, target := range targets {
		recs, err := s.fetchKind(ctx, target.kind)
		if err != nil {
			return nil, fmt.Errorf("fetch %s records: %w", target.kind, err)
		}
		*target.dst = recs
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "snapshot fetched",
			"households", len(snap.Households),
			"persons", len(snap.Persons),
			"service_events", len(snap.ServiceEvents),
			"case_plans", len(snap.CasePlans),
			"referrals", len(snap.Referrals),
			"flags", len(snap.Flags),
		)
	}
	return snap, nil
}

func (s *Store) fetchKind(ctx context.Context, kind string) ([]records.Record, error) {
	rows, err := s.pool.Query(ctx, `SELECT payload FROM case_records WHERE kind = $1 ORDER BY id`, kind)
	if err != nil {
		return nil, fmt.Errorf("query case_records: %w", err)
	}
	defer rows.Close()

	var out []records.Record
	for rows.Next() {
		var payload map[string]any
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan payload: %w", err)
		}
		out = append(out, records.Record(payload))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate case_records: %w", err)
	}
	return out, nil
}
