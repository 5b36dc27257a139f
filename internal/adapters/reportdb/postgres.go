// Package reportdb persists finished test reports to Postgres.
package reportdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/ziademad02153/local-automation-Microwave-app/internal/domain"
	"github.com/ziademad02153/local-automation-Microwave-app/internal/ports"
)

// Config holds the connection settings for the report store.
type Config struct {
	ConnString string `yaml:"conn_string"`
	Table      string `yaml:"table"`
}

// PostgresSink writes one row per finished session. Channel metrics,
// sector plans and warnings are stored as JSONB so the schema stays
// stable while the analysis evolves.
type PostgresSink struct {
	db    *sql.DB
	table string
}

var _ ports.ReportSink = (*PostgresSink)(nil)

// Open dials the database and verifies the connection.
func Open(ctx context.Context, cfg Config) (*PostgresSink, error) {
	db, err := sql.Open("postgres", cfg.ConnString)
	if err != nil {
		return nil, fmt.Errorf("open report db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping report db: %w", err)
	}
	return New(db, cfg.Table), nil
}

// New wraps an existing connection pool. Used by tests.
func New(db *sql.DB, table string) *PostgresSink {
	if table == "" {
		table = "test_reports"
	}
	return &PostgresSink{db: db, table: table}
}

func (s *PostgresSink) Name() string { return "postgres" }

func (s *PostgresSink) WriteReport(ctx context.Context, r *domain.Report) error {
	results, err := json.Marshal(r.ChannelResults)
	if err != nil {
		return fmt.Errorf("marshal channel results: %w", err)
	}
	var plan []byte
	if r.Plan != nil {
		plan, err = json.Marshal(r.Plan)
		if err != nil {
			return fmt.Errorf("marshal sector plan: %w", err)
		}
	}
	warnings, err := json.Marshal(r.Warnings)
	if err != nil {
		return fmt.Errorf("marshal warnings: %w", err)
	}

	query := fmt.Sprintf(`INSERT INTO %s
 (session_id, mode, weight_grams, started_at, finished_at, run_time_ms, final_state, verdict, door_open_count, channel_results, sector_plan, warnings)
 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
 ON CONFLICT (session_id) DO NOTHING`, s.table)

	_, err = s.db.ExecContext(ctx, query,
		r.SessionID,
		r.Mode,
		r.WeightGrams,
		r.StartedAt,
		r.FinishedAt,
		r.RunTime.Milliseconds(),
		r.FinalState,
		string(r.Verdict),
		r.DoorOpenCount,
		results,
		nullableJSON(plan),
		warnings,
	)
	if err != nil {
		return fmt.Errorf("insert report %s: %w", r.SessionID, err)
	}
	return nil
}

func (s *PostgresSink) Close() error { return s.db.Close() }

func nullableJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
