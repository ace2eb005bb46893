package memory

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/ledgerline/finsight/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses; pgxmock satisfies it in
// tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool; used by tests.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS corrections (
	seq              BIGSERIAL PRIMARY KEY,
	id               TEXT NOT NULL UNIQUE,
	ts               TIMESTAMPTZ NOT NULL,
	document_sources JSONB NOT NULL,
	document_types   JSONB NOT NULL,
	original         JSONB NOT NULL,
	validated        JSONB NOT NULL,
	diffs            JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS qa_corrections (
	seq                  BIGSERIAL PRIMARY KEY,
	id                   TEXT NOT NULL UNIQUE,
	ts                   TIMESTAMPTZ NOT NULL,
	question             TEXT NOT NULL,
	original_answer      TEXT NOT NULL,
	original_confidence  DOUBLE PRECISION NOT NULL,
	corrected_answer     TEXT NOT NULL,
	corrected_confidence DOUBLE PRECISION NOT NULL,
	sources              JSONB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_corrections_ts ON corrections(ts);
CREATE INDEX IF NOT EXISTS idx_qa_corrections_ts ON qa_corrections(ts);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) AppendCorrection(ctx context.Context, rec model.CorrectionRecord) error {
	sources, types, original, validated, diffs, err := marshalCorrection(rec)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO corrections (id, ts, document_sources, document_types, original, validated, diffs)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID, rec.Timestamp.UTC(), sources, types, original, validated, diffs,
	)
	return eris.Wrap(err, "postgres: append correction")
}

func (s *PostgresStore) AppendQACorrection(ctx context.Context, rec model.QACorrectionRecord) error {
	sources, err := json.Marshal(rec.Sources)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal qa sources")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO qa_corrections (id, ts, question, original_answer, original_confidence, corrected_answer, corrected_confidence, sources)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.ID, rec.Timestamp.UTC(), rec.Question,
		rec.OriginalAnswer, rec.OriginalConfidence,
		rec.CorrectedAnswer, rec.CorrectedConfidence, string(sources),
	)
	return eris.Wrap(err, "postgres: append qa correction")
}

func (s *PostgresStore) LoadCorrections(ctx context.Context) ([]model.CorrectionRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, ts, document_sources, document_types, original, validated, diffs
		 FROM corrections ORDER BY seq ASC`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load corrections")
	}
	defer rows.Close()

	var records []model.CorrectionRecord
	for rows.Next() {
		var (
			rec                                        model.CorrectionRecord
			ts                                         time.Time
			sources, types, original, validated, diffs string
		)
		if err := rows.Scan(&rec.ID, &ts, &sources, &types, &original, &validated, &diffs); err != nil {
			return nil, eris.Wrap(err, "postgres: scan correction")
		}
		rec.Timestamp = ts
		if err := unmarshalCorrection(&rec, sources, types, original, validated, diffs); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, eris.Wrap(rows.Err(), "postgres: iterate corrections")
}

func (s *PostgresStore) LoadQACorrections(ctx context.Context) ([]model.QACorrectionRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, ts, question, original_answer, original_confidence, corrected_answer, corrected_confidence, sources
		 FROM qa_corrections ORDER BY seq ASC`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load qa corrections")
	}
	defer rows.Close()

	var records []model.QACorrectionRecord
	for rows.Next() {
		var (
			rec     model.QACorrectionRecord
			ts      time.Time
			sources string
		)
		if err := rows.Scan(&rec.ID, &ts, &rec.Question,
			&rec.OriginalAnswer, &rec.OriginalConfidence,
			&rec.CorrectedAnswer, &rec.CorrectedConfidence, &sources); err != nil {
			return nil, eris.Wrap(err, "postgres: scan qa correction")
		}
		rec.Timestamp = ts
		if err := json.Unmarshal([]byte(sources), &rec.Sources); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal qa sources")
		}
		records = append(records, rec)
	}
	return records, eris.Wrap(rows.Err(), "postgres: iterate qa corrections")
}

// Reset wipes both collections in one transaction.
func (s *PostgresStore) Reset(ctx context.Context) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin reset")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, stmt := range []string{`DELETE FROM corrections`, `DELETE FROM qa_corrections`} {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return eris.Wrapf(err, "postgres: reset %s", stmt)
		}
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit reset")
}
