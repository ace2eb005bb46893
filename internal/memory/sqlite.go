package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/ledgerline/finsight/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS corrections (
	seq              INTEGER PRIMARY KEY AUTOINCREMENT,
	id               TEXT NOT NULL UNIQUE,
	ts               DATETIME NOT NULL,
	document_sources TEXT NOT NULL,
	document_types   TEXT NOT NULL,
	original         TEXT NOT NULL,
	validated        TEXT NOT NULL,
	diffs            TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS qa_corrections (
	seq                  INTEGER PRIMARY KEY AUTOINCREMENT,
	id                   TEXT NOT NULL UNIQUE,
	ts                   DATETIME NOT NULL,
	question             TEXT NOT NULL,
	original_answer      TEXT NOT NULL,
	original_confidence  REAL NOT NULL,
	corrected_answer     TEXT NOT NULL,
	corrected_confidence REAL NOT NULL,
	sources              TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_corrections_ts ON corrections(ts);
CREATE INDEX IF NOT EXISTS idx_qa_corrections_ts ON qa_corrections(ts);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) AppendCorrection(ctx context.Context, rec model.CorrectionRecord) error {
	sources, types, original, validated, diffs, err := marshalCorrection(rec)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO corrections (id, ts, document_sources, document_types, original, validated, diffs)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Timestamp.UTC(), sources, types, original, validated, diffs,
	)
	return eris.Wrap(err, "sqlite: append correction")
}

func (s *SQLiteStore) AppendQACorrection(ctx context.Context, rec model.QACorrectionRecord) error {
	sources, err := json.Marshal(rec.Sources)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal qa sources")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO qa_corrections (id, ts, question, original_answer, original_confidence, corrected_answer, corrected_confidence, sources)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Timestamp.UTC(), rec.Question,
		rec.OriginalAnswer, rec.OriginalConfidence,
		rec.CorrectedAnswer, rec.CorrectedConfidence, string(sources),
	)
	return eris.Wrap(err, "sqlite: append qa correction")
}

func (s *SQLiteStore) LoadCorrections(ctx context.Context) ([]model.CorrectionRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ts, document_sources, document_types, original, validated, diffs
		 FROM corrections ORDER BY seq ASC`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load corrections")
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
			return nil, eris.Wrap(err, "sqlite: scan correction")
		}
		rec.Timestamp = ts
		if err := unmarshalCorrection(&rec, sources, types, original, validated, diffs); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: iterate corrections")
}

func (s *SQLiteStore) LoadQACorrections(ctx context.Context) ([]model.QACorrectionRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ts, question, original_answer, original_confidence, corrected_answer, corrected_confidence, sources
		 FROM qa_corrections ORDER BY seq ASC`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load qa corrections")
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
			return nil, eris.Wrap(err, "sqlite: scan qa correction")
		}
		rec.Timestamp = ts
		if err := json.Unmarshal([]byte(sources), &rec.Sources); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal qa sources")
		}
		records = append(records, rec)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: iterate qa corrections")
}

// Reset wipes both collections in one transaction.
func (s *SQLiteStore) Reset(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin reset")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, stmt := range []string{`DELETE FROM corrections`, `DELETE FROM qa_corrections`} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return eris.Wrapf(err, "sqlite: reset %s", stmt)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit reset")
}

// --- serialization helpers shared by both backends ---

func marshalCorrection(rec model.CorrectionRecord) (sources, types, original, validated, diffs string, err error) {
	parts := []struct {
		name string
		v    any
		out  *string
	}{
		{"document_sources", rec.DocumentSources, &sources},
		{"document_types", rec.DocumentTypes, &types},
		{"original", rec.Original, &original},
		{"validated", rec.Validated, &validated},
		{"diffs", rec.Diffs, &diffs},
	}
	for _, p := range parts {
		raw, merr := json.Marshal(p.v)
		if merr != nil {
			return "", "", "", "", "", eris.Wrapf(merr, "memory: marshal %s", p.name)
		}
		*p.out = string(raw)
	}
	return sources, types, original, validated, diffs, nil
}

func unmarshalCorrection(rec *model.CorrectionRecord, sources, types, original, validated, diffs string) error {
	parts := []struct {
		name string
		raw  string
		out  any
	}{
		{"document_sources", sources, &rec.DocumentSources},
		{"document_types", types, &rec.DocumentTypes},
		{"original", original, &rec.Original},
		{"validated", validated, &rec.Validated},
		{"diffs", diffs, &rec.Diffs},
	}
	for _, p := range parts {
		if err := json.Unmarshal([]byte(p.raw), p.out); err != nil {
			return eris.Wrapf(err, "memory: unmarshal %s", p.name)
		}
	}
	return nil
}
