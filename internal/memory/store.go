// Package memory is the durable correction store and its recall machinery:
// past human corrections bias future extractions and question answers.
package memory

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/ledgerline/finsight/internal/model"
)

// Store is the persistence interface for correction records. Both record
// collections are append-only; Reset is the only destructive operation.
type Store interface {
	AppendCorrection(ctx context.Context, rec model.CorrectionRecord) error
	AppendQACorrection(ctx context.Context, rec model.QACorrectionRecord) error
	LoadCorrections(ctx context.Context) ([]model.CorrectionRecord, error)
	LoadQACorrections(ctx context.Context) ([]model.QACorrectionRecord, error)
	Reset(ctx context.Context) error

	Migrate(ctx context.Context) error
	Close() error
}

// Open creates a Store for the configured driver.
func Open(ctx context.Context, driver, databaseURL string) (Store, error) {
	switch driver {
	case "sqlite", "":
		return NewSQLite(databaseURL)
	case "postgres":
		return NewPostgres(ctx, databaseURL)
	default:
		return nil, eris.Errorf("memory: unknown driver %q", driver)
	}
}
