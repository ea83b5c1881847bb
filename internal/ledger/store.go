package ledger

import (
	"context"
	"time"

	"PdmSaas/internal/ingest"
)

// Store persists ledgers. Implementations serialize ReplaceScope calls whose
// scopes overlap; disjoint scopes may proceed in parallel.
type Store interface {
	// ReplaceScope discards every record in scope and inserts lines tagged
	// with the scope. It returns the number of inserted records.
	ReplaceScope(ctx context.Context, scope Scope, lines []ingest.Line) (int, error)
	// FindByProduct returns the records of one product. A nil year matches
	// every year.
	FindByProduct(ctx context.Context, orgID int64, productCode string, year *int) ([]Record, error)
	DeleteByProduct(ctx context.Context, orgID int64, productCode string, year *int) (int64, error)
	// List pages through an organization's records ordered by product code
	// and funding source, returning the page and the total count.
	List(ctx context.Context, orgID int64, year *int, limit, offset int) ([]Record, int, error)

	RecordUpload(ctx context.Context, u UploadLog) error
	ListUploads(ctx context.Context, orgID int64, limit int) ([]UploadLog, error)
	PruneUploads(ctx context.Context, before time.Time) (int64, error)

	Ping(ctx context.Context) error
}
