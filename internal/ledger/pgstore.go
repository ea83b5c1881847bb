package ledger

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"PdmSaas/internal/config"
	"PdmSaas/internal/ingest"
	"PdmSaas/internal/logger"
)

const recordColumns = `id, organization_id, fiscal_year, product_code, funding_source_label,
	COALESCE(sector, ''), COALESCE(dependency, ''), COALESCE(bpin, ''),
	initial_budget::text, addition::text, reduction::text, credit::text,
	counter_credit::text, final_budget::text, payments::text,
	created_at, updated_at`

const insertRecordSQL = `INSERT INTO pdm_ejecucion_presupuestal (
	organization_id, fiscal_year, product_code, funding_source_label,
	sector, dependency, bpin,
	initial_budget, addition, reduction, credit, counter_credit, final_budget, payments,
	created_at, updated_at
) VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''),
	$8::numeric, $9::numeric, $10::numeric, $11::numeric, $12::numeric, $13::numeric, $14::numeric,
	$15, $15)`

// PgStore keeps ledgers in PostgreSQL. Scope replacement is serialized with
// session advisory locks held on a single pooled connection.
type PgStore struct {
	pool      *pgxpool.Pool
	mode      string
	batchSize int
	now       func() time.Time
}

func NewPgStore(pool *pgxpool.Pool, replaceMode string) *PgStore {
	if replaceMode == "" {
		replaceMode = config.ReplaceAtomic
	}
	return &PgStore{
		pool:      pool,
		mode:      replaceMode,
		batchSize: config.BatchSize,
		now:       time.Now,
	}
}

func (s *PgStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PgStore) ReplaceScope(ctx context.Context, scope Scope, lines []ingest.Line) (int, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return 0, persistErr("acquire connection", err)
	}
	defer conn.Release()

	unlock, err := lockScope(ctx, conn, scope)
	if err != nil {
		return 0, persistErr("lock scope", err)
	}
	defer unlock()

	if s.mode == config.ReplaceTwoPhase {
		return s.replaceTwoPhase(ctx, conn, scope, lines)
	}
	return s.replaceAtomic(ctx, conn, scope, lines)
}

func (s *PgStore) replaceAtomic(ctx context.Context, conn *pgxpool.Conn, scope Scope, lines []ingest.Line) (int, error) {
	tx, err := conn.Begin(ctx)
	if err != nil {
		return 0, persistErr("begin", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && err != pgx.ErrTxClosed {
			logger.L().WithError(err).Warn("rollback replace transaction")
		}
	}()

	deleted, err := deleteScope(ctx, tx, scope)
	if err != nil {
		return 0, persistErr("delete scope", err)
	}
	inserted, err := s.insertLines(ctx, tx, scope, lines)
	if err != nil {
		return 0, persistErr("insert lines", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, persistErr("commit", err)
	}
	logger.L().WithFields(logrus.Fields{
		"scope":    scope.String(),
		"deleted":  deleted,
		"inserted": inserted,
	}).Info("ledger scope replaced")
	return inserted, nil
}

// replaceTwoPhase commits the delete before inserting. A failed insert leaves
// the scope empty.
func (s *PgStore) replaceTwoPhase(ctx context.Context, conn *pgxpool.Conn, scope Scope, lines []ingest.Line) (int, error) {
	var deleted int64
	err := pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
		var err error
		deleted, err = deleteScope(ctx, tx, scope)
		return err
	})
	if err != nil {
		return 0, persistErr("delete scope", err)
	}

	var inserted int
	err = pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
		var err error
		inserted, err = s.insertLines(ctx, tx, scope, lines)
		return err
	})
	if err != nil {
		logger.L().WithError(err).WithField("scope", scope.String()).
			Error("insert failed after scope delete was committed")
		return 0, persistErr("insert lines", err)
	}
	logger.L().WithFields(logrus.Fields{
		"scope":    scope.String(),
		"deleted":  deleted,
		"inserted": inserted,
	}).Info("ledger scope replaced in two phases")
	return inserted, nil
}

func deleteScope(ctx context.Context, tx pgx.Tx, scope Scope) (int64, error) {
	var (
		tag pgconn.CommandTag
		err error
	)
	if scope.FiscalYear == nil {
		tag, err = tx.Exec(ctx, `DELETE FROM pdm_ejecucion_presupuestal WHERE organization_id = $1`, scope.OrganizationID)
	} else {
		tag, err = tx.Exec(ctx, `DELETE FROM pdm_ejecucion_presupuestal WHERE organization_id = $1 AND fiscal_year = $2`,
			scope.OrganizationID, *scope.FiscalYear)
	}
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// insertLines queues the lines in pgx batches of batchSize and checks every
// statement result.
func (s *PgStore) insertLines(ctx context.Context, tx pgx.Tx, scope Scope, lines []ingest.Line) (int, error) {
	now := s.now()
	inserted := 0
	for start := 0; start < len(lines); start += s.batchSize {
		end := start + s.batchSize
		if end > len(lines) {
			end = len(lines)
		}
		chunk := lines[start:end]

		batch := &pgx.Batch{}
		for _, l := range chunk {
			batch.Queue(insertRecordSQL,
				scope.OrganizationID, scope.FiscalYear, l.ProductCode, l.FundingSource,
				l.Sector, l.Dependency, l.Bpin,
				amountParam(l.InitialBudget), amountParam(l.Addition), amountParam(l.Reduction),
				amountParam(l.Credit), amountParam(l.CounterCredit), amountParam(l.FinalBudget),
				amountParam(l.Payments), now,
			)
		}
		br := tx.SendBatch(ctx, batch)
		for _, l := range chunk {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return inserted, errors.Wrapf(err, "insert %s / %q", l.ProductCode, l.FundingSource)
			}
			inserted++
		}
		if err := br.Close(); err != nil {
			return inserted, errors.Wrap(err, "close batch")
		}
	}
	return inserted, nil
}

func (s *PgStore) FindByProduct(ctx context.Context, orgID int64, productCode string, year *int) ([]Record, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+recordColumns+`
		FROM pdm_ejecucion_presupuestal
		WHERE organization_id = $1 AND product_code = $2 AND ($3::int IS NULL OR fiscal_year = $3)
		ORDER BY fiscal_year NULLS FIRST, funding_source_label`, orgID, productCode, year)
	if err != nil {
		return nil, persistErr("find product", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

func (s *PgStore) DeleteByProduct(ctx context.Context, orgID int64, productCode string, year *int) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM pdm_ejecucion_presupuestal
		WHERE organization_id = $1 AND product_code = $2 AND ($3::int IS NULL OR fiscal_year = $3)`,
		orgID, productCode, year)
	if err != nil {
		return 0, persistErr("delete product", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PgStore) List(ctx context.Context, orgID int64, year *int, limit, offset int) ([]Record, int, error) {
	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM pdm_ejecucion_presupuestal
		WHERE organization_id = $1 AND ($2::int IS NULL OR fiscal_year = $2)`, orgID, year).Scan(&total); err != nil {
		return nil, 0, persistErr("count records", err)
	}

	rows, err := s.pool.Query(ctx, `SELECT `+recordColumns+`
		FROM pdm_ejecucion_presupuestal
		WHERE organization_id = $1 AND ($2::int IS NULL OR fiscal_year = $2)
		ORDER BY product_code, funding_source_label, fiscal_year NULLS FIRST
		LIMIT $3 OFFSET $4`, orgID, year, limit, offset)
	if err != nil {
		return nil, 0, persistErr("list records", err)
	}
	defer rows.Close()
	records, err := collectRecords(rows)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

func (s *PgStore) RecordUpload(ctx context.Context, u UploadLog) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO pdm_ejecucion_uploads (
		upload_id, organization_id, fiscal_year, file_name, file_hash,
		rows_considered, rows_inserted, status, error_message, archive_url, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), NULLIF($10, ''), $11)`,
		u.UploadID, u.OrganizationID, u.FiscalYear, u.FileName, u.FileHash,
		u.RowsConsidered, u.RowsInserted, u.Status, u.ErrorMessage, u.ArchiveURL, u.CreatedAt)
	return persistErr("record upload", err)
}

func (s *PgStore) ListUploads(ctx context.Context, orgID int64, limit int) ([]UploadLog, error) {
	rows, err := s.pool.Query(ctx, `SELECT upload_id, organization_id, fiscal_year, file_name, file_hash,
			rows_considered, rows_inserted, status, COALESCE(error_message, ''), COALESCE(archive_url, ''), created_at
		FROM pdm_ejecucion_uploads
		WHERE organization_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, orgID, limit)
	if err != nil {
		return nil, persistErr("list uploads", err)
	}
	defer rows.Close()

	var out []UploadLog
	for rows.Next() {
		var u UploadLog
		if err := rows.Scan(&u.UploadID, &u.OrganizationID, &u.FiscalYear, &u.FileName, &u.FileHash,
			&u.RowsConsidered, &u.RowsInserted, &u.Status, &u.ErrorMessage, &u.ArchiveURL, &u.CreatedAt); err != nil {
			return nil, persistErr("scan upload", err)
		}
		out = append(out, u)
	}
	return out, persistErr("list uploads", rows.Err())
}

func (s *PgStore) PruneUploads(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM pdm_ejecucion_uploads WHERE created_at < $1`, before)
	if err != nil {
		return 0, persistErr("prune uploads", err)
	}
	return tag.RowsAffected(), nil
}

func collectRecords(rows pgx.Rows) ([]Record, error) {
	var out []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, persistErr("scan record", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("read records", err)
	}
	return out, nil
}

func scanRecord(row pgx.Row) (Record, error) {
	var (
		r       Record
		amounts [7]string
	)
	err := row.Scan(&r.ID, &r.OrganizationID, &r.FiscalYear, &r.ProductCode, &r.FundingSource,
		&r.Sector, &r.Dependency, &r.Bpin,
		&amounts[0], &amounts[1], &amounts[2], &amounts[3], &amounts[4], &amounts[5], &amounts[6],
		&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return r, err
	}
	parsed := make([]decimal.Decimal, len(amounts))
	for i, a := range amounts {
		if parsed[i], err = decimal.NewFromString(a); err != nil {
			return r, errors.Wrapf(err, "parse amount %q", a)
		}
	}
	r.Amounts = ingest.Amounts{
		InitialBudget: parsed[0],
		Addition:      parsed[1],
		Reduction:     parsed[2],
		Credit:        parsed[3],
		CounterCredit: parsed[4],
		FinalBudget:   parsed[5],
		Payments:      parsed[6],
	}
	return r, nil
}

func amountParam(d decimal.Decimal) string {
	return d.StringFixed(2)
}
