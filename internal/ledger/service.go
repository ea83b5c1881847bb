package ledger

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"PdmSaas/internal/archive"
	"PdmSaas/internal/checksum"
	"PdmSaas/internal/config"
	"PdmSaas/internal/ingest"
	"PdmSaas/internal/logger"
	"PdmSaas/internal/metrics"
)

var (
	ErrInvalidProductCode = errors.New("product code must have exactly 7 digits")
	ErrProductNotFound    = errors.New("product not found")
)

var productCodeFormat = regexp.MustCompile(fmt.Sprintf(`^\d{%d}$`, config.ProductCodeLength))

const (
	DefaultUploadsLimit = 20
	MaxUploadsLimit     = 100
)

// UploadRequest carries one file destined for an organization's ledger. The
// organization always comes from the caller's principal, never the file.
type UploadRequest struct {
	OrganizationID int64
	FiscalYear     *int
	FileName       string
	Data           []byte
}

func (r UploadRequest) scope() Scope {
	return Scope{OrganizationID: r.OrganizationID, FiscalYear: r.FiscalYear}
}

type UploadResult struct {
	Success        bool     `json:"success"`
	Message        string   `json:"message"`
	RowsConsidered int      `json:"rows_considered"`
	RowsInserted   int      `json:"rows_inserted"`
	Errors         []string `json:"errors"`
	UploadID       string   `json:"upload_id,omitempty"`
	ArchiveURL     string   `json:"archive_url,omitempty"`
	// Duplicate is set when the file is byte-identical to the previous
	// completed upload of the same scope.
	Duplicate bool `json:"duplicate,omitempty"`
}

type PreviewResult struct {
	Success        bool          `json:"success"`
	Format         string        `json:"format"`
	Strategy       string        `json:"strategy"`
	HeaderLine     int           `json:"header_line"`
	RowsRead       int           `json:"rows_read"`
	RowsConsidered int           `json:"rows_considered"`
	Lines          []ingest.Line `json:"lines"`
	Errors         []string      `json:"errors"`
	ErrorCount     int           `json:"error_count"`
}

// ProductSummary is the aggregated view of one product across its funding
// sources.
type ProductSummary struct {
	ProductCode    string          `json:"product_code"`
	FiscalYear     *int            `json:"fiscal_year"`
	FundingSources []string        `json:"funding_sources"`
	Totals         ingest.Amounts  `json:"totals"`
	ExecutionPct   decimal.Decimal `json:"execution_pct"`
	Records        []Record        `json:"records"`
}

type Service struct {
	store         Store
	archiver      archive.Archiver
	archivePrefix string
	maxErrors     int
	now           func() time.Time
}

func NewService(store Store) *Service {
	return &Service{
		store:     store,
		maxErrors: config.MaxReportedErrors,
		now:       time.Now,
	}
}

// WithArchiver makes Upload store every parsed file under prefix before the
// ledger is replaced. A failed copy aborts the upload.
func (s *Service) WithArchiver(a archive.Archiver, prefix string) *Service {
	s.archiver = a
	s.archivePrefix = prefix
	return s
}

func (s *Service) Store() Store {
	return s.store
}

// Upload parses req.Data and replaces the ledger of req's scope with the
// aggregated lines. Unsupported extensions are rejected before anything is
// read; rows without a product code are reported in the result without
// failing the upload.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	started := s.now()
	if req.OrganizationID <= 0 {
		return nil, ErrInvalidOrganization
	}
	if err := ingest.CheckExtension(req.FileName); err != nil {
		metrics.ObserveUpload(metrics.ResultFormatError, 0, 0, 0, time.Since(started))
		return nil, err
	}

	scope := req.scope()
	log := logger.L().WithFields(logrus.Fields{
		"organization_id": req.OrganizationID,
		"fiscal_year":     yearField(req.FiscalYear),
		"file":            req.FileName,
	})
	entry := UploadLog{
		UploadID:       uuid.New(),
		OrganizationID: req.OrganizationID,
		FiscalYear:     req.FiscalYear,
		FileName:       req.FileName,
		FileHash:       checksum.Fingerprint(req.Data),
	}
	log = log.WithField("upload_id", entry.UploadID.String())

	res, err := ingest.Process(req.Data, req.FileName)
	if err != nil {
		result := metrics.ResultInvalidInput
		if ingest.IsSchemaDetection(err) {
			result = metrics.ResultSchemaError
		}
		metrics.ObserveUpload(result, 0, 0, 0, time.Since(started))
		s.recordFailure(ctx, log, entry, err)
		log.WithError(err).Warn("upload rejected")
		return nil, err
	}

	duplicate := s.sameAsLastUpload(ctx, scope, req.Data)

	if s.archiver != nil {
		key := archive.Key(s.archivePrefix, req.OrganizationID, req.FiscalYear, entry.FileHash, req.FileName)
		url, err := s.archiver.Put(ctx, key, req.Data, archive.DetectContentType(req.Data))
		if err != nil {
			err = persistErr("archive upload", err)
			entry.RowsConsidered = res.RowsConsidered
			metrics.ObserveUpload(metrics.ResultPersistError, res.RowsConsidered, 0, len(res.RowErrors), time.Since(started))
			s.recordFailure(ctx, log, entry, err)
			log.WithError(err).Error("could not archive upload")
			return nil, err
		}
		entry.ArchiveURL = url
	}

	inserted, err := s.store.ReplaceScope(ctx, scope, res.Lines)
	if err != nil {
		err = persistErr("replace scope", err)
		entry.RowsConsidered = res.RowsConsidered
		metrics.ObserveUpload(metrics.ResultPersistError, res.RowsConsidered, 0, len(res.RowErrors), time.Since(started))
		s.recordFailure(ctx, log, entry, err)
		log.WithError(err).Error("ledger replace failed")
		return nil, err
	}

	entry.RowsConsidered = res.RowsConsidered
	entry.RowsInserted = inserted
	entry.Status = UploadCompleted
	entry.CreatedAt = s.now()
	if err := s.store.RecordUpload(ctx, entry); err != nil {
		log.WithError(err).Warn("could not write upload log")
	}

	metrics.ObserveUpload(metrics.ResultSuccess, res.RowsConsidered, inserted, len(res.RowErrors), time.Since(started))
	log.WithFields(logrus.Fields{
		"format":          res.Format,
		"strategy":        res.Strategy,
		"rows_considered": res.RowsConsidered,
		"rows_inserted":   inserted,
		"row_errors":      len(res.RowErrors),
	}).Info("budget execution uploaded")
	logger.Audit(fmt.Sprintf("PDM ejecucion upload %s replaced %s with %d records", entry.UploadID, scope, inserted))

	return &UploadResult{
		Success:        true,
		Message:        uploadMessage(scope, res, inserted),
		RowsConsidered: res.RowsConsidered,
		RowsInserted:   inserted,
		Errors:         res.ErrorMessages(s.maxErrors),
		UploadID:       entry.UploadID.String(),
		ArchiveURL:     entry.ArchiveURL,
		Duplicate:      duplicate,
	}, nil
}

func uploadMessage(scope Scope, res *ingest.Result, inserted int) string {
	msg := fmt.Sprintf("Processed %d final-level rows into %d records for %s", res.RowsConsidered, inserted, scopeLabel(scope))
	if n := len(res.RowErrors); n > 0 {
		msg += fmt.Sprintf("; %d rows skipped", n)
	}
	return msg
}

func scopeLabel(scope Scope) string {
	if scope.FiscalYear == nil {
		return "all fiscal years"
	}
	return fmt.Sprintf("fiscal year %d", *scope.FiscalYear)
}

func (s *Service) recordFailure(ctx context.Context, log *logrus.Entry, entry UploadLog, cause error) {
	entry.Status = UploadFailed
	entry.ErrorMessage = cause.Error()
	entry.CreatedAt = s.now()
	if err := s.store.RecordUpload(ctx, entry); err != nil {
		log.WithError(err).Warn("could not write upload log")
	}
}

// sameAsLastUpload compares data against the latest completed upload of the
// same scope. Lookup failures only cost the flag.
func (s *Service) sameAsLastUpload(ctx context.Context, scope Scope, data []byte) bool {
	recent, err := s.store.ListUploads(ctx, scope.OrganizationID, DefaultUploadsLimit)
	if err != nil {
		return false
	}
	for _, u := range recent {
		if u.Status != UploadCompleted || !sameYear(u.FiscalYear, scope.FiscalYear) {
			continue
		}
		ok, err := checksum.NewMatcher(u.FileHash).Match(data)
		return err == nil && ok
	}
	return false
}

// Preview runs the pipeline without touching the ledger.
func (s *Service) Preview(fileName string, data []byte) (*PreviewResult, error) {
	if err := ingest.CheckExtension(fileName); err != nil {
		return nil, err
	}
	res, err := ingest.Process(data, fileName)
	if err != nil {
		return nil, err
	}
	lines := res.Lines
	if lines == nil {
		lines = []ingest.Line{}
	}
	return &PreviewResult{
		Success:        true,
		Format:         res.Format,
		Strategy:       res.Strategy,
		HeaderLine:     res.HeaderLine,
		RowsRead:       res.RowsRead,
		RowsConsidered: res.RowsConsidered,
		Lines:          lines,
		Errors:         res.ErrorMessages(s.maxErrors),
		ErrorCount:     len(res.RowErrors),
	}, nil
}

// Query sums a product's records over its funding sources. A nil year sums
// every year.
func (s *Service) Query(ctx context.Context, orgID int64, productCode string, year *int) (*ProductSummary, error) {
	if orgID <= 0 {
		return nil, ErrInvalidOrganization
	}
	if !productCodeFormat.MatchString(productCode) {
		return nil, ErrInvalidProductCode
	}
	records, err := s.store.FindByProduct(ctx, orgID, productCode, year)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrProductNotFound
	}

	summary := &ProductSummary{
		ProductCode:    productCode,
		FiscalYear:     year,
		FundingSources: []string{},
		Totals:         ingest.ZeroAmounts(),
		Records:        records,
	}
	seen := make(map[string]struct{})
	for _, r := range records {
		if _, ok := seen[r.FundingSource]; !ok {
			seen[r.FundingSource] = struct{}{}
			summary.FundingSources = append(summary.FundingSources, r.FundingSource)
		}
		summary.Totals = summary.Totals.Add(r.Amounts)
	}
	summary.ExecutionPct = ExecutionPct(summary.Totals)
	return summary, nil
}

// ExecutionPct is payments over final budget as a percentage with two
// decimals, or zero when there is no final budget.
func ExecutionPct(a ingest.Amounts) decimal.Decimal {
	if a.FinalBudget.IsZero() {
		return decimal.New(0, -2)
	}
	return a.Payments.Mul(decimal.NewFromInt(100)).DivRound(a.FinalBudget, 2)
}

// Delete removes a product's records and reports how many were removed.
func (s *Service) Delete(ctx context.Context, orgID int64, productCode string, year *int) (int64, error) {
	if orgID <= 0 {
		return 0, ErrInvalidOrganization
	}
	if !productCodeFormat.MatchString(productCode) {
		return 0, ErrInvalidProductCode
	}
	n, err := s.store.DeleteByProduct(ctx, orgID, productCode, year)
	if err != nil {
		return 0, err
	}
	logger.L().WithFields(logrus.Fields{
		"organization_id": orgID,
		"product_code":    productCode,
		"fiscal_year":     yearField(year),
		"deleted":         n,
	}).Info("ledger product deleted")
	return n, nil
}

func (s *Service) List(ctx context.Context, orgID int64, year *int, limit, offset int) ([]Record, int, error) {
	if orgID <= 0 {
		return nil, 0, ErrInvalidOrganization
	}
	records, total, err := s.store.List(ctx, orgID, year, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	if records == nil {
		records = []Record{}
	}
	return records, total, nil
}

func (s *Service) Uploads(ctx context.Context, orgID int64, limit int) ([]UploadLog, error) {
	if orgID <= 0 {
		return nil, ErrInvalidOrganization
	}
	if limit <= 0 {
		limit = DefaultUploadsLimit
	}
	if limit > MaxUploadsLimit {
		limit = MaxUploadsLimit
	}
	uploads, err := s.store.ListUploads(ctx, orgID, limit)
	if err != nil {
		return nil, err
	}
	if uploads == nil {
		uploads = []UploadLog{}
	}
	return uploads, nil
}

// PruneUploads drops upload log entries older than retention.
func (s *Service) PruneUploads(ctx context.Context, retention time.Duration) (int64, error) {
	n, err := s.store.PruneUploads(ctx, s.now().Add(-retention))
	if err != nil {
		return 0, err
	}
	metrics.AddPrunedUploads(n)
	return n, nil
}

func yearField(y *int) interface{} {
	if y == nil {
		return "all"
	}
	return *y
}
