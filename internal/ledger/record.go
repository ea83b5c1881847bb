package ledger

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"time"

	"github.com/google/uuid"

	"PdmSaas/internal/ingest"
)

// Record is one persisted budget execution line of an organization's ledger.
type Record struct {
	ID             int64  `json:"id"`
	OrganizationID int64  `json:"organization_id"`
	FiscalYear     *int   `json:"fiscal_year"`
	ProductCode    string `json:"product_code"`
	FundingSource  string `json:"funding_source_label"`
	Sector         string `json:"sector"`
	Dependency     string `json:"dependency"`
	Bpin           string `json:"bpin"`
	ingest.Amounts
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func recordFromLine(scope Scope, l ingest.Line, now time.Time) Record {
	return Record{
		OrganizationID: scope.OrganizationID,
		FiscalYear:     scope.FiscalYear,
		ProductCode:    l.ProductCode,
		FundingSource:  l.FundingSource,
		Sector:         l.Sector,
		Dependency:     l.Dependency,
		Bpin:           l.Bpin,
		Amounts:        l.Amounts,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Scope is the unit a replace operates on. A nil FiscalYear covers every year
// of the organization.
type Scope struct {
	OrganizationID int64
	FiscalYear     *int
}

func (s Scope) Contains(r Record) bool {
	if r.OrganizationID != s.OrganizationID {
		return false
	}
	return s.FiscalYear == nil || sameYear(s.FiscalYear, r.FiscalYear)
}

func (s Scope) String() string {
	if s.FiscalYear == nil {
		return fmt.Sprintf("org=%d year=all", s.OrganizationID)
	}
	return fmt.Sprintf("org=%d year=%d", s.OrganizationID, *s.FiscalYear)
}

func (s Scope) orgLockKey() int64 {
	return advisoryLockKey("pdm_ejecucion:" + strconv.FormatInt(s.OrganizationID, 10))
}

func (s Scope) yearLockKey() int64 {
	return advisoryLockKey(fmt.Sprintf("pdm_ejecucion:%d:%d", s.OrganizationID, *s.FiscalYear))
}

func advisoryLockKey(s string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return int64(h.Sum64())
}

func sameYear(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// matchesYear treats a nil filter as "any year".
func matchesYear(filter, year *int) bool {
	return filter == nil || sameYear(filter, year)
}

// Upload statuses.
const (
	UploadCompleted = "completed"
	UploadFailed    = "failed"
)

// UploadLog is the audit entry written for every upload attempt.
type UploadLog struct {
	UploadID       uuid.UUID `json:"upload_id"`
	OrganizationID int64     `json:"organization_id"`
	FiscalYear     *int      `json:"fiscal_year"`
	FileName       string    `json:"file_name"`
	FileHash       string    `json:"file_hash"`
	RowsConsidered int       `json:"rows_considered"`
	RowsInserted   int       `json:"rows_inserted"`
	Status         string    `json:"status"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	ArchiveURL     string    `json:"archive_url,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
