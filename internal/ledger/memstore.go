package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"PdmSaas/internal/ingest"
)

type recordKey struct {
	org     int64
	year    int
	hasYear bool
	product string
	source  string
}

func keyOf(r Record) recordKey {
	k := recordKey{org: r.OrganizationID, product: r.ProductCode, source: r.FundingSource}
	if r.FiscalYear != nil {
		k.year, k.hasYear = *r.FiscalYear, true
	}
	return k
}

type orgLocks struct {
	org   sync.RWMutex
	years map[int]*sync.Mutex
}

// MemoryStore is an in-process Store. It takes the same lock hierarchy as
// PgStore: an organization-wide replace holds the organization exclusively,
// a year-scoped replace holds it shared plus the year exclusively.
type MemoryStore struct {
	mu      sync.Mutex
	nextID  int64
	records map[recordKey]Record
	uploads []UploadLog

	locksMu sync.Mutex
	locks   map[int64]*orgLocks

	now func() time.Time
	// failInsert, when set, aborts a replace on the first line it rejects.
	failInsert func(ingest.Line) error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[recordKey]Record),
		locks:   make(map[int64]*orgLocks),
		now:     time.Now,
	}
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) locksFor(org int64) *orgLocks {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()
	l, ok := m.locks[org]
	if !ok {
		l = &orgLocks{years: make(map[int]*sync.Mutex)}
		m.locks[org] = l
	}
	return l
}

func (m *MemoryStore) lockScope(scope Scope) func() {
	ol := m.locksFor(scope.OrganizationID)
	if scope.FiscalYear == nil {
		ol.org.Lock()
		return ol.org.Unlock
	}
	ol.org.RLock()
	m.locksMu.Lock()
	ym, ok := ol.years[*scope.FiscalYear]
	if !ok {
		ym = &sync.Mutex{}
		ol.years[*scope.FiscalYear] = ym
	}
	m.locksMu.Unlock()
	ym.Lock()
	return func() {
		ym.Unlock()
		ol.org.RUnlock()
	}
}

// ReplaceScope validates every line before touching the ledger, so a
// rejected line leaves the previous records in place.
func (m *MemoryStore) ReplaceScope(ctx context.Context, scope Scope, lines []ingest.Line) (int, error) {
	unlock := m.lockScope(scope)
	defer unlock()

	if err := ctx.Err(); err != nil {
		return 0, persistErr("replace scope", err)
	}

	now := m.now()
	fresh := make([]Record, 0, len(lines))
	seen := make(map[recordKey]struct{}, len(lines))
	for _, l := range lines {
		if m.failInsert != nil {
			if err := m.failInsert(l); err != nil {
				return 0, persistErr("insert lines", err)
			}
		}
		if field, ok := negativeAmount(l.Amounts); ok {
			return 0, persistErr("insert lines",
				errors.Errorf("negative %s for %s / %q", field, l.ProductCode, l.FundingSource))
		}
		r := recordFromLine(scope, l, now)
		k := keyOf(r)
		if _, dup := seen[k]; dup {
			return 0, persistErr("insert lines",
				errors.Errorf("duplicate key %s / %q", l.ProductCode, l.FundingSource))
		}
		seen[k] = struct{}{}
		fresh = append(fresh, r)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for k, r := range m.records {
		if scope.Contains(r) {
			delete(m.records, k)
		}
	}
	for _, r := range fresh {
		m.nextID++
		r.ID = m.nextID
		m.records[keyOf(r)] = r
	}
	return len(fresh), nil
}

func (m *MemoryStore) FindByProduct(_ context.Context, orgID int64, productCode string, year *int) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Record
	for _, r := range m.records {
		if r.OrganizationID == orgID && r.ProductCode == productCode && matchesYear(year, r.FiscalYear) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if yi, yj := yearOrder(out[i].FiscalYear), yearOrder(out[j].FiscalYear); yi != yj {
			return yi < yj
		}
		return out[i].FundingSource < out[j].FundingSource
	})
	return out, nil
}

func (m *MemoryStore) DeleteByProduct(_ context.Context, orgID int64, productCode string, year *int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k, r := range m.records {
		if r.OrganizationID == orgID && r.ProductCode == productCode && matchesYear(year, r.FiscalYear) {
			delete(m.records, k)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) List(_ context.Context, orgID int64, year *int, limit, offset int) ([]Record, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []Record
	for _, r := range m.records {
		if r.OrganizationID == orgID && matchesYear(year, r.FiscalYear) {
			all = append(all, r)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if a.ProductCode != b.ProductCode {
			return a.ProductCode < b.ProductCode
		}
		if a.FundingSource != b.FundingSource {
			return a.FundingSource < b.FundingSource
		}
		return yearOrder(a.FiscalYear) < yearOrder(b.FiscalYear)
	})
	total := len(all)
	if offset >= total {
		return []Record{}, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (m *MemoryStore) RecordUpload(_ context.Context, u UploadLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploads = append(m.uploads, u)
	return nil
}

func (m *MemoryStore) ListUploads(_ context.Context, orgID int64, limit int) ([]UploadLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []UploadLog
	for i := len(m.uploads) - 1; i >= 0; i-- {
		if m.uploads[i].OrganizationID != orgID {
			continue
		}
		out = append(out, m.uploads[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *MemoryStore) PruneUploads(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.uploads[:0]
	var n int64
	for _, u := range m.uploads {
		if u.CreatedAt.Before(before) {
			n++
			continue
		}
		kept = append(kept, u)
	}
	m.uploads = kept
	return n, nil
}

// yearOrder sorts a missing year before every real one.
func yearOrder(y *int) int {
	if y == nil {
		return -1
	}
	return *y
}

// negativeAmount mirrors the non-negative CHECK on the ledger table.
func negativeAmount(a ingest.Amounts) (string, bool) {
	fields := []struct {
		name string
		v    decimal.Decimal
	}{
		{"initial_budget", a.InitialBudget},
		{"addition", a.Addition},
		{"reduction", a.Reduction},
		{"credit", a.Credit},
		{"counter_credit", a.CounterCredit},
		{"final_budget", a.FinalBudget},
		{"payments", a.Payments},
	}
	for _, f := range fields {
		if f.v.IsNegative() {
			return f.name, true
		}
	}
	return "", false
}
