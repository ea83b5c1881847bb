package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PdmSaas/internal/ingest"
)

func line(code, source, final string) ingest.Line {
	a := ingest.ZeroAmounts()
	a.FinalBudget = ingest.ParseAmount(final)
	return ingest.Line{ProductCode: code, FundingSource: source, Sector: "Agua", Amounts: a, SourceRows: 1}
}

func TestMemoryStore_ReplaceScopeIsYearScoped(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.ReplaceScope(ctx, Scope{OrganizationID: 7, FiscalYear: year(2024)}, []ingest.Line{line("4003018", "SGP", "10")})
	require.NoError(t, err)
	_, err = s.ReplaceScope(ctx, Scope{OrganizationID: 7, FiscalYear: year(2025)}, []ingest.Line{line("4003018", "SGP", "20")})
	require.NoError(t, err)
	_, err = s.ReplaceScope(ctx, Scope{OrganizationID: 8, FiscalYear: year(2025)}, []ingest.Line{line("4003018", "SGP", "30")})
	require.NoError(t, err)

	n, err := s.ReplaceScope(ctx, Scope{OrganizationID: 7, FiscalYear: year(2025)}, []ingest.Line{
		line("2201006", "Propios", "5"),
		line("2201006", "SGP", "6"),
	})
	require.NoError(t, err)
	require.Equal(t, 2, n)

	recs, total, err := s.List(ctx, 7, year(2025), 0, 0)
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Equal(t, "2201006", recs[0].ProductCode)
	require.Equal(t, "Propios", recs[0].FundingSource)

	old, err := s.FindByProduct(ctx, 7, "4003018", year(2024))
	require.NoError(t, err)
	require.Len(t, old, 1)
	requireAmount(t, "10", old[0].FinalBudget)

	other, err := s.FindByProduct(ctx, 8, "4003018", nil)
	require.NoError(t, err)
	require.Len(t, other, 1)
}

func TestMemoryStore_OrganizationWideReplace(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	for _, y := range []int{2023, 2024} {
		_, err := s.ReplaceScope(ctx, Scope{OrganizationID: 7, FiscalYear: year(y)}, []ingest.Line{line("4003018", "SGP", "1")})
		require.NoError(t, err)
	}

	_, err := s.ReplaceScope(ctx, Scope{OrganizationID: 7}, []ingest.Line{line("1702017", "SGP", "9")})
	require.NoError(t, err)

	recs, total, err := s.List(ctx, 7, nil, 10, 0)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Nil(t, recs[0].FiscalYear)
	require.Equal(t, "1702017", recs[0].ProductCode)
}

func TestMemoryStore_FailedReplaceKeepsPreviousLedger(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	scope := Scope{OrganizationID: 7, FiscalYear: year(2025)}
	_, err := s.ReplaceScope(ctx, scope, []ingest.Line{line("4003018", "SGP", "10")})
	require.NoError(t, err)

	s.failInsert = func(l ingest.Line) error {
		if l.ProductCode == "9999999" {
			return errors.New("value too long")
		}
		return nil
	}
	_, err = s.ReplaceScope(ctx, scope, []ingest.Line{line("2201006", "SGP", "1"), line("9999999", "SGP", "1")})
	require.True(t, IsPersistence(err))

	recs, err := s.FindByProduct(ctx, 7, "4003018", year(2025))
	require.NoError(t, err)
	require.Len(t, recs, 1)
}

func TestMemoryStore_RejectsNegativeAmounts(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	scope := Scope{OrganizationID: 7, FiscalYear: year(2025)}
	_, err := s.ReplaceScope(ctx, scope, []ingest.Line{line("4003018", "SGP", "10")})
	require.NoError(t, err)

	bad := line("2201006", "SGP", "1")
	bad.FinalBudget = decimal.NewFromInt(-500)
	_, err = s.ReplaceScope(ctx, scope, []ingest.Line{line("1905015", "SGP", "1"), bad})
	require.True(t, IsPersistence(err))
	require.ErrorContains(t, err, "final_budget")

	_, total, err := s.List(ctx, 7, year(2025), 10, 0)
	require.NoError(t, err)
	require.Equal(t, 1, total)
}

func TestMemoryStore_ConcurrentReplacesOfSameScope(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	scope := Scope{OrganizationID: 7, FiscalYear: year(2025)}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			lines := []ingest.Line{line("4003018", "SGP", "1"), line("4003019", "SGP", "1")}
			if i%2 == 0 {
				lines = lines[:1]
			}
			_, err := s.ReplaceScope(ctx, scope, lines)
			assert.NoError(t, err)
		}(i)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := s.ReplaceScope(ctx, Scope{OrganizationID: 7}, []ingest.Line{line("1702017", "SGP", "1")})
		assert.NoError(t, err)
	}()
	wg.Wait()

	recs, total, err := s.List(ctx, 7, nil, 0, 0)
	require.NoError(t, err)
	require.Equal(t, total, len(recs))
	require.LessOrEqual(t, total, 3)
	require.NotZero(t, total)
}

func TestMemoryStore_DeleteByProduct(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	for _, y := range []int{2024, 2025} {
		_, err := s.ReplaceScope(ctx, Scope{OrganizationID: 7, FiscalYear: year(y)}, []ingest.Line{
			line("4003018", "SGP", "1"), line("4003018", "Propios", "1"),
		})
		require.NoError(t, err)
	}

	n, err := s.DeleteByProduct(ctx, 7, "4003018", year(2024))
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	n, err = s.DeleteByProduct(ctx, 7, "4003018", nil)
	require.NoError(t, err)
	require.EqualValues(t, 2, n)
}

func TestMemoryStore_ListPages(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_, err := s.ReplaceScope(ctx, Scope{OrganizationID: 1}, []ingest.Line{
		line("3000003", "A", "1"), line("1000001", "A", "1"), line("2000002", "A", "1"),
	})
	require.NoError(t, err)

	page, total, err := s.List(ctx, 1, nil, 2, 2)
	require.NoError(t, err)
	require.Equal(t, 3, total)
	require.Len(t, page, 1)
	require.Equal(t, "3000003", page[0].ProductCode)

	page, _, err = s.List(ctx, 1, nil, 2, 10)
	require.NoError(t, err)
	require.Empty(t, page)
}

func TestMemoryStore_Uploads(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, s.RecordUpload(ctx, UploadLog{
			OrganizationID: 7,
			FileName:       "f.csv",
			Status:         UploadCompleted,
			CreatedAt:      now.AddDate(0, 0, i*10),
		}))
	}
	require.NoError(t, s.RecordUpload(ctx, UploadLog{OrganizationID: 8, CreatedAt: now}))

	ups, err := s.ListUploads(ctx, 7, 2)
	require.NoError(t, err)
	require.Len(t, ups, 2)
	require.Equal(t, now.AddDate(0, 0, 20), ups[0].CreatedAt)

	n, err := s.PruneUploads(ctx, now.AddDate(0, 0, 15))
	require.NoError(t, err)
	require.EqualValues(t, 3, n)

	ups, err = s.ListUploads(ctx, 7, 0)
	require.NoError(t, err)
	require.Len(t, ups, 1)
}

func TestScopeLocks(t *testing.T) {
	org := scopeLocks(Scope{OrganizationID: 7})
	require.Len(t, org, 1)
	require.False(t, org[0].shared)

	yearly := scopeLocks(Scope{OrganizationID: 7, FiscalYear: year(2025)})
	require.Len(t, yearly, 2)
	require.True(t, yearly[0].shared)
	require.Equal(t, org[0].key, yearly[0].key)
	require.NotEqual(t, yearly[1].key, scopeLocks(Scope{OrganizationID: 7, FiscalYear: year(2024)})[1].key)
}
