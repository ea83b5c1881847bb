package ingest

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var fixtureHeader = []string{
	"ULT. NIVEL", "SECTOR", "PRODUCTO", "Descripción Fte.", "PTO INICIAL", "ADICION",
	"REDUCCION", "CREDITO", "CONTRACREDITO", "PTO DEFINITIVO", "PAGOS", "DEPENDENCIA", "BPIN",
}

func csvFixture(lines ...string) []byte {
	return []byte(strings.Join(lines, "\n") + "\n")
}

func xlsxFixture(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &rows[i]))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func headerRow() []interface{} {
	out := make([]interface{}, len(fixtureHeader))
	for i, h := range fixtureHeader {
		out[i] = h
	}
	return out
}

func requireAmount(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got.String())
}
