package ledger

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const header = `ULT NIVEL,SECTOR,PRODUCTO,DESCRIPCION FTE,PTO INICIAL,ADICION,REDUCCION,CREDITO,CONTRACREDITO,PTO DEFINITIVO,PAGOS,DEPENDENCIA,BPIN`

func ejecucionCSV(rows ...string) []byte {
	return []byte(strings.Join(append([]string{header}, rows...), "\n") + "\n")
}

func year(y int) *int {
	return &y
}

func requireAmount(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got.String())
}
