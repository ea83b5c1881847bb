package ingest

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeLabel(t *testing.T) {
	require.Equal(t, "DESCRIPCION FTE", NormalizeLabel("Descripción Fte."))
	require.Equal(t, "DESCRIPCION FTE", NormalizeLabel("DESCRIPCION FTE"))
	require.Equal(t, "ULT NIVEL", NormalizeLabel(" ult.  nivel "))
	require.Equal(t, "PTO INICIAL", NormalizeLabel("Pto,Inicial"))
	require.Equal(t, "SI", NormalizeLabel("Sí"))
	require.Equal(t, "", NormalizeLabel("   "))
}

func TestCanonicalColumn_Aliases(t *testing.T) {
	tests := map[string]string{
		"Último Nivel":           ColUltNivel,
		"ULT. NIVEL":             ColUltNivel,
		"Presupuesto Inicial":    ColPtoInicial,
		"Presupuesto Definitivo": ColPtoDefinitivo,
		"Descripción Fuente":     ColDescripcion,
		"Contra Crédito":         ColContracredito,
		"Código BPIN":            ColBpin,
		"Pagos":                  ColPagos,
		"Columna libre":          "COLUMNA LIBRE",
	}
	for label, want := range tests {
		require.Equal(t, want, CanonicalColumn(label), label)
	}
}

func TestNormalizeColumns(t *testing.T) {
	got := NormalizeColumns([]string{"Descripción Fte.", "DESCRIPCION FTE", "Adiciones"})
	require.Equal(t, map[string]string{
		"Descripción Fte.": ColDescripcion,
		"DESCRIPCION FTE":  ColDescripcion,
		"Adiciones":        ColAdicion,
	}, got)
}

func TestMissingColumns(t *testing.T) {
	require.Empty(t, missingColumns(RequiredColumns))
	missing := missingColumns([]string{ColUltNivel, ColSector})
	require.Len(t, missing, len(RequiredColumns)-2)
	require.Equal(t, ColProducto, missing[0])
}
