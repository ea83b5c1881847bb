package ingest

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func row(line int, values map[string]string) Row {
	return Row{Line: line, Values: values}
}

func TestIsFinalLevel(t *testing.T) {
	tests := []struct {
		name  string
		level string
		sect  string
		want  bool
	}{
		{"si", "SI", "Agua", true},
		{"accented lower case", "sí", "Agua", true},
		{"padded", "  Si ", "Agua", true},
		{"no", "No", "Agua", false},
		{"blank level", "", "Agua", false},
		{"blank sector", "SI", "   ", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := row(2, map[string]string{ColUltNivel: tt.level, ColSector: tt.sect})
			require.Equal(t, tt.want, IsFinalLevel(r))
		})
	}
}

func TestFilterRows_KeepsFileOrder(t *testing.T) {
	rows := []Row{
		row(2, map[string]string{ColUltNivel: "No", ColSector: "Agua"}),
		row(3, map[string]string{ColUltNivel: "Sí", ColSector: "Agua"}),
		row(4, map[string]string{ColUltNivel: "SI", ColSector: ""}),
		row(5, map[string]string{ColUltNivel: "SI", ColSector: "Salud"}),
	}
	out := FilterRows(rows)
	require.Len(t, out, 2)
	require.Equal(t, 3, out[0].Line)
	require.Equal(t, 5, out[1].Line)
}
