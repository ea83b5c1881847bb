package ingest

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Canonical column names.
const (
	ColUltNivel      = "ULT NIVEL"
	ColSector        = "SECTOR"
	ColProducto      = "PRODUCTO"
	ColDescripcion   = "DESCRIPCION FTE"
	ColPtoInicial    = "PTO INICIAL"
	ColAdicion       = "ADICION"
	ColReduccion     = "REDUCCION"
	ColCredito       = "CREDITO"
	ColContracredito = "CONTRACREDITO"
	ColPtoDefinitivo = "PTO DEFINITIVO"
	ColPagos         = "PAGOS"
	ColDependencia   = "DEPENDENCIA"
	ColBpin          = "BPIN"
)

// RequiredColumns must all be present after normalization for a table to be
// accepted.
var RequiredColumns = []string{
	ColUltNivel, ColSector, ColProducto, ColDescripcion,
	ColPtoInicial, ColAdicion, ColReduccion, ColCredito,
	ColContracredito, ColPtoDefinitivo, ColPagos,
}

// columnAliases folds normalized synonyms into the canonical set. Keys are
// already in NormalizeLabel form.
var columnAliases = map[string]string{
	"ULTIMO NIVEL":           ColUltNivel,
	"ULT NIV":                ColUltNivel,
	"NIVEL FINAL":            ColUltNivel,
	"PRESUPUESTO INICIAL":    ColPtoInicial,
	"PPTO INICIAL":           ColPtoInicial,
	"APROPIACION INICIAL":    ColPtoInicial,
	"PRESUPUESTO DEFINITIVO": ColPtoDefinitivo,
	"PPTO DEFINITIVO":        ColPtoDefinitivo,
	"APROPIACION DEFINITIVA": ColPtoDefinitivo,
	"DESCRIPCION FUENTE":     ColDescripcion,
	"DESC FTE":               ColDescripcion,
	"FUENTE":                 ColDescripcion,
	"FUENTE DE FINANCIACION": ColDescripcion,
	"ADICIONES":              ColAdicion,
	"REDUCCIONES":            ColReduccion,
	"CREDITOS":               ColCredito,
	"CONTRACREDITOS":         ColContracredito,
	"CONTRA CREDITO":         ColContracredito,
	"CONTRA CREDITOS":        ColContracredito,
	"PAGO":                   ColPagos,
	"PAGOS TOTALES":          ColPagos,
	"PRODUCTO MGA":           ColProducto,
	"CODIGO PRODUCTO":        ColProducto,
	"DEPENDENCIAS":           ColDependencia,
	"CODIGO BPIN":            ColBpin,
	"COD BPIN":               ColBpin,
	"SECTOR PRESUPUESTAL":    ColSector,
}

var stripMarks = runes.Remove(runes.In(unicode.Mn))

// NormalizeLabel strips diacritics, turns '.' and ',' into spaces, collapses
// whitespace and upper-cases the result: "Descripción Fte." -> "DESCRIPCION FTE".
func NormalizeLabel(label string) string {
	t := transform.Chain(norm.NFD, stripMarks, norm.NFC)
	s, _, err := transform.String(t, label)
	if err != nil {
		s = label
	}
	s = strings.NewReplacer(".", " ", ",", " ").Replace(s)
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}

// CanonicalColumn normalizes label and resolves known aliases.
func CanonicalColumn(label string) string {
	n := NormalizeLabel(label)
	if c, ok := columnAliases[n]; ok {
		return c
	}
	return n
}

// NormalizeColumns maps every raw label to its canonical name.
func NormalizeColumns(labels []string) map[string]string {
	out := make(map[string]string, len(labels))
	for _, l := range labels {
		out[l] = CanonicalColumn(l)
	}
	return out
}

// missingColumns lists the required columns absent from canonical, in
// RequiredColumns order.
func missingColumns(canonical []string) []string {
	have := make(map[string]struct{}, len(canonical))
	for _, c := range canonical {
		have[c] = struct{}{}
	}
	var missing []string
	for _, req := range RequiredColumns {
		if _, ok := have[req]; !ok {
			missing = append(missing, req)
		}
	}
	return missing
}
