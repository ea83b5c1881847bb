package ingest

import "strings"

// finalLevelMarkers holds the normalized "yes" values of ULT NIVEL. NormalizeLabel
// already folds "SÍ" into "SI".
var finalLevelMarkers = map[string]struct{}{
	"SI": {},
}

// IsFinalLevel reports whether a row is a leaf budget line with a sector.
// Subtotal and rollup rows carry ULT NIVEL = "No" or leave SECTOR blank.
func IsFinalLevel(r Row) bool {
	if _, ok := finalLevelMarkers[NormalizeLabel(r.Get(ColUltNivel))]; !ok {
		return false
	}
	return strings.TrimSpace(r.Get(ColSector)) != ""
}

// FilterRows keeps the final-level rows in file order.
func FilterRows(rows []Row) []Row {
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if IsFinalLevel(r) {
			out = append(out, r)
		}
	}
	return out
}
