package ingest

// DetectHeader scans at most the first limit rows and returns the index of the
// first one whose canonicalized cells cover every required column.
func DetectHeader(raw [][]string, limit int) (int, bool) {
	for i := 0; i < len(raw) && i < limit; i++ {
		canonical := make([]string, 0, len(raw[i]))
		for _, cell := range raw[i] {
			canonical = append(canonical, CanonicalColumn(cell))
		}
		if len(missingColumns(canonical)) == 0 {
			return i, true
		}
	}
	return -1, false
}
