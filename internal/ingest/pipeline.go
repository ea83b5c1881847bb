package ingest

// Result is the outcome of running an upload through load, filter and
// aggregate. Nothing in it has been persisted.
type Result struct {
	Format         string
	Strategy       string
	HeaderLine     int
	RowsRead       int
	RowsConsidered int
	Lines          []Line
	RowErrors      []*RowExtractionError
}

// ErrorMessages renders at most limit row errors; limit <= 0 means all.
func (r *Result) ErrorMessages(limit int) []string {
	n := len(r.RowErrors)
	if limit > 0 && n > limit {
		n = limit
	}
	out := make([]string, 0, n)
	for _, e := range r.RowErrors[:n] {
		out = append(out, e.Error())
	}
	return out
}

// Process runs the whole ingestion pipeline over an uploaded file. Only the
// extension check and schema detection are fatal; rows without a product code
// are collected in RowErrors.
func Process(data []byte, filename string) (*Result, error) {
	loaded, err := LoadTable(data, filename)
	if err != nil {
		return nil, err
	}
	considered := FilterRows(loaded.Table.Rows)
	agg, rowErrs := Aggregate(considered)
	return &Result{
		Format:         loaded.Format,
		Strategy:       loaded.Strategy,
		HeaderLine:     loaded.Table.HeaderLine,
		RowsRead:       len(loaded.Table.Rows),
		RowsConsidered: len(considered),
		Lines:          agg.Lines(),
		RowErrors:      rowErrs,
	}, nil
}
