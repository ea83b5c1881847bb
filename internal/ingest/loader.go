package ingest

import (
	"fmt"

	"github.com/go-faster/errors"

	"PdmSaas/internal/config"
)

// ParseStrategy decides which raw row is the header. Attempt either yields a
// table covering every required column or a *SchemaDetectionError.
type ParseStrategy struct {
	Name   string
	Locate func(raw [][]string) (int, bool)
}

func (s ParseStrategy) Attempt(raw [][]string) (*Table, error) {
	idx, ok := s.Locate(raw)
	if !ok || idx < 0 || idx >= len(raw) {
		return nil, &SchemaDetectionError{Missing: append([]string(nil), RequiredColumns...)}
	}
	t := buildTable(raw, idx)
	if missing := missingColumns(t.Columns); len(missing) > 0 {
		return nil, &SchemaDetectionError{Missing: missing, Found: t.RawColumns}
	}
	return t, nil
}

// HeaderAt treats row n as the header unconditionally.
func HeaderAt(n int) ParseStrategy {
	return ParseStrategy{
		Name: fmt.Sprintf("header-at-%d", n),
		Locate: func(raw [][]string) (int, bool) {
			return n, n < len(raw)
		},
	}
}

// DetectThenParse scans the first limit rows for the header.
func DetectThenParse(limit int) ParseStrategy {
	return ParseStrategy{
		Name: "detect-then-parse",
		Locate: func(raw [][]string) (int, bool) {
			return DetectHeader(raw, limit)
		},
	}
}

// DefaultStrategies is the order in which header positions are tried:
// exports usually carry the header on the first row or below one title row.
var DefaultStrategies = []ParseStrategy{
	HeaderAt(0),
	HeaderAt(1),
	DetectThenParse(config.HeaderScanLimit),
}

// LoadResult describes which reader and strategy produced the table.
type LoadResult struct {
	Table    *Table
	Format   string
	Strategy string
}

// LoadTable parses the uploaded bytes into a canonical table. Each candidate
// file format is read in turn and every strategy is folded over its rows; the
// first combination that covers all required columns wins. When none does the
// closest attempt is reported as a SchemaDetectionError.
func LoadTable(data []byte, filename string) (*LoadResult, error) {
	readers, err := readersFor(filename)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}

	var (
		best    *SchemaDetectionError
		readErr error
	)
	for _, reader := range readers {
		raw, err := reader.read(data)
		if err != nil {
			if readErr == nil {
				readErr = errors.Wrapf(err, "parse as %s", reader.format)
			}
			continue
		}
		for _, strategy := range DefaultStrategies {
			t, err := strategy.Attempt(raw)
			if err == nil {
				return &LoadResult{Table: t, Format: reader.format, Strategy: strategy.Name}, nil
			}
			var sde *SchemaDetectionError
			if errors.As(err, &sde) && closer(sde, best) {
				best = sde
			}
		}
	}

	if best != nil {
		return nil, best
	}
	if readErr != nil {
		return nil, &UnreadableFileError{Filename: filename, Err: readErr}
	}
	return nil, &SchemaDetectionError{Missing: append([]string(nil), RequiredColumns...)}
}

// closer prefers attempts that saw a header (non-empty Found) and, among
// those, the one missing fewer columns. Ties keep the earlier attempt.
func closer(candidate, best *SchemaDetectionError) bool {
	if best == nil {
		return true
	}
	if (len(candidate.Found) > 0) != (len(best.Found) > 0) {
		return len(candidate.Found) > 0
	}
	return len(candidate.Missing) < len(best.Missing)
}
