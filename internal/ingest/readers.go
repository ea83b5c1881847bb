package ingest

import (
	"bytes"
	"encoding/csv"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/extrame/xls"
	"github.com/go-faster/errors"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
	FormatXLS  = "xls"
)

// rowReader turns raw file bytes into an untyped grid of cells.
type rowReader struct {
	format string
	read   func(data []byte) ([][]string, error)
}

var (
	csvReader  = rowReader{format: FormatCSV, read: readCSVRows}
	xlsxReader = rowReader{format: FormatXLSX, read: readXLSXRows}
	xlsReader  = rowReader{format: FormatXLS, read: readXLSRows}
)

// readersFor returns the readers to try for filename, most likely first.
// Exports named .xls are frequently xlsx or delimited text in disguise.
func readersFor(filename string) ([]rowReader, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".csv":
		return []rowReader{csvReader}, nil
	case ".xlsx":
		return []rowReader{xlsxReader, xlsReader}, nil
	case ".xls":
		return []rowReader{xlsReader, xlsxReader, csvReader}, nil
	default:
		return nil, &FileFormatError{Filename: filename, Extension: ext}
	}
}

// CheckExtension rejects filenames whose extension is not accepted.
func CheckExtension(filename string) error {
	_, err := readersFor(filename)
	return err
}

func readCSVRows(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
		if err != nil {
			return nil, errors.Wrap(err, "decode csv")
		}
		data = decoded
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = sniffDelimiter(data)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	// csv.Reader drops blank lines; pad them back so a row index is always
	// its source line minus one.
	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "read csv")
		}
		line, _ := r.FieldPos(0)
		for len(rows) < line-1 {
			rows = append(rows, nil)
		}
		rows = append(rows, rec)
	}
	if len(rows) == 0 {
		return nil, errors.New("csv has no rows")
	}
	return rows, nil
}

// sniffDelimiter picks ';' or tab over ',' when they dominate the first lines.
// Quoted sections are skipped so thousands separators do not count.
func sniffDelimiter(data []byte) rune {
	counts := map[rune]int{}
	lines, inQuote := 0, false
	for _, ch := range string(data) {
		if ch == '"' {
			inQuote = !inQuote
			continue
		}
		if inQuote {
			continue
		}
		if ch == '\n' {
			lines++
			if lines >= 5 {
				break
			}
			continue
		}
		if ch == ',' || ch == ';' || ch == '\t' {
			counts[ch]++
		}
	}
	best := ','
	for _, d := range []rune{';', '\t'} {
		if counts[d] > counts[best] {
			best = d
		}
	}
	return best
}

func readXLSXRows(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "open xlsx")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("no sheets found in xlsx")
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, errors.Wrap(err, "read xlsx rows")
	}
	return rows, nil
}

// oleSignature prefixes every compound document, including BIFF .xls files.
var oleSignature = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

func readXLSRows(data []byte) (rows [][]string, err error) {
	// The legacy reader panics on some malformed BIFF streams.
	defer func() {
		if r := recover(); r != nil {
			rows, err = nil, errors.Errorf("read xls: %v", r)
		}
	}()

	if !bytes.HasPrefix(data, oleSignature) {
		return nil, errors.New("not a BIFF workbook")
	}
	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, errors.Wrap(err, "open xls")
	}
	if wb.NumSheets() == 0 {
		return nil, errors.New("no sheets found in xls")
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, errors.New("failed to get xls sheet")
	}

	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, 0, row.LastCol())
		for j := 0; j < row.LastCol(); j++ {
			cells = append(cells, row.Col(j))
		}
		rows = append(rows, cells)
	}
	return rows, nil
}
