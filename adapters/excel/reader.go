package excel

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"trgemu/domain/dataset"

	"github.com/klauspost/compress/zstd"
	"github.com/xuri/excelize/v2"
)

const (
	fileTypeCSV  = "csv"
	fileTypeZstd = "csv.zst"
	fileTypeXLSX = "xlsx"
)

// FileType classifies a path by extension; the empty string means the
// path is not a table file.
func FileType(path string) string {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".csv.zst"):
		return fileTypeZstd
	case filepath.Ext(lower) == ".csv":
		return fileTypeCSV
	case filepath.Ext(lower) == ".xlsx":
		return fileTypeXLSX
	}
	return ""
}

// SheetName maps a tree path such as "TupleB0/DecayTree" to a legal worksheet name.
func SheetName(table string) string {
	name := strings.NewReplacer("/", "_", "\\", "_", ":", "_", "*", "_", "?", "_", "[", "_", "]", "_").Replace(table)
	if name == "" {
		return "Sheet1"
	}
	if len(name) > 31 {
		name = name[len(name)-31:]
	}
	return name
}

// DataReader handles reading Excel and CSV event tables
type DataReader struct {
	filePath string
	fileType string
}

// NewDataReader creates a reader for a .csv, .csv.zst or .xlsx file
func NewDataReader(filePath string) *DataReader {
	return &DataReader{filePath: filePath, fileType: FileType(filePath)}
}

// ReadTable reads the table into a dataset. CSV files hold a single table,
// so table only selects the worksheet of an .xlsx file.
func (r *DataReader) ReadTable(ctx context.Context, table string) (*dataset.Dataset, error) {
	log.Printf("[DataReader] Starting to read %s file: %s", r.fileType, r.filePath)

	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s file not found: %s", strings.ToUpper(r.fileType), r.filePath)
	}

	var (
		rows [][]string
		err  error
	)
	switch r.fileType {
	case fileTypeCSV, fileTypeZstd:
		rows, err = r.readCSVData()
	case fileTypeXLSX:
		rows, err = r.readExcelData(SheetName(table))
	default:
		return nil, fmt.Errorf("unsupported file type: %s", r.filePath)
	}
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.processRows(ctx, rows)
}

// readExcelData reads one worksheet
func (r *DataReader) readExcelData(sheet string) ([][]string, error) {
	startTime := time.Now()
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()
	log.Printf("[DataReader] Excel file opened in %.2fms", float64(time.Since(startTime).Nanoseconds())/1e6)

	readStart := time.Now()
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	log.Printf("[DataReader] %s read in %.2fms (%d rows)", sheet, float64(time.Since(readStart).Nanoseconds())/1e6, len(rows))

	if len(rows) < 1 {
		return nil, fmt.Errorf("sheet %s has no header row", sheet)
	}
	return rows, nil
}

// readCSVData reads a plain or zstd-compressed CSV file
func (r *DataReader) readCSVData() ([][]string, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	var src io.Reader = file
	if r.fileType == fileTypeZstd {
		dec, err := zstd.NewReader(file)
		if err != nil {
			return nil, fmt.Errorf("failed to open zstd stream: %w", err)
		}
		defer dec.Close()
		src = dec
	}

	reader := csv.NewReader(src)
	reader.ReuseRecord = false
	readStart := time.Now()
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	log.Printf("[DataReader] CSV file read in %.2fms (%d rows)", float64(time.Since(readStart).Nanoseconds())/1e6, len(rows))

	if len(rows) < 1 {
		return nil, fmt.Errorf("CSV file must have at least a header row")
	}
	return rows, nil
}

// processRows converts raw string rows into typed columns
func (r *DataReader) processRows(ctx context.Context, rows [][]string) (*dataset.Dataset, error) {
	headerRow := rows[0]
	headers := make([]string, len(headerRow))
	for i, header := range headerRow {
		headers[i] = strings.TrimSpace(header)
		if headers[i] == "" {
			return nil, fmt.Errorf("column %d has an empty header", i+1)
		}
	}

	body := rows[1:]
	columns := make([]*dataset.Column, len(headers))
	cells := make([]string, len(body))
	for j, name := range headers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for i, row := range body {
			if j < len(row) {
				cells[i] = strings.TrimSpace(row[j])
			} else {
				cells[i] = ""
			}
		}
		columns[j] = InferColumn(name, cells)
	}

	ds, err := dataset.New(columns...)
	if err != nil {
		return nil, err
	}
	log.Printf("[DataReader] %s file processed (%d columns, %d rows)",
		strings.ToUpper(r.fileType), ds.NumColumns(), ds.NumRows())
	return ds, nil
}
