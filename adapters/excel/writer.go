package excel

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"time"

	"trgemu/domain/dataset"

	"github.com/klauspost/compress/zstd"
	"github.com/xuri/excelize/v2"
)

// TableWriter writes dataset columns to a .csv, .csv.zst or .xlsx file
type TableWriter struct {
	filePath string
	fileType string
	config   TableConfig
}

func NewTableWriter(filePath string, config TableConfig) *TableWriter {
	return &TableWriter{filePath: filePath, fileType: FileType(filePath), config: config}
}

// WriteTable stores the named columns in order. CSV files are replaced;
// an existing workbook keeps its other sheets and only the table's sheet
// is replaced.
func (w *TableWriter) WriteTable(ctx context.Context, ds *dataset.Dataset, table string, columns []string) error {
	start := time.Now()
	projected, err := ds.Project(columns)
	if err != nil {
		return err
	}

	switch w.fileType {
	case fileTypeCSV, fileTypeZstd:
		err = w.writeCSV(ctx, projected)
	case fileTypeXLSX:
		err = w.writeExcel(ctx, projected, SheetName(table))
	default:
		return fmt.Errorf("unsupported file type: %s", w.filePath)
	}
	if err != nil {
		return err
	}
	log.Printf("[TableWriter] Wrote %d rows x %d columns to %s in %.2fms",
		projected.NumRows(), projected.NumColumns(), w.filePath, float64(time.Since(start).Nanoseconds())/1e6)
	return nil
}

func (w *TableWriter) writeCSV(ctx context.Context, ds *dataset.Dataset) (err error) {
	file, err := os.Create(w.filePath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()

	var dst io.Writer = file
	if w.fileType == fileTypeZstd {
		level := zstd.EncoderLevelFromZstd(w.config.CompressionLevel)
		enc, err := zstd.NewWriter(file, zstd.WithEncoderLevel(level))
		if err != nil {
			return fmt.Errorf("failed to create zstd stream: %w", err)
		}
		defer func() {
			if cerr := enc.Close(); err == nil {
				err = cerr
			}
		}()
		dst = enc
	}

	cw := csv.NewWriter(dst)
	if err := cw.Write(ds.Names()); err != nil {
		return err
	}
	cols := columnsOf(ds)
	record := make([]string, len(cols))
	for i := 0; i < ds.NumRows(); i++ {
		if i%8192 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		for j, c := range cols {
			record[j] = c.String(i)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (w *TableWriter) writeExcel(ctx context.Context, ds *dataset.Dataset, sheet string) error {
	if ds.NumRows() > w.config.MaxSheetRows {
		return fmt.Errorf("table has %d rows, a worksheet holds at most %d", ds.NumRows(), w.config.MaxSheetRows)
	}

	f, err := w.openWorkbook(sheet)
	if err != nil {
		return err
	}
	defer f.Close()

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("failed to open sheet %s: %w", sheet, err)
	}

	header := make([]interface{}, ds.NumColumns())
	for j, name := range ds.Names() {
		header[j] = name
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}

	cols := columnsOf(ds)
	for i := 0; i < ds.NumRows(); i++ {
		if i%8192 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		values := make([]interface{}, len(cols))
		for j, c := range cols {
			values[j] = cellValue(c, i)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, values); err != nil {
			return err
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}
	return f.SaveAs(w.filePath)
}

// openWorkbook opens an existing workbook with the sheet emptied, or a new
// workbook holding only the sheet.
func (w *TableWriter) openWorkbook(sheet string) (*excelize.File, error) {
	if _, err := os.Stat(w.filePath); err == nil {
		f, err := excelize.OpenFile(w.filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open Excel file: %w", err)
		}
		if idx, _ := f.GetSheetIndex(sheet); idx >= 0 {
			if len(f.GetSheetList()) == 1 {
				// a workbook needs one sheet; add a placeholder while replacing
				if _, err := f.NewSheet("trgemu_tmp"); err != nil {
					f.Close()
					return nil, err
				}
			}
			if err := f.DeleteSheet(sheet); err != nil {
				f.Close()
				return nil, err
			}
		}
		idx, err := f.NewSheet(sheet)
		if err != nil {
			f.Close()
			return nil, err
		}
		f.SetActiveSheet(idx)
		if tmp, _ := f.GetSheetIndex("trgemu_tmp"); tmp >= 0 {
			if err := f.DeleteSheet("trgemu_tmp"); err != nil {
				f.Close()
				return nil, err
			}
		}
		return f, nil
	}

	f := excelize.NewFile()
	if sheet != "Sheet1" {
		idx, err := f.NewSheet(sheet)
		if err != nil {
			f.Close()
			return nil, err
		}
		f.SetActiveSheet(idx)
		if err := f.DeleteSheet("Sheet1"); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

func columnsOf(ds *dataset.Dataset) []*dataset.Column {
	names := ds.Names()
	cols := make([]*dataset.Column, len(names))
	for j, name := range names {
		cols[j], _ = ds.Column(name)
	}
	return cols
}

func cellValue(c *dataset.Column, i int) interface{} {
	switch c.Kind() {
	case dataset.KindInt:
		return c.Int(i)
	case dataset.KindBool:
		return c.Bool(i)
	case dataset.KindString:
		return c.String(i)
	}
	v := c.Float(i)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}
