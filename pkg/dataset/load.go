package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// LoadError reports a failed load: bad path, corrupt file, or missing sheet.
type LoadError struct {
	Path  string
	Sheet string
	Err   error
}

func (e *LoadError) Error() string {
	if e.Sheet != "" {
		return fmt.Sprintf("load %s (sheet %q): %v", e.Path, e.Sheet, e.Err)
	}
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Load parses a tabular source file into a Dataset. Workbooks (.xlsx, .xlsm)
// support sheet selection by name; an empty sheet selects the first one.
// CSV files are a single table and reject a sheet selector.
func Load(path, sheet string) (*Dataset, error) {
	switch ext(path) {
	case ".xlsx", ".xlsm":
		return loadWorkbook(path, sheet)
	case ".csv":
		if strings.TrimSpace(sheet) != "" {
			return nil, &LoadError{Path: path, Sheet: sheet, Err: errors.New("csv sources have no sheets")}
		}
		return loadCSV(path)
	default:
		return nil, &LoadError{Path: path, Err: fmt.Errorf("unsupported file type %q", ext(path))}
	}
}

// ListSheets introspects a source without loading it. CSV sources report a
// single pseudo-sheet named after the file.
func ListSheets(path string) ([]string, error) {
	switch ext(path) {
	case ".xlsx", ".xlsm":
		f, err := excelize.OpenFile(path)
		if err != nil {
			return nil, &LoadError{Path: path, Err: err}
		}
		defer func() {
			_ = f.Close()
		}()
		return f.GetSheetList(), nil
	case ".csv":
		if _, err := os.Stat(path); err != nil {
			return nil, &LoadError{Path: path, Err: err}
		}
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		return []string{name}, nil
	default:
		return nil, &LoadError{Path: path, Err: fmt.Errorf("unsupported file type %q", ext(path))}
	}
}

func loadWorkbook(path, sheet string) (*Dataset, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Sheet: sheet, Err: err}
	}
	defer func() {
		_ = f.Close()
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &LoadError{Path: path, Err: errors.New("workbook has no sheets")}
	}

	selected := strings.TrimSpace(sheet)
	if selected == "" {
		selected = sheets[0]
	} else if !containsFold(sheets, selected) {
		return nil, &LoadError{Path: path, Sheet: sheet, Err: fmt.Errorf("sheet not found (have %s)", strings.Join(sheets, ", "))}
	}

	rows, err := f.GetRows(selected)
	if err != nil {
		return nil, &LoadError{Path: path, Sheet: selected, Err: err}
	}
	if len(rows) == 0 {
		return nil, &LoadError{Path: path, Sheet: selected, Err: errors.New("sheet is empty")}
	}
	return New(path, selected, rows[0], rows[1:]), nil
}

func loadCSV(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	defer func() {
		_ = f.Close()
	}()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("read header: %w", err)}
	}

	var rows [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &LoadError{Path: path, Err: fmt.Errorf("read row: %w", err)}
		}
		rows = append(rows, rec)
	}
	return New(path, "", header, rows), nil
}

func ext(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

func containsFold(list []string, want string) bool {
	for _, s := range list {
		if strings.EqualFold(s, want) {
			return true
		}
	}
	return false
}
