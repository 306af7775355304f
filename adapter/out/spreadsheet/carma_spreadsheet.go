// Package spreadsheet reads procurement logs from .xlsx workbooks.
package spreadsheet

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"carma_server/core/domain"
	"carma_server/core/port/out"
)

// Reader implements out.SpreadsheetSource. Directory names are relative to root.
type Reader struct {
	root string
}

var _ out.SpreadsheetSource = (*Reader)(nil)

func NewReader(root string) *Reader {
	return &Reader{root: root}
}

// ReadAll parses the first sheet of every .xlsx file in dir, in name order. The first
// row is the header; at most maxRows data rows are kept per file. Files that fail to
// parse are returned in skipped. A missing directory yields no sheets.
func (r *Reader) ReadAll(ctx context.Context, dir string, maxRows int) ([]domain.Spreadsheet, []error, error) {
	full := filepath.Join(r.root, filepath.FromSlash(dir))
	entries, err := os.ReadDir(full)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".xlsx") && !strings.HasPrefix(e.Name(), "~$") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var (
		sheets  []domain.Spreadsheet
		skipped []error
	)
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return sheets, skipped, err
		}
		sh, err := readFile(filepath.Join(full, name), maxRows)
		if err != nil {
			skipped = append(skipped, fmt.Errorf("%s: %w", name, err))
			continue
		}
		sh.Filename = name
		sheets = append(sheets, sh)
	}
	return sheets, skipped, nil
}

func readFile(path string, maxRows int) (domain.Spreadsheet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return domain.Spreadsheet{}, err
	}
	defer f.Close()

	list := f.GetSheetList()
	if len(list) == 0 {
		return domain.Spreadsheet{}, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(list[0])
	if err != nil {
		return domain.Spreadsheet{}, err
	}
	return FromRows(rows, maxRows), nil
}

// FromRows turns raw rows into records keyed by header. Blank rows are dropped and
// unnamed columns are called "Unnamed: <index>".
func FromRows(rows [][]string, maxRows int) domain.Spreadsheet {
	sh := domain.Spreadsheet{Columns: []string{}, Records: []map[string]string{}}
	if len(rows) == 0 {
		return sh
	}

	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	for i := 0; i < width; i++ {
		name := ""
		if i < len(rows[0]) {
			name = strings.TrimSpace(rows[0][i])
		}
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		sh.Columns = append(sh.Columns, name)
	}

	for _, row := range rows[1:] {
		if blank(row) {
			continue
		}
		sh.RowCount++
		if maxRows > 0 && len(sh.Records) >= maxRows {
			continue
		}
		rec := make(map[string]string, width)
		for i, col := range sh.Columns {
			v := ""
			if i < len(row) {
				v = strings.TrimSpace(row[i])
			}
			rec[col] = v
		}
		sh.Records = append(sh.Records, rec)
	}
	return sh
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
