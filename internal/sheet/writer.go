// Package sheet appends product records to an xlsx workbook.
package sheet

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/masahif/shoptadoru/internal/model"
)

// ErrOutputIsTemplate is returned when the output would overwrite the template
var ErrOutputIsTemplate = errors.New("output path must differ from the template path")

const defaultSheet = "Sheet1"

var (
	// HeadersEN is the English header row
	HeadersEN = []string{"Name", "Price", "URL", "Image URL", "Description"}
	// HeadersRU is the Russian header row
	HeadersRU = []string{"Название", "Цена", "Ссылка", "Ссылка на изображение", "Описание"}
)

// Writer persists products to a workbook
type Writer struct {
	headers []string
}

// NewWriter creates a writer whose header row matches lang ("en" or "ru")
func NewWriter(lang string) *Writer {
	if lang == "ru" {
		return &Writer{headers: HeadersRU}
	}
	return &Writer{headers: HeadersEN}
}

// Headers returns the header row this writer emits on an empty sheet
func (w *Writer) Headers() []string {
	return append([]string(nil), w.headers...)
}

// Write appends products after the last used row of the template's active
// sheet, or of a new workbook, and saves the result to outPath.
// The template file itself is never modified.
func (w *Writer) Write(products []model.Product, outPath, templatePath string) error {
	if outPath == "" {
		return fmt.Errorf("output path is empty")
	}
	if templatePath != "" && samePath(outPath, templatePath) {
		return ErrOutputIsTemplate
	}

	f, sheet, err := openWorkbook(templatePath)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()

	lastRow, err := lastUsedRow(f, sheet)
	if err != nil {
		return err
	}

	if lastRow == 0 {
		if err := writeRow(f, sheet, 1, w.headers); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
		lastRow = 1
	}

	for i, product := range products {
		if err := writeRow(f, sheet, lastRow+1+i, product.Row()); err != nil {
			return fmt.Errorf("failed to write product %s: %w", product.URL, err)
		}
	}

	if dir := filepath.Dir(outPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := f.SaveAs(outPath); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", outPath, err)
	}

	return nil
}

// openWorkbook opens the template when it exists, otherwise a new workbook
func openWorkbook(templatePath string) (*excelize.File, string, error) {
	if templatePath != "" {
		if _, err := os.Stat(templatePath); err == nil {
			f, err := excelize.OpenFile(templatePath)
			if err != nil {
				return nil, "", fmt.Errorf("failed to open template %s: %w", templatePath, err)
			}
			return f, f.GetSheetName(f.GetActiveSheetIndex()), nil
		}
	}

	return excelize.NewFile(), defaultSheet, nil
}

// lastUsedRow returns the 1-based index of the last row holding any value,
// or 0 for an empty sheet.
func lastUsedRow(f *excelize.File, sheet string) (int, error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return 0, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}

	last := 0
	for i, row := range rows {
		for _, value := range row {
			if value != "" {
				last = i + 1
				break
			}
		}
	}
	return last, nil
}

// writeRow sets the non-empty values of one row; empty values stay blank
func writeRow(f *excelize.File, sheet string, row int, values []string) error {
	for col, value := range values {
		if value == "" {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellStr(sheet, cell, value); err != nil {
			return err
		}
	}
	return nil
}

// samePath reports whether two paths name the same file
func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA == nil && errB == nil && absA == absB {
		return true
	}

	infoA, errA := os.Stat(a)
	infoB, errB := os.Stat(b)
	return errA == nil && errB == nil && os.SameFile(infoA, infoB)
}
