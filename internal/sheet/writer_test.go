package sheet

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/masahif/shoptadoru/internal/model"
)

func sampleProducts() []model.Product {
	return []model.Product{
		{Name: "Kettle", Price: "1299.00", URL: "https://shop.example/p/1", ImageURL: "https://shop.example/1.jpg", Description: "Steel"},
		{Name: "Mug", URL: "https://shop.example/p/2"},
	}
}

func readRows(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("Failed to open workbook: %v", err)
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(f.GetSheetName(f.GetActiveSheetIndex()))
	if err != nil {
		t.Fatalf("Failed to read rows: %v", err)
	}
	return rows
}

func expectRow(t *testing.T, rows [][]string, index int, want []string) {
	t.Helper()
	if !slices.Equal(rows[index], want) {
		t.Errorf("Row %d: expected %q, got %q", index+1, want, rows[index])
	}
}

func TestWriteNewWorkbook(t *testing.T) {
	out := filepath.Join(t.TempDir(), "products.xlsx")

	if err := NewWriter("en").Write(sampleProducts(), out, ""); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	rows := readRows(t, out)
	if len(rows) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(rows))
	}
	expectRow(t, rows, 0, HeadersEN)
	expectRow(t, rows, 1, []string{"Kettle", "1299.00", "https://shop.example/p/1", "https://shop.example/1.jpg", "Steel"})
	// Trailing blank cells are not materialised
	expectRow(t, rows, 2, []string{"Mug", "", "https://shop.example/p/2"})
}

func TestWriteRussianHeaders(t *testing.T) {
	out := filepath.Join(t.TempDir(), "products.xlsx")

	if err := NewWriter("ru").Write(nil, out, ""); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	rows := readRows(t, out)
	if len(rows) != 1 {
		t.Fatalf("Expected header row only, got %d rows", len(rows))
	}
	expectRow(t, rows, 0, HeadersRU)
}

func TestWriteAppendsAfterTemplateRows(t *testing.T) {
	dir := t.TempDir()
	template := filepath.Join(dir, "template.xlsx")
	out := filepath.Join(dir, "out.xlsx")

	tf := excelize.NewFile()
	if err := tf.SetSheetRow("Sheet1", "A1", &[]string{"Product", "Cost", "Link"}); err != nil {
		t.Fatalf("Failed to build template: %v", err)
	}
	if err := tf.SetSheetRow("Sheet1", "A2", &[]string{"Existing", "10", "https://shop.example/old"}); err != nil {
		t.Fatalf("Failed to build template: %v", err)
	}
	// A value further down must not be overwritten either
	if err := tf.SetCellStr("Sheet1", "B4", "note"); err != nil {
		t.Fatalf("Failed to build template: %v", err)
	}
	if err := tf.SaveAs(template); err != nil {
		t.Fatalf("Failed to save template: %v", err)
	}
	_ = tf.Close()

	before, err := os.ReadFile(template)
	if err != nil {
		t.Fatalf("Failed to read template: %v", err)
	}

	if err := NewWriter("en").Write(sampleProducts(), out, template); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	rows := readRows(t, out)
	if len(rows) != 6 {
		t.Fatalf("Expected 6 rows, got %d", len(rows))
	}
	expectRow(t, rows, 0, []string{"Product", "Cost", "Link"})
	expectRow(t, rows, 1, []string{"Existing", "10", "https://shop.example/old"})
	expectRow(t, rows, 3, []string{"", "note"})
	if rows[4][0] != "Kettle" || rows[5][0] != "Mug" {
		t.Errorf("Expected products after the last used row, got %q and %q", rows[4], rows[5])
	}

	after, err := os.ReadFile(template)
	if err != nil {
		t.Fatalf("Failed to read template: %v", err)
	}
	if !bytes.Equal(before, after) {
		t.Error("Template file was modified")
	}
}

func TestWriteMissingTemplateStartsFresh(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.xlsx")

	if err := NewWriter("en").Write(sampleProducts(), out, filepath.Join(dir, "missing.xlsx")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	rows := readRows(t, out)
	if len(rows) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(rows))
	}
	expectRow(t, rows, 0, HeadersEN)
}

func TestWriteRejectsTemplateAsOutput(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "same.xlsx")

	for _, template := range []string{path, filepath.Join(dir, ".", "same.xlsx")} {
		err := NewWriter("en").Write(sampleProducts(), path, template)
		if !errors.Is(err, ErrOutputIsTemplate) {
			t.Errorf("Expected ErrOutputIsTemplate for template %s, got %v", template, err)
		}
	}
}

func TestWriteCreatesOutputDirectory(t *testing.T) {
	out := filepath.Join(t.TempDir(), "nested", "dir", "products.xlsx")

	if err := NewWriter("en").Write(sampleProducts(), out, ""); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if _, err := os.Stat(out); err != nil {
		t.Errorf("Expected output file to exist: %v", err)
	}
}

func TestHeadersReturnsCopy(t *testing.T) {
	w := NewWriter("en")
	headers := w.Headers()
	headers[0] = "changed"

	if got := w.Headers()[0]; got != "Name" {
		t.Errorf("Expected headers to be unaffected, got %q", got)
	}
}
