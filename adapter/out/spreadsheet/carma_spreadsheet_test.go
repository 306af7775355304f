package spreadsheet

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, path string, rows [][]any) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
}

func TestReadAll(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "data", "attachments")
	os.MkdirAll(dir, 0o755)

	writeWorkbook(t, filepath.Join(dir, "b_log.xlsx"), [][]any{
		{"Vendor", "Material", "Lead Time"},
		{"ABC Steel", "Rebar", 14},
		{"Elite", "Glass", ""},
		{"Pacific", "Casework", 30},
	})
	writeWorkbook(t, filepath.Join(dir, "a_log.xlsx"), [][]any{{"Vendor"}, {"Solo"}})
	os.WriteFile(filepath.Join(dir, "broken.xlsx"), []byte("not a zip"), 0o644)
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644)

	sheets, skipped, err := NewReader(root).ReadAll(context.Background(), "data/attachments", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(skipped) != 1 {
		t.Errorf("skipped = %v", skipped)
	}
	if len(sheets) != 2 || sheets[0].Filename != "a_log.xlsx" || sheets[1].Filename != "b_log.xlsx" {
		t.Fatalf("sheets = %+v", sheets)
	}

	b := sheets[1]
	if b.RowCount != 3 || len(b.Records) != 2 {
		t.Errorf("RowCount = %d, records = %d", b.RowCount, len(b.Records))
	}
	if b.Records[0]["Vendor"] != "ABC Steel" || b.Records[0]["Lead Time"] != "14" || b.Records[1]["Lead Time"] != "" {
		t.Errorf("records = %+v", b.Records)
	}
}

func TestReadAll_MissingDir(t *testing.T) {
	sheets, skipped, err := NewReader(t.TempDir()).ReadAll(context.Background(), "data/attachments", 50)
	if err != nil || sheets != nil || skipped != nil {
		t.Fatalf("got %v, %v, %v", sheets, skipped, err)
	}
}

func TestFromRows(t *testing.T) {
	sh := FromRows([][]string{
		{"Vendor", "", "Status"},
		{"ABC", "x", "Open", "extra"},
		{"", " ", ""},
		{"Elite"},
	}, 0)

	want := []string{"Vendor", "Unnamed: 1", "Status", "Unnamed: 3"}
	for i, c := range want {
		if sh.Columns[i] != c {
			t.Errorf("Columns = %v, want %v", sh.Columns, want)
			break
		}
	}
	if sh.RowCount != 2 || sh.Records[0]["Unnamed: 3"] != "extra" || sh.Records[1]["Status"] != "" {
		t.Errorf("sheet = %+v", sh)
	}
}
