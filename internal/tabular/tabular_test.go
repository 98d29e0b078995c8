package tabular

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/parquet-go/parquet-go"

	"github.com/kailas-cloud/housepipe/internal/domain/frame"
)

const housesCSV = `Id,LotFrontage,LotArea,YearBuilt,SaleType,CentralAir,SalePrice
1,65,8450,2003,WD,True,208500
2,NA,9600,1976,WD,False,181500
3,68.5,11250,,New,True,223500
4,60,9550,1915,,True,140000
`

func TestReadCSV_InfersColumnTypes(t *testing.T) {
	f, err := ReadCSV(strings.NewReader(housesCSV))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if f.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", f.Len())
	}

	tests := []struct {
		col  string
		kind frame.Kind
	}{
		{"Id", frame.KindInt},
		{"LotFrontage", frame.KindFloat},
		{"LotArea", frame.KindInt},
		{"YearBuilt", frame.KindInt},
		{"SaleType", frame.KindString},
		{"CentralAir", frame.KindBool},
	}
	for _, tc := range tests {
		if got := f.Kind(tc.col); got != tc.kind {
			t.Errorf("%s kind = %s, want %s", tc.col, got, tc.kind)
		}
	}

	frontage, _ := f.Column("LotFrontage")
	if frontage[1] != nil || frontage[2] != 68.5 {
		t.Errorf("LotFrontage = %v", frontage)
	}
	years, _ := f.Column("YearBuilt")
	if years[2] != nil || years[0] != int64(2003) {
		t.Errorf("YearBuilt = %v", years)
	}
	sale, _ := f.Column("SaleType")
	if sale[3] != nil {
		t.Errorf("empty SaleType = %v, want nil", sale[3])
	}
}

func TestReadCSV_Errors(t *testing.T) {
	if _, err := ReadCSV(strings.NewReader("")); err == nil {
		t.Error("expected error for empty document")
	}
	if _, err := ReadCSV(strings.NewReader("a,b\n1,2,3\n")); err == nil {
		t.Error("expected error for ragged row")
	}
	if _, err := ReadCSV(strings.NewReader("a,a\n1,2\n")); err == nil {
		t.Error("expected error for duplicate header")
	}
}

func TestReadCSV_HeaderOnly(t *testing.T) {
	f, err := ReadCSV(strings.NewReader("LotArea,SaleType\n"))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if f.Len() != 0 || len(f.Columns()) != 2 {
		t.Errorf("got %d rows, columns %v", f.Len(), f.Columns())
	}
}

func TestReadCSV_NonDecimalNumbersStayStrings(t *testing.T) {
	f, err := ReadCSV(strings.NewReader("a,b,c\n1.5,0x1p4,Inf\n2,1_000,3\n"))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	for col, want := range map[string]frame.Kind{"a": frame.KindFloat, "b": frame.KindString, "c": frame.KindString} {
		if got := f.Kind(col); got != want {
			t.Errorf("%s kind = %s, want %s", col, got, want)
		}
	}
}

func TestWriteCSV(t *testing.T) {
	f, err := frame.New("SaleType", "LotArea", "PredictedSalePrice")
	if err != nil {
		t.Fatalf("frame.New: %v", err)
	}
	_ = f.AppendRow("WD", 8450, 208500.25)
	_ = f.AppendRow(nil, 9600, 181500.0)

	var buf bytes.Buffer
	if err := WriteCSV(&buf, f); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	want := "SaleType,LotArea,PredictedSalePrice\nWD,8450,208500.25\n,9600,181500\n"
	if buf.String() != want {
		t.Errorf("got\n%q\nwant\n%q", buf.String(), want)
	}
}

func TestFile_CSVRoundTrip(t *testing.T) {
	src, err := ReadCSV(strings.NewReader(housesCSV))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	path := filepath.Join(t.TempDir(), "nested", "out.csv")
	if err := WriteFile(path, src); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got.Len() != src.Len() {
		t.Fatalf("Len() = %d, want %d", got.Len(), src.Len())
	}
	for i := 0; i < src.Len(); i++ {
		a, b := src.Row(i), got.Row(i)
		for j := range a {
			if a[j] != b[j] {
				t.Errorf("row %d col %d: %v != %v", i, j, a[j], b[j])
			}
		}
	}
}

type parquetHouse struct {
	LotFrontage *float64 `parquet:"LotFrontage,optional"`
	LotArea     int64    `parquet:"LotArea"`
	YearBuilt   int32    `parquet:"YearBuilt"`
	SaleType    string   `parquet:"SaleType"`
}

func TestReadFile_Parquet(t *testing.T) {
	frontage := 65.0
	rows := []parquetHouse{
		{LotFrontage: &frontage, LotArea: 8450, YearBuilt: 2003, SaleType: "WD"},
		{LotFrontage: nil, LotArea: 9600, YearBuilt: 1976, SaleType: "New"},
	}
	path := filepath.Join(t.TempDir(), "houses.parquet")
	if err := parquet.WriteFile(path, rows); err != nil {
		t.Fatalf("parquet.WriteFile: %v", err)
	}

	f, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if f.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", f.Len())
	}
	for _, c := range []string{"LotFrontage", "LotArea", "YearBuilt", "SaleType"} {
		if !f.Has(c) {
			t.Fatalf("missing column %s in %v", c, f.Columns())
		}
	}
	lf, _ := f.Column("LotFrontage")
	if lf[0] != 65.0 || lf[1] != nil {
		t.Errorf("LotFrontage = %v", lf)
	}
	years, _ := f.Column("YearBuilt")
	if years[1] != int64(1976) {
		t.Errorf("YearBuilt = %v", years)
	}
	sale, _ := f.Column("SaleType")
	if sale[1] != "New" {
		t.Errorf("SaleType = %v", sale)
	}
}

func TestReadFile_Missing(t *testing.T) {
	if _, err := ReadFile(filepath.Join(t.TempDir(), "nope.csv")); err == nil {
		t.Error("expected error for missing file")
	}
}
