package export

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ledger/internal/core"
)

func sampleTransactions() []core.Transaction {
	return []core.Transaction{
		{ID: "b", Type: core.Expense, Amount: core.Money{Cents: 1250}, Date: core.NewDate(2024, 3, 2), Category: "Food", Description: "lunch, with \"friends\""},
		{ID: "a", Type: core.Income, Amount: core.Money{Cents: 250000}, Date: core.NewDate(2024, 3, 1), Category: "Income"},
	}
}

func TestCodecsRoundTrip(t *testing.T) {
	for _, f := range []Format{CSV, JSON, YAML} {
		t.Run(string(f), func(t *testing.T) {
			codec, err := ForFormat(f)
			if err != nil {
				t.Fatalf("ForFormat: %v", err)
			}
			var buf bytes.Buffer
			if err := codec.Encode(&buf, sampleTransactions()); err != nil {
				t.Fatalf("Encode: %v", err)
			}
			got, err := codec.Decode(&buf)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			want := sampleTransactions()
			if len(got) != len(want) {
				t.Fatalf("got %d rows, want %d", len(got), len(want))
			}
			for i := range want {
				if got[i].ID != want[i].ID || got[i].Amount != want[i].Amount ||
					got[i].Date.String() != want[i].Date.String() || got[i].Type != want[i].Type ||
					got[i].Category != want[i].Category || got[i].Description != want[i].Description {
					t.Errorf("row %d = %+v, want %+v", i, got[i], want[i])
				}
			}
		})
	}
}

func TestCSVEncodeLayout(t *testing.T) {
	var buf bytes.Buffer
	if err := (CSVCodec{}).Encode(&buf, sampleTransactions()[1:]); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := "type,amount,date,category,description,id\nincome,2500.00,2024-03-01,Income,,a\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestCSVDecode(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		rows    int
		wantErr bool
	}{
		{"reordered columns without id", "date,category,amount,type\n2024-03-01,Food,\"12,50\",EXPENSE\n", 1, false},
		{"header only", "type,amount,date,category\n", 0, false},
		{"empty input", "", 0, false},
		{"missing column", "type,amount,date\nexpense,1,2024-03-01\n", 0, true},
		{"bad amount", "type,amount,date,category\nexpense,abc,2024-03-01,Food\n", 0, true},
		{"bad date", "type,amount,date,category\nexpense,1,01/03/2024,Food\n", 0, true},
		{"zero amount", "type,amount,date,category\nexpense,0,2024-03-01,Food\n", 0, true},
		{"negative amount", "type,amount,date,category\nexpense,-5,2024-03-01,Food\n", 0, true},
		{"oversized amount", "type,amount,date,category\nexpense,200000000000000000,2024-03-01,Food\n", 0, true},
		{"short row", "type,amount,date,category\nexpense,1\n", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := (CSVCodec{}).Decode(strings.NewReader(tt.in))
			if tt.wantErr {
				if !errors.Is(err, core.ErrValidation) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if len(got) != tt.rows {
				t.Fatalf("got %d rows, want %d", len(got), tt.rows)
			}
			if tt.rows == 1 && (got[0].Amount.Cents != 1250 || got[0].Type != core.Expense) {
				t.Errorf("unexpected row %+v", got[0])
			}
		})
	}
}

func TestJSONDecodeInvalidAmount(t *testing.T) {
	_, err := (JSONCodec{}).Decode(strings.NewReader(`[{"amount":"x","date":"2024-03-01","type":"expense","category":"Food"}]`))
	if !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{"csv": CSV, "JSON": JSON, ".yml": YAML, "yaml": YAML}
	for in, want := range tests {
		if got, err := ParseFormat(in); err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("expected error for xml")
	}
}

func TestWriteAndReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "export.yaml")
	if err := WriteFile(path, YAMLCodec{}, sampleTransactions()); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := WriteFile(path, YAMLCodec{}, sampleTransactions()[:1]); err != nil {
		t.Fatalf("WriteFile overwrite: %v", err)
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(got) != 1 || got[0].ID != "b" {
		t.Fatalf("unexpected snapshot %+v", got)
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %v", entries)
	}
}
