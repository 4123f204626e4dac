package grib_test

import (
	"bytes"
	"testing"

	"github.com/justapithecus/grib/grib"
)

func TestReader_Catalog(t *testing.T) {
	r, _ := openTwoFieldReader(t)

	entries, err := r.Catalog()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	first := entries[0]
	if first.Offset != 0 || first.Length != 40 {
		t.Errorf("entry 0 range (%d, %d), want (0, 40)", first.Offset, first.Length)
	}
	if first.ShortName == nil || *first.ShortName != "2t" {
		t.Error("entry 0 shortName missing or wrong")
	}
	if first.ParamID == nil || *first.ParamID != 167 {
		t.Error("entry 0 paramId missing or wrong")
	}
	if first.Rows == nil || *first.Rows != 2 || first.Cols == nil || *first.Cols != 3 {
		t.Error("entry 0 shape missing or wrong")
	}

	second := entries[1]
	if second.Offset != 40 || second.Length != 64 {
		t.Errorf("entry 1 range (%d, %d), want (40, 64)", second.Offset, second.Length)
	}
	if second.Step == nil || *second.Step != 6 {
		t.Error("entry 1 step missing or wrong")
	}
}

func TestCatalog_ParquetRoundTrip(t *testing.T) {
	r, _ := openTwoFieldReader(t)

	var buf bytes.Buffer
	n, err := r.WriteCatalog(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("wrote %d rows, want 2", n)
	}

	entries, err := grib.ReadCatalog(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("read %d entries, want 2", len(entries))
	}

	want, err := r.Catalog()
	if err != nil {
		t.Fatal(err)
	}
	for i := range want {
		if entries[i].Offset != want[i].Offset || entries[i].Length != want[i].Length {
			t.Errorf("entry %d range (%d, %d), want (%d, %d)",
				i, entries[i].Offset, entries[i].Length, want[i].Offset, want[i].Length)
		}
		switch {
		case entries[i].ShortName == nil && want[i].ShortName == nil:
		case entries[i].ShortName == nil || want[i].ShortName == nil:
			t.Errorf("entry %d shortName presence mismatch", i)
		case *entries[i].ShortName != *want[i].ShortName:
			t.Errorf("entry %d shortName %q, want %q", i, *entries[i].ShortName, *want[i].ShortName)
		}
	}
}
