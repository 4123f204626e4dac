package grib

import (
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

type record struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

func TestSidecars_RoundTrip(t *testing.T) {
	sc := testSidecars(NewMemCache())

	in := record{Name: "2t", Value: 273.15}
	sc.save("ns", "/data/a.grib", in)

	var out record
	if err := sc.load("ns", "/data/a.grib", &out); err != nil {
		t.Fatal(err)
	}
	if out != in {
		t.Errorf("got %+v, want %+v", out, in)
	}
}

func TestSidecars_ZstdRoundTrip(t *testing.T) {
	store := NewMemCache()
	sc := &sidecars{store: store, compression: SidecarCompressionZstd, log: zerolog.Nop()}

	in := record{Name: "msl", Value: 101325}
	sc.save("ns", "/data/a.grib", in)

	// The stored payload must actually be compressed, not plain JSON.
	raw, err := store.Get(sc.key("ns", "/data/a.grib"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(raw), "msl") {
		t.Error("payload stored uncompressed")
	}

	var out record
	if err := sc.load("ns", "/data/a.grib", &out); err != nil {
		t.Fatal(err)
	}
	if out != in {
		t.Errorf("got %+v, want %+v", out, in)
	}
}

func TestSidecars_AbsentIsCacheMiss(t *testing.T) {
	sc := testSidecars(NewMemCache())

	var out record
	if err := sc.load("ns", "/data/a.grib", &out); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected ErrCacheMiss, got %v", err)
	}
}

func TestSidecars_MalformedIsCacheMiss(t *testing.T) {
	store := NewMemCache()
	sc := testSidecars(store)

	if err := store.Put(sc.key("ns", "/data/a.grib"), []byte("not json at all")); err != nil {
		t.Fatal(err)
	}

	var out record
	if err := sc.load("ns", "/data/a.grib", &out); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected ErrCacheMiss, got %v", err)
	}
}

func TestSidecars_BadCompressionIsCacheMiss(t *testing.T) {
	store := NewMemCache()
	sc := &sidecars{store: store, compression: SidecarCompressionZstd, log: zerolog.Nop()}

	// Valid JSON, but not a zstd frame.
	if err := store.Put(sc.key("ns", "/data/a.grib"), []byte(`{"name":"x"}`)); err != nil {
		t.Fatal(err)
	}

	var out record
	if err := sc.load("ns", "/data/a.grib", &out); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected ErrCacheMiss, got %v", err)
	}
}

func TestSidecars_KeysSeparateNamespacesAndPaths(t *testing.T) {
	sc := testSidecars(NewMemCache())

	keys := map[string]bool{
		sc.key(indexNamespace, "/data/a.grib"):      true,
		sc.key(statisticsNamespace, "/data/a.grib"): true,
		sc.key(indexNamespace, "/data/b.grib"):      true,
	}
	if len(keys) != 3 {
		t.Errorf("expected 3 distinct keys, got %d", len(keys))
	}
	for key := range keys {
		if strings.ContainsAny(key, "/\\") {
			t.Errorf("key %q is not flat", key)
		}
	}
}
