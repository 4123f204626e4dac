package grib_test

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/justapithecus/grib/grib"
	"github.com/justapithecus/grib/internal/gribtest"
)

// twoFieldFile writes a two-message file (one edition-1, one edition-2) and
// scripts a decoder for it: a 2x3 temperature field followed by a 2x3
// pressure field six forecast hours later.
func twoFieldFile(t *testing.T) (string, *gribtest.Decoder) {
	t.Helper()
	path := gribtest.WriteFile(t, gribtest.BuildFile(
		gribtest.Edition1Message(40),
		gribtest.Edition2Message(64),
	))
	dec := gribtest.NewDecoder(
		gribtest.MessageSpec{
			Offset: 0,
			Length: 40,
			Scalars: map[string]any{
				"Nj": 2, "Ni": 3,
				"date": 20200513, "time": 1200, "endStep": 0,
				"shortName": "2t", "units": "K", "paramId": 167, "level": 2,
				"latitudeOfFirstGridPointInDegrees":  60.0,
				"latitudeOfLastGridPointInDegrees":   40.0,
				"longitudeOfFirstGridPointInDegrees": -10.0,
				"longitudeOfLastGridPointInDegrees":  10.0,
				"jDirectionIncrementInDegrees":       10.0,
				"iDirectionIncrementInDegrees":       10.0,
			},
			Arrays: map[string][]float64{
				"values": {273.1, 273.2, 273.3, 273.4, 273.5, 273.6},
			},
		},
		gribtest.MessageSpec{
			Offset: 40,
			Length: 64,
			Scalars: map[string]any{
				"Nj": 2, "Ni": 3,
				"date": 20200513, "time": 1200, "endStep": 6,
				"shortName": "msl", "units": "Pa", "paramId": 151, "level": 0,
				"latitudeOfFirstGridPointInDegrees":  70.0,
				"latitudeOfLastGridPointInDegrees":   50.0,
				"longitudeOfFirstGridPointInDegrees": 0.0,
				"longitudeOfLastGridPointInDegrees":  20.0,
				"jDirectionIncrementInDegrees":       10.0,
				"iDirectionIncrementInDegrees":       10.0,
			},
			Arrays: map[string][]float64{
				"values": {101300, 101310, 101320, 101330, 101340, 101350},
			},
		},
	)
	return path, dec
}

func openTwoFieldReader(t *testing.T) (*grib.Reader, *gribtest.Decoder) {
	t.Helper()
	path, dec := twoFieldFile(t)
	r, err := grib.OpenReader(path,
		grib.WithDecoder(dec),
		grib.WithCacheStore(grib.NewMemCache()),
	)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { r.Close() })
	return r, dec
}

func TestOpenReader_MissingFile(t *testing.T) {
	_, err := grib.OpenReader("/no/such/file.grib", grib.WithCacheStore(grib.NewMemCache()))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestReader_LenAndIndex(t *testing.T) {
	r, _ := openTwoFieldReader(t)

	if r.Len() != 2 {
		t.Fatalf("expected 2 messages, got %d", r.Len())
	}
	ix := r.Index()
	if got := ix.Message(0); got.Offset != 0 || got.Length != 40 {
		t.Errorf("message 0: (%d, %d), want (0, 40)", got.Offset, got.Length)
	}
	if got := ix.Message(1); got.Offset != 40 || got.Length != 64 {
		t.Errorf("message 1: (%d, %d), want (40, 64)", got.Offset, got.Length)
	}
}

func TestReader_At(t *testing.T) {
	r, _ := openTwoFieldReader(t)

	second, err := r.At(1)
	if err != nil {
		t.Fatal(err)
	}
	defer second.Close()

	v, err := second.Values()
	if err != nil {
		t.Fatal(err)
	}
	if v[0] != 101300 {
		t.Errorf("got %v, want pressure field first", v[0])
	}

	// Random access backwards after reading forward.
	first, err := r.First()
	if err != nil {
		t.Fatal(err)
	}
	defer first.Close()

	v, err = first.Values()
	if err != nil {
		t.Fatal(err)
	}
	if v[0] != 273.1 {
		t.Errorf("got %v, want temperature field first", v[0])
	}
}

func TestReader_AtOutOfRange(t *testing.T) {
	r, _ := openTwoFieldReader(t)

	for _, n := range []int{-1, 2, 100} {
		if _, err := r.At(n); !errors.Is(err, grib.ErrFieldRange) {
			t.Errorf("At(%d): expected ErrFieldRange, got %v", n, err)
		}
	}
}

func TestReader_IterationMatchesIndexedAccess(t *testing.T) {
	r, _ := openTwoFieldReader(t)

	it, err := r.Fields()
	if err != nil {
		t.Fatal(err)
	}
	defer it.Close()

	for n := 0; ; n++ {
		iterated, err := it.Next()
		if err != nil {
			if errors.Is(err, grib.ErrNoMessage) {
				if n != r.Len() {
					t.Fatalf("iteration yielded %d fields, index has %d", n, r.Len())
				}
				break
			}
			t.Fatal(err)
		}

		indexed, err := r.At(n)
		if err != nil {
			t.Fatal(err)
		}

		iv, err := iterated.Values()
		if err != nil {
			t.Fatal(err)
		}
		nv, err := indexed.Values()
		if err != nil {
			t.Fatal(err)
		}
		for i := range iv {
			if iv[i] != nv[i] {
				t.Fatalf("field %d value %d: iterated %v, indexed %v", n, i, iv[i], nv[i])
			}
		}

		_ = iterated.Close()
		_ = indexed.Close()
	}
}

func TestReader_WithoutDecoderIsIndexOnly(t *testing.T) {
	path, _ := twoFieldFile(t)
	r, err := grib.OpenReader(path, grib.WithCacheStore(grib.NewMemCache()))
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	if r.Len() != 2 {
		t.Fatalf("expected 2 messages, got %d", r.Len())
	}

	if _, err := r.At(0); !errors.Is(err, grib.ErrNoDecoder) {
		t.Errorf("At: expected ErrNoDecoder, got %v", err)
	}
	if _, err := r.Fields(); !errors.Is(err, grib.ErrNoDecoder) {
		t.Errorf("Fields: expected ErrNoDecoder, got %v", err)
	}
}

func TestReader_IndexSidecarSurvivesSourceRewrite(t *testing.T) {
	path, dec := twoFieldFile(t)
	store := grib.NewMemCache()

	r, err := grib.OpenReader(path, grib.WithDecoder(dec), grib.WithCacheStore(store))
	if err != nil {
		t.Fatal(err)
	}
	wantLen := r.Len()
	r.Close()

	// Replace the source with an empty file. A second open against the same
	// store must serve the cached index rather than re-scanning.
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	again, err := grib.OpenReader(path, grib.WithCacheStore(store))
	if err != nil {
		t.Fatal(err)
	}
	defer again.Close()

	if again.Len() != wantLen {
		t.Errorf("expected cached index with %d messages, got %d", wantLen, again.Len())
	}
}

func TestReader_DateTimes(t *testing.T) {
	r, _ := openTwoFieldReader(t)

	times, err := r.DateTimes()
	if err != nil {
		t.Fatal(err)
	}

	want := []time.Time{
		time.Date(2020, 5, 13, 12, 0, 0, 0, time.UTC),
		time.Date(2020, 5, 13, 18, 0, 0, 0, time.UTC),
	}
	if len(times) != len(want) {
		t.Fatalf("expected %d datetimes, got %d: %v", len(want), len(times), times)
	}
	for i := range want {
		if !times[i].Equal(want[i]) {
			t.Errorf("datetime %d: %v, want %v", i, times[i], want[i])
		}
	}
}

func TestReader_BoundingBoxMergesFields(t *testing.T) {
	r, _ := openTwoFieldReader(t)

	box, err := r.BoundingBox()
	if err != nil {
		t.Fatal(err)
	}

	want := grib.BoundingBox{North: 70, South: 40, West: -10, East: 20}
	if box != want {
		t.Errorf("got %+v, want %+v", box, want)
	}
}

func TestReader_CloseReopensCursorOnDemand(t *testing.T) {
	r, _ := openTwoFieldReader(t)

	field, err := r.At(0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := field.Values(); err != nil {
		t.Fatal(err)
	}
	field.Close()

	if err := r.Close(); err != nil {
		t.Fatal(err)
	}

	// Closing released the shared cursor; a new one is opened on demand.
	field, err = r.At(0)
	if err != nil {
		t.Fatal(err)
	}
	defer field.Close()
	if _, err := field.Values(); err != nil {
		t.Fatal(err)
	}
}
