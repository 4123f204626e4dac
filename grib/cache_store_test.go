package grib

import (
	"errors"
	"testing"
)

func TestFSCache_RoundTrip(t *testing.T) {
	store, err := NewFSCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := store.Get("missing.json"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected ErrCacheMiss, got %v", err)
	}

	if err := store.Put("entry.json", []byte("one")); err != nil {
		t.Fatal(err)
	}
	data, err := store.Get("entry.json")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "one" {
		t.Errorf("got %q, want %q", data, "one")
	}

	// Put overwrites.
	if err := store.Put("entry.json", []byte("two")); err != nil {
		t.Fatal(err)
	}
	data, err = store.Get("entry.json")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "two" {
		t.Errorf("got %q after overwrite, want %q", data, "two")
	}

	if err := store.Delete("entry.json"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get("entry.json"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected ErrCacheMiss after delete, got %v", err)
	}

	// Deleting again is fine.
	if err := store.Delete("entry.json"); err != nil {
		t.Fatal(err)
	}
}

func TestFSCache_RejectsUnsafeKeys(t *testing.T) {
	store, err := NewFSCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	for _, key := range []string{"", ".", "..", "a/b", `a\b`, "../escape"} {
		if err := store.Put(key, []byte("x")); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Put(%q): expected ErrInvalidKey, got %v", key, err)
		}
		if _, err := store.Get(key); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Get(%q): expected ErrInvalidKey, got %v", key, err)
		}
	}
}

func TestFSCache_RequiresDir(t *testing.T) {
	if _, err := NewFSCache(""); err == nil {
		t.Fatal("expected error for empty cache dir")
	}
}

func TestMemCache_RoundTrip(t *testing.T) {
	store := NewMemCache()

	if _, err := store.Get("k"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected ErrCacheMiss, got %v", err)
	}

	payload := []byte("payload")
	if err := store.Put("k", payload); err != nil {
		t.Fatal(err)
	}

	// The store must not alias caller slices.
	payload[0] = 'X'
	data, err := store.Get("k")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "payload" {
		t.Errorf("stored data aliased caller buffer: %q", data)
	}

	// Nor hand back its own backing array.
	data[0] = 'Y'
	again, err := store.Get("k")
	if err != nil {
		t.Fatal(err)
	}
	if string(again) != "payload" {
		t.Errorf("returned data aliased store buffer: %q", again)
	}

	if err := store.Delete("k"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get("k"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected ErrCacheMiss after delete, got %v", err)
	}
}
