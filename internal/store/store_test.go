package store

import (
	"errors"
	"os"
	"testing"
)

type doc struct {
	ID    string `json:"id"`
	Value int    `json:"value"`
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s, err := New(t.TempDir() + "/quotes")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	want := doc{ID: "e-1", Value: 42}
	if err := s.Save("e-1", want); err != nil {
		t.Fatalf("save: %v", err)
	}
	var got doc
	if err := s.Load("e-1", &got); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestExists(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ok, err := s.Exists("missing")
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if ok {
		t.Fatal("expected missing document")
	}
	if err := s.Save("present", doc{ID: "present"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	ok, err = s.Exists("present")
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if !ok {
		t.Fatal("expected document to exist")
	}
}

func TestLoadMissingIsNotExist(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	var got doc
	err = s.Load("nope", &got)
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}
}

func TestListSkipsTempFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	for _, id := range []string{"b", "a", "c"} {
		if err := s.Save(id, doc{ID: id}); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}
	if err := os.WriteFile(dir+"/.a.tmp-123", []byte("{}"), 0o600); err != nil {
		t.Fatalf("write temp: %v", err)
	}
	ids, err := s.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ids) != 3 || ids[0] != "a" || ids[2] != "c" {
		t.Fatalf("unexpected ids: %v", ids)
	}
}

func TestSaveOverwritesFully(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := s.Save("e-1", doc{ID: "e-1", Value: 1}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Save("e-1", doc{ID: "e-1", Value: 2}); err != nil {
		t.Fatalf("save again: %v", err)
	}
	var got doc
	if err := s.Load("e-1", &got); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Value != 2 {
		t.Fatalf("expected superseded value 2, got %d", got.Value)
	}
}
