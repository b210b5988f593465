package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/swarmguard/carver/services/carver/scanner"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "carver.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newRecord(t *testing.T, sha string) Record {
	t.Helper()
	id, err := uuid.NewV7()
	if err != nil {
		t.Fatal(err)
	}
	return Record{
		ScanID:    id.String(),
		File:      "disk.img",
		FileSize:  18,
		SHA256:    sha,
		Workers:   3,
		Engine:    "naive",
		StartedAt: time.Now().UTC(),
		Matches:   []scanner.Match{{Signature: "png", Offset: 10, WorkerID: 1}},
	}
}

func TestSaveGet(t *testing.T) {
	s := openTemp(t)
	rec := newRecord(t, "aa")
	if err := s.Save(rec); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Get(rec.ScanID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ScanID != rec.ScanID || len(got.Matches) != 1 || got.Matches[0] != rec.Matches[0] {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if _, err := s.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListAndByFile(t *testing.T) {
	s := openTemp(t)
	first := newRecord(t, "aa")
	second := newRecord(t, "bb")
	third := newRecord(t, "aa")
	for _, r := range []Record{first, second, third} {
		if err := s.Save(r); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	all, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 || all[0].ScanID != first.ScanID || all[2].ScanID != third.ScanID {
		t.Fatalf("List not chronological: %+v", all)
	}
	aa, err := s.ByFile("aa")
	if err != nil {
		t.Fatalf("ByFile: %v", err)
	}
	if len(aa) != 2 || aa[0].ScanID != first.ScanID || aa[1].ScanID != third.ScanID {
		t.Fatalf("ByFile(aa) = %+v", aa)
	}
}

func TestSaveRequiresID(t *testing.T) {
	s := openTemp(t)
	if err := s.Save(Record{}); err == nil {
		t.Fatalf("expected error for empty scan id")
	}
}

func TestReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "carver.db")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	rec := newRecord(t, "cc")
	if err := s.Save(rec); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	s, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if _, err := s.Get(rec.ScanID); err != nil {
		t.Fatalf("record lost after reopen: %v", err)
	}
}
