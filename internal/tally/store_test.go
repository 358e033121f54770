package tally

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func defaultSeed() map[string]string {
	return map[string]string{
		"1": "Soumyadeep Mukherjee",
		"2": "Sundar Pichai",
		"3": "Elon Musk",
		"4": "Sparsh Singh",
		"5": "Tannistha Muhuri",
	}
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "attendance_data.json"), defaultSeed())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return s
}

func TestOpen_MissingFileSeedsAndPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attendance_data.json")

	first, err := Open(path, defaultSeed())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if first.Len() != 5 {
		t.Fatalf("expected 5 seeded records, got %d", first.Len())
	}

	rec, ok := first.Get("3")
	if !ok {
		t.Fatal("expected id 3 in seed")
	}
	want := Record{Name: "Elon Musk", TotalAttendance: 0, LastAttendance: ""}
	if rec != want {
		t.Errorf("seed record 3 = %+v, want %+v", rec, want)
	}

	second, err := Open(path, map[string]string{"99": "Should Not Be Used"})
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	if !reflect.DeepEqual(first.Entries(), second.Entries()) {
		t.Errorf("second load differs from seed:\n%+v\n%+v", first.Entries(), second.Entries())
	}
}

func TestMark_KnownID(t *testing.T) {
	s := openTestStore(t)
	fixed := time.Date(2024, 3, 5, 9, 15, 30, 0, time.Local)
	s.SetClock(func() time.Time { return fixed })

	rec, err := s.Mark("3")
	if err != nil {
		t.Fatalf("Mark failed: %v", err)
	}
	if rec.TotalAttendance != 1 {
		t.Errorf("expected total 1, got %d", rec.TotalAttendance)
	}
	if rec.LastAttendance != "2024-03-05 09:15:30" {
		t.Errorf("unexpected timestamp %q", rec.LastAttendance)
	}

	stored, _ := s.Get("3")
	if stored != rec {
		t.Errorf("stored record %+v differs from returned %+v", stored, rec)
	}
}

func TestMark_RepeatedCountsEveryCall(t *testing.T) {
	s := openTestStore(t)

	const n = 7
	for range n {
		if _, err := s.Mark("2"); err != nil {
			t.Fatalf("Mark failed: %v", err)
		}
	}

	rec, _ := s.Get("2")
	if rec.TotalAttendance != n {
		t.Errorf("expected total %d, got %d", n, rec.TotalAttendance)
	}
	if _, err := time.ParseInLocation("2006-01-02 15:04:05", rec.LastAttendance, time.Local); err != nil {
		t.Errorf("last attendance %q is not a well-formed timestamp: %v", rec.LastAttendance, err)
	}
}

func TestMark_UnknownIDLeavesFileUnchanged(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Mark("3"); err != nil {
		t.Fatal(err)
	}

	before, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatal(err)
	}

	_, err = s.Mark("9")
	if !errors.Is(err, ErrUnknownID) {
		t.Fatalf("expected ErrUnknownID, got %v", err)
	}

	after, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(before, after) {
		t.Errorf("file changed after unknown mark:\n%s\n%s", before, after)
	}
	if rec, _ := s.Get("3"); rec.TotalAttendance != 1 {
		t.Errorf("expected earlier mark to survive, got %d", rec.TotalAttendance)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := openTestStore(t)
	for _, id := range []string{"1", "1", "4"} {
		if _, err := s.Mark(id); err != nil {
			t.Fatal(err)
		}
	}

	reloaded, err := Open(s.Path(), nil)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if !reflect.DeepEqual(s.Entries(), reloaded.Entries()) {
		t.Errorf("round trip mismatch:\n%+v\n%+v", s.Entries(), reloaded.Entries())
	}
}

func TestOpen_CompactSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attendance_data.json")
	compact := `{"1": {"name": "Sundar Pichai", "attendance": 4, "last": "2024-01-02 08:00:00"}}`
	if err := os.WriteFile(path, []byte(compact), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Open(path, defaultSeed())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("expected the file, not the seed, got %d records", s.Len())
	}
	rec, _ := s.Get("1")
	if rec.TotalAttendance != 4 || rec.LastAttendance != "2024-01-02 08:00:00" {
		t.Errorf("compact keys not decoded: %+v", rec)
	}
}

func TestIDs_NumericOrder(t *testing.T) {
	ids := []string{"10", "2", "b", "1", "a"}
	SortIDs(ids)

	want := []string{"1", "2", "10", "a", "b"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("SortIDs = %v, want %v", ids, want)
	}
}

func TestRecord_LastOrNever(t *testing.T) {
	if got := (Record{}).LastOrNever(); got != "Never" {
		t.Errorf("expected Never, got %q", got)
	}
	if got := (Record{LastAttendance: "2024-01-01 10:00:00"}).LastOrNever(); got != "2024-01-01 10:00:00" {
		t.Errorf("unexpected %q", got)
	}
}
