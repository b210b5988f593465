package scanner

import (
	"errors"
	"testing"
)

func TestPlanCoverage(t *testing.T) {
	for fileSize := 0; fileSize <= 64; fileSize++ {
		for workers := 1; workers <= fileSize+5; workers++ {
			for _, maxLen := range []int{1, 2, 8, 16} {
				plan, err := Plan(fileSize, workers, maxLen)
				if err != nil {
					t.Fatalf("Plan(%d,%d,%d): %v", fileSize, workers, maxLen, err)
				}
				checkPlan(t, plan, fileSize, workers, maxLen)
			}
		}
	}
}

func checkPlan(t *testing.T, plan PartitionPlan, fileSize, workers, maxLen int) {
	t.Helper()
	if len(plan) != workers {
		t.Fatalf("size=%d workers=%d: got %d ranges", fileSize, workers, len(plan))
	}
	chunk := fileSize / workers
	next := 0
	for i, r := range plan {
		if r.ID != i {
			t.Fatalf("range %d has id %d", i, r.ID)
		}
		if r.PrimaryStart != next {
			t.Fatalf("size=%d workers=%d: gap or overlap at worker %d (start %d, want %d)", fileSize, workers, i, r.PrimaryStart, next)
		}
		if r.PrimaryStart != i*chunk {
			t.Fatalf("worker %d starts at %d, want %d", i, r.PrimaryStart, i*chunk)
		}
		if i < workers-1 && r.PrimaryEnd != (i+1)*chunk {
			t.Fatalf("worker %d ends at %d, want %d", i, r.PrimaryEnd, (i+1)*chunk)
		}
		if r.ScanEnd != min(fileSize, r.PrimaryEnd+maxLen-1) || r.ScanEnd < r.PrimaryEnd {
			t.Fatalf("worker %d scan end %d invalid (primary end %d)", i, r.ScanEnd, r.PrimaryEnd)
		}
		next = r.PrimaryEnd
	}
	if next != fileSize {
		t.Fatalf("size=%d workers=%d: primary ranges end at %d", fileSize, workers, next)
	}
}

func TestPlanRemainderGoesToLastWorker(t *testing.T) {
	plan, err := Plan(10, 3, 4)
	if err != nil {
		t.Fatal(err)
	}
	want := PartitionPlan{
		{ID: 0, PrimaryStart: 0, PrimaryEnd: 3, ScanEnd: 6},
		{ID: 1, PrimaryStart: 3, PrimaryEnd: 6, ScanEnd: 9},
		{ID: 2, PrimaryStart: 6, PrimaryEnd: 10, ScanEnd: 10},
	}
	for i := range want {
		if plan[i] != want[i] {
			t.Fatalf("range %d = %+v, want %+v", i, plan[i], want[i])
		}
	}
}

func TestPlanZeroSize(t *testing.T) {
	plan, err := Plan(0, 4, 8)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	for _, r := range plan {
		if !r.Empty() || r.ScanEnd != 0 {
			t.Fatalf("expected empty range, got %+v", r)
		}
	}
}

func TestPlanMoreWorkersThanBytes(t *testing.T) {
	plan, err := Plan(3, 5, 2)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range plan[:4] {
		if !r.Empty() {
			t.Fatalf("expected empty primary range, got %+v", r)
		}
	}
	if last := plan[4]; last.PrimaryStart != 0 || last.PrimaryEnd != 3 {
		t.Fatalf("last worker should own everything, got %+v", last)
	}
}

func TestPlanInvalidWorkerCount(t *testing.T) {
	for _, n := range []int{0, -1} {
		if _, err := Plan(10, n, 4); !errors.Is(err, ErrInvalidWorkerCount) {
			t.Fatalf("Plan(10,%d): expected ErrInvalidWorkerCount, got %v", n, err)
		}
	}
}

func TestPlanPanicsOnProgrammerError(t *testing.T) {
	for _, tc := range []struct{ size, maxLen int }{{-1, 4}, {10, 0}} {
		func() {
			defer func() {
				if recover() == nil {
					t.Fatalf("Plan(%d,1,%d) did not panic", tc.size, tc.maxLen)
				}
			}()
			_, _ = Plan(tc.size, 1, tc.maxLen)
		}()
	}
}
