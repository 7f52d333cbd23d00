package epiworld

import "testing"

func TestActiveQueue_AllActiveOnDayZero(t *testing.T) {
	q := NewActiveQueue(4, false)
	for id := 0; id < 4; id++ {
		if !q.IsActive(id) {
			t.Errorf("agent %d expected active on the initial day", id)
		}
	}
}

func TestActiveQueue_SwapPromotesNextDayMarks(t *testing.T) {
	q := NewActiveQueue(3, false)
	q.MarkActiveNext(1)
	q.Swap()

	if q.IsActive(0) || q.IsActive(2) {
		t.Error("expected unmarked agents inactive after the first swap")
	}
	if !q.IsActive(1) {
		t.Error("expected the marked agent active after swap")
	}

	q.Swap()
	if q.IsActive(1) {
		t.Error("expected marks to be cleared after a second swap with no new marks")
	}
}

func TestActiveQueue_OffEveryoneAlwaysActive(t *testing.T) {
	q := NewActiveQueue(3, true)
	q.Swap()
	q.Swap()
	for id := 0; id < 3; id++ {
		if !q.IsActive(id) {
			t.Errorf("agent %d expected active with queuing disabled", id)
		}
	}
}

func TestActiveQueue_MarkOutOfRangeIsIgnored(t *testing.T) {
	q := NewActiveQueue(2, false)
	q.MarkActiveNext(-1)
	q.MarkActiveNext(99)
	q.Swap()
	if q.IsActive(0) || q.IsActive(1) {
		t.Error("expected out-of-range marks to have no effect")
	}
}

func TestActiveQueue_Copy_Independent(t *testing.T) {
	q := NewActiveQueue(2, false)
	cp := q.Copy()
	cp.MarkActiveNext(0)
	cp.Swap()
	q.Swap()
	if q.IsActive(0) {
		t.Error("mutating a copy should not affect the original queue")
	}
}
