package ring

import "testing"

func TestQueueFIFOOrder(t *testing.T) {
	q := NewQueue[int](3)
	for _, v := range []int{1, 2, 3} {
		if ok := q.Push(v); !ok {
			t.Fatalf("push %d: expected ok", v)
		}
	}
	for _, want := range []int{1, 2, 3} {
		got, ok := q.Pop()
		if !ok || got != want {
			t.Fatalf("pop = %v, %v; want %v, true", got, ok, want)
		}
	}
}

func TestQueueDropsNewestAtCapacity(t *testing.T) {
	q := NewQueue[int](2)
	q.Push(1)
	q.Push(2)
	if ok := q.Push(3); ok {
		t.Fatalf("expected push at capacity to fail")
	}
	if q.Len() != 2 {
		t.Fatalf("Len = %d, want 2", q.Len())
	}
	v, _ := q.Pop()
	if v != 1 {
		t.Fatalf("Pop = %d, want 1 (oldest two retained)", v)
	}
}

func TestQueueClear(t *testing.T) {
	q := NewQueue[int](2)
	q.Push(1)
	q.Clear()
	if q.Len() != 0 {
		t.Fatalf("Len after Clear = %d, want 0", q.Len())
	}
	if _, ok := q.Pop(); ok {
		t.Fatalf("expected Pop on cleared queue to fail")
	}
}

func TestQueueSnapshotDoesNotMutate(t *testing.T) {
	q := NewQueue[int](3)
	q.Push(1)
	q.Push(2)
	snap := q.Snapshot()
	if len(snap) != 2 || snap[0] != 1 || snap[1] != 2 {
		t.Fatalf("Snapshot = %v, want [1 2]", snap)
	}
	if q.Len() != 2 {
		t.Fatalf("Snapshot mutated queue, Len = %d", q.Len())
	}
}
