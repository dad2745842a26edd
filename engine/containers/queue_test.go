package containers

import "testing"

func TestQueueFIFO(t *testing.T) {
	q := NewQueue[int](2)
	q.Enqueue(1)
	q.Enqueue(2)
	q.Enqueue(3)

	if q.Len() != 3 {
		t.Fatalf("expected length 3, got %d", q.Len())
	}

	for want := 1; want <= 3; want++ {
		got, err := q.Dequeue()
		if err != nil {
			t.Fatalf("Dequeue failed: %v", err)
		}
		if got != want {
			t.Fatalf("expected %d, got %d", want, got)
		}
	}
	if !q.IsEmpty() {
		t.Fatalf("queue should be empty")
	}
	if _, err := q.Dequeue(); err == nil {
		t.Fatalf("Dequeue on empty queue must fail")
	}
}

func TestQueueEnqueueFront(t *testing.T) {
	var q Queue[string]
	q.Enqueue("b")
	q.EnqueueFront("a")

	front, err := q.Peek()
	if err != nil {
		t.Fatalf("Peek failed: %v", err)
	}
	if front != "a" {
		t.Fatalf("expected front element a, got %s", front)
	}

	got, _ := q.Dequeue()
	if got != "a" {
		t.Fatalf("expected a, got %s", got)
	}
	got, _ = q.Dequeue()
	if got != "b" {
		t.Fatalf("expected b, got %s", got)
	}
}
