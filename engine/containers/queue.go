package containers

import "errors"

// Queue is a growable FIFO queue. The zero value is ready to use.
type Queue[T any] struct {
	data []T
}

// Create a new Queue with room for size elements before reallocation.
func NewQueue[T any](size int) *Queue[T] {
	return &Queue[T]{
		data: make([]T, 0, size),
	}
}

// Enqueue adds an element to the back of the queue
func (q *Queue[T]) Enqueue(value T) {
	q.data = append(q.data, value)
}

// EnqueueFront puts an element back at the front of the queue
func (q *Queue[T]) EnqueueFront(value T) {
	q.data = append([]T{value}, q.data...)
}

// Dequeue removes and returns the front element in the queue
func (q *Queue[T]) Dequeue() (T, error) {
	var zero T
	if q.IsEmpty() {
		return zero, errors.New("queue is empty")
	}

	value := q.data[0]
	q.data[0] = zero
	q.data = q.data[1:]
	return value, nil
}

// Peek returns the front element without removing it
func (q *Queue[T]) Peek() (T, error) {
	if q.IsEmpty() {
		var zero T
		return zero, errors.New("queue is empty")
	}
	return q.data[0], nil
}

// Len returns the number of queued elements
func (q *Queue[T]) Len() int {
	return len(q.data)
}

// IsEmpty checks if the queue is empty
func (q *Queue[T]) IsEmpty() bool {
	return len(q.data) == 0
}
