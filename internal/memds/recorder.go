package memds

import (
	"github.com/emirpasic/gods/queues/arrayqueue"
)

// A Recorder is a ChangeListener that queues the events it receives.
type Recorder[T any] struct {
	queue *arrayqueue.Queue
}

func NewRecorder[T any]() *Recorder[T] {
	return &Recorder[T]{queue: arrayqueue.New()}
}

// RecordChanges registers a new recorder to list.
func RecordChanges[T any](list *ObservableList[T]) (*Recorder[T], ListenerHandle, error) {
	recorder := NewRecorder[T]()
	handle, err := list.AddListener(recorder)
	if err != nil {
		return nil, NO_LISTENER_HANDLE, err
	}
	return recorder, handle, nil
}

func (r *Recorder[T]) OnChange(event ChangeEvent[T]) {
	r.queue.Enqueue(event)
}

func (r *Recorder[T]) Len() int {
	return r.queue.Size()
}

// Events returns the recorded events in order without removing them.
func (r *Recorder[T]) Events() []ChangeEvent[T] {
	values := r.queue.Values()
	events := make([]ChangeEvent[T], len(values))
	for i, v := range values {
		events[i] = v.(ChangeEvent[T])
	}
	return events
}

// Drain removes and returns the recorded events.
func (r *Recorder[T]) Drain() []ChangeEvent[T] {
	var events []ChangeEvent[T]
	for {
		v, ok := r.queue.Dequeue()
		if !ok {
			return events
		}
		events = append(events, v.(ChangeEvent[T]))
	}
}
