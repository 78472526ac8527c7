package memds

import (
	"fmt"
	"math"
	"slices"
)

const (
	NO_LISTENER_HANDLE          ListenerHandle = 0
	FIRST_VALID_LISTENER_HANDLE ListenerHandle = 1
	MAX_LISTENER_COUNT                         = math.MaxInt32
)

type ListenerHandle int32

func (h ListenerHandle) Valid() bool {
	return h >= FIRST_VALID_LISTENER_HANDLE
}

// A ChangeListener is notified synchronously of every edit of the lists it is registered to.
// OnChange must not mutate the list nor change its listeners.
type ChangeListener[T any] interface {
	OnChange(event ChangeEvent[T])
}

type ChangeListenerFunc[T any] func(event ChangeEvent[T])

func (f ChangeListenerFunc[T]) OnChange(event ChangeEvent[T]) {
	f(event)
}

// listenerRegistry stores listeners in registration order, which is also the notification order.
type listenerRegistry[T any] struct {
	nextHandle  ListenerHandle
	wrapped     bool //true once the handle space has been exhausted
	listeners   []registeredListener[T]
	dispatching bool
}

type registeredListener[T any] struct {
	handle   ListenerHandle
	listener ChangeListener[T]
}

func (r *listenerRegistry[T]) add(listener ChangeListener[T]) (ListenerHandle, error) {
	if listener == nil {
		return NO_LISTENER_HANDLE, ErrNilListener
	}
	if r.dispatching {
		return NO_LISTENER_HANDLE, fmt.Errorf("%w: cannot add a listener", ErrReentrantMutation)
	}

	handle, err := r.allocateHandle()
	if err != nil {
		return NO_LISTENER_HANDLE, err
	}

	r.listeners = append(r.listeners, registeredListener[T]{
		handle:   handle,
		listener: listener,
	})
	return handle, nil
}

// allocateHandle returns the next handle that is not used by a registered listener.
func (r *listenerRegistry[T]) allocateHandle() (ListenerHandle, error) {
	if len(r.listeners) >= MAX_LISTENER_COUNT {
		return NO_LISTENER_HANDLE, ErrTooManyListeners
	}

	for {
		if !r.nextHandle.Valid() {
			if r.nextHandle != NO_LISTENER_HANDLE {
				r.wrapped = true
			}
			r.nextHandle = FIRST_VALID_LISTENER_HANDLE
		}

		handle := r.nextHandle
		r.nextHandle++ //wraps to a negative value after math.MaxInt32

		if !r.wrapped || !r.inUse(handle) {
			return handle, nil
		}
	}
}

func (r *listenerRegistry[T]) inUse(handle ListenerHandle) bool {
	return slices.ContainsFunc(r.listeners, func(l registeredListener[T]) bool {
		return l.handle == handle
	})
}

func (r *listenerRegistry[T]) remove(handle ListenerHandle) error {
	if r.dispatching {
		return fmt.Errorf("%w: cannot remove a listener", ErrReentrantMutation)
	}

	index := slices.IndexFunc(r.listeners, func(l registeredListener[T]) bool {
		return l.handle == handle
	})

	if index < 0 {
		return fmt.Errorf("%w: %d", ErrUnknownListener, handle)
	}

	//the remaining listeners keep their relative order.
	r.listeners = slices.Delete(r.listeners, index, index+1)
	return nil
}

func (r *listenerRegistry[T]) count() int {
	return len(r.listeners)
}

// dispatch calls all listeners in registration order. The registry cannot be modified during the call.
func (r *listenerRegistry[T]) dispatch(event ChangeEvent[T]) {
	if len(r.listeners) == 0 {
		return
	}

	r.dispatching = true
	defer func() {
		r.dispatching = false
	}()

	for _, l := range r.listeners {
		l.listener.OnChange(event)
	}
}
