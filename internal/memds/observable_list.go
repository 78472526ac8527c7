package memds

import (
	"errors"
	"fmt"
	"slices"

	"github.com/inoxlang/eventlist/internal/slog"
	"github.com/inoxlang/eventlist/internal/utils"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

const (
	LIST_SHRINK_DIVIDER        = 2
	MIN_SHRINKABLE_LIST_LENGTH = 10 * LIST_SHRINK_DIVIDER

	OBSERVABLE_LIST_LOG_SRC = "memds/list"
)

var (
	ErrIndexOutOfRange   = errors.New("index out of range")
	ErrNoSuchElement     = errors.New("no such element")
	ErrIllegalState      = errors.New("illegal state")
	ErrReentrantMutation = errors.New("reentrant mutation: lists cannot be modified while they dispatch a change event")
	ErrClosedCursor      = errors.New("cursor is closed")
	ErrUnknownListener   = errors.New("unknown listener")
	ErrNilListener       = errors.New("listener is nil")
	ErrTooManyListeners  = errors.New("too many listeners")
	ErrInvalidChangeKind = errors.New("invalid change kind")
)

// An ObservableList is an ordered, mutable collection that synchronously notifies its listeners of every edit,
// after the edit and before the mutating call returns. Listeners are notified in registration order.
// ObservableList is not thread safe.
type ObservableList[T any] struct {
	id        ulid.ULID
	elements  []T
	listeners listenerRegistry[T]
	logger    zerolog.Logger
}

type ObservableListConfig struct {
	Logger *zerolog.Logger //if nil no logs are written

	//if not nil the level of the list's logger is the level configured for OBSERVABLE_LIST_LOG_SRC,
	//debug logs are only written if internal debug logs are enabled.
	Levels *slog.Levels
}

func NewObservableList[T any](elements ...T) *ObservableList[T] {
	return NewObservableListWithConfig(ObservableListConfig{}, elements...)
}

// NewObservableListWithConfig creates a list containing a copy of elements.
func NewObservableListWithConfig[T any](config ObservableListConfig, elements ...T) *ObservableList[T] {
	list := &ObservableList[T]{
		id:       ulid.Make(),
		elements: utils.CopySlice(elements),
		logger:   zerolog.Nop(),
	}

	if config.Logger != nil {
		logger := slog.ChildLoggerForSource(*config.Logger, OBSERVABLE_LIST_LOG_SRC)
		if config.Levels != nil {
			logger = slog.ChildLoggerForInternalSource(*config.Logger, OBSERVABLE_LIST_LOG_SRC, config.Levels)
		}
		list.logger = logger.With().Stringer(slog.LIST_FIELD_NAME, list.id).Logger()
	}

	return list
}

func (l *ObservableList[T]) Id() ulid.ULID {
	return l.id
}

func (l *ObservableList[T]) Size() int {
	return len(l.elements)
}

func (l *ObservableList[T]) At(index int) (T, error) {
	if index < 0 || index >= len(l.elements) {
		var zero T
		return zero, l.outOfRangeError(index)
	}
	return l.elements[index], nil
}

// Values returns a copy of the elements.
func (l *ObservableList[T]) Values() []T {
	return utils.CopySlice(l.elements)
}

// IndexFunc returns the index of the first element satisfying pred, or -1.
func (l *ObservableList[T]) IndexFunc(pred func(e T) bool) int {
	return slices.IndexFunc(l.elements, pred)
}

// Insert inserts value at index (0 <= index <= Size()) and fires an InsertElem event.
func (l *ObservableList[T]) Insert(index int, value T) error {
	return l.insert(index, value, NO_LISTENER_HANDLE)
}

// Append inserts the values at the end of the list, one InsertElem event is fired per value.
func (l *ObservableList[T]) Append(values ...T) error {
	for _, v := range values {
		if err := l.insert(len(l.elements), v, NO_LISTENER_HANDLE); err != nil {
			return err
		}
	}
	return nil
}

// RemoveAt removes the element at index and fires a RemoveElem event.
func (l *ObservableList[T]) RemoveAt(index int) (T, error) {
	return l.removeAt(index, NO_LISTENER_HANDLE)
}

// Set replaces the element at index and fires an UpdateElem event, the previous element is returned.
func (l *ObservableList[T]) Set(index int, value T) (T, error) {
	return l.set(index, value, NO_LISTENER_HANDLE)
}

// AddListener registers a listener, the returned handle is used to remove it.
func (l *ObservableList[T]) AddListener(listener ChangeListener[T]) (ListenerHandle, error) {
	handle, err := l.listeners.add(listener)
	if err != nil {
		return NO_LISTENER_HANDLE, err
	}

	l.logger.Debug().Int32("handle", int32(handle)).Int("count", l.listeners.count()).Msg("listener added")
	return handle, nil
}

func (l *ObservableList[T]) RemoveListener(handle ListenerHandle) error {
	if err := l.listeners.remove(handle); err != nil {
		return err
	}

	l.logger.Debug().Int32("handle", int32(handle)).Int("count", l.listeners.count()).Msg("listener removed")
	return nil
}

func (l *ObservableList[T]) ListenerCount() int {
	return l.listeners.count()
}

// Cursor returns a cursor positioned before the first element. Like AddListener it fails with
// ErrReentrantMutation if called by a listener during a notification.
func (l *ObservableList[T]) Cursor() (*Cursor[T], error) {
	return l.CursorAt(0)
}

// CursorFromEnd returns a cursor positioned after the last element.
func (l *ObservableList[T]) CursorFromEnd() (*Cursor[T], error) {
	return l.CursorAt(len(l.elements))
}

// CursorAt returns a cursor whose boundary is index (0 <= index <= Size()).
func (l *ObservableList[T]) CursorAt(index int) (*Cursor[T], error) {
	if index < 0 || index > len(l.elements) {
		return nil, l.outOfRangeError(index)
	}
	return newCursor(l, index)
}

func (l *ObservableList[T]) insert(index int, value T, origin ListenerHandle) error {
	if l.listeners.dispatching {
		return ErrReentrantMutation
	}

	length := len(l.elements)
	if index < 0 || index > length {
		return l.outOfRangeError(index)
	}

	if index == length {
		l.elements = append(l.elements, value)
	} else {
		var zero T
		l.elements = append(l.elements, zero)
		copy(l.elements[index+1:], l.elements[index:])
		l.elements[index] = value
	}

	l.fire(ChangeEvent[T]{
		Kind:     InsertElem,
		Index:    index,
		NewValue: value,
		origin:   origin,
	})
	return nil
}

func (l *ObservableList[T]) removeAt(index int, origin ListenerHandle) (T, error) {
	var zero T

	if l.listeners.dispatching {
		return zero, ErrReentrantMutation
	}

	if index < 0 || index >= len(l.elements) {
		return zero, l.outOfRangeError(index)
	}

	removed := l.elements[index]
	last := len(l.elements) - 1

	if index != last {
		copy(l.elements[index:], l.elements[index+1:])
	}
	l.elements[last] = zero
	l.elements = l.elements[:last]
	l.elements = utils.ShrinkSliceIfWastedCapacity(l.elements, MIN_SHRINKABLE_LIST_LENGTH, LIST_SHRINK_DIVIDER)

	l.fire(ChangeEvent[T]{
		Kind:     RemoveElem,
		Index:    index,
		OldValue: removed,
		origin:   origin,
	})
	return removed, nil
}

func (l *ObservableList[T]) set(index int, value T, origin ListenerHandle) (T, error) {
	var zero T

	if l.listeners.dispatching {
		return zero, ErrReentrantMutation
	}

	if index < 0 || index >= len(l.elements) {
		return zero, l.outOfRangeError(index)
	}

	prev := l.elements[index]
	l.elements[index] = value

	l.fire(ChangeEvent[T]{
		Kind:     UpdateElem,
		Index:    index,
		OldValue: prev,
		NewValue: value,
		origin:   origin,
	})
	return prev, nil
}

func (l *ObservableList[T]) fire(event ChangeEvent[T]) {
	if e := l.logger.Trace(); e.Enabled() {
		e.Stringer("kind", event.Kind).
			Int("index", event.Index).
			Int32("origin", int32(event.origin)).
			Int("size", len(l.elements)).
			Msg("dispatching change")
	}

	l.listeners.dispatch(event)
}

func (l *ObservableList[T]) outOfRangeError(index int) error {
	return fmt.Errorf("%w: index %d, size %d", ErrIndexOutOfRange, index, len(l.elements))
}
