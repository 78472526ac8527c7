package memds

import "fmt"

var (
	CHANGE_KIND_NAMES = [...]string{
		InsertElem: "insert-elem",
		RemoveElem: "remove-elem",
		UpdateElem: "update-elem",
	}
)

type ChangeKind int8

const (
	InsertElem ChangeKind = iota + 1
	RemoveElem
	UpdateElem
)

func (k ChangeKind) String() string {
	if k <= 0 || int(k) >= len(CHANGE_KIND_NAMES) {
		return fmt.Sprintf("change-kind(%d)", k)
	}
	return CHANGE_KIND_NAMES[k]
}

func ChangeKindFromString(s string) (ChangeKind, bool) {
	for i := 1; i < len(CHANGE_KIND_NAMES); i++ {
		if CHANGE_KIND_NAMES[i] == s {
			return ChangeKind(i), true
		}
	}
	return 0, false
}

// A ChangeEvent describes a single elementary edit of an ObservableList, it is immutable.
// Index is the index of the new element for InsertElem and the pre-edit index for RemoveElem and UpdateElem.
// OldValue is set for RemoveElem and UpdateElem, NewValue is set for InsertElem and UpdateElem.
type ChangeEvent[T any] struct {
	Kind     ChangeKind
	Index    int
	OldValue T
	NewValue T

	origin ListenerHandle
}

// Origin returns the handle of the listener (cursor) whose call produced the edit,
// or NO_LISTENER_HANDLE if the edit was made directly on the list.
func (e ChangeEvent[T]) Origin() ListenerHandle {
	return e.origin
}

func (e ChangeEvent[T]) String() string {
	switch e.Kind {
	case InsertElem:
		return fmt.Sprintf("%s %v at %d", e.Kind, e.NewValue, e.Index)
	case RemoveElem:
		return fmt.Sprintf("%s %v at %d", e.Kind, e.OldValue, e.Index)
	case UpdateElem:
		return fmt.Sprintf("%s %v -> %v at %d", e.Kind, e.OldValue, e.NewValue, e.Index)
	default:
		return e.Kind.String()
	}
}

// ApplyTo performs the edit described by the event on list, the list fires its own event.
func (e ChangeEvent[T]) ApplyTo(list *ObservableList[T]) error {
	switch e.Kind {
	case InsertElem:
		return list.Insert(e.Index, e.NewValue)
	case RemoveElem:
		_, err := list.RemoveAt(e.Index)
		return err
	case UpdateElem:
		_, err := list.Set(e.Index, e.NewValue)
		return err
	default:
		return fmt.Errorf("%w: %s", ErrInvalidChangeKind, e.Kind)
	}
}
