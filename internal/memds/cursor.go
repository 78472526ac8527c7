package memds

import "fmt"

const (
	NO_LAST_RETURNED = -1
)

type traversalDirection int8

const (
	forward traversalDirection = iota + 1
	backward
)

// A Cursor is a bidirectional iterator over an ObservableList. Its position (boundary) lies between
// two elements, or at one end of the list. The cursor is registered as a listener of the list and keeps its
// boundary and its tracked (last returned) element consistent when the list is edited by other
// handles: other cursors, listeners' owners or direct calls on the list.
//
// The cursor holds no element, Close should be called when the cursor is no longer used
// in order to unregister it. Cursor is not thread safe.
type Cursor[T any] struct {
	list   *ObservableList[T]
	handle ListenerHandle

	boundary     int
	lastReturned int //NO_LAST_RETURNED if there is no tracked element
	direction    traversalDirection
	closed       bool
}

func newCursor[T any](list *ObservableList[T], boundary int) (*Cursor[T], error) {
	c := &Cursor[T]{
		list:         list,
		boundary:     boundary,
		lastReturned: NO_LAST_RETURNED,
	}

	handle, err := list.AddListener(c)
	if err != nil {
		return nil, err
	}
	c.handle = handle
	return c, nil
}

// Handle returns the listener handle of the cursor, it is the origin of the events caused by
// Add, Remove and Set.
func (c *Cursor[T]) Handle() ListenerHandle {
	return c.handle
}

func (c *Cursor[T]) HasNext() bool {
	return !c.closed && c.boundary < c.list.Size()
}

func (c *Cursor[T]) HasPrevious() bool {
	return !c.closed && c.boundary > 0
}

// NextIndex returns the index of the element that would be returned by Next: the boundary.
func (c *Cursor[T]) NextIndex() int {
	return c.boundary
}

// PreviousIndex returns the index of the element that would be returned by Previous.
func (c *Cursor[T]) PreviousIndex() int {
	return c.boundary - 1
}

// LastReturnedIndex returns the current index of the tracked element, the one affected by Remove and Set.
func (c *Cursor[T]) LastReturnedIndex() (int, bool) {
	if c.lastReturned == NO_LAST_RETURNED {
		return NO_LAST_RETURNED, false
	}
	return c.lastReturned, true
}

func (c *Cursor[T]) Next() (T, error) {
	var zero T

	if c.closed {
		return zero, ErrClosedCursor
	}

	if !c.HasNext() {
		return zero, fmt.Errorf("%w: cursor is at the end of the list", ErrNoSuchElement)
	}

	elem, err := c.list.At(c.boundary)
	if err != nil {
		return zero, err
	}

	c.lastReturned = c.boundary
	c.direction = forward
	c.boundary++
	return elem, nil
}

func (c *Cursor[T]) Previous() (T, error) {
	var zero T

	if c.closed {
		return zero, ErrClosedCursor
	}

	if !c.HasPrevious() {
		return zero, fmt.Errorf("%w: cursor is at the start of the list", ErrNoSuchElement)
	}

	elem, err := c.list.At(c.boundary - 1)
	if err != nil {
		return zero, err
	}

	c.boundary--
	c.lastReturned = c.boundary
	c.direction = backward
	return elem, nil
}

// Add inserts value at the boundary: a subsequent call to Next is not affected and a subsequent call to
// Previous returns the new element. The cursor no longer tracks an element after the call.
func (c *Cursor[T]) Add(value T) error {
	if c.closed {
		return ErrClosedCursor
	}

	index := c.boundary
	if err := c.list.insert(index, value, c.handle); err != nil {
		return err
	}

	c.boundary++
	c.lastReturned = NO_LAST_RETURNED
	return nil
}

// Remove removes the tracked element, the element last returned by Next or Previous.
func (c *Cursor[T]) Remove() error {
	if c.closed {
		return ErrClosedCursor
	}

	if c.lastReturned == NO_LAST_RETURNED {
		return fmt.Errorf("%w: no element to remove, Next or Previous should be called first", ErrIllegalState)
	}

	index := c.lastReturned
	if _, err := c.list.removeAt(index, c.handle); err != nil {
		return err
	}

	// After a forward step the removed element was before the boundary, after a backward step it was
	// right after it.
	if c.direction == forward {
		c.boundary--
	}
	c.lastReturned = NO_LAST_RETURNED
	return nil
}

// Set replaces the tracked element, the boundary and the tracked index are not changed.
func (c *Cursor[T]) Set(value T) error {
	if c.closed {
		return ErrClosedCursor
	}

	if c.lastReturned == NO_LAST_RETURNED {
		return fmt.Errorf("%w: no element to set, Next or Previous should be called first", ErrIllegalState)
	}

	_, err := c.list.set(c.lastReturned, value, c.handle)
	return err
}

// Close unregisters the cursor from its list. All later operations fail with ErrClosedCursor.
func (c *Cursor[T]) Close() error {
	if c.closed {
		return nil
	}

	if err := c.list.RemoveListener(c.handle); err != nil {
		return err
	}
	c.closed = true
	c.lastReturned = NO_LAST_RETURNED
	return nil
}

// OnChange implements ChangeListener, edits made by the cursor itself are ignored because
// Add and Remove update the state directly.
func (c *Cursor[T]) OnChange(event ChangeEvent[T]) {
	if event.origin == c.handle {
		return
	}

	switch event.Kind {
	case InsertElem:
		c.shiftForInsertion(event.Index)
	case RemoveElem:
		c.shiftForRemoval(event.Index)
	}
}

func (c *Cursor[T]) shiftForInsertion(index int) {
	if index <= c.boundary {
		c.boundary++
	}

	if c.lastReturned != NO_LAST_RETURNED && index <= c.lastReturned {
		c.lastReturned++
	}
}

func (c *Cursor[T]) shiftForRemoval(index int) {
	if index < c.boundary {
		c.boundary--
	}

	switch {
	case c.lastReturned == NO_LAST_RETURNED:
	case index == c.lastReturned:
		c.lastReturned = NO_LAST_RETURNED
	case index < c.lastReturned:
		c.lastReturned--
	}
}
