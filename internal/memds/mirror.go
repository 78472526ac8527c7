package memds

import (
	"fmt"
	"slices"
)

// A Mirror is a ChangeListener that replays the edits of a source list on a target list.
// The target should not be edited by other means, the first replay error is kept and
// stops the mirroring.
type Mirror[T any] struct {
	source *ObservableList[T]
	target *ObservableList[T]
	handle ListenerHandle
	err    error
}

// NewMirror makes target a copy of source, the edits of source are then replayed on target until Stop is called.
// The target list is expected to have no cursors, its content is replaced.
func NewMirror[T any](source, target *ObservableList[T]) (*Mirror[T], error) {
	for target.Size() > 0 {
		if _, err := target.RemoveAt(target.Size() - 1); err != nil {
			return nil, fmt.Errorf("failed to clear mirror target: %w", err)
		}
	}

	if err := target.Append(source.elements...); err != nil {
		return nil, fmt.Errorf("failed to copy source elements: %w", err)
	}

	m := &Mirror[T]{source: source, target: target}

	handle, err := source.AddListener(m)
	if err != nil {
		return nil, err
	}
	m.handle = handle
	return m, nil
}

func (m *Mirror[T]) OnChange(event ChangeEvent[T]) {
	if m.err != nil {
		return
	}
	if err := event.ApplyTo(m.target); err != nil {
		m.err = fmt.Errorf("failed to replay %s: %w", event, err)
	}
}

// Err returns the replay error, if any.
func (m *Mirror[T]) Err() error {
	return m.err
}

// InSync reports whether source and target have the same elements.
func (m *Mirror[T]) InSync(equal func(a, b T) bool) bool {
	return slices.EqualFunc(m.source.elements, m.target.elements, equal)
}

func (m *Mirror[T]) Stop() error {
	return m.source.RemoveListener(m.handle)
}
