package memds

import (
	"bytes"
	"math"
	"testing"

	"github.com/inoxlang/eventlist/internal/slog"
	"github.com/inoxlang/eventlist/internal/utils"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObservableList(t *testing.T) {

	t.Run("Insert", func(t *testing.T) {
		t.Run("base case", func(t *testing.T) {
			list := NewObservableList("a", "c")
			recorder, _, err := RecordChanges(list)
			require.NoError(t, err)

			require.NoError(t, list.Insert(1, "b"))
			require.NoError(t, list.Insert(3, "d"))
			require.NoError(t, list.Insert(0, "0"))

			assert.Equal(t, []string{"0", "a", "b", "c", "d"}, list.Values())
			assert.Equal(t, 5, list.Size())

			assert.Equal(t, []ChangeEvent[string]{
				{Kind: InsertElem, Index: 1, NewValue: "b"},
				{Kind: InsertElem, Index: 3, NewValue: "d"},
				{Kind: InsertElem, Index: 0, NewValue: "0"},
			}, recorder.Events())
		})

		t.Run("out of range", func(t *testing.T) {
			list := NewObservableList("a")
			recorder, _, err := RecordChanges(list)
			require.NoError(t, err)

			assert.ErrorIs(t, list.Insert(2, "b"), ErrIndexOutOfRange)
			assert.ErrorIs(t, list.Insert(-1, "b"), ErrIndexOutOfRange)

			assert.Equal(t, []string{"a"}, list.Values())
			assert.Zero(t, recorder.Len())
		})
	})

	t.Run("Append", func(t *testing.T) {
		list := NewObservableList[int]()
		recorder, _, err := RecordChanges(list)
		require.NoError(t, err)

		require.NoError(t, list.Append(1, 2))
		assert.Equal(t, []int{1, 2}, list.Values())
		assert.Equal(t, []ChangeEvent[int]{
			{Kind: InsertElem, Index: 0, NewValue: 1},
			{Kind: InsertElem, Index: 1, NewValue: 2},
		}, recorder.Drain())
		assert.Zero(t, recorder.Len())
	})

	t.Run("RemoveAt", func(t *testing.T) {
		t.Run("base case", func(t *testing.T) {
			list := NewObservableList("a", "b", "c")
			recorder, _, err := RecordChanges(list)
			require.NoError(t, err)

			removed, err := list.RemoveAt(1)
			require.NoError(t, err)
			assert.Equal(t, "b", removed)

			removed, err = list.RemoveAt(1)
			require.NoError(t, err)
			assert.Equal(t, "c", removed)

			assert.Equal(t, []string{"a"}, list.Values())
			assert.Equal(t, []ChangeEvent[string]{
				{Kind: RemoveElem, Index: 1, OldValue: "b"},
				{Kind: RemoveElem, Index: 1, OldValue: "c"},
			}, recorder.Events())
		})

		t.Run("out of range", func(t *testing.T) {
			list := NewObservableList("a")
			recorder, _, err := RecordChanges(list)
			require.NoError(t, err)

			_, err = list.RemoveAt(1)
			assert.ErrorIs(t, err, ErrIndexOutOfRange)
			_, err = list.RemoveAt(-1)
			assert.ErrorIs(t, err, ErrIndexOutOfRange)

			assert.Equal(t, 1, list.Size())
			assert.Zero(t, recorder.Len())
		})

		t.Run("many removals", func(t *testing.T) {
			list := NewObservableList[int]()
			for i := 0; i < 1000; i++ {
				require.NoError(t, list.Append(i))
			}
			for i := 0; i < 990; i++ {
				_, err := list.RemoveAt(0)
				require.NoError(t, err)
			}
			assert.Equal(t, []int{990, 991, 992, 993, 994, 995, 996, 997, 998, 999}, list.Values())
		})
	})

	t.Run("Set", func(t *testing.T) {
		list := NewObservableList("a", "b")
		recorder, _, err := RecordChanges(list)
		require.NoError(t, err)

		prev, err := list.Set(1, "B")
		require.NoError(t, err)
		assert.Equal(t, "b", prev)
		assert.Equal(t, []string{"a", "B"}, list.Values())

		_, err = list.Set(2, "c")
		assert.ErrorIs(t, err, ErrIndexOutOfRange)

		assert.Equal(t, []ChangeEvent[string]{
			{Kind: UpdateElem, Index: 1, OldValue: "b", NewValue: "B"},
		}, recorder.Events())
	})

	t.Run("At", func(t *testing.T) {
		list := NewObservableList("a")

		elem, err := list.At(0)
		require.NoError(t, err)
		assert.Equal(t, "a", elem)

		_, err = list.At(1)
		assert.ErrorIs(t, err, ErrIndexOutOfRange)
	})

	t.Run("the initial elements should be copied", func(t *testing.T) {
		elements := []string{"a"}
		list := NewObservableList(elements...)
		elements[0] = "b"

		assert.Equal(t, []string{"a"}, list.Values())
	})

	t.Run("IndexFunc", func(t *testing.T) {
		list := NewObservableList("a", "b")
		assert.Equal(t, 1, list.IndexFunc(func(e string) bool { return e == "b" }))
		assert.Equal(t, -1, list.IndexFunc(func(e string) bool { return e == "c" }))
	})
}

func TestObservableListListeners(t *testing.T) {

	t.Run("listeners should be notified in registration order", func(t *testing.T) {
		list := NewObservableList[int]()
		var calls []int

		listener := func(id int) ChangeListener[int] {
			return ChangeListenerFunc[int](func(event ChangeEvent[int]) {
				calls = append(calls, id)
			})
		}

		_, err := list.AddListener(listener(1))
		require.NoError(t, err)
		handle2, err := list.AddListener(listener(2))
		require.NoError(t, err)
		_, err = list.AddListener(listener(3))
		require.NoError(t, err)

		require.NoError(t, list.RemoveListener(handle2))
		_, err = list.AddListener(listener(4))
		require.NoError(t, err)

		require.NoError(t, list.Append(0))
		assert.Equal(t, []int{1, 3, 4}, calls)
		assert.Equal(t, 3, list.ListenerCount())
	})

	t.Run("listeners should see the list after the edit", func(t *testing.T) {
		list := NewObservableList("a")
		var sizes []int

		_, err := list.AddListener(ChangeListenerFunc[string](func(event ChangeEvent[string]) {
			sizes = append(sizes, list.Size())
		}))
		require.NoError(t, err)

		require.NoError(t, list.Append("b"))
		_, err = list.RemoveAt(0)
		require.NoError(t, err)

		assert.Equal(t, []int{2, 1}, sizes)
	})

	t.Run("removing an unknown listener should fail", func(t *testing.T) {
		list := NewObservableList[int]()
		assert.ErrorIs(t, list.RemoveListener(42), ErrUnknownListener)
	})

	t.Run("adding a nil listener should fail", func(t *testing.T) {
		list := NewObservableList[int]()
		_, err := list.AddListener(nil)
		assert.ErrorIs(t, err, ErrNilListener)
	})

	t.Run("handles in use should be skipped after the handle space wraps around", func(t *testing.T) {
		list := NewObservableList[int]()

		var notified []string
		listener := func(name string) ChangeListener[int] {
			return ChangeListenerFunc[int](func(event ChangeEvent[int]) {
				notified = append(notified, name)
			})
		}

		first, err := list.AddListener(listener("first"))
		require.NoError(t, err)
		assert.Equal(t, FIRST_VALID_LISTENER_HANDLE, first)

		list.listeners.nextHandle = math.MaxInt32

		last, err := list.AddListener(listener("last"))
		require.NoError(t, err)
		assert.Equal(t, ListenerHandle(math.MaxInt32), last)

		wrapped, err := list.AddListener(listener("wrapped"))
		require.NoError(t, err)
		assert.Equal(t, ListenerHandle(2), wrapped)

		require.NoError(t, list.Append(1))
		assert.Equal(t, []string{"first", "last", "wrapped"}, notified)

		require.NoError(t, list.RemoveListener(wrapped))
		assert.Equal(t, 2, list.ListenerCount())

		//the handle of the first listener is still valid.
		require.NoError(t, list.RemoveListener(first))
		assert.ErrorIs(t, list.RemoveListener(first), ErrUnknownListener)

		handle, err := list.AddListener(listener("again"))
		require.NoError(t, err)
		assert.Equal(t, ListenerHandle(3), handle)
	})

	t.Run("edits made by listeners during dispatch should be rejected", func(t *testing.T) {
		list := NewObservableList("a")
		recorder, _, err := RecordChanges(list)
		require.NoError(t, err)

		var errs []error
		_, err = list.AddListener(ChangeListenerFunc[string](func(event ChangeEvent[string]) {
			errs = append(errs, list.Insert(0, "x"))

			_, err := list.RemoveAt(0)
			errs = append(errs, err)

			_, err = list.Set(0, "x")
			errs = append(errs, err)

			_, err = list.AddListener(NewRecorder[string]())
			errs = append(errs, err)

			errs = append(errs, list.RemoveListener(1))
		}))
		require.NoError(t, err)

		require.NoError(t, list.Append("b"))

		require.Len(t, errs, 5)
		for _, err := range errs {
			assert.ErrorIs(t, err, ErrReentrantMutation)
		}

		assert.Equal(t, []string{"a", "b"}, list.Values())
		assert.Equal(t, 1, recorder.Len())
		assert.Equal(t, 2, list.ListenerCount())

		//the list is usable after the dispatch.
		require.NoError(t, list.Append("c"))
		assert.Equal(t, 2, recorder.Len())
	})

	t.Run("cursors can be read during dispatch", func(t *testing.T) {
		list := NewObservableList("a", "b")
		c := utils.Must(list.Cursor())

		var seen []string
		_, err := list.AddListener(ChangeListenerFunc[string](func(event ChangeEvent[string]) {
			if c.HasPrevious() {
				elem, err := c.Previous()
				if assert.NoError(t, err) {
					seen = append(seen, elem)
				}
				_, err = c.Next()
				assert.NoError(t, err)
			}
			assert.ErrorIs(t, c.Add("z"), ErrReentrantMutation)
		}))
		require.NoError(t, err)

		require.NoError(t, list.Insert(0, "x"))
		assert.Equal(t, []string{"x"}, seen)
		assert.Equal(t, []string{"x", "a", "b"}, list.Values())
	})

	t.Run("cursors cannot be created during dispatch", func(t *testing.T) {
		list := NewObservableList("a")

		calls := 0
		_, err := list.AddListener(ChangeListenerFunc[string](func(event ChangeEvent[string]) {
			calls++

			c, err := list.Cursor()
			assert.ErrorIs(t, err, ErrReentrantMutation)
			assert.Nil(t, c)

			c, err = list.CursorFromEnd()
			assert.ErrorIs(t, err, ErrReentrantMutation)
			assert.Nil(t, c)
		}))
		require.NoError(t, err)

		require.NoError(t, list.Append("b"))
		assert.Equal(t, 1, calls)
		assert.Equal(t, 1, list.ListenerCount())

		c, err := list.CursorFromEnd()
		require.NoError(t, err)
		assert.Equal(t, 2, c.NextIndex())
	})

	t.Run("logging", func(t *testing.T) {
		buf := bytes.NewBuffer(nil)
		logger := zerolog.New(buf).Level(zerolog.TraceLevel)

		list := NewObservableListWithConfig(ObservableListConfig{Logger: &logger}, "a")
		c := utils.Must(list.Cursor())
		require.NoError(t, list.Append("b"))
		require.NoError(t, c.Close())

		logs := buf.String()
		assert.Contains(t, logs, `"msg":"listener added"`)
		assert.Contains(t, logs, `"msg":"listener removed"`)
		assert.Contains(t, logs, `"kind":"insert-elem"`)
		assert.Contains(t, logs, `"list":"`+list.Id().String()+`"`)
		assert.Contains(t, logs, `"src":"memds/list"`)
	})

	t.Run("logging with per-source levels", func(t *testing.T) {
		buf := bytes.NewBuffer(nil)
		logger := zerolog.New(buf).Level(zerolog.InfoLevel)

		t.Run("debug logs should be ignored if internal debug logs are disabled", func(t *testing.T) {
			buf.Reset()
			levels := slog.NewLevels(slog.LevelsInitialization{DefaultLevel: zerolog.TraceLevel})

			list := NewObservableListWithConfig(ObservableListConfig{Logger: &logger, Levels: levels}, "a")
			utils.Must(list.Cursor())
			require.NoError(t, list.Append("b"))

			assert.Empty(t, buf.String())
		})

		t.Run("the level of the list source should be used", func(t *testing.T) {
			buf.Reset()
			levels := slog.NewLevels(slog.LevelsInitialization{
				DefaultLevel:            zerolog.InfoLevel,
				BySource:                map[string]zerolog.Level{OBSERVABLE_LIST_LOG_SRC: zerolog.DebugLevel},
				EnableInternalDebugLogs: true,
			})

			list := NewObservableListWithConfig(ObservableListConfig{Logger: &logger, Levels: levels}, "a")
			utils.Must(list.Cursor())
			require.NoError(t, list.Append("b"))

			logs := buf.String()
			assert.Contains(t, logs, `"msg":"listener added"`)
			//change events are logged at the trace level.
			assert.NotContains(t, logs, `"kind":"insert-elem"`)
		})
	})
}

func TestChangeEvent(t *testing.T) {

	t.Run("String", func(t *testing.T) {
		assert.Equal(t, "insert-elem a at 0", ChangeEvent[string]{Kind: InsertElem, NewValue: "a"}.String())
		assert.Equal(t, "remove-elem a at 1", ChangeEvent[string]{Kind: RemoveElem, Index: 1, OldValue: "a"}.String())
		assert.Equal(t, "update-elem a -> b at 2", ChangeEvent[string]{Kind: UpdateElem, Index: 2, OldValue: "a", NewValue: "b"}.String())
	})

	t.Run("ChangeKindFromString", func(t *testing.T) {
		kind, ok := ChangeKindFromString("remove-elem")
		assert.True(t, ok)
		assert.Equal(t, RemoveElem, kind)

		_, ok = ChangeKindFromString("x")
		assert.False(t, ok)
	})

	t.Run("events from direct edits should have no origin", func(t *testing.T) {
		list := NewObservableList[int]()
		recorder, _, err := RecordChanges(list)
		require.NoError(t, err)

		require.NoError(t, list.Append(1))
		assert.Equal(t, NO_LISTENER_HANDLE, recorder.Events()[0].Origin())
	})

	t.Run("ApplyTo", func(t *testing.T) {
		list := NewObservableList("a", "b")

		require.NoError(t, ChangeEvent[string]{Kind: InsertElem, Index: 1, NewValue: "x"}.ApplyTo(list))
		require.NoError(t, ChangeEvent[string]{Kind: UpdateElem, Index: 0, NewValue: "A"}.ApplyTo(list))
		require.NoError(t, ChangeEvent[string]{Kind: RemoveElem, Index: 2}.ApplyTo(list))
		assert.Equal(t, []string{"A", "x"}, list.Values())

		assert.ErrorIs(t, ChangeEvent[string]{Kind: RemoveElem, Index: 2}.ApplyTo(list), ErrIndexOutOfRange)
		assert.ErrorIs(t, ChangeEvent[string]{}.ApplyTo(list), ErrInvalidChangeKind)
	})
}
