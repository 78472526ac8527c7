package scenario

import (
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/inoxlang/eventlist/internal/memds"
	"github.com/inoxlang/eventlist/internal/slog"
	"github.com/inoxlang/eventlist/internal/utils"
	"github.com/rs/zerolog"
)

const (
	SCENARIO_LOG_SRC = "scenario"
)

type Report struct {
	Name     string        `json:"name"`
	ListId   string        `json:"listId"`
	Initial  []string      `json:"initial"`
	Elements []string      `json:"elements"`
	Events   []EventRecord `json:"events"`
	Failures []StepFailure `json:"failures,omitempty"`
}

// EventRecord is the serializable form of a change event.
type EventRecord struct {
	Kind     string `json:"kind"`
	Index    int    `json:"index"`
	OldValue string `json:"oldValue,omitempty"`
	NewValue string `json:"newValue,omitempty"`
}

func (r EventRecord) ChangeEvent() (memds.ChangeEvent[string], error) {
	kind, ok := memds.ChangeKindFromString(r.Kind)
	if !ok {
		return memds.ChangeEvent[string]{}, fmt.Errorf("%w: %q", memds.ErrInvalidChangeKind, r.Kind)
	}
	return memds.ChangeEvent[string]{
		Kind:     kind,
		Index:    r.Index,
		OldValue: r.OldValue,
		NewValue: r.NewValue,
	}, nil
}

// Replay applies the records in order to a new empty list and returns the list.
func Replay(records []EventRecord, config RunConfig) (*memds.ObservableList[string], error) {
	list := memds.NewObservableListWithConfig[string](memds.ObservableListConfig{
		Logger: config.Logger,
		Levels: config.Levels,
	})

	for i, record := range records {
		event, err := record.ChangeEvent()
		if err == nil {
			err = event.ApplyTo(list)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to replay record %d: %w", i, err)
		}
	}
	return list, nil
}

type StepFailure struct {
	Step    int    `json:"step"` //-1 for the final check
	Op      string `json:"op"`
	Message string `json:"message"`
}

func (f StepFailure) Error() string {
	if f.Step < 0 {
		return f.Message
	}
	return fmt.Sprintf("step %d (%s): %s", f.Step, f.Op, f.Message)
}

// History returns the records needed to rebuild the final list from an empty list: one insertion per
// initial element followed by the recorded events.
func (r Report) History() []EventRecord {
	history := make([]EventRecord, 0, len(r.Initial)+len(r.Events))
	for i, elem := range r.Initial {
		history = append(history, EventRecord{
			Kind:     memds.InsertElem.String(),
			Index:    i,
			NewValue: elem,
		})
	}
	return append(history, r.Events...)
}

func (r Report) Ok() bool {
	return len(r.Failures) == 0
}

// Err combines the failures in a single error, nil is returned if there are no failures.
func (r Report) Err() error {
	if r.Ok() {
		return nil
	}
	errs := utils.MapSlice(r.Failures, func(f StepFailure) error { return f })
	return utils.CombineErrorsWithPrefixMessage(fmt.Sprintf("scenario %s failed", r.Name), errs...)
}

type RunConfig struct {
	Logger *zerolog.Logger //can be nil
	Levels *slog.Levels    //per-source levels, can be nil
}

// Run executes the steps of the scenario on a new list of strings, it does not stop at the first failure.
// The logger of the configuration is passed to the list.
func Run(s Scenario, config RunConfig) Report {
	list := memds.NewObservableListWithConfig(memds.ObservableListConfig{
		Logger: config.Logger,
		Levels: config.Levels,
	}, s.Initial...)

	r := &runner{
		list:    list,
		cursors: map[string]*memds.Cursor[string]{},
		report: Report{
			Name:    s.Name,
			ListId:  list.Id().String(),
			Initial: utils.CopySlice(s.Initial),
		},
	}

	recorder, _, err := memds.RecordChanges(list)
	utils.PanicIfErr(err)

	for i, step := range s.Steps {
		r.runStep(i, step)
	}

	for _, c := range r.cursors {
		// cursors may already be closed by a close step, Close is idempotent.
		utils.PanicIfErr(c.Close())
	}

	r.report.Elements = list.Values()
	r.report.Events = utils.MapSlice(recorder.Drain(), func(e memds.ChangeEvent[string]) EventRecord {
		return EventRecord{
			Kind:     e.Kind.String(),
			Index:    e.Index,
			OldValue: e.OldValue,
			NewValue: e.NewValue,
		}
	})

	if s.Expect != nil && !slices.Equal(s.Expect, r.report.Elements) {
		r.report.Failures = append(r.report.Failures, StepFailure{
			Step:    -1,
			Message: fmt.Sprintf("final elements are %q, %q was expected", r.report.Elements, s.Expect),
		})
	}

	if config.Logger != nil {
		scenarioLogger := slog.ChildLoggerForSourceWithLevels(*config.Logger, SCENARIO_LOG_SRC, config.Levels)
		scenarioLogger.Debug().
			Str("scenario", s.Name).
			Int("steps", len(s.Steps)).
			Int("failures", len(r.report.Failures)).
			Msg("scenario executed")
	}

	return r.report
}

type runner struct {
	list    *memds.ObservableList[string]
	cursors map[string]*memds.Cursor[string]
	report  Report
}

func (r *runner) fail(index int, step Step, format string, args ...any) {
	r.report.Failures = append(r.report.Failures, StepFailure{
		Step:    index,
		Op:      step.Op,
		Message: fmt.Sprintf(format, args...),
	})
}

func (r *runner) runStep(index int, step Step) {
	var (
		result    string
		hasResult bool
		err       error
	)

	cursor := r.cursors[step.Cursor]

	switch step.Op {
	case INSERT_OP:
		err = r.list.Insert(*step.Index, step.Value)
	case APPEND_OP:
		err = r.list.Append(step.Value)
	case REMOVE_OP:
		result, err = r.list.RemoveAt(*step.Index)
		hasResult = true
	case SET_OP:
		result, err = r.list.Set(*step.Index, step.Value)
		hasResult = true
	case CURSOR_OP:
		if prev, ok := r.cursors[step.Cursor]; ok {
			utils.PanicIfErr(prev.Close())
		}

		switch {
		case step.FromEnd:
			cursor, err = r.list.CursorFromEnd()
		case step.Index != nil:
			cursor, err = r.list.CursorAt(*step.Index)
		default:
			cursor, err = r.list.Cursor()
		}
		if err == nil {
			r.cursors[step.Cursor] = cursor
		} else {
			delete(r.cursors, step.Cursor)
		}
	case NEXT_OP, PREVIOUS_OP, HAS_NEXT_OP, HAS_PREVIOUS_OP, ADD_OP, CURSOR_REMOVE_OP, CURSOR_SET_OP, CLOSE_OP:
		if cursor == nil {
			r.fail(index, step, "cursor %q does not exist", step.Cursor)
			return
		}
		result, hasResult, err = runCursorStep(cursor, step)
	default:
		r.fail(index, step, "unknown operation")
		return
	}

	if step.Error != "" {
		expectedErr := ERROR_KINDS[step.Error]
		switch {
		case err == nil:
			r.fail(index, step, "%s error expected", step.Error)
		case !errors.Is(err, expectedErr):
			r.fail(index, step, "%s error expected, got: %s", step.Error, err)
		}
		return
	}

	if err != nil {
		r.fail(index, step, "unexpected error: %s", err)
		return
	}

	if step.Expect != nil {
		if !hasResult {
			r.fail(index, step, "operation has no result to check")
		} else if result != *step.Expect {
			r.fail(index, step, "%q expected, got %q", *step.Expect, result)
		}
	}
}

func runCursorStep(cursor *memds.Cursor[string], step Step) (result string, hasResult bool, err error) {
	switch step.Op {
	case NEXT_OP:
		result, err = cursor.Next()
		return result, true, err
	case PREVIOUS_OP:
		result, err = cursor.Previous()
		return result, true, err
	case HAS_NEXT_OP:
		return strconv.FormatBool(cursor.HasNext()), true, nil
	case HAS_PREVIOUS_OP:
		return strconv.FormatBool(cursor.HasPrevious()), true, nil
	case ADD_OP:
		return "", false, cursor.Add(step.Value)
	case CURSOR_REMOVE_OP:
		return "", false, cursor.Remove()
	case CURSOR_SET_OP:
		return "", false, cursor.Set(step.Value)
	case CLOSE_OP:
		return "", false, cursor.Close()
	}
	panic(fmt.Errorf("unknown cursor operation %q", step.Op))
}
