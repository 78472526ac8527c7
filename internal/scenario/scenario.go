package scenario

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/goccy/go-json"
	"github.com/goccy/go-yaml"
	"github.com/inoxlang/eventlist/internal/memds"
)

const (
	// list operations
	INSERT_OP = "insert"
	APPEND_OP = "append"
	REMOVE_OP = "remove"
	SET_OP    = "set"

	// cursor operations
	CURSOR_OP        = "cursor"
	NEXT_OP          = "next"
	PREVIOUS_OP      = "previous"
	HAS_NEXT_OP      = "has-next"
	HAS_PREVIOUS_OP  = "has-previous"
	ADD_OP           = "add"
	CURSOR_REMOVE_OP = "cursor-remove"
	CURSOR_SET_OP    = "cursor-set"
	CLOSE_OP         = "close"

	JSON_EXTENSION = ".json"
)

var (
	ErrInvalidScenario = errors.New("invalid scenario")

	LIST_OPS   = []string{INSERT_OP, APPEND_OP, REMOVE_OP, SET_OP}
	CURSOR_OPS = []string{CURSOR_OP, NEXT_OP, PREVIOUS_OP, HAS_NEXT_OP, HAS_PREVIOUS_OP, ADD_OP, CURSOR_REMOVE_OP, CURSOR_SET_OP, CLOSE_OP}

	ERROR_KINDS = map[string]error{
		"out-of-range":       memds.ErrIndexOutOfRange,
		"no-such-element":    memds.ErrNoSuchElement,
		"illegal-state":      memds.ErrIllegalState,
		"reentrant-mutation": memds.ErrReentrantMutation,
		"closed-cursor":      memds.ErrClosedCursor,
	}
)

// A Scenario is a scripted sequence of edits and traversal steps run against a single observable list of strings.
type Scenario struct {
	Name    string   `yaml:"name" json:"name"`
	Initial []string `yaml:"initial" json:"initial"`
	Steps   []Step   `yaml:"steps" json:"steps"`

	// expected final elements, not checked if nil.
	Expect []string `yaml:"expect" json:"expect"`
}

type Step struct {
	Op      string `yaml:"op" json:"op"`
	Cursor  string `yaml:"cursor,omitempty" json:"cursor,omitempty"`
	Index   *int   `yaml:"index,omitempty" json:"index,omitempty"`
	FromEnd bool   `yaml:"from-end,omitempty" json:"from-end,omitempty"`
	Value   string `yaml:"value,omitempty" json:"value,omitempty"`

	// Expected result: the returned element for next, previous, remove and set (previous element),
	// "true" or "false" for has-next and has-previous.
	Expect *string `yaml:"expect,omitempty" json:"expect,omitempty"`

	// Expected error kind, see ERROR_KINDS.
	Error string `yaml:"error,omitempty" json:"error,omitempty"`
}

func (s Step) String() string {
	b := &strings.Builder{}
	b.WriteString(s.Op)
	if s.Cursor != "" {
		fmt.Fprintf(b, " cursor=%s", s.Cursor)
	}
	if s.Index != nil {
		fmt.Fprintf(b, " index=%d", *s.Index)
	}
	if s.Value != "" {
		fmt.Fprintf(b, " value=%q", s.Value)
	}
	return b.String()
}

// ReadFile reads a scenario file, files with a .json extension are parsed as JSON, other files as YAML.
func ReadFile(path string) (Scenario, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, err
	}

	var s Scenario
	if strings.EqualFold(filepath.Ext(path), JSON_EXTENSION) {
		err = json.Unmarshal(content, &s)
	} else {
		err = yaml.Unmarshal(content, &s)
	}
	if err != nil {
		return Scenario{}, fmt.Errorf("%w: %s: %w", ErrInvalidScenario, path, err)
	}

	if s.Name == "" {
		s.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	if err := s.Validate(); err != nil {
		return Scenario{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Validate checks the operations and their arguments, cursors must be created before being used.
func (s Scenario) Validate() error {
	declaredCursors := map[string]bool{}

	for i, step := range s.Steps {
		invalid := func(format string, args ...any) error {
			return fmt.Errorf("%w: step %d (%s): %s", ErrInvalidScenario, i, step.Op, fmt.Sprintf(format, args...))
		}

		isListOp := slices.Contains(LIST_OPS, step.Op)
		isCursorOp := slices.Contains(CURSOR_OPS, step.Op)

		switch {
		case !isListOp && !isCursorOp:
			return invalid("unknown operation")
		case isListOp && step.Cursor != "":
			return invalid("list operations do not accept a cursor")
		case isCursorOp && step.Cursor == "":
			return invalid("missing cursor name")
		}

		if step.Error != "" {
			if _, ok := ERROR_KINDS[step.Error]; !ok {
				return invalid("unknown error kind %q", step.Error)
			}
		}

		switch step.Op {
		case INSERT_OP, REMOVE_OP, SET_OP:
			if step.Index == nil {
				return invalid("missing index")
			}
		case CURSOR_OP:
			if step.Index != nil && step.FromEnd {
				return invalid("index and from-end are mutually exclusive")
			}
			declaredCursors[step.Cursor] = true
		case HAS_NEXT_OP, HAS_PREVIOUS_OP:
			if step.Expect == nil || (*step.Expect != "true" && *step.Expect != "false") {
				return invalid("expect should be true or false")
			}
		}

		if isCursorOp && !declaredCursors[step.Cursor] {
			return invalid("cursor %q is used before being created", step.Cursor)
		}
	}
	return nil
}
