package scenario

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"runtime"
	"slices"
	"sync"

	"github.com/bits-and-blooms/bitset"
	"github.com/inoxlang/eventlist/internal/memds"
	"github.com/inoxlang/eventlist/internal/slog"
	"github.com/inoxlang/eventlist/internal/utils"
	"github.com/rs/zerolog"
	"github.com/tidwall/lotsa"
)

const (
	SOAK_LOG_SRC = "soak"

	MAX_SOAK_LIST_SIZE   = 64
	INITIAL_SOAK_SIZE    = 8
	DEFAULT_SOAK_WORKERS = 1
	CTX_CHECK_INTERVAL   = 256
	HEAP_SAMPLE_INTERVAL = 1024

	NO_TRACKED_ID = 0
)

var (
	ErrSoakViolation = errors.New("soak: model violation")

	SOAK_OPS = []string{
		INSERT_OP, REMOVE_OP, SET_OP,
		NEXT_OP, PREVIOUS_OP, ADD_OP, CURSOR_REMOVE_OP, CURSOR_SET_OP,
	}
)

type SoakConfig struct {
	Operations int //operations per worker
	Cursors    int
	Workers    int //each worker soaks its own list, defaults to DEFAULT_SOAK_WORKERS
	Seed       int64
	Logger     *zerolog.Logger //can be nil
	Levels     *slog.Levels    //per-source levels, can be nil
}

type SoakReport struct {
	Operations int            `json:"operations"`
	Workers    int            `json:"workers"`
	OpCounts   map[string]int `json:"opCounts"`
	MaxSize    int            `json:"maxSize"`

	//heap statistics in bytes, the start and end values are read after a garbage collection.
	HeapAllocStart uint64 `json:"heapAllocStart"`
	PeakHeapAlloc  uint64 `json:"peakHeapAlloc"`
	HeapAllocEnd   uint64 `json:"heapAllocEnd"`
}

// Soak applies random edits to observable lists of unique ids through the lists and several cursors,
// after each operation the state of every cursor is compared with an independent model: the set of ids
// before the boundary and the id of the tracked element. The edits are also mirrored to a second list.
// Each worker uses its own list and a seed derived from config.Seed.
func Soak(ctx context.Context, config SoakConfig) (SoakReport, error) {
	workers := config.Workers
	if workers <= 0 {
		workers = DEFAULT_SOAK_WORKERS
	}

	logger := zerolog.Nop()
	if config.Logger != nil {
		logger = slog.ChildLoggerForSourceWithLevels(*config.Logger, SOAK_LOG_SRC, config.Levels)
	}

	states := make([]*soakState, workers)
	for i := range states {
		state, err := newSoakState(config, config.Seed+int64(i))
		if err != nil {
			return SoakReport{}, err
		}
		states[i] = state
	}

	heapAllocStart := readHeapAlloc(true)

	logger.Info().Int("workers", workers).Int("operations", config.Operations).Int("cursors", config.Cursors).
		Int64("seed", config.Seed).Msg("start soak")

	var ctxErr error
	var ctxErrOnce sync.Once

	lotsa.Ops(config.Operations*workers, workers, func(i, thread int) {
		state := states[thread]
		if state.err != nil {
			return
		}

		if state.ops%CTX_CHECK_INTERVAL == 0 {
			if err := ctx.Err(); err != nil {
				state.err = err
				ctxErrOnce.Do(func() { ctxErr = err })
				return
			}
		}

		state.step()

		if state.ops%HEAP_SAMPLE_INTERVAL == 0 {
			state.peakHeapAlloc = utils.Max(state.peakHeapAlloc, readHeapAlloc(false))
		}
	})

	if ctxErr != nil {
		return SoakReport{}, ctxErr
	}

	report := SoakReport{
		Workers:        workers,
		OpCounts:       map[string]int{},
		HeapAllocStart: heapAllocStart,
		PeakHeapAlloc:  readHeapAlloc(false),
	}

	var errs []error
	for i, state := range states {
		if state.err == nil {
			state.err = state.finish()
		}
		if state.err != nil {
			errs = append(errs, fmt.Errorf("worker %d (seed %d): %w", i, state.seed, state.err))
		}

		report.Operations += state.ops
		report.MaxSize = utils.Max(report.MaxSize, state.maxSize)
		report.PeakHeapAlloc = utils.Max(report.PeakHeapAlloc, state.peakHeapAlloc)
		for op, count := range state.opCounts {
			report.OpCounts[op] += count
		}
	}

	//the lists are no longer referenced by the states.
	clear(states)
	report.HeapAllocEnd = readHeapAlloc(true)

	if len(errs) > 0 {
		err := utils.CombineErrors(errs...)
		logger.Error().Err(err).Msg("soak failed")
		return report, fmt.Errorf("%w\n%w", ErrSoakViolation, err)
	}

	logger.Info().
		Int("operations", report.Operations).
		Int("max-size", report.MaxSize).
		Uint64("heap-alloc-start", report.HeapAllocStart).
		Uint64("peak-heap-alloc", report.PeakHeapAlloc).
		Uint64("heap-alloc-end", report.HeapAllocEnd).
		Msg("soak completed")
	return report, nil
}

func readHeapAlloc(collect bool) uint64 {
	if collect {
		runtime.GC()
	}
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return stats.HeapAlloc
}

// soakState is owned by a single worker.
type soakState struct {
	seed   int64
	random *rand.Rand

	list    *memds.ObservableList[uint]
	mirror  *memds.Mirror[uint]
	cursors []*memds.Cursor[uint]
	models  []*cursorModel

	elements []uint //expected elements
	nextId   uint

	ops           int
	opCounts      map[string]int
	maxSize       int
	peakHeapAlloc uint64
	err           error
}

// cursorModel is the expected state of a cursor.
type cursorModel struct {
	behind  *bitset.BitSet //ids of the elements before the boundary
	tracked uint           //NO_TRACKED_ID if there is no tracked element
}

func (m *cursorModel) boundary() int {
	return int(m.behind.Count())
}

func newSoakState(config SoakConfig, seed int64) (*soakState, error) {
	state := &soakState{
		seed:     seed,
		random:   rand.New(rand.NewSource(seed)),
		nextId:   NO_TRACKED_ID + 1,
		opCounts: map[string]int{},
	}

	for i := 0; i < INITIAL_SOAK_SIZE; i++ {
		state.elements = append(state.elements, state.newId())
	}

	state.list = memds.NewObservableListWithConfig(memds.ObservableListConfig{
		Logger: config.Logger,
		Levels: config.Levels,
	}, state.elements...)
	state.maxSize = len(state.elements)

	mirror, err := memds.NewMirror(state.list, memds.NewObservableList[uint]())
	if err != nil {
		return nil, err
	}
	state.mirror = mirror

	for i := 0; i < config.Cursors; i++ {
		boundary := state.random.Intn(len(state.elements) + 1)
		cursor, err := state.list.CursorAt(boundary)
		if err != nil {
			return nil, err
		}

		model := &cursorModel{behind: bitset.New(MAX_SOAK_LIST_SIZE)}
		for _, id := range state.elements[:boundary] {
			model.behind.Set(id)
		}

		state.cursors = append(state.cursors, cursor)
		state.models = append(state.models, model)
	}

	return state, nil
}

func (s *soakState) newId() uint {
	id := s.nextId
	s.nextId++
	return id
}

func (s *soakState) step() {
	op := SOAK_OPS[s.random.Intn(len(SOAK_OPS))]
	if len(s.cursors) == 0 {
		op = SOAK_OPS[s.random.Intn(3)]
	}

	if len(s.elements) >= MAX_SOAK_LIST_SIZE && (op == INSERT_OP || op == ADD_OP) {
		op = REMOVE_OP
	}

	s.ops++
	s.opCounts[op]++

	var err error
	switch op {
	case INSERT_OP, REMOVE_OP, SET_OP:
		err = s.listStep(op)
	default:
		cursorIndex := s.random.Intn(len(s.cursors))
		err = s.cursorStep(op, cursorIndex)
	}

	if err == nil {
		err = s.check()
	}

	if err != nil {
		s.err = fmt.Errorf("operation %d (%s): %w", s.ops, op, err)
	}
	s.maxSize = utils.Max(s.maxSize, len(s.elements))
}

func (s *soakState) listStep(op string) error {
	switch op {
	case INSERT_OP:
		index := s.random.Intn(len(s.elements) + 1)
		id := s.newId()
		if err := s.list.Insert(index, id); err != nil {
			return err
		}
		s.modelInsert(index, id, -1)
	case REMOVE_OP:
		if len(s.elements) == 0 {
			_, err := s.list.RemoveAt(0)
			if !errors.Is(err, memds.ErrIndexOutOfRange) {
				return fmt.Errorf("out of range error expected, got %v", err)
			}
			return nil
		}
		index := s.random.Intn(len(s.elements))
		removed, err := s.list.RemoveAt(index)
		if err != nil {
			return err
		}
		if removed != s.elements[index] {
			return fmt.Errorf("%d was removed instead of %d", removed, s.elements[index])
		}
		s.modelRemove(index)
	case SET_OP:
		if len(s.elements) == 0 {
			return nil
		}
		index := s.random.Intn(len(s.elements))
		id := s.newId()
		prev, err := s.list.Set(index, id)
		if err != nil {
			return err
		}
		if prev != s.elements[index] {
			return fmt.Errorf("%d was replaced instead of %d", prev, s.elements[index])
		}
		s.modelUpdate(index, id)
	}
	return nil
}

func (s *soakState) cursorStep(op string, cursorIndex int) error {
	cursor := s.cursors[cursorIndex]
	model := s.models[cursorIndex]
	boundary := model.boundary()

	switch op {
	case NEXT_OP:
		elem, err := cursor.Next()
		if boundary == len(s.elements) {
			return expectError(err, memds.ErrNoSuchElement)
		}
		if err != nil {
			return err
		}
		if elem != s.elements[boundary] {
			return fmt.Errorf("cursor %d: next returned %d instead of %d", cursorIndex, elem, s.elements[boundary])
		}
		model.behind.Set(elem)
		model.tracked = elem
	case PREVIOUS_OP:
		elem, err := cursor.Previous()
		if boundary == 0 {
			return expectError(err, memds.ErrNoSuchElement)
		}
		if err != nil {
			return err
		}
		if elem != s.elements[boundary-1] {
			return fmt.Errorf("cursor %d: previous returned %d instead of %d", cursorIndex, elem, s.elements[boundary-1])
		}
		model.behind.Clear(elem)
		model.tracked = elem
	case ADD_OP:
		id := s.newId()
		if err := cursor.Add(id); err != nil {
			return err
		}
		s.modelInsert(boundary, id, cursorIndex)
		model.behind.Set(id)
		model.tracked = NO_TRACKED_ID
	case CURSOR_REMOVE_OP:
		err := cursor.Remove()
		if model.tracked == NO_TRACKED_ID {
			return expectError(err, memds.ErrIllegalState)
		}
		if err != nil {
			return err
		}
		s.modelRemove(slices.Index(s.elements, model.tracked))
	case CURSOR_SET_OP:
		id := s.newId()
		err := cursor.Set(id)
		if model.tracked == NO_TRACKED_ID {
			return expectError(err, memds.ErrIllegalState)
		}
		if err != nil {
			return err
		}
		s.modelUpdate(slices.Index(s.elements, model.tracked), id)
	}
	return nil
}

// modelInsert updates the expected state after the insertion of id at index. The model of the
// acting cursor (actor >= 0) is not updated.
func (s *soakState) modelInsert(index int, id uint, actor int) {
	s.elements = slices.Insert(s.elements, index, id)

	for i, model := range s.models {
		if i != actor && index <= model.boundary() {
			model.behind.Set(id)
		}
	}
}

func (s *soakState) modelRemove(index int) {
	id := s.elements[index]
	s.elements = slices.Delete(s.elements, index, index+1)

	for _, model := range s.models {
		model.behind.Clear(id)
		if model.tracked == id {
			model.tracked = NO_TRACKED_ID
		}
	}
}

func (s *soakState) modelUpdate(index int, id uint) {
	prev := s.elements[index]
	s.elements[index] = id

	for _, model := range s.models {
		if model.behind.Test(prev) {
			model.behind.Clear(prev)
			model.behind.Set(id)
		}
		if model.tracked == prev {
			model.tracked = id
		}
	}
}

// check compares the list and the cursors with the model.
func (s *soakState) check() error {
	values := s.list.Values()
	if !slices.Equal(values, s.elements) {
		return fmt.Errorf("list elements %v differ from the expected elements %v", values, s.elements)
	}

	for i, cursor := range s.cursors {
		model := s.models[i]
		boundary := model.boundary()

		if cursor.NextIndex() != boundary {
			return fmt.Errorf("cursor %d: boundary is %d, %d was expected", i, cursor.NextIndex(), boundary)
		}

		for j, id := range s.elements {
			if model.behind.Test(id) != (j < boundary) {
				return fmt.Errorf("cursor %d: element %d at %d is on the wrong side of the boundary %d", i, id, j, boundary)
			}
		}

		trackedIndex, ok := cursor.LastReturnedIndex()
		switch {
		case model.tracked == NO_TRACKED_ID && ok:
			return fmt.Errorf("cursor %d: no element should be tracked, index %d is", i, trackedIndex)
		case model.tracked != NO_TRACKED_ID && !ok:
			return fmt.Errorf("cursor %d: element %d should be tracked", i, model.tracked)
		case ok && trackedIndex >= len(s.elements):
			return fmt.Errorf("cursor %d: tracked index %d is out of range", i, trackedIndex)
		case ok && s.elements[trackedIndex] != model.tracked:
			return fmt.Errorf("cursor %d: element %d is tracked instead of %d", i, s.elements[trackedIndex], model.tracked)
		}
	}
	return nil
}

func (s *soakState) finish() error {
	if err := s.mirror.Err(); err != nil {
		return err
	}
	if !s.mirror.InSync(func(a, b uint) bool { return a == b }) {
		return errors.New("mirror is not in sync with the list")
	}

	for _, cursor := range s.cursors {
		if err := cursor.Close(); err != nil {
			return err
		}
	}

	if count := s.list.ListenerCount(); count != 1 {
		return fmt.Errorf("only the mirror should listen to the list, %d listeners found", count)
	}
	return s.mirror.Stop()
}

func expectError(err error, expected error) error {
	if !errors.Is(err, expected) {
		return fmt.Errorf("%w expected, got %v", expected, err)
	}
	return nil
}
