package pikala

// schedulerStage names one of the four FIFO queues of §4.4. A
// mutually-recursive graph of type definitions is only constructible
// because every closure enqueued for stage N runs only after every
// closure for stage < N has finished: types exist (with a TypeHandle)
// before any of them tries to resolve another's field type, members
// exist before any method body references them, and so on.
type schedulerStage int

const (
	stageCreateTypes    schedulerStage = iota // TypeBuilder.CreateType is not yet called
	stageDeclareMembers                       // parent, generic parameters, fields/methods/properties/events added
	stageAttachBodies                         // IL bodies, method overrides (custom attributes are not applied)
	stageFinalize                             // CreateType

	numStages
)

type deferredWork func() error

// scheduler drains its four queues in order (§4.4, §5): a closure
// running inside stage N may schedule further work for stage N itself
// or for a later stage, but never for an earlier one, since an earlier
// one has already drained.
type scheduler struct {
	queues [numStages][]deferredWork
	stage  schedulerStage
	active bool
}

func newScheduler() *scheduler {
	return &scheduler{}
}

// enqueue schedules work for the given stage. Called from outside
// run (e.g. while building the initial set of PickledTypeDefs), or
// from within a running stage to schedule something for the same or a
// later one.
func (s *scheduler) enqueue(stage schedulerStage, work deferredWork) error {
	if s.active && stage < s.stage {
		return &stageViolationError{From: int(s.stage), To: int(stage)}
	}
	s.queues[stage] = append(s.queues[stage], work)
	return nil
}

// popStage runs up to n pending closures off the current stage's
// queue (§4.4's "PopStages" primitive), returning how many actually
// ran — fewer than n if the queue emptied first.
func (s *scheduler) popStage(stage schedulerStage, n int) (int, error) {
	ran := 0
	for ran < n && len(s.queues[stage]) > 0 {
		work := s.queues[stage][0]
		s.queues[stage] = s.queues[stage][1:]
		if err := work(); err != nil {
			return ran, err
		}
		ran++
	}
	return ran, nil
}

// popStagesThrough is §4.4's `PopStages(state, N)` primitive: it forces
// every stage from the first through `through` (inclusive) to drain
// whatever work is queued so far, out of the normal end-of-recursion
// order. A leaf reference decoded mid-recursion (a FieldRef/MethodRef
// operand naming a type that is itself still under construction —
// including, for a self-referencing method body, the enclosing type)
// calls this before asking the façade to resolve the reference, so the
// declaring type's own member-declaration closure has already run by
// the time the lookup happens, even though the body that names it is
// still being decoded higher up the call stack.
func (s *scheduler) popStagesThrough(through schedulerStage) error {
	prevActive, prevStage := s.active, s.stage
	defer func() { s.active, s.stage = prevActive, prevStage }()
	s.active = true
	for stage := schedulerStage(0); stage <= through; stage++ {
		s.stage = stage
		for len(s.queues[stage]) > 0 {
			if _, err := s.popStage(stage, len(s.queues[stage])); err != nil {
				return err
			}
		}
	}
	return nil
}

// run drains every stage to completion, in order.
func (s *scheduler) run() error {
	return s.popStagesThrough(numStages - 1)
}

// assertDrained enforces the end-of-stream invariant: after run, every
// queue must be empty. A non-empty queue means some closure enqueued
// work for an already-drained stage via a path enqueue didn't catch, or
// a caller forgot to run the scheduler at all — either way it is a
// programming error in this package, not a malformed stream.
func (s *scheduler) assertDrained() error {
	for stage := schedulerStage(0); stage < numStages; stage++ {
		if len(s.queues[stage]) > 0 {
			return &stageViolationError{From: int(stage), To: int(stage)}
		}
	}
	return nil
}
