package textclass

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/textclass/pkg/textclass/classify"
)

// Stage is a step of a training run.
type Stage string

const (
	StageRequested   Stage = "requested"
	StageFetching    Stage = "fetching"
	StageVectorizing Stage = "vectorizing"
	StageTraining    Stage = "training"
	StagePersisting  Stage = "persisting"
	StageCompleted   Stage = "completed"
	StageFailed      Stage = "failed"
)

// next lists the forward transition of every non-terminal stage. Failed is
// reachable from any of them.
var next = map[Stage]Stage{
	StageRequested:   StageFetching,
	StageFetching:    StageVectorizing,
	StageVectorizing: StageTraining,
	StageTraining:    StagePersisting,
	StagePersisting:  StageCompleted,
}

// Terminal reports whether no transition leaves s.
func (s Stage) Terminal() bool {
	return s == StageCompleted || s == StageFailed
}

// Transition records entering a stage.
type Transition struct {
	Stage Stage
	At    time.Time
}

// Run is the record of one training request.
type Run struct {
	ID          string
	Kind        classify.Kind
	Stage       Stage
	Transitions []Transition
	Err         error
}

func newRun(id string, kind classify.Kind, now time.Time) *Run {
	return &Run{
		ID:          id,
		Kind:        kind,
		Stage:       StageRequested,
		Transitions: []Transition{{Stage: StageRequested, At: now}},
	}
}

// advance moves the run to to, which must be the next stage.
func (r *Run) advance(to Stage, now time.Time) error {
	if want, ok := next[r.Stage]; !ok || want != to {
		return fmt.Errorf("run %s: illegal transition %s -> %s", r.ID, r.Stage, to)
	}
	r.Stage = to
	r.Transitions = append(r.Transitions, Transition{Stage: to, At: now})
	return nil
}

// fail ends the run with err. A terminal run is left untouched.
func (r *Run) fail(err error, now time.Time) {
	if r.Stage.Terminal() {
		return
	}
	r.Stage = StageFailed
	r.Err = err
	r.Transitions = append(r.Transitions, Transition{Stage: StageFailed, At: now})
}

// Stages returns the stages the run went through, in order.
func (r *Run) Stages() []Stage {
	out := make([]Stage, len(r.Transitions))
	for i, t := range r.Transitions {
		out[i] = t.Stage
	}
	return out
}

// Duration is the time between the first and the last transition.
func (r *Run) Duration() time.Duration {
	if len(r.Transitions) < 2 {
		return 0
	}
	return r.Transitions[len(r.Transitions)-1].At.Sub(r.Transitions[0].At)
}

// runIDs hands out monotonic ULIDs. ulid.MonotonicEntropy is not safe for
// concurrent use.
type runIDs struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func newRunIDs() *runIDs {
	return &runIDs{entropy: ulid.Monotonic(rand.Reader, 0)}
}

func (g *runIDs) next(now time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(now), g.entropy).String()
}
