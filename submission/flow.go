package submission

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/mbolis/dynaform/formstate"
	"github.com/mbolis/dynaform/log"
	"github.com/mbolis/dynaform/model"
	"github.com/mbolis/dynaform/validate"
)

type State int

const (
	Idle State = iota
	Confirming
	Submitting
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Confirming:
		return "confirming"
	case Submitting:
		return "submitting"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	}
	return "unknown"
}

type Modal int

const (
	NoModal Modal = iota
	ConfirmModal
	ProgressModal
	SuccessModal
	ErrorModal
)

// Modal is the dialog shown while the flow is in state s.
func (s State) Modal() Modal {
	switch s {
	case Confirming:
		return ConfirmModal
	case Submitting:
		return ProgressModal
	case Succeeded:
		return SuccessModal
	case Failed:
		return ErrorModal
	}
	return NoModal
}

var (
	ErrInvalidTransition = errors.New("invalid submission state transition")
	ErrAbandoned         = errors.New("submission flow abandoned")
)

// Target receives a confirmed submission: posted to the backend, or kept
// in the local queue.
type Target interface {
	Deliver(ctx context.Context, sub model.Submission) error
}

type TargetFunc func(ctx context.Context, sub model.Submission) error

func (f TargetFunc) Deliver(ctx context.Context, sub model.Submission) error {
	return f(ctx, sub)
}

type Submitter interface {
	Submit(ctx context.Context, sub model.Submission) (model.FormResponse, error)
}

type Enqueuer interface {
	Enqueue(ctx context.Context, sub model.Submission) (int64, error)
}

// Direct posts submissions through s.
func Direct(s Submitter) Target {
	return TargetFunc(func(ctx context.Context, sub model.Submission) error {
		resp, err := s.Submit(ctx, sub)
		if err != nil {
			return err
		}
		log.Debugf("submission.direct: form %d stored as response %d", sub.Form, resp.ID)
		return nil
	})
}

// Offline saves submissions to q for a later flush.
func Offline(q Enqueuer) Target {
	return TargetFunc(func(ctx context.Context, sub model.Submission) error {
		id, err := q.Enqueue(ctx, sub)
		if err != nil {
			return err
		}
		log.Debugf("submission.offline: form %d queued as entry %d", sub.Form, id)
		return nil
	})
}

// Flow walks one form fill through Idle -> Confirming -> Submitting ->
// {Succeeded, Failed}. The answers are kept on failure and discarded on
// success.
type Flow struct {
	mu        sync.Mutex
	schema    model.Schema
	store     *formstate.Store
	meta      Meta
	state     State
	err       error
	abandoned bool
}

func NewFlow(s model.Schema, st *formstate.Store, meta Meta) *Flow {
	return &Flow{schema: s, store: st, meta: meta}
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Err is the error of the last failed submission.
func (f *Flow) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Store returns the answers being edited.
func (f *Flow) Store() *formstate.Store {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.store
}

// Request asks to submit. A form with empty required fields stays Idle and
// the returned *validate.ValidationError names the first of them.
func (f *Flow) Request() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != Idle {
		return errors.Wrapf(ErrInvalidTransition, "request from %s", f.state)
	}
	if err := validate.Check(f.schema, f.store); err != nil {
		return err
	}
	f.state = Confirming
	return nil
}

func (f *Flow) Cancel() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != Confirming {
		return errors.Wrapf(ErrInvalidTransition, "cancel from %s", f.state)
	}
	f.state = Idle
	return nil
}

// Confirm builds the payload and hands it to t. A result arriving after
// Abandon is dropped and ErrAbandoned is returned.
func (f *Flow) Confirm(ctx context.Context, t Target) error {
	f.mu.Lock()
	if f.state != Confirming {
		state := f.state
		f.mu.Unlock()
		return errors.Wrapf(ErrInvalidTransition, "confirm from %s", state)
	}
	sub := Transform(f.schema, f.store, f.meta)
	if err := Stamp(&sub); err != nil {
		f.state, f.err = Failed, err
		f.mu.Unlock()
		return err
	}
	f.state, f.err = Submitting, nil
	f.mu.Unlock()

	err := t.Deliver(ctx, sub)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.abandoned {
		log.Debugf("submission.flow: late result for form %d ignored", f.meta.FormID)
		return ErrAbandoned
	}
	if err != nil {
		f.state, f.err = Failed, err
		return err
	}
	f.state = Succeeded
	f.store = formstate.New(f.schema)
	return nil
}

// Reset returns a finished flow to Idle so the user can try again.
func (f *Flow) Reset() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != Succeeded && f.state != Failed {
		return errors.Wrapf(ErrInvalidTransition, "reset from %s", f.state)
	}
	f.state, f.err = Idle, nil
	return nil
}

// Abandon marks the flow as no longer shown. In-flight deliveries are not
// cancelled, their outcome is just not applied.
func (f *Flow) Abandon() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.abandoned = true
}
