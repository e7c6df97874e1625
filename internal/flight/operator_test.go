package flight

import (
	"context"
	"sync"
)

// scriptedOperator answers menus and confirmations from queues and falls
// back to the defaults once a queue runs dry.
type scriptedOperator struct {
	mu          sync.Mutex
	interactive bool
	answers     []Option
	confirms    map[string][]bool
	interactFn  func(ctx context.Context, kind Option, s *Session) error
	postmortem  func(ctx context.Context, s *Session, cause error) error

	controller *Controller
	menus      []menuCall
	prompts    []string
	messages   []string
	errs       []error
}

type menuCall struct {
	options []Option
	def     Option
	mode    Option
}

func newScriptedOperator(answers ...Option) *scriptedOperator {
	return &scriptedOperator{interactive: true, answers: answers, confirms: map[string][]bool{}}
}

func (o *scriptedOperator) Interactive() bool     { return o.interactive }
func (o *scriptedOperator) SetInteractive(v bool) { o.interactive = v }

func (o *scriptedOperator) PresentMessage(msg string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.messages = append(o.messages, msg)
}

func (o *scriptedOperator) PresentError(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.errs = append(o.errs, err)
}

func (o *scriptedOperator) PresentMenu(_ context.Context, options []Option, def Option, _ string) (Option, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	call := menuCall{options: options, def: def}
	if o.controller != nil {
		call.mode = o.controller.Mode()
	}
	o.menus = append(o.menus, call)
	if !o.interactive || len(o.answers) == 0 {
		return def, nil
	}
	next := o.answers[0]
	o.answers = o.answers[1:]
	return next, nil
}

func (o *scriptedOperator) PresentConfirmation(_ context.Context, prompt string, def bool) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.prompts = append(o.prompts, prompt)
	queue := o.confirms[prompt]
	if !o.interactive || len(queue) == 0 {
		return def, nil
	}
	o.confirms[prompt] = queue[1:]
	return queue[0], nil
}

func (o *scriptedOperator) Interact(ctx context.Context, kind Option, s *Session) error {
	if o.interactFn == nil {
		return nil
	}
	return o.interactFn(ctx, kind, s)
}

func (o *scriptedOperator) Postmortem(ctx context.Context, s *Session, cause error) error {
	if o.postmortem == nil {
		return nil
	}
	return o.postmortem(ctx, s, cause)
}

func newTestController(op *scriptedOperator, settings Settings) *Controller {
	c := New("TestRaspador", op, nil, settings)
	op.controller = c
	return c
}

var testPilot = &Pilot{Name: "TestPilot"}

// countingFunc returns the results in order, then nil.
func countingFunc(label string, results ...error) (*Func, *int) {
	calls := 0
	f := NewFunc(label, func(context.Context, *Sortie) error {
		calls++
		if calls <= len(results) {
			return results[calls-1]
		}
		return nil
	})
	return f, &calls
}
