// Package operator is the terminal side of a run: prompts, menus and the
// interactive sessions an operator can open while a maneuver is on hold.
package operator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/chzyer/readline"

	"github.com/xyla-io/raspador/internal/flight"
	"github.com/xyla-io/raspador/internal/logger"
	"github.com/xyla-io/raspador/internal/script"
)

var errPromptTimeout = errors.New("prompt timed out")

// LineReader is the part of *readline.Instance the console uses.
type LineReader interface {
	Readline() (string, error)
	SetPrompt(prompt string)
	Refresh()
	Close() error
}

type Config struct {
	Interactive bool
	// PromptTimeout answers a prompt with its default after this long. Zero
	// waits forever.
	PromptTimeout time.Duration
	OutputDir     string
	ScriptDir     string
	// OpenPages opens saved HTML with Viewer, or the system opener when
	// Viewer is empty.
	OpenPages bool
	Viewer    string
}

type ScriptRunner interface {
	Run(ctx context.Context, source string, env script.Env) error
}

// Console implements flight.Operator on a terminal.
type Console struct {
	Config
	Scripts ScriptRunner

	rl  LineReader
	out io.Writer

	mu          sync.Mutex
	interactive bool

	startOnce sync.Once
	requests  chan struct{}
	lines     chan line
	pending   bool
	done      chan struct{}
	wg        sync.WaitGroup
}

type line struct {
	text string
	err  error
}

// NewConsole opens a readline prompt on the terminal.
func NewConsole(cfg Config) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, err
	}
	return NewConsoleWith(cfg, rl, rl.Stdout()), nil
}

func NewConsoleWith(cfg Config, rl LineReader, out io.Writer) *Console {
	if out == nil {
		out = os.Stdout
	}
	return &Console{
		Config:      cfg,
		rl:          rl,
		out:         out,
		interactive: cfg.Interactive,
		requests:    make(chan struct{}),
		lines:       make(chan line),
		done:        make(chan struct{}),
	}
}

// Close stops reading and releases the terminal.
func (c *Console) Close() error {
	select {
	case <-c.done:
		return nil
	default:
	}
	close(c.done)
	err := c.rl.Close()
	c.wg.Wait()
	return err
}

func (c *Console) Interactive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interactive
}

func (c *Console) SetInteractive(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.interactive = v
}

func (c *Console) PresentMessage(msg string) {
	fmt.Fprintln(c.out, msg)
}

func (c *Console) PresentError(err error) {
	fmt.Fprintln(c.out, errorStyle.Render(fmt.Sprintf("%s: %v", flight.ErrorName(err), err)))
}

// PresentMenu lists options by family with the default marked and reads a
// choice. An empty answer or a timeout picks the default.
func (c *Console) PresentMenu(ctx context.Context, options []flight.Option, def flight.Option, message string) (flight.Option, error) {
	if message != "" {
		c.PresentMessage(message)
	}
	if !c.Interactive() {
		return def, nil
	}
	c.PresentMessage(formatMenu(options, def))
	for {
		answer, err := c.readLine(ctx, fmt.Sprintf("Choose an option [%s]: ", def.Value()))
		switch {
		case errors.Is(err, errPromptTimeout):
			return def, nil
		case err != nil:
			return flight.Option{}, err
		case answer == "":
			return def, nil
		}
		if o, ok := flight.ParseOption(answer); ok && slices.Contains(options, o) {
			return o, nil
		}
		c.PresentMessage(hintStyle.Render(fmt.Sprintf("%q is not one of the options.", answer)))
	}
}

func formatMenu(options []flight.Option, def flight.Option) string {
	var sb strings.Builder
	for _, family := range []flight.Family{flight.FamilyMode, flight.FamilyInteraction, flight.FamilyAction} {
		var labels []string
		for _, o := range options {
			if o.Family() != family {
				continue
			}
			label := o.Label()
			if o == def {
				label = defaultStyle.Render(label)
			}
			labels = append(labels, label)
		}
		if len(labels) == 0 {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(headerStyle.Render(strings.ToUpper(family.String()[:1])+family.String()[1:]+"s:") + " " + strings.Join(labels, ", "))
	}
	return sb.String()
}

// PresentConfirmation asks a yes/no question until it gets an answer.
func (c *Console) PresentConfirmation(ctx context.Context, prompt string, def bool) (bool, error) {
	if !c.Interactive() {
		return def, nil
	}
	choices := "(y/N)"
	if def {
		choices = "(Y/n)"
	}
	for {
		answer, err := c.readLine(ctx, fmt.Sprintf("%s %s? ", prompt, choices))
		switch {
		case errors.Is(err, errPromptTimeout):
			return def, nil
		case err != nil:
			return false, err
		}
		switch strings.ToLower(answer) {
		case "":
			return def, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		c.PresentMessage("Please answer y/n.")
	}
}

// readLine returns the trimmed answer to prompt. A read left pending by a
// timeout answers the next prompt.
func (c *Console) readLine(ctx context.Context, prompt string) (string, error) {
	c.startOnce.Do(c.start)
	c.rl.SetPrompt(prompt)
	c.rl.Refresh()
	if !c.pending {
		select {
		case c.requests <- struct{}{}:
			c.pending = true
		case <-c.done:
			return "", flight.ErrAbort
		}
	}

	var timeout <-chan time.Time
	if c.PromptTimeout > 0 {
		t := time.NewTimer(c.PromptTimeout)
		defer t.Stop()
		timeout = t.C
	}

	select {
	case l := <-c.lines:
		c.pending = false
		switch {
		case errors.Is(l.err, readline.ErrInterrupt):
			return "", flight.ErrInterrupt
		case errors.Is(l.err, io.EOF):
			return "", flight.ErrAbort
		case l.err != nil:
			return "", l.err
		}
		return strings.TrimSpace(l.text), nil
	case <-timeout:
		logger.Log.Debugf("[Console] Prompt %q timed out", prompt)
		c.PresentMessage("")
		return "", errPromptTimeout
	case <-ctx.Done():
		if errors.Is(context.Cause(ctx), flight.ErrInterrupt) {
			return "", flight.ErrInterrupt
		}
		return "", ctx.Err()
	case <-c.done:
		return "", flight.ErrAbort
	}
}

// start runs the reader. It only reads when asked, so the terminal is not
// held in raw mode while a maneuver runs.
func (c *Console) start() {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case <-c.requests:
			case <-c.done:
				return
			}
			text, err := c.rl.Readline()
			select {
			case c.lines <- line{text: text, err: err}:
			case <-c.done:
				return
			}
		}
	}()
}
