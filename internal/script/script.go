// Package script runs operator scripts: Go source interpreted with yaegi
// that can look at the page and queue plan actions as maneuvers.
//
// A script is a package main file declaring
//
//	func Run() error
//
// and may import "raspador" for Enqueue, Println, Source, URL, Mission
// and Cause.
package script

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"github.com/xyla-io/raspador/internal/browser"
	"github.com/xyla-io/raspador/internal/flight"
	"github.com/xyla-io/raspador/internal/logger"
)

// Builder turns an action name and payload into a maneuver.
type Builder func(action string, payload map[string]any) (flight.Maneuver, error)

// Env is what a script can reach.
type Env struct {
	Browser browser.Browser
	Mission flight.Mission
	Cause   error
	Enqueue func(flight.Maneuver)
}

// FromSession exposes an interaction session to a script.
func FromSession(s *flight.Session) Env {
	env := Env{Mission: s.Mission.With(s.Maneuver), Cause: s.Cause, Enqueue: s.Enqueue}
	if s.Pilot != nil {
		env.Browser = s.Pilot.Browser
	}
	return env
}

type Runner struct {
	Build Builder
	Out   io.Writer
}

// Run evaluates source and calls its Run function.
func (r *Runner) Run(ctx context.Context, source string, env Env) error {
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return fmt.Errorf("load stdlib: %w", err)
	}
	if err := i.Use(r.exports(ctx, env)); err != nil {
		return fmt.Errorf("load raspador symbols: %w", err)
	}
	if !strings.Contains(source, "package main") {
		source = "package main\n\n" + source
	}
	if _, err := i.Eval(source); err != nil {
		return fmt.Errorf("evaluate script: %w", err)
	}
	v, err := i.Eval("main.Run")
	if err != nil {
		return fmt.Errorf("script has no Run function: %w", err)
	}
	run, ok := v.Interface().(func() error)
	if !ok {
		return fmt.Errorf("script Run has type %s, expected func() error", v.Type())
	}

	done := make(chan error, 1)
	go func() { done <- run() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("script stopped: %w", context.Cause(ctx))
	}
}

func (r *Runner) exports(ctx context.Context, env Env) interp.Exports {
	out := r.Out
	if out == nil {
		out = os.Stdout
	}
	enqueue := func(action string, args map[string]string) error {
		if r.Build == nil || env.Enqueue == nil {
			return fmt.Errorf("enqueue %s: scripts cannot queue maneuvers here", action)
		}
		payload := make(map[string]any, len(args))
		for k, v := range args {
			payload[k] = v
		}
		m, err := r.Build(action, payload)
		if err != nil {
			return err
		}
		logger.Log.Infof("[Script] Queued %s", action)
		env.Enqueue(m)
		return nil
	}
	source := func() (string, error) {
		if env.Browser == nil {
			return "", fmt.Errorf("no browser")
		}
		return env.Browser.CurrentSource(ctx)
	}
	currentURL := func() (string, error) {
		if env.Browser == nil {
			return "", fmt.Errorf("no browser")
		}
		return env.Browser.CurrentURL(ctx)
	}
	cause := func() string {
		if env.Cause == nil {
			return ""
		}
		return env.Cause.Error()
	}

	return interp.Exports{
		"raspador/raspador": {
			"Enqueue": reflect.ValueOf(enqueue),
			"Println": reflect.ValueOf(func(a ...any) { fmt.Fprintln(out, a...) }),
			"Source":  reflect.ValueOf(source),
			"URL":     reflect.ValueOf(currentURL),
			"Mission": reflect.ValueOf(func() string { return env.Mission.Breadcrumb() }),
			"Cause":   reflect.ValueOf(cause),
		},
	}
}

// List returns the .go files in dir, sorted by name.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read script directory: %w", err)
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".go" {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	slices.Sort(out)
	return out, nil
}
