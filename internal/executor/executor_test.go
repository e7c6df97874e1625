package executor

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xyla-io/raspador/internal/browser/browsertest"
	"github.com/xyla-io/raspador/internal/flight"
	"github.com/xyla-io/raspador/internal/plan"
)

// quietOperator takes every default and never interacts.
type quietOperator struct{}

func (quietOperator) Interactive() bool     { return false }
func (quietOperator) SetInteractive(bool)   {}
func (quietOperator) PresentMessage(string) {}
func (quietOperator) PresentError(error)    {}

func (quietOperator) PresentMenu(_ context.Context, _ []flight.Option, def flight.Option, _ string) (flight.Option, error) {
	return def, nil
}

func (quietOperator) PresentConfirmation(_ context.Context, _ string, def bool) (bool, error) {
	return def, nil
}

func (quietOperator) Interact(context.Context, flight.Option, *flight.Session) error { return nil }

func (quietOperator) Postmortem(context.Context, *flight.Session, error) error { return nil }

const shopURL = "https://shop.test/"

func shop() *browsertest.Browser {
	return browsertest.New(map[string]browsertest.Page{
		shopURL: {
			Source: `<html><body><a class="next" href="/p2">Next</a></body></html>`,
			Links:  map[string]string{"a.next": shopURL + "p2"},
		},
		shopURL + "p2": {
			Source: `<html><body><ul><li><a href="/item/2">Two</a></li></ul></body></html>`,
		},
	})
}

func stages(actions ...[]plan.Action) *plan.Plan {
	p := &plan.Plan{}
	for i, a := range actions {
		p.Stages = append(p.Stages, plan.Stage{Stage: i + 1, Actions: a})
	}
	return p
}

func fly(t *testing.T, b *Builder, p *plan.Plan, settings flight.Settings, br *browsertest.Browser) *flight.Sequence {
	t.Helper()
	root, err := b.Build("Shop", p)
	require.NoError(t, err)
	c := flight.New("TestRaspador", quietOperator{}, nil, settings)
	_, err = c.Fly(context.Background(), &flight.Pilot{Name: "tester", Browser: br}, root, nil)
	require.NoError(t, err)
	return root
}

func TestResolvePayload(t *testing.T) {
	results := NewResults()
	results.Store("fetch_content", map[string]any{
		"generated_content": "This is the generated content.",
		"word_count":        5,
	})
	results.Store("user_info", map[string]any{"is_admin": true})

	testCases := []struct {
		name            string
		inputPayload    map[string]any
		expectedPayload map[string]any
	}{
		{
			name:            "Successful placeholder replacement",
			inputPayload:    map[string]any{"path": "output.txt", "content": "@results.fetch_content.generated_content"},
			expectedPayload: map[string]any{"path": "output.txt", "content": "This is the generated content."},
		},
		{
			name:            "Non-string values should be preserved",
			inputPayload:    map[string]any{"count": 123, "is_ready": true, "details": "words: @results.fetch_content.word_count"},
			expectedPayload: map[string]any{"count": 123, "is_ready": true, "details": "words: 5"},
		},
		{
			name: "Nested values are resolved",
			inputPayload: map[string]any{"template": map[string]any{
				"payload": map[string]any{"admin": "@results.user_info.is_admin", "items": []any{"@results.fetch_content.word_count"}},
			}},
			expectedPayload: map[string]any{"template": map[string]any{
				"payload": map[string]any{"admin": "true", "items": []any{"5"}},
			}},
		},
		{
			name:            "Placeholder for a non-existent action ID",
			inputPayload:    map[string]any{"content": "@results.non_existent_action.text"},
			expectedPayload: map[string]any{"content": ""},
		},
		{
			name:            "Placeholder for a non-existent output key",
			inputPayload:    map[string]any{"content": "@results.fetch_content.non_existent_key"},
			expectedPayload: map[string]any{"content": ""},
		},
		{
			name:            "String without a placeholder should be preserved",
			inputPayload:    map[string]any{"greeting": "Hello, world!"},
			expectedPayload: map[string]any{"greeting": "Hello, world!"},
		},
		{
			name:            "Empty input payload",
			inputPayload:    map[string]any{},
			expectedPayload: map[string]any{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if diff := cmp.Diff(tc.expectedPayload, results.Resolve(tc.inputPayload)); diff != "" {
				t.Errorf("mismatched payload (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResultsStoreIgnoresEmptyOutputs(t *testing.T) {
	results := NewResults()
	results.Store("", map[string]any{"a": 1})
	results.Store("none", nil)

	_, ok := results.Lookup("none", "a")
	assert.False(t, ok)
	_, ok = results.Lookup("", "a")
	assert.False(t, ok)
}

func TestBuildFliesPlan(t *testing.T) {
	br := shop()
	b := New(io.Discard)
	p := stages(
		[]plan.Action{{ID: "open", Action: "browser.navigate", Payload: map[string]any{"url": shopURL}}},
		[]plan.Action{{ID: "next", Action: "browser.click", Payload: map[string]any{"selector": "a.next"}}},
		[]plan.Action{{ID: "page", Action: "browser.source"}},
		[]plan.Action{{ID: "links", Action: "html.links", Payload: map[string]any{"html": "@results.page.html", "base_url": "@results.page.url"}}},
	)

	root := fly(t, b, p, flight.DefaultSettings(), br)

	assert.Equal(t, flight.StatusCompleted, root.Status())
	assert.Equal(t, []string{shopURL, shopURL + "p2"}, br.Navigated)
	links, ok := b.Results.Lookup("links", "links_json")
	require.True(t, ok)
	assert.JSONEq(t, `[{"text": "Two", "url": "https://shop.test/item/2"}]`, links.(string))

	last := root.Steps[3].(*flight.Sequence).Steps[0].(*ActionManeuver)
	out, ok := last.Output()
	require.True(t, ok)
	assert.Equal(t, links, out["links_json"])
}

func TestRepairReturnsToLandingPage(t *testing.T) {
	br := shop()
	b := New(io.Discard)
	written := filepath.Join(t.TempDir(), "after.txt")
	p := stages(
		[]plan.Action{{ID: "open", Action: "browser.navigate", Payload: map[string]any{"url": shopURL}}},
		[]plan.Action{{ID: "missing", Action: "browser.click", Payload: map[string]any{"selector": "a.missing", "timeout_ms": 1}}},
		[]plan.Action{{ID: "after", Action: "system.write_file", Payload: map[string]any{"path": written, "content": "x"}}},
	)
	settings := flight.DefaultSettings()
	settings.Retry = 1

	root := fly(t, b, p, settings, br)

	assert.Equal(t, flight.StatusSkipped, root.Status())
	assert.Equal(t, []string{shopURL, shopURL}, br.Navigated)
	missing := root.Steps[1].(*flight.Sequence).Steps[0]
	var options []flight.Option
	for _, pos := range missing.Base().Trajectory() {
		options = append(options, pos.Option)
	}
	assert.Equal(t, []flight.Option{flight.ModeAutomatic, flight.ActionRepair, flight.ModeAutomatic, flight.ActionSkipUp}, options)
	assert.NoFileExists(t, written)
}

func TestQuitActionEndsRun(t *testing.T) {
	b := New(io.Discard)
	written := filepath.Join(t.TempDir(), "never.txt")
	p := stages(
		[]plan.Action{{ID: "nap", Action: "test.sleep", Payload: map[string]any{"duration_ms": 0}}},
		[]plan.Action{{Action: "flow.quit"}},
		[]plan.Action{{Action: "system.write_file", Payload: map[string]any{"path": written, "content": "x"}}},
	)

	fly(t, b, p, flight.DefaultSettings(), shop())

	status, ok := b.Results.Lookup("nap", "status")
	require.True(t, ok)
	assert.Equal(t, "ok", status)
	assert.NoFileExists(t, written)
}

func TestScriptQueuesActions(t *testing.T) {
	dir := t.TempDir()
	written := filepath.Join(dir, "out.txt")
	source := `package main

import "raspador"

func Run() error {
	return raspador.Enqueue("system.write_file", map[string]string{"path": "` + filepath.ToSlash(written) + `", "content": "from script"})
}
`
	path := filepath.Join(dir, "queue.go")
	require.NoError(t, os.WriteFile(path, []byte(source), 0o644))

	b := New(io.Discard)
	root := fly(t, b, stages([]plan.Action{{Action: "script.run", Payload: map[string]any{"path": path}}}), flight.DefaultSettings(), shop())

	assert.Equal(t, flight.StatusCompleted, root.Status())
	data, err := os.ReadFile(written)
	require.NoError(t, err)
	assert.Equal(t, "from script\n", string(data))
}

func TestBuildRejects(t *testing.T) {
	testCases := []struct {
		name        string
		plan        *plan.Plan
		expectError string
	}{
		{
			name:        "Break without a preceding action",
			plan:        stages([]plan.Action{{Action: "flow.break"}}),
			expectError: "flow.break cannot start a stage",
		},
		{
			name:        "Unknown option",
			plan:        stages([]plan.Action{{ID: "page", Action: "browser.source", Options: []string{"a", "zz"}}}),
			expectError: `unknown option "zz"`,
		},
		{
			name:        "Invalid plan",
			plan:        stages([]plan.Action{{Action: "browser.teleport"}}),
			expectError: "not defined in the registry",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(io.Discard).Build("Shop", tc.plan)
			assert.ErrorContains(t, err, tc.expectError)
		})
	}
}

func TestActionOptions(t *testing.T) {
	b := New(io.Discard)
	root, err := b.Build("Shop", stages([]plan.Action{
		{ID: "page", Action: "browser.source"},
		{ID: "read", Action: "system.read_file", Payload: map[string]any{"path": "x"}},
		{ID: "pick", Action: "test.sleep", Payload: map[string]any{"duration_ms": 1}, Options: []string{"M", "so"}},
		{Action: "flow.break"},
	}))
	require.NoError(t, err)
	steps := root.Steps[0].(*flight.Sequence).Steps

	assert.Contains(t, flight.OptionsOf(steps[0]), flight.ActionRepair)
	assert.NotContains(t, flight.OptionsOf(steps[1]), flight.ActionRepair)
	assert.Equal(t, []flight.Option{flight.ModeManual, flight.ActionSkipOver}, flight.OptionsOf(steps[2]))
	assert.Same(t, steps[2], steps[3].(*flight.Break).After)
}

func TestManeuverForScripts(t *testing.T) {
	b := New(io.Discard)
	_, err := b.Maneuver("browser.teleport", nil)
	assert.ErrorContains(t, err, "not defined")
	_, err = b.Maneuver("flow.break", nil)
	assert.ErrorContains(t, err, "preceding action")

	m, err := b.Maneuver("flow.quit", nil)
	require.NoError(t, err)
	assert.IsType(t, &flight.QuitManeuver{}, m)
}
