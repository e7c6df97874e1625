package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xyla-io/raspador/internal/flightlog"
	"github.com/xyla-io/raspador/internal/plan"
)

const plansJSON = `{"plans": [
  {"name": "shop", "plan": [{"stage": 1, "actions": [
    {"id": "home", "action": "browser.navigate", "payload": {"url": "https://example.com"}}
  ]}]},
  {"name": "notes", "plan": [{"stage": 1, "actions": [
    {"id": "nap", "action": "test.sleep", "payload": {"duration_ms": 1}}
  ]}]}
]}`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestPlanCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plans.json")
	require.NoError(t, os.WriteFile(path, []byte(plansJSON), 0o644))

	testCases := []struct {
		name    string
		args    []string
		want    []string
		wantErr string
	}{
		{
			name: "Catalog",
			args: []string{"plan", path},
			want: []string{"Found 2 plan(s)", "shop", "notes"},
		},
		{
			name: "Named plan",
			args: []string{"plan", path, "NOTES"},
			want: []string{"Flight plan:", "test.sleep"},
		},
		{
			name:    "Missing plan",
			args:    []string{"plan", path, "nope"},
			wantErr: "no plans named [nope]",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := run(t, tc.args...)
			if tc.wantErr != "" {
				assert.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			for _, w := range tc.want {
				assert.Contains(t, out, w)
			}
		})
	}
}

func TestLogCommand(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rows := []flightlog.Row{
		{EntryTime: now, StableTime: now, Raspador: "Raspador", Mission: "Root", Maneuver: "nap", Option: "(A)utomatic", Result: "Completed"},
	}
	csvPath := filepath.Join(dir, "log.csv")
	_, err := flightlog.SaveCSV(csvPath, rows)
	require.NoError(t, err)

	out, err := run(t, "log", csvPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Root.nap = (A)utomatic : Completed")
	assert.Contains(t, out, "Top maneuvers:")

	_, err = run(t, "log", filepath.Join(dir, "log.txt"))
	assert.ErrorContains(t, err, "expected a .csv or .db")
}

func TestSettingsFlagsWin(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("RASPADOR_LOG_FILE", filepath.Join(dir, "raspador.log"))
	t.Setenv("RASPADOR_RETRY", "7")
	t.Setenv("RASPADOR_MONITOR", "true")

	cmd := flyCmd
	t.Cleanup(func() { opts = flags{} })
	require.NoError(t, cmd.ParseFlags([]string{"-iii", "-r", "1", "--headful"}))

	cfg, err := settings(cmd)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Interactive)
	assert.Equal(t, 1, cfg.Retry)
	assert.True(t, cfg.Monitor)
	assert.False(t, cfg.Browser.Headless)
	assert.Zero(t, cfg.PromptTimeout)
}

func TestNeedsBrowser(t *testing.T) {
	plans, err := plan.Parse([]byte(plansJSON), "plans")
	require.NoError(t, err)
	assert.True(t, needsBrowser(plans))
	assert.False(t, needsBrowser(plans[1:]))
}
