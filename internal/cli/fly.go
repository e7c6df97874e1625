package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/xyla-io/raspador/internal/actions"
	"github.com/xyla-io/raspador/internal/browser"
	"github.com/xyla-io/raspador/internal/config"
	"github.com/xyla-io/raspador/internal/display"
	"github.com/xyla-io/raspador/internal/executor"
	"github.com/xyla-io/raspador/internal/flight"
	"github.com/xyla-io/raspador/internal/flightlog"
	"github.com/xyla-io/raspador/internal/logger"
	"github.com/xyla-io/raspador/internal/operator"
	"github.com/xyla-io/raspador/internal/plan"
	"github.com/xyla-io/raspador/internal/snapshot"
	"github.com/xyla-io/raspador/internal/supervisor"
	"github.com/xyla-io/raspador/internal/telemetry"
)

const engineName = "Raspador"

var flyCmd = &cobra.Command{
	Use:   "fly <plans.json> [names...]",
	Short: "Fly the plans in a file, or only the named ones",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := settings(cmd)
		if err != nil {
			return err
		}
		plans, err := plan.LoadFile(args[0])
		if err != nil {
			return err
		}
		plans, missing := plan.SelectByNames(plans, args[1:])
		if len(missing) > 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "No plans named %v in %s\n", missing, args[0])
		}
		if len(plans) == 0 {
			return fmt.Errorf("no plans to fly in %s", args[0])
		}
		return fly(cmd.Context(), cfg, plans)
	},
}

func fly(ctx context.Context, cfg config.Config, plans []plan.NamedPlan) error {
	if err := telemetry.Init("raspador", Version, cfg.Trace); err != nil {
		return err
	}
	defer func() {
		if err := telemetry.Shutdown(context.Background()); err != nil {
			logger.Log.Warnf("[Telemetry] Shutdown: %v", err)
		}
	}()

	builder := executor.New(os.Stdout)
	console, err := operator.NewConsole(operator.Config{
		Interactive:   cfg.Interactive > 0,
		PromptTimeout: cfg.PromptTimeout,
		OutputDir:     cfg.OutputDir,
		ScriptDir:     cfg.ScriptDir,
		OpenPages:     cfg.OpenPages,
		Viewer:        cfg.Viewer,
	})
	if err != nil {
		return fmt.Errorf("open console: %w", err)
	}
	defer console.Close()
	console.Scripts = builder.Scripts

	log := flightlog.New()
	if cfg.LogDB != "" {
		store, err := flightlog.OpenSQLite(ctx, cfg.LogDB)
		if err != nil {
			return err
		}
		defer store.Close()
		log.AddSink(store)
	}

	pilot := &flight.Pilot{Name: "raspador"}
	if needsBrowser(plans) {
		b, err := browser.Launch(ctx, browser.LaunchOptions{
			ControlURL: cfg.Browser.ControlURL,
			Bin:        cfg.Browser.Bin,
			Headless:   cfg.Browser.Headless,
		})
		if err != nil {
			return err
		}
		defer b.Close()
		pilot.Browser = b
	}

	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupts)

	fs := flight.DefaultSettings()
	fs.Retry = cfg.Retry
	fs.BreakOnErrors = cfg.BreakOnErrors
	fs.DetailLength = cfg.DetailLength
	fs.Interrupts = interrupts
	if cfg.Interactive >= 2 {
		fs.Mode = flight.ModeStepNext
	}
	var monitor *snapshot.Monitor
	if cfg.Monitor {
		monitor = snapshot.NewMonitor(cfg.OutputDir)
		fs.Monitor = monitor
	}

	sup := supervisor.New(supervisor.Config{
		Controller: flight.New(engineName, console, log, fs),
		Builder:    builder,
		Pilot:      pilot,
		Timeout:    cfg.Timeout,
		AllowRisky: opts.yes,
	})
	logger.Log.Infof("[CLI] Flying %d mission(s)", len(plans))

	failed := 0
	for r := range sup.FlyAll(ctx, plans) {
		console.PresentMessage(fmt.Sprintf("[Mission %s %s] %s", r.MissionID, r.State, r.Name))
		if r.Error != "" {
			console.PresentMessage("  " + r.Error)
			failed++
		}
		if r.Metrics != nil {
			console.PresentMessage(display.FormatMissionMetrics(r.Metrics))
		}
		if r.Report != "" {
			console.PresentMessage(r.Report)
		}
	}
	if monitor != nil {
		monitor.Close()
	}

	path := flightlog.LogPath(cfg.OutputDir, engineName, time.Now())
	saved, err := flightlog.SaveCSV(path, log.Rows())
	if err != nil {
		return err
	}
	if saved {
		console.PresentMessage("Flight log saved to " + path)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d mission(s) did not succeed", failed, len(plans))
	}
	return nil
}

func needsBrowser(plans []plan.NamedPlan) bool {
	for _, np := range plans {
		for _, stage := range np.Plan.Stages {
			for _, a := range stage.Actions {
				if actions.UsesBrowser(a.Action) {
					return true
				}
			}
		}
	}
	return false
}
