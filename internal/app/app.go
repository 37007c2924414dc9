package app

import (
	"context"
	"fmt"

	"marketpipe/internal/artifact"
	"marketpipe/internal/config"
	"marketpipe/internal/logger"
	"marketpipe/internal/pipeline"
	"marketpipe/internal/scheduler"
)

// App 负责应用级编排：加载配置 → 装配组件 → 驱动循环。
type App struct {
	cfg      *config.Config
	orch     *pipeline.Orchestrator
	sched    *scheduler.IntervalScheduler
	cycleLog *artifact.CycleLog
	summary  *StartupSummary
}

// New builds the application from config without starting it.
func New(cfg *config.Config, opts ...BuilderOption) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return NewBuilder(cfg, opts...).Build()
}

// Run drives the cycle loop until ctx is cancelled, the market-closed stop
// fires, or (in once mode) the single cycle completes.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.summary != nil {
		a.summary.Print()
	}
	defer a.Close()

	return a.sched.Start(ctx, scheduler.RunnerFunc(func(ctx context.Context) error {
		res, err := a.orch.RunCycle(ctx, a.cfg.Pipeline.Query)
		fmt.Println(res.Summary)
		return err
	}))
}

// Close releases owned resources. Safe on a nil or partially built app.
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cycleLog != nil {
		if err := a.cycleLog.Close(); err != nil {
			logger.Warnf("close cycle log: %v", err)
		}
	}
}

// Orchestrator exposes the cycle orchestrator for test harnesses.
func (a *App) Orchestrator() *pipeline.Orchestrator {
	if a == nil {
		return nil
	}
	return a.orch
}
