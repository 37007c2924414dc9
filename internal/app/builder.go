package app

import (
	"fmt"
	"os"
	"time"

	"marketpipe/internal/artifact"
	"marketpipe/internal/collector"
	"marketpipe/internal/config"
	"marketpipe/internal/contracts"
	"marketpipe/internal/executor"
	"marketpipe/internal/financial"
	"marketpipe/internal/gateway/broker"
	"marketpipe/internal/gateway/provider"
	"marketpipe/internal/logger"
	"marketpipe/internal/pipeline"
	"marketpipe/internal/prompt"
	"marketpipe/internal/reasoning"
	"marketpipe/internal/scheduler"
)

// Builder 把配置装配成可运行的 App。各组件的构造函数留成字段，
// 测试里可以注入替身。
type Builder struct {
	cfg *config.Config

	webCollectorFn  func(config.WebConfig) collector.WebCollector
	quoteProviderFn func(config.FinancialConfig) (financial.QuoteProvider, error)
	brokerageFn     func(config.BrokerConfig) broker.Brokerage
	modelProviderFn func(config.AIConfig) provider.ModelProvider
	confirmerFn     func() executor.Confirmer
}

type BuilderOption func(*Builder)

// WithBrokerage overrides the brokerage gateway, used by tests.
func WithBrokerage(b broker.Brokerage) BuilderOption {
	return func(ab *Builder) {
		ab.brokerageFn = func(config.BrokerConfig) broker.Brokerage { return b }
	}
}

// WithModelProvider overrides the reasoning provider, used by tests.
func WithModelProvider(p provider.ModelProvider) BuilderOption {
	return func(ab *Builder) {
		ab.modelProviderFn = func(config.AIConfig) provider.ModelProvider { return p }
	}
}

// WithWebCollector overrides the web collector, used by tests.
func WithWebCollector(w collector.WebCollector) BuilderOption {
	return func(ab *Builder) {
		ab.webCollectorFn = func(config.WebConfig) collector.WebCollector { return w }
	}
}

func NewBuilder(cfg *config.Config, opts ...BuilderOption) *Builder {
	b := &Builder{
		cfg:             cfg,
		webCollectorFn:  buildWebCollector,
		quoteProviderFn: buildQuoteProvider,
		brokerageFn:     buildBrokerage,
		modelProviderFn: buildModelProvider,
		confirmerFn:     func() executor.Confirmer { return executor.NewConsoleConfirmer() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *Builder) Build() (*App, error) {
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg

	// stages.yaml 缺失时退回内置模板，不算错误。
	var registry *prompt.Registry
	if cfg.AI.StagesPath != "" {
		if _, err := os.Stat(cfg.AI.StagesPath); err == nil {
			registry, err = prompt.NewRegistry(cfg.AI.StagesPath)
			if err != nil {
				return nil, fmt.Errorf("stage templates: %w", err)
			}
		} else {
			logger.Warnf("stage template file %s not found, using builtin templates", cfg.AI.StagesPath)
		}
	}

	harness := reasoning.NewHarness(b.modelProviderFn(cfg.AI), registry)
	hub := collector.NewHub(
		b.webCollectorFn(cfg.Web),
		collector.NewSocialCacheCollector(cfg.Social.CacheFile),
	)

	quotes, err := b.quoteProviderFn(cfg.Financial)
	if err != nil {
		return nil, fmt.Errorf("quote provider: %w", err)
	}

	store, err := artifact.NewFileStore(cfg.Store.ArtifactDir, cfg.Store.KeepLatest)
	if err != nil {
		return nil, err
	}
	var cycleLog *artifact.CycleLog
	if cfg.Store.CycleDB != "" {
		cycleLog, err = artifact.NewCycleLog(cfg.Store.CycleDB)
		if err != nil {
			return nil, fmt.Errorf("cycle log: %w", err)
		}
	}

	brokerage := b.brokerageFn(cfg.Broker)

	mode := contracts.ModeDryRun
	if cfg.Pipeline.ExecuteOrders {
		mode = contracts.ModeLive
	}
	gateMode := executor.GateInteractive
	if cfg.Pipeline.AutoConfirm {
		gateMode = executor.GateAuto
	}

	orch := pipeline.NewOrchestrator(pipeline.Options{
		Hub:           hub,
		PreAnalysis:   reasoning.NewPreAnalysisStage(harness, cfg.Pipeline.MaxCandidateSymbols),
		Focus:         reasoning.NewFocusStage(harness, cfg.Pipeline.MaxFocusSymbols),
		Final:         reasoning.NewFinalStage(harness, cfg.Pipeline.OrderQty),
		Quotes:        quotes,
		Gate:          executor.NewGate(gateMode, b.confirmerFn()),
		Executor:      executor.New(brokerage, mode),
		ArtifactStore: store,
		CycleLog:      cycleLog,
		Brokerage:     brokerage,
	})

	sched := scheduler.NewIntervalScheduler(
		time.Duration(cfg.Pipeline.IntervalSeconds)*time.Second,
		cfg.Pipeline.Once,
	)
	sched.StopIfMarketClosed = cfg.Pipeline.StopIfMarketClosed
	sched.Clock = brokerage

	return &App{
		cfg:      cfg,
		orch:     orch,
		sched:    sched,
		cycleLog: cycleLog,
		summary:  buildSummary(cfg, quotes, mode, gateMode),
	}, nil
}

func buildWebCollector(cfg config.WebConfig) collector.WebCollector {
	return collector.NewTavilyWebCollector(cfg)
}

func buildQuoteProvider(cfg config.FinancialConfig) (financial.QuoteProvider, error) {
	switch cfg.Provider {
	case "mock":
		if cfg.MockFile != "" {
			return financial.LoadStaticProvider(cfg.MockFile)
		}
		return financial.NewStaticProvider(nil), nil
	default:
		return financial.NewYahooChartProvider(cfg), nil
	}
}

func buildBrokerage(cfg config.BrokerConfig) broker.Brokerage {
	return broker.NewAlpacaClient(cfg)
}

func buildModelProvider(cfg config.AIConfig) provider.ModelProvider {
	return provider.NewOpenAIChatClient(
		cfg.BaseURL,
		cfg.APIKey,
		cfg.Model,
		time.Duration(cfg.TimeoutSeconds)*time.Second,
		cfg.MaxRetries,
	)
}
