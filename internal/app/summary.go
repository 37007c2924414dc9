package app

import (
	"fmt"
	"strings"
	"time"

	"marketpipe/internal/config"
	"marketpipe/internal/contracts"
	"marketpipe/internal/executor"
	"marketpipe/internal/financial"
)

// StartupSummary 启动时打印一次的配置摘要，便于确认这一轮到底会做什么。
type StartupSummary struct {
	Query        string
	Interval     time.Duration
	Once         bool
	StopIfClosed bool

	Model       string
	QuoteSource string
	Mode        contracts.ExecMode
	GateMode    executor.GateMode

	MaxCandidates int
	MaxFocus      int
	OrderQty      float64
	ArtifactDir   string
	CycleDB       string
}

func buildSummary(cfg *config.Config, quotes financial.QuoteProvider, mode contracts.ExecMode, gate executor.GateMode) *StartupSummary {
	s := &StartupSummary{
		Query:         cfg.Pipeline.Query,
		Interval:      time.Duration(cfg.Pipeline.IntervalSeconds) * time.Second,
		Once:          cfg.Pipeline.Once,
		StopIfClosed:  cfg.Pipeline.StopIfMarketClosed,
		Model:         cfg.AI.Model,
		Mode:          mode,
		GateMode:      gate,
		MaxCandidates: cfg.Pipeline.MaxCandidateSymbols,
		MaxFocus:      cfg.Pipeline.MaxFocusSymbols,
		OrderQty:      cfg.Pipeline.OrderQty,
		ArtifactDir:   cfg.Store.ArtifactDir,
		CycleDB:       cfg.Store.CycleDB,
	}
	if quotes != nil {
		s.QuoteSource = quotes.Source()
	}
	return s
}

func (s *StartupSummary) Print() {
	fmt.Println(strings.Repeat("=", 72))
	fmt.Println("启动配置摘要 (STARTUP SUMMARY)")
	fmt.Println(strings.Repeat("=", 72))

	fmt.Println("[循环 (LOOP)]")
	fmt.Printf("  查询: %s\n", s.Query)
	if s.Once {
		fmt.Println("  模式: 单次运行")
	} else {
		fmt.Printf("  模式: 循环, 间隔 %s\n", s.Interval)
	}
	fmt.Printf("  休市即停: %v\n", s.StopIfClosed)
	fmt.Println()

	fmt.Println("[决策 (DECISION)]")
	fmt.Printf("  模型: %s\n", s.Model)
	fmt.Printf("  行情来源: %s\n", s.QuoteSource)
	fmt.Printf("  候选上限: %d  聚焦上限: %d\n", s.MaxCandidates, s.MaxFocus)
	fmt.Println()

	fmt.Println("[执行 (EXECUTION)]")
	fmt.Printf("  执行模式: %s\n", s.Mode)
	fmt.Printf("  确认方式: %s\n", s.GateMode)
	fmt.Printf("  默认数量: %g\n", s.OrderQty)
	fmt.Println()

	fmt.Println("[存储 (STORAGE)]")
	fmt.Printf("  产物目录: %s\n", s.ArtifactDir)
	if s.CycleDB != "" {
		fmt.Printf("  历史数据库: %s\n", s.CycleDB)
	}
	fmt.Println(strings.Repeat("=", 72))
}
