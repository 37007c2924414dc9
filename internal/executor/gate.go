package executor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"marketpipe/internal/contracts"
	"marketpipe/internal/logger"
)

// AffirmativeToken 是交互确认唯一接受的输入；其它任何输入都视为拒绝。
const AffirmativeToken = "yes"

// GateMode 在 cycle 开始前由配置选定，cycle 中途不可切换。
type GateMode string

const (
	GateAuto        GateMode = "auto"
	GateInteractive GateMode = "interactive"
)

// Confirmer is the synchronous yes/no capability the interactive gate
// blocks on. Swappable with an automated implementation for tests.
type Confirmer interface {
	Confirm(ctx context.Context, proposal string) (bool, error)
}

// GateResult is the gate's verdict. Rejection is a normal terminal state
// for the cycle, not an error.
type GateResult struct {
	Kind         contracts.ConfirmationKind
	Approved     bool
	RejectReason string
	Orders       []contracts.ProposedOrder
}

// Gate 决定拟议订单能否进入执行：零订单直接放行（NOT_REQUIRED），
// auto 模式无人值守放行，interactive 模式阻塞在 Confirmer 上。
// 超时或取消一律按拒绝处理（fail-closed）。
type Gate struct {
	mode      GateMode
	confirmer Confirmer
}

func NewGate(mode GateMode, confirmer Confirmer) *Gate {
	return &Gate{mode: mode, confirmer: confirmer}
}

func (g *Gate) Review(ctx context.Context, decision contracts.FinalDecision) GateResult {
	if decision.Action == contracts.ActionHold || len(decision.Orders) == 0 {
		return GateResult{
			Kind:     contracts.ConfirmNotRequired,
			Approved: true,
			Orders:   []contracts.ProposedOrder{},
		}
	}

	if g.mode == GateAuto {
		return GateResult{
			Kind:     contracts.ConfirmAuto,
			Approved: true,
			Orders:   decision.Orders,
		}
	}

	ok, err := g.askConfirmer(ctx, decision)
	if err != nil {
		return GateResult{
			Kind:         contracts.ConfirmInteractive,
			RejectReason: fmt.Sprintf("confirmation aborted: %v", err),
		}
	}
	if !ok {
		return GateResult{
			Kind:         contracts.ConfirmInteractive,
			RejectReason: "operator declined the proposed orders",
		}
	}
	return GateResult{
		Kind:     contracts.ConfirmInteractive,
		Approved: true,
		Orders:   decision.Orders,
	}
}

func (g *Gate) askConfirmer(ctx context.Context, decision contracts.FinalDecision) (bool, error) {
	if g.confirmer == nil {
		return false, fmt.Errorf("no confirmer configured")
	}
	return g.confirmer.Confirm(ctx, RenderProposal(decision))
}

// RenderProposal formats the orders for the operator prompt.
func RenderProposal(decision contracts.FinalDecision) string {
	var b strings.Builder
	fmt.Fprintf(&b, "action=%s orders=%d\n", decision.Action, len(decision.Orders))
	for i, o := range decision.Orders {
		fmt.Fprintf(&b, "  #%d %s %s qty=%s type=%s", i+1, o.Side, o.Symbol, o.Quantity.String(), o.Type)
		if o.LimitPrice != nil {
			fmt.Fprintf(&b, " limit=%s", o.LimitPrice.String())
		}
		b.WriteString("\n")
	}
	return b.String()
}

// ConsoleConfirmer blocks on a single line of console input. Anything but
// the exact affirmative token rejects; a closed reader rejects too.
type ConsoleConfirmer struct {
	In io.Reader
}

func NewConsoleConfirmer() *ConsoleConfirmer {
	return &ConsoleConfirmer{In: os.Stdin}
}

func (c *ConsoleConfirmer) Confirm(ctx context.Context, proposal string) (bool, error) {
	logger.InfoBlock("proposed orders awaiting confirmation:\n" + proposal)
	fmt.Printf("submit these orders? type %q to approve: ", AffirmativeToken)

	type answer struct {
		line string
		err  error
	}
	// ctx 取消后这个 goroutine 会一直阻塞在 ReadString 上直到进程退出；
	// channel 带缓冲所以它不会泄漏等待者。单次 CLI 场景可接受。
	ch := make(chan answer, 1)
	go func() {
		reader := bufio.NewReader(c.In)
		line, err := reader.ReadString('\n')
		ch <- answer{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case ans := <-ch:
		if ans.err != nil && strings.TrimSpace(ans.line) == "" {
			return false, ans.err
		}
		return strings.TrimSpace(ans.line) == AffirmativeToken, nil
	}
}

// AutoConfirmer approves everything; used for unattended runs and tests.
type AutoConfirmer struct{}

func (AutoConfirmer) Confirm(context.Context, string) (bool, error) { return true, nil }
