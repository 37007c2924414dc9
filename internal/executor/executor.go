package executor

import (
	"context"
	"fmt"

	"marketpipe/internal/contracts"
	"marketpipe/internal/gateway/broker"
	"marketpipe/internal/logger"
)

// Executor 负责把网关放行的订单落到券商。DRY_RUN 不发任何网络请求；
// LIVE 逐单提交，单个失败不影响其余订单。
type Executor struct {
	brokerage broker.Brokerage
	mode      contracts.ExecMode
	log       logger.StageLogger
}

func New(brokerage broker.Brokerage, mode contracts.ExecMode) *Executor {
	return &Executor{
		brokerage: brokerage,
		mode:      mode,
		log:       logger.Stage("executor"),
	}
}

func (e *Executor) Mode() contracts.ExecMode { return e.mode }

// Execute turns a gate result into an ExecutionReport. A gate rejection
// produces a terminal report with zero outcomes and no broker traffic.
func (e *Executor) Execute(ctx context.Context, gate GateResult) contracts.ExecutionReport {
	report := contracts.ExecutionReport{
		Mode:         e.mode,
		Confirmation: gate.Kind,
		Outcomes:     []contracts.ExecutionOutcome{},
	}
	if !gate.Approved {
		report.Rejected = true
		report.RejectReason = gate.RejectReason
		e.log.Infof("orders rejected at the gate: %s", gate.RejectReason)
		return report
	}

	for _, order := range gate.Orders {
		report.Outcomes = append(report.Outcomes, e.executeOne(ctx, order))
	}
	return report
}

func (e *Executor) executeOne(ctx context.Context, order contracts.ProposedOrder) contracts.ExecutionOutcome {
	if reason := validateOrder(order); reason != "" {
		e.log.Warnf("order for %s rejected locally: %s", order.Symbol, reason)
		return contracts.ExecutionOutcome{
			Symbol:  order.Symbol,
			Status:  contracts.OutcomeRejected,
			Message: reason,
		}
	}

	if e.mode == contracts.ModeDryRun {
		return contracts.ExecutionOutcome{
			Symbol:  order.Symbol,
			Status:  contracts.OutcomeSkipped,
			Message: dryRunMessage(order),
		}
	}

	id, err := e.brokerage.Submit(ctx, order)
	if err != nil {
		e.log.Errorf("submit %s %s failed: %v", order.Side, order.Symbol, err)
		return contracts.ExecutionOutcome{
			Symbol:  order.Symbol,
			Status:  contracts.OutcomeError,
			Message: err.Error(),
		}
	}
	e.log.Infof("submitted %s %s qty=%s order_id=%s", order.Side, order.Symbol, order.Quantity.String(), id)
	return contracts.ExecutionOutcome{
		Symbol:        order.Symbol,
		Status:        contracts.OutcomeSubmitted,
		BrokerOrderID: id,
		Message:       fmt.Sprintf("%s %s submitted", order.Side, order.Symbol),
	}
}

// validateOrder 在任何网络调用之前做本地校验；返回空串表示通过。
func validateOrder(order contracts.ProposedOrder) string {
	if order.Symbol == "" {
		return "order has no symbol"
	}
	if !order.Side.Valid() {
		return fmt.Sprintf("unknown order side %q", order.Side)
	}
	if !order.Type.Valid() {
		return fmt.Sprintf("unknown order type %q", order.Type)
	}
	if !order.Quantity.IsPositive() {
		return fmt.Sprintf("quantity must be positive, got %s", order.Quantity.String())
	}
	switch order.Type {
	case contracts.OrderLimit:
		if order.LimitPrice == nil || !order.LimitPrice.IsPositive() {
			return "limit order requires a positive limit_price"
		}
	case contracts.OrderMarket:
		if order.LimitPrice != nil {
			return "market order must not carry a limit_price"
		}
	}
	return ""
}

func dryRunMessage(order contracts.ProposedOrder) string {
	if order.Type == contracts.OrderLimit {
		return fmt.Sprintf("dry run: would submit %s %s qty=%s limit=%s",
			order.Side, order.Symbol, order.Quantity.String(), order.LimitPrice.String())
	}
	return fmt.Sprintf("dry run: would submit %s %s qty=%s at market",
		order.Side, order.Symbol, order.Quantity.String())
}
