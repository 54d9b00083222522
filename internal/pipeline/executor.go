package pipeline

import (
	"context"

	"github.com/rughunter/rughunter/internal/monitor"
	"github.com/rughunter/rughunter/internal/paper"
)

// PaperExecutor adapts the paper engine to the monitor's executor contract.
type PaperExecutor struct {
	engine *paper.Engine
}

var _ monitor.Executor = (*PaperExecutor)(nil)

// NewPaperExecutor wraps a paper engine.
func NewPaperExecutor(engine *paper.Engine) *PaperExecutor {
	return &PaperExecutor{engine: engine}
}

// Sell forwards the exit to the paper engine and maps the receipt.
func (x *PaperExecutor) Sell(ctx context.Context, positionID string, percent float64, reason string) (monitor.SellReceipt, error) {
	res, err := x.engine.Sell(ctx, positionID, percent, reason)
	if err != nil {
		return monitor.SellReceipt{}, err
	}
	return monitor.SellReceipt{
		PnLPercent: res.PnLPercent,
		PnLUSD:     res.PnLUSD,
	}, nil
}
