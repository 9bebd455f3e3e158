package app

import (
	"context"

	"trendSignalBot/internal/domain"
	"trendSignalBot/internal/ports"
)

// LoggingSignalHandler is the default downstream consumer: it announces
// accepted signals at Info level. Execution integrations replace it with a
// handler that routes signals to an order gateway.
type LoggingSignalHandler struct {
	Logger ports.Logger
}

// HandleSignal implements ports.SignalHandler.
func (h *LoggingSignalHandler) HandleSignal(ctx context.Context, sig *domain.Signal) error {
	h.Logger.Info(ctx, "Signal ready for execution", map[string]interface{}{
		"symbol":     sig.Symbol,
		"direction":  sig.Direction,
		"entry":      sig.Entry,
		"stopLoss":   sig.StopLoss,
		"takeProfit": sig.TakeProfit,
		"riskReward": sig.RiskReward,
	})
	return nil
}
