package signals

import "github.com/Cyvadra/signal-desk/internal/models"

// IsValid reports whether a proposed config can be previewed or created.
// A single signal needs a metric and, unless it is a taker-volume signal,
// an operator and a threshold. A pool needs at least one member and every
// member needs metric, operator and threshold.
func IsValid(cfg models.SignalConfig) bool {
	if cfg.IsPool() {
		return isValidPool(cfg)
	}
	return isValidSignal(cfg.SignalCondition)
}

func isValidSignal(c models.SignalCondition) bool {
	if c.Metric == "" {
		return false
	}
	if c.Metric == models.MetricTakerVolume {
		return true
	}
	return c.Operator != "" && c.Threshold != nil
}

func isValidPool(cfg models.SignalConfig) bool {
	if len(cfg.Signals) == 0 {
		return false
	}
	for _, s := range cfg.Signals {
		if s.Metric == "" || s.Operator == "" || s.Threshold == nil {
			return false
		}
	}
	return true
}
