package models

// ConfigType discriminates a single signal from a signal pool
type ConfigType string

const (
	ConfigTypeSignal ConfigType = "signal"
	ConfigTypePool   ConfigType = "pool"
)

// PoolLogic is how member signals of a pool are combined
type PoolLogic string

const (
	LogicAnd PoolLogic = "AND"
	LogicOr  PoolLogic = "OR"
)

// MetricTakerVolume uses direction and ratio/volume thresholds instead of
// an operator and threshold.
const MetricTakerVolume = "taker_volume"

// SignalCondition is a single trigger condition over a market metric
type SignalCondition struct {
	Metric          string   `json:"metric,omitempty"`
	Operator        string   `json:"operator,omitempty"`
	Threshold       *float64 `json:"threshold,omitempty"`
	TimeWindow      string   `json:"time_window,omitempty"`
	Direction       string   `json:"direction,omitempty"`
	RatioThreshold  *float64 `json:"ratio_threshold,omitempty"`
	VolumeThreshold *float64 `json:"volume_threshold,omitempty"`
}

// SignalConfig is a signal or signal pool definition proposed by the assistant
type SignalConfig struct {
	Type        ConfigType `json:"type"`
	Name        string     `json:"name,omitempty"`
	Description string     `json:"description,omitempty"`
	Symbol      string     `json:"symbol,omitempty"`

	// Single signal
	SignalCondition

	// Pool
	Symbols []string          `json:"symbols,omitempty"`
	Logic   PoolLogic         `json:"logic,omitempty"`
	Signals []SignalCondition `json:"signals,omitempty"`
}

// IsPool reports whether the config describes a signal pool
func (c SignalConfig) IsPool() bool {
	return c.Type == ConfigTypePool
}

// Clone returns a deep copy of the config
func (c SignalConfig) Clone() SignalConfig {
	out := c
	out.SignalCondition = c.SignalCondition.clone()
	if c.Symbols != nil {
		out.Symbols = append([]string(nil), c.Symbols...)
	}
	if c.Signals != nil {
		out.Signals = make([]SignalCondition, len(c.Signals))
		for i, s := range c.Signals {
			out.Signals[i] = s.clone()
		}
	}
	return out
}

func (s SignalCondition) clone() SignalCondition {
	out := s
	out.Threshold = cloneFloat(s.Threshold)
	out.RatioThreshold = cloneFloat(s.RatioThreshold)
	out.VolumeThreshold = cloneFloat(s.VolumeThreshold)
	return out
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	f := *v
	return &f
}

// Float returns a pointer to v, for building configs in code
func Float(v float64) *float64 {
	return &v
}
