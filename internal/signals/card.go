package signals

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Cyvadra/signal-desk/internal/models"
)

// Card is the view model of a proposed signal or signal pool
type Card struct {
	Key        string
	Index      int
	Config     models.SignalConfig
	Title      string
	Conditions []string
	Valid      bool
	Creating   bool
	Created    bool
	CanPreview bool
	CanCreate  bool
}

// BuildCard builds the card for the config at index in the aggregate list
func BuildCard(cfg models.SignalConfig, index int, tracker *CreationTracker) Card {
	key := CardKey(cfg, index)
	valid := IsValid(cfg)
	creating := tracker != nil && tracker.IsCreating(key)
	created := tracker != nil && tracker.IsCreated(key)

	card := Card{
		Key:        key,
		Index:      index,
		Config:     cfg,
		Title:      cardTitle(cfg, index),
		Valid:      valid,
		Creating:   creating,
		Created:    created,
		CanPreview: valid,
		CanCreate:  valid && !creating && !created,
	}

	if cfg.IsPool() {
		for _, s := range cfg.Signals {
			card.Conditions = append(card.Conditions, DescribeCondition(s))
		}
	} else {
		card.Conditions = []string{DescribeCondition(cfg.SignalCondition)}
	}
	return card
}

// BuildCards builds one card per config
func BuildCards(configs []models.SignalConfig, tracker *CreationTracker) []Card {
	cards := make([]Card, 0, len(configs))
	for i, cfg := range configs {
		cards = append(cards, BuildCard(cfg, i, tracker))
	}
	return cards
}

// DescribeCondition renders a condition as a short human readable line
func DescribeCondition(c models.SignalCondition) string {
	if c.Metric == "" {
		return "(no metric)"
	}

	var sb strings.Builder
	sb.WriteString(MetricLabel(c.Metric))

	if c.Metric == models.MetricTakerVolume {
		if c.Direction != "" {
			sb.WriteString(" " + c.Direction)
		}
		if c.RatioThreshold != nil {
			sb.WriteString(" ratio >= " + formatFloat(*c.RatioThreshold))
		}
		if c.VolumeThreshold != nil {
			sb.WriteString(" volume >= " + formatFloat(*c.VolumeThreshold))
		}
	} else {
		if c.Operator != "" {
			sb.WriteString(" " + OperatorSymbol(c.Operator))
		}
		if c.Threshold != nil {
			sb.WriteString(" " + formatFloat(*c.Threshold))
		}
	}

	if c.TimeWindow != "" {
		sb.WriteString(" (" + c.TimeWindow + ")")
	}
	return sb.String()
}

func cardTitle(cfg models.SignalConfig, index int) string {
	name := cfg.Name
	if name == "" {
		name = fmt.Sprintf("Untitled #%d", index+1)
	}
	if cfg.IsPool() {
		logic := cfg.Logic
		if logic == "" {
			logic = models.LogicAnd
		}
		return fmt.Sprintf("%s [pool %s, %d signals]", name, logic, len(cfg.Signals))
	}
	if cfg.Symbol != "" {
		return name + " [" + cfg.Symbol + "]"
	}
	return name
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
