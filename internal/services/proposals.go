package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Cyvadra/signal-desk/internal/models"
	"github.com/Cyvadra/signal-desk/internal/signals"
)

// typography that chat clients and language models substitute into JSON
var typographyReplacer = strings.NewReplacer(
	"\n", " ", "\r", " ", "\t", " ",
	"“", `"`, "”", `"`,
	"‘", "'", "’", "'",
	"–", "-", "—", "-", "‑", "-",
)

// proposalEnvelope lists the wrapper keys a proposal list may come in
type proposalEnvelope struct {
	Configs       []json.RawMessage `json:"configs"`
	SignalConfigs []json.RawMessage `json:"signal_configs"`
	Decisions     []json.RawMessage `json:"decisions"`
}

// DecodeProposals decodes signal configs written as JSON. It accepts a
// fenced code block or bare JSON holding a single config, an array of
// configs, or an object wrapping the array in "configs", "signal_configs"
// or "decisions". Curly quotes and typographic dashes are normalized when
// the raw text does not parse. ok is false when text holds no JSON.
func DecodeProposals(text string) (RuleSet, bool) {
	body, fenced := extractJSON(text)
	if body == "" {
		return RuleSet{}, false
	}

	var raw json.RawMessage
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		if err := json.Unmarshal([]byte(typographyReplacer.Replace(body)), &raw); err != nil {
			if !fenced {
				return RuleSet{}, false
			}
			return RuleSet{Errors: []string{fmt.Sprintf("invalid JSON: %v", err)}}, true
		}
	}

	items, err := proposalItems(raw)
	if err != nil {
		return RuleSet{Errors: []string{err.Error()}}, true
	}

	var set RuleSet
	for i, item := range items {
		var cfg models.SignalConfig
		if err := json.Unmarshal(item, &cfg); err != nil {
			set.Errors = append(set.Errors, fmt.Sprintf("config %d: %v", i+1, err))
			continue
		}
		normalizeProposal(&cfg)
		if !signals.IsValid(cfg) {
			set.Errors = append(set.Errors, fmt.Sprintf("config %d: incomplete signal config", i+1))
			continue
		}
		set.Configs = append(set.Configs, cfg)
	}
	return set, true
}

// extractJSON returns the JSON candidate of text: the contents of the first
// code fence, or the whole text when it starts like JSON
func extractJSON(text string) (string, bool) {
	text = strings.TrimSpace(text)

	if start := strings.Index(text, "```"); start >= 0 {
		rest := text[start+3:]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			lang := strings.TrimSpace(rest[:nl])
			if lang == "" || strings.EqualFold(lang, "json") {
				rest = rest[nl+1:]
			}
		}
		if end := strings.Index(rest, "```"); end >= 0 {
			rest = rest[:end]
		}
		return strings.TrimSpace(rest), true
	}

	if strings.HasPrefix(text, "{") || strings.HasPrefix(text, "[") {
		return text, false
	}
	return "", false
}

func proposalItems(raw json.RawMessage) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty JSON proposal")
	}

	switch trimmed[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("invalid config list: %w", err)
		}
		return items, nil
	case '{':
		var env proposalEnvelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, fmt.Errorf("invalid config object: %w", err)
		}
		switch {
		case env.Configs != nil:
			return env.Configs, nil
		case env.SignalConfigs != nil:
			return env.SignalConfigs, nil
		case env.Decisions != nil:
			return env.Decisions, nil
		}
		return []json.RawMessage{trimmed}, nil
	}
	return nil, fmt.Errorf("JSON proposal must be an object or an array")
}

// normalizeProposal fills the type, canonical operator codes, symbol case
// and a display name the way rule text produces them
func normalizeProposal(cfg *models.SignalConfig) {
	if cfg.Type == "" {
		cfg.Type = models.ConfigTypeSignal
		if len(cfg.Signals) > 0 {
			cfg.Type = models.ConfigTypePool
		}
	}

	cfg.Symbol = strings.ToUpper(strings.TrimSpace(cfg.Symbol))
	for i := range cfg.Symbols {
		cfg.Symbols[i] = strings.ToUpper(strings.TrimSpace(cfg.Symbols[i]))
	}
	cfg.Operator = canonicalOperator(cfg.Operator)
	for i := range cfg.Signals {
		cfg.Signals[i].Operator = canonicalOperator(cfg.Signals[i].Operator)
	}

	if cfg.IsPool() {
		if cfg.Logic == "" {
			cfg.Logic = models.LogicAnd
		}
		cfg.Logic = models.PoolLogic(strings.ToUpper(string(cfg.Logic)))
		if cfg.Name == "" && len(cfg.Signals) > 0 {
			cfg.Name = poolName(cfg.Logic, cfg.Signals)
		}
		return
	}
	if cfg.Name == "" && cfg.Metric != "" {
		cfg.Name = signalName(cfg.Symbol, cfg.SignalCondition)
	}
}

func canonicalOperator(op string) string {
	if code, ok := operatorAliases[strings.ToLower(strings.TrimSpace(op))]; ok {
		return code
	}
	return op
}
