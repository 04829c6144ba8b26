package services

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/Cyvadra/signal-desk/internal/models"
	"github.com/Cyvadra/signal-desk/internal/signals"
)

var (
	operatorPattern = regexp.MustCompile(`(>=|<=|>|<|=)`)
	windowPattern   = regexp.MustCompile(`^\d+[smhd]$`)
)

// operatorAliases maps what users type to operator codes
var operatorAliases = map[string]string{
	">":                  "greater_than",
	"<":                  "less_than",
	">=":                 "greater_than_equal",
	"<=":                 "less_than_equal",
	"=":                  "eq",
	"above":              "greater_than",
	"below":              "less_than",
	"gt":                 "greater_than",
	"lt":                 "less_than",
	"gte":                "greater_than_equal",
	"lte":                "less_than_equal",
	"eq":                 "eq",
	"greater_than":       "greater_than",
	"less_than":          "less_than",
	"greater_than_equal": "greater_than_equal",
	"less_than_equal":    "less_than_equal",
	"abs_greater_than":   "abs_greater_than",
	"abs_less_than":      "abs_less_than",
	"crosses_above":      "crosses_above",
	"crosses_below":      "crosses_below",
}

// RuleSet is the outcome of parsing a chat message for signal rules
type RuleSet struct {
	Configs []models.SignalConfig
	Errors  []string
}

// ParseRules extracts signal configs from free text. Each line or
// semicolon separated segment is one rule:
//
//	[SYMBOL...] metric op threshold [over window]
//	[SYMBOL...] taker_volume buy|sell ratio R volume V [over window]
//	pool AND|OR [SYMBOL...] rule, rule, ...
//
// Segments that mention no known metric are treated as conversation and
// skipped. A message holding a JSON config proposal is decoded as JSON
// instead (see DecodeProposals).
func ParseRules(text string) RuleSet {
	if set, ok := DecodeProposals(text); ok {
		return set
	}

	var set RuleSet
	for _, segment := range splitSegments(text) {
		tokens := tokenize(segment)
		if len(tokens) == 0 {
			continue
		}

		if strings.EqualFold(tokens[0], "pool") {
			cfg, err := parsePool(tokens[1:], segment)
			if err != nil {
				set.Errors = append(set.Errors, fmt.Sprintf("%q: %v", segment, err))
				continue
			}
			if cfg != nil {
				set.Configs = append(set.Configs, *cfg)
			}
			continue
		}

		cond, symbols, err := parseCondition(tokens)
		if err != nil {
			set.Errors = append(set.Errors, fmt.Sprintf("%q: %v", segment, err))
			continue
		}
		if cond == nil {
			continue
		}

		if len(symbols) == 0 {
			symbols = []string{""}
		}
		for _, symbol := range symbols {
			set.Configs = append(set.Configs, models.SignalConfig{
				Type:            models.ConfigTypeSignal,
				Name:            signalName(symbol, *cond),
				Description:     segment,
				Symbol:          symbol,
				SignalCondition: *cond,
			})
		}
	}
	return set
}

func splitSegments(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == '\n' || r == ';'
	})
	segments := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			segments = append(segments, f)
		}
	}
	return segments
}

func tokenize(segment string) []string {
	return strings.Fields(operatorPattern.ReplaceAllString(segment, " $1 "))
}

func parsePool(tokens []string, segment string) (*models.SignalConfig, error) {
	logic := models.LogicAnd
	if len(tokens) > 0 {
		switch strings.ToUpper(tokens[0]) {
		case "AND":
			tokens = tokens[1:]
		case "OR":
			logic = models.LogicOr
			tokens = tokens[1:]
		}
	}

	var (
		members []models.SignalCondition
		symbols []string
	)
	for i, part := range strings.Split(strings.Join(tokens, " "), ",") {
		cond, partSymbols, err := parseCondition(strings.Fields(part))
		if err != nil {
			return nil, fmt.Errorf("member %d: %w", i+1, err)
		}
		symbols = appendUnique(symbols, partSymbols...)
		if cond == nil {
			continue
		}
		if cond.Operator == "" || cond.Threshold == nil {
			return nil, fmt.Errorf("member %d: pool members need an operator and a threshold", i+1)
		}
		members = append(members, *cond)
	}

	if len(members) == 0 {
		return nil, fmt.Errorf("pool has no member signals")
	}

	return &models.SignalConfig{
		Type:        models.ConfigTypePool,
		Name:        poolName(logic, members),
		Description: segment,
		Symbols:     symbols,
		Logic:       logic,
		Signals:     members,
	}, nil
}

// parseCondition returns a nil condition when the tokens name no metric
func parseCondition(tokens []string) (*models.SignalCondition, []string, error) {
	var (
		cond    models.SignalCondition
		symbols []string
	)

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if isSymbol(tok) {
			symbols = appendUnique(symbols, tok)
			continue
		}

		lower := strings.ToLower(tok)
		if cond.Metric == "" {
			if signals.KnownMetric(lower) {
				cond.Metric = lower
			}
			continue
		}

		switch {
		case lower == "over" || lower == "in" || lower == "within":
			if i+1 < len(tokens) && windowPattern.MatchString(strings.ToLower(tokens[i+1])) {
				cond.TimeWindow = strings.ToLower(tokens[i+1])
				i++
			}
		case cond.Metric == models.MetricTakerVolume:
			switch lower {
			case "buy", "sell":
				cond.Direction = lower
			case "ratio", "volume":
				if i+1 >= len(tokens) {
					return nil, nil, fmt.Errorf("%s needs a value", lower)
				}
				v, err := parseNumber(tokens[i+1])
				if err != nil {
					return nil, nil, fmt.Errorf("invalid %s %q", lower, tokens[i+1])
				}
				if lower == "ratio" {
					cond.RatioThreshold = &v
				} else {
					cond.VolumeThreshold = &v
				}
				i++
			}
		case cond.Operator == "":
			if op, ok := operatorAliases[lower]; ok {
				cond.Operator = op
			}
		case cond.Threshold == nil:
			v, err := parseNumber(tok)
			if err != nil {
				return nil, nil, fmt.Errorf("invalid threshold %q", tok)
			}
			cond.Threshold = &v
		case cond.TimeWindow == "" && windowPattern.MatchString(lower):
			cond.TimeWindow = lower
		}
	}

	if cond.Metric == "" {
		return nil, symbols, nil
	}
	if cond.Metric != models.MetricTakerVolume {
		if cond.Operator == "" {
			return nil, nil, fmt.Errorf("missing operator for %s", cond.Metric)
		}
		if cond.Threshold == nil {
			return nil, nil, fmt.Errorf("missing threshold for %s", cond.Metric)
		}
	}
	return &cond, symbols, nil
}

// isSymbol matches upper case tickers such as BTCUSDT or 1000PEPEUSDT
func isSymbol(tok string) bool {
	if tok == "AND" || tok == "OR" {
		return false
	}
	letters := 0
	for _, r := range tok {
		switch {
		case unicode.IsUpper(r):
			letters++
		case unicode.IsDigit(r):
		default:
			return false
		}
	}
	return letters >= 3
}

// parseNumber accepts plain numbers plus %, k, m and b suffixes
func parseNumber(tok string) (float64, error) {
	s := strings.ReplaceAll(strings.TrimSuffix(tok, "%"), ",", "")
	multiplier := 1.0
	if n := len(s); n > 1 {
		switch s[n-1] {
		case 'k', 'K':
			multiplier, s = 1e3, s[:n-1]
		case 'm', 'M':
			multiplier, s = 1e6, s[:n-1]
		case 'b', 'B':
			multiplier, s = 1e9, s[:n-1]
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return v * multiplier, nil
}

func poolName(logic models.PoolLogic, members []models.SignalCondition) string {
	labels := make([]string, 0, len(members))
	for _, m := range members {
		labels = append(labels, signals.MetricLabel(m.Metric))
	}
	return fmt.Sprintf("%s pool: %s", logic, strings.Join(labels, ", "))
}

func signalName(symbol string, cond models.SignalCondition) string {
	desc := signals.DescribeCondition(cond)
	if symbol == "" {
		return desc
	}
	return symbol + " " + desc
}

func appendUnique(list []string, values ...string) []string {
	for _, v := range values {
		found := false
		for _, existing := range list {
			if existing == v {
				found = true
				break
			}
		}
		if !found {
			list = append(list, v)
		}
	}
	return list
}
