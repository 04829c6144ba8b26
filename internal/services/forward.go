package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Cyvadra/signal-desk/internal/config"
	"github.com/Cyvadra/signal-desk/internal/models"
	"github.com/Cyvadra/signal-desk/internal/signals"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const defaultTelegramAPI = "https://api.telegram.org"

// ErrConfigNotSet is returned when the service is used before SetConfig
var ErrConfigNotSet = errors.New("configuration not set")

// ForwardService notifies downstream endpoints about created signals
type ForwardService struct {
	client      *resty.Client
	config      *config.Config
	telegramAPI string
	logger      zerolog.Logger
	wg          sync.WaitGroup
}

// NewForwardService creates a new forward service
func NewForwardService() *ForwardService {
	return &ForwardService{
		client:      resty.New().SetTimeout(10 * time.Second),
		telegramAPI: defaultTelegramAPI,
		logger:      log.With().Str("component", "forward").Logger(),
	}
}

// SetConfig sets the configuration for the forward service
func (s *ForwardService) SetConfig(cfg *config.Config) {
	s.config = cfg
}

// SetLogger sets the logger for the forward service
func (s *ForwardService) SetLogger(logger zerolog.Logger) {
	s.logger = logger
}

// SetTelegramAPI overrides the Telegram bot API base URL
func (s *ForwardService) SetTelegramAPI(base string) {
	s.telegramAPI = strings.TrimSuffix(base, "/")
}

// ForwardSignal notifies every active endpoint in the background
func (s *ForwardService) ForwardSignal(signal *models.SignalRecord, cfg models.SignalConfig) error {
	if s.config == nil {
		return ErrConfigNotSet
	}

	message := formatSignalMessage(signal, cfg)
	for _, endpoint := range s.config.Endpoints {
		if !endpoint.IsActive {
			continue
		}

		s.wg.Add(1)
		go func(ep config.EndpointConfig) {
			defer s.wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := s.forwardToEndpoint(ctx, signal, message, ep); err != nil {
				s.logger.Error().Err(err).Str("endpoint", ep.Name).Str("type", ep.Type).Msg("Failed to forward signal")
			}
		}(endpoint)
	}

	return nil
}

// Wait blocks until all in-flight notifications have finished
func (s *ForwardService) Wait() {
	s.wg.Wait()
}

func (s *ForwardService) forwardToEndpoint(ctx context.Context, signal *models.SignalRecord, message string, endpoint config.EndpointConfig) error {
	switch endpoint.Type {
	case "telegram":
		return s.forwardToTelegram(ctx, message, endpoint)
	case "wechat", "dingtalk":
		return s.forwardText(ctx, message, endpoint)
	case "webhook":
		return s.forwardToWebhook(ctx, signal, endpoint)
	default:
		return fmt.Errorf("unsupported endpoint type: %s", endpoint.Type)
	}
}

func (s *ForwardService) forwardToTelegram(ctx context.Context, message string, endpoint config.EndpointConfig) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", s.telegramAPI, endpoint.Token)
	payload := map[string]interface{}{
		"chat_id":    endpoint.ChatID,
		"text":       message,
		"parse_mode": "HTML",
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(url)
	if err != nil {
		return fmt.Errorf("telegram API request failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("telegram API returned status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

// forwardText posts a plain text message in the WeChat/DingTalk robot format
func (s *ForwardService) forwardText(ctx context.Context, message string, endpoint config.EndpointConfig) error {
	payload := map[string]interface{}{
		"msgtype": "text",
		"text": map[string]string{
			"content": message,
		},
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(endpoint.URL)
	if err != nil {
		return fmt.Errorf("%s API request failed: %w", endpoint.Type, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("%s API returned status %d: %s", endpoint.Type, resp.StatusCode(), resp.String())
	}
	return nil
}

func (s *ForwardService) forwardToWebhook(ctx context.Context, signal *models.SignalRecord, endpoint config.EndpointConfig) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(signal).
		Post(endpoint.URL)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

func formatSignalMessage(signal *models.SignalRecord, cfg models.SignalConfig) string {
	var sb strings.Builder
	if cfg.IsPool() {
		sb.WriteString("New signal pool\n\n")
	} else {
		sb.WriteString("New signal\n\n")
	}
	if signal.Name != "" {
		sb.WriteString(fmt.Sprintf("Name: %s\n", signal.Name))
	}

	if cfg.IsPool() {
		if len(cfg.Symbols) > 0 {
			sb.WriteString(fmt.Sprintf("Symbols: %s\n", strings.Join(cfg.Symbols, ", ")))
		}
		sb.WriteString(fmt.Sprintf("Logic: %s\n", cfg.Logic))
		for _, cond := range cfg.Signals {
			sb.WriteString(fmt.Sprintf("- %s\n", signals.DescribeCondition(cond)))
		}
	} else {
		if signal.Symbol != "" {
			sb.WriteString(fmt.Sprintf("Symbol: %s\n", signal.Symbol))
		}
		sb.WriteString(fmt.Sprintf("Condition: %s\n", signals.DescribeCondition(cfg.SignalCondition)))
	}

	sb.WriteString(fmt.Sprintf("Time: %s", signal.CreatedAt.Format("2006-01-02 15:04:05")))
	return sb.String()
}
