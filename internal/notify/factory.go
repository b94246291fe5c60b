package notify

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Environment variables read by ConfigFromEnv
const (
	EnvProvider           = "ROOMSERVICE_NOTIFY_PROVIDER"
	EnvAMQPURL            = "AMQP_URL"
	EnvAMQPExchange       = "AMQP_EXCHANGE"
	EnvAMQPRoutingKey     = "AMQP_ROUTING_KEY"
	EnvTwilioAccountSID   = "TWILIO_ACCOUNT_SID"
	EnvTwilioAuthToken    = "TWILIO_AUTH_TOKEN"
	EnvTwilioWhatsAppFrom = "TWILIO_WHATSAPP_FROM"
	EnvKitchenWhatsAppTo  = "KITCHEN_WHATSAPP_TO"
)

// Config holds bridge configuration
type Config struct {
	Provider string
	Currency string

	AMQPURL        string
	AMQPExchange   string
	AMQPRoutingKey string

	TwilioAccountSID  string
	TwilioAuthToken   string
	WhatsAppFrom      string
	KitchenWhatsAppTo string
	TwilioBaseURL     string

	Retry RetryConfig
}

// ConfigFromEnv reads bridge settings from the environment
func ConfigFromEnv() Config {
	return Config{
		Provider:          strings.ToLower(strings.TrimSpace(os.Getenv(EnvProvider))),
		AMQPURL:           os.Getenv(EnvAMQPURL),
		AMQPExchange:      os.Getenv(EnvAMQPExchange),
		AMQPRoutingKey:    os.Getenv(EnvAMQPRoutingKey),
		TwilioAccountSID:  os.Getenv(EnvTwilioAccountSID),
		TwilioAuthToken:   os.Getenv(EnvTwilioAuthToken),
		WhatsAppFrom:      os.Getenv(EnvTwilioWhatsAppFrom),
		KitchenWhatsAppTo: os.Getenv(EnvKitchenWhatsAppTo),
		Retry:             DefaultRetryConfig(),
	}
}

// DetectProvider returns the provider New would use for cfg
// Priority:
// 1. cfg.Provider (whatsapp, amqp, log)
// 2. complete Twilio credentials
// 3. an AMQP URL
// 4. log
func DetectProvider(cfg Config) string {
	if cfg.Provider != "" {
		return strings.ToLower(cfg.Provider)
	}
	if cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" && cfg.WhatsAppFrom != "" && cfg.KitchenWhatsAppTo != "" {
		return ProviderWhatsApp
	}
	if cfg.AMQPURL != "" {
		return ProviderAMQP
	}
	return ProviderLog
}

// New creates the bridge selected by cfg, wrapped with retry
func New(cfg Config, logger *slog.Logger) (Bridge, error) {
	if cfg.Retry.MaxRetries == 0 {
		cfg.Retry = DefaultRetryConfig()
	}

	var (
		b   Bridge
		err error
	)
	switch provider := DetectProvider(cfg); provider {
	case ProviderWhatsApp:
		b, err = NewWhatsAppBridge(cfg)
	case ProviderAMQP:
		b, err = NewAMQPBridge(cfg)
	case ProviderLog:
		b = NewLogBridge(logger, cfg.Currency)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}
	if err != nil {
		return nil, err
	}
	return WithRetry(b, cfg.Retry), nil
}
