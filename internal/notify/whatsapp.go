package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dshills/roomservice/pkg/types"
)

// DefaultTwilioBaseURL is the Twilio REST endpoint root
const DefaultTwilioBaseURL = "https://api.twilio.com"

// WhatsAppBridge sends the kitchen message through the Twilio WhatsApp
// Messages API
type WhatsAppBridge struct {
	accountSID string
	authToken  string
	from       string
	to         string
	currency   string
	baseURL    string
	httpClient *http.Client
}

// NewWhatsAppBridge creates a WhatsApp bridge. All four credentials are
// required.
func NewWhatsAppBridge(cfg Config) (*WhatsAppBridge, error) {
	if cfg.TwilioAccountSID == "" || cfg.TwilioAuthToken == "" || cfg.WhatsAppFrom == "" || cfg.KitchenWhatsAppTo == "" {
		return nil, fmt.Errorf("%w: %s, %s, %s and %s are required", ErrNotConfigured,
			EnvTwilioAccountSID, EnvTwilioAuthToken, EnvTwilioWhatsAppFrom, EnvKitchenWhatsAppTo)
	}
	baseURL := cfg.TwilioBaseURL
	if baseURL == "" {
		baseURL = DefaultTwilioBaseURL
	}
	return &WhatsAppBridge{
		accountSID: cfg.TwilioAccountSID,
		authToken:  cfg.TwilioAuthToken,
		from:       whatsAppAddress(cfg.WhatsAppFrom),
		to:         whatsAppAddress(cfg.KitchenWhatsAppTo),
		currency:   cfg.Currency,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}, nil
}

func (w *WhatsAppBridge) Channel() string { return ChannelWhatsApp }

func (w *WhatsAppBridge) Send(ctx context.Context, o *types.Order) error {
	form := url.Values{}
	form.Set("From", w.from)
	form.Set("To", w.to)
	form.Set("Body", RenderKitchenMessage(o, w.currency))

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", w.baseURL, url.PathEscape(w.accountSID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.SetBasicAuth(w.accountSID, w.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	err = fmt.Errorf("whatsapp API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	// 4xx other than rate limiting will fail the same way again
	if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
		return Permanent(err)
	}
	return err
}

func (w *WhatsAppBridge) Close() error { return nil }

func whatsAppAddress(v string) string {
	v = strings.TrimSpace(v)
	if strings.HasPrefix(v, "whatsapp:") {
		return v
	}
	return "whatsapp:" + v
}
