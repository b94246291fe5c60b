package notify

import (
	"context"
	"errors"

	"github.com/dshills/roomservice/pkg/types"
)

// Provider names accepted by New and ROOMSERVICE_NOTIFY_PROVIDER
const (
	ProviderWhatsApp = "whatsapp"
	ProviderAMQP     = "amqp"
	ProviderLog      = "log"
)

// Channel labels recorded in order history, e.g. "WhatsApp sent to kitchen"
const (
	ChannelWhatsApp = "WhatsApp"
	ChannelAMQP     = "Kitchen queue"
	ChannelLog      = "Kitchen log"
)

var (
	// ErrNotConfigured is returned when a provider lacks required settings
	ErrNotConfigured = errors.New("notification channel not configured")
	// ErrUnknownProvider is returned for an unrecognised provider name
	ErrUnknownProvider = errors.New("unknown notification provider")
)

// Bridge delivers a kitchen message for an order. Send returns nil only
// once the channel has accepted the message.
type Bridge interface {
	// Channel names the channel for history entries
	Channel() string

	// Send delivers the kitchen message for o
	Send(ctx context.Context, o *types.Order) error

	// Close releases connections held by the bridge
	Close() error
}
