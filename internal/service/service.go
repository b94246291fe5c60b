package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dshills/roomservice/internal/menu"
	"github.com/dshills/roomservice/internal/notify"
	"github.com/dshills/roomservice/internal/order"
	"github.com/dshills/roomservice/internal/report"
	"github.com/dshills/roomservice/internal/repository"
	"github.com/dshills/roomservice/pkg/types"
)

// NotifiedOutcome is appended to the channel name in history, e.g.
// "WhatsApp sent to kitchen"
const NotifiedOutcome = "sent to kitchen"

// Options configures a Service
type Options struct {
	Location     *time.Location // export day boundaries and bill timestamps
	PropertyName string
	Currency     string
	Logger       *slog.Logger
	Now          func() time.Time
}

// Service is the operation surface shared by the HTTP and MCP transports
type Service struct {
	repo    *repository.Repository
	catalog *menu.Catalog
	bridge  notify.Bridge
	loc     *time.Location
	bill    report.BillOptions
	logger  *slog.Logger
	now     func() time.Time
}

// New wires a Service
func New(repo *repository.Repository, catalog *menu.Catalog, bridge notify.Bridge, opts Options) *Service {
	s := &Service{
		repo:    repo,
		catalog: catalog,
		bridge:  bridge,
		loc:     opts.Location,
		logger:  opts.Logger,
		now:     opts.Now,
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.bill = report.BillOptions{PropertyName: opts.PropertyName, Currency: opts.Currency, Location: s.loc}
	return s
}

// CreateOrderInput is the request to place an order
type CreateOrderInput struct {
	GuestName     string              `json:"guest_name"`
	RoomNo        string              `json:"room_no"`
	Notes         string              `json:"notes"`
	Source        string              `json:"source"`
	MenuVersion   string              `json:"menu_version"`
	RequestedTime string              `json:"requested_time"`
	Items         []types.ItemRequest `json:"items"`
}

// CreateOrder prices the requested items from the menu and stores a new
// order
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (*types.Order, error) {
	if len(in.Items) == 0 {
		return nil, types.NewValidationError("items", "must contain at least one item")
	}
	version := in.MenuVersion
	if version == "" {
		version = s.catalog.DefaultVersion()
	}
	lines, err := s.catalog.Resolve(ctx, version, in.Items)
	if err != nil {
		return nil, err
	}

	o, err := order.New(order.NewParams{
		GuestName:     in.GuestName,
		RoomNo:        in.RoomNo,
		Notes:         in.Notes,
		Source:        in.Source,
		MenuVersion:   version,
		RequestedTime: in.RequestedTime,
		Items:         lines,
		At:            s.now(),
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, o)
}

// GetOrder returns one order
func (s *Service) GetOrder(ctx context.Context, id string) (*types.Order, error) {
	return s.repo.Get(ctx, id)
}

// ListOrders returns summaries matching filter, newest first
func (s *Service) ListOrders(ctx context.Context, filter types.ListFilter) ([]*types.OrderSummary, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, &types.InvalidStateError{Field: "status", Value: string(filter.Status)}
	}
	if filter.PaymentStatus != "" && !filter.PaymentStatus.Valid() {
		return nil, &types.InvalidStateError{Field: "payment_status", Value: string(filter.PaymentStatus)}
	}
	if filter.Limit < 0 {
		return nil, types.NewValidationError("limit", "must not be negative")
	}
	return s.repo.List(ctx, filter)
}

// AddItemsToOrder adds menu items to an order. Keys already on the order
// have their quantity increased.
func (s *Service) AddItemsToOrder(ctx context.Context, id string, items []types.ItemRequest) (*types.Order, error) {
	if len(items) == 0 {
		return nil, types.NewValidationError("items", "must contain at least one item")
	}
	// The menu version of an order never changes, so it can be read before
	// entering the exclusive section.
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	lines, err := s.catalog.Resolve(ctx, current.MenuVersion, items)
	if err != nil {
		return nil, err
	}

	at := s.now()
	return s.repo.SaveMutation(ctx, id, func(o *types.Order) error {
		return order.AddItems(o, lines, at)
	})
}

// UpdateItemQuantity sets the quantity of one line; zero removes it
func (s *Service) UpdateItemQuantity(ctx context.Context, id, itemKey string, qty int) (*types.Order, error) {
	at := s.now()
	return s.repo.SaveMutation(ctx, id, func(o *types.Order) error {
		return order.UpdateQuantity(o, itemKey, qty, at)
	})
}

// RemoveItem drops one line from an order
func (s *Service) RemoveItem(ctx context.Context, id, itemKey string) (*types.Order, error) {
	at := s.now()
	return s.repo.SaveMutation(ctx, id, func(o *types.Order) error {
		return order.RemoveItem(o, itemKey, at)
	})
}

// UpdateOrder changes status, payment status, requested time or notes
func (s *Service) UpdateOrder(ctx context.Context, id string, u order.FieldUpdate) (*types.Order, error) {
	at := s.now()
	return s.repo.SaveMutation(ctx, id, func(o *types.Order) error {
		return order.UpdateFields(o, u, at)
	})
}

// ExportOrders returns the CSV records of orders created on date
// (YYYY-MM-DD) in the configured time zone, oldest first
func (s *Service) ExportOrders(ctx context.Context, date string) ([][]string, error) {
	start, end, err := report.DayBounds(date, s.loc)
	if err != nil {
		return nil, err
	}
	return report.ExportRange(ctx, s.repo, start, end)
}

// ExportCSV is ExportOrders formatted as a CSV document with header
func (s *Service) ExportCSV(ctx context.Context, date string) (string, error) {
	rows, err := s.ExportOrders(ctx, date)
	if err != nil {
		return "", err
	}
	return report.FormatCSV(rows)
}

// RenderBill builds the printable bill of an order
func (s *Service) RenderBill(ctx context.Context, id string) (*report.Bill, error) {
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return report.ToPrintableBill(o, s.bill), nil
}

// NotifyKitchen sends the order to the kitchen channel and, once delivery
// is confirmed, records it in the order history.
//
// The send happens outside the order lock. A failed send returns a
// *types.NotificationError and leaves the order unchanged.
func (s *Service) NotifyKitchen(ctx context.Context, id string) (*types.Order, error) {
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	channel := s.bridge.Channel()
	if err := s.bridge.Send(ctx, o); err != nil {
		s.logger.Error("kitchen notification failed",
			"action", "kitchen_notify_failed", "order_id", id, "channel", channel, "error", err)
		return nil, &types.NotificationError{Channel: channel, Err: err}
	}

	at := s.now()
	updated, err := s.repo.SaveMutation(ctx, id, func(o *types.Order) error {
		return order.RecordNotification(o, channel, NotifiedOutcome, at)
	})
	if err != nil {
		// The kitchen has the message; only the audit entry is missing.
		s.logger.Error("kitchen notified but history not recorded",
			"action", "kitchen_notify_unrecorded", "order_id", id, "channel", channel, "error", err)
		return nil, err
	}
	return updated, nil
}

// Menu lists the items of a menu version; empty means the default version
func (s *Service) Menu(ctx context.Context, version string) ([]*types.MenuItem, error) {
	return s.catalog.ListItems(ctx, version)
}

// MenuVersions lists published menu versions
func (s *Service) MenuVersions(ctx context.Context) ([]string, error) {
	return s.catalog.Versions(ctx)
}

// PublishMenu stores a new menu version
func (s *Service) PublishMenu(ctx context.Context, version string, items []*types.MenuItem) error {
	return s.catalog.Publish(ctx, version, items)
}

// DefaultMenuVersion is the version used when a request names none
func (s *Service) DefaultMenuVersion() string {
	return s.catalog.DefaultVersion()
}

// IsClientError reports whether err was caused by the request rather than
// the system
func IsClientError(err error) bool {
	return errors.Is(err, types.ErrValidation) || errors.Is(err, types.ErrNotFound) ||
		errors.Is(err, types.ErrInvalidState)
}
