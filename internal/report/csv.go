package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dshills/roomservice/pkg/types"
)

// CSVHeader is the first record of every export
var CSVHeader = []string{
	"order_no", "created_at", "guest_name", "room_no", "total", "status", "payment_status", "items",
}

// DateLayout is the accepted form of an export date
const DateLayout = "2006-01-02"

// OrderSource loads full orders for a created_at range, inclusive on both
// ends
type OrderSource interface {
	ListCreatedBetween(ctx context.Context, start, end time.Time) ([]*types.Order, error)
}

// FlattenItems renders lines as "2x Naan|1x Dal Makhani"
func FlattenItems(lines []types.OrderLine) string {
	parts := make([]string, len(lines))
	for i, l := range lines {
		parts[i] = fmt.Sprintf("%dx %s", l.Qty, l.Name)
	}
	return strings.Join(parts, "|")
}

// ToCSVRow maps an order to one export record. It uses only the line
// snapshots stored on the order.
func ToCSVRow(o *types.Order) []string {
	return []string{
		o.OrderNo,
		o.CreatedAt.UTC().Format(time.RFC3339),
		o.GuestName,
		o.RoomNo,
		strconv.FormatInt(o.Total, 10),
		string(o.Status),
		string(o.PaymentStatus),
		FlattenItems(o.Items),
	}
}

// ExportRange returns one record per order created in [start, end], oldest
// first. The header is not included.
func ExportRange(ctx context.Context, src OrderSource, start, end time.Time) ([][]string, error) {
	if end.Before(start) {
		return nil, types.NewValidationError("range", "end is before start")
	}
	orders, err := src.ListCreatedBetween(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to load orders: %w", err)
	}
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.Before(orders[j].CreatedAt)
	})

	rows := make([][]string, 0, len(orders))
	for _, o := range orders {
		if o.CreatedAt.Before(start) || o.CreatedAt.After(end) {
			continue
		}
		rows = append(rows, ToCSVRow(o))
	}
	return rows, nil
}

// DayBounds returns the first and last instant of date (YYYY-MM-DD) in loc
func DayBounds(date string, loc *time.Location) (time.Time, time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	day, err := time.ParseInLocation(DateLayout, strings.TrimSpace(date), loc)
	if err != nil {
		return time.Time{}, time.Time{}, types.NewValidationError("date", "must be YYYY-MM-DD")
	}
	return day, day.AddDate(0, 0, 1).Add(-time.Nanosecond), nil
}

// WriteCSV writes the header followed by rows. Fields containing a comma,
// quote or newline are quoted.
func WriteCSV(w io.Writer, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

// FormatCSV is WriteCSV into a string
func FormatCSV(rows [][]string) (string, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows); err != nil {
		return "", err
	}
	return buf.String(), nil
}
