package report

import (
	"fmt"
	"html/template"
	"io"
	"strconv"
	"text/tabwriter"
)

const billTimeLayout = "02 Jan 2006 15:04"

// Money formats an amount with the bill currency, e.g. "₹255"
func (b *Bill) Money(amount int64) string {
	return b.Currency + strconv.FormatInt(amount, 10)
}

// RenderText writes a plain-text bill suitable for a receipt printer or a
// terminal
func RenderText(w io.Writer, b *Bill) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	p := func(format string, args ...interface{}) {
		_, _ = fmt.Fprintf(tw, format, args...)
	}

	p("%s\n", b.PropertyName)
	p("Order: %s\n", b.OrderNo)
	p("Date: %s\n", b.CreatedAt.Format(billTimeLayout))
	p("Guest: %s | Room: %s\n", dashIfEmpty(b.GuestName), dashIfEmpty(b.RoomNo))
	p("\nItem\tQty\tRate\tAmt\t\n")
	for _, l := range b.Lines {
		p("%s\t%d\t%s\t%s\t\n", l.Name, l.Qty, b.Money(l.Rate), b.Money(l.Amount))
	}
	p("\nSubtotal\t\t\t%s\t\n", b.Money(b.Subtotal))
	p("Tax\t\t\t%s\t\n", b.Money(b.Tax))
	p("Total\t\t\t%s\t\n", b.Money(b.Total))
	p("\nPayment status: %s\n", b.PaymentStatus)
	p("%s\n", b.Footer)
	return tw.Flush()
}

var billTemplate = template.Must(template.New("bill").Funcs(template.FuncMap{
	"money": func(b *Bill, v int64) string { return b.Money(v) },
	"dash":  dashIfEmpty,
	"when":  func(b *Bill) string { return b.CreatedAt.Format(billTimeLayout) },
}).Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>Bill {{.OrderNo}}</title>
  <style>
    body{ font-family: Arial, sans-serif; width:300px; margin:0; padding:8px; }
    h2{ text-align:center; margin:6px 0; }
    table{ width:100%; font-size:12px; border-collapse: collapse; }
    td,th{ padding:3px; }
    .right{ text-align:right; }
    .center{ text-align:center; }
    .row{ display:flex; justify-content:space-between; }
    .footer{ font-size:11px; margin-top:8px; text-align:center; }
  </style>
</head>
<body>
  <h2>{{.PropertyName}}</h2>
  <div>Order: {{.OrderNo}}</div>
  <div>Date: {{when .}}</div>
  <div>Guest: {{dash .GuestName}} | Room: {{dash .RoomNo}}</div>
  <table>
    <thead><tr><th>Item</th><th class="center">Qty</th><th class="right">Rate</th><th class="right">Amt</th></tr></thead>
    <tbody>
{{- range .Lines}}
      <tr><td>{{.Name}}</td><td class="center">{{.Qty}}</td><td class="right">{{money $ .Rate}}</td><td class="right">{{money $ .Amount}}</td></tr>
{{- end}}
    </tbody>
  </table>
  <hr/>
  <div class="row"><div>Subtotal</div><div>{{money . .Subtotal}}</div></div>
  <div class="row"><div>Tax</div><div>{{money . .Tax}}</div></div>
  <div class="row" style="font-weight:bold;"><div>Total</div><div>{{money . .Total}}</div></div>
  <div class="footer">Payment status: {{.PaymentStatus}}</div>
  <div class="footer">{{.Footer}}</div>
  <script>window.print();</script>
</body>
</html>
`))

// RenderHTML writes the bill as a self-printing HTML page. Guest-supplied
// text is escaped.
func RenderHTML(w io.Writer, b *Bill) error {
	return billTemplate.Execute(w, b)
}

func dashIfEmpty(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
