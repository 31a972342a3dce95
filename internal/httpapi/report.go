package httpapi

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"warungpos/backend/internal/domain"
)

func dailyReportToCSV(report domain.DailyReport) string {
	lines := []string{
		"section,key,value",
		fmt.Sprintf("summary,date,%s", report.Date),
		fmt.Sprintf("summary,store_id,%s", csvField(report.StoreID)),
		fmt.Sprintf("summary,currency,%s", report.Currency),
		fmt.Sprintf("summary,transactions,%d", report.Transactions),
		fmt.Sprintf("summary,voided,%d", report.Voided),
		fmt.Sprintf("summary,units,%d", report.Units),
		fmt.Sprintf("summary,gross_sales,%s", report.GrossSales.StringFixed(2)),
		fmt.Sprintf("summary,profit,%s", report.Profit.StringFixed(2)),
	}
	for _, payment := range report.ByPayment {
		method := csvField(payment.PaymentMethod)
		lines = append(lines, fmt.Sprintf("payment,%s_transactions,%d", method, payment.Transactions))
		lines = append(lines, fmt.Sprintf("payment,%s_total,%s", method, payment.Total.StringFixed(2)))
	}
	for _, product := range report.TopProducts {
		name := csvField(product.Name)
		lines = append(lines, fmt.Sprintf("product,%s_units,%d", name, product.Units))
		lines = append(lines, fmt.Sprintf("product,%s_total,%s", name, product.Total.StringFixed(2)))
	}
	return strings.Join(lines, "\n") + "\n"
}

// csvField keeps free text from breaking the three-column layout.
func csvField(value string) string {
	return strings.NewReplacer(",", " ", "\n", " ", "\r", " ").Replace(value)
}

// dailyReportHTMLTmpl renders the printable daily report. html/template
// escapes product and store names.
var dailyReportHTMLTmpl = template.Must(template.New("daily-report").Parse(`<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <title>Daily Report {{.Date}}</title>
  <style>
    body { font-family: sans-serif; margin: 24px; }
    table { width: 100%; border-collapse: collapse; margin-top: 8px; }
    th, td { border: 1px solid #ddd; padding: 6px; font-size: 13px; }
    h2, h3 { margin-bottom: 4px; }
  </style>
</head>
<body>
  <h2>Daily Report {{.Date}}</h2>
  <p>Store: {{.StoreID}}</p>
  <p>Transactions: {{.Transactions}} | Voided: {{.Voided}} | Units: {{.Units}}</p>
  <p>Gross: {{.Currency}} {{.GrossSales.StringFixed 2}} | Profit: {{.Currency}} {{.Profit.StringFixed 2}}</p>

  <h3>By Payment</h3>
  <table>
    <thead><tr><th>Payment</th><th>Transactions</th><th>Total</th></tr></thead>
    <tbody>{{range .ByPayment}}<tr><td>{{.PaymentMethod}}</td><td style="text-align:right;">{{.Transactions}}</td><td style="text-align:right;">{{.Total.StringFixed 2}}</td></tr>{{end}}</tbody>
  </table>

  <h3>Top Products</h3>
  <table>
    <thead><tr><th>Product</th><th>Units</th><th>Total</th></tr></thead>
    <tbody>{{range .TopProducts}}<tr><td>{{.Name}}</td><td style="text-align:right;">{{.Units}}</td><td style="text-align:right;">{{.Total.StringFixed 2}}</td></tr>{{end}}</tbody>
  </table>
</body>
</html>
`))

func dailyReportToPrintableHTML(report domain.DailyReport) string {
	var buf bytes.Buffer
	if err := dailyReportHTMLTmpl.Execute(&buf, report); err != nil {
		return "<!doctype html><html><body><p>Report rendering error.</p></body></html>"
	}
	return buf.String()
}
