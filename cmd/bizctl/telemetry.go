package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// telemetryRows lists the printed fields in display order
var telemetryRows = []struct {
	label, path, suffix string
}{
	{"Total earnings", "totalEarnings", " AED"},
	{"Total expenses", "totalExpenses", " AED"},
	{"Profit margin", "profitMargin", " %"},
	{"Pending revenue", "pendingRevenue", " AED"},
	{"Overdue invoices", "overdueCount", ""},
	{"Corporate tax progress", "corporateTaxProgress", " %"},
	{"Estimated tax liability", "estimatedTaxLiability", " AED"},
	{"Invoices", "invoiceCount", ""},
	{"Proposals", "proposalCount", ""},
	{"Clients", "clientCount", ""},
	{"Pending approvals", "pendingApprovalCount", ""},
}

func newTelemetryCmd(g *globals) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "telemetry",
		Short: "Print the finance telemetry of the token's tenant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := g.requireToken(); err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), g.timeout)
			defer cancel()

			body, err := g.get(ctx, "/api/v1/telemetry")
			if err != nil {
				return err
			}
			data := gjson.GetBytes(body, "data")
			if raw {
				fmt.Fprintln(cmd.OutOrStdout(), data.Raw)
				return nil
			}
			return printTelemetry(cmd.OutOrStdout(), data)
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "Print the JSON payload")
	return cmd
}

func printTelemetry(out io.Writer, data gjson.Result) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Tenant\t%s\n", data.Get("tenantId").String())
	for _, row := range telemetryRows {
		value := data.Get(row.path).String()
		if row.suffix == " AED" {
			value = formatMoney(value)
		}
		fmt.Fprintf(w, "%s\t%s%s\n", row.label, value, row.suffix)
	}
	if at := data.Get("computedAt"); at.Exists() {
		fmt.Fprintf(w, "Computed at\t%s\n", at.String())
	}
	return w.Flush()
}

// formatMoney renders a decimal string with two places and thousand
// separators, e.g. "1234567.5" -> "1,234,567.50". Unparseable input is
// returned as is.
func formatMoney(s string) string {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return s
	}
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}
	d = d.Round(2)
	fixed := d.StringFixed(2)
	_, frac, _ := strings.Cut(fixed, ".")
	return sign + printer.Sprintf("%d", d.Truncate(0).IntPart()) + "." + frac
}

// get performs an authenticated GET and returns the body of a 2xx response
func (g *globals) get(ctx context.Context, path string) ([]byte, error) {
	req, err := g.newRequest(http.MethodGet, path)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, apiError(resp)
	}
	return io.ReadAll(resp.Body)
}

// apiError turns an error envelope into an error naming its code
func apiError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	code := gjson.GetBytes(body, "error.code").String()
	message := gjson.GetBytes(body, "error.message").String()
	if code == "" {
		return fmt.Errorf("server returned %s", resp.Status)
	}
	return fmt.Errorf("server returned %s: %s: %s", resp.Status, code, message)
}
