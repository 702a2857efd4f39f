package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/subcommands"

	"github.com/simaogato/wealthflow-calculator/internal/adapter/grpc/calculatorv1"
	"github.com/simaogato/wealthflow-calculator/internal/domain"
)

// priceBondCmd holds the flags for the 'price-bond' subcommand.
type priceBondCmd struct {
	code      string
	unit      string
	coupon    string
	maturity  string
	frequency string
	termEnd   bool
	units     string
}

func (*priceBondCmd) Name() string     { return "price-bond" }
func (*priceBondCmd) Synopsis() string { return "compute the theoretical price of a fixed-coupon bond" }
func (*priceBondCmd) Usage() string {
	return `evalctl price-bond -unit <face> -coupon <rate> -maturity <years> [-freq annual|semi_annual] [-units <n>] [-term-end]

  Discounts the bond's coupons and redemption with the stored discount-factor curve.
`
}

func (c *priceBondCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.code, "code", "", "Bond code, echoed back")
	f.StringVar(&c.unit, "unit", "100", "Face value per unit")
	f.StringVar(&c.coupon, "coupon", "", "Annual coupon rate, e.g. 0.02")
	f.StringVar(&c.maturity, "maturity", "", "Remaining maturity in years")
	f.StringVar(&c.frequency, "freq", "annual", "Payment frequency: annual or semi_annual")
	f.BoolVar(&c.termEnd, "term-end", false, "Coupons are paid at the end of each term")
	f.StringVar(&c.units, "units", "1", "Units held")
}

func (c *priceBondCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.coupon == "" || c.maturity == "" {
		fmt.Fprintln(os.Stderr, "Error: -coupon and -maturity are required")
		return subcommands.ExitUsageError
	}
	return call(ctx, calculatorv1.CalculatorServiceClient.PriceBond, map[string]any{
		"code":             c.code,
		"unit":             c.unit,
		"coupon_rate":      c.coupon,
		"current_maturity": c.maturity,
		"frequency":        c.frequency,
		"term_end_payment": c.termEnd,
		"current_units":    c.units,
	})
}

// summaryCmd holds the flags for the 'summary' subcommand.
type summaryCmd struct {
	portfolio int64
	date      string
}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "display a portfolio's totals on one base date" }
func (*summaryCmd) Usage() string {
	return `evalctl summary -p <portfolio> [-d <date>]

  Sums book value, market value and unrealized P/L of the stored records.
`
}

func (c *summaryCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.portfolio, "p", 0, "Portfolio ID")
	f.StringVar(&c.date, "d", time.Now().Format(domain.DateLayout), "Base date (YYYY-MM-DD)")
}

func (c *summaryCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.portfolio <= 0 {
		fmt.Fprintln(os.Stderr, "Error: -p must be a positive portfolio ID")
		return subcommands.ExitUsageError
	}
	if _, err := domain.ParseDate(c.date); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
		return subcommands.ExitUsageError
	}
	return call(ctx, calculatorv1.CalculatorServiceClient.GetPortfolioSummary, map[string]any{
		"portfolio_id": c.portfolio,
		"base_date":    c.date,
	})
}
