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

// windowFlags are shared by the regular and force subcommands.
type windowFlags struct {
	portfolio int64
	start     string
	end       string
	async     bool
}

func (w *windowFlags) set(f *flag.FlagSet) {
	today := time.Now().Format(domain.DateLayout)
	f.Int64Var(&w.portfolio, "p", 0, "Portfolio ID")
	f.StringVar(&w.start, "start", today, "First day of the window (YYYY-MM-DD)")
	f.StringVar(&w.end, "end", today, "Last day of the window (YYYY-MM-DD)")
	f.BoolVar(&w.async, "async", false, "Queue the run and return its job ID")
}

func (w *windowFlags) request() (map[string]any, error) {
	if w.portfolio <= 0 {
		return nil, fmt.Errorf("-p must be a positive portfolio ID")
	}
	for _, d := range []string{w.start, w.end} {
		if _, err := domain.ParseDate(d); err != nil {
			return nil, err
		}
	}
	return map[string]any{
		"portfolio_id": w.portfolio,
		"start_date":   w.start,
		"end_date":     w.end,
		"async":        w.async,
	}, nil
}

func (w *windowFlags) execute(ctx context.Context, method rpc) subcommands.ExitStatus {
	req, err := w.request()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	return call(ctx, method, req)
}

// regularCmd holds the flags for the 'regular' subcommand.
type regularCmd struct {
	windowFlags
}

func (*regularCmd) Name() string     { return "regular" }
func (*regularCmd) Synopsis() string { return "evaluate business days that have no record yet" }
func (*regularCmd) Usage() string {
	return `evalctl regular -p <portfolio> [-start <date>] [-end <date>] [-async]

  Values every business day in the window not already present in the store.
`
}

func (c *regularCmd) SetFlags(f *flag.FlagSet) { c.set(f) }

func (c *regularCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.execute(ctx, calculatorv1.CalculatorServiceClient.EvaluateRegular)
}

// forceCmd holds the flags for the 'force' subcommand.
type forceCmd struct {
	windowFlags
}

func (*forceCmd) Name() string     { return "force" }
func (*forceCmd) Synopsis() string { return "replace the records strictly inside a window" }
func (*forceCmd) Usage() string {
	return `evalctl force -p <portfolio> -start <date> -end <date> [-async]

  Deletes the portfolio's records dated strictly between start and end,
  then values every business day in the window again.
`
}

func (c *forceCmd) SetFlags(f *flag.FlagSet) { c.set(f) }

func (c *forceCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.execute(ctx, calculatorv1.CalculatorServiceClient.EvaluateForce)
}

// reviseCmd holds the flags for the 'revise' subcommand.
type reviseCmd struct {
	portfolio int64
	async     bool
}

func (*reviseCmd) Name() string     { return "revise" }
func (*reviseCmd) Synopsis() string { return "refresh locked records from late prices" }
func (*reviseCmd) Usage() string {
	return `evalctl revise -p <portfolio> [-async]

  Re-reads the price of every locked record and unlocks those priced on their base date.
`
}

func (c *reviseCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.portfolio, "p", 0, "Portfolio ID")
	f.BoolVar(&c.async, "async", false, "Queue the run and return its job ID")
}

func (c *reviseCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.portfolio <= 0 {
		fmt.Fprintln(os.Stderr, "Error: -p must be a positive portfolio ID")
		return subcommands.ExitUsageError
	}
	return call(ctx, calculatorv1.CalculatorServiceClient.EvaluateRevision, map[string]any{
		"portfolio_id": c.portfolio,
		"async":        c.async,
	})
}
