package calendar

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/jp"
	"gopkg.in/yaml.v3"

	"github.com/simaogato/wealthflow-calculator/internal/domain"
)

// File is the on-disk list of extra closures, keyed by market code
//
//	markets:
//	  JP:
//	    - 2024-10-01 # system outage
type File struct {
	Markets map[string][]string `yaml:"markets"`
}

// MarketCalendar resolves business days per market. JP carries the national
// holidays and the exchange's year-end closure; other markets close on
// weekends and configured dates only.
type MarketCalendar struct {
	markets map[domain.MarketCode]*cal.BusinessCalendar
}

var _ domain.Calendar = (*MarketCalendar)(nil)

// yearEnd is the JP exchange closure that national holidays do not cover
var yearEnd = []*cal.Holiday{
	{Name: "Exchange Year-End Closure", Month: time.December, Day: 31, Func: cal.CalcDayOfMonth},
	{Name: "Exchange New Year Closure (2nd)", Month: time.January, Day: 2, Func: cal.CalcDayOfMonth},
	{Name: "Exchange New Year Closure (3rd)", Month: time.January, Day: 3, Func: cal.CalcDayOfMonth},
}

func baseCalendar(market domain.MarketCode) *cal.BusinessCalendar {
	c := cal.NewBusinessCalendar()
	if market == domain.MarketJP {
		c.AddHoliday(jp.Holidays...)
		c.AddHoliday(yearEnd...)
	}
	return c
}

// closure is a one-off holiday on a single date
func closure(market domain.MarketCode, d time.Time) *cal.Holiday {
	return &cal.Holiday{
		Name:      fmt.Sprintf("%s closure %s", market, d.Format(domain.DateLayout)),
		Month:     d.Month(),
		Day:       d.Day(),
		StartYear: d.Year(),
		EndYear:   d.Year(),
		Func:      cal.CalcDayOfMonth,
	}
}

// New creates a calendar with extra closures on top of each market's holidays
func New(extra map[domain.MarketCode][]time.Time) *MarketCalendar {
	c := &MarketCalendar{markets: map[domain.MarketCode]*cal.BusinessCalendar{
		domain.MarketJP: baseCalendar(domain.MarketJP),
	}}
	for market, days := range extra {
		bc := c.calendar(market)
		for _, d := range days {
			bc.AddHoliday(closure(market, domain.NormalizeDate(d)))
		}
		c.markets[market] = bc
	}
	return c
}

func (c *MarketCalendar) calendar(market domain.MarketCode) *cal.BusinessCalendar {
	if bc, ok := c.markets[market]; ok {
		return bc
	}
	return baseCalendar(market)
}

// Parse builds a calendar from a YAML closure file
func Parse(data []byte) (*MarketCalendar, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse holiday file: %w", err)
	}

	extra := make(map[domain.MarketCode][]time.Time, len(f.Markets))
	for market, days := range f.Markets {
		for _, raw := range days {
			d, err := domain.ParseDate(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid holiday %q for market %s: %w", raw, market, err)
			}
			extra[domain.MarketCode(market)] = append(extra[domain.MarketCode(market)], d)
		}
	}
	return New(extra), nil
}

// Load reads a YAML closure file. An empty path yields the built-in holidays only.
func Load(path string) (*MarketCalendar, error) {
	if path == "" {
		return New(nil), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read holiday file %s: %w", path, err)
	}
	return Parse(data)
}

// BusinessDays returns the business days in [start, end], ascending
func (c *MarketCalendar) BusinessDays(ctx context.Context, market domain.MarketCode, start, end time.Time) ([]time.Time, error) {
	start = domain.NormalizeDate(start)
	end = domain.NormalizeDate(end)
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end %s before start %s", domain.ErrInvalidRange,
			end.Format(domain.DateLayout), start.Format(domain.DateLayout))
	}

	bc := c.calendar(market)
	var days []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if bc.IsWorkday(d) {
			days = append(days, d)
		}
	}
	return days, nil
}

// IsBusinessDay reports whether the market trades on d
func (c *MarketCalendar) IsBusinessDay(market domain.MarketCode, d time.Time) bool {
	return c.calendar(market).IsWorkday(domain.NormalizeDate(d))
}
