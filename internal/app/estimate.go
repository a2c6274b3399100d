package app

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"spotwatch/internal/energy"
	"spotwatch/internal/fetcher"
)

// Estimate prints the daily consumption/production economics. With --month it
// additionally prices grid sales from the stored samples of that month and
// records the result in the income history.
func (a *App) Estimate(ctx context.Context, opts EstimateOptions) error {
	local, closeLocal, err := a.openLocalStore()
	if err != nil {
		return err
	}
	defer closeLocal()

	repo := energy.NewRepository(local, a.Logger)

	appliances, err := repo.LoadAppliances()
	if err != nil {
		return err
	}

	panel, ok, err := repo.LoadPanel()
	if err != nil {
		return err
	}
	if !ok {
		panel = energy.PanelSettings{
			PanelSizeKW:   a.Config.Solar.PanelSizeKW,
			EfficiencyPct: a.Config.Solar.EfficiencyPct,
		}
	}

	avg := a.referencePrice(ctx)
	summary := energy.Summarize(appliances, panel, a.Config.Solar.SunshineHours, avg)

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(writer, "Reference price\t%s c/kWh\n", avg.StringFixed(1))
	fmt.Fprintf(writer, "Daily consumption\t%s kWh\n", summary.ConsumptionKWh.StringFixed(1))
	fmt.Fprintf(writer, "Daily production\t%s kWh\n", summary.ProductionKWh.StringFixed(1))
	fmt.Fprintf(writer, "Daily cost\t%s EUR\n", summary.CostEUR.StringFixed(2))
	fmt.Fprintf(writer, "Daily saving\t%s EUR\n", summary.SavingEUR.StringFixed(2))

	if opts.Month != "" {
		income, err := a.monthlyIncome(ctx, opts)
		if err != nil {
			return err
		}
		fmt.Fprintf(writer, "Sell income %s\t%s EUR\n", opts.Month, income.StringFixed(2))

		days := decimal.NewFromInt(30)
		record := energy.MonthlyRecord{
			Month:          opts.Month,
			ConsumptionKWh: summary.ConsumptionKWh.Mul(days).Round(1),
			ProductionKWh:  summary.ProductionKWh.Mul(days).Round(1),
			SavingEUR:      summary.SavingEUR.Mul(days).Add(income).Round(2),
		}
		if err := repo.UpsertHistory(record); err != nil {
			return err
		}
	}

	return writer.Flush()
}

// referencePrice is the rolling average over the published price window; a
// fetch failure degrades to zero rather than failing the estimate.
func (a *App) referencePrice(ctx context.Context) decimal.Decimal {
	latest, err := a.newFetcher().FetchLatestPrices(ctx)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("failed to fetch latest prices; estimating at zero price")
		return decimal.Zero
	}
	avg, ok := fetcher.RollingAverage(latest, a.Config.Pricing.AvgWindowHours)
	if !ok {
		return decimal.Zero
	}
	return avg
}

func (a *App) monthlyIncome(ctx context.Context, opts EstimateOptions) (decimal.Decimal, error) {
	start, err := time.Parse("2006-01", opts.Month)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid month %q, expected YYYY-MM", opts.Month)
	}
	end := start.AddDate(0, 1, 0)

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	if store == nil {
		return decimal.Zero, fmt.Errorf("database not configured; cannot price month %s", opts.Month)
	}
	if closeStore != nil {
		defer closeStore()
	}

	samples, err := store.ListSamplesBetween(ctx, start, end)
	if err != nil {
		return decimal.Zero, err
	}

	return energy.SellIncome(samples, decimal.NewFromFloat(opts.ProducedKWh)), nil
}
