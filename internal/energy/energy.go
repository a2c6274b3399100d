package energy

import (
	"github.com/shopspring/decimal"

	"spotwatch/internal/storage"
)

// Appliance is a household device with a nominal power draw and an estimated
// daily usage. The JSON field names match the settings blob the mobile app
// persisted, so existing device lists import unchanged.
type Appliance struct {
	Name  string  `json:"name"`
	Watt  float64 `json:"watt"`
	Hours float64 `json:"hours"`
}

// DailyKWh is the appliance's estimated daily consumption.
func (a Appliance) DailyKWh() decimal.Decimal {
	return decimal.NewFromFloat(a.Watt).
		Mul(decimal.NewFromFloat(a.Hours)).
		Div(decimal.NewFromInt(1000))
}

// DefaultAppliances is the first-run device list.
func DefaultAppliances() []Appliance {
	return []Appliance{
		{Name: "Jääkaappi", Watt: 150, Hours: 24},
		{Name: "Sähkösauna", Watt: 6000, Hours: 1},
		{Name: "TV", Watt: 100, Hours: 4},
	}
}

// PanelSettings describe the solar installation.
type PanelSettings struct {
	PanelSizeKW   float64 `json:"panelSize"`
	EfficiencyPct float64 `json:"efficiency"`
}

// TotalDailyConsumption sums the daily consumption of all appliances.
func TotalDailyConsumption(appliances []Appliance) decimal.Decimal {
	total := decimal.Zero
	for _, a := range appliances {
		total = total.Add(a.DailyKWh())
	}
	return total
}

// DailyProduction estimates the panel output for a day using a flat
// sunshine-hours model: size * efficiency * hours. No solar-position
// astronomy is involved.
func DailyProduction(panel PanelSettings, sunshineHours float64) decimal.Decimal {
	return decimal.NewFromFloat(panel.PanelSizeKW).
		Mul(decimal.NewFromFloat(panel.EfficiencyPct).Div(decimal.NewFromInt(100))).
		Mul(decimal.NewFromFloat(sunshineHours))
}

// Summary aggregates the consumption/production economics at a reference
// price (typically the rolling 7-day average).
type Summary struct {
	ConsumptionKWh decimal.Decimal
	ProductionKWh  decimal.Decimal
	CostEUR        decimal.Decimal
	SavingEUR      decimal.Decimal
}

// Summarize prices daily consumption and production at avgPrice (c/kWh).
// Saving covers only self-consumed production: surplus beyond consumption
// earns sell income, not avoided cost.
func Summarize(appliances []Appliance, panel PanelSettings, sunshineHours float64, avgPrice decimal.Decimal) Summary {
	consumption := TotalDailyConsumption(appliances)
	production := DailyProduction(panel, sunshineHours)

	selfConsumed := production
	if consumption.LessThan(production) {
		selfConsumed = consumption
	}

	cents := decimal.NewFromInt(100)
	return Summary{
		ConsumptionKWh: consumption,
		ProductionKWh:  production,
		CostEUR:        consumption.Mul(avgPrice).Div(cents).Round(2),
		SavingEUR:      selfConsumed.Mul(avgPrice).Div(cents).Round(2),
	}
}

// SellIncome estimates the income from selling producedKWhPerHour into the
// spot market over the given sample history. Errored hours contribute
// nothing. Prices are c/kWh, the result is EUR.
func SellIncome(samples []storage.PriceSampleRecord, producedKWhPerHour decimal.Decimal) decimal.Decimal {
	income := decimal.Zero
	for _, s := range samples {
		if s.Price == nil {
			continue
		}
		income = income.Add(s.Price.Mul(producedKWhPerHour))
	}
	return income.Div(decimal.NewFromInt(100)).Round(2)
}
