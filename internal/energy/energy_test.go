package energy

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"spotwatch/internal/localstore"
	"spotwatch/internal/storage"
)

func TestApplianceDailyKWh(t *testing.T) {
	sauna := Appliance{Name: "Sähkösauna", Watt: 6000, Hours: 1}
	if got := sauna.DailyKWh().String(); got != "6" {
		t.Fatalf("sauna daily kWh = %s", got)
	}

	fridge := Appliance{Name: "Jääkaappi", Watt: 150, Hours: 24}
	if got := fridge.DailyKWh().String(); got != "3.6" {
		t.Fatalf("fridge daily kWh = %s", got)
	}
}

func TestTotalDailyConsumption(t *testing.T) {
	total := TotalDailyConsumption(DefaultAppliances())
	// 3.6 + 6 + 0.4
	if total.String() != "10" {
		t.Fatalf("total = %s", total)
	}

	if !TotalDailyConsumption(nil).IsZero() {
		t.Fatal("empty list should consume nothing")
	}
}

func TestDailyProduction(t *testing.T) {
	got := DailyProduction(PanelSettings{PanelSizeKW: 5, EfficiencyPct: 80}, 5)
	if got.String() != "20" {
		t.Fatalf("production = %s", got)
	}
}

func TestSummarize(t *testing.T) {
	appliances := []Appliance{{Name: "Sähkösauna", Watt: 6000, Hours: 1}}
	panel := PanelSettings{PanelSizeKW: 5, EfficiencyPct: 80}
	avg := decimal.RequireFromString("10.0")

	s := Summarize(appliances, panel, 5, avg)
	if s.ConsumptionKWh.String() != "6" {
		t.Fatalf("consumption = %s", s.ConsumptionKWh)
	}
	if s.ProductionKWh.String() != "20" {
		t.Fatalf("production = %s", s.ProductionKWh)
	}
	if s.CostEUR.String() != "0.6" {
		t.Fatalf("cost = %s", s.CostEUR)
	}
	// Saving is capped at consumption even though production is larger.
	if s.SavingEUR.String() != "0.6" {
		t.Fatalf("saving = %s", s.SavingEUR)
	}
}

func TestSellIncomeSkipsErroredHours(t *testing.T) {
	price := func(v string) *decimal.Decimal {
		d := decimal.RequireFromString(v)
		return &d
	}
	hour := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	samples := []storage.PriceSampleRecord{
		{Hour: hour, Price: price("10.0"), Status: "complete"},
		{Hour: hour.Add(time.Hour), Status: "errored"},
		{Hour: hour.Add(2 * time.Hour), Price: price("5.0"), Status: "complete"},
	}

	income := SellIncome(samples, decimal.NewFromInt(2))
	// (10 + 5) c/kWh * 2 kWh = 30 cents
	if income.String() != "0.3" {
		t.Fatalf("income = %s", income)
	}
}

func testRepo(t *testing.T) *Repository {
	t.Helper()
	store, err := localstore.Open(filepath.Join(t.TempDir(), "settings.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return NewRepository(store, zerolog.Nop())
}

func TestLoadAppliancesFirstRun(t *testing.T) {
	repo := testRepo(t)

	appliances, err := repo.LoadAppliances()
	if err != nil {
		t.Fatalf("LoadAppliances: %v", err)
	}
	if len(appliances) != 3 {
		t.Fatalf("expected default list, got %d entries", len(appliances))
	}

	// Defaults are persisted, so a second load returns the same list.
	again, err := repo.LoadAppliances()
	if err != nil {
		t.Fatal(err)
	}
	if len(again) != len(appliances) {
		t.Fatal("defaults not persisted")
	}
}

func TestPanelSettingsRoundTrip(t *testing.T) {
	repo := testRepo(t)

	if _, ok, err := repo.LoadPanel(); err != nil || ok {
		t.Fatalf("fresh store should have no panel settings: ok=%v err=%v", ok, err)
	}

	panel := PanelSettings{PanelSizeKW: 7.5, EfficiencyPct: 85}
	if err := repo.SavePanel(panel); err != nil {
		t.Fatal(err)
	}

	loaded, ok, err := repo.LoadPanel()
	if err != nil || !ok {
		t.Fatalf("LoadPanel: ok=%v err=%v", ok, err)
	}
	if loaded != panel {
		t.Fatalf("panel mismatch: %+v", loaded)
	}
}

func TestHistoryUpsertReplacesMonth(t *testing.T) {
	repo := testRepo(t)

	first := MonthlyRecord{Month: "2026-08", ConsumptionKWh: decimal.NewFromInt(300), ProductionKWh: decimal.NewFromInt(120), SavingEUR: decimal.NewFromInt(12)}
	if err := repo.UpsertHistory(first); err != nil {
		t.Fatal(err)
	}

	updated := first
	updated.SavingEUR = decimal.NewFromInt(15)
	if err := repo.UpsertHistory(updated); err != nil {
		t.Fatal(err)
	}

	history, err := repo.History()
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 {
		t.Fatalf("same month should be replaced, got %d records", len(history))
	}
	if !history[0].SavingEUR.Equal(updated.SavingEUR) {
		t.Fatalf("record not replaced: %+v", history[0])
	}
}
