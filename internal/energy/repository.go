package energy

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"spotwatch/internal/localstore"
)

// MonthlyRecord is one month's consumption/production outcome kept in the
// income history. The JSON keys match the app's stored history entries.
type MonthlyRecord struct {
	Month          string          `json:"month"`
	ConsumptionKWh decimal.Decimal `json:"kulutus"`
	ProductionKWh  decimal.Decimal `json:"tuotanto"`
	SavingEUR      decimal.Decimal `json:"säästö"`
}

// Repository persists appliance lists, panel settings, and the monthly
// income history through the local settings store.
type Repository struct {
	store  *localstore.Store
	logger zerolog.Logger
}

// NewRepository wires the settings store into an energy repository.
func NewRepository(store *localstore.Store, logger zerolog.Logger) *Repository {
	return &Repository{store: store, logger: logger.With().Str("component", "energy").Logger()}
}

// LoadAppliances returns the saved device list, falling back to defaults on
// first run (and persisting them).
func (r *Repository) LoadAppliances() ([]Appliance, error) {
	raw, ok, err := r.store.Get(localstore.KeyDeviceList)
	if err != nil {
		return nil, err
	}
	if !ok {
		appliances := DefaultAppliances()
		if err := r.SaveAppliances(appliances); err != nil {
			return nil, fmt.Errorf("persist default appliances: %w", err)
		}
		return appliances, nil
	}

	var appliances []Appliance
	if err := json.Unmarshal(raw, &appliances); err != nil {
		return nil, fmt.Errorf("parse appliance list: %w", err)
	}
	return appliances, nil
}

// SaveAppliances persists the device list.
func (r *Repository) SaveAppliances(appliances []Appliance) error {
	blob, err := json.Marshal(appliances)
	if err != nil {
		return fmt.Errorf("marshal appliance list: %w", err)
	}
	return r.store.Set(localstore.KeyDeviceList, blob)
}

// LoadPanel returns saved panel settings; ok=false means none were saved and
// the caller should fall back to configured defaults.
func (r *Repository) LoadPanel() (PanelSettings, bool, error) {
	raw, ok, err := r.store.Get(localstore.KeyPanelSettings)
	if err != nil || !ok {
		return PanelSettings{}, false, err
	}

	var panel PanelSettings
	if err := json.Unmarshal(raw, &panel); err != nil {
		return PanelSettings{}, false, fmt.Errorf("parse panel settings: %w", err)
	}
	return panel, true, nil
}

// SavePanel persists the panel settings.
func (r *Repository) SavePanel(panel PanelSettings) error {
	blob, err := json.Marshal(panel)
	if err != nil {
		return fmt.Errorf("marshal panel settings: %w", err)
	}
	return r.store.Set(localstore.KeyPanelSettings, blob)
}

// History returns the persisted monthly records.
func (r *Repository) History() ([]MonthlyRecord, error) {
	raw, ok, err := r.store.Get(localstore.KeyIncomeHistory)
	if err != nil || !ok {
		return nil, err
	}

	var history []MonthlyRecord
	if err := json.Unmarshal(raw, &history); err != nil {
		return nil, fmt.Errorf("parse income history: %w", err)
	}
	return history, nil
}

// UpsertHistory replaces the record for the given month and persists the
// full history.
func (r *Repository) UpsertHistory(record MonthlyRecord) error {
	history, err := r.History()
	if err != nil {
		return err
	}

	updated := make([]MonthlyRecord, 0, len(history)+1)
	for _, h := range history {
		if h.Month != record.Month {
			updated = append(updated, h)
		}
	}
	updated = append(updated, record)

	blob, err := json.Marshal(updated)
	if err != nil {
		return fmt.Errorf("marshal income history: %w", err)
	}
	return r.store.Set(localstore.KeyIncomeHistory, blob)
}
