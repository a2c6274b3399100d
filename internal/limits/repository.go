package limits

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"spotwatch/internal/localstore"
	"spotwatch/internal/threshold"
)

// Repository loads and persists the threshold configuration through the
// local settings store. The limit set is always handed out by value; callers
// edit a copy and commit it back through Save.
type Repository struct {
	store  *localstore.Store
	logger zerolog.Logger
}

// NewRepository wires the settings store into a limits repository.
func NewRepository(store *localstore.Store, logger zerolog.Logger) *Repository {
	return &Repository{store: store, logger: logger.With().Str("component", "limits").Logger()}
}

// Load returns the persisted limit set. On first run the built-in defaults
// are written back; a blob in the historical generalLimit shape is migrated
// and re-persisted in the canonical form.
func (r *Repository) Load() (threshold.LimitSet, error) {
	raw, ok, err := r.store.Get(localstore.KeyDeviceLimits)
	if err != nil {
		return threshold.LimitSet{}, err
	}
	if !ok {
		set := threshold.DefaultLimitSet()
		if err := r.Save(set); err != nil {
			return threshold.LimitSet{}, fmt.Errorf("persist default limits: %w", err)
		}
		r.logger.Info().Msg("initialized default device limits")
		return set, nil
	}

	var limits threshold.LimitMap
	if err := json.Unmarshal(raw, &limits); err != nil {
		return threshold.LimitSet{}, fmt.Errorf("parse stored limits: %w", err)
	}

	set := threshold.LimitSet{Limits: limits}

	if rawVisible, ok, err := r.store.Get(localstore.KeyVisibleDevices); err != nil {
		return threshold.LimitSet{}, err
	} else if ok {
		if err := json.Unmarshal(rawVisible, &set.Visible); err != nil {
			return threshold.LimitSet{}, fmt.Errorf("parse visible devices: %w", err)
		}
	} else {
		set.Visible = set.Devices()
	}

	if bytes.Contains(raw, []byte(`"generalLimit"`)) {
		if err := r.Save(set); err != nil {
			return threshold.LimitSet{}, fmt.Errorf("rewrite migrated limits: %w", err)
		}
		r.logger.Info().Msg("migrated legacy generalLimit entry")
	}

	return set, nil
}

// Save persists the limit set and its visible-device list.
func (r *Repository) Save(set threshold.LimitSet) error {
	blob, err := json.Marshal(set.Limits)
	if err != nil {
		return fmt.Errorf("marshal limits: %w", err)
	}
	if err := r.store.Set(localstore.KeyDeviceLimits, blob); err != nil {
		return err
	}

	visible := set.Visible
	if visible == nil {
		visible = []string{}
	}
	visibleBlob, err := json.Marshal(visible)
	if err != nil {
		return fmt.Errorf("marshal visible devices: %w", err)
	}
	return r.store.Set(localstore.KeyVisibleDevices, visibleBlob)
}
