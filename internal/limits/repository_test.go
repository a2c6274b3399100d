package limits

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"spotwatch/internal/localstore"
	"spotwatch/internal/threshold"
)

func testRepo(t *testing.T) (*Repository, *localstore.Store) {
	t.Helper()
	store, err := localstore.Open(filepath.Join(t.TempDir(), "settings.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return NewRepository(store, zerolog.Nop()), store
}

func TestLoadFirstRunWritesDefaults(t *testing.T) {
	repo, store := testRepo(t)

	set, err := repo.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(set.Limits) != 5 {
		t.Fatalf("expected 4 devices + general, got %d entries", len(set.Limits))
	}
	if _, ok := set.Limits[threshold.GeneralDevice].(threshold.Scalar); !ok {
		t.Fatal("general entry should be a scalar")
	}

	// Defaults must have been persisted, not just returned.
	if _, ok, _ := store.Get(localstore.KeyDeviceLimits); !ok {
		t.Fatal("defaults were not written to the store")
	}
	if _, ok, _ := store.Get(localstore.KeyVisibleDevices); !ok {
		t.Fatal("visible devices were not written to the store")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	repo, _ := testRepo(t)

	set := threshold.DefaultLimitSet()
	band, err := threshold.ParseBand("1.5", "6.5")
	if err != nil {
		t.Fatal(err)
	}
	if err := set.AddDevice("Lämpöpumppu", band); err != nil {
		t.Fatal(err)
	}
	if err := repo.Save(set); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := repo.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got, ok := loaded.Limits["Lämpöpumppu"].(threshold.Band)
	if !ok {
		t.Fatal("added device lost on round trip")
	}
	if !got.Lower.Equal(band.Lower) || !got.Upper.Equal(band.Upper) {
		t.Fatalf("band mismatch: %+v", got)
	}
	if loaded.Visible[len(loaded.Visible)-1] != "Lämpöpumppu" {
		t.Fatalf("visible order lost: %v", loaded.Visible)
	}
}

func TestLoadMigratesLegacyBlob(t *testing.T) {
	repo, store := testRepo(t)

	legacy := json.RawMessage(`{"Sauna":{"lower":2.5,"upper":8.0},"generalLimit":4.0}`)
	if err := store.Set(localstore.KeyDeviceLimits, legacy); err != nil {
		t.Fatal(err)
	}

	set, err := repo.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := set.Limits[threshold.GeneralDevice]; !ok {
		t.Fatal("legacy generalLimit should surface as general")
	}

	// The store must now hold the canonical shape.
	raw, _, err := store.Get(localstore.KeyDeviceLimits)
	if err != nil {
		t.Fatal(err)
	}
	var reparsed map[string]json.RawMessage
	if err := json.Unmarshal(raw, &reparsed); err != nil {
		t.Fatal(err)
	}
	if _, ok := reparsed["generalLimit"]; ok {
		t.Fatal("legacy key still persisted after migration")
	}
	if _, ok := reparsed[threshold.GeneralDevice]; !ok {
		t.Fatal("canonical general key missing after migration")
	}
}

func TestLoadWithoutVisibleListFallsBackToAllDevices(t *testing.T) {
	repo, store := testRepo(t)

	if err := store.Set(localstore.KeyDeviceLimits, json.RawMessage(`{"Sauna":{"lower":2.5,"upper":8.0},"general":4.0}`)); err != nil {
		t.Fatal(err)
	}

	set, err := repo.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(set.Visible) != 2 {
		t.Fatalf("visible fallback should cover all entries, got %v", set.Visible)
	}
}
