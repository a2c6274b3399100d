package threshold

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseBandRoundsToOneDecimal(t *testing.T) {
	band, err := ParseBand("2.546", "8.041")
	if err != nil {
		t.Fatalf("ParseBand: %v", err)
	}
	if band.Lower.String() != "2.5" || band.Upper.String() != "8" {
		t.Fatalf("rounding mismatch: lower=%s upper=%s", band.Lower, band.Upper)
	}

	// Re-validating the rounded values is stable.
	again, err := ParseBand(band.Lower.StringFixed(1), band.Upper.StringFixed(1))
	if err != nil {
		t.Fatalf("re-validate: %v", err)
	}
	if !again.Lower.Equal(band.Lower) || !again.Upper.Equal(band.Upper) {
		t.Fatalf("rounding not idempotent: %+v vs %+v", again, band)
	}
}

func TestParseBandAcceptsCommaSeparator(t *testing.T) {
	band, err := ParseBand("2,5", "8,0")
	if err != nil {
		t.Fatalf("comma separator should be accepted: %v", err)
	}
	if band.Lower.String() != "2.5" {
		t.Fatalf("lower = %s", band.Lower)
	}
}

func TestParseBandRejectsInverted(t *testing.T) {
	cases := [][2]string{
		{"8.0", "2.5"},
		{"4.0", "4.0"},
		{"0", "0"},
		{"-1.0", "-2.0"},
	}
	for _, tc := range cases {
		if _, err := ParseBand(tc[0], tc[1]); !errors.Is(err, ErrInvertedBand) {
			t.Errorf("ParseBand(%s, %s) should reject inverted band, got %v", tc[0], tc[1], err)
		}
	}

	if _, err := ParseBand("1.0", "9.0"); err != nil {
		t.Fatalf("valid band rejected: %v", err)
	}
}

func TestParseBandRejectsNonNumeric(t *testing.T) {
	for _, tc := range [][2]string{{"abc", "8.0"}, {"2.5", ""}, {"2.5", "8.0.1"}} {
		if _, err := ParseBand(tc[0], tc[1]); !errors.Is(err, ErrNonNumeric) {
			t.Errorf("ParseBand(%q, %q) should reject non-numeric, got %v", tc[0], tc[1], err)
		}
	}
}

func TestParseCutoff(t *testing.T) {
	scalar, err := ParseCutoff("4.05")
	if err != nil {
		t.Fatalf("ParseCutoff: %v", err)
	}
	if scalar.Cutoff.String() != "4.1" {
		t.Fatalf("cutoff = %s", scalar.Cutoff)
	}

	if _, err := ParseCutoff("paljon"); !errors.Is(err, ErrNonNumeric) {
		t.Fatalf("non-numeric cutoff should fail, got %v", err)
	}
}

func TestAddDevice(t *testing.T) {
	set := DefaultLimitSet()
	band, err := ParseBand("1.0", "5.0")
	if err != nil {
		t.Fatal(err)
	}

	if err := set.AddDevice("Lämpöpumppu", band); err != nil {
		t.Fatalf("AddDevice: %v", err)
	}
	if _, ok := set.Limits["Lämpöpumppu"]; !ok {
		t.Fatal("device not added")
	}
	if set.Visible[len(set.Visible)-1] != "Lämpöpumppu" {
		t.Fatal("new device should be appended to the visible list")
	}

	if err := set.AddDevice("Sauna", band); !errors.Is(err, ErrDuplicateDevice) {
		t.Fatalf("重复设备应被拒绝, got %v", err)
	}
	if err := set.AddDevice(GeneralDevice, band); !errors.Is(err, ErrReservedName) {
		t.Fatalf("general name is reserved, got %v", err)
	}
}

func TestRemoveDevice(t *testing.T) {
	set := DefaultLimitSet()

	if err := set.RemoveDevice("Sauna"); err != nil {
		t.Fatalf("RemoveDevice: %v", err)
	}
	if _, ok := set.Limits["Sauna"]; ok {
		t.Fatal("device still present after removal")
	}
	for _, d := range set.Visible {
		if d == "Sauna" {
			t.Fatal("removed device still visible")
		}
	}

	if err := set.RemoveDevice(GeneralDevice); !errors.Is(err, ErrReservedName) {
		t.Fatalf("general cutoff must not be removable, got %v", err)
	}
	if err := set.RemoveDevice("Olematon"); !errors.Is(err, ErrUnknownDevice) {
		t.Fatalf("unknown device, got %v", err)
	}
}

func TestUpdateDevice(t *testing.T) {
	set := DefaultLimitSet()
	band, _ := ParseBand("3.0", "6.0")

	if err := set.UpdateDevice("Pyykki", band); err != nil {
		t.Fatalf("UpdateDevice: %v", err)
	}
	got := set.Limits["Pyykki"].(Band)
	if !got.Upper.Equal(band.Upper) {
		t.Fatalf("band not updated: %+v", got)
	}

	if err := set.UpdateDevice(GeneralDevice, band); err == nil {
		t.Fatal("updating the general entry as a band should fail")
	}
}

func TestSetVisible(t *testing.T) {
	set := DefaultLimitSet()

	if err := set.SetVisible("Sauna", false); err != nil {
		t.Fatal(err)
	}
	for _, d := range set.Visible {
		if d == "Sauna" {
			t.Fatal("Sauna should be hidden")
		}
	}

	if err := set.SetVisible("Sauna", true); err != nil {
		t.Fatal(err)
	}
	if err := set.SetVisible("Sauna", true); err != nil {
		t.Fatal("re-showing must be a no-op, not an error")
	}
	count := 0
	for _, d := range set.Visible {
		if d == "Sauna" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("Sauna should appear once in visible list, got %d", count)
	}
}

func TestLimitMapJSONRoundTrip(t *testing.T) {
	set := DefaultLimitSet()

	blob, err := json.Marshal(set.Limits)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded LimitMap
	if err := json.Unmarshal(blob, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if len(decoded) != len(set.Limits) {
		t.Fatalf("entry count mismatch: %d vs %d", len(decoded), len(set.Limits))
	}
	general, ok := decoded[GeneralDevice].(Scalar)
	if !ok {
		t.Fatalf("general entry lost its scalar form: %T", decoded[GeneralDevice])
	}
	if general.Cutoff.String() != "4" {
		t.Fatalf("cutoff = %s", general.Cutoff)
	}
}

func TestLimitMapMigratesLegacyGeneralLimit(t *testing.T) {
	legacy := []byte(`{"Sauna":{"lower":2.5,"upper":8.0},"generalLimit":4.0}`)

	var m LimitMap
	if err := json.Unmarshal(legacy, &m); err != nil {
		t.Fatalf("unmarshal legacy blob: %v", err)
	}

	if _, ok := m[legacyGeneralKey]; ok {
		t.Fatal("legacy key should not survive migration")
	}
	scalar, ok := m[GeneralDevice].(Scalar)
	if !ok {
		t.Fatalf("migrated entry should be a scalar, got %T", m[GeneralDevice])
	}
	if scalar.Cutoff.String() != "4" {
		t.Fatalf("cutoff = %s", scalar.Cutoff)
	}
}
