package threshold

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// GeneralDevice is the reserved entry name for the global scalar cutoff.
const GeneralDevice = "general"

// legacyGeneralKey is the pre-migration name of the scalar cutoff field.
const legacyGeneralKey = "generalLimit"

// Classification is the traffic-light state of a device for a given price.
type Classification int

const (
	// Unknown is returned for invalid prices or missing/malformed limits.
	// It is a valid result value, not an error.
	Unknown Classification = iota
	// Favorable means usage is unconditionally cheap.
	Favorable
	// Marginal means usage is acceptable with discretion.
	Marginal
	// Unfavorable means usage is expensive right now.
	Unfavorable
)

func (c Classification) String() string {
	switch c {
	case Favorable:
		return "favorable"
	case Marginal:
		return "marginal"
	case Unfavorable:
		return "unfavorable"
	default:
		return "unknown"
	}
}

// LimitEntry is either a Band or a Scalar. The two forms are kept as
// distinct variants; the scalar cutoff is never modelled as a degenerate band.
type LimitEntry interface {
	limitEntry()
}

// Band is a per-device comfort band in c/kWh. Upper must exceed Lower.
type Band struct {
	Lower decimal.Decimal
	Upper decimal.Decimal
}

func (Band) limitEntry() {}

// Valid reports whether the band satisfies the upper > lower invariant.
func (b Band) Valid() bool {
	return b.Upper.GreaterThan(b.Lower)
}

// Scalar is the single global cutoff in c/kWh.
type Scalar struct {
	Cutoff decimal.Decimal
}

func (Scalar) limitEntry() {}

// LimitMap maps device name to its limit entry. Its JSON form matches the
// persisted settings blob: bands as {"lower":2.5,"upper":8.0} objects and the
// general cutoff as a bare number.
type LimitMap map[string]LimitEntry

type bandJSON struct {
	Lower json.Number `json:"lower"`
	Upper json.Number `json:"upper"`
}

// MarshalJSON renders bands as objects and the scalar cutoff as a number.
func (m LimitMap) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m))
	for name, entry := range m {
		switch e := entry.(type) {
		case Band:
			out[name] = bandJSON{Lower: json.Number(e.Lower.String()), Upper: json.Number(e.Upper.String())}
		case Scalar:
			out[name] = json.Number(e.Cutoff.String())
		default:
			return nil, fmt.Errorf("threshold: cannot marshal entry %q of type %T", name, entry)
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts both the canonical shape and the historical one where
// the cutoff lived under "generalLimit".
func (m *LimitMap) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	result := make(LimitMap, len(raw))
	for name, value := range raw {
		trimmed := bytes.TrimSpace(value)
		if len(trimmed) == 0 || string(trimmed) == "null" {
			continue
		}

		if trimmed[0] == '{' {
			var b bandJSON
			if err := json.Unmarshal(trimmed, &b); err != nil {
				return fmt.Errorf("parse band %q: %w", name, err)
			}
			lower, err := decimal.NewFromString(b.Lower.String())
			if err != nil {
				return fmt.Errorf("parse lower bound of %q: %w", name, err)
			}
			upper, err := decimal.NewFromString(b.Upper.String())
			if err != nil {
				return fmt.Errorf("parse upper bound of %q: %w", name, err)
			}
			result[name] = Band{Lower: lower, Upper: upper}
			continue
		}

		cutoff, err := decimal.NewFromString(string(bytes.Trim(trimmed, `"`)))
		if err != nil {
			return fmt.Errorf("parse cutoff %q: %w", name, err)
		}
		if name == legacyGeneralKey {
			name = GeneralDevice
		}
		result[name] = Scalar{Cutoff: cutoff}
	}

	*m = result
	return nil
}

// LimitSet is the full threshold configuration. Visible controls presentation
// order only; evaluation always runs over every entry in Limits.
type LimitSet struct {
	Limits  LimitMap
	Visible []string
}

// DefaultLimitSet returns the built-in first-run configuration.
func DefaultLimitSet() LimitSet {
	band := Band{Lower: decimal.RequireFromString("2.5"), Upper: decimal.RequireFromString("8.0")}
	return LimitSet{
		Limits: LimitMap{
			"Astiat":      band,
			"Pyykki":      band,
			"Sauna":       band,
			"S-Auto":      band,
			GeneralDevice: Scalar{Cutoff: decimal.RequireFromString("4.0")},
		},
		Visible: []string{"Astiat", "Pyykki", "Sauna", "S-Auto", GeneralDevice},
	}
}

// Devices returns the entry names in deterministic order.
func (s LimitSet) Devices() []string {
	names := make([]string, 0, len(s.Limits))
	for name := range s.Limits {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns a deep copy so edits never mutate a shared value.
func (s LimitSet) Clone() LimitSet {
	limits := make(LimitMap, len(s.Limits))
	for name, entry := range s.Limits {
		limits[name] = entry
	}
	visible := make([]string, len(s.Visible))
	copy(visible, s.Visible)
	return LimitSet{Limits: limits, Visible: visible}
}

// PriceSample is an hourly spot price reading in c/kWh. Valid is false when
// the source returned no usable price for the hour.
type PriceSample struct {
	Hour  time.Time
	Price decimal.Decimal
	Valid bool
}

// EventKind distinguishes the two notification triggers.
type EventKind string

const (
	// EventGeneral fires when the price is at or below the global cutoff.
	EventGeneral EventKind = "general"
	// EventDevice fires per device when the price is at or below its lower bound.
	EventDevice EventKind = "device"
)

// NotificationEvent is an intent to notify. Delivery belongs to the caller.
type NotificationEvent struct {
	Kind      EventKind
	Device    string
	Title     string
	Body      string
	Price     decimal.Decimal
	Threshold decimal.Decimal
}

// Result is the outcome of evaluating one price sample against a limit set.
type Result struct {
	States map[string]Classification
	Events []NotificationEvent
}
